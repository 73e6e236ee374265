package knowledge

import (
	"strings"
)

// Classifier decides whether a question is about BNI in general rather than
// about roster or score data.
type Classifier interface {
	IsGeneral(question string) bool
}

// KeywordClassifier fires when the lower-cased question contains any of its
// trigger phrases.
type KeywordClassifier struct {
	triggers []string
}

// DefaultTriggers are the phrases that mark a general BNI question.
var DefaultTriggers = []string{
	"what is bni",
	"about bni",
	"bni purpose",
	"how does bni work",
	"bni meeting",
	"bni philosophy",
	"join bni",
	"bni founder",
	"bni chapter",
	"bni referral",
	"bni membership",
	"bni benefits",
}

func NewKeywordClassifier(triggers []string) *KeywordClassifier {
	lowered := make([]string, 0, len(triggers))
	for _, t := range triggers {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			lowered = append(lowered, t)
		}
	}
	return &KeywordClassifier{triggers: lowered}
}

func (c *KeywordClassifier) IsGeneral(question string) bool {
	q := strings.ToLower(question)
	for _, trigger := range c.triggers {
		if strings.Contains(q, trigger) {
			return true
		}
	}
	return false
}

// IsGeneralQuestion applies the default trigger list.
func IsGeneralQuestion(question string) bool {
	return defaultClassifier.IsGeneral(question)
}

var defaultClassifier = NewKeywordClassifier(DefaultTriggers)
