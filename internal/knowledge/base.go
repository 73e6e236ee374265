// Package knowledge answers general questions about BNI from a fixed fact
// table, falling back to the language model.
package knowledge

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Topic is one fact and the phrases that select it.
type Topic struct {
	Name string
	Keys []string
	Fact string
}

// DefaultTopics is searched in order; the first topic with a key contained in
// the question wins.
var DefaultTopics = []Topic{
	{Name: "about", Keys: []string{"about", "what is bni"}, Fact: "BNI (Business Network International) is the world's largest business networking organization."},
	{Name: "purpose", Keys: []string{"purpose"}, Fact: "BNI's primary purpose is to help members increase their business through referrals."},
	{Name: "meetings", Keys: []string{"meetings"}, Fact: "BNI chapters typically meet weekly to exchange qualified business referrals."},
	{Name: "givers gain", Keys: []string{"givers gain"}, Fact: "The philosophy of BNI is 'Givers Gain' - by giving business to others, you'll get business in return."},
	{Name: "membership", Keys: []string{"membership"}, Fact: "BNI membership is by application and requires a commitment to regular attendance."},
	{Name: "founder", Keys: []string{"founder"}, Fact: "BNI was founded by Dr. Ivan Misner in 1985."},
	{Name: "chapters", Keys: []string{"chapters"}, Fact: "BNI has thousands of chapters worldwide across many countries."},
	{Name: "mcc", Keys: []string{"mcc"}, Fact: "BNI's Member Connection Committee (MCC) helps new members get oriented."},
	{Name: "visitors", Keys: []string{"visitors"}, Fact: "Most BNI chapters allow visitors to attend meetings before joining."},
	{Name: "referrals", Keys: []string{"referrals"}, Fact: "The core of BNI is the exchange of quality business referrals between members."},
}

// Conversation completes a prompt with the user's recent history as context.
type Conversation interface {
	Complete(ctx context.Context, userID int64, prompt string) (string, error)
}

type Base struct {
	topics []Topic
	conv   Conversation
	logger *zap.Logger
}

func NewBase(topics []Topic, conv Conversation, logger *zap.Logger) *Base {
	return &Base{
		topics: topics,
		conv:   conv,
		logger: logger,
	}
}

// Lookup returns the fact of the first topic matching question.
func (b *Base) Lookup(question string) (Topic, bool) {
	q := strings.ToLower(question)
	for _, topic := range b.topics {
		for _, key := range topic.Keys {
			if strings.Contains(q, key) {
				return topic, true
			}
		}
	}
	return Topic{}, false
}

// Respond answers from the fact table, or asks the model for a short answer
// when no topic matches. userID may be zero.
func (b *Base) Respond(ctx context.Context, question string, userID int64) (string, error) {
	if topic, ok := b.Lookup(question); ok {
		b.logger.Debug("Answered from knowledge base", zap.String("topic", topic.Name))
		return topic.Fact, nil
	}

	prompt := fmt.Sprintf(`
You are an expert on BNI (Business Network International).
Provide a helpful, accurate response to this question about BNI.
Keep your answer concise (1-2 paragraphs max).

Question: %s

BNI Response:
`, question)

	answer, err := b.conv.Complete(ctx, userID, prompt)
	if err != nil {
		return "", fmt.Errorf("knowledge fallback: %w", err)
	}
	return strings.TrimSpace(answer), nil
}
