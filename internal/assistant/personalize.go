package assistant

import (
	"context"
	"regexp"
	"strings"

	"github.com/xaenox/bni-assistant/internal/models"
	"go.uber.org/zap"
)

// MemberLookup resolves a member id to the member's details.
type MemberLookup interface {
	GetMember(ctx context.Context, id int64) (*models.Member, error)
}

var firstPerson = regexp.MustCompile(`(?i)\b(my|mine|me|i)\b`)

// Personalizer rewrites first-person pronouns into the asking member's name
// so the SQL generator knows who "my" refers to.
type Personalizer struct {
	members MemberLookup
	logger  *zap.Logger
}

func NewPersonalizer(members MemberLookup, logger *zap.Logger) *Personalizer {
	return &Personalizer{members: members, logger: logger}
}

// Personalize returns question unchanged when userID is zero or the member
// cannot be found.
func (p *Personalizer) Personalize(ctx context.Context, question string, userID int64) string {
	if userID == 0 {
		return question
	}

	member, err := p.members.GetMember(ctx, userID)
	if err != nil {
		p.logger.Warn("Failed to fetch member for personalization",
			zap.Error(err),
			zap.Int64("user_id", userID))
		return question
	}
	if member.Name == "" {
		return question
	}
	return ReplacePronouns(question, member.Name)
}

// ReplacePronouns substitutes whole-word, case-insensitive my/mine with
// "<name>'s" and me/I with name, in a single pass.
func ReplacePronouns(question, name string) string {
	return firstPerson.ReplaceAllStringFunc(question, func(word string) string {
		switch strings.ToLower(word) {
		case "my", "mine":
			return name + "'s"
		default:
			return name
		}
	})
}
