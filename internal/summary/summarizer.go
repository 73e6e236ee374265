// Package summary explains query results in plain language.
package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xaenox/bni-assistant/internal/llm"
	"github.com/xaenox/bni-assistant/internal/models"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// NoDataMessage is returned for an empty result without calling the model.
const NoDataMessage = "Sorry, I couldn't find any matching member based on your question."

// MemberLookup resolves the asking member for extra context.
type MemberLookup interface {
	GetMember(ctx context.Context, id int64) (*models.Member, error)
}

type Summarizer struct {
	llm     llm.Completer
	members MemberLookup
	logger  *zap.Logger
}

func NewSummarizer(completer llm.Completer, members MemberLookup, logger *zap.Logger) *Summarizer {
	return &Summarizer{
		llm:     completer,
		members: members,
		logger:  logger,
	}
}

// Summarize explains rows as an answer to question. userID may be zero.
func (s *Summarizer) Summarize(ctx context.Context, question string, rows []models.Row, userID int64) (string, error) {
	if len(rows) == 0 {
		return NoDataMessage, nil
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode rows: %w", err)
	}

	var memberContext string
	if userID != 0 {
		member, err := s.members.GetMember(ctx, userID)
		if err != nil {
			s.logger.Warn("Failed to fetch member for summary context",
				zap.Error(err),
				zap.Int64("user_id", userID))
		} else {
			memberContext = fmt.Sprintf("Additional context: The user is %s from %s", member.Name, member.CompanyName)
		}
	}

	prompt := fmt.Sprintf(`
You are a friendly AI assistant for BNI members.

The user asked: %q

Here is the data:
%s

%s

Explain it in a clear, simple, helpful way.
Avoid any database or SQL terms. Just answer naturally and informatively.
Add relevant emojis to make the response engaging and fun. 🎯📊😊
`, question, data, memberContext)

	reply, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("summarize rows: %w", err)
	}
	return Normalize(strings.TrimSpace(reply)), nil
}

// Normalize applies Unicode NFKC normalization.
func Normalize(text string) string {
	return norm.NFKC.String(text)
}
