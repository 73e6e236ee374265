package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/bni-assistant/internal/llm"
	"github.com/xaenox/bni-assistant/internal/models"
	"go.uber.org/zap"
)

// Chain is the general-purpose completion chain: prompts for a known user
// are sent with that user's recent exchanges as context. Completing does
// not change the history; Record does.
type Chain struct {
	store  Store
	llm    llm.Completer
	logger *zap.Logger
}

func NewChain(store Store, completer llm.Completer, logger *zap.Logger) *Chain {
	return &Chain{
		store:  store,
		llm:    completer,
		logger: logger,
	}
}

// Record appends one exchange to the user's history.
func (c *Chain) Record(ctx context.Context, userID int64, question, answer string) error {
	return c.store.Append(ctx, userID, models.ConversationTurn{
		Question: question,
		Answer:   answer,
	})
}

func (c *Chain) History(ctx context.Context, userID int64) ([]models.ConversationTurn, error) {
	return c.store.History(ctx, userID)
}

func (c *Chain) Reset(ctx context.Context, userID int64) error {
	return c.store.Reset(ctx, userID)
}

// Complete sends prompt to the model. A zero userID means no history.
// A history read failure degrades to a context-free prompt.
func (c *Chain) Complete(ctx context.Context, userID int64, prompt string) (string, error) {
	if userID != 0 {
		turns, err := c.store.History(ctx, userID)
		if err != nil {
			c.logger.Warn("Failed to read conversation history",
				zap.Error(err),
				zap.Int64("user_id", userID))
		} else if len(turns) > 0 {
			prompt = RenderHistory(turns) + "\n" + prompt
		}
	}

	out, err := c.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("conversation completion: %w", err)
	}
	return out, nil
}

// RenderHistory formats turns oldest first.
func RenderHistory(turns []models.ConversationTurn) string {
	var b strings.Builder
	b.WriteString("Current conversation:\n")
	for _, t := range turns {
		fmt.Fprintf(&b, "Human: %s\nAI: %s\n", t.Question, t.Answer)
	}
	return b.String()
}
