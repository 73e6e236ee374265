package assistant

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var greetings = map[string]string{
	"hi":             "Hi there! 👋",
	"hello":          "Hello! 😊",
	"hey":            "Hey! ✨",
	"good morning":   "Good morning! 🌞",
	"good afternoon": "Good afternoon! ☀️",
	"good evening":   "Good evening! 🌙",
}

const greetingFollowUp = "\nHow can I help you with BNI today?"

var punctuation = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

func normalizeGreeting(question string) string {
	return strings.TrimSpace(punctuation.ReplaceAllString(strings.ToLower(question), ""))
}

// greet returns the canned reply when question is a bare greeting.
func (s *Service) greet(ctx context.Context, question string, userID int64) (string, bool) {
	reply, ok := greetings[normalizeGreeting(question)]
	if !ok {
		return "", false
	}

	if userID != 0 {
		member, err := s.store.GetMember(ctx, userID)
		if err != nil {
			s.logger.Warn("Failed to fetch member for greeting",
				zap.Error(err),
				zap.Int64("user_id", userID))
		} else {
			reply += " " + member.Name + " (" + member.CompanyName + ")"
		}
	}
	return reply + greetingFollowUp, true
}
