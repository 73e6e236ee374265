// Package sqlgen turns a natural-language question into a single read-only
// SQL statement over the roster schema.
package sqlgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/bni-assistant/internal/llm"
	"go.uber.org/zap"
)

// Synthesizer asks the model for one SQL statement answering a question.
type Synthesizer struct {
	llm     llm.Completer
	schema  Schema
	dialect string
	logger  *zap.Logger
}

func NewSynthesizer(completer llm.Completer, schema Schema, dialect string, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{
		llm:     completer,
		schema:  schema,
		dialect: dialect,
		logger:  logger,
	}
}

// Prompt builds the generation prompt for question.
func (s *Synthesizer) Prompt(question string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a %s SQL generator for a BNI database with two related tables.\n\n", s.dialect)
	s.schema.describe(&b)

	b.WriteString("\nRules:\n")
	b.WriteString("- Only use SELECT queries\n")
	b.WriteString("- Return exactly one statement\n")
	b.WriteString("- Use JOIN if the question involves both tables\n")
	b.WriteString("- Never read login credentials\n")
	b.WriteString("- Do not write comments\n")
	b.WriteString("- Never explain the query, just return raw SQL\n")
	for _, ex := range s.schema.Examples {
		b.WriteString("- ")
		b.WriteString(ex)
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nUser Question: %q\n", question)
	return b.String()
}

// Synthesize returns the SQL text extracted from the model's reply. The
// statement is not validated here; see Guard.
func (s *Synthesizer) Synthesize(ctx context.Context, question string) (string, error) {
	reply, err := s.llm.Complete(ctx, s.Prompt(question))
	if err != nil {
		return "", fmt.Errorf("generate sql: %w", err)
	}

	query := ExtractSQL(reply)
	s.logger.Info("Generated SQL", zap.String("sql", query))
	return query, nil
}

// ExtractSQL pulls the statement out of a model reply: the body of a
// ```sql fence, else the body of the first fence (minus a bare language tag),
// else the whole reply.
func ExtractSQL(reply string) string {
	reply = strings.TrimSpace(reply)

	if _, after, ok := strings.Cut(reply, "```sql"); ok {
		body, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(body)
	}

	if _, after, ok := strings.Cut(reply, "```"); ok {
		body, _, _ := strings.Cut(after, "```")
		if first, rest, ok := strings.Cut(body, "\n"); ok && isLanguageTag(first) {
			body = rest
		}
		return strings.TrimSpace(body)
	}

	return reply
}

func isLanguageTag(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || len(line) > 16 {
		return false
	}
	for _, r := range line {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	// A lone keyword on the first line is SQL, not a tag.
	switch strings.ToUpper(line) {
	case "SELECT", "WITH", "VALUES", "TABLE":
		return false
	}
	return true
}
