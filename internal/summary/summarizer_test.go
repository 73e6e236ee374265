package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/bni-assistant/internal/llm/llmtest"
	"github.com/xaenox/bni-assistant/internal/models"
	"go.uber.org/zap"
)

type fakeMembers map[int64]*models.Member

func (f fakeMembers) GetMember(ctx context.Context, id int64) (*models.Member, error) {
	if m, ok := f[id]; ok {
		return m, nil
	}
	return nil, errors.New("not found")
}

var members = fakeMembers{7: {ID: 7, Name: "Asha", CompanyName: "Asha Designs"}}

func TestSummarizeEmptyRowsSkipsModel(t *testing.T) {
	fake := llmtest.Returning("should not be used")
	s := NewSummarizer(fake, members, zap.NewNop())

	for _, rows := range [][]models.Row{nil, {}} {
		out, err := s.Summarize(context.Background(), "who scored 100?", rows, 7)
		require.NoError(t, err)
		assert.Equal(t, NoDataMessage, out)
	}
	assert.Zero(t, fake.Calls())
}

func TestSummarizePromptAndNormalization(t *testing.T) {
	// U+FF21 (fullwidth A) and the "ﬁ" ligature fold under NFKC.
	fake := llmtest.Returning("  Ａsha leads with 70 points 🎉 ﬁne work  ")
	s := NewSummarizer(fake, members, zap.NewNop())

	rows := []models.Row{{"member_name": "Asha", "total_score": 70}}
	out, err := s.Summarize(context.Background(), "who leads?", rows, 7)
	require.NoError(t, err)
	assert.Equal(t, "Asha leads with 70 points 🎉 fine work", out)

	prompt := fake.Prompts()[0]
	assert.Contains(t, prompt, `The user asked: "who leads?"`)
	assert.Contains(t, prompt, `"member_name": "Asha"`)
	assert.Contains(t, prompt, `"total_score": 70`)
	assert.Contains(t, prompt, "The user is Asha from Asha Designs")
	assert.Contains(t, prompt, "Avoid any database or SQL terms")
}

func TestSummarizeWithoutMemberContext(t *testing.T) {
	fake := llmtest.Returning("ok")
	s := NewSummarizer(fake, members, zap.NewNop())
	rows := []models.Row{{"n": 1}}

	_, err := s.Summarize(context.Background(), "q", rows, 0)
	require.NoError(t, err)
	_, err = s.Summarize(context.Background(), "q", rows, 404)
	require.NoError(t, err)

	for _, p := range fake.Prompts() {
		assert.NotContains(t, p, "The user is")
	}
}

func TestSummarizeModelError(t *testing.T) {
	boom := errors.New("bad gateway")
	s := NewSummarizer(llmtest.Failing(boom), members, zap.NewNop())

	_, err := s.Summarize(context.Background(), "q", []models.Row{{"n": 1}}, 0)
	assert.ErrorIs(t, err, boom)
}
