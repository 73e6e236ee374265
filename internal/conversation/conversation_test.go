package conversation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/bni-assistant/internal/llm/llmtest"
	"github.com/xaenox/bni-assistant/internal/models"
	"go.uber.org/zap"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	out := map[string]Store{"memory": NewMemoryStore(3)}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		prefix := fmt.Sprintf("bni:test:%d:", time.Now().UnixNano())
		rs, err := NewRedisStore(context.Background(), addr, prefix, 3, zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() { rs.Close() })
		out["redis"] = rs
	}
	return out
}

func turn(i int) models.ConversationTurn {
	return models.ConversationTurn{
		Question: fmt.Sprintf("q%d", i),
		Answer:   fmt.Sprintf("a%d", i),
	}
}

func TestStoreKeepsLastWindowTurns(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 1; i <= 5; i++ {
				require.NoError(t, store.Append(ctx, 42, turn(i)))

				h, err := store.History(ctx, 42)
				require.NoError(t, err)
				assert.LessOrEqual(t, len(h), 3)
			}

			h, err := store.History(ctx, 42)
			require.NoError(t, err)
			assert.Equal(t, []models.ConversationTurn{turn(3), turn(4), turn(5)}, h)
		})
	}
}

func TestStoreResetEmptiesHistory(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Append(ctx, 7, turn(1)))
			require.NoError(t, store.Append(ctx, 7, turn(2)))
			require.NoError(t, store.Append(ctx, 8, turn(9)))

			require.NoError(t, store.Reset(ctx, 7))
			h, err := store.History(ctx, 7)
			require.NoError(t, err)
			assert.Empty(t, h)

			other, err := store.History(ctx, 8)
			require.NoError(t, err)
			assert.Equal(t, []models.ConversationTurn{turn(9)}, other)

			// Unknown users reset cleanly.
			require.NoError(t, store.Reset(ctx, 12345))
		})
	}
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	var wg sync.WaitGroup
	for user := int64(1); user <= 4; user++ {
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(user int64, i int) {
				defer wg.Done()
				assert.NoError(t, store.Append(ctx, user, turn(i)))
			}(user, i)
		}
	}
	wg.Wait()

	for user := int64(1); user <= 4; user++ {
		h, err := store.History(ctx, user)
		require.NoError(t, err)
		assert.Len(t, h, 3)
	}
}

func TestMemoryStoreAppendAfterResetIsKept(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, 5, turn(1)))
	before := store.get(5, false)
	require.NoError(t, store.Reset(ctx, 5))

	// Reset clears the existing buffer, so a writer that fetched it earlier
	// still writes somewhere History can see.
	assert.Same(t, before, store.get(5, false))
	require.NoError(t, store.Append(ctx, 5, turn(2)))

	h, err := store.History(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []models.ConversationTurn{turn(2)}, h)
}

func TestMemoryStoreConcurrentResets(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Append(ctx, 9, turn(i)))
		}(i)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Reset(ctx, 9))
		}()
	}
	wg.Wait()

	require.NoError(t, store.Append(ctx, 9, turn(100)))
	h, err := store.History(ctx, 9)
	require.NoError(t, err)
	require.NotEmpty(t, h)
	assert.LessOrEqual(t, len(h), 3)
	assert.Equal(t, turn(100), h[len(h)-1])
}

func TestMemoryStoreHistoryIsACopy(t *testing.T) {
	store := NewMemoryStore(3)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, 1, turn(1)))

	h, err := store.History(ctx, 1)
	require.NoError(t, err)
	h[0].Answer = "changed"

	again, err := store.History(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a1", again[0].Answer)
}

func TestChainCompleteUsesOwnHistoryOnly(t *testing.T) {
	fake := llmtest.Returning("ok")
	chain := NewChain(NewMemoryStore(3), fake, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, chain.Record(ctx, 1, "who leads referrals?", "Asha does."))
	require.NoError(t, chain.Record(ctx, 2, "secret question", "secret answer"))

	_, err := chain.Complete(ctx, 1, "Question: what next?")
	require.NoError(t, err)

	prompt := fake.Prompts()[0]
	assert.Contains(t, prompt, "Human: who leads referrals?\nAI: Asha does.")
	assert.NotContains(t, prompt, "secret")
	assert.Contains(t, prompt, "Question: what next?")

	h, err := chain.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, h, 1, "completing must not record")
}

func TestChainCompleteWithoutUser(t *testing.T) {
	fake := llmtest.Returning("ok")
	chain := NewChain(NewMemoryStore(3), fake, zap.NewNop())

	_, err := chain.Complete(context.Background(), 0, "plain prompt")
	require.NoError(t, err)
	assert.Equal(t, []string{"plain prompt"}, fake.Prompts())
}

func TestChainCompletePropagatesErrors(t *testing.T) {
	boom := errors.New("provider down")
	chain := NewChain(NewMemoryStore(3), llmtest.Failing(boom), zap.NewNop())

	_, err := chain.Complete(context.Background(), 1, "hi")
	assert.ErrorIs(t, err, boom)
}
