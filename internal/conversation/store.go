// Package conversation keeps a short rolling history of question/answer
// exchanges per user.
package conversation

import (
	"context"
	"sync"

	"github.com/xaenox/bni-assistant/internal/models"
)

// DefaultWindow is the number of exchanges kept per user.
const DefaultWindow = 3

// Store holds at most a fixed number of turns per user, evicting the oldest.
type Store interface {
	Append(ctx context.Context, userID int64, turn models.ConversationTurn) error
	History(ctx context.Context, userID int64) ([]models.ConversationTurn, error)
	// Reset removes the user's history. Unknown users are not an error.
	Reset(ctx context.Context, userID int64) error
}

// MemoryStore is a process-local Store. Each user has its own lock, so
// different users never contend and appends for one user are serialized.
type MemoryStore struct {
	window int

	mu    sync.Mutex
	users map[int64]*history
}

type history struct {
	mu    sync.Mutex
	turns []models.ConversationTurn
}

func NewMemoryStore(window int) *MemoryStore {
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemoryStore{
		window: window,
		users:  make(map[int64]*history),
	}
}

func (s *MemoryStore) get(userID int64, create bool) *history {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.users[userID]
	if !ok && create {
		h = &history{}
		s.users[userID] = h
	}
	return h
}

func (s *MemoryStore) Append(ctx context.Context, userID int64, turn models.ConversationTurn) error {
	h := s.get(userID, true)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, turn)
	if over := len(h.turns) - s.window; over > 0 {
		h.turns = append([]models.ConversationTurn(nil), h.turns[over:]...)
	}
	return nil
}

func (s *MemoryStore) History(ctx context.Context, userID int64) ([]models.ConversationTurn, error) {
	h := s.get(userID, false)
	if h == nil {
		return nil, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]models.ConversationTurn, len(h.turns))
	copy(out, h.turns)
	return out, nil
}

// Reset empties the user's buffer in place rather than dropping it, so an
// Append that already holds the buffer lands either before the reset (and
// is cleared) or after it (and is kept), never in an orphaned buffer.
func (s *MemoryStore) Reset(ctx context.Context, userID int64) error {
	h := s.get(userID, false)
	if h == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = nil
	return nil
}
