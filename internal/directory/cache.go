// Package directory keeps the in-memory member name index used to spot
// member names inside free-text questions.
package directory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/xaenox/bni-assistant/internal/storage"
	"go.uber.org/zap"
)

// Source provides the member names the cache is built from.
type Source interface {
	ListMemberNames(ctx context.Context) ([]storage.MemberName, error)
}

// Cache maps normalized member names to member ids. It is rebuilt wholesale
// by Load and is safe for concurrent use.
type Cache struct {
	source Source
	cutoff float64
	policy Policy
	logger *zap.Logger

	mu    sync.RWMutex
	ids   map[string]int64
	names []string
}

type Option func(*Cache)

// WithCutoff sets the minimum similarity ratio for a fuzzy match.
func WithCutoff(cutoff float64) Option {
	return func(c *Cache) { c.cutoff = cutoff }
}

// WithPolicy selects how tokens of a question are scanned.
func WithPolicy(p Policy) Option {
	return func(c *Cache) { c.policy = p }
}

func New(source Source, logger *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		source: source,
		cutoff: DefaultCutoff,
		policy: PolicyFirstToken,
		logger: logger,
		ids:    make(map[string]int64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Normalize is the key form used by the cache.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Load replaces the cache contents with the current member list. On error
// the previous contents are kept. When two members share a normalized name
// the one listed last wins.
func (c *Cache) Load(ctx context.Context) (int, error) {
	members, err := c.source.ListMemberNames(ctx)
	if err != nil {
		return 0, fmt.Errorf("load member directory: %w", err)
	}

	ids := make(map[string]int64, len(members))
	names := make([]string, 0, len(members))
	for _, m := range members {
		key := Normalize(m.Name)
		if key == "" {
			continue
		}
		if prev, exists := ids[key]; exists && prev != m.ID {
			c.logger.Warn("Duplicate member name in directory",
				zap.String("name", key),
				zap.Int64("previous_id", prev),
				zap.Int64("id", m.ID))
		} else if !exists {
			names = append(names, key)
		}
		ids[key] = m.ID
	}

	c.mu.Lock()
	c.ids = ids
	c.names = names
	c.mu.Unlock()

	c.logger.Info("Member directory loaded", zap.Int("members", len(names)))
	return len(names), nil
}

// Len returns the number of distinct normalized names.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}

// Lookup returns the id for an exact (normalized) name.
func (c *Cache) Lookup(name string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.ids[Normalize(name)]
	return id, ok
}

func (c *Cache) snapshot() ([]string, map[string]int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.names, c.ids
}
