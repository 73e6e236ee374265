package storage

import (
	"context"
	"errors"

	"github.com/xaenox/bni-assistant/internal/models"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// Storage is the member roster store. Query executes model-generated SQL and
// is the only path that accepts free-form statements.
type Storage interface {
	// Query runs a single statement and returns every row keyed by column
	// name. Hidden columns are dropped.
	Query(ctx context.Context, query string) ([]models.Row, error)
	GetMember(ctx context.Context, id int64) (*models.Member, error)
	ListMemberNames(ctx context.Context) ([]MemberName, error)
	Dialect() string
	Close() error

	// Embed Writer interface
	Writer
}

// Writer is used by the ingestion job only.
type Writer interface {
	EnsureSchema(ctx context.Context) error
	UpsertMembers(ctx context.Context, members []models.Member) error
	InsertScores(ctx context.Context, scores []models.MemberScore, replace bool) error
}

// MemberName is the slice of member_details the directory cache needs.
type MemberName struct {
	ID   int64
	Name string
}

// hiddenColumns never leave the store through Query.
var hiddenColumns = map[string]struct{}{
	"password": {},
}
