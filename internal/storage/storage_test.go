package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/bni-assistant/internal/models"
	"go.uber.org/zap"
)

func newSeededStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	ctx := context.Background()

	store, err := NewMemoryStorage(ctx, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.UpsertMembers(ctx, []models.Member{
		{ID: 1, Name: "Asha", Password: "hunter2", Classification: "Architect", CompanyName: "Asha Designs", Powerteam: "CIVIL", UserType: models.UserTypeMember, ActiveStatus: "Active"},
		{ID: 2, Name: "Irene", Password: "x", Classification: "Accountant", CompanyName: "Irene & Co", Powerteam: "BUSINESS SERVICE", UserType: models.UserTypeAdmin, ActiveStatus: "Active"},
	}))
	require.NoError(t, store.InsertScores(ctx, []models.MemberScore{
		{Name: "Asha", Powerteam: "CIVIL", TotalScore: 70, Referral: models.Metric{Score: 20, Maintain: 1, Recommend: 2}},
		{Name: "Irene", Powerteam: "BUSINESS SERVICE", TotalScore: 55},
	}, false))
	return store
}

func TestQueryReturnsRowsKeyedByColumn(t *testing.T) {
	store := newSeededStore(t)

	rows, err := store.Query(context.Background(), `
		SELECT d.member_name, d.password, s.total_score, s.referral_score
		FROM member_details d
		JOIN member_scores s ON d.member_name = s.name
		ORDER BY s.total_score DESC`)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Asha", rows[0]["member_name"])
	assert.EqualValues(t, 70, rows[0]["total_score"])
	assert.EqualValues(t, 20, rows[0]["referral_score"])
	assert.NotContains(t, rows[0], "password")
}

func TestQueryEmptyResultIsEmptySlice(t *testing.T) {
	store := newSeededStore(t)

	rows, err := store.Query(context.Background(), `SELECT * FROM member_details WHERE member_name = 'Nobody'`)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestQuerySurfacesExecutionErrors(t *testing.T) {
	store := newSeededStore(t)

	_, err := store.Query(context.Background(), `SELECT nope FROM missing_table`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error executing query")
}

func TestNameJoinIsCaseSensitive(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()
	require.NoError(t, store.InsertScores(ctx, []models.MemberScore{{Name: "asha", TotalScore: 1}}, false))

	rows, err := store.Query(ctx, `
		SELECT s.total_score FROM member_details d
		JOIN member_scores s ON d.member_name = s.name
		WHERE d.id = 1`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 70, rows[0]["total_score"])
}

func TestGetMember(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	m, err := store.GetMember(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Irene", m.Name)
	assert.Equal(t, "Irene & Co", m.CompanyName)
	assert.Equal(t, models.UserTypeAdmin, m.UserType)
	assert.Empty(t, m.Password)

	_, err = store.GetMember(ctx, 99)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUpsertMembersReplacesExistingRows(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertMembers(ctx, []models.Member{{ID: 1, Name: "Asha K", CompanyName: "New Co"}}))

	m, err := store.GetMember(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Asha K", m.Name)
	assert.Equal(t, "New Co", m.CompanyName)
}

func TestInsertScoresReplace(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertScores(ctx, []models.MemberScore{{Name: "Asha", TotalScore: 90}}, true))

	rows, err := store.Query(ctx, `SELECT name, total_score FROM member_scores`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 90, rows[0]["total_score"])
}

func TestListMemberNamesOrderedByID(t *testing.T) {
	store := newSeededStore(t)

	names, err := store.ListMemberNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []MemberName{{ID: 1, Name: "Asha"}, {ID: 2, Name: "Irene"}}, names)
}

func TestRebindPostgres(t *testing.T) {
	pg := &sqlStore{dialect: DialectPostgres}
	lite := &sqlStore{dialect: DialectSQLite}

	q := `SELECT * FROM member_details WHERE id = ? AND member_name = ?`
	assert.Equal(t, `SELECT * FROM member_details WHERE id = $1 AND member_name = $2`, pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
}

func TestQueryCannotWriteOnSQLite(t *testing.T) {
	store := newSeededStore(t)
	ctx := context.Background()

	for _, q := range []string{
		`DELETE FROM member_details`,
		`SELECT total_score FROM member_scores /* /* */ ; DELETE FROM member_details; -- */`,
		`UPDATE member_scores SET total_score = 0`,
	} {
		_, _ = store.Query(ctx, q)
	}

	names, err := store.ListMemberNames(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 2)

	rows, err := store.Query(ctx, `SELECT total_score FROM member_scores WHERE name = 'Asha'`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 70, rows[0]["total_score"])

	// The connection is writable again for the ingestion path.
	require.NoError(t, store.UpsertMembers(ctx, []models.Member{{ID: 3, Name: "Ravi"}}))
	names, err = store.ListMemberNames(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 3)
}

func TestQueryDropsHiddenColumnFromStar(t *testing.T) {
	store := newSeededStore(t)

	rows, err := store.Query(context.Background(), `SELECT * FROM member_details WHERE id = 1`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Asha", rows[0]["member_name"])
	assert.NotContains(t, rows[0], "password")
}
