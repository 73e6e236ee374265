package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xaenox/bni-assistant/internal/models"
	"go.uber.org/zap"
)

//go:embed schema/*.sql
var schemas embed.FS

const (
	DialectPostgres = "PostgreSQL"
	DialectSQLite   = "SQLite"
)

// sqlStore holds the database/sql plumbing shared by the PostgreSQL and
// SQLite backends. Statements are written with '?' placeholders and
// rebound for PostgreSQL. readOnlyTx (PostgreSQL) and queryOnly (SQLite)
// select how Query keeps generated statements from writing.
type sqlStore struct {
	db         *sql.DB
	dialect    string
	schemaFile string
	readOnlyTx bool
	queryOnly  bool
	logger     *zap.Logger
}

func (s *sqlStore) Dialect() string {
	return s.dialect
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) EnsureSchema(ctx context.Context) error {
	ddl, err := schemas.ReadFile("schema/" + s.schemaFile)
	if err != nil {
		return fmt.Errorf("error reading schema file: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, string(ddl)); err != nil {
		return fmt.Errorf("error executing schema: %w", err)
	}
	return nil
}

func (s *sqlStore) Query(ctx context.Context, query string) ([]models.Row, error) {
	if s.queryOnly {
		return s.queryOnlyConn(ctx, query)
	}
	if !s.readOnlyTx {
		rows, err := s.db.QueryContext(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("error executing query: %w", err)
		}
		defer rows.Close()
		return scanRows(rows)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("error starting read-only transaction: %w", err)
	}
	// Nothing is ever committed.
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// queryOnlyConn pins one connection, switches it to query_only for the
// duration of the statement and switches it back before release. Any write,
// including one smuggled past the guard, fails inside SQLite.
func (s *sqlStore) queryOnlyConn(ctx context.Context, query string) ([]models.Row, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("error acquiring connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return nil, fmt.Errorf("error entering query-only mode: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.Background(), "PRAGMA query_only = OFF"); err != nil {
			s.logger.Error("Failed to leave query-only mode", zap.Error(err))
		}
	}()

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]models.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("error reading columns: %w", err)
	}

	result := make([]models.Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}

		row := make(models.Row, len(columns))
		for i, col := range columns {
			if _, hidden := hiddenColumns[strings.ToLower(col)]; hidden {
				continue
			}
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

func (s *sqlStore) GetMember(ctx context.Context, id int64) (*models.Member, error) {
	query := s.rebind(`
		SELECT id, member_name, classification, company_name, phone,
		       teamname, powerteam, user_type, activestatus
		FROM member_details
		WHERE id = ?`)

	var m models.Member
	var name, classification, company, phone sql.NullString
	var team, powerteam, userType, activeStatus sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID,
		&name,
		&classification,
		&company,
		&phone,
		&team,
		&powerteam,
		&userType,
		&activeStatus,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching member %d: %w", id, err)
	}

	m.Name = name.String
	m.Classification = classification.String
	m.CompanyName = company.String
	m.Phone = phone.String
	m.TeamName = team.String
	m.Powerteam = powerteam.String
	m.UserType = models.UserType(userType.String)
	m.ActiveStatus = activeStatus.String
	return &m, nil
}

func (s *sqlStore) ListMemberNames(ctx context.Context) ([]MemberName, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, member_name FROM member_details ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("error querying member names: %w", err)
	}
	defer rows.Close()

	var names []MemberName
	for rows.Next() {
		var (
			id   int64
			name sql.NullString
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("error scanning member name: %w", err)
		}
		if !name.Valid {
			continue
		}
		names = append(names, MemberName{ID: id, Name: name.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member names: %w", err)
	}
	return names, nil
}

func (s *sqlStore) UpsertMembers(ctx context.Context, members []models.Member) error {
	query := s.rebind(`
		INSERT INTO member_details
			(id, member_name, password, classification, company_name, phone,
			 teamname, powerteam, user_type, activestatus)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			member_name = excluded.member_name,
			password = excluded.password,
			classification = excluded.classification,
			company_name = excluded.company_name,
			phone = excluded.phone,
			teamname = excluded.teamname,
			powerteam = excluded.powerteam,
			user_type = excluded.user_type,
			activestatus = excluded.activestatus`)

	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("error preparing member upsert: %w", err)
		}
		defer stmt.Close()

		for _, m := range members {
			_, err := stmt.ExecContext(ctx,
				m.ID,
				m.Name,
				m.Password,
				m.Classification,
				m.CompanyName,
				m.Phone,
				m.TeamName,
				m.Powerteam,
				string(m.UserType),
				m.ActiveStatus,
			)
			if err != nil {
				return fmt.Errorf("error upserting member %d: %w", m.ID, err)
			}
		}
		return nil
	})
}

func (s *sqlStore) InsertScores(ctx context.Context, scores []models.MemberScore, replace bool) error {
	query := s.rebind(`
		INSERT INTO member_scores (
			name, powerteam, total_score,
			referral_score, referral_maintain, referral_recom,
			tyftb_score, tyftb_maintain, tyftb_recom,
			visitor_score, visitor_maintain, visitor_recom,
			testimonial_score, testimonial_maintain, testimonial_recom,
			training_score, training_maintain, training_recom,
			absent_score, absent_maintain, absent_recom,
			arrivingontime_score, arrivingontime_maintain, arrivingontime_recom
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if replace {
			if _, err := tx.ExecContext(ctx, `DELETE FROM member_scores`); err != nil {
				return fmt.Errorf("error clearing member scores: %w", err)
			}
		}

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("error preparing score insert: %w", err)
		}
		defer stmt.Close()

		for _, sc := range scores {
			args := []any{sc.Name, sc.Powerteam, sc.TotalScore}
			for _, m := range []models.Metric{
				sc.Referral, sc.TYFTB, sc.Visitor, sc.Testimonial,
				sc.Training, sc.Absent, sc.ArrivingOnTime,
			} {
				args = append(args, m.Score, m.Maintain, m.Recommend)
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("error inserting score for %q: %w", sc.Name, err)
			}
		}
		return nil
	})
}

func (s *sqlStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("Failed to roll back transaction", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}
