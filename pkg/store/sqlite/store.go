// Package sqlite provides a SQLite-backed goal graph store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/stefanpenner/goalgraph/pkg/graph"
	"github.com/stefanpenner/goalgraph/pkg/store/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists goals and edges in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ graph.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite goal store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return graph.ErrStoreNotAvailable
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

const goalColumns = `g.id, g.description, g.deadline, g.achieved, g.color, g.created_at, g.updated_at`

func scanGoal(row rowScanner) (*graph.Goal, error) {
	var (
		g        graph.Goal
		id       int64
		deadline sql.NullInt64
		created  int64
		updated  int64
	)
	if err := row.Scan(&id, &g.Description, &deadline, &g.Achieved, &g.Color, &created, &updated); err != nil {
		return nil, err
	}
	g.ID = graph.GoalID(id)
	if deadline.Valid {
		d := time.Unix(0, deadline.Int64).UTC()
		g.Deadline = &d
	}
	g.Created = fromMillis(created)
	g.Updated = fromMillis(updated)
	return &g, nil
}

// nullDeadline stores deadlines at full precision so the value read back is
// the one the invariants were checked against.
func nullDeadline(d *time.Time) sql.NullInt64 {
	if d == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: d.UnixNano(), Valid: true}
}

// Goal returns one goal by ID.
func (s *Store) Goal(ctx context.Context, id graph.GoalID) (*graph.Goal, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	g, err := scanGoal(s.sqlDB.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals g WHERE g.id = ?`, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("goal %d: %w", id, graph.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get goal %d: %w", id, err)
	}
	return g, nil
}

func (s *Store) Parents(ctx context.Context, id graph.GoalID) ([]*graph.Goal, error) {
	return s.neighbours(ctx, id,
		`SELECT `+goalColumns+` FROM edges e JOIN goals g ON g.id = e.parent_id
		 WHERE e.child_id = ? ORDER BY e.rowid`)
}

func (s *Store) Children(ctx context.Context, id graph.GoalID) ([]*graph.Goal, error) {
	return s.neighbours(ctx, id,
		`SELECT `+goalColumns+` FROM edges e JOIN goals g ON g.id = e.child_id
		 WHERE e.parent_id = ? ORDER BY e.rowid`)
}

func (s *Store) neighbours(ctx context.Context, id graph.GoalID, query string) ([]*graph.Goal, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if err := s.exists(ctx, s.sqlDB, id); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, query, int64(id))
	if err != nil {
		return nil, fmt.Errorf("list neighbours of %d: %w", id, err)
	}
	defer rows.Close()

	var out []*graph.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate neighbours of %d: %w", id, err)
	}
	return out, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) exists(ctx context.Context, q querier, id graph.GoalID) error {
	var found int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM goals WHERE id = ?`, int64(id)).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("goal %d: %w", id, graph.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check goal %d: %w", id, err)
	}
	return nil
}

// InsertEdge records parent→child. Existing edges are left alone.
func (s *Store) InsertEdge(ctx context.Context, parent, child graph.GoalID) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	for _, id := range []graph.GoalID{parent, child} {
		if err := s.exists(ctx, s.sqlDB, id); err != nil {
			return err
		}
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT OR IGNORE INTO edges (parent_id, child_id) VALUES (?, ?)`,
		int64(parent), int64(child))
	if isForeignKeyViolation(err) {
		return fmt.Errorf("edge %d→%d: %w", parent, child, graph.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("insert edge %d→%d: %w", parent, child, err)
	}
	return nil
}

// RemoveEdge deletes parent→child. Missing edges are a no-op.
func (s *Store) RemoveEdge(ctx context.Context, parent, child graph.GoalID) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM edges WHERE parent_id = ? AND child_id = ?`,
		int64(parent), int64(child)); err != nil {
		return fmt.Errorf("remove edge %d→%d: %w", parent, child, err)
	}
	return nil
}

func (s *Store) GetField(ctx context.Context, id graph.GoalID, field graph.Field) (any, error) {
	g, err := s.Goal(ctx, id)
	if err != nil {
		return nil, err
	}
	return g.Get(field)
}

// SetField type-checks value against the goal model and rewrites the row.
func (s *Store) SetField(ctx context.Context, id graph.GoalID, field graph.Field, value any) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set field: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	g, err := scanGoal(tx.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals g WHERE g.id = ?`, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("goal %d: %w", id, graph.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("get goal %d: %w", id, err)
	}
	if err := g.Set(field, value); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE goals SET description = ?, deadline = ?, achieved = ?, color = ?, updated_at = ?
		 WHERE id = ?`,
		g.Description, nullDeadline(g.Deadline), g.Achieved, g.Color, toMillis(s.now()), int64(id),
	); err != nil {
		return fmt.Errorf("update goal %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set field: %w", err)
	}
	return nil
}

// Insert stores a new goal; SQLite assigns its identity.
func (s *Store) Insert(ctx context.Context, g *graph.Goal) (graph.GoalID, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	if g.IsCommitted() {
		return 0, fmt.Errorf("goal %d: %w", g.ID, graph.ErrAlreadyCommitted)
	}
	now := s.now()
	created := g.Created
	if created.IsZero() {
		created = now
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO goals (description, deadline, achieved, color, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		g.Description, nullDeadline(g.Deadline), g.Achieved, g.Color, toMillis(created), toMillis(now),
	)
	if err != nil {
		return 0, fmt.Errorf("insert goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert goal: %w", err)
	}
	return graph.GoalID(id), nil
}

// Delete removes a goal and every edge touching it.
func (s *Store) Delete(ctx context.Context, id graph.GoalID) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.exists(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM edges WHERE parent_id = ? OR child_id = ?`, int64(id), int64(id)); err != nil {
		return fmt.Errorf("delete edges of %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, int64(id)); err != nil {
		return fmt.Errorf("delete goal %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// IDs returns every goal identity in ascending order.
func (s *Store) IDs(ctx context.Context) ([]graph.GoalID, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id FROM goals ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var ids []graph.GoalID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan goal id: %w", err)
		}
		ids = append(ids, graph.GoalID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate goals: %w", err)
	}
	return ids, nil
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}
