package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage"
)

// Store persists access entries
type Store struct {
	db      *sql.DB
	q       storage.Querier
	dialect storage.Dialect
}

// NewStore creates an entry store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db, dialect: storage.DialectOf(db)}
}

// WithTx returns a store whose queries run on tx
func (s *Store) WithTx(tx *sql.Tx) *Store {
	return &Store{db: s.db, q: tx, dialect: s.dialect}
}

// Transaction runs fn with a store bound to a new transaction
func (s *Store) Transaction(ctx context.Context, fn func(*Store) error) error {
	return storage.InTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(s.WithTx(tx))
	})
}

const selectEntry = `
	SELECT id, route_name, route_uri, route_method, permission_name, permission_id,
		is_active, is_public, description, created_at, updated_at
	FROM access_entries
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		e                                         Entry
		uri, method, permissionName, description sql.NullString
		permissionID                              sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.RouteName, &uri, &method, &permissionName, &permissionID,
		&e.IsActive, &e.IsPublic, &description, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.RouteURI = uri.String
	e.RouteMethod = method.String
	e.PermissionName = permissionName.String
	e.Description = description.String
	if permissionID.Valid {
		id := permissionID.Int64
		e.PermissionID = &id
	}
	return &e, nil
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...interface{}) ([]*Entry, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query access entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan access entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating access entries: %w", err)
	}
	return entries, nil
}

// Snapshot loads the policy of every entry in one query
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT route_name, permission_name, is_active, is_public FROM access_entries")
	if err != nil {
		return nil, fmt.Errorf("failed to load route policies: %w", err)
	}
	defer rows.Close()

	snap := make(Snapshot)
	for rows.Next() {
		var (
			name       string
			permission sql.NullString
			p          Policy
		)
		if err := rows.Scan(&name, &permission, &p.IsActive, &p.IsPublic); err != nil {
			return nil, fmt.Errorf("failed to scan route policy: %w", err)
		}
		p.PermissionName = permission.String
		snap[name] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating route policies: %w", err)
	}
	return snap, nil
}

// All returns every entry ordered by route name
func (s *Store) All(ctx context.Context) ([]*Entry, error) {
	return s.queryEntries(ctx, selectEntry+" ORDER BY route_name ASC")
}

func (p ListParams) where() (string, []interface{}) {
	clauses := []string{"1=1"}
	args := []interface{}{}

	if p.Search != "" {
		args = append(args, "%"+p.Search+"%")
		n := len(args)
		parts := make([]string, 0, 4)
		for _, c := range []string{"route_name", "route_uri", "permission_name", "description"} {
			parts = append(parts, fmt.Sprintf("LOWER(%s) LIKE LOWER($%d)", c, n))
		}
		clauses = append(clauses, "("+strings.Join(parts, " OR ")+")")
	}
	if p.IsActive != nil {
		args = append(args, *p.IsActive)
		clauses = append(clauses, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if p.IsPublic != nil {
		args = append(args, *p.IsPublic)
		clauses = append(clauses, fmt.Sprintf("is_public = $%d", len(args)))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns one page of entries and the total number of matches
func (s *Store) List(ctx context.Context, p ListParams) ([]*Entry, int, error) {
	where, args := p.where()

	var total int
	if err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM access_entries"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count access entries: %w", err)
	}

	sort := p.Sort
	if sort.Column == "" {
		sort.Column, sort.Direction = "route_name", "asc"
	}
	query := selectEntry + where + " ORDER BY " + sort.OrderBy() + ", id ASC"
	if p.Page.PerPage > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", p.Page.PerPage, p.Page.Offset())
	}

	entries, err := s.queryEntries(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Get loads an entry by id
func (s *Store) Get(ctx context.Context, id int64) (*Entry, error) {
	e, err := scanEntry(s.q.QueryRowContext(ctx, selectEntry+" WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("route access", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get access entry: %w", err)
	}
	return e, nil
}

// RouteNames returns the set of route names present in the table
func (s *Store) RouteNames(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT route_name FROM access_entries")
	if err != nil {
		return nil, fmt.Errorf("failed to query route names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan route name: %w", err)
		}
		names[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating route names: %w", err)
	}
	return names, nil
}

// NameTaken reports whether another entry uses routeName
func (s *Store) NameTaken(ctx context.Context, routeName string, exceptID int64) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM access_entries WHERE route_name = $1 AND id <> $2", routeName, exceptID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check route name: %w", err)
	}
	return n > 0, nil
}

// Insert stores a new entry, setting its id and timestamps
func (s *Store) Insert(ctx context.Context, e *Entry, now time.Time) error {
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO access_entries (route_name, route_uri, route_method, permission_name, permission_id,
			is_active, is_public, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id
	`, e.RouteName, nullString(e.RouteURI), nullString(e.RouteMethod), nullString(e.PermissionName),
		e.PermissionID, e.IsActive, e.IsPublic, nullString(e.Description), now,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to create access entry: %w", err)
	}
	e.CreatedAt, e.UpdatedAt = now, now
	return nil
}

// Update writes every column of e
func (s *Store) Update(ctx context.Context, e *Entry, now time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE access_entries
		SET route_name = $1, route_uri = $2, route_method = $3, permission_name = $4, permission_id = $5,
			is_active = $6, is_public = $7, description = $8, updated_at = $9
		WHERE id = $10
	`, e.RouteName, nullString(e.RouteURI), nullString(e.RouteMethod), nullString(e.PermissionName),
		e.PermissionID, e.IsActive, e.IsPublic, nullString(e.Description), now, e.ID)
	if err != nil {
		return fmt.Errorf("failed to update access entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("route access", e.ID)
	}
	e.UpdatedAt = now
	return nil
}

// SetLink updates only the permission link of an entry
func (s *Store) SetLink(ctx context.Context, id int64, permissionName string, permissionID *int64, now time.Time) error {
	_, err := s.q.ExecContext(ctx,
		"UPDATE access_entries SET permission_name = $1, permission_id = $2, updated_at = $3 WHERE id = $4",
		nullString(permissionName), permissionID, now, id)
	if err != nil {
		return fmt.Errorf("failed to link access entry %d: %w", id, err)
	}
	return nil
}

// Delete removes an entry
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM access_entries WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete access entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("route access", id)
	}
	return nil
}

// DeleteIDs removes the entries in ids and returns how many were deleted
func (s *Store) DeleteIDs(ctx context.Context, ids []int64) (int64, error) {
	clause, args, _ := s.dialect.InInt64("id", 1, ids)
	res, err := s.q.ExecContext(ctx, "DELETE FROM access_entries WHERE "+clause, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete access entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// CountIDs counts how many of ids exist
func (s *Store) CountIDs(ctx context.Context, ids []int64) (int, error) {
	clause, args, _ := s.dialect.InInt64("id", 1, ids)
	var n int
	if err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM access_entries WHERE "+clause, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count access entries: %w", err)
	}
	return n, nil
}

// SetFlag sets flag to value on every entry in ids
func (s *Store) SetFlag(ctx context.Context, ids []int64, flag Flag, value bool, now time.Time) (int64, error) {
	if flag != FlagActive && flag != FlagPublic {
		return 0, fmt.Errorf("unknown flag %q", flag)
	}
	clause, args, _ := s.dialect.InInt64("id", 3, ids)
	res, err := s.q.ExecContext(ctx,
		fmt.Sprintf("UPDATE access_entries SET %s = $1, updated_at = $2 WHERE %s", flag, clause),
		append([]interface{}{value, now}, args...)...)
	if err != nil {
		return 0, fmt.Errorf("failed to update access entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// PermissionIDs maps the name of every web guard permission to its id
func (s *Store) PermissionIDs(ctx context.Context) (map[string]int64, error) {
	options, err := s.Permissions(ctx)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]int64, len(options))
	for _, o := range options {
		ids[o.Name] = o.ID
	}
	return ids, nil
}

// Permissions lists web guard permissions ordered by name
func (s *Store) Permissions(ctx context.Context) ([]PermissionOption, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT id, name FROM permissions WHERE guard_name = $1 ORDER BY name ASC", "web")
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	options := make([]PermissionOption, 0)
	for rows.Next() {
		var o PermissionOption
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		options = append(options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating permissions: %w", err)
	}
	return options, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
