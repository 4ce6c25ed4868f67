package menu

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage"
)

// Store persists menus
type Store struct {
	db      *sql.DB
	q       storage.Querier
	dialect storage.Dialect
}

// NewStore creates a menu store
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

const selectMenu = `
	SELECT id, name, route_name, url, icon, parent_id, sort_order, permission_name, is_active, created_at, updated_at
	FROM menus
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMenu(row rowScanner) (*Menu, error) {
	var (
		m                                   Menu
		routeName, url, icon, permissionName sql.NullString
		parentID                            sql.NullInt64
	)
	err := row.Scan(&m.ID, &m.Name, &routeName, &url, &icon, &parentID, &m.Order,
		&permissionName, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.RouteName, m.URL, m.Icon = routeName.String, url.String, icon.String
	m.PermissionName = permissionName.String
	if parentID.Valid {
		id := parentID.Int64
		m.ParentID = &id
	}
	return &m, nil
}

// All returns every menu ordered by sort order
func (s *Store) All(ctx context.Context) ([]*Menu, error) {
	rows, err := s.q.QueryContext(ctx, selectMenu+" ORDER BY sort_order ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query menus: %w", err)
	}
	defer rows.Close()

	menus := make([]*Menu, 0)
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan menu: %w", err)
		}
		menus = append(menus, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating menus: %w", err)
	}
	return menus, nil
}

// Tree loads every menu into a Tree
func (s *Store) Tree(ctx context.Context) (*Tree, error) {
	menus, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	return NewTree(menus), nil
}

// Get loads a menu by id
func (s *Store) Get(ctx context.Context, id int64) (*Menu, error) {
	m, err := scanMenu(s.q.QueryRowContext(ctx, selectMenu+" WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("menu", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get menu: %w", err)
	}
	return m, nil
}

// FindByName returns the menu with the given name and route name, or nil
// when none exists. An empty routeName matches menus without a route.
func (s *Store) FindByName(ctx context.Context, name, routeName string) (*Menu, error) {
	m, err := scanMenu(s.q.QueryRowContext(ctx,
		selectMenu+" WHERE name = $1 AND COALESCE(route_name, '') = $2 ORDER BY id ASC LIMIT 1",
		name, routeName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find menu: %w", err)
	}
	return m, nil
}

// Insert stores a new menu, setting its id and timestamps
func (s *Store) Insert(ctx context.Context, m *Menu, now time.Time) error {
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO menus (name, route_name, url, icon, parent_id, sort_order, permission_name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id
	`, m.Name, nullString(m.RouteName), nullString(m.URL), nullString(m.Icon), m.ParentID, m.Order,
		nullString(m.PermissionName), m.IsActive, now,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to create menu: %w", err)
	}
	m.CreatedAt, m.UpdatedAt = now, now
	return nil
}

// Update writes every column of m
func (s *Store) Update(ctx context.Context, m *Menu, now time.Time) error {
	_, err := s.q.ExecContext(ctx, `
		UPDATE menus
		SET name = $1, route_name = $2, url = $3, icon = $4, parent_id = $5, sort_order = $6,
			permission_name = $7, is_active = $8, updated_at = $9
		WHERE id = $10
	`, m.Name, nullString(m.RouteName), nullString(m.URL), nullString(m.Icon), m.ParentID, m.Order,
		nullString(m.PermissionName), m.IsActive, now, m.ID)
	if err != nil {
		return fmt.Errorf("failed to update menu: %w", err)
	}
	m.UpdatedAt = now
	return nil
}

// SetPosition moves a menu under parentID at order
func (s *Store) SetPosition(ctx context.Context, id int64, parentID *int64, order int, now time.Time) error {
	_, err := s.q.ExecContext(ctx,
		"UPDATE menus SET parent_id = $1, sort_order = $2, updated_at = $3 WHERE id = $4",
		parentID, order, now, id)
	if err != nil {
		return fmt.Errorf("failed to move menu %d: %w", id, err)
	}
	return nil
}

// DeleteIDs removes the menus in ids
func (s *Store) DeleteIDs(ctx context.Context, ids []int64) (int64, error) {
	clause, args, _ := s.dialect.InInt64("id", 1, ids)
	res, err := s.q.ExecContext(ctx, "DELETE FROM menus WHERE "+clause, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete menus: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// PermissionExists reports whether a web guard permission is named name
func (s *Store) PermissionExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM permissions WHERE name = $1 AND guard_name = $2", name, "web",
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return n > 0, nil
}

// Permissions lists permissions ordered by name
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
