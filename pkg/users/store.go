package users

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

// Store persists user accounts. Role assignments live in the rbac store.
type Store struct {
	db      *sql.DB
	q       storage.Querier
	dialect storage.Dialect
}

// NewStore creates a user store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db, dialect: storage.DialectOf(db)}
}

// WithTx returns a store whose queries run on tx
func (s *Store) WithTx(tx *sql.Tx) *Store {
	return &Store{db: s.db, q: tx, dialect: s.dialect}
}

const selectAccount = `
	SELECT u.id, u.name, u.email, u.is_active, u.created_at, u.updated_at
	FROM users u
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var a Account
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Roles = []string{}
	return &a, nil
}

// List returns one page of accounts and the filtered total. Roles are not
// loaded.
func (s *Store) List(ctx context.Context, p ListParams) ([]*Account, int, error) {
	var (
		where = []string{"1=1"}
		args  []interface{}
	)
	if p.Search != "" {
		args = append(args, "%"+p.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(LOWER(u.name) LIKE LOWER($%d) OR LOWER(u.email) LIKE LOWER($%d))", n, n))
	}
	if p.IsActive != nil {
		args = append(args, *p.IsActive)
		where = append(where, fmt.Sprintf("u.is_active = $%d", len(args)))
	}
	if p.Role != "" {
		args = append(args, p.Role)
		where = append(where, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM user_roles ur JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id = u.id AND r.name = $%d)`, len(args)))
	}
	clause := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users u"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := selectAccount + clause
	if p.Sort.Column != "" {
		query += " ORDER BY u." + p.Sort.OrderBy() + ", u.id ASC"
	}
	if p.Page.PerPage > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", p.Page.PerPage, p.Page.Offset())
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	accounts := make([]*Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating users: %w", err)
	}
	return accounts, total, nil
}

// Get loads an account by id
func (s *Store) Get(ctx context.Context, id int64) (*Account, error) {
	a, err := scanAccount(s.q.QueryRowContext(ctx, selectAccount+" WHERE u.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("user", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return a, nil
}

// EmailTaken reports whether another account uses email, ignoring case
func (s *Store) EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE LOWER(email) = LOWER($1) AND id <> $2", email, exceptID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return n > 0, nil
}

// Insert stores a new account with a password hash
func (s *Store) Insert(ctx context.Context, a *Account, passwordHash string, now time.Time) error {
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id
	`, a.Name, a.Email, passwordHash, a.IsActive, now).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	a.CreatedAt, a.UpdatedAt = now, now
	return nil
}

// Update writes name, email and status, and the password hash when non-empty
func (s *Store) Update(ctx context.Context, a *Account, passwordHash string, now time.Time) error {
	var (
		res sql.Result
		err error
	)
	if passwordHash == "" {
		res, err = s.q.ExecContext(ctx,
			"UPDATE users SET name = $1, email = $2, is_active = $3, updated_at = $4 WHERE id = $5",
			a.Name, a.Email, a.IsActive, now, a.ID)
	} else {
		res, err = s.q.ExecContext(ctx,
			"UPDATE users SET name = $1, email = $2, is_active = $3, password_hash = $4, updated_at = $5 WHERE id = $6",
			a.Name, a.Email, a.IsActive, passwordHash, now, a.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	} else if n == 0 {
		return apperrors.NotFound("user", a.ID)
	}
	a.UpdatedAt = now
	return nil
}

// Delete removes an account. Sessions and role assignments cascade.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	} else if n == 0 {
		return apperrors.NotFound("user", id)
	}
	return nil
}

// CountBypassUsers counts active accounts holding a bypass role, leaving out
// exceptID
func (s *Store) CountBypassUsers(ctx context.Context, exceptID int64) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT u.id)
		FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		JOIN roles r ON r.id = ur.role_id
		WHERE r.is_bypass = $1 AND u.is_active = $1 AND u.id <> $2
	`, true, exceptID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count bypass users: %w", err)
	}
	return n, nil
}

// IsBypassUser reports whether id is an active account with a bypass role
func (s *Store) IsBypassUser(ctx context.Context, id int64) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		JOIN roles r ON r.id = ur.role_id
		WHERE u.id = $1 AND u.is_active = $2 AND r.is_bypass = $2
	`, id, true).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check bypass role: %w", err)
	}
	return n > 0, nil
}
