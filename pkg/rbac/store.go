package rbac

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/httputil"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage"
)

// Store handles permission, group, role and assignment persistence
type Store struct {
	db      *sql.DB
	q       storage.Querier
	dialect storage.Dialect
}

// NewStore creates a new RBAC store
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// listQuery renders one page of a list: the WHERE clause is shared by the
// count and the select.
type listQuery struct {
	count string
	sel   string
	where []string
	args  []interface{}
	alias string
	sort  httputil.SortParams
	page  httputil.PageParams
}

func newListQuery(table, alias, sel string, p ListParams) *listQuery {
	return &listQuery{
		count: fmt.Sprintf("SELECT COUNT(*) FROM %s %s", table, alias),
		sel:   sel,
		where: []string{"1=1"},
		alias: alias,
		sort:  sortColumn(p.Sort),
		page:  p.Page,
	}
}

func (l *listQuery) filter(clause string, arg interface{}) {
	l.args = append(l.args, arg)
	l.where = append(l.where, strings.ReplaceAll(clause, "$?", fmt.Sprintf("$%d", len(l.args))))
}

func (l *listQuery) searchIn(term string, columns ...string) {
	if term == "" {
		return
	}
	l.args = append(l.args, "%"+term+"%")
	n := len(l.args)
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = fmt.Sprintf("LOWER(%s) LIKE LOWER($%d)", c, n)
	}
	l.where = append(l.where, "("+strings.Join(parts, " OR ")+")")
}

func (l *listQuery) run(ctx context.Context, q storage.Querier, scan func(rowScanner) error) (int, error) {
	where := " WHERE " + strings.Join(l.where, " AND ")

	var total int
	if err := q.QueryRowContext(ctx, l.count+where, l.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}

	query := l.sel + where
	if l.sort.Column != "" {
		query += " ORDER BY " + l.alias + "." + l.sort.OrderBy() + ", " + l.alias + ".id ASC"
	}
	if l.page.PerPage > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", l.page.PerPage, l.page.Offset())
	}

	rows, err := q.QueryContext(ctx, query, l.args...)
	if err != nil {
		return 0, fmt.Errorf("failed to list rows: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return 0, err
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating rows: %w", err)
	}
	return total, nil
}

// Permissions

const selectPermission = `
	SELECT p.id, p.name, p.guard_name, p.description, p.group_id, g.name, p.created_at, p.updated_at
	FROM permissions p
	LEFT JOIN permission_groups g ON g.id = p.group_id
`

func scanPermission(row rowScanner) (*Permission, error) {
	var (
		p           Permission
		description sql.NullString
		groupID     sql.NullInt64
		groupName   sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.GuardName, &description, &groupID, &groupName, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Description = description.String
	p.GroupName = groupName.String
	if groupID.Valid {
		id := groupID.Int64
		p.GroupID = &id
	}
	return &p, nil
}

func (s *Store) queryPermissions(ctx context.Context, query string, args ...interface{}) ([]*Permission, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	perms := make([]*Permission, 0)
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating permissions: %w", err)
	}
	return perms, nil
}

// ListPermissions returns one page of permissions and the total match count
func (s *Store) ListPermissions(ctx context.Context, p ListParams) ([]*Permission, int, error) {
	l := newListQuery("permissions", "p", selectPermission, p)
	l.searchIn(p.Search, "p.name")
	if p.GroupID != nil {
		l.filter("p.group_id = $?", *p.GroupID)
	}

	perms := make([]*Permission, 0)
	total, err := l.run(ctx, s.q, func(row rowScanner) error {
		perm, err := scanPermission(row)
		if err != nil {
			return fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, perm)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return perms, total, nil
}

// AllPermissions returns every permission ordered by name
func (s *Store) AllPermissions(ctx context.Context) ([]*Permission, error) {
	return s.queryPermissions(ctx, selectPermission+" ORDER BY p.name ASC")
}

// GetPermission loads a permission by id
func (s *Store) GetPermission(ctx context.Context, id int64) (*Permission, error) {
	p, err := scanPermission(s.q.QueryRowContext(ctx, selectPermission+" WHERE p.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("permission", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return p, nil
}

// PermissionByName loads a permission of the web guard by name
func (s *Store) PermissionByName(ctx context.Context, name string) (*Permission, error) {
	p, err := scanPermission(s.q.QueryRowContext(ctx,
		selectPermission+" WHERE p.name = $1 AND p.guard_name = $2", name, GuardWeb))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("permission", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return p, nil
}

// PermissionNameTaken reports whether another permission uses name
func (s *Store) PermissionNameTaken(ctx context.Context, name string, exceptID int64) (bool, error) {
	return s.exists(ctx,
		"SELECT COUNT(*) FROM permissions WHERE name = $1 AND guard_name = $2 AND id <> $3",
		name, GuardWeb, exceptID)
}

// CreatePermission inserts p, setting its id and timestamps
func (s *Store) CreatePermission(ctx context.Context, p *Permission, now time.Time) error {
	if p.GuardName == "" {
		p.GuardName = GuardWeb
	}
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO permissions (name, guard_name, description, group_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id
	`, p.Name, p.GuardName, nullString(p.Description), p.GroupID, now).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create permission: %w", err)
	}
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

// UpdatePermission writes name, description and group of p
func (s *Store) UpdatePermission(ctx context.Context, p *Permission, now time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE permissions SET name = $1, description = $2, group_id = $3, updated_at = $4
		WHERE id = $5
	`, p.Name, nullString(p.Description), p.GroupID, now, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update permission: %w", err)
	}
	if err := expectRow(res, "permission", p.ID); err != nil {
		return err
	}
	p.UpdatedAt = now
	return nil
}

// DeletePermission removes a permission; role grants cascade
func (s *Store) DeletePermission(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM permissions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}
	return expectRow(res, "permission", id)
}

// CountPermissions counts how many of ids exist
func (s *Store) CountPermissions(ctx context.Context, ids []int64) (int, error) {
	clause, args, _ := s.dialect.InInt64("id", 1, ids)
	var n int
	if err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM permissions WHERE "+clause, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count permissions: %w", err)
	}
	return n, nil
}

// Permission groups

const selectGroup = `
	SELECT g.id, g.name, g.description, g.sort_order,
		(SELECT COUNT(*) FROM permissions p WHERE p.group_id = g.id),
		g.created_at, g.updated_at
	FROM permission_groups g
`

func scanGroup(row rowScanner) (*PermissionGroup, error) {
	var (
		g           PermissionGroup
		description sql.NullString
	)
	if err := row.Scan(&g.ID, &g.Name, &description, &g.Order, &g.PermissionsCount, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.Description = description.String
	return &g, nil
}

// ListGroups returns one page of groups with their permission counts
func (s *Store) ListGroups(ctx context.Context, p ListParams) ([]*PermissionGroup, int, error) {
	l := newListQuery("permission_groups", "g", selectGroup, p)
	l.searchIn(p.Search, "g.name")

	groups := make([]*PermissionGroup, 0)
	total, err := l.run(ctx, s.q, func(row rowScanner) error {
		g, err := scanGroup(row)
		if err != nil {
			return fmt.Errorf("failed to scan permission group: %w", err)
		}
		groups = append(groups, g)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return groups, total, nil
}

// AllGroups returns every group in display order. With permissions set, each
// group carries its permissions sorted by name.
func (s *Store) AllGroups(ctx context.Context, withPermissions bool) ([]*PermissionGroup, error) {
	rows, err := s.q.QueryContext(ctx, selectGroup+" ORDER BY g.sort_order ASC, g.name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query permission groups: %w", err)
	}
	groups := make([]*PermissionGroup, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan permission group: %w", err)
		}
		groups = append(groups, g)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("error iterating permission groups: %w", err)
	}

	if !withPermissions || len(groups) == 0 {
		return groups, nil
	}

	perms, err := s.AllPermissions(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*PermissionGroup, len(groups))
	for _, g := range groups {
		g.Permissions = make([]*Permission, 0)
		byID[g.ID] = g
	}
	for _, p := range perms {
		if p.GroupID == nil {
			continue
		}
		if g, ok := byID[*p.GroupID]; ok {
			g.Permissions = append(g.Permissions, p)
		}
	}
	return groups, nil
}

// GetGroup loads a group and its permissions
func (s *Store) GetGroup(ctx context.Context, id int64) (*PermissionGroup, error) {
	g, err := scanGroup(s.q.QueryRowContext(ctx, selectGroup+" WHERE g.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("permission group", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission group: %w", err)
	}

	g.Permissions, err = s.queryPermissions(ctx, selectPermission+" WHERE p.group_id = $1 ORDER BY p.name ASC", id)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// GroupByName loads a group by its unique name
func (s *Store) GroupByName(ctx context.Context, name string) (*PermissionGroup, error) {
	g, err := scanGroup(s.q.QueryRowContext(ctx, selectGroup+" WHERE g.name = $1", name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("permission group", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission group: %w", err)
	}
	return g, nil
}

// GroupExists reports whether a group with id exists
func (s *Store) GroupExists(ctx context.Context, id int64) (bool, error) {
	return s.exists(ctx, "SELECT COUNT(*) FROM permission_groups WHERE id = $1", id)
}

// GroupNameTaken reports whether another group uses name
func (s *Store) GroupNameTaken(ctx context.Context, name string, exceptID int64) (bool, error) {
	return s.exists(ctx, "SELECT COUNT(*) FROM permission_groups WHERE name = $1 AND id <> $2", name, exceptID)
}

// CreateGroup inserts g, setting its id and timestamps
func (s *Store) CreateGroup(ctx context.Context, g *PermissionGroup, now time.Time) error {
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO permission_groups (name, description, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id
	`, g.Name, nullString(g.Description), g.Order, now).Scan(&g.ID)
	if err != nil {
		return fmt.Errorf("failed to create permission group: %w", err)
	}
	g.CreatedAt, g.UpdatedAt = now, now
	return nil
}

// UpdateGroup writes name, description and order of g
func (s *Store) UpdateGroup(ctx context.Context, g *PermissionGroup, now time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE permission_groups SET name = $1, description = $2, sort_order = $3, updated_at = $4
		WHERE id = $5
	`, g.Name, nullString(g.Description), g.Order, now, g.ID)
	if err != nil {
		return fmt.Errorf("failed to update permission group: %w", err)
	}
	if err := expectRow(res, "permission group", g.ID); err != nil {
		return err
	}
	g.UpdatedAt = now
	return nil
}

// DeleteGroup removes a group. Callers check it has no permissions first.
func (s *Store) DeleteGroup(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM permission_groups WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete permission group: %w", err)
	}
	return expectRow(res, "permission group", id)
}

// Roles

const selectRole = `
	SELECT r.id, r.name, r.guard_name, r.is_bypass,
		(SELECT COUNT(*) FROM role_permissions rp WHERE rp.role_id = r.id),
		r.created_at, r.updated_at
	FROM roles r
`

func scanRole(row rowScanner) (*Role, error) {
	var r Role
	if err := row.Scan(&r.ID, &r.Name, &r.GuardName, &r.IsBypass, &r.PermissionsCount, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) queryRoles(ctx context.Context, query string, args ...interface{}) ([]*Role, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	roles := make([]*Role, 0)
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roles: %w", err)
	}
	return roles, nil
}

// ListRoles returns one page of roles with their permission counts
func (s *Store) ListRoles(ctx context.Context, p ListParams) ([]*Role, int, error) {
	l := newListQuery("roles", "r", selectRole, p)
	l.searchIn(p.Search, "r.name")

	roles := make([]*Role, 0)
	total, err := l.run(ctx, s.q, func(row rowScanner) error {
		r, err := scanRole(row)
		if err != nil {
			return fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, r)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

// AllRoles returns every role ordered by name
func (s *Store) AllRoles(ctx context.Context) ([]*Role, error) {
	return s.queryRoles(ctx, selectRole+" ORDER BY r.name ASC")
}

// GetRole loads a role and its granted permissions
func (s *Store) GetRole(ctx context.Context, id int64) (*Role, error) {
	r, err := scanRole(s.q.QueryRowContext(ctx, selectRole+" WHERE r.id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("role", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	r.Permissions, err = s.queryPermissions(ctx, selectPermission+`
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.name ASC
	`, id)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// RoleByName loads a role of the web guard by name, without permissions
func (s *Store) RoleByName(ctx context.Context, name string) (*Role, error) {
	r, err := scanRole(s.q.QueryRowContext(ctx, selectRole+" WHERE r.name = $1 AND r.guard_name = $2", name, GuardWeb))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("role", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return r, nil
}

// RoleNameTaken reports whether another role uses name
func (s *Store) RoleNameTaken(ctx context.Context, name string, exceptID int64) (bool, error) {
	return s.exists(ctx,
		"SELECT COUNT(*) FROM roles WHERE name = $1 AND guard_name = $2 AND id <> $3",
		name, GuardWeb, exceptID)
}

// CreateRole inserts r, setting its id and timestamps
func (s *Store) CreateRole(ctx context.Context, r *Role, now time.Time) error {
	if r.GuardName == "" {
		r.GuardName = GuardWeb
	}
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO roles (name, guard_name, is_bypass, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id
	`, r.Name, r.GuardName, r.IsBypass, now).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}
	r.CreatedAt, r.UpdatedAt = now, now
	return nil
}

// RenameRole updates the role name. The bypass flag is never written after
// creation.
func (s *Store) RenameRole(ctx context.Context, id int64, name string, now time.Time) error {
	res, err := s.q.ExecContext(ctx, "UPDATE roles SET name = $1, updated_at = $2 WHERE id = $3", name, now, id)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	return expectRow(res, "role", id)
}

// DeleteRole removes a role; grants and user assignments cascade
func (s *Store) DeleteRole(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM roles WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return expectRow(res, "role", id)
}

// SyncRolePermissions replaces the grants of a role with permissionIDs
func (s *Store) SyncRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if _, err := s.q.ExecContext(ctx, "DELETE FROM role_permissions WHERE role_id = $1", roleID); err != nil {
		return fmt.Errorf("failed to clear role permissions: %w", err)
	}
	for _, id := range unique(permissionIDs) {
		if _, err := s.q.ExecContext(ctx,
			"INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)", roleID, id); err != nil {
			return fmt.Errorf("failed to grant permission %d: %w", id, err)
		}
	}
	return nil
}

// CountRoles counts how many of ids exist
func (s *Store) CountRoles(ctx context.Context, ids []int64) (int, error) {
	clause, args, _ := s.dialect.InInt64("id", 1, ids)
	var n int
	if err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM roles WHERE "+clause, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count roles: %w", err)
	}
	return n, nil
}

// User assignments

// UserRoles returns the roles assigned to a user ordered by name
func (s *Store) UserRoles(ctx context.Context, userID int64) ([]*Role, error) {
	return s.queryRoles(ctx, selectRole+`
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name ASC
	`, userID)
}

// RoleNamesByUser returns the role names of each of userIDs
func (s *Store) RoleNamesByUser(ctx context.Context, userIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	clause, args, _ := s.dialect.InInt64("ur.user_id", 1, userIDs)
	rows, err := s.q.QueryContext(ctx, `
		SELECT ur.user_id, r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE `+clause+`
		ORDER BY r.name ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query user roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID int64
			name   string
		)
		if err := rows.Scan(&userID, &name); err != nil {
			return nil, fmt.Errorf("failed to scan user role: %w", err)
		}
		out[userID] = append(out[userID], name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user roles: %w", err)
	}
	return out, nil
}

// SyncUserRoles replaces the roles of a user with roleIDs
func (s *Store) SyncUserRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	if _, err := s.q.ExecContext(ctx, "DELETE FROM user_roles WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("failed to clear user roles: %w", err)
	}
	for _, id := range unique(roleIDs) {
		if _, err := s.q.ExecContext(ctx,
			"INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)", userID, id); err != nil {
			return fmt.Errorf("failed to assign role %d: %w", id, err)
		}
	}
	return nil
}

// LoadCapabilities resolves the capability set of a user: the union of the
// permissions of its roles, and whether any role is a bypass role.
func (s *Store) LoadCapabilities(ctx context.Context, userID int64) (*Capabilities, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT DISTINCT p.name
		FROM user_roles ur
		JOIN role_permissions rp ON rp.role_id = ur.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = $1
		ORDER BY p.name ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user permissions: %w", err)
	}

	caps := &Capabilities{Permissions: make([]string, 0)}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan permission name: %w", err)
		}
		caps.Permissions = append(caps.Permissions, name)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("error iterating user permissions: %w", err)
	}

	caps.Bypass, err = s.exists(ctx, `
		SELECT COUNT(*)
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1 AND r.is_bypass = $2
	`, userID, true)
	if err != nil {
		return nil, err
	}
	return caps, nil
}

func (s *Store) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var n int
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return n > 0, nil
}

func expectRow(res sql.Result, resource string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound(resource, id)
	}
	return nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func unique(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
