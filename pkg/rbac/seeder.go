package rbac

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jinzhu/inflection"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/auth"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/menu"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/routes"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage"
)

// Stock role names created by the seeder
const (
	AdminRoleName = "admin"
	UserRoleName  = "user"
)

// SeedOptions configures the initial bypass account. No account is created
// when AdminEmail is empty.
type SeedOptions struct {
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// SeedResult counts the rows created by one seeder run
type SeedResult struct {
	Permissions int  `json:"permissions"`
	Groups      int  `json:"groups"`
	Roles       int  `json:"roles"`
	Menus       int  `json:"menus"`
	AdminUser   bool `json:"admin_user"`
	Relinked    int  `json:"relinked"`
}

type defaultMenu struct {
	name       string
	routeName  string
	icon       string
	order      int
	permission string
	children   []defaultMenu
}

var defaultMenus = []defaultMenu{
	{name: "Dashboard", routeName: "dashboard", icon: "layout-dashboard", order: 1},
	{name: "Administration", icon: "shield", order: 2, permission: "user.view", children: []defaultMenu{
		{name: "Users", routeName: "admin.users.index", icon: "users", order: 1, permission: "user.view"},
		{name: "Roles", routeName: "admin.roles.index", icon: "user-cog", order: 2, permission: "role.view"},
		{name: "Permissions", routeName: "admin.permissions.index", icon: "key", order: 3, permission: "permission.view"},
		{name: "Menus", routeName: "admin.menus.index", icon: "menu", order: 4, permission: "menu.view"},
		{name: "Route Access", routeName: "admin.route-accesses.index", icon: "route", order: 5, permission: "route-access.view"},
		{name: "Activity Logs", routeName: "admin.activity-logs.index", icon: "clipboard-list", order: 6, permission: "activity-log.view"},
	}},
}

// Seeder installs the stock permissions, roles, menus and bypass account.
// Every step only creates what is missing, so it can run repeatedly.
type Seeder struct {
	store    *Store
	catalog  routes.Lister
	relinker Relinker
	logger   *observability.Logger
	now      func() time.Time
}

// NewSeeder creates a seeder. relinker may be nil.
func NewSeeder(store *Store, catalog routes.Lister, relinker Relinker, logger *observability.Logger) *Seeder {
	return &Seeder{
		store:    store,
		catalog:  catalog,
		relinker: relinker,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run seeds everything in one transaction and relinks route access entries
// once it has committed
func (s *Seeder) Run(ctx context.Context, opts SeedOptions) (*SeedResult, error) {
	names, err := s.permissionNames()
	if err != nil {
		return nil, err
	}

	var hash string
	if opts.AdminEmail != "" {
		if hash, err = auth.HashPassword(opts.AdminPassword); err != nil {
			return nil, fmt.Errorf("invalid admin password: %w", err)
		}
	}

	now := s.now()
	result := &SeedResult{}
	err = storage.InTx(ctx, s.store.db, func(tx *sql.Tx) error {
		store := s.store.WithTx(tx)

		permissionIDs, err := s.seedPermissions(ctx, store, names, now, result)
		if err != nil {
			return err
		}
		bypassID, err := s.seedRoles(ctx, store, permissionIDs, now, result)
		if err != nil {
			return err
		}
		if err := s.seedMenus(ctx, menu.NewStore(s.store.db).WithTx(tx), now, result); err != nil {
			return err
		}
		if opts.AdminEmail != "" {
			return s.seedAdmin(ctx, tx, store, opts, hash, bypassID, now, result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.relinker != nil {
		n, err := s.relinker.RelinkPermissions(ctx)
		if err != nil {
			return result, fmt.Errorf("failed to relink route permissions: %w", err)
		}
		result.Relinked = n
	}

	s.logger.WithFields(map[string]interface{}{
		"permissions": result.Permissions,
		"groups":      result.Groups,
		"roles":       result.Roles,
		"menus":       result.Menus,
		"admin_user":  result.AdminUser,
	}).Info("Seeding completed")
	return result, nil
}

// permissionNames infers one permission per governed route plus those the
// default menus reference, sorted
func (s *Seeder) permissionNames() ([]string, error) {
	set := make(map[string]struct{})
	if s.catalog != nil {
		list, err := s.catalog.List(nil)
		if err != nil {
			return nil, err
		}
		for _, r := range list {
			name := routes.InferPermissionName(r.Name)
			if strings.Contains(name, ".") {
				set[name] = struct{}{}
			}
		}
	}
	var walk func([]defaultMenu)
	walk = func(items []defaultMenu) {
		for _, m := range items {
			if m.permission != "" {
				set[m.permission] = struct{}{}
			}
			walk(m.children)
		}
	}
	walk(defaultMenus)

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// groupName labels the resource of a permission: "route-access.view"
// becomes "Route Accesses"
func groupName(permission string) string {
	resource, _, _ := strings.Cut(permission, ".")
	words := strings.Split(inflection.Plural(resource), "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func (s *Seeder) seedPermissions(ctx context.Context, store *Store, names []string, now time.Time, result *SeedResult) ([]int64, error) {
	groups, err := store.AllGroups(ctx, false)
	if err != nil {
		return nil, err
	}
	groupIDs := make(map[string]int64, len(groups))
	nextOrder := 0
	for _, g := range groups {
		groupIDs[g.Name] = g.ID
		if g.Order >= nextOrder {
			nextOrder = g.Order + 1
		}
	}

	existing, err := store.AllPermissions(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]int64, len(existing))
	ids := make([]int64, 0, len(existing)+len(names))
	for _, p := range existing {
		byName[p.Name] = p.ID
		ids = append(ids, p.ID)
	}

	for _, name := range names {
		if _, ok := byName[name]; ok {
			continue
		}
		label := groupName(name)
		groupID, ok := groupIDs[label]
		if !ok {
			g := &PermissionGroup{Name: label, Order: nextOrder}
			if err := store.CreateGroup(ctx, g, now); err != nil {
				return nil, err
			}
			nextOrder++
			groupID = g.ID
			groupIDs[label] = g.ID
			result.Groups++
		}

		p := &Permission{Name: name, GroupID: &groupID}
		if err := store.CreatePermission(ctx, p, now); err != nil {
			return nil, err
		}
		byName[name] = p.ID
		ids = append(ids, p.ID)
		result.Permissions++
	}
	return ids, nil
}

// seedRoles ensures the stock roles and returns the bypass role id. The
// admin role is granted every permission on each run.
func (s *Seeder) seedRoles(ctx context.Context, store *Store, permissionIDs []int64, now time.Time, result *SeedResult) (int64, error) {
	existing, err := store.AllRoles(ctx)
	if err != nil {
		return 0, err
	}
	byName := make(map[string]*Role, len(existing))
	for _, r := range existing {
		byName[r.Name] = r
	}

	ensure := func(name string, bypass bool) (*Role, error) {
		if r, ok := byName[name]; ok {
			return r, nil
		}
		r := &Role{Name: name, IsBypass: bypass}
		if err := store.CreateRole(ctx, r, now); err != nil {
			return nil, err
		}
		result.Roles++
		return r, nil
	}

	bypass, err := ensure(BypassRoleName, true)
	if err != nil {
		return 0, err
	}
	admin, err := ensure(AdminRoleName, false)
	if err != nil {
		return 0, err
	}
	if err := store.SyncRolePermissions(ctx, admin.ID, permissionIDs); err != nil {
		return 0, err
	}
	if _, err := ensure(UserRoleName, false); err != nil {
		return 0, err
	}
	return bypass.ID, nil
}

func (s *Seeder) seedMenus(ctx context.Context, store *menu.Store, now time.Time, result *SeedResult) error {
	var seed func(items []defaultMenu, parentID *int64) error
	seed = func(items []defaultMenu, parentID *int64) error {
		for _, d := range items {
			m, err := store.FindByName(ctx, d.name, d.routeName)
			if err != nil {
				return err
			}
			if m == nil {
				m = &menu.Menu{
					Name:           d.name,
					RouteName:      d.routeName,
					Icon:           d.icon,
					ParentID:       parentID,
					Order:          d.order,
					PermissionName: d.permission,
					IsActive:       true,
				}
				if err := store.Insert(ctx, m, now); err != nil {
					return err
				}
				result.Menus++
			}
			id := m.ID
			if err := seed(d.children, &id); err != nil {
				return err
			}
		}
		return nil
	}
	return seed(defaultMenus, nil)
}

func (s *Seeder) seedAdmin(ctx context.Context, tx *sql.Tx, store *Store, opts SeedOptions, hash string, bypassID int64, now time.Time, result *SeedResult) error {
	email := strings.ToLower(strings.TrimSpace(opts.AdminEmail))
	name := opts.AdminName
	if name == "" {
		name = "Super Admin"
	}

	var userID int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM users WHERE LOWER(email) = $1", email).Scan(&userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = tx.QueryRowContext(ctx, `
			INSERT INTO users (name, email, password_hash, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			RETURNING id
		`, name, email, hash, true, now).Scan(&userID)
		if err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
		result.AdminUser = true
	case err != nil:
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	roles, err := store.UserRoles(ctx, userID)
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(roles)+1)
	for _, r := range roles {
		if r.ID == bypassID {
			return nil
		}
		ids = append(ids, r.ID)
	}
	return store.SyncUserRoles(ctx, userID, append(ids, bypassID))
}
