package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/auth"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/menu"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/routes"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage/storagetest"
)

type staticRoutes []routes.Route

func (s staticRoutes) List(prefixes []string) ([]routes.Route, error) {
	return s, nil
}

var seedRoutes = staticRoutes{
	{Name: "admin.menus.reorder", Method: "POST"},
	{Name: "admin.users.index", Method: "GET"},
	{Name: "admin.users.store", Method: "POST"},
	{Name: "admin.users.update", Method: "PUT"},
	{Name: "dashboard", Method: "GET"},
}

func TestGroupName(t *testing.T) {
	assert.Equal(t, "Users", groupName("user.view"))
	assert.Equal(t, "Activity Logs", groupName("activity-log.view"))
	assert.Equal(t, "Route Accesses", groupName("route-access.edit"))
}

func TestSeeder_Run(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	seeder := NewSeeder(f.store, seedRoutes, f.relinker, storagetest.QuietLogger())
	opts := SeedOptions{AdminName: "Root", AdminEmail: "Root@Example.com", AdminPassword: "secret-password"}

	result, err := seeder.Run(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 9, result.Permissions)
	assert.Equal(t, 6, result.Groups)
	assert.Equal(t, 3, result.Roles)
	assert.Equal(t, 8, result.Menus)
	assert.True(t, result.AdminUser)
	assert.Equal(t, 1, f.relinker.calls)

	perm, err := f.store.PermissionByName(ctx, "user.create")
	require.NoError(t, err)
	require.NotNil(t, perm.GroupID)
	group, err := f.store.GroupByName(ctx, "Users")
	require.NoError(t, err)
	assert.Equal(t, group.ID, *perm.GroupID)

	bypass, err := f.store.RoleByName(ctx, BypassRoleName)
	require.NoError(t, err)
	assert.True(t, bypass.IsBypass)
	admin, err := f.store.RoleByName(ctx, AdminRoleName)
	require.NoError(t, err)
	assert.False(t, admin.IsBypass)
	assert.Equal(t, 9, admin.PermissionsCount)

	var userID int64
	var hash string
	require.NoError(t, f.db.QueryRow("SELECT id, password_hash FROM users WHERE email = $1", "root@example.com").Scan(&userID, &hash))
	ok, err := auth.CheckPassword(hash, "secret-password")
	require.NoError(t, err)
	assert.True(t, ok)

	caps, err := f.store.LoadCapabilities(ctx, userID)
	require.NoError(t, err)
	assert.True(t, caps.Bypass)

	tree, err := menu.NewStore(f.db).Tree(ctx)
	require.NoError(t, err)
	roots := tree.Build(false)
	require.Len(t, roots, 2)
	assert.Equal(t, "Dashboard", roots[0].Name)
	assert.Equal(t, "Administration", roots[1].Name)
	require.Len(t, roots[1].Children, 6)
	assert.Equal(t, "admin.route-accesses.index", roots[1].Children[4].RouteName)
}

func TestSeeder_RunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	seeder := NewSeeder(f.store, seedRoutes, nil, storagetest.QuietLogger())
	opts := SeedOptions{AdminEmail: "root@example.com", AdminPassword: "secret-password"}

	_, err := seeder.Run(ctx, opts)
	require.NoError(t, err)

	// permissions added after the first run reach the admin role on the next
	extra := append(staticRoutes{{Name: "admin.roles.destroy", Method: "DELETE"}}, seedRoutes...)
	again, err := NewSeeder(f.store, extra, nil, storagetest.QuietLogger()).Run(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, &SeedResult{Permissions: 1}, again)

	admin, err := f.store.RoleByName(ctx, AdminRoleName)
	require.NoError(t, err)
	assert.Equal(t, 10, admin.PermissionsCount)

	var users, menus int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&users))
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM menus").Scan(&menus))
	assert.Equal(t, 1, users)
	assert.Equal(t, 8, menus)
}

func TestSeeder_WithoutAdmin(t *testing.T) {
	f := setup(t)
	result, err := NewSeeder(f.store, nil, nil, storagetest.QuietLogger()).Run(context.Background(), SeedOptions{})
	require.NoError(t, err)
	assert.False(t, result.AdminUser)
	assert.Equal(t, 6, result.Permissions, "menu permissions are always created")
}

func TestSeeder_ShortAdminPassword(t *testing.T) {
	f := setup(t)
	_, err := NewSeeder(f.store, nil, nil, storagetest.QuietLogger()).
		Run(context.Background(), SeedOptions{AdminEmail: "root@example.com", AdminPassword: "short"})
	require.Error(t, err)

	roles, err := f.store.AllRoles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, roles)
}
