package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/access"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/auth"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/httputil"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/rbac"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage/storagetest"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/users"
)

const adminPassword = "correct-horse-battery"

type testApp struct {
	server *Server
	roles  *rbac.Store
}

// setup builds a seeded server whose route table has been scanned
func setup(t *testing.T, opts Options) *testApp {
	t.Helper()
	db := storagetest.NewSQLite(t)
	opts.Logger = storagetest.QuietLogger()
	server := NewServer(db, opts)

	roles := rbac.NewStore(db)
	_, err := rbac.NewSeeder(roles, server.Catalog(), server.Access, opts.Logger).Run(context.Background(), rbac.SeedOptions{
		AdminName:     "Root",
		AdminEmail:    "root@example.com",
		AdminPassword: adminPassword,
	})
	require.NoError(t, err)
	_, err = server.Access.Scan(context.Background(), nil)
	require.NoError(t, err)

	return &testApp{server: server, roles: roles}
}

func (a *testApp) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.server.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result auth.LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.NotEmpty(t, result.Token)
	return result.Token
}

// createUser adds an active account holding the named role
func (a *testApp) createUser(t *testing.T, email, roleName string) *users.Account {
	t.Helper()
	role, err := a.roles.RoleByName(context.Background(), roleName)
	require.NoError(t, err)
	ids := []int64{role.ID}
	account, err := a.server.Users.Create(context.Background(), users.Input{
		Name:                 "Member",
		Email:                email,
		Password:             adminPassword,
		PasswordConfirmation: adminPassword,
		Roles:                &ids,
	})
	require.NoError(t, err)
	return account
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestServer_RouteTable(t *testing.T) {
	app := setup(t, Options{})
	for _, name := range []string{
		"login", "logout", "dashboard",
		"admin.users.index", "admin.roles.index", "admin.permissions.index",
		"admin.menus.index", "admin.route-accesses.index", "admin.activity-logs.index",
	} {
		assert.NotNil(t, app.server.Router().Get(name), name)
	}

	options, err := app.server.Catalog().RoutesForSelect()
	require.NoError(t, err)
	for _, o := range options {
		assert.NotEqual(t, "login", o.Value)
	}
}

func TestServer_LoginAndDashboard(t *testing.T) {
	app := setup(t, Options{})

	rec := app.do(t, http.MethodPost, "/login", "", `{"email":"root@example.com","password":"wrong-password"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.do(t, http.MethodGet, "/dashboard", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, access.ReasonUnauthenticated, errorOf(t, rec).Reason)

	token := app.login(t, "ROOT@example.com", adminPassword)
	rec = app.do(t, http.MethodGet, "/dashboard", token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(httputil.RequestIDHeader))

	var dash DashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.True(t, dash.IsBypass)
	assert.Equal(t, "root@example.com", dash.User.Email)
	require.Len(t, dash.Menus, 2)
	assert.Equal(t, "Dashboard", dash.Menus[0].Name)
	assert.Len(t, dash.Menus[1].Children, 6)

	rec = app.do(t, http.MethodPost, "/logout", token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	rec = app.do(t, http.MethodGet, "/dashboard", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_GateEnforcesPermissions(t *testing.T) {
	app := setup(t, Options{})
	app.createUser(t, "member@example.com", rbac.UserRoleName)
	app.createUser(t, "staff@example.com", rbac.AdminRoleName)

	member := app.login(t, "member@example.com", adminPassword)
	rec := app.do(t, http.MethodGet, "/admin/users", member, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, access.ReasonMissingPermission, errorOf(t, rec).Reason)

	rec = app.do(t, http.MethodGet, "/dashboard", member, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var dash DashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.False(t, dash.IsBypass)
	require.Len(t, dash.Menus, 1, "administration needs user.view")

	staff := app.login(t, "staff@example.com", adminPassword)
	rec = app.do(t, http.MethodGet, "/admin/users", staff, "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestServer_DisabledRoute(t *testing.T) {
	app := setup(t, Options{})
	app.createUser(t, "staff@example.com", rbac.AdminRoleName)
	ctx := context.Background()

	entries, err := app.server.Access.Store().All(ctx)
	require.NoError(t, err)
	var id int64
	for _, e := range entries {
		if e.RouteName == "admin.menus.index" {
			id = e.ID
		}
	}
	require.NotZero(t, id)
	_, err = app.server.Access.BulkSetFlag(ctx, []int64{id}, access.FlagActive, false)
	require.NoError(t, err)

	staff := app.login(t, "staff@example.com", adminPassword)
	rec := app.do(t, http.MethodGet, "/admin/menus", staff, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, access.ReasonRouteDisabled, errorOf(t, rec).Reason)

	root := app.login(t, "root@example.com", adminPassword)
	rec = app.do(t, http.MethodGet, "/admin/menus", root, "")
	assert.Equal(t, http.StatusOK, rec.Code, "bypass ignores disabled routes")
}

func TestServer_DeactivatedAccountLosesSession(t *testing.T) {
	app := setup(t, Options{})
	account := app.createUser(t, "staff@example.com", rbac.AdminRoleName)
	staff := app.login(t, "staff@example.com", adminPassword)

	root := app.login(t, "root@example.com", adminPassword)
	rec := app.do(t, http.MethodPost, "/admin/users/"+jsonID(account.ID)+"/deactivate", root, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, "/dashboard", staff, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.do(t, http.MethodPost, "/login", "", `{"email":"staff@example.com","password":"`+adminPassword+`"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_HTTPMetrics(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	app := setup(t, Options{Metrics: metrics})

	app.do(t, http.MethodGet, "/dashboard", "", "")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "dashboard", "401")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.GateDecisionsTotal.WithLabelValues("deny", access.ReasonUnauthenticated)))
}

func jsonID(id int64) string {
	data, _ := json.Marshal(id)
	return string(data)
}
