package routes

import (
	"net/http"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(w http.ResponseWriter, r *http.Request) {}

func testRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/login", noop).Methods(http.MethodPost).Name("login")
	r.HandleFunc("/dashboard", noop).Methods(http.MethodGet, http.MethodHead).Name("dashboard")
	r.HandleFunc("/sanctum/csrf-cookie", noop).Methods(http.MethodGet).Name("sanctum.csrf-cookie")
	r.HandleFunc("/settings/profile", noop).Methods(http.MethodGet).Name("settings.profile")
	r.HandleFunc("/unnamed", noop).Methods(http.MethodGet)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/users", noop).Methods(http.MethodGet, http.MethodHead).Name("admin.users.index")
	admin.HandleFunc("/users/{id}", noop).Methods(http.MethodPut, http.MethodPatch).Name("admin.users.update")
	admin.HandleFunc("/menus", noop).Methods(http.MethodGet).Name("admin.menus.index")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/orders", noop).Methods(http.MethodGet).Name("api.orders.index")
	return r
}

func TestCatalog_List(t *testing.T) {
	list, err := NewCatalog(testRouter()).List(nil)
	require.NoError(t, err)

	assert.Equal(t, []Route{
		{Name: "admin.menus.index", URI: "/admin/menus", Method: "GET"},
		{Name: "admin.users.index", URI: "/admin/users", Method: "GET"},
		{Name: "admin.users.update", URI: "/admin/users/{id}", Method: "PUT"},
		{Name: "admin.users.update", URI: "/admin/users/{id}", Method: "PATCH"},
		{Name: "api.orders.index", URI: "/api/orders", Method: "GET"},
		{Name: "dashboard", URI: "/dashboard", Method: "GET"},
	}, list)
}

func TestCatalog_ListIsDeterministic(t *testing.T) {
	catalog := NewCatalog(testRouter())
	first, err := catalog.List(nil)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := catalog.List(nil)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCatalog_ListPrefixFilter(t *testing.T) {
	catalog := NewCatalog(testRouter())

	list, err := catalog.List([]string{"admin.users."})
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, r := range list {
		assert.Contains(t, r.Name, "admin.users.")
	}

	list, err = catalog.List([]string{"api.", "dashboard"})
	require.NoError(t, err)
	assert.Equal(t, []string{"api.orders.index", "dashboard"}, names(list))

	list, err = catalog.List([]string{"Admin."})
	require.NoError(t, err)
	assert.Empty(t, list, "prefix match is case-sensitive")
}

func TestFirstPerName(t *testing.T) {
	list, err := NewCatalog(testRouter()).List([]string{"admin.users."})
	require.NoError(t, err)

	first := FirstPerName(list)
	require.Len(t, first, 2)
	assert.Equal(t, "PUT", first[1].Method)
}

func TestCatalog_RoutesForSelect(t *testing.T) {
	options, err := NewCatalog(testRouter()).RoutesForSelect()
	require.NoError(t, err)

	assert.Equal(t, []SelectOption{
		{Value: "admin.menus.index", Label: "admin.menus.index (/admin/menus)"},
		{Value: "admin.users.index", Label: "admin.users.index (/admin/users)"},
		{Value: "dashboard", Label: "dashboard (/dashboard)"},
	}, options)
}

func TestIsExcluded(t *testing.T) {
	for _, name := range []string{"", "login", "logout", "password.reset", "profile.destroy", "storage.local", "telescope.index", "generated::abc"} {
		assert.True(t, IsExcluded(name), name)
	}
	for _, name := range []string{"dashboard", "admin.users.index", "profile.show", "passwords.index"} {
		assert.False(t, IsExcluded(name), name)
	}
}

func TestCatalog_Exists(t *testing.T) {
	catalog := NewCatalog(testRouter())
	assert.True(t, catalog.Exists("admin.users.index"))
	assert.False(t, catalog.Exists("admin.users.destroy"))
}

func names(list []Route) []string {
	out := make([]string, len(list))
	for i, r := range list {
		out[i] = r.Name
	}
	return out
}
