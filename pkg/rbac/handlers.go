package rbac

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/httputil"
)

// Handlers serves the permission, permission group and role admin pages
type Handlers struct {
	service *Service
}

// NewHandlers creates RBAC handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the RBAC routes on the admin router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/permissions", h.listPermissions).Methods(http.MethodGet).Name("admin.permissions.index")
	router.HandleFunc("/permissions/create", h.permissionForm).Methods(http.MethodGet).Name("admin.permissions.create")
	router.HandleFunc("/permissions", h.createPermission).Methods(http.MethodPost).Name("admin.permissions.store")
	router.HandleFunc("/permissions/{id:[0-9]+}/edit", h.editPermission).Methods(http.MethodGet).Name("admin.permissions.edit")
	router.HandleFunc("/permissions/{id:[0-9]+}", h.updatePermission).Methods(http.MethodPut, http.MethodPatch).Name("admin.permissions.update")
	router.HandleFunc("/permissions/{id:[0-9]+}", h.deletePermission).Methods(http.MethodDelete).Name("admin.permissions.destroy")

	router.HandleFunc("/permission-groups", h.listGroups).Methods(http.MethodGet).Name("admin.permission-groups.index")
	router.HandleFunc("/permission-groups/create", h.groupForm).Methods(http.MethodGet).Name("admin.permission-groups.create")
	router.HandleFunc("/permission-groups", h.createGroup).Methods(http.MethodPost).Name("admin.permission-groups.store")
	router.HandleFunc("/permission-groups/{id:[0-9]+}/edit", h.editGroup).Methods(http.MethodGet).Name("admin.permission-groups.edit")
	router.HandleFunc("/permission-groups/{id:[0-9]+}", h.updateGroup).Methods(http.MethodPut, http.MethodPatch).Name("admin.permission-groups.update")
	router.HandleFunc("/permission-groups/{id:[0-9]+}", h.deleteGroup).Methods(http.MethodDelete).Name("admin.permission-groups.destroy")

	router.HandleFunc("/roles", h.listRoles).Methods(http.MethodGet).Name("admin.roles.index")
	router.HandleFunc("/roles/create", h.roleForm).Methods(http.MethodGet).Name("admin.roles.create")
	router.HandleFunc("/roles", h.createRole).Methods(http.MethodPost).Name("admin.roles.store")
	router.HandleFunc("/roles/{id:[0-9]+}", h.showRole).Methods(http.MethodGet).Name("admin.roles.show")
	router.HandleFunc("/roles/{id:[0-9]+}/edit", h.editRole).Methods(http.MethodGet).Name("admin.roles.edit")
	router.HandleFunc("/roles/{id:[0-9]+}", h.updateRole).Methods(http.MethodPut, http.MethodPatch).Name("admin.roles.update")
	router.HandleFunc("/roles/{id:[0-9]+}", h.deleteRole).Methods(http.MethodDelete).Name("admin.roles.destroy")
}

func parseListParams(r *http.Request, sortable []string, defaultColumn string) (ListParams, error) {
	p := ListParams{
		Search: httputil.ParseQueryString(r, "search", ""),
		Sort:   httputil.ParseSort(r, sortable, defaultColumn, "asc"),
		Page:   httputil.ParsePagination(r),
	}
	if v := r.URL.Query().Get("group"); v != "" {
		id, err := httputil.ParseQueryInt(r, "group", 0)
		if err != nil {
			return p, apperrors.FieldError("group", "The group must be an integer.")
		}
		group := int64(id)
		p.GroupID = &group
	}
	return p, nil
}

type filters struct {
	Search    string `json:"search,omitempty"`
	Sort      string `json:"sort"`
	Direction string `json:"direction"`
	PerPage   int    `json:"per_page"`
	Group     *int64 `json:"group,omitempty"`
}

func filtersOf(p ListParams) filters {
	return filters{
		Search:    p.Search,
		Sort:      p.Sort.Column,
		Direction: p.Sort.Direction,
		PerPage:   p.Page.PerPage,
		Group:     p.GroupID,
	}
}

// Permissions

func (h *Handlers) listPermissions(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r, PermissionSortColumns, "name")
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	perms, total, err := h.service.store.ListPermissions(r.Context(), params)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	groups, err := h.service.store.AllGroups(r.Context(), false)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"permissions":      httputil.NewPaginated(perms, total, params.Page),
		"permissionGroups": groups,
		"filters":          filtersOf(params),
	})
}

func (h *Handlers) permissionForm(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.store.AllGroups(r.Context(), false)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"permissionGroups": groups})
}

func (h *Handlers) editPermission(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	perm, err := h.service.store.GetPermission(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	groups, err := h.service.store.AllGroups(r.Context(), false)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"permission":       perm,
		"permissionGroups": groups,
	})
}

func (h *Handlers) createPermission(w http.ResponseWriter, r *http.Request) {
	var in PermissionInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	perm, err := h.service.CreatePermission(r.Context(), in)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteCreated(w, perm)
}

func (h *Handlers) updatePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var in PermissionInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	perm, err := h.service.UpdatePermission(r.Context(), id, in)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, perm)
}

func (h *Handlers) deletePermission(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeletePermission(r.Context(), id); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "Permission deleted successfully.", nil)
}

// Permission groups

func (h *Handlers) listGroups(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r, GroupSortColumns, "order")
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	groups, total, err := h.service.store.ListGroups(r.Context(), params)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"permissionGroups": httputil.NewPaginated(groups, total, params.Page),
		"filters":          filtersOf(params),
	})
}

func (h *Handlers) groupForm(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]interface{}{})
}

func (h *Handlers) editGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	group, err := h.service.store.GetGroup(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"permissionGroup": group})
}

func (h *Handlers) createGroup(w http.ResponseWriter, r *http.Request) {
	var in GroupInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	group, err := h.service.CreateGroup(r.Context(), in)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteCreated(w, group)
}

func (h *Handlers) updateGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var in GroupInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	group, err := h.service.UpdateGroup(r.Context(), id, in)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, group)
}

func (h *Handlers) deleteGroup(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteGroup(r.Context(), id); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "Permission group deleted successfully.", nil)
}

// Roles

func (h *Handlers) listRoles(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r, RoleSortColumns, "name")
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	roles, total, err := h.service.store.ListRoles(r.Context(), params)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"roles":   httputil.NewPaginated(roles, total, params.Page),
		"filters": filtersOf(params),
	})
}

func (h *Handlers) roleForm(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.store.AllGroups(r.Context(), true)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"permissionGroups": groups})
}

func (h *Handlers) showRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	role, err := h.service.store.GetRole(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"role": role})
}

func (h *Handlers) editRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	role, err := h.service.store.GetRole(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	groups, err := h.service.store.AllGroups(r.Context(), true)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	granted := make([]int64, len(role.Permissions))
	for i, p := range role.Permissions {
		granted[i] = p.ID
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"role":             role,
		"permissionGroups": groups,
		"rolePermissions":  granted,
	})
}

func (h *Handlers) createRole(w http.ResponseWriter, r *http.Request) {
	var in RoleInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	role, err := h.service.CreateRole(r.Context(), in)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteCreated(w, role)
}

func (h *Handlers) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var in RoleInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	role, err := h.service.UpdateRole(r.Context(), id, in)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, role)
}

func (h *Handlers) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteRole(r.Context(), id); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "Role deleted successfully.", nil)
}
