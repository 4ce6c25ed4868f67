package access

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/httputil"
)

// Handlers serves the route access admin pages
type Handlers struct {
	registry *Registry
}

// NewHandlers creates route access handlers
func NewHandlers(registry *Registry) *Handlers {
	return &Handlers{registry: registry}
}

// RegisterRoutes registers the route access routes on the admin router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/route-accesses", h.list).Methods(http.MethodGet).Name("admin.route-accesses.index")
	router.HandleFunc("/route-accesses/create", h.createForm).Methods(http.MethodGet).Name("admin.route-accesses.create")
	router.HandleFunc("/route-accesses", h.create).Methods(http.MethodPost).Name("admin.route-accesses.store")
	router.HandleFunc("/route-accesses/{id:[0-9]+}/edit", h.edit).Methods(http.MethodGet).Name("admin.route-accesses.edit")
	router.HandleFunc("/route-accesses/{id:[0-9]+}", h.update).Methods(http.MethodPut, http.MethodPatch).Name("admin.route-accesses.update")
	router.HandleFunc("/route-accesses/{id:[0-9]+}", h.delete).Methods(http.MethodDelete).Name("admin.route-accesses.destroy")

	router.HandleFunc("/route-accesses/scan", h.scan).Methods(http.MethodPost).Name("admin.route-accesses.scan")
	router.HandleFunc("/route-accesses/bulk-update", h.bulkUpdate).Methods(http.MethodPost).Name("admin.route-accesses.bulk-update")
	router.HandleFunc("/route-accesses/bulk-destroy", h.bulkDelete).Methods(http.MethodPost).Name("admin.route-accesses.bulk-destroy")
	router.HandleFunc("/route-accesses/sync-permissions", h.syncPermissions).Methods(http.MethodPost).Name("admin.route-accesses.sync-permissions")
}

type filters struct {
	Search    string `json:"search,omitempty"`
	IsActive  *bool  `json:"is_active,omitempty"`
	IsPublic  *bool  `json:"is_public,omitempty"`
	Sort      string `json:"sort"`
	Direction string `json:"direction"`
	PerPage   int    `json:"per_page"`
}

func parseListParams(r *http.Request) (ListParams, error) {
	p := ListParams{
		Search: httputil.ParseQueryString(r, "search", ""),
		Sort:   httputil.ParseSort(r, SortColumns, "route_name", "asc"),
		Page:   httputil.ParsePagination(r),
	}
	var err error
	if p.IsActive, err = httputil.ParseQueryBool(r, "is_active"); err != nil {
		return p, apperrors.FieldError("is_active", "The is active field must be true or false.")
	}
	if p.IsPublic, err = httputil.ParseQueryBool(r, "is_public"); err != nil {
		return p, apperrors.FieldError("is_public", "The is public field must be true or false.")
	}
	return p, nil
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	entries, total, unregistered, err := h.registry.List(r.Context(), params)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"routeAccesses":     httputil.NewPaginated(entries, total, params.Page),
		"unregisteredCount": unregistered,
		"filters": filters{
			Search:    params.Search,
			IsActive:  params.IsActive,
			IsPublic:  params.IsPublic,
			Sort:      params.Sort.Column,
			Direction: params.Sort.Direction,
			PerPage:   params.Page.PerPage,
		},
	})
}

func (h *Handlers) createForm(w http.ResponseWriter, r *http.Request) {
	form, err := h.registry.FormData(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, form)
}

func (h *Handlers) edit(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	entry, err := h.registry.Store().Get(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	form, err := h.registry.FormData(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"routeAccess":        entry,
		"permissions":        form.Permissions,
		"unregisteredRoutes": form.UnregisteredRoutes,
	})
}

func (h *Handlers) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	entry, err := h.registry.Create(r.Context(), in)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteCreated(w, entry)
}

func (h *Handlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var in Input
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	entry, err := h.registry.Update(r.Context(), id, in)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, entry)
}

func (h *Handlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.registry.Delete(r.Context(), id); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "Route access deleted successfully.", nil)
}

type scanRequest struct {
	Prefixes []string `json:"prefixes"`
}

func (h *Handlers) scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if r.ContentLength != 0 {
		if !httputil.ParseJSONOrError(w, r, &req) {
			return
		}
	}
	result, err := h.registry.Scan(r.Context(), req.Prefixes)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	message := fmt.Sprintf(
		"Route scan completed: %d created, %d updated, %d removed, %d matched with existing permissions.",
		result.Created, result.Updated, result.Removed, result.Matched,
	)
	httputil.WriteSuccessMessage(w, message, result)
}

type bulkUpdateRequest struct {
	IDs    []int64 `json:"ids"`
	Action string  `json:"action"`
}

func (h *Handlers) bulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req bulkUpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	message, err := h.registry.BulkUpdate(r.Context(), req.IDs, req.Action)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, message, nil)
}

func (h *Handlers) bulkDelete(w http.ResponseWriter, r *http.Request) {
	var req httputil.IDList
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if _, err := h.registry.BulkDelete(r.Context(), req.IDs); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "Route accesses deleted successfully.", nil)
}

func (h *Handlers) syncPermissions(w http.ResponseWriter, r *http.Request) {
	linked, err := h.registry.RelinkPermissions(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, fmt.Sprintf("Linked %d route accesses to existing permissions.", linked),
		map[string]int{"linked": linked})
}
