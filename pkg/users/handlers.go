package users

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/httputil"
)

// Handlers serves the user admin pages
type Handlers struct {
	service *Service
}

// NewHandlers creates user handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the user routes on the admin router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/users", h.list).Methods(http.MethodGet).Name("admin.users.index")
	router.HandleFunc("/users/create", h.createForm).Methods(http.MethodGet).Name("admin.users.create")
	router.HandleFunc("/users", h.create).Methods(http.MethodPost).Name("admin.users.store")
	router.HandleFunc("/users/{id:[0-9]+}", h.show).Methods(http.MethodGet).Name("admin.users.show")
	router.HandleFunc("/users/{id:[0-9]+}/edit", h.edit).Methods(http.MethodGet).Name("admin.users.edit")
	router.HandleFunc("/users/{id:[0-9]+}", h.update).Methods(http.MethodPut, http.MethodPatch).Name("admin.users.update")
	router.HandleFunc("/users/{id:[0-9]+}", h.delete).Methods(http.MethodDelete).Name("admin.users.destroy")
	router.HandleFunc("/users/{id:[0-9]+}/activate", h.setActive(true)).Methods(http.MethodPost).Name("admin.users.activate")
	router.HandleFunc("/users/{id:[0-9]+}/deactivate", h.setActive(false)).Methods(http.MethodPost).Name("admin.users.deactivate")
}

type filters struct {
	Search    string `json:"search,omitempty"`
	Role      string `json:"role,omitempty"`
	IsActive  *bool  `json:"is_active,omitempty"`
	Sort      string `json:"sort"`
	Direction string `json:"direction"`
	PerPage   int    `json:"per_page"`
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	active, err := httputil.ParseQueryBool(r, "is_active")
	if err != nil {
		httputil.WriteServiceError(w, apperrors.FieldError("is_active", "The is active field must be true or false."))
		return
	}
	params := ListParams{
		Search:   httputil.ParseQueryString(r, "search", ""),
		Role:     httputil.ParseQueryString(r, "role", ""),
		IsActive: active,
		Sort:     httputil.ParseSort(r, SortColumns, "name", "asc"),
		Page:     httputil.ParsePagination(r),
	}

	accounts, total, err := h.service.List(r.Context(), params)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	roles, err := h.service.Roles(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"users": httputil.NewPaginated(accounts, total, params.Page),
		"roles": roles,
		"filters": filters{
			Search:    params.Search,
			Role:      params.Role,
			IsActive:  params.IsActive,
			Sort:      params.Sort.Column,
			Direction: params.Sort.Direction,
			PerPage:   params.Page.PerPage,
		},
	})
}

func (h *Handlers) createForm(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.Roles(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"roles": roles})
}

func (h *Handlers) show(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	account, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, account)
}

func (h *Handlers) edit(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	account, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	roles, err := h.service.Roles(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	assigned, err := h.service.RoleIDs(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"user":      account,
		"roles":     roles,
		"userRoles": assigned,
	})
}

func (h *Handlers) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	account, err := h.service.Create(r.Context(), in)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteCreated(w, account)
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
	account, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, account)
}

func (h *Handlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "User deleted successfully.", nil)
}

func (h *Handlers) setActive(active bool) http.HandlerFunc {
	message := "User deactivated successfully."
	if active {
		message = "User activated successfully."
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := httputil.ParsePathInt64OrError(w, r, "id")
		if !ok {
			return
		}
		account, err := h.service.SetActive(r.Context(), id, active)
		if err != nil {
			httputil.WriteServiceError(w, err)
			return
		}
		httputil.WriteSuccessMessage(w, message, account)
	}
}
