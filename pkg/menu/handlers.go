package menu

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/httputil"
)

// Handlers serves the menu admin pages
type Handlers struct {
	service *Service
}

// NewHandlers creates menu handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the menu routes on the admin router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/menus", h.list).Methods(http.MethodGet).Name("admin.menus.index")
	router.HandleFunc("/menus/create", h.createForm).Methods(http.MethodGet).Name("admin.menus.create")
	router.HandleFunc("/menus", h.create).Methods(http.MethodPost).Name("admin.menus.store")
	router.HandleFunc("/menus/reorder", h.reorder).Methods(http.MethodPost).Name("admin.menus.reorder")
	router.HandleFunc("/menus/{id:[0-9]+}/edit", h.edit).Methods(http.MethodGet).Name("admin.menus.edit")
	router.HandleFunc("/menus/{id:[0-9]+}", h.update).Methods(http.MethodPut, http.MethodPatch).Name("admin.menus.update")
	router.HandleFunc("/menus/{id:[0-9]+}", h.delete).Methods(http.MethodDelete).Name("admin.menus.destroy")
}

func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	menus, err := h.service.AdminTree(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"menus": menus})
}

func (h *Handlers) createForm(w http.ResponseWriter, r *http.Request) {
	form, err := h.service.FormData(r.Context(), 0)
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
	m, err := h.service.Store().Get(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	form, err := h.service.FormData(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"menu":          m,
		"menus":         form.Menus,
		"parentOptions": form.ParentOptions,
		"permissions":   form.Permissions,
		"routes":        form.Routes,
	})
}

func (h *Handlers) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	m, err := h.service.Create(r.Context(), in)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteCreated(w, m)
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
	m, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, m)
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
	httputil.WriteSuccessMessage(w, "Menu deleted successfully.", nil)
}

type reorderRequest struct {
	Menus []Position `json:"menus"`
}

func (h *Handlers) reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := h.service.Reorder(r.Context(), req.Menus); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "Menu order updated successfully.", nil)
}
