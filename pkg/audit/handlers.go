package audit

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/httputil"
)

// Handlers serves the activity log admin pages
type Handlers struct {
	store *Store
	now   func() time.Time
}

// NewHandlers creates activity log handlers
func NewHandlers(store *Store) *Handlers {
	return &Handlers{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// RegisterRoutes registers the activity log routes on the admin router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/activity-logs", h.index).Methods(http.MethodGet).Name("admin.activity-logs.index")
	router.HandleFunc("/activity-logs/export", h.export).Methods(http.MethodGet).Name("admin.activity-logs.export")
	router.HandleFunc("/activity-logs/bulk-destroy", h.bulkDestroy).Methods(http.MethodPost).Name("admin.activity-logs.bulk-destroy")
	router.HandleFunc("/activity-logs/clear", h.clear).Methods(http.MethodPost).Name("admin.activity-logs.clear")
	router.HandleFunc("/activity-logs/{id:[0-9]+}", h.show).Methods(http.MethodGet).Name("admin.activity-logs.show")
	router.HandleFunc("/activity-logs/{id:[0-9]+}", h.destroy).Methods(http.MethodDelete).Name("admin.activity-logs.destroy")
}

// parseFilter reads the list filters shared by index and export
func parseFilter(r *http.Request) (Filter, error) {
	f := Filter{
		Search:      httputil.ParseQueryString(r, "search", ""),
		LogName:     httputil.ParseQueryString(r, "log_name", ""),
		Event:       httputil.ParseQueryString(r, "event", ""),
		SubjectType: httputil.ParseQueryString(r, "subject_type", ""),
		Sort:        httputil.ParseSort(r, SortColumns, "created_at", "desc"),
		Page:        httputil.ParsePagination(r),
	}

	if v := r.URL.Query().Get("causer_id"); v != "" {
		id, err := httputil.ParseQueryInt(r, "causer_id", 0)
		if err != nil {
			return f, apperrors.FieldError("causer_id", "must be an integer")
		}
		causer := int64(id)
		f.CauserID = &causer
	}
	for key, dst := range map[string]**time.Time{"date_from": &f.DateFrom, "date_to": &f.DateTo} {
		v := r.URL.Query().Get(key)
		if v == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, apperrors.FieldError(key, "must be a date formatted YYYY-MM-DD")
		}
		*dst = &t
	}
	return f, nil
}

type indexResponse struct {
	Activities httputil.Paginated `json:"activities"`
	*FilterOptions
	Stats *Stats `json:"stats"`
}

func (h *Handlers) index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	activities, total, err := h.store.Search(ctx, filter)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	options, err := h.store.FilterOptions(ctx)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	stats, err := h.store.Stats(ctx, h.now())
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, indexResponse{
		Activities:    httputil.NewPaginated(activities, total, filter.Page),
		FilterOptions: options,
		Stats:         stats,
	})
}

func (h *Handlers) show(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	activity, err := h.store.Get(r.Context(), id)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, activity)
}

func (h *Handlers) destroy(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "Activity log entry deleted successfully.", nil)
}

func (h *Handlers) bulkDestroy(w http.ResponseWriter, r *http.Request) {
	ids, err := httputil.ParseIDList(r)
	if err != nil {
		httputil.WriteServiceError(w, apperrors.FieldError("ids", err.Error()))
		return
	}
	n, err := h.store.BulkDelete(r.Context(), ids)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "Activity log entries deleted successfully.", map[string]int64{"deleted": n})
}

type clearRequest struct {
	Confirm string `json:"confirm"`
}

func (h *Handlers) clear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	n, err := h.store.Truncate(r.Context(), req.Confirm)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccessMessage(w, "All activity logs have been cleared.", map[string]int64{"deleted": n})
}

func (h *Handlers) export(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	activities, err := h.store.All(r.Context(), filter)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, activities); err != nil {
		httputil.WriteServiceError(w, apperrors.Infrastructure("failed to export activities", err))
		return
	}

	w.Header().Set("Content-Type", CSVContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFilename(h.now())+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
