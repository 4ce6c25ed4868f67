package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
)

// ReasonUnauthenticated is the denial reason rendered as 401 instead of 403
const ReasonUnauthenticated = "unauthenticated"

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, status int, err error) {
	WriteErrorMessage(w, status, err.Error())
}

// WriteErrorMessage writes a JSON error response with a custom message
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error  string            `json:"error"`
	Reason string            `json:"reason,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// WriteServiceError maps an apperrors kind onto an HTTP status. Errors that
// are not *apperrors.Error are treated as infrastructure failures and their
// text is not exposed.
func WriteServiceError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := ErrorResponse{Error: appErr.Message, Reason: appErr.Reason}
	status := http.StatusInternalServerError

	switch appErr.Kind {
	case apperrors.KindValidation:
		status = http.StatusUnprocessableEntity
		resp.Fields = appErr.Fields
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindConflict:
		status = http.StatusConflict
	case apperrors.KindAuthorization:
		status = http.StatusForbidden
		if appErr.Reason == ReasonUnauthenticated {
			status = http.StatusUnauthorized
		}
	case apperrors.KindIntegrityGuard:
		status = http.StatusForbidden
	default:
		resp.Error = appErr.Message
		if resp.Error == "" {
			resp.Error = "internal server error"
		}
	}

	WriteJSON(w, status, resp)
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes an unauthorized error (401)
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: message, Reason: ReasonUnauthenticated})
}

// WriteTooManyRequests writes a rate limit error (429)
func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusTooManyRequests, message)
}

// WriteCreated writes a successful creation response (201 Created) with JSON data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteNoContent writes a successful response with no content (204 No Content)
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// SuccessResponse represents a standardized success response
type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// WriteSuccessMessage writes a success response with a message
func WriteSuccessMessage(w http.ResponseWriter, message string, data interface{}) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// Paginated is the envelope for list endpoints
type Paginated struct {
	Data     interface{} `json:"data"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PerPage  int         `json:"per_page"`
	LastPage int         `json:"last_page"`
}

// NewPaginated builds the envelope for one page of a result set
func NewPaginated(data interface{}, total int, page PageParams) Paginated {
	last := 1
	if page.PerPage > 0 && total > 0 {
		last = (total + page.PerPage - 1) / page.PerPage
	}
	return Paginated{
		Data:     data,
		Total:    total,
		Page:     page.Page,
		PerPage:  page.PerPage,
		LastPage: last,
	}
}
