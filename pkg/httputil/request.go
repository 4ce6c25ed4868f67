package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
)

// Pagination bounds for list endpoints
const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

// ParseJSON decodes JSON from the request body into the destination
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseJSONOrError decodes JSON and writes error response on failure
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := ParseJSON(r, dest); err != nil {
		WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// ParsePathInt64 extracts and parses an int64 path parameter
func ParsePathInt64(r *http.Request, key string) (int64, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return 0, fmt.Errorf("missing path parameter: %s", key)
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %s", key, str)
	}
	return val, nil
}

// ParsePathInt64OrError extracts an int64 path parameter and writes error on failure
func ParsePathInt64OrError(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	val, err := ParsePathInt64(r, key)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return 0, false
	}
	return val, true
}

// ParseQueryInt extracts and parses an integer query parameter
func ParseQueryInt(r *http.Request, key string, defaultVal int) (int, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultVal, nil
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for query param %s: %s", key, str)
	}
	return val, nil
}

// ParseQueryString extracts a string query parameter
func ParseQueryString(r *http.Request, key string, defaultVal string) string {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// ParseQueryBool extracts an optional boolean query parameter. nil means
// the parameter was absent.
func ParseQueryBool(r *http.Request, key string) (*bool, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return nil, nil
	}
	val, err := strconv.ParseBool(str)
	if err != nil {
		return nil, fmt.Errorf("invalid boolean for query param %s: %s", key, str)
	}
	return &val, nil
}

// ParseQueryList splits a comma separated query parameter, dropping blanks
func ParseQueryList(r *http.Request, key string) []string {
	var out []string
	for _, raw := range r.URL.Query()[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// IDList is the request body of bulk endpoints
type IDList struct {
	IDs []int64 `json:"ids"`
}

// ParseIDList decodes {"ids": [...]} and rejects an empty or non-positive list
func ParseIDList(r *http.Request) ([]int64, error) {
	var body IDList
	if err := ParseJSON(r, &body); err != nil {
		return nil, err
	}
	if len(body.IDs) == 0 {
		return nil, fmt.Errorf("ids must not be empty")
	}
	for _, id := range body.IDs {
		if id <= 0 {
			return nil, fmt.Errorf("invalid id: %d", id)
		}
	}
	return body.IDs, nil
}

// PageParams selects one page of a list
type PageParams struct {
	Page    int
	PerPage int
}

// Offset returns the number of rows to skip
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// ParsePagination reads page and per_page, clamping per_page to MaxPerPage
func ParsePagination(r *http.Request) PageParams {
	page, err := ParseQueryInt(r, "page", 1)
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := ParseQueryInt(r, "per_page", DefaultPerPage)
	if err != nil || perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return PageParams{Page: page, PerPage: perPage}
}

// SortParams is a whitelisted ORDER BY column and direction
type SortParams struct {
	Column    string
	Direction string
}

// ParseSort reads sort and direction, falling back to the defaults when the
// column is not in allowed or the direction is not asc/desc.
func ParseSort(r *http.Request, allowed []string, defaultColumn, defaultDirection string) SortParams {
	sort := SortParams{Column: defaultColumn, Direction: defaultDirection}

	column := r.URL.Query().Get("sort")
	for _, a := range allowed {
		if column == a {
			sort.Column = column
			break
		}
	}

	switch strings.ToLower(r.URL.Query().Get("direction")) {
	case "asc":
		sort.Direction = "asc"
	case "desc":
		sort.Direction = "desc"
	}
	return sort
}

// OrderBy renders the clause body, e.g. "route_name ASC"
func (s SortParams) OrderBy() string {
	return s.Column + " " + strings.ToUpper(s.Direction)
}
