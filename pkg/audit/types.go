package audit

import (
	"strconv"
	"strings"
	"time"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/httputil"
)

// Model events
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// LogNameAuth is the log name of authentication events
const LogNameAuth = "auth"

// CauserTypeUser is the causer type of every user-attributed activity
const CauserTypeUser = "User"

// TruncateConfirmation must be supplied verbatim to clear the whole log
const TruncateConfirmation = "DELETE_ALL"

// Activity is one immutable activity log row
type Activity struct {
	ID          int64                  `json:"id"`
	LogName     string                 `json:"log_name"`
	Description string                 `json:"description"`
	Event       string                 `json:"event"`
	SubjectType string                 `json:"subject_type,omitempty"`
	SubjectID   *int64                 `json:"subject_id,omitempty"`
	CauserType  string                 `json:"causer_type,omitempty"`
	CauserID    *int64                 `json:"causer_id,omitempty"`
	CauserName  string                 `json:"causer_name,omitempty"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`

	EventLabel string `json:"event_label"`
	EventColor string `json:"event_color"`
}

// SubjectTypeName returns the subject type, or "Unknown" when unset
func (a *Activity) SubjectTypeName() string {
	if a.SubjectType == "" {
		return "Unknown"
	}
	return a.SubjectType
}

func (a *Activity) decorate() {
	a.EventLabel = EventLabel(a.Event)
	a.EventColor = EventColor(a.Event)
}

// ModelChange describes a create, update or delete of a tracked model
type ModelChange struct {
	Model      string
	SubjectID  int64
	Identifier string
	Event      string
	Attributes map[string]interface{}
	Old        map[string]interface{}
}

// Filter narrows activity queries. Zero values are ignored.
type Filter struct {
	Search      string
	LogName     string
	Event       string
	SubjectType string
	CauserID    *int64
	DateFrom    *time.Time
	DateTo      *time.Time
	Sort        httputil.SortParams
	Page        httputil.PageParams
}

// SortColumns are the columns the list may be ordered by
var SortColumns = []string{"created_at", "log_name", "event"}

// Stats are activity counts for the list header
type Stats struct {
	Today     int64 `json:"today"`
	ThisWeek  int64 `json:"thisWeek"`
	ThisMonth int64 `json:"thisMonth"`
	Total     int64 `json:"total"`
}

// UserOption is a causer choice in the list filters
type UserOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// FilterOptions are the distinct values offered by the list filters
type FilterOptions struct {
	LogNames []string     `json:"logNames"`
	Events   []string     `json:"events"`
	Users    []UserOption `json:"users"`
}

var eventLabels = map[string]string{
	"created":        "Created",
	"updated":        "Updated",
	"deleted":        "Deleted",
	"login":          "Login",
	"logout":         "Logout",
	"login_failed":   "Login Failed",
	"password_reset": "Password Reset",
	"email_verified": "Email Verified",
}

var eventColors = map[string]string{
	"created":        "green",
	"updated":        "blue",
	"deleted":        "red",
	"login":          "emerald",
	"logout":         "gray",
	"login_failed":   "orange",
	"password_reset": "purple",
	"email_verified": "cyan",
}

// EventLabel returns the display label of an event
func EventLabel(event string) string {
	if label, ok := eventLabels[event]; ok {
		return label
	}
	if event == "" {
		return "Unknown"
	}
	words := strings.FieldsFunc(event, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// EventColor returns the badge colour of an event
func EventColor(event string) string {
	if color, ok := eventColors[event]; ok {
		return color
	}
	return "gray"
}

// Describe renders `{Model} "{identifier}" was {event}`
func Describe(model, identifier, event string) string {
	if identifier == "" {
		identifier = "Unknown"
	}
	return model + ` "` + identifier + `" was ` + event
}

// LogNameFor returns the log name of a model
func LogNameFor(model string) string {
	return strings.ToLower(model)
}

// Identify picks the display identifier of a subject: name, then title, then id
func Identify(name, title string, id int64) string {
	switch {
	case name != "":
		return name
	case title != "":
		return title
	case id > 0:
		return strconv.FormatInt(id, 10)
	default:
		return "Unknown"
	}
}
