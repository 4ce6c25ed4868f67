package access

import (
	"time"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/httputil"
)

// CacheKey identifies the route policy snapshot in every cache driver
const CacheKey = "route_access_permissions"

// DefaultTTL bounds how long a snapshot is served before it is reloaded
const DefaultTTL = 5 * time.Minute

// ModelRouteAccess is the activity log model name of entries
const ModelRouteAccess = "RouteAccess"

// Entry is the persisted access policy of one named route
type Entry struct {
	ID             int64     `json:"id"`
	RouteName      string    `json:"route_name"`
	RouteURI       string    `json:"route_uri,omitempty"`
	RouteMethod    string    `json:"route_method,omitempty"`
	PermissionName string    `json:"permission_name,omitempty"`
	PermissionID   *int64    `json:"permission_id,omitempty"`
	IsActive       bool      `json:"is_active"`
	IsPublic       bool      `json:"is_public"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (e *Entry) attributes() map[string]interface{} {
	var permissionID interface{}
	if e.PermissionID != nil {
		permissionID = *e.PermissionID
	}
	return map[string]interface{}{
		"route_name":      e.RouteName,
		"route_uri":       e.RouteURI,
		"route_method":    e.RouteMethod,
		"permission_name": e.PermissionName,
		"permission_id":   permissionID,
		"is_active":       e.IsActive,
		"is_public":       e.IsPublic,
		"description":     e.Description,
	}
}

// Policy is the cached part of an entry consulted by the gate
type Policy struct {
	PermissionName string `json:"permission_name"`
	IsActive       bool   `json:"is_active"`
	IsPublic       bool   `json:"is_public"`
}

// Snapshot maps every route name in the table to its policy, active or not
type Snapshot map[string]Policy

// ScanResult counts the outcome of a scan
type ScanResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
	Matched int `json:"matched"`
}

// Input is the create/update body of an entry. Nil flags default to active
// and protected on create and are left unchanged on update.
type Input struct {
	RouteName      string `json:"route_name"`
	RouteURI       string `json:"route_uri"`
	RouteMethod    string `json:"route_method"`
	PermissionName string `json:"permission_name"`
	IsActive       *bool  `json:"is_active"`
	IsPublic       *bool  `json:"is_public"`
	Description    string `json:"description"`
}

// Flag is a boolean column that can be set in bulk
type Flag string

const (
	FlagActive Flag = "is_active"
	FlagPublic Flag = "is_public"
)

// Bulk update actions
const (
	ActionActivate      = "activate"
	ActionDeactivate    = "deactivate"
	ActionMakePublic    = "make_public"
	ActionMakeProtected = "make_protected"
)

type bulkAction struct {
	flag    Flag
	value   bool
	message string
}

var bulkActions = map[string]bulkAction{
	ActionActivate:      {FlagActive, true, "Routes activated successfully."},
	ActionDeactivate:    {FlagActive, false, "Routes deactivated successfully."},
	ActionMakePublic:    {FlagPublic, true, "Routes made public successfully."},
	ActionMakeProtected: {FlagPublic, false, "Routes made protected successfully."},
}

// ListParams are the table options of the entry list
type ListParams struct {
	Search   string
	IsActive *bool
	IsPublic *bool
	Sort     httputil.SortParams
	Page     httputil.PageParams
}

// SortColumns are the columns the entry list may be ordered by
var SortColumns = []string{"route_name", "route_uri", "permission_name", "is_active", "created_at"}

// PermissionOption is a permission offered by the entry forms
type PermissionOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
