package rbac

import (
	"time"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/httputil"
)

// GuardWeb is the only guard scope used by the admin
const GuardWeb = "web"

// BypassRoleName is the name given to the seeded bypass role
const BypassRoleName = "super-admin"

// ReasonBypassRequired is the denial reason for granting bypass without holding it
const ReasonBypassRequired = "bypass_required"

// Model names recorded in the activity log
const (
	ModelPermission      = "Permission"
	ModelPermissionGroup = "PermissionGroup"
	ModelRole            = "Role"
)

// Permission is a capability that can be granted to roles
type Permission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	GuardName   string    `json:"guard_name"`
	Description string    `json:"description,omitempty"`
	GroupID     *int64    `json:"permission_group_id,omitempty"`
	GroupName   string    `json:"group_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Permission) attributes() map[string]interface{} {
	var group interface{}
	if p.GroupID != nil {
		group = *p.GroupID
	}
	return map[string]interface{}{
		"name":                p.Name,
		"guard_name":          p.GuardName,
		"description":         p.Description,
		"permission_group_id": group,
	}
}

// PermissionGroup labels and orders permissions in the UI. It has no effect
// on authorization.
type PermissionGroup struct {
	ID               int64         `json:"id"`
	Name             string        `json:"name"`
	Description      string        `json:"description,omitempty"`
	Order            int           `json:"order"`
	PermissionsCount int           `json:"permissions_count"`
	Permissions      []*Permission `json:"permissions,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func (g *PermissionGroup) attributes() map[string]interface{} {
	return map[string]interface{}{
		"name":        g.Name,
		"description": g.Description,
		"order":       g.Order,
	}
}

// Role is a named set of permissions. IsBypass is fixed when the role is
// created and exempts its holders from every permission check.
type Role struct {
	ID               int64         `json:"id"`
	Name             string        `json:"name"`
	GuardName        string        `json:"guard_name"`
	IsBypass         bool          `json:"is_bypass"`
	PermissionsCount int           `json:"permissions_count"`
	Permissions      []*Permission `json:"permissions,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func (r *Role) attributes() map[string]interface{} {
	return map[string]interface{}{
		"name":       r.Name,
		"guard_name": r.GuardName,
		"is_bypass":  r.IsBypass,
	}
}

// PermissionInput is the create/update body of a permission
type PermissionInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	GroupID     *int64 `json:"permission_group_id"`
}

// GroupInput is the create/update body of a permission group. A nil Order
// means 0 on create and unchanged on update.
type GroupInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Order       *int   `json:"order"`
}

// RoleInput is the create/update body of a role. A nil Permissions leaves
// the grants untouched on update.
type RoleInput struct {
	Name        string   `json:"name"`
	IsBypass    bool     `json:"is_bypass"`
	Permissions *[]int64 `json:"permissions"`
}

// ListParams are the table options shared by the rbac list endpoints
type ListParams struct {
	Search  string
	GroupID *int64
	Sort    httputil.SortParams
	Page    httputil.PageParams
}

// Sortable columns per list
var (
	PermissionSortColumns = []string{"name", "created_at"}
	GroupSortColumns      = []string{"order", "name", "created_at"}
	RoleSortColumns       = []string{"name", "created_at"}
)

// sortColumn maps the public "order" column onto its SQL name
func sortColumn(s httputil.SortParams) httputil.SortParams {
	if s.Column == "order" {
		s.Column = "sort_order"
	}
	return s
}

// Capabilities is the resolved permission set of a user
type Capabilities struct {
	Permissions []string
	Bypass      bool
}
