package menu

import "time"

// ModelMenu is the activity log model name of menus
const ModelMenu = "Menu"

// Menu is a navigation entry. Children is only populated on trees.
type Menu struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	RouteName      string    `json:"route_name,omitempty"`
	URL            string    `json:"url,omitempty"`
	Icon           string    `json:"icon,omitempty"`
	ParentID       *int64    `json:"parent_id"`
	Order          int       `json:"order"`
	PermissionName string    `json:"permission_name,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Children       []*Menu   `json:"children,omitempty"`
}

func (m *Menu) attributes() map[string]interface{} {
	var parentID interface{}
	if m.ParentID != nil {
		parentID = *m.ParentID
	}
	return map[string]interface{}{
		"name":            m.Name,
		"route_name":      m.RouteName,
		"url":             m.URL,
		"icon":            m.Icon,
		"parent_id":       parentID,
		"order":           m.Order,
		"permission_name": m.PermissionName,
		"is_active":       m.IsActive,
	}
}

// clone copies m without its children
func (m *Menu) clone() *Menu {
	c := *m
	c.Children = nil
	return &c
}

// Item is the navigation shape rendered for end users
type Item struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon,omitempty"`
	RouteName string `json:"route_name,omitempty"`
	URL       string `json:"url,omitempty"`
	Order     int    `json:"order"`
	Children  []Item `json:"children,omitempty"`
}

// Input is the create/update body of a menu. A nil Order defaults to 0 on
// create and keeps the current value on update; IsActive likewise defaults
// to true.
type Input struct {
	Name           string `json:"name"`
	RouteName      string `json:"route_name"`
	URL            string `json:"url"`
	Icon           string `json:"icon"`
	ParentID       *int64 `json:"parent_id"`
	Order          *int   `json:"order"`
	PermissionName string `json:"permission_name"`
	IsActive       *bool  `json:"is_active"`
}

// Position is one element of a reorder request
type Position struct {
	ID       int64  `json:"id"`
	ParentID *int64 `json:"parent_id"`
	Order    int    `json:"order"`
}

// ParentOption is a menu offered as a parent in the forms, indented by Depth
type ParentOption struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Depth int    `json:"depth"`
}

// PermissionOption is a permission offered by the forms
type PermissionOption struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
