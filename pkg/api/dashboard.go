package api

import (
	"net/http"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/auth"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/httputil"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/menu"
)

// DashboardResponse is the landing payload of an authenticated user
type DashboardResponse struct {
	User        *auth.User  `json:"user"`
	Permissions []string    `json:"permissions"`
	IsBypass    bool        `json:"is_bypass"`
	Menus       []menu.Item `json:"menus"`
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		httputil.WriteServiceError(w, auth.ErrInvalidSession)
		return
	}

	items, err := s.Menus.ForViewer(r.Context(), principal)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, DashboardResponse{
		User:        principal.User,
		Permissions: principal.PermissionNames(),
		IsBypass:    principal.HasBypassRole(),
		Menus:       items,
	})
}
