package auth

import (
	"context"
	"sort"
	"time"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/contextkeys"
)

// User is an administrator account
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session is a server-side login session. Only the token hash is stored.
type Session struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	TokenHash  string     `json:"-"`
	IPAddress  string     `json:"ip_address,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Principal is the authenticated caller of a request: the user, the session
// it arrived on, and its capability set.
type Principal struct {
	User      *User
	SessionID int64

	permissions map[string]struct{}
	bypass      bool
}

// NewPrincipal builds a principal from a loaded capability set. bypass is
// true when any of the user's roles carries the bypass flag.
func NewPrincipal(user *User, sessionID int64, permissions []string, bypass bool) *Principal {
	set := make(map[string]struct{}, len(permissions))
	for _, p := range permissions {
		set[p] = struct{}{}
	}
	return &Principal{
		User:        user,
		SessionID:   sessionID,
		permissions: set,
		bypass:      bypass,
	}
}

// HasPermission reports whether the capability set contains name. It does not
// consider the bypass flag; callers check HasBypassRole first.
func (p *Principal) HasPermission(name string) bool {
	if p == nil {
		return false
	}
	_, ok := p.permissions[name]
	return ok
}

// HasBypassRole reports whether the principal is exempt from permission checks
func (p *Principal) HasBypassRole() bool {
	return p != nil && p.bypass
}

// IsActive reports whether the principal's account is enabled
func (p *Principal) IsActive() bool {
	return p != nil && p.User != nil && p.User.IsActive
}

// UserID returns the user's id, or 0 for a nil principal
func (p *Principal) UserID() int64 {
	if p == nil || p.User == nil {
		return 0
	}
	return p.User.ID
}

// PermissionNames returns the capability set sorted by name
func (p *Principal) PermissionNames() []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, len(p.permissions))
	for name := range p.permissions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithPrincipal stores the principal in ctx
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return contextkeys.WithPrincipal(ctx, p)
}

// PrincipalFromContext returns the request principal, or nil when unauthenticated
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(contextkeys.PrincipalKey).(*Principal)
	return p
}
