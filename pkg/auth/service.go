package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
)

// Login failure reasons
var (
	ErrInvalidCredentials = apperrors.Forbidden("invalid_credentials", "these credentials do not match our records")
	ErrAccountDisabled    = apperrors.Forbidden("account_disabled", "this account has been disabled")
	ErrInvalidSession     = apperrors.Forbidden("unauthenticated", "invalid or expired session")
)

// Service implements password login and session lifecycle
type Service struct {
	store      *Store
	tokens     *TokenGenerator
	sessionTTL time.Duration
	now        func() time.Time
}

// NewService creates an auth service issuing sessions valid for sessionTTL
func NewService(store *Store, sessionTTL time.Duration) *Service {
	return &Service{
		store:      store,
		tokens:     NewTokenGenerator(),
		sessionTTL: sessionTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// LoginResult is returned by a successful login. Token is shown once.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// Login verifies credentials and opens a session. The user is returned
// alongside ErrInvalidCredentials and ErrAccountDisabled when the email is
// known, so callers can attribute failed attempts.
func (s *Service) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, *User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, nil, apperrors.Validation("email and password are required", map[string]string{
			"email":    "required",
			"password": "required",
		})
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if apperrors.IsNotFound(err) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	ok, err := CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, user, err
	}
	if !ok {
		return nil, user, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, user, ErrAccountDisabled
	}

	token, hash, err := s.tokens.GenerateToken()
	if err != nil {
		return nil, user, err
	}

	now := s.now()
	session := &Session{
		UserID:    user.ID,
		TokenHash: hash,
		IPAddress: ip,
		UserAgent: userAgent,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, user, err
	}

	return &LoginResult{Token: token, ExpiresAt: session.ExpiresAt, User: user}, user, nil
}

// Authenticate resolves a bearer token to its session and user. Inactive
// users are returned as-is; the authorization gate decides what to do.
func (s *Service) Authenticate(ctx context.Context, token string) (*Session, *User, error) {
	if err := s.tokens.ValidateTokenFormat(token); err != nil {
		return nil, nil, ErrInvalidSession
	}

	now := s.now()
	session, user, err := s.store.GetSessionByTokenHash(ctx, s.tokens.HashToken(token), now)
	if apperrors.IsNotFound(err) {
		return nil, nil, ErrInvalidSession
	}
	if err != nil {
		return nil, nil, err
	}

	if err := s.store.TouchSession(ctx, session.ID, now); err != nil {
		return nil, nil, err
	}
	session.LastUsedAt = &now
	return session, user, nil
}

// RevokeSession ends one session
func (s *Service) RevokeSession(ctx context.Context, sessionID int64) error {
	return s.store.DeleteSession(ctx, sessionID)
}

// RevokeUserSessions ends every session of a user
func (s *Service) RevokeUserSessions(ctx context.Context, userID int64) (int64, error) {
	return s.store.DeleteUserSessions(ctx, userID)
}

// CleanupExpiredSessions removes expired sessions
func (s *Service) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("session cleanup failed: %w", err)
	}
	return n, nil
}
