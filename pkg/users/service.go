package users

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/audit"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/auth"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/rbac"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/storage"
)

// SessionRevoker ends the sessions of an account
type SessionRevoker interface {
	RevokeUserSessions(ctx context.Context, userID int64) (int64, error)
}

// Service manages admin accounts and their role assignments
type Service struct {
	store    *Store
	roles    *rbac.Store
	sessions SessionRevoker
	recorder audit.ModelRecorder
	validate *validator.Validate
	now      func() time.Time
}

// NewService creates a user service. sessions and recorder may be nil.
func NewService(store *Store, roles *rbac.Store, sessions SessionRevoker, recorder audit.ModelRecorder) *Service {
	return &Service{
		store:    store,
		roles:    roles,
		sessions: sessions,
		recorder: recorder,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Store exposes the underlying store for read paths
func (s *Service) Store() *Store {
	return s.store
}

// transaction runs fn with both stores bound to one transaction
func (s *Service) transaction(ctx context.Context, fn func(*Store, *rbac.Store) error) error {
	return storage.InTx(ctx, s.store.db, func(tx *sql.Tx) error {
		return fn(s.store.WithTx(tx), s.roles.WithTx(tx))
	})
}

// List returns one page of accounts with their role names
func (s *Service) List(ctx context.Context, p ListParams) ([]*Account, int, error) {
	accounts, total, err := s.store.List(ctx, p)
	if err != nil {
		return nil, 0, err
	}
	if err := s.attachRoles(ctx, s.roles, accounts...); err != nil {
		return nil, 0, err
	}
	return accounts, total, nil
}

// Get loads an account with its role names
func (s *Service) Get(ctx context.Context, id int64) (*Account, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachRoles(ctx, s.roles, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Roles lists the roles an account can be given
func (s *Service) Roles(ctx context.Context) ([]*rbac.Role, error) {
	return s.roles.AllRoles(ctx)
}

// RoleIDs returns the ids of the roles assigned to an account
func (s *Service) RoleIDs(ctx context.Context, id int64) ([]int64, error) {
	roles, err := s.roles.UserRoles(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(roles))
	for i, r := range roles {
		ids[i] = r.ID
	}
	return ids, nil
}

func (s *Service) attachRoles(ctx context.Context, roles *rbac.Store, accounts ...*Account) error {
	ids := make([]int64, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	names, err := roles.RoleNamesByUser(ctx, ids)
	if err != nil {
		return err
	}
	for _, a := range accounts {
		if n, ok := names[a.ID]; ok {
			a.Roles = n
		}
	}
	return nil
}

func (in *Input) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

// check validates in. id is 0 on create, where a password is required.
func (s *Service) check(ctx context.Context, store *Store, roles *rbac.Store, id int64, in *Input) error {
	fields := apperrors.Fields{}
	if fields.Required("name", in.Name) {
		fields.MaxLength("name", in.Name, 255)
	}
	if fields.Required("email", in.Email) {
		fields.MaxLength("email", in.Email, 255)
		if err := s.validate.Var(in.Email, "email"); err != nil {
			fields.Add("email", "The email must be a valid email address.")
		} else {
			taken, err := store.EmailTaken(ctx, in.Email, id)
			if err != nil {
				return err
			}
			if taken {
				fields.Add("email", "The email has already been taken.")
			}
		}
	}

	if id == 0 {
		fields.Required("password", in.Password)
	}
	if in.Password != "" {
		if len(in.Password) < auth.MinPasswordLength {
			fields.Add("password", fmt.Sprintf("The password must be at least %d characters.", auth.MinPasswordLength))
		} else if in.Password != in.PasswordConfirmation {
			fields.Add("password", "The password confirmation does not match.")
		}
	}

	if in.Roles != nil && len(*in.Roles) > 0 {
		ids := uniqueIDs(*in.Roles)
		n, err := roles.CountRoles(ctx, ids)
		if err != nil {
			return err
		}
		if n != len(ids) {
			fields.Add("roles", "The selected roles is invalid.")
		}
	}
	return fields.Err()
}

// guardLastBypass fails when no active bypass account would remain
func guardLastBypass(ctx context.Context, store *Store, had bool) error {
	if !had {
		return nil
	}
	n, err := store.CountBypassUsers(ctx, 0)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.IntegrityGuard("At least one active super administrator must remain.")
	}
	return nil
}

// Create validates and stores a new account with its roles
func (s *Service) Create(ctx context.Context, in Input) (*Account, error) {
	in.normalize()

	a := &Account{Name: in.Name, Email: in.Email, IsActive: true, Roles: []string{}}
	if in.IsActive != nil {
		a.IsActive = *in.IsActive
	}

	// validate before hashing, bcrypt is slow
	if err := s.check(ctx, s.store, s.roles, 0, &in); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to hash password", err)
	}

	err = s.transaction(ctx, func(store *Store, roles *rbac.Store) error {
		if err := s.check(ctx, store, roles, 0, &in); err != nil {
			return err
		}
		if err := store.Insert(ctx, a, hash, s.now()); err != nil {
			return err
		}
		if in.Roles != nil {
			if err := roles.SyncUserRoles(ctx, a.ID, *in.Roles); err != nil {
				return err
			}
		}
		return s.attachRoles(ctx, roles, a)
	})
	if err != nil {
		return nil, err
	}

	audit.SafeRecordModel(ctx, s.recorder, audit.ModelChange{
		Model:      ModelUser,
		SubjectID:  a.ID,
		Identifier: a.Name,
		Event:      audit.EventCreated,
		Attributes: a.attributes(),
	})
	return a, nil
}

// Update validates and applies changes to an account. Deactivating an
// account or changing its password ends its sessions.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*Account, error) {
	in.normalize()

	if err := s.check(ctx, s.store, s.roles, id, &in); err != nil {
		return nil, err
	}
	var hash string
	if in.Password != "" {
		var err error
		if hash, err = auth.HashPassword(in.Password); err != nil {
			return nil, apperrors.Infrastructure("failed to hash password", err)
		}
	}

	var (
		a      *Account
		before map[string]interface{}
	)
	err := s.transaction(ctx, func(store *Store, roles *rbac.Store) error {
		var err error
		if a, err = store.Get(ctx, id); err != nil {
			return err
		}
		if err := s.attachRoles(ctx, roles, a); err != nil {
			return err
		}
		if err := s.check(ctx, store, roles, id, &in); err != nil {
			return err
		}
		if in.IsActive != nil && !*in.IsActive && id == auth.PrincipalFromContext(ctx).UserID() {
			return apperrors.IntegrityGuard("You cannot deactivate your own account.")
		}
		hadBypass, err := store.IsBypassUser(ctx, id)
		if err != nil {
			return err
		}

		before = a.attributes()
		a.Name, a.Email = in.Name, in.Email
		if in.IsActive != nil {
			a.IsActive = *in.IsActive
		}
		if err := store.Update(ctx, a, hash, s.now()); err != nil {
			return err
		}
		if in.Roles != nil {
			if err := roles.SyncUserRoles(ctx, id, *in.Roles); err != nil {
				return err
			}
		}
		if err := guardLastBypass(ctx, store, hadBypass); err != nil {
			return err
		}
		a.Roles = []string{}
		return s.attachRoles(ctx, roles, a)
	})
	if err != nil {
		return nil, err
	}

	if !a.IsActive || hash != "" {
		s.revokeSessions(ctx, id)
	}

	changed, old := audit.Dirty(before, a.attributes())
	if hash != "" {
		changed["password"] = "********"
	}
	audit.SafeRecordModel(ctx, s.recorder, audit.ModelChange{
		Model:      ModelUser,
		SubjectID:  a.ID,
		Identifier: a.Name,
		Event:      audit.EventUpdated,
		Attributes: changed,
		Old:        old,
	})
	return a, nil
}

// SetActive enables or disables an account. Disabling ends its sessions.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (*Account, error) {
	if !active && id == auth.PrincipalFromContext(ctx).UserID() {
		return nil, apperrors.IntegrityGuard("You cannot deactivate your own account.")
	}

	var (
		a       *Account
		changed bool
	)
	err := s.transaction(ctx, func(store *Store, roles *rbac.Store) error {
		var err error
		if a, err = store.Get(ctx, id); err != nil {
			return err
		}
		if a.IsActive == active {
			return s.attachRoles(ctx, roles, a)
		}
		changed = true
		hadBypass, err := store.IsBypassUser(ctx, id)
		if err != nil {
			return err
		}
		a.IsActive = active
		if err := store.Update(ctx, a, "", s.now()); err != nil {
			return err
		}
		if err := guardLastBypass(ctx, store, hadBypass); err != nil {
			return err
		}
		return s.attachRoles(ctx, roles, a)
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		return a, nil
	}
	if !active {
		s.revokeSessions(ctx, id)
	}
	audit.SafeRecordModel(ctx, s.recorder, audit.ModelChange{
		Model:      ModelUser,
		SubjectID:  a.ID,
		Identifier: a.Name,
		Event:      audit.EventUpdated,
		Attributes: map[string]interface{}{"is_active": active},
		Old:        map[string]interface{}{"is_active": !active},
	})
	return a, nil
}

// Delete removes an account. Accounts cannot delete themselves and the last
// active super administrator cannot be removed.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id == auth.PrincipalFromContext(ctx).UserID() {
		return apperrors.IntegrityGuard("You cannot delete your own account.")
	}

	var a *Account
	err := s.transaction(ctx, func(store *Store, roles *rbac.Store) error {
		var err error
		if a, err = store.Get(ctx, id); err != nil {
			return err
		}
		if err := s.attachRoles(ctx, roles, a); err != nil {
			return err
		}
		hadBypass, err := store.IsBypassUser(ctx, id)
		if err != nil {
			return err
		}
		if err := store.Delete(ctx, id); err != nil {
			return err
		}
		return guardLastBypass(ctx, store, hadBypass)
	})
	if err != nil {
		return err
	}

	audit.SafeRecordModel(ctx, s.recorder, audit.ModelChange{
		Model:      ModelUser,
		SubjectID:  a.ID,
		Identifier: a.Name,
		Event:      audit.EventDeleted,
		Attributes: a.attributes(),
	})
	return nil
}

func (s *Service) revokeSessions(ctx context.Context, id int64) {
	if s.sessions == nil {
		return
	}
	if _, err := s.sessions.RevokeUserSessions(ctx, id); err != nil {
		observability.FromContext(ctx).WithError(err).WithField("user_id", id).Warn("Failed to revoke user sessions")
	}
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
