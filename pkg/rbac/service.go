package rbac

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/audit"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/auth"
)

// Relinker re-resolves the permission links of route access entries. It is
// called after a permission is created, renamed or deleted.
type Relinker interface {
	RelinkPermissions(ctx context.Context) (int, error)
}

// Service validates and applies changes to permissions, groups and roles and
// records each change in the activity log.
type Service struct {
	store    *Store
	recorder audit.ModelRecorder
	relinker Relinker
	now      func() time.Time
}

// NewService creates an RBAC service. recorder and relinker may be nil.
func NewService(store *Store, recorder audit.ModelRecorder, relinker Relinker) *Service {
	return &Service{
		store:    store,
		recorder: recorder,
		relinker: relinker,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Store exposes the underlying store for read paths
func (s *Service) Store() *Store {
	return s.store
}

func (s *Service) relink(ctx context.Context) error {
	if s.relinker == nil {
		return nil
	}
	if _, err := s.relinker.RelinkPermissions(ctx); err != nil {
		return apperrors.Infrastructure("failed to relink route permissions", err)
	}
	return nil
}

func (s *Service) validatePermission(ctx context.Context, in *PermissionInput, exceptID int64) error {
	in.Name = strings.TrimSpace(in.Name)
	fields := apperrors.Fields{}
	if fields.Required("name", in.Name) {
		fields.MaxLength("name", in.Name, 255)
		taken, err := s.store.PermissionNameTaken(ctx, in.Name, exceptID)
		if err != nil {
			return err
		}
		if taken {
			fields.Add("name", "The name has already been taken.")
		}
	}
	fields.MaxLength("description", in.Description, 1000)
	if in.GroupID != nil {
		ok, err := s.store.GroupExists(ctx, *in.GroupID)
		if err != nil {
			return err
		}
		if !ok {
			fields.Add("permission_group_id", "The selected permission group is invalid.")
		}
	}
	return fields.Err()
}

// CreatePermission validates and stores a new permission
func (s *Service) CreatePermission(ctx context.Context, in PermissionInput) (*Permission, error) {
	if err := s.validatePermission(ctx, &in, 0); err != nil {
		return nil, err
	}

	p := &Permission{Name: in.Name, GuardName: GuardWeb, Description: in.Description, GroupID: in.GroupID}
	if err := s.store.CreatePermission(ctx, p, s.now()); err != nil {
		return nil, err
	}

	audit.SafeRecordModel(ctx, s.recorder, audit.ModelChange{
		Model:      ModelPermission,
		SubjectID:  p.ID,
		Identifier: p.Name,
		Event:      audit.EventCreated,
		Attributes: p.attributes(),
	})
	if err := s.relink(ctx); err != nil {
		return p, err
	}
	return p, nil
}

// UpdatePermission validates and applies changes to a permission. A rename
// relinks route access entries.
func (s *Service) UpdatePermission(ctx context.Context, id int64, in PermissionInput) (*Permission, error) {
	p, err := s.store.GetPermission(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validatePermission(ctx, &in, id); err != nil {
		return nil, err
	}

	before := p.attributes()
	renamed := p.Name != in.Name
	p.Name, p.Description, p.GroupID = in.Name, in.Description, in.GroupID
	if err := s.store.UpdatePermission(ctx, p, s.now()); err != nil {
		return nil, err
	}

	changed, old := audit.Dirty(before, p.attributes())
	audit.SafeRecordModel(ctx, s.recorder, audit.ModelChange{
		Model:      ModelPermission,
		SubjectID:  p.ID,
		Identifier: p.Name,
		Event:      audit.EventUpdated,
		Attributes: changed,
		Old:        old,
	})
	if renamed {
		if err := s.relink(ctx); err != nil {
			return p, err
		}
	}
	return p, nil
}

// DeletePermission removes a permission and clears links to it
func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	p, err := s.store.GetPermission(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeletePermission(ctx, id); err != nil {
		return err
	}

	audit.SafeRecordModel(ctx, s.recorder, audit.ModelChange{
		Model:      ModelPermission,
		SubjectID:  p.ID,
		Identifier: p.Name,
		Event:      audit.EventDeleted,
		Attributes: p.attributes(),
	})
	return s.relink(ctx)
}

func (s *Service) validateGroup(ctx context.Context, in *GroupInput, exceptID int64) error {
	in.Name = strings.TrimSpace(in.Name)
	fields := apperrors.Fields{}
	if fields.Required("name", in.Name) {
		fields.MaxLength("name", in.Name, 255)
		taken, err := s.store.GroupNameTaken(ctx, in.Name, exceptID)
		if err != nil {
			return err
		}
		if taken {
			fields.Add("name", "The name has already been taken.")
		}
	}
	fields.MaxLength("description", in.Description, 1000)
	if in.Order != nil && *in.Order < 0 {
		fields.Add("order", "The order must be at least 0.")
	}
	return fields.Err()
}

// CreateGroup validates and stores a new permission group
func (s *Service) CreateGroup(ctx context.Context, in GroupInput) (*PermissionGroup, error) {
	if err := s.validateGroup(ctx, &in, 0); err != nil {
		return nil, err
	}

	g := &PermissionGroup{Name: in.Name, Description: in.Description}
	if in.Order != nil {
		g.Order = *in.Order
	}
	if err := s.store.CreateGroup(ctx, g, s.now()); err != nil {
		return nil, err
	}

	audit.SafeRecordModel(ctx, s.recorder, audit.ModelChange{
		Model:      ModelPermissionGroup,
		SubjectID:  g.ID,
		Identifier: g.Name,
		Event:      audit.EventCreated,
		Attributes: g.attributes(),
	})
	return g, nil
}

// UpdateGroup validates and applies changes to a group. A nil order keeps
// the current one.
func (s *Service) UpdateGroup(ctx context.Context, id int64, in GroupInput) (*PermissionGroup, error) {
	g, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateGroup(ctx, &in, id); err != nil {
		return nil, err
	}

	before := g.attributes()
	g.Name, g.Description = in.Name, in.Description
	if in.Order != nil {
		g.Order = *in.Order
	}
	if err := s.store.UpdateGroup(ctx, g, s.now()); err != nil {
		return nil, err
	}

	changed, old := audit.Dirty(before, g.attributes())
	audit.SafeRecordModel(ctx, s.recorder, audit.ModelChange{
		Model:      ModelPermissionGroup,
		SubjectID:  g.ID,
		Identifier: g.Name,
		Event:      audit.EventUpdated,
		Attributes: changed,
		Old:        old,
	})
	return g, nil
}

// DeleteGroup removes a group that no permission references
func (s *Service) DeleteGroup(ctx context.Context, id int64) error {
	g, err := s.store.GetGroup(ctx, id)
	if err != nil {
		return err
	}
	if g.PermissionsCount > 0 {
		return apperrors.Conflict("Cannot delete permission group with existing permissions.")
	}
	if err := s.store.DeleteGroup(ctx, id); err != nil {
		return err
	}

	audit.SafeRecordModel(ctx, s.recorder, audit.ModelChange{
		Model:      ModelPermissionGroup,
		SubjectID:  g.ID,
		Identifier: g.Name,
		Event:      audit.EventDeleted,
		Attributes: g.attributes(),
	})
	return nil
}

func (s *Service) validateRole(ctx context.Context, in *RoleInput, exceptID int64) error {
	in.Name = strings.TrimSpace(in.Name)
	fields := apperrors.Fields{}
	if fields.Required("name", in.Name) {
		fields.MaxLength("name", in.Name, 255)
		taken, err := s.store.RoleNameTaken(ctx, in.Name, exceptID)
		if err != nil {
			return err
		}
		if taken {
			fields.Add("name", "The name has already been taken.")
		}
	}
	if in.Permissions != nil && len(*in.Permissions) > 0 {
		ids := unique(*in.Permissions)
		n, err := s.store.CountPermissions(ctx, ids)
		if err != nil {
			return err
		}
		if n != len(ids) {
			fields.Add("permissions", "The selected permissions are invalid.")
		}
	}
	return fields.Err()
}

// CreateRole validates and stores a new role with its grants. The bypass
// flag can only be set here, and only by a principal that already holds a
// bypass role.
func (s *Service) CreateRole(ctx context.Context, in RoleInput) (*Role, error) {
	if in.IsBypass && !auth.PrincipalFromContext(ctx).HasBypassRole() {
		return nil, apperrors.Forbidden(ReasonBypassRequired, "Only a bypass account can create a bypass role.")
	}
	if err := s.validateRole(ctx, &in, 0); err != nil {
		return nil, err
	}

	role := &Role{Name: in.Name, GuardName: GuardWeb, IsBypass: in.IsBypass}
	err := s.store.Transaction(ctx, func(tx *Store) error {
		if err := tx.CreateRole(ctx, role, s.now()); err != nil {
			return err
		}
		if in.Permissions != nil {
			return tx.SyncRolePermissions(ctx, role.ID, *in.Permissions)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := s.store.GetRole(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	attrs := created.attributes()
	attrs["permissions"] = permissionNames(created.Permissions)
	audit.SafeRecordModel(ctx, s.recorder, audit.ModelChange{
		Model:      ModelRole,
		SubjectID:  created.ID,
		Identifier: created.Name,
		Event:      audit.EventCreated,
		Attributes: attrs,
	})
	return created, nil
}

// UpdateRole renames a role and, when Permissions is given, replaces its
// grants. The bypass role cannot be renamed.
func (s *Service) UpdateRole(ctx context.Context, id int64, in RoleInput) (*Role, error) {
	role, err := s.store.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.IsBypass && strings.TrimSpace(in.Name) != role.Name {
		return nil, apperrors.IntegrityGuard(fmt.Sprintf("Cannot modify the %s role name.", role.Name))
	}
	if err := s.validateRole(ctx, &in, id); err != nil {
		return nil, err
	}

	before := role.attributes()
	before["permissions"] = permissionNames(role.Permissions)

	err = s.store.Transaction(ctx, func(tx *Store) error {
		if err := tx.RenameRole(ctx, id, in.Name, s.now()); err != nil {
			return err
		}
		if in.Permissions != nil {
			return tx.SyncRolePermissions(ctx, id, *in.Permissions)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.store.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}
	after := updated.attributes()
	after["permissions"] = permissionNames(updated.Permissions)
	changed, old := audit.Dirty(before, after)
	audit.SafeRecordModel(ctx, s.recorder, audit.ModelChange{
		Model:      ModelRole,
		SubjectID:  updated.ID,
		Identifier: updated.Name,
		Event:      audit.EventUpdated,
		Attributes: changed,
		Old:        old,
	})
	return updated, nil
}

// DeleteRole removes a role. The bypass role cannot be deleted.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	role, err := s.store.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsBypass {
		return apperrors.IntegrityGuard(fmt.Sprintf("Cannot delete the %s role.", role.Name))
	}
	if err := s.store.DeleteRole(ctx, id); err != nil {
		return err
	}

	audit.SafeRecordModel(ctx, s.recorder, audit.ModelChange{
		Model:      ModelRole,
		SubjectID:  role.ID,
		Identifier: role.Name,
		Event:      audit.EventDeleted,
		Attributes: role.attributes(),
	})
	return nil
}

func permissionNames(perms []*Permission) []string {
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = p.Name
	}
	return names
}
