package access

import (
	"context"
	"strings"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/audit"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/routes"
)

// FormData is what the create and edit forms offer
type FormData struct {
	Permissions        []PermissionOption `json:"permissions"`
	UnregisteredRoutes []routes.Route     `json:"unregisteredRoutes"`
}

func (in *Input) normalize() {
	in.RouteName = strings.TrimSpace(in.RouteName)
	in.RouteURI = strings.TrimSpace(in.RouteURI)
	in.RouteMethod = strings.ToUpper(strings.TrimSpace(in.RouteMethod))
	in.PermissionName = strings.TrimSpace(in.PermissionName)
}

func (in *Input) validate(ctx context.Context, store *Store, exceptID int64) error {
	fields := apperrors.Fields{}
	if fields.Required("route_name", in.RouteName) {
		fields.MaxLength("route_name", in.RouteName, 255)
		taken, err := store.NameTaken(ctx, in.RouteName, exceptID)
		if err != nil {
			return err
		}
		if taken {
			fields.Add("route_name", "The route name has already been taken.")
		}
	}
	fields.MaxLength("route_uri", in.RouteURI, 255)
	fields.MaxLength("route_method", in.RouteMethod, 10)
	fields.MaxLength("permission_name", in.PermissionName, 255)
	fields.MaxLength("description", in.Description, 1000)
	return fields.Err()
}

// link resolves the permission id of e from its permission name
func link(ctx context.Context, store *Store, e *Entry) error {
	e.PermissionID = nil
	if e.PermissionName == "" {
		return nil
	}
	permissions, err := store.PermissionIDs(ctx)
	if err != nil {
		return err
	}
	if id, ok := permissions[e.PermissionName]; ok {
		e.PermissionID = &id
	}
	return nil
}

// Create validates and stores a new entry
func (r *Registry) Create(ctx context.Context, in Input) (*Entry, error) {
	in.normalize()

	e := &Entry{
		RouteName:      in.RouteName,
		RouteURI:       in.RouteURI,
		RouteMethod:    in.RouteMethod,
		PermissionName: in.PermissionName,
		IsActive:       true,
		Description:    in.Description,
	}
	if in.IsActive != nil {
		e.IsActive = *in.IsActive
	}
	if in.IsPublic != nil {
		e.IsPublic = *in.IsPublic
	}

	err := r.store.Transaction(ctx, func(tx *Store) error {
		if err := in.validate(ctx, tx, 0); err != nil {
			return err
		}
		if err := link(ctx, tx, e); err != nil {
			return err
		}
		return tx.Insert(ctx, e, r.now())
	})
	if err != nil {
		return nil, err
	}

	if err := r.Invalidate(ctx); err != nil {
		return e, err
	}
	r.record(ctx, audit.EventCreated, e, e.attributes(), nil)
	return e, nil
}

// Update validates and applies changes to an entry
func (r *Registry) Update(ctx context.Context, id int64, in Input) (*Entry, error) {
	in.normalize()

	var (
		e      *Entry
		before map[string]interface{}
	)
	err := r.store.Transaction(ctx, func(tx *Store) error {
		var err error
		e, err = tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := in.validate(ctx, tx, id); err != nil {
			return err
		}

		before = e.attributes()
		e.RouteName, e.RouteURI, e.RouteMethod = in.RouteName, in.RouteURI, in.RouteMethod
		e.PermissionName, e.Description = in.PermissionName, in.Description
		if in.IsActive != nil {
			e.IsActive = *in.IsActive
		}
		if in.IsPublic != nil {
			e.IsPublic = *in.IsPublic
		}
		if err := link(ctx, tx, e); err != nil {
			return err
		}
		return tx.Update(ctx, e, r.now())
	})
	if err != nil {
		return nil, err
	}

	if err := r.Invalidate(ctx); err != nil {
		return e, err
	}
	changed, old := audit.Dirty(before, e.attributes())
	r.record(ctx, audit.EventUpdated, e, changed, old)
	return e, nil
}

// Delete removes an entry
func (r *Registry) Delete(ctx context.Context, id int64) error {
	e, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	if err := r.Invalidate(ctx); err != nil {
		return err
	}
	r.record(ctx, audit.EventDeleted, e, e.attributes(), nil)
	return nil
}

// requireIDs checks that ids is non-empty and every id exists
func (r *Registry) requireIDs(ctx context.Context, ids []int64) ([]int64, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, apperrors.FieldError("ids", "The ids field is required.")
	}
	n, err := r.store.CountIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if n != len(ids) {
		return nil, apperrors.FieldError("ids", "The selected ids is invalid.")
	}
	return ids, nil
}

// BulkDelete removes every entry in ids as one statement. Bulk deletes are
// not recorded per entry in the activity log.
func (r *Registry) BulkDelete(ctx context.Context, ids []int64) (int64, error) {
	ids, err := r.requireIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	n, err := r.store.DeleteIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	if err := r.Invalidate(ctx); err != nil {
		return n, err
	}
	return n, nil
}

// BulkSetFlag sets flag on every entry in ids and invalidates once
func (r *Registry) BulkSetFlag(ctx context.Context, ids []int64, flag Flag, value bool) (int64, error) {
	if flag != FlagActive && flag != FlagPublic {
		return 0, apperrors.FieldError("field", "The selected field is invalid.")
	}
	ids, err := r.requireIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	n, err := r.store.SetFlag(ctx, ids, flag, value, r.now())
	if err != nil {
		return 0, err
	}
	if err := r.Invalidate(ctx); err != nil {
		return n, err
	}
	return n, nil
}

// BulkUpdate applies a named bulk action and returns its success message
func (r *Registry) BulkUpdate(ctx context.Context, ids []int64, action string) (string, error) {
	a, ok := bulkActions[action]
	if !ok {
		return "", apperrors.FieldError("action", "The selected action is invalid.")
	}
	if _, err := r.BulkSetFlag(ctx, ids, a.flag, a.value); err != nil {
		return "", err
	}
	return a.message, nil
}

// List returns a page of entries, the total match count and the number of
// catalog routes without an entry
func (r *Registry) List(ctx context.Context, p ListParams) ([]*Entry, int, int, error) {
	entries, total, err := r.store.List(ctx, p)
	if err != nil {
		return nil, 0, 0, err
	}
	unregistered, err := r.UnregisteredRoutes(ctx, nil)
	if err != nil {
		return nil, 0, 0, err
	}
	return entries, total, len(unregistered), nil
}

// FormData returns the permissions and unregistered routes offered by the
// entry forms
func (r *Registry) FormData(ctx context.Context) (*FormData, error) {
	permissions, err := r.store.Permissions(ctx)
	if err != nil {
		return nil, err
	}
	unregistered, err := r.UnregisteredRoutes(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &FormData{Permissions: permissions, UnregisteredRoutes: unregistered}, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
