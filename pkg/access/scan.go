package access

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/audit"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/observability"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/routes"
)

type pendingChange struct {
	event string
	entry *Entry
	attrs map[string]interface{}
	old   map[string]interface{}
}

// Scan reconciles the entry table with the route catalog. Only routes whose
// name starts with one of prefixes are considered; an empty prefix list
// means every route. Existing entries keep their flags and description.
// Entries missing from the catalog are removed only when prefixes is
// non-empty, and only if they match one of the prefixes.
func (r *Registry) Scan(ctx context.Context, prefixes []string) (ScanResult, error) {
	ctx, span := observability.StartSpan(ctx, "access.scan",
		attribute.StringSlice("access.prefixes", prefixes))
	defer span.End()

	listed, err := r.catalog.List(prefixes)
	if err != nil {
		return ScanResult{}, apperrors.Infrastructure("failed to list routes", err)
	}
	listed = routes.FirstPerName(listed)

	var (
		result  ScanResult
		changes []pendingChange
	)
	now := r.now()

	err = r.store.Transaction(ctx, func(tx *Store) error {
		// counts and changes only survive a committed transaction
		result, changes = ScanResult{}, nil

		permissions, err := tx.PermissionIDs(ctx)
		if err != nil {
			return err
		}
		all, err := tx.All(ctx)
		if err != nil {
			return err
		}
		existing := make(map[string]*Entry, len(all))
		for _, e := range all {
			existing[e.RouteName] = e
		}

		seen := make(map[string]struct{}, len(listed))
		for _, route := range listed {
			seen[route.Name] = struct{}{}

			var (
				permissionName string
				permissionID   *int64
			)
			name := routes.InferPermissionName(route.Name)
			if id, ok := permissions[name]; ok {
				id := id
				permissionName, permissionID = name, &id
				result.Matched++
			}

			e, ok := existing[route.Name]
			if !ok {
				e = &Entry{
					RouteName:      route.Name,
					RouteURI:       route.URI,
					RouteMethod:    route.Method,
					PermissionName: permissionName,
					PermissionID:   permissionID,
					IsActive:       true,
				}
				if err := tx.Insert(ctx, e, now); err != nil {
					return err
				}
				result.Created++
				changes = append(changes, pendingChange{event: audit.EventCreated, entry: e, attrs: e.attributes()})
				continue
			}

			before := e.attributes()
			e.RouteURI, e.RouteMethod = route.URI, route.Method
			e.PermissionName, e.PermissionID = permissionName, permissionID
			changed, old := audit.Dirty(before, e.attributes())
			if len(changed) == 0 {
				continue
			}
			if err := tx.Update(ctx, e, now); err != nil {
				return err
			}
			result.Updated++
			changes = append(changes, pendingChange{event: audit.EventUpdated, entry: e, attrs: changed, old: old})
		}

		if len(prefixes) == 0 {
			return nil
		}
		for _, e := range all {
			if _, ok := seen[e.RouteName]; ok || !routes.HasAnyPrefix(e.RouteName, prefixes) {
				continue
			}
			if err := tx.Delete(ctx, e.ID); err != nil {
				return err
			}
			result.Removed++
			changes = append(changes, pendingChange{event: audit.EventDeleted, entry: e, attrs: e.attributes()})
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scan failed")
		if _, ok := apperrors.As(err); ok {
			return ScanResult{}, err
		}
		return ScanResult{}, apperrors.Infrastructure("failed to scan routes", err)
	}

	if err := r.Invalidate(ctx); err != nil {
		return result, err
	}
	for _, c := range changes {
		r.record(ctx, c.event, c.entry, c.attrs, c.old)
	}

	span.SetAttributes(
		attribute.Int("access.created", result.Created),
		attribute.Int("access.updated", result.Updated),
		attribute.Int("access.removed", result.Removed),
		attribute.Int("access.matched", result.Matched),
	)
	if r.metrics != nil {
		r.metrics.ScanRoutesTotal.WithLabelValues("created").Add(float64(result.Created))
		r.metrics.ScanRoutesTotal.WithLabelValues("updated").Add(float64(result.Updated))
		r.metrics.ScanRoutesTotal.WithLabelValues("removed").Add(float64(result.Removed))
		r.metrics.ScanRoutesTotal.WithLabelValues("matched").Add(float64(result.Matched))
	}
	observability.FromContext(ctx).WithFields(map[string]interface{}{
		"created": result.Created,
		"updated": result.Updated,
		"removed": result.Removed,
		"matched": result.Matched,
	}).Info("Route scan completed")
	return result, nil
}

// RelinkPermissions points every entry that names a permission at that
// permission's current id, or clears the link when it no longer exists.
// It returns the number of entries changed.
func (r *Registry) RelinkPermissions(ctx context.Context) (int, error) {
	changed := 0
	now := r.now()

	err := r.store.Transaction(ctx, func(tx *Store) error {
		changed = 0
		permissions, err := tx.PermissionIDs(ctx)
		if err != nil {
			return err
		}
		all, err := tx.All(ctx)
		if err != nil {
			return err
		}
		for _, e := range all {
			if e.PermissionName == "" {
				continue
			}
			var want *int64
			if id, ok := permissions[e.PermissionName]; ok {
				id := id
				want = &id
			}
			if sameID(e.PermissionID, want) {
				continue
			}
			if err := tx.SetLink(ctx, e.ID, e.PermissionName, want, now); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, apperrors.Infrastructure("failed to relink route permissions", err)
	}

	if changed > 0 {
		if err := r.Invalidate(ctx); err != nil {
			return changed, err
		}
	}
	return changed, nil
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// UnregisteredRoutes lists catalog routes, one per name, that have no entry
func (r *Registry) UnregisteredRoutes(ctx context.Context, prefixes []string) ([]routes.Route, error) {
	listed, err := r.catalog.List(prefixes)
	if err != nil {
		return nil, apperrors.Infrastructure("failed to list routes", err)
	}
	registered, err := r.store.RouteNames(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]routes.Route, 0)
	for _, route := range routes.FirstPerName(listed) {
		if _, ok := registered[route.Name]; !ok {
			out = append(out, route)
		}
	}
	return out, nil
}
