package menu

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/apperrors"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/audit"
	"github.com/NeoEdge09/remastered-starter-kit/pkg/routes"
)

// RouteSelector offers named routes as menu targets
type RouteSelector interface {
	RoutesForSelect() ([]routes.SelectOption, error)
}

// Service manages menus and builds navigation trees
type Service struct {
	store    *Store
	routes   RouteSelector
	recorder audit.ModelRecorder
	now      func() time.Time
}

// NewService creates a menu service. recorder may be nil.
func NewService(store *Store, selector RouteSelector, recorder audit.ModelRecorder) *Service {
	return &Service{
		store:    store,
		routes:   selector,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Store exposes the underlying store for read paths
func (s *Service) Store() *Store {
	return s.store
}

// AdminTree returns every menu, active or not, as a tree
func (s *Service) AdminTree(ctx context.Context) ([]*Menu, error) {
	tree, err := s.store.Tree(ctx)
	if err != nil {
		return nil, err
	}
	return tree.Build(false), nil
}

// ActiveTree returns the active menus as a tree
func (s *Service) ActiveTree(ctx context.Context) ([]*Menu, error) {
	tree, err := s.store.Tree(ctx)
	if err != nil {
		return nil, err
	}
	return tree.Build(true), nil
}

// ForViewer returns the active navigation visible to viewer. A nil viewer
// sees nothing.
func (s *Service) ForViewer(ctx context.Context, viewer Viewer) ([]Item, error) {
	if viewer == nil {
		return []Item{}, nil
	}
	roots, err := s.ActiveTree(ctx)
	if err != nil {
		return nil, err
	}
	return Items(Filter(roots, viewer)), nil
}

// FormData is what the create and edit forms offer
type FormData struct {
	Menus         []*Menu               `json:"menus"`
	ParentOptions []ParentOption        `json:"parentOptions"`
	Permissions   []PermissionOption    `json:"permissions"`
	Routes        []routes.SelectOption `json:"routes"`
}

// FormData loads the form choices. Parent options leave out except and its
// descendants; pass 0 on create.
func (s *Service) FormData(ctx context.Context, except int64) (*FormData, error) {
	tree, err := s.store.Tree(ctx)
	if err != nil {
		return nil, err
	}
	permissions, err := s.store.Permissions(ctx)
	if err != nil {
		return nil, err
	}
	options := []routes.SelectOption{}
	if s.routes != nil {
		if options, err = s.routes.RoutesForSelect(); err != nil {
			return nil, apperrors.Infrastructure("failed to list routes", err)
		}
	}
	return &FormData{
		Menus:         tree.Build(false),
		ParentOptions: tree.ParentOptions(except),
		Permissions:   permissions,
		Routes:        options,
	}, nil
}

func (in *Input) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.RouteName = strings.TrimSpace(in.RouteName)
	in.URL = strings.TrimSpace(in.URL)
	in.Icon = strings.TrimSpace(in.Icon)
	in.PermissionName = strings.TrimSpace(in.PermissionName)
}

// validate checks in against the stored tree. id is 0 on create.
func (s *Service) validate(ctx context.Context, store *Store, tree *Tree, id int64, in *Input) error {
	fields := apperrors.Fields{}
	if fields.Required("name", in.Name) {
		fields.MaxLength("name", in.Name, 255)
	}
	fields.MaxLength("route_name", in.RouteName, 255)
	fields.MaxLength("url", in.URL, 500)
	fields.MaxLength("icon", in.Icon, 100)
	if in.RouteName != "" && in.URL != "" {
		fields.Add("url", "The url field is prohibited when route name is present.")
	}
	if in.Order != nil && *in.Order < 0 {
		fields.Add("order", "The order must be at least 0.")
	}
	if in.ParentID != nil {
		if _, ok := tree.Get(*in.ParentID); !ok {
			fields.Add("parent_id", "The selected parent id is invalid.")
		} else if id != 0 && tree.WouldCycle(id, *in.ParentID) {
			fields.Add("parent_id", "A menu cannot be its own ancestor.")
		}
	}
	if in.PermissionName != "" {
		fields.MaxLength("permission_name", in.PermissionName, 255)
		ok, err := store.PermissionExists(ctx, in.PermissionName)
		if err != nil {
			return err
		}
		if !ok {
			fields.Add("permission_name", "The selected permission name is invalid.")
		}
	}
	return fields.Err()
}

// Create validates and stores a new menu
func (s *Service) Create(ctx context.Context, in Input) (*Menu, error) {
	in.normalize()

	m := &Menu{
		Name:           in.Name,
		RouteName:      in.RouteName,
		URL:            in.URL,
		Icon:           in.Icon,
		ParentID:       in.ParentID,
		PermissionName: in.PermissionName,
		IsActive:       true,
	}
	if in.Order != nil {
		m.Order = *in.Order
	}
	if in.IsActive != nil {
		m.IsActive = *in.IsActive
	}

	err := s.store.Transaction(ctx, func(tx *Store) error {
		tree, err := tx.Tree(ctx)
		if err != nil {
			return err
		}
		if err := s.validate(ctx, tx, tree, 0, &in); err != nil {
			return err
		}
		return tx.Insert(ctx, m, s.now())
	})
	if err != nil {
		return nil, err
	}

	audit.SafeRecordModel(ctx, s.recorder, audit.ModelChange{
		Model:      ModelMenu,
		SubjectID:  m.ID,
		Identifier: m.Name,
		Event:      audit.EventCreated,
		Attributes: m.attributes(),
	})
	return m, nil
}

// Update validates and applies changes to a menu. Moving a menu below one
// of its own descendants is rejected.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*Menu, error) {
	in.normalize()

	var (
		m      *Menu
		before map[string]interface{}
	)
	err := s.store.Transaction(ctx, func(tx *Store) error {
		var err error
		if m, err = tx.Get(ctx, id); err != nil {
			return err
		}
		tree, err := tx.Tree(ctx)
		if err != nil {
			return err
		}
		if err := s.validate(ctx, tx, tree, id, &in); err != nil {
			return err
		}

		before = m.attributes()
		m.Name, m.RouteName, m.URL, m.Icon = in.Name, in.RouteName, in.URL, in.Icon
		m.ParentID, m.PermissionName = in.ParentID, in.PermissionName
		if in.Order != nil {
			m.Order = *in.Order
		}
		if in.IsActive != nil {
			m.IsActive = *in.IsActive
		}
		return tx.Update(ctx, m, s.now())
	})
	if err != nil {
		return nil, err
	}

	changed, old := audit.Dirty(before, m.attributes())
	audit.SafeRecordModel(ctx, s.recorder, audit.ModelChange{
		Model:      ModelMenu,
		SubjectID:  m.ID,
		Identifier: m.Name,
		Event:      audit.EventUpdated,
		Attributes: changed,
		Old:        old,
	})
	return m, nil
}

// Delete removes a menu and all of its descendants in one transaction
func (s *Service) Delete(ctx context.Context, id int64) error {
	var removed []*Menu
	err := s.store.Transaction(ctx, func(tx *Store) error {
		tree, err := tx.Tree(ctx)
		if err != nil {
			return err
		}
		root, ok := tree.Get(id)
		if !ok {
			return apperrors.NotFound("menu", id)
		}

		ids := append([]int64{id}, tree.Descendants(id)...)
		removed = []*Menu{root}
		for _, d := range ids[1:] {
			m, _ := tree.Get(d)
			removed = append(removed, m)
		}
		_, err = tx.DeleteIDs(ctx, ids)
		return err
	})
	if err != nil {
		return err
	}

	for _, m := range removed {
		audit.SafeRecordModel(ctx, s.recorder, audit.ModelChange{
			Model:      ModelMenu,
			SubjectID:  m.ID,
			Identifier: m.Name,
			Event:      audit.EventDeleted,
			Attributes: m.attributes(),
		})
	}
	return nil
}

// Reorder applies every position at once. Either all positions are applied
// or none are.
func (s *Service) Reorder(ctx context.Context, positions []Position) error {
	if len(positions) == 0 {
		return apperrors.FieldError("menus", "The menus field is required.")
	}

	now := s.now()
	return s.store.Transaction(ctx, func(tx *Store) error {
		tree, err := tx.Tree(ctx)
		if err != nil {
			return err
		}

		fields := apperrors.Fields{}
		parents := make(map[int64]*int64, len(tree.nodes))
		for id, m := range tree.nodes {
			parents[id] = m.ParentID
		}
		for i, p := range positions {
			if _, ok := tree.Get(p.ID); !ok {
				field := fmt.Sprintf("menus.%d.id", i)
				fields.Add(field, fmt.Sprintf("The selected %s is invalid.", field))
				continue
			}
			if p.ParentID != nil {
				if _, ok := tree.Get(*p.ParentID); !ok {
					field := fmt.Sprintf("menus.%d.parent_id", i)
					fields.Add(field, fmt.Sprintf("The selected %s is invalid.", field))
				}
			}
			if p.Order < 0 {
				field := fmt.Sprintf("menus.%d.order", i)
				fields.Add(field, fmt.Sprintf("The %s must be at least 0.", field))
			}
			parents[p.ID] = p.ParentID
		}
		if err := fields.Err(); err != nil {
			return err
		}
		if HasCycle(parents) {
			return apperrors.FieldError("menus", "A menu cannot be its own ancestor.")
		}

		for _, p := range positions {
			if err := tx.SetPosition(ctx, p.ID, p.ParentID, p.Order, now); err != nil {
				return err
			}
		}
		return nil
	})
}
