package menu

import "sort"

// Viewer is the capability set a tree is filtered against
type Viewer interface {
	HasPermission(name string) bool
	HasBypassRole() bool
}

// Tree is an arena of menus indexed by id with a parent to children
// adjacency. Children are kept sorted by order, then id. Traversals are
// iterative and tolerate cycles: nodes on a cycle are never reachable from
// a root.
type Tree struct {
	nodes    map[int64]*Menu
	roots    []int64
	children map[int64][]int64
}

// NewTree indexes menus. Menus whose parent is missing are treated as roots.
func NewTree(menus []*Menu) *Tree {
	t := &Tree{
		nodes:    make(map[int64]*Menu, len(menus)),
		children: make(map[int64][]int64),
	}
	for _, m := range menus {
		t.nodes[m.ID] = m
	}
	for _, m := range menus {
		if m.ParentID != nil {
			if _, ok := t.nodes[*m.ParentID]; ok {
				t.children[*m.ParentID] = append(t.children[*m.ParentID], m.ID)
				continue
			}
		}
		t.roots = append(t.roots, m.ID)
	}

	t.sortIDs(t.roots)
	for _, ids := range t.children {
		t.sortIDs(ids)
	}
	return t
}

func (t *Tree) sortIDs(ids []int64) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := t.nodes[ids[i]], t.nodes[ids[j]]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.ID < b.ID
	})
}

// Get returns the menu with id
func (t *Tree) Get(id int64) (*Menu, bool) {
	m, ok := t.nodes[id]
	return m, ok
}

// Build materializes the nested tree as fresh copies. With activeOnly,
// inactive menus and everything below them are left out.
func (t *Tree) Build(activeOnly bool) []*Menu {
	type frame struct {
		id    int64
		clone *Menu
	}

	roots := make([]*Menu, 0, len(t.roots))
	queue := make([]frame, 0, len(t.nodes))
	visited := make(map[int64]struct{}, len(t.nodes))

	for _, id := range t.roots {
		m := t.nodes[id]
		if activeOnly && !m.IsActive {
			continue
		}
		c := m.clone()
		roots = append(roots, c)
		visited[id] = struct{}{}
		queue = append(queue, frame{id, c})
	}

	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		for _, childID := range t.children[f.id] {
			if _, seen := visited[childID]; seen {
				continue
			}
			child := t.nodes[childID]
			if activeOnly && !child.IsActive {
				continue
			}
			visited[childID] = struct{}{}
			c := child.clone()
			f.clone.Children = append(f.clone.Children, c)
			queue = append(queue, frame{childID, c})
		}
	}
	return roots
}

// Descendants returns the ids below id, breadth first
func (t *Tree) Descendants(id int64) []int64 {
	var out []int64
	visited := map[int64]struct{}{id: {}}
	queue := []int64{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, childID := range t.children[current] {
			if _, seen := visited[childID]; seen {
				continue
			}
			visited[childID] = struct{}{}
			out = append(out, childID)
			queue = append(queue, childID)
		}
	}
	return out
}

// WouldCycle reports whether making parentID the parent of id would make id
// its own ancestor
func (t *Tree) WouldCycle(id, parentID int64) bool {
	if id == parentID {
		return true
	}
	for _, d := range t.Descendants(id) {
		if d == parentID {
			return true
		}
	}
	return false
}

// HasCycle reports whether following parent links from any node revisits a
// node, using parents as the parent of each id
func HasCycle(parents map[int64]*int64) bool {
	done := make(map[int64]bool, len(parents))
	for start := range parents {
		path := make(map[int64]struct{})
		id := start
		for {
			if done[id] {
				break
			}
			if _, onPath := path[id]; onPath {
				return true
			}
			path[id] = struct{}{}
			parent, ok := parents[id]
			if !ok || parent == nil {
				break
			}
			id = *parent
		}
		for id := range path {
			done[id] = true
		}
	}
	return false
}

// Filter prunes a built tree for viewer. A menu stays when it requires no
// permission, when viewer holds its permission, or when at least one of its
// children stays. Bypass viewers see the whole tree. roots is modified.
func Filter(roots []*Menu, viewer Viewer) []*Menu {
	if viewer != nil && viewer.HasBypassRole() {
		return roots
	}

	// preorder, then walk it backwards so children are decided first
	var order []*Menu
	stack := make([]*Menu, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		m := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, m)
		for i := len(m.Children) - 1; i >= 0; i-- {
			stack = append(stack, m.Children[i])
		}
	}

	keep := make(map[*Menu]bool, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		m := order[i]
		kept := m.Children[:0]
		for _, c := range m.Children {
			if keep[c] {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			kept = nil
		}
		m.Children = kept
		keep[m] = permitted(m, viewer) || len(m.Children) > 0
	}

	out := make([]*Menu, 0, len(roots))
	for _, m := range roots {
		if keep[m] {
			out = append(out, m)
		}
	}
	return out
}

func permitted(m *Menu, viewer Viewer) bool {
	if m.PermissionName == "" {
		return true
	}
	return viewer != nil && viewer.HasPermission(m.PermissionName)
}

// Items converts a built tree to its navigation shape
func Items(roots []*Menu) []Item {
	type frame struct {
		menu *Menu
		dst  *[]Item
	}

	out := make([]Item, 0, len(roots))
	queue := make([]frame, 0, len(roots))
	for _, m := range roots {
		queue = append(queue, frame{m, &out})
	}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		*f.dst = append(*f.dst, Item{
			ID:        f.menu.ID,
			Name:      f.menu.Name,
			Icon:      f.menu.Icon,
			RouteName: f.menu.RouteName,
			URL:       f.menu.URL,
			Order:     f.menu.Order,
		})
		if len(f.menu.Children) == 0 {
			continue
		}
		// capacities are exact, so element addresses stay valid
		item := &(*f.dst)[len(*f.dst)-1]
		item.Children = make([]Item, 0, len(f.menu.Children))
		for _, c := range f.menu.Children {
			queue = append(queue, frame{c, &item.Children})
		}
	}
	return out
}

// ParentOptions flattens the tree depth first for a parent dropdown,
// leaving out except and everything below it
func (t *Tree) ParentOptions(except int64) []ParentOption {
	type frame struct {
		id    int64
		depth int
	}

	var out []ParentOption
	visited := make(map[int64]struct{}, len(t.nodes))
	stack := make([]frame, 0, len(t.roots))
	for i := len(t.roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{t.roots[i], 0})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.id == except {
			continue
		}
		if _, seen := visited[f.id]; seen {
			continue
		}
		visited[f.id] = struct{}{}
		m := t.nodes[f.id]
		out = append(out, ParentOption{ID: m.ID, Name: m.Name, Depth: f.depth})
		children := t.children[f.id]
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{children[i], f.depth + 1})
		}
	}
	return out
}
