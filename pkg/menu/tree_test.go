package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type viewer struct {
	permissions map[string]bool
	bypass      bool
}

func (v viewer) HasPermission(name string) bool { return v.permissions[name] }
func (v viewer) HasBypassRole() bool            { return v.bypass }

func id(v int64) *int64 { return &v }

func names(menus []*Menu) []string {
	out := make([]string, len(menus))
	for i, m := range menus {
		out[i] = m.Name
	}
	return out
}

// sample:
//
//	Dashboard (1)
//	Administration (2, user.view)
//	  Users (3, user.view)
//	  Roles (4, role.view)
//	  Archive (5, inactive)
//	    Old (6)
func sample() []*Menu {
	return []*Menu{
		{ID: 2, Name: "Administration", Order: 2, PermissionName: "user.view", IsActive: true},
		{ID: 1, Name: "Dashboard", Order: 1, IsActive: true},
		{ID: 4, Name: "Roles", ParentID: id(2), Order: 2, PermissionName: "role.view", IsActive: true},
		{ID: 3, Name: "Users", ParentID: id(2), Order: 1, PermissionName: "user.view", IsActive: true},
		{ID: 5, Name: "Archive", ParentID: id(2), Order: 3, IsActive: false},
		{ID: 6, Name: "Old", ParentID: id(5), Order: 0, IsActive: true},
	}
}

func TestTree_Build(t *testing.T) {
	tree := NewTree(sample())

	all := tree.Build(false)
	require.Equal(t, []string{"Dashboard", "Administration"}, names(all))
	assert.Equal(t, []string{"Users", "Roles", "Archive"}, names(all[1].Children))
	assert.Equal(t, []string{"Old"}, names(all[1].Children[2].Children))

	active := tree.Build(true)
	assert.Equal(t, []string{"Users", "Roles"}, names(active[1].Children))

	// builds are independent copies
	active[1].Children = nil
	assert.Len(t, tree.Build(true)[1].Children, 2)
}

func TestTree_DescendantsAndCycles(t *testing.T) {
	tree := NewTree(sample())

	assert.ElementsMatch(t, []int64{3, 4, 5, 6}, tree.Descendants(2))
	assert.Empty(t, tree.Descendants(6))

	assert.True(t, tree.WouldCycle(2, 2))
	assert.True(t, tree.WouldCycle(2, 6))
	assert.False(t, tree.WouldCycle(6, 3))
	assert.False(t, tree.WouldCycle(5, 1))
}

func TestTree_ToleratesCorruptParents(t *testing.T) {
	menus := []*Menu{
		{ID: 1, Name: "Root", IsActive: true},
		{ID: 2, Name: "A", ParentID: id(3), IsActive: true},
		{ID: 3, Name: "B", ParentID: id(2), IsActive: true},
		{ID: 4, Name: "Orphan", ParentID: id(99), IsActive: true},
	}
	tree := NewTree(menus)
	assert.Equal(t, []string{"Root", "Orphan"}, names(tree.Build(false)))
	assert.ElementsMatch(t, []int64{3}, tree.Descendants(2))
}

func TestHasCycle(t *testing.T) {
	assert.False(t, HasCycle(map[int64]*int64{1: nil, 2: id(1), 3: id(2)}))
	assert.True(t, HasCycle(map[int64]*int64{1: id(3), 2: id(1), 3: id(2)}))
	assert.True(t, HasCycle(map[int64]*int64{1: id(1)}))
	assert.False(t, HasCycle(map[int64]*int64{2: id(7)}))
}

func TestFilter(t *testing.T) {
	t.Run("pruned without permission or children", func(t *testing.T) {
		roots := Filter(NewTree(sample()).Build(true), viewer{})
		assert.Equal(t, []string{"Dashboard"}, names(roots))
	})

	t.Run("folder kept for a surviving child", func(t *testing.T) {
		roots := Filter(NewTree(sample()).Build(true), viewer{permissions: map[string]bool{"role.view": true}})
		require.Equal(t, []string{"Dashboard", "Administration"}, names(roots))
		assert.Equal(t, []string{"Roles"}, names(roots[1].Children))
	})

	t.Run("permitted parent keeps permitted children only", func(t *testing.T) {
		roots := Filter(NewTree(sample()).Build(true), viewer{permissions: map[string]bool{"user.view": true}})
		require.Equal(t, []string{"Dashboard", "Administration"}, names(roots))
		assert.Equal(t, []string{"Users"}, names(roots[1].Children))
	})

	t.Run("bypass sees everything", func(t *testing.T) {
		roots := Filter(NewTree(sample()).Build(false), viewer{bypass: true})
		assert.Len(t, roots[1].Children, 3)
	})
}

func TestItems(t *testing.T) {
	items := Items(NewTree(sample()).Build(true))
	require.Len(t, items, 2)
	assert.Equal(t, "Dashboard", items[0].Name)
	assert.Nil(t, items[0].Children)
	require.Len(t, items[1].Children, 2)
	assert.Equal(t, int64(3), items[1].Children[0].ID)
	assert.Equal(t, "Roles", items[1].Children[1].Name)
}

func TestTree_ParentOptions(t *testing.T) {
	tree := NewTree(sample())

	all := tree.ParentOptions(0)
	require.Len(t, all, 6)
	assert.Equal(t, ParentOption{ID: 1, Name: "Dashboard", Depth: 0}, all[0])
	assert.Equal(t, ParentOption{ID: 3, Name: "Users", Depth: 1}, all[2])
	assert.Equal(t, ParentOption{ID: 6, Name: "Old", Depth: 2}, all[5])

	without := tree.ParentOptions(5)
	assert.Len(t, without, 4)
	for _, o := range without {
		assert.NotContains(t, []int64{5, 6}, o.ID)
	}
}
