// Package menu stores the navigation menus and builds them into trees.
//
// Trees are assembled from an arena of rows indexed by id, never by
// recursion, so depth is unbounded and a corrupt parent link cannot loop.
package menu
