// Package cli implements admin-cli, the maintenance commands of the admin
// back office.
//
// Commands:
//
//	migrate [-status]                   apply or list schema migrations
//	seed [-admin-email ...] [-skip-admin] seed permissions, roles, menus and the admin
//	routes:list [-prefix p] [-json]     list governable routes
//	routes:scan [-prefix p]             synchronize the route access table
//	routes:relink                       re-resolve permission links by name
//	activity:prune [-days n]            prune (and optionally archive) activity logs
//
// Every command runs against an Env built from api.Open, so it sees the same
// route table the server serves.
package cli
