// Package rbac manages permissions, permission groups and roles, and
// resolves the capability set of a user.
//
// Authorization is flat: a user holds the union of the permissions granted
// to its roles. A role created with IsBypass set satisfies every check
// without grants; the flag is written once at creation and the role can be
// neither renamed nor deleted.
//
// Every change made through Service is recorded in the activity log, and
// permission creates, renames and deletes relink route access entries.
package rbac
