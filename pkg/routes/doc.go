// Package routes enumerates the application's named routes and suggests the
// permission that should guard each of them.
//
// Route names follow the "prefix.resource.action" convention, for example
// "admin.users.index". InferPermissionName strips any prefix, maps the action
// through a fixed synonym table and singularizes the resource.
package routes
