// Package api assembles the admin back office HTTP server.
//
// # Route table
//
// Every handler is registered on one gorilla/mux router under a route name,
// which is the key the authorization gate and the route access table use:
//
//	POST /login                      login (public)
//	POST /logout                     logout
//	GET  /dashboard                  dashboard
//	/admin/users, /admin/roles, ...  admin.<resource>.<action>
//
// Public routes live on the root router. Everything else is registered on a
// subrouter whose middleware first resolves the bearer session into a
// principal and then runs the gate, so the gate never sees /login.
//
// # Middleware
//
// Server.Handler wraps the router with request ids, panic recovery, request
// logging and body size limits, and with otelhttp when tracing is enabled.
// HTTP metrics are installed with Router.Use so they are labelled by route
// name.
//
// # Runtime
//
// Open builds a Runtime from configuration: database connection manager,
// optional Redis (snapshot cache, invalidation broadcast, login throttle)
// and optional S3 archive store. Runtime.Serve runs the API and health
// servers and the invalidation listener in an errgroup and shuts them down
// together.
package api
