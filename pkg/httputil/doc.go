// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// Handlers decode bodies with ParseJSON, read list parameters with
// ParsePagination and ParseSort, and answer with WriteJSON / WriteSuccess.
// Service failures go through WriteServiceError, which maps the apperrors
// taxonomy onto status codes:
//
//	validation      -> 422 {"error", "fields"}
//	not found       -> 404
//	conflict        -> 409
//	authorization   -> 403 {"error", "reason"} (401 for "unauthenticated")
//	integrity guard -> 403
//	anything else   -> 500
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware(logger),
//		httputil.LoggingMiddleware,
//		httputil.RecoveryMiddleware,
//	)(router)
package httputil
