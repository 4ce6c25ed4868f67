// Package middleware provides session authentication and login throttling.
//
// SessionMiddleware resolves "Authorization: Bearer <token>" to a principal
// carrying the user's capability set. It never rejects a request on its own:
// requests without a valid session continue anonymously and the access gate
// answers 401 for routes that need a principal.
//
// MemoryThrottle and RedisThrottle implement auth.LoginThrottle. The Redis
// variant is used when Redis is configured so lockouts hold across instances.
package middleware
