// Package auth implements password login, opaque session tokens and the
// request Principal.
//
// Sessions are bearer tokens of the form sk_<base64url(32 bytes)>. Only the
// SHA-256 of a token is persisted. A Principal carries the user, the session
// id and a capability set (permission names plus a bypass flag) loaded from
// the user's roles by the session middleware.
package auth
