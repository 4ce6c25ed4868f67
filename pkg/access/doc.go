// Package access governs named routes.
//
// Registry owns the access_entries table and a cached snapshot of every
// entry's policy. Snapshots are loaded once per miss and shared by all
// concurrent requests; every write invalidates the snapshot, and with a
// Broadcaster configured the invalidation reaches other instances too.
//
// Gate evaluates a request against the snapshot. Routes without an entry
// are allowed, so a route only becomes governed once it has been scanned
// or created by hand. A snapshot that cannot be loaded denies the request.
package access
