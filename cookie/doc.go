// Package cookie persists and restores the session cookie jar of a client.
//
// A jar is keyed by a fingerprint of the client identity (process owner,
// endpoint, login, password, account and client kind) so that distinct
// identities never share a session. Jars are append-only: every fresh login
// appends its tokens and readers dedupe by name, last write wins.
//
// # Stores
//
//   - [FileStore]: one plain-text file per fingerprint, created 0600 under a
//     scoped restrictive umask.
//   - [RedisStore]: one Redis list per fingerprint with an optional TTL.
//
// # Locking
//
// Re-authentication is serialized per fingerprint through a [Locker]:
// [ProcessLocker] within a process, [RedisLocker] across hosts.
//
// # What this package must NOT do
//
//   - Talk to the remote service or perform logins.
//   - Log or expose cookie values.
//   - Truncate or delete persisted jars.
package cookie
