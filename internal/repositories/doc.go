// Package repositories implements the refresh token stores behind [models.TokenStore].
//
// Two backends are available:
//   - [FileTokenStore] : a single JSON document on disk, the default
//   - [SQLiteTokenStore] : a refresh_tokens table created by the shared migrations
//
// The JSON document maps user ids to {"refreshToken", "updatedAt"} objects. Every mutation is a
// read-modify-write of the whole document, serialized by a mutex and committed with a rename so a
// crash never leaves a half-written file. A document that fails to parse is reset to "{}" and
// treated as empty, which discards whatever it held.
package repositories
