// Package repositories implements SQL persistence for users, linked credentials and the playlist mirror.
//
// Key Implementations:
//   - [UserRepository] : user accounts with email and username lookups
//   - [CredentialRepository] : per-service OAuth tokens (the user_services table)
//   - [PlaylistRepository] : mirrored playlists and items with conflict-aware upserts
//
// Repositories accept a [*sql.DB] opened by shared.NewDatabase and work on both SQLite and PostgreSQL.
// Queries use $n placeholders, which both engines bind positionally as long as each number first appears in order.
//
// Every failed database call is returned as a *shared.StoreError. Lookups that find nothing return the matching
// sentinel instead (shared.ErrUserNotFound, shared.ErrNotLinked, shared.ErrPlaylistNotFound).
//
// The mirror never deletes: playlists and items removed upstream stay until the user is deleted.
package repositories
