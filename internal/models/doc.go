// Package models defines domain entities for the Multitune playlist mirror.
//
// Persistent entities:
//   - [User] : local account, resolved from provider profiles on OAuth callback
//   - [Credential] : per-service access and refresh tokens
//   - [Playlist] : mirrored provider playlist with a stable local surrogate ID
//   - [PlaylistItem] : mirrored video or track, ordered by position
//
// [Snapshot] is the read model returned after a sync. [Profile] carries the identity a provider reports
// for an authorized account.
//
// Every persistent entity implements [Model], whose Validate method is called by repositories before writes.
package models
