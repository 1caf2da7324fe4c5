// Package tasks mirrors provider playlists into the local store with real-time progress reporting.
//
// # Sync
//
// [SyncEngine.SyncPlaylists] runs one reconciliation for a user and service:
//
//  1. Loads the stored credential; without one it fails with [shared.ErrNotLinked] before any provider call
//  2. Lists remote playlists and upserts only those not yet mirrored
//  3. For each mirrored playlist, lists items:
//     - Empty playlist: initial sync, the listing carries full detail
//     - Otherwise: incremental sync, the listing carries references and detail is resolved for unknown IDs only
//  4. Upserts new items and returns the mirror re-read from the store
//
// Calls for the same user and service that overlap share one run.
//
// # Token Refresh
//
// A provider rejecting the access token triggers one refresh-token exchange per run. The new token is persisted
// (with the rotated refresh token, when the provider returns one) and the rejected call is retried once. A missing
// refresh token or a failed exchange ends the run with [shared.AuthExpiredError], as does a second rejection.
//
// # Accounts
//
// [Accounts] resolves a provider [models.Profile] to a local user, creating one when needed, and stores the
// OAuth token for that user.
//
// # Export
//
// [SyncEngine.BulkExport] writes mirrored playlists to disk through the formatter package with a worker pool.
//
// # Progress Reporting
//
// All long-running operations accept an optional channel of [ProgressUpdate]. Updates use select with default
// so a slow reader never blocks the operation.
package tasks
