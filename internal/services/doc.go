// Package services defines the [Provider] interface for reading playlists from music services and implements it for
// YouTube and Spotify.
//
// # Provider Interface
//
// A provider lists the authorized user's playlists, lists a playlist's items either with full detail or as bare
// references, and resolves full detail for a set of item IDs. All listings follow pagination to the end with a
// page size of [PageSize]; a failure on any page aborts the call and discards earlier pages.
//
// # YouTube
//
// [YouTubeService] uses the generated Data API v3 client (playlists.list, playlistItems.list, videos.list) and
// the Google userinfo endpoint for [Provider.Profile].
//
// # Spotify
//
// [SpotifyService] uses github.com/zmb3/spotify/v2. Reference-only listings restrict the response with a fields
// filter and detail is resolved through the several-tracks endpoint. Episodes are skipped.
//
// # Tokens
//
// Providers never refresh tokens themselves. A rejected access token surfaces as [shared.ErrUnauthorized] and the
// caller decides whether to use [OAuthRefresher.Refresh]. Every other failure is a [*shared.ProviderError]
// carrying the status and raw response body.
//
// # Rate Limiting
//
// [NewHTTPClient] returns a client whose transport waits on a token bucket before each request, shared by every
// provider built on it.
package services
