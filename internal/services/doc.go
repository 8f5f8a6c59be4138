// Package services wraps the Spotify accounts service and Web API for the bot bridge.
//
// # Tokens
//
// [SpotifyService] uses [oauth2] for the authorization code exchange and refresh grant, with HTTP
// Basic client authentication. Refresh tokens live in a [models.TokenStore]; access tokens are
// minted per request unless a [cache.TokenCache] is configured. When Spotify rotates a refresh
// token the new one replaces the stored value.
//
// # Proxy
//
// [SpotifyService.Request] resolves an access token for the user and forwards the call. Non-2xx
// responses become an [APIError] carrying the HTTP status and the typed [Reason] Spotify reports.
//
// # Player
//
// [Player] implements the playback commands and status queries on top of any [Requester]:
//   - play, pause, next, previous, volume, seek, queue: single Web API commands
//   - resume: device discovery, optional playback transfer, then play at the last offset
//   - current: player state enriched with the next queued and previously played track
//   - devices: the account's Spotify Connect targets
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrValidation] : bad caller input, safe to echo back
//   - [shared.ErrMissingCredential] : no refresh token stored for the user
//   - [shared.ErrUpstreamAuth] : token endpoint rejected the request
//   - [shared.ErrUpstreamAPI] : Web API call failed, see [APIError]
//   - [shared.ErrNoDevices] : resume found nothing to play on
package services
