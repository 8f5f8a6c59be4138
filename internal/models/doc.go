// Package models defines the persisted entities of the bridge and the storage contract they are read and written through.
//
//   - [TokenRecord] : a Spotify user's long-lived refresh token with its last write time
//   - [TokenStore] : persistence for token records, implemented by the repositories package
package models
