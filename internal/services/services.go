package services

import (
	"context"
	"encoding/json"
)

// Requester issues an authenticated Web API call for a user.
//
// Implemented by [SpotifyService]; [Player] depends only on this.
type Requester interface {
	Request(ctx context.Context, userID, method, path string, body any) (json.RawMessage, error)
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents the playable item of a player state, queue, or history entry.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int64           `json:"duration_ms"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// Device is a Spotify Connect playback target.
type Device struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	IsActive         bool   `json:"is_active"`
	IsPrivateSession bool   `json:"is_private_session"`
	IsRestricted     bool   `json:"is_restricted"`
	VolumePercent    *int   `json:"volume_percent"`
}

// PlaybackState is the response of GET /me/player.
type PlaybackState struct {
	Device     *Device       `json:"device"`
	IsPlaying  bool          `json:"is_playing"`
	ProgressMS *int64        `json:"progress_ms"`
	Item       *SpotifyTrack `json:"item"`
}

// Progress returns the playback offset, zero when unknown.
func (p *PlaybackState) Progress() int64 {
	if p == nil || p.ProgressMS == nil {
		return 0
	}
	return *p.ProgressMS
}

type devicesResponse struct {
	Devices []Device `json:"devices"`
}

type queueResponse struct {
	CurrentlyPlaying *SpotifyTrack  `json:"currently_playing"`
	Queue            []SpotifyTrack `json:"queue"`
}

type recentlyPlayedResponse struct {
	Items []struct {
		Track    SpotifyTrack `json:"track"`
		PlayedAt string       `json:"played_at"`
	} `json:"items"`
}

// ArtistNames joins artist names with ", ".
func (t *SpotifyTrack) ArtistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return joinNonEmpty(names)
}

// FirstArtist returns the primary artist name.
func (t *SpotifyTrack) FirstArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}

// AlbumImage returns the first (largest) album image URL.
func (t *SpotifyTrack) AlbumImage() string {
	if len(t.Album.Images) == 0 {
		return ""
	}
	return t.Album.Images[0].URL
}

func joinNonEmpty(parts []string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += p
	}
	return out
}

func empty(raw json.RawMessage) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return len(raw) == 0
	}
	return len(probe) == 0
}
