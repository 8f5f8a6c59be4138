package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cliqspot/internal/shared"
)

// DefaultSettleDelay is how long [Player.Resume] waits after transferring playback.
const DefaultSettleDelay = time.Second

// Player implements the playback commands and status queries exposed to the bot.
type Player struct {
	api         Requester
	logger      *log.Logger
	settleDelay time.Duration
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewPlayer creates a [Player]. A non-positive settleDelay uses [DefaultSettleDelay].
func NewPlayer(api Requester, settleDelay time.Duration, logger *log.Logger) *Player {
	if settleDelay <= 0 {
		settleDelay = DefaultSettleDelay
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Player{api: api, logger: logger, settleDelay: settleDelay, now: time.Now, sleep: sleepCtx}
}

type playBody struct {
	URIs       []string `json:"uris"`
	PositionMS *int64   `json:"position_ms,omitempty"`
}

type transferBody struct {
	DeviceIDs []string `json:"device_ids"`
	Play      bool     `json:"play"`
}

// Play starts trackURI on the active device.
func (p *Player) Play(ctx context.Context, userID, trackURI string) error {
	if trackURI == "" {
		return shared.Invalid("trackUri is required to start playback.")
	}
	_, err := p.api.Request(ctx, userID, http.MethodPut, "/me/player/play", playBody{URIs: []string{trackURI}})
	return err
}

func (p *Player) Pause(ctx context.Context, userID string) error {
	_, err := p.api.Request(ctx, userID, http.MethodPut, "/me/player/pause", nil)
	return err
}

func (p *Player) Next(ctx context.Context, userID string) error {
	_, err := p.api.Request(ctx, userID, http.MethodPost, "/me/player/next", nil)
	return err
}

func (p *Player) Previous(ctx context.Context, userID string) error {
	_, err := p.api.Request(ctx, userID, http.MethodPost, "/me/player/previous", nil)
	return err
}

// SetVolume sets the active device volume. Fractional values are rounded.
func (p *Player) SetVolume(ctx context.Context, userID string, percent float64) error {
	if math.IsNaN(percent) || percent < 0 || percent > 100 {
		return shared.Invalid("volume_percent must be a number between 0 and 100.")
	}

	q := url.Values{"volume_percent": {strconv.Itoa(int(math.Round(percent)))}}
	_, err := p.api.Request(ctx, userID, http.MethodPut, "/me/player/volume?"+q.Encode(), nil)
	return err
}

// Seek moves playback to positionMS.
func (p *Player) Seek(ctx context.Context, userID string, positionMS float64) error {
	if math.IsNaN(positionMS) || positionMS < 0 || positionMS >= math.MaxInt64 {
		return shared.Invalid("position_ms must be a positive number.")
	}

	q := url.Values{"position_ms": {strconv.FormatInt(int64(positionMS), 10)}}
	_, err := p.api.Request(ctx, userID, http.MethodPut, "/me/player/seek?"+q.Encode(), nil)
	return err
}

// Queue appends trackURI to the user's queue.
func (p *Player) Queue(ctx context.Context, userID, trackURI string) error {
	if trackURI == "" {
		return shared.Invalid("trackUri is required to queue a song.")
	}

	q := url.Values{"uri": {trackURI}}
	_, err := p.api.Request(ctx, userID, http.MethodPost, "/me/player/queue?"+q.Encode(), nil)
	return err
}

// Devices lists the user's Spotify Connect devices.
func (p *Player) Devices(ctx context.Context, userID string) ([]Device, error) {
	raw, err := p.api.Request(ctx, userID, http.MethodGet, "/me/player/devices", nil)
	if err != nil {
		return nil, err
	}

	var resp devicesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode devices: %v", shared.ErrUpstreamAPI, err)
	}
	if resp.Devices == nil {
		resp.Devices = []Device{}
	}
	return resp.Devices, nil
}

// State returns the current player state, or nil when nothing is playing on the account.
func (p *Player) State(ctx context.Context, userID string) (*PlaybackState, error) {
	raw, err := p.api.Request(ctx, userID, http.MethodGet, "/me/player", nil)
	if err != nil {
		return nil, err
	}
	if empty(raw) {
		return nil, nil
	}

	var state PlaybackState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("%w: failed to decode player state: %v", shared.ErrUpstreamAPI, err)
	}
	return &state, nil
}

// CurrentPlayback summarizes what is playing.
type CurrentPlayback struct {
	TrackName        *string `json:"track_name"`
	Artist           *string `json:"artist"`
	AlbumImage       *string `json:"album_image"`
	ProgressMS       int64   `json:"progress_ms"`
	DurationMS       int64   `json:"duration_ms"`
	IsPlaying        bool    `json:"is_playing"`
	NextTrackURI     *string `json:"next_track_uri"`
	PreviousTrackURI *string `json:"previous_track_uri"`
}

// Current reports the playing track with its neighbours. ok is false when the account has no
// active playback.
//
// The queue and history lookups are best-effort: a failure only leaves that field null.
func (p *Player) Current(ctx context.Context, userID string) (current *CurrentPlayback, ok bool, err error) {
	state, err := p.State(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if state == nil {
		return nil, false, nil
	}

	current = &CurrentPlayback{
		ProgressMS: state.Progress(),
		IsPlaying:  state.IsPlaying,
	}
	if item := state.Item; item != nil {
		current.TrackName = optional(item.Name)
		current.Artist = optional(item.ArtistNames())
		current.DurationMS = item.DurationMS
		current.AlbumImage = optional(item.AlbumImage())
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		current.NextTrackURI = p.nextInQueue(ctx, userID)
	}()
	go func() {
		defer wg.Done()
		current.PreviousTrackURI = p.lastPlayed(ctx, userID)
	}()
	wg.Wait()

	return current, true, nil
}

func (p *Player) nextInQueue(ctx context.Context, userID string) *string {
	raw, err := p.api.Request(ctx, userID, http.MethodGet, "/me/player/queue", nil)
	if err != nil {
		p.logger.Warn("failed to fetch queue", "user", userID, "error", err)
		return nil
	}

	var queue queueResponse
	if err := json.Unmarshal(raw, &queue); err != nil || len(queue.Queue) == 0 {
		return nil
	}
	return optional(queue.Queue[0].URI)
}

func (p *Player) lastPlayed(ctx context.Context, userID string) *string {
	raw, err := p.api.Request(ctx, userID, http.MethodGet, "/me/player/recently-played?limit=1", nil)
	if err != nil {
		p.logger.Warn("failed to fetch recently played", "user", userID, "error", err)
		return nil
	}

	var history recentlyPlayedResponse
	if err := json.Unmarshal(raw, &history); err != nil || len(history.Items) == 0 {
		return nil
	}
	return optional(history.Items[0].Track.URI)
}

// ResumedTrack describes the track playback resumed on.
type ResumedTrack struct {
	Name       string    `json:"name"`
	Artist     string    `json:"artist"`
	URI        string    `json:"uri"`
	PositionMS int64     `json:"position_ms"`
	ResumedAt  time.Time `json:"resumed_at"`
}

// ResumeResult is the outcome of [Player.Resume].
type ResumeResult struct {
	AlreadyPlaying bool          `json:"-"`
	Transferred    bool          `json:"transferred"`
	Device         Device        `json:"device"`
	Track          *ResumedTrack `json:"track"`
}

// Resume restarts playback on the user's account.
//
// When no device is active, playback is transferred to the first listed device and the player
// is given the settle delay before the play command targets it. A known track resumes at its last
// offset; otherwise Spotify continues whatever context it holds.
func (p *Player) Resume(ctx context.Context, userID string) (*ResumeResult, error) {
	var (
		wg       sync.WaitGroup
		devices  []Device
		state    *PlaybackState
		devErr   error
		stateErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		devices, devErr = p.Devices(ctx, userID)
	}()
	go func() {
		defer wg.Done()
		state, stateErr = p.State(ctx, userID)
	}()
	wg.Wait()

	if devErr != nil {
		return nil, devErr
	}
	if stateErr != nil {
		return nil, stateErr
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("%w: open Spotify on a phone, desktop or web player and try again", shared.ErrNoDevices)
	}

	result := &ResumeResult{}
	if state != nil && state.IsPlaying && state.Item != nil {
		result.AlreadyPlaying = true
		if state.Device != nil {
			result.Device = *state.Device
		}
		result.Track = p.trackSummary(state)
		return result, nil
	}

	target, active := activeDevice(devices)
	if !active {
		p.logger.Info("transferring playback", "user", userID, "device", target.Name)
		body := transferBody{DeviceIDs: []string{target.ID}, Play: false}
		if _, err := p.api.Request(ctx, userID, http.MethodPut, "/me/player", body); err != nil {
			return nil, err
		}
		if err := p.sleep(ctx, p.settleDelay); err != nil {
			return nil, err
		}
		result.Transferred = true
	}
	result.Device = target

	path := "/me/player/play"
	if target.ID != "" {
		path += "?" + url.Values{"device_id": {target.ID}}.Encode()
	}

	var body any
	if state != nil && state.Item != nil && state.Item.URI != "" {
		position := state.Progress()
		body = playBody{URIs: []string{state.Item.URI}, PositionMS: &position}
	}

	if _, err := p.api.Request(ctx, userID, http.MethodPut, path, body); err != nil {
		return nil, err
	}

	if body != nil {
		result.Track = p.trackSummary(state)
	}
	return result, nil
}

func (p *Player) trackSummary(state *PlaybackState) *ResumedTrack {
	return &ResumedTrack{
		Name:       state.Item.Name,
		Artist:     state.Item.FirstArtist(),
		URI:        state.Item.URI,
		PositionMS: state.Progress(),
		ResumedAt:  p.now().UTC(),
	}
}

func activeDevice(devices []Device) (Device, bool) {
	for _, d := range devices {
		if d.IsActive {
			return d, true
		}
	}
	return devices[0], false
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
