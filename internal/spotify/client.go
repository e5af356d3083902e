package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// SearchItem is one hit from the search endpoint.
type SearchItem struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
}

// Search looks up tracks, artists, albums, or playlists. kind is the
// singular content type ("track", "artist", "album", "playlist").
func (s *Session) Search(ctx context.Context, query, kind string, limit int) ([]SearchItem, error) {
	q := url.Values{
		"q":     {query},
		"type":  {kind},
		"limit": {strconv.Itoa(limit)},
	}

	// The response keys the result set by the pluralized type.
	var result map[string]struct {
		Items []SearchItem `json:"items"`
	}
	if err := s.do(ctx, http.MethodGet, "/search", q, nil, &result); err != nil {
		return nil, err
	}
	return result[kind+"s"].Items, nil
}

// Play starts playback of a single track URI on a guaranteed local
// device.
func (s *Session) Play(ctx context.Context, uri string) error {
	deviceID, err := s.ensureDevice(ctx)
	if err != nil {
		return err
	}
	body := map[string]any{"uris": []string{uri}}
	return s.do(ctx, http.MethodPut, "/me/player/play", deviceQuery(deviceID), body, nil)
}

// PlayContext starts playback of a context URI (album, artist, or
// playlist) on a guaranteed local device.
func (s *Session) PlayContext(ctx context.Context, contextURI string) error {
	deviceID, err := s.ensureDevice(ctx)
	if err != nil {
		return err
	}
	body := map[string]any{"context_uri": contextURI}
	return s.do(ctx, http.MethodPut, "/me/player/play", deviceQuery(deviceID), body, nil)
}

// Resume continues paused playback on a guaranteed local device.
func (s *Session) Resume(ctx context.Context) error {
	deviceID, err := s.ensureDevice(ctx)
	if err != nil {
		return err
	}
	return s.do(ctx, http.MethodPut, "/me/player/play", deviceQuery(deviceID), nil, nil)
}

// Pause stops playback.
func (s *Session) Pause(ctx context.Context) error {
	deviceID, err := s.ensureDevice(ctx)
	if err != nil {
		return err
	}
	return s.do(ctx, http.MethodPut, "/me/player/pause", deviceQuery(deviceID), nil, nil)
}

// SkipNext advances to the next track.
func (s *Session) SkipNext(ctx context.Context) error {
	deviceID, err := s.ensureDevice(ctx)
	if err != nil {
		return err
	}
	return s.do(ctx, http.MethodPost, "/me/player/next", deviceQuery(deviceID), nil, nil)
}

// SetVolume sets the playback volume, clamped to 0-100.
func (s *Session) SetVolume(ctx context.Context, volume int) error {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	deviceID, err := s.ensureDevice(ctx)
	if err != nil {
		return err
	}
	q := deviceQuery(deviceID)
	q.Set("volume_percent", strconv.Itoa(volume))
	return s.do(ctx, http.MethodPut, "/me/player/volume", q, nil, nil)
}

func deviceQuery(deviceID string) url.Values {
	if deviceID == "" {
		return url.Values{}
	}
	return url.Values{"device_id": {deviceID}}
}

// PlaybackState describes what is currently playing. A zero Track means
// nothing is playing.
type PlaybackState struct {
	IsPlaying  bool
	Track      string
	Artist     string
	Album      string
	DeviceName string
	Volume     *int
	ProgressMS int
	DurationMS int
}

// CurrentPlayback fetches the playback state. This is a read-only query
// and never triggers device discovery or a launch.
func (s *Session) CurrentPlayback(ctx context.Context) (*PlaybackState, error) {
	var result struct {
		IsPlaying  bool `json:"is_playing"`
		ProgressMS int  `json:"progress_ms"`
		Item       struct {
			Name   string `json:"name"`
			DurationMS int `json:"duration_ms"`
			Album  struct {
				Name string `json:"name"`
			} `json:"album"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
		} `json:"item"`
		Device struct {
			Name          string `json:"name"`
			VolumePercent *int   `json:"volume_percent"`
		} `json:"device"`
	}

	if err := s.do(ctx, http.MethodGet, "/me/player", nil, nil, &result); err != nil {
		return nil, err
	}

	state := &PlaybackState{
		IsPlaying:  result.IsPlaying,
		Track:      result.Item.Name,
		Album:      result.Item.Album.Name,
		DeviceName: result.Device.Name,
		Volume:     result.Device.VolumePercent,
		ProgressMS: result.ProgressMS,
		DurationMS: result.Item.DurationMS,
	}
	if len(result.Item.Artists) > 0 {
		state.Artist = result.Item.Artists[0].Name
	}
	return state, nil
}

// FormatStatus renders the state for speech output, e.g.
// "Playing: 'Song' by Artist from 'Album' [1:23/3:45] at 60% volume".
func (s *PlaybackState) FormatStatus() string {
	if s == nil || s.Track == "" {
		return "Nothing is currently playing on Spotify."
	}

	verb := "Playing"
	if !s.IsPlaying {
		verb = "Paused"
	}

	out := fmt.Sprintf("%s: '%s'", verb, s.Track)
	if s.Artist != "" {
		out += " by " + s.Artist
	}
	if s.Album != "" {
		out += fmt.Sprintf(" from '%s'", s.Album)
	}
	out += fmt.Sprintf(" [%s/%s]", formatDuration(s.ProgressMS), formatDuration(s.DurationMS))
	if s.Volume != nil {
		out += fmt.Sprintf(" at %d%% volume", *s.Volume)
	}
	return out
}

// formatDuration renders milliseconds as m:ss.
func formatDuration(ms int) string {
	if ms < 0 {
		ms = 0
	}
	seconds := ms / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
