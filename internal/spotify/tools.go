package spotify

import (
	"context"
	"fmt"

	"github.com/murmur-assistant/murmur/internal/tools"
)

const notConfiguredMsg = "Spotify is not configured. Set spotify.client_id and spotify.client_secret in the config file."

func intPtr(n int) *int { return &n }

// RegisterTools adds the playback control tools to the registry. The
// five mutating tools carry the Premium entitlement; status is free.
func RegisterTools(reg *tools.Registry, s *Session) error {
	specs := []*tools.Tool{
		{
			Name:        "play_music",
			Description: "Play music on Spotify by searching for a track, artist, album, or playlist.",
			Schema: tools.Schema{
				{Name: "query", Type: tools.TypeString, Required: true, Description: "Search query (e.g., 'chill jazz', 'Beatles')"},
				{Name: "type", Type: tools.TypeString, Description: "Type to search: 'track', 'artist', 'album', or 'playlist'", Enum: []string{"track", "artist", "album", "playlist"}},
			},
			Mutating:    true,
			Entitlement: tools.EntitlementPremium,
			Handler:     s.handlePlay,
		},
		{
			Name:        "pause_music",
			Description: "Pause Spotify playback.",
			Mutating:    true,
			Entitlement: tools.EntitlementPremium,
			Handler:     s.handlePause,
		},
		{
			Name:        "resume_music",
			Description: "Resume Spotify playback.",
			Mutating:    true,
			Entitlement: tools.EntitlementPremium,
			Handler:     s.handleResume,
		},
		{
			Name:        "skip_track",
			Description: "Skip to the next track on Spotify.",
			Mutating:    true,
			Entitlement: tools.EntitlementPremium,
			Handler:     s.handleSkip,
		},
		{
			Name:        "set_music_volume",
			Description: "Set Spotify playback volume. Use this for music volume, not device volume.",
			Schema: tools.Schema{
				{Name: "volume", Type: tools.TypeInteger, Required: true, Description: "Volume level from 0 to 100", Minimum: intPtr(0), Maximum: intPtr(100)},
			},
			Mutating:    true,
			Entitlement: tools.EntitlementPremium,
			Handler:     s.handleVolume,
		},
		{
			Name:        "get_playback_status",
			Description: "Get current Spotify playback status including track, artist, and volume.",
			Handler:     s.handleStatus,
		},
	}

	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) handlePlay(ctx context.Context, args map[string]any) (string, error) {
	if !s.Configured() {
		return notConfiguredMsg, nil
	}

	query := args["query"].(string)
	kind, _ := args["type"].(string)
	if kind == "" {
		kind = "track"
	}

	results, err := s.Search(ctx, query, kind, 5)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return fmt.Sprintf("No %ss found for '%s'", kind, query), nil
	}

	item := results[0]
	if kind == "track" {
		if err := s.Play(ctx, item.URI); err != nil {
			return "", err
		}
	} else {
		// Albums, artists, and playlists play as a context.
		if err := s.PlayContext(ctx, item.URI); err != nil {
			return "", err
		}
	}

	reply := fmt.Sprintf("Playing '%s'", item.Name)
	if kind == "track" && len(item.Artists) > 0 {
		reply += " by " + item.Artists[0].Name
	}
	return reply, nil
}

func (s *Session) handlePause(ctx context.Context, args map[string]any) (string, error) {
	if !s.Configured() {
		return notConfiguredMsg, nil
	}
	if err := s.Pause(ctx); err != nil {
		return "", err
	}
	return "Playback paused", nil
}

func (s *Session) handleResume(ctx context.Context, args map[string]any) (string, error) {
	if !s.Configured() {
		return notConfiguredMsg, nil
	}
	if err := s.Resume(ctx); err != nil {
		return "", err
	}
	return "Playback resumed", nil
}

func (s *Session) handleSkip(ctx context.Context, args map[string]any) (string, error) {
	if !s.Configured() {
		return notConfiguredMsg, nil
	}
	if err := s.SkipNext(ctx); err != nil {
		return "", err
	}
	return "Skipped to next track", nil
}

func (s *Session) handleVolume(ctx context.Context, args map[string]any) (string, error) {
	if !s.Configured() {
		return notConfiguredMsg, nil
	}
	volume := int(args["volume"].(float64))
	if err := s.SetVolume(ctx, volume); err != nil {
		return "", err
	}
	return fmt.Sprintf("Music volume set to %d%%", volume), nil
}

func (s *Session) handleStatus(ctx context.Context, args map[string]any) (string, error) {
	if !s.Configured() {
		return notConfiguredMsg, nil
	}
	state, err := s.CurrentPlayback(ctx)
	if err != nil {
		return "", err
	}
	return state.FormatStatus(), nil
}
