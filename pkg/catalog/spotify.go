package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/audioforge/audioforge/pkg/mediasource"
	"github.com/audioforge/audioforge/pkg/validate"
)

// Spotify resolves Spotify track and playlist URLs through the Web API
// using the client-credentials flow, and finds playable matches through a
// media source search.
type Spotify struct {
	client *spotify.Client
	source mediasource.Source
	logger *zap.Logger
}

// SpotifyConfig carries the API credentials.
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
}

// NewSpotify authenticates against the Spotify Web API and returns a ready
// provider. The source is used for playable-match search.
func NewSpotify(ctx context.Context, cfg SpotifyConfig, source mediasource.Source, logger *zap.Logger) (*Spotify, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("spotify credentials are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := creds.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("spotify token: %w", err)
	}

	httpClient := spotifyauth.New().Client(ctx, token)
	return &Spotify{
		client: spotify.New(httpClient),
		source: source,
		logger: logger,
	}, nil
}

// TrackFromURL resolves a Spotify track URL.
func (s *Spotify) TrackFromURL(ctx context.Context, ref string) (*Track, error) {
	id := validate.CatalogTrackID(ref)
	if id == "" {
		return nil, ErrTrackLookup
	}

	full, err := s.client.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		s.logger.Debug("track lookup failed", zap.String("id", id), zap.Error(err))
		return nil, ErrTrackLookup
	}
	track := trackFromFull(full)
	return &track, nil
}

// PlaylistFromURL resolves a Spotify playlist URL with its full track list.
func (s *Spotify) PlaylistFromURL(ctx context.Context, ref string) (*Playlist, error) {
	id := validate.CatalogPlaylistID(ref)
	if id == "" {
		return nil, ErrPlaylistLookup
	}

	playlist, err := s.client.GetPlaylist(ctx, spotify.ID(id))
	if err != nil {
		s.logger.Debug("playlist lookup failed", zap.String("id", id), zap.Error(err))
		return nil, ErrPlaylistLookup
	}

	tracks := make([]Track, 0, len(playlist.Tracks.Tracks))
	for _, item := range playlist.Tracks.Tracks {
		if item.Track.ID == "" {
			continue
		}
		tracks = append(tracks, trackFromFull(&item.Track))
	}

	return &Playlist{
		Name:   playlist.Name,
		Tracks: tracks,
	}, nil
}

// FindPlayableMatch searches the media source for the track and returns the
// best match's playable reference.
func (s *Spotify) FindPlayableMatch(ctx context.Context, track Track) (string, error) {
	meta, err := s.source.Search(ctx, track.SearchQuery())
	if err != nil {
		s.logger.Debug("playable match search failed",
			zap.String("track", track.DisplayName()),
			zap.Error(err))
		return "", ErrNoMatch
	}
	return meta.PlayableRef, nil
}

func trackFromFull(full *spotify.FullTrack) Track {
	artists := make([]string, 0, len(full.Artists))
	for _, artist := range full.Artists {
		artists = append(artists, artist.Name)
	}
	return Track{
		Name:     full.Name,
		Artists:  artists,
		Duration: time.Duration(full.Duration) * time.Millisecond,
		ID:       string(full.ID),
	}
}

var _ Provider = (*Spotify)(nil)
