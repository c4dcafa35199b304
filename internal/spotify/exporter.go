package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/wongsakornss/music-discovery-go/internal/apperrors"
	"github.com/wongsakornss/music-discovery-go/internal/playlist"
)

// Spotify caps playlist-track additions at 100 URIs per request.
const addTracksBatchSize = 100

// ExportResult summarizes a completed export.
type ExportResult struct {
	SpotifyPlaylistID  string   `json:"spotify_playlist_id"`
	SpotifyPlaylistURL string   `json:"spotify_playlist_url"`
	Exported           int      `json:"exported"`
	Skipped            []string `json:"skipped,omitempty"`
}

// Exporter copies local playlists into the user's Spotify account.
type Exporter struct {
	client *Client
	logger *log.Logger
}

func NewExporter(client *Client, logger *log.Logger) *Exporter {
	return &Exporter{client: client, logger: logger}
}

type profileResponse struct {
	ID string `json:"id"`
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

type createPlaylistResponse struct {
	ID           string `json:"id"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

type searchResponse struct {
	Tracks struct {
		Items []struct {
			URI string `json:"uri"`
		} `json:"items"`
	} `json:"tracks"`
}

type addTracksRequest struct {
	URIs []string `json:"uris"`
}

// Export creates a Spotify playlist mirroring the local one (name,
// description and visibility) and fills it with whatever tracks resolve via
// search. Tracks that do not resolve are skipped; if nothing resolves the
// export fails, though the created (empty) Spotify playlist is not rolled
// back.
func (e *Exporter) Export(ctx context.Context, userID int64, source *playlist.Playlist, tracks []playlist.Track) (*ExportResult, error) {
	if len(tracks) == 0 {
		return nil, apperrors.NewValidationError("playlist has no tracks to export", nil)
	}

	tokenSource, err := e.client.tokenSourceFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	profileBody, err := e.client.apiRequest(ctx, tokenSource, http.MethodGet, "/me", nil)
	if err != nil {
		return nil, err
	}
	var profile profileResponse
	if err := json.Unmarshal(profileBody, &profile); err != nil || profile.ID == "" {
		return nil, apperrors.NewRemoteServiceError("Spotify profile response malformed", nil)
	}

	createBody, err := json.Marshal(createPlaylistRequest{
		Name:        source.Name,
		Description: source.Description,
		Public:      source.IsPublic,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal create playlist: %w", err)
	}
	createdBody, err := e.client.apiRequest(ctx, tokenSource, http.MethodPost,
		"/users/"+url.PathEscape(profile.ID)+"/playlists", createBody)
	if err != nil {
		return nil, err
	}
	var created createPlaylistResponse
	if err := json.Unmarshal(createdBody, &created); err != nil || created.ID == "" {
		return nil, apperrors.NewRemoteServiceError("Spotify playlist creation response malformed", nil)
	}

	uris := make([]string, 0, len(tracks))
	skipped := []string{}
	for _, track := range tracks {
		uri, err := e.resolveTrack(ctx, tokenSource, track)
		if err != nil {
			return nil, err
		}
		if uri == "" {
			skipped = append(skipped, track.Title+" - "+track.Artist)
			continue
		}
		uris = append(uris, uri)
	}

	if len(uris) == 0 {
		return nil, apperrors.NewAppError(apperrors.ErrorCodeExportFailed,
			"no tracks could be matched on Spotify", 502,
			map[string]any{"spotify_playlist_id": created.ID})
	}

	for start := 0; start < len(uris); start += addTracksBatchSize {
		end := start + addTracksBatchSize
		if end > len(uris) {
			end = len(uris)
		}
		batchBody, err := json.Marshal(addTracksRequest{URIs: uris[start:end]})
		if err != nil {
			return nil, fmt.Errorf("marshal add tracks: %w", err)
		}
		_, err = e.client.apiRequest(ctx, tokenSource, http.MethodPost,
			"/playlists/"+url.PathEscape(created.ID)+"/tracks", batchBody)
		if err != nil {
			return nil, err
		}
	}

	e.logger.Printf("exported playlist %d for user %d to spotify (%d matched, %d skipped)",
		source.ID, userID, len(uris), len(skipped))

	return &ExportResult{
		SpotifyPlaylistID:  created.ID,
		SpotifyPlaylistURL: created.ExternalURLs.Spotify,
		Exported:           len(uris),
		Skipped:            skipped,
	}, nil
}

// resolveTrack searches for a track URI. A miss returns an empty string,
// not an error.
func (e *Exporter) resolveTrack(ctx context.Context, source oauth2.TokenSource, track playlist.Track) (string, error) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("track:%s artist:%s", track.Title, track.Artist))
	query.Set("type", "track")
	query.Set("limit", "1")

	body, err := e.client.apiRequest(ctx, source, http.MethodGet, "/search?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}
	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", apperrors.NewRemoteServiceError("Spotify search response malformed", nil)
	}
	if len(result.Tracks.Items) == 0 {
		return "", nil
	}
	return result.Tracks.Items[0].URI, nil
}
