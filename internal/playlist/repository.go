package playlist

import (
	"bytes"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wongsakornss/music-discovery-go/internal/apperrors"
	"github.com/wongsakornss/music-discovery-go/internal/db"
	"github.com/wongsakornss/music-discovery-go/internal/users"
)

const (
	shareTokenBytes = 16
	csvExportLimit  = 10
)

// Repository persists playlists and their ordered tracks.
type Repository struct {
	db *db.DBPair
}

func NewRepository(dbPair *db.DBPair) *Repository {
	return &Repository{db: dbPair}
}

// notFoundPlaylist is the canonical 404 for playlist lookups.
func notFoundPlaylist(id int64) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrorCodePlaylistNotFound,
		"playlist not found", 404, map[string]any{"playlist_id": id})
}

func notFoundTrack(id int64) *apperrors.AppError {
	return apperrors.NewAppError(apperrors.ErrorCodeTrackNotFound,
		"track not found", 404, map[string]any{"track_id": id})
}

// Create inserts a new empty playlist owned by userID.
func (r *Repository) Create(userID int64, name, description string, isPublic bool) (*Playlist, error) {
	now := db.NowISO()
	result, err := r.db.Writer().Exec(
		`INSERT INTO playlists (user_id, name, description, is_public, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, name, description, boolToInt(isPublic), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert playlist: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &Playlist{
		ID:          id,
		UserID:      userID,
		Name:        name,
		Description: description,
		IsPublic:    isPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Get returns a playlist by id with its track count, or (nil, nil) when absent.
func (r *Repository) Get(playlistID int64) (*Playlist, error) {
	row := r.db.Reader().QueryRow(
		`SELECT p.id, p.user_id, p.name, p.description, p.is_public, p.share_token,
		        p.created_at, p.updated_at, COUNT(t.id)
		 FROM playlists p
		 LEFT JOIN playlist_tracks t ON t.playlist_id = p.id
		 WHERE p.id = ?
		 GROUP BY p.id`, playlistID)
	return scanPlaylist(row)
}

// Authorize loads a playlist and verifies requester ownership.
// Missing playlist yields a 404, foreign ownership a 403.
func (r *Repository) Authorize(playlistID, requesterID int64) (*Playlist, error) {
	playlist, err := r.Get(playlistID)
	if err != nil {
		return nil, err
	}
	if playlist == nil {
		return nil, notFoundPlaylist(playlistID)
	}
	if playlist.UserID != requesterID {
		return nil, apperrors.NewForbiddenError("not the playlist owner")
	}
	return playlist, nil
}

// List returns the user's playlists with track counts, newest-updated first.
func (r *Repository) List(userID int64) ([]Playlist, error) {
	return r.listPlaylists(userID, true)
}

// Delete removes a playlist and, via cascade, its tracks.
func (r *Repository) Delete(playlistID, requesterID int64) error {
	if _, err := r.Authorize(playlistID, requesterID); err != nil {
		return err
	}
	if _, err := r.db.Writer().Exec(`DELETE FROM playlists WHERE id = ?`, playlistID); err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	return nil
}

// UpdateMeta changes name, description or visibility. Nil fields are left
// untouched. An update by a non-owner matches no rows, changes nothing and
// returns (nil, nil).
func (r *Repository) UpdateMeta(playlistID, requesterID int64, name, description *string, isPublic *bool) (*Playlist, error) {
	sets := []string{"updated_at = ?"}
	args := []any{db.NowISO()}
	if name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *name)
	}
	if description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *description)
	}
	if isPublic != nil {
		sets = append(sets, "is_public = ?")
		args = append(args, boolToInt(*isPublic))
	}
	args = append(args, playlistID, requesterID)

	query := "UPDATE playlists SET " + strings.Join(sets, ", ") + " WHERE id = ? AND user_id = ?"
	result, err := r.db.Writer().Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("update playlist meta: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return r.Get(playlistID)
}

// EnsureShareToken makes the playlist publicly shareable. The token is
// generated once and reused on later calls; either way the playlist ends
// up public.
func (r *Repository) EnsureShareToken(playlistID, requesterID int64) (string, error) {
	if _, err := r.Authorize(playlistID, requesterID); err != nil {
		return "", err
	}

	tx, err := r.db.Writer().Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing sql.NullString
	err = tx.QueryRow(`SELECT share_token FROM playlists WHERE id = ?`, playlistID).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFoundPlaylist(playlistID)
	}
	if err != nil {
		return "", fmt.Errorf("read share_token: %w", err)
	}

	token := existing.String
	if !existing.Valid || token == "" {
		token, err = generateShareToken()
		if err != nil {
			return "", err
		}
	}

	_, err = tx.Exec(
		`UPDATE playlists SET share_token = ?, is_public = 1, updated_at = ? WHERE id = ?`,
		token, db.NowISO(), playlistID,
	)
	if err != nil {
		return "", fmt.Errorf("set share_token: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return token, nil
}

// GetPublicByToken resolves a share token to a public playlist and its
// tracks. Tokens on playlists flipped back to private resolve to nothing.
func (r *Repository) GetPublicByToken(token string) (*Playlist, []Track, error) {
	row := r.db.Reader().QueryRow(
		`SELECT p.id, p.user_id, p.name, p.description, p.is_public, p.share_token,
		        p.created_at, p.updated_at, COUNT(t.id)
		 FROM playlists p
		 LEFT JOIN playlist_tracks t ON t.playlist_id = p.id
		 WHERE p.share_token = ? AND p.is_public = 1
		 GROUP BY p.id`, token)
	playlist, err := scanPlaylist(row)
	if err != nil {
		return nil, nil, err
	}
	if playlist == nil {
		return nil, nil, apperrors.NewNotFoundError("shared playlist not found", nil)
	}

	tracks, err := r.queryTracks(playlist.ID, 0)
	if err != nil {
		return nil, nil, err
	}
	return playlist, tracks, nil
}

// InsertTrack appends a track at the next free position and bumps the
// parent's updated_at. Positions are zero-based.
func (r *Repository) InsertTrack(playlistID, requesterID int64, track NewTrack) (*Track, error) {
	if _, err := r.Authorize(playlistID, requesterID); err != nil {
		return nil, err
	}

	tx, err := r.db.Writer().Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var position int
	err = tx.QueryRow(
		`SELECT COALESCE(MAX(position), -1) + 1 FROM playlist_tracks WHERE playlist_id = ?`,
		playlistID,
	).Scan(&position)
	if err != nil {
		return nil, fmt.Errorf("next position: %w", err)
	}

	now := db.NowISO()
	result, err := tx.Exec(
		`INSERT INTO playlist_tracks (playlist_id, title, artist, url, mbid, position, added_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		playlistID, track.Title, track.Artist, nullable(track.URL), nullable(track.MBID), position, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert track: %w", err)
	}
	trackID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if err := touchPlaylist(tx, playlistID, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &Track{
		ID:         trackID,
		PlaylistID: playlistID,
		Title:      track.Title,
		Artist:     track.Artist,
		URL:        track.URL,
		MBID:       track.MBID,
		Position:   position,
		AddedAt:    now,
	}, nil
}

// DeleteTrack removes one track. Remaining positions keep their values,
// so gaps are possible; ordering is unaffected.
func (r *Repository) DeleteTrack(playlistID, trackID, requesterID int64) error {
	if _, err := r.Authorize(playlistID, requesterID); err != nil {
		return err
	}

	tx, err := r.db.Writer().Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`DELETE FROM playlist_tracks WHERE id = ? AND playlist_id = ?`, trackID, playlistID)
	if err != nil {
		return fmt.Errorf("delete track: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFoundTrack(trackID)
	}

	if err := touchPlaylist(tx, playlistID, db.NowISO()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// FetchTracks returns the playlist's tracks in play order. Reads by numeric
// ID are owner-only regardless of visibility; anonymous share-link reads go
// through GetPublicByToken instead. limit <= 0 returns everything.
func (r *Repository) FetchTracks(playlistID, requesterID int64, limit int) ([]Track, error) {
	if _, err := r.Authorize(playlistID, requesterID); err != nil {
		return nil, err
	}
	return r.queryTracks(playlistID, limit)
}

// MoveTrack swaps the track with its nearest neighbor in the given
// direction. A track already at the edge is left where it is. The swap and
// the parent timestamp bump happen in one write transaction.
func (r *Repository) MoveTrack(playlistID, trackID, requesterID int64, direction MoveDirection) error {
	if direction != MoveUp && direction != MoveDown {
		return apperrors.NewValidationError("direction must be \"up\" or \"down\"", nil)
	}
	if _, err := r.Authorize(playlistID, requesterID); err != nil {
		return err
	}

	tx, err := r.db.Writer().Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current int
	err = tx.QueryRow(
		`SELECT position FROM playlist_tracks WHERE id = ? AND playlist_id = ?`,
		trackID, playlistID,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return notFoundTrack(trackID)
	}
	if err != nil {
		return fmt.Errorf("read position: %w", err)
	}

	neighborQuery := `SELECT id, position FROM playlist_tracks
		WHERE playlist_id = ? AND position < ? ORDER BY position DESC LIMIT 1`
	if direction == MoveDown {
		neighborQuery = `SELECT id, position FROM playlist_tracks
			WHERE playlist_id = ? AND position > ? ORDER BY position ASC LIMIT 1`
	}

	var neighborID int64
	var neighborPos int
	err = tx.QueryRow(neighborQuery, playlistID, current).Scan(&neighborID, &neighborPos)
	if errors.Is(err, sql.ErrNoRows) {
		return nil // already at the edge
	}
	if err != nil {
		return fmt.Errorf("find neighbor: %w", err)
	}

	if _, err := tx.Exec(`UPDATE playlist_tracks SET position = ? WHERE id = ?`, neighborPos, trackID); err != nil {
		return fmt.Errorf("move track: %w", err)
	}
	if _, err := tx.Exec(`UPDATE playlist_tracks SET position = ? WHERE id = ?`, current, neighborID); err != nil {
		return fmt.Errorf("move neighbor: %w", err)
	}
	if err := touchPlaylist(tx, playlistID, db.NowISO()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ClearTracks removes every track and returns how many were deleted.
func (r *Repository) ClearTracks(playlistID, requesterID int64) (int, error) {
	if _, err := r.Authorize(playlistID, requesterID); err != nil {
		return 0, err
	}

	tx, err := r.db.Writer().Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`DELETE FROM playlist_tracks WHERE playlist_id = ?`, playlistID)
	if err != nil {
		return 0, fmt.Errorf("clear tracks: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if err := touchPlaylist(tx, playlistID, db.NowISO()); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int(affected), nil
}

// ExportCSV renders the first rows of the playlist as CSV with a fixed
// header. The export is capped to keep downloads small.
func (r *Repository) ExportCSV(playlistID, requesterID int64) ([]byte, error) {
	if _, err := r.Authorize(playlistID, requesterID); err != nil {
		return nil, err
	}
	tracks, err := r.queryTracks(playlistID, csvExportLimit)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"id", "title", "artist", "url", "mbid", "position", "added_at"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, track := range tracks {
		record := []string{
			strconv.FormatInt(track.ID, 10),
			track.Title,
			track.Artist,
			track.URL,
			track.MBID,
			strconv.Itoa(track.Position),
			track.AddedAt,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// PlaylistSummaries implements users.LibraryProvider: the owner sees all
// their playlists, everyone else only the public ones.
func (r *Repository) PlaylistSummaries(ownerID, requesterID int64) ([]users.PlaylistSummary, error) {
	playlists, err := r.listPlaylists(ownerID, ownerID == requesterID)
	if err != nil {
		return nil, err
	}
	summaries := make([]users.PlaylistSummary, 0, len(playlists))
	for _, p := range playlists {
		summaries = append(summaries, users.PlaylistSummary{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			IsPublic:    p.IsPublic,
			TrackCount:  p.TrackCount,
			UpdatedAt:   p.UpdatedAt,
		})
	}
	return summaries, nil
}

// MusicStats implements users.LibraryProvider.
func (r *Repository) MusicStats(ownerID int64) (users.MusicStats, error) {
	var stats users.MusicStats
	reader := r.db.Reader()

	err := reader.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(is_public), 0) FROM playlists WHERE user_id = ?`,
		ownerID,
	).Scan(&stats.PlaylistCount, &stats.PublicPlaylists)
	if err != nil {
		return stats, fmt.Errorf("playlist counts: %w", err)
	}
	stats.PrivatePlaylists = stats.PlaylistCount - stats.PublicPlaylists

	err = reader.QueryRow(
		`SELECT COUNT(t.id), COUNT(DISTINCT t.artist)
		 FROM playlist_tracks t
		 JOIN playlists p ON p.id = t.playlist_id
		 WHERE p.user_id = ?`,
		ownerID,
	).Scan(&stats.TrackCount, &stats.DistinctArtists)
	if err != nil {
		return stats, fmt.Errorf("track counts: %w", err)
	}
	return stats, nil
}

func (r *Repository) listPlaylists(ownerID int64, includePrivate bool) ([]Playlist, error) {
	query := `SELECT p.id, p.user_id, p.name, p.description, p.is_public, p.share_token,
	                 p.created_at, p.updated_at, COUNT(t.id)
	          FROM playlists p
	          LEFT JOIN playlist_tracks t ON t.playlist_id = p.id
	          WHERE p.user_id = ?`
	if !includePrivate {
		query += ` AND p.is_public = 1`
	}
	query += ` GROUP BY p.id ORDER BY p.updated_at DESC, p.id DESC`

	rows, err := r.db.Reader().Query(query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}
	defer rows.Close()

	playlists := []Playlist{}
	for rows.Next() {
		playlist, err := scanPlaylistRow(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, *playlist)
	}
	return playlists, rows.Err()
}

func (r *Repository) queryTracks(playlistID int64, limit int) ([]Track, error) {
	query := `SELECT id, playlist_id, title, artist, url, mbid, position, added_at
	          FROM playlist_tracks WHERE playlist_id = ?
	          ORDER BY position ASC, id ASC`
	args := []any{playlistID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Reader().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	tracks := []Track{}
	for rows.Next() {
		var track Track
		var url, mbid sql.NullString
		err := rows.Scan(&track.ID, &track.PlaylistID, &track.Title, &track.Artist,
			&url, &mbid, &track.Position, &track.AddedAt)
		if err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		track.URL = url.String
		track.MBID = mbid.String
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlaylist(row *sql.Row) (*Playlist, error) {
	playlist, err := scanPlaylistRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return playlist, nil
}

func scanPlaylistRow(scanner rowScanner) (*Playlist, error) {
	var playlist Playlist
	var isPublic int
	var shareToken sql.NullString
	err := scanner.Scan(&playlist.ID, &playlist.UserID, &playlist.Name, &playlist.Description,
		&isPublic, &shareToken, &playlist.CreatedAt, &playlist.UpdatedAt, &playlist.TrackCount)
	if err != nil {
		return nil, err
	}
	playlist.IsPublic = isPublic != 0
	if shareToken.Valid && shareToken.String != "" {
		playlist.ShareToken = &shareToken.String
	}
	return &playlist, nil
}

func touchPlaylist(tx *sql.Tx, playlistID int64, now string) error {
	if _, err := tx.Exec(`UPDATE playlists SET updated_at = ? WHERE id = ?`, now, playlistID); err != nil {
		return fmt.Errorf("touch playlist: %w", err)
	}
	return nil
}

// generateShareToken returns a URL-safe random token.
func generateShareToken() (string, error) {
	raw := make([]byte, shareTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
