package db

import (
	"database/sql"
	"fmt"
	"sort"
)

// legacyRow is one row of the pre-multi-playlist flat table.
type legacyRow struct {
	id      int64
	userID  int64
	title   string
	artist  string
	url     sql.NullString
	mbid    sql.NullString
	addedAt string
}

// MigrateLegacyPlaylists moves rows from the legacy flat "playlist" table into
// the playlists/playlist_tracks model. The migration is idempotent: it runs
// only when the playlists table is empty AND legacy rows exist. Each owner of
// legacy rows gets one private "My Playlist" holding their rows in original
// order, positions starting at 0. The legacy table itself is left untouched.
//
// Returns the number of users migrated.
func MigrateLegacyPlaylists(writer *sql.DB) (int, error) {
	tx, err := writer.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var existing int
	if err := tx.QueryRow("SELECT COUNT(1) FROM playlists").Scan(&existing); err != nil {
		return 0, fmt.Errorf("count playlists: %w", err)
	}
	if existing > 0 {
		return 0, nil
	}

	rows, err := tx.Query("SELECT id, user_id, title, artist, url, mbid, added_at FROM playlist ORDER BY id")
	if err != nil {
		return 0, fmt.Errorf("read legacy rows: %w", err)
	}

	byUser := make(map[int64][]legacyRow)
	for rows.Next() {
		var r legacyRow
		if err := rows.Scan(&r.id, &r.userID, &r.title, &r.artist, &r.url, &r.mbid, &r.addedAt); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan legacy row: %w", err)
		}
		byUser[r.userID] = append(byUser[r.userID], r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	if len(byUser) == 0 {
		return 0, nil
	}

	userIDs := make([]int64, 0, len(byUser))
	for uid := range byUser {
		userIDs = append(userIDs, uid)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })

	now := NowISO()
	for _, uid := range userIDs {
		res, err := tx.Exec(`
			INSERT INTO playlists (user_id, name, description, is_public, created_at, updated_at)
			VALUES (?, 'My Playlist', '', 0, ?, ?)
		`, uid, now, now)
		if err != nil {
			return 0, fmt.Errorf("create default playlist for user %d: %w", uid, err)
		}
		playlistID, err := res.LastInsertId()
		if err != nil {
			return 0, err
		}

		for pos, item := range byUser[uid] {
			addedAt := item.addedAt
			if addedAt == "" {
				addedAt = now
			}
			_, err := tx.Exec(`
				INSERT INTO playlist_tracks (playlist_id, title, artist, url, mbid, position, added_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, playlistID, item.title, item.artist, item.url, item.mbid, pos, addedAt)
			if err != nil {
				return 0, fmt.Errorf("migrate track %d: %w", item.id, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit migration: %w", err)
	}

	return len(userIDs), nil
}
