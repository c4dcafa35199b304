package activity

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wongsakornss/music-discovery-go/internal/db"
	"github.com/wongsakornss/music-discovery-go/internal/users"
)

func setupActivity(t *testing.T) (*Service, *Repository, int64) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	pair, err := db.Init(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { pair.Close() })

	userRepo := users.NewRepository(pair, "rock")
	userID, err := userRepo.CreateAccount("alice", "hash")
	require.NoError(t, err)

	repo := NewRepository(pair)
	logger := log.New(os.Stderr, "[test] ", log.LstdFlags)
	return NewService(repo, 90, logger), repo, userID
}

func TestRecordAndFeed(t *testing.T) {
	service, _, userID := setupActivity(t)

	playlistID := int64(5)
	require.NoError(t, service.Record(userID, &playlistID, "PLAYLIST_CREATED", "created playlist Mix",
		map[string]any{"name": "Mix"}))
	require.NoError(t, service.Record(userID, nil, "PLAYLIST_DELETED", "deleted playlist", nil))

	events, err := service.Feed(userID, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	for _, event := range events {
		require.Equal(t, userID, event.UserID)
		require.NotEmpty(t, event.EventID)
		require.NotEmpty(t, event.CreatedAt)
	}

	// Find the created event and check its payload round-tripped.
	var created *Event
	for i := range events {
		if events[i].Type == "PLAYLIST_CREATED" {
			created = &events[i]
		}
	}
	require.NotNil(t, created)
	require.NotNil(t, created.PlaylistID)
	require.Equal(t, playlistID, *created.PlaylistID)
	require.Equal(t, "Mix", created.Payload["name"])
}

func TestFeedLimitAndIsolation(t *testing.T) {
	service, _, userID := setupActivity(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, service.Record(userID, nil, "TRACK_ADDED", fmt.Sprintf("added %d", i), nil))
	}

	events, err := service.Feed(userID, 3)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Another user's feed stays empty.
	events, err = service.Feed(userID+1, 10)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestDeleteOlderThan(t *testing.T) {
	_, repo, userID := setupActivity(t)

	old := time.Now().UTC().AddDate(0, 0, -120).Format(time.RFC3339)
	require.NoError(t, repo.Insert(Event{
		EventID: "old-event", UserID: userID, Type: "TRACK_ADDED",
		Message: "ancient", CreatedAt: old,
	}))
	require.NoError(t, repo.Insert(Event{
		EventID: "new-event", UserID: userID, Type: "TRACK_ADDED",
		Message: "recent", CreatedAt: db.NowISO(),
	}))

	cutoff := time.Now().UTC().AddDate(0, 0, -90).Format(time.RFC3339)
	removed, err := repo.DeleteOlderThan(cutoff)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	events, err := repo.ListByUser(userID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "new-event", events[0].EventID)
}
