package spotify

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/wongsakornss/music-discovery-go/internal/db"
	"github.com/wongsakornss/music-discovery-go/internal/users"
)

func setupTokenRepo(t *testing.T) (*TokenRepository, int64) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	pair, err := db.Init(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { pair.Close() })

	userRepo := users.NewRepository(pair, "rock")
	userID, err := userRepo.CreateAccount("alice", "hash")
	require.NoError(t, err)
	return NewTokenRepository(pair), userID
}

func TestTokenUpsertAndGet(t *testing.T) {
	repo, userID := setupTokenRepo(t)

	missing, err := repo.Get(userID)
	require.NoError(t, err)
	require.Nil(t, missing)

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, repo.Upsert(userID, &oauth2.Token{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Expiry:       expiry,
	}))

	token, err := repo.Get(userID)
	require.NoError(t, err)
	require.NotNil(t, token)
	require.Equal(t, "access-1", token.AccessToken)
	require.Equal(t, "refresh-1", token.RefreshToken)
	require.True(t, token.Expiry.Equal(expiry))
}

func TestTokenUpsertReplacesRotatedTokens(t *testing.T) {
	repo, userID := setupTokenRepo(t)

	require.NoError(t, repo.Upsert(userID, &oauth2.Token{AccessToken: "access-1", RefreshToken: "refresh-1"}))
	require.NoError(t, repo.Upsert(userID, &oauth2.Token{AccessToken: "access-2", RefreshToken: "refresh-2"}))

	token, err := repo.Get(userID)
	require.NoError(t, err)
	require.Equal(t, "access-2", token.AccessToken)
	require.Equal(t, "refresh-2", token.RefreshToken)
}

func TestTokenDelete(t *testing.T) {
	repo, userID := setupTokenRepo(t)

	require.NoError(t, repo.Upsert(userID, &oauth2.Token{AccessToken: "access-1"}))
	require.NoError(t, repo.Delete(userID))

	token, err := repo.Get(userID)
	require.NoError(t, err)
	require.Nil(t, token)
}

func TestStateStoreIssueAndConsume(t *testing.T) {
	store := NewStateStore(time.Minute)
	defer store.Close()

	state := store.Issue(42)
	require.NotEmpty(t, state)

	userID, ok := store.Consume(state)
	require.True(t, ok)
	require.Equal(t, int64(42), userID)

	// Single use.
	_, ok = store.Consume(state)
	require.False(t, ok)

	_, ok = store.Consume("never-issued")
	require.False(t, ok)
}

func TestStateStoreExpiry(t *testing.T) {
	store := NewStateStore(10 * time.Millisecond)
	defer store.Close()

	state := store.Issue(7)
	time.Sleep(30 * time.Millisecond)

	_, ok := store.Consume(state)
	require.False(t, ok)
}
