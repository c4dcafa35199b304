package playlist

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wongsakornss/music-discovery-go/internal/apperrors"
	"github.com/wongsakornss/music-discovery-go/internal/db"
	"github.com/wongsakornss/music-discovery-go/internal/users"
)

type testEnv struct {
	repo  *Repository
	alice int64
	bob   int64
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	pair, err := db.Init(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { pair.Close() })

	userRepo := users.NewRepository(pair, "rock")
	alice, err := userRepo.CreateAccount("alice", "hash-a")
	require.NoError(t, err)
	bob, err := userRepo.CreateAccount("bob", "hash-b")
	require.NoError(t, err)

	return &testEnv{repo: NewRepository(pair), alice: alice, bob: bob}
}

func requireAppCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok, "expected *apperrors.AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code)
}

func addTrack(t *testing.T, env *testEnv, playlistID, ownerID int64, title, artist string) *Track {
	t.Helper()
	track, err := env.repo.InsertTrack(playlistID, ownerID, NewTrack{Title: title, Artist: artist})
	require.NoError(t, err)
	return track
}

func trackTitles(tracks []Track) []string {
	titles := make([]string, len(tracks))
	for i, track := range tracks {
		titles[i] = track.Title
	}
	return titles
}

func TestCreateAndListPlaylists(t *testing.T) {
	env := setupTestEnv(t)

	first, err := env.repo.Create(env.alice, "Morning", "wake up", false)
	require.NoError(t, err)
	require.False(t, first.IsPublic)
	require.Nil(t, first.ShareToken)

	second, err := env.repo.Create(env.alice, "Evening", "", true)
	require.NoError(t, err)

	_, err = env.repo.Create(env.bob, "Bob's", "", false)
	require.NoError(t, err)

	playlists, err := env.repo.List(env.alice)
	require.NoError(t, err)
	require.Len(t, playlists, 2)
	// Same-second timestamps fall back to id ordering, newest first.
	require.Equal(t, second.ID, playlists[0].ID)
	require.Equal(t, first.ID, playlists[1].ID)
	require.Equal(t, 0, playlists[0].TrackCount)
}

func TestTrackPositionsAreSequentialFromZero(t *testing.T) {
	env := setupTestEnv(t)
	playlist, err := env.repo.Create(env.alice, "Mix", "", false)
	require.NoError(t, err)

	a := addTrack(t, env, playlist.ID, env.alice, "A", "X")
	b := addTrack(t, env, playlist.ID, env.alice, "B", "X")
	c := addTrack(t, env, playlist.ID, env.alice, "C", "Y")
	require.Equal(t, 0, a.Position)
	require.Equal(t, 1, b.Position)
	require.Equal(t, 2, c.Position)

	// Deleting the middle track leaves a gap; the next insert still goes
	// after the current maximum.
	require.NoError(t, env.repo.DeleteTrack(playlist.ID, b.ID, env.alice))
	d := addTrack(t, env, playlist.ID, env.alice, "D", "Y")
	require.Equal(t, 3, d.Position)

	tracks, err := env.repo.FetchTracks(playlist.ID, env.alice, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "C", "D"}, trackTitles(tracks))
}

func TestMoveTrackSwapsWithNeighbor(t *testing.T) {
	env := setupTestEnv(t)
	playlist, err := env.repo.Create(env.alice, "Mix", "", false)
	require.NoError(t, err)

	a := addTrack(t, env, playlist.ID, env.alice, "A", "X")
	addTrack(t, env, playlist.ID, env.alice, "B", "X")
	c := addTrack(t, env, playlist.ID, env.alice, "C", "X")

	require.NoError(t, env.repo.MoveTrack(playlist.ID, c.ID, env.alice, MoveUp))
	tracks, err := env.repo.FetchTracks(playlist.ID, env.alice, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "C", "B"}, trackTitles(tracks))

	// Top track moving up is a no-op, same for bottom moving down.
	require.NoError(t, env.repo.MoveTrack(playlist.ID, a.ID, env.alice, MoveUp))
	tracks, err = env.repo.FetchTracks(playlist.ID, env.alice, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "C", "B"}, trackTitles(tracks))
}

func TestMoveTrackAcrossPositionGap(t *testing.T) {
	env := setupTestEnv(t)
	playlist, err := env.repo.Create(env.alice, "Mix", "", false)
	require.NoError(t, err)

	addTrack(t, env, playlist.ID, env.alice, "A", "X")
	b := addTrack(t, env, playlist.ID, env.alice, "B", "X")
	c := addTrack(t, env, playlist.ID, env.alice, "C", "X")

	// Leave positions 0 and 2; moving C up must swap with A across the gap.
	require.NoError(t, env.repo.DeleteTrack(playlist.ID, b.ID, env.alice))
	require.NoError(t, env.repo.MoveTrack(playlist.ID, c.ID, env.alice, MoveUp))

	tracks, err := env.repo.FetchTracks(playlist.ID, env.alice, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"C", "A"}, trackTitles(tracks))
}

func TestMoveTrackValidation(t *testing.T) {
	env := setupTestEnv(t)
	playlist, err := env.repo.Create(env.alice, "Mix", "", false)
	require.NoError(t, err)
	a := addTrack(t, env, playlist.ID, env.alice, "A", "X")

	err = env.repo.MoveTrack(playlist.ID, a.ID, env.alice, MoveDirection("sideways"))
	requireAppCode(t, err, apperrors.ErrorCodeValidationError)

	err = env.repo.MoveTrack(playlist.ID, 9999, env.alice, MoveUp)
	requireAppCode(t, err, apperrors.ErrorCodeTrackNotFound)
}

func TestAuthorize(t *testing.T) {
	env := setupTestEnv(t)
	playlist, err := env.repo.Create(env.alice, "Mine", "", false)
	require.NoError(t, err)

	_, err = env.repo.Authorize(9999, env.alice)
	requireAppCode(t, err, apperrors.ErrorCodePlaylistNotFound)

	_, err = env.repo.Authorize(playlist.ID, env.bob)
	requireAppCode(t, err, apperrors.ErrorCodeForbidden)

	owned, err := env.repo.Authorize(playlist.ID, env.alice)
	require.NoError(t, err)
	require.Equal(t, playlist.ID, owned.ID)
}

func TestNonOwnerCannotMutate(t *testing.T) {
	env := setupTestEnv(t)
	playlist, err := env.repo.Create(env.alice, "Mine", "", false)
	require.NoError(t, err)
	track := addTrack(t, env, playlist.ID, env.alice, "A", "X")

	_, err = env.repo.InsertTrack(playlist.ID, env.bob, NewTrack{Title: "B", Artist: "Y"})
	requireAppCode(t, err, apperrors.ErrorCodeForbidden)

	err = env.repo.DeleteTrack(playlist.ID, track.ID, env.bob)
	requireAppCode(t, err, apperrors.ErrorCodeForbidden)

	err = env.repo.Delete(playlist.ID, env.bob)
	requireAppCode(t, err, apperrors.ErrorCodeForbidden)

	_, err = env.repo.ClearTracks(playlist.ID, env.bob)
	requireAppCode(t, err, apperrors.ErrorCodeForbidden)
}

func TestUpdateMetaSilentForNonOwner(t *testing.T) {
	env := setupTestEnv(t)
	playlist, err := env.repo.Create(env.alice, "Original", "", false)
	require.NoError(t, err)

	newName := "Hijacked"
	updated, err := env.repo.UpdateMeta(playlist.ID, env.bob, &newName, nil, nil)
	require.NoError(t, err)
	require.Nil(t, updated)

	current, err := env.repo.Get(playlist.ID)
	require.NoError(t, err)
	require.Equal(t, "Original", current.Name)
}

func TestUpdateMetaPartialFields(t *testing.T) {
	env := setupTestEnv(t)
	playlist, err := env.repo.Create(env.alice, "Name", "desc", false)
	require.NoError(t, err)

	public := true
	updated, err := env.repo.UpdateMeta(playlist.ID, env.alice, nil, nil, &public)
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.True(t, updated.IsPublic)
	require.Equal(t, "Name", updated.Name)
	require.Equal(t, "desc", updated.Description)
}

func TestShareTokenIdempotentAndPublicLookup(t *testing.T) {
	env := setupTestEnv(t)
	playlist, err := env.repo.Create(env.alice, "Shared", "", false)
	require.NoError(t, err)
	addTrack(t, env, playlist.ID, env.alice, "A", "X")

	token, err := env.repo.EnsureShareToken(playlist.ID, env.alice)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Sharing again returns the same token.
	again, err := env.repo.EnsureShareToken(playlist.ID, env.alice)
	require.NoError(t, err)
	require.Equal(t, token, again)

	// Sharing made the playlist public.
	current, err := env.repo.Get(playlist.ID)
	require.NoError(t, err)
	require.True(t, current.IsPublic)

	shared, tracks, err := env.repo.GetPublicByToken(token)
	require.NoError(t, err)
	require.Equal(t, playlist.ID, shared.ID)
	require.Len(t, tracks, 1)

	_, _, err = env.repo.GetPublicByToken("bogus-token")
	requireAppCode(t, err, apperrors.ErrorCodeNotFound)

	// Non-owners cannot mint tokens.
	_, err = env.repo.EnsureShareToken(playlist.ID, env.bob)
	requireAppCode(t, err, apperrors.ErrorCodeForbidden)
}

func TestShareTokenHiddenWhenPrivateAgain(t *testing.T) {
	env := setupTestEnv(t)
	playlist, err := env.repo.Create(env.alice, "Shared", "", false)
	require.NoError(t, err)

	token, err := env.repo.EnsureShareToken(playlist.ID, env.alice)
	require.NoError(t, err)

	private := false
	_, err = env.repo.UpdateMeta(playlist.ID, env.alice, nil, nil, &private)
	require.NoError(t, err)

	_, _, err = env.repo.GetPublicByToken(token)
	requireAppCode(t, err, apperrors.ErrorCodeNotFound)

	// Re-sharing restores the original token.
	again, err := env.repo.EnsureShareToken(playlist.ID, env.alice)
	require.NoError(t, err)
	require.Equal(t, token, again)
}

func TestFetchTracksOwnerOnly(t *testing.T) {
	env := setupTestEnv(t)
	list, err := env.repo.Create(env.alice, "Mine", "", false)
	require.NoError(t, err)
	addTrack(t, env, list.ID, env.alice, "A", "X")

	_, err = env.repo.FetchTracks(list.ID, env.bob, 0)
	requireAppCode(t, err, apperrors.ErrorCodeForbidden)

	// Making the playlist public does not open numeric-ID reads to
	// non-owners; those stay behind the share token.
	public := true
	_, err = env.repo.UpdateMeta(list.ID, env.alice, nil, nil, &public)
	require.NoError(t, err)
	_, err = env.repo.FetchTracks(list.ID, env.bob, 0)
	requireAppCode(t, err, apperrors.ErrorCodeForbidden)

	tracks, err := env.repo.FetchTracks(list.ID, env.alice, 0)
	require.NoError(t, err)
	require.Len(t, tracks, 1)

	// The share link remains the anonymous path.
	token, err := env.repo.EnsureShareToken(list.ID, env.alice)
	require.NoError(t, err)
	_, shared, err := env.repo.GetPublicByToken(token)
	require.NoError(t, err)
	require.Len(t, shared, 1)

	_, err = env.repo.FetchTracks(9999, env.alice, 0)
	requireAppCode(t, err, apperrors.ErrorCodePlaylistNotFound)
}

func TestFetchTracksLimit(t *testing.T) {
	env := setupTestEnv(t)
	playlist, err := env.repo.Create(env.alice, "Long", "", false)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		addTrack(t, env, playlist.ID, env.alice, fmt.Sprintf("T%d", i), "X")
	}

	tracks, err := env.repo.FetchTracks(playlist.ID, env.alice, 3)
	require.NoError(t, err)
	require.Equal(t, []string{"T0", "T1", "T2"}, trackTitles(tracks))
}

func TestDeletePlaylistCascadesTracks(t *testing.T) {
	env := setupTestEnv(t)
	playlist, err := env.repo.Create(env.alice, "Doomed", "", false)
	require.NoError(t, err)
	addTrack(t, env, playlist.ID, env.alice, "A", "X")
	addTrack(t, env, playlist.ID, env.alice, "B", "Y")

	require.NoError(t, env.repo.Delete(playlist.ID, env.alice))

	_, err = env.repo.Get(playlist.ID)
	require.NoError(t, err)

	stats, err := env.repo.MusicStats(env.alice)
	require.NoError(t, err)
	require.Equal(t, 0, stats.PlaylistCount)
	require.Equal(t, 0, stats.TrackCount)
}

func TestClearTracks(t *testing.T) {
	env := setupTestEnv(t)
	playlist, err := env.repo.Create(env.alice, "Full", "", false)
	require.NoError(t, err)
	addTrack(t, env, playlist.ID, env.alice, "A", "X")
	addTrack(t, env, playlist.ID, env.alice, "B", "Y")

	removed, err := env.repo.ClearTracks(playlist.ID, env.alice)
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	tracks, err := env.repo.FetchTracks(playlist.ID, env.alice, 0)
	require.NoError(t, err)
	require.Empty(t, tracks)
}

func TestExportCSV(t *testing.T) {
	env := setupTestEnv(t)
	playlist, err := env.repo.Create(env.alice, "Export", "", false)
	require.NoError(t, err)
	for i := 0; i < 12; i++ {
		addTrack(t, env, playlist.ID, env.alice, fmt.Sprintf("Song %d", i), "Artist")
	}

	data, err := env.repo.ExportCSV(playlist.ID, env.alice)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Equal(t, "id,title,artist,url,mbid,position,added_at", lines[0])
	// Header plus at most ten rows.
	require.Len(t, lines, 11)
	require.Contains(t, lines[1], "Song 0")

	_, err = env.repo.ExportCSV(playlist.ID, env.bob)
	requireAppCode(t, err, apperrors.ErrorCodeForbidden)
}

func TestMusicStatsAndSummaries(t *testing.T) {
	env := setupTestEnv(t)
	public, err := env.repo.Create(env.alice, "Public", "", true)
	require.NoError(t, err)
	private, err := env.repo.Create(env.alice, "Private", "", false)
	require.NoError(t, err)

	addTrack(t, env, public.ID, env.alice, "A", "Radiohead")
	addTrack(t, env, public.ID, env.alice, "B", "Radiohead")
	addTrack(t, env, private.ID, env.alice, "C", "Portishead")

	stats, err := env.repo.MusicStats(env.alice)
	require.NoError(t, err)
	require.Equal(t, 2, stats.PlaylistCount)
	require.Equal(t, 3, stats.TrackCount)
	require.Equal(t, 1, stats.PublicPlaylists)
	require.Equal(t, 1, stats.PrivatePlaylists)
	require.Equal(t, 2, stats.DistinctArtists)

	// Owners see everything, visitors only public playlists.
	mine, err := env.repo.PlaylistSummaries(env.alice, env.alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)

	visible, err := env.repo.PlaylistSummaries(env.alice, env.bob)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, "Public", visible[0].Name)
	require.Equal(t, 2, visible[0].TrackCount)
}
