package playlist

import (
	"log"
)

// Event types emitted to the activity log.
const (
	EventPlaylistCreated = "PLAYLIST_CREATED"
	EventPlaylistDeleted = "PLAYLIST_DELETED"
	EventPlaylistShared  = "PLAYLIST_SHARED"
	EventPlaylistCleared = "PLAYLIST_CLEARED"
	EventTrackAdded      = "TRACK_ADDED"
	EventTrackRemoved    = "TRACK_REMOVED"
)

// ActivityRecorder receives playlist mutation events. Recording is
// best-effort; failures never abort the mutation that triggered them.
type ActivityRecorder interface {
	Record(userID int64, playlistID *int64, eventType, message string, payload map[string]any) error
}

// Service coordinates playlist operations. All persistence rules live in
// the repository; the service adds activity emission and logging on top.
type Service struct {
	repo     *Repository
	activity ActivityRecorder
	logger   *log.Logger
}

func NewService(repo *Repository, activity ActivityRecorder, logger *log.Logger) *Service {
	return &Service{repo: repo, activity: activity, logger: logger}
}

func (s *Service) Create(userID int64, name, description string, isPublic bool) (*Playlist, error) {
	playlist, err := s.repo.Create(userID, name, description, isPublic)
	if err != nil {
		return nil, err
	}
	s.record(userID, &playlist.ID, EventPlaylistCreated,
		"created playlist "+playlist.Name, map[string]any{"name": playlist.Name})
	return playlist, nil
}

func (s *Service) List(userID int64) ([]Playlist, error) {
	return s.repo.List(userID)
}

func (s *Service) Get(playlistID, requesterID int64) (*Playlist, error) {
	return s.repo.Authorize(playlistID, requesterID)
}

func (s *Service) Delete(playlistID, requesterID int64) error {
	if err := s.repo.Delete(playlistID, requesterID); err != nil {
		return err
	}
	s.record(requesterID, &playlistID, EventPlaylistDeleted, "deleted playlist", nil)
	return nil
}

func (s *Service) UpdateMeta(playlistID, requesterID int64, name, description *string, isPublic *bool) (*Playlist, error) {
	return s.repo.UpdateMeta(playlistID, requesterID, name, description, isPublic)
}

func (s *Service) Share(playlistID, requesterID int64) (string, error) {
	token, err := s.repo.EnsureShareToken(playlistID, requesterID)
	if err != nil {
		return "", err
	}
	s.record(requesterID, &playlistID, EventPlaylistShared, "shared playlist", nil)
	return token, nil
}

func (s *Service) GetPublicByToken(token string) (*Playlist, []Track, error) {
	return s.repo.GetPublicByToken(token)
}

func (s *Service) AddTrack(playlistID, requesterID int64, track NewTrack) (*Track, error) {
	saved, err := s.repo.InsertTrack(playlistID, requesterID, track)
	if err != nil {
		return nil, err
	}
	s.record(requesterID, &playlistID, EventTrackAdded,
		"added "+saved.Title+" by "+saved.Artist,
		map[string]any{"title": saved.Title, "artist": saved.Artist})
	return saved, nil
}

func (s *Service) RemoveTrack(playlistID, trackID, requesterID int64) error {
	if err := s.repo.DeleteTrack(playlistID, trackID, requesterID); err != nil {
		return err
	}
	s.record(requesterID, &playlistID, EventTrackRemoved, "removed track",
		map[string]any{"track_id": trackID})
	return nil
}

func (s *Service) Tracks(playlistID, requesterID int64, limit int) ([]Track, error) {
	return s.repo.FetchTracks(playlistID, requesterID, limit)
}

func (s *Service) MoveTrack(playlistID, trackID, requesterID int64, direction MoveDirection) error {
	return s.repo.MoveTrack(playlistID, trackID, requesterID, direction)
}

func (s *Service) Clear(playlistID, requesterID int64) (int, error) {
	removed, err := s.repo.ClearTracks(playlistID, requesterID)
	if err != nil {
		return 0, err
	}
	s.record(requesterID, &playlistID, EventPlaylistCleared, "cleared playlist",
		map[string]any{"removed": removed})
	return removed, nil
}

func (s *Service) ExportCSV(playlistID, requesterID int64) ([]byte, error) {
	return s.repo.ExportCSV(playlistID, requesterID)
}

func (s *Service) record(userID int64, playlistID *int64, eventType, message string, payload map[string]any) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Record(userID, playlistID, eventType, message, payload); err != nil {
		s.logger.Printf("activity record failed (%s): %v", eventType, err)
	}
}
