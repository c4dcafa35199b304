package activity

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wongsakornss/music-discovery-go/internal/db"
)

const pruneInterval = 6 * time.Hour

// Service records activity events and prunes old ones in the background.
// It satisfies the playlist package's ActivityRecorder.
type Service struct {
	repo          *Repository
	retentionDays int
	logger        *log.Logger
	done          chan struct{}
	once          sync.Once
}

func NewService(repo *Repository, retentionDays int, logger *log.Logger) *Service {
	return &Service{
		repo:          repo,
		retentionDays: retentionDays,
		logger:        logger,
		done:          make(chan struct{}),
	}
}

// Record stores one event with a generated id and timestamp.
func (s *Service) Record(userID int64, playlistID *int64, eventType, message string, payload map[string]any) error {
	return s.repo.Insert(Event{
		EventID:    uuid.NewString(),
		UserID:     userID,
		PlaylistID: playlistID,
		Type:       eventType,
		Message:    message,
		Payload:    payload,
		CreatedAt:  db.NowISO(),
	})
}

// Feed returns the user's recent events.
func (s *Service) Feed(userID int64, limit int) ([]Event, error) {
	return s.repo.ListByUser(userID, limit)
}

// StartPruning launches the retention loop. A non-positive retention
// disables pruning entirely.
func (s *Service) StartPruning() {
	if s.retentionDays <= 0 {
		return
	}
	go s.pruneLoop()
}

// Stop shuts down the pruning loop.
func (s *Service) Stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *Service) pruneLoop() {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	s.pruneOnce()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.pruneOnce()
		}
	}
}

func (s *Service) pruneOnce() {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays).Format(time.RFC3339)
	removed, err := s.repo.DeleteOlderThan(cutoff)
	if err != nil {
		s.logger.Printf("activity prune failed: %v", err)
		return
	}
	if removed > 0 {
		s.logger.Printf("pruned %d activity events older than %s", removed, cutoff)
	}
}
