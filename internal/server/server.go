// Package server wires configuration, storage and feature routes into a
// single HTTP handler.
package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wongsakornss/music-discovery-go/internal/activity"
	"github.com/wongsakornss/music-discovery-go/internal/api"
	"github.com/wongsakornss/music-discovery-go/internal/auth"
	"github.com/wongsakornss/music-discovery-go/internal/config"
	"github.com/wongsakornss/music-discovery-go/internal/db"
	"github.com/wongsakornss/music-discovery-go/internal/discovery"
	"github.com/wongsakornss/music-discovery-go/internal/lastfm"
	"github.com/wongsakornss/music-discovery-go/internal/openapi"
	"github.com/wongsakornss/music-discovery-go/internal/playlist"
	"github.com/wongsakornss/music-discovery-go/internal/spotify"
	"github.com/wongsakornss/music-discovery-go/internal/users"
)

// New builds the application handler. The returned shutdown func stops
// background workers and closes the database.
func New(cfg config.Config, logger *log.Logger) (http.Handler, func(), error) {
	dbPair, err := db.Init(cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("init database: %w", err)
	}

	userRepo := users.NewRepository(dbPair, cfg.DefaultGenre)
	playlistRepo := playlist.NewRepository(dbPair)

	activityService := activity.NewService(activity.NewRepository(dbPair), cfg.ActivityRetentionDays, logger)
	activityService.StartPruning()

	playlistService := playlist.NewService(playlistRepo, activityService, logger)

	lastfmClient := lastfm.NewClient(lastfm.ClientConfig{
		APIKey:     cfg.LastFMAPIKey,
		BaseURL:    cfg.LastFMBaseURL,
		Timeout:    time.Duration(cfg.LastFMTimeoutMs) * time.Millisecond,
		RatePerSec: cfg.LastFMRatePerSec,
		CacheSize:  cfg.SimilarCacheSize,
	})

	tokenRepo := spotify.NewTokenRepository(dbPair)
	spotifyClient := spotify.NewClient(spotify.ClientConfig{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		RedirectURI:  cfg.SpotifyRedirectURI,
		Timeout:      time.Duration(cfg.SpotifyTimeoutMs) * time.Millisecond,
	}, tokenRepo, logger)
	exporter := spotify.NewExporter(spotifyClient, logger)
	states := spotify.NewStateStore(0)

	router := chi.NewRouter()
	router.Use(api.RequestIDMiddleware)
	router.Use(requestLogMiddleware(logger))
	router.Use(api.RecovererMiddleware)

	router.Route("/v1", func(r chi.Router) {
		r.Use(auth.Middleware(cfg))

		r.Method("GET", "/health", api.Handler(func(w http.ResponseWriter, req *http.Request) error {
			return api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		}))

		auth.RegisterRoutes(r, cfg, userRepo, logger)
		users.RegisterRoutes(r, userRepo, playlistRepo)
		playlist.RegisterRoutes(r, playlistService, cfg.AppBaseURL)
		discovery.RegisterRoutes(r, lastfmClient, userRepo)
		spotify.RegisterRoutes(r, spotifyClient, exporter, states, playlistService, activityService)
		activity.RegisterRoutes(r, activityService)
		openapi.RegisterRoutes(r)
	})

	shutdown := func() {
		states.Close()
		activityService.Stop()
		if err := dbPair.Close(); err != nil {
			logger.Printf("closing database: %v", err)
		}
	}
	return router, shutdown, nil
}

// requestLogMiddleware logs one line per request with method, path, status
// and duration.
func requestLogMiddleware(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			logger.Printf("%s %s -> %d (%s) [%s]",
				r.Method, r.URL.Path, recorder.status, time.Since(start), api.GetRequestID(r))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}
