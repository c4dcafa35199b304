package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the base server configuration.
type Config struct {
	Host         string
	Port         string
	SQLiteDBPath string
	Env          string
	AppBaseURL   string

	JWTSecret                string
	JWTAccessTokenExpirySec  int
	JWTRefreshTokenExpirySec int

	DefaultGenre string

	LastFMAPIKey     string
	LastFMBaseURL    string
	LastFMTimeoutMs  int
	LastFMRatePerSec float64
	SimilarCacheSize int

	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRedirectURI  string
	SpotifyTimeoutMs    int

	ActivityRetentionDays int
}

// Load reads configuration from environment variables with defaults.
func Load() (Config, error) {
	host := envString("HOST", "0.0.0.0")
	port := envString("PORT", "9000")
	sqlitePath := envString("SQLITE_DB_PATH", "./data/music-discovery.db")
	env := envString("APP_ENV", "development")
	appBaseURL := envString("APP_BASE_URL", "http://localhost:"+port)

	jwtSecret := envString("JWT_SECRET", "")
	jwtAccessExpiry := envInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)
	jwtRefreshExpiry := envInt("JWT_REFRESH_TOKEN_EXPIRY", 2592000)

	defaultGenre := envString("DEFAULT_GENRE", "pop")

	lastfmKey := envString("LASTFM_API_KEY", "")
	lastfmBase := envString("LASTFM_BASE_URL", "https://ws.audioscrobbler.com/2.0/")
	lastfmTimeout := envInt("LASTFM_TIMEOUT_MS", 15000)
	lastfmRate := envFloat("LASTFM_RATE_PER_SEC", 5)
	similarCacheSize := envInt("SIMILAR_ARTIST_CACHE_SIZE", 512)

	spotifyClientID := envString("SPOTIFY_CLIENT_ID", "")
	spotifyClientSecret := envString("SPOTIFY_CLIENT_SECRET", "")
	spotifyRedirectURI := envString("SPOTIFY_REDIRECT_URI", "")
	spotifyTimeout := envInt("SPOTIFY_TIMEOUT_MS", 15000)

	activityRetention := envInt("ACTIVITY_RETENTION_DAYS", 90)

	if len(strings.TrimSpace(jwtSecret)) < 32 {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}

	return Config{
		Host:                     host,
		Port:                     port,
		SQLiteDBPath:             sqlitePath,
		Env:                      env,
		AppBaseURL:               strings.TrimRight(appBaseURL, "/"),
		JWTSecret:                jwtSecret,
		JWTAccessTokenExpirySec:  jwtAccessExpiry,
		JWTRefreshTokenExpirySec: jwtRefreshExpiry,
		DefaultGenre:             defaultGenre,
		LastFMAPIKey:             lastfmKey,
		LastFMBaseURL:            lastfmBase,
		LastFMTimeoutMs:          lastfmTimeout,
		LastFMRatePerSec:         lastfmRate,
		SimilarCacheSize:         similarCacheSize,
		SpotifyClientID:          spotifyClientID,
		SpotifyClientSecret:      spotifyClientSecret,
		SpotifyRedirectURI:       spotifyRedirectURI,
		SpotifyTimeoutMs:         spotifyTimeout,
		ActivityRetentionDays:    activityRetention,
	}, nil
}

func envString(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
