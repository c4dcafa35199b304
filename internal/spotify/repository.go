package spotify

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/wongsakornss/music-discovery-go/internal/db"
)

// Provider is the value stored in user_tokens.provider for Spotify rows.
const Provider = "spotify"

// TokenRepository persists OAuth tokens, one row per user and provider.
type TokenRepository struct {
	db *db.DBPair
}

func NewTokenRepository(dbPair *db.DBPair) *TokenRepository {
	return &TokenRepository{db: dbPair}
}

// Upsert stores or replaces the user's Spotify token. Refresh-token
// rotation by the provider is persisted through this same path.
func (r *TokenRepository) Upsert(userID int64, token *oauth2.Token) error {
	var expiresAt any
	if !token.Expiry.IsZero() {
		expiresAt = token.Expiry.UTC().Format(time.RFC3339)
	}

	_, err := r.db.Writer().Exec(
		`INSERT INTO user_tokens (user_id, provider, access_token, refresh_token, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, provider) DO UPDATE SET
		   access_token = excluded.access_token,
		   refresh_token = excluded.refresh_token,
		   expires_at = excluded.expires_at`,
		userID, Provider, token.AccessToken, nullable(token.RefreshToken), expiresAt,
	)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

// Get returns the user's stored token, or (nil, nil) when not linked.
func (r *TokenRepository) Get(userID int64) (*oauth2.Token, error) {
	row := r.db.Reader().QueryRow(
		`SELECT access_token, refresh_token, expires_at
		 FROM user_tokens WHERE user_id = ? AND provider = ?`,
		userID, Provider,
	)

	var accessToken string
	var refreshToken, expiresAt sql.NullString
	if err := row.Scan(&accessToken, &refreshToken, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan token: %w", err)
	}

	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken.String,
		TokenType:    "Bearer",
	}
	if expiresAt.Valid && expiresAt.String != "" {
		expiry, err := time.Parse(time.RFC3339, expiresAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse expires_at: %w", err)
		}
		token.Expiry = expiry
	}
	return token, nil
}

// Delete unlinks the user's Spotify account.
func (r *TokenRepository) Delete(userID int64) error {
	_, err := r.db.Writer().Exec(
		`DELETE FROM user_tokens WHERE user_id = ? AND provider = ?`, userID, Provider)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
