package auth

import (
	"encoding/json"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wongsakornss/music-discovery-go/internal/api"
	"github.com/wongsakornss/music-discovery-go/internal/apperrors"
	"github.com/wongsakornss/music-discovery-go/internal/config"
)

// Account is the credential view of a user account.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
}

// AccountStore is the persistence surface the auth routes need.
// CreateAccount returns a conflict AppError when the username is taken.
// AccountByUsername returns (nil, nil) when the account does not exist.
type AccountStore interface {
	CreateAccount(username, passwordHash string) (int64, error)
	AccountByUsername(username string) (*Account, error)
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type tokenResponse struct {
	User         userView `json:"user"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int      `json:"expires_in"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// RegisterRoutes mounts the /auth endpoints.
func RegisterRoutes(router chi.Router, cfg config.Config, store AccountStore, logger *log.Logger) {
	router.Method("POST", "/auth/register", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return apperrors.NewValidationError("invalid JSON body", nil)
		}

		req.Username = strings.TrimSpace(req.Username)
		if !usernamePattern.MatchString(req.Username) {
			return apperrors.NewValidationError("username must be 3-32 characters (letters, digits, _ . -)", nil)
		}

		passwordHash, err := HashPassword(req.Password)
		if err != nil {
			return apperrors.NewValidationError(err.Error(), nil)
		}

		userID, err := store.CreateAccount(req.Username, passwordHash)
		if err != nil {
			return err
		}
		logger.Printf("registered user %q (id=%d)", req.Username, userID)

		pair, err := GenerateTokenPair(cfg, TokenPayload{UserID: userID, Username: req.Username})
		if err != nil {
			return apperrors.NewInternalError("failed to issue tokens")
		}
		return api.WriteResource(w, http.StatusCreated, tokenResponse{
			User:         userView{ID: userID, Username: req.Username},
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    pair.ExpiresInSec,
		})
	}))

	router.Method("POST", "/auth/login", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return apperrors.NewValidationError("invalid JSON body", nil)
		}

		account, err := store.AccountByUsername(strings.TrimSpace(req.Username))
		if err != nil {
			return err
		}
		if account == nil || !CheckPassword(account.PasswordHash, req.Password) {
			return apperrors.NewUnauthorizedError("invalid username or password")
		}

		pair, err := GenerateTokenPair(cfg, TokenPayload{UserID: account.ID, Username: account.Username})
		if err != nil {
			return apperrors.NewInternalError("failed to issue tokens")
		}
		return api.WriteResource(w, http.StatusOK, tokenResponse{
			User:         userView{ID: account.ID, Username: account.Username},
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    pair.ExpiresInSec,
		})
	}))

	router.Method("POST", "/auth/refresh", api.Handler(func(w http.ResponseWriter, r *http.Request) error {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return apperrors.NewValidationError("invalid JSON body", nil)
		}
		if req.RefreshToken == "" {
			return apperrors.NewValidationError("refresh_token is required", nil)
		}

		accessToken, expiresIn, err := RefreshAccessToken(cfg, req.RefreshToken)
		if err != nil {
			switch err {
			case ErrTokenExpired:
				return apperrors.NewUnauthorizedError("refresh token expired", apperrors.ErrorCodeAuthTokenExpired)
			case ErrTokenType:
				return apperrors.NewUnauthorizedError("refresh token required", apperrors.ErrorCodeAuthTokenInvalid)
			default:
				return apperrors.NewUnauthorizedError("refresh token invalid", apperrors.ErrorCodeAuthTokenInvalid)
			}
		}
		return api.WriteResource(w, http.StatusOK, refreshResponse{
			AccessToken: accessToken,
			TokenType:   "Bearer",
			ExpiresIn:   expiresIn,
		})
	}))
}
