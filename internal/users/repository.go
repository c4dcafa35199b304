package users

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/wongsakornss/music-discovery-go/internal/apperrors"
	"github.com/wongsakornss/music-discovery-go/internal/auth"
	"github.com/wongsakornss/music-discovery-go/internal/db"
)

// Repository persists user accounts and preferences.
type Repository struct {
	db           *db.DBPair
	defaultGenre string
}

// NewRepository creates a user repository. defaultGenre is the fallback
// returned when a user has not chosen a genre.
func NewRepository(dbPair *db.DBPair, defaultGenre string) *Repository {
	return &Repository{db: dbPair, defaultGenre: defaultGenre}
}

// CreateAccount inserts a new user together with an empty preference row.
// Returns a conflict error when the username is already taken.
func (r *Repository) CreateAccount(username, passwordHash string) (int64, error) {
	tx, err := r.db.Writer().Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, passwordHash, db.NowISO(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperrors.NewConflictError("username already taken", map[string]any{"username": username})
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	userID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO user_pref (user_id, default_genre) VALUES (?, NULL)`, userID); err != nil {
		return 0, fmt.Errorf("insert user_pref: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return userID, nil
}

// AccountByUsername loads credential material for login.
// Returns (nil, nil) when no such user exists.
func (r *Repository) AccountByUsername(username string) (*auth.Account, error) {
	row := r.db.Reader().QueryRow(
		`SELECT id, username, password_hash FROM users WHERE username = ?`, username)

	var account auth.Account
	if err := row.Scan(&account.ID, &account.Username, &account.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &account, nil
}

// GetByID returns the user, or (nil, nil) when absent.
func (r *Repository) GetByID(id int64) (*User, error) {
	row := r.db.Reader().QueryRow(
		`SELECT id, username, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetByUsername returns the user, or (nil, nil) when absent.
func (r *Repository) GetByUsername(username string) (*User, error) {
	row := r.db.Reader().QueryRow(
		`SELECT id, username, created_at FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*User, error) {
	var user User
	if err := row.Scan(&user.ID, &user.Username, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}

// DefaultGenre returns the user's chosen genre. When no preference has
// been set, the configured fallback is written to the preference row on
// this first read, so later fallback changes do not shift the genre of
// users already served. Unknown users (no preference row) get the
// fallback without a write.
func (r *Repository) DefaultGenre(userID int64) (string, error) {
	row := r.db.Reader().QueryRow(
		`SELECT default_genre FROM user_pref WHERE user_id = ?`, userID)

	var genre sql.NullString
	if err := row.Scan(&genre); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.defaultGenre, nil
		}
		return "", fmt.Errorf("scan default_genre: %w", err)
	}
	if genre.Valid && genre.String != "" {
		return genre.String, nil
	}

	_, err := r.db.Writer().Exec(
		`UPDATE user_pref SET default_genre = ?
		 WHERE user_id = ? AND (default_genre IS NULL OR default_genre = '')`,
		r.defaultGenre, userID,
	)
	if err != nil {
		return "", fmt.Errorf("persist default_genre: %w", err)
	}
	return r.defaultGenre, nil
}

// SetDefaultGenre upserts the user's preferred genre.
func (r *Repository) SetDefaultGenre(userID int64, genre string) error {
	_, err := r.db.Writer().Exec(
		`INSERT INTO user_pref (user_id, default_genre) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET default_genre = excluded.default_genre`,
		userID, genre,
	)
	if err != nil {
		return fmt.Errorf("set default_genre: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
