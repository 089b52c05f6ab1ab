package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/subsync/internal/models"
)

// userID is the primary key of the only profile row.
const userID = 1

// GetUser retrieves the singleton profile and its photo flag.
// The photo itself is not part of the relational schema.
func (s *SQLiteStore) GetUser(ctx context.Context) (models.User, bool, error) {
	query := `
		SELECT COALESCE(name, ''), COALESCE(photo, '0'), COALESCE(currency, ''), COALESCE(theme, '')
		FROM user
		WHERE id = ?
	`

	var (
		user  models.User
		photo string
		theme string
	)
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.Name,
		&photo,
		&user.Currency,
		&theme,
	)
	if err == sql.ErrNoRows {
		return models.DefaultUser(), false, nil
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("failed to get user: %w", err)
	}

	user.Theme = models.Theme(theme)
	return user.Normalized(), photo == "1", nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// UpsertUser inserts the singleton profile or replaces its fields.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user models.User) error {
	return upsertUser(ctx, s.db, user)
}

func upsertUser(ctx context.Context, db execer, user models.User) error {
	user = user.Normalized()
	query := `
		INSERT INTO user (id, name, photo, currency, theme)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			photo = excluded.photo,
			currency = excluded.currency,
			theme = excluded.theme
	`

	_, err := db.ExecContext(ctx, query,
		userID,
		user.Name,
		photoFlag(user.HasPhoto()),
		user.Currency,
		string(user.Theme),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

// resetUser restores the profile row to defaults inside tx.
func resetUser(ctx context.Context, tx *sql.Tx) error {
	def := models.DefaultUser()
	_, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO user (id, name, photo, currency, theme) VALUES (?, ?, ?, ?, ?)",
		userID, def.Name, photoFlag(false), def.Currency, string(def.Theme),
	)
	if err != nil {
		return fmt.Errorf("failed to reset user: %w", err)
	}
	return nil
}

func photoFlag(has bool) string {
	if has {
		return "1"
	}
	return "0"
}
