// Package profiles provides persistent per-user food preference storage.
package profiles

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages food preference persistence. A food lives in exactly one
// sentiment category per user; recording it again moves it.
type Store struct {
	db *sql.DB
}

// NewStore creates a preference store using the given database path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS food_preferences (
			user TEXT NOT NULL,
			food TEXT NOT NULL,
			category TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user, food)
		);

		CREATE INDEX IF NOT EXISTS idx_prefs_user ON food_preferences(user);

		CREATE TABLE IF NOT EXISTS digest_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			last_line INTEGER NOT NULL
		);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetPreference records the user's sentiment toward a food. Foods are
// matched case-insensitively, so "Pizza" and "pizza" are one entry.
func (s *Store) SetPreference(ctx context.Context, user, food, category string) error {
	user = strings.TrimSpace(user)
	food = strings.ToLower(strings.TrimSpace(food))
	category = strings.ToLower(strings.TrimSpace(category))
	if user == "" || food == "" || category == "" {
		return fmt.Errorf("user, food and category are required")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO food_preferences (user, food, category, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user, food) DO UPDATE SET category = excluded.category, updated_at = excluded.updated_at
	`, user, food, category, now)
	if err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

// Preferences returns the user's foods grouped by sentiment category.
func (s *Store) Preferences(ctx context.Context, user string) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT food, category FROM food_preferences
		WHERE user = ? ORDER BY category, food
	`, strings.TrimSpace(user))
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	preferences := make(map[string][]string)
	for rows.Next() {
		var food, category string
		if err := rows.Scan(&food, &category); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		preferences[category] = append(preferences[category], food)
	}
	return preferences, rows.Err()
}

// Users returns all users with at least one recorded preference.
func (s *Store) Users(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT user FROM food_preferences ORDER BY user
	`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var user string
		if err := rows.Scan(&user); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// DigestOffset returns the transcript line the digest worker has processed
// up to. Zero when no digest has run yet.
func (s *Store) DigestOffset(ctx context.Context) (int, error) {
	var line int
	err := s.db.QueryRowContext(ctx, `SELECT last_line FROM digest_state WHERE id = 1`).Scan(&line)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query digest offset: %w", err)
	}
	return line, nil
}

// SetDigestOffset records how far the digest worker has scanned.
func (s *Store) SetDigestOffset(ctx context.Context, line int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO digest_state (id, last_line) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_line = excluded.last_line
	`, line)
	if err != nil {
		return fmt.Errorf("save digest offset: %w", err)
	}
	return nil
}
