package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// Store persists sessions, favorites and activation history
type Store struct {
	db *sql.DB
}

// Activation is one recorded attempt to open a resource link
type Activation struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	ResourceID  string    `json:"resource_id"`
	Link        string    `json:"link"`
	Failed      bool      `json:"failed"`
	ActivatedAt time.Time `json:"activated_at"`
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession registers a new session and returns its id
func (s *Store) CreateSession(ctx context.Context) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, created_at) VALUES (?, ?)",
		id, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

// EnsureSession registers id if it does not exist yet
func (s *Store) EnsureSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO sessions (id, created_at) VALUES (?, ?)",
		id, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}
	return nil
}

// AddFavorite bookmarks a resource for a session
func (s *Store) AddFavorite(ctx context.Context, sessionID, resourceID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO favorites (session_id, resource_id, created_at) VALUES (?, ?, ?)",
		sessionID, resourceID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite drops a bookmark
func (s *Store) RemoveFavorite(ctx context.Context, sessionID, resourceID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM favorites WHERE session_id = ? AND resource_id = ?",
		sessionID, resourceID,
	)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// ListFavorites returns a session's bookmarks, oldest first
func (s *Store) ListFavorites(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT resource_id FROM favorites WHERE session_id = ? ORDER BY created_at, resource_id",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// RecordActivation appends to a session's activation history
func (s *Store) RecordActivation(ctx context.Context, sessionID, resourceID, link string, failed bool) error {
	a := &Activation{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		ResourceID:  resourceID,
		Link:        link,
		Failed:      failed,
		ActivatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO activations (id, session_id, resource_id, link, failed, activated_at) VALUES (?, ?, ?, ?, ?, ?)",
		a.ID, a.SessionID, a.ResourceID, a.Link, a.Failed, a.ActivatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activation: %w", err)
	}
	return nil
}

// ListActivations returns recent activations for a session, newest first
func (s *Store) ListActivations(ctx context.Context, sessionID string, limit int) ([]Activation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, session_id, resource_id, link, failed, activated_at FROM activations WHERE session_id = ? ORDER BY activated_at DESC LIMIT ?",
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list activations: %w", err)
	}
	defer rows.Close()

	var out []Activation
	for rows.Next() {
		var a Activation
		if err := rows.Scan(&a.ID, &a.SessionID, &a.ResourceID, &a.Link, &a.Failed, &a.ActivatedAt); err != nil {
			return nil, fmt.Errorf("scan activation: %w", err)
		}
		out = append(out, a)
	}

	return out, rows.Err()
}
