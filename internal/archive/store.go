// Package archive persists finished games. The game core only writes
// records here on Won/Abandoned; it never reads them back during play.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"twentyq/internal/game"
)

// Store keeps finished-game records in Postgres when a DSN is
// configured, otherwise in a local JSON file. Reads go through a small
// LRU cache in the Postgres case.
type Store struct {
	path string
	db   *sql.DB

	loadOnce sync.Once
	mu       sync.RWMutex
	byID     map[string]game.FinishedGame

	schemaOnce sync.Once
	schemaErr  error

	cache *lru.Cache[string, game.FinishedGame]
}

// New creates a file-backed store at path.
func New(path string) *Store {
	return &Store{
		path: path,
		byID: make(map[string]game.FinishedGame),
	}
}

// NewPostgres creates a Postgres-backed store.
func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[string, game.FinishedGame](1024)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, cache: cache}, nil
}

// NewFromEnv picks Postgres when ARCHIVE_PG_DSN is set and reachable,
// falling back to the file backend at path.
func NewFromEnv(path string) *Store {
	dsn := strings.TrimSpace(os.Getenv("ARCHIVE_PG_DSN"))
	if dsn == "" {
		return New(path)
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		return New(path)
	}
	return s
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS finished_games (
    session_id  TEXT PRIMARY KEY,
    owner       TEXT NOT NULL DEFAULT '',
    transcript  JSONB NOT NULL,
    final_guess TEXT NOT NULL DEFAULT '',
    outcome     TEXT NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS finished_games_owner_idx ON finished_games (owner);
`

func (s *Store) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, schemaSQL)
	})
	return s.schemaErr
}

// SaveFinished upserts one finished game.
func (s *Store) SaveFinished(ctx context.Context, rec game.FinishedGame) error {
	if rec.SessionID == "" {
		return errors.New("archive: session id is required")
	}
	if s.db != nil {
		return s.savePostgres(ctx, rec)
	}
	return s.saveFile(rec)
}

// Get returns one record by session id.
func (s *Store) Get(ctx context.Context, sessionID string) (game.FinishedGame, bool, error) {
	if s.db != nil {
		return s.getPostgres(ctx, sessionID)
	}
	return s.getFile(sessionID)
}

// ListByOwner returns every record for the given owner token.
func (s *Store) ListByOwner(ctx context.Context, owner string) ([]game.FinishedGame, error) {
	if s.db != nil {
		return s.listPostgres(ctx, owner)
	}
	return s.listFile(owner), nil
}

// ---- Postgres backend ----

func (s *Store) savePostgres(ctx context.Context, rec game.FinishedGame) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	transcript, err := json.Marshal(rec.Transcript)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO finished_games (session_id, owner, transcript, final_guess, outcome, finished_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (session_id) DO UPDATE SET
    owner = EXCLUDED.owner,
    transcript = EXCLUDED.transcript,
    final_guess = EXCLUDED.final_guess,
    outcome = EXCLUDED.outcome,
    finished_at = EXCLUDED.finished_at`,
		rec.SessionID, rec.Owner, transcript, rec.FinalGuess, string(rec.Outcome), rec.FinishedAt,
	)
	if err == nil {
		s.cache.Add(rec.SessionID, rec)
	}
	return err
}

func (s *Store) getPostgres(ctx context.Context, sessionID string) (game.FinishedGame, bool, error) {
	if rec, ok := s.cache.Get(sessionID); ok {
		return rec, true, nil
	}
	if err := s.ensureSchema(ctx); err != nil {
		return game.FinishedGame{}, false, err
	}
	row := s.db.QueryRowContext(ctx, `
SELECT session_id, owner, transcript, final_guess, outcome, finished_at
FROM finished_games WHERE session_id = $1`, sessionID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return game.FinishedGame{}, false, nil
	}
	if err != nil {
		return game.FinishedGame{}, false, err
	}
	s.cache.Add(rec.SessionID, rec)
	return rec, true, nil
}

func (s *Store) listPostgres(ctx context.Context, owner string) ([]game.FinishedGame, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, owner, transcript, final_guess, outcome, finished_at
FROM finished_games WHERE owner = $1 ORDER BY finished_at DESC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.FinishedGame
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (game.FinishedGame, error) {
	var rec game.FinishedGame
	var transcript []byte
	var outcome string
	if err := row.Scan(&rec.SessionID, &rec.Owner, &transcript, &rec.FinalGuess, &outcome, &rec.FinishedAt); err != nil {
		return game.FinishedGame{}, err
	}
	rec.Outcome = game.Outcome(outcome)
	if err := json.Unmarshal(transcript, &rec.Transcript); err != nil {
		return game.FinishedGame{}, err
	}
	return rec, nil
}

// ---- file backend ----

func (s *Store) ensureLoaded() {
	s.loadOnce.Do(func() {
		b, err := os.ReadFile(s.path)
		if err != nil {
			return
		}
		var byID map[string]game.FinishedGame
		if err := json.Unmarshal(b, &byID); err != nil {
			return
		}
		s.mu.Lock()
		s.byID = byID
		s.mu.Unlock()
	})
}

func (s *Store) saveFile(rec game.FinishedGame) error {
	s.ensureLoaded()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[rec.SessionID] = rec

	b, err := json.MarshalIndent(s.byID, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, b, 0o644)
}

func (s *Store) getFile(sessionID string) (game.FinishedGame, bool, error) {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[sessionID]
	return rec, ok, nil
}

func (s *Store) listFile(owner string) []game.FinishedGame {
	s.ensureLoaded()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []game.FinishedGame
	for _, rec := range s.byID {
		if rec.Owner == owner {
			out = append(out, rec)
		}
	}
	return out
}
