package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/Star2578/AINA/internal/model/chat"
)

// TranscriptStore archives completed turns in SQLite so a host application
// can browse past conversations. The dispatch pipeline treats it as an
// observer: nothing in the turn path depends on it.
type TranscriptStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTranscriptStore opens (and migrates) the archive database.
func NewTranscriptStore(dsn string, logger *zap.Logger) (*TranscriptStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open transcript database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &TranscriptStore{db: db, logger: logger.Named("store")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate transcript database: %w", err)
	}
	return s, nil
}

func (s *TranscriptStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS turns (
			turn_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			emotion TEXT,
			confidence REAL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *TranscriptStore) Close() error {
	return s.db.Close()
}

// ArchiveTurns records the session (idempotently) and appends the completed
// turns. Only fully completed turn pairs ever reach this method.
func (s *TranscriptStore) ArchiveTurns(ctx context.Context, session chat.Session, turns ...chat.Turn) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (session_id, model, created_at) VALUES (?, ?, ?)`,
		session.ID, session.Model, session.CreatedAt); err != nil {
		return fmt.Errorf("archive session %s: %w", session.ID, err)
	}

	for _, turn := range turns {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO turns (turn_id, session_id, role, text, emotion, confidence, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			turn.ID, turn.SessionID, string(turn.Role), turn.Text,
			nullableString(turn.Emotion), nullableFloat(turn.Confidence), turn.CreatedAt); err != nil {
			return fmt.Errorf("archive turn %s: %w", turn.ID, err)
		}
	}

	return tx.Commit()
}

// Transcript returns the archived turns of a session in chronological order.
func (s *TranscriptStore) Transcript(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT turn_id, session_id, role, text, emotion, confidence, created_at
		 FROM turns WHERE session_id = ? ORDER BY created_at, turn_id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("query transcript %s: %w", sessionID, err)
	}
	defer rows.Close()

	var turns []chat.Turn
	for rows.Next() {
		var (
			turn       chat.Turn
			role       string
			emotionCol sql.NullString
			confidence sql.NullFloat64
		)
		if err := rows.Scan(&turn.ID, &turn.SessionID, &role, &turn.Text, &emotionCol, &confidence, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transcript row: %w", err)
		}
		turn.Role = chat.Role(role)
		if emotionCol.Valid {
			turn.Emotion = emotionCol.String
		}
		if confidence.Valid {
			turn.Confidence = confidence.Float64
		}
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

// Sessions lists archived sessions, newest first.
func (s *TranscriptStore) Sessions(ctx context.Context) ([]chat.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, model, created_at FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []chat.Session
	for rows.Next() {
		var session chat.Session
		if err := rows.Scan(&session.ID, &session.Model, &session.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableFloat(v float64) any {
	if v == 0 {
		return nil
	}
	return v
}
