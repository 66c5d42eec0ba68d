// Package store persists uploads, grading sessions, comparison results,
// and instructor feedback in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // driver: sqlite

	"github.com/diffgrader/diffgrader/internal/archive"
	"github.com/diffgrader/diffgrader/pkg/analyzer/comparison"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Session lifecycle states.
const (
	StatusCreated   = "created"
	StatusAnalyzing = "analyzing"
	StatusReady     = "ready"
	StatusCompleted = "completed"
)

// Session is a grading session pairing a student upload with a reference.
// OverallScore and FinalComments are set when the session is completed.
type Session struct {
	ID                string `json:"id" toon:"id"`
	StudentUploadID   string `json:"student_upload_id" toon:"student_upload_id"`
	ReferenceUploadID string `json:"reference_upload_id" toon:"reference_upload_id"`
	Status            string `json:"status" toon:"status"`
	Error             string `json:"error,omitempty" toon:"error,omitempty"`
	OverallScore      int    `json:"overall_score" toon:"overall_score"`
	FinalComments     string `json:"final_comments,omitempty" toon:"final_comments,omitempty"`
	CreatedAt         int64  `json:"created_at" toon:"created_at"`
	UpdatedAt         int64  `json:"updated_at" toon:"updated_at"`
}

// Feedback is instructor feedback recorded against a session element.
type Feedback struct {
	ID            int64  `json:"id" toon:"id"`
	SessionID     string `json:"session_id" toon:"session_id"`
	ElementName   string `json:"element_name,omitempty" toon:"element_name,omitempty"`
	Score         int    `json:"score" toon:"score"`
	Comments      string `json:"comments,omitempty" toon:"comments,omitempty"`
	DesignPattern string `json:"design_pattern_feedback,omitempty" toon:"design_pattern_feedback,omitempty"`
	BestPractices string `json:"best_practices_feedback,omitempty" toon:"best_practices_feedback,omitempty"`
	CreatedAt     int64  `json:"created_at" toon:"created_at"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens the database and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = "file:diffgrader.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	if err := ensureSchema(ctx, db); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schema = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS uploads (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  kind TEXT NOT NULL DEFAULT '',
  path TEXT NOT NULL,
  size INTEGER NOT NULL,
  digest TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  student_upload_id TEXT NOT NULL REFERENCES uploads(id),
  reference_upload_id TEXT NOT NULL REFERENCES uploads(id),
  status TEXT NOT NULL,
  error TEXT NOT NULL DEFAULT '',
  overall_score INTEGER NOT NULL DEFAULT 0,
  final_comments TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS comparisons (
  session_id TEXT PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
  summary_json TEXT NOT NULL,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  element_name TEXT NOT NULL DEFAULT '',
  score INTEGER NOT NULL,
  comments TEXT NOT NULL DEFAULT '',
  design_pattern TEXT NOT NULL DEFAULT '',
  best_practices TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
);
`

// PutUpload records an upload, replacing any existing record with the same ID.
func (s *Store) PutUpload(ctx context.Context, up *archive.Upload) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO uploads (id,name,kind,path,size,digest,created_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET name=excluded.name, kind=excluded.kind, path=excluded.path`,
		up.ID, up.Name, up.Kind, up.Path, up.Size, up.Digest, time.Now().Unix())
	return err
}

// GetUpload fetches an upload by ID.
func (s *Store) GetUpload(ctx context.Context, id string) (*archive.Upload, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,name,kind,path,size,digest FROM uploads WHERE id=?`, id)
	var up archive.Upload
	if err := row.Scan(&up.ID, &up.Name, &up.Kind, &up.Path, &up.Size, &up.Digest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("upload %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &up, nil
}

// CreateSession inserts a new session in the created state.
func (s *Store) CreateSession(ctx context.Context, id, studentUploadID, referenceUploadID string) (*Session, error) {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions (id,student_upload_id,reference_upload_id,status,created_at,updated_at)
		VALUES (?,?,?,?,?,?)`,
		id, studentUploadID, referenceUploadID, StatusCreated, now, now)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:                id,
		StudentUploadID:   studentUploadID,
		ReferenceUploadID: referenceUploadID,
		Status:            StatusCreated,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// GetSession fetches a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,student_upload_id,reference_upload_id,status,error,overall_score,final_comments,created_at,updated_at
		FROM sessions WHERE id=?`, id)
	var sess Session
	if err := row.Scan(&sess.ID, &sess.StudentUploadID, &sess.ReferenceUploadID,
		&sess.Status, &sess.Error, &sess.OverallScore, &sess.FinalComments,
		&sess.CreatedAt, &sess.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &sess, nil
}

// UpdateSessionStatus transitions a session and records any error message.
func (s *Store) UpdateSessionStatus(ctx context.Context, id, status, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET status=?, error=?, updated_at=? WHERE id=?`,
		status, errMsg, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

// CompleteSession marks a session completed and records the final grade.
func (s *Store) CompleteSession(ctx context.Context, id string, overallScore int, finalComments string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET status=?, overall_score=?, final_comments=?, updated_at=? WHERE id=?`,
		StatusCompleted, overallScore, finalComments, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

// PutComparison stores a comparison summary for a session as JSON.
func (s *Store) PutComparison(ctx context.Context, sessionID string, summary *comparison.Summary) error {
	buf, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO comparisons (session_id,summary_json,created_at)
		VALUES (?,?,?)
		ON CONFLICT (session_id) DO UPDATE SET summary_json=excluded.summary_json, created_at=excluded.created_at`,
		sessionID, string(buf), time.Now().Unix())
	return err
}

// GetComparison fetches the comparison summary for a session.
func (s *Store) GetComparison(ctx context.Context, sessionID string) (*comparison.Summary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT summary_json FROM comparisons WHERE session_id=?`, sessionID)
	var buf string
	if err := row.Scan(&buf); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("comparison for session %s: %w", sessionID, ErrNotFound)
		}
		return nil, err
	}
	var summary comparison.Summary
	if err := json.Unmarshal([]byte(buf), &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

// CreateFeedback inserts instructor feedback for a session.
func (s *Store) CreateFeedback(ctx context.Context, fb *Feedback) (*Feedback, error) {
	now := time.Now().Unix()
	res, err := s.db.ExecContext(ctx, `INSERT INTO feedback (session_id,element_name,score,comments,design_pattern,best_practices,created_at)
		VALUES (?,?,?,?,?,?,?)`,
		fb.SessionID, fb.ElementName, fb.Score, fb.Comments, fb.DesignPattern, fb.BestPractices, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out := *fb
	out.ID = id
	out.CreatedAt = now
	return &out, nil
}

// ListFeedback returns all feedback for a session, oldest first.
func (s *Store) ListFeedback(ctx context.Context, sessionID string) ([]Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,session_id,element_name,score,comments,design_pattern,best_practices,created_at
		FROM feedback WHERE session_id=? ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		var fb Feedback
		if err := rows.Scan(&fb.ID, &fb.SessionID, &fb.ElementName, &fb.Score, &fb.Comments,
			&fb.DesignPattern, &fb.BestPractices, &fb.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, fb)
	}
	return out, rows.Err()
}

// AverageFeedbackScore returns the mean feedback score for a session, or
// zero when the session has no feedback.
func (s *Store) AverageFeedbackScore(ctx context.Context, sessionID string) (float64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(AVG(score), 0) FROM feedback WHERE session_id=?`, sessionID)
	var avg float64
	if err := row.Scan(&avg); err != nil {
		return 0, err
	}
	return avg, nil
}

// UpdateFeedback updates the grading fields of existing feedback.
func (s *Store) UpdateFeedback(ctx context.Context, id int64, score int, comments, designPattern, bestPractices string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE feedback SET score=?, comments=?, design_pattern=?, best_practices=? WHERE id=?`,
		score, comments, designPattern, bestPractices, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("feedback %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteFeedback removes feedback by ID.
func (s *Store) DeleteFeedback(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM feedback WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("feedback %d: %w", id, ErrNotFound)
	}
	return nil
}
