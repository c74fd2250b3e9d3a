package recovery

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type Store interface {
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	GetSnapshot(ctx context.Context, pageType, projectID string) (*Snapshot, error)
	ClearSnapshot(ctx context.Context, pageType, projectID string) error

	MarkDismissed(ctx context.Context, pageType, projectID string) error
	ClearDismissal(ctx context.Context, pageType, projectID string) error
	IsDismissed(ctx context.Context, pageType, projectID string) (bool, error)
}

type SQLiteStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	clips, err := json.Marshal(snap.Clips)
	if err != nil {
		return fmt.Errorf("marshal clips: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_snapshots (page_type, project_id, clips, playhead, selected_clip_id, is_dirty, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(page_type, project_id) DO UPDATE SET
			clips = excluded.clips,
			playhead = excluded.playhead,
			selected_clip_id = excluded.selected_clip_id,
			is_dirty = excluded.is_dirty,
			saved_at = excluded.saved_at
	`, snap.PageType, snap.ProjectID, string(clips), snap.PlayheadPosition,
		nullString(snap.SelectedClipID), boolToInt(snap.IsDirty), snap.SavedAt.Format(time.RFC3339))
	return err
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, pageType, projectID string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT page_type, project_id, clips, playhead, selected_clip_id, is_dirty, saved_at
		FROM session_snapshots WHERE page_type = ? AND project_id = ?
	`, pageType, projectID)

	var snap Snapshot
	var clips string
	var selected sql.NullString
	var dirty int
	var savedAt string

	err := row.Scan(&snap.PageType, &snap.ProjectID, &clips, &snap.PlayheadPosition, &selected, &dirty, &savedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(clips), &snap.Clips); err != nil {
		return nil, fmt.Errorf("unmarshal clips: %w", err)
	}
	snap.SelectedClipID = selected.String
	snap.IsDirty = dirty == 1
	snap.SavedAt, _ = time.Parse(time.RFC3339, savedAt)
	return &snap, nil
}

func (s *SQLiteStore) ClearSnapshot(ctx context.Context, pageType, projectID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM session_snapshots WHERE page_type = ? AND project_id = ?", pageType, projectID)
	return err
}

func (s *SQLiteStore) MarkDismissed(ctx context.Context, pageType, projectID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recovery_dismissals (page_type, project_id, dismissed_at)
		VALUES (?, ?, ?)
		ON CONFLICT(page_type, project_id) DO UPDATE SET dismissed_at = excluded.dismissed_at
	`, pageType, projectID, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *SQLiteStore) ClearDismissal(ctx context.Context, pageType, projectID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM recovery_dismissals WHERE page_type = ? AND project_id = ?", pageType, projectID)
	return err
}

func (s *SQLiteStore) IsDismissed(ctx context.Context, pageType, projectID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM recovery_dismissals WHERE page_type = ? AND project_id = ?", pageType, projectID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return one == 1, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
