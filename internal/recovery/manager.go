package recovery

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vibeboard/vibeboard-engine/internal/timeline"
)

// Mode gates the autosave scheduler. The store must never write while a
// restore offer is outstanding, or it would overwrite the very snapshot
// being offered; the explicit mode makes that rule checkable instead of
// implicit in timer wiring.
type Mode string

const (
	ModeIdle           Mode = "idle"
	ModeRestorePending Mode = "restore_pending"
	ModeActive         Mode = "active"
)

const DefaultInterval = 500 * time.Millisecond

var ErrNoRestorePending = errors.New("no restore pending")

// Source is the autosaved state's owner: the ad-hoc clip list plus a
// revision that increments on every mutation.
type Source interface {
	Clips() timeline.Sequence
	Revision() int64
}

// CursorState reports the playback cursor to include in snapshots.
type CursorState func() (playhead float64, selectedClipID string)

// ApplyFunc rehydrates engine state from a restored snapshot.
type ApplyFunc func(snap *Snapshot)

// Manager owns the session recovery lifecycle: periodic snapshots of the
// ad-hoc session while active, the one-time restore offer at mount, and
// the dismissal flag that keeps a declined offer from reappearing.
type Manager struct {
	logger    *slog.Logger
	store     Store
	source    Source
	cursor    CursorState
	apply     ApplyFunc
	pageType  string
	projectID string
	interval  time.Duration
	running   atomic.Bool

	mu            sync.Mutex
	mode          Mode
	pending       *Snapshot
	savedRevision int64
	onSave        func()
}

func NewManager(store Store, source Source, cursor CursorState, apply ApplyFunc, pageType, projectID string, interval time.Duration, logger *slog.Logger) *Manager {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Manager{
		logger:    logger,
		store:     store,
		source:    source,
		cursor:    cursor,
		apply:     apply,
		pageType:  pageType,
		projectID: projectID,
		interval:  interval,
		mode:      ModeIdle,
	}
}

// SetOnSave registers a callback fired after each snapshot write. Call
// before Run.
func (m *Manager) SetOnSave(fn func()) {
	m.onSave = fn
}

func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Pending returns the snapshot currently offered for restoration, if any.
func (m *Manager) Pending() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// CheckOnMount reads the stored snapshot once and decides whether to
// offer it. A recoverable, undismissed snapshot parks the manager in
// restore-pending (autosave held off); anything else goes straight to
// active. Returns the offered snapshot, or nil.
func (m *Manager) CheckOnMount(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode != ModeIdle {
		return m.pending, nil
	}

	snap, err := m.store.GetSnapshot(ctx, m.pageType, m.projectID)
	if err != nil {
		m.mode = ModeActive
		return nil, err
	}
	dismissed, err := m.store.IsDismissed(ctx, m.pageType, m.projectID)
	if err != nil {
		m.mode = ModeActive
		return nil, err
	}

	if snap.Recoverable() && !dismissed {
		m.mode = ModeRestorePending
		m.pending = snap
		m.logger.Info("session snapshot found, offering restore",
			"project_id", m.projectID, "clips", len(snap.Clips), "saved_at", snap.SavedAt)
		return snap, nil
	}

	m.mode = ModeActive
	return nil, nil
}

// Restore rehydrates engine state from the pending snapshot, clears it
// from the store, and resumes autosaving. The restored content is not
// marked saved, so the next tick writes a fresh snapshot of it.
func (m *Manager) Restore(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	if m.mode != ModeRestorePending || m.pending == nil {
		m.mu.Unlock()
		return nil, ErrNoRestorePending
	}
	snap := m.pending
	m.pending = nil
	m.mode = ModeActive
	m.mu.Unlock()

	m.apply(snap)

	if err := m.store.ClearSnapshot(ctx, m.pageType, m.projectID); err != nil {
		m.logger.Warn("failed to clear restored snapshot", "error", err)
	}
	m.logger.Info("session restored", "project_id", m.projectID, "clips", len(snap.Clips))
	return snap, nil
}

// Dismiss declines the pending offer: the dismissal flag keeps the offer
// from reappearing and the snapshot itself is dropped.
func (m *Manager) Dismiss(ctx context.Context) error {
	m.mu.Lock()
	if m.mode != ModeRestorePending {
		m.mu.Unlock()
		return ErrNoRestorePending
	}
	m.pending = nil
	m.mode = ModeActive
	m.mu.Unlock()

	if err := m.store.MarkDismissed(ctx, m.pageType, m.projectID); err != nil {
		return err
	}
	if err := m.store.ClearSnapshot(ctx, m.pageType, m.projectID); err != nil {
		m.logger.Warn("failed to clear dismissed snapshot", "error", err)
	}
	m.logger.Info("recovery offer dismissed", "project_id", m.projectID)
	return nil
}

// Run drives the autosave ticker until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	if m.running.Swap(true) {
		return
	}
	m.logger.Info("autosave started", "interval", m.interval, "project_id", m.projectID)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("autosave stopping")
			m.running.Store(false)
			return
		case <-ticker.C:
			m.autosaveTick(ctx)
		}
	}
}

// autosaveTick writes at most one snapshot: only while active, only when
// the source changed since the last write, and never for an empty list.
func (m *Manager) autosaveTick(ctx context.Context) {
	m.mu.Lock()
	mode := m.mode
	saved := m.savedRevision
	m.mu.Unlock()

	if mode != ModeActive {
		return
	}

	rev := m.source.Revision()
	if rev == saved {
		return
	}

	clips := m.source.Clips()
	if len(clips) == 0 {
		m.mu.Lock()
		m.savedRevision = rev
		m.mu.Unlock()
		return
	}

	playhead, selected := m.cursor()
	snap := &Snapshot{
		PageType:         m.pageType,
		ProjectID:        m.projectID,
		Clips:            clips,
		PlayheadPosition: playhead,
		SelectedClipID:   selected,
		IsDirty:          true,
		SavedAt:          time.Now().UTC(),
	}

	if err := m.store.SaveSnapshot(ctx, snap); err != nil {
		m.logger.Warn("autosave failed", "error", err)
		return
	}
	// Fresh content re-arms the restore offer for the next crash.
	if err := m.store.ClearDismissal(ctx, m.pageType, m.projectID); err != nil {
		m.logger.Warn("failed to clear dismissal flag", "error", err)
	}

	m.mu.Lock()
	m.savedRevision = rev
	m.mu.Unlock()

	if m.onSave != nil {
		m.onSave()
	}
	m.logger.Debug("session snapshot written", "clips", len(clips), "revision", rev)
}
