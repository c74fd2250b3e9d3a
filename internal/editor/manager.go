package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vibeboard/vibeboard-engine/internal/studio"
	"github.com/vibeboard/vibeboard-engine/internal/timeline"
)

// Mode selects which provider owns the timeline.
type Mode string

const (
	ModeStructured Mode = "structured"
	ModeAdHoc      Mode = "adhoc"
)

var ErrInvalidMode = errors.New("invalid edit mode")

// Manager is the edit context: exactly one provider (structured scenes or
// the ad-hoc clip list) is active at a time, and the playback sequence is
// always the active provider's projection. It also owns the drag
// interaction, since a drop is the one gesture that turns into a
// structured mutation.
type Manager struct {
	mu         sync.Mutex
	logger     *slog.Logger
	mode       Mode
	structured *StructuredProvider
	adhoc      *AdhocProvider
	drag       dragFSM
	onChange   func()
}

func NewManager(client studio.Client, projectID string, mode Mode, logger *slog.Logger) *Manager {
	if mode != ModeStructured && mode != ModeAdHoc {
		mode = ModeAdHoc
	}
	m := &Manager{
		logger: logger,
		mode:   mode,
		drag:   newDragFSM(),
	}
	m.structured = newStructuredProvider(client, projectID, logger, m.notifyChanged)
	m.adhoc = newAdhocProvider(m.notifyChanged)
	return m
}

// SetOnChange installs the listener fired after every sequence-affecting
// mutation. Wire-up only; call before serving.
func (m *Manager) SetOnChange(fn func()) {
	m.onChange = fn
}

func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *Manager) SetMode(mode Mode) error {
	if mode != ModeStructured && mode != ModeAdHoc {
		return fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	m.mu.Lock()
	changed := m.mode != mode
	m.mode = mode
	m.mu.Unlock()
	if changed {
		m.notifyChanged()
	}
	return nil
}

// Sequence is the single projection the player consumes, whichever
// provider is active.
func (m *Manager) Sequence() timeline.Sequence {
	switch m.Mode() {
	case ModeStructured:
		return m.structured.Sequence()
	default:
		return m.adhoc.Clips()
	}
}

func (m *Manager) Adhoc() *AdhocProvider {
	return m.adhoc
}

func (m *Manager) Structured() *StructuredProvider {
	return m.structured
}

// RestoreAdhoc rehydrates the ad-hoc list from a recovery snapshot and
// makes ad-hoc the active context.
func (m *Manager) RestoreAdhoc(clips timeline.Sequence) {
	m.adhoc.Replace(clips)
	if err := m.SetMode(ModeAdHoc); err != nil {
		m.logger.Warn("restore mode switch failed", "error", err)
	}
}

// DragStart begins a drag. Only one drag can be in flight.
func (m *Manager) DragStart(payload DragPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drag.start(payload)
}

// DragHover updates the tracked insertion point; nil clears it.
func (m *Manager) DragHover(target *DropTarget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drag.hover(target)
}

// DragCancel abandons the drag without mutating anything.
func (m *Manager) DragCancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drag.cancel()
}

// DragDrop commits the drag. With a resolvable scene target in structured
// mode the payload is inserted through the studio (authoritative
// response, never a local splice); anything else settles invalid. A drop
// with no target is a cancel, not an error.
func (m *Manager) DragDrop(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.drag.state != DragDragging {
		m.mu.Unlock()
		return "", ErrDragTransition
	}
	payload := m.drag.payload
	target := m.drag.target
	mode := m.mode
	m.mu.Unlock()

	settle := func(outcome string) {
		m.mu.Lock()
		m.drag.settle(outcome)
		m.mu.Unlock()
	}

	if target == nil {
		settle(DropOutcomeInvalid)
		return DropOutcomeInvalid, nil
	}
	if mode != ModeStructured {
		m.logger.Warn("drop target ignored outside structured context", "scene_id", target.SceneID)
		settle(DropOutcomeInvalid)
		return DropOutcomeInvalid, nil
	}

	if _, err := m.structured.InsertSegment(ctx, target.SceneID, payload.MediaRef, target.Index); err != nil {
		settle(DropOutcomeInvalid)
		return DropOutcomeInvalid, err
	}
	settle(DropOutcomeValid)
	return DropOutcomeValid, nil
}

func (m *Manager) DragStatus() DragStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drag.status()
}

func (m *Manager) notifyChanged() {
	if m.onChange != nil {
		m.onChange()
	}
}
