package player

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vibeboard/vibeboard-engine/internal/timeline"
)

// DefaultFPS is the frame-step granularity when none is configured.
const DefaultFPS = 24.0

var ErrClipNotFound = errors.New("clip not in sequence")

// Snapshot is the externally visible player state, served on queries and
// pushed over the websocket feed.
type Snapshot struct {
	CurrentTime    float64 `json:"current_time"`
	TotalDuration  float64 `json:"total_duration"`
	SelectedClipID string  `json:"selected_clip_id,omitempty"`
	ClipIndex      int     `json:"clip_index"`
	LocalTime      float64 `json:"local_time"`
	ClipCount      int     `json:"clip_count"`
	Playing        bool    `json:"is_playing"`
	Muted          bool    `json:"is_muted"`
	Expanded       bool    `json:"is_expanded"`
	Ended          bool    `json:"ended"`
	FPS            float64 `json:"fps"`
	MediaError     string  `json:"media_error,omitempty"`
}

// Synchronizer keeps one media surface honest against the composed
// sequence. Selection is the primary cursor: position is held as
// (selected clip, elapsed seconds inside its trimmed window) and the
// global time is always derived, so boundary positions stay inside the
// clip they belong to and frame stepping can never bleed across members.
// All operations take the lock, so commands resolve strictly in dispatch
// order.
type Synchronizer struct {
	mu      sync.Mutex
	logger  *slog.Logger
	surface Surface
	fps     float64

	seq        timeline.Sequence
	selectedID string
	elapsed    float64
	playing    bool
	muted      bool
	expanded   bool
	ended      bool

	loadedRef  string
	mediaError string

	onChange func(Snapshot)
}

func New(surface Surface, fps float64, logger *slog.Logger) *Synchronizer {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Synchronizer{
		logger:  logger,
		surface: surface,
		fps:     fps,
	}
}

// SetOnChange installs the state listener. Wire-up only; call before the
// synchronizer starts receiving commands.
func (s *Synchronizer) SetOnChange(fn func(Snapshot)) {
	s.onChange = fn
}

// SetSequence swaps in a new composition. A still-valid selection is left
// completely alone so edits elsewhere in the timeline never make the
// preview jump; otherwise selection falls back to the first member, or to
// nothing when the sequence emptied.
func (s *Synchronizer) SetSequence(seq timeline.Sequence) {
	s.mu.Lock()
	s.seq = seq.Clone()

	switch {
	case len(s.seq) == 0:
		s.selectedID = ""
		s.elapsed = 0
		s.playing = false
		s.ended = false
	case s.selectedID != "" && s.seq.IndexOf(s.selectedID) >= 0:
		// Keep the selection; only re-clamp in case its trim window shrank.
		if clip, ok := s.seq.Find(s.selectedID); ok && s.elapsed > clip.EffectiveDuration() {
			s.elapsed = clip.EffectiveDuration()
		}
	default:
		s.selectedID = s.seq[0].ID
		s.elapsed = 0
		s.ended = false
	}

	s.syncSurfaceLocked(true)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Synchronizer) Play() {
	s.mu.Lock()
	if s.ended {
		// Replay from the top of the timeline.
		if pos, ok := s.seq.Resolve(0); ok {
			s.selectedID = pos.ClipID
			s.elapsed = 0
			s.ended = false
		}
	}
	if s.selectedID != "" {
		s.playing = true
	}
	s.syncSurfaceLocked(false)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Synchronizer) Pause() {
	s.mu.Lock()
	s.playing = false
	s.syncSurfaceLocked(false)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Synchronizer) TogglePlay() {
	s.mu.Lock()
	paused := !s.playing
	s.mu.Unlock()
	if paused {
		s.Play()
	} else {
		s.Pause()
	}
}

// Seek moves the cursor to a global timeline position. The clip under the
// cursor becomes the selection; past-the-end positions clamp to the end of
// the last playable member and stop playback.
func (s *Synchronizer) Seek(globalTime float64) {
	s.mu.Lock()
	pos, ok := s.seq.Resolve(globalTime)
	if !ok {
		s.selectedID = ""
		s.elapsed = 0
		s.playing = false
		s.ended = false
	} else {
		clip, _ := s.seq.Find(pos.ClipID)
		s.selectedID = pos.ClipID
		s.elapsed = pos.LocalTime - clip.TrimStart
		s.ended = pos.AtEnd
		if s.ended {
			s.playing = false
		}
	}
	s.syncSurfaceLocked(true)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// StepFrame nudges the cursor by direction/fps seconds inside the selected
// clip. It clamps at the clip's trimmed edges and never crosses into a
// neighbor.
func (s *Synchronizer) StepFrame(direction int) {
	s.mu.Lock()
	clip, ok := s.seq.Find(s.selectedID)
	if !ok {
		s.mu.Unlock()
		return
	}

	s.elapsed += float64(direction) / s.fps
	eff := clip.EffectiveDuration()
	if s.elapsed < 0 {
		s.elapsed = 0
	}
	if s.elapsed > eff {
		s.elapsed = eff
	}
	s.ended = s.isAtSequenceEndLocked()

	s.syncSurfaceLocked(true)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Synchronizer) SelectClip(clipID string) error {
	s.mu.Lock()
	if s.seq.IndexOf(clipID) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrClipNotFound, clipID)
	}
	s.selectedID = clipID
	s.elapsed = 0
	s.ended = false
	s.syncSurfaceLocked(true)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// SkipPrevious moves the selection one member back and pauses.
func (s *Synchronizer) SkipPrevious() {
	s.skip(-1)
}

// SkipNext moves the selection one member forward and pauses.
func (s *Synchronizer) SkipNext() {
	s.skip(1)
}

func (s *Synchronizer) skip(delta int) {
	s.mu.Lock()
	if len(s.seq) == 0 {
		s.mu.Unlock()
		return
	}
	index := s.seq.IndexOf(s.selectedID)
	index += delta
	if index < 0 {
		index = 0
	}
	if index > len(s.seq)-1 {
		index = len(s.seq) - 1
	}
	s.selectedID = s.seq[index].ID
	s.elapsed = 0
	s.playing = false
	s.ended = false
	s.syncSurfaceLocked(true)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// HandleClipEnded is the surface telling us playback ran off the selected
// clip's trimmed end. Advance to the next playable member and keep
// playing, or stop at the end of the sequence.
func (s *Synchronizer) HandleClipEnded() {
	s.mu.Lock()
	index := s.seq.IndexOf(s.selectedID)
	if index < 0 {
		s.mu.Unlock()
		return
	}

	next := -1
	for i := index + 1; i < len(s.seq); i++ {
		if s.seq[i].Playable() {
			next = i
			break
		}
	}

	if next >= 0 {
		s.selectedID = s.seq[next].ID
		s.elapsed = 0
	} else {
		clip, _ := s.seq.Find(s.selectedID)
		s.elapsed = clip.EffectiveDuration()
		s.playing = false
		s.ended = true
	}
	s.syncSurfaceLocked(true)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// HandleMediaError records a load/decode failure reported by the surface.
// Cursor and selection stay exactly where they were; the ref is forgotten
// so the next command retries the load.
func (s *Synchronizer) HandleMediaError(mediaRef, message string) {
	s.mu.Lock()
	if message == "" {
		message = "media failed to load"
	}
	s.mediaError = message
	s.playing = false
	s.loadedRef = ""
	s.surface.Pause()
	if s.logger != nil {
		s.logger.Warn("media surface error", "media_ref", mediaRef, "error", message)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Synchronizer) SetMuted(muted bool) {
	s.mu.Lock()
	s.muted = muted
	s.surface.SetMuted(muted)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Synchronizer) ToggleMuted() {
	s.mu.Lock()
	muted := !s.muted
	s.mu.Unlock()
	s.SetMuted(muted)
}

func (s *Synchronizer) ToggleExpanded() {
	s.mu.Lock()
	s.expanded = !s.expanded
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Synchronizer) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Dispatch runs a keymap command.
func (s *Synchronizer) Dispatch(cmd Command) {
	switch cmd {
	case CommandTogglePlay:
		s.TogglePlay()
	case CommandSkipPrevious:
		s.SkipPrevious()
	case CommandSkipNext:
		s.SkipNext()
	case CommandToggleMute:
		s.ToggleMuted()
	case CommandToggleExpand:
		s.ToggleExpanded()
	case CommandStepBack:
		s.StepFrame(-1)
	case CommandStepForward:
		s.StepFrame(1)
	}
}

func (s *Synchronizer) currentTimeLocked() float64 {
	if s.selectedID == "" {
		return 0
	}
	offset, ok := s.seq.OffsetOf(s.selectedID)
	if !ok {
		return 0
	}
	return offset + s.elapsed
}

func (s *Synchronizer) isAtSequenceEndLocked() bool {
	clip, ok := s.seq.Find(s.selectedID)
	if !ok || s.elapsed < clip.EffectiveDuration() {
		return false
	}
	index := s.seq.IndexOf(s.selectedID)
	for i := index + 1; i < len(s.seq); i++ {
		if s.seq[i].Playable() {
			return false
		}
	}
	return true
}

// syncSurfaceLocked pushes the current position to the media surface,
// reloading when the selected clip's source changed.
func (s *Synchronizer) syncSurfaceLocked(seek bool) {
	clip, ok := s.seq.Find(s.selectedID)
	if !ok {
		s.surface.Pause()
		s.loadedRef = ""
		return
	}

	if clip.MediaRef != s.loadedRef {
		s.surface.Load(clip.MediaRef)
		s.loadedRef = clip.MediaRef
		s.mediaError = ""
		seek = true
	}
	if seek {
		s.surface.Seek(clip.TrimStart + s.elapsed)
	}
	if s.playing {
		s.surface.Play()
	} else {
		s.surface.Pause()
	}
}

func (s *Synchronizer) snapshotLocked() Snapshot {
	snap := Snapshot{
		CurrentTime:    s.currentTimeLocked(),
		TotalDuration:  s.seq.TotalDuration(),
		SelectedClipID: s.selectedID,
		ClipIndex:      s.seq.IndexOf(s.selectedID),
		ClipCount:      len(s.seq),
		Playing:        s.playing,
		Muted:          s.muted,
		Expanded:       s.expanded,
		Ended:          s.ended,
		FPS:            s.fps,
		MediaError:     s.mediaError,
	}
	if clip, ok := s.seq.Find(s.selectedID); ok {
		snap.LocalTime = clip.TrimStart + s.elapsed
	}
	return snap
}

func (s *Synchronizer) notify(snap Snapshot) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}
