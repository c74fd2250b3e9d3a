package player

import (
	"errors"
	"log/slog"
	"math"
	"os"
	"sync"
	"testing"

	"github.com/vibeboard/vibeboard-engine/internal/timeline"
)

type fakeSurface struct {
	mu     sync.Mutex
	loads  []string
	seeks  []float64
	plays  int
	pauses int
	muted  []bool
}

func (f *fakeSurface) Load(mediaRef string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, mediaRef)
}

func (f *fakeSurface) Play() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
}

func (f *fakeSurface) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
}

func (f *fakeSurface) Seek(localTime float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, localTime)
}

func (f *fakeSurface) SetMuted(muted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = append(f.muted, muted)
}

func (f *fakeSurface) lastLoad() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.loads) == 0 {
		return ""
	}
	return f.loads[len(f.loads)-1]
}

func (f *fakeSurface) lastSeek() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.seeks) == 0 {
		return -1
	}
	return f.seeks[len(f.seeks)-1]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testSequence() timeline.Sequence {
	return timeline.Sequence{
		{ID: "a", MediaRef: "media/a.mp4", FullDuration: 10},
		{ID: "b", MediaRef: "media/b.mp4", FullDuration: 8, TrimStart: 2, TrimEnd: 1},
	}
}

func newTestPlayer(t *testing.T) (*Synchronizer, *fakeSurface) {
	t.Helper()
	surface := &fakeSurface{}
	p := New(surface, 24, testLogger())
	p.SetSequence(testSequence())
	return p, surface
}

func TestSetSequenceSelectsFirstClip(t *testing.T) {
	p, surface := newTestPlayer(t)

	state := p.State()
	if state.SelectedClipID != "a" || state.ClipIndex != 0 {
		t.Errorf("selection = %s index %d, want a index 0", state.SelectedClipID, state.ClipIndex)
	}
	if state.TotalDuration != 15 {
		t.Errorf("total = %v, want 15", state.TotalDuration)
	}
	if surface.lastLoad() != "media/a.mp4" {
		t.Errorf("surface loaded %q", surface.lastLoad())
	}
}

func TestSeekResolvesIntoClip(t *testing.T) {
	p, surface := newTestPlayer(t)

	p.Seek(12)

	state := p.State()
	if state.SelectedClipID != "b" {
		t.Errorf("selection = %s, want b", state.SelectedClipID)
	}
	if math.Abs(state.LocalTime-4) > 1e-9 {
		t.Errorf("local time = %v, want 4", state.LocalTime)
	}
	if math.Abs(state.CurrentTime-12) > 1e-9 {
		t.Errorf("current time = %v, want 12", state.CurrentTime)
	}
	if surface.lastLoad() != "media/b.mp4" {
		t.Errorf("surface loaded %q, want media/b.mp4", surface.lastLoad())
	}
	if math.Abs(surface.lastSeek()-4) > 1e-9 {
		t.Errorf("surface seek = %v, want 4", surface.lastSeek())
	}
}

func TestSeekPastEndClampsAndStops(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Play()

	p.Seek(99)

	state := p.State()
	if !state.Ended {
		t.Error("not flagged ended")
	}
	if state.Playing {
		t.Error("still playing past the end")
	}
	if state.SelectedClipID != "b" || math.Abs(state.LocalTime-7) > 1e-9 {
		t.Errorf("clamped to %s at %v, want b at 7", state.SelectedClipID, state.LocalTime)
	}
	if math.Abs(state.CurrentTime-15) > 1e-9 {
		t.Errorf("current time = %v, want 15", state.CurrentTime)
	}
}

func TestStepFrameForwardAndBack(t *testing.T) {
	p, _ := newTestPlayer(t)

	p.StepFrame(1)
	state := p.State()
	if math.Abs(state.CurrentTime-1.0/24) > 1e-9 {
		t.Errorf("after one step current time = %v, want %v", state.CurrentTime, 1.0/24)
	}

	p.StepFrame(-1)
	state = p.State()
	if state.CurrentTime != 0 {
		t.Errorf("after stepping back current time = %v, want 0", state.CurrentTime)
	}
}

func TestStepFrameClampsAtClipStart(t *testing.T) {
	p, _ := newTestPlayer(t)

	for i := 0; i < 5; i++ {
		p.StepFrame(-1)
	}

	state := p.State()
	if state.CurrentTime != 0 || state.LocalTime != 0 {
		t.Errorf("underflowed: current %v local %v", state.CurrentTime, state.LocalTime)
	}
	if state.SelectedClipID != "a" {
		t.Errorf("selection moved to %s", state.SelectedClipID)
	}
}

func TestStepFrameNeverCrossesClipBoundary(t *testing.T) {
	p, _ := newTestPlayer(t)

	// Park just shy of clip a's end, then step past it repeatedly.
	p.Seek(9.99)
	for i := 0; i < 4; i++ {
		p.StepFrame(1)
	}

	state := p.State()
	if state.SelectedClipID != "a" {
		t.Fatalf("stepping crossed into %s", state.SelectedClipID)
	}
	if math.Abs(state.LocalTime-10) > 1e-9 {
		t.Errorf("local time = %v, want clamp at 10", state.LocalTime)
	}
	if state.Ended {
		t.Error("flagged ended with a playable clip remaining")
	}
}

func TestStepFrameClampsAtLastClipEnd(t *testing.T) {
	p, _ := newTestPlayer(t)

	p.Seek(14.99)
	for i := 0; i < 4; i++ {
		p.StepFrame(1)
	}

	state := p.State()
	if state.SelectedClipID != "b" || math.Abs(state.LocalTime-7) > 1e-9 {
		t.Errorf("state = %s at %v, want b clamped at 7", state.SelectedClipID, state.LocalTime)
	}
}

func TestClipEndedAdvancesAndKeepsPlaying(t *testing.T) {
	p, surface := newTestPlayer(t)
	p.Play()

	p.HandleClipEnded()

	state := p.State()
	if state.SelectedClipID != "b" {
		t.Errorf("selection = %s, want b", state.SelectedClipID)
	}
	if math.Abs(state.LocalTime-2) > 1e-9 {
		t.Errorf("local time = %v, want trim start 2", state.LocalTime)
	}
	if !state.Playing {
		t.Error("stopped playing across a natural boundary")
	}
	if surface.lastLoad() != "media/b.mp4" {
		t.Errorf("surface loaded %q", surface.lastLoad())
	}
}

func TestClipEndedSkipsUnplayableMembers(t *testing.T) {
	surface := &fakeSurface{}
	p := New(surface, 24, testLogger())
	p.SetSequence(timeline.Sequence{
		{ID: "a", MediaRef: "media/a.mp4", FullDuration: 10},
		{ID: "dead", MediaRef: "media/dead.mp4", FullDuration: 2, TrimStart: 1, TrimEnd: 1},
		{ID: "b", MediaRef: "media/b.mp4", FullDuration: 8, TrimStart: 2, TrimEnd: 1},
	})
	p.Play()

	p.HandleClipEnded()

	if state := p.State(); state.SelectedClipID != "b" {
		t.Errorf("selection = %s, want b (skipping the unplayable member)", state.SelectedClipID)
	}
}

func TestClipEndedAtLastClipStops(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Play()
	p.HandleClipEnded() // a -> b
	p.HandleClipEnded() // b -> end

	state := p.State()
	if state.Playing {
		t.Error("still playing after the last clip ended")
	}
	if !state.Ended {
		t.Error("not flagged ended")
	}
	if state.SelectedClipID != "b" || math.Abs(state.CurrentTime-15) > 1e-9 {
		t.Errorf("cursor = %s at %v, want b at 15", state.SelectedClipID, state.CurrentTime)
	}
}

func TestSkipMovesSelectionAndPauses(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Play()

	p.SkipNext()
	state := p.State()
	if state.SelectedClipID != "b" {
		t.Errorf("selection = %s, want b", state.SelectedClipID)
	}
	if state.Playing {
		t.Error("skip did not pause")
	}
	if math.Abs(state.LocalTime-2) > 1e-9 {
		t.Errorf("local time = %v, want clip start", state.LocalTime)
	}

	p.SkipNext()
	if state := p.State(); state.SelectedClipID != "b" {
		t.Errorf("skip past the last member moved to %s", state.SelectedClipID)
	}

	p.SkipPrevious()
	p.SkipPrevious()
	if state := p.State(); state.SelectedClipID != "a" {
		t.Errorf("skip before the first member moved to %s", p.State().SelectedClipID)
	}
}

func TestSelectClip(t *testing.T) {
	p, _ := newTestPlayer(t)

	if err := p.SelectClip("b"); err != nil {
		t.Fatalf("SelectClip error: %v", err)
	}
	if state := p.State(); state.SelectedClipID != "b" || math.Abs(state.CurrentTime-10) > 1e-9 {
		t.Errorf("state = %s at %v, want b at 10", state.SelectedClipID, state.CurrentTime)
	}

	if err := p.SelectClip("nope"); !errors.Is(err, ErrClipNotFound) {
		t.Errorf("SelectClip(nope) = %v, want ErrClipNotFound", err)
	}
}

func TestSetSequenceKeepsValidSelection(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Seek(12) // selects b at elapsed 2

	reordered := timeline.Sequence{
		{ID: "b", MediaRef: "media/b.mp4", FullDuration: 8, TrimStart: 2, TrimEnd: 1},
		{ID: "a", MediaRef: "media/a.mp4", FullDuration: 10},
	}
	p.SetSequence(reordered)

	state := p.State()
	if state.SelectedClipID != "b" {
		t.Errorf("selection = %s, want b kept", state.SelectedClipID)
	}
	if math.Abs(state.LocalTime-4) > 1e-9 {
		t.Errorf("local time = %v, want 4 undisturbed", state.LocalTime)
	}
	if math.Abs(state.CurrentTime-2) > 1e-9 {
		t.Errorf("current time = %v, want 2 (b now leads)", state.CurrentTime)
	}
}

func TestSetSequenceFallsBackToFirstClip(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Seek(12)

	p.SetSequence(timeline.Sequence{
		{ID: "c", MediaRef: "media/c.mp4", FullDuration: 3},
		{ID: "a", MediaRef: "media/a.mp4", FullDuration: 10},
	})

	state := p.State()
	if state.SelectedClipID != "c" || state.CurrentTime != 0 {
		t.Errorf("state = %s at %v, want c at 0", state.SelectedClipID, state.CurrentTime)
	}
}

func TestSetSequenceEmptyClearsEverything(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Play()

	p.SetSequence(nil)

	state := p.State()
	if state.SelectedClipID != "" || state.ClipIndex != -1 {
		t.Errorf("selection = %q index %d, want none", state.SelectedClipID, state.ClipIndex)
	}
	if state.Playing || state.TotalDuration != 0 {
		t.Errorf("playing %v total %v, want stopped empty", state.Playing, state.TotalDuration)
	}
}

func TestMediaErrorLeavesCursorIntact(t *testing.T) {
	p, surface := newTestPlayer(t)
	p.Seek(12)
	p.Play()

	p.HandleMediaError("media/b.mp4", "network stall")

	state := p.State()
	if state.SelectedClipID != "b" || math.Abs(state.CurrentTime-12) > 1e-9 {
		t.Errorf("cursor moved: %s at %v", state.SelectedClipID, state.CurrentTime)
	}
	if state.Playing {
		t.Error("still playing through a media error")
	}
	if state.MediaError != "network stall" {
		t.Errorf("media error = %q", state.MediaError)
	}

	// The next command retries the load and clears the error.
	before := len(surface.loads)
	p.Play()
	state = p.State()
	if len(surface.loads) != before+1 {
		t.Error("play after error did not reload the surface")
	}
	if state.MediaError != "" {
		t.Errorf("media error not cleared: %q", state.MediaError)
	}
}

func TestMuteAndExpandToggles(t *testing.T) {
	p, surface := newTestPlayer(t)

	p.ToggleMuted()
	if state := p.State(); !state.Muted {
		t.Error("not muted after toggle")
	}
	if len(surface.muted) == 0 || surface.muted[len(surface.muted)-1] != true {
		t.Error("surface never muted")
	}

	p.SetMuted(false)
	if state := p.State(); state.Muted {
		t.Error("still muted")
	}

	p.ToggleExpanded()
	if state := p.State(); !state.Expanded {
		t.Error("not expanded after toggle")
	}
}

func TestPlayAfterEndRestartsFromTop(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Seek(99)

	p.Play()

	state := p.State()
	if state.CurrentTime != 0 || state.SelectedClipID != "a" {
		t.Errorf("state = %s at %v, want restart at a/0", state.SelectedClipID, state.CurrentTime)
	}
	if !state.Playing || state.Ended {
		t.Errorf("playing %v ended %v after restart", state.Playing, state.Ended)
	}
}

func TestOnChangeFires(t *testing.T) {
	surface := &fakeSurface{}
	p := New(surface, 24, testLogger())

	var got []Snapshot
	p.SetOnChange(func(snap Snapshot) { got = append(got, snap) })

	p.SetSequence(testSequence())
	p.Seek(12)

	if len(got) != 2 {
		t.Fatalf("onChange fired %d times, want 2", len(got))
	}
	if math.Abs(got[1].CurrentTime-12) > 1e-9 {
		t.Errorf("last snapshot current time = %v", got[1].CurrentTime)
	}
}

func TestKeymap(t *testing.T) {
	keymap := DefaultKeymap()
	tests := []struct {
		key     string
		focused bool
		want    Command
		ok      bool
	}{
		{"space", false, CommandTogglePlay, true},
		{" ", false, CommandTogglePlay, true},
		{"K", false, CommandTogglePlay, true},
		{"j", false, CommandSkipPrevious, true},
		{"l", false, CommandSkipNext, true},
		{"m", false, CommandToggleMute, true},
		{"f", false, CommandToggleExpand, true},
		{"ArrowLeft", false, CommandStepBack, true},
		{"arrowright", false, CommandStepForward, true},
		{"x", false, "", false},
		{"space", true, "", false},
		{"m", true, "", false},
	}
	for _, tt := range tests {
		cmd, ok := keymap.Resolve(tt.key, tt.focused)
		if ok != tt.ok || cmd != tt.want {
			t.Errorf("Resolve(%q, focused=%v) = %q/%v, want %q/%v", tt.key, tt.focused, cmd, ok, tt.want, tt.ok)
		}
	}
}

func TestDispatch(t *testing.T) {
	p, _ := newTestPlayer(t)

	p.Dispatch(CommandTogglePlay)
	if !p.State().Playing {
		t.Error("toggle_play did not start playback")
	}

	p.Dispatch(CommandSkipNext)
	if state := p.State(); state.SelectedClipID != "b" || state.Playing {
		t.Errorf("skip_next state = %s playing %v", state.SelectedClipID, state.Playing)
	}

	p.Dispatch(CommandStepForward)
	if state := p.State(); math.Abs(state.LocalTime-(2+1.0/24)) > 1e-9 {
		t.Errorf("step_forward local time = %v", state.LocalTime)
	}
}
