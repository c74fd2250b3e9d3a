package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vibeboard/vibeboard-engine/internal/player"
	"github.com/vibeboard/vibeboard-engine/internal/timeline"
)

// seedAdhocClips loads the ad-hoc list; the manager's change listener
// pushes the new sequence into the player. clip-a spans [0,10), clip-b
// [10,15) after its trims.
func seedAdhocClips(t *testing.T, e *testEngine) {
	t.Helper()
	clips := []timeline.Clip{
		{ID: "clip-a", MediaRef: "/media/a.mp4", FullDuration: 10},
		{ID: "clip-b", MediaRef: "/media/b.mp4", FullDuration: 8, TrimStart: 2, TrimEnd: 1},
	}
	for _, clip := range clips {
		if _, err := e.cfg.Editor.Adhoc().Append(clip); err != nil {
			t.Fatalf("seed clip %s: %v", clip.ID, err)
		}
	}
}

func playerState(t *testing.T, rr *httptest.ResponseRecorder) player.Snapshot {
	t.Helper()
	var snap player.Snapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode player snapshot: %v", err)
	}
	return snap
}

func TestPlayPauseRoutes(t *testing.T) {
	e := newTestEngine(t)
	seedAdhocClips(t, e)

	rr := doRequest(t, e, http.MethodPost, "/player/play", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("play status = %d: %s", rr.Code, rr.Body.String())
	}
	snap := playerState(t, rr)
	if !snap.Playing || snap.SelectedClipID != "clip-a" {
		t.Errorf("after play: playing=%v selected=%q, want playing clip-a", snap.Playing, snap.SelectedClipID)
	}

	rr = doRequest(t, e, http.MethodPost, "/player/pause", nil)
	if snap = playerState(t, rr); snap.Playing {
		t.Error("still playing after pause")
	}

	rr = doRequest(t, e, http.MethodPost, "/player/toggle", nil)
	if snap = playerState(t, rr); !snap.Playing {
		t.Error("toggle from paused did not start playback")
	}
}

func TestSeekRoute(t *testing.T) {
	e := newTestEngine(t)
	seedAdhocClips(t, e)

	rr := doRequest(t, e, http.MethodPost, "/player/seek", SeekRequest{Time: 12})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	snap := playerState(t, rr)
	if snap.SelectedClipID != "clip-b" {
		t.Errorf("selected = %q, want clip-b under the cursor", snap.SelectedClipID)
	}
	if snap.CurrentTime != 12 || snap.LocalTime != 4 {
		t.Errorf("cursor = %v/%v, want global 12 local 4", snap.CurrentTime, snap.LocalTime)
	}
}

func TestSeekPastEndClamps(t *testing.T) {
	e := newTestEngine(t)
	seedAdhocClips(t, e)
	doRequest(t, e, http.MethodPost, "/player/play", nil)

	rr := doRequest(t, e, http.MethodPost, "/player/seek", SeekRequest{Time: 99})
	snap := playerState(t, rr)
	if snap.CurrentTime != 15 {
		t.Errorf("current = %v, want clamp to total 15", snap.CurrentTime)
	}
	if !snap.Ended || snap.Playing {
		t.Errorf("ended=%v playing=%v, want ended and stopped", snap.Ended, snap.Playing)
	}
}

func TestStepRoute(t *testing.T) {
	e := newTestEngine(t)
	seedAdhocClips(t, e)
	doRequest(t, e, http.MethodPost, "/player/select", SelectRequest{ClipID: "clip-a"})

	rr := doRequest(t, e, http.MethodPost, "/player/step", StepRequest{Direction: 1})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if snap := playerState(t, rr); snap.LocalTime != 1.0/24 {
		t.Errorf("local = %v, want one frame at 24fps", snap.LocalTime)
	}

	rr = doRequest(t, e, http.MethodPost, "/player/step", StepRequest{Direction: 0})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("direction 0 status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestStepClampsAtClipEdge(t *testing.T) {
	e := newTestEngine(t)
	seedAdhocClips(t, e)
	doRequest(t, e, http.MethodPost, "/player/select", SelectRequest{ClipID: "clip-b"})

	// Selection lands at the trimmed head; a back step has nowhere to go.
	rr := doRequest(t, e, http.MethodPost, "/player/step", StepRequest{Direction: -1})
	snap := playerState(t, rr)
	if snap.LocalTime != 2 || snap.SelectedClipID != "clip-b" {
		t.Errorf("after back step: local=%v selected=%q, want pinned at trim start", snap.LocalTime, snap.SelectedClipID)
	}
}

func TestSelectRoute(t *testing.T) {
	e := newTestEngine(t)
	seedAdhocClips(t, e)

	rr := doRequest(t, e, http.MethodPost, "/player/select", SelectRequest{ClipID: "clip-b"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	snap := playerState(t, rr)
	if snap.ClipIndex != 1 || snap.LocalTime != 2 {
		t.Errorf("index=%d local=%v, want 1 and trim start 2", snap.ClipIndex, snap.LocalTime)
	}

	rr = doRequest(t, e, http.MethodPost, "/player/select", SelectRequest{ClipID: "ghost"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown clip status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestSkipRoute(t *testing.T) {
	e := newTestEngine(t)
	seedAdhocClips(t, e)

	rr := doRequest(t, e, http.MethodPost, "/player/skip", SkipRequest{Direction: "next"})
	if snap := playerState(t, rr); snap.SelectedClipID != "clip-b" {
		t.Errorf("selected = %q, want clip-b after next", snap.SelectedClipID)
	}

	rr = doRequest(t, e, http.MethodPost, "/player/skip", SkipRequest{Direction: "previous"})
	if snap := playerState(t, rr); snap.SelectedClipID != "clip-a" {
		t.Errorf("selected = %q, want clip-a after previous", snap.SelectedClipID)
	}

	rr = doRequest(t, e, http.MethodPost, "/player/skip", SkipRequest{Direction: "sideways"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad direction status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestMuteRoute(t *testing.T) {
	e := newTestEngine(t)
	seedAdhocClips(t, e)

	muted := true
	rr := doRequest(t, e, http.MethodPost, "/player/mute", MuteRequest{Muted: &muted})
	if snap := playerState(t, rr); !snap.Muted {
		t.Error("explicit mute did not stick")
	}

	// An empty body toggles.
	rr = doRequest(t, e, http.MethodPost, "/player/mute", nil)
	if snap := playerState(t, rr); snap.Muted {
		t.Error("empty body should toggle mute off")
	}
}

func TestExpandRoute(t *testing.T) {
	e := newTestEngine(t)

	rr := doRequest(t, e, http.MethodPost, "/player/expand", nil)
	if snap := playerState(t, rr); !snap.Expanded {
		t.Error("expand toggle did not stick")
	}
}

func TestClipEndedRoute(t *testing.T) {
	e := newTestEngine(t)
	seedAdhocClips(t, e)
	doRequest(t, e, http.MethodPost, "/player/play", nil)

	rr := doRequest(t, e, http.MethodPost, "/player/clip-ended", nil)
	snap := playerState(t, rr)
	if snap.SelectedClipID != "clip-b" || !snap.Playing {
		t.Errorf("after first end: selected=%q playing=%v, want clip-b still playing", snap.SelectedClipID, snap.Playing)
	}

	rr = doRequest(t, e, http.MethodPost, "/player/clip-ended", nil)
	snap = playerState(t, rr)
	if !snap.Ended || snap.Playing || snap.CurrentTime != 15 {
		t.Errorf("after last end: ended=%v playing=%v current=%v, want stopped at 15", snap.Ended, snap.Playing, snap.CurrentTime)
	}
}

func TestMediaErrorRoute(t *testing.T) {
	e := newTestEngine(t)
	seedAdhocClips(t, e)
	doRequest(t, e, http.MethodPost, "/player/play", nil)

	rr := doRequest(t, e, http.MethodPost, "/player/media-error",
		MediaErrorRequest{MediaRef: "/media/a.mp4", Message: "decode failed"})
	snap := playerState(t, rr)
	if snap.MediaError != "decode failed" {
		t.Errorf("media_error = %q, want the reported message", snap.MediaError)
	}
	if snap.Playing {
		t.Error("playback should stop on a media error")
	}
	if snap.SelectedClipID != "clip-a" {
		t.Errorf("selected = %q, want selection untouched", snap.SelectedClipID)
	}
}

func TestKeyRoute(t *testing.T) {
	e := newTestEngine(t)
	seedAdhocClips(t, e)

	rr := doRequest(t, e, http.MethodPost, "/player/key", KeyRequest{Key: "space"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var resp KeyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Handled || resp.Command != "toggle_play" {
		t.Errorf("handled=%v command=%q, want toggle_play handled", resp.Handled, resp.Command)
	}
	if !resp.Player.Playing {
		t.Error("space did not start playback")
	}
}

func TestKeyRouteSuppressedInTextInput(t *testing.T) {
	e := newTestEngine(t)
	seedAdhocClips(t, e)

	rr := doRequest(t, e, http.MethodPost, "/player/key",
		KeyRequest{Key: "space", TextInputFocused: true})
	var resp KeyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Handled {
		t.Error("key handled while a text input has focus")
	}
	if resp.Player.Playing {
		t.Error("suppressed key still reached the player")
	}
}

func TestPlayerCommandsCounted(t *testing.T) {
	e := newTestEngine(t)
	seedAdhocClips(t, e)

	doRequest(t, e, http.MethodPost, "/player/play", nil)
	doRequest(t, e, http.MethodPost, "/player/pause", nil)
	doRequest(t, e, http.MethodPost, "/player/play", nil)

	rr := doRequest(t, e, http.MethodGet, "/metrics", nil)
	exposition := rr.Body.String()
	if !strings.Contains(exposition, `engine_player_commands_total{command="play"} 2`) {
		t.Errorf("play count missing:\n%s", exposition)
	}
	if !strings.Contains(exposition, `engine_player_commands_total{command="pause"} 1`) {
		t.Errorf("pause count missing:\n%s", exposition)
	}
}
