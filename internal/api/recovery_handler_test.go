package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/vibeboard/vibeboard-engine/internal/recovery"
	"github.com/vibeboard/vibeboard-engine/internal/timeline"
)

// engineWithPendingRestore seeds a snapshot into the store before the
// recovery manager mounts, so the engine comes up offering a restore.
func engineWithPendingRestore(t *testing.T) *testEngine {
	t.Helper()
	e := buildTestEngine(t)

	snap := &recovery.Snapshot{
		PageType:  "timeline",
		ProjectID: "proj-1",
		Clips: timeline.Sequence{
			{ID: "clip-x", Label: "Crash survivor", MediaRef: "/media/x.mp4", FullDuration: 9, TrimStart: 1},
			{ID: "clip-y", MediaRef: "/media/y.mp4", FullDuration: 4},
		},
		PlayheadPosition: 3.5,
		SelectedClipID:   "clip-x",
		IsDirty:          true,
		SavedAt:          time.Now().UTC(),
	}
	if err := e.recStore.SaveSnapshot(context.Background(), snap); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	if _, err := e.cfg.Recovery.CheckOnMount(context.Background()); err != nil {
		t.Fatalf("recovery mount: %v", err)
	}
	return e
}

func TestRecoveryOfferRoute(t *testing.T) {
	e := engineWithPendingRestore(t)

	rr := doRequest(t, e, http.MethodGet, "/recovery/offer", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp RecoveryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode offer: %v", err)
	}
	if resp.Mode != string(recovery.ModeRestorePending) {
		t.Errorf("mode = %q, want %q", resp.Mode, recovery.ModeRestorePending)
	}
	if resp.Offer == nil {
		t.Fatal("offer = nil, want seeded snapshot")
	}
	if len(resp.Offer.Clips) != 2 {
		t.Errorf("offer clips = %d, want 2", len(resp.Offer.Clips))
	}
	if resp.Offer.SelectedClipID != "clip-x" {
		t.Errorf("selected clip = %q, want clip-x", resp.Offer.SelectedClipID)
	}
}

func TestRecoveryOfferWithoutSnapshot(t *testing.T) {
	e := newTestEngine(t)

	rr := doRequest(t, e, http.MethodGet, "/recovery/offer", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp RecoveryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode offer: %v", err)
	}
	if resp.Mode != string(recovery.ModeActive) {
		t.Errorf("mode = %q, want %q", resp.Mode, recovery.ModeActive)
	}
	if resp.Offer != nil {
		t.Errorf("offer = %+v, want nil", resp.Offer)
	}
}

func TestRecoveryRestoreRoute(t *testing.T) {
	e := engineWithPendingRestore(t)

	rr := doRequest(t, e, http.MethodPost, "/recovery/restore", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp RestoreResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode restore: %v", err)
	}
	if resp.Snapshot == nil || len(resp.Snapshot.Clips) != 2 {
		t.Fatalf("snapshot = %+v, want 2 clips", resp.Snapshot)
	}

	// The restored clips replace the ad-hoc working set.
	ctxRR := doRequest(t, e, http.MethodGet, "/context", nil)
	var ctxResp ContextResponse
	if err := json.Unmarshal(ctxRR.Body.Bytes(), &ctxResp); err != nil {
		t.Fatalf("decode context: %v", err)
	}
	if ctxResp.Mode != "adhoc" {
		t.Errorf("context mode = %q, want adhoc", ctxResp.Mode)
	}
	if len(ctxResp.Sequence) != 2 || ctxResp.Sequence[0].ID != "clip-x" {
		t.Errorf("sequence = %+v, want restored clips", ctxResp.Sequence)
	}

	// clip-x carries a 1s trim, so 8 + 4 playable seconds.
	if ctxResp.TotalDuration != 12.0 {
		t.Errorf("total duration = %v, want 12.0", ctxResp.TotalDuration)
	}

	offerRR := doRequest(t, e, http.MethodGet, "/recovery/offer", nil)
	var offer RecoveryResponse
	if err := json.Unmarshal(offerRR.Body.Bytes(), &offer); err != nil {
		t.Fatalf("decode offer: %v", err)
	}
	if offer.Mode != string(recovery.ModeActive) || offer.Offer != nil {
		t.Errorf("post-restore offer = %+v, want active with no offer", offer)
	}
}

func TestRecoveryRestoreWithoutPending(t *testing.T) {
	e := newTestEngine(t)

	rr := doRequest(t, e, http.MethodPost, "/recovery/restore", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusConflict)
	}
	body := decodeJSONBody(t, rr)
	if body["code"] != "NO_RESTORE_PENDING" {
		t.Errorf("code = %v, want NO_RESTORE_PENDING", body["code"])
	}
}

func TestRecoveryDismissRoute(t *testing.T) {
	e := engineWithPendingRestore(t)

	rr := doRequest(t, e, http.MethodPost, "/recovery/dismiss", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusNoContent, rr.Body.String())
	}

	// The working set is untouched and the offer is gone for good.
	ctxRR := doRequest(t, e, http.MethodGet, "/context", nil)
	var ctxResp ContextResponse
	if err := json.Unmarshal(ctxRR.Body.Bytes(), &ctxResp); err != nil {
		t.Fatalf("decode context: %v", err)
	}
	if len(ctxResp.Sequence) != 0 {
		t.Errorf("sequence = %+v, want empty after dismiss", ctxResp.Sequence)
	}

	again := doRequest(t, e, http.MethodPost, "/recovery/dismiss", nil)
	if again.Code != http.StatusConflict {
		t.Fatalf("second dismiss status = %d, want %d", again.Code, http.StatusConflict)
	}
	body := decodeJSONBody(t, again)
	if body["code"] != "NO_RESTORE_PENDING" {
		t.Errorf("code = %v, want NO_RESTORE_PENDING", body["code"])
	}
}

func TestRecoveryEventsCounted(t *testing.T) {
	e := engineWithPendingRestore(t)

	doRequest(t, e, http.MethodPost, "/recovery/restore", nil)

	rr := doRequest(t, e, http.MethodGet, "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), `engine_recovery_events_total{event="restore"} 1`) {
		t.Errorf("metrics missing restore count:\n%s", rr.Body.String())
	}
}

func TestStateReportsRecoveryMode(t *testing.T) {
	e := engineWithPendingRestore(t)

	rr := doRequest(t, e, http.MethodGet, "/state", nil)
	body := decodeJSONBody(t, rr)
	rec, ok := body["recovery"].(map[string]interface{})
	if !ok {
		t.Fatalf("state missing recovery block: %v", body)
	}
	if rec["mode"] != "restore_pending" {
		t.Errorf("recovery mode = %v, want restore_pending", rec["mode"])
	}
	if rec["offer"] == nil {
		t.Error("recovery offer missing from state")
	}
}
