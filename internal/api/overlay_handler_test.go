package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/vibeboard/vibeboard-engine/internal/overlay"
)

func addOverlay(t *testing.T, e *testEngine, kind string, start, end float64) overlay.Element {
	t.Helper()
	rr := doRequest(t, e, http.MethodPost, "/overlays", AddOverlayRequest{
		Kind:      kind,
		StartTime: start,
		EndTime:   end,
		Payload:   map[string]string{"text": "hello"},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add overlay status = %d: %s", rr.Code, rr.Body.String())
	}
	var el overlay.Element
	if err := json.Unmarshal(rr.Body.Bytes(), &el); err != nil {
		t.Fatalf("decode element: %v", err)
	}
	return el
}

func TestAddOverlayRoute(t *testing.T) {
	e := newTestEngine(t)

	el := addOverlay(t, e, overlay.KindText, 1, 4)
	if el.ID == "" || el.Kind != "text" || el.StartTime != 1 || el.EndTime != 4 {
		t.Errorf("element = %+v, want the posted span", el)
	}
	if el.Payload["text"] != "hello" {
		t.Errorf("payload = %v, want it carried through", el.Payload)
	}
}

func TestAddOverlayValidation(t *testing.T) {
	e := newTestEngine(t)

	rr := doRequest(t, e, http.MethodPost, "/overlays",
		AddOverlayRequest{StartTime: 0, EndTime: 2})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing kind status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	rr = doRequest(t, e, http.MethodPost, "/overlays",
		AddOverlayRequest{Kind: "text", StartTime: 5, EndTime: 5})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty span status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if body := decodeJSONBody(t, rr); body["code"] != "BAD_REQUEST" {
		t.Errorf("code = %v, want BAD_REQUEST", body["code"])
	}
}

func TestListOverlaysRoute(t *testing.T) {
	e := newTestEngine(t)
	addOverlay(t, e, overlay.KindText, 2, 6)
	addOverlay(t, e, overlay.KindSticker, 0, 3)

	rr := doRequest(t, e, http.MethodGet, "/overlays", nil)
	var resp OverlaysResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Overlays) != 2 {
		t.Fatalf("overlays = %d, want 2", len(resp.Overlays))
	}
	if resp.Overlays[0].StartTime != 0 {
		t.Errorf("first overlay starts at %v, want sorted by start", resp.Overlays[0].StartTime)
	}
}

func TestListOverlaysActiveAt(t *testing.T) {
	e := newTestEngine(t)
	addOverlay(t, e, overlay.KindText, 2, 6)
	addOverlay(t, e, overlay.KindSticker, 0, 3)

	rr := doRequest(t, e, http.MethodGet, "/overlays?at=4", nil)
	var resp OverlaysResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Overlays) != 1 || resp.Overlays[0].Kind != "text" {
		t.Errorf("active at 4 = %+v, want only the text overlay", resp.Overlays)
	}

	// The end is exclusive, so a span's last instant is already off.
	rr = doRequest(t, e, http.MethodGet, "/overlays?at=6", nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Overlays) != 0 {
		t.Errorf("active at 6 = %+v, want none", resp.Overlays)
	}

	rr = doRequest(t, e, http.MethodGet, "/overlays?at=soon", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad at status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestRepositionOverlayRoute(t *testing.T) {
	e := newTestEngine(t)
	el := addOverlay(t, e, overlay.KindText, 1, 4)

	rr := doRequest(t, e, http.MethodPatch, "/overlays/"+el.ID,
		RepositionOverlayRequest{StartTime: 10, EndTime: 12})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var moved overlay.Element
	if err := json.Unmarshal(rr.Body.Bytes(), &moved); err != nil {
		t.Fatalf("decode element: %v", err)
	}
	if moved.StartTime != 10 || moved.EndTime != 12 {
		t.Errorf("span = %v-%v, want 10-12", moved.StartTime, moved.EndTime)
	}
	if moved.Payload["text"] != "hello" {
		t.Error("reposition dropped the payload")
	}

	rr = doRequest(t, e, http.MethodPatch, "/overlays/ghost",
		RepositionOverlayRequest{StartTime: 0, EndTime: 1})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown id status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestRemoveOverlayRoute(t *testing.T) {
	e := newTestEngine(t)
	el := addOverlay(t, e, overlay.KindText, 1, 4)

	rr := doRequest(t, e, http.MethodDelete, "/overlays/"+el.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}

	rr = doRequest(t, e, http.MethodDelete, "/overlays/"+el.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}
