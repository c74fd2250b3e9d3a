package api

import (
	"net/http"

	"github.com/vibeboard/vibeboard-engine/internal/editor"
)

func dragStatusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Editor.DragStatus())
	}
}

func dragStartHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload editor.DragPayload
		if err := decodeJSON(r, &payload); err != nil || payload.MediaRef == "" {
			WriteError(w, http.StatusBadRequest, "media_ref is required", "BAD_REQUEST")
			return
		}
		if err := cfg.Editor.DragStart(payload); err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Editor.DragStatus())
	}
}

func dragHoverHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DragHoverRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if err := cfg.Editor.DragHover(req.Target); err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Editor.DragStatus())
	}
}

// dragDropHandler settles the drag. Insert failures surface as errors;
// targetless or out-of-context drops settle invalid without one.
func dragDropHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome, err := cfg.Editor.DragDrop(r.Context())
		if outcome != "" {
			cfg.Metrics.RecordDragDrop(outcome)
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, DropResponse{Outcome: outcome})
	}
}

func dragCancelHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Editor.DragCancel()
		WriteJSON(w, http.StatusOK, cfg.Editor.DragStatus())
	}
}
