package api

import (
	"net/http"

	"github.com/vibeboard/vibeboard-engine/internal/export"
)

// exportEDLHandler renders the current sequence as a CMX 3600 cut list.
// Unplayable members are reported, not fatal; an empty sequence is.
func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		seq := cfg.Editor.Sequence()
		if len(seq) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "sequence is empty", "EMPTY_SEQUENCE")
			return
		}

		title := req.Title
		if title == "" {
			title = cfg.ProjectID
		}
		frameRate := req.FrameRate
		if frameRate <= 0 {
			frameRate = cfg.FrameRate
		}

		cut := export.BuildEDL(seq, title, frameRate)
		WriteJSON(w, http.StatusOK, ExportResponse{
			Filename: export.Filename(title),
			Content:  cut.Content,
			Events:   cut.Events,
			Skipped:  cut.Skipped,
		})
	}
}
