package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vibeboard/vibeboard-engine/internal/editor"
	"github.com/vibeboard/vibeboard-engine/internal/studio"
	"github.com/vibeboard/vibeboard-engine/internal/timeline"
)

const maxUploadMemory = 64 << 20

func addClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var clip timeline.Clip
		if err := decodeJSON(r, &clip); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if clip.MediaRef == "" {
			WriteError(w, http.StatusBadRequest, "media_ref is required", "BAD_REQUEST")
			return
		}

		added, err := cfg.Editor.Adhoc().Append(clip)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, added)
	}
}

// fromCandidateHandler accepts a generation candidate into the ad-hoc
// list. The candidate is looked up fresh so stale surface state cannot
// fabricate media refs.
func fromCandidateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FromCandidateRequest
		if err := decodeJSON(r, &req); err != nil || req.CandidateID == "" {
			WriteError(w, http.StatusBadRequest, "candidate_id is required", "BAD_REQUEST")
			return
		}

		candidates, err := cfg.Studio.ListCandidates(r.Context(), cfg.ProjectID, "")
		if err != nil {
			WriteError(w, http.StatusBadGateway, err.Error(), "STUDIO_ERROR")
			return
		}
		var found *studio.Candidate
		for i := range candidates {
			if candidates[i].ID == req.CandidateID {
				found = &candidates[i]
				break
			}
		}
		if found == nil {
			WriteError(w, http.StatusNotFound, "candidate not found", "NOT_FOUND")
			return
		}

		clip, err := cfg.Editor.Adhoc().AppendFromCandidate(*found)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, clip)
	}
}

// uploadClipHandler takes a multipart upload, caches it locally for
// immediate playback, probes its duration, and forwards it to the studio.
// A studio outage degrades to a local-only clip instead of failing the
// upload.
func uploadClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid multipart body", "BAD_REQUEST")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			WriteError(w, http.StatusBadRequest, "file field is required", "BAD_REQUEST")
			return
		}
		defer file.Close()

		label := r.FormValue("label")
		if label == "" {
			label = header.Filename
		}
		hint := 0.0
		if h := r.FormValue("duration_hint"); h != "" {
			hint, err = strconv.ParseFloat(h, 64)
			if err != nil || hint < 0 {
				WriteError(w, http.StatusBadRequest, "invalid duration_hint", "BAD_REQUEST")
				return
			}
		}

		item, err := cfg.Media.Put(header.Filename, file)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to store upload", "INTERNAL_ERROR")
			return
		}

		duration := hint
		path, _ := cfg.Media.Path(item.ID)
		if probed, probeErr := cfg.Prober.Duration(r.Context(), path); probeErr == nil {
			duration = probed
		} else {
			cfg.Logger.Warn("duration probe failed, using hint", "media_id", item.ID, "hint", hint, "error", probeErr)
		}

		studioRef := pushToStudio(r.Context(), cfg, header.Filename, item.ID)
		ref := &studio.MediaRef{Ref: item.Ref}
		if studioRef != nil {
			ref.AudioRef = studioRef.AudioRef
			ref.Duration = studioRef.Duration
		}

		clip, err := cfg.Editor.Adhoc().AppendFromUpload(ref, label, duration)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := UploadResponse{Clip: clip, MediaID: item.ID, Ref: item.Ref}
		if studioRef != nil {
			resp.StudioRef = studioRef.Ref
		}
		WriteJSON(w, http.StatusCreated, resp)
	}
}

// pushToStudio forwards the cached upload to the studio backend. Returns
// nil when the studio is unreachable; the clip then plays from the local
// cache only.
func pushToStudio(ctx context.Context, cfg ServerConfig, filename, mediaID string) *studio.MediaRef {
	f, _, err := cfg.Media.Open(mediaID)
	if err != nil {
		cfg.Logger.Warn("reopen cached upload failed", "media_id", mediaID, "error", err)
		return nil
	}
	defer f.Close()

	ref, err := cfg.Studio.Upload(ctx, filename, f)
	if err != nil {
		cfg.Logger.Warn("studio upload failed, keeping local copy", "media_id", mediaID, "error", err)
		return nil
	}
	return ref
}

func patchClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch editor.ClipPatch
		if err := decodeJSON(r, &patch); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		clip, err := cfg.Editor.Adhoc().Patch(chi.URLParam(r, "id"), patch)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, clip)
	}
}

func removeClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Editor.Adhoc().Remove(chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// trimSegmentHandler adjusts a segment's trim window on the local scene
// copy, and pushes it to the studio when the edit is committed. Scrub
// updates stay local so the slider never waits on the network.
func trimSegmentHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sceneID := chi.URLParam(r, "sceneID")
		segmentID := chi.URLParam(r, "segmentID")

		var req TrimRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		structured := cfg.Editor.Structured()
		if err := structured.ApplyTrimLocal(sceneID, segmentID, req.TrimStart, req.TrimEnd); err != nil {
			writeDomainError(w, err)
			return
		}
		if req.Commit {
			if err := structured.PushTrim(r.Context(), sceneID, segmentID); err != nil {
				writeDomainError(w, err)
				return
			}
		}
		WriteJSON(w, http.StatusOK, contextResponse(cfg))
	}
}

func removeSegmentHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scene, err := cfg.Editor.Structured().RemoveSegment(r.Context(),
			chi.URLParam(r, "sceneID"), chi.URLParam(r, "segmentID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, SceneResponse{Scene: scene})
	}
}
