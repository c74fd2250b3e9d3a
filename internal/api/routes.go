package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vibeboard/vibeboard-engine/internal/bake"
	"github.com/vibeboard/vibeboard-engine/internal/config"
	"github.com/vibeboard/vibeboard-engine/internal/editor"
	"github.com/vibeboard/vibeboard-engine/internal/overlay"
	"github.com/vibeboard/vibeboard-engine/internal/player"
	"github.com/vibeboard/vibeboard-engine/internal/recovery"
	"github.com/vibeboard/vibeboard-engine/internal/studio"
	"github.com/vibeboard/vibeboard-engine/internal/timeline"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))

	// The websocket upgrade hijacks the raw connection, so the feed stays
	// off the writer-wrapping middlewares.
	r.Get("/ws", cfg.Hub.Handle)

	r.Group(func(r chi.Router) {
		r.Use(LoggingMiddleware(cfg.Logger))
		r.Use(MetricsMiddleware(cfg.Metrics))

		r.Get("/health", healthHandler(cfg))
		r.Get("/metrics", cfg.Metrics.Handler().ServeHTTP)
		r.Get("/state", stateHandler(cfg))

		r.Route("/player", func(r chi.Router) {
			r.Post("/play", playerCommandHandler(cfg, "play", func(s *player.Synchronizer) { s.Play() }))
			r.Post("/pause", playerCommandHandler(cfg, "pause", func(s *player.Synchronizer) { s.Pause() }))
			r.Post("/toggle", playerCommandHandler(cfg, "toggle", func(s *player.Synchronizer) { s.TogglePlay() }))
			r.Post("/expand", playerCommandHandler(cfg, "expand", func(s *player.Synchronizer) { s.ToggleExpanded() }))
			r.Post("/clip-ended", playerCommandHandler(cfg, "clip_ended", func(s *player.Synchronizer) { s.HandleClipEnded() }))
			r.Post("/seek", seekHandler(cfg))
			r.Post("/step", stepHandler(cfg))
			r.Post("/select", selectHandler(cfg))
			r.Post("/skip", skipHandler(cfg))
			r.Post("/mute", muteHandler(cfg))
			r.Post("/media-error", mediaErrorHandler(cfg))
			r.Post("/key", keyHandler(cfg))
		})

		r.Get("/context", contextHandler(cfg))
		r.Post("/context/mode", setModeHandler(cfg))
		r.Post("/context/refresh", refreshHandler(cfg))
		r.Get("/scenes", listScenesHandler(cfg))
		r.Post("/scenes/{id}/activate", activateSceneHandler(cfg))
		r.Patch("/scenes/{sceneID}/segments/{segmentID}/trim", trimSegmentHandler(cfg))
		r.Delete("/scenes/{sceneID}/segments/{segmentID}", removeSegmentHandler(cfg))

		r.Post("/clips", addClipHandler(cfg))
		r.Post("/clips/from-candidate", fromCandidateHandler(cfg))
		r.Post("/clips/upload", uploadClipHandler(cfg))
		r.Patch("/clips/{id}", patchClipHandler(cfg))
		r.Delete("/clips/{id}", removeClipHandler(cfg))

		r.Route("/drag", func(r chi.Router) {
			r.Get("/", dragStatusHandler(cfg))
			r.Post("/start", dragStartHandler(cfg))
			r.Post("/hover", dragHoverHandler(cfg))
			r.Post("/drop", dragDropHandler(cfg))
			r.Post("/cancel", dragCancelHandler(cfg))
		})

		r.Get("/overlays", listOverlaysHandler(cfg))
		r.Post("/overlays", addOverlayHandler(cfg))
		r.Patch("/overlays/{id}", repositionOverlayHandler(cfg))
		r.Delete("/overlays/{id}", removeOverlayHandler(cfg))

		r.Get("/recovery/offer", recoveryOfferHandler(cfg))
		r.Post("/recovery/restore", recoveryRestoreHandler(cfg))
		r.Post("/recovery/dismiss", recoveryDismissHandler(cfg))

		r.Post("/bake", startBakeHandler(cfg))
		r.Get("/bake", listBakesHandler(cfg))
		r.Get("/bake/{id}", getBakeHandler(cfg))

		r.Get("/candidates", listCandidatesHandler(cfg))
		r.Get("/media/{id}", mediaHandler(cfg))
		r.Post("/export/edl", exportEDLHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  config.Version,
			UptimeS:  uptime,
			EngineID: cfg.EngineID,
		})
	}
}

func stateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, StateResponse{
			EngineID:  cfg.EngineID,
			PageType:  cfg.PageType,
			ProjectID: cfg.ProjectID,
			Player:    cfg.Player.State(),
			Context:   contextResponse(cfg),
			Recovery: RecoveryResponse{
				Mode:  string(cfg.Recovery.Mode()),
				Offer: cfg.Recovery.Pending(),
			},
			Overlays: cfg.Overlays.List(),
		})
	}
}

func contextResponse(cfg ServerConfig) ContextResponse {
	seq := cfg.Editor.Sequence()
	resp := ContextResponse{
		Mode:          string(cfg.Editor.Mode()),
		Sequence:      seq,
		TotalDuration: seq.TotalDuration(),
	}
	if cfg.Editor.Mode() == editor.ModeStructured {
		resp.ActiveSceneID = cfg.Editor.Structured().ActiveSceneID()
	}
	return resp
}

func contextHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, contextResponse(cfg))
	}
}

func setModeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SetModeRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if err := cfg.Editor.SetMode(editor.Mode(req.Mode)); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_MODE")
			return
		}
		WriteJSON(w, http.StatusOK, contextResponse(cfg))
	}
}

func refreshHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Editor.Structured().Refresh(r.Context()); err != nil {
			WriteError(w, http.StatusBadGateway, err.Error(), "STUDIO_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, contextResponse(cfg))
	}
}

func listScenesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, ScenesResponse{
			ActiveSceneID: cfg.Editor.Structured().ActiveSceneID(),
			Scenes:        cfg.Editor.Structured().Scenes(),
		})
	}
}

func activateSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := cfg.Editor.Structured().SetActiveScene(id); err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, contextResponse(cfg))
	}
}

func listCandidatesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("filter")
		candidates, err := cfg.Studio.ListCandidates(r.Context(), cfg.ProjectID, filter)
		if err != nil {
			WriteError(w, http.StatusBadGateway, err.Error(), "STUDIO_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, CandidatesResponse{Candidates: candidates})
	}
}

func mediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Media.Serve(w, r, chi.URLParam(r, "id"))
	}
}

// writeDomainError maps provider errors onto the HTTP surface. Anything
// unrecognized is a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, editor.ErrClipNotFound),
		errors.Is(err, editor.ErrSceneNotFound),
		errors.Is(err, editor.ErrSegmentNotFound),
		errors.Is(err, player.ErrClipNotFound),
		errors.Is(err, overlay.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, timeline.ErrInvalidTrim),
		errors.Is(err, overlay.ErrInvalidSpan),
		errors.Is(err, editor.ErrInvalidMode):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case errors.Is(err, studio.ErrVersionConflict):
		WriteError(w, http.StatusConflict, err.Error(), "VERSION_CONFLICT")
	case errors.Is(err, editor.ErrDragTransition):
		WriteError(w, http.StatusConflict, err.Error(), "DRAG_STATE")
	case errors.Is(err, recovery.ErrNoRestorePending):
		WriteError(w, http.StatusConflict, err.Error(), "NO_RESTORE_PENDING")
	case errors.Is(err, bake.ErrNoPlayableClips):
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), "NO_PLAYABLE_CLIPS")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}
