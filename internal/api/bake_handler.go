package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vibeboard/vibeboard-engine/internal/bake"
)

// startBakeHandler launches an async bake. By-value sends the current
// sequence's resolved clips; by-reference hands the studio a scene id
// (the active scene unless the request names one).
func startBakeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartBakeRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		mode := req.Mode
		if mode == "" {
			mode = bake.ModeByValue
		}

		var job *bake.Job
		var err error
		switch mode {
		case bake.ModeByValue:
			job, err = cfg.Bakes.StartClipBake(r.Context(), cfg.Editor.Sequence(), req.Config)
		case bake.ModeByReference:
			sceneID := req.SceneID
			if sceneID == "" {
				sceneID = cfg.Editor.Structured().ActiveSceneID()
			}
			if sceneID == "" {
				WriteError(w, http.StatusBadRequest, "scene_id is required for by-reference bakes", "BAD_REQUEST")
				return
			}
			job, err = cfg.Bakes.StartSceneBake(r.Context(), sceneID, req.Config)
		default:
			WriteError(w, http.StatusBadRequest, "mode must be by_value or by_reference", "BAD_REQUEST")
			return
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}

		WriteJSON(w, http.StatusAccepted, job)
	}
}

func getBakeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := cfg.Bakes.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "bake job not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, job)
	}
}

func listBakesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if l := r.URL.Query().Get("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n < 1 {
				WriteError(w, http.StatusBadRequest, "invalid limit", "BAD_REQUEST")
				return
			}
			limit = n
		}

		jobs, err := cfg.Bakes.List(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, JobsResponse{Jobs: jobs})
	}
}
