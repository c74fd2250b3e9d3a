package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// listOverlaysHandler returns the whole layer, or only the elements
// active at a global time when ?at= is given.
func listOverlaysHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if at := r.URL.Query().Get("at"); at != "" {
			t, err := strconv.ParseFloat(at, 64)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "invalid at parameter", "BAD_REQUEST")
				return
			}
			WriteJSON(w, http.StatusOK, OverlaysResponse{Overlays: cfg.Overlays.ActiveAt(t)})
			return
		}
		WriteJSON(w, http.StatusOK, OverlaysResponse{Overlays: cfg.Overlays.List()})
	}
}

func addOverlayHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AddOverlayRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Kind == "" {
			WriteError(w, http.StatusBadRequest, "kind is required", "BAD_REQUEST")
			return
		}

		el, err := cfg.Overlays.Add(req.Kind, req.AssetRef, req.StartTime, req.EndTime, req.Payload)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, el)
	}
}

func repositionOverlayHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RepositionOverlayRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		el, err := cfg.Overlays.Reposition(chi.URLParam(r, "id"), req.StartTime, req.EndTime)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, el)
	}
}

func removeOverlayHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Overlays.Remove(chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
