package api

import "net/http"

func recoveryOfferHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, RecoveryResponse{
			Mode:  string(cfg.Recovery.Mode()),
			Offer: cfg.Recovery.Pending(),
		})
	}
}

func recoveryRestoreHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := cfg.Recovery.Restore(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		cfg.Metrics.RecordRestore()
		WriteJSON(w, http.StatusOK, RestoreResponse{Snapshot: snap})
	}
}

func recoveryDismissHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Recovery.Dismiss(r.Context()); err != nil {
			writeDomainError(w, err)
			return
		}
		cfg.Metrics.RecordDismiss()
		w.WriteHeader(http.StatusNoContent)
	}
}
