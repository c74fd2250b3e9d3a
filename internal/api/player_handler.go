package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/vibeboard/vibeboard-engine/internal/player"
)

// playerCommandHandler wraps the bodyless player commands: run the
// command, count it, answer with the fresh snapshot.
func playerCommandHandler(cfg ServerConfig, name string, run func(*player.Synchronizer)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run(cfg.Player)
		cfg.Metrics.RecordPlayerCommand(name)
		WriteJSON(w, http.StatusOK, cfg.Player.State())
	}
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SeekRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		cfg.Player.Seek(req.Time)
		cfg.Metrics.RecordPlayerCommand("seek")
		WriteJSON(w, http.StatusOK, cfg.Player.State())
	}
}

func stepHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StepRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		switch {
		case req.Direction > 0:
			cfg.Player.StepFrame(1)
		case req.Direction < 0:
			cfg.Player.StepFrame(-1)
		default:
			WriteError(w, http.StatusBadRequest, "direction must be -1 or 1", "BAD_REQUEST")
			return
		}
		cfg.Metrics.RecordPlayerCommand("step")
		WriteJSON(w, http.StatusOK, cfg.Player.State())
	}
}

func selectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectRequest
		if err := decodeJSON(r, &req); err != nil || req.ClipID == "" {
			WriteError(w, http.StatusBadRequest, "clip_id is required", "BAD_REQUEST")
			return
		}
		if err := cfg.Player.SelectClip(req.ClipID); err != nil {
			writeDomainError(w, err)
			return
		}
		cfg.Metrics.RecordPlayerCommand("select")
		WriteJSON(w, http.StatusOK, cfg.Player.State())
	}
}

func skipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SkipRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		switch req.Direction {
		case "previous":
			cfg.Player.SkipPrevious()
		case "next":
			cfg.Player.SkipNext()
		default:
			WriteError(w, http.StatusBadRequest, "direction must be previous or next", "BAD_REQUEST")
			return
		}
		cfg.Metrics.RecordPlayerCommand("skip_" + req.Direction)
		WriteJSON(w, http.StatusOK, cfg.Player.State())
	}
}

// muteHandler sets an explicit mute state, or toggles when the body is
// empty or carries no muted field.
func muteHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MuteRequest
		err := decodeJSON(r, &req)
		if err != nil && !errors.Is(err, io.EOF) {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Muted != nil {
			cfg.Player.SetMuted(*req.Muted)
		} else {
			cfg.Player.ToggleMuted()
		}
		cfg.Metrics.RecordPlayerCommand("mute")
		WriteJSON(w, http.StatusOK, cfg.Player.State())
	}
}

func mediaErrorHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MediaErrorRequest
		if err := decodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		cfg.Player.HandleMediaError(req.MediaRef, req.Message)
		WriteJSON(w, http.StatusOK, cfg.Player.State())
	}
}

// keyHandler resolves a pressed key through the keymap and dispatches the
// bound command. Keys pressed while a text input has focus never reach
// the player.
func keyHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req KeyRequest
		if err := decodeJSON(r, &req); err != nil || req.Key == "" {
			WriteError(w, http.StatusBadRequest, "key is required", "BAD_REQUEST")
			return
		}

		cmd, ok := cfg.Keymap.Resolve(req.Key, req.TextInputFocused)
		if ok {
			cfg.Player.Dispatch(cmd)
			cfg.Metrics.RecordPlayerCommand(string(cmd))
		}
		WriteJSON(w, http.StatusOK, KeyResponse{
			Command: string(cmd),
			Handled: ok,
			Player:  cfg.Player.State(),
		})
	}
}
