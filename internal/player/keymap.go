package player

import "strings"

// Command is a named player action a key press can trigger.
type Command string

const (
	CommandTogglePlay   Command = "toggle_play"
	CommandSkipPrevious Command = "skip_previous"
	CommandSkipNext     Command = "skip_next"
	CommandToggleMute   Command = "toggle_mute"
	CommandToggleExpand Command = "toggle_expand"
	CommandStepBack     Command = "step_back"
	CommandStepForward  Command = "step_forward"
)

// Keymap maps normalized key names to commands.
type Keymap map[string]Command

// DefaultKeymap is the standard editing-surface binding set.
func DefaultKeymap() Keymap {
	return Keymap{
		"space":      CommandTogglePlay,
		"k":          CommandTogglePlay,
		"j":          CommandSkipPrevious,
		"l":          CommandSkipNext,
		"m":          CommandToggleMute,
		"f":          CommandToggleExpand,
		"arrowleft":  CommandStepBack,
		"arrowright": CommandStepForward,
	}
}

// Resolve maps a pressed key to its command. Every binding is suppressed
// while a text input has focus so typing never drives the player.
func (k Keymap) Resolve(key string, textInputFocused bool) (Command, bool) {
	if textInputFocused {
		return "", false
	}
	cmd, ok := k[normalizeKey(key)]
	return cmd, ok
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == " " || key == "spacebar" {
		return "space"
	}
	return key
}
