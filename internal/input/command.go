// Package input turns raw keyboard activity into commands for the daemon
// loop.
package input

import "github.com/BurntSushi/xgb/xproto"

// Action is what a hotkey asks the daemon to do.
type Action int

const (
	CycleForward Action = iota + 1
	CycleBackward
	ActivateCharacter
	ToggleSkip
	TogglePreviews
	SwitchProfile
)

func (a Action) String() string {
	switch a {
	case CycleForward:
		return "forward"
	case CycleBackward:
		return "backward"
	case ActivateCharacter:
		return "character"
	case ToggleSkip:
		return "toggle-skip"
	case TogglePreviews:
		return "toggle-previews"
	case SwitchProfile:
		return "switch-profile"
	default:
		return "unknown"
	}
}

// Command is one hotkey press. Time is the X server timestamp of the key
// event, or zero (CurrentTime) when the press did not come through X.
type Command struct {
	Action Action
	// Target is the cycle group for cycling, the configured key for
	// character activation and the profile name for a switch.
	Target string
	Time   xproto.Timestamp
}

// Hotkey binds a key, in "Mod1-Shift-Tab" notation, to the command a press
// sends.
type Hotkey struct {
	Key     string
	Command Command
}
