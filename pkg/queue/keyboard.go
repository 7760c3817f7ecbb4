package queue

import (
	// Packages
	relay "github.com/mutablelogic/go-relay"
)

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Interactive UI which only needs vertical selection
const uiRestoreCheckpoint = "RestoreCheckpoint"

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Keyboard returns the control layout attached to an interactive UI message
// for a window. Each button carries the key to send to the window.
func Keyboard(window, ui string) relay.Keyboard {
	button := func(text string, key relay.KeyPress) relay.Button {
		return relay.Button{Text: text, Data: relay.CallbackData(key, window)}
	}

	rows := relay.Keyboard{
		{button("␣ Space", relay.KeySpace), button("↑", relay.KeyUp), button("⇥ Tab", relay.KeyTab)},
	}
	if ui == uiRestoreCheckpoint {
		rows = append(rows, []relay.Button{button("↓", relay.KeyDown)})
	} else {
		rows = append(rows, []relay.Button{button("←", relay.KeyLeft), button("↓", relay.KeyDown), button("→", relay.KeyRight)})
	}
	return append(rows, []relay.Button{
		button("⎋ Esc", relay.KeyEscape), button("🔄", relay.KeyRefresh), button("⏎ Enter", relay.KeyEnter),
	})
}
