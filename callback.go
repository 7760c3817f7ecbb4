package relay

import (
	"strings"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

// KeyPress is a terminal key which can be pressed from an inline keyboard
type KeyPress string

///////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	KeyUp      KeyPress = "up"
	KeyDown    KeyPress = "down"
	KeyLeft    KeyPress = "left"
	KeyRight   KeyPress = "right"
	KeySpace   KeyPress = "space"
	KeyTab     KeyPress = "tab"
	KeyEscape  KeyPress = "esc"
	KeyEnter   KeyPress = "enter"
	KeyRefresh KeyPress = "refresh" // not a key press, re-renders the interactive UI
)

const (
	// Prefix of callback data produced by interactive keyboards
	callbackPrefix = "ui:"

	// Maximum length of callback data accepted by the chat surface
	maxCallbackData = 64
)

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// CallbackData encodes a key press for a window as inline button data
func CallbackData(key KeyPress, windowID string) string {
	data := callbackPrefix + string(key) + ":" + windowID
	if len(data) > maxCallbackData {
		data = data[:maxCallbackData]
	}
	return data
}

// ParseCallbackData decodes inline button data produced by CallbackData
func ParseCallbackData(data string) (KeyPress, string, bool) {
	rest, ok := strings.CutPrefix(data, callbackPrefix)
	if !ok {
		return "", "", false
	}
	key, window, ok := strings.Cut(rest, ":")
	if !ok || window == "" {
		return "", "", false
	}
	switch k := KeyPress(key); k {
	case KeyUp, KeyDown, KeyLeft, KeyRight, KeySpace, KeyTab, KeyEscape, KeyEnter, KeyRefresh:
		return k, window, true
	}
	return "", "", false
}
