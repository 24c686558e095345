package layoutfile

import "github.com/leonard/gridmapper/internal/keymap"

// keyNames maps the upper-case key names used in layout YAML files to
// keymap.Keycode values. Numbering follows linux/input-event-codes.h,
// the same source the teacher's mappings.KeyCode table draws from,
// extended here with the modifier and function-key names a grid-button
// layout actually needs (the teacher's table only covered the printable
// range its Unicode dead-key feature used).
var keyNames = map[string]keymap.Keycode{
	"ESC": 1,

	"1": 2, "2": 3, "3": 4, "4": 5, "5": 6,
	"6": 7, "7": 8, "8": 9, "9": 10, "0": 11,

	"MINUS": 12, "EQUAL": 13, "BACKSPACE": 14, "TAB": 15,

	"Q": 16, "W": 17, "E": 18, "R": 19, "T": 20,
	"Y": 21, "U": 22, "I": 23, "O": 24, "P": 25,

	"LEFTBRACE": 26, "RIGHTBRACE": 27, "ENTER": 28, "LEFTCTRL": 29,

	"A": 30, "S": 31, "D": 32, "F": 33, "G": 34,
	"H": 35, "J": 36, "K": 37, "L": 38,

	"SEMICOLON": 39, "APOSTROPHE": 40, "GRAVE": 41, "LEFTSHIFT": 42,
	"BACKSLASH": 43,

	"Z": 44, "X": 45, "C": 46, "V": 47, "B": 48,
	"N": 49, "M": 50,

	"COMMA": 51, "DOT": 52, "SLASH": 53, "RIGHTSHIFT": 54,
	"LEFTALT": 56, "SPACE": 57, "CAPSLOCK": 58,

	"F1": 59, "F2": 60, "F3": 61, "F4": 62, "F5": 63, "F6": 64,
	"F7": 65, "F8": 66, "F9": 67, "F10": 68,

	"NUMLOCK": 69, "SCROLLLOCK": 70,

	"F11": 87, "F12": 88, "102ND": 86,

	"RIGHTCTRL": 97, "RIGHTALT": 100,

	"HOME": 102, "UP": 103, "PAGEUP": 104, "LEFT": 105,
	"RIGHT": 106, "END": 107, "DOWN": 108, "PAGEDOWN": 109,
	"INSERT": 110, "DELETE": 111,

	"LEFTMETA": 125, "RIGHTMETA": 126,
}

func lookupKeycode(name string) (keymap.Keycode, bool) {
	k, ok := keyNames[name]
	return k, ok
}
