package tui

// Key bindings.
const (
	keyQuit     = "q"
	keyCtrlC    = "ctrl+c"
	keyNext     = "n"
	keyRight    = "right"
	keyPgDown   = "pgdown"
	keyPrev     = "p"
	keyLeft     = "left"
	keyPgUp     = "pgup"
	keyFirst    = "g"
	keyLast     = "G"
	keyHome     = "home"
	keyEnd      = "end"
	keyEsc      = "esc"
	helpMessage = "n/→ next page • p/← previous page • g/G first/last • ↑/↓ move • q quit"
)
