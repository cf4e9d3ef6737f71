package core

// Key code definitions
type KeyCode uint16

const (
	KEY_BACKSPACE KeyCode = 0x08
	KEY_TAB       KeyCode = 0x09
	KEY_ENTER     KeyCode = 0x0D
	KEY_PAUSE     KeyCode = 0x13
	KEY_ESCAPE    KeyCode = 0x1B
	KEY_SPACE     KeyCode = 0x20
	KEY_LEFT      KeyCode = 0x25
	KEY_UP        KeyCode = 0x26
	KEY_RIGHT     KeyCode = 0x27
	KEY_DOWN      KeyCode = 0x28
	KEY_A         KeyCode = 0x41
	KEY_Q         KeyCode = 0x51
	KEY_Z         KeyCode = 0x5A
	KEY_F1        KeyCode = 0x70
	KEY_F12       KeyCode = 0x7B
	KEYS_MAX_KEYS KeyCode = 0xFF
)

// Keyboard state structure
type KeyboardState struct {
	Keys [256]bool
}

// Input keeps the current and previous keyboard state and turns state
// changes into key events.
type Input struct {
	events   *EventSystem
	current  KeyboardState
	previous KeyboardState
}

func NewInput(events *EventSystem) *Input {
	return &Input{events: events}
}

// Update copies the current state to the previous one. Call it once per tick,
// after every input for the tick has been recorded.
func (in *Input) Update() {
	in.previous = in.current
}

func (in *Input) IsKeyDown(key KeyCode) bool {
	return in.current.Keys[key&KEYS_MAX_KEYS]
}

func (in *Input) WasKeyDown(key KeyCode) bool {
	return in.previous.Keys[key&KEYS_MAX_KEYS]
}

// ProcessKey records a key transition. Events are queued rather than fired so
// that they are observed by the render loop at the next tick boundary.
func (in *Input) ProcessKey(key KeyCode, pressed bool) {
	key &= KEYS_MAX_KEYS
	// Only handle this if the state actually changed.
	if in.current.Keys[key] == pressed {
		return
	}
	in.current.Keys[key] = pressed

	code := EVENT_CODE_KEY_RELEASED
	if pressed {
		code = EVENT_CODE_KEY_PRESSED
	}
	in.events.Push(EventContext{
		Type: code,
		Data: &KeyEvent{KeyCode: key},
	})
}
