package core

// Key code definitions
type KeyCode uint16

const (
	KEY_UNKNOWN KeyCode = 0x00
	KEY_ESCAPE  KeyCode = 0x1B
	KEY_SPACE   KeyCode = 0x20
	KEY_LEFT    KeyCode = 0x25
	KEY_UP      KeyCode = 0x26
	KEY_RIGHT   KeyCode = 0x27
	KEY_DOWN    KeyCode = 0x28
	KEY_1       KeyCode = 0x31
	KEY_2       KeyCode = 0x32
	KEY_3       KeyCode = 0x33
	KEY_4       KeyCode = 0x34
	KEY_A       KeyCode = 0x41
	KEY_D       KeyCode = 0x44
	KEY_E       KeyCode = 0x45
	KEY_L       KeyCode = 0x4C
	KEY_Q       KeyCode = 0x51
	KEY_S       KeyCode = 0x53
	KEY_W       KeyCode = 0x57
	KEY_F5      KeyCode = 0x74

	KEYS_MAX_KEYS KeyCode = 0xFF
)

// InputState tracks the keyboard for the current and previous frame.
type InputState struct {
	current  [KEYS_MAX_KEYS]bool
	previous [KEYS_MAX_KEYS]bool
	bus      *EventBus
}

func NewInputState(bus *EventBus) *InputState {
	return &InputState{bus: bus}
}

// Update copies the current state to the previous one. Call once per frame.
func (is *InputState) Update() {
	is.previous = is.current
}

func (is *InputState) IsKeyDown(key KeyCode) bool {
	return is.current[key]
}

func (is *InputState) WasKeyDown(key KeyCode) bool {
	return is.previous[key]
}

// ProcessKey records a key state change and fires the matching event.
func (is *InputState) ProcessKey(key KeyCode, pressed bool) {
	if key >= KEYS_MAX_KEYS || is.current[key] == pressed {
		return
	}
	is.current[key] = pressed

	if is.bus == nil {
		return
	}
	ctx := EventContext{}
	ctx.Data.U32[0] = uint32(key)
	code := EVENT_CODE_KEY_RELEASED
	if pressed {
		code = EVENT_CODE_KEY_PRESSED
	}
	is.bus.Fire(code, nil, ctx)
}
