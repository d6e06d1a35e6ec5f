// Package input handles SDL2 input events and held navigation keys.
package input

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/rtview/internal/engine/controls"
)

// Event types reported to the viewer loop.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventDrop
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Width  int
	Height int
	File   string
}

// Keymap binds keyboard scancodes to navigation actions.
type Keymap map[sdl.Scancode]controls.Action

// DefaultKeymap is WASD for translation, arrows for turning and Q/E for roll.
var DefaultKeymap = Keymap{
	sdl.SCANCODE_W:     controls.Forward,
	sdl.SCANCODE_S:     controls.Back,
	sdl.SCANCODE_D:     controls.Right,
	sdl.SCANCODE_A:     controls.Left,
	sdl.SCANCODE_RIGHT: controls.TurnRight,
	sdl.SCANCODE_LEFT:  controls.TurnLeft,
	sdl.SCANCODE_UP:    controls.TurnUp,
	sdl.SCANCODE_DOWN:  controls.TurnDown,
	sdl.SCANCODE_E:     controls.RollRight,
	sdl.SCANCODE_Q:     controls.RollLeft,
}

// Input handles all input processing.
type Input struct {
	events []Event
	keymap Keymap
	held   map[controls.Action]bool
}

// New creates a new input handler using the given keymap, or DefaultKeymap if nil.
func New(keymap Keymap) *Input {
	if keymap == nil {
		keymap = DefaultKeymap
	}
	return &Input{
		events: make([]Event, 0, 16),
		keymap: keymap,
		held:   make(map[controls.Action]bool, len(keymap)),
	}
}

// Update polls SDL events and refreshes held key state.
// Returns true if the viewer should quit.
func (i *Input) Update() bool {
	i.events = i.events[:0]
	quit := false

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			i.events = append(i.events, Event{Type: EventQuit})
			quit = true

		case *sdl.WindowEvent:
			if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
				i.events = append(i.events, Event{
					Type:   EventWindowResize,
					Width:  int(e.Data1),
					Height: int(e.Data2),
				})
			}

		case *sdl.KeyboardEvent:
			if e.Repeat != 0 {
				continue
			}
			if e.Type == sdl.KEYDOWN {
				i.events = append(i.events, Event{Type: EventKeyDown, Key: e.Keysym.Scancode})
			} else if e.Type == sdl.KEYUP {
				i.events = append(i.events, Event{Type: EventKeyUp, Key: e.Keysym.Scancode})
			}

		case *sdl.DropEvent:
			if e.Type == sdl.DROPFILE {
				i.events = append(i.events, Event{Type: EventDrop, File: e.File})
			}
		}
	}

	i.pollHeld()
	return quit
}

func (i *Input) pollHeld() {
	state := sdl.GetKeyboardState()
	clear(i.held)
	for sc, action := range i.keymap {
		if int(sc) < len(state) && state[sc] != 0 {
			i.held[action] = true
		}
	}
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// Held reports whether a key bound to the action is down. It satisfies the
// predicate expected by controls.Commands.
func (i *Input) Held(action controls.Action) bool {
	return i.held[action]
}

// IsKeyPressed checks if a specific key was pressed this frame.
func (i *Input) IsKeyPressed(scancode sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == scancode {
			return true
		}
	}
	return false
}
