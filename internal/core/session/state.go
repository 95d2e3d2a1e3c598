package session

import "fmt"

// State is the top level mode of a session.
type State uint8

const (
	Menu State = iota
	Demo
	Play
	GameOver
)

func (s State) String() string {
	switch s {
	case Menu:
		return "menu"
	case Demo:
		return "demo"
	case Play:
		return "play"
	case GameOver:
		return "game_over"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Simulating reports whether agents move in this state.
func (s State) Simulating() bool { return s == Demo || s == Play }
