package server

import (
	"encoding/json"
	"fmt"

	"github.com/monkeyescape/monkeyescape/internal/core/npc"
	"github.com/monkeyescape/monkeyescape/internal/core/systems/physics"
)

// Message types. The first group is sent by viewers, the second by the server.
const (
	MsgInput  = "input"
	MsgPlay   = "play"
	MsgDemo   = "demo"
	MsgChoose = "choose"

	MsgArena    = "arena"
	MsgSnapshot = "snapshot"
	MsgEvent    = "event"
	MsgError    = "error"
)

// ClientMessage is the JSON shape of everything a viewer can send.
type ClientMessage struct {
	Type    string        `json:"type"`
	Move    *physics.Vec2 `json:"move,omitempty"`
	Sprint  bool          `json:"sprint,omitempty"`
	Variant string        `json:"variant,omitempty"`
}

// Envelope wraps every server to viewer message.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ArenaInfo is sent once on connect; it never changes during a process.
type ArenaInfo struct {
	Width     float64        `json:"width"`
	Height    float64        `json:"height"`
	Obstacles []physics.Rect `json:"obstacles"`
}

// Commands posted to the runner inbox.
type (
	InputCommand struct {
		Input npc.Input
	}
	PlayCommand struct {
		ClientID string
	}
	DemoCommand struct {
		ClientID string
	}
	ChooseCommand struct {
		ClientID string
		Variant  string
	}
)

// Encode marshals a typed envelope.
func Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, fmt.Errorf("%w: empty envelope type", ErrInvalidMessage)
	}
	return json.Marshal(Envelope{Type: t, Data: payload})
}

// DecodeCommand parses a viewer message into a runner command. Stick
// input is sanitised here, at the process boundary.
func DecodeCommand(clientID string, b []byte) (any, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrInvalidMessage)
	}
	var m ClientMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch m.Type {
	case MsgInput:
		in := npc.Input{Sprint: m.Sprint}
		if m.Move != nil {
			in.Move = *m.Move
		}
		return InputCommand{Input: in.Sanitize()}, nil
	case MsgPlay:
		return PlayCommand{ClientID: clientID}, nil
	case MsgDemo:
		return DemoCommand{ClientID: clientID}, nil
	case MsgChoose:
		if m.Variant == "" {
			return nil, fmt.Errorf("%w: choose without variant", ErrInvalidMessage)
		}
		return ChooseCommand{ClientID: clientID, Variant: m.Variant}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, m.Type)
	}
}
