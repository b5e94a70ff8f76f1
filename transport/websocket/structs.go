package websocket

import (
	"encoding/json"

	"github.com/playsquare/gameroom-backend/internal/room"
)

// Inbound actions.
const (
	actionRoomJoin  = "room:join"
	actionRoomLeave = "room:leave"
	actionGameTurn  = "game:turn"
	actionGameReset = "game:reset"
	actionGameCheat = "game:cheat"
)

// Outbound actions.
const (
	actionRoomJoined = "room:joined"
	actionRoomState  = "room:state"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type joinPayload struct {
	Room struct {
		ID string `json:"id"`
	} `json:"room"`
	Player struct {
		ID string `json:"id"`
	} `json:"player"`
}

type turnPayload struct {
	Cell *int `json:"cell"`
}

type cheatPayload struct {
	Action string `json:"action"`
	Mark   string `json:"mark,omitempty"`
}

// joinedPayload carries the private seat assignment for one connection.
type joinedPayload struct {
	Player room.Assignment `json:"player"`
}

type errorPayload struct {
	Error string `json:"error"`
}
