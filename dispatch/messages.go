/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package dispatch

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/Seednode/imposterbox/errs"
	"github.com/Seednode/imposterbox/games"
	"github.com/Seednode/imposterbox/identity"
	"github.com/Seednode/imposterbox/rooms"
)

// Inbound message types.
const (
	TypeLogin          = "login"
	TypeCreateRoom     = "create_room"
	TypeJoinRoom       = "join_room"
	TypeLeaveRoom      = "leave_room"
	TypeKickRoomMember = "kick_room_member"
	TypeStartGame      = "start_game"
	TypeGameAction     = "game_action"
	TypeGetGameState   = "get_game_state"
	TypeListCategories = "list_categories"
	TypePing           = "ping"
)

// Outbound message types.
const (
	TypeLoginSuccess = "login_success"
	TypeRoomCreated  = "room_created"
	TypeRoomJoined   = "room_joined"
	TypeRoomLeft     = "room_left"
	TypeRoomUpdated  = "room_updated"
	TypeRoomClosed   = "room_closed"
	TypeKicked       = "kicked"
	TypeGameState    = "game_state"
	TypeCategories   = "categories"
	TypeError        = "error"
	TypePong         = "pong"
)

// Envelope is a message as received from a client.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message is a message on its way to a client. It is encoded on the hub
// goroutine, so Payload may reference live state.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type LoginRequest struct {
	DisplayName string `json:"displayName"`
	SessionID   string `json:"sessionId,omitempty"`
}

type CreateRoomRequest struct {
	Name            string `json:"name" validate:"max=48"`
	MaxMembers      int    `json:"maxMembers,omitempty" validate:"omitempty,min=2,max=64"`
	AllowSpectators bool   `json:"allowSpectators"`
}

type JoinRoomRequest struct {
	RoomCode string `json:"roomCode" validate:"required"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=player spectator"`
}

type KickRequest struct {
	MemberID string `json:"memberId" validate:"required"`
}

type StartGameRequest struct {
	GameType string          `json:"gameType" validate:"required"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

type GameActionRequest struct {
	Type    string          `json:"type" validate:"required"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type LoginSuccess struct {
	SessionID string           `json:"sessionId"`
	Profile   identity.Profile `json:"profile"`
}

type RoomPayload struct {
	Room rooms.View `json:"room"`
}

type RoomCodePayload struct {
	RoomCode string `json:"roomCode"`
}

type RoomClosed struct {
	RoomCode string `json:"roomCode"`
	Reason   string `json:"reason"`
}

type GameState struct {
	RoomCode string         `json:"roomCode"`
	GameType games.GameType `json:"gameType"`
	State    any            `json:"state"`
}

type Categories struct {
	Categories []string `json:"categories"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var validate = validator.New()

// decode unmarshals raw into dst and checks its validate tags. An absent
// payload decodes to the zero value.
func decode(raw json.RawMessage, dst any) error {
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, dst); err != nil {
			return errs.New(errs.KindValidation, "request.invalid", "malformed payload: %v", err)
		}
	}

	if err := validate.Struct(dst); err != nil {
		return errs.New(errs.KindValidation, "request.invalid", "invalid payload: %v", err)
	}

	return nil
}
