/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package dispatch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Seednode/imposterbox/games"
	"github.com/Seednode/imposterbox/identity"
	"github.com/Seednode/imposterbox/rooms"
)

// firstRandom always picks the first option and never reorders, so the
// first roster member is the imposter.
type firstRandom struct{}

func (firstRandom) IntN(int) int                { return 0 }
func (firstRandom) Shuffle(int, func(i, j int)) {}

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time {
	return c.t
}

type outbox struct {
	msgs map[string][]Message
}

func (o *outbox) Send(connectionID string, msg Message) bool {
	o.msgs[connectionID] = append(o.msgs[connectionID], msg)
	return true
}

// take returns and forgets everything sent to connectionID.
func (o *outbox) take(connectionID string) []Message {
	msgs := o.msgs[connectionID]
	delete(o.msgs, connectionID)

	return msgs
}

func (o *outbox) ofType(connectionID, msgType string) []Message {
	var out []Message
	for _, m := range o.msgs[connectionID] {
		if m.Type == msgType {
			out = append(out, m)
		}
	}

	return out
}

type harness struct {
	t     *testing.T
	d     *Dispatcher
	out   *outbox
	clock *clock
	rooms *rooms.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	c := &clock{t: time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)}
	out := &outbox{msgs: map[string][]Message{}}
	roomRegistry := rooms.New(rooms.Options{MaxMembers: 8, Now: c.now})

	d := New(Options{
		Identity:       identity.New(c.now),
		Rooms:          roomRegistry,
		Words:          games.NewCatalog(map[string][][2]string{"animals": {{"dog", "wolf"}}}),
		Random:         firstRandom{},
		Sender:         out,
		SessionTimeout: 10 * time.Minute,
		RoomTimeout:    time.Hour,
	})

	return &harness{t: t, d: d, out: out, clock: c, rooms: roomRegistry}
}

func (h *harness) send(connectionID, msgType string, payload any) {
	h.t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(h.t, err)

	h.d.Handle(connectionID, Envelope{Type: msgType, Payload: raw})
}

func (h *harness) last(connectionID string) Message {
	h.t.Helper()

	msgs := h.out.msgs[connectionID]
	require.NotEmpty(h.t, msgs, "nothing sent to %s", connectionID)

	return msgs[len(msgs)-1]
}

// errorCode returns the code of the last message sent to connectionID,
// which must be an error.
func (h *harness) errorCode(connectionID string) string {
	h.t.Helper()

	msg := h.last(connectionID)
	require.Equal(h.t, TypeError, msg.Type)

	return msg.Payload.(ErrorPayload).Code
}

func (h *harness) login(connectionID, name string) LoginSuccess {
	h.t.Helper()

	h.send(connectionID, TypeLogin, LoginRequest{DisplayName: name})
	msg := h.last(connectionID)
	require.Equal(h.t, TypeLoginSuccess, msg.Type)

	return msg.Payload.(LoginSuccess)
}

func (h *harness) createRoom(connectionID string, req CreateRoomRequest) rooms.View {
	h.t.Helper()

	h.send(connectionID, TypeCreateRoom, req)
	msg := h.last(connectionID)
	require.Equal(h.t, TypeRoomCreated, msg.Type)

	return msg.Payload.(RoomPayload).Room
}

func (h *harness) join(connectionID, code, role string) {
	h.t.Helper()

	h.send(connectionID, TypeJoinRoom, JoinRoomRequest{RoomCode: code, Role: role})
	require.NotEmpty(h.t, h.out.ofType(connectionID, TypeRoomJoined), "join of %s failed", connectionID)
}

func (h *harness) action(connectionID, actionType string, payload any) {
	h.t.Helper()

	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		require.NoError(h.t, err)
	}

	h.send(connectionID, TypeGameAction, GameActionRequest{Type: actionType, Payload: raw})
}

func (h *harness) vote(connectionID, targetID string) {
	h.t.Helper()

	h.action(connectionID, games.ActionVote, map[string]string{"targetId": targetID})
}

// lastGameState returns the newest game view sent to connectionID.
func (h *harness) lastGameState(connectionID string) games.ImposterView {
	h.t.Helper()

	states := h.out.ofType(connectionID, TypeGameState)
	require.NotEmpty(h.t, states, "no game state sent to %s", connectionID)

	return states[len(states)-1].Payload.(GameState).State.(games.ImposterView)
}

// lobby logs in a host and players on conn-<name> and puts them all in one
// room. It returns the room code and the profile id per name.
func (h *harness) lobby(host string, players ...string) (string, map[string]string) {
	h.t.Helper()

	ids := map[string]string{host: h.login("conn-"+host, host).Profile.ID}
	room := h.createRoom("conn-"+host, CreateRoomRequest{Name: "party", AllowSpectators: true})

	for _, p := range players {
		ids[p] = h.login("conn-"+p, p).Profile.ID
		h.join("conn-"+p, room.Code, "player")
	}

	return room.Code, ids
}
