/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package dispatch routes client messages to the registries and game engines
// and fans the results back out to connections.
//
// A Dispatcher is not safe for concurrent use. Run it behind a Hub, which
// applies every message, disconnect and sweep from a single goroutine.
package dispatch

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/Seednode/imposterbox/errs"
	"github.com/Seednode/imposterbox/games"
	"github.com/Seednode/imposterbox/identity"
	"github.com/Seednode/imposterbox/rooms"
)

const (
	DefaultSessionTimeout = 10 * time.Minute
	DefaultRoomTimeout    = time.Hour
	DefaultSweepInterval  = time.Minute
)

// Sender delivers a message to a live connection. It reports false when the
// connection is gone or could not keep up.
type Sender interface {
	Send(connectionID string, msg Message) bool
}

// Recorder receives activity counts. *metrics.Collector satisfies it.
type Recorder interface {
	RecordMessage(msgType string)
	RecordError(code string)
	RecordGameStarted(gameType string)
	RecordGameFinished(gameType string)
	SetPopulation(rooms, sessions int)
	SetConnections(n int)
}

type nopRecorder struct{}

func (nopRecorder) RecordMessage(string)      {}
func (nopRecorder) RecordError(string)        {}
func (nopRecorder) RecordGameStarted(string)  {}
func (nopRecorder) RecordGameFinished(string) {}
func (nopRecorder) SetPopulation(int, int)    {}
func (nopRecorder) SetConnections(int)        {}

type Options struct {
	Identity *identity.Registry
	Rooms    *rooms.Registry
	Words    games.WordSource
	Random   games.Random
	Sender   Sender
	Recorder Recorder
	Logf     func(format string, args ...any)

	// SessionTimeout and RoomTimeout are the idle thresholds applied by
	// Sweep. SweepInterval is how often a Hub calls it.
	SessionTimeout time.Duration
	RoomTimeout    time.Duration
	SweepInterval  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Identity == nil {
		o.Identity = identity.New(nil)
	}
	if o.Rooms == nil {
		o.Rooms = rooms.New(rooms.Options{})
	}
	if o.Words == nil {
		o.Words = games.NewCatalog(nil)
	}
	if o.Random == nil {
		o.Random = games.NewRandom()
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
	if o.Logf == nil {
		o.Logf = func(string, ...any) {}
	}
	if o.SessionTimeout <= 0 {
		o.SessionTimeout = DefaultSessionTimeout
	}
	if o.RoomTimeout <= 0 {
		o.RoomTimeout = DefaultRoomTimeout
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}

	return o
}

type handlerFunc func(connectionID string, s *identity.Session, raw json.RawMessage) error

type route struct {
	// public routes run without a session; s may still be set.
	public   bool
	fallback string
	handle   handlerFunc
}

type Dispatcher struct {
	identity *identity.Registry
	rooms    *rooms.Registry
	words    games.WordSource
	random   games.Random
	sender   Sender
	recorder Recorder
	logf     func(format string, args ...any)

	sessionTimeout time.Duration
	roomTimeout    time.Duration

	routes map[string]route
}

func New(opts Options) *Dispatcher {
	opts = opts.withDefaults()

	d := &Dispatcher{
		identity:       opts.Identity,
		rooms:          opts.Rooms,
		words:          opts.Words,
		random:         opts.Random,
		sender:         opts.Sender,
		recorder:       opts.Recorder,
		logf:           opts.Logf,
		sessionTimeout: opts.SessionTimeout,
		roomTimeout:    opts.RoomTimeout,
	}

	d.routes = map[string]route{
		TypeLogin:          {public: true, fallback: "auth.login_failed", handle: d.login},
		TypeListCategories: {public: true, fallback: "request.invalid", handle: d.listCategories},
		TypePing:           {public: true, fallback: "request.invalid", handle: d.ping},
		TypeCreateRoom:     {fallback: "room.create_failed", handle: d.createRoom},
		TypeJoinRoom:       {fallback: "room.join_failed", handle: d.joinRoom},
		TypeLeaveRoom:      {fallback: "room.leave_failed", handle: d.leaveRoom},
		TypeKickRoomMember: {fallback: "room.kick_failed", handle: d.kick},
		TypeStartGame:      {fallback: "game.start_failed", handle: d.startGame},
		TypeGameAction:     {fallback: "game.action_failed", handle: d.gameAction},
		TypeGetGameState:   {fallback: "game.state_failed", handle: d.getGameState},
	}

	return d
}

// Handle runs one inbound message to completion. Failures are reported to
// the sending connection only.
func (d *Dispatcher) Handle(connectionID string, env Envelope) {
	r, ok := d.routes[env.Type]
	if !ok {
		d.recorder.RecordMessage("unknown")
		d.logf("SERVE: Ignoring unknown message type %q from %s", env.Type, connectionID)

		return
	}

	d.recorder.RecordMessage(env.Type)

	s, authenticated := d.identity.LookupByConnectionID(connectionID)
	if authenticated {
		d.identity.Touch(s)
	}

	var err error
	if !r.public && !authenticated {
		err = errs.Authorization("auth.required", "log in before sending %s", env.Type)
	} else {
		err = r.handle(connectionID, s, env.Payload)
	}

	if err != nil {
		d.fail(connectionID, r.fallback, err)
	}

	d.recorder.SetPopulation(d.rooms.Len(), d.identity.Len())
}

func (d *Dispatcher) fail(connectionID, fallback string, err error) {
	code := errs.CodeOf(err, fallback)

	d.recorder.RecordError(code)
	d.logf("ERROR: %s for %s: %v", code, connectionID, err)

	d.sender.Send(connectionID, Message{
		Type:    TypeError,
		Payload: ErrorPayload{Code: code, Message: err.Error()},
	})
}

// Disconnect marks the member behind connectionID as away. Membership and
// game seats are kept until an explicit leave, a kick or an idle sweep.
func (d *Dispatcher) Disconnect(connectionID string) {
	s, ok := d.identity.Detach(connectionID)
	if !ok {
		return
	}

	d.logf("SESSIONS: %s disconnected", s.Profile.DisplayName)

	if room, ok := d.rooms.SetStatus(s.Profile.ID, rooms.StatusDisconnected); ok {
		d.broadcastRoom(room)
	}
}

// Sweep expires sessions that have stayed disconnected past the session
// timeout, then idle rooms, reading the registries as they are at the time
// of the call.
func (d *Dispatcher) Sweep() {
	for _, s := range d.identity.SweepInactive(d.sessionTimeout) {
		d.logf("SESSIONS: Expired session for %s", s.Profile.DisplayName)

		if room, ok := d.rooms.RoomOf(s.Profile.ID); ok {
			d.depart(room, s.Profile.ID)
		}
	}

	for _, room := range d.rooms.SweepIdle(d.roomTimeout) {
		d.logf("ROOMS: Closed idle room %s", room.Code)

		for _, m := range room.Members {
			d.send(m.ProfileID, TypeRoomClosed, RoomClosed{RoomCode: room.Code, Reason: "idle"})
		}
	}

	d.recorder.SetPopulation(d.rooms.Len(), d.identity.Len())
}

// RoomExists reports whether a room with the given code is open.
func (d *Dispatcher) RoomExists(code string) bool {
	_, ok := d.rooms.Get(code)
	return ok
}

// Population returns the number of open rooms and known sessions.
func (d *Dispatcher) Population() (int, int) {
	return d.rooms.Len(), d.identity.Len()
}

func (d *Dispatcher) login(connectionID string, current *identity.Session, raw json.RawMessage) error {
	var req LoginRequest
	if err := decode(raw, &req); err != nil {
		return err
	}

	var (
		s   *identity.Session
		err error
	)

	if req.SessionID != "" {
		name := ""
		if strings.TrimSpace(req.DisplayName) != "" {
			if name, err = identity.NormalizeDisplayName(req.DisplayName); err != nil {
				return err
			}
		}

		if s, err = d.identity.AttachConnection(req.SessionID, connectionID); err != nil {
			return err
		}

		if current != nil && current != s {
			d.markAway(current)
		}

		if name != "" {
			s.Profile.DisplayName = name
		}

		d.logf("SESSIONS: %s resumed their session on %s", s.Profile.DisplayName, connectionID)
	} else {
		if s, err = d.identity.CreateSession(connectionID, req.DisplayName); err != nil {
			return err
		}

		d.logf("SESSIONS: %s logged in on %s", s.Profile.DisplayName, connectionID)
	}

	d.sender.Send(connectionID, Message{
		Type:    TypeLoginSuccess,
		Payload: LoginSuccess{SessionID: s.ID, Profile: *s.Profile},
	})

	d.resume(s)

	return nil
}

// markAway flags the room seat of a session whose connection was taken over
// by another session.
func (d *Dispatcher) markAway(s *identity.Session) {
	if room, ok := d.rooms.SetStatus(s.Profile.ID, rooms.StatusDisconnected); ok {
		d.broadcastRoom(room)
	}
}

// resume puts a returning member back in their room and re-sends what they
// missed.
func (d *Dispatcher) resume(s *identity.Session) {
	current, ok := d.rooms.RoomOf(s.Profile.ID)
	if !ok {
		return
	}

	room, err := d.rooms.JoinRoom(current.Code, s.Profile, rooms.RolePlayer)
	if err != nil {
		d.logf("ERROR: Resuming %s in room %s: %v", s.Profile.DisplayName, current.Code, err)

		return
	}

	d.send(s.Profile.ID, TypeRoomJoined, RoomPayload{Room: room.View()})
	d.broadcastRoom(room)

	if m, ok := room.Member(s.Profile.ID); ok && room.Game != nil {
		d.sendGameState(room, m)
	}
}

func (d *Dispatcher) listCategories(connectionID string, _ *identity.Session, _ json.RawMessage) error {
	d.sender.Send(connectionID, Message{
		Type:    TypeCategories,
		Payload: Categories{Categories: d.words.Categories()},
	})

	return nil
}

func (d *Dispatcher) ping(connectionID string, _ *identity.Session, _ json.RawMessage) error {
	d.sender.Send(connectionID, Message{Type: TypePong, Payload: struct{}{}})

	return nil
}

func (d *Dispatcher) createRoom(connectionID string, s *identity.Session, raw json.RawMessage) error {
	var req CreateRoomRequest
	if err := decode(raw, &req); err != nil {
		return err
	}

	if current, ok := d.rooms.RoomOf(s.Profile.ID); ok {
		d.depart(current, s.Profile.ID)
	}

	room, err := d.rooms.CreateRoom(s.Profile, req.Name, rooms.Settings{
		MaxMembers:      req.MaxMembers,
		AllowSpectators: req.AllowSpectators,
	})
	if err != nil {
		return err
	}

	d.logf("ROOMS: %s created room %s", s.Profile.DisplayName, room.Code)

	d.sender.Send(connectionID, Message{Type: TypeRoomCreated, Payload: RoomPayload{Room: room.View()}})

	return nil
}

func (d *Dispatcher) joinRoom(connectionID string, s *identity.Session, raw json.RawMessage) error {
	var req JoinRoomRequest
	if err := decode(raw, &req); err != nil {
		return err
	}

	target, ok := d.rooms.Get(req.RoomCode)
	if !ok {
		return errs.NotFound("room.not_found", "room %q not found", rooms.NormalizeCode(req.RoomCode))
	}

	if current, ok := d.rooms.RoomOf(s.Profile.ID); ok && current != target {
		d.depart(current, s.Profile.ID)
	}

	room, err := d.rooms.JoinRoom(target.Code, s.Profile, rooms.Role(req.Role))
	if err != nil {
		return err
	}

	d.logf("ROOMS: %s joined room %s", s.Profile.DisplayName, room.Code)

	d.sender.Send(connectionID, Message{Type: TypeRoomJoined, Payload: RoomPayload{Room: room.View()}})
	d.broadcastRoom(room)

	if m, ok := room.Member(s.Profile.ID); ok && room.Game != nil {
		d.sendGameState(room, m)
	}

	return nil
}

func (d *Dispatcher) leaveRoom(connectionID string, s *identity.Session, _ json.RawMessage) error {
	room, ok := d.rooms.RoomOf(s.Profile.ID)
	if !ok {
		return errs.NotFound("room.not_member", "not in a room")
	}

	code := room.Code
	d.depart(room, s.Profile.ID)

	d.logf("ROOMS: %s left room %s", s.Profile.DisplayName, code)

	d.sender.Send(connectionID, Message{Type: TypeRoomLeft, Payload: RoomCodePayload{RoomCode: code}})

	return nil
}

// depart removes profileID from room and from any game running there, then
// tells whoever is left. Members of a room destroyed by the departure get
// room_closed.
func (d *Dispatcher) depart(room *rooms.Room, profileID string) {
	others := lo.FilterMap(room.Members, func(m *rooms.Member, _ int) (string, bool) {
		return m.ProfileID, m.ProfileID != profileID
	})

	if room.Game != nil {
		room.Game.RemovePlayer(profileID)
	}

	remaining, err := d.rooms.LeaveRoom(profileID)
	if err != nil {
		d.logf("ERROR: Removing %s from room %s: %v", profileID, room.Code, err)

		return
	}

	if remaining == nil {
		d.logf("ROOMS: Closed room %s", room.Code)

		for _, id := range others {
			d.send(id, TypeRoomClosed, RoomClosed{RoomCode: room.Code, Reason: "host_left"})
		}

		return
	}

	d.publishGame(remaining)
	d.broadcastRoom(remaining)
}

func (d *Dispatcher) kick(_ string, s *identity.Session, raw json.RawMessage) error {
	var req KickRequest
	if err := decode(raw, &req); err != nil {
		return err
	}

	current, ok := d.rooms.RoomOf(s.Profile.ID)
	if !ok {
		return errs.NotFound("room.not_member", "not in a room")
	}

	room, err := d.rooms.Kick(s.Profile.ID, current.Code, req.MemberID)
	if err != nil {
		return err
	}

	if room.Game != nil {
		room.Game.RemovePlayer(req.MemberID)
	}

	d.logf("ROOMS: %s kicked %s from room %s", s.Profile.DisplayName, req.MemberID, room.Code)

	d.send(req.MemberID, TypeKicked, RoomCodePayload{RoomCode: room.Code})
	d.publishGame(room)
	d.broadcastRoom(room)

	return nil
}

func (d *Dispatcher) startGame(_ string, s *identity.Session, raw json.RawMessage) error {
	var req StartGameRequest
	if err := decode(raw, &req); err != nil {
		return err
	}

	room, ok := d.rooms.RoomOf(s.Profile.ID)
	if !ok {
		return errs.NotFound("room.not_member", "not in a room")
	}

	if !room.IsHost(s.Profile.ID) {
		return errs.Authorization("room.not_host", "only the host can start a game")
	}

	if room.Game != nil {
		return errs.New(errs.KindStage, "game.in_progress", "a %s game is already running", room.Game.Type())
	}

	engine, err := games.New(games.GameType(req.GameType), req.Settings, d.words, d.random)
	if err != nil {
		return err
	}

	if !engine.Start(room.Participants()) {
		return errs.New(errs.KindValidation, "game.start_failed", "%s could not start: check the player count and word categories", req.GameType)
	}

	if err := d.rooms.SetGame(room.ID, engine); err != nil {
		return err
	}

	d.recorder.RecordGameStarted(string(engine.Type()))
	d.logf("GAMES: Started %s in room %s", engine.Type(), room.Code)

	d.broadcastRoom(room)
	d.publishGame(room)

	return nil
}

func (d *Dispatcher) gameAction(_ string, s *identity.Session, raw json.RawMessage) error {
	var req GameActionRequest
	if err := decode(raw, &req); err != nil {
		return err
	}

	room, ok := d.rooms.RoomOf(s.Profile.ID)
	if !ok {
		return errs.NotFound("room.not_member", "not in a room")
	}

	if room.Game == nil {
		return errs.New(errs.KindStage, "game.not_active", "no game is running in room %s", room.Code)
	}

	if games.HostOnly(req.Type) && !room.IsHost(s.Profile.ID) {
		return errs.Authorization("room.not_host", "only the host can %s", req.Type)
	}

	action := games.Action{Type: req.Type, Payload: req.Payload}

	if err := room.Game.ValidateAction(s.Profile.ID, action); err != nil {
		return err
	}

	if err := room.Game.ProcessAction(s.Profile.ID, action); err != nil {
		return err
	}

	d.rooms.Touch(room)

	if d.publishGame(room) {
		d.broadcastRoom(room)
	}

	return nil
}

func (d *Dispatcher) getGameState(_ string, s *identity.Session, _ json.RawMessage) error {
	room, ok := d.rooms.RoomOf(s.Profile.ID)
	if !ok {
		return errs.NotFound("room.not_member", "not in a room")
	}

	if room.Game == nil {
		return errs.New(errs.KindStage, "game.not_active", "no game is running in room %s", room.Code)
	}

	if m, ok := room.Member(s.Profile.ID); ok {
		d.sendGameState(room, m)
	}

	return nil
}

// publishGame sends every member their own view of the game. A finished game
// is published once and then dropped so the room goes back to waiting; the
// return value reports whether that happened.
func (d *Dispatcher) publishGame(room *rooms.Room) bool {
	if room.Game == nil {
		return false
	}

	for _, m := range room.Members {
		d.sendGameState(room, m)
	}

	if !room.Game.Finished() {
		return false
	}

	gameType := room.Game.Type()

	d.recorder.RecordGameFinished(string(gameType))
	d.logf("GAMES: Finished %s in room %s", gameType, room.Code)

	if err := d.rooms.SetGame(room.ID, nil); err != nil {
		d.logf("ERROR: Clearing game in room %s: %v", room.Code, err)
	}

	return true
}

func (d *Dispatcher) sendGameState(room *rooms.Room, m *rooms.Member) {
	view := room.Game.PlayerView(games.Viewer{
		ID:        m.ProfileID,
		Spectator: m.Role == rooms.RoleSpectator,
	})

	d.send(m.ProfileID, TypeGameState, GameState{
		RoomCode: room.Code,
		GameType: room.Game.Type(),
		State:    view,
	})
}

func (d *Dispatcher) broadcastRoom(room *rooms.Room) {
	view := room.View()

	for _, m := range room.Members {
		d.send(m.ProfileID, TypeRoomUpdated, RoomPayload{Room: view})
	}
}

// send delivers to the profile's live connection, if it has one. Members
// who are away are skipped.
func (d *Dispatcher) send(profileID, msgType string, payload any) {
	s, ok := d.identity.LookupByProfileID(profileID)
	if !ok || s.ConnectionID == "" {
		return
	}

	d.sender.Send(s.ConnectionID, Message{Type: msgType, Payload: payload})
}
