/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package rooms owns the set of live rooms, their membership and host
// succession. A Registry is not safe for concurrent use; the dispatch hub
// goroutine is its single owner.
package rooms

import (
	"crypto/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Seednode/imposterbox/errs"
	"github.com/Seednode/imposterbox/games"
	"github.com/Seednode/imposterbox/identity"
)

const (
	// CodeChars excludes characters that are easy to misread aloud.
	CodeChars       = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength      = 6
	MaxCodeAttempts = 32

	DefaultMaxMembers = 16
	MaxNameLength     = 48
)

type Options struct {
	MaxMembers int
	Now        func() time.Time
	Codes      func() string
}

type Settings struct {
	MaxMembers      int
	AllowSpectators bool
}

type Registry struct {
	maxMembers int
	now        func() time.Time
	codes      func() string

	rooms     map[string]*Room
	byID      map[string]*Room
	byProfile map[string]*Room
}

func New(opts Options) *Registry {
	if opts.MaxMembers <= 0 {
		opts.MaxMembers = DefaultMaxMembers
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Codes == nil {
		opts.Codes = RandomCode
	}

	return &Registry{
		maxMembers: opts.MaxMembers,
		now:        opts.Now,
		codes:      opts.Codes,
		rooms:      make(map[string]*Room),
		byID:       make(map[string]*Room),
		byProfile:  make(map[string]*Room),
	}
}

// RandomCode draws CodeLength characters uniformly from CodeChars, rejecting
// bytes that would bias the modulo.
func RandomCode() string {
	const limit = byte(255 - (256 % len(CodeChars)))

	out := make([]byte, 0, CodeLength)
	buf := make([]byte, CodeLength*2)

	for len(out) < CodeLength {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}

		for _, b := range buf {
			if b <= limit {
				out = append(out, CodeChars[int(b)%len(CodeChars)])
				if len(out) == CodeLength {
					break
				}
			}
		}
	}

	return string(out)
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (r *Registry) newCode() (string, error) {
	for range MaxCodeAttempts {
		code := NormalizeCode(r.codes())
		if _, exists := r.rooms[code]; !exists && code != "" {
			return code, nil
		}
	}

	return "", errs.New(errs.KindExhausted, "room.code_exhausted", "no free room code after %d attempts", MaxCodeAttempts)
}

func (r *Registry) CreateRoom(host *identity.Profile, name string, settings Settings) (*Room, error) {
	if _, ok := r.byProfile[host.ID]; ok {
		return nil, errs.New(errs.KindValidation, "room.already_member", "leave your current room first")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = host.DisplayName + "'s room"
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, errs.Validation("room name must be at most %d characters", MaxNameLength)
	}

	maxMembers := settings.MaxMembers
	if maxMembers <= 0 || maxMembers > r.maxMembers {
		maxMembers = r.maxMembers
	}

	code, err := r.newCode()
	if err != nil {
		return nil, err
	}

	now := r.now()

	room := &Room{
		ID:     uuid.NewString(),
		Code:   code,
		Name:   name,
		HostID: host.ID,
		Members: []*Member{{
			ProfileID:   host.ID,
			DisplayName: host.DisplayName,
			Role:        RoleHost,
			JoinedAt:    now,
			Status:      StatusConnected,
		}},
		MaxMembers:      maxMembers,
		AllowSpectators: settings.AllowSpectators,
		CreatedAt:       now,
		LastActiveAt:    now,
	}

	r.rooms[code] = room
	r.byID[room.ID] = room
	r.byProfile[host.ID] = room

	return room, nil
}

// JoinRoom adds profile to the room with the given code. Joining a room the
// profile is already in only refreshes its display name and status.
func (r *Registry) JoinRoom(code string, profile *identity.Profile, role Role) (*Room, error) {
	room, ok := r.rooms[NormalizeCode(code)]
	if !ok {
		return nil, errs.NotFound("room.not_found", "room %q not found", code)
	}

	if m, ok := room.Member(profile.ID); ok {
		m.DisplayName = profile.DisplayName
		m.Status = StatusConnected
		room.LastActiveAt = r.now()

		return room, nil
	}

	if _, ok := r.byProfile[profile.ID]; ok {
		return nil, errs.New(errs.KindValidation, "room.already_member", "leave your current room first")
	}

	if role != RoleSpectator {
		role = RolePlayer
	}

	if role == RoleSpectator && !room.AllowSpectators {
		return nil, errs.New(errs.KindSpectatorsDisabled, "room.spectators_disabled", "room %q does not allow spectators", room.Code)
	}

	if len(room.Members) >= room.MaxMembers {
		return nil, errs.New(errs.KindCapacity, "room.full", "room %q is full", room.Code)
	}

	now := r.now()

	room.Members = append(room.Members, &Member{
		ProfileID:   profile.ID,
		DisplayName: profile.DisplayName,
		Role:        role,
		JoinedAt:    now,
		Status:      StatusConnected,
	})
	room.LastActiveAt = now
	r.byProfile[profile.ID] = room

	return room, nil
}

// LeaveRoom removes the profile from its room. It returns nil once the room
// has been destroyed, which happens when nobody, or only spectators, remain.
func (r *Registry) LeaveRoom(profileID string) (*Room, error) {
	room, ok := r.byProfile[profileID]
	if !ok {
		return nil, errs.NotFound("room.not_member", "not in a room")
	}

	room.removeMember(profileID)
	delete(r.byProfile, profileID)
	room.LastActiveAt = r.now()

	if len(room.Members) == 0 {
		r.destroy(room)

		return nil, nil
	}

	if room.HostID == profileID && !room.promoteHost() {
		r.destroy(room)

		return nil, nil
	}

	return room, nil
}

func (r *Registry) Kick(hostID, code, targetProfileID string) (*Room, error) {
	room, ok := r.rooms[NormalizeCode(code)]
	if !ok {
		return nil, errs.NotFound("room.not_found", "room %q not found", code)
	}

	if !room.IsHost(hostID) {
		return nil, errs.Authorization("room.not_host", "only the host can kick members")
	}

	if targetProfileID == room.HostID {
		return nil, errs.New(errs.KindSelfKick, "room.self_kick", "the host cannot kick themselves")
	}

	if _, ok := room.removeMember(targetProfileID); !ok {
		return nil, errs.NotFound("room.not_member", "%q is not a member of room %q", targetProfileID, room.Code)
	}

	delete(r.byProfile, targetProfileID)
	room.LastActiveAt = r.now()

	return room, nil
}

func (r *Registry) SetGame(roomID string, engine games.Engine) error {
	room, ok := r.byID[roomID]
	if !ok {
		return errs.NotFound("room.not_found", "room %q not found", roomID)
	}

	room.Game = engine
	room.LastActiveAt = r.now()

	return nil
}

// SetStatus records a member's connection state without touching
// membership.
func (r *Registry) SetStatus(profileID string, status Status) (*Room, bool) {
	room, ok := r.byProfile[profileID]
	if !ok {
		return nil, false
	}

	if m, ok := room.Member(profileID); ok {
		m.Status = status
	}

	return room, true
}

func (r *Registry) Touch(room *Room) {
	room.LastActiveAt = r.now()
}

// SweepIdle destroys rooms idle for longer than maxIdle and returns them
// with their member lists intact so callers can notify the members.
func (r *Registry) SweepIdle(maxIdle time.Duration) []*Room {
	cutoff := r.now().Add(-maxIdle)

	var removed []*Room
	for _, room := range r.rooms {
		if room.LastActiveAt.Before(cutoff) {
			removed = append(removed, room)
		}
	}

	for _, room := range removed {
		r.destroy(room)
	}

	return removed
}

func (r *Registry) destroy(room *Room) {
	delete(r.rooms, room.Code)
	delete(r.byID, room.ID)

	for _, m := range room.Members {
		if r.byProfile[m.ProfileID] == room {
			delete(r.byProfile, m.ProfileID)
		}
	}
}

func (r *Registry) Get(code string) (*Room, bool) {
	room, ok := r.rooms[NormalizeCode(code)]
	return room, ok
}

func (r *Registry) RoomOf(profileID string) (*Room, bool) {
	room, ok := r.byProfile[profileID]
	return room, ok
}

func (r *Registry) Len() int {
	return len(r.rooms)
}
