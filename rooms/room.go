/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package rooms

import (
	"time"

	"github.com/samber/lo"

	"github.com/Seednode/imposterbox/games"
)

type Role string

const (
	RoleHost      Role = "host"
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
)

type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

type Member struct {
	ProfileID   string    `json:"profileId"`
	DisplayName string    `json:"displayName"`
	Role        Role      `json:"role"`
	JoinedAt    time.Time `json:"joinedAt"`
	Status      Status    `json:"status"`
}

// Room is owned by its Registry. Members are kept in join order.
type Room struct {
	ID              string
	Code            string
	Name            string
	HostID          string
	Members         []*Member
	Game            games.Engine
	MaxMembers      int
	AllowSpectators bool
	CreatedAt       time.Time
	LastActiveAt    time.Time
}

// View is the outward shape of a room. It never includes game state, which
// is projected per viewer by the engine.
type View struct {
	ID              string    `json:"roomId"`
	Code            string    `json:"roomCode"`
	Name            string    `json:"name"`
	HostID          string    `json:"hostId"`
	Members         []Member  `json:"members"`
	MaxMembers      int       `json:"maxMembers"`
	AllowSpectators bool      `json:"allowSpectators"`
	Stage           string    `json:"stage"`
	GameType        string    `json:"gameType,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (r *Room) View() View {
	v := View{
		ID:              r.ID,
		Code:            r.Code,
		Name:            r.Name,
		HostID:          r.HostID,
		Members:         lo.Map(r.Members, func(m *Member, _ int) Member { return *m }),
		MaxMembers:      r.MaxMembers,
		AllowSpectators: r.AllowSpectators,
		Stage:           "waiting",
		CreatedAt:       r.CreatedAt,
	}

	if r.Game != nil {
		v.Stage = "playing"
		v.GameType = string(r.Game.Type())
	}

	return v
}

func (r *Room) Member(profileID string) (*Member, bool) {
	return lo.Find(r.Members, func(m *Member) bool {
		return m.ProfileID == profileID
	})
}

func (r *Room) IsHost(profileID string) bool {
	return r.HostID != "" && r.HostID == profileID
}

// Participants lists members in join order in the shape engines consume.
func (r *Room) Participants() []games.Participant {
	return lo.Map(r.Members, func(m *Member, _ int) games.Participant {
		return games.Participant{
			ID:        m.ProfileID,
			Name:      m.DisplayName,
			Spectator: m.Role == RoleSpectator,
		}
	})
}

func (r *Room) removeMember(profileID string) (*Member, bool) {
	for i, m := range r.Members {
		if m.ProfileID == profileID {
			r.Members = append(r.Members[:i], r.Members[i+1:]...)

			return m, true
		}
	}

	return nil, false
}

// promoteHost hands the host role to the earliest-joined non-spectator.
// It reports false when only spectators remain.
func (r *Room) promoteHost() bool {
	candidates := lo.Filter(r.Members, func(m *Member, _ int) bool {
		return m.Role != RoleSpectator
	})
	if len(candidates) == 0 {
		r.HostID = ""

		return false
	}

	next := lo.MinBy(candidates, func(a, b *Member) bool {
		return a.JoinedAt.Before(b.JoinedAt)
	})
	next.Role = RoleHost
	r.HostID = next.ProfileID

	return true
}
