/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package games holds the game engine contract, the vote tally shared by
// every engine with a voting stage, and the concrete engines.
//
// Engines are plain state machines. They are not safe for concurrent use and
// rely on the dispatch hub to apply actions one at a time.
package games

import (
	"encoding/json"
	"math/rand/v2"
)

type GameType string

const (
	TypeWordImposter GameType = "word-imposter"
	TypeBlitz        GameType = "imposter-blitz"
	TypeCodenames    GameType = "codenames"
)

type Stage string

const (
	StageWaiting    Stage = "waiting"
	StageDiscussion Stage = "discussion"
	StageVoting     Stage = "voting"
	StageResults    Stage = "results"
	StageClue       Stage = "clue"
	StageGuessing   Stage = "guessing"
	StageFinished   Stage = "finished"
)

// Participant is a room member as seen by an engine when it starts.
type Participant struct {
	ID        string
	Name      string
	Spectator bool
}

// Viewer identifies who a projection is rendered for.
type Viewer struct {
	ID        string
	Spectator bool
}

type Action struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Engine interface {
	Type() GameType

	// Start builds the roster from members and assigns secrets. It returns
	// false, leaving the engine untouched, when too few players are present
	// or the word source cannot supply the words it needs.
	Start(members []Participant) bool

	// ValidateAction reports whether action is currently legal for playerID.
	// It never mutates state.
	ValidateAction(playerID string, action Action) error

	// ProcessAction applies exactly one transition, or none when it returns
	// an error.
	ProcessAction(playerID string, action Action) error

	// PlayerView renders the state as viewer may see it. It never mutates
	// game state.
	PlayerView(viewer Viewer) any

	// RemovePlayer drops a departed member from the roster and ends the game
	// early when too few players remain.
	RemovePlayer(playerID string)

	Finished() bool
}

const (
	ActionStartVoting = "start_voting"
	ActionEndVoting   = "end_voting"
	ActionNextRound   = "next_round"
	ActionVote        = "vote"
	ActionSubmitWord  = "submit_word"
	ActionGiveClue    = "give_clue"
	ActionReveal      = "reveal"
	ActionEndTurn     = "end_turn"
)

// HostOnly reports whether only the room host may send actionType. The
// dispatcher enforces this before the engine sees the action.
func HostOnly(actionType string) bool {
	switch actionType {
	case ActionStartVoting, ActionEndVoting, ActionNextRound:
		return true
	default:
		return false
	}
}

// Random is the source of every random choice an engine makes. A
// *rand.Rand from math/rand/v2 satisfies it.
type Random interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int {
	return rand.IntN(n)
}

func (globalRandom) Shuffle(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}

// NewRandom returns a Random backed by the automatically seeded global
// generator.
func NewRandom() Random {
	return globalRandom{}
}

func shuffled[T any](rng Random, in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})

	return out
}

func decodePayload(action Action, dst any) error {
	if len(action.Payload) == 0 {
		return nil
	}

	return json.Unmarshal(action.Payload, dst)
}
