/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/Seednode/imposterbox/errs"
)

const MaxSubmissionLength = 32

type blitzState struct {
	TurnQueue   []string
	Submissions []Submission
}

// Blitz runs turn-ordered word submissions before every vote. Voting opens
// by itself once everyone alive has submitted.
type Blitz struct {
	imposterCore
	turns blitzState
}

func NewBlitz(settings ImposterSettings, words WordSource, rng Random) *Blitz {
	return &Blitz{
		imposterCore: newImposterCore(TypeBlitz, settings, words, rng),
	}
}

func (g *Blitz) Start(members []Participant) bool {
	if !g.start(members) {
		return false
	}

	g.beginTurns()

	return true
}

func (g *Blitz) beginTurns() {
	g.turns = blitzState{
		TurnQueue: shuffled(g.rng, g.aliveIDs()),
	}
}

func (g *Blitz) ValidateAction(playerID string, action Action) error {
	_, err := g.validate(playerID, action)
	return err
}

type submitPayload struct {
	Word string `json:"word"`
}

// validate returns the normalized argument of the action: the submitted
// word or the vote target.
func (g *Blitz) validate(playerID string, action Action) (string, error) {
	switch action.Type {
	case ActionSubmitWord:
		return g.validateSubmission(playerID, action)
	case ActionVote:
		return g.validateVote(playerID, action)
	case ActionEndVoting, ActionNextRound:
		return "", g.validateHostAction(action)
	default:
		return "", errs.Validation("unknown action %q", action.Type)
	}
}

func (g *Blitz) validateSubmission(playerID string, action Action) (string, error) {
	if err := g.requireStage(StageDiscussion); err != nil {
		return "", err
	}

	if _, err := g.requireActivePlayer(playerID); err != nil {
		return "", err
	}

	if slices.ContainsFunc(g.turns.Submissions, func(s Submission) bool { return s.PlayerID == playerID }) {
		return "", errs.Duplicate("you have already submitted a word this round")
	}

	if len(g.turns.TurnQueue) == 0 || g.turns.TurnQueue[0] != playerID {
		return "", errs.Stage("it is not your turn")
	}

	var payload submitPayload
	if err := decodePayload(action, &payload); err != nil {
		return "", errs.Validation("malformed submission: %v", err)
	}

	word := strings.TrimSpace(payload.Word)
	if word == "" {
		return "", errs.Validation("word must not be empty")
	}
	if utf8.RuneCountInString(word) > MaxSubmissionLength {
		return "", errs.Validation("word must be at most %d characters", MaxSubmissionLength)
	}

	if slices.ContainsFunc(g.turns.Submissions, func(s Submission) bool { return strings.EqualFold(s.Word, word) }) {
		return "", errs.Duplicate("%q has already been said this round", word)
	}

	return word, nil
}

func (g *Blitz) ProcessAction(playerID string, action Action) error {
	arg, err := g.validate(playerID, action)
	if err != nil {
		return err
	}

	switch action.Type {
	case ActionSubmitWord:
		g.turns.Submissions = append(g.turns.Submissions, Submission{PlayerID: playerID, Word: arg})
		g.turns.TurnQueue = g.turns.TurnQueue[1:]
		if len(g.turns.TurnQueue) == 0 {
			g.openVoting()
		}
	case ActionVote:
		g.applyVote(playerID, arg)
	case ActionEndVoting:
		g.resolveVotes()
	case ActionNextRound:
		g.nextRound()
		g.beginTurns()
	}

	return nil
}

// PlayerView hands every viewer an independently shuffled copy of the
// remaining turns. Only the current turn is reported as is.
func (g *Blitz) PlayerView(viewer Viewer) any {
	v := g.view(viewer)

	if len(g.turns.TurnQueue) > 0 {
		v.CurrentTurn = g.turns.TurnQueue[0]
		v.YourTurn = v.CurrentTurn == viewer.ID
		v.TurnOrder = shuffled(g.rng, g.turns.TurnQueue)
	}
	v.Submissions = slices.Clone(g.turns.Submissions)

	return v
}

func (g *Blitz) RemovePlayer(playerID string) {
	g.turns.TurnQueue = lo.Without(g.turns.TurnQueue, playerID)

	g.remove(playerID)

	if g.state.Stage == StageDiscussion && len(g.turns.TurnQueue) == 0 {
		g.openVoting()
	}
}
