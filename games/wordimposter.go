/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"github.com/Seednode/imposterbox/errs"
)

// WordImposter is the round-based variant: discuss, vote once, see the
// result, repeat until one side wins. The host opens and may close voting.
type WordImposter struct {
	imposterCore
}

func NewWordImposter(settings ImposterSettings, words WordSource, rng Random) *WordImposter {
	return &WordImposter{
		imposterCore: newImposterCore(TypeWordImposter, settings, words, rng),
	}
}

func (g *WordImposter) Start(members []Participant) bool {
	return g.start(members)
}

func (g *WordImposter) ValidateAction(playerID string, action Action) error {
	_, err := g.validate(playerID, action)
	return err
}

func (g *WordImposter) validate(playerID string, action Action) (string, error) {
	switch action.Type {
	case ActionStartVoting:
		return "", g.requireStage(StageDiscussion)
	case ActionVote:
		return g.validateVote(playerID, action)
	case ActionEndVoting, ActionNextRound:
		return "", g.validateHostAction(action)
	default:
		return "", errs.Validation("unknown action %q", action.Type)
	}
}

func (g *WordImposter) ProcessAction(playerID string, action Action) error {
	target, err := g.validate(playerID, action)
	if err != nil {
		return err
	}

	switch action.Type {
	case ActionStartVoting:
		g.openVoting()
	case ActionVote:
		g.applyVote(playerID, target)
	case ActionEndVoting:
		g.resolveVotes()
	case ActionNextRound:
		g.nextRound()
	}

	return nil
}

func (g *WordImposter) PlayerView(viewer Viewer) any {
	return g.view(viewer)
}

func (g *WordImposter) RemovePlayer(playerID string) {
	g.remove(playerID)
}
