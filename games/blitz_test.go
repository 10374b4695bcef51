/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Seednode/imposterbox/errs"
)

func submit(word string) Action {
	return withPayload(ActionSubmitWord, submitPayload{Word: word})
}

func blitzSnapshot(t *testing.T, g *Blitz) string {
	return snapshot(t, struct {
		Core  imposterState
		Turns blitzState
	}{g.state, g.turns})
}

func TestBlitz_StartQueuesAlivePlayers(t *testing.T) {
	req := require.New(t)
	g := NewBlitz(ImposterSettings{}, catalog(t), fixedRandom{})

	req.True(g.Start(append(members("A", "B", "C"), spectator("S"))))

	req.Equal(StageDiscussion, g.state.Stage)
	req.Equal([]string{"A", "B", "C"}, g.turns.TurnQueue)
	req.Equal(TypeBlitz, g.Type())
}

func TestBlitz_SubmissionsFollowTurnOrder(t *testing.T) {
	req := require.New(t)
	g := NewBlitz(ImposterSettings{}, catalog(t), fixedRandom{})
	req.True(g.Start(members("A", "B", "C")))

	req.ErrorIs(g.ProcessAction("B", submit("bark")), errs.ErrStage)

	req.NoError(g.ProcessAction("A", submit("  fur ")))
	req.ErrorIs(g.ProcessAction("A", submit("tail")), errs.ErrDuplicate)

	// Case-insensitive duplicate within the round
	req.ErrorIs(g.ProcessAction("B", submit("FUR")), errs.ErrDuplicate)
	req.ErrorIs(g.ProcessAction("B", submit("   ")), errs.ErrValidation)

	req.NoError(g.ProcessAction("B", submit("bark")))
	req.Equal(StageDiscussion, g.state.Stage)

	req.NoError(g.ProcessAction("C", submit("leash")))

	// Voting opens by itself once the queue is empty
	req.Equal(StageVoting, g.state.Stage)
	req.Empty(g.turns.TurnQueue)
	req.Equal([]Submission{{"A", "fur"}, {"B", "bark"}, {"C", "leash"}}, g.turns.Submissions)
}

func TestBlitz_StartVotingIsNotAnAction(t *testing.T) {
	req := require.New(t)
	g := NewBlitz(ImposterSettings{}, catalog(t), fixedRandom{})
	req.True(g.Start(members("A", "B", "C")))

	req.ErrorIs(g.ValidateAction("A", act(ActionStartVoting)), errs.ErrValidation)
}

func TestBlitz_VoteAndNextRound(t *testing.T) {
	req := require.New(t)
	g := NewBlitz(ImposterSettings{}, catalog(t), fixedRandom{})
	req.True(g.Start(members("A", "B", "C", "D")))

	for _, s := range []struct{ id, word string }{{"A", "fur"}, {"B", "bark"}, {"C", "leash"}, {"D", "bone"}} {
		req.NoError(g.ProcessAction(s.id, submit(s.word)))
	}

	castVotes(t, g, map[string]string{"A": "B", "B": "A", "C": "A", "D": "B"})

	req.Equal(StageResults, g.state.Stage)
	req.Equal(SummaryVotesTied, g.state.Summary.Type)

	req.NoError(g.ProcessAction("A", act(ActionNextRound)))

	req.Equal(StageDiscussion, g.state.Stage)
	req.Equal(2, g.state.Round)
	req.Equal([]string{"A", "B", "C", "D"}, g.turns.TurnQueue)
	req.Empty(g.turns.Submissions)

	// Words from earlier rounds may be said again
	req.NoError(g.ProcessAction("A", submit("fur")))
}

func TestBlitz_RejectedSubmissionLeavesStateUntouched(t *testing.T) {
	req := require.New(t)
	g := NewBlitz(ImposterSettings{}, catalog(t), fixedRandom{})
	req.True(g.Start(members("A", "B", "C")))
	req.NoError(g.ProcessAction("A", submit("fur")))

	before := blitzSnapshot(t, g)

	req.Error(g.ProcessAction("B", submit("Fur")))
	req.Error(g.ProcessAction("C", submit("tail")))
	req.Error(g.ProcessAction("B", vote("A")))

	req.Equal(before, blitzSnapshot(t, g))
}

func TestBlitz_ViewShufflesTurnOrderPerViewer(t *testing.T) {
	req := require.New(t)
	g := NewBlitz(ImposterSettings{}, catalog(t), rand.New(rand.NewPCG(3, 5)))
	req.True(g.Start(members("A", "B", "C", "D", "E", "F")))

	authoritative := append([]string(nil), g.turns.TurnQueue...)
	head := authoritative[0]

	differs := false
	for range 50 {
		v := g.PlayerView(Viewer{ID: "B"}).(ImposterView)

		req.ElementsMatch(authoritative, v.TurnOrder)
		req.Equal(head, v.CurrentTurn)
		req.Equal(head == "B", v.YourTurn)

		if !slicesEqual(authoritative, v.TurnOrder) {
			differs = true
		}
	}

	req.True(differs)
	req.Equal(authoritative, g.turns.TurnQueue)
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func TestBlitz_LeavingOnTurnAdvancesQueue(t *testing.T) {
	req := require.New(t)
	g := NewBlitz(ImposterSettings{}, catalog(t), fixedRandom{})
	req.True(g.Start(members("A", "B", "C", "D")))

	req.NoError(g.ProcessAction("A", submit("fur")))
	req.NoError(g.ProcessAction("B", submit("bark")))
	req.NoError(g.ProcessAction("C", submit("leash")))

	g.RemovePlayer("D")

	req.Equal(StageVoting, g.state.Stage)
	req.Empty(g.turns.TurnQueue)
}

func TestBlitz_SummaryShapes(t *testing.T) {
	req := require.New(t)
	g := NewBlitz(ImposterSettings{}, catalog(t), fixedRandom{})
	req.True(g.Start(members("A", "B", "C", "D", "E")))

	for _, s := range []struct{ id, word string }{{"A", "fur"}, {"B", "bark"}, {"C", "leash"}, {"D", "bone"}, {"E", "paw"}} {
		req.NoError(g.ProcessAction(s.id, submit(s.word)))
	}
	castVotes(t, g, map[string]string{"A": "B", "B": "C", "C": "B", "D": "B", "E": "A"})

	req.Equal(SummaryCivilianFound, g.state.Summary.Type)
	req.Equal("B", g.state.Summary.Eliminated.ID)

	req.NoError(g.ProcessAction("A", act(ActionNextRound)))
	req.Equal([]string{"A", "C", "D", "E"}, g.turns.TurnQueue)

	for _, s := range []struct{ id, word string }{{"A", "fur"}, {"C", "bark"}, {"D", "leash"}, {"E", "bone"}} {
		req.NoError(g.ProcessAction(s.id, submit(s.word)))
	}
	castVotes(t, g, map[string]string{"A": "C", "C": "A", "D": "A", "E": "A"})

	req.True(g.Finished())
	req.Equal(SummaryCiviliansWin, g.state.Summary.Type)
	req.Equal([]RevealedPlayer{{ID: "A", Name: "name-A"}}, g.state.Summary.Imposters)
}
