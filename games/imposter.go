/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"maps"
	"slices"

	"github.com/samber/lo"

	"github.com/Seednode/imposterbox/errs"
)

type PlayerStatus string

const (
	StatusAlive      PlayerStatus = "alive"
	StatusEliminated PlayerStatus = "eliminated"
)

type SummaryType string

const (
	SummaryCiviliansWin  SummaryType = "civilians-win"
	SummaryImpostersWin  SummaryType = "imposters-win"
	SummaryImposterFound SummaryType = "imposter-found"
	SummaryCivilianFound SummaryType = "civilian-found"
	SummaryVotesTied     SummaryType = "votes-tied"
)

type RevealedPlayer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Summary describes how a round ended. Imposters and Words are only set once
// the game is over.
type Summary struct {
	Type       SummaryType      `json:"type"`
	Round      int              `json:"round"`
	Eliminated *RevealedPlayer  `json:"eliminated,omitempty"`
	Tied       []RevealedPlayer `json:"tied,omitempty"`
	Vetoed     bool             `json:"vetoed,omitempty"`
	Counts     map[string]int   `json:"counts,omitempty"`
	Skips      int              `json:"skips"`
	Imposters  []RevealedPlayer `json:"imposters,omitempty"`
	Words      *WordPair        `json:"words,omitempty"`
	PlayerLeft bool             `json:"playerLeft,omitempty"`
}

type ImposterSettings struct {
	ImposterCount int      `json:"imposterCount" validate:"omitempty,min=1,max=4"`
	Categories    []string `json:"categories" validate:"omitempty,max=16,dive,required"`
	MinPlayers    int      `json:"minPlayers" validate:"omitempty,min=3,max=16"`
}

func (s ImposterSettings) withDefaults() ImposterSettings {
	if s.ImposterCount == 0 {
		s.ImposterCount = 1
	}
	if s.MinPlayers == 0 {
		s.MinPlayers = 3
	}

	return s
}

// minimum keeps civilians in the majority when the game begins.
func (s ImposterSettings) minimum() int {
	return max(s.MinPlayers, 2*s.ImposterCount+1)
}

type imposterPlayer struct {
	ID       string
	Name     string
	Status   PlayerStatus
	Imposter bool
	HasVoted bool
	Left     bool
}

func (p imposterPlayer) alive() bool {
	return p.Status == StatusAlive
}

type imposterState struct {
	Stage      Stage
	Round      int
	Players    []imposterPlayer
	Spectators []string
	Secret     WordPair
	Votes      map[string]string
	Summary    *Summary
}

// imposterCore is the roster, secret assignment and voting shared by the
// word-imposter and blitz engines.
type imposterCore struct {
	gameType GameType
	settings ImposterSettings
	words    WordSource
	rng      Random
	state    imposterState
}

func newImposterCore(gameType GameType, settings ImposterSettings, words WordSource, rng Random) imposterCore {
	return imposterCore{
		gameType: gameType,
		settings: settings.withDefaults(),
		words:    words,
		rng:      rng,
		state:    imposterState{Stage: StageWaiting},
	}
}

func (c *imposterCore) Type() GameType {
	return c.gameType
}

func (c *imposterCore) Finished() bool {
	return c.state.Stage == StageFinished
}

// start picks the imposters and the word pair. Nothing changes unless it
// returns true.
func (c *imposterCore) start(members []Participant) bool {
	if c.state.Stage != StageWaiting {
		return false
	}

	players := lo.Filter(members, func(m Participant, _ int) bool {
		return !m.Spectator
	})
	if len(players) < c.settings.minimum() {
		return false
	}

	pair, err := c.words.DrawPair(c.rng, c.settings.Categories)
	if err != nil {
		return false
	}

	imposters := make(map[string]bool, c.settings.ImposterCount)
	for _, p := range shuffled(c.rng, players)[:c.settings.ImposterCount] {
		imposters[p.ID] = true
	}

	c.state = imposterState{
		Stage: StageDiscussion,
		Round: 1,
		Players: lo.Map(players, func(p Participant, _ int) imposterPlayer {
			return imposterPlayer{
				ID:       p.ID,
				Name:     p.Name,
				Status:   StatusAlive,
				Imposter: imposters[p.ID],
			}
		}),
		Spectators: lo.FilterMap(members, func(m Participant, _ int) (string, bool) {
			return m.ID, m.Spectator
		}),
		Secret: pair,
		Votes:  make(map[string]string),
	}

	return true
}

func (c *imposterCore) player(id string) (int, bool) {
	i := slices.IndexFunc(c.state.Players, func(p imposterPlayer) bool {
		return p.ID == id
	})

	return i, i >= 0
}

func (c *imposterCore) aliveIDs() []string {
	return lo.FilterMap(c.state.Players, func(p imposterPlayer, _ int) (string, bool) {
		return p.ID, p.alive()
	})
}

func (c *imposterCore) revealed(id string) RevealedPlayer {
	if i, ok := c.player(id); ok {
		return RevealedPlayer{ID: id, Name: c.state.Players[i].Name}
	}

	return RevealedPlayer{ID: id}
}

func (c *imposterCore) winner() Winner {
	imposters, civilians := 0, 0
	for _, p := range c.state.Players {
		switch {
		case !p.alive():
		case p.Imposter:
			imposters++
		default:
			civilians++
		}
	}

	return Outcome(imposters, civilians)
}

func (c *imposterCore) requireStage(stage Stage) error {
	if c.state.Stage != stage {
		return errs.Stage("action requires stage %q, game is in %q", stage, c.state.Stage)
	}

	return nil
}

// requireActivePlayer checks that playerID is an alive member of the roster.
func (c *imposterCore) requireActivePlayer(playerID string) (int, error) {
	if slices.Contains(c.state.Spectators, playerID) {
		return 0, errs.Authorization("", "spectators cannot take player actions")
	}

	i, ok := c.player(playerID)
	if !ok {
		return 0, errs.NotFound("", "player %q is not in this game", playerID)
	}

	if p := c.state.Players[i]; p.Left || !p.alive() {
		return 0, errs.Authorization("", "eliminated players cannot take player actions")
	}

	return i, nil
}

type votePayload struct {
	TargetID string `json:"targetId"`
}

func (c *imposterCore) validateVote(playerID string, action Action) (string, error) {
	if err := c.requireStage(StageVoting); err != nil {
		return "", err
	}

	i, err := c.requireActivePlayer(playerID)
	if err != nil {
		return "", err
	}

	if c.state.Players[i].HasVoted {
		return "", errs.Duplicate("you have already voted this round")
	}

	var payload votePayload
	if err := decodePayload(action, &payload); err != nil {
		return "", errs.Validation("malformed vote: %v", err)
	}

	if payload.TargetID == "" {
		return "", nil
	}

	if payload.TargetID == playerID {
		return "", errs.Validation("you cannot vote for yourself")
	}

	t, ok := c.player(payload.TargetID)
	if !ok || !c.state.Players[t].alive() {
		return "", errs.Validation("%q is not an alive player", payload.TargetID)
	}

	return payload.TargetID, nil
}

func (c *imposterCore) applyVote(playerID, target string) {
	i, _ := c.player(playerID)
	c.state.Players[i].HasVoted = true
	c.state.Votes[playerID] = target

	if c.everyoneVoted() {
		c.resolveVotes()
	}
}

func (c *imposterCore) everyoneVoted() bool {
	return lo.EveryBy(c.state.Players, func(p imposterPlayer) bool {
		return !p.alive() || p.HasVoted
	})
}

func (c *imposterCore) openVoting() {
	c.state.Stage = StageVoting
	c.state.Votes = make(map[string]string)
	for i := range c.state.Players {
		c.state.Players[i].HasVoted = false
	}
}

// resolveVotes tallies the round, eliminates at most one player and moves
// to results or, when a side has won, to finished.
func (c *imposterCore) resolveVotes() {
	tally := TallyVotes(c.aliveIDs(), c.state.Votes)

	summary := &Summary{
		Round:  c.state.Round,
		Counts: tally.Counts,
		Skips:  tally.Skips,
		Vetoed: tally.Vetoed,
	}

	if tally.Eliminated == "" {
		summary.Type = SummaryVotesTied
		if tally.Tied {
			summary.Tied = lo.Map(tally.Leaders, func(id string, _ int) RevealedPlayer {
				return c.revealed(id)
			})
		}

		c.state.Summary = summary
		c.state.Stage = StageResults

		return
	}

	i, _ := c.player(tally.Eliminated)
	c.state.Players[i].Status = StatusEliminated
	eliminated := c.revealed(tally.Eliminated)
	summary.Eliminated = &eliminated

	if w := c.winner(); w != WinnerNone {
		c.finish(w, summary)

		return
	}

	summary.Type = SummaryCivilianFound
	if c.state.Players[i].Imposter {
		summary.Type = SummaryImposterFound
	}

	c.state.Summary = summary
	c.state.Stage = StageResults
}

func (c *imposterCore) finish(w Winner, summary *Summary) {
	summary.Type = SummaryCiviliansWin
	if w == WinnerImposters {
		summary.Type = SummaryImpostersWin
	}

	summary.Imposters = lo.FilterMap(c.state.Players, func(p imposterPlayer, _ int) (RevealedPlayer, bool) {
		return RevealedPlayer{ID: p.ID, Name: p.Name}, p.Imposter
	})
	words := c.state.Secret
	summary.Words = &words

	c.state.Summary = summary
	c.state.Stage = StageFinished
}

// nextRound starts a fresh discussion with the same words.
func (c *imposterCore) nextRound() {
	c.state.Round++
	c.state.Stage = StageDiscussion
	c.state.Summary = nil
	c.state.Votes = make(map[string]string)
	for i := range c.state.Players {
		c.state.Players[i].HasVoted = false
	}
}

func (c *imposterCore) validateHostAction(action Action) error {
	switch action.Type {
	case ActionEndVoting:
		return c.requireStage(StageVoting)
	case ActionNextRound:
		return c.requireStage(StageResults)
	default:
		return errs.Validation("unknown action %q", action.Type)
	}
}

// remove takes a departed member out of the game. Ballots cast for them are
// returned to their voters.
func (c *imposterCore) remove(playerID string) {
	if i := slices.Index(c.state.Spectators, playerID); i >= 0 {
		c.state.Spectators = slices.Delete(c.state.Spectators, i, i+1)

		return
	}

	i, ok := c.player(playerID)
	if !ok || c.state.Stage == StageWaiting || c.state.Stage == StageFinished {
		return
	}

	c.state.Players[i].Status = StatusEliminated
	c.state.Players[i].Left = true
	c.state.Players[i].HasVoted = false
	delete(c.state.Votes, playerID)

	for voter, target := range c.state.Votes {
		if target == playerID {
			delete(c.state.Votes, voter)
			if v, ok := c.player(voter); ok {
				c.state.Players[v].HasVoted = false
			}
		}
	}

	if w := c.winner(); w != WinnerNone {
		c.finish(w, &Summary{Round: c.state.Round, PlayerLeft: true})

		return
	}

	if c.state.Stage == StageVoting && c.everyoneVoted() {
		c.resolveVotes()
	}
}

type ImposterPlayerView struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Status   PlayerStatus `json:"status"`
	HasVoted bool         `json:"hasVoted"`
	Left     bool         `json:"left,omitempty"`
	Role     string       `json:"role,omitempty"`
}

type Submission struct {
	PlayerID string `json:"playerId"`
	Word     string `json:"word"`
}

// ImposterView is the per-viewer projection of both imposter variants.
// CivilianWord, ImposterWord, ImposterIDs and Votes are filled for
// spectators only. An imposter's Word holds the imposter word, so it reads
// like any other assignment.
type ImposterView struct {
	GameType     GameType             `json:"gameType"`
	Stage        Stage                `json:"stage"`
	Round        int                  `json:"round"`
	Category     string               `json:"category,omitempty"`
	Players      []ImposterPlayerView `json:"players"`
	Spectator    bool                 `json:"spectator"`
	Word         string               `json:"word,omitempty"`
	Vote         *string              `json:"vote,omitempty"`
	CivilianWord string               `json:"civilianWord,omitempty"`
	ImposterWord string               `json:"imposterWord,omitempty"`
	ImposterIDs  []string             `json:"imposterIds,omitempty"`
	Votes        map[string]string    `json:"votes,omitempty"`
	Summary      *Summary             `json:"summary,omitempty"`

	CurrentTurn string       `json:"currentTurn,omitempty"`
	YourTurn    bool         `json:"yourTurn,omitempty"`
	TurnOrder   []string     `json:"turnOrder,omitempty"`
	Submissions []Submission `json:"submissions,omitempty"`
}

func (c *imposterCore) view(viewer Viewer) ImposterView {
	st := c.state
	finished := st.Stage == StageFinished
	omniscient := viewer.Spectator || slices.Contains(st.Spectators, viewer.ID)

	v := ImposterView{
		GameType:  c.gameType,
		Stage:     st.Stage,
		Round:     st.Round,
		Category:  st.Secret.Category,
		Spectator: omniscient,
		Players: lo.Map(st.Players, func(p imposterPlayer, _ int) ImposterPlayerView {
			pv := ImposterPlayerView{
				ID:       p.ID,
				Name:     p.Name,
				Status:   p.Status,
				HasVoted: p.HasVoted,
				Left:     p.Left,
			}
			if omniscient || finished || (p.Status == StatusEliminated && !p.Left) {
				pv.Role = "civilian"
				if p.Imposter {
					pv.Role = "imposter"
				}
			}

			return pv
		}),
	}

	if st.Summary != nil {
		summary := *st.Summary
		summary.Counts = maps.Clone(st.Summary.Counts)
		v.Summary = &summary
	}

	if omniscient {
		v.CivilianWord = st.Secret.CivilianWord
		v.ImposterWord = st.Secret.ImposterWord
		v.ImposterIDs = lo.FilterMap(st.Players, func(p imposterPlayer, _ int) (string, bool) {
			return p.ID, p.Imposter
		})
		v.Votes = maps.Clone(st.Votes)

		return v
	}

	if i, ok := c.player(viewer.ID); ok {
		v.Word = st.Secret.CivilianWord
		if st.Players[i].Imposter {
			v.Word = st.Secret.ImposterWord
		}

		if target, voted := st.Votes[viewer.ID]; voted {
			v.Vote = &target
		}
	}

	return v
}
