/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/Seednode/imposterbox/errs"
)

type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

func (t Team) other() Team {
	if t == TeamRed {
		return TeamBlue
	}

	return TeamRed
}

type CardColor string

const (
	ColorRed      CardColor = "red"
	ColorBlue     CardColor = "blue"
	ColorNeutral  CardColor = "neutral"
	ColorAssassin CardColor = "assassin"
)

const (
	BoardSize     = 25
	startingCards = 9
	secondCards   = 8
	assassinCards = 1
	MaxClueCount  = 9
)

type CodenamesSettings struct {
	MinPlayers int `json:"minPlayers" validate:"omitempty,min=4,max=16"`
}

type codenamesPlayer struct {
	ID        string
	Name      string
	Team      Team
	Spymaster bool
	Left      bool
}

type card struct {
	Word     string
	Color    CardColor
	Revealed bool
}

type Clue struct {
	Team  Team   `json:"team"`
	Word  string `json:"word"`
	Count int    `json:"count"`
}

type codenamesState struct {
	Stage        Stage
	Players      []codenamesPlayer
	Spectators   []string
	Board        []card
	StartingTeam Team
	Turn         Team
	Clue         *Clue
	GuessesLeft  int
	Clues        []Clue
	Winner       Team
	Reason       string
}

// Codenames is the team variant: a spymaster gives a one-word clue and the
// team's operatives reveal cards until they miss or run out of guesses.
type Codenames struct {
	settings CodenamesSettings
	words    WordSource
	rng      Random
	state    codenamesState
}

func NewCodenames(settings CodenamesSettings, words WordSource, rng Random) *Codenames {
	if settings.MinPlayers == 0 {
		settings.MinPlayers = 4
	}

	return &Codenames{
		settings: settings,
		words:    words,
		rng:      rng,
		state:    codenamesState{Stage: StageWaiting},
	}
}

func (g *Codenames) Type() GameType {
	return TypeCodenames
}

func (g *Codenames) Finished() bool {
	return g.state.Stage == StageFinished
}

func (g *Codenames) Start(members []Participant) bool {
	if g.state.Stage != StageWaiting {
		return false
	}

	players := lo.Filter(members, func(m Participant, _ int) bool {
		return !m.Spectator
	})
	if len(players) < max(4, g.settings.MinPlayers) {
		return false
	}

	words, err := g.words.DrawWords(g.rng, BoardSize)
	if err != nil {
		return false
	}

	starting := TeamRed
	if g.rng.IntN(2) == 1 {
		starting = TeamBlue
	}

	colors := make([]CardColor, 0, BoardSize)
	colors = append(colors, slices.Repeat([]CardColor{CardColor(starting)}, startingCards)...)
	colors = append(colors, slices.Repeat([]CardColor{CardColor(starting.other())}, secondCards)...)
	colors = append(colors, slices.Repeat([]CardColor{ColorAssassin}, assassinCards)...)
	for len(colors) < BoardSize {
		colors = append(colors, ColorNeutral)
	}
	colors = shuffled(g.rng, colors)

	roster := lo.Map(shuffled(g.rng, players), func(p Participant, i int) codenamesPlayer {
		team := TeamRed
		if i%2 == 1 {
			team = TeamBlue
		}

		return codenamesPlayer{ID: p.ID, Name: p.Name, Team: team, Spymaster: i < 2}
	})

	g.state = codenamesState{
		Stage:      StageClue,
		Players:    roster,
		Spectators: lo.FilterMap(members, func(m Participant, _ int) (string, bool) { return m.ID, m.Spectator }),
		Board: lo.Map(words, func(w string, i int) card {
			return card{Word: w, Color: colors[i]}
		}),
		StartingTeam: starting,
		Turn:         starting,
	}

	return true
}

func (g *Codenames) player(id string) (int, bool) {
	i := slices.IndexFunc(g.state.Players, func(p codenamesPlayer) bool {
		return p.ID == id
	})

	return i, i >= 0
}

func (g *Codenames) requireStage(stage Stage) error {
	if g.state.Stage != stage {
		return errs.Stage("action requires stage %q, game is in %q", stage, g.state.Stage)
	}

	return nil
}

// requireTurn checks that playerID is an active member of the team whose
// turn it is, and is (or is not) its spymaster.
func (g *Codenames) requireTurn(playerID string, spymaster bool) error {
	if slices.Contains(g.state.Spectators, playerID) {
		return errs.Authorization("", "spectators cannot take player actions")
	}

	i, ok := g.player(playerID)
	if !ok {
		return errs.NotFound("", "player %q is not in this game", playerID)
	}

	p := g.state.Players[i]
	switch {
	case p.Left:
		return errs.Authorization("", "you have left this game")
	case p.Team != g.state.Turn:
		return errs.Stage("it is the %s team's turn", g.state.Turn)
	case spymaster && !p.Spymaster:
		return errs.Authorization("", "only the spymaster can give clues")
	case !spymaster && p.Spymaster:
		return errs.Authorization("", "spymasters cannot reveal cards")
	}

	return nil
}

type cluePayload struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

type revealPayload struct {
	Index int `json:"index"`
}

func (g *Codenames) ValidateAction(playerID string, action Action) error {
	_, err := g.validate(playerID, action)
	return err
}

// validate returns the decoded payload for actions that carry one.
func (g *Codenames) validate(playerID string, action Action) (any, error) {
	switch action.Type {
	case ActionGiveClue:
		if err := g.requireStage(StageClue); err != nil {
			return nil, err
		}
		if err := g.requireTurn(playerID, true); err != nil {
			return nil, err
		}

		var payload cluePayload
		if err := decodePayload(action, &payload); err != nil {
			return nil, errs.Validation("malformed clue: %v", err)
		}

		payload.Word = strings.TrimSpace(payload.Word)
		if payload.Word == "" || strings.ContainsAny(payload.Word, " \t\n") {
			return nil, errs.Validation("a clue must be a single word")
		}
		if payload.Count < 0 || payload.Count > MaxClueCount {
			return nil, errs.Validation("clue count must be between 0 and %d", MaxClueCount)
		}
		if slices.ContainsFunc(g.state.Board, func(c card) bool {
			return !c.Revealed && strings.EqualFold(c.Word, payload.Word)
		}) {
			return nil, errs.Validation("a clue cannot be a word on the board")
		}

		return payload, nil

	case ActionReveal:
		if err := g.requireStage(StageGuessing); err != nil {
			return nil, err
		}
		if err := g.requireTurn(playerID, false); err != nil {
			return nil, err
		}

		var payload revealPayload
		if err := decodePayload(action, &payload); err != nil {
			return nil, errs.Validation("malformed reveal: %v", err)
		}

		if payload.Index < 0 || payload.Index >= len(g.state.Board) {
			return nil, errs.Validation("card %d is not on the board", payload.Index)
		}
		if g.state.Board[payload.Index].Revealed {
			return nil, errs.Duplicate("card %d is already revealed", payload.Index)
		}

		return payload, nil

	case ActionEndTurn:
		if err := g.requireStage(StageGuessing); err != nil {
			return nil, err
		}

		return nil, g.requireTurn(playerID, false)

	default:
		return nil, errs.Validation("unknown action %q", action.Type)
	}
}

func (g *Codenames) ProcessAction(playerID string, action Action) error {
	payload, err := g.validate(playerID, action)
	if err != nil {
		return err
	}

	switch p := payload.(type) {
	case cluePayload:
		clue := Clue{Team: g.state.Turn, Word: p.Word, Count: p.Count}
		g.state.Clue = &clue
		g.state.Clues = append(g.state.Clues, clue)
		g.state.GuessesLeft = p.Count + 1
		g.state.Stage = StageGuessing
	case revealPayload:
		g.reveal(p.Index)
	default:
		g.passTurn()
	}

	return nil
}

func (g *Codenames) reveal(index int) {
	c := &g.state.Board[index]
	c.Revealed = true

	if c.Color == ColorAssassin {
		g.finish(g.state.Turn.other(), "assassin")

		return
	}

	for _, team := range []Team{g.state.Turn, g.state.Turn.other()} {
		if g.remaining(team) == 0 {
			g.finish(team, "cards")

			return
		}
	}

	if c.Color != CardColor(g.state.Turn) {
		g.passTurn()

		return
	}

	g.state.GuessesLeft--
	if g.state.GuessesLeft == 0 {
		g.passTurn()
	}
}

func (g *Codenames) remaining(team Team) int {
	return lo.CountBy(g.state.Board, func(c card) bool {
		return !c.Revealed && c.Color == CardColor(team)
	})
}

func (g *Codenames) passTurn() {
	g.state.Turn = g.state.Turn.other()
	g.state.Clue = nil
	g.state.GuessesLeft = 0
	g.state.Stage = StageClue
}

func (g *Codenames) finish(winner Team, reason string) {
	g.state.Winner = winner
	g.state.Reason = reason
	g.state.Clue = nil
	g.state.GuessesLeft = 0
	g.state.Stage = StageFinished
}

// RemovePlayer ends the game when a team can no longer field both a
// spymaster and an operative. A departing spymaster is replaced by the next
// teammate.
func (g *Codenames) RemovePlayer(playerID string) {
	if i := slices.Index(g.state.Spectators, playerID); i >= 0 {
		g.state.Spectators = slices.Delete(g.state.Spectators, i, i+1)

		return
	}

	i, ok := g.player(playerID)
	if !ok || g.state.Stage == StageWaiting || g.state.Stage == StageFinished {
		return
	}

	p := &g.state.Players[i]
	p.Left = true
	team := p.Team

	if p.Spymaster {
		p.Spymaster = false
		for j := range g.state.Players {
			if q := &g.state.Players[j]; q.Team == team && !q.Left {
				q.Spymaster = true

				break
			}
		}
	}

	active := lo.CountBy(g.state.Players, func(q codenamesPlayer) bool {
		return q.Team == team && !q.Left
	})
	if active < 2 {
		g.finish(team.other(), "aborted")
	}
}

type CardView struct {
	Word     string    `json:"word"`
	Color    CardColor `json:"color,omitempty"`
	Revealed bool      `json:"revealed"`
}

type CodenamesPlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Team      Team   `json:"team"`
	Spymaster bool   `json:"spymaster"`
	Left      bool   `json:"left,omitempty"`
}

// CodenamesView shows card colours to spymasters, spectators and, once the
// game is over, everyone. Operatives only see revealed colours.
type CodenamesView struct {
	GameType    GameType              `json:"gameType"`
	Stage       Stage                 `json:"stage"`
	Players     []CodenamesPlayerView `json:"players"`
	Board       []CardView            `json:"board"`
	Turn        Team                  `json:"turn"`
	Clue        *Clue                 `json:"clue,omitempty"`
	Clues       []Clue                `json:"clues,omitempty"`
	GuessesLeft int                   `json:"guessesLeft"`
	Remaining   map[Team]int          `json:"remaining"`
	Team        Team                  `json:"team,omitempty"`
	Spymaster   bool                  `json:"spymaster"`
	Spectator   bool                  `json:"spectator"`
	Winner      Team                  `json:"winner,omitempty"`
	Reason      string                `json:"reason,omitempty"`
}

func (g *Codenames) PlayerView(viewer Viewer) any {
	st := g.state

	v := CodenamesView{
		GameType:    TypeCodenames,
		Stage:       st.Stage,
		Turn:        st.Turn,
		Clues:       slices.Clone(st.Clues),
		GuessesLeft: st.GuessesLeft,
		Remaining: map[Team]int{
			TeamRed:  g.remaining(TeamRed),
			TeamBlue: g.remaining(TeamBlue),
		},
		Spectator: viewer.Spectator || slices.Contains(st.Spectators, viewer.ID),
		Winner:    st.Winner,
		Reason:    st.Reason,
		Players: lo.Map(st.Players, func(p codenamesPlayer, _ int) CodenamesPlayerView {
			return CodenamesPlayerView{ID: p.ID, Name: p.Name, Team: p.Team, Spymaster: p.Spymaster, Left: p.Left}
		}),
	}

	if st.Clue != nil {
		clue := *st.Clue
		v.Clue = &clue
	}

	if i, ok := g.player(viewer.ID); ok && !v.Spectator {
		v.Team = st.Players[i].Team
		v.Spymaster = st.Players[i].Spymaster
	}

	seeAll := v.Spectator || v.Spymaster || st.Stage == StageFinished

	v.Board = lo.Map(st.Board, func(c card, _ int) CardView {
		cv := CardView{Word: c.Word, Revealed: c.Revealed}
		if seeAll || c.Revealed {
			cv.Color = c.Color
		}

		return cv
	})

	return v
}
