/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"slices"
)

// Tally is the outcome of one voting round.
type Tally struct {
	Counts     map[string]int `json:"counts"`
	Skips      int            `json:"skips"`
	Max        int            `json:"max"`
	Leaders    []string       `json:"leaders,omitempty"`
	Eliminated string         `json:"eliminated,omitempty"`
	Tied       bool           `json:"tied"`
	Vetoed     bool           `json:"vetoed"`
}

// TallyVotes counts the ballots of voters. A voter with no entry in votes,
// or an empty one, skipped. Votes from anyone outside voters are ignored.
//
// Nobody is eliminated when no target received a vote, when skips are at
// least as many as the leading count, or when two or more targets share the
// lead.
func TallyVotes(voters []string, votes map[string]string) Tally {
	t := Tally{Counts: make(map[string]int)}

	for _, voter := range voters {
		target := votes[voter]
		if target == "" {
			t.Skips++

			continue
		}

		t.Counts[target]++
	}

	for target, n := range t.Counts {
		switch {
		case n > t.Max:
			t.Max = n
			t.Leaders = []string{target}
		case n == t.Max:
			t.Leaders = append(t.Leaders, target)
		}
	}
	slices.Sort(t.Leaders)

	switch {
	case t.Max == 0:
	case t.Skips >= t.Max:
		t.Vetoed = true
	case len(t.Leaders) == 1:
		t.Eliminated = t.Leaders[0]
	default:
		t.Tied = true
	}

	return t
}

type Winner string

const (
	WinnerNone      Winner = ""
	WinnerCivilians Winner = "civilians"
	WinnerImposters Winner = "imposters"
)

// Outcome applies the win conditions to the surviving roster.
func Outcome(impostersAlive, civiliansAlive int) Winner {
	switch {
	case impostersAlive == 0:
		return WinnerCivilians
	case impostersAlive >= civiliansAlive:
		return WinnerImposters
	default:
		return WinnerNone
	}
}
