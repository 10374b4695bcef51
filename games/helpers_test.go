/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixedRandom always picks the first option and never reorders, so the
// first players in join order become imposters or spymasters.
type fixedRandom struct{}

func (fixedRandom) IntN(int) int { return 0 }

func (fixedRandom) Shuffle(int, func(i, j int)) {}

func catalog(t *testing.T) *Catalog {
	t.Helper()

	c, err := DefaultCatalog()
	require.NoError(t, err)

	return c
}

func members(ids ...string) []Participant {
	out := make([]Participant, 0, len(ids))
	for _, id := range ids {
		out = append(out, Participant{ID: id, Name: "name-" + id})
	}

	return out
}

func spectator(id string) Participant {
	return Participant{ID: id, Name: "name-" + id, Spectator: true}
}

func vote(target string) Action {
	payload, _ := json.Marshal(votePayload{TargetID: target})
	return Action{Type: ActionVote, Payload: payload}
}

func act(actionType string) Action {
	return Action{Type: actionType}
}

func withPayload(actionType string, payload any) Action {
	raw, _ := json.Marshal(payload)
	return Action{Type: actionType, Payload: raw}
}

func snapshot(t *testing.T, v any) string {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)

	return string(b)
}

func render(t *testing.T, v any) string {
	t.Helper()

	return snapshot(t, v)
}
