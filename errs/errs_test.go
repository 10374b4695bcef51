/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIs_MatchesByKind(t *testing.T) {
	req := require.New(t)

	err := NotFound("room.not_found", "room %q not found", "ABC123")

	req.ErrorIs(err, ErrNotFound)
	req.NotErrorIs(err, ErrValidation)
	req.ErrorIs(fmt.Errorf("joining: %w", err), ErrNotFound)
}

func TestCodeOf(t *testing.T) {
	req := require.New(t)

	req.Equal("room.full", CodeOf(New(KindCapacity, "room.full", "full"), "room.join_failed"))
	req.Equal("game.action_failed", CodeOf(Stage("not voting"), "game.action_failed"))
	req.Equal("fallback", CodeOf(errors.New("plain"), "fallback"))
}

func TestKindOf(t *testing.T) {
	req := require.New(t)

	req.Equal(KindDuplicate, KindOf(Duplicate("again")))
	req.Equal(Kind(0), KindOf(errors.New("plain")))
	req.Equal("stage", KindStage.String())
}
