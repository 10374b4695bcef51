/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Seednode/imposterbox/errs"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time {
	return c.t
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)}
}

func TestCreateSession_RejectsBlankName(t *testing.T) {
	req := require.New(t)
	r := New(nil)

	_, err := r.CreateSession("conn-1", "   ")

	req.ErrorIs(err, errs.ErrValidation)
	req.Equal("session.invalid_name", errs.CodeOf(err, ""))
	req.Zero(r.Len())
}

func TestCreateSession_IndexesEveryLookup(t *testing.T) {
	req := require.New(t)
	c := newClock()
	r := New(c.now)

	s, err := r.CreateSession("conn-1", "  Alice ")
	req.NoError(err)

	req.Equal("Alice", s.Profile.DisplayName)
	req.Equal(c.t, s.Profile.CreatedAt)
	req.NotEmpty(s.ID)
	req.NotEqual(s.ID, s.Profile.ID)

	bySession, ok := r.LookupBySessionID(s.ID)
	req.True(ok)
	req.Same(s, bySession)

	byConn, ok := r.LookupByConnectionID("conn-1")
	req.True(ok)
	req.Same(s, byConn)

	byProfile, ok := r.LookupByProfileID(s.Profile.ID)
	req.True(ok)
	req.Same(s, byProfile)

	_, ok = r.LookupByConnectionID("conn-2")
	req.False(ok)
}

func TestCreateSession_ReloginOnSameConnectionRenames(t *testing.T) {
	req := require.New(t)
	r := New(nil)

	first, err := r.CreateSession("conn-1", "Alice")
	req.NoError(err)

	second, err := r.CreateSession("conn-1", "Alicia")
	req.NoError(err)

	req.Same(first, second)
	req.Equal("Alicia", second.Profile.DisplayName)
	req.Equal(1, r.Len())
}

func TestAttachConnection_UnknownSession(t *testing.T) {
	req := require.New(t)
	r := New(nil)

	_, err := r.AttachConnection("missing", "conn-1")

	req.ErrorIs(err, errs.ErrNotFound)
	req.Equal("auth.session_expired", errs.CodeOf(err, ""))
}

func TestAttachConnection_LastWriterWins(t *testing.T) {
	req := require.New(t)
	r := New(nil)

	s, err := r.CreateSession("conn-1", "Alice")
	req.NoError(err)
	profileID := s.Profile.ID

	// When the same session reconnects from another connection
	reattached, err := r.AttachConnection(s.ID, "conn-2")
	req.NoError(err)

	// Then the profile is stable and only the new connection resolves
	req.Equal(profileID, reattached.Profile.ID)
	req.Equal("conn-2", reattached.ConnectionID)

	_, ok := r.LookupByConnectionID("conn-1")
	req.False(ok)

	got, ok := r.LookupByConnectionID("conn-2")
	req.True(ok)
	req.Same(s, got)
}

func TestDetach_KeepsSessionForReconnect(t *testing.T) {
	req := require.New(t)
	r := New(nil)

	s, err := r.CreateSession("conn-1", "Alice")
	req.NoError(err)

	detached, ok := r.Detach("conn-1")
	req.True(ok)
	req.Same(s, detached)
	req.Empty(s.ConnectionID)

	_, ok = r.LookupByConnectionID("conn-1")
	req.False(ok)

	_, ok = r.LookupBySessionID(s.ID)
	req.True(ok)

	_, ok = r.Detach("conn-1")
	req.False(ok)
}

func TestSweepInactive(t *testing.T) {
	req := require.New(t)
	c := newClock()
	r := New(c.now)

	stale, err := r.CreateSession("conn-1", "Stale")
	req.NoError(err)
	_, ok := r.Detach("conn-1")
	req.True(ok)

	connected, err := r.CreateSession("conn-3", "Quiet")
	req.NoError(err)

	c.t = c.t.Add(8 * time.Minute)
	fresh, err := r.CreateSession("conn-2", "Fresh")
	req.NoError(err)
	_, ok = r.Detach("conn-2")
	req.True(ok)

	c.t = c.t.Add(4 * time.Minute)
	removed := r.SweepInactive(10 * time.Minute)

	req.Len(removed, 1)
	req.Same(stale, removed[0])

	_, ok = r.LookupBySessionID(stale.ID)
	req.False(ok)
	_, ok = r.LookupByProfileID(stale.Profile.ID)
	req.False(ok)
	_, ok = r.LookupByConnectionID("conn-1")
	req.False(ok)

	_, ok = r.LookupBySessionID(fresh.ID)
	req.True(ok)

	// A live connection keeps the session regardless of message traffic
	_, ok = r.LookupByConnectionID("conn-3")
	req.True(ok)
	_, ok = r.LookupBySessionID(connected.ID)
	req.True(ok)
}

func TestTouch_DefersSweep(t *testing.T) {
	req := require.New(t)
	c := newClock()
	r := New(c.now)

	s, err := r.CreateSession("conn-1", "Alice")
	req.NoError(err)
	r.Detach("conn-1")

	c.t = c.t.Add(9 * time.Minute)
	r.Touch(s)
	c.t = c.t.Add(9 * time.Minute)

	req.Empty(r.SweepInactive(10 * time.Minute))
}
