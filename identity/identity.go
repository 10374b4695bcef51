/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package identity maps live connections to ephemeral guest profiles.
//
// A Registry is not safe for concurrent use; it is owned by the dispatch hub
// goroutine like every other piece of room and game state.
package identity

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Seednode/imposterbox/errs"
)

const MaxDisplayNameLength = 32

type Profile struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"displayName"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}

// Session binds a profile to at most one live connection. ConnectionID is
// empty while the client is away.
type Session struct {
	ID           string   `json:"sessionId"`
	ConnectionID string   `json:"-"`
	Profile      *Profile `json:"profile"`
}

type Registry struct {
	now func() time.Time

	sessions  map[string]*Session
	byConn    map[string]*Session
	byProfile map[string]*Session
}

func New(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}

	return &Registry{
		now:       now,
		sessions:  make(map[string]*Session),
		byConn:    make(map[string]*Session),
		byProfile: make(map[string]*Session),
	}
}

func NormalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errs.New(errs.KindValidation, "session.invalid_name", "display name must not be empty")
	}
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return "", errs.New(errs.KindValidation, "session.invalid_name", "display name must be at most %d characters", MaxDisplayNameLength)
	}

	return name, nil
}

// CreateSession issues a fresh profile and session for connectionID. A
// connection that is already logged in keeps its session; only the display
// name and activity time change.
func (r *Registry) CreateSession(connectionID, displayName string) (*Session, error) {
	name, err := NormalizeDisplayName(displayName)
	if err != nil {
		return nil, err
	}

	now := r.now()

	if s, ok := r.byConn[connectionID]; ok {
		s.Profile.DisplayName = name
		s.Profile.LastActiveAt = now

		return s, nil
	}

	p := &Profile{
		ID:           uuid.NewString(),
		DisplayName:  name,
		CreatedAt:    now,
		LastActiveAt: now,
	}

	s := &Session{
		ID:           uuid.NewString(),
		ConnectionID: connectionID,
		Profile:      p,
	}

	r.sessions[s.ID] = s
	r.byConn[connectionID] = s
	r.byProfile[p.ID] = s

	return s, nil
}

// AttachConnection re-binds an existing session to connectionID. The last
// connection to attach wins; any earlier connection for the profile is
// forgotten.
func (r *Registry) AttachConnection(sessionID, connectionID string) (*Session, error) {
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, errs.NotFound("auth.session_expired", "session %q is unknown or expired", sessionID)
	}

	if s.ConnectionID != "" && s.ConnectionID != connectionID {
		delete(r.byConn, s.ConnectionID)
	}

	if other, ok := r.byConn[connectionID]; ok && other != s {
		other.ConnectionID = ""
	}

	s.ConnectionID = connectionID
	s.Profile.LastActiveAt = r.now()
	r.byConn[connectionID] = s

	return s, nil
}

// Detach forgets the connection but keeps the session for a later
// AttachConnection. The idle clock restarts at the moment of disconnection.
func (r *Registry) Detach(connectionID string) (*Session, bool) {
	s, ok := r.byConn[connectionID]
	if !ok {
		return nil, false
	}

	delete(r.byConn, connectionID)
	s.ConnectionID = ""
	s.Profile.LastActiveAt = r.now()

	return s, true
}

func (r *Registry) Touch(s *Session) {
	s.Profile.LastActiveAt = r.now()
}

func (r *Registry) LookupBySessionID(sessionID string) (*Session, bool) {
	s, ok := r.sessions[sessionID]
	return s, ok
}

func (r *Registry) LookupByConnectionID(connectionID string) (*Session, bool) {
	s, ok := r.byConn[connectionID]
	return s, ok
}

func (r *Registry) LookupByProfileID(profileID string) (*Session, bool) {
	s, ok := r.byProfile[profileID]
	return s, ok
}

// Remove drops a session and every index entry pointing at it.
func (r *Registry) Remove(sessionID string) (*Session, bool) {
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}

	delete(r.sessions, s.ID)
	delete(r.byProfile, s.Profile.ID)
	if s.ConnectionID != "" {
		delete(r.byConn, s.ConnectionID)
	}

	return s, true
}

// SweepInactive removes detached sessions idle for longer than maxIdle and
// returns them. A session with a live connection is never swept, however
// quiet it is. Rooms are not notified here.
func (r *Registry) SweepInactive(maxIdle time.Duration) []*Session {
	cutoff := r.now().Add(-maxIdle)

	var removed []*Session
	for _, s := range r.sessions {
		if s.ConnectionID == "" && s.Profile.LastActiveAt.Before(cutoff) {
			removed = append(removed, s)
		}
	}

	for _, s := range removed {
		r.Remove(s.ID)
	}

	return removed
}

func (r *Registry) Len() int {
	return len(r.sessions)
}
