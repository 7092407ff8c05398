package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

type SessionID int

type SessionStatus string

const (
	SessionPending SessionStatus = "pending"
	SessionRunning SessionStatus = "running"
	SessionStopped SessionStatus = "stopped"
	SessionFailed  SessionStatus = "failed"
)

// RateLimitedCause prefixes every failure caused by the target site
// throttling registrations, so operators can tell capacity problems
// apart from logic bugs.
const RateLimitedCause = "rate limited"

// MaxCauseLen bounds the diagnostic string stored on a failed session.
const MaxCauseLen = 100

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionPending, SessionRunning, SessionStopped, SessionFailed:
		return true
	}
	return false
}

// Session is the durable record for one wallet slot. The live browser
// environment is tracked separately and never serialized.
type Session struct {
	ID        SessionID
	Status    SessionStatus
	StartedAt time.Time
	LastError string
}

func NewSession(id SessionID) Session {
	return Session{ID: id, Status: SessionPending}
}

func (s *Session) MarkRunning(now time.Time) {
	s.Status = SessionRunning
	s.StartedAt = now
	s.LastError = ""
}

func (s *Session) MarkStopped() {
	s.Status = SessionStopped
	s.LastError = ""
}

func (s *Session) MarkFailed(cause string) {
	s.Status = SessionFailed
	s.LastError = TruncateCause(cause)
}

// RateLimited reports whether the session failed because the target
// site throttled it.
func (s Session) RateLimited() bool {
	return s.Status == SessionFailed && strings.HasPrefix(strings.ToLower(s.LastError), RateLimitedCause)
}

func (s Session) Validate() error {
	if s.ID < 1 {
		return fmt.Errorf("session id must be positive, got %d", s.ID)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("invalid session status %q", s.Status)
	}
	if (s.LastError != "") != (s.Status == SessionFailed) {
		return fmt.Errorf("last error must be set exactly when status is failed (status %q)", s.Status)
	}
	return nil
}

// TruncateCause shortens a diagnostic string to the stored bound,
// cutting on a rune boundary so the result stays valid UTF-8.
func TruncateCause(cause string) string {
	cause = strings.TrimSpace(cause)
	if len(cause) <= MaxCauseLen {
		return cause
	}
	cut := MaxCauseLen
	for cut > 0 && !utf8.RuneStart(cause[cut]) {
		cut--
	}
	return cause[:cut]
}
