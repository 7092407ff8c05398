package domain

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkTransitionsManageLastError(t *testing.T) {
	session := NewSession(1)
	assert.Equal(t, SessionPending, session.Status)

	session.MarkFailed("create wallet: boom")
	assert.Equal(t, SessionFailed, session.Status)
	assert.Equal(t, "create wallet: boom", session.LastError)

	now := time.Unix(1756500000, 0)
	session.MarkRunning(now)
	assert.Equal(t, SessionRunning, session.Status)
	assert.Equal(t, now, session.StartedAt)
	assert.Empty(t, session.LastError)

	session.MarkFailed("rate limited: status 429")
	session.MarkStopped()
	assert.Equal(t, SessionStopped, session.Status)
	assert.Empty(t, session.LastError)
}

func TestMarkFailedTruncatesLongCause(t *testing.T) {
	session := NewSession(1)
	session.MarkFailed(strings.Repeat("x", 500))

	assert.Len(t, session.LastError, MaxCauseLen)
}

func TestTruncateCauseKeepsMultibyteCausesValid(t *testing.T) {
	// Three-byte runes put the byte at MaxCauseLen mid-rune, so a plain
	// byte slice would leave invalid UTF-8 at the tail.
	cause := TruncateCause(strings.Repeat("☃", 60))

	assert.True(t, utf8.ValidString(cause))
	assert.LessOrEqual(t, len(cause), MaxCauseLen)
	assert.True(t, strings.HasSuffix(cause, "☃"))

	ascii := TruncateCause(strings.Repeat("x", 500))
	assert.Len(t, ascii, MaxCauseLen)
}

func TestRateLimitedMatchesPrefixCaseInsensitively(t *testing.T) {
	session := NewSession(1)
	session.MarkFailed("Rate Limited: page reports throttling")
	assert.True(t, session.RateLimited())

	session.MarkFailed("create wallet: rate limited upstream")
	assert.False(t, session.RateLimited())

	running := NewSession(2)
	running.MarkRunning(time.Unix(1756500000, 0))
	assert.False(t, running.RateLimited())
}

func TestSessionValidate(t *testing.T) {
	valid := Session{ID: 1, Status: SessionFailed, LastError: "boom"}
	require.NoError(t, valid.Validate())

	assert.Error(t, Session{ID: 0, Status: SessionPending}.Validate())
	assert.Error(t, Session{ID: 1, Status: "exploded"}.Validate())
	// LastError must be set exactly when the session failed.
	assert.Error(t, Session{ID: 1, Status: SessionFailed}.Validate())
	assert.Error(t, Session{ID: 1, Status: SessionRunning, LastError: "boom"}.Validate())
}
