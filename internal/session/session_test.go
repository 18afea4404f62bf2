package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the manager clock without sleeping.
type fakeClock struct {
	current time.Time
}

func (f *fakeClock) now() time.Time { return f.current }

func (f *fakeClock) advance(d time.Duration) { f.current = f.current.Add(d) }

func newTestManager(keyword string, timeout time.Duration) (*Manager, *fakeClock) {
	m := NewManager(keyword, timeout, nil)

	clock := &fakeClock{current: time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)}
	m.now = clock.now

	return m, clock
}

func Test_AuthorizeRequiresSignIn(t *testing.T) {
	m, _ := newTestManager("elevate", time.Minute)

	assert.ErrorIs(t, m.Authorize(ActionUpdate, "update"), ErrNotSignedIn)
}

func Test_AuthorizeRequiresElevation(t *testing.T) {
	m, _ := newTestManager("elevate", time.Minute)
	m.SignIn("msalinas")

	assert.ErrorIs(t, m.Authorize(ActionUpdate, "update"), ErrAdminRequired)
}

func Test_VerifyAdmin(t *testing.T) {
	m, _ := newTestManager("elevate", time.Minute)
	m.SignIn("msalinas")

	assert.ErrorIs(t, m.VerifyAdmin(false, "elevate"), ErrAdminAckRequired)
	assert.ErrorIs(t, m.VerifyAdmin(true, "wrong"), ErrAdminKeywordMismatch)

	require.NoError(t, m.VerifyAdmin(true, "elevate"))
	assert.True(t, m.AdminVerified())
}

func Test_PerActionConfirmationAlwaysRequired(t *testing.T) {
	m, _ := newTestManager("elevate", time.Minute)
	m.SignIn("msalinas")
	require.NoError(t, m.VerifyAdmin(true, "elevate"))

	// elevation does not waive the typed confirmation
	assert.ErrorIs(t, m.Authorize(ActionReboot, ""), ErrConfirmationMismatch)
	assert.ErrorIs(t, m.Authorize(ActionReboot, "update"), ErrConfirmationMismatch)

	assert.NoError(t, m.Authorize(ActionReboot, "reboot"))

	// and it is required again on the next invocation
	assert.ErrorIs(t, m.Authorize(ActionReboot, ""), ErrConfirmationMismatch)
	assert.NoError(t, m.Authorize(ActionReboot, " REBOOT "))
}

func Test_ParkedActionResumesExactlyOnce(t *testing.T) {
	m, _ := newTestManager("elevate", time.Minute)
	m.SignIn("msalinas")

	resumed := 0
	m.Park(func() { resumed++ })

	require.NoError(t, m.VerifyAdmin(true, "elevate"))
	assert.Equal(t, 1, resumed)

	// a second verification does not replay the parked action
	require.NoError(t, m.VerifyAdmin(true, "elevate"))
	assert.Equal(t, 1, resumed)
}

func Test_InactivityExpiry(t *testing.T) {
	m, clock := newTestManager("elevate", 10*time.Minute)
	m.SignIn("msalinas")
	require.NoError(t, m.VerifyAdmin(true, "elevate"))

	// activity inside the window resets the countdown
	clock.advance(9 * time.Minute)
	m.Touch()

	clock.advance(9 * time.Minute)
	assert.True(t, m.AdminVerified())
	assert.Equal(t, "msalinas", m.Operator())

	// zero activity for the full window clears identity and elevation
	clock.advance(11 * time.Minute)
	assert.False(t, m.AdminVerified())
	assert.Empty(t, m.Operator())

	assert.ErrorIs(t, m.Authorize(ActionUpdate, "update"), ErrNotSignedIn)
}

func Test_ExpiryDropsParkedAction(t *testing.T) {
	m, clock := newTestManager("elevate", time.Minute)
	m.SignIn("msalinas")

	resumed := 0
	m.Park(func() { resumed++ })

	clock.advance(2 * time.Minute)

	assert.ErrorIs(t, m.VerifyAdmin(true, "elevate"), ErrNotSignedIn)
	assert.Zero(t, resumed)
}
