// Package session gates privileged actions behind operator identity, a
// session-level admin elevation and a per-action typed confirmation.
//
// Admin verification elevates the session once; the per-action confirmation
// is a repeat-each-time circuit breaker and is required on every privileged
// call regardless of prior elevation. A fixed inactivity timeout clears the
// operator and the elevation.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// PrivilegedAction identifies an operation requiring authorization. The
// typed per-action confirmation must equal the action name.
type PrivilegedAction string

const (
	ActionWake       PrivilegedAction = "wake"
	ActionRunScan    PrivilegedAction = "scan"
	ActionUpdate     PrivilegedAction = "update"
	ActionReboot     PrivilegedAction = "reboot"
	ActionBulkUpdate PrivilegedAction = "bulk-update"
)

var (
	ErrNotSignedIn          = errors.New("no operator signed in")
	ErrAdminRequired        = errors.New("admin verification required")
	ErrAdminAckRequired     = errors.New("admin acknowledgement checkbox not set")
	ErrAdminKeywordMismatch = errors.New("admin keyword does not match")
	ErrConfirmationMismatch = errors.New("typed action confirmation does not match")
)

const DefaultTimeout = 15 * time.Minute

// Manager owns the operator session state.
type Manager struct {
	mu sync.Mutex

	operator      string
	adminVerified bool
	lastActivity  time.Time

	timeout time.Duration
	keyword string

	// parked holds at most one action awaiting admin verification; it is
	// resumed exactly once when verification succeeds.
	parked func()

	logger *logrus.Entry
	now    func() time.Time

	stopSweep chan struct{}
	sweepOnce sync.Once
}

// NewManager returns a session manager. keyword is the expected admin
// verification keyword; timeout <= 0 falls back to the default.
func NewManager(keyword string, timeout time.Duration, logger *logrus.Entry) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Manager{
		timeout:   timeout,
		keyword:   keyword,
		logger:    logger,
		now:       time.Now,
		stopSweep: make(chan struct{}),
	}
}

// SignIn records the operator identity and starts the inactivity countdown.
func (m *Manager) SignIn(operator string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.operator = operator
	m.adminVerified = false
	m.lastActivity = m.now()
}

// Operator returns the signed-in operator, empty once expired.
func (m *Manager) Operator() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked()

	return m.operator
}

// AdminVerified reports session-level elevation.
func (m *Manager) AdminVerified() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked()

	return m.adminVerified
}

// Touch records a tracked activity event, resetting the inactivity countdown.
func (m *Manager) Touch() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked()

	if m.operator != "" {
		m.lastActivity = m.now()
	}
}

// Park stores an action to resume automatically once admin verification
// succeeds. A second Park replaces the first.
func (m *Manager) Park(action func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.parked = action
}

// VerifyAdmin performs the admin-verification gate: the acknowledgement
// checkbox must be set and the typed keyword must match. On success the
// session stays elevated and any parked action resumes exactly once.
func (m *Manager) VerifyAdmin(acknowledged bool, keyword string) error {
	m.mu.Lock()

	m.expireLocked()

	if m.operator == "" {
		m.mu.Unlock()
		return ErrNotSignedIn
	}

	if !acknowledged {
		m.mu.Unlock()
		return ErrAdminAckRequired
	}

	if m.keyword != "" && keyword != m.keyword {
		m.mu.Unlock()
		return ErrAdminKeywordMismatch
	}

	m.adminVerified = true
	m.lastActivity = m.now()

	resume := m.parked
	m.parked = nil

	m.mu.Unlock()

	if resume != nil {
		resume()
	}

	return nil
}

// Authorize gates one privileged action invocation. It requires a signed-in
// operator, session elevation, and the per-action typed confirmation - the
// confirmation is checked every time, elevation does not waive it.
func (m *Manager) Authorize(action PrivilegedAction, typedConfirmation string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked()

	if m.operator == "" {
		return ErrNotSignedIn
	}

	if !m.adminVerified {
		return errors.Wrap(ErrAdminRequired, string(action))
	}

	if !strings.EqualFold(strings.TrimSpace(typedConfirmation), string(action)) {
		return errors.Wrap(ErrConfirmationMismatch, string(action))
	}

	m.lastActivity = m.now()

	return nil
}

// expireLocked clears identity and elevation once the inactivity window has
// elapsed. Expiry is silent apart from a log warning; in-flight work is not
// interrupted - authorization is only checked at action entry points.
func (m *Manager) expireLocked() {
	if m.operator == "" {
		return
	}

	if m.now().Sub(m.lastActivity) < m.timeout {
		return
	}

	if m.logger != nil {
		m.logger.WithField("operator", m.operator).Warn("session expired after inactivity")
	}

	m.operator = ""
	m.adminVerified = false
	m.parked = nil
}

// StartSweep launches a background expiry check so sessions expire even when
// idle. Stop with StopSweep.
func (m *Manager) StartSweep(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.mu.Lock()
				m.expireLocked()
				m.mu.Unlock()
			case <-m.stopSweep:
				return
			}
		}
	}()
}

// StopSweep terminates the background expiry check.
func (m *Manager) StopSweep() {
	m.sweepOnce.Do(func() { close(m.stopSweep) })
}
