package identity

import (
	"sync"
	"time"

	"github.com/devshare/analytics-go/pkg/id"
)

// DefaultSessionTimeout is the idle gap after which a new session starts.
const DefaultSessionTimeout = 30 * time.Minute

// activityPersistInterval bounds how often an unchanged session's last
// activity is written back to storage.
const activityPersistInterval = time.Second

// Logger is the minimal logging interface used by the identity manager.
type Logger interface {
	Debug(msg string, args ...any)
}

// Config configures a Manager.
type Config struct {
	// Storage persists identifiers. Nil uses a MemoryStorage.
	Storage Storage

	// SessionTimeout is the idle gap that ends a session.
	SessionTimeout time.Duration

	// UserID is the initial default user id.
	UserID string

	// Generator creates anonymous and session ids.
	Generator *id.Generator

	// Logger receives diagnostics when Debug is set.
	Logger Logger

	// Debug enables diagnostic logging.
	Debug bool

	// Now overrides the clock.
	Now func() time.Time
}

// Manager owns the user, anonymous and session identifiers of one client.
// It is safe for concurrent use.
type Manager struct {
	storage Storage
	timeout time.Duration
	gen     *id.Generator
	logger  Logger
	debugOn bool
	now     func() time.Time

	mu                sync.Mutex
	userID            string
	anonymousID       string
	sessionID         string
	lastActivity      time.Time
	persistedActivity time.Time
}

// New creates a manager, restores a persisted session when it is still
// within the idle timeout, and records construction as activity.
func New(cfg Config) *Manager {
	if cfg.Storage == nil {
		cfg.Storage = NewMemoryStorage()
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = DefaultSessionTimeout
	}
	if cfg.Generator == nil {
		cfg.Generator = id.NewGenerator(nil)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	m := &Manager{
		storage: cfg.Storage,
		timeout: cfg.SessionTimeout,
		gen:     cfg.Generator,
		logger:  cfg.Logger,
		debugOn: cfg.Debug,
		now:     cfg.Now,
		userID:  cfg.UserID,
	}

	m.restoreSession()
	m.CheckAndUpdateSession(m.now())
	return m
}

// AnonymousID returns the persisted anonymous id, creating and persisting
// one if none exists. Storage failures fall back to an in-memory id.
//
// Storage is consulted only until the id is known. After that the cached
// id wins, so a value left behind by a failed write never replaces it.
func (m *Manager) AnonymousID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.anonymousIDLocked()
}

func (m *Manager) anonymousIDLocked() string {
	if m.anonymousID != "" {
		return m.anonymousID
	}

	stored, ok, err := m.storage.Get(KeyAnonymousID)
	if err != nil {
		m.debug("anonymous id read failed, using in-memory id", "error", err)
		m.anonymousID = m.gen.MustGenerate()
		return m.anonymousID
	}
	if ok && stored != "" {
		m.anonymousID = stored
		return stored
	}

	m.anonymousID = m.gen.MustGenerate()
	m.persistAnonymousIDLocked()
	return m.anonymousID
}

func (m *Manager) persistAnonymousIDLocked() {
	if err := m.storage.Set(KeyAnonymousID, m.anonymousID); err != nil {
		m.debug("anonymous id write failed, keeping in-memory id", "error", err)
	}
}

// CheckAndUpdateSession starts a new session when the gap since the last
// activity exceeds the timeout, then records now as the last activity.
// It returns the session id to stamp on the current event.
func (m *Manager) CheckAndUpdateSession(now time.Time) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	renewed := false
	if m.sessionID == "" || now.Sub(m.lastActivity) > m.timeout {
		previous := m.sessionID
		m.sessionID = m.gen.MustGenerate()
		renewed = true
		if previous != "" {
			m.debug("session expired, created new session", "session_id", m.sessionID, "idle", now.Sub(m.lastActivity))
		}
	}
	m.lastActivity = now

	if renewed || now.Sub(m.persistedActivity) >= activityPersistInterval {
		m.persistSessionLocked(renewed)
	}
	return m.sessionID
}

// SessionID returns the current session id without recording activity.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// LastActivity returns the time of the last recorded activity.
func (m *Manager) LastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActivity
}

// UserID returns the default user id.
func (m *Manager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

// Identify sets the default user id for subsequent events.
func (m *Manager) Identify(userID string) {
	m.mu.Lock()
	m.userID = userID
	m.mu.Unlock()

	m.debug("user identified", "user_id", userID)
}

// Reset starts a new identity: it clears the user id, replaces the
// anonymous id and unconditionally starts a new session.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.userID = ""

	if err := m.storage.Delete(KeyAnonymousID); err != nil {
		m.debug("anonymous id delete failed", "error", err)
	}
	m.anonymousID = m.gen.MustGenerate()
	m.persistAnonymousIDLocked()

	m.sessionID = m.gen.MustGenerate()
	m.lastActivity = m.now()
	m.persistSessionLocked(true)

	m.debug("identity reset", "anonymous_id", m.anonymousID, "session_id", m.sessionID)
}

// restoreSession loads a persisted session, if any.
func (m *Manager) restoreSession() {
	sessionID, ok, err := m.storage.Get(KeySessionID)
	if err != nil || !ok || sessionID == "" {
		if err != nil {
			m.debug("session read failed", "error", err)
		}
		return
	}
	raw, ok, err := m.storage.Get(KeySessionLastActivity)
	if err != nil || !ok {
		return
	}
	last, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		m.debug("ignoring malformed session activity", "value", raw)
		return
	}

	m.sessionID = sessionID
	m.lastActivity = last
	m.persistedActivity = last
}

func (m *Manager) persistSessionLocked(includeID bool) {
	if includeID {
		if err := m.storage.Set(KeySessionID, m.sessionID); err != nil {
			m.debug("session write failed", "error", err)
			return
		}
	}
	if err := m.storage.Set(KeySessionLastActivity, m.lastActivity.UTC().Format(time.RFC3339Nano)); err != nil {
		m.debug("session write failed", "error", err)
		return
	}
	m.persistedActivity = m.lastActivity
}

func (m *Manager) debug(msg string, args ...any) {
	if m.debugOn && m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}
