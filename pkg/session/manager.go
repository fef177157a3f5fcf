package session

import (
	"sync"
	"time"

	"github.com/seclave/hsign/pkg/logger"
)

// Manager tracks open signing sessions. A session is opened by a
// sign-init command and closed when the last output is streamed; the
// cleanup routine expires sessions the host abandoned mid-protocol so
// a stale init can never wedge the device.
type Manager struct {
	activeSessions  map[string]time.Time // session ID to creation time
	sessionsLock    sync.RWMutex
	cleanupInterval time.Duration
	sessionTimeout  time.Duration // how long before an open session is considered abandoned
	stopChan        chan struct{}
}

// NewManager creates a new session manager.
func NewManager(cleanupInterval, sessionTimeout time.Duration) *Manager {
	return &Manager{
		activeSessions:  make(map[string]time.Time),
		cleanupInterval: cleanupInterval,
		sessionTimeout:  sessionTimeout,
		stopChan:        make(chan struct{}),
	}
}

// Add registers a session.
func (m *Manager) Add(sessionID string) {
	m.sessionsLock.Lock()
	defer m.sessionsLock.Unlock()

	m.activeSessions[sessionID] = time.Now()
	logger.Debug("Signing session opened", "sessionID", sessionID)
}

// Has reports whether sessionID is open and not yet expired.
func (m *Manager) Has(sessionID string) bool {
	m.sessionsLock.RLock()
	createdAt, exists := m.activeSessions[sessionID]
	m.sessionsLock.RUnlock()

	if !exists {
		return false
	}
	if time.Since(createdAt) > m.sessionTimeout {
		m.Remove(sessionID)
		return false
	}
	return true
}

// Remove closes a session.
func (m *Manager) Remove(sessionID string) {
	m.sessionsLock.Lock()
	defer m.sessionsLock.Unlock()

	delete(m.activeSessions, sessionID)
}

// StartCleanup runs the expiry loop until Stop is called.
func (m *Manager) StartCleanup() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	logger.Info("Session cleanup routine started",
		"cleanupInterval", m.cleanupInterval,
		"sessionTimeout", m.sessionTimeout)

	for {
		select {
		case <-ticker.C:
			m.cleanupStaleSessions()
		case <-m.stopChan:
			logger.Info("Session cleanup routine stopped")
			return
		}
	}
}

// Stop stops the cleanup routine.
func (m *Manager) Stop() {
	close(m.stopChan)
}

func (m *Manager) cleanupStaleSessions() {
	now := time.Now()
	m.sessionsLock.Lock()
	defer m.sessionsLock.Unlock()

	cleaned := 0
	for sessionID, createdAt := range m.activeSessions {
		if now.Sub(createdAt) > m.sessionTimeout {
			delete(m.activeSessions, sessionID)
			cleaned++
		}
	}

	if cleaned > 0 {
		logger.Info("Expired abandoned signing sessions",
			"expiredCount", cleaned,
			"remainingCount", len(m.activeSessions))
	}
}

// ActiveCount returns the number of open sessions.
func (m *Manager) ActiveCount() int {
	m.sessionsLock.RLock()
	defer m.sessionsLock.RUnlock()
	return len(m.activeSessions)
}
