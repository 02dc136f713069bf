// SPDX-License-Identifier: LGPL-3.0-or-later

package content

import (
	"fmt"
	"sync"
	"time"
)

// Manager tracks one content Session per established chat and reaps
// expired ones on a ticker, mirroring the lifecycle management the
// reaper package applies to handshake-in-progress chats.
type Manager struct {
	mu            sync.RWMutex
	sessions      map[string]*Session
	defaultConfig Config
	ticker        *time.Ticker
	stop          chan struct{}
}

// NewManager starts a Manager with a default Config and a 30-second
// cleanup ticker.
func NewManager() *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		defaultConfig: Config{
			MaxAge:      time.Hour,
			IdleTimeout: 10 * time.Minute,
			MaxMessages: 1000,
		},
		ticker: time.NewTicker(30 * time.Second),
		stop:   make(chan struct{}),
	}
	go m.runCleanup()
	return m
}

// Open creates and registers a content session for chatID from its
// established symmetric key. Returns an error if a session for chatID
// is already open.
func (m *Manager) Open(chatID string, symmetric []byte) (*Session, error) {
	return m.OpenWithConfig(chatID, symmetric, m.defaultConfig)
}

// OpenWithConfig is Open with an explicit Config instead of the
// Manager's default.
func (m *Manager) OpenWithConfig(chatID string, symmetric []byte, cfg Config) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[chatID]; exists {
		return nil, fmt.Errorf("content: session for chat %s already open", chatID)
	}

	sess, err := NewSession(chatID, symmetric, cfg)
	if err != nil {
		return nil, err
	}
	m.sessions[chatID] = sess
	return sess, nil
}

// Get returns the open, non-expired session for chatID, if any. An
// expired session is closed and evicted before reporting not-found.
func (m *Manager) Get(chatID string) (*Session, bool) {
	m.mu.RLock()
	sess, exists := m.sessions[chatID]
	m.mu.RUnlock()

	if !exists {
		return nil, false
	}
	if sess.IsExpired() {
		m.Close(chatID)
		return nil, false
	}
	return sess, true
}

// Close closes and evicts the session for chatID, if one is open.
func (m *Manager) Close(chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, exists := m.sessions[chatID]; exists {
		sess.Close()
		delete(m.sessions, chatID)
	}
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Stats reports aggregate session counts split by expiry.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Stats{TotalSessions: len(m.sessions)}
	for _, sess := range m.sessions {
		if sess.IsExpired() {
			st.ExpiredSessions++
		} else {
			st.ActiveSessions++
		}
	}
	return st
}

// Shutdown stops the cleanup ticker and closes every open session.
func (m *Manager) Shutdown() {
	close(m.stop)
	m.ticker.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sess := range m.sessions {
		sess.Close()
	}
	m.sessions = make(map[string]*Session)
}

func (m *Manager) runCleanup() {
	for {
		select {
		case <-m.ticker.C:
			m.reapExpired()
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) reapExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for chatID, sess := range m.sessions {
		if sess.IsExpired() {
			sess.Close()
			delete(m.sessions, chatID)
		}
	}
}
