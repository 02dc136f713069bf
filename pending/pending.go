// SPDX-License-Identifier: LGPL-3.0-or-later

// Package pending implements PendingSecretTable: the short-lived,
// process-local map from chat identifier to the responder's own KEM
// secret, held until the matching INIT_CONFIRM arrives.
package pending

import (
	"sync"
	"time"

	"github.com/0xEodum/NativeLayer/crypto"
)

type entry struct {
	secret    []byte
	createdAt time.Time
}

// Table is a concurrent chat_id -> secret map with per-entry TTL. It is
// never persisted: a crash mid-handshake is recoverable only by
// restarting the handshake, StaleReaper eventually transitions any
// stuck chat to FAILED.
type Table struct {
	mu      sync.Mutex
	entries map[string]entry
}

// New creates an empty PendingSecretTable.
func New() *Table {
	return &Table{entries: make(map[string]entry)}
}

// Put stores secret for chatID, overwriting and zeroizing any previous
// entry for the same chat.
func (t *Table) Put(chatID string, secret []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.entries[chatID]; ok {
		crypto.Zeroize(old.secret)
	}
	t.entries[chatID] = entry{secret: secret, createdAt: time.Now()}
}

// Remove returns and deletes the secret for chatID. The second return
// value is false if no pending secret exists for this chat (the caller
// should treat this as HandshakeDesynchronized per spec §4.5).
func (t *Table) Remove(chatID string) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[chatID]
	if !ok {
		return nil, false
	}
	delete(t.entries, chatID)
	return e.secret, true
}

// Expire zeroizes and removes every entry older than olderThan, returning
// the count removed.
func (t *Table) Expire(olderThan time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for id, e := range t.entries {
		if e.createdAt.Before(cutoff) {
			crypto.Zeroize(e.secret)
			delete(t.entries, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of pending secrets currently held.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
