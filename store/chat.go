// SPDX-License-Identifier: LGPL-3.0-or-later

// Package store implements ChatStore: the persistent, single-writer /
// multi-reader mapping from chat identifier to chat record.
package store

import (
	"time"

	"github.com/0xEodum/NativeLayer/crypto"
	"github.com/0xEodum/NativeLayer/crypto/keyring"
)

// Status is a chat's establishment lifecycle state.
type Status string

const (
	StatusInitializing Status = "INITIALIZING"
	StatusEstablished  Status = "ESTABLISHED"
	StatusFailed       Status = "FAILED"
)

// Chat is the persistent record owned exclusively by the ChatStore. The
// HandshakeEngine borrows a Chat for the duration of a single message
// turn; between turns the canonical copy lives in the store.
type Chat struct {
	ID                       string
	Name                     string
	Keys                     *keyring.KeyRing
	PeerID                   string
	Algorithms               crypto.AlgorithmTriple
	Fingerprint              string
	Status                   Status
	CreatedAt                time.Time
	UpdatedAt                time.Time
	EstablishmentCompletedAt time.Time
	LastActivity             time.Time
}

// Clone returns a deep-enough copy of c suitable for handing to a caller
// without letting them mutate the store's canonical record concurrently.
func (c *Chat) Clone() *Chat {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Keys != nil {
		k := *c.Keys
		cp.Keys = &k
	}
	return &cp
}
