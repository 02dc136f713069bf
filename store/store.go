// SPDX-License-Identifier: LGPL-3.0-or-later

package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/0xEodum/NativeLayer/crypto"
	"github.com/0xEodum/NativeLayer/crypto/keyring"
	"github.com/0xEodum/NativeLayer/internal/logger"
)

// record is the on-disk JSON envelope for a single chat. keys_blob carries
// the versioned, length-prefixed ChatKeyRing encoding from blob.go;
// encoding/json base64-encodes it automatically as a []byte field.
type record struct {
	Name                     string    `json:"name"`
	KeysBlob                 []byte    `json:"keys_blob"`
	LastActivity             time.Time `json:"last_activity"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
	Fingerprint              string    `json:"fingerprint"`
	Status                   Status    `json:"status"`
	EstablishmentCompletedAt time.Time `json:"establishment_completed_at"`
	PeerID                   string    `json:"peer_id"`
}

// Store is a file-backed ChatStore: chat_id -> Chat, one JSON file per
// chat under baseDir, protected by a single read-write lock. Readers may
// proceed in parallel; writers exclude everyone and persist synchronously
// before the call returns, matching spec §5's shared-resource policy.
type Store struct {
	baseDir string
	mu      sync.RWMutex
	log     logger.Logger
}

// New creates a Store rooted at baseDir, creating the directory if needed.
func New(baseDir string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: create store dir: %v", crypto.ErrStoreFailure, err)
	}
	return &Store{baseDir: baseDir, log: log}, nil
}

func (s *Store) path(chatID string) string {
	return filepath.Join(s.baseDir, filepath.Base(chatID)+".json")
}

// Get returns the chat record, or nil if it does not exist. A missing
// chat is not an error (spec §4.3).
func (s *Store) Get(chatID string) (*Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readLocked(chatID)
}

func (s *Store) readLocked(chatID string) (*Chat, error) {
	data, err := os.ReadFile(s.path(chatID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", crypto.ErrStoreFailure, chatID, err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", crypto.ErrStoreFailure, chatID, err)
	}

	var ring *keyring.KeyRing
	if len(rec.KeysBlob) > 0 {
		ring, err = decodeBlob(rec.KeysBlob)
		if err != nil {
			// The chat identity remains valid even if the key material is
			// corrupt; return it with a null ring and a logged warning.
			s.log.Warn("chat key ring failed to parse, returning chat with null keys",
				logger.String("chat_id", chatID), logger.Error(err))
			ring = nil
		}
	}

	return &Chat{
		ID:                       chatID,
		Name:                     rec.Name,
		Keys:                     ring,
		PeerID:                   rec.PeerID,
		Algorithms:               ringAlgorithms(ring),
		Fingerprint:              rec.Fingerprint,
		Status:                   rec.Status,
		CreatedAt:                rec.CreatedAt,
		UpdatedAt:                rec.UpdatedAt,
		EstablishmentCompletedAt: rec.EstablishmentCompletedAt,
		LastActivity:             rec.LastActivity,
	}, nil
}

func ringAlgorithms(k *keyring.KeyRing) crypto.AlgorithmTriple {
	if k == nil {
		return crypto.AlgorithmTriple{}
	}
	return k.Algorithms
}

// Save upserts chat atomically: it is serialized and written to a
// temporary file, then renamed into place so a reader never observes a
// partially-written record.
func (s *Store) Save(chat *Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(chat)
}

func (s *Store) saveLocked(chat *Chat) error {
	var blob []byte
	if chat.Keys != nil {
		blob = encodeBlob(chat.Keys)
	}

	rec := record{
		Name:                     chat.Name,
		KeysBlob:                 blob,
		LastActivity:             chat.LastActivity,
		CreatedAt:                chat.CreatedAt,
		UpdatedAt:                chat.UpdatedAt,
		Fingerprint:              chat.Fingerprint,
		Status:                   chat.Status,
		EstablishmentCompletedAt: chat.EstablishmentCompletedAt,
		PeerID:                   chat.PeerID,
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", crypto.ErrStoreFailure, chat.ID, err)
	}

	dst := s.path(chat.ID)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%w: write %s: %v", crypto.ErrStoreFailure, chat.ID, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("%w: commit %s: %v", crypto.ErrStoreFailure, chat.ID, err)
	}
	return nil
}

// ListByStatus returns every chat with the given status, ordered by
// last_activity descending.
func (s *Store) ListByStatus(status Status) ([]*Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: list store dir: %v", crypto.ErrStoreFailure, err)
	}

	var chats []*Chat
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		chatID := e.Name()[:len(e.Name())-len(".json")]
		chat, err := s.readLocked(chatID)
		if err != nil {
			return nil, err
		}
		if chat != nil && chat.Status == status {
			chats = append(chats, chat)
		}
	}

	sort.Slice(chats, func(i, j int) bool {
		return chats[i].LastActivity.After(chats[j].LastActivity)
	})
	return chats, nil
}

// UpdateEstablishment atomically writes the three establishment fields
// plus updated_at, and establishment_completed_at when transitioning to
// ESTABLISHED. The caller is expected to have already set chat.Keys to
// the cleaned ring; this single Save call is the atomicity boundary
// named in spec §4.5 step 8.
func (s *Store) UpdateEstablishment(chat *Chat, fingerprint string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	chat.Fingerprint = fingerprint
	chat.Status = status
	chat.UpdatedAt = now
	if status == StatusEstablished {
		chat.EstablishmentCompletedAt = now
	}
	return s.saveLocked(chat)
}

// Delete removes a chat record entirely.
func (s *Store) Delete(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(chatID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: delete %s: %v", crypto.ErrStoreFailure, chatID, err)
	}
	return nil
}

// ReapStale transitions every INITIALIZING chat whose created_at is older
// than now-maxAge to FAILED, zeroizing and clearing its keys field. It
// returns the number of chats reaped.
func (s *Store) ReapStale(maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return 0, fmt.Errorf("%w: list store dir: %v", crypto.ErrStoreFailure, err)
	}

	count := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		chatID := e.Name()[:len(e.Name())-len(".json")]
		chat, err := s.readLocked(chatID)
		if err != nil {
			return count, err
		}
		if chat == nil || chat.Status != StatusInitializing || !chat.CreatedAt.Before(cutoff) {
			continue
		}

		if chat.Keys != nil {
			chat.Keys.SecureWipe(false)
			crypto.Zeroize(chat.Keys.OwnPublic)
			crypto.Zeroize(chat.Keys.PeerPublic)
		}
		chat.Keys = nil
		chat.Status = StatusFailed
		chat.UpdatedAt = time.Now()

		if err := s.saveLocked(chat); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
