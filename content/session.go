// SPDX-License-Identifier: LGPL-3.0-or-later

package content

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Session encrypts and decrypts message content for one chat, keyed off
// the ChatKeyRing.Symmetric bytes the handshake core produced. It never
// sees KEM or signature key material; its only input is the already
// established shared secret.
type Session struct {
	mu sync.Mutex

	chatID       string
	createdAt    time.Time
	lastUsedAt   time.Time
	messageCount int
	config       Config
	closed       bool

	encryptKey []byte
	aead       cipher.AEAD
}

// NewSession derives an AEAD session from an established chat's
// symmetric key. The SHA-256 of chatID is used as the HKDF salt so that two chats that
// happened to derive equal Symmetric bytes (practically impossible, but
// not assumed away) still get distinct traffic keys.
func NewSession(chatID string, symmetric []byte, cfg Config) (*Session, error) {
	if len(symmetric) == 0 {
		return nil, fmt.Errorf("content: empty symmetric key")
	}

	now := time.Now()
	s := &Session{
		chatID:     chatID,
		createdAt:  now,
		lastUsedAt: now,
		config:     cfg,
	}

	salt := sha256.Sum256([]byte(chatID))
	hkdfEnc := hkdf.New(sha256.New, symmetric, salt[:], []byte("yumsg/content-key/v1"))
	s.encryptKey = make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdfEnc, s.encryptKey); err != nil {
		return nil, fmt.Errorf("content: derive traffic key: %w", err)
	}

	aead, err := chacha20poly1305.New(s.encryptKey)
	if err != nil {
		return nil, fmt.Errorf("content: create aead: %w", err)
	}
	s.aead = aead

	return s, nil
}

// IsExpired reports whether the session has exceeded its configured
// absolute age, idle timeout, or message cap.
func (s *Session) IsExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isExpiredLocked()
}

func (s *Session) isExpiredLocked() bool {
	if s.closed {
		return true
	}
	now := time.Now()
	if s.config.MaxAge > 0 && now.After(s.createdAt.Add(s.config.MaxAge)) {
		return true
	}
	if s.config.IdleTimeout > 0 && now.After(s.lastUsedAt.Add(s.config.IdleTimeout)) {
		return true
	}
	if s.config.MaxMessages > 0 && s.messageCount >= s.config.MaxMessages {
		return true
	}
	return false
}

// Encrypt seals plaintext for this chat. Output format: nonce || ciphertext.
func (s *Session) Encrypt(plaintext []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isExpiredLocked() {
		return nil, fmt.Errorf("content: session %s expired", s.chatID)
	}

	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("content: generate nonce: %w", err)
	}

	ciphertext := s.aead.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, len(nonce)+len(ciphertext))
	copy(out, nonce)
	copy(out[len(nonce):], ciphertext)

	s.lastUsedAt = time.Now()
	s.messageCount++
	return out, nil
}

// Decrypt opens data produced by Encrypt. Expects nonce || ciphertext.
func (s *Session) Decrypt(data []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isExpiredLocked() {
		return nil, fmt.Errorf("content: session %s expired", s.chatID)
	}
	if len(data) < chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("content: ciphertext shorter than nonce")
	}

	nonce := data[:chacha20poly1305.NonceSize]
	ciphertext := data[chacha20poly1305.NonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("content: decrypt: %w", err)
	}

	s.lastUsedAt = time.Now()
	s.messageCount++
	return plaintext, nil
}

// Close zeroizes the derived traffic key and marks the session unusable.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for i := range s.encryptKey {
		s.encryptKey[i] = 0
	}
	return nil
}

// ChatID returns the chat this session encrypts content for.
func (s *Session) ChatID() string { return s.chatID }

// MessageCount returns the number of Encrypt/Decrypt calls served.
func (s *Session) MessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageCount
}
