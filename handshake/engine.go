// SPDX-License-Identifier: LGPL-3.0-or-later

package handshake

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	sagecrypto "github.com/0xEodum/NativeLayer/crypto"
	"github.com/0xEodum/NativeLayer/crypto/keyring"
	"github.com/0xEodum/NativeLayer/internal/logger"
	"github.com/0xEodum/NativeLayer/internal/metrics"
	"github.com/0xEodum/NativeLayer/pending"
	"github.com/0xEodum/NativeLayer/policy"
	"github.com/0xEodum/NativeLayer/store"
)

// Engine is the HandshakeEngine. It consumes decoded handshake messages,
// drives the per-chat state machine, and emits at most one outgoing
// message per inbound message via Transport.
type Engine struct {
	store   *store.Store
	pending *pending.Table
	crypto  *sagecrypto.Engine
	policy  policy.Policy
	transp  Transport
	events  Events
	log     logger.Logger
	locks   *chatLocks
}

// Config bundles an Engine's collaborators.
type Config struct {
	Store     *store.Store
	Pending   *pending.Table
	Crypto    *sagecrypto.Engine
	Policy    policy.Policy
	Transport Transport
	Events    Events
	Logger    logger.Logger
}

// New constructs a HandshakeEngine from its collaborators.
func New(cfg Config) *Engine {
	ev := cfg.Events
	if ev == nil {
		ev = NoopEvents{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &Engine{
		store:   cfg.Store,
		pending: cfg.Pending,
		crypto:  cfg.Crypto,
		policy:  cfg.Policy,
		transp:  cfg.Transport,
		events:  ev,
		log:     log,
		locks:   newChatLocks(),
	}
}

func isAwaitResponse(chat *store.Chat) bool {
	return chat.Status == store.StatusInitializing && chat.Keys != nil &&
		chat.Keys.HasKeypair() && !chat.Keys.HasPeerKey()
}

func isAwaitConfirm(chat *store.Chat) bool {
	return chat.Status == store.StatusInitializing && chat.Keys != nil &&
		chat.Keys.HasKeypair() && chat.Keys.HasPeerKey() && !chat.Keys.IsComplete()
}

// fail marks chat FAILED, wipes its key ring, persists it and reports
// cause through Events. Only a store failure is returned to the caller;
// the handshake failure itself is handled here.
func (e *Engine) fail(chat *store.Chat, cause error) error {
	chat.Status = store.StatusFailed
	chat.UpdatedAt = time.Now()
	if chat.Keys != nil {
		chat.Keys.SecureWipe(false)
		sagecrypto.Zeroize(chat.Keys.OwnPublic)
		sagecrypto.Zeroize(chat.Keys.PeerPublic)
		chat.Keys = nil
	}
	if err := e.store.Save(chat); err != nil {
		e.log.Error("failed to persist FAILED chat", logger.String("chat_id", chat.ID), logger.Error(err))
		return fmt.Errorf("%w: %v", sagecrypto.ErrStoreFailure, err)
	}
	e.events.OnChatFailed(chat.ID, cause)
	metrics.HandshakesFailed.WithLabelValues(errorType(cause)).Inc()
	metrics.ChatsFailed.Inc()
	return nil
}

func errorType(err error) string {
	switch {
	case err == nil:
		return "none"
	default:
		return err.Error()
	}
}

// InitiateChat is the local, user-triggered creation of a chat: it
// generates a fresh KEM keypair, persists an INITIALIZING chat in
// AWAIT_RESPONSE, and emits CHAT_INIT_REQUEST to peerID.
func (e *Engine) InitiateChat(ctx context.Context, peerID, name string) (string, error) {
	chatID := uuid.NewString()
	algorithms := e.policy.LocalTriple()

	public, private, err := e.crypto.GenerateKEMKeyPair(algorithms.KEM)
	if err != nil {
		return "", err
	}

	now := time.Now()
	chat := &store.Chat{
		ID:     chatID,
		Name:   name,
		PeerID: peerID,
		Keys: &keyring.KeyRing{
			OwnPublic:  public,
			OwnPrivate: private,
			Algorithms: algorithms,
		},
		Algorithms:   algorithms,
		Status:       store.StatusInitializing,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActivity: now,
	}

	if err := e.store.Save(chat); err != nil {
		return "", fmt.Errorf("%w: %v", sagecrypto.ErrStoreFailure, err)
	}

	req := InitRequest{ChatUUID: chatID, PublicKey: public}
	if e.policy.CarriesAlgorithms() {
		req.Algorithms = &algorithms
	}

	metrics.HandshakesInitiated.WithLabelValues("initiator").Inc()
	if err := e.transp.Send(ctx, peerID, TypeInitRequest, req); err != nil {
		e.log.Warn("failed to send INIT_REQUEST", logger.String("chat_id", chatID), logger.Error(err))
	}
	return chatID, nil
}

// HandleInitRequest implements spec §4.5 handle_init_request (responder side).
func (e *Engine) HandleInitRequest(ctx context.Context, fromPeer string, msg InitRequest) error {
	if msg.ChatUUID == "" || len(msg.PublicKey) == 0 {
		e.log.Warn("dropping malformed INIT_REQUEST", logger.String("peer", fromPeer))
		return nil
	}

	var resp *InitResponse
	err := e.locks.withLock(msg.ChatUUID, func() error {
		existing, err := e.store.Get(msg.ChatUUID)
		if err != nil {
			return err
		}
		if existing != nil {
			// Idempotency: duplicate INIT_REQUEST while already past the
			// initial turn is dropped without mutating state.
			e.log.Debug("dropping duplicate INIT_REQUEST", logger.String("chat_id", msg.ChatUUID))
			return nil
		}

		algorithms, err := e.policy.ResolveIncoming(msg.Algorithms)
		if err != nil {
			e.log.Warn("INIT_REQUEST names unsupported algorithms", logger.String("chat_id", msg.ChatUUID), logger.Error(err))
			return nil
		}

		ownPublic, ownPrivate, err := e.crypto.GenerateKEMKeyPair(algorithms.KEM)
		if err != nil {
			e.log.Warn("failed to generate responder keypair", logger.Error(err))
			return nil
		}

		var secretB, capsuleB []byte
		encErr := observeCrypto("encapsulate", string(algorithms.KEM), func() error {
			var err error
			secretB, capsuleB, err = e.crypto.Encapsulate(msg.PublicKey, algorithms.KEM)
			return err
		})
		if encErr != nil {
			e.log.Warn("failed to encapsulate to peer public key", logger.String("chat_id", msg.ChatUUID), logger.Error(encErr))
			return nil
		}

		e.pending.Put(msg.ChatUUID, secretB)

		now := time.Now()
		chat := &store.Chat{
			ID:     msg.ChatUUID,
			PeerID: fromPeer,
			Keys: &keyring.KeyRing{
				OwnPublic:  ownPublic,
				OwnPrivate: ownPrivate,
				PeerPublic: msg.PublicKey,
				Algorithms: algorithms,
			},
			Algorithms:   algorithms,
			Status:       store.StatusInitializing,
			CreatedAt:    now,
			UpdatedAt:    now,
			LastActivity: now,
		}
		if err := e.store.Save(chat); err != nil {
			return fmt.Errorf("%w: %v", sagecrypto.ErrStoreFailure, err)
		}

		r := InitResponse{ChatUUID: msg.ChatUUID, PublicKey: ownPublic, KEMCapsule: capsuleB}
		if e.policy.CarriesAlgorithms() {
			r.Algorithms = &algorithms
		}
		resp = &r
		return nil
	})
	if err != nil || resp == nil {
		return err
	}

	// Sent after the per-chat lock is released: a synchronous transport may
	// deliver the peer's INIT_CONFIRM for this chat back into this engine.
	metrics.HandshakesInitiated.WithLabelValues("responder").Inc()
	if err := e.transp.Send(ctx, fromPeer, TypeInitResponse, *resp); err != nil {
		e.log.Warn("failed to send INIT_RESPONSE", logger.String("chat_id", msg.ChatUUID), logger.Error(err))
	}
	return nil
}

// HandleInitResponse implements spec §4.5 handle_init_response (initiator side).
func (e *Engine) HandleInitResponse(ctx context.Context, fromPeer string, msg InitResponse) error {
	if msg.ChatUUID == "" || len(msg.PublicKey) == 0 || len(msg.KEMCapsule) == 0 {
		e.log.Warn("dropping malformed INIT_RESPONSE", logger.String("peer", fromPeer))
		return nil
	}

	return e.locks.withLock(msg.ChatUUID, func() error {
		chat, err := e.store.Get(msg.ChatUUID)
		if err != nil {
			return err
		}
		if chat == nil || !isAwaitResponse(chat) {
			e.log.Debug("dropping INIT_RESPONSE for unknown or mismatched chat", logger.String("chat_id", msg.ChatUUID))
			return nil
		}

		if e.policy.CarriesAlgorithms() {
			if err := e.policy.CheckMismatch(chat.Algorithms, *derefOrZero(msg.Algorithms)); err != nil {
				return e.fail(chat, err)
			}
		}

		chat.Keys.PeerPublic = msg.PublicKey

		// A decapsulates B's capsule to learn secret_B, the secret B chose.
		var secretB []byte
		if err := observeCrypto("decapsulate", string(chat.Algorithms.KEM), func() error {
			var err error
			secretB, err = e.crypto.Decapsulate(msg.KEMCapsule, chat.Keys.OwnPrivate, chat.Algorithms.KEM)
			return err
		}); err != nil {
			return e.fail(chat, err)
		}

		// A encapsulates a fresh secret_A into B's public key; this capsule,
		// not a second decapsulation of B's own capsule, is what goes out
		// in INIT_CONFIRM.
		var secretA, capsuleA []byte
		if err := observeCrypto("encapsulate", string(chat.Algorithms.KEM), func() error {
			var err error
			secretA, capsuleA, err = e.crypto.Encapsulate(msg.PublicKey, chat.Algorithms.KEM)
			return err
		}); err != nil {
			return e.fail(chat, err)
		}

		if err := e.establish(chat, secretA, secretB); err != nil {
			return err
		}
		sagecrypto.Zeroize(secretA)
		sagecrypto.Zeroize(secretB)

		if err := e.transp.Send(ctx, fromPeer, TypeInitConfirm, InitConfirm{ChatUUID: chat.ID, KEMCapsule: capsuleA}); err != nil {
			e.log.Warn("failed to send INIT_CONFIRM", logger.String("chat_id", chat.ID), logger.Error(err))
		}
		return nil
	})
}

// HandleInitConfirm implements spec §4.5 handle_init_confirm (responder side).
func (e *Engine) HandleInitConfirm(ctx context.Context, fromPeer string, msg InitConfirm) error {
	if msg.ChatUUID == "" || len(msg.KEMCapsule) == 0 {
		e.log.Warn("dropping malformed INIT_CONFIRM", logger.String("peer", fromPeer))
		return nil
	}

	return e.locks.withLock(msg.ChatUUID, func() error {
		chat, err := e.store.Get(msg.ChatUUID)
		if err != nil {
			return err
		}
		if chat == nil || !isAwaitConfirm(chat) {
			e.log.Debug("dropping INIT_CONFIRM for unknown or mismatched chat", logger.String("chat_id", msg.ChatUUID))
			return nil
		}

		var secretA []byte
		if err := observeCrypto("decapsulate", string(chat.Algorithms.KEM), func() error {
			var err error
			secretA, err = e.crypto.Decapsulate(msg.KEMCapsule, chat.Keys.OwnPrivate, chat.Algorithms.KEM)
			return err
		}); err != nil {
			return e.fail(chat, err)
		}

		// The pending-secret source is authoritative over any re-extraction.
		secretB, ok := e.pending.Remove(msg.ChatUUID)
		if !ok {
			return e.fail(chat, sagecrypto.ErrHandshakeDesynchronized)
		}

		if err := e.establish(chat, secretA, secretB); err != nil {
			return err
		}
		sagecrypto.Zeroize(secretA)
		sagecrypto.Zeroize(secretB)
		return nil
	})
}

// HandleInitSignature implements spec §4.5 handle_init_signature (optional,
// either side). P2P mode treats this leg as best-effort: verified only if
// a peer signature public key is available, otherwise ignored.
func (e *Engine) HandleInitSignature(ctx context.Context, fromPeer string, msg InitSignature, peerSigPublicKey []byte) error {
	if len(peerSigPublicKey) == 0 {
		e.log.Debug("no peer signature key available, ignoring INIT_SIGNATURE", logger.String("chat_id", msg.ChatUUID))
		return nil
	}

	chat, err := e.store.Get(msg.ChatUUID)
	if err != nil || chat == nil {
		return err
	}

	verifyErr := observeCrypto("verify", string(chat.Algorithms.Signature), func() error {
		return e.crypto.Verify([]byte(chat.Fingerprint), msg.Signature, peerSigPublicKey, chat.Algorithms.Signature)
	})
	if verifyErr != nil {
		// Verification failure logs only; the session is already
		// cryptographically established and is not torn down.
		e.log.Warn("INIT_SIGNATURE verification failed", logger.String("chat_id", msg.ChatUUID), logger.Error(verifyErr))
		return nil
	}
	e.log.Info("INIT_SIGNATURE verified", logger.String("chat_id", msg.ChatUUID))
	return nil
}

// establish derives the symmetric key from the two KEM secrets, computes
// the fingerprint, cleans the ring, and commits the single atomic store
// write that is the establishment boundary (spec §4.5 steps 5-9,
// invariant 1 of §8).
func (e *Engine) establish(chat *store.Chat, secretA, secretB []byte) error {
	var symmetric []byte
	if err := observeCrypto("derive_symmetric", string(chat.Algorithms.Symmetric), func() error {
		var err error
		symmetric, err = e.crypto.DeriveSymmetric(secretA, secretB, chat.Algorithms.Symmetric)
		return err
	}); err != nil {
		return e.fail(chat, err)
	}

	fingerprint := e.crypto.Fingerprint(chat.Keys.OwnPublic, chat.Keys.PeerPublic, chat.Algorithms.Symmetric)

	fullRing := chat.Keys
	fullRing.Symmetric = symmetric
	cleaned := fullRing.Established()
	fullRing.SecureWipe(true) // wipes own_private, own_public, peer_public; leaves Symmetric (shared with cleaned) intact

	chat.Keys = cleaned
	chat.LastActivity = time.Now()
	if err := e.store.UpdateEstablishment(chat, fingerprint, store.StatusEstablished); err != nil {
		return fmt.Errorf("%w: %v", sagecrypto.ErrStoreFailure, err)
	}

	metrics.HandshakesCompleted.WithLabelValues("success").Inc()
	metrics.ChatsEstablished.Inc()
	metrics.ChatEstablishmentDuration.Observe(chat.EstablishmentCompletedAt.Sub(chat.CreatedAt).Seconds())
	e.events.OnChatEstablished(ChatSnapshot{ChatID: chat.ID, PeerID: chat.PeerID, Fingerprint: fingerprint})
	return nil
}

// observeCrypto records a CryptoEngine call's outcome and duration under
// the given operation/algorithm labels.
func observeCrypto(op string, alg string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.CryptoOperationDuration.WithLabelValues(op, alg).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CryptoErrors.WithLabelValues(op).Inc()
		return err
	}
	metrics.CryptoOperations.WithLabelValues(op, alg).Inc()
	return nil
}

func derefOrZero(t *sagecrypto.AlgorithmTriple) *sagecrypto.AlgorithmTriple {
	if t != nil {
		return t
	}
	return &sagecrypto.AlgorithmTriple{}
}
