// SPDX-License-Identifier: LGPL-3.0-or-later

package handshake

import "context"

// Transport is the abstract sink for outgoing handshake messages. Concrete
// implementations (server-mediated, LAN P2P) are out of scope for this
// core; the engine only ever calls Send, never holding a store lock
// across the call (spec §5: persist first, then emit).
type Transport interface {
	// Send delivers msg (one of the Init* types in types.go) to peerID.
	// The transport guarantees at-least-once delivery; it is the
	// handshake protocol's job to be idempotent at the message level.
	// Failure to send is logged by the caller; there is no automatic
	// retry from the core.
	Send(ctx context.Context, peerID string, msgType MessageType, msg any) error
}

// Events is the UI bridge notification surface. Nothing in the handshake
// path raises to the UI except through this explicit channel.
type Events interface {
	OnChatEstablished(chat ChatSnapshot)
	OnChatFailed(chatID string, err error)
}

// ChatSnapshot is the subset of a Chat record safe to hand to the UI
// bridge: no private key material, ever.
type ChatSnapshot struct {
	ChatID      string
	PeerID      string
	Fingerprint string
}

// NoopEvents discards every event; useful for tests and callers that poll
// the ChatStore directly instead of subscribing.
type NoopEvents struct{}

func (NoopEvents) OnChatEstablished(ChatSnapshot) {}
func (NoopEvents) OnChatFailed(string, error)     {}
