package handshake

import (
	"context"
	"fmt"
	"sync"
)

// memTransport is an in-memory Transport that routes messages directly to
// a registered peer engine, used to drive end-to-end handshake tests
// without a real network.
type memTransport struct {
	mu   sync.Mutex
	self string
	dest map[string]func(ctx context.Context, fromPeer string, msgType MessageType, msg any) error
}

func newMemTransport(self string) *memTransport {
	return &memTransport{self: self, dest: make(map[string]func(context.Context, string, MessageType, any) error)}
}

func (m *memTransport) register(peerID string, handler func(ctx context.Context, fromPeer string, msgType MessageType, msg any) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dest[peerID] = handler
}

func (m *memTransport) Send(ctx context.Context, peerID string, msgType MessageType, msg any) error {
	m.mu.Lock()
	handler, ok := m.dest[peerID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("memtransport: no peer registered for %s", peerID)
	}
	return handler(ctx, m.self, msgType, msg)
}

// dispatch routes a message to the right Engine handler by type, mimicking
// what a real transport's on_message callback would do.
func dispatch(ctx context.Context, e *Engine, fromPeer string, msgType MessageType, msg any) error {
	switch msgType {
	case TypeInitRequest:
		return e.HandleInitRequest(ctx, fromPeer, msg.(InitRequest))
	case TypeInitResponse:
		return e.HandleInitResponse(ctx, fromPeer, msg.(InitResponse))
	case TypeInitConfirm:
		return e.HandleInitConfirm(ctx, fromPeer, msg.(InitConfirm))
	default:
		return fmt.Errorf("memtransport: unhandled message type %s", msgType)
	}
}
