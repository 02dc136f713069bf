// SPDX-License-Identifier: LGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	sagecrypto "github.com/0xEodum/NativeLayer/crypto"
	"github.com/0xEodum/NativeLayer/handshake"
	"github.com/0xEodum/NativeLayer/pending"
	"github.com/0xEodum/NativeLayer/policy"
	"github.com/0xEodum/NativeLayer/store"
)

var simulateMode string

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run an in-memory two-party handshake and print the result",
	Long: `Drives a complete CHAT_INIT_REQUEST / CHAT_INIT_RESPONSE /
CHAT_INIT_CONFIRM exchange between two in-process HandshakeEngines backed
by temporary ChatStores, and prints both sides' resulting fingerprint.
Useful for smoke-testing an algorithm policy without a real transport.`,
	Example: `  # Simulate a P2P handshake
  yumsg-core simulate --mode p2p

  # Simulate a server-mediated handshake
  yumsg-core simulate --mode server`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVar(&simulateMode, "mode", "p2p", "Algorithm policy mode (p2p, server)")
}

type loopbackTransport struct {
	self string
	peer func(ctx context.Context, fromPeer string, msgType handshake.MessageType, msg any) error
}

func (t *loopbackTransport) Send(ctx context.Context, peerID string, msgType handshake.MessageType, msg any) error {
	return t.peer(ctx, t.self, msgType, msg)
}

func dispatchTo(ctx context.Context, e *handshake.Engine, fromPeer string, msgType handshake.MessageType, msg any) error {
	switch msgType {
	case handshake.TypeInitRequest:
		return e.HandleInitRequest(ctx, fromPeer, msg.(handshake.InitRequest))
	case handshake.TypeInitResponse:
		return e.HandleInitResponse(ctx, fromPeer, msg.(handshake.InitResponse))
	case handshake.TypeInitConfirm:
		return e.HandleInitConfirm(ctx, fromPeer, msg.(handshake.InitConfirm))
	default:
		return fmt.Errorf("simulate: unhandled message type %s", msgType)
	}
}

func runSimulate(cmd *cobra.Command, args []string) error {
	triple := sagecrypto.AlgorithmTriple{
		KEM:       sagecrypto.KEMKyber768,
		Symmetric: sagecrypto.SymmetricAES256GCM,
		Signature: sagecrypto.SignatureDilithium3,
	}

	var pol policy.Policy
	switch simulateMode {
	case "p2p":
		pol = policy.P2P{Preference: triple}
	case "server":
		pol = policy.Server{Cached: triple}
	default:
		return fmt.Errorf("unsupported mode: %s", simulateMode)
	}

	aliceDir, err := os.MkdirTemp("", "yumsg-core-simulate-alice-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(aliceDir)
	bobDir, err := os.MkdirTemp("", "yumsg-core-simulate-bob-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(bobDir)

	aliceStore, err := store.New(aliceDir, nil)
	if err != nil {
		return err
	}
	bobStore, err := store.New(bobDir, nil)
	if err != nil {
		return err
	}

	var aliceEngine, bobEngine *handshake.Engine
	aliceTransport := &loopbackTransport{self: "alice"}
	bobTransport := &loopbackTransport{self: "bob"}
	aliceTransport.peer = func(ctx context.Context, fromPeer string, msgType handshake.MessageType, msg any) error {
		return dispatchTo(ctx, bobEngine, fromPeer, msgType, msg)
	}
	bobTransport.peer = func(ctx context.Context, fromPeer string, msgType handshake.MessageType, msg any) error {
		return dispatchTo(ctx, aliceEngine, fromPeer, msgType, msg)
	}

	aliceEngine = handshake.New(handshake.Config{
		Store:     aliceStore,
		Pending:   pending.New(),
		Crypto:    sagecrypto.NewEngine(),
		Policy:    pol,
		Transport: aliceTransport,
	})
	bobEngine = handshake.New(handshake.Config{
		Store:     bobStore,
		Pending:   pending.New(),
		Crypto:    sagecrypto.NewEngine(),
		Policy:    pol,
		Transport: bobTransport,
	})

	ctx := context.Background()
	chatID, err := aliceEngine.InitiateChat(ctx, "bob", "simulated-chat")
	if err != nil {
		return fmt.Errorf("initiate chat: %w", err)
	}

	aliceChat, err := aliceStore.Get(chatID)
	if err != nil {
		return err
	}
	bobChat, err := bobStore.Get(chatID)
	if err != nil {
		return err
	}
	if aliceChat == nil || bobChat == nil {
		return fmt.Errorf("simulation did not produce a chat on both sides")
	}

	fmt.Printf("chat_id:        %s\n", chatID)
	fmt.Printf("mode:           %s\n", simulateMode)
	fmt.Printf("alice status:   %s\n", aliceChat.Status)
	fmt.Printf("bob status:     %s\n", bobChat.Status)
	fmt.Printf("alice fingerprint: %s\n", sagecrypto.FormatFingerprint(aliceChat.Fingerprint))
	fmt.Printf("bob fingerprint:   %s\n", sagecrypto.FormatFingerprint(bobChat.Fingerprint))
	if aliceChat.Fingerprint != bobChat.Fingerprint {
		return fmt.Errorf("fingerprints diverged: handshake is broken")
	}
	return nil
}
