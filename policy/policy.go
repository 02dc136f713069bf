// SPDX-License-Identifier: LGPL-3.0-or-later

// Package policy implements AlgorithmPolicy: the P2P-vs-server-mode rules
// that decide which AlgorithmTriple governs a handshake, per spec §4.6.
package policy

import (
	"fmt"

	"github.com/0xEodum/NativeLayer/crypto"
)

// Policy produces and validates the algorithm triple governing a
// handshake.
type Policy interface {
	// LocalTriple returns the triple to use when this side initiates a
	// chat.
	LocalTriple() crypto.AlgorithmTriple

	// ResolveIncoming determines the triple to adopt for a chat created
	// from an inbound INIT_REQUEST. incoming is the triple carried on the
	// wire, or nil if the message omitted it.
	ResolveIncoming(incoming *crypto.AlgorithmTriple) (crypto.AlgorithmTriple, error)

	// CarriesAlgorithms reports whether outbound messages for this policy
	// must carry the algorithms field on the wire (true for P2P, false
	// for server mode).
	CarriesAlgorithms() bool

	// CheckMismatch validates that a later-arriving triple (e.g. the one
	// carried on INIT_RESPONSE) agrees with the one recorded when the
	// chat was created. Server mode never reports mismatch since it
	// ignores wire-carried algorithms.
	CheckMismatch(recorded, arriving crypto.AlgorithmTriple) error
}

// P2P implements the peer-to-peer AlgorithmPolicy: algorithms are carried
// in every handshake message, and a locally-originated chat uses the
// local preference triple.
type P2P struct {
	Preference crypto.AlgorithmTriple
}

func (p P2P) LocalTriple() crypto.AlgorithmTriple { return p.Preference }

func (p P2P) ResolveIncoming(incoming *crypto.AlgorithmTriple) (crypto.AlgorithmTriple, error) {
	if incoming == nil || !incoming.Valid() {
		return crypto.AlgorithmTriple{}, fmt.Errorf("%w: p2p handshake message missing algorithms", crypto.ErrAlgorithmUnsupported)
	}
	return *incoming, nil
}

func (p P2P) CarriesAlgorithms() bool { return true }

func (p P2P) CheckMismatch(recorded, arriving crypto.AlgorithmTriple) error {
	if !recorded.Equal(arriving) {
		return crypto.ErrAlgorithmMismatch
	}
	return nil
}

// Server implements the organization-mediated AlgorithmPolicy: the triple
// is fixed by organization metadata fetched at login and cached; wire
// messages never carry it, and any algorithm field present is ignored.
type Server struct {
	Cached crypto.AlgorithmTriple
}

func (s Server) LocalTriple() crypto.AlgorithmTriple { return s.Cached }

func (s Server) ResolveIncoming(_ *crypto.AlgorithmTriple) (crypto.AlgorithmTriple, error) {
	return s.Cached, nil
}

func (s Server) CarriesAlgorithms() bool { return false }

func (s Server) CheckMismatch(_, _ crypto.AlgorithmTriple) error {
	return nil
}
