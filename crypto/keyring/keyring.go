// SPDX-License-Identifier: LGPL-3.0-or-later

// Package keyring implements ChatKeyRing: the in-memory per-chat key
// material with the lifecycle invariant that private keys exist only
// before establishment.
package keyring

import (
	"github.com/0xEodum/NativeLayer/crypto"
)

// KeyRing holds up to four fields of key material for a single chat plus
// the algorithm triple that governs it. It performs no I/O.
type KeyRing struct {
	OwnPublic  []byte
	OwnPrivate []byte
	PeerPublic []byte
	Symmetric  []byte

	Algorithms crypto.AlgorithmTriple
}

// HasKeypair reports whether this side's own KEM keypair is present.
func (k *KeyRing) HasKeypair() bool {
	return len(k.OwnPublic) > 0 && len(k.OwnPrivate) > 0
}

// HasPeerKey reports whether the peer's public key has been recorded.
func (k *KeyRing) HasPeerKey() bool {
	return len(k.PeerPublic) > 0
}

// IsComplete reports whether the ring holds a fully-established key.
func (k *KeyRing) IsComplete() bool {
	return k.HasKeypair() && k.HasPeerKey() && len(k.Symmetric) > 0
}

// SecureWipe zeroizes own_private (always) and, when established is true (the
// ring is transitioning to ESTABLISHED), also own_public and peer_public,
// leaving only Symmetric behind. It must be called before the ring's
// backing arrays are released so no unzeroized copy of the private key
// ever reaches the garbage collector unscrubbed.
func (k *KeyRing) SecureWipe(established bool) {
	crypto.Zeroize(k.OwnPrivate)
	k.OwnPrivate = nil

	if established {
		crypto.Zeroize(k.OwnPublic)
		crypto.Zeroize(k.PeerPublic)
		k.OwnPublic = nil
		k.PeerPublic = nil
	}
}

// Established returns a cleaned copy of the ring holding only the
// symmetric key and algorithm triple, as required once a chat transitions
// to ESTABLISHED (spec: "only `symmetric` remains").
func (k *KeyRing) Established() *KeyRing {
	return &KeyRing{
		Symmetric:  k.Symmetric,
		Algorithms: k.Algorithms,
	}
}
