// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/cloudflare/circl/kem"
	kemschemes "github.com/cloudflare/circl/kem/schemes"
	"github.com/cloudflare/circl/sign"
	sigschemes "github.com/cloudflare/circl/sign/schemes"
	"golang.org/x/crypto/hkdf"
)

// kdfInfo is the fixed domain-separation label for derive_symmetric.
const kdfInfo = "yumsg/chat-key/v1"

// Engine is the stateless cryptographic engine. All operations are pure
// functions over byte slices parameterized by an AlgorithmTriple; an Engine
// holds no secret state of its own and is safe for concurrent use from any
// goroutine.
type Engine struct{}

// NewEngine returns a ready-to-use CryptoEngine.
func NewEngine() *Engine {
	return &Engine{}
}

func kemScheme(k KEM) (kem.Scheme, error) {
	scheme := kemschemes.ByName(string(k))
	if scheme == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlgorithmUnsupported, k)
	}
	return scheme, nil
}

func sigScheme(s Signature) (sign.Scheme, error) {
	name := string(s)
	if s == SignatureFalcon512 {
		name = "Falcon-512"
	}
	scheme := sigschemes.ByName(name)
	if scheme == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlgorithmUnsupported, s)
	}
	return scheme, nil
}

// GenerateKEMKeyPair produces a fresh KEM keypair for the given algorithm.
func (e *Engine) GenerateKEMKeyPair(k KEM) (public, private []byte, err error) {
	scheme, err := kemScheme(k)
	if err != nil {
		return nil, nil, err
	}
	pub, priv, err := scheme.GenerateKeyPair()
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: generate keypair: %w", err)
	}
	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: marshal public key: %w", err)
	}
	privBytes, err := priv.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: marshal private key: %w", err)
	}
	return pubBytes, privBytes, nil
}

// Encapsulate produces a fresh random secret and its encapsulation to peerPublic.
func (e *Engine) Encapsulate(peerPublic []byte, k KEM) (secret, capsule []byte, err error) {
	scheme, err := kemScheme(k)
	if err != nil {
		return nil, nil, err
	}
	if len(peerPublic) != scheme.PublicKeySize() {
		return nil, nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, scheme.PublicKeySize(), len(peerPublic))
	}
	pub, err := scheme.UnmarshalBinaryPublicKey(peerPublic)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	ct, ss, err := scheme.Encapsulate(pub)
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: encapsulate: %w", err)
	}
	return ss, ct, nil
}

// Decapsulate recovers the shared secret from capsule using ownPrivate.
func (e *Engine) Decapsulate(capsule, ownPrivate []byte, k KEM) (secret []byte, err error) {
	scheme, err := kemScheme(k)
	if err != nil {
		return nil, err
	}
	if len(ownPrivate) != scheme.PrivateKeySize() {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, scheme.PrivateKeySize(), len(ownPrivate))
	}
	if len(capsule) != scheme.CiphertextSize() {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrDecapsulationFailed, scheme.CiphertextSize(), len(capsule))
	}
	priv, err := scheme.UnmarshalBinaryPrivateKey(ownPrivate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	ss, err := scheme.Decapsulate(priv, capsule)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecapsulationFailed, err)
	}
	return ss, nil
}

// GenerateSignatureKeyPair produces a fresh signing keypair for sigAlg,
// used to mint the organization or user identity key behind the optional
// INIT_SIGNATURE leg.
func (e *Engine) GenerateSignatureKeyPair(sigAlg Signature) (public, private []byte, err error) {
	scheme, err := sigScheme(sigAlg)
	if err != nil {
		return nil, nil, err
	}
	pub, priv, err := scheme.GenerateKey()
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: generate signature keypair: %w", err)
	}
	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: marshal signature public key: %w", err)
	}
	privBytes, err := priv.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: marshal signature private key: %w", err)
	}
	return pubBytes, privBytes, nil
}

// canonicalOrder returns a and b in lexicographic order so that both peers,
// regardless of which one is "A", feed the KDF identical bytes.
func canonicalOrder(a, b []byte) (lo, hi []byte) {
	if bytes.Compare(a, b) <= 0 {
		return a, b
	}
	return b, a
}

// DeriveSymmetric is order-invariant: DeriveSymmetric(a, b, alg) ==
// DeriveSymmetric(b, a, alg) for all inputs. It extract-then-expands the
// sorted concatenation of the two KEM secrets with HKDF-SHA256.
func (e *Engine) DeriveSymmetric(secretA, secretB []byte, alg Symmetric) ([]byte, error) {
	size := symmetricKeySize(alg)
	if size == 0 {
		return nil, fmt.Errorf("%w: %s", ErrAlgorithmUnsupported, alg)
	}
	lo, hi := canonicalOrder(secretA, secretB)
	ikm := make([]byte, 0, len(lo)+len(hi))
	ikm = append(ikm, lo...)
	ikm = append(ikm, hi...)
	ikm = append(ikm, []byte(alg)...)

	kdf := hkdf.New(sha256.New, ikm, nil, []byte(kdfInfo))
	key := make([]byte, size)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("crypto: derive symmetric key: %w", err)
	}
	Zeroize(ikm)
	return key, nil
}

// Sign signs data with privateSigKey under sigAlg.
func (e *Engine) Sign(data, privateSigKey []byte, sigAlg Signature) ([]byte, error) {
	scheme, err := sigScheme(sigAlg)
	if err != nil {
		return nil, err
	}
	priv, err := scheme.UnmarshalBinaryPrivateKey(privateSigKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return scheme.Sign(priv, data, nil), nil
}

// Verify verifies signature over data under sigAlg. It returns
// ErrInvalidSignature on mismatch, never a bool.
func (e *Engine) Verify(data, signature, publicSigKey []byte, sigAlg Signature) error {
	scheme, err := sigScheme(sigAlg)
	if err != nil {
		return err
	}
	pub, err := scheme.UnmarshalBinaryPublicKey(publicSigKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if !scheme.Verify(pub, data, signature) {
		return ErrInvalidSignature
	}
	return nil
}

// Fingerprint computes the spec's 32-hex-character stable identifier:
// HEX(SHA-256(sort(own_public, peer_public) || symmetric_alg_tag)).
func (e *Engine) Fingerprint(ownPublic, peerPublic []byte, alg Symmetric) string {
	lo, hi := canonicalOrder(ownPublic, peerPublic)
	h := sha256.New()
	h.Write(lo)
	h.Write(hi)
	h.Write([]byte(alg))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

// FormatFingerprint renders a fingerprint string grouped by 4 hex
// characters with spaces for human out-of-band comparison, e.g. "a1b2 c3d4".
func FormatFingerprint(fp string) string {
	var b bytes.Buffer
	for i, r := range fp {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Zeroize overwrites buf with zeros in place. The writes go through the
// caller's slice, so they are not dropped as dead stores; the compiler
// lowers this range-and-assign loop to a memory clear. The same loop is
// used in the handshake and session code for wiping key material.
func Zeroize(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}
