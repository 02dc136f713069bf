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

// Package crypto implements the cryptographic engine that drives chat
// key establishment: KEM keygen/encapsulate/decapsulate, order-invariant
// symmetric key derivation, signatures, fingerprinting and zeroization.
package crypto

import "errors"

// KEM identifies a post-quantum key encapsulation mechanism.
type KEM string

const (
	KEMKyber512  KEM = "Kyber512"
	KEMKyber768  KEM = "Kyber768"
	KEMKyber1024 KEM = "Kyber1024"
)

// Symmetric identifies the AEAD used for the derived chat key.
type Symmetric string

const (
	SymmetricAES256GCM    Symmetric = "AES-256"
	SymmetricChaCha20Poly Symmetric = "CHACHA20"
)

// Signature identifies a post-quantum signature scheme.
type Signature string

const (
	SignatureDilithium2 Signature = "Dilithium2"
	SignatureDilithium3 Signature = "Dilithium3"
	SignatureDilithium5 Signature = "Dilithium5"
	SignatureFalcon512  Signature = "FALCON"
)

// AlgorithmTriple is the immutable (KEM, symmetric, signature) choice that
// governs a single chat's handshake. All three fields must be non-empty.
type AlgorithmTriple struct {
	KEM       KEM       `json:"asymmetric"`
	Symmetric Symmetric `json:"symmetric"`
	Signature Signature `json:"signature"`
}

// Valid reports whether all three fields are populated.
func (t AlgorithmTriple) Valid() bool {
	return t.KEM != "" && t.Symmetric != "" && t.Signature != ""
}

// Equal reports whether two triples name the same algorithms.
func (t AlgorithmTriple) Equal(o AlgorithmTriple) bool {
	return t.KEM == o.KEM && t.Symmetric == o.Symmetric && t.Signature == o.Signature
}

// Protocol-level error kinds (spec §7). These are sentinel values; callers
// should compare with errors.Is since handlers wrap them with context.
var (
	ErrAlgorithmUnsupported    = errors.New("crypto: algorithm unsupported")
	ErrAlgorithmMismatch       = errors.New("crypto: algorithm mismatch")
	ErrInvalidKey              = errors.New("crypto: invalid key")
	ErrDecapsulationFailed     = errors.New("crypto: decapsulation failed")
	ErrInvalidSignature        = errors.New("crypto: invalid signature")
	ErrHandshakeDesynchronized = errors.New("crypto: handshake desynchronized")
	ErrStoreFailure            = errors.New("crypto: store failure")
)

// symmetricKeySize returns the key length in bytes required by alg.
func symmetricKeySize(alg Symmetric) int {
	switch alg {
	case SymmetricAES256GCM, SymmetricChaCha20Poly:
		return 32
	default:
		return 0
	}
}
