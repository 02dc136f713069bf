// SPDX-License-Identifier: LGPL-3.0-or-later

package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/0xEodum/NativeLayer/crypto"
	"github.com/0xEodum/NativeLayer/crypto/keyring"
)

// blobVersion is the 2-byte version tag prefixing every keys_blob.
const blobVersion uint16 = 1

// encodeBlob serializes a KeyRing into the versioned, length-prefixed
// binary layout named in spec §6: a 2-byte version tag followed by a
// uint32 length prefix and bytes for each of the four ring members, in
// fixed order, followed by the three algorithm identifiers (each a
// 1-byte length prefix and the identifier bytes).
func encodeBlob(k *keyring.KeyRing) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, blobVersion)

	writeField(&buf, k.OwnPublic)
	writeField(&buf, k.OwnPrivate)
	writeField(&buf, k.PeerPublic)
	writeField(&buf, k.Symmetric)

	writeTag(&buf, string(k.Algorithms.KEM))
	writeTag(&buf, string(k.Algorithms.Symmetric))
	writeTag(&buf, string(k.Algorithms.Signature))

	return buf.Bytes()
}

func writeField(buf *bytes.Buffer, field []byte) {
	_ = binary.Write(buf, binary.BigEndian, uint32(len(field)))
	buf.Write(field)
}

func writeTag(buf *bytes.Buffer, tag string) {
	buf.WriteByte(byte(len(tag)))
	buf.WriteString(tag)
}

// decodeBlob parses the layout written by encodeBlob. On any structural
// error it returns a non-nil error; the caller (per spec §4.3) still
// returns the chat with a nil key ring rather than failing the whole read.
func decodeBlob(data []byte) (*keyring.KeyRing, error) {
	r := bytes.NewReader(data)

	var version uint16
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, fmt.Errorf("store: read blob version: %w", err)
	}
	if version != blobVersion {
		return nil, fmt.Errorf("store: unsupported blob version %d", version)
	}

	fields := make([][]byte, 4)
	for i := range fields {
		f, err := readField(r)
		if err != nil {
			return nil, fmt.Errorf("store: read blob field %d: %w", i, err)
		}
		fields[i] = f
	}

	kemTag, err := readTag(r)
	if err != nil {
		return nil, fmt.Errorf("store: read kem tag: %w", err)
	}
	symTag, err := readTag(r)
	if err != nil {
		return nil, fmt.Errorf("store: read symmetric tag: %w", err)
	}
	sigTag, err := readTag(r)
	if err != nil {
		return nil, fmt.Errorf("store: read signature tag: %w", err)
	}

	return &keyring.KeyRing{
		OwnPublic:  fields[0],
		OwnPrivate: fields[1],
		PeerPublic: fields[2],
		Symmetric:  fields[3],
		Algorithms: crypto.AlgorithmTriple{
			KEM:       crypto.KEM(kemTag),
			Symmetric: crypto.Symmetric(symTag),
			Signature: crypto.Signature(sigTag),
		},
	}, nil
}

func readField(r *bytes.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func readTag(r *bytes.Reader) (string, error) {
	length, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}
	out := make([]byte, length)
	if _, err := io.ReadFull(r, out); err != nil {
		return "", err
	}
	return string(out), nil
}
