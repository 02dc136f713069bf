// SPDX-License-Identifier: LGPL-3.0-or-later

// Package handshake implements HandshakeEngine: the four-message state
// machine (INIT_REQUEST / INIT_RESPONSE / INIT_CONFIRM / optional
// INIT_SIGNATURE) that turns a sequence of transport-delivered messages
// into an established, per-chat symmetric key.
package handshake

import "github.com/0xEodum/NativeLayer/crypto"

// MessageType is the wire type tag carried by every handshake envelope.
type MessageType string

const (
	TypeInitRequest   MessageType = "CHAT_INIT_REQUEST"
	TypeInitResponse  MessageType = "CHAT_INIT_RESPONSE"
	TypeInitConfirm   MessageType = "CHAT_INIT_CONFIRM"
	TypeInitSignature MessageType = "CHAT_INIT_SIGNATURE"
	TypeDelete        MessageType = "CHAT_DELETE"
)

// InitRequest is CHAT_INIT_REQUEST: the first leg, sent by the initiator.
type InitRequest struct {
	ChatUUID   string
	PublicKey  []byte
	Algorithms *crypto.AlgorithmTriple // required in P2P, absent in server mode
}

// InitResponse is CHAT_INIT_RESPONSE: the responder's reply.
type InitResponse struct {
	ChatUUID      string
	PublicKey     []byte
	KEMCapsule    []byte
	Algorithms    *crypto.AlgorithmTriple // same rule as InitRequest
	UserSignature []byte
}

// InitConfirm is CHAT_INIT_CONFIRM: the initiator's final leg.
type InitConfirm struct {
	ChatUUID   string
	KEMCapsule []byte
}

// InitSignature is the optional CHAT_INIT_SIGNATURE leg.
type InitSignature struct {
	ChatUUID  string
	Signature []byte
}

// DeleteMessage is CHAT_DELETE.
type DeleteMessage struct {
	ChatUUID string
	Reason   string
}
