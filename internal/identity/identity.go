// Package identity defines a peer's cryptographic identity: a Curve25519
// keypair used directly as the Noise static key during transport
// handshake, and its canonical base58 string form used for display and
// directory keys.
package identity

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/flynn/noise"
	"github.com/mr-tron/base58"
)

const idSize = 32

// ID is a peer's public identity: its Curve25519 public key.
type ID [idSize]byte

var ErrBadIDLength = errors.New("identity: wrong id length")

// String returns the canonical base58 form of the id, the form used in
// chat logs, directory keys, and the /me command.
func (id ID) String() string {
	return base58.Encode(id[:])
}

// Short returns an 8-hex-character fingerprint, used where a full base58
// id would be too wide (progress lines, inline mentions).
func (id ID) Short() string {
	return hex.EncodeToString(id[:4])
}

// ParseID decodes a base58-encoded identity string.
func ParseID(s string) (ID, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return ID{}, fmt.Errorf("identity: decode: %w", err)
	}
	if len(b) != idSize {
		return ID{}, ErrBadIDLength
	}
	var id ID
	copy(id[:], b)
	return id, nil
}

// Keypair is a local identity's Noise static handshake key material.
type Keypair struct {
	Public  ID
	Private [idSize]byte
}

// Generate creates a fresh random Curve25519 identity keypair, usable
// directly as a Noise DH25519 static keypair.
func Generate() (Keypair, error) {
	kp, err := noise.DH25519.GenerateKeypair(nil)
	if err != nil {
		return Keypair{}, fmt.Errorf("identity: generate: %w", err)
	}
	var id ID
	copy(id[:], kp.Public)
	var priv [idSize]byte
	copy(priv[:], kp.Private)
	return Keypair{Public: id, Private: priv}, nil
}

// NoiseKeypair adapts the identity keypair into the form flynn/noise's
// handshake state expects as a static key.
func (k Keypair) NoiseKeypair() noise.DHKey {
	return noise.DHKey{Public: k.Public[:], Private: k.Private[:]}
}
