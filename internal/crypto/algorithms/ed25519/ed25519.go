package ed25519

import (
	"crypto/ed25519"
	"errors"

	crypto "github.com/LeJamon/goCustody/internal/crypto/common"
)

const (
	// PublicKeySize is the size of an identity public key.
	PublicKeySize = ed25519.PublicKeySize

	// SignatureSize is the size of an operation signature.
	SignatureSize = ed25519.SignatureSize
)

// Common error definitions
var (
	ErrInvalidPrivateKey = errors.New("invalid private key format")
	ErrInvalidSignature  = errors.New("invalid signature format")
)

// Keypair is an ed25519 signing key with its public half.
type Keypair struct {
	Public  [PublicKeySize]byte
	private ed25519.PrivateKey
}

// GenerateKeypair derives a keypair deterministically from seed material.
// The seed is hashed with Sha512Half so any length of seed phrase is accepted.
func GenerateKeypair(seed []byte) *Keypair {
	keyMaterial := crypto.Sha512Half(seed)
	priv := ed25519.NewKeyFromSeed(keyMaterial[:])

	kp := &Keypair{private: priv}
	copy(kp.Public[:], priv.Public().(ed25519.PublicKey))
	return kp
}

// FromPrivateKey rebuilds a keypair from a 64 byte ed25519 private key.
func FromPrivateKey(priv []byte) (*Keypair, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, ErrInvalidPrivateKey
	}
	kp := &Keypair{private: ed25519.PrivateKey(append([]byte(nil), priv...))}
	copy(kp.Public[:], kp.private.Public().(ed25519.PublicKey))
	return kp, nil
}

// Sign signs message with the keypair's private key.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.private, message)
}

// Verify reports whether signature is a valid signature of message by pub.
func Verify(pub [PublicKeySize]byte, message, signature []byte) bool {
	if len(signature) != SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub[:]), message, signature)
}
