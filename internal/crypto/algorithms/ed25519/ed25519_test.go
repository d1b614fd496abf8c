package ed25519

import (
	"testing"
)

func TestED25519GenerateKeypair(t *testing.T) {
	a := GenerateKeypair([]byte("test seed for ed25519"))
	b := GenerateKeypair([]byte("test seed for ed25519"))
	c := GenerateKeypair([]byte("another seed"))

	if a.Public != b.Public {
		t.Errorf("same seed produced different keys")
	}
	if a.Public == c.Public {
		t.Errorf("different seeds produced the same key")
	}
}

func TestED25519SignAndVerify(t *testing.T) {
	kp := GenerateKeypair([]byte("test seed for ed25519"))
	message := []byte("test message")

	signature := kp.Sign(message)

	if !Verify(kp.Public, message, signature) {
		t.Error("Signature verification failed")
	}

	// Verify with wrong message
	if Verify(kp.Public, []byte("wrong message"), signature) {
		t.Error("Verification should fail with wrong message")
	}

	// Verify with truncated signature
	if Verify(kp.Public, message, signature[:10]) {
		t.Error("Verification should fail with a short signature")
	}
}

func TestED25519FromPrivateKey(t *testing.T) {
	kp := GenerateKeypair([]byte("round trip"))

	restored, err := FromPrivateKey(kp.private)
	if err != nil {
		t.Fatalf("FromPrivateKey failed: %v", err)
	}
	if restored.Public != kp.Public {
		t.Errorf("restored public key mismatch")
	}

	if _, err := FromPrivateKey([]byte{1, 2, 3}); err != ErrInvalidPrivateKey {
		t.Errorf("expected ErrInvalidPrivateKey, got %v", err)
	}
}
