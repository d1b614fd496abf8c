// Package addresscodec encodes 32 byte ledger identifiers as base58 text.
package addresscodec

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// AddressLength is the decoded length of every identifier.
const AddressLength = 32

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidLength  = errors.New("invalid address length")
)

// Encode returns the base58 form of id.
func Encode(id [AddressLength]byte) string {
	return base58.Encode(id[:])
}

// Decode parses a base58 identifier. The decoded value must be exactly
// AddressLength bytes.
func Decode(s string) ([AddressLength]byte, error) {
	var id [AddressLength]byte
	if s == "" {
		return id, ErrInvalidAddress
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return id, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != AddressLength {
		return id, fmt.Errorf("%w: got %d bytes", ErrInvalidLength, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// IsValid reports whether s decodes to an identifier.
func IsValid(s string) bool {
	_, err := Decode(s)
	return err == nil
}
