package keylet

import (
	"crypto/sha256"
	"errors"

	"filippo.io/edwards25519"
)

const (
	// MaxSeeds is the maximum number of seed components, bump excluded.
	MaxSeeds = 16

	// MaxSeedLength is the maximum length of a single seed component.
	MaxSeedLength = 32

	pdaMarker = "ProgramDerivedAddress"
)

// programNamespace separates this program's derived addresses from any
// other program hashing the same seeds.
var programNamespace = []byte("goCustody/custody-program/v1")

var (
	ErrMaxSeedsExceeded = errors.New("too many seed components")
	ErrMaxSeedLength    = errors.New("seed component too long")
	ErrAddressOnCurve   = errors.New("derived address lies on the ed25519 curve")
	ErrNoViableBumpSeed = errors.New("unable to find a viable bump seed")
)

// CreateProgramAddress rebuilds the address for seeds and bump. It fails when
// the hash is a valid curve point.
func CreateProgramAddress(seeds [][]byte, bump uint8) ([32]byte, error) {
	var addr [32]byte
	if len(seeds) > MaxSeeds {
		return addr, ErrMaxSeedsExceeded
	}

	h := sha256.New()
	for _, s := range seeds {
		if len(s) > MaxSeedLength {
			return addr, ErrMaxSeedLength
		}
		h.Write(s)
	}
	h.Write([]byte{bump})
	h.Write(programNamespace)
	h.Write([]byte(pdaMarker))
	copy(addr[:], h.Sum(nil))

	if IsOnCurve(addr) {
		return [32]byte{}, ErrAddressOnCurve
	}
	return addr, nil
}

// FindProgramAddress searches bumps from 255 down and returns the first
// address that is off the curve.
func FindProgramAddress(seeds ...[]byte) ([32]byte, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, err := CreateProgramAddress(seeds, uint8(bump))
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrAddressOnCurve) {
			return [32]byte{}, 0, err
		}
	}
	return [32]byte{}, 0, ErrNoViableBumpSeed
}

// MustFindProgramAddress is FindProgramAddress for the fixed seed layouts
// built in this package, where an error means a programming mistake.
func MustFindProgramAddress(seeds ...[]byte) ([32]byte, uint8) {
	addr, bump, err := FindProgramAddress(seeds...)
	if err != nil {
		panic("keylet: " + err.Error())
	}
	return addr, bump
}

// IsOnCurve reports whether b decodes as an edwards25519 point.
func IsOnCurve(b [32]byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b[:])
	return err == nil
}
