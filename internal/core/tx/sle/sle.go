// Package sle defines the serialized ledger entries of the custody program.
package sle

import (
	"errors"
	"fmt"
	"reflect"

	addresscodec "github.com/LeJamon/goCustody/internal/codec/address-codec"
	"github.com/LeJamon/goCustody/internal/core/ledger/entry"
	"github.com/ugorji/go/codec"
)

var (
	ErrEmptyEntry    = errors.New("empty ledger entry")
	ErrWrongType     = errors.New("ledger entry type mismatch")
	ErrInvalidStage  = errors.New("invalid escrow stage")
	ErrZeroAccountID = errors.New("account id is zero")
)

var handle = newHandle()

func newHandle() *codec.MsgpackHandle {
	var h codec.MsgpackHandle
	h.WriteExt = true
	h.Canonical = true
	h.RawToString = true
	h.MapType = reflect.TypeOf(map[string]interface{}(nil))
	return &h
}

// AccountID identifies a party, a mint or any derived account.
type AccountID [32]byte

// String returns the base58 form of the id.
func (a AccountID) String() string {
	return addresscodec.Encode(a)
}

// IsZero reports whether the id is unset.
func (a AccountID) IsZero() bool {
	return a == AccountID{}
}

// MarshalText implements encoding.TextMarshaler.
func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *AccountID) UnmarshalText(text []byte) error {
	id, err := addresscodec.Decode(string(text))
	if err != nil {
		return err
	}
	*a = id
	return nil
}

// DecodeAccountID parses a base58 identifier.
func DecodeAccountID(s string) (AccountID, error) {
	id, err := addresscodec.Decode(s)
	return AccountID(id), err
}

// Marshal serializes an entry. The entry type tag is added by the ledger store.
func Marshal(e entry.Entry) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", e.Type(), err)
	}
	var out []byte
	if err := codec.NewEncoderBytes(&out, handle).Encode(e); err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Type(), err)
	}
	return out, nil
}

// Encode serializes any value with the entry codec. Struct fields are
// written in declaration order, so the output is deterministic.
func Encode(v any) ([]byte, error) {
	var out []byte
	if err := codec.NewEncoderBytes(&out, handle).Encode(v); err != nil {
		return nil, err
	}
	return out, nil
}

// Unmarshal decodes data into e.
func Unmarshal(data []byte, e entry.Entry) error {
	if len(data) == 0 {
		return ErrEmptyEntry
	}
	if err := codec.NewDecoderBytes(data, handle).Decode(e); err != nil {
		return fmt.Errorf("decode %s: %w", e.Type(), err)
	}
	if n, ok := e.(normalizer); ok {
		n.Normalize()
	}
	return nil
}

// normalizer is implemented by entries that map stored codes they do not
// know onto a sentinel value after decoding.
type normalizer interface {
	Normalize()
}

// Fields decodes an entry into a generic field map for metadata and RPC output.
// 32 byte values are rendered in base58.
func Fields(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, ErrEmptyEntry
	}
	fields := make(map[string]any)
	if err := codec.NewDecoderBytes(data, handle).Decode(&fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		if b, ok := v.([]byte); ok && len(b) == addresscodec.AddressLength {
			var id [addresscodec.AddressLength]byte
			copy(id[:], b)
			fields[k] = addresscodec.Encode(id)
		}
	}
	return fields, nil
}

func parse[T any, P interface {
	*T
	entry.Entry
}](data []byte) (*T, error) {
	v := P(new(T))
	if err := Unmarshal(data, v); err != nil {
		return nil, err
	}
	return (*T)(v), nil
}
