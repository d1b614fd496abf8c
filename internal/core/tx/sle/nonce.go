package sle

import "github.com/LeJamon/goCustody/internal/core/ledger/entry"

// Nonce records that an operation hash was applied.
type Nonce struct {
	TxHash  [32]byte  `codec:"tx_hash" json:"tx_hash"`
	Account AccountID `codec:"account" json:"account"`
	Seq     uint64    `codec:"seq" json:"seq"`
}

func (n *Nonce) Type() entry.Type { return entry.TypeNonce }

func (n *Nonce) Validate() error { return nil }

// ParseNonce decodes a Nonce entry.
func ParseNonce(data []byte) (*Nonce, error) {
	return parse[Nonce](data)
}
