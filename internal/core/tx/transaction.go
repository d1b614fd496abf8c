package tx

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
	"github.com/LeJamon/goCustody/internal/crypto/algorithms/ed25519"
	crypto "github.com/LeJamon/goCustody/internal/crypto/common"
)

// AccountID is an alias for sle.AccountID
type AccountID = sle.AccountID

// Common errors
var (
	ErrMissingRequiredField   = errors.New("missing required field")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidSignature       = errors.New("invalid signature encoding")
)

// signingPrefix domain-separates operation hashes from every other hash
var signingPrefix = []byte{'O', 'P', 'S', 0x00}

// Transaction is the interface that all operation types must implement
type Transaction interface {
	// TxType returns the operation type
	TxType() Type

	// GetCommon returns the common operation fields
	GetCommon() *Common

	// Validate checks the operation in isolation. Errors are prefixed with
	// the tem code they map to.
	Validate() error

	// RequiredSigners lists the identities whose signatures must be present
	RequiredSigners() []AccountID

	// Scope is the key of the primary record the operation touches.
	// Operations with the same scope are applied in submission order.
	Scope() [32]byte
}

// Appliable is implemented by operation types that can apply themselves to ledger state.
type Appliable interface {
	Apply(ctx *ApplyContext) Result
}

// Signature is one ed25519 signature over the operation hash
type Signature struct {
	Signer    AccountID `json:"Signer"`
	Signature string    `json:"Signature"`
}

// Common contains fields common to all operation types
type Common struct {
	// Account is the submitting identity
	Account         AccountID `json:"Account" codec:"account"`
	TransactionType string    `json:"TransactionType" codec:"transaction_type"`

	// Nonce distinguishes otherwise identical operations
	Nonce uint64 `json:"Nonce,omitempty" codec:"nonce"`

	// Signatures are excluded from the signed payload
	Signatures []Signature `json:"Signatures,omitempty" codec:"-"`
}

// Validate validates the common fields
func (c *Common) Validate() error {
	if c.Account.IsZero() {
		return errors.New("temBAD_SRC_ACCOUNT: Account is required")
	}
	if c.TransactionType == "" {
		return errors.New("temINVALID: TransactionType is required")
	}
	return nil
}

// SignatureFor returns the decoded signature of signer, if present.
func (c *Common) SignatureFor(signer AccountID) ([]byte, bool, error) {
	for _, s := range c.Signatures {
		if s.Signer != signer {
			continue
		}
		sig, err := hex.DecodeString(s.Signature)
		if err != nil {
			return nil, true, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return sig, true, nil
	}
	return nil, false, nil
}

// BaseTx provides a base implementation for operations
type BaseTx struct {
	Common
	txType Type
}

// TxType returns the operation type
func (b *BaseTx) TxType() Type {
	return b.txType
}

// GetCommon returns the common operation fields
func (b *BaseTx) GetCommon() *Common {
	return &b.Common
}

// Validate validates the base operation
func (b *BaseTx) Validate() error {
	return b.Common.Validate()
}

// RequiredSigners defaults to the submitting account
func (b *BaseTx) RequiredSigners() []AccountID {
	return []AccountID{b.Account}
}

// Scope defaults to the submitting account's root entry
func (b *BaseTx) Scope() [32]byte {
	return keylet.Account(b.Account).Key
}

// NewBaseTx creates a new base operation
func NewBaseTx(txType Type, account AccountID) *BaseTx {
	return &BaseTx{
		Common: Common{
			Account:         account,
			TransactionType: txType.String(),
		},
		txType: txType,
	}
}

// Hash returns the operation hash, which is also the signing payload.
func Hash(tx Transaction) ([32]byte, error) {
	body, err := sle.Encode(tx)
	if err != nil {
		return [32]byte{}, fmt.Errorf("encode %s: %w", tx.TxType(), err)
	}
	return crypto.Sha512Half(signingPrefix, body), nil
}

// Sign adds kp's signature over the operation hash, replacing an existing
// signature by the same key.
func Sign(tx Transaction, kp *ed25519.Keypair) error {
	hash, err := Hash(tx)
	if err != nil {
		return err
	}

	c := tx.GetCommon()
	signer := AccountID(kp.Public)
	sig := Signature{Signer: signer, Signature: hex.EncodeToString(kp.Sign(hash[:]))}
	for i := range c.Signatures {
		if c.Signatures[i].Signer == signer {
			c.Signatures[i] = sig
			return nil
		}
	}
	c.Signatures = append(c.Signatures, sig)
	return nil
}

// UniqueSigners returns ids without duplicates, keeping first occurrences.
func UniqueSigners(ids ...AccountID) []AccountID {
	out := make([]AccountID, 0, len(ids))
	for _, id := range ids {
		dup := false
		for _, seen := range out {
			if seen == id {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, id)
		}
	}
	return out
}
