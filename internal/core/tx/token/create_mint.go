package token

import (
	"errors"
	"fmt"

	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
)

func init() {
	tx.Register(tx.TypeCreateMint, func() tx.Transaction {
		return &CreateMint{BaseTx: *tx.NewBaseTx(tx.TypeCreateMint, tx.AccountID{})}
	})
}

// CreateMint creates a token kind issued by Authority. The submitting
// account pays the reserve.
type CreateMint struct {
	tx.BaseTx

	// Authority may mint new supply (required)
	Authority tx.AccountID `json:"Authority" codec:"authority"`

	// Name distinguishes the mints of one authority (required)
	Name string `json:"Name" codec:"name"`

	Decimals uint8 `json:"Decimals" codec:"decimals"`
}

// NewCreateMint creates a new CreateMint operation
func NewCreateMint(account, authority tx.AccountID, name string, decimals uint8) *CreateMint {
	return &CreateMint{
		BaseTx:    *tx.NewBaseTx(tx.TypeCreateMint, account),
		Authority: authority,
		Name:      name,
		Decimals:  decimals,
	}
}

// TxType returns the operation type
func (c *CreateMint) TxType() tx.Type {
	return tx.TypeCreateMint
}

// Validate validates the CreateMint operation
func (c *CreateMint) Validate() error {
	if err := c.BaseTx.Validate(); err != nil {
		return err
	}
	if c.Authority.IsZero() {
		return errors.New("temINVALID_ACCOUNT_ID: Authority is required")
	}
	if c.Name == "" {
		return errors.New("temMALFORMED: Name is required")
	}
	if len(c.Name) > MaxNameLength {
		return fmt.Errorf("temMALFORMED: Name exceeds %d bytes", MaxNameLength)
	}
	return nil
}

// RequiredSigners returns the payer and the mint authority
func (c *CreateMint) RequiredSigners() []tx.AccountID {
	return tx.UniqueSigners(c.Account, c.Authority)
}

// Scope returns the address of the new mint
func (c *CreateMint) Scope() [32]byte {
	if len(c.Name) > MaxNameLength {
		// Rejected in preflight
		return c.BaseTx.Scope()
	}
	return keylet.Mint(c.Authority, c.Name).Key
}

// Address returns the address the mint is created at
func (c *CreateMint) Address() tx.AccountID {
	return c.Scope()
}

// Apply applies a CreateMint operation
func (c *CreateMint) Apply(ctx *tx.ApplyContext) tx.Result {
	k := keylet.Mint(c.Authority, c.Name)

	reserve, r := ctx.PostReserve(c.Account)
	if r != tx.TesSUCCESS {
		return r
	}
	if r := ctx.Create(k.Keylet, &sle.Mint{
		Authority: c.Authority,
		Name:      c.Name,
		Decimals:  c.Decimals,
		Reserve:   reserve,
	}); r != tx.TesSUCCESS {
		return r
	}

	ctx.Emit("token.mint_created", k.Key, map[string]any{
		"authority": c.Authority.String(),
		"name":      c.Name,
		"decimals":  c.Decimals,
	})
	return tx.TesSUCCESS
}
