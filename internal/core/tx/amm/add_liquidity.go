package amm

import (
	"errors"

	"github.com/LeJamon/goCustody/internal/core/amount"
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/token"
)

func init() {
	tx.Register(tx.TypeAddLiquidity, func() tx.Transaction {
		return &AddLiquidity{BaseTx: *tx.NewBaseTx(tx.TypeAddLiquidity, tx.AccountID{})}
	})
}

// AddLiquidity deposits into both vaults of Creator's market. The creator is
// the only liquidity provider; no shares are issued.
type AddLiquidity struct {
	tx.BaseTx

	Creator tx.AccountID `json:"Creator" codec:"creator"`

	// TokenAmount drives the deposit (required)
	TokenAmount uint64 `json:"TokenAmount" codec:"token_amount"`

	// SolAmount is only used by the first deposit, which takes both amounts
	// as supplied
	SolAmount uint64 `json:"SolAmount,omitempty" codec:"sol_amount"`

	// Source accounts default to the creator's associated token accounts
	TokenAccount tx.AccountID `json:"TokenAccount,omitempty" codec:"token_account"`
	SolAccount   tx.AccountID `json:"SolAccount,omitempty" codec:"sol_account"`
}

// NewAddLiquidity creates a new AddLiquidity operation submitted by the creator
func NewAddLiquidity(creator tx.AccountID, tokenAmount, solAmount uint64) *AddLiquidity {
	return &AddLiquidity{
		BaseTx:      *tx.NewBaseTx(tx.TypeAddLiquidity, creator),
		Creator:     creator,
		TokenAmount: tokenAmount,
		SolAmount:   solAmount,
	}
}

// TxType returns the operation type
func (l *AddLiquidity) TxType() tx.Type {
	return tx.TypeAddLiquidity
}

// Validate validates the AddLiquidity operation
func (l *AddLiquidity) Validate() error {
	if err := l.BaseTx.Validate(); err != nil {
		return err
	}
	if l.Creator.IsZero() {
		return errors.New("temINVALID_ACCOUNT_ID: Creator is required")
	}
	if l.TokenAmount == 0 {
		return errors.New("temBAD_AMOUNT: TokenAmount must be positive")
	}
	return nil
}

// RequiredSigners returns the submitter and the creator
func (l *AddLiquidity) RequiredSigners() []tx.AccountID {
	return tx.UniqueSigners(l.Account, l.Creator)
}

// Scope returns the market record
func (l *AddLiquidity) Scope() [32]byte {
	return MarketAddress(l.Creator)
}

// Apply applies an AddLiquidity operation
func (l *AddLiquidity) Apply(ctx *tx.ApplyContext) tx.Result {
	pool, r := loadPool(ctx, l.Creator)
	if r != tx.TesSUCCESS {
		return r
	}
	market := pool.Market

	initial := pool.TokenBalance == 0 && pool.SolBalance == 0
	solDeposit := l.SolAmount
	if !initial {
		// Whole sols per token; a pool priced below one sol per token takes none
		if pool.TokenBalance == 0 {
			return ctx.FailErr(amount.ErrDivisionByZero)
		}
		rate := pool.SolBalance / pool.TokenBalance
		var err error
		solDeposit, err = amount.Mul(l.TokenAmount, rate)
		if err != nil {
			return ctx.FailErr(err)
		}
	}

	tokenSrc := defaultAccount(l.TokenAccount, l.Creator, market.TokenMint)
	solSrc := defaultAccount(l.SolAccount, l.Creator, market.SolMint)
	for _, leg := range []struct {
		addr tx.AccountID
		need uint64
	}{{tokenSrc, l.TokenAmount}, {solSrc, solDeposit}} {
		have, r := balanceOf(ctx, leg.addr)
		if r != tx.TesSUCCESS {
			return r
		}
		if have < leg.need {
			return ctx.Fail(tx.TecINSUFFICIENT_BALANCE, "%s holds %d, deposit needs %d", leg.addr, have, leg.need)
		}
	}

	auth, r := ctx.SignerAuthority(l.Creator)
	if r != tx.TesSUCCESS {
		return r
	}
	if r := token.Transfer(ctx, l.TokenAmount, tokenSrc, market.TokenVault, auth); r != tx.TesSUCCESS {
		return r
	}
	if r := token.Transfer(ctx, solDeposit, solSrc, market.SolVault, auth); r != tx.TesSUCCESS {
		return r
	}

	ctx.Emit(EventLiquidity, MarketAddress(l.Creator), map[string]any{
		"creator":       l.Creator.String(),
		"token_amount":  l.TokenAmount,
		"sol_amount":    solDeposit,
		"initial":       initial,
		"token_balance": pool.TokenBalance + l.TokenAmount,
		"sol_balance":   pool.SolBalance + solDeposit,
	})
	return tx.TesSUCCESS
}
