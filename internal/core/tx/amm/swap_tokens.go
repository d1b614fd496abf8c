package amm

import (
	"errors"

	"github.com/LeJamon/goCustody/internal/core/amount"
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/token"
)

func init() {
	tx.Register(tx.TypeSwapTokens, func() tx.Transaction {
		return &SwapTokens{BaseTx: *tx.NewBaseTx(tx.TypeSwapTokens, tx.AccountID{})}
	})
}

// SwapTokens trades AmountIn against Creator's market.
type SwapTokens struct {
	tx.BaseTx

	Creator tx.AccountID `json:"Creator" codec:"creator"`
	Trader  tx.AccountID `json:"Trader" codec:"trader"`

	AmountIn  uint64    `json:"AmountIn" codec:"amount_in"`
	Direction Direction `json:"Direction" codec:"direction"`

	// Trader accounts default to the trader's associated token accounts
	TraderTokenAccount tx.AccountID `json:"TraderTokenAccount,omitempty" codec:"trader_token_account"`
	TraderSolAccount   tx.AccountID `json:"TraderSolAccount,omitempty" codec:"trader_sol_account"`
}

// NewSwapTokens creates a new SwapTokens operation submitted by the trader
func NewSwapTokens(trader, creator tx.AccountID, amountIn uint64, dir Direction) *SwapTokens {
	return &SwapTokens{
		BaseTx:    *tx.NewBaseTx(tx.TypeSwapTokens, trader),
		Creator:   creator,
		Trader:    trader,
		AmountIn:  amountIn,
		Direction: dir,
	}
}

// TxType returns the operation type
func (s *SwapTokens) TxType() tx.Type {
	return tx.TypeSwapTokens
}

// Validate validates the SwapTokens operation
func (s *SwapTokens) Validate() error {
	if err := s.BaseTx.Validate(); err != nil {
		return err
	}
	if s.Creator.IsZero() || s.Trader.IsZero() {
		return errors.New("temINVALID_ACCOUNT_ID: Creator and Trader are required")
	}
	if s.AmountIn == 0 {
		return errors.New("temBAD_AMOUNT: AmountIn must be positive")
	}
	if s.Direction != SolToToken && s.Direction != TokenToSol {
		return errors.New("temMALFORMED: Direction must be SolToToken or TokenToSol")
	}
	return nil
}

// RequiredSigners returns the submitter and the trader
func (s *SwapTokens) RequiredSigners() []tx.AccountID {
	return tx.UniqueSigners(s.Account, s.Trader)
}

// Scope returns the market record
func (s *SwapTokens) Scope() [32]byte {
	return MarketAddress(s.Creator)
}

// Apply applies a SwapTokens operation
func (s *SwapTokens) Apply(ctx *tx.ApplyContext) tx.Result {
	pool, r := loadPool(ctx, s.Creator)
	if r != tx.TesSUCCESS {
		return r
	}
	market := pool.Market

	tokenAcct := defaultAccount(s.TraderTokenAccount, s.Trader, market.TokenMint)
	solAcct := defaultAccount(s.TraderSolAccount, s.Trader, market.SolMint)
	source, dest := solAcct, tokenAcct
	inputVault, payoutVault := market.SolVault, market.TokenVault
	if s.Direction == TokenToSol {
		source, dest = tokenAcct, solAcct
		inputVault, payoutVault = market.TokenVault, market.SolVault
	}

	have, r := balanceOf(ctx, source)
	if r != tx.TesSUCCESS {
		return r
	}
	if have < s.AmountIn {
		return ctx.Fail(tx.TecINSUFFICIENT_BALANCE, "%s holds %d, swap needs %d", source, have, s.AmountIn)
	}
	recv, r := token.LoadAccount(ctx, dest)
	if r != tx.TesSUCCESS {
		return r
	}
	if recv.Owner != s.Trader {
		return ctx.Fail(tx.TecACCOUNT_MISMATCH, "%s is not owned by %s", dest, s.Trader)
	}

	q, err := Quote(pool, s.AmountIn, s.Direction)
	switch {
	case errors.Is(err, ErrZeroOutput), errors.Is(err, ErrPoolDrained):
		return ctx.Fail(tx.TecAMM_BALANCE, "%v: %d in against (%d, %d)", err, s.AmountIn, pool.TokenBalance, pool.SolBalance)
	case err != nil:
		return ctx.FailErr(err)
	}

	traderAuth, r := ctx.SignerAuthority(s.Trader)
	if r != tx.TesSUCCESS {
		return r
	}
	vaultAuth, r := marketAuthority(ctx, market)
	if r != tx.TesSUCCESS {
		return r
	}
	if r := token.Transfer(ctx, s.AmountIn, source, inputVault, traderAuth); r != tx.TesSUCCESS {
		return r
	}
	if r := token.Transfer(ctx, q.AmountOut, payoutVault, dest, vaultAuth); r != tx.TesSUCCESS {
		return r
	}

	inputAfter, r := balanceOf(ctx, inputVault)
	if r != tx.TesSUCCESS {
		return r
	}
	payoutAfter, r := balanceOf(ctx, payoutVault)
	if r != tx.TesSUCCESS {
		return r
	}
	if r := q.verify(ctx, inputAfter, payoutAfter); r != tx.TesSUCCESS {
		return r
	}

	ctx.Emit(EventSwap, MarketAddress(s.Creator), map[string]any{
		"trader":     s.Trader.String(),
		"direction":  s.Direction.String(),
		"amount_in":  s.AmountIn,
		"fee":        q.Fee,
		"amount_out": q.AmountOut,
		"product":    amount.Product(inputAfter, payoutAfter).Dec(),
	})
	return tx.TesSUCCESS
}
