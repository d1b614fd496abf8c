package amm

import (
	"errors"

	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
	"github.com/LeJamon/goCustody/internal/core/tx/token"
)

func init() {
	tx.Register(tx.TypeAMMSetup, func() tx.Transaction {
		return &AMMSetup{BaseTx: *tx.NewBaseTx(tx.TypeAMMSetup, tx.AccountID{})}
	})
}

// AMMSetup creates the market of Creator with two empty vaults. The market
// trades on creation, once liquidity is added.
type AMMSetup struct {
	tx.BaseTx

	// Creator keys the market and pays its reserves (required)
	Creator tx.AccountID `json:"Creator" codec:"creator"`

	TokenMint tx.AccountID `json:"TokenMint" codec:"token_mint"`
	SolMint   tx.AccountID `json:"SolMint" codec:"sol_mint"`

	// The swap fee is FeeNumerator/FeeDenominator of the input
	FeeNumerator   uint64 `json:"FeeNumerator" codec:"fee_numerator"`
	FeeDenominator uint64 `json:"FeeDenominator" codec:"fee_denominator"`
}

// NewAMMSetup creates a new AMMSetup operation submitted by the creator
func NewAMMSetup(creator, tokenMint, solMint tx.AccountID, feeNum, feeDen uint64) *AMMSetup {
	return &AMMSetup{
		BaseTx:         *tx.NewBaseTx(tx.TypeAMMSetup, creator),
		Creator:        creator,
		TokenMint:      tokenMint,
		SolMint:        solMint,
		FeeNumerator:   feeNum,
		FeeDenominator: feeDen,
	}
}

// TxType returns the operation type
func (s *AMMSetup) TxType() tx.Type {
	return tx.TypeAMMSetup
}

// Validate validates the AMMSetup operation
func (s *AMMSetup) Validate() error {
	if err := s.BaseTx.Validate(); err != nil {
		return err
	}
	if s.Creator.IsZero() || s.TokenMint.IsZero() || s.SolMint.IsZero() {
		return errors.New("temINVALID_ACCOUNT_ID: Creator, TokenMint and SolMint are required")
	}
	if s.TokenMint == s.SolMint {
		return errors.New("temBAD_AMM_TOKENS: TokenMint equals SolMint")
	}
	if s.FeeDenominator == 0 {
		return errors.New("temBAD_FEE: FeeDenominator is zero")
	}
	if s.FeeNumerator >= s.FeeDenominator {
		return errors.New("temBAD_FEE: FeeNumerator must be below FeeDenominator")
	}
	return nil
}

// RequiredSigners returns the submitter and the creator
func (s *AMMSetup) RequiredSigners() []tx.AccountID {
	return tx.UniqueSigners(s.Account, s.Creator)
}

// Scope returns the market record
func (s *AMMSetup) Scope() [32]byte {
	return MarketAddress(s.Creator)
}

// Apply applies an AMMSetup operation
func (s *AMMSetup) Apply(ctx *tx.ApplyContext) tx.Result {
	for _, m := range []tx.AccountID{s.TokenMint, s.SolMint} {
		if _, r := token.LoadMint(ctx, m); r != tx.TesSUCCESS {
			return r
		}
	}

	marketKey := marketKeylet(s.Creator)
	exists, err := ctx.View.Exists(marketKey.Keylet)
	if err != nil {
		return ctx.FailErr(err)
	}
	if exists {
		return ctx.Fail(tx.TecDUPLICATE, "market of %s already exists", s.Creator)
	}

	tokenVault := keylet.TokenVault(marketKey.Key, s.Creator)
	solVault := keylet.SolVault(marketKey.Key, s.Creator)

	reserve, r := ctx.PostReserve(s.Creator)
	if r != tx.TesSUCCESS {
		return r
	}
	market := &sle.MarketState{
		Creator:        s.Creator,
		TokenMint:      s.TokenMint,
		SolMint:        s.SolMint,
		FeeNumerator:   s.FeeNumerator,
		FeeDenominator: s.FeeDenominator,
		TokenVault:     tokenVault.Key,
		SolVault:       solVault.Key,
		StateBump:      marketKey.Bump,
		TokenVaultBump: tokenVault.Bump,
		SolVaultBump:   solVault.Bump,
		Reserve:        reserve,
	}
	if r := ctx.Create(marketKey.Keylet, market); r != tx.TesSUCCESS {
		return r
	}
	if r := token.OpenAccount(ctx, tokenVault.Key, s.TokenMint, marketKey.Key, s.Creator); r != tx.TesSUCCESS {
		return r
	}
	if r := token.OpenAccount(ctx, solVault.Key, s.SolMint, marketKey.Key, s.Creator); r != tx.TesSUCCESS {
		return r
	}

	ctx.Emit(EventSetup, marketKey.Key, map[string]any{
		"creator":         s.Creator.String(),
		"token_mint":      s.TokenMint.String(),
		"sol_mint":        s.SolMint.String(),
		"fee_numerator":   s.FeeNumerator,
		"fee_denominator": s.FeeDenominator,
	})
	return tx.TesSUCCESS
}
