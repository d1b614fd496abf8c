// Package token implements custodial token accounts: the transfer and close
// primitives shared by the escrow and AMM programs, and the CreateMint,
// CreateTokenAccount, MintTo and TokenTransfer operations.
package token

import (
	"github.com/LeJamon/goCustody/internal/core/amount"
	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
)

// MaxNameLength is the longest mint name, the limit of one address seed
const MaxNameLength = keylet.MaxSeedLength

// LoadAccount reads the token account stored at addr.
func LoadAccount(ctx *tx.ApplyContext, addr tx.AccountID) (*sle.TokenAccount, tx.Result) {
	var acct sle.TokenAccount
	if r := ctx.Load(keylet.TokenAccount(addr), &acct); r != tx.TesSUCCESS {
		return nil, r
	}
	return &acct, tx.TesSUCCESS
}

// LoadMint reads the mint stored at addr.
func LoadMint(ctx *tx.ApplyContext, addr tx.AccountID) (*sle.Mint, tx.Result) {
	var m sle.Mint
	if r := ctx.Load(keylet.MintAt(addr), &m); r != tx.TesSUCCESS {
		return nil, r
	}
	return &m, tx.TesSUCCESS
}

// OpenAccount creates an empty token account of mint at addr, owned by
// owner. payer posts the entry reserve.
func OpenAccount(ctx *tx.ApplyContext, addr, mint, owner, payer tx.AccountID) tx.Result {
	reserve, r := ctx.PostReserve(payer)
	if r != tx.TesSUCCESS {
		return r
	}
	return ctx.Create(keylet.TokenAccount(addr), &sle.TokenAccount{
		Mint:    mint,
		Owner:   owner,
		Reserve: reserve,
	})
}

// Transfer moves amt from the token account at from to the one at to. auth
// must speak for the owner of from. A transfer to the same account only
// checks the preconditions.
func Transfer(ctx *tx.ApplyContext, amt uint64, from, to tx.AccountID, auth tx.Authority) tx.Result {
	src, r := LoadAccount(ctx, from)
	if r != tx.TesSUCCESS {
		return r
	}
	dst, r := LoadAccount(ctx, to)
	if r != tx.TesSUCCESS {
		return r
	}

	if src.Mint != dst.Mint {
		return ctx.Fail(tx.TecACCOUNT_MISMATCH, "transfer from %s mint to %s mint", src.Mint, dst.Mint)
	}
	if !auth.Authorizes(src.Owner) {
		return ctx.Fail(tx.TefBAD_AUTH, "%s may not move funds of %s", auth.Key(), src.Owner)
	}
	if src.Amount < amt {
		return ctx.Fail(tx.TecINSUFFICIENT_BALANCE, "%s holds %d, transfer needs %d", from, src.Amount, amt)
	}
	if from == to {
		return tx.TesSUCCESS
	}

	credited, err := amount.Add(dst.Amount, amt)
	if err != nil {
		return ctx.FailErr(err)
	}
	src.Amount -= amt
	dst.Amount = credited

	if r := ctx.Save(keylet.TokenAccount(from), src); r != tx.TesSUCCESS {
		return r
	}
	return ctx.Save(keylet.TokenAccount(to), dst)
}

// Close removes the empty token account at addr and credits its reserve to
// dest. auth must speak for the account owner.
func Close(ctx *tx.ApplyContext, addr tx.AccountID, auth tx.Authority, dest tx.AccountID) tx.Result {
	acct, r := LoadAccount(ctx, addr)
	if r != tx.TesSUCCESS {
		return r
	}
	if !auth.Authorizes(acct.Owner) {
		return ctx.Fail(tx.TefBAD_AUTH, "%s may not close account of %s", auth.Key(), acct.Owner)
	}
	if acct.Amount != 0 {
		return ctx.Fail(tx.TecACCOUNT_NOT_EMPTY, "%s still holds %d", addr, acct.Amount)
	}

	if r := ctx.ReturnReserve(dest, acct.Reserve); r != tx.TesSUCCESS {
		return r
	}
	return ctx.Remove(keylet.TokenAccount(addr))
}
