package token

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/LeJamon/goCustody/internal/core/ledger"
	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
	"github.com/LeJamon/goCustody/internal/storage/database/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	alice = tx.AccountID{0xa1}
	bob   = tx.AccountID{0xb0}
	mintA = tx.AccountID{0x0a}
	mintB = tx.AccountID{0x0b}
)

func newContext(t *testing.T, reserve uint64, signers ...tx.AccountID) *tx.ApplyContext {
	t.Helper()
	l, err := ledger.New(memory.NewDB())
	require.NoError(t, err)
	table := tx.NewApplyStateTable(l.View(context.Background()))
	return tx.NewApplyContext(table, tx.EngineConfig{EntryReserve: reserve}, zaptest.NewLogger(t), signers...)
}

func putAccount(t *testing.T, ctx *tx.ApplyContext, addr, mint, owner tx.AccountID, amt, reserve uint64) {
	t.Helper()
	r := ctx.Create(keylet.TokenAccount(addr), &sle.TokenAccount{Mint: mint, Owner: owner, Amount: amt, Reserve: reserve})
	require.Equal(t, tx.TesSUCCESS, r, ctx.Reason())
}

func balanceOf(t *testing.T, ctx *tx.ApplyContext, addr tx.AccountID) uint64 {
	t.Helper()
	acct, r := LoadAccount(ctx, addr)
	require.Equal(t, tx.TesSUCCESS, r, ctx.Reason())
	return acct.Amount
}

func TestTransfer(t *testing.T) {
	from, to, other := tx.AccountID{1}, tx.AccountID{2}, tx.AccountID{3}

	setup := func(t *testing.T) (*tx.ApplyContext, tx.Authority) {
		ctx := newContext(t, 0, alice)
		putAccount(t, ctx, from, mintA, alice, 100, 0)
		putAccount(t, ctx, to, mintA, bob, 0, 0)
		putAccount(t, ctx, other, mintB, bob, 0, 0)
		auth, r := ctx.SignerAuthority(alice)
		require.Equal(t, tx.TesSUCCESS, r)
		return ctx, auth
	}

	t.Run("moves funds", func(t *testing.T) {
		ctx, auth := setup(t)
		require.Equal(t, tx.TesSUCCESS, Transfer(ctx, 60, from, to, auth))
		assert.Equal(t, uint64(40), balanceOf(t, ctx, from))
		assert.Equal(t, uint64(60), balanceOf(t, ctx, to))
	})

	t.Run("insufficient balance", func(t *testing.T) {
		ctx, auth := setup(t)
		assert.Equal(t, tx.TecINSUFFICIENT_BALANCE, Transfer(ctx, 101, from, to, auth))
		assert.Equal(t, uint64(100), balanceOf(t, ctx, from))
	})

	t.Run("wrong authority", func(t *testing.T) {
		ctx, _ := setup(t)
		assert.Equal(t, tx.TefBAD_AUTH, Transfer(ctx, 1, from, to, tx.Authority{}))

		d := keylet.MarketState(alice)
		derived, r := ctx.DeriveAuthority(d.Seeds, d.Bump)
		require.Equal(t, tx.TesSUCCESS, r)
		assert.Equal(t, tx.TefBAD_AUTH, Transfer(ctx, 1, from, to, derived))
	})

	t.Run("mint mismatch", func(t *testing.T) {
		ctx, auth := setup(t)
		assert.Equal(t, tx.TecACCOUNT_MISMATCH, Transfer(ctx, 1, from, other, auth))
	})

	t.Run("missing account", func(t *testing.T) {
		ctx, auth := setup(t)
		assert.Equal(t, tx.TecNO_ENTRY, Transfer(ctx, 1, from, tx.AccountID{9}, auth))
	})

	t.Run("self transfer", func(t *testing.T) {
		ctx, auth := setup(t)
		assert.Equal(t, tx.TesSUCCESS, Transfer(ctx, 100, from, from, auth))
		assert.Equal(t, uint64(100), balanceOf(t, ctx, from))
		assert.Equal(t, tx.TecINSUFFICIENT_BALANCE, Transfer(ctx, 101, from, from, auth))
	})

	t.Run("destination overflow", func(t *testing.T) {
		ctx, auth := setup(t)
		full := tx.AccountID{4}
		putAccount(t, ctx, full, mintA, bob, math.MaxUint64, 0)
		assert.Equal(t, tx.TecOVERFLOW, Transfer(ctx, 1, from, full, auth))
	})
}

func TestClose(t *testing.T) {
	addr := tx.AccountID{5}

	t.Run("returns reserve", func(t *testing.T) {
		ctx := newContext(t, 0, alice)
		putAccount(t, ctx, addr, mintA, alice, 0, 70)
		auth, _ := ctx.SignerAuthority(alice)

		require.Equal(t, tx.TesSUCCESS, Close(ctx, addr, auth, bob))
		exists, err := ctx.View.Exists(keylet.TokenAccount(addr))
		require.NoError(t, err)
		assert.False(t, exists)

		var root sle.AccountRoot
		require.Equal(t, tx.TesSUCCESS, ctx.Load(keylet.Account(bob), &root))
		assert.Equal(t, uint64(70), root.Balance)
	})

	t.Run("not empty", func(t *testing.T) {
		ctx := newContext(t, 0, alice)
		putAccount(t, ctx, addr, mintA, alice, 1, 0)
		auth, _ := ctx.SignerAuthority(alice)
		assert.Equal(t, tx.TecACCOUNT_NOT_EMPTY, Close(ctx, addr, auth, bob))
	})

	t.Run("unauthorized", func(t *testing.T) {
		ctx := newContext(t, 0, bob)
		putAccount(t, ctx, addr, mintA, alice, 0, 0)
		auth, _ := ctx.SignerAuthority(bob)
		assert.Equal(t, tx.TefBAD_AUTH, Close(ctx, addr, auth, bob))
	})

	t.Run("zero reserve skips account root", func(t *testing.T) {
		ctx := newContext(t, 0, alice)
		putAccount(t, ctx, addr, mintA, alice, 0, 0)
		auth, _ := ctx.SignerAuthority(alice)
		require.Equal(t, tx.TesSUCCESS, Close(ctx, addr, auth, bob))
		exists, err := ctx.View.Exists(keylet.Account(bob))
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestOpenAccountPostsReserve(t *testing.T) {
	ctx := newContext(t, 10, alice)
	require.Equal(t, tx.TesSUCCESS, ctx.ReturnReserve(alice, 15))

	addr := tx.AccountID{6}
	require.Equal(t, tx.TesSUCCESS, OpenAccount(ctx, addr, mintA, bob, alice))
	acct, r := LoadAccount(ctx, addr)
	require.Equal(t, tx.TesSUCCESS, r)
	assert.Equal(t, uint64(10), acct.Reserve)
	assert.Equal(t, bob, acct.Owner)

	assert.Equal(t, tx.TecINSUFFICIENT_RESERVE, OpenAccount(ctx, tx.AccountID{7}, mintA, bob, alice))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		op   tx.Transaction
		code string
	}{
		{"mint ok", NewCreateMint(alice, alice, "USD", 6), ""},
		{"mint no name", NewCreateMint(alice, alice, "", 6), "temMALFORMED"},
		{"mint long name", NewCreateMint(alice, alice, strings.Repeat("x", 33), 6), "temMALFORMED"},
		{"mint no authority", NewCreateMint(alice, tx.AccountID{}, "USD", 6), "temINVALID_ACCOUNT_ID"},
		{"account ok", NewCreateTokenAccount(alice, bob, mintA), ""},
		{"account no mint", NewCreateTokenAccount(alice, bob, tx.AccountID{}), "temINVALID_ACCOUNT_ID"},
		{"mint to zero", NewMintTo(alice, mintA, bob, 0), "temBAD_AMOUNT"},
		{"transfer to self", NewTokenTransfer(alice, bob, bob, 1), "temDST_IS_SRC"},
		{"transfer zero", NewTokenTransfer(alice, alice, bob, 0), "temBAD_AMOUNT"},
		{"no account", NewTokenTransfer(tx.AccountID{}, alice, bob, 1), "temBAD_SRC_ACCOUNT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op.Validate()
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.HasPrefix(err.Error(), tt.code+":"), err.Error())
		})
	}
}

func TestRegistered(t *testing.T) {
	for _, typ := range []tx.Type{tx.TypeCreateMint, tx.TypeCreateTokenAccount, tx.TypeMintTo, tx.TypeTokenTransfer} {
		op, err := tx.NewFromType(typ)
		require.NoError(t, err)
		assert.Equal(t, typ, op.TxType())
	}
}

func TestFromJSON(t *testing.T) {
	op := NewTokenTransfer(alice, mintA, mintB, 25)
	data, err := tx.ToJSON(op)
	require.NoError(t, err)

	decoded, err := tx.FromJSON(data)
	require.NoError(t, err)
	got, ok := decoded.(*TokenTransfer)
	require.True(t, ok)
	assert.Equal(t, op.Source, got.Source)
	assert.Equal(t, uint64(25), got.Amount)
	assert.Equal(t, alice, got.Account)

	h1, err := tx.Hash(op)
	require.NoError(t, err)
	h2, err := tx.Hash(got)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}
