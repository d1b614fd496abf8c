package testing

import (
	"testing"

	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
	"github.com/stretchr/testify/require"
)

// RequireTxSuccess asserts that an operation was applied.
func RequireTxSuccess(t testing.TB, result tx.ApplyResult) {
	t.Helper()
	require.Equal(t, tx.TesSUCCESS, result.Result,
		"Expected tesSUCCESS, got %s: %s", result.Result, result.Reason)
}

// RequireTxFail asserts that an operation failed with a specific code and
// left nothing behind.
func RequireTxFail(t testing.TB, result tx.ApplyResult, expected tx.Result) {
	t.Helper()
	require.False(t, result.Applied(),
		"Expected failure with code %s, but the operation was applied", expected)
	require.Equal(t, expected, result.Result,
		"Expected failure code %s, got %s: %s", expected, result.Result, result.Reason)
	require.Nil(t, result.Metadata)
	require.Empty(t, result.Events)
}

// RequireTokenBalance asserts the balance of the token account at addr.
func RequireTokenBalance(t testing.TB, env *TestEnv, addr sle.AccountID, expected uint64) {
	t.Helper()
	actual := env.TokenBalance(addr)
	require.Equal(t, expected, actual,
		"Token account %s balance mismatch: expected %d, got %d", addr, expected, actual)
}

// RequireHolding asserts the balance acc holds of mint in its associated
// token account.
func RequireHolding(t testing.TB, env *TestEnv, acc *Account, mint sle.AccountID, expected uint64) {
	t.Helper()
	actual := env.TokenBalance(acc.TokenAccount(mint))
	require.Equal(t, expected, actual,
		"Account %s holding mismatch: expected %d, got %d", acc, expected, actual)
}

// RequireBalance asserts the native balance of acc.
func RequireBalance(t testing.TB, env *TestEnv, acc *Account, expected uint64) {
	t.Helper()
	actual := env.Balance(acc)
	require.Equal(t, expected, actual,
		"Account %s balance mismatch: expected %d drops, got %d drops", acc, expected, actual)
}

// RequireEntryAbsent asserts that nothing is stored at k.
func RequireEntryAbsent(t testing.TB, env *TestEnv, k keylet.Keylet) {
	t.Helper()
	require.False(t, env.Exists(k), "Expected no %s at %s", k.Type, sle.AccountID(k.Key))
}

// AssertNoBalanceChange runs fn and asserts the token accounts at addrs
// hold what they held before.
func AssertNoBalanceChange(t testing.TB, env *TestEnv, fn func(), addrs ...sle.AccountID) {
	t.Helper()
	before := make([]uint64, len(addrs))
	for i, addr := range addrs {
		before[i] = env.TokenBalance(addr)
	}
	fn()
	for i, addr := range addrs {
		require.Equal(t, before[i], env.TokenBalance(addr), "Token account %s changed", addr)
	}
}
