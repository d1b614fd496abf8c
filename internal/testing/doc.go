// Package testing provides test infrastructure for custody programs.
//
// # Overview
//
// The testing package provides:
//   - TestEnv: an in-memory ledger with an engine that verifies signatures
//   - Account: deterministic test identities with ed25519 keypairs
//   - Assertions: helpers for result codes and token balances
//
// Fluent operation builders live in the escrow and amm subpackages.
//
// # Basic Usage
//
//	func TestDeal(t *testing.T) {
//	    env := jtx.NewTestEnv(t)
//
//	    alice := jtx.NewAccount("alice")
//	    bob := jtx.NewAccount("bob")
//	    env.Fund(alice, bob)
//
//	    mint := env.CreateMint(env.Authority(), "usd")
//	    env.MintTo(mint, alice, 1000)
//
//	    result := env.Submit(escrow.Setup(alice, bob, mint).Build(), alice)
//	    jtx.RequireTxSuccess(t, result)
//	}
//
// Submit signs the operation with every account it is given, so a test
// exercises the same signature checks a client does.
package testing
