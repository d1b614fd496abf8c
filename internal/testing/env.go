package testing

import (
	"context"
	"testing"

	"github.com/LeJamon/goCustody/internal/core/ledger"
	"github.com/LeJamon/goCustody/internal/core/ledger/entry"
	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
	"github.com/LeJamon/goCustody/internal/core/tx/token"
	"github.com/LeJamon/goCustody/internal/storage/database"
	"github.com/LeJamon/goCustody/internal/storage/journal"
	"github.com/LeJamon/goCustody/internal/storage/journal/memory"
	"go.uber.org/zap/zaptest"

	// Registers every operation type
	_ "github.com/LeJamon/goCustody/internal/core/tx/all"
)

// DefaultFunding is the native balance Fund gives an account: enough for
// a hundred entry reserves.
const DefaultFunding = 100 * tx.DefaultEntryReserve

// TestEnv manages a test ledger environment for operation testing.
// It provides a simplified interface for creating accounts, funding them,
// submitting operations, and verifying results.
type TestEnv struct {
	t       *testing.T
	ledger  *ledger.Ledger
	engine  *tx.Engine
	journal *memory.Sink
	config  tx.EngineConfig

	authority *Account
	mints     map[sle.AccountID]*Account

	// nonce is the last nonce Submit assigned
	nonce uint64
}

// Option adjusts the engine configuration of a TestEnv.
type Option func(*tx.EngineConfig)

// WithReserve sets the entry reserve. Zero disables reserves.
func WithReserve(drops uint64) Option {
	return func(c *tx.EngineConfig) { c.EntryReserve = drops }
}

// WithInvariantPanic makes broken invariants panic.
func WithInvariantPanic() Option {
	return func(c *tx.EngineConfig) { c.InvariantPolicy = tx.InvariantPanic }
}

// WithWorkers bounds the scopes ApplyBatch runs concurrently.
func WithWorkers(n int) Option {
	return func(c *tx.EngineConfig) { c.Workers = n }
}

// NewTestEnv creates a test environment on an in-memory ledger.
func NewTestEnv(t *testing.T, opts ...Option) *TestEnv {
	t.Helper()

	db, manager, err := ledger.OpenStore(ledger.BackendMemory, "")
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { manager.Close() })

	return newEnv(t, db, opts...)
}

// NewTestEnvOnLedger creates a test environment over an existing ledger,
// for tests that reopen a durable store.
func NewTestEnvOnLedger(t *testing.T, l *ledger.Ledger, opts ...Option) *TestEnv {
	t.Helper()
	env := &TestEnv{t: t, ledger: l}
	env.init(opts...)
	return env
}

func newEnv(t *testing.T, db database.DB, opts ...Option) *TestEnv {
	t.Helper()
	l, err := ledger.New(db, ledger.WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("Failed to create ledger: %v", err)
	}
	return NewTestEnvOnLedger(t, l, opts...)
}

func (e *TestEnv) init(opts ...Option) {
	e.config = tx.DefaultEngineConfig()
	for _, opt := range opts {
		opt(&e.config)
	}
	e.journal = memory.NewSink()
	e.t.Cleanup(func() { e.journal.Close() })
	e.engine = tx.NewEngine(e.ledger, e.journal, e.config, zaptest.NewLogger(e.t), nil)
	e.mints = make(map[sle.AccountID]*Account)

	e.authority = NewAccount("authority")
	e.Fund(e.authority)
}

// Ledger returns the ledger under test.
func (e *TestEnv) Ledger() *ledger.Ledger { return e.ledger }

// Engine returns the engine operations are applied with.
func (e *TestEnv) Engine() *tx.Engine { return e.engine }

// Journal returns the sink the engine publishes to.
func (e *TestEnv) Journal() *memory.Sink { return e.journal }

// Reserve returns the entry reserve in drops.
func (e *TestEnv) Reserve() uint64 { return e.config.EntryReserve }

// Authority returns the funded account CreateMint uses by default.
func (e *TestEnv) Authority() *Account { return e.authority }

// Fund credits DefaultFunding to each account.
func (e *TestEnv) Fund(accounts ...*Account) {
	e.t.Helper()
	for _, acc := range accounts {
		e.FundAmount(acc, DefaultFunding)
	}
}

// FundAmount credits drops of native balance to acc.
func (e *TestEnv) FundAmount(acc *Account, drops uint64) {
	e.t.Helper()
	if _, err := e.ledger.Fund(context.Background(), acc.ID, drops); err != nil {
		e.t.Fatalf("Failed to fund %s: %v", acc, err)
	}
}

// Balance returns the native balance of acc, zero when it has no root.
func (e *TestEnv) Balance(acc *Account) uint64 {
	e.t.Helper()
	var root sle.AccountRoot
	if !e.ReadEntry(keylet.Account(acc.ID), &root) {
		return 0
	}
	return root.Balance
}

// Sign adds the signature of every signer to op.
func (e *TestEnv) Sign(op tx.Transaction, signers ...*Account) tx.Transaction {
	e.t.Helper()
	for _, s := range signers {
		if err := tx.Sign(op, s.Keypair); err != nil {
			e.t.Fatalf("Failed to sign %s by %s: %v", op.TxType(), s, err)
		}
	}
	return op
}

// Submit signs op with every signer and applies it. An operation without a
// nonce gets a fresh one, so submitting an identical operation again is a
// new operation. Replays go through Engine().Apply with a signed operation.
func (e *TestEnv) Submit(op tx.Transaction, signers ...*Account) tx.ApplyResult {
	e.t.Helper()
	if c := op.GetCommon(); c.Nonce == 0 {
		c.Nonce = e.nextNonce()
	}
	return e.engine.Apply(context.Background(), e.Sign(op, signers...))
}

// SubmitBatch applies operations that are already signed.
func (e *TestEnv) SubmitBatch(ops ...tx.Transaction) []tx.ApplyResult {
	e.t.Helper()
	return e.engine.ApplyBatch(context.Background(), ops)
}

// CreateMint creates a mint named name issued by authority and returns its
// address. authority is funded when it has no native balance.
func (e *TestEnv) CreateMint(authority *Account, name string) sle.AccountID {
	e.t.Helper()
	if e.Balance(authority) == 0 {
		e.Fund(authority)
	}
	op := token.NewCreateMint(authority.ID, authority.ID, name, 6)
	RequireTxSuccess(e.t, e.Submit(op, authority))
	e.mints[op.Address()] = authority
	return op.Address()
}

// OpenTokenAccount opens the associated token account of acc for mint,
// paid by acc, and returns its address.
func (e *TestEnv) OpenTokenAccount(acc *Account, mint sle.AccountID) sle.AccountID {
	e.t.Helper()
	RequireTxSuccess(e.t, e.Submit(token.NewCreateTokenAccount(acc.ID, acc.ID, mint), acc))
	return acc.TokenAccount(mint)
}

// MintTo issues amt of mint into the associated token account of acc,
// opening it first when needed.
func (e *TestEnv) MintTo(mint sle.AccountID, acc *Account, amt uint64) {
	e.t.Helper()
	authority, ok := e.mints[mint]
	if !ok {
		e.t.Fatalf("Mint %s was not created by this env", mint)
	}
	addr := acc.TokenAccount(mint)
	if !e.Exists(keylet.TokenAccount(addr)) {
		e.OpenTokenAccount(acc, mint)
	}
	op := token.NewMintTo(authority.ID, mint, addr, amt)
	RequireTxSuccess(e.t, e.Submit(op, authority))
}

func (e *TestEnv) nextNonce() uint64 {
	e.nonce++
	return e.nonce
}

// ReadEntry decodes the entry at k into dst, reporting whether it exists.
func (e *TestEnv) ReadEntry(k keylet.Keylet, dst entry.Entry) bool {
	e.t.Helper()
	data, err := e.ledger.Read(context.Background(), k)
	if err != nil {
		e.t.Fatalf("Failed to read %s: %v", k.Type, err)
	}
	if data == nil {
		return false
	}
	if err := sle.Unmarshal(data, dst); err != nil {
		e.t.Fatalf("Failed to decode %s: %v", k.Type, err)
	}
	return true
}

// Exists reports whether an entry is stored at k.
func (e *TestEnv) Exists(k keylet.Keylet) bool {
	e.t.Helper()
	data, err := e.ledger.Read(context.Background(), k)
	if err != nil {
		e.t.Fatalf("Failed to read %s: %v", k.Type, err)
	}
	return data != nil
}

// TokenAccount returns the token account at addr, failing the test when
// it does not exist.
func (e *TestEnv) TokenAccount(addr sle.AccountID) *sle.TokenAccount {
	e.t.Helper()
	var acct sle.TokenAccount
	if !e.ReadEntry(keylet.TokenAccount(addr), &acct) {
		e.t.Fatalf("Token account %s does not exist", addr)
	}
	return &acct
}

// TokenBalance returns the balance of the token account at addr.
func (e *TestEnv) TokenBalance(addr sle.AccountID) uint64 {
	e.t.Helper()
	return e.TokenAccount(addr).Amount
}

// Events returns the journal of a record.
func (e *TestEnv) Events(record sle.AccountID) []journal.Event {
	e.t.Helper()
	events, err := e.journal.List(context.Background(), record.String())
	if err != nil {
		e.t.Fatalf("Failed to list events: %v", err)
	}
	return events
}
