package tx

import (
	"errors"
	"fmt"

	"github.com/LeJamon/goCustody/internal/core/amount"
	"github.com/LeJamon/goCustody/internal/core/ledger/entry"
	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
	"github.com/LeJamon/goCustody/internal/storage/journal"
	"go.uber.org/zap"
)

// LedgerView provides read access to ledger state
type LedgerView interface {
	// Read reads a ledger entry, returning nil when it does not exist
	Read(k keylet.Keylet) ([]byte, error)

	// Exists checks if an entry exists
	Exists(k keylet.Keylet) (bool, error)
}

// LedgerWriter provides read/write access to ledger state
type LedgerWriter interface {
	LedgerView

	// Insert adds a new entry
	Insert(k keylet.Keylet, data []byte) error

	// Update modifies an existing entry
	Update(k keylet.Keylet, data []byte) error

	// Erase removes an entry
	Erase(k keylet.Keylet) error
}

// ApplyContext provides all the state and helpers needed to apply an operation.
// It is passed to Appliable.Apply() instead of individual parameters.
type ApplyContext struct {
	// View provides read/write access to ledger state (the ApplyStateTable)
	View LedgerWriter

	// Account is the submitting identity
	Account AccountID

	// Config holds engine configuration
	Config EngineConfig

	// TxHash is the hash of the current operation
	TxHash [32]byte

	// Logger is scoped to the current operation
	Logger *zap.Logger

	signers map[AccountID]struct{}
	events  []journal.Event
	reason  string
}

// NewApplyContext creates a context over view in which signers have
// signed. The engine builds one per apply attempt; tests use it to call
// programs directly.
func NewApplyContext(view LedgerWriter, config EngineConfig, logger *zap.Logger, signers ...AccountID) *ApplyContext {
	if logger == nil {
		logger = zap.NewNop()
	}
	set := make(map[AccountID]struct{}, len(signers))
	for _, s := range signers {
		set[s] = struct{}{}
	}
	return &ApplyContext{View: view, Config: config, Logger: logger, signers: set}
}

// Events returns the events emitted so far.
func (ctx *ApplyContext) Events() []journal.Event {
	return ctx.events
}

// Fail records why the operation failed and returns result.
func (ctx *ApplyContext) Fail(result Result, format string, args ...any) Result {
	ctx.reason = fmt.Sprintf(format, args...)
	return result
}

// FailErr maps an arithmetic or storage error to its result code.
func (ctx *ApplyContext) FailErr(err error) Result {
	switch {
	case errors.Is(err, amount.ErrOverflow):
		return ctx.Fail(TecOVERFLOW, "%v", err)
	case errors.Is(err, amount.ErrDivisionByZero):
		return ctx.Fail(TecDIVISION_BY_ZERO, "%v", err)
	default:
		return ctx.Fail(TefINTERNAL, "%v", err)
	}
}

// Reason returns the failure reason recorded by Fail.
func (ctx *ApplyContext) Reason() string {
	return ctx.reason
}

// Emit queues an event. Events are published only if the operation commits.
func (ctx *ApplyContext) Emit(eventType string, record AccountID, attrs map[string]any) {
	ctx.events = append(ctx.events, journal.NewEvent(
		sle.AccountID(ctx.TxHash).String(), eventType, record.String(), attrs))
}

// Load decodes the entry at k into e. A missing entry fails with TecNO_ENTRY.
func (ctx *ApplyContext) Load(k keylet.Keylet, e entry.Entry) Result {
	if e.Type() != k.Type {
		return ctx.Fail(TefINTERNAL, "load %s into %s", k.Type, e.Type())
	}
	data, err := ctx.View.Read(k)
	if err != nil {
		return ctx.Fail(TefINTERNAL, "read %s: %v", k.Type, err)
	}
	if data == nil {
		return ctx.Fail(TecNO_ENTRY, "%s %s does not exist", k.Type, sle.AccountID(k.Key))
	}
	if err := sle.Unmarshal(data, e); err != nil {
		return ctx.Fail(TefINTERNAL, "%v", err)
	}
	return TesSUCCESS
}

// Create inserts e at k. An existing entry fails with TecDUPLICATE.
func (ctx *ApplyContext) Create(k keylet.Keylet, e entry.Entry) Result {
	exists, err := ctx.View.Exists(k)
	if err != nil {
		return ctx.Fail(TefINTERNAL, "read %s: %v", k.Type, err)
	}
	if exists {
		return ctx.Fail(TecDUPLICATE, "%s %s already exists", k.Type, sle.AccountID(k.Key))
	}
	data, err := sle.Marshal(e)
	if err != nil {
		return ctx.Fail(TefINTERNAL, "%v", err)
	}
	if err := ctx.View.Insert(k, data); err != nil {
		return ctx.Fail(TefINTERNAL, "insert %s: %v", k.Type, err)
	}
	return TesSUCCESS
}

// Save writes e over the existing entry at k.
func (ctx *ApplyContext) Save(k keylet.Keylet, e entry.Entry) Result {
	data, err := sle.Marshal(e)
	if err != nil {
		return ctx.Fail(TefINTERNAL, "%v", err)
	}
	if err := ctx.View.Update(k, data); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return ctx.Fail(TecNO_ENTRY, "%s %s does not exist", k.Type, sle.AccountID(k.Key))
		}
		return ctx.Fail(TefINTERNAL, "update %s: %v", k.Type, err)
	}
	return TesSUCCESS
}

// Remove erases the entry at k.
func (ctx *ApplyContext) Remove(k keylet.Keylet) Result {
	if err := ctx.View.Erase(k); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return ctx.Fail(TecNO_ENTRY, "%s %s does not exist", k.Type, sle.AccountID(k.Key))
		}
		return ctx.Fail(TefINTERNAL, "erase %s: %v", k.Type, err)
	}
	return TesSUCCESS
}

// PostReserve debits the entry reserve from payer's native balance and
// returns the amount to store on the new entry.
func (ctx *ApplyContext) PostReserve(payer AccountID) (uint64, Result) {
	reserve := ctx.Config.EntryReserve
	if reserve == 0 {
		return 0, TesSUCCESS
	}

	k := keylet.Account(payer)
	var root sle.AccountRoot
	if r := ctx.Load(k, &root); r == TecNO_ENTRY {
		return 0, ctx.Fail(TecINSUFFICIENT_RESERVE, "%s has no native balance for reserve %d", payer, reserve)
	} else if r != TesSUCCESS {
		return 0, r
	}
	if root.Balance < reserve {
		return 0, ctx.Fail(TecINSUFFICIENT_RESERVE, "%s holds %d, reserve is %d", payer, root.Balance, reserve)
	}
	root.Balance -= reserve
	if r := ctx.Save(k, &root); r != TesSUCCESS {
		return 0, r
	}
	return reserve, TesSUCCESS
}

// ReturnReserve credits a released reserve to dest, creating its
// AccountRoot when absent.
func (ctx *ApplyContext) ReturnReserve(dest AccountID, reserve uint64) Result {
	if reserve == 0 {
		return TesSUCCESS
	}

	k := keylet.Account(dest)
	data, err := ctx.View.Read(k)
	if err != nil {
		return ctx.Fail(TefINTERNAL, "read %s: %v", k.Type, err)
	}
	if data == nil {
		return ctx.Create(k, &sle.AccountRoot{Account: dest, Balance: reserve})
	}

	root, err := sle.ParseAccountRoot(data)
	if err != nil {
		return ctx.Fail(TefINTERNAL, "%v", err)
	}
	if root.Balance, err = amount.Add(root.Balance, reserve); err != nil {
		return ctx.FailErr(err)
	}
	return ctx.Save(k, root)
}

// InvariantViolation is the panic value raised under InvariantPanic.
type InvariantViolation struct {
	Invariant string
	TxHash    [32]byte
	Detail    string
}

func (v *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant %s violated by %s: %s", v.Invariant, sle.AccountID(v.TxHash), v.Detail)
}

// Invariant reports a broken ledger invariant. Depending on the policy it
// fails the operation with TefINVARIANT_FAILED or panics.
func (ctx *ApplyContext) Invariant(name, format string, args ...any) Result {
	v := &InvariantViolation{Invariant: name, TxHash: ctx.TxHash, Detail: fmt.Sprintf(format, args...)}
	ctx.Logger.Error("invariant violated",
		zap.String("invariant", name),
		zap.String("detail", v.Detail),
	)
	if ctx.Config.InvariantPolicy == InvariantPanic {
		panic(v)
	}
	return ctx.Fail(TefINVARIANT_FAILED, "%s: %s", name, v.Detail)
}
