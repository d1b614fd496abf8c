package tx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/LeJamon/goCustody/internal/core/ledger"
	"github.com/LeJamon/goCustody/internal/core/ledger/keylet"
	"github.com/LeJamon/goCustody/internal/core/tx/sle"
	"github.com/LeJamon/goCustody/internal/crypto/algorithms/ed25519"
	"github.com/LeJamon/goCustody/internal/storage/journal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine defaults
const (
	DefaultEntryReserve uint64 = 1_000_000
	DefaultMaxRetries          = 8
)

// ErrInvariantFailed stops a batch after an operation broke an invariant
var ErrInvariantFailed = errors.New("tx: invariant failed")

// InvariantPolicy selects how a broken ledger invariant is handled
type InvariantPolicy int

const (
	// InvariantFail aborts the operation with TefINVARIANT_FAILED
	InvariantFail InvariantPolicy = iota
	// InvariantPanic panics with *InvariantViolation
	InvariantPanic
)

func (p InvariantPolicy) String() string {
	switch p {
	case InvariantFail:
		return "fail"
	case InvariantPanic:
		return "panic"
	default:
		return fmt.Sprintf("InvariantPolicy(%d)", int(p))
	}
}

// ParseInvariantPolicy parses "fail" or "panic".
func ParseInvariantPolicy(s string) (InvariantPolicy, error) {
	switch strings.ToLower(s) {
	case "", "fail":
		return InvariantFail, nil
	case "panic":
		return InvariantPanic, nil
	default:
		return InvariantFail, fmt.Errorf("unknown invariant policy %q", s)
	}
}

// EngineConfig holds configuration for the operation engine
type EngineConfig struct {
	// EntryReserve is the native balance posted for every created account
	// or record. Zero disables reserves.
	EntryReserve uint64

	// MaxRetries bounds how often an operation is re-applied after a
	// commit conflict
	MaxRetries int

	// Workers bounds the number of scopes ApplyBatch runs concurrently
	Workers int

	// InvariantPolicy selects how broken invariants are handled
	InvariantPolicy InvariantPolicy

	// SkipSignatureVerification skips signature checks (for testing/standalone)
	SkipSignatureVerification bool
}

// DefaultEngineConfig returns the configuration used when none is given.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		EntryReserve: DefaultEntryReserve,
		MaxRetries:   DefaultMaxRetries,
		Workers:      runtime.NumCPU(),
	}
}

// Ledger is the authoritative state the engine reads and commits to
type Ledger interface {
	Read(ctx context.Context, k keylet.Keylet) ([]byte, error)
	Commit(ctx context.Context, changes []ledger.Change) error
}

// baseView binds a Ledger to the context of one apply attempt
type baseView struct {
	ctx    context.Context
	ledger Ledger
}

func (v baseView) Read(k keylet.Keylet) ([]byte, error) {
	return v.ledger.Read(v.ctx, k)
}

func (v baseView) Exists(k keylet.Keylet) (bool, error) {
	data, err := v.ledger.Read(v.ctx, k)
	return data != nil, err
}

// ApplyResult contains the result of applying an operation
type ApplyResult struct {
	// Result is the operation result code
	Result Result

	// Message is a human-readable result message
	Message string

	// Reason explains a failure for audit logs
	Reason string

	// TxHash is the operation hash, zero when hashing failed
	TxHash [32]byte

	// Metadata contains the changes made by the operation
	Metadata *Metadata

	// Events are the journal events the operation emitted
	Events []journal.Event
}

// Applied reports whether the operation changed the ledger.
func (r ApplyResult) Applied() bool {
	return r.Result.IsApplied()
}

// Err returns nil on success and a *ResultError otherwise.
func (r ApplyResult) Err() error {
	if r.Result.IsSuccess() {
		return nil
	}
	return &ResultError{Result: r.Result, Reason: r.Reason}
}

// Metadata tracks changes made by an operation
type Metadata struct {
	// AffectedNodes lists all entries that were created, modified, or deleted
	AffectedNodes []AffectedNode

	// TransactionResult is the result code
	TransactionResult Result
}

// AffectedNode is an alias for sle.AffectedNode
type AffectedNode = sle.AffectedNode

// MarshalJSON nests every node under its node type
func (m Metadata) MarshalJSON() ([]byte, error) {
	nodes := make([]AffectedNode, len(m.AffectedNodes))
	copy(nodes, m.AffectedNodes)
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].LedgerIndex < nodes[j].LedgerIndex
	})

	affected := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		inner := map[string]any{
			"LedgerEntryType": n.LedgerEntryType,
			"LedgerIndex":     n.LedgerIndex,
		}
		if n.FinalFields != nil {
			inner["FinalFields"] = n.FinalFields
		}
		if len(n.PreviousFields) > 0 {
			inner["PreviousFields"] = n.PreviousFields
		}
		if n.NewFields != nil {
			inner["NewFields"] = n.NewFields
		}
		affected = append(affected, map[string]any{n.NodeType: inner})
	}

	return json.Marshal(map[string]any{
		"AffectedNodes":     affected,
		"TransactionResult": m.TransactionResult.String(),
	})
}

// Engine applies operations to a ledger
type Engine struct {
	ledger  Ledger
	journal journal.Sink
	config  EngineConfig
	logger  *zap.Logger
	metrics *Metrics
}

// NewEngine creates a new operation engine. A nil sink, logger or metrics
// disables that concern.
func NewEngine(l Ledger, sink journal.Sink, config EngineConfig, logger *zap.Logger, metrics *Metrics) *Engine {
	if sink == nil {
		sink = journal.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	return &Engine{
		ledger:  l,
		journal: sink,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

// Config returns the engine configuration
func (e *Engine) Config() EngineConfig {
	return e.config
}

// Apply processes an operation and commits it to the ledger. Either every
// change the operation makes is committed or none is.
func (e *Engine) Apply(ctx context.Context, tx Transaction) ApplyResult {
	start := time.Now()
	res := e.apply(ctx, tx)
	e.metrics.observe(tx.TxType(), res.Result, time.Since(start))

	fields := []zap.Field{
		zap.String("tx_type", tx.TxType().String()),
		zap.String("tx_hash", sle.AccountID(res.TxHash).String()),
		zap.Stringer("result", res.Result),
	}
	if res.Result.IsSuccess() {
		e.logger.Debug("operation applied", fields...)
	} else {
		e.logger.Info("operation failed", append(fields, zap.String("reason", res.Reason))...)
	}
	return res
}

func (e *Engine) apply(ctx context.Context, tx Transaction) ApplyResult {
	// Step 1: Preflight checks (syntax and signatures)
	signers, result, reason := e.preflight(tx)
	if !result.IsSuccess() {
		return failure(result, reason, [32]byte{})
	}

	// Step 2: Compute operation hash
	txHash, err := Hash(tx)
	if err != nil {
		return failure(TefINTERNAL, "failed to compute operation hash: "+err.Error(), txHash)
	}

	appliable, ok := tx.(Appliable)
	if !ok {
		return failure(TemUNKNOWN, tx.TxType().String()+" cannot be applied", txHash)
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return failure(TefFAILURE, err.Error(), txHash)
		}

		// Step 3: Apply against a fresh table
		table := NewApplyStateTable(baseView{ctx: ctx, ledger: e.ledger})
		actx := &ApplyContext{
			View:    table,
			Account: tx.GetCommon().Account,
			Config:  e.config,
			TxHash:  txHash,
			Logger:  e.logger.With(zap.String("tx_hash", sle.AccountID(txHash).String())),
			signers: signers,
		}

		result := e.guardReplay(actx, tx)
		if result.IsSuccess() {
			result = e.invoke(actx, appliable)
		}
		if !result.IsSuccess() {
			// Nothing reaches the ledger
			return failure(result, actx.reason, txHash)
		}

		metadata, err := table.Metadata()
		if err != nil {
			return failure(TefINTERNAL, "build metadata: "+err.Error(), txHash)
		}
		metadata.TransactionResult = result

		// Step 4: Commit, re-applying on conflict
		err = e.ledger.Commit(ctx, table.Changes())
		if errors.Is(err, ledger.ErrConflict) {
			e.metrics.conflicts.Inc()
			if attempt >= e.config.MaxRetries {
				return failure(TerRETRY, fmt.Sprintf("conflict after %d attempts", attempt+1), txHash)
			}
			e.metrics.retries.Inc()
			continue
		}
		if err != nil {
			return failure(TefINTERNAL, err.Error(), txHash)
		}

		// Step 5: Publish the audit trail. The commit is already durable.
		if len(actx.events) > 0 {
			if err := e.journal.Publish(ctx, actx.events); err != nil {
				e.logger.Warn("journal publish failed",
					zap.String("tx_hash", sle.AccountID(txHash).String()),
					zap.Error(err),
				)
			}
		}

		return ApplyResult{
			Result:   result,
			Message:  result.Message(),
			TxHash:   txHash,
			Metadata: metadata,
			Events:   actx.events,
		}
	}
}

func failure(result Result, reason string, txHash [32]byte) ApplyResult {
	return ApplyResult{
		Result:  result,
		Message: result.Message(),
		Reason:  reason,
		TxHash:  txHash,
	}
}

// invoke runs the operation. Panics other than invariant violations become
// TefEXCEPTION.
func (e *Engine) invoke(actx *ApplyContext, a Appliable) (result Result) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if v, ok := r.(*InvariantViolation); ok {
			panic(v)
		}
		actx.Logger.Error("operation panicked", zap.Any("panic", r))
		result = actx.Fail(TefEXCEPTION, "panic: %v", r)
	}()
	return a.Apply(actx)
}

// guardReplay records the operation hash, failing if it was applied before.
func (e *Engine) guardReplay(actx *ApplyContext, tx Transaction) Result {
	k := keylet.Nonce(actx.TxHash)
	nonce := &sle.Nonce{TxHash: actx.TxHash, Account: actx.Account, Seq: tx.GetCommon().Nonce}
	if r := actx.Create(k, nonce); r == TecDUPLICATE {
		return actx.Fail(TefALREADY, "operation %s was already applied", sle.AccountID(actx.TxHash))
	} else if r != TesSUCCESS {
		return r
	}
	return TesSUCCESS
}

// preflight performs validation that does not depend on ledger state and
// returns the verified signers.
func (e *Engine) preflight(tx Transaction) (map[AccountID]struct{}, Result, string) {
	// Operation-specific validation
	if err := tx.Validate(); err != nil {
		return nil, parseValidationError(err), err.Error()
	}

	common := tx.GetCommon()
	if common.TransactionType != tx.TxType().String() {
		return nil, TemINVALID, fmt.Sprintf("TransactionType %q does not match %s", common.TransactionType, tx.TxType())
	}

	signers := make(map[AccountID]struct{})
	if e.config.SkipSignatureVerification {
		for _, s := range tx.RequiredSigners() {
			signers[s] = struct{}{}
		}
		for _, s := range common.Signatures {
			signers[s.Signer] = struct{}{}
		}
		return signers, TesSUCCESS, ""
	}

	for _, s := range tx.RequiredSigners() {
		if _, ok, _ := common.SignatureFor(s); !ok {
			return nil, TemBAD_SIGNER, fmt.Sprintf("missing signature of %s", s)
		}
	}

	txHash, err := Hash(tx)
	if err != nil {
		return nil, TefINTERNAL, err.Error()
	}
	for _, s := range common.Signatures {
		sig, _, err := common.SignatureFor(s.Signer)
		if err != nil {
			return nil, TemBAD_SIGNATURE, err.Error()
		}
		if !ed25519.Verify(s.Signer, txHash[:], sig) {
			return nil, TefBAD_SIGNATURE, fmt.Sprintf("signature of %s does not verify", s.Signer)
		}
		signers[s.Signer] = struct{}{}
	}
	return signers, TesSUCCESS, ""
}

var temCodes = map[string]Result{
	"temMALFORMED":          TemMALFORMED,
	"temBAD_AMOUNT":         TemBAD_AMOUNT,
	"temBAD_FEE":            TemBAD_FEE,
	"temBAD_SIGNATURE":      TemBAD_SIGNATURE,
	"temBAD_SRC_ACCOUNT":    TemBAD_SRC_ACCOUNT,
	"temDST_IS_SRC":         TemDST_IS_SRC,
	"temINVALID":            TemINVALID,
	"temREDUNDANT":          TemREDUNDANT,
	"temBAD_SIGNER":         TemBAD_SIGNER,
	"temINVALID_ACCOUNT_ID": TemINVALID_ACCOUNT_ID,
	"temUNKNOWN":            TemUNKNOWN,
	"temBAD_AMM_TOKENS":     TemBAD_AMM_TOKENS,
}

// parseValidationError extracts a result code from a validation error message.
// If the error message starts with a known code prefix (e.g., "temBAD_AMOUNT:"),
// it returns the corresponding Result. Otherwise, it returns TemINVALID.
func parseValidationError(err error) Result {
	msg := err.Error()
	code, _, _ := strings.Cut(msg, ":")
	if r, ok := temCodes[strings.TrimSpace(code)]; ok {
		return r
	}
	return TemINVALID
}

// ApplyBatch applies txs and returns one result per operation, in input
// order. Operations with the same Scope run sequentially in submission
// order; distinct scopes run concurrently. An invariant failure cancels the
// operations that have not started, which report TefINTERNAL.
func (e *Engine) ApplyBatch(ctx context.Context, txs []Transaction) []ApplyResult {
	results := make([]ApplyResult, len(txs))
	for i := range results {
		results[i] = failure(TefINTERNAL, "not applied: batch stopped", [32]byte{})
	}

	var order [][32]byte
	groups := make(map[[32]byte][]int)
	for i, t := range txs {
		s := t.Scope()
		if _, ok := groups[s]; !ok {
			order = append(order, s)
		}
		groups[s] = append(groups[s], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)
	for _, scope := range order {
		indexes := groups[scope]
		g.Go(func() error {
			for _, i := range indexes {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = e.Apply(gctx, txs[i])
				if results[i].Result == TefINVARIANT_FAILED {
					return fmt.Errorf("%w: %s", ErrInvariantFailed, results[i].Reason)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Error("batch stopped", zap.Error(err))
	}
	return results
}
