package tx

import "fmt"

// Result represents an operation result code
type Result int

// Operation result codes, organized by category: tes, tec, tef, tem, ter.
// Only tesSUCCESS changes the ledger. Every other code leaves it untouched.
const (
	// tesSUCCESS (0)
	TesSUCCESS Result = 0

	// tec codes (100-199)
	// The operation was well formed and authorized but the ledger state
	// did not allow it
	TecNO_PERMISSION        Result = 139
	TecNO_ENTRY             Result = 140
	TecINSUFFICIENT_RESERVE Result = 141
	TecINTERNAL             Result = 144
	TecDUPLICATE            Result = 149
	TecAMM_BALANCE          Result = 163
	TecSTAGE_INVALID        Result = 180
	TecINSUFFICIENT_BALANCE Result = 181
	TecACCOUNT_MISMATCH     Result = 182
	TecACCOUNT_NOT_EMPTY    Result = 183
	TecOVERFLOW             Result = 184
	TecDIVISION_BY_ZERO     Result = 185

	// tef codes (-199 to -100)
	// Authorization or engine failure
	TefFAILURE          Result = -199
	TefALREADY          Result = -198
	TefBAD_AUTH         Result = -196
	TefEXCEPTION        Result = -193
	TefINTERNAL         Result = -192
	TefBAD_SIGNATURE    Result = -186
	TefINVARIANT_FAILED Result = -182

	// tem codes (-299 to -200)
	// Malformed operation
	TemMALFORMED          Result = -299
	TemBAD_AMOUNT         Result = -298
	TemBAD_FEE            Result = -295
	TemBAD_SIGNATURE      Result = -282
	TemBAD_SRC_ACCOUNT    Result = -281
	TemDST_IS_SRC         Result = -279
	TemINVALID            Result = -277
	TemREDUNDANT          Result = -275
	TemBAD_SIGNER         Result = -272
	TemINVALID_ACCOUNT_ID Result = -268
	TemUNKNOWN            Result = -264
	TemBAD_AMM_TOKENS     Result = -261

	// ter codes (-99 to -1)
	// Retry later
	TerRETRY      Result = -99
	TerNO_ACCOUNT Result = -96
)

// String returns the string representation of the result code
func (r Result) String() string {
	switch r {
	case TesSUCCESS:
		return "tesSUCCESS"
	case TecNO_PERMISSION:
		return "tecNO_PERMISSION"
	case TecNO_ENTRY:
		return "tecNO_ENTRY"
	case TecINSUFFICIENT_RESERVE:
		return "tecINSUFFICIENT_RESERVE"
	case TecINTERNAL:
		return "tecINTERNAL"
	case TecDUPLICATE:
		return "tecDUPLICATE"
	case TecAMM_BALANCE:
		return "tecAMM_BALANCE"
	case TecSTAGE_INVALID:
		return "tecSTAGE_INVALID"
	case TecINSUFFICIENT_BALANCE:
		return "tecINSUFFICIENT_BALANCE"
	case TecACCOUNT_MISMATCH:
		return "tecACCOUNT_MISMATCH"
	case TecACCOUNT_NOT_EMPTY:
		return "tecACCOUNT_NOT_EMPTY"
	case TecOVERFLOW:
		return "tecOVERFLOW"
	case TecDIVISION_BY_ZERO:
		return "tecDIVISION_BY_ZERO"
	case TefFAILURE:
		return "tefFAILURE"
	case TefALREADY:
		return "tefALREADY"
	case TefBAD_AUTH:
		return "tefBAD_AUTH"
	case TefEXCEPTION:
		return "tefEXCEPTION"
	case TefINTERNAL:
		return "tefINTERNAL"
	case TefBAD_SIGNATURE:
		return "tefBAD_SIGNATURE"
	case TefINVARIANT_FAILED:
		return "tefINVARIANT_FAILED"
	case TemMALFORMED:
		return "temMALFORMED"
	case TemBAD_AMOUNT:
		return "temBAD_AMOUNT"
	case TemBAD_FEE:
		return "temBAD_FEE"
	case TemBAD_SIGNATURE:
		return "temBAD_SIGNATURE"
	case TemBAD_SRC_ACCOUNT:
		return "temBAD_SRC_ACCOUNT"
	case TemDST_IS_SRC:
		return "temDST_IS_SRC"
	case TemINVALID:
		return "temINVALID"
	case TemREDUNDANT:
		return "temREDUNDANT"
	case TemBAD_SIGNER:
		return "temBAD_SIGNER"
	case TemINVALID_ACCOUNT_ID:
		return "temINVALID_ACCOUNT_ID"
	case TemUNKNOWN:
		return "temUNKNOWN"
	case TemBAD_AMM_TOKENS:
		return "temBAD_AMM_TOKENS"
	case TerRETRY:
		return "terRETRY"
	case TerNO_ACCOUNT:
		return "terNO_ACCOUNT"
	default:
		return fmt.Sprintf("Unknown(%d)", r)
	}
}

// IsSuccess returns true if the result indicates success
func (r Result) IsSuccess() bool {
	return r == TesSUCCESS
}

// IsTec returns true if this is a tec (ledger state) code
func (r Result) IsTec() bool {
	return r >= 100 && r < 200
}

// IsTef returns true if this is a tef (failure) code
func (r Result) IsTef() bool {
	return r >= -199 && r <= -100
}

// IsTem returns true if this is a tem (malformed) code
func (r Result) IsTem() bool {
	return r >= -299 && r <= -200
}

// IsTer returns true if this is a ter (retry) code
func (r Result) IsTer() bool {
	return r >= -99 && r <= -1
}

// ShouldRetry returns true if the operation should be retried later
func (r Result) ShouldRetry() bool {
	return r.IsTer()
}

// IsApplied returns true if the operation changed the ledger
func (r Result) IsApplied() bool {
	return r.IsSuccess()
}

// Message returns a human-readable message for the result
func (r Result) Message() string {
	switch r {
	case TesSUCCESS:
		return "The operation was applied."
	case TecNO_ENTRY:
		return "No matching entry found."
	case TecINSUFFICIENT_RESERVE:
		return "Insufficient reserve to complete requested operation."
	case TecDUPLICATE:
		return "The entry already exists."
	case TecAMM_BALANCE:
		return "The market cannot produce a nonzero amount."
	case TecSTAGE_INVALID:
		return "The escrow is not in the stage this operation requires."
	case TecINSUFFICIENT_BALANCE:
		return "Insufficient token balance."
	case TecACCOUNT_MISMATCH:
		return "Token account is bound to another mint or owner."
	case TecACCOUNT_NOT_EMPTY:
		return "Token account still holds funds."
	case TecOVERFLOW:
		return "Arithmetic overflow."
	case TecDIVISION_BY_ZERO:
		return "Division by zero."
	case TefALREADY:
		return "The exact operation was already applied."
	case TefBAD_AUTH:
		return "The authority is not permitted to move these funds."
	case TefBAD_SIGNATURE:
		return "Invalid signature."
	case TefINVARIANT_FAILED:
		return "A ledger invariant was violated."
	case TemBAD_AMOUNT:
		return "Can only move positive amounts."
	case TemBAD_FEE:
		return "Fee fraction must be below one."
	case TemBAD_SIGNER:
		return "A required signature is missing."
	case TemBAD_AMM_TOKENS:
		return "Market mints must differ."
	case TemINVALID:
		return "The operation is ill-formed."
	case TemUNKNOWN:
		return "Unknown operation type."
	case TerRETRY:
		return "Conflicting concurrent operation; retry."
	default:
		return r.String()
	}
}

// ResultError carries a non-success Result as an error. errors.Is matches
// it against a bare Result.
type ResultError struct {
	Result Result
	Reason string
}

func (e *ResultError) Error() string {
	if e.Reason == "" {
		return e.Result.String()
	}
	return e.Result.String() + ": " + e.Reason
}

// Is reports whether target is the same Result.
func (e *ResultError) Is(target error) bool {
	switch t := target.(type) {
	case Result:
		return e.Result == t
	case *ResultError:
		return e.Result == t.Result
	}
	return false
}

// Error lets a Result be used as an errors.Is target.
func (r Result) Error() string {
	return r.String()
}
