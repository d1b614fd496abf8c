package tx

import "github.com/LeJamon/goCustody/internal/core/ledger/keylet"

// Authority is the capability to move funds out of accounts owned by one
// key. It is issued only by ApplyContext; the zero value authorizes nothing.
type Authority struct {
	key   AccountID
	valid bool
}

// Key returns the key the authority speaks for.
func (a Authority) Key() AccountID {
	return a.key
}

// Authorizes reports whether a may act for owner.
func (a Authority) Authorizes(owner AccountID) bool {
	return a.valid && a.key == owner
}

// SignerAuthority issues the authority of id, which must have signed the
// current operation.
func (ctx *ApplyContext) SignerAuthority(id AccountID) (Authority, Result) {
	if _, ok := ctx.signers[id]; !ok {
		return Authority{}, ctx.Fail(TefBAD_AUTH, "%s did not sign the operation", id)
	}
	return Authority{key: id, valid: true}, TesSUCCESS
}

// DeriveAuthority issues the authority of the program address for seeds and
// bump. The seeds must be rebuilt from persisted record fields.
func (ctx *ApplyContext) DeriveAuthority(seeds [][]byte, bump uint8) (Authority, Result) {
	addr, err := keylet.CreateProgramAddress(seeds, bump)
	if err != nil {
		return Authority{}, ctx.Fail(TefBAD_AUTH, "derive authority: %v", err)
	}
	return Authority{key: addr, valid: true}, TesSUCCESS
}

// IsSigner reports whether id signed the current operation.
func (ctx *ApplyContext) IsSigner(id AccountID) bool {
	_, ok := ctx.signers[id]
	return ok
}
