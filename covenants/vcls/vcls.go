// Package vcls implements the virtual channel lock script: an
// always-success lock that exists only to give a virtual channel cell
// a spendable identity. The VCTS type script alone governs whether a
// transaction spending that cell is valid; the lock itself imposes no
// condition. Grounded on verify_always_success_lock_script in
// perun-vchannel-typescript/src/lib.rs.
package vcls

import "github.com/perun-network/perun-ckb-contracts-go/ledger"

// Validate always succeeds. It exists so VCLS has the same Validate
// shape as every other lock/type script in this repository.
func Validate(_ ledger.View) error {
	return nil
}
