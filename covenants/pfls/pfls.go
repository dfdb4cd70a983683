// Package pfls implements the Payment Funds Lock Script: a lock
// script that accepts spending its cell under exactly one condition —
// the transaction also carries, among its inputs, a cell typed by the
// PCTS this PFLS cell's args name. It never inspects channel state
// itself; PCTS alone decides whether funds may move. Grounded on
// perun-funds-lockscript/src/lib.rs and, for the "accept iff a sibling
// input satisfies a referenced condition" shape, on the teacher's own
// covenants/vault lock-script idiom.
package pfls

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/perun-network/perun-ckb-contracts-go/chanerr"
	"github.com/perun-network/perun-ckb-contracts-go/ledger"
)

// Validate accepts the transaction iff some input cell's type script
// hashes to pctsScriptHash — the hash carried in this PFLS cell's own
// lock args. PCTS's own rules (funding in, lock continuity, payout
// completeness) then govern whether that transaction is itself valid;
// PFLS only ensures it cannot be bypassed.
func Validate(view ledger.View, pctsScriptHash chainhash.Hash) error {
	n, err := ledger.CountCells(view, ledger.Input)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "count inputs: %v", err)
	}
	for i := 0; i < n; i++ {
		hash, err := view.LoadCellTypeHash(i, ledger.Input)
		if err != nil {
			return chanerr.Newf(chanerr.ErrEncoding, "load cell type hash at input %d: %v", i, err)
		}
		if hash != nil && *hash == pctsScriptHash {
			return nil
		}
	}
	return chanerr.New(chanerr.ErrPFLSNotFound)
}

// ArgsScriptHash decodes a PFLS lock script's args as the 32-byte
// PCTS script hash it requires an input for.
func ArgsScriptHash(args []byte) (chainhash.Hash, error) {
	if len(args) != 32 {
		return chainhash.Hash{}, chanerr.Newf(chanerr.ErrEncoding, "PFLS args must be 32 bytes, got %d", len(args))
	}
	var h chainhash.Hash
	copy(h[:], args)
	return h, nil
}
