// Package vcts implements the Virtual Channel Type Script: the
// three-party virtual-channel state machine built on top of two
// parent ledger channels (VCStart, VCProgress, VCMerge, VCClose1,
// VCClose2). Like PCTS it is a pure function of the transaction it is
// asked to accept — it reads its sibling PCTS input's witness bytes
// in the same transaction rather than tracking any history of its
// own.
//
// Grounded on perun-vchannel-typescript/src/lib.rs in
// original_source, following the cardinality/witness-driven action
// classification pcts.go uses for its own lifecycle.
package vcts

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/perun-network/perun-ckb-contracts-go/chanerr"
	"github.com/perun-network/perun-ckb-contracts-go/channeltypes"
	"github.com/perun-network/perun-ckb-contracts-go/chansig"
	"github.com/perun-network/perun-ckb-contracts-go/ledger"
)

// Validate runs the full VCTS rule set against view, using args as
// this invocation's script args (the VCChannelConstants).
func Validate(view ledger.View, args channeltypes.VCChannelConstants) error {
	params := args.Params
	if !params.IsVirtualChannel || params.IsLedgerChannel {
		return chanerr.New(chanerr.ErrWrongChannelType)
	}
	if len(params.App) != 0 {
		return chanerr.New(chanerr.ErrAppChannelsNotSupported)
	}

	inCount, err := ledger.CountCells(view, ledger.GroupInput)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "count group inputs: %v", err)
	}
	outCount, err := ledger.CountCells(view, ledger.GroupOutput)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "count group outputs: %v", err)
	}

	switch {
	case inCount == 0 && outCount == 1:
		return validateVCStart(view, args)
	case inCount == 2 && outCount == 1:
		return validateVCMerge(view, args)
	case inCount == 1 && outCount == 1:
		return validateProgressOrClose1(view, args)
	case inCount == 1 && outCount == 0:
		return validateVCClose2(view, args)
	default:
		return chanerr.New(chanerr.ErrUnableToLoadVirtualChannelStatus)
	}
}

func loadVCStatus(view ledger.View, index int, source ledger.Source) (channeltypes.VirtualChannelStatus, error) {
	data, err := view.LoadCellData(index, source)
	if err != nil {
		return channeltypes.VirtualChannelStatus{}, chanerr.Newf(chanerr.ErrEncoding, "load cell data: %v", err)
	}
	vs, err := channeltypes.DeserializeVirtualChannelStatus(data)
	if err != nil {
		return channeltypes.VirtualChannelStatus{}, chanerr.Newf(chanerr.ErrUnableToLoadVirtualChannelStatus, "%v", err)
	}
	return vs, nil
}

func checkVCChannelID(params channeltypes.ChannelParameters, state channeltypes.ChannelState) error {
	if state.ChannelID != params.ChannelID() {
		return chanerr.New(chanerr.ErrInvalidChannelId)
	}
	return nil
}

// findParentWitness scans the transaction's plain Inputs for a cell
// whose type-script hash equals pctsHash and returns its decoded
// input-type witness.
func findParentWitness(view ledger.View, pctsHash chainhash.Hash) (int, channeltypes.ChannelWitness, bool, error) {
	idx, ok, err := ledger.FindCellByTypeHash(view, pctsHash, ledger.Input)
	if err != nil {
		return 0, channeltypes.ChannelWitness{}, false, chanerr.Newf(chanerr.ErrEncoding, "scan inputs: %v", err)
	}
	if !ok {
		return 0, channeltypes.ChannelWitness{}, false, nil
	}
	w, err := view.LoadWitnessArgs(idx, ledger.Input)
	if err != nil {
		return 0, channeltypes.ChannelWitness{}, false, chanerr.Newf(chanerr.ErrEncoding, "load parent witness args: %v", err)
	}
	if !w.HasInputType {
		return 0, channeltypes.ChannelWitness{}, false, chanerr.New(chanerr.ErrNoWitness)
	}
	witness, err := channeltypes.DeserializeChannelWitness(w.InputType)
	if err != nil {
		return 0, channeltypes.ChannelWitness{}, false, chanerr.Newf(chanerr.ErrEncoding, "decode parent witness: %v", err)
	}
	return idx, witness, true, nil
}

func verifyVCStateSignatures(params channeltypes.ChannelParameters, state channeltypes.ChannelState, sigA, sigB []byte) error {
	hash := chansig.EthereumMessageHash(state.Serialize())
	if err := chansig.VerifyDER(hash, sigA, params.PartyA.PubKey); err != nil {
		return chanerr.Newf(chanerr.ErrSignatureVerificationError, "party a: %v", err)
	}
	if err := chansig.VerifyDER(hash, sigB, params.PartyB.PubKey); err != nil {
		return chanerr.Newf(chanerr.ErrSignatureVerificationError, "party b: %v", err)
	}
	return nil
}

func validateVCStart(view ledger.View, args channeltypes.VCChannelConstants) error {
	newStatus, err := loadVCStatus(view, 0, ledger.GroupOutput)
	if err != nil {
		return err
	}
	if err := checkVCChannelID(args.Params, newStatus.VCState); err != nil {
		return err
	}
	if newStatus.FirstForceClose {
		return chanerr.New(chanerr.ErrFirstForceCloseFlagSet)
	}

	outLock, err := view.LoadCellLock(0, ledger.GroupOutput)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "load output lock: %v", err)
	}
	if outLock.CodeHash != args.VCLSCodeHash {
		return chanerr.New(chanerr.ErrInvalidVCLockScript)
	}
	if outLock.HashType != args.VCLSHashType {
		return chanerr.New(chanerr.ErrInvalidVCLockScript)
	}
	if len(outLock.Args) != 0 {
		return chanerr.New(chanerr.ErrVCLSWithArgs)
	}

	if _, ok, err := ledger.FindCellByLockHash(view, newStatus.Owner.PaymentScriptHash, ledger.Input); err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "scan inputs for owner: %v", err)
	} else if !ok {
		return chanerr.New(chanerr.ErrOwnerFundingCellMissing)
	}

	activeIdx := -1
	for i, p := range newStatus.Parents {
		_, inOk, err := ledger.FindCellByTypeHash(view, p.PCTSHash, ledger.Input)
		if err != nil {
			return chanerr.Newf(chanerr.ErrEncoding, "scan inputs for parent %d: %v", i, err)
		}
		_, outOk, err := ledger.FindCellByTypeHash(view, p.PCTSHash, ledger.Output)
		if err != nil {
			return chanerr.Newf(chanerr.ErrEncoding, "scan outputs for parent %d: %v", i, err)
		}
		switch {
		case inOk && outOk:
			if activeIdx != -1 {
				return chanerr.New(chanerr.ErrInvalidVCTxStart)
			}
			activeIdx = i
		case inOk != outOk:
			return chanerr.New(chanerr.ErrInvalidVCTxStart)
		}
	}
	if activeIdx == -1 {
		return chanerr.New(chanerr.ErrInvalidVCTxStart)
	}

	_, witness, ok, err := findParentWitness(view, newStatus.Parents[activeIdx].PCTSHash)
	if err != nil {
		return err
	}
	if !ok || witness.Kind != channeltypes.WitnessVCDispute {
		return chanerr.New(chanerr.ErrParentWitnessWrongKind)
	}
	return verifyVCStateSignatures(args.Params, newStatus.VCState, witness.ParentSigA, witness.ParentSigB)
}

func validateProgressOrClose1(view ledger.View, args channeltypes.VCChannelConstants) error {
	old, err := loadVCStatus(view, 0, ledger.GroupInput)
	if err != nil {
		return err
	}
	new, err := loadVCStatus(view, 0, ledger.GroupOutput)
	if err != nil {
		return err
	}
	if old.VCState.ChannelID != new.VCState.ChannelID {
		return chanerr.New(chanerr.ErrChannelIdMismatch)
	}

	// Exactly one parent is selected by presence in inputs: try
	// old.Parents[0]'s PCTS cell first, and only fall back to
	// old.Parents[1] if parent 0's cell is entirely absent. Whichever
	// parent is found this way is the one whose witness decides the
	// action; a wrong witness kind on it is a hard rejection rather
	// than a reason to try the other parent.
	_, witness, ok, err := findParentWitness(view, old.Parents[0].PCTSHash)
	if err != nil {
		return err
	}
	if !ok {
		_, witness, ok, err = findParentWitness(view, old.Parents[1].PCTSHash)
		if err != nil {
			return err
		}
	}
	if !ok {
		return chanerr.New(chanerr.ErrParentPCTSHashNotFound)
	}

	switch witness.Kind {
	case channeltypes.WitnessDispute:
		return validateVCProgress(args, old, new, witness)
	case channeltypes.WitnessForceClose:
		return validateVCClose1(old, new)
	default:
		return chanerr.New(chanerr.ErrParentWitnessWrongKind)
	}
}

func validateVCProgress(args channeltypes.VCChannelConstants, old, new channeltypes.VirtualChannelStatus, witness channeltypes.ChannelWitness) error {
	if new.FirstForceClose {
		return chanerr.New(chanerr.ErrFirstForceCloseFlagSet)
	}
	if new.VCState.Version < old.VCState.Version {
		return chanerr.New(chanerr.ErrInvalidVersionNumberVCProgressTx)
	}
	if old.Parents != new.Parents {
		return chanerr.New(chanerr.ErrInvalidVCParentData)
	}

	if new.VCState.Version == old.VCState.Version {
		if !old.EqualExceptOwner(new) {
			return chanerr.New(chanerr.ErrChannelStateNotEqual)
		}
		return nil
	}
	if !old.VCState.Balances.EqualInSum(new.VCState.Balances) {
		return chanerr.New(chanerr.ErrSumOfBalancesNotEqual)
	}
	return verifyVCStateSignatures(args.Params, new.VCState, witness.SigA, witness.SigB)
}

func validateVCClose1(old, new channeltypes.VirtualChannelStatus) error {
	if old.FirstForceClose {
		return chanerr.New(chanerr.ErrFirstForceCloseFlagSet)
	}
	if !new.FirstForceClose {
		return chanerr.New(chanerr.ErrFirstForceCloseFlagNotSet)
	}
	if old.Parents != new.Parents {
		return chanerr.New(chanerr.ErrInvalidVCParentData)
	}
	oldState, newState := old.VCState.Serialize(), new.VCState.Serialize()
	if len(oldState) != len(newState) {
		return chanerr.New(chanerr.ErrChannelStateNotEqual)
	}
	for i := range oldState {
		if oldState[i] != newState[i] {
			return chanerr.New(chanerr.ErrChannelStateNotEqual)
		}
	}
	return nil
}

func validateVCMerge(view ledger.View, args channeltypes.VCChannelConstants) error {
	statusA, err := loadVCStatus(view, 0, ledger.GroupInput)
	if err != nil {
		return err
	}
	statusB, err := loadVCStatus(view, 1, ledger.GroupInput)
	if err != nil {
		return err
	}
	headerA, err := view.LoadHeader(0, ledger.GroupInput)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "load header 0: %v", err)
	}
	headerB, err := view.LoadHeader(1, ledger.GroupInput)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "load header 1: %v", err)
	}

	discardedIdx := 1
	kept, discarded := statusA, statusB
	if headerB.Number < headerA.Number {
		discardedIdx = 0
		kept, discarded = statusB, statusA
	}

	newStatus, err := loadVCStatus(view, 0, ledger.GroupOutput)
	if err != nil {
		return err
	}
	if !kept.EqualExceptOwner(newStatus) {
		return chanerr.New(chanerr.ErrInvalidVCMergeTx)
	}

	discardedCapacity, err := view.LoadCellCapacity(discardedIdx, ledger.GroupInput)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "load discarded capacity: %v", err)
	}
	refundIdx, ok, err := ledger.FindCellByLockHash(view, discarded.Owner.PaymentScriptHash, ledger.Output)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "scan outputs for refund: %v", err)
	}
	if !ok {
		return chanerr.New(chanerr.ErrNoVCRentPayoutCell)
	}
	refundCapacity, err := view.LoadCellCapacity(refundIdx, ledger.Output)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "load refund capacity: %v", err)
	}
	if refundCapacity != discardedCapacity {
		return chanerr.New(chanerr.ErrInvalidVCRentPayoutCell)
	}
	return nil
}

func validateVCClose2(view ledger.View, args channeltypes.VCChannelConstants) error {
	old, err := loadVCStatus(view, 0, ledger.GroupInput)
	if err != nil {
		return err
	}
	if !old.FirstForceClose {
		return chanerr.New(chanerr.ErrFirstForceCloseFlagNotSet)
	}

	found := false
	for _, p := range old.Parents {
		_, w, ok, err := findParentWitness(view, p.PCTSHash)
		if err != nil {
			return err
		}
		if ok && w.Kind == channeltypes.WitnessForceClose {
			found = true
			break
		}
	}
	if !found {
		return chanerr.New(chanerr.ErrParentNotInForceClose)
	}

	capacity, err := view.LoadCellCapacity(0, ledger.GroupInput)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "load vc cell capacity: %v", err)
	}
	paid, err := sumOutputCapacityToLockHash(view, old.Owner.PaymentScriptHash)
	if err != nil {
		return err
	}
	if paid < capacity {
		return chanerr.New(chanerr.ErrInvalidVCRentPayoutCell)
	}
	return nil
}

func sumOutputCapacityToLockHash(view ledger.View, lockHash chainhash.Hash) (uint64, error) {
	n, err := ledger.CountCells(view, ledger.Output)
	if err != nil {
		return 0, chanerr.Newf(chanerr.ErrEncoding, "count outputs: %v", err)
	}
	var total uint64
	for i := 0; i < n; i++ {
		hash, err := view.LoadCellLockHash(i, ledger.Output)
		if err != nil {
			return 0, chanerr.Newf(chanerr.ErrEncoding, "load output lock hash: %v", err)
		}
		if hash != lockHash {
			continue
		}
		cap, err := view.LoadCellCapacity(i, ledger.Output)
		if err != nil {
			return 0, chanerr.Newf(chanerr.ErrEncoding, "load output capacity: %v", err)
		}
		total += cap
	}
	return total, nil
}
