// Package pcts implements the Payment Channel Type Script: the
// ledger-channel state machine governing Open (Start), Fund, Dispute,
// VCDispute, Close, Abort and ForceClose. It is invoked once per
// transaction that touches a cell carrying this type script, and
// decides accept/reject by reading the transaction's cells, witnesses
// and header dependencies through a ledger.View — never by touching
// any persistent state of its own (spec.md §5: validators are pure,
// stateless functions).
//
// Grounded on perun-channel-typescript/src/lib.rs in original_source,
// generalizing the teacher's settlement/channels/channel.go
// (unidirectional, single-version payment channel) into the full
// two-party ledger-channel lifecycle with virtual-channel disputes.
package pcts

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/perun-network/perun-ckb-contracts-go/chanerr"
	"github.com/perun-network/perun-ckb-contracts-go/channeltypes"
	"github.com/perun-network/perun-ckb-contracts-go/chansig"
	"github.com/perun-network/perun-ckb-contracts-go/ledger"
)

// Validate runs the full PCTS rule set against view, using args as
// this invocation's script args (the ChannelConstants).
func Validate(view ledger.View, args channeltypes.ChannelConstants) error {
	inCount, err := ledger.CountCells(view, ledger.GroupInput)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "count group inputs: %v", err)
	}
	outCount, err := ledger.CountCells(view, ledger.GroupOutput)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "count group outputs: %v", err)
	}
	if inCount > 1 || outCount > 1 {
		return chanerr.New(chanerr.ErrMoreThanOneChannel)
	}

	params := args.Params
	if len(params.App) != 0 {
		return chanerr.New(chanerr.ErrAppChannelsNotSupported)
	}
	if !params.IsLedgerChannel || params.IsVirtualChannel {
		return chanerr.New(chanerr.ErrWrongChannelType)
	}

	switch {
	case inCount == 0 && outCount == 1:
		return validateStart(view, args)
	case inCount == 1 && outCount == 1:
		return validateProgress(view, args)
	case inCount == 1 && outCount == 0:
		return validateClose(view, args)
	default:
		return chanerr.New(chanerr.ErrUnableToLoadAnyChannelStatus)
	}
}

func loadStatus(view ledger.View, index int, source ledger.Source) (channeltypes.ChannelStatus, error) {
	data, err := view.LoadCellData(index, source)
	if err != nil {
		return channeltypes.ChannelStatus{}, chanerr.Newf(chanerr.ErrEncoding, "load cell data: %v", err)
	}
	status, err := channeltypes.DeserializeChannelStatus(data)
	if err != nil {
		return channeltypes.ChannelStatus{}, chanerr.Newf(chanerr.ErrUnableToLoadAnyChannelStatus, "%v", err)
	}
	return status, nil
}

func checkChannelID(params channeltypes.ChannelParameters, got chainhash.Hash) error {
	if params.ChannelID() != got {
		return chanerr.New(chanerr.ErrInvalidChannelId)
	}
	return nil
}

// noPFLSInInputs enforces the common precondition that no input cell
// is locked by PFLS — funds cannot be spent in the same transaction
// that creates or progresses a channel (see DESIGN.md for why this is
// scoped to Start/Progress and not Close, where PFLS cells are
// necessarily consumed to pay parties out).
func noPFLSInInputs(view ledger.View, args channeltypes.ChannelConstants) error {
	n, err := ledger.CountCells(view, ledger.Input)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "count inputs: %v", err)
	}
	for i := 0; i < n; i++ {
		lock, err := view.LoadCellLock(i, ledger.Input)
		if err != nil {
			return chanerr.Newf(chanerr.ErrEncoding, "load cell lock at input %d: %v", i, err)
		}
		if lock.CodeHash == args.PFLSCodeHash && lock.HashType == args.PFLSHashType {
			return chanerr.New(chanerr.ErrFundsInInputs)
		}
	}
	return nil
}

func validateStart(view ledger.View, args channeltypes.ChannelConstants) error {
	if err := noPFLSInInputs(view, args); err != nil {
		return err
	}
	params := args.Params

	newStatus, err := loadStatus(view, 0, ledger.GroupOutput)
	if err != nil {
		return err
	}

	tx, err := view.LoadTransaction()
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "load transaction: %v", err)
	}
	threadTokenSpent := false
	for _, in := range tx.Inputs {
		if in.PreviousOutput == args.ThreadToken.OutPoint {
			threadTokenSpent = true
			break
		}
	}
	if !threadTokenSpent {
		return chanerr.New(chanerr.ErrInvalidThreadToken)
	}

	outLock, err := view.LoadCellLock(0, ledger.GroupOutput)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "load output lock: %v", err)
	}
	if outLock.CodeHash != args.PCLSCodeHash {
		return chanerr.New(chanerr.ErrInvalidPCLSCodeHash)
	}
	if outLock.HashType != args.PCLSHashType {
		return chanerr.New(chanerr.ErrInvalidPCLSHashType)
	}
	if len(outLock.Args) != 0 {
		return chanerr.New(chanerr.ErrPCLSWithArgs)
	}

	if params.PartyA.PaymentScriptHash == params.PartyB.PaymentScriptHash {
		return chanerr.New(chanerr.ErrSamePaymentAddress)
	}
	if err := checkChannelID(params, newStatus.State.ChannelID); err != nil {
		return err
	}
	if newStatus.State.Version != 0 {
		return chanerr.New(chanerr.ErrStartWithNonZeroVersion)
	}
	if newStatus.State.IsFinal {
		return chanerr.New(chanerr.ErrStartWithFinalizedState)
	}

	for idx, balance := range newStatus.State.Balances.Ckbytes {
		if balance != 0 && balance < args.PFLSMinCapacity {
			return chanerr.Newf(chanerr.ErrBalanceBelowPFLSMinCapacity, "party %d", idx)
		}
	}

	ownHash, err := view.LoadScriptHash()
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "load own script hash: %v", err)
	}
	if err := verifyFundingInOutputs(view, args, ownHash, 0, newStatus.State.Balances); err != nil {
		return err
	}

	wantFunded := newStatus.State.Balances.Ckbytes[1] == 0 && len(newStatus.State.Balances.Sudts) == 0
	if newStatus.Funded != wantFunded {
		return chanerr.New(chanerr.ErrFundedBitStatusNotCorrect)
	}
	if newStatus.Disputed || newStatus.VCDisputed {
		return chanerr.New(chanerr.ErrStatusDisputed)
	}
	return nil
}

func validateProgress(view ledger.View, args channeltypes.ChannelConstants) error {
	oldStatus, err := loadStatus(view, 0, ledger.GroupInput)
	if err != nil {
		return err
	}
	newStatus, err := loadStatus(view, 0, ledger.GroupOutput)
	if err != nil {
		return err
	}
	if oldStatus.State.ChannelID != newStatus.State.ChannelID {
		return chanerr.New(chanerr.ErrChannelIdMismatch)
	}
	if err := checkChannelID(args.Params, oldStatus.State.ChannelID); err != nil {
		return err
	}

	inLock, err := view.LoadCellLock(0, ledger.GroupInput)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "load input lock: %v", err)
	}
	outLock, err := view.LoadCellLock(0, ledger.GroupOutput)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "load output lock: %v", err)
	}
	if !inLock.Equal(outLock) {
		return chanerr.New(chanerr.ErrChannelDoesNotContinue)
	}

	// "creates or progresses" (spec's common precondition) covers every
	// Progress sub-action, not just Fund.
	if err := noPFLSInInputs(view, args); err != nil {
		return err
	}

	witnessBytes, err := loadInputTypeWitness(view, 0, ledger.GroupInput)
	if err != nil {
		return err
	}
	witness, err := channeltypes.DeserializeChannelWitness(witnessBytes)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "decode witness: %v", err)
	}

	switch witness.Kind {
	case channeltypes.WitnessFund:
		return validateFund(view, args, oldStatus, newStatus)
	case channeltypes.WitnessDispute:
		return validateDispute(args, oldStatus, newStatus, witness.SigA, witness.SigB)
	case channeltypes.WitnessVCDispute:
		return validateVCDispute(view, args, oldStatus, newStatus, witness)
	case channeltypes.WitnessForceClose:
		return chanerr.New(chanerr.ErrChannelForceCloseWithChannelOutput)
	case channeltypes.WitnessAbort:
		return chanerr.New(chanerr.ErrChannelAbortWithChannelOutput)
	default:
		return chanerr.New(chanerr.ErrChannelCloseWithChannelOutput)
	}
}

func validateFund(view ledger.View, args channeltypes.ChannelConstants, old, new channeltypes.ChannelStatus) error {
	if !statesEqualExceptFunded(old.State, new.State) || old.Disputed != new.Disputed || old.VCDisputed != new.VCDisputed {
		return chanerr.New(chanerr.ErrChannelStateNotEqual)
	}
	if old.Funded {
		return chanerr.New(chanerr.ErrStateIsFunded)
	}
	ownHash, err := view.LoadScriptHash()
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "load own script hash: %v", err)
	}
	if err := verifyFundingInOutputs(view, args, ownHash, 1, old.State.Balances); err != nil {
		return err
	}
	if !new.Funded {
		return chanerr.New(chanerr.ErrFundedBitStatusNotCorrect)
	}
	if old.Disputed {
		return chanerr.New(chanerr.ErrStatusDisputed)
	}
	return nil
}

// statesEqualExceptFunded reports whether the ledger-channel state
// itself (channel id, version, balances, finality) is byte-identical
// across a Fund transition — Fund only ever supplies the outstanding
// PFLS cells, it never changes the agreed balances.
func statesEqualExceptFunded(old, new channeltypes.ChannelState) bool {
	return bytesEqualStates(old, new)
}

func bytesEqualStates(old, new channeltypes.ChannelState) bool {
	a, b := old.Serialize(), new.Serialize()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func validateDispute(args channeltypes.ChannelConstants, old, new channeltypes.ChannelStatus, sigA, sigB []byte) error {
	if err := checkDisputeCommon(args, old, new); err != nil {
		return err
	}
	if err := verifyStateSignatures(args.Params, new.State, sigA, sigB); err != nil {
		return err
	}
	if !new.Disputed {
		return chanerr.New(chanerr.ErrStatusNotDisputed)
	}
	return nil
}

// checkDisputeCommon implements the shared Dispute/VCDispute checks:
// funded, version monotonicity (non-decreasing when old is already
// vc-disputed; otherwise strictly increasing, except that a v=0 state
// may be registered over an undisputed v=0 status), balance
// conservation, and non-finality.
func checkDisputeCommon(args channeltypes.ChannelConstants, old, new channeltypes.ChannelStatus) error {
	if !old.Funded {
		return chanerr.New(chanerr.ErrChannelNotFunded)
	}
	if old.VCDisputed {
		if new.State.Version < old.State.Version {
			return chanerr.New(chanerr.ErrVersionNumberNotIncreasing)
		}
	} else {
		strictlyIncreasing := new.State.Version > old.State.Version
		initialRegistration := old.State.Version == 0 && new.State.Version == 0 && !old.Disputed
		if !strictlyIncreasing && !initialRegistration {
			return chanerr.New(chanerr.ErrVersionNumberNotIncreasing)
		}
	}
	if !old.State.Balances.EqualInSum(new.State.Balances) {
		return chanerr.New(chanerr.ErrSumOfBalancesNotEqual)
	}
	if old.State.IsFinal {
		return chanerr.New(chanerr.ErrStateIsFinal)
	}
	return nil
}

func verifyStateSignatures(params channeltypes.ChannelParameters, state channeltypes.ChannelState, sigA, sigB []byte) error {
	hash := chansig.EthereumMessageHash(state.Serialize())
	if err := chansig.VerifyDER(hash, sigA, params.PartyA.PubKey); err != nil {
		return chanerr.Newf(chanerr.ErrSignatureVerificationError, "party a: %v", err)
	}
	if err := chansig.VerifyDER(hash, sigB, params.PartyB.PubKey); err != nil {
		return chanerr.Newf(chanerr.ErrSignatureVerificationError, "party b: %v", err)
	}
	return nil
}

func validateVCDispute(view ledger.View, args channeltypes.ChannelConstants, old, new channeltypes.ChannelStatus, witness channeltypes.ChannelWitness) error {
	if old.VCDisputed {
		return chanerr.New(chanerr.ErrStatusDisputed)
	}
	if err := checkDisputeCommon(args, old, new); err != nil {
		return err
	}
	if err := verifyStateSignatures(args.Params, new.State, witness.SigA, witness.SigB); err != nil {
		return err
	}
	if !new.VCDisputed {
		return chanerr.New(chanerr.ErrStatusNotDisputed)
	}

	vcIndex, ok, err := ledger.FindCellByTypeHash(view, new.VCTSHash, ledger.Output)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "scan outputs: %v", err)
	}
	if !ok {
		return chanerr.New(chanerr.ErrVCOutputCellMissingInStartTx)
	}
	vcData, err := view.LoadCellData(vcIndex, ledger.Output)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "load vc cell data: %v", err)
	}
	vcStatus, err := channeltypes.DeserializeVirtualChannelStatus(vcData)
	if err != nil {
		return chanerr.Newf(chanerr.ErrUnableToLoadVirtualChannelStatus, "%v", err)
	}
	ownHash, err := view.LoadScriptHash()
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "load own script hash: %v", err)
	}
	foundParent := false
	for _, p := range vcStatus.Parents {
		if p.PCTSHash == ownHash {
			foundParent = true
			break
		}
	}
	if !foundParent {
		return chanerr.New(chanerr.ErrInvalidVCParentData)
	}

	for _, alloc := range new.State.Balances.Locked {
		if alloc.ID == vcStatus.VCState.ChannelID {
			if !alloc.Balances.EqualInSum(vcStatus.VCState.Balances) {
				return chanerr.New(chanerr.ErrUnequalBalanceInLockedFundsAndVirtualChannelBalance)
			}
			return nil
		}
	}
	return chanerr.New(chanerr.ErrFundsForVCNotLocked)
}

func validateClose(view ledger.View, args channeltypes.ChannelConstants) error {
	old, err := loadStatus(view, 0, ledger.GroupInput)
	if err != nil {
		return err
	}
	if err := checkChannelID(args.Params, old.State.ChannelID); err != nil {
		return err
	}
	witnessBytes, err := loadInputTypeWitness(view, 0, ledger.GroupInput)
	if err != nil {
		return err
	}
	witness, err := channeltypes.DeserializeChannelWitness(witnessBytes)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "decode witness: %v", err)
	}

	switch witness.Kind {
	case channeltypes.WitnessAbort:
		return validateAbort(view, args, old)
	case channeltypes.WitnessClose:
		return validateCloseFinal(view, args, old, witness)
	case channeltypes.WitnessForceClose:
		return validateForceClose(view, args, old)
	case channeltypes.WitnessDispute:
		return chanerr.New(chanerr.ErrChannelDisputeWithoutChannelOutput)
	case channeltypes.WitnessVCDispute:
		return chanerr.New(chanerr.ErrVCDisputeWithoutChannelOutput)
	default:
		return chanerr.New(chanerr.ErrChannelFundWithoutChannelOutput)
	}
}

func validateAbort(view ledger.View, args channeltypes.ChannelConstants, old channeltypes.ChannelStatus) error {
	if old.Funded {
		return chanerr.New(chanerr.ErrStateIsFunded)
	}
	capacity, err := view.LoadCellCapacity(0, ledger.GroupInput)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "load channel cell capacity: %v", err)
	}
	// Party B can not have funded the channel under the funding
	// protocol, so its share is cleared before computing what party A
	// is owed.
	cleared := old.State.Balances.ClearIndex(1)
	owedCkbytes := cleared.Ckbytes[0] + capacity + cleared.GetLockedCkbytes()
	return payParty(view, args.Params.PartyA, owedCkbytes, cleared.Sudts, 0)
}

func validateCloseFinal(view ledger.View, args channeltypes.ChannelConstants, old channeltypes.ChannelStatus, witness channeltypes.ChannelWitness) error {
	state := witness.State
	if state.ChannelID != old.State.ChannelID {
		return chanerr.New(chanerr.ErrChannelIdMismatch)
	}
	if !old.Funded {
		return chanerr.New(chanerr.ErrChannelNotFunded)
	}
	if !state.IsFinal {
		return chanerr.New(chanerr.ErrStateNotFinal)
	}
	if err := verifyStateSignatures(args.Params, state, witness.SigA, witness.SigB); err != nil {
		return err
	}
	capacity, err := view.LoadCellCapacity(0, ledger.GroupInput)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "load channel cell capacity: %v", err)
	}
	return payBothParties(view, args.Params, state.Balances, capacity)
}

func validateForceClose(view ledger.View, args channeltypes.ChannelConstants, old channeltypes.ChannelStatus) error {
	if !old.Funded {
		return chanerr.New(chanerr.ErrChannelNotFunded)
	}
	if !old.Disputed {
		return chanerr.New(chanerr.ErrStatusNotDisputed)
	}
	expired, err := ledger.TimeLockExpired(view, 0, ledger.GroupInput, args.Params.ChallengeDuration)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "check time lock: %v", err)
	}
	if !expired {
		return chanerr.New(chanerr.ErrTimeLockNotExpired)
	}
	capacity, err := view.LoadCellCapacity(0, ledger.GroupInput)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "load channel cell capacity: %v", err)
	}
	if !old.VCDisputed {
		return payBothParties(view, args.Params, old.State.Balances, capacity)
	}
	return validateForceCloseVC(view, args, old, capacity)
}

func validateForceCloseVC(view ledger.View, args channeltypes.ChannelConstants, old channeltypes.ChannelStatus, capacity uint64) error {
	vcIndex, ok, err := ledger.FindCellByTypeHash(view, old.VCTSHash, ledger.Input)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "scan inputs: %v", err)
	}
	if !ok {
		return chanerr.New(chanerr.ErrVCInputCellMissingInClose1Tx)
	}
	vcData, err := view.LoadCellData(vcIndex, ledger.Input)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "load vc cell data: %v", err)
	}
	vcStatus, err := channeltypes.DeserializeVirtualChannelStatus(vcData)
	if err != nil {
		return chanerr.Newf(chanerr.ErrUnableToLoadVirtualChannelStatus, "%v", err)
	}
	vcType, err := view.LoadCellType(vcIndex, ledger.Input)
	if err != nil || vcType == nil {
		return chanerr.New(chanerr.ErrUnableToLoadVirtualChannelStatus)
	}
	vcConstants, err := channeltypes.DeserializeVCChannelConstants(vcType.Args)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "decode vc constants: %v", err)
	}
	vcExpired, err := ledger.TimeLockExpired(view, vcIndex, ledger.Input, vcConstants.Params.ChallengeDuration)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "check vc time lock: %v", err)
	}
	if !vcExpired {
		return chanerr.New(chanerr.ErrTimeLockNotExpired)
	}

	ownHash, err := view.LoadScriptHash()
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "load own script hash: %v", err)
	}
	var idxMap [2]uint8
	found := false
	for _, p := range vcStatus.Parents {
		if p.PCTSHash == ownHash {
			idxMap = p.IdxMap
			found = true
			break
		}
	}
	if !found {
		return chanerr.New(chanerr.ErrParentPCTSHashNotFound)
	}

	vcLockedCkbytes := vcStatus.VCState.Balances.GetLockedCkbytes()
	for lcIdx := 0; lcIdx < 2; lcIdx++ {
		vcIdx, ok := channeltypes.GetVCParticipantIdx(idxMap, lcIdx)
		if !ok {
			return chanerr.New(chanerr.ErrVCParticipantIdxNotFound)
		}
		owed := old.State.Balances.Ckbytes[lcIdx] + vcStatus.VCState.Balances.Ckbytes[vcIdx] + vcLockedCkbytes
		if lcIdx == 0 {
			owed += capacity
		}
		var party channeltypes.Participant
		if lcIdx == 0 {
			party = args.Params.PartyA
		} else {
			party = args.Params.PartyB
		}
		if err := payPartyVC(view, party, owed, old.State.Balances, lcIdx, vcStatus.VCState.Balances.Sudts, vcIdx); err != nil {
			return err
		}
	}
	return nil
}

// payBothParties pays each of the two ledger-channel parties their
// balance plus (for party A) the channel cell's own capacity plus
// (for both) the full sudt-locked-ckbytes reimbursement. Grounded on
// the unconditional reimbursement DESIGN.md Open Question (a)
// resolves, carried into plain Close/ForceClose as well as the VC
// path.
func payBothParties(view ledger.View, params channeltypes.ChannelParameters, balances channeltypes.Balances, channelCapacity uint64) error {
	locked := balances.GetLockedCkbytes()
	owedA := balances.Ckbytes[0] + channelCapacity + locked
	if err := payParty(view, params.PartyA, owedA, balances.Sudts, 0); err != nil {
		return err
	}
	owedB := balances.Ckbytes[1] + locked
	return payParty(view, params.PartyB, owedB, balances.Sudts, 1)
}

// payParty checks that owedCkbytes and partyIdx's share of sudts are
// each fully represented among the transaction's outputs, voiding an
// obligation below the party's payment_min_capacity. Grounded on
// Balances::fully_represented in perun-channel-typescript/src/lib.rs.
func payParty(view ledger.View, party channeltypes.Participant, owedCkbytes uint64, sudts []channeltypes.SUDTBalance, partyIdx int) error {
	if owedCkbytes >= party.PaymentMinCapacity {
		paid, err := sumOutputCapacityToLockHash(view, party.PaymentScriptHash)
		if err != nil {
			return err
		}
		if paid < owedCkbytes {
			return chanerr.New(chanerr.ErrNotAllPaid)
		}
	}
	for _, s := range sudts {
		owed := s.Distribution[partyIdx]
		if owed == 0 {
			continue
		}
		paid, err := sumOutputSudtToLockHash(view, party.PaymentScriptHash, s.Asset.TypeScript.Hash())
		if err != nil {
			return err
		}
		if paid < owed {
			return chanerr.New(chanerr.ErrNotAllPaid)
		}
	}
	return nil
}

// payPartyVC is payParty generalized to a party whose payout combines
// a ledger-channel share with a virtual-channel share of the same
// asset. Grounded on Balances::fully_represented_vc.
func payPartyVC(view ledger.View, party channeltypes.Participant, owedCkbytes uint64, lcBalances channeltypes.Balances, lcPartyIdx int, vcSudts []channeltypes.SUDTBalance, vcPartyIdx int) error {
	if owedCkbytes >= party.PaymentMinCapacity {
		paid, err := sumOutputCapacityToLockHash(view, party.PaymentScriptHash)
		if err != nil {
			return err
		}
		if paid < owedCkbytes {
			return chanerr.New(chanerr.ErrNotAllPaid)
		}
	}
	seen := map[chainhash.Hash]bool{}
	check := func(asset channeltypes.SUDTAsset, owed uint64) error {
		h := asset.TypeScript.Hash()
		if seen[h] || owed == 0 {
			return nil
		}
		seen[h] = true
		paid, err := sumOutputSudtToLockHash(view, party.PaymentScriptHash, h)
		if err != nil {
			return err
		}
		if paid < owed {
			return chanerr.New(chanerr.ErrNotAllPaid)
		}
		return nil
	}
	for _, s := range lcBalances.Sudts {
		total := s.Distribution[lcPartyIdx]
		for _, vs := range vcSudts {
			if vs.Asset.TypeScript.Hash() == s.Asset.TypeScript.Hash() {
				total += vs.Distribution[vcPartyIdx]
			}
		}
		if err := check(s.Asset, total); err != nil {
			return err
		}
	}
	for _, vs := range vcSudts {
		if seen[vs.Asset.TypeScript.Hash()] {
			continue
		}
		if err := check(vs.Asset, vs.Distribution[vcPartyIdx]); err != nil {
			return err
		}
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

func sumOutputSudtToLockHash(view ledger.View, lockHash, sudtTypeHash chainhash.Hash) (uint64, error) {
	n, err := ledger.CountCells(view, ledger.Output)
	if err != nil {
		return 0, chanerr.Newf(chanerr.ErrEncoding, "count outputs: %v", err)
	}
	var total uint64
	for i := 0; i < n; i++ {
		lh, err := view.LoadCellLockHash(i, ledger.Output)
		if err != nil {
			return 0, chanerr.Newf(chanerr.ErrEncoding, "load output lock hash: %v", err)
		}
		if lh != lockHash {
			continue
		}
		th, err := view.LoadCellTypeHash(i, ledger.Output)
		if err != nil {
			return 0, chanerr.Newf(chanerr.ErrEncoding, "load output type hash: %v", err)
		}
		if th == nil || *th != sudtTypeHash {
			continue
		}
		data, err := view.LoadCellData(i, ledger.Output)
		if err != nil {
			return 0, chanerr.Newf(chanerr.ErrEncoding, "load output data: %v", err)
		}
		amount, err := decodeSudtAmount(data)
		if err != nil {
			return 0, err
		}
		total += amount
	}
	return total, nil
}

// decodeSudtAmount reads the 16-byte little-endian u128 amount prefix
// SUDT cell data carries, rejecting values above uint64 range.
func decodeSudtAmount(data []byte) (uint64, error) {
	if len(data) < 16 {
		return 0, chanerr.New(chanerr.ErrInvalidSUDTDataLength)
	}
	lo := binary.LittleEndian.Uint64(data[:8])
	hi := binary.LittleEndian.Uint64(data[8:16])
	if hi != 0 {
		return 0, chanerr.New(chanerr.ErrIntegerOverflow)
	}
	return lo, nil
}

// verifyFundingInOutputs checks that party partyIdx's contribution to
// balances is fully reflected among the transaction's outputs: a set
// of PFLS-locked cells naming ownHash whose total capacity equals
// ckbytes owed plus every sudt's backing capacity, and whose sudt
// cell data covers each sudt's owed distribution. Grounded on
// verify_funding_in_outputs in perun-channel-typescript/src/lib.rs.
func verifyFundingInOutputs(view ledger.View, args channeltypes.ChannelConstants, ownHash chainhash.Hash, partyIdx int, balances channeltypes.Balances) error {
	toFund := balances.Ckbytes[partyIdx] + balances.GetLockedCkbytes()

	n, err := ledger.CountCells(view, ledger.Output)
	if err != nil {
		return chanerr.Newf(chanerr.ErrEncoding, "count outputs: %v", err)
	}
	var capacitySum uint64
	sudtSums := make([]uint64, len(balances.Sudts))
	for i := 0; i < n; i++ {
		lock, err := view.LoadCellLock(i, ledger.Output)
		if err != nil {
			return chanerr.Newf(chanerr.ErrEncoding, "load output lock: %v", err)
		}
		if lock.CodeHash != args.PFLSCodeHash || lock.HashType != args.PFLSHashType {
			continue
		}
		if len(lock.Args) != 32 {
			return chanerr.Newf(chanerr.ErrEncoding, "pfls output args: want 32 bytes, got %d", len(lock.Args))
		}
		var argHash chainhash.Hash
		copy(argHash[:], lock.Args)
		if argHash != ownHash {
			return chanerr.New(chanerr.ErrInvalidPFLSInOutputs)
		}
		cap, err := view.LoadCellCapacity(i, ledger.Output)
		if err != nil {
			return chanerr.Newf(chanerr.ErrEncoding, "load output capacity: %v", err)
		}
		capacitySum += cap

		typ, err := view.LoadCellType(i, ledger.Output)
		if err != nil {
			return chanerr.Newf(chanerr.ErrEncoding, "load output type: %v", err)
		}
		if typ == nil {
			continue
		}
		typHash := typ.Hash()
		for si, sudt := range balances.Sudts {
			if sudt.Asset.TypeScript.Hash() != typHash {
				continue
			}
			data, err := view.LoadCellData(i, ledger.Output)
			if err != nil {
				return chanerr.Newf(chanerr.ErrEncoding, "load output data: %v", err)
			}
			amount, err := decodeSudtAmount(data)
			if err != nil {
				return err
			}
			sudtSums[si] += amount
		}
	}

	if capacitySum != toFund {
		return chanerr.New(chanerr.ErrOwnFundingNotInOutputs)
	}
	for si, sudt := range balances.Sudts {
		if sudtSums[si] < sudt.Distribution[partyIdx] {
			return chanerr.New(chanerr.ErrOwnFundingNotInOutputs)
		}
	}
	return nil
}

func loadInputTypeWitness(view ledger.View, index int, source ledger.Source) ([]byte, error) {
	w, err := view.LoadWitnessArgs(index, source)
	if err != nil {
		return nil, chanerr.Newf(chanerr.ErrEncoding, "load witness args: %v", err)
	}
	if !w.HasInputType {
		return nil, chanerr.New(chanerr.ErrNoWitness)
	}
	return w.InputType, nil
}
