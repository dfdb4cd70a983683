// Package chanerr defines the error-kind taxonomy shared by PCTS, PFLS
// and VCTS. Every validation rule maps to exactly one ErrorCode; a
// validator either returns nil (accept) or a *ValidationError (reject).
// Modeled on the ruleError(ErrorCode, description) idiom used by the
// Shell Reserve blockchain package for its own consensus errors.
package chanerr

import "fmt"

// ErrorCode identifies the specific rule that rejected a transaction.
type ErrorCode int

const (
	// Ledger/system errors, mirroring the CKB syscall error channel.
	ErrIndexOutOfBound ErrorCode = iota
	ErrItemMissing
	ErrLengthNotEnough
	ErrEncoding

	// Generic argument/witness errors.
	ErrNoArgs
	ErrNoWitness

	// Channel identity and parameter errors.
	ErrInvalidChannelId
	ErrChannelIdMismatch
	ErrAppChannelsNotSupported
	ErrWrongChannelType
	ErrSamePaymentAddress
	ErrInvalidThreadToken

	// Cardinality / action classification errors.
	ErrMoreThanOneChannel
	ErrUnableToLoadAnyChannelStatus
	ErrUnableToLoadVirtualChannelStatus
	ErrChannelFundWithoutChannelOutput
	ErrChannelDisputeWithoutChannelOutput
	ErrVCDisputeWithoutChannelOutput
	ErrChannelCloseWithChannelOutput
	ErrChannelForceCloseWithChannelOutput
	ErrChannelAbortWithChannelOutput

	// Lock-script / lock-continuity errors.
	ErrInvalidPCLSCodeHash
	ErrInvalidPCLSHashType
	ErrPCLSWithArgs
	ErrChannelDoesNotContinue
	ErrInvalidVCLockScript
	ErrVCLSWithArgs

	// Funding errors.
	ErrFundsInInputs
	ErrOwnFundingNotInOutputs
	ErrInvalidPFLSInOutputs
	ErrFundedBitStatusNotCorrect
	ErrStateIsFunded
	ErrChannelNotFunded
	ErrBalanceBelowPFLSMinCapacity
	ErrPFLSNotFound

	// State-transition errors.
	ErrStartWithNonZeroVersion
	ErrStartWithFinalizedState
	ErrVersionNumberNotIncreasing
	ErrInvalidVersionNumberVCProgressTx
	ErrChannelStateNotEqual
	ErrSumOfBalancesNotEqual
	ErrStateIsFinal
	ErrStateNotFinal
	ErrStatusDisputed
	ErrStatusNotDisputed

	// Signature errors.
	ErrSignatureVerificationError

	// Virtual-channel dispute / locking errors.
	ErrInvalidVCTxStart
	ErrVCOutputCellMissingInStartTx
	ErrVCInputCellMissingInClose1Tx
	ErrFundsForVCNotLocked
	ErrUnequalBalanceInLockedFundsAndVirtualChannelBalance
	ErrInvalidVCParentData
	ErrVCParticipantIdxNotFound
	ErrParentPCTSHashNotFound
	ErrParentNotFoundInOutputs

	// Force-close / time-lock errors.
	ErrTimeLockNotExpired
	ErrNotAllPaid

	// VC lifecycle errors.
	ErrFirstForceCloseFlagSet
	ErrFirstForceCloseFlagNotSet
	ErrParentNotInForceClose
	ErrParentWitnessWrongKind
	ErrOwnerFundingCellMissing
	ErrInvalidVCMergeTx
	ErrInvalidParentsCountForVC
	ErrVCInputCellMissingInMergeTx
	ErrNoVCRentPayoutCell
	ErrInvalidVCRentPayoutCell
	ErrInvalidVCClose1Tx

	// Data/decoding errors.
	ErrInvalidSUDTDataLength
	ErrDecodeOverflow
	ErrIntegerOverflow
)

var descriptions = map[ErrorCode]string{
	ErrIndexOutOfBound:            "index out of bound",
	ErrItemMissing:                "item missing",
	ErrLengthNotEnough:            "length not enough",
	ErrEncoding:                   "encoding error",
	ErrNoArgs:                     "script args are empty",
	ErrNoWitness:                  "no witness present",
	ErrInvalidChannelId:           "channel id is not the hash of its parameters",
	ErrChannelIdMismatch:          "old and new channel id differ",
	ErrAppChannelsNotSupported:    "app channels are not supported",
	ErrWrongChannelType:           "channel parameters declare the wrong channel type",
	ErrSamePaymentAddress:         "party A and party B share a payment address",
	ErrInvalidThreadToken:         "thread token outpoint not consumed",
	ErrMoreThanOneChannel:         "more than one channel cell in group inputs or outputs",
	ErrUnableToLoadAnyChannelStatus:        "unable to load channel status from input or output",
	ErrUnableToLoadVirtualChannelStatus:    "unable to load virtual channel status",
	ErrChannelFundWithoutChannelOutput:     "fund witness used without a continuing channel output",
	ErrChannelDisputeWithoutChannelOutput:  "dispute witness used without a continuing channel output",
	ErrVCDisputeWithoutChannelOutput:       "vc-dispute witness used without a continuing channel output",
	ErrChannelCloseWithChannelOutput:       "close witness used with a continuing channel output",
	ErrChannelForceCloseWithChannelOutput:  "force-close witness used with a continuing channel output",
	ErrChannelAbortWithChannelOutput:       "abort witness used with a continuing channel output",
	ErrInvalidPCLSCodeHash:        "channel output is not locked by the expected PCLS code hash",
	ErrInvalidPCLSHashType:        "channel output lock has the wrong hash type",
	ErrPCLSWithArgs:               "PCLS lock script must have empty args",
	ErrChannelDoesNotContinue:     "output channel cell lock script differs from input",
	ErrInvalidVCLockScript:        "virtual channel output is not locked by the expected VCLS",
	ErrVCLSWithArgs:               "VCLS lock script must have empty args",
	ErrFundsInInputs:              "a PFLS-locked cell is present in the inputs",
	ErrOwnFundingNotInOutputs:     "funding for this party is not fully reflected in the outputs",
	ErrInvalidPFLSInOutputs:       "PFLS output args do not match this channel's script hash",
	ErrFundedBitStatusNotCorrect:  "funded bit does not match the actual funding state",
	ErrStateIsFunded:              "channel is already funded",
	ErrChannelNotFunded:           "channel is not fully funded",
	ErrBalanceBelowPFLSMinCapacity: "initial balance is below the PFLS minimum capacity",
	ErrPFLSNotFound:               "no input cell carries the expected PCTS type hash",
	ErrStartWithNonZeroVersion:    "channel started with a non-zero version",
	ErrStartWithFinalizedState:    "channel started with a finalized state",
	ErrVersionNumberNotIncreasing: "version number did not increase",
	ErrInvalidVersionNumberVCProgressTx: "vc progress version number decreased",
	ErrChannelStateNotEqual:       "channel state changed where it must stay fixed",
	ErrSumOfBalancesNotEqual:      "sum of balances changed",
	ErrStateIsFinal:               "state is final where it must not be",
	ErrStateNotFinal:              "state is not final",
	ErrStatusDisputed:             "status is disputed where it must not be",
	ErrStatusNotDisputed:          "status is not disputed",
	ErrSignatureVerificationError: "signature verification failed",
	ErrInvalidVCTxStart:           "invalid virtual channel start transaction",
	ErrVCOutputCellMissingInStartTx: "no output cell matches the declared vcts hash",
	ErrVCInputCellMissingInClose1Tx: "no input cell matches the declared vcts hash",
	ErrFundsForVCNotLocked:        "locked balances do not contain the virtual channel's allocation",
	ErrUnequalBalanceInLockedFundsAndVirtualChannelBalance: "locked allocation sum does not match the virtual channel's balances",
	ErrInvalidVCParentData:        "virtual channel parent data does not reference this PCTS",
	ErrVCParticipantIdxNotFound:   "participant index not found in VC index map",
	ErrParentPCTSHashNotFound:     "parent PCTS hash missing from virtual channel status",
	ErrParentNotFoundInOutputs:    "parent ledger channel cell missing from outputs",
	ErrTimeLockNotExpired:         "challenge duration has not expired",
	ErrNotAllPaid:                 "not all parties are fully paid",
	ErrFirstForceCloseFlagSet:     "first_force_close flag is already set",
	ErrFirstForceCloseFlagNotSet:  "first_force_close flag is not set",
	ErrParentNotInForceClose:      "parent channel's witness is not ForceClose",
	ErrParentWitnessWrongKind:     "parent channel's witness has the wrong kind for this action",
	ErrOwnerFundingCellMissing:    "no input cell carries the owner's payment script hash",
	ErrInvalidVCMergeTx:           "invalid virtual channel merge transaction",
	ErrInvalidParentsCountForVC:   "virtual channel status does not declare exactly two parents",
	ErrVCInputCellMissingInMergeTx: "merge transaction is missing an input virtual channel cell",
	ErrNoVCRentPayoutCell:         "no output cell pays the virtual channel owner",
	ErrInvalidVCRentPayoutCell:    "virtual channel owner payout is insufficient",
	ErrInvalidVCClose1Tx:          "invalid virtual channel close1 transaction",
	ErrInvalidSUDTDataLength:      "sudt cell data shorter than the amount prefix",
	ErrDecodeOverflow:             "decoded vector exceeds its maximum bound",
	ErrIntegerOverflow:            "balance arithmetic overflowed",
}

// ValidationError is the error type every validator in this repository
// returns. A nil error is the only accept outcome.
type ValidationError struct {
	Code ErrorCode
	// Detail, when non-empty, supplements the fixed description with
	// call-site context (an index, a hash, a value) for diagnostics.
	// It carries no semantic weight: the ledger observes only whether
	// an error was returned, never its contents.
	Detail string
}

func (e *ValidationError) Error() string {
	desc := descriptions[e.Code]
	if desc == "" {
		desc = "unknown error"
	}
	if e.Detail == "" {
		return desc
	}
	return fmt.Sprintf("%s: %s", desc, e.Detail)
}

// New constructs a ValidationError for code with no extra detail.
func New(code ErrorCode) error {
	return &ValidationError{Code: code}
}

// Newf constructs a ValidationError for code with formatted detail.
func Newf(code ErrorCode, format string, args ...interface{}) error {
	return &ValidationError{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ErrorCode from err, if err is a *ValidationError.
func CodeOf(err error) (ErrorCode, bool) {
	ve, ok := err.(*ValidationError)
	if !ok {
		return 0, false
	}
	return ve.Code, true
}
