// Package channeltypes holds the domain records PCTS, PFLS and VCTS
// exchange: channel parameters, balances, state, status and the
// witness union a spending transaction carries. It is the Go
// analogue of perun_types in original_source/.../perun-common, wire
// compatible only within this module (see moltype for why an external
// schema compiler was not used) but field-for-field faithful to it.
//
// Grounded on settlement/channels/channel.go (the teacher's own
// trivial payment-channel record, same hash-derived-id, same-spirit
// balance bookkeeping) generalized to the full two-/three-party model
// the spec requires.
package channeltypes

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/perun-network/perun-ckb-contracts-go/ledger"
)

// Bounds on decoded vector lengths, enforcing the no-unbounded-
// allocation discipline carried from the original no_std contracts.
const (
	MaxSudtEntries   = 64
	MaxLockedEntries = 16
)

// Participant identifies one party to a channel: the public key its
// state signatures verify against, the lock-script hash payments to
// it must match, and the minimum capacity a payment to it must carry
// to be required at all.
type Participant struct {
	PubKey             []byte
	PaymentScriptHash  chainhash.Hash
	PaymentMinCapacity uint64
	// UnlockScriptHash identifies the funding input cells that belong
	// to this party (their PFLS lock script's own unlock identity),
	// distinct from PaymentScriptHash which names where payouts go.
	UnlockScriptHash chainhash.Hash
}

// ChannelParameters are the channel's immutable identity: its two
// parties, a nonce for uniqueness, the challenge duration used by
// every time lock in its lifecycle, an optional app extension (always
// empty — app channels are a non-goal), and the ledger/virtual
// channel type flags.
type ChannelParameters struct {
	PartyA, PartyB    Participant
	Nonce             [32]byte
	ChallengeDuration uint64
	App               []byte
	IsLedgerChannel   bool
	IsVirtualChannel  bool
}

// ChannelID returns Blake2b256(Serialize(params)), the channel's
// on-chain identity. Grounded on verify_channel_id_integrity in
// original_source/.../perun-common/src/channels.rs.
func (p ChannelParameters) ChannelID() chainhash.Hash {
	return blake2b256(p.Serialize())
}

// ChannelToken is the "thread token": an outpoint that must be
// consumed by the transaction that starts a channel, giving the
// channel a globally unique on-chain identity even if two channels
// share the same parameters.
type ChannelToken struct {
	OutPoint ledger.OutPoint
}

// ChannelConstants are the PCTS args: the channel parameters plus
// everything needed to validate funding and lock continuity that
// never changes across the channel's lifetime.
type ChannelConstants struct {
	Params          ChannelParameters
	ThreadToken     ChannelToken
	PCLSCodeHash    chainhash.Hash
	PCLSHashType    ledger.HashType
	PFLSCodeHash    chainhash.Hash
	PFLSHashType    ledger.HashType
	PFLSMinCapacity uint64
}

// VCChannelConstants are the VCTS args: the virtual channel's
// parameters plus the always-success lock script it is held by.
type VCChannelConstants struct {
	Params       ChannelParameters
	VCLSCodeHash chainhash.Hash
	VCLSHashType ledger.HashType
}

// SUDTAsset identifies a simple user-defined token by its type
// script.
type SUDTAsset struct {
	TypeScript ledger.Script
}

// SUDTBalance is one asset's distribution between the two parties,
// plus the ckbyte capacity its cell is backed by (MaxCapacity) — the
// amount reimbursed to both parties in full on any non-abort close,
// per the original's unconditional get_locked_ckbytes()-based
// reimbursement (see DESIGN.md Open Question (a)).
type SUDTBalance struct {
	Asset        SUDTAsset
	MaxCapacity  uint64
	Distribution [2]uint64
}

// SubAlloc is one entry in a ledger channel's locked-funds table: the
// virtual channel id the allocation is reserved for, and the balances
// reserved for it.
type SubAlloc struct {
	ID       chainhash.Hash
	Balances Balances
}

// Balances is a channel state's funds: native ckbytes split between
// the two parties, any SUDT assets similarly split, and any funds
// earmarked for a child virtual channel.
type Balances struct {
	Ckbytes [2]uint64
	Sudts   []SUDTBalance
	Locked  []SubAlloc
}

// ChannelState is the mutable part of a channel: its identity, the
// monotonic version counter, the current balance split, and whether
// it is final.
type ChannelState struct {
	ChannelID chainhash.Hash
	Version   uint64
	Balances  Balances
	IsFinal   bool
}

// ChannelStatus is a ledger channel cell's full data: its state plus
// the funded/disputed/vc-disputed flags and, while vc-disputed, the
// script hash of the virtual channel type script it has spawned.
type ChannelStatus struct {
	State     ChannelState
	Funded    bool
	Disputed  bool
	VCDisputed bool
	VCTSHash  chainhash.Hash
}

// ParentData names one of a virtual channel's two ledger-channel
// parents: the parent PCTS's script hash and a 2-entry index map —
// IdxMap[lcPartyIdx] is that ledger-channel participant's index
// within the virtual channel's own balances.
type ParentData struct {
	PCTSHash chainhash.Hash
	IdxMap   [2]uint8
}

// VirtualChannelStatus is a virtual channel cell's full data.
type VirtualChannelStatus struct {
	VCState         ChannelState
	Parents         [2]ParentData
	FirstForceClose bool
	Owner           Participant
}
