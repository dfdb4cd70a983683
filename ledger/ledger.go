// Package ledger models the CKB-style syscall surface a type/lock
// script observes when it runs: the transaction's inputs and outputs,
// the scripts and data attached to each cell, the witnesses, and any
// header dependencies needed for relative time locks. It stands in
// for the host ledger runtime named as out of scope in spec.md §1 —
// PCTS, PFLS and VCTS are written entirely against the View interface
// here, never against a concrete chain implementation.
package ledger

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"golang.org/x/crypto/blake2b"
)

func blake2b256(data []byte) chainhash.Hash {
	sum := blake2b.Sum256(data)
	return chainhash.Hash(sum)
}

// Source identifies which half of which transaction a load call reads
// from, exactly as in spec.md §6.
type Source int

const (
	Input Source = iota
	Output
	GroupInput
	GroupOutput
	HeaderDep
	CellDep
)

func (s Source) String() string {
	switch s {
	case Input:
		return "Input"
	case Output:
		return "Output"
	case GroupInput:
		return "GroupInput"
	case GroupOutput:
		return "GroupOutput"
	case HeaderDep:
		return "HeaderDep"
	case CellDep:
		return "CellDep"
	default:
		return "Unknown"
	}
}

// HashType mirrors CKB's script hash_type byte: whether a script's
// code_hash names a data hash or a type-id/type-script hash.
type HashType byte

const (
	HashTypeData  HashType = 0
	HashTypeType  HashType = 1
	HashTypeData1 HashType = 2
)

// Script is a lock or type script reference: a code hash, a hash-type
// discriminator, and opaque args.
type Script struct {
	CodeHash chainhash.Hash
	HashType HashType
	Args     []byte
}

// Equal reports whether two scripts are byte-for-byte identical —
// used by "lock continuity" checks (spec.md §4.1 Progress/Fund).
func (s Script) Equal(other Script) bool {
	if s.CodeHash != other.CodeHash || s.HashType != other.HashType {
		return false
	}
	if len(s.Args) != len(other.Args) {
		return false
	}
	for i := range s.Args {
		if s.Args[i] != other.Args[i] {
			return false
		}
	}
	return true
}

// Hash returns the script's identity hash, used wherever the spec
// compares a "script hash" (e.g. a PFLS lock arg, a VCTS parent
// reference). Scripts are identified by Blake2b-256 of their
// canonical serialization, matching CKB's own script-hash convention.
func (s Script) Hash() chainhash.Hash {
	buf := make([]byte, 0, 32+1+len(s.Args))
	buf = append(buf, s.CodeHash[:]...)
	buf = append(buf, byte(s.HashType))
	buf = append(buf, s.Args...)
	return blake2b256(buf)
}

// OutPoint identifies a previously created cell by the hash of the
// transaction that created it and the index of the output within that
// transaction.
type OutPoint = wire.OutPoint

// Input is a transaction input: the outpoint it spends.
type Input struct {
	PreviousOutput OutPoint
}

// Output is a transaction output cell.
type Output struct {
	Capacity uint64
	Lock     Script
	Type     *Script
	Data     []byte
}

// Transaction is the read-only view of the candidate transaction a
// script is asked to accept or reject.
type Transaction struct {
	Inputs  []Input
	Outputs []Output
}

// Header is the block header a cell was created in or attached as a
// dependency, reduced to the two fields the spec's time-lock and
// VCMerge tie-break rules need.
type Header struct {
	Timestamp uint64 // milliseconds
	Number    uint64
}

// WitnessArgs is the per-input witness structure: an optional lock
// field (consumed by the lock script) and optional input/output type
// fields (consumed by the type script). This repository only ever
// populates InputType, which carries the ChannelWitness;
// VCChannelConstants travel in the VCTS type script's args instead.
type WitnessArgs struct {
	Lock          []byte
	InputType     []byte
	OutputType    []byte
	HasLock       bool
	HasInputType  bool
	HasOutputType bool
}

// View is the syscall surface a validator reads from. Every method
// corresponds 1:1 to a load_* syscall in spec.md §6.
type View interface {
	LoadScript() (Script, error)
	LoadScriptHash() (chainhash.Hash, error)
	LoadTransaction() (*Transaction, error)
	LoadCellData(index int, source Source) ([]byte, error)
	LoadCellLock(index int, source Source) (Script, error)
	LoadCellLockHash(index int, source Source) (chainhash.Hash, error)
	LoadCellType(index int, source Source) (*Script, error)
	LoadCellTypeHash(index int, source Source) (*chainhash.Hash, error)
	LoadCellCapacity(index int, source Source) (uint64, error)
	LoadWitnessArgs(index int, source Source) (WitnessArgs, error)
	LoadHeader(index int, source Source) (Header, error)
}
