// Package fixture builds an in-memory ledger.View for tests, the same
// way the teacher's own tests assemble chain state by hand rather than
// standing up a real node (blockchain/chainio_test.go,
// settlement/*_test.go). It is the Go-native stand-in for the external
// test harness spec.md §1 names as out of scope.
package fixture

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/perun-network/perun-ckb-contracts-go/ledger"
)

// Cell is a single input or output cell as supplied by a test.
type Cell struct {
	Capacity uint64
	Lock     ledger.Script
	Type     *ledger.Script
	Data     []byte
	// Header is the block header this cell was created in, returned by
	// LoadHeader for the cell's own (index, source); header dependencies
	// are supplied separately in View.HeaderDeps.
	Header *ledger.Header
	// PreviousOutpoint is the outpoint this cell spends, populated only
	// for Inputs/GroupInputs cells; used by thread-token checks.
	PreviousOutpoint ledger.OutPoint
}

// View is a hand-assembled ledger.View: the running script's own
// script, the full transaction, and parallel cell/header slices keyed
// by ledger.Source.
type View struct {
	Script    ledger.Script
	ScriptHash chainhash.Hash

	Inputs       []Cell
	Outputs      []Cell
	GroupInputs  []Cell
	GroupOutputs []Cell
	CellDeps     []Cell
	HeaderDeps   []ledger.Header

	// WitnessArgs is keyed by (index, source) via witnessKey.
	WitnessArgs map[witnessKey]ledger.WitnessArgs
}

type witnessKey struct {
	index  int
	source ledger.Source
}

// New returns an empty View ready to be populated field by field.
func New() *View {
	return &View{WitnessArgs: make(map[witnessKey]ledger.WitnessArgs)}
}

// SetWitness records the witness args for (index, source).
func (v *View) SetWitness(index int, source ledger.Source, w ledger.WitnessArgs) {
	v.WitnessArgs[witnessKey{index, source}] = w
}

func (v *View) cells(source ledger.Source) []Cell {
	switch source {
	case ledger.Input:
		return v.Inputs
	case ledger.Output:
		return v.Outputs
	case ledger.GroupInput:
		return v.GroupInputs
	case ledger.GroupOutput:
		return v.GroupOutputs
	case ledger.CellDep:
		return v.CellDeps
	default:
		return nil
	}
}

func (v *View) cell(index int, source ledger.Source) (Cell, error) {
	cells := v.cells(source)
	if index < 0 || index >= len(cells) {
		return Cell{}, ledger.NewSysError(ledger.IndexOutOfBound)
	}
	return cells[index], nil
}

func (v *View) LoadScript() (ledger.Script, error) { return v.Script, nil }

func (v *View) LoadScriptHash() (chainhash.Hash, error) { return v.ScriptHash, nil }

func (v *View) LoadTransaction() (*ledger.Transaction, error) {
	tx := &ledger.Transaction{}
	for _, c := range v.Inputs {
		tx.Inputs = append(tx.Inputs, ledger.Input{PreviousOutput: c.PreviousOutpoint})
	}
	for _, c := range v.Outputs {
		tx.Outputs = append(tx.Outputs, ledger.Output{
			Capacity: c.Capacity,
			Lock:     c.Lock,
			Type:     c.Type,
			Data:     c.Data,
		})
	}
	return tx, nil
}

func (v *View) LoadCellData(index int, source ledger.Source) ([]byte, error) {
	c, err := v.cell(index, source)
	if err != nil {
		return nil, err
	}
	return c.Data, nil
}

func (v *View) LoadCellLock(index int, source ledger.Source) (ledger.Script, error) {
	c, err := v.cell(index, source)
	if err != nil {
		return ledger.Script{}, err
	}
	return c.Lock, nil
}

func (v *View) LoadCellLockHash(index int, source ledger.Source) (chainhash.Hash, error) {
	c, err := v.cell(index, source)
	if err != nil {
		return chainhash.Hash{}, err
	}
	return c.Lock.Hash(), nil
}

func (v *View) LoadCellType(index int, source ledger.Source) (*ledger.Script, error) {
	c, err := v.cell(index, source)
	if err != nil {
		return nil, err
	}
	return c.Type, nil
}

func (v *View) LoadCellTypeHash(index int, source ledger.Source) (*chainhash.Hash, error) {
	c, err := v.cell(index, source)
	if err != nil {
		return nil, err
	}
	if c.Type == nil {
		return nil, nil
	}
	h := c.Type.Hash()
	return &h, nil
}

func (v *View) LoadCellCapacity(index int, source ledger.Source) (uint64, error) {
	c, err := v.cell(index, source)
	if err != nil {
		return 0, err
	}
	return c.Capacity, nil
}

func (v *View) LoadWitnessArgs(index int, source ledger.Source) (ledger.WitnessArgs, error) {
	w, ok := v.WitnessArgs[witnessKey{index, source}]
	if !ok {
		return ledger.WitnessArgs{}, ledger.NewSysError(ledger.IndexOutOfBound)
	}
	return w, nil
}

func (v *View) LoadHeader(index int, source ledger.Source) (ledger.Header, error) {
	if source == ledger.HeaderDep {
		if index < 0 || index >= len(v.HeaderDeps) {
			return ledger.Header{}, ledger.NewSysError(ledger.IndexOutOfBound)
		}
		return v.HeaderDeps[index], nil
	}
	c, err := v.cell(index, source)
	if err != nil {
		return ledger.Header{}, err
	}
	if c.Header == nil {
		return ledger.Header{}, ledger.NewSysError(ledger.ItemMissing)
	}
	return *c.Header, nil
}

var _ ledger.View = (*View)(nil)
