package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/perun-network/perun-ckb-contracts-go/ledger"
	"github.com/perun-network/perun-ckb-contracts-go/ledger/fixture"
)

// scriptFixture is the JSON shape of a ledger.Script.
type scriptFixture struct {
	CodeHash string `json:"code_hash"`
	HashType uint8  `json:"hash_type"`
	Args     string `json:"args"`
}

func (s scriptFixture) decode() (ledger.Script, error) {
	if s.CodeHash == "" {
		return ledger.Script{}, nil
	}
	codeHash, err := chainhash.NewHashFromStr(s.CodeHash)
	if err != nil {
		return ledger.Script{}, fmt.Errorf("decode code_hash: %w", err)
	}
	args, err := hex.DecodeString(s.Args)
	if err != nil {
		return ledger.Script{}, fmt.Errorf("decode args: %w", err)
	}
	return ledger.Script{CodeHash: *codeHash, HashType: ledger.HashType(s.HashType), Args: args}, nil
}

// cellFixture is the JSON shape of one input or output cell.
type cellFixture struct {
	Capacity         uint64         `json:"capacity"`
	Lock             scriptFixture  `json:"lock"`
	Type             *scriptFixture `json:"type,omitempty"`
	Data             string         `json:"data"`
	WitnessInputType string         `json:"witness_input_type,omitempty"`
	Header           *struct {
		Timestamp uint64 `json:"timestamp"`
		Number    uint64 `json:"number"`
	} `json:"header,omitempty"`
}

func (c cellFixture) decode() (fixture.Cell, []byte, error) {
	lock, err := c.Lock.decode()
	if err != nil {
		return fixture.Cell{}, nil, err
	}
	var typ *ledger.Script
	if c.Type != nil {
		decoded, err := c.Type.decode()
		if err != nil {
			return fixture.Cell{}, nil, err
		}
		typ = &decoded
	}
	data, err := hex.DecodeString(c.Data)
	if err != nil {
		return fixture.Cell{}, nil, fmt.Errorf("decode cell data: %w", err)
	}
	cell := fixture.Cell{Capacity: c.Capacity, Lock: lock, Type: typ, Data: data}
	if c.Header != nil {
		cell.Header = &ledger.Header{Timestamp: c.Header.Timestamp, Number: c.Header.Number}
	}
	witness, err := hex.DecodeString(c.WitnessInputType)
	if err != nil {
		return fixture.Cell{}, nil, fmt.Errorf("decode witness_input_type: %w", err)
	}
	return cell, witness, nil
}

// txFixture is the JSON shape of a whole transaction view, the
// format loadTxFile reads from --txfile.
type txFixture struct {
	Script       scriptFixture `json:"script"`
	Inputs       []cellFixture `json:"inputs"`
	Outputs      []cellFixture `json:"outputs"`
	GroupInputs  []cellFixture `json:"group_inputs"`
	GroupOutputs []cellFixture `json:"group_outputs"`
}

// loadTxFile decodes a JSON transaction fixture into a ready-to-run
// fixture.View.
func loadTxFile(path string) (*fixture.View, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tx file: %w", err)
	}
	var tx txFixture
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, fmt.Errorf("parse tx file: %w", err)
	}

	v := fixture.New()
	script, err := tx.Script.decode()
	if err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	v.Script = script
	v.ScriptHash = script.Hash()

	groups := []struct {
		cells  []cellFixture
		source ledger.Source
		dst    *[]fixture.Cell
	}{
		{tx.Inputs, ledger.Input, &v.Inputs},
		{tx.Outputs, ledger.Output, &v.Outputs},
		{tx.GroupInputs, ledger.GroupInput, &v.GroupInputs},
		{tx.GroupOutputs, ledger.GroupOutput, &v.GroupOutputs},
	}
	for _, g := range groups {
		for i, cf := range g.cells {
			cell, witness, err := cf.decode()
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", g.source, i, err)
			}
			*g.dst = append(*g.dst, cell)
			if len(witness) > 0 {
				v.SetWitness(i, g.source, ledger.WitnessArgs{HasInputType: true, InputType: witness})
			}
		}
	}
	return v, nil
}
