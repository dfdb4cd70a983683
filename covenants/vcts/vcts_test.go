package vcts

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/perun-network/perun-ckb-contracts-go/chansig"
	"github.com/perun-network/perun-ckb-contracts-go/channeltypes"
	"github.com/perun-network/perun-ckb-contracts-go/ledger"
	"github.com/perun-network/perun-ckb-contracts-go/ledger/fixture"
	"github.com/stretchr/testify/require"
)

func mustKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	k, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return k
}

func signState(t *testing.T, key *btcec.PrivateKey, state channeltypes.ChannelState) []byte {
	t.Helper()
	hash := chansig.EthereumMessageHash(state.Serialize())
	sig := ecdsa.Sign(key, hash[:])
	return sig.Serialize()
}

func scriptHash(seed byte) chainhash.Hash {
	return ledger.Script{CodeHash: chainhash.Hash{seed}}.Hash()
}

func vcParams(keyA, keyB *btcec.PrivateKey) channeltypes.ChannelParameters {
	p := channeltypes.ChannelParameters{
		PartyA: channeltypes.Participant{PubKey: keyA.PubKey().SerializeCompressed(), PaymentScriptHash: scriptHash(0x61)},
		PartyB: channeltypes.Participant{PubKey: keyB.PubKey().SerializeCompressed(), PaymentScriptHash: scriptHash(0x62)},
		ChallengeDuration: 500,
		IsVirtualChannel:  true,
	}
	p.Nonce[0] = 2
	return p
}

func TestValidateVCStart(t *testing.T) {
	keyA, keyB := mustKey(t), mustKey(t)
	params := vcParams(keyA, keyB)
	args := channeltypes.VCChannelConstants{
		Params:       params,
		VCLSCodeHash: chainhash.Hash{0x50},
		VCLSHashType: ledger.HashTypeType,
	}

	vcState := channeltypes.ChannelState{ChannelID: params.ChannelID()}
	parentSigA := signState(t, keyA, vcState)
	parentSigB := signState(t, keyB, vcState)

	ownerLock := ledger.Script{CodeHash: chainhash.Hash{0x90}}
	owner := channeltypes.Participant{PaymentScriptHash: ownerLock.Hash()}
	otherParentHash := scriptHash(0x81)
	parentScript := ledger.Script{CodeHash: chainhash.Hash{0x91}}

	status := channeltypes.VirtualChannelStatus{
		VCState: vcState,
		Parents: [2]channeltypes.ParentData{
			{PCTSHash: parentScript.Hash(), IdxMap: [2]uint8{0, 1}},
			{PCTSHash: otherParentHash, IdxMap: [2]uint8{1, 0}},
		},
		FirstForceClose: false,
		Owner:           owner,
	}

	v := fixture.New()
	v.GroupOutputs = []fixture.Cell{{
		Lock: ledger.Script{CodeHash: args.VCLSCodeHash, HashType: args.VCLSHashType},
		Data: status.Serialize(),
	}}
	v.Inputs = []fixture.Cell{
		// Owner's funding input: a plain input whose lock hashes to owner.PaymentScriptHash.
		{Capacity: 100, Lock: ownerLock},
		// Parent PCTS input cell carrying the VCDispute witness.
		{Capacity: 100, Type: &parentScript},
	}
	v.SetWitness(1, ledger.Input, ledger.WitnessArgs{
		HasInputType: true,
		InputType: channeltypes.ChannelWitness{
			Kind:       channeltypes.WitnessVCDispute,
			ParentSigA: parentSigA,
			ParentSigB: parentSigB,
		}.Serialize(),
	})
	// The active parent must also appear as an output for this tx (it
	// continues) while the other parent appears in neither.
	v.Outputs = append(v.Outputs, fixture.Cell{Type: &parentScript})

	require.NoError(t, Validate(v, args))
}

func TestValidateVCProgress(t *testing.T) {
	keyA, keyB := mustKey(t), mustKey(t)
	params := vcParams(keyA, keyB)
	args := channeltypes.VCChannelConstants{Params: params}

	parents := [2]channeltypes.ParentData{
		{PCTSHash: scriptHash(0x80), IdxMap: [2]uint8{0, 1}},
		{PCTSHash: scriptHash(0x81), IdxMap: [2]uint8{1, 0}},
	}

	oldState := channeltypes.ChannelState{
		ChannelID: params.ChannelID(),
		Version:   0,
		Balances:  channeltypes.Balances{Ckbytes: [2]uint64{300, 700}},
	}
	newState := oldState
	newState.Version = 1

	old := channeltypes.VirtualChannelStatus{VCState: oldState, Parents: parents}
	new := channeltypes.VirtualChannelStatus{VCState: newState, Parents: parents}

	sigA := signState(t, keyA, newState)
	sigB := signState(t, keyB, newState)

	disputeParent := ledger.Script{CodeHash: chainhash.Hash{0x95}}
	parents[0].PCTSHash = disputeParent.Hash()
	old.Parents, new.Parents = parents, parents

	v := fixture.New()
	v.GroupInputs = []fixture.Cell{{Data: old.Serialize()}}
	v.GroupOutputs = []fixture.Cell{{Data: new.Serialize()}}
	v.Inputs = []fixture.Cell{{Type: &disputeParent}}
	v.SetWitness(0, ledger.Input, ledger.WitnessArgs{
		HasInputType: true,
		InputType: channeltypes.ChannelWitness{
			Kind: channeltypes.WitnessDispute,
			SigA: sigA,
			SigB: sigB,
		}.Serialize(),
	})

	require.NoError(t, Validate(v, args))
}

func TestValidateVCClose1(t *testing.T) {
	keyA, keyB := mustKey(t), mustKey(t)
	args := channeltypes.VCChannelConstants{Params: vcParams(keyA, keyB)}

	forceCloseParent := ledger.Script{CodeHash: chainhash.Hash{0x96}}
	parents := [2]channeltypes.ParentData{
		{PCTSHash: forceCloseParent.Hash()},
		{PCTSHash: scriptHash(0x81)},
	}
	state := channeltypes.ChannelState{ChannelID: args.Params.ChannelID()}

	old := channeltypes.VirtualChannelStatus{VCState: state, Parents: parents, FirstForceClose: false}
	new := channeltypes.VirtualChannelStatus{VCState: state, Parents: parents, FirstForceClose: true}

	v := fixture.New()
	v.GroupInputs = []fixture.Cell{{Data: old.Serialize()}}
	v.GroupOutputs = []fixture.Cell{{Data: new.Serialize()}}
	v.Inputs = []fixture.Cell{{Type: &forceCloseParent}}
	v.SetWitness(0, ledger.Input, ledger.WitnessArgs{
		HasInputType: true,
		InputType:    channeltypes.ChannelWitness{Kind: channeltypes.WitnessForceClose}.Serialize(),
	})

	require.NoError(t, Validate(v, args))
}

// TestValidateRejectsWrongWitnessOnSelectedParent checks that parent 0
// is selected deterministically once its PCTS cell is present in
// inputs: a ForceClose witness on parent 1 does not rescue a
// transaction where parent 0 carries some other witness kind.
func TestValidateRejectsWrongWitnessOnSelectedParent(t *testing.T) {
	keyA, keyB := mustKey(t), mustKey(t)
	args := channeltypes.VCChannelConstants{Params: vcParams(keyA, keyB)}

	parent0 := ledger.Script{CodeHash: chainhash.Hash{0x98}}
	parent1 := ledger.Script{CodeHash: chainhash.Hash{0x99}}
	parents := [2]channeltypes.ParentData{
		{PCTSHash: parent0.Hash()},
		{PCTSHash: parent1.Hash()},
	}
	state := channeltypes.ChannelState{ChannelID: args.Params.ChannelID()}

	old := channeltypes.VirtualChannelStatus{VCState: state, Parents: parents}
	new := channeltypes.VirtualChannelStatus{VCState: state, Parents: parents}

	v := fixture.New()
	v.GroupInputs = []fixture.Cell{{Data: old.Serialize()}}
	v.GroupOutputs = []fixture.Cell{{Data: new.Serialize()}}
	// Both parents are present as plain inputs, parent 0 first. Parent
	// 0 carries an unrelated witness kind; parent 1 carries
	// ForceClose. Selection must stop at parent 0 and reject.
	v.Inputs = []fixture.Cell{{Type: &parent0}, {Type: &parent1}}
	v.SetWitness(0, ledger.Input, ledger.WitnessArgs{
		HasInputType: true,
		InputType:    channeltypes.ChannelWitness{Kind: channeltypes.WitnessFund}.Serialize(),
	})
	v.SetWitness(1, ledger.Input, ledger.WitnessArgs{
		HasInputType: true,
		InputType:    channeltypes.ChannelWitness{Kind: channeltypes.WitnessForceClose}.Serialize(),
	})

	require.Error(t, Validate(v, args))
}

func TestValidateVCMerge(t *testing.T) {
	keyA, keyB := mustKey(t), mustKey(t)
	args := channeltypes.VCChannelConstants{Params: vcParams(keyA, keyB)}

	ownerLock := ledger.Script{CodeHash: chainhash.Hash{0xA0}}
	owner := channeltypes.Participant{PaymentScriptHash: scriptHash(0xA1)}
	state := channeltypes.ChannelState{ChannelID: args.Params.ChannelID()}
	parents := [2]channeltypes.ParentData{{PCTSHash: scriptHash(0x80)}, {PCTSHash: scriptHash(0x81)}}

	kept := channeltypes.VirtualChannelStatus{VCState: state, Parents: parents, Owner: owner}
	discardedOwner := channeltypes.Participant{PaymentScriptHash: ownerLock.Hash()}
	discarded := channeltypes.VirtualChannelStatus{VCState: state, Parents: parents, Owner: discardedOwner}

	newStatus := kept

	v := fixture.New()
	// kept (index 0) has the older (smaller) header number.
	v.GroupInputs = []fixture.Cell{
		{Capacity: 100, Data: kept.Serialize(), Header: &ledger.Header{Number: 10}},
		{Capacity: 50, Data: discarded.Serialize(), Header: &ledger.Header{Number: 20}},
	}
	v.GroupOutputs = []fixture.Cell{{Data: newStatus.Serialize()}}
	v.Outputs = []fixture.Cell{{Capacity: 50, Lock: ownerLock}}

	require.NoError(t, Validate(v, args))
}

func TestValidateVCClose2(t *testing.T) {
	keyA, keyB := mustKey(t), mustKey(t)
	args := channeltypes.VCChannelConstants{Params: vcParams(keyA, keyB)}

	forceCloseParent := ledger.Script{CodeHash: chainhash.Hash{0x97}}
	ownerLock := ledger.Script{CodeHash: chainhash.Hash{0xB0}}
	owner := channeltypes.Participant{PaymentScriptHash: ownerLock.Hash()}
	parents := [2]channeltypes.ParentData{{PCTSHash: forceCloseParent.Hash()}, {PCTSHash: scriptHash(0x81)}}
	state := channeltypes.ChannelState{ChannelID: args.Params.ChannelID()}

	old := channeltypes.VirtualChannelStatus{
		VCState:         state,
		Parents:         parents,
		FirstForceClose: true,
		Owner:           owner,
	}

	v := fixture.New()
	v.GroupInputs = []fixture.Cell{{Capacity: 100, Data: old.Serialize()}}
	v.Inputs = []fixture.Cell{{Type: &forceCloseParent}}
	v.SetWitness(0, ledger.Input, ledger.WitnessArgs{
		HasInputType: true,
		InputType:    channeltypes.ChannelWitness{Kind: channeltypes.WitnessForceClose}.Serialize(),
	})
	v.Outputs = []fixture.Cell{{Capacity: 100, Lock: ownerLock}}

	require.NoError(t, Validate(v, args))
}

func TestValidateRejectsBadCardinality(t *testing.T) {
	keyA, keyB := mustKey(t), mustKey(t)
	args := channeltypes.VCChannelConstants{Params: vcParams(keyA, keyB)}
	v := fixture.New()
	v.GroupInputs = []fixture.Cell{{}, {}, {}}
	require.Error(t, Validate(v, args))
}
