package channeltypes

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/perun-network/perun-ckb-contracts-go/ledger"
)

func sampleParams() ChannelParameters {
	p := ChannelParameters{
		PartyA: Participant{
			PubKey:             []byte{1, 2, 3},
			PaymentScriptHash:  chainhash.Hash{0xAA},
			PaymentMinCapacity: 6100000000,
			UnlockScriptHash:   chainhash.Hash{0xCC},
		},
		PartyB: Participant{
			PubKey:             []byte{4, 5, 6},
			PaymentScriptHash:  chainhash.Hash{0xBB},
			PaymentMinCapacity: 6100000000,
			UnlockScriptHash:   chainhash.Hash{0xDD},
		},
		ChallengeDuration: 86400000,
		IsLedgerChannel:   true,
	}
	p.Nonce[0] = 7
	return p
}

func TestChannelParametersRoundTrip(t *testing.T) {
	p := sampleParams()
	got, err := DeserializeChannelParameters(p.Serialize())
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if !bytes.Equal(got.Serialize(), p.Serialize()) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, p)
	}
}

func TestChannelIDDeterministic(t *testing.T) {
	p := sampleParams()
	id1 := p.ChannelID()
	id2 := p.ChannelID()
	if id1 != id2 {
		t.Fatalf("channel id not deterministic")
	}
	p2 := p
	p2.Nonce[0] = 8
	if p2.ChannelID() == id1 {
		t.Fatalf("changing nonce did not change channel id")
	}
}

func sampleState() ChannelState {
	return ChannelState{
		ChannelID: chainhash.Hash{0x01},
		Version:   3,
		Balances: Balances{
			Ckbytes: [2]uint64{1000, 2000},
			Sudts: []SUDTBalance{{
				Asset:        SUDTAsset{TypeScript: ledger.Script{CodeHash: chainhash.Hash{0x02}}},
				MaxCapacity:  500,
				Distribution: [2]uint64{10, 20},
			}},
		},
		IsFinal: false,
	}
}

func TestChannelStatusRoundTrip(t *testing.T) {
	s := ChannelStatus{
		State:    sampleState(),
		Funded:   true,
		Disputed: false,
		VCTSHash: chainhash.Hash{0x09},
	}
	got, err := DeserializeChannelStatus(s.Serialize())
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if !bytes.Equal(got.Serialize(), s.Serialize()) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, s)
	}
}

func TestVirtualChannelStatusRoundTrip(t *testing.T) {
	vs := VirtualChannelStatus{
		VCState: sampleState(),
		Parents: [2]ParentData{
			{PCTSHash: chainhash.Hash{0x10}, IdxMap: [2]uint8{0, 1}},
			{PCTSHash: chainhash.Hash{0x11}, IdxMap: [2]uint8{1, 0}},
		},
		FirstForceClose: true,
		Owner: Participant{
			PubKey:             []byte{9, 9},
			PaymentScriptHash:  chainhash.Hash{0x12},
			PaymentMinCapacity: 100,
		},
	}
	got, err := DeserializeVirtualChannelStatus(vs.Serialize())
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if !bytes.Equal(got.Serialize(), vs.Serialize()) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, vs)
	}
	vs2 := vs
	vs2.Owner.PaymentMinCapacity = 200
	if !vs.EqualExceptOwner(vs2) {
		t.Fatalf("EqualExceptOwner should ignore owner changes")
	}
	vs3 := vs
	vs3.FirstForceClose = false
	if vs.EqualExceptOwner(vs3) {
		t.Fatalf("EqualExceptOwner should not ignore first_force_close changes")
	}
}

func TestChannelWitnessRoundTrip(t *testing.T) {
	cases := []ChannelWitness{
		{Kind: WitnessFund},
		{Kind: WitnessForceClose},
		{Kind: WitnessAbort},
		{Kind: WitnessDispute, SigA: []byte{1, 2}, SigB: []byte{3, 4}},
		{Kind: WitnessVCDispute, SigA: []byte{5, 6}, SigB: []byte{7, 8}, ParentSigA: []byte{9}, ParentSigB: []byte{10}},
		{Kind: WitnessClose, State: sampleState(), SigA: []byte{1}, SigB: []byte{2}},
	}
	for _, w := range cases {
		got, err := DeserializeChannelWitness(w.Serialize())
		if err != nil {
			t.Fatalf("kind %v: deserialize: %v", w.Kind, err)
		}
		if !bytes.Equal(got.Serialize(), w.Serialize()) {
			t.Fatalf("kind %v: round trip mismatch", w.Kind)
		}
	}
}

func TestBalancesEqualInSum(t *testing.T) {
	a := Balances{Ckbytes: [2]uint64{100, 200}}
	b := Balances{Ckbytes: [2]uint64{150, 150}}
	if !a.EqualInSum(b) {
		t.Fatalf("expected equal sum")
	}
	c := Balances{Ckbytes: [2]uint64{150, 151}}
	if a.EqualInSum(c) {
		t.Fatalf("expected unequal sum")
	}
}

func TestBalancesFullyRepresented(t *testing.T) {
	bal := Balances{
		Sudts: []SUDTBalance{{
			Asset:        SUDTAsset{TypeScript: ledger.Script{CodeHash: chainhash.Hash{0x01}}},
			Distribution: [2]uint64{10, 20},
		}},
	}
	if !bal.FullyRepresented(0, []uint64{10}) {
		t.Fatalf("expected fully represented with exact payout")
	}
	if !bal.FullyRepresented(0, []uint64{15}) {
		t.Fatalf("expected fully represented with over-payout")
	}
	if bal.FullyRepresented(0, []uint64{9}) {
		t.Fatalf("expected not fully represented with under-payout")
	}
}

func TestGetLockedCkbytes(t *testing.T) {
	bal := Balances{
		Sudts: []SUDTBalance{
			{Asset: SUDTAsset{TypeScript: ledger.Script{CodeHash: chainhash.Hash{0x01}}}, MaxCapacity: 100},
			{Asset: SUDTAsset{TypeScript: ledger.Script{CodeHash: chainhash.Hash{0x02}}}, MaxCapacity: 200},
		},
	}
	if got := bal.GetLockedCkbytes(); got != 300 {
		t.Fatalf("expected locked ckbytes 300, got %d", got)
	}
}

func TestGetVCParticipantIdx(t *testing.T) {
	m := [2]uint8{1, 0}
	idx, ok := GetVCParticipantIdx(m, 0)
	if !ok || idx != 1 {
		t.Fatalf("lc party 0 should map to vc idx 1, got %d, ok=%v", idx, ok)
	}
	idx, ok = GetVCParticipantIdx(m, 1)
	if !ok || idx != 0 {
		t.Fatalf("lc party 1 should map to vc idx 0, got %d, ok=%v", idx, ok)
	}
}
