package channeltypes

import (
	"fmt"

	"github.com/perun-network/perun-ckb-contracts-go/moltype"
)

// WitnessKind discriminates the ChannelWitness union. The same union
// is carried by both a ledger channel's own witness and, for a
// virtual channel's Progress/Close1 disambiguation, its force-closing
// parent's witness — see get_vchannel_action in
// perun-vchannel-typescript/src/lib.rs.
type WitnessKind uint8

const (
	WitnessFund WitnessKind = iota
	WitnessDispute
	WitnessVCDispute
	WitnessClose
	WitnessForceClose
	WitnessAbort
)

func (k WitnessKind) String() string {
	switch k {
	case WitnessFund:
		return "Fund"
	case WitnessDispute:
		return "Dispute"
	case WitnessVCDispute:
		return "VCDispute"
	case WitnessClose:
		return "Close"
	case WitnessForceClose:
		return "ForceClose"
	case WitnessAbort:
		return "Abort"
	default:
		return "Unknown"
	}
}

// ChannelWitness is the tagged union carried in a spending
// transaction's input-type witness, shared by PCTS and VCTS alike.
// SigA/SigB hold the two signatures over the new ledger-channel state
// for Dispute, VCDispute and Close. ParentSigA/ParentSigB, used only
// by VCDispute, hold the two signatures over the virtual channel's
// initial state instead — carried here so a later VCStart can verify
// them without asking the parties to sign twice. State holds the
// final state for Close. Fund, ForceClose and Abort carry no payload.
type ChannelWitness struct {
	Kind        WitnessKind
	SigA        []byte
	SigB        []byte
	ParentSigA  []byte
	ParentSigB  []byte
	State       ChannelState
}

// Serialize encodes the witness.
func (w ChannelWitness) Serialize() []byte {
	b := moltype.NewBuilder()
	b.PutUint8(byte(w.Kind))
	switch w.Kind {
	case WitnessFund, WitnessForceClose, WitnessAbort:
	case WitnessDispute:
		b.PutBytes(w.SigA)
		b.PutBytes(w.SigB)
	case WitnessVCDispute:
		b.PutBytes(w.SigA)
		b.PutBytes(w.SigB)
		b.PutBytes(w.ParentSigA)
		b.PutBytes(w.ParentSigB)
	case WitnessClose:
		b.PutFixed(w.State.Serialize())
		b.PutBytes(w.SigA)
		b.PutBytes(w.SigB)
	}
	return b.Bytes()
}

// DeserializeChannelWitness decodes a ChannelWitness from buf.
func DeserializeChannelWitness(buf []byte) (ChannelWitness, error) {
	r := moltype.NewReader(buf)
	kindByte, err := r.GetUint8()
	if err != nil {
		return ChannelWitness{}, fmt.Errorf("decode witness: %w", err)
	}
	w := ChannelWitness{Kind: WitnessKind(kindByte)}
	switch w.Kind {
	case WitnessFund, WitnessForceClose, WitnessAbort:
	case WitnessDispute:
		if w.SigA, err = r.GetBytes(); err != nil {
			return w, fmt.Errorf("decode witness: %w", err)
		}
		if w.SigB, err = r.GetBytes(); err != nil {
			return w, fmt.Errorf("decode witness: %w", err)
		}
	case WitnessVCDispute:
		if w.SigA, err = r.GetBytes(); err != nil {
			return w, fmt.Errorf("decode witness: %w", err)
		}
		if w.SigB, err = r.GetBytes(); err != nil {
			return w, fmt.Errorf("decode witness: %w", err)
		}
		if w.ParentSigA, err = r.GetBytes(); err != nil {
			return w, fmt.Errorf("decode witness: %w", err)
		}
		if w.ParentSigB, err = r.GetBytes(); err != nil {
			return w, fmt.Errorf("decode witness: %w", err)
		}
	case WitnessClose:
		state, err := getChannelStateFromReader(r)
		if err != nil {
			return w, fmt.Errorf("decode witness: %w", err)
		}
		w.State = state
		if w.SigA, err = r.GetBytes(); err != nil {
			return w, fmt.Errorf("decode witness: %w", err)
		}
		if w.SigB, err = r.GetBytes(); err != nil {
			return w, fmt.Errorf("decode witness: %w", err)
		}
	default:
		return w, fmt.Errorf("decode witness: unknown kind %d", kindByte)
	}
	return w, nil
}

func getChannelStateFromReader(r *moltype.Reader) (ChannelState, error) {
	return getChannelState(r)
}
