package pcts

import (
	"testing"

	"github.com/perun-network/perun-ckb-contracts-go/channeltypes"
	"pgregory.net/rapid"
)

// genState builds a non-final ChannelState at version with the given
// ckbyte split.
func genState(t *rapid.T, version uint64, ckbytesA, ckbytesB uint64) channeltypes.ChannelState {
	return channeltypes.ChannelState{
		Version:  version,
		Balances: channeltypes.Balances{Ckbytes: [2]uint64{ckbytesA, ckbytesB}},
	}
}

// TestCheckDisputeCommonRejectsVersionDecrease checks that, for a
// channel not already vc-disputed, checkDisputeCommon never accepts a
// Dispute whose version does not strictly increase the existing
// version — except the one documented initial-registration exemption
// (0 -> 0 while undisputed).
func TestCheckDisputeCommonRejectsVersionDecrease(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		oldVersion := rapid.Uint64Range(0, 1000).Draw(t, "oldVersion")
		newVersion := rapid.Uint64Range(0, 1000).Draw(t, "newVersion")
		total := rapid.Uint64Range(0, 1_000_000).Draw(t, "total")
		split := rapid.Uint64Range(0, total).Draw(t, "split")

		oldState := genState(t, oldVersion, split, total-split)
		newState := genState(t, newVersion, split, total-split)

		old := channeltypes.ChannelStatus{State: oldState, Funded: true}
		new := channeltypes.ChannelStatus{State: newState, Funded: true}

		err := checkDisputeCommon(channeltypes.ChannelConstants{}, old, new)

		initialRegistration := oldVersion == 0 && newVersion == 0
		switch {
		case newVersion > oldVersion, initialRegistration:
			if err != nil {
				t.Fatalf("expected accept for old=%d new=%d, got %v", oldVersion, newVersion, err)
			}
		default:
			if err == nil {
				t.Fatalf("expected reject for non-increasing version old=%d new=%d", oldVersion, newVersion)
			}
		}
	})
}

// TestCheckDisputeCommonRejectsValueChange checks that any Dispute
// changing the total ckbyte sum is rejected regardless of version.
func TestCheckDisputeCommonRejectsValueChange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.Uint64Range(0, 1_000_000).Draw(t, "total")
		split := rapid.Uint64Range(0, total).Draw(t, "split")
		delta := rapid.Uint64Range(1, 1000).Draw(t, "delta")

		oldState := genState(t, 0, split, total-split)
		newState := genState(t, 1, split, total-split+delta)

		old := channeltypes.ChannelStatus{State: oldState, Funded: true}
		new := channeltypes.ChannelStatus{State: newState, Funded: true}

		if err := checkDisputeCommon(channeltypes.ChannelConstants{}, old, new); err == nil {
			t.Fatalf("expected reject for value-minting dispute")
		}
	})
}
