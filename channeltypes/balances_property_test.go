package channeltypes

import (
	"testing"

	"pgregory.net/rapid"
)

// genBalances draws a two-party ckbyte-only Balances with a bounded
// total, so redistribution can be modeled without overflow.
func genBalances(t *rapid.T, total uint64) Balances {
	a := rapid.Uint64Range(0, total).Draw(t, "a")
	return Balances{Ckbytes: [2]uint64{a, total - a}}
}

// TestBalancesEqualInSumRedistribution checks that EqualInSum accepts
// any redistribution of the same total between the two parties, and
// rejects any change to the total — the invariant a Dispute
// relies on to guarantee no value is minted or destroyed.
func TestBalancesEqualInSumRedistribution(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.Uint64Range(0, 1_000_000).Draw(t, "total")
		before := genBalances(t, total)
		after := genBalances(t, total)

		if !before.EqualInSum(after) {
			t.Fatalf("same-total balances should be EqualInSum: %+v vs %+v", before, after)
		}

		delta := rapid.Uint64Range(1, 1000).Draw(t, "delta")
		minted := after
		minted.Ckbytes[0] += delta
		if before.EqualInSum(minted) {
			t.Fatalf("balances with minted value should not be EqualInSum")
		}
	})
}

// TestBalancesEqualInSumSymmetric checks EqualInSum is symmetric.
func TestBalancesEqualInSumSymmetric(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total1 := rapid.Uint64Range(0, 1_000_000).Draw(t, "total1")
		total2 := rapid.Uint64Range(0, 1_000_000).Draw(t, "total2")
		a := genBalances(t, total1)
		b := genBalances(t, total2)

		if a.EqualInSum(b) != b.EqualInSum(a) {
			t.Fatalf("EqualInSum should be symmetric: %+v vs %+v", a, b)
		}
	})
}
