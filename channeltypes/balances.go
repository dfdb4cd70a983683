package channeltypes

// sudtIndex returns the index of the entry for typeScript, if any.
func (b Balances) sudtIndex(typeScript SUDTAsset) (int, bool) {
	for i, s := range b.Sudts {
		if s.Asset.TypeScript.Hash() == typeScript.TypeScript.Hash() {
			return i, true
		}
	}
	return 0, false
}

// GetDistribution returns the SUDT balance entry for typeScript, if
// the asset is part of these balances. Grounded on
// Balances::get_distribution in perun-channel-typescript/src/lib.rs.
func (b Balances) GetDistribution(typeScript SUDTAsset) (SUDTBalance, bool) {
	idx, ok := b.sudtIndex(typeScript)
	if !ok {
		return SUDTBalance{}, false
	}
	return b.Sudts[idx], true
}

// GetLockedCkbytes returns the total ckbyte capacity backing every
// SUDT cell in these balances, reimbursed in full to both parties on
// close. Grounded on Balances::get_locked_ckbytes in
// perun-channel-typescript/src/lib.rs.
func (b Balances) GetLockedCkbytes() uint64 {
	var total uint64
	for _, s := range b.Sudts {
		total += s.MaxCapacity
	}
	return total
}

// FullyRepresented reports whether outputs (indexed the same way as
// b.Sudts) pays partyIdx's full SUDT distribution for every asset.
// Grounded on Balances::fully_represented in
// perun-channel-typescript/src/lib.rs, used when checking a party's
// payout on Close/Abort.
func (b Balances) FullyRepresented(partyIdx int, outputs []uint64) bool {
	for i, s := range b.Sudts {
		var paid uint64
		if i < len(outputs) {
			paid = outputs[i]
		}
		if s.Distribution[partyIdx] > paid {
			return false
		}
	}
	return true
}

// FullyRepresentedVC is FullyRepresented generalized to a party who
// also holds a stake in a virtual channel locked into this ledger
// channel: vcSudts is that virtual channel's own SUDT balances and
// vcParticipantIdx is the party's index within it. Grounded on
// Balances::fully_represented_vc in perun-channel-typescript/src/lib.rs
// (verify_all_paid_vc's per-asset payout check).
func (b Balances) FullyRepresentedVC(partyIdx, vcParticipantIdx int, vcSudts []SUDTBalance, outputs []uint64) bool {
	for i, s := range b.Sudts {
		total := s.Distribution[partyIdx]
		for _, vs := range vcSudts {
			if vs.Asset.TypeScript.Hash() == s.Asset.TypeScript.Hash() {
				total += vs.Distribution[vcParticipantIdx]
			}
		}
		var paid uint64
		if i < len(outputs) {
			paid = outputs[i]
		}
		if total > paid {
			return false
		}
	}
	return true
}

// EqualInSum reports whether two balance sets hold the same total
// value: equal summed ckbytes, and for every SUDT asset present in
// either, an equal summed distribution. Locked allocations do not
// contribute. Grounded on Balances::equal_in_sum in
// perun-channel-typescript/src/lib.rs, used by Dispute, VCDispute and
// VCProgress to check that value is neither minted nor destroyed.
func (b Balances) EqualInSum(other Balances) bool {
	if b.Ckbytes[0]+b.Ckbytes[1] != other.Ckbytes[0]+other.Ckbytes[1] {
		return false
	}
	seen := make(map[[32]byte]bool, len(b.Sudts)+len(other.Sudts))
	totalOf := func(bal Balances, asset SUDTAsset) uint64 {
		s, ok := bal.GetDistribution(asset)
		if !ok {
			return 0
		}
		return s.Distribution[0] + s.Distribution[1]
	}
	for _, s := range append(append([]SUDTBalance{}, b.Sudts...), other.Sudts...) {
		h := s.Asset.TypeScript.Hash()
		if seen[h] {
			continue
		}
		seen[h] = true
		if totalOf(b, s.Asset) != totalOf(other, s.Asset) {
			return false
		}
	}
	return true
}

// ClearIndex returns a copy of b with partyIdx's ckbyte and every
// SUDT distribution entry zeroed, used by Abort to compute what the
// non-funding party is entitled to (nothing).
func (b Balances) ClearIndex(partyIdx int) Balances {
	out := Balances{
		Ckbytes: b.Ckbytes,
		Sudts:   make([]SUDTBalance, len(b.Sudts)),
		Locked:  b.Locked,
	}
	out.Ckbytes[partyIdx] = 0
	for i, s := range b.Sudts {
		s.Distribution[partyIdx] = 0
		out.Sudts[i] = s
	}
	return out
}

// GetVCParticipantIdx maps lcPartyIdx (0 or 1, this ledger channel's
// own participant index) to the corresponding index within a virtual
// channel's balances, via idxMap. Grounded on
// get_vc_participant_idx/get_idx_map in
// perun-vchannel-typescript/src/lib.rs.
func GetVCParticipantIdx(idxMap [2]uint8, lcPartyIdx int) (int, bool) {
	if lcPartyIdx != 0 && lcPartyIdx != 1 {
		return 0, false
	}
	v := idxMap[lcPartyIdx]
	if v != 0 && v != 1 {
		return 0, false
	}
	return int(v), true
}
