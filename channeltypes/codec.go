package channeltypes

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/perun-network/perun-ckb-contracts-go/ledger"
	"github.com/perun-network/perun-ckb-contracts-go/moltype"
	"golang.org/x/crypto/blake2b"
)

func blake2b256(data []byte) chainhash.Hash {
	return chainhash.Hash(blake2b.Sum256(data))
}

func putBool(b *moltype.Builder, v bool) {
	if v {
		b.PutUint8(1)
		return
	}
	b.PutUint8(0)
}

func getBool(r *moltype.Reader) (bool, error) {
	v, err := r.GetUint8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func putScript(b *moltype.Builder, s ledger.Script) {
	b.PutFixed(s.CodeHash[:])
	b.PutUint8(byte(s.HashType))
	b.PutBytes(s.Args)
}

func getScript(r *moltype.Reader) (ledger.Script, error) {
	var s ledger.Script
	codeHash, err := r.GetFixed(32)
	if err != nil {
		return s, err
	}
	copy(s.CodeHash[:], codeHash)
	ht, err := r.GetUint8()
	if err != nil {
		return s, err
	}
	s.HashType = ledger.HashType(ht)
	args, err := r.GetBytes()
	if err != nil {
		return s, err
	}
	s.Args = args
	return s, nil
}

func putParticipant(b *moltype.Builder, p Participant) {
	b.PutBytes(p.PubKey)
	b.PutFixed(p.PaymentScriptHash[:])
	b.PutUint64(p.PaymentMinCapacity)
	b.PutFixed(p.UnlockScriptHash[:])
}

func getParticipant(r *moltype.Reader) (Participant, error) {
	var p Participant
	pubKey, err := r.GetBytes()
	if err != nil {
		return p, err
	}
	p.PubKey = pubKey
	hash, err := r.GetFixed(32)
	if err != nil {
		return p, err
	}
	copy(p.PaymentScriptHash[:], hash)
	cap, err := r.GetUint64()
	if err != nil {
		return p, err
	}
	p.PaymentMinCapacity = cap
	unlockHash, err := r.GetFixed(32)
	if err != nil {
		return p, err
	}
	copy(p.UnlockScriptHash[:], unlockHash)
	return p, nil
}

// Serialize encodes the channel parameters in the canonical order
// whose Blake2b-256 hash is the channel id.
func (p ChannelParameters) Serialize() []byte {
	b := moltype.NewBuilder()
	putParticipant(b, p.PartyA)
	putParticipant(b, p.PartyB)
	b.PutFixed(p.Nonce[:])
	b.PutUint64(p.ChallengeDuration)
	b.PutBytes(p.App)
	putBool(b, p.IsLedgerChannel)
	putBool(b, p.IsVirtualChannel)
	return b.Bytes()
}

// DeserializeChannelParameters decodes a ChannelParameters from buf.
func DeserializeChannelParameters(buf []byte) (ChannelParameters, error) {
	r := moltype.NewReader(buf)
	var p ChannelParameters
	var err error
	if p.PartyA, err = getParticipant(r); err != nil {
		return p, err
	}
	if p.PartyB, err = getParticipant(r); err != nil {
		return p, err
	}
	nonce, err := r.GetFixed(32)
	if err != nil {
		return p, err
	}
	copy(p.Nonce[:], nonce)
	if p.ChallengeDuration, err = r.GetUint64(); err != nil {
		return p, err
	}
	if p.App, err = r.GetBytes(); err != nil {
		return p, err
	}
	if p.IsLedgerChannel, err = getBool(r); err != nil {
		return p, err
	}
	if p.IsVirtualChannel, err = getBool(r); err != nil {
		return p, err
	}
	return p, nil
}

func putOutPoint(b *moltype.Builder, o ledger.OutPoint) {
	b.PutFixed(o.Hash[:])
	b.PutUint32(o.Index)
}

func getOutPoint(r *moltype.Reader) (ledger.OutPoint, error) {
	var o ledger.OutPoint
	hash, err := r.GetFixed(32)
	if err != nil {
		return o, err
	}
	copy(o.Hash[:], hash)
	idx, err := r.GetUint32()
	if err != nil {
		return o, err
	}
	o.Index = idx
	return o, nil
}

// Serialize encodes the PCTS args.
func (c ChannelConstants) Serialize() []byte {
	b := moltype.NewBuilder()
	b.PutFixed(c.Params.Serialize())
	putOutPoint(b, c.ThreadToken.OutPoint)
	b.PutFixed(c.PCLSCodeHash[:])
	b.PutUint8(byte(c.PCLSHashType))
	b.PutFixed(c.PFLSCodeHash[:])
	b.PutUint8(byte(c.PFLSHashType))
	b.PutUint64(c.PFLSMinCapacity)
	return b.Bytes()
}

// DeserializeChannelConstants decodes PCTS args from buf. Since
// ChannelParameters has no length prefix inline, callers must supply
// exactly one concatenated ChannelConstants per buffer (true for every
// PCTS args cell, which never shares its args with other data).
func DeserializeChannelConstants(buf []byte) (ChannelConstants, error) {
	params, err := DeserializeChannelParameters(buf)
	if err != nil {
		return ChannelConstants{}, err
	}
	r := moltype.NewReader(buf[len(params.Serialize()):])
	c := ChannelConstants{Params: params}
	if c.ThreadToken.OutPoint, err = getOutPoint(r); err != nil {
		return c, err
	}
	codeHash, err := r.GetFixed(32)
	if err != nil {
		return c, err
	}
	copy(c.PCLSCodeHash[:], codeHash)
	ht, err := r.GetUint8()
	if err != nil {
		return c, err
	}
	c.PCLSHashType = ledger.HashType(ht)
	codeHash, err = r.GetFixed(32)
	if err != nil {
		return c, err
	}
	copy(c.PFLSCodeHash[:], codeHash)
	if ht, err = r.GetUint8(); err != nil {
		return c, err
	}
	c.PFLSHashType = ledger.HashType(ht)
	if c.PFLSMinCapacity, err = r.GetUint64(); err != nil {
		return c, err
	}
	return c, nil
}

// Serialize encodes the VCTS args.
func (c VCChannelConstants) Serialize() []byte {
	b := moltype.NewBuilder()
	b.PutFixed(c.Params.Serialize())
	b.PutFixed(c.VCLSCodeHash[:])
	b.PutUint8(byte(c.VCLSHashType))
	return b.Bytes()
}

// DeserializeVCChannelConstants decodes VCTS args from buf.
func DeserializeVCChannelConstants(buf []byte) (VCChannelConstants, error) {
	params, err := DeserializeChannelParameters(buf)
	if err != nil {
		return VCChannelConstants{}, err
	}
	r := moltype.NewReader(buf[len(params.Serialize()):])
	c := VCChannelConstants{Params: params}
	codeHash, err := r.GetFixed(32)
	if err != nil {
		return c, err
	}
	copy(c.VCLSCodeHash[:], codeHash)
	ht, err := r.GetUint8()
	if err != nil {
		return c, err
	}
	c.VCLSHashType = ledger.HashType(ht)
	return c, nil
}

func putSUDTBalance(b *moltype.Builder, s SUDTBalance) {
	putScript(b, s.Asset.TypeScript)
	b.PutUint64(s.MaxCapacity)
	b.PutUint128(s.Distribution[0])
	b.PutUint128(s.Distribution[1])
}

func getSUDTBalance(r *moltype.Reader) (SUDTBalance, error) {
	var s SUDTBalance
	script, err := getScript(r)
	if err != nil {
		return s, err
	}
	s.Asset = SUDTAsset{TypeScript: script}
	if s.MaxCapacity, err = r.GetUint64(); err != nil {
		return s, err
	}
	if s.Distribution[0], err = r.GetUint128(); err != nil {
		return s, err
	}
	if s.Distribution[1], err = r.GetUint128(); err != nil {
		return s, err
	}
	return s, nil
}

// putBalances/getBalances and putSubAlloc/getSubAlloc are mutually
// recursive (Balances.Locked holds SubAlloc, SubAlloc.Balances holds
// Balances) to mirror locked-funds allocation being itself a nested
// balance sheet.
func putBalances(b *moltype.Builder, bal Balances) {
	b.PutUint64(bal.Ckbytes[0])
	b.PutUint64(bal.Ckbytes[1])
	moltype.PutVector(b, bal.Sudts, putSUDTBalance)
	moltype.PutVector(b, bal.Locked, putSubAlloc)
}

func getBalances(r *moltype.Reader) (Balances, error) {
	var bal Balances
	var err error
	if bal.Ckbytes[0], err = r.GetUint64(); err != nil {
		return bal, err
	}
	if bal.Ckbytes[1], err = r.GetUint64(); err != nil {
		return bal, err
	}
	if bal.Sudts, err = moltype.GetVector(r, MaxSudtEntries, getSUDTBalance); err != nil {
		return bal, err
	}
	if bal.Locked, err = moltype.GetVector(r, MaxLockedEntries, getSubAlloc); err != nil {
		return bal, err
	}
	return bal, nil
}

func putSubAlloc(b *moltype.Builder, s SubAlloc) {
	b.PutFixed(s.ID[:])
	putBalances(b, s.Balances)
}

func getSubAlloc(r *moltype.Reader) (SubAlloc, error) {
	var s SubAlloc
	id, err := r.GetFixed(32)
	if err != nil {
		return s, err
	}
	copy(s.ID[:], id)
	if s.Balances, err = getBalances(r); err != nil {
		return s, err
	}
	return s, nil
}

func putChannelState(b *moltype.Builder, s ChannelState) {
	b.PutFixed(s.ChannelID[:])
	b.PutUint64(s.Version)
	putBalances(b, s.Balances)
	putBool(b, s.IsFinal)
}

func getChannelState(r *moltype.Reader) (ChannelState, error) {
	var s ChannelState
	id, err := r.GetFixed(32)
	if err != nil {
		return s, err
	}
	copy(s.ChannelID[:], id)
	if s.Version, err = r.GetUint64(); err != nil {
		return s, err
	}
	if s.Balances, err = getBalances(r); err != nil {
		return s, err
	}
	if s.IsFinal, err = getBool(r); err != nil {
		return s, err
	}
	return s, nil
}

// Serialize encodes a channel state.
func (s ChannelState) Serialize() []byte {
	b := moltype.NewBuilder()
	putChannelState(b, s)
	return b.Bytes()
}

// DeserializeChannelState decodes a channel state from buf.
func DeserializeChannelState(buf []byte) (ChannelState, error) {
	return getChannelState(moltype.NewReader(buf))
}

// Serialize encodes a ledger channel cell's full data.
func (s ChannelStatus) Serialize() []byte {
	b := moltype.NewBuilder()
	putChannelState(b, s.State)
	putBool(b, s.Funded)
	putBool(b, s.Disputed)
	putBool(b, s.VCDisputed)
	b.PutFixed(s.VCTSHash[:])
	return b.Bytes()
}

// DeserializeChannelStatus decodes a ledger channel cell's data from
// buf. It returns moltype.ErrLengthNotEnough (wrapped) when buf does
// not hold a full ChannelStatus.
func DeserializeChannelStatus(buf []byte) (ChannelStatus, error) {
	r := moltype.NewReader(buf)
	var s ChannelStatus
	var err error
	if s.State, err = getChannelState(r); err != nil {
		return s, fmt.Errorf("decode channel status: %w", err)
	}
	if s.Funded, err = getBool(r); err != nil {
		return s, fmt.Errorf("decode channel status: %w", err)
	}
	if s.Disputed, err = getBool(r); err != nil {
		return s, fmt.Errorf("decode channel status: %w", err)
	}
	if s.VCDisputed, err = getBool(r); err != nil {
		return s, fmt.Errorf("decode channel status: %w", err)
	}
	hash, err := r.GetFixed(32)
	if err != nil {
		return s, fmt.Errorf("decode channel status: %w", err)
	}
	copy(s.VCTSHash[:], hash)
	return s, nil
}

func putParentData(b *moltype.Builder, p ParentData) {
	b.PutFixed(p.PCTSHash[:])
	b.PutUint8(p.IdxMap[0])
	b.PutUint8(p.IdxMap[1])
}

func getParentData(r *moltype.Reader) (ParentData, error) {
	var p ParentData
	hash, err := r.GetFixed(32)
	if err != nil {
		return p, err
	}
	copy(p.PCTSHash[:], hash)
	idx0, err := r.GetUint8()
	if err != nil {
		return p, err
	}
	idx1, err := r.GetUint8()
	if err != nil {
		return p, err
	}
	p.IdxMap = [2]uint8{idx0, idx1}
	return p, nil
}

// Serialize encodes a virtual channel cell's full data.
func (s VirtualChannelStatus) Serialize() []byte {
	b := moltype.NewBuilder()
	putChannelState(b, s.VCState)
	putParentData(b, s.Parents[0])
	putParentData(b, s.Parents[1])
	putBool(b, s.FirstForceClose)
	putParticipant(b, s.Owner)
	return b.Bytes()
}

// DeserializeVirtualChannelStatus decodes a virtual channel cell's
// data from buf.
func DeserializeVirtualChannelStatus(buf []byte) (VirtualChannelStatus, error) {
	r := moltype.NewReader(buf)
	var s VirtualChannelStatus
	var err error
	if s.VCState, err = getChannelState(r); err != nil {
		return s, fmt.Errorf("decode vchannel status: %w", err)
	}
	if s.Parents[0], err = getParentData(r); err != nil {
		return s, fmt.Errorf("decode vchannel status: %w", err)
	}
	if s.Parents[1], err = getParentData(r); err != nil {
		return s, fmt.Errorf("decode vchannel status: %w", err)
	}
	if s.FirstForceClose, err = getBool(r); err != nil {
		return s, fmt.Errorf("decode vchannel status: %w", err)
	}
	if s.Owner, err = getParticipant(r); err != nil {
		return s, fmt.Errorf("decode vchannel status: %w", err)
	}
	return s, nil
}

// EqualExceptOwner reports whether two virtual channel statuses agree
// on state, parents and first-force-close, ignoring Owner. Grounded
// on verify_equal_vc_status in perun-vchannel-typescript/src/lib.rs,
// which never compares owner at any version — see DESIGN.md Open
// Question (c).
func (s VirtualChannelStatus) EqualExceptOwner(other VirtualChannelStatus) bool {
	return bytesEqual(s.VCState.Serialize(), other.VCState.Serialize()) &&
		s.Parents == other.Parents &&
		s.FirstForceClose == other.FirstForceClose
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
