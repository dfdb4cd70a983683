// Package chansig implements the signature and hashing primitives the
// channel validators verify against: DER-encoded secp256k1 ECDSA
// signatures over an Ethereum-prefixed Keccak256 digest, and the
// Blake2b-256 hash used for channel identity. Grounded on the
// verification plumbing in crypto/musig2/musig2.go (parse pubkey,
// parse signature, call Verify) and on the exact hash scheme in
// original_source/.../perun-common/src/sig.rs.
package chansig

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

const ethereumPrefix = "\x19Ethereum Signed Message:\n32"

// EthereumMessageHash returns Keccak256(ethereumPrefix ||
// Keccak256(data)), the digest every channel state signature is taken
// over. Grounded on ethereum_message_hash in perun-common/src/sig.rs.
func EthereumMessageHash(data []byte) [32]byte {
	inner := sha3.NewLegacyKeccak256()
	inner.Write(data)
	var innerHash [32]byte
	copy(innerHash[:], inner.Sum(nil))

	outer := sha3.NewLegacyKeccak256()
	outer.Write([]byte(ethereumPrefix))
	outer.Write(innerHash[:])
	var out [32]byte
	copy(out[:], outer.Sum(nil))
	return out
}

// Blake2b256 returns the Blake2b-256 digest of data, the same digest
// ChannelParameters.ChannelID and ledger.Script.Hash compute with
// their own package-local helpers.
func Blake2b256(data []byte) [32]byte {
	return blake2b.Sum256(data)
}

// VerifyDER reports whether derSig is a valid DER-encoded ECDSA
// signature by pubKey over msgHash. It returns nil on success and a
// plain error otherwise, so callers can translate it through chanerr
// at the call site.
func VerifyDER(msgHash [32]byte, derSig []byte, pubKey []byte) error {
	sig, err := ecdsa.ParseDERSignature(derSig)
	if err != nil {
		return fmt.Errorf("chansig: parse signature: %w", err)
	}
	key, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return fmt.Errorf("chansig: parse public key: %w", err)
	}
	if !sig.Verify(msgHash[:], key) {
		return fmt.Errorf("chansig: signature does not verify")
	}
	return nil
}
