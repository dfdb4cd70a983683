package pfls

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/perun-network/perun-ckb-contracts-go/ledger"
	"github.com/perun-network/perun-ckb-contracts-go/ledger/fixture"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsWithMatchingInput(t *testing.T) {
	v := fixture.New()
	v.Inputs = []fixture.Cell{
		{Capacity: 100, Type: &ledger.Script{CodeHash: chainhash.Hash{0x01}}},
	}
	// The second input is typed by pctsScript itself, so its type hash
	// equals pctsHash as computed by the same Script.Hash method.
	pctsScript := ledger.Script{CodeHash: chainhash.Hash{0x02}}
	pctsHash := pctsScript.Hash()
	v.Inputs = append(v.Inputs, fixture.Cell{Capacity: 100, Type: &pctsScript})

	require.NoError(t, Validate(v, pctsHash))
}

func TestValidateRejectsWithoutMatchingInput(t *testing.T) {
	v := fixture.New()
	v.Inputs = []fixture.Cell{
		{Capacity: 100, Type: &ledger.Script{CodeHash: chainhash.Hash{0x01}}},
	}
	require.Error(t, Validate(v, chainhash.Hash{0xFF}))
}

func TestValidateRejectsWithNoTypedInputs(t *testing.T) {
	v := fixture.New()
	v.Inputs = []fixture.Cell{{Capacity: 100}}
	require.Error(t, Validate(v, chainhash.Hash{0xFF}))
}

func TestArgsScriptHash(t *testing.T) {
	want := chainhash.Hash{0x42}
	got, err := ArgsScriptHash(want[:])
	require.NoError(t, err)
	require.Equal(t, want, got)

	_, err = ArgsScriptHash([]byte{1, 2, 3})
	require.Error(t, err)
}
