package vcls

import (
	"testing"

	"github.com/perun-network/perun-ckb-contracts-go/ledger/fixture"
	"github.com/stretchr/testify/require"
)

func TestValidateAlwaysAccepts(t *testing.T) {
	require.NoError(t, Validate(fixture.New()))
}
