package l1view

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/jakovmitrovski/arbitrum-light-client-go/pkg/contracts/transactionchain"
)

func TestHashChainElementDeterministic(t *testing.T) {
	e := transactionchain.TransactionChainElement{
		IsSequenced: true,
		QueueIndex:  big.NewInt(3),
		Timestamp:   big.NewInt(1000),
		BlockNumber: big.NewInt(42),
	}
	h1 := hashChainElement(e)
	h2 := hashChainElement(e)
	require.Equal(t, h1, h2)

	e.QueueIndex = big.NewInt(4)
	require.NotEqual(t, h1, hashChainElement(e))
}

func TestHashesTo32s(t *testing.T) {
	in := []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02")}
	out := hashesTo32s(in)
	require.Len(t, out, 2)
	require.Equal(t, in[0], common.Hash(out[0]))
}
