package merkle

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func leaves(n int) []common.Hash {
	out := make([]common.Hash, n)
	for i := 0; i < n; i++ {
		out[i] = crypto.Keccak256Hash([]byte{byte(i)})
	}
	return out
}

func TestProveVerifyRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 8, 13} {
		ls := leaves(n)
		root := Root(ls)
		for i := 0; i < n; i++ {
			siblings, err := Prove(ls, uint64(i))
			require.NoError(t, err)
			require.True(t, Verify(root, ls[i], uint64(i), siblings), "n=%d i=%d", n, i)
		}
	}
}

func TestProveOutOfBounds(t *testing.T) {
	ls := leaves(4)
	_, err := Prove(ls, 10)
	require.Error(t, err)
}

func TestVerifyRejectsWrongLeaf(t *testing.T) {
	ls := leaves(4)
	root := Root(ls)
	siblings, err := Prove(ls, 1)
	require.NoError(t, err)
	require.False(t, Verify(root, ls[2], 1, siblings))
}
