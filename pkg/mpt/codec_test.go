package mpt

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestEncodeAccountDeterministic(t *testing.T) {
	storageRoot := common.HexToHash("0x01")
	codeHash := common.HexToHash("0x02")
	a, err := EncodeAccount(3, big.NewInt(1000), storageRoot, codeHash)
	require.NoError(t, err)
	b, err := EncodeAccount(3, big.NewInt(1000), storageRoot, codeHash)
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := EncodeAccount(4, big.NewInt(1000), storageRoot, codeHash)
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestEncodeStorageValueStripsLeadingZeros(t *testing.T) {
	padded := common.HexToHash("0x00000000000000000000000000000000000000000000000000000000000001")
	fromPadded, err := EncodeStorageValue(padded)
	require.NoError(t, err)

	short := common.HexToHash("0x01")
	fromShort, err := EncodeStorageValue(short)
	require.NoError(t, err)

	require.Equal(t, fromPadded, fromShort)
	// The 32-byte word 0x00..01 strips to the single byte 0x01, which RLP
	// encodes as itself.
	require.Equal(t, []byte{0x01}, fromPadded)
}

func TestEncodeProofDeterministic(t *testing.T) {
	nodes := [][]byte{[]byte("node-one"), []byte("node-two")}
	encoded, err := EncodeProof(nodes)
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	again, err := EncodeProof(nodes)
	require.NoError(t, err)
	require.Equal(t, encoded, again)
}
