package l2view

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
)

type fakeRPCError struct{ code int }

func (e *fakeRPCError) Error() string { return "rpc error" }
func (e *fakeRPCError) ErrorCode() int { return e.code }

func TestIsMethodNotFound(t *testing.T) {
	require.True(t, isMethodNotFound(&fakeRPCError{code: -32601}))
	require.False(t, isMethodNotFound(&fakeRPCError{code: -32000}))
	require.False(t, isMethodNotFound(errors.New("boom")))
}

func TestHexBytesToBytes(t *testing.T) {
	in := []hexutil.Bytes{hexutil.Bytes("ab"), hexutil.Bytes("cd")}
	out := hexBytesToBytes(in)
	require.Equal(t, [][]byte{[]byte("ab"), []byte("cd")}, out)
}
