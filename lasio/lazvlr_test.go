package lasio_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/copc-go/copc/lasio"
)

func TestLazVlrRoundTrip(t *testing.T) {
	v, err := lasio.NewLazVlr(7, 10)
	require.NoError(t, err)
	v.ChunkTableOffset = 123456

	buf, err := v.MarshalBinary()
	require.NoError(t, err)

	var got lasio.LazVlr
	require.NoError(t, got.UnmarshalBinary(buf))
	require.Equal(t, v, got)
}

func TestLazVlrRejectsUnsupportedFormat(t *testing.T) {
	_, err := lasio.NewLazVlr(9, 0)
	require.ErrorIs(t, err, lasio.ErrUnsupportedFormat)
}
