package stackitem

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIntegerBytesRoundTrip(t *testing.T) {
	cases := []int64{
		0, 1, -1, 2, -2, 127, -127, 128, -128, 129, -129,
		255, -255, 256, -256, 123456789, -123456789,
	}
	for _, tc := range cases {
		v := big.NewInt(tc)
		i := NewBigInteger(v)
		b, err := i.TryBytes()
		require.NoError(t, err)
		require.Equal(t, v, decodeInt(b), "round trip for %d", tc)
	}
}

func TestIntegerMaxMagnitude(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), MaxBigIntegerSizeBits-1), big.NewInt(1))
	i := NewBigInteger(max)
	b, err := i.TryBytes()
	require.NoError(t, err)
	require.Equal(t, max, decodeInt(b))

	min := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), MaxBigIntegerSizeBits-1))
	i = NewBigInteger(min)
	b, err = i.TryBytes()
	require.NoError(t, err)
	require.Equal(t, min, decodeInt(b))
}

func TestIntegerOverflowPanics(t *testing.T) {
	tooBig := new(big.Int).Lsh(big.NewInt(1), MaxBigIntegerSizeBits+8)
	require.Panics(t, func() { NewBigInteger(tooBig) })
}

func TestIntegerZeroIsEmptyEncoding(t *testing.T) {
	i := NewBigInteger(big.NewInt(0))
	b, err := i.TryBytes()
	require.NoError(t, err)
	require.Empty(t, b)
}
