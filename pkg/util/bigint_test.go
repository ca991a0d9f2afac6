package util

import (
	"math"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

var bigIntTestCases = []int64{
	0, 1, -1, 2, -2, 127, -127, 128, -128, 129, -129,
	255, -255, 256, -256, 123456789, -123456789,
	-6777216, 6777216,
}

func TestFromBigToBigRoundTrip(t *testing.T) {
	for _, tc := range bigIntTestCases {
		x := FromBig(big.NewInt(tc))
		assert.Equal(t, big.NewInt(tc), ToBig(x))
	}
}

func TestToInt64(t *testing.T) {
	min := FromBig(big.NewInt(math.MinInt64))
	max := FromBig(big.NewInt(math.MaxInt64))
	assert.Equal(t, int64(math.MinInt64), ToInt64(min))
	assert.Equal(t, int64(math.MaxInt64), ToInt64(max))

	v := uint256.NewInt(uint64(math.MaxInt64) + 1)
	assert.False(t, IsInt64(v))

	v = FromBig(new(big.Int).Sub(big.NewInt(math.MinInt64), big.NewInt(2)))
	assert.False(t, IsInt64(v))
}
