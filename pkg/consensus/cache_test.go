package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3ledger/n3core/pkg/util"
)

func payloadWithIndex(validatorIndex uint16) *Payload {
	body := &prepareResponse{preparationHash: util.Uint256{byte(validatorIndex)}}
	msg := newPrepareResponsePayload(0, body)
	return &Payload{message: *msg, ValidatorIndex: validatorIndex}
}

func TestRelayCacheGetMiss(t *testing.T) {
	c := newFIFOCache(2)
	require.Nil(t, c.Get(util.Uint256{0xFF}))
}

func TestRelayCacheAddAndGet(t *testing.T) {
	c := newFIFOCache(2)
	p := payloadWithIndex(1)
	c.Add(p)
	require.Equal(t, p, c.Get(p.Hash()))
}

func TestRelayCacheDuplicateIsNoop(t *testing.T) {
	c := newFIFOCache(2)
	p := payloadWithIndex(1)
	c.Add(p)
	c.Add(p)
	require.Equal(t, 1, c.queue.Len())
}

func TestRelayCacheEvictsOldestAtCapacity(t *testing.T) {
	c := newFIFOCache(2)
	p1 := payloadWithIndex(1)
	p2 := payloadWithIndex(2)
	p3 := payloadWithIndex(3)

	c.Add(p1)
	c.Add(p2)
	c.Add(p3)

	require.Nil(t, c.Get(p1.Hash()))
	require.Equal(t, p2, c.Get(p2.Hash()))
	require.Equal(t, p3, c.Get(p3.Hash()))
}
