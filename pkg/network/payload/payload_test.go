package payload

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3ledger/n3core/pkg/core/block"
	"github.com/n3ledger/n3core/pkg/core/transaction"
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/network/capability"
	"github.com/n3ledger/n3core/pkg/util"
)

func roundTrip(t *testing.T, s io.Serializable, out io.Serializable) {
	t.Helper()
	w := io.NewBufBinWriter()
	s.EncodeBinary(w.BinWriter)
	require.NoError(t, w.Err)

	r := io.NewBinReaderFromBuf(w.Bytes())
	out.DecodeBinary(r)
	require.NoError(t, r.Err)
}

func TestAddrRoundTrip(t *testing.T) {
	a := &Addr{Addresses: []AddressAndTime{
		{Timestamp: 1, Capabilities: []capability.Capability{
			{Type: capability.TCPServer, Data: &capability.Server{Port: 20333}},
		}},
	}}
	var out Addr
	roundTrip(t, a, &out)
	require.Len(t, out.Addresses, 1)
	require.Equal(t, uint16(20333), out.Addresses[0].Port())
}

func TestGetBlockByIndexRoundTrip(t *testing.T) {
	g := &GetBlockByIndex{IndexStart: 10, Count: -1}
	var out GetBlockByIndex
	roundTrip(t, g, &out)
	require.Equal(t, g.IndexStart, out.IndexStart)
	require.Equal(t, g.Count, out.Count)
}

func TestHeadersRoundTrip(t *testing.T) {
	h := &Headers{Headers: []*block.Header{
		{Index: 1}, {Index: 2},
	}}
	var out Headers
	roundTrip(t, h, &out)
	require.Len(t, out.Headers, 2)
	require.Equal(t, uint32(2), out.Headers[1].Index)
}

func TestPingRoundTrip(t *testing.T) {
	p := NewPing(100, 42, 12345)
	var out Ping
	roundTrip(t, p, &out)
	require.Equal(t, *p, out)
}

func TestExtensibleHashExcludesWitness(t *testing.T) {
	e := &Extensible{Category: "dBFT", Data: []byte{1, 2, 3}}
	h1 := e.Hash()
	e.Witness.InvocationScript = []byte{9, 9}
	require.Equal(t, h1, e.Hash())
}

func TestExtensibleRoundTrip(t *testing.T) {
	e := &Extensible{
		Category:        "NotaryRequest",
		ValidBlockStart: 1,
		ValidBlockEnd:   100,
		Sender:          util.Uint160{5},
		Data:            []byte{1, 2, 3, 4},
		Witness:         transaction.Witness{VerificationScript: []byte{6}},
	}
	var out Extensible
	roundTrip(t, e, &out)
	require.Equal(t, e.Category, out.Category)
	require.Equal(t, e.Data, out.Data)
	require.Equal(t, e.Sender, out.Sender)
	require.Equal(t, e.Hash(), out.Hash())
}

func TestInventoryRoundTrip(t *testing.T) {
	inv := NewInventory(BlockType, []util.Uint256{{1}, {2}})
	var out Inventory
	roundTrip(t, inv, &out)
	require.Equal(t, inv.Type, out.Type)
	require.Equal(t, inv.Hashes, out.Hashes)
}
