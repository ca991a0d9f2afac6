package capability

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3ledger/n3core/pkg/io"
)

func TestCapabilityRoundTripServer(t *testing.T) {
	c := &Capability{Type: TCPServer, Data: &Server{Port: 10333}}

	w := io.NewBufBinWriter()
	c.EncodeBinary(w.BinWriter)
	require.NoError(t, w.Err)

	out := &Capability{}
	r := io.NewBinReaderFromBuf(w.Bytes())
	out.DecodeBinary(r)
	require.NoError(t, r.Err)
	require.Equal(t, TCPServer, out.Type)
	require.Equal(t, uint16(10333), out.Data.(*Server).Port)
}

func TestCapabilityRoundTripNode(t *testing.T) {
	c := &Capability{Type: FullNode, Data: &Node{StartHeight: 999}}

	w := io.NewBufBinWriter()
	c.EncodeBinary(w.BinWriter)
	require.NoError(t, w.Err)

	out := &Capability{}
	r := io.NewBinReaderFromBuf(w.Bytes())
	out.DecodeBinary(r)
	require.NoError(t, r.Err)
	require.Equal(t, uint32(999), out.Data.(*Node).StartHeight)
}

func TestCapabilityDecodeUnknownType(t *testing.T) {
	w := io.NewBufBinWriter()
	w.WriteB(0xEE)

	out := &Capability{}
	r := io.NewBinReaderFromBuf(w.Bytes())
	out.DecodeBinary(r)
	require.ErrorIs(t, r.Err, errUnknownCapability)
}
