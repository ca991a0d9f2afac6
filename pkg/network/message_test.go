package network

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/network/capability"
	"github.com/n3ledger/n3core/pkg/network/payload"
	"github.com/n3ledger/n3core/pkg/util"
)

func encodeDecode(t *testing.T, msg *Message) *Message {
	t.Helper()
	w := io.NewBufBinWriter()
	msg.EncodeBinary(w.BinWriter)
	require.NoError(t, w.Err)

	out := &Message{}
	r := io.NewBinReaderFromBuf(w.Bytes())
	out.DecodeBinary(r)
	require.NoError(t, r.Err)
	return out
}

func TestMessageRoundTripVersion(t *testing.T) {
	v := payload.NewVersion(769, 1000, 42, "/n3core:0.1/", 100, 10333)
	msg := NewMessage(769, CMDVersion, v)

	out := encodeDecode(t, msg)
	require.Equal(t, uint32(769), out.Magic)
	require.Equal(t, CMDVersion, out.Command)

	gotV := out.Payload.(*payload.Version)
	require.Equal(t, v.UserAgent, gotV.UserAgent)
	require.Equal(t, v.Nonce, gotV.Nonce)
	require.Equal(t, uint32(100), gotV.StartHeight())
}

func TestMessageRoundTripEmptyPayload(t *testing.T) {
	msg := NewMessage(1, CMDVerack, nil)
	out := encodeDecode(t, msg)
	require.Equal(t, CMDVerack, out.Command)
	require.IsType(t, &payload.Empty{}, out.Payload)
}

func TestMessageRoundTripInventory(t *testing.T) {
	inv := payload.NewInventory(payload.TXType, []util.Uint256{{1}, {2}, {3}})
	msg := NewMessage(1, CMDInv, inv)

	out := encodeDecode(t, msg)
	gotInv := out.Payload.(*payload.Inventory)
	require.Equal(t, payload.TXType, gotInv.Type)
	require.Equal(t, inv.Hashes, gotInv.Hashes)
}

func TestMessageRejectsBadChecksum(t *testing.T) {
	v := payload.NewVersion(1, 0, 1, "/n3core:0.1/", 0, 0)
	msg := NewMessage(1, CMDVersion, v)

	w := io.NewBufBinWriter()
	msg.EncodeBinary(w.BinWriter)
	raw := w.Bytes()
	raw[9] ^= 0xFF // flip a checksum byte (offset 9: after 4 magic + 1 cmd + 4 length)

	out := &Message{}
	r := io.NewBinReaderFromBuf(raw)
	out.DecodeBinary(r)
	require.ErrorIs(t, r.Err, errChecksum)
}

func TestCapabilityRoundTripViaVersion(t *testing.T) {
	v := &payload.Version{
		Network:   1,
		Timestamp: 1,
		Nonce:     1,
		UserAgent: "/n3core/",
		Capabilities: []capability.Capability{
			{Type: capability.TCPServer, Data: &capability.Server{Port: 10333}},
			{Type: capability.FullNode, Data: &capability.Node{StartHeight: 55}},
		},
	}
	msg := NewMessage(1, CMDVersion, v)
	out := encodeDecode(t, msg)
	gotV := out.Payload.(*payload.Version)
	require.Equal(t, uint32(55), gotV.StartHeight())
}
