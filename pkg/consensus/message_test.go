package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/util"
)

func roundTrip(t *testing.T, p *Payload) *Payload {
	t.Helper()
	w := io.NewBufBinWriter()
	p.EncodeBinary(w.BinWriter)
	require.NoError(t, w.Err)

	out := &Payload{}
	r := io.NewBinReaderFromBuf(w.Bytes())
	out.DecodeBinary(r)
	require.NoError(t, r.Err)
	return out
}

func TestPayloadRoundTripPrepareRequest(t *testing.T) {
	body := &prepareRequest{
		timestamp:         12345,
		nonce:             999,
		transactionHashes: []util.Uint256{{1}, {2}},
		nextConsensus:     util.Uint160{9},
	}
	msg := newPrepareRequestPayload(2, body)
	p := &Payload{message: *msg, Version: 0, ValidatorIndex: 3, BlockIndex: 100}

	out := roundTrip(t, p)
	require.Equal(t, prepareRequestType, out.Type)
	require.Equal(t, byte(2), out.ViewNumber)
	require.Equal(t, uint16(3), out.ValidatorIndex)
	require.Equal(t, uint32(100), out.BlockIndex)

	gotBody := out.GetPrepareRequest()
	require.Equal(t, body.timestamp, gotBody.timestamp)
	require.Equal(t, body.nonce, gotBody.nonce)
	require.Equal(t, body.transactionHashes, gotBody.transactionHashes)
	require.Equal(t, body.nextConsensus, gotBody.nextConsensus)
}

func TestPayloadRoundTripPrepareResponse(t *testing.T) {
	body := &prepareResponse{preparationHash: util.Uint256{7}}
	msg := newPrepareResponsePayload(0, body)
	p := &Payload{message: *msg}

	out := roundTrip(t, p)
	require.Equal(t, body.preparationHash, out.GetPrepareResponse().preparationHash)
}

func TestPayloadRoundTripCommit(t *testing.T) {
	body := &commit{}
	body.signature[0] = 0xAB
	msg := newCommitPayload(1, body)
	p := &Payload{message: *msg}

	out := roundTrip(t, p)
	require.Equal(t, body.signature, out.GetCommit().signature)
}

func TestPayloadRoundTripChangeView(t *testing.T) {
	body := &changeView{newViewNumber: 4, timestamp: 111}
	msg := newChangeViewPayload(3, body)
	p := &Payload{message: *msg}

	out := roundTrip(t, p)
	require.Equal(t, body.timestamp, out.GetChangeView().timestamp)
}

func TestPayloadHashStableAndWitnessExcluded(t *testing.T) {
	body := &prepareResponse{preparationHash: util.Uint256{3}}
	msg := newPrepareResponsePayload(0, body)
	p := &Payload{message: *msg, BlockIndex: 5}

	h1 := p.Hash()
	h2 := p.Hash()
	require.Equal(t, h1, h2)

	p.Witness.InvocationScript = []byte{1, 2, 3}
	require.Equal(t, h1, p.Hash(), "witness bytes must not affect the signed hash")
}

func TestRecoveryMessageRoundTrip(t *testing.T) {
	rm := &recoveryMessage{
		changeViewPayloads: []*changeViewCompact{
			{ValidatorIndex: 1, OriginalViewNumber: 0, Timestamp: 42},
		},
		prepareRequest: &prepareRequest{
			timestamp:         1,
			transactionHashes: []util.Uint256{{5}},
			nextConsensus:     util.Uint160{6},
		},
		preparationPayloads: []*preparationCompact{
			{ValidatorIndex: 2, InvocationScript: []byte{0xAA}},
		},
		commitPayloads: []*commitCompact{
			{ViewNumber: 0, ValidatorIndex: 3, InvocationScript: []byte{0xBB}},
		},
	}
	msg := newRecoveryMessagePayload(0, rm)
	p := &Payload{message: *msg}

	out := roundTrip(t, p)
	got := out.GetRecoveryMessage()
	require.Len(t, got.changeViewPayloads, 1)
	require.Equal(t, uint8(1), got.changeViewPayloads[0].ValidatorIndex)
	require.NotNil(t, got.prepareRequest)
	require.Equal(t, rm.prepareRequest.nextConsensus, got.prepareRequest.nextConsensus)
	require.Len(t, got.preparationPayloads, 1)
	require.Len(t, got.commitPayloads, 1)
}

func TestPayloadBytesRoundTrip(t *testing.T) {
	body := &prepareResponse{preparationHash: util.Uint256{4}}
	msg := newPrepareResponsePayload(1, body)
	p := &Payload{message: *msg, ValidatorIndex: 2, BlockIndex: 7}

	raw, err := p.Bytes()
	require.NoError(t, err)

	out, err := PayloadFromBytes(raw)
	require.NoError(t, err)
	require.Equal(t, p.Hash(), out.Hash())
	require.Equal(t, body.preparationHash, out.GetPrepareResponse().preparationHash)
}

func TestRecoveryMessageRoundTripNoRequestWithHash(t *testing.T) {
	h := util.Uint256{8}
	rm := &recoveryMessage{preparationHash: &h}
	msg := newRecoveryMessagePayload(0, rm)
	p := &Payload{message: *msg}

	out := roundTrip(t, p)
	got := out.GetRecoveryMessage()
	require.Nil(t, got.prepareRequest)
	require.NotNil(t, got.preparationHash)
	require.Equal(t, h, *got.preparationHash)
}
