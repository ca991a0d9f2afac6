package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3ledger/n3core/pkg/crypto/keys"
)

func TestPrivateKeySignPublicKeyVerify(t *testing.T) {
	sk, err := keys.NewPrivateKey()
	require.NoError(t, err)

	priv := &privateKey{sk}
	pub := publicKey{sk.Pub}

	msg := []byte("dbft payload hash")
	sig, err := priv.Sign(msg)
	require.NoError(t, err)

	require.NoError(t, pub.Verify(msg, sig))
}

func TestPublicKeyVerifyRejectsTamperedMessage(t *testing.T) {
	sk, err := keys.NewPrivateKey()
	require.NoError(t, err)

	priv := &privateKey{sk}
	pub := publicKey{sk.Pub}

	sig, err := priv.Sign([]byte("original"))
	require.NoError(t, err)

	require.Error(t, pub.Verify([]byte("tampered"), sig))
}

func TestPublicKeyMarshalUnmarshalBinary(t *testing.T) {
	sk, err := keys.NewPrivateKey()
	require.NoError(t, err)

	pub := publicKey{sk.Pub}
	data, err := pub.MarshalBinary()
	require.NoError(t, err)

	var out publicKey
	require.NoError(t, out.UnmarshalBinary(data))
	require.True(t, sk.Pub.Equals(out.PublicKey))
}
