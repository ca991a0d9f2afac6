package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3ledger/n3core/pkg/core/block"
	"github.com/n3ledger/n3core/pkg/crypto/keys"
)

func TestNeoBlockSignAndVerify(t *testing.T) {
	sk, err := keys.NewPrivateKey()
	require.NoError(t, err)

	nb := &neoBlock{Block: block.Block{Header: block.Header{Index: 1}}}
	priv := &privateKey{sk}
	require.NoError(t, nb.Sign(priv))
	require.NotEmpty(t, nb.Signature())

	pub := &publicKey{sk.Pub}
	require.NoError(t, nb.Verify(pub, nb.Signature()))
}

func TestNeoBlockVerifyRejectsWrongKey(t *testing.T) {
	sk, err := keys.NewPrivateKey()
	require.NoError(t, err)
	other, err := keys.NewPrivateKey()
	require.NoError(t, err)

	nb := &neoBlock{Block: block.Block{Header: block.Header{Index: 1}}}
	priv := &privateKey{sk}
	require.NoError(t, nb.Sign(priv))

	pub := &publicKey{other.Pub}
	require.Error(t, nb.Verify(pub, nb.Signature()))
}

func TestNeoBlockTransactionAccessors(t *testing.T) {
	nb := &neoBlock{}
	require.Empty(t, nb.Transactions())

	txs := nb.Transactions()
	require.Len(t, txs, 0)
}
