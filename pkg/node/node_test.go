package node

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/n3ledger/n3core/pkg/address"
	"github.com/n3ledger/n3core/pkg/config"
	"github.com/n3ledger/n3core/pkg/config/netmode"
	"github.com/n3ledger/n3core/pkg/crypto/keys"
	"github.com/n3ledger/n3core/pkg/util"
)

// testConfig builds a minimal, valid single-validator configuration, an
// in-memory-storage analogue of the embedded privnet document, with no
// TCP listener so the test never touches the network.
func testConfig(key *keys.PrivateKey) config.Config {
	return config.Config{
		ProtocolConfiguration: config.ProtocolConfiguration{
			Magic:                       netmode.UnitTestNet,
			AddressVersion:              53,
			StandbyCommittee:            []string{key.PublicKey().String()},
			ValidatorsCount:             1,
			TimePerBlock:                15 * time.Second,
			MaxTransactionsPerBlock:     512,
			MaxValidUntilBlockIncrement: 5760,
			MemPoolSize:                 100,
			MaxTraceableBlocks:          2102400,
			InitialGASSupply:            5200000000000000,
		},
		ApplicationConfiguration: config.ApplicationConfiguration{
			P2P: config.P2P{
				MinPeers: 1,
				MaxPeers: 10,
			},
			Storage: config.Storage{
				Engine: config.InMemory,
			},
			LogLevel: "info",
		},
	}
}

// privateKeyHex zero-pads k's scalar to 32 bytes, the shape
// keys.NewPrivateKeyFromHex requires.
func privateKeyHex(k *keys.PrivateKey) string {
	b := make([]byte, 32)
	db := k.D.Bytes()
	copy(b[32-len(db):], db)
	return hex.EncodeToString(b)
}

// committeeAddress encodes the single-key standby committee's own
// multisig account address, the account GAS.Initialize mints the
// genesis supply to when there is exactly one standby member.
func committeeAddress(key *keys.PrivateKey, version byte) string {
	h := keys.PublicKeys{key.PublicKey()}.ScriptHash(1)
	return address.Uint160ToString(version, util.Uint160(h))
}

func TestNewSeedsGenesisFromStandbyCommittee(t *testing.T) {
	key, err := keys.NewPrivateKey()
	require.NoError(t, err)

	n, err := New(testConfig(key), "", "test", zap.NewNop())
	require.NoError(t, err)
	defer n.store.Close()

	st := n.ShowState()
	require.EqualValues(t, 0, st.Height)
	require.EqualValues(t, netmode.UnitTestNet, st.Network)

	bal, err := n.GetBalance(committeeAddress(key, 53))
	require.NoError(t, err)
	require.EqualValues(t, 5200000000000000, bal.GAS.Int64())
}

func TestNewWithValidatorKeyRunsConsensus(t *testing.T) {
	key, err := keys.NewPrivateKey()
	require.NoError(t, err)

	n, err := New(testConfig(key), privateKeyHex(key), "test", zap.NewNop())
	require.NoError(t, err)
	defer n.store.Close()

	require.True(t, n.IsConsensusNode())
}

func TestGetBalanceRejectsWrongAddressVersion(t *testing.T) {
	key, err := keys.NewPrivateKey()
	require.NoError(t, err)

	n, err := New(testConfig(key), "", "test", zap.NewNop())
	require.NoError(t, err)
	defer n.store.Close()

	_, err = n.GetBalance(committeeAddress(key, 10))
	require.Error(t, err)
}
