package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3ledger/n3core/pkg/config/netmode"
)

func TestLoadPrivNet(t *testing.T) {
	cfg, err := Load(netmode.PrivNet)
	require.NoError(t, err)
	require.EqualValues(t, netmode.PrivNet, cfg.ProtocolConfiguration.Magic)
	require.Equal(t, 1, cfg.ProtocolConfiguration.ValidatorsCount)
	require.Equal(t, BoltDB, cfg.ApplicationConfiguration.Storage.Engine)
}

func TestLoadUnknownNetworkFailsWithoutFile(t *testing.T) {
	_, err := Load(netmode.MainNet)
	require.Error(t, err)
}

func TestLoadFileRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/bad.yml"
	require.NoError(t, os.WriteFile(path, []byte("ProtocolConfiguration:\n  NotAField: 1\n"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestUserAgent(t *testing.T) {
	require.Equal(t, "/n3core:0.1.0/", UserAgent("0.1.0"))
}
