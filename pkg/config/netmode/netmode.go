// Package netmode identifies which Neo N3 network a node is configured for
// (spec §6 "Environment" names this field "network_magic").
package netmode

import "strconv"

// Magic is the network identifier exchanged in every P2P Version handshake
// (spec §4.7) and mixed into every signed hash via the chain's Network().
type Magic uint32

const (
	// MainNet is the magic of the public Neo N3 main network.
	MainNet Magic = 0x334f454e
	// TestNet is the magic of the public Neo N3 test network.
	TestNet Magic = 0x3254334e
	// PrivNet is the conventional magic for local/private networks.
	PrivNet Magic = 56753
	// UnitTestNet is used by in-process tests that need a stable magic
	// without loading any configuration document.
	UnitTestNet Magic = 42
)

// String implements fmt.Stringer, also used to build config file names
// ("protocol.<mode>.yml") the way Load does.
func (m Magic) String() string {
	switch m {
	case MainNet:
		return "mainnet"
	case TestNet:
		return "testnet"
	case PrivNet:
		return "privnet"
	case UnitTestNet:
		return "unit_testnet"
	default:
		return "net 0x" + strconv.FormatUint(uint64(m), 16)
	}
}
