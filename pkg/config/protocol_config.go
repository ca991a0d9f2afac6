package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/n3ledger/n3core/pkg/config/netmode"
	"github.com/n3ledger/n3core/pkg/crypto/keys"
)

// ProtocolConfiguration represents the consensus- and chain-wide parameters
// every node on the network must agree on (spec §6 "Environment"). Unlike
// ApplicationConfiguration, changing one of these fields changes which
// network a node is actually part of.
type ProtocolConfiguration struct {
	// Magic is the network identifier mixed into every signed hash and
	// exchanged in the P2P Version handshake ("network_magic").
	Magic netmode.Magic `yaml:"Magic"`
	// AddressVersion is the version byte used by base58-check address
	// encoding ("address_version").
	AddressVersion byte `yaml:"AddressVersion"`
	// StandbyCommittee lists the compressed hex-encoded public keys of the
	// network's standing committee ("standby_committee"). NEO seeds the
	// committee from them at genesis and, in list order, fills seats that
	// too few voted candidates leave empty; ties between candidates are
	// broken by public-key bytes, not by this order.
	StandbyCommittee []string `yaml:"StandbyCommittee"`
	// ValidatorsCount is how many of the committee's top vote-getters
	// serve as consensus validators each round ("validators_count").
	ValidatorsCount int `yaml:"ValidatorsCount"`
	// SeedList is the set of "host:port" peers a fresh node dials first
	// ("seed_list").
	SeedList []string `yaml:"SeedList"`
	// TimePerBlock is the target interval between blocks ("ms_per_block").
	TimePerBlock time.Duration `yaml:"TimePerBlock"`
	// MaxTransactionsPerBlock caps how many transactions a proposed block
	// may include ("max_transactions_per_block").
	MaxTransactionsPerBlock uint16 `yaml:"MaxTransactionsPerBlock"`
	// MaxValidUntilBlockIncrement bounds how far into the future a
	// transaction's ValidUntilBlock may point ("max_valid_until_block_increment").
	MaxValidUntilBlockIncrement uint32 `yaml:"MaxValidUntilBlockIncrement"`
	// MemPoolSize is the verified-transaction capacity of the mempool
	// ("memory_pool_max_transactions").
	MemPoolSize int `yaml:"MemPoolSize"`
	// MaxTraceableBlocks bounds how far back ValidUntilBlock / NotValidBefore
	// checks and history queries are allowed to look ("max_traceable_blocks").
	MaxTraceableBlocks uint32 `yaml:"MaxTraceableBlocks"`
	// InitialGASSupply is the amount of GAS (in 10^-8 units) minted to the
	// standby committee at genesis ("initial_gas_distribution").
	InitialGASSupply int64 `yaml:"InitialGASSupply"`
	// P2PSigExtensions is reported by Blockchain.P2PSigExtensionsEnabled.
	// The Notary native contract is registered whatever its value, and no
	// transaction attribute depends on it.
	P2PSigExtensions bool `yaml:"P2PSigExtensions"`
}

var errNoStandbyCommittee = errors.New("config: StandbyCommittee must not be empty")

// Validate checks the configuration for internal consistency, the way a
// bad protocol.yml should fail fast at startup rather than corrupt a chain
// part way through.
func (p *ProtocolConfiguration) Validate() error {
	if p.TimePerBlock%time.Millisecond != 0 {
		return errors.New("config: TimePerBlock must be a whole number of milliseconds")
	}
	if len(p.StandbyCommittee) == 0 {
		return errNoStandbyCommittee
	}
	if p.ValidatorsCount <= 0 || p.ValidatorsCount > len(p.StandbyCommittee) {
		return fmt.Errorf("config: ValidatorsCount (%d) must be in (0, %d]", p.ValidatorsCount, len(p.StandbyCommittee))
	}
	if p.MaxTransactionsPerBlock == 0 {
		return errors.New("config: MaxTransactionsPerBlock must be positive")
	}
	if p.MemPoolSize <= 0 {
		return errors.New("config: MemPoolSize must be positive")
	}
	for i, s := range p.StandbyCommittee {
		if _, err := p.standbyCommitteeKey(s); err != nil {
			return fmt.Errorf("config: StandbyCommittee[%d]: %w", i, err)
		}
	}
	return nil
}

func (p *ProtocolConfiguration) standbyCommitteeKey(hexKey string) (*keys.PublicKey, error) {
	return keys.NewPublicKeyFromHex(hexKey)
}

// StandbyCommitteeKeys decodes StandbyCommittee into public keys, in the
// same order, for use as NEO's initial committee/candidate set.
func (p *ProtocolConfiguration) StandbyCommitteeKeys() (keys.PublicKeys, error) {
	pubs := make(keys.PublicKeys, len(p.StandbyCommittee))
	for i, s := range p.StandbyCommittee {
		pub, err := p.standbyCommitteeKey(s)
		if err != nil {
			return nil, err
		}
		pubs[i] = pub
	}
	return pubs, nil
}

// GetCommitteeSize returns the number of committee seats, currently a flat
// constant equal to len(StandbyCommittee) (the teacher's richer
// CommitteeHistory-by-height schedule is out of scope here, see DESIGN.md).
func (p *ProtocolConfiguration) GetCommitteeSize() int {
	return len(p.StandbyCommittee)
}

// GetNumOfCNs returns the number of consensus nodes (validators).
func (p *ProtocolConfiguration) GetNumOfCNs() int {
	return p.ValidatorsCount
}
