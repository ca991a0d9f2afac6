package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validProtocolConfig() ProtocolConfiguration {
	return ProtocolConfiguration{
		Magic:                   56753,
		StandbyCommittee:        []string{"036b17d1f2e12c4247f8bce6e563a440f277037d812deb33a0f4a13945d898c296"},
		ValidatorsCount:         1,
		TimePerBlock:            15 * time.Second,
		MaxTransactionsPerBlock: 512,
		MemPoolSize:             50000,
	}
}

func TestProtocolConfigurationValidate(t *testing.T) {
	p := validProtocolConfig()
	require.NoError(t, p.Validate())
}

func TestProtocolConfigurationValidateRejectsEmptyCommittee(t *testing.T) {
	p := validProtocolConfig()
	p.StandbyCommittee = nil
	require.ErrorIs(t, p.Validate(), errNoStandbyCommittee)
}

func TestProtocolConfigurationValidateRejectsTooManyValidators(t *testing.T) {
	p := validProtocolConfig()
	p.ValidatorsCount = 2
	require.Error(t, p.Validate())
}

func TestProtocolConfigurationValidateRejectsBadKeyHex(t *testing.T) {
	p := validProtocolConfig()
	p.StandbyCommittee = []string{"not-hex"}
	require.Error(t, p.Validate())
}

func TestProtocolConfigurationValidateRejectsFractionalBlockTime(t *testing.T) {
	p := validProtocolConfig()
	p.TimePerBlock = time.Millisecond / 2
	require.Error(t, p.Validate())
}

func TestStandbyCommitteeKeys(t *testing.T) {
	p := validProtocolConfig()
	pubs, err := p.StandbyCommitteeKeys()
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	require.Equal(t, p.StandbyCommittee[0], pubs[0].String())
}

func TestGetCommitteeSizeAndNumOfCNs(t *testing.T) {
	p := validProtocolConfig()
	require.Equal(t, 1, p.GetCommitteeSize())
	require.Equal(t, 1, p.GetNumOfCNs())
}
