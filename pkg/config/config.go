// Package config loads the single configuration document spec §6
// "Environment" describes: network-wide consensus parameters plus this
// node's local storage, P2P, and logging settings, grounded on the
// teacher's pkg/config package (Load/LoadFile over gopkg.in/yaml.v3 with
// strict field checking) but scoped to the fields this spec names.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/n3ledger/n3core/pkg/config/embedded"
	"github.com/n3ledger/n3core/pkg/config/netmode"
)

// UserAgentWrapper and UserAgentPrefix build the "/n3core:VERSION/" string
// this node advertises in its Version payload (pkg/network/payload.Version).
const (
	UserAgentWrapper = "/"
	UserAgentPrefix  = "n3core:"
	UserAgentFormat  = UserAgentWrapper + UserAgentPrefix + "%s" + UserAgentWrapper
)

// Config is the top-level configuration document.
type Config struct {
	ProtocolConfiguration    ProtocolConfiguration    `yaml:"ProtocolConfiguration"`
	ApplicationConfiguration ApplicationConfiguration `yaml:"ApplicationConfiguration"`
}

// UserAgent formats this node's P2P user agent string for the given
// version (set at build time via -ldflags, like the teacher does).
func UserAgent(version string) string {
	return fmt.Sprintf(UserAgentFormat, version)
}

// defaults seeds fields a loaded document is allowed to omit.
func defaults() Config {
	return Config{
		ApplicationConfiguration: ApplicationConfiguration{
			P2P: P2P{
				MinPeers:     5,
				MaxPeers:     40,
				DialTimeout:  5 * time.Second,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 10 * time.Second,
				PingInterval: 30 * time.Second,
				PingTimeout:  90 * time.Second,
			},
			LogLevel: "info",
		},
	}
}

// Load reads the embedded configuration for the named network mode, the
// path a node operator takes by passing `-mainnet`/`-testnet`/`-privnet`
// instead of an explicit `-config` file.
func Load(netMode netmode.Magic) (Config, error) {
	data, err := embedded.Get(netMode.String())
	if err != nil {
		return Config{}, err
	}
	return parse(data)
}

// LoadFile reads and validates a configuration document from disk.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: unable to read %s: %w", path, err)
	}
	return parse(data)
}

func parse(data []byte) (Config, error) {
	cfg := defaults()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unable to unmarshal YAML: %w", err)
	}

	if err := cfg.ProtocolConfiguration.Validate(); err != nil {
		return Config{}, err
	}
	if err := cfg.ApplicationConfiguration.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
