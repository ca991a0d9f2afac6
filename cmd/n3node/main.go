// Command n3node runs a Neo N3 full node: chain sync, mempool, P2P
// relay, and optionally consensus, for a single network mode (spec §6
// "Environment"). Simple dirty and quick bootstrapping, same spirit as
// the teacher's cmd/neoserver: pick a network with a flag, optionally
// supply a validator key, go.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/n3ledger/n3core/pkg/config"
	"github.com/n3ledger/n3core/pkg/config/netmode"
	"github.com/n3ledger/n3core/pkg/node"
)

// version is overridden at build time via -ldflags "-X main.version=...",
// the way the teacher's binaries stamp their UserAgent string.
var version = "dev"

var (
	configPath   = flag.String("config", "", "path to a configuration YAML file")
	mainnet      = flag.Bool("mainnet", false, "MainNet: no configuration is embedded for it, so this flag fails; use -config with a MainNet file instead")
	testnet      = flag.Bool("testnet", false, "TestNet: no configuration is embedded for it, so this flag fails; use -config with a TestNet file instead")
	privnet      = flag.Bool("privnet", false, "run against the embedded private network configuration")
	unitTestNet  = flag.Bool("unit-testnet", false, "run against the embedded private network configuration (the same document as -privnet)")
	validatorKey = flag.String("validator-key", "", "hex-encoded secp256r1 consensus signing key; omitting it runs a relay-only node")
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "n3node: loading configuration:", err)
		return 1
	}

	log, err := newLogger(cfg.ApplicationConfiguration.LogLevel, cfg.ApplicationConfiguration.LogPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "n3node: building logger:", err)
		return 1
	}
	defer log.Sync()

	n, err := node.New(cfg, *validatorKey, version, log)
	if err != nil {
		log.Error("initialization failed", zap.Error(err))
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- n.Start() }()

	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
		n.Shutdown()
		<-errCh
		return 0
	case err := <-errCh:
		if err != nil {
			log.Error("server stopped", zap.Error(err))
			return 2
		}
		return 0
	}
}

// loadConfig resolves the configuration document the requested network
// mode flag (or -config) points at. Exactly one of -config / -mainnet /
// -testnet / -privnet / -unit-testnet is expected.
func loadConfig() (config.Config, error) {
	modes := 0
	for _, set := range []bool{*configPath != "", *mainnet, *testnet, *privnet, *unitTestNet} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return config.Config{}, errors.New("specify exactly one of -config, -mainnet, -testnet, -privnet, -unit-testnet")
	}

	if *configPath != "" {
		return config.LoadFile(*configPath)
	}

	var magic netmode.Magic
	switch {
	case *mainnet:
		magic = netmode.MainNet
	case *testnet:
		magic = netmode.TestNet
	case *privnet:
		magic = netmode.PrivNet
	case *unitTestNet:
		magic = netmode.UnitTestNet
	}
	return config.Load(magic)
}

// newLogger builds a zap.Logger at the configured level, writing to
// LogPath if set or stderr otherwise, matching the teacher's own
// HandleLoggingParams conventions (cli/options/options.go).
func newLogger(level, path string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		var err error
		lvl, err = zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log setting: %w", err)
		}
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.Encoding = "console"
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.Level = zap.NewAtomicLevelAt(lvl)
	cc.Sampling = nil
	if path != "" {
		cc.OutputPaths = []string{path}
	} else {
		cc.OutputPaths = []string{"stderr"}
	}
	return cc.Build()
}
