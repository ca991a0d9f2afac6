// Package embedded bundles the configuration documents shipped inside the
// binary, so a node can start against a named network without an operator
// supplying a config file on disk (mirrors the teacher's top-level config
// package, which embeds one YAML file per network mode).
package embedded

import (
	_ "embed"
	"fmt"
)

//go:embed protocol.privnet.yml
var privNet []byte

// Get returns the embedded configuration document for the named network
// mode ("privnet", "unit_testnet"; both return the same privnet
// document). MainNet and TestNet are not bundled:
// this module has no access to their real genesis/committee data, so a
// node targeting them must be pointed at an explicit config file instead
// (see DESIGN.md).
func Get(mode string) ([]byte, error) {
	switch mode {
	case "privnet", "unit_testnet":
		return privNet, nil
	default:
		return nil, fmt.Errorf("config: no embedded configuration for network mode %q, pass an explicit config file", mode)
	}
}
