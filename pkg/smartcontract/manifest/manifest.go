// Package manifest implements the contract manifest: the declared ABI,
// permissions, trusts, and supported standards a deployed contract
// publishes about itself (spec §4.2/§4.6, ContractManagement).
package manifest

import (
	"errors"

	ojson "github.com/nspcc-dev/go-ordered-json"

	"github.com/n3ledger/n3core/pkg/smartcontract/callflag"
	"github.com/n3ledger/n3core/pkg/util"
)

// MaxManifestSize bounds the serialised manifest stored on chain.
const MaxManifestSize = 64 * 1024

var (
	ErrTooLarge       = errors.New("manifest: exceeds MaxManifestSize")
	ErrNoEntryPoint   = errors.New("manifest: ABI has no matching method")
	ErrInvalidManifest = errors.New("manifest: invalid contract manifest")
)

// Parameter describes one method parameter or event argument.
type Parameter struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Method describes one ABI entry point.
type Method struct {
	Name       string      `json:"name"`
	Parameters []Parameter `json:"parameters"`
	ReturnType string      `json:"returntype"`
	Offset     int         `json:"offset"`
	Safe       bool        `json:"safe"`
}

// Event describes one notification a contract may raise.
type Event struct {
	Name       string      `json:"name"`
	Parameters []Parameter `json:"parameters"`
}

// ABI is the contract's method and event table.
type ABI struct {
	Methods []Method `json:"methods"`
	Events  []Event  `json:"events"`
}

// GetMethod finds a method by name and parameter count, as a multi-arity
// ABI may declare overloads that only differ by parameter count.
func (a *ABI) GetMethod(name string, paramCount int) *Method {
	for i := range a.Methods {
		m := &a.Methods[i]
		if m.Name == name && (paramCount < 0 || len(m.Parameters) == paramCount) {
			return m
		}
	}
	return nil
}

// Group is a signed attestation that the contract author controls a given
// public key, used for NEP compliance and marketplace trust display.
type Group struct {
	PublicKey []byte `json:"pubkey"`
	Signature []byte `json:"signature"`
}

// Permission declares a contract (or wildcard) and method set this
// contract is allowed to call.
type Permission struct {
	Contract string   `json:"contract"` // "*", a script hash, or a group pubkey
	Methods  []string `json:"methods"`  // ["*"] for unrestricted
}

// AllowsMethod reports whether calling method on the given target hash is
// permitted by this permission entry.
func (p Permission) AllowsMethod(target util.Uint160, method string) bool {
	if p.Contract != "*" && p.Contract != "0x"+target.StringBE() {
		return false
	}
	if len(p.Methods) == 1 && p.Methods[0] == "*" {
		return true
	}
	for _, m := range p.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// Manifest is the full contract manifest published at deployment time.
type Manifest struct {
	Name               string       `json:"name"`
	Groups             []Group      `json:"groups"`
	SupportedStandards []string     `json:"supportedstandards"`
	ABI                ABI          `json:"abi"`
	Permissions        []Permission `json:"permissions"`
	Trusts             []string     `json:"trusts"`
	Extra              interface{}  `json:"extra,omitempty"`
}

// DefaultManifest builds a manifest with the permissive defaults used for
// the bundled native contracts (full self-call, no declared trusts).
func DefaultManifest(name string, methods []Method, events []Event) *Manifest {
	return &Manifest{
		Name: name,
		ABI:  ABI{Methods: methods, Events: events},
		Permissions: []Permission{
			{Contract: "*", Methods: []string{"*"}},
		},
	}
}

// CanCall reports whether this manifest permits calling method on target.
func (m *Manifest) CanCall(target util.Uint160, method string) bool {
	for _, p := range m.Permissions {
		if p.AllowsMethod(target, method) {
			return true
		}
	}
	return false
}

// RequiredCallFlags derives the call-flag mask a method invocation needs
// from its ABI entry's declared safety: "safe" methods never write state.
func RequiredCallFlags(safe bool) callflag.CallFlag {
	if safe {
		return callflag.ReadOnly
	}
	return callflag.All
}

// MarshalJSON serialises the manifest using an order-preserving encoder so
// repeated marshal/unmarshal round trips (and therefore the manifest's
// on-chain hash) are stable across Go map iteration order, matching the
// deterministic JSON the reference manifest hash is computed over.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	type alias Manifest
	return ojson.Marshal((*alias)(m))
}

// UnmarshalJSON is the symmetric counterpart of MarshalJSON.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	type alias Manifest
	return ojson.Unmarshal(data, (*alias)(m))
}

// Bytes serialises the manifest to canonical JSON, enforcing
// MaxManifestSize.
func (m *Manifest) Bytes() ([]byte, error) {
	b, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	if len(b) > MaxManifestSize {
		return nil, ErrTooLarge
	}
	return b, nil
}
