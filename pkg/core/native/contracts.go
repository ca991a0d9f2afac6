package native

import (
	"errors"

	"github.com/n3ledger/n3core/pkg/core/interop"
	"github.com/n3ledger/n3core/pkg/util"
	"github.com/n3ledger/n3core/pkg/vm/stackitem"
)

// Set is the fixed collection of native contracts every chain runs
// (spec §4.3), wired together once at construction so cross-contract
// calls (Policy's committee check through NEO, GAS minting from NEO
// votes and Notary withdrawals, Oracle's node lookup through
// RoleManagement) never need a runtime registry lookup.
type Set struct {
	Management *Management
	Ledger     *Ledger
	NEO        *NEO
	GAS        *GAS
	Policy     *Policy
	Designate  *Designate
	Oracle     *Oracle
	Notary     *Notary

	byHash map[util.Uint160]interop.Contract
	byID   map[int32]interop.Contract
}

// NewSet builds the full native contract collection.
func NewSet() *Set {
	s := &Set{
		Management: newManagement(),
		Ledger:     newLedger(),
		NEO:        newNEO(),
		GAS:        newGAS(),
		Policy:     newPolicy(),
		Designate:  newDesignate(),
		Oracle:     newOracle(),
		Notary:     newNotary(),
	}

	s.NEO.GAS = s.GAS
	s.GAS.NEO = s.NEO
	s.Policy.NEO = s.NEO
	s.Designate.NEO = s.NEO
	s.Oracle.Designate = s.Designate
	s.Notary.GAS = s.GAS

	s.byHash = make(map[util.Uint160]interop.Contract, 8)
	s.byID = make(map[int32]interop.Contract, 8)
	for _, c := range s.Contracts() {
		md := c.Metadata()
		s.byHash[md.Hash] = c
		s.byID[md.ContractID] = c
	}
	return s
}

// Contracts lists every native contract in a fixed, deterministic
// order (Management first, since ContractManagement must exist before
// anything can be deployed against it).
func (s *Set) Contracts() []interop.Contract {
	return []interop.Contract{s.Management, s.Ledger, s.NEO, s.GAS, s.Policy, s.Designate, s.Oracle, s.Notary}
}

// ByHash resolves a native contract by its script hash.
func (s *Set) ByHash(h util.Uint160) (interop.Contract, bool) {
	c, ok := s.byHash[h]
	return c, ok
}

// ByID resolves a native contract by its fixed negative contract ID.
func (s *Set) ByID(id int32) (interop.Contract, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// InitializeAll runs every native contract's genesis Initialize, in
// Contracts order, used once when persisting the genesis block.
func (s *Set) InitializeAll(ic *interop.Context) error {
	for _, c := range s.Contracts() {
		if err := c.Initialize(ic); err != nil {
			return err
		}
	}
	return nil
}

// OnPersistAll/PostPersistAll run every native contract's per-block
// hooks, in Contracts order, matching the reference engine's fixed
// native-contract invocation order within a block.
func (s *Set) OnPersistAll(ic *interop.Context) error {
	for _, c := range s.Contracts() {
		if err := c.OnPersist(ic); err != nil {
			return err
		}
	}
	return nil
}

func (s *Set) PostPersistAll(ic *interop.Context) error {
	for _, c := range s.Contracts() {
		if err := c.PostPersist(ic); err != nil {
			return err
		}
	}
	return nil
}

var errNativeNotFound = errors.New("native: no such contract")
var errNativeMethodNotFound = errors.New("native: no such method")

// Call dispatches a single native-contract method invocation, reached
// through interop.Context.CallNative when System.Contract.Call targets a
// native contract's script hash.
func (s *Set) Call(ic *interop.Context, h util.Uint160, method string, args []stackitem.Item) (stackitem.Item, error) {
	c, ok := s.ByHash(h)
	if !ok {
		return nil, errNativeNotFound
	}
	md := c.Metadata()
	mp, ok := md.Methods[method]
	if !ok {
		return nil, errNativeMethodNotFound
	}
	return mp.Func(ic, args), nil
}
