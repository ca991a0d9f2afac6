package native

import (
	"errors"

	"github.com/n3ledger/n3core/pkg/core/interop"
	"github.com/n3ledger/n3core/pkg/core/native/nativenames"
	"github.com/n3ledger/n3core/pkg/core/state"
	"github.com/n3ledger/n3core/pkg/smartcontract/callflag"
	"github.com/n3ledger/n3core/pkg/vm/stackitem"
)

const designateContractID = -8

// Role identifies one of the off-chain duties RoleManagement assigns a
// set of public keys to at a given height.
type Role byte

// The four roles spec §4.3 names.
const (
	RoleStateValidator Role = 4
	RoleOracle         Role = 8
	RoleNeoFSAlphabet  Role = 16
	RoleP2PNotary      Role = 32
)

var errUnknownRole = errors.New("designate: unknown role")

func (r Role) valid() bool {
	switch r {
	case RoleStateValidator, RoleOracle, RoleNeoFSAlphabet, RoleP2PNotary:
		return true
	}
	return false
}

// Designate is the RoleManagement native: committee-controlled
// assignment of public-key sets to off-chain roles, versioned by the
// block height the assignment took effect at so historical lookups
// stay stable (spec §4.3).
type Designate struct {
	interop.ContractMD
	NEO *NEO
}

var _ interop.Contract = (*Designate)(nil)

func newDesignate() *Designate {
	d := &Designate{ContractMD: *interop.NewContractMD(nativenames.Designation, designateContractID)}

	d.AddMethod(newMethodAndPrice(d.getDesignatedByRole, 1<<15, callflag.ReadStates),
		newDescriptor("getDesignatedByRole", "Array", newParam("role", "Integer"), newParam("height", "Integer")))
	d.AddMethod(newMethodAndPrice(d.designateAsRole, 1<<15, callflag.States),
		newDescriptor("designateAsRole", "Void", newParam("role", "Integer"), newParam("pubkeys", "Array")))
	d.AddEvent("Designation", newParam("role", "Integer"), newParam("height", "Integer"))

	return d
}

// Metadata implements interop.Contract.
func (d *Designate) Metadata() *interop.ContractMD { return &d.ContractMD }

// Initialize implements interop.Contract.
func (d *Designate) Initialize(*interop.Context) error { return nil }

// OnPersist implements interop.Contract.
func (d *Designate) OnPersist(*interop.Context) error { return nil }

// PostPersist implements interop.Contract.
func (d *Designate) PostPersist(*interop.Context) error { return nil }

func (d *Designate) getDesignatedByRole(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	role := Role(toUint32(args[0]))
	height := toUint32(args[1])
	if !role.valid() {
		panic(errUnknownRole)
	}
	keys := d.designatedAt(ic, role, height)
	items := make([]stackitem.Item, len(keys))
	for i, k := range keys {
		items[i] = stackitem.Make(k)
	}
	return stackitem.NewArray(items)
}

func (d *Designate) designateAsRole(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	role := Role(toUint32(args[0]))
	if !role.valid() {
		panic(errUnknownRole)
	}
	if !d.NEO.checkCommittee(ic) {
		panic(errInvalidWitness)
	}
	arr, ok := args[1].(*stackitem.Array)
	if !ok {
		panic(errInvalidArgumentDesignate)
	}
	items := arr.Value().([]stackitem.Item)
	pubkeys := make([][]byte, len(items))
	for i, it := range items {
		pubkeys[i] = toBytes(it)
	}

	height := ic.BlockHeight() + 1
	key := designateKey(role, height)
	var buf []byte
	for _, pk := range pubkeys {
		buf = append(buf, byte(len(pk)))
		buf = append(buf, pk...)
	}
	if err := ic.DAO.PutStorageItem(d.ContractID, key, state.StorageItem(buf)); err != nil {
		panic(err)
	}
	ic.Notify(d.Hash, "Designation", stackitem.NewArray([]stackitem.Item{
		stackitem.Make(int64(role)), stackitem.Make(int64(height)),
	}))
	return stackitem.Null{}
}

// designatedAt returns the key set in effect for role at height: the
// most recent assignment whose effective height is <= height.
func (d *Designate) designatedAt(ic *interop.Context, role Role, height uint32) [][]byte {
	prefix := []byte{byte(role)}
	var bestHeight uint32
	var best [][]byte
	found := false
	_ = ic.DAO.SeekStorage(d.ContractID, prefix, func(k, v []byte) bool {
		if len(k) < 5 {
			return true
		}
		h := uint32(k[1])<<24 | uint32(k[2])<<16 | uint32(k[3])<<8 | uint32(k[4])
		if h > height {
			return true
		}
		if !found || h > bestHeight {
			bestHeight = h
			best = decodeKeyList(v)
			found = true
		}
		return true
	})
	return best
}

func designateKey(role Role, height uint32) []byte {
	k := make([]byte, 5)
	k[0] = byte(role)
	k[1] = byte(height >> 24)
	k[2] = byte(height >> 16)
	k[3] = byte(height >> 8)
	k[4] = byte(height)
	return k
}

func decodeKeyList(buf []byte) [][]byte {
	var out [][]byte
	for len(buf) > 0 {
		l := int(buf[0])
		buf = buf[1:]
		if l > len(buf) {
			break
		}
		out = append(out, buf[:l])
		buf = buf[l:]
	}
	return out
}

var errInvalidArgumentDesignate = errors.New("designate: pubkeys must be an array")
