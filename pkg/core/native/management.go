package native

import (
	"errors"

	"github.com/n3ledger/n3core/pkg/core/interop"
	"github.com/n3ledger/n3core/pkg/core/native/nativenames"
	"github.com/n3ledger/n3core/pkg/core/state"
	"github.com/n3ledger/n3core/pkg/crypto/hash"
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/smartcontract/callflag"
	"github.com/n3ledger/n3core/pkg/smartcontract/manifest"
	"github.com/n3ledger/n3core/pkg/smartcontract/nef"
	"github.com/n3ledger/n3core/pkg/util"
	"github.com/n3ledger/n3core/pkg/vm/stackitem"
)

const managementContractID = -1

const defaultMinimumDeploymentFee = 10_00000000

var (
	nextAvailableIDKey  = []byte{15}
	minDeployFeeKey     = []byte{20}
	errInvalidNEF       = errors.New("management: invalid NEF")
	errInvalidManifest  = errors.New("management: invalid manifest")
	errContractNotFound = errors.New("management: contract not found")
	errContractExists   = errors.New("management: contract already deployed")
)

// Management is the ContractManagement native: the entry point through
// which every other smart contract (native or user-deployed) enters
// the chain, via Deploy/Update/Destroy (spec §4.3).
type Management struct {
	interop.ContractMD
}

var _ interop.Contract = (*Management)(nil)

func newManagement() *Management {
	m := &Management{ContractMD: *interop.NewContractMD(nativenames.Management, managementContractID)}

	m.AddMethod(newMethodAndPrice(m.getContract, 1<<15, callflag.ReadStates),
		newDescriptor("getContract", "Array", newParam("hash", "Hash160")))
	m.AddMethod(newMethodAndPrice(m.deploy, 0, callflag.States|callflag.AllowNotify),
		newDescriptor("deploy", "Array", newParam("nef", "ByteArray"), newParam("manifest", "ByteArray")))
	m.AddMethod(newMethodAndPrice(m.update, 0, callflag.States|callflag.AllowNotify),
		newDescriptor("update", "Void", newParam("nef", "ByteArray"), newParam("manifest", "ByteArray")))
	m.AddMethod(newMethodAndPrice(m.destroy, 1<<15, callflag.States|callflag.AllowNotify),
		newDescriptor("destroy", "Void"))
	m.AddMethod(newMethodAndPrice(m.getMinimumDeploymentFee, 1<<15, callflag.ReadStates),
		newDescriptor("getMinimumDeploymentFee", "Integer"))
	m.AddEvent("Deploy", newParam("hash", "Hash160"))
	m.AddEvent("Update", newParam("hash", "Hash160"))
	m.AddEvent("Destroy", newParam("hash", "Hash160"))

	return m
}

// Metadata implements interop.Contract.
func (m *Management) Metadata() *interop.ContractMD { return &m.ContractMD }

// Initialize implements interop.Contract.
func (m *Management) Initialize(ic *interop.Context) error {
	setIntWithKey(m.ContractID, ic.DAO, nextAvailableIDKey, 1)
	setIntWithKey(m.ContractID, ic.DAO, minDeployFeeKey, defaultMinimumDeploymentFee)
	return nil
}

// OnPersist implements interop.Contract.
func (m *Management) OnPersist(*interop.Context) error { return nil }

// PostPersist implements interop.Contract.
func (m *Management) PostPersist(*interop.Context) error { return nil }

func (m *Management) getContract(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	h := toUint160(args[0])
	c, err := ic.DAO.GetContract(h)
	if err != nil {
		return stackitem.Null{}
	}
	return contractToStackItem(c)
}

func (m *Management) getMinimumDeploymentFee(ic *interop.Context, _ []stackitem.Item) stackitem.Item {
	return stackitem.Make(getIntWithKey(m.ContractID, ic.DAO, minDeployFeeKey))
}

func (m *Management) deploy(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	nefBytes := toBytes(args[0])
	manifestBytes := toBytes(args[1])

	f := parseNEF(nefBytes)
	mf := parseManifest(manifestBytes)

	sender := ic.Tx.Sender()
	nextID := uint32(getIntWithKey(m.ContractID, ic.DAO, nextAvailableIDKey))
	h := contractHash(sender, f.Checksum, mf.Name)

	if _, err := ic.DAO.GetContract(h); err == nil {
		panic(errContractExists)
	}

	c := &state.Contract{ID: int32(nextID), Hash: h, NEF: *f, Manifest: *mf}
	if err := ic.DAO.PutContract(c); err != nil {
		panic(err)
	}
	setIntWithKey(m.ContractID, ic.DAO, nextAvailableIDKey, int64(nextID)+1)

	ic.Notify(m.Hash, "Deploy", stackitem.NewArray([]stackitem.Item{stackitem.Make(h.BytesLE())}))
	return contractToStackItem(c)
}

func (m *Management) update(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	h := util.Uint160(ic.VM.Context().ScriptHash())
	c, err := ic.DAO.GetContract(h)
	if err != nil {
		panic(errContractNotFound)
	}
	if len(args) > 0 {
		if b := toBytes(args[0]); len(b) > 0 {
			c.NEF = *parseNEF(b)
		}
	}
	if len(args) > 1 {
		if b := toBytes(args[1]); len(b) > 0 {
			c.Manifest = *parseManifest(b)
		}
	}
	c.UpdateCntr++
	if err := ic.DAO.PutContract(c); err != nil {
		panic(err)
	}
	ic.Notify(m.Hash, "Update", stackitem.NewArray([]stackitem.Item{stackitem.Make(h.BytesLE())}))
	return stackitem.Null{}
}

func (m *Management) destroy(ic *interop.Context, _ []stackitem.Item) stackitem.Item {
	h := util.Uint160(ic.VM.Context().ScriptHash())
	c, err := ic.DAO.GetContract(h)
	if err != nil {
		panic(errContractNotFound)
	}
	if err := ic.DAO.DeleteContract(c); err != nil {
		panic(err)
	}
	if err := ic.DAO.DeleteContractStorage(c.ID); err != nil {
		panic(err)
	}
	ic.Notify(m.Hash, "Destroy", stackitem.NewArray([]stackitem.Item{stackitem.Make(h.BytesLE())}))
	return stackitem.Null{}
}

// contractHash derives a deployed contract's script hash from its
// deployer, its NEF checksum and its manifest name, so the same contract
// deployed by two different accounts never collides, while deploying it
// twice from the same account is rejected as already deployed.
func contractHash(sender util.Uint160, checksum uint32, name string) util.Uint160 {
	w := io.NewBufBinWriter()
	w.WriteBytes(sender.BytesLE())
	w.WriteU32LE(checksum)
	w.WriteBytes([]byte(name))
	return util.Uint160(hash.Hash160(w.Bytes()))
}

func parseNEF(b []byte) *nef.File {
	f := &nef.File{}
	r := io.NewBinReaderFromBuf(b)
	f.DecodeBinary(r)
	if r.Err != nil {
		panic(errInvalidNEF)
	}
	return f
}

func parseManifest(b []byte) *manifest.Manifest {
	if len(b) > manifest.MaxManifestSize {
		panic(errInvalidManifest)
	}
	mf := &manifest.Manifest{}
	if err := mf.UnmarshalJSON(b); err != nil {
		panic(errInvalidManifest)
	}
	return mf
}

func contractToStackItem(c *state.Contract) stackitem.Item {
	mb, err := c.Manifest.Bytes()
	if err != nil {
		mb = nil
	}
	return stackitem.NewArray([]stackitem.Item{
		stackitem.Make(int64(c.ID)),
		stackitem.Make(int64(c.UpdateCntr)),
		stackitem.Make(c.Hash.BytesLE()),
		stackitem.Make(c.NEF.Script),
		stackitem.Make(mb),
	})
}
