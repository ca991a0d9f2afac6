package native

import (
	"errors"

	"github.com/n3ledger/n3core/pkg/core/interop"
	"github.com/n3ledger/n3core/pkg/core/native/nativenames"
	"github.com/n3ledger/n3core/pkg/core/state"
	"github.com/n3ledger/n3core/pkg/smartcontract/callflag"
	"github.com/n3ledger/n3core/pkg/util"
	"github.com/n3ledger/n3core/pkg/vm/stackitem"
)

const oracleContractID = -9

const defaultOracleRequestPrice = 0_50000000

var (
	requestIDKey      = []byte{9}
	requestPriceKey   = []byte{10}
	oracleRequestPfx  = byte(7)
	errNoOracleNodes  = errors.New("oracle: no designated oracle nodes")
	errRequestMissing = errors.New("oracle: request not found")
)

// OracleRequest is one pending off-chain data fetch, addressed by a
// monotonic ID until an OracleResponse transaction settles it.
type OracleRequest struct {
	OriginalTxID    util.Uint256
	GasForResponse  int64
	URL             string
	Filter          string
	CallbackContract util.Uint160
	CallbackMethod   string
	UserData         []byte
}

// Oracle is the OracleContract native: user contracts request off-chain
// URL data through it, and designated oracle nodes settle requests by
// attaching an OracleResponse attribute to a system transaction (spec
// §4.3). Request storage here is grounded on general Neo N3 domain
// knowledge rather than a pack source file — no oracle.go was found
// among the retrieved example repos.
type Oracle struct {
	interop.ContractMD
	Designate *Designate
}

var _ interop.Contract = (*Oracle)(nil)

func newOracle() *Oracle {
	o := &Oracle{ContractMD: *interop.NewContractMD(nativenames.Oracle, oracleContractID)}

	o.AddMethod(newMethodAndPrice(o.request, 0, callflag.States|callflag.AllowNotify|callflag.AllowCall),
		newDescriptor("request", "Void",
			newParam("url", "String"), newParam("filter", "String"),
			newParam("callback", "String"), newParam("userData", "Any"), newParam("gasForResponse", "Integer")))
	o.AddMethod(newMethodAndPrice(o.getPrice, 1<<15, callflag.ReadStates),
		newDescriptor("getPrice", "Integer"))
	o.AddMethod(newMethodAndPrice(o.setPrice, 1<<15, callflag.States),
		newDescriptor("setPrice", "Void", newParam("price", "Integer")))
	o.AddEvent("OracleRequest", newParam("id", "Integer"), newParam("requestContract", "Hash160"), newParam("url", "String"), newParam("filter", "String"))
	o.AddEvent("OracleResponse", newParam("id", "Integer"), newParam("originalTx", "Hash256"))

	return o
}

// Metadata implements interop.Contract.
func (o *Oracle) Metadata() *interop.ContractMD { return &o.ContractMD }

// Initialize implements interop.Contract.
func (o *Oracle) Initialize(ic *interop.Context) error {
	setIntWithKey(o.ContractID, ic.DAO, requestIDKey, 0)
	setIntWithKey(o.ContractID, ic.DAO, requestPriceKey, defaultOracleRequestPrice)
	return nil
}

// OnPersist implements interop.Contract.
func (o *Oracle) OnPersist(*interop.Context) error { return nil }

// PostPersist implements interop.Contract.
func (o *Oracle) PostPersist(*interop.Context) error { return nil }

func (o *Oracle) getPrice(ic *interop.Context, _ []stackitem.Item) stackitem.Item {
	return stackitem.Make(getIntWithKey(o.ContractID, ic.DAO, requestPriceKey))
}

func (o *Oracle) setPrice(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	if !o.requireCommittee(ic) {
		panic(errInvalidWitness)
	}
	value := toBigInt(args[0]).Int64()
	if value < 0 {
		panic(errors.New("oracle: negative price"))
	}
	setIntWithKey(o.ContractID, ic.DAO, requestPriceKey, value)
	return stackitem.Null{}
}

// requireCommittee checks committee witness through NEO's election
// state, resolved indirectly via the shared Natives list to avoid a
// direct Oracle->NEO field (Oracle is constructed before NEO in some
// orderings).
func (o *Oracle) requireCommittee(ic *interop.Context) bool {
	for _, c := range ic.Natives {
		if n, ok := c.(*NEO); ok {
			return n.checkCommittee(ic)
		}
	}
	return false
}

func (o *Oracle) request(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	url := string(toBytes(args[0]))
	filter := string(toBytes(args[1]))
	callback := string(toBytes(args[2]))
	userData := toBytes(args[3])
	gasForResponse := toBigInt(args[4]).Int64()

	nodes := o.designatedOracleNodes(ic)
	if len(nodes) == 0 {
		panic(errNoOracleNodes)
	}

	id := uint32(getIntWithKey(o.ContractID, ic.DAO, requestIDKey))
	setIntWithKey(o.ContractID, ic.DAO, requestIDKey, int64(id)+1)

	caller := util.Uint160(ic.VM.Context().ScriptHash())
	var tx util.Uint256
	if ic.Tx != nil {
		tx = ic.Tx.Hash()
	}

	req := &OracleRequest{
		OriginalTxID:     tx,
		GasForResponse:   gasForResponse,
		URL:              url,
		Filter:           filter,
		CallbackContract: caller,
		CallbackMethod:   callback,
		UserData:         userData,
	}
	_ = ic.DAO.PutStorageItem(o.ContractID, requestKey(id), state.StorageItem(encodeOracleRequest(req)))

	ic.Notify(o.Hash, "OracleRequest", stackitem.NewArray([]stackitem.Item{
		stackitem.Make(int64(id)), stackitem.Make(caller.BytesLE()), stackitem.Make(url), stackitem.Make(filter),
	}))
	return stackitem.Null{}
}

// designatedOracleNodes returns the currently active oracle node set
// from RoleManagement, resolved at the pending block's height.
func (o *Oracle) designatedOracleNodes(ic *interop.Context) [][]byte {
	return o.Designate.designatedAt(ic, RoleOracle, ic.BlockHeight()+1)
}

// PendingRequest exposes a settled request's callback target so the
// engine's Application trigger can invoke CallbackContract.CallbackMethod
// with the response, after Finish removes the request record.
type PendingRequest struct {
	CallbackContract util.Uint160
	CallbackMethod   string
	OriginalTxID     util.Uint256
}

// Finish removes request id's record and raises the OracleResponse
// notification, returning the callback target for the engine to invoke
// (spec §4.3; dispatched from the blockchain's Application trigger when
// a transaction carries a matching OracleResponse attribute, not
// through ordinary CALL).
func (o *Oracle) Finish(ic *interop.Context, id uint32, code byte, result []byte) (*PendingRequest, error) {
	item, err := ic.DAO.GetStorageItem(o.ContractID, requestKey(id))
	if err != nil {
		return nil, errRequestMissing
	}
	req := decodeOracleRequest(item)
	_ = ic.DAO.DeleteStorageItem(o.ContractID, requestKey(id))

	ic.Notify(o.Hash, "OracleResponse", stackitem.NewArray([]stackitem.Item{
		stackitem.Make(int64(id)), stackitem.Make(req.OriginalTxID.BytesLE()),
		stackitem.Make(int64(code)), stackitem.Make(result),
	}))
	return &PendingRequest{
		CallbackContract: req.CallbackContract,
		CallbackMethod:   req.CallbackMethod,
		OriginalTxID:     req.OriginalTxID,
	}, nil
}

func requestKey(id uint32) []byte {
	return append([]byte{oracleRequestPfx}, byte(id>>24), byte(id>>16), byte(id>>8), byte(id))
}

func encodeOracleRequest(r *OracleRequest) []byte {
	var buf []byte
	buf = append(buf, r.OriginalTxID.BytesLE()...)
	gb := make([]byte, 8)
	v := uint64(r.GasForResponse)
	for i := 0; i < 8; i++ {
		gb[i] = byte(v >> (8 * i))
	}
	buf = append(buf, gb...)
	buf = appendLP(buf, []byte(r.URL))
	buf = appendLP(buf, []byte(r.Filter))
	buf = appendLP(buf, r.CallbackContract.BytesLE())
	buf = appendLP(buf, []byte(r.CallbackMethod))
	buf = appendLP(buf, r.UserData)
	return buf
}

func decodeOracleRequest(b []byte) *OracleRequest {
	r := &OracleRequest{}
	r.OriginalTxID, _ = util.Uint256DecodeBytesLE(b[:32])
	b = b[32:]
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	r.GasForResponse = int64(v)
	b = b[8:]
	var f []byte
	f, b = takeLP(b)
	r.URL = string(f)
	f, b = takeLP(b)
	r.Filter = string(f)
	f, b = takeLP(b)
	r.CallbackContract, _ = util.Uint160DecodeBytesLE(f)
	f, b = takeLP(b)
	r.CallbackMethod = string(f)
	f, _ = takeLP(b)
	r.UserData = f
	return r
}

func appendLP(buf, v []byte) []byte {
	n := len(v)
	buf = append(buf, byte(n), byte(n>>8))
	return append(buf, v...)
}

func takeLP(b []byte) ([]byte, []byte) {
	if len(b) < 2 {
		return nil, nil
	}
	n := int(b[0]) | int(b[1])<<8
	b = b[2:]
	if n > len(b) {
		return nil, nil
	}
	return b[:n], b[n:]
}
