// Package native implements the in-process native contracts (spec
// §4.3): ContractManagement, LedgerContract, NeoToken, GasToken,
// PolicyContract, RoleManagement, OracleContract, Notary. Each is
// addressed by a well-known hash and a fixed negative contract ID, and
// is invoked through normal CALL despite dispatching straight to Go
// code rather than interpreted bytecode.
package native

import (
	"math/big"

	"github.com/n3ledger/n3core/pkg/core/dao"
	"github.com/n3ledger/n3core/pkg/core/interop"
	"github.com/n3ledger/n3core/pkg/core/state"
	"github.com/n3ledger/n3core/pkg/smartcontract/callflag"
	"github.com/n3ledger/n3core/pkg/smartcontract/manifest"
	"github.com/n3ledger/n3core/pkg/util"
	"github.com/n3ledger/n3core/pkg/vm/stackitem"
)

func newDescriptor(name, returnType string, params ...manifest.Parameter) manifest.Method {
	return manifest.Method{Name: name, Parameters: params, ReturnType: returnType}
}

func newParam(name, typ string) manifest.Parameter {
	return manifest.Parameter{Name: name, Type: typ}
}

func newMethodAndPrice(f interop.Method, price int64, flags callflag.CallFlag) interop.MethodAndPrice {
	return interop.MethodAndPrice{Func: f, Price: price, RequiredFlags: flags}
}

func getIntWithKey(id int32, d *dao.Simple, key []byte) int64 {
	item, err := d.GetStorageItem(id, key)
	if err != nil {
		return 0
	}
	return new(big.Int).SetBytes(reverseBytes(append([]byte{}, item...))).Int64()
}

func setIntWithKey(id int32, d *dao.Simple, key []byte, value int64) {
	b := big.NewInt(value).Bytes()
	reverseBytes(b)
	_ = d.PutStorageItem(id, key, state.StorageItem(b))
}

func reverseBytes(b []byte) []byte {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return b
}

func toUint32(item stackitem.Item) uint32 {
	v, err := item.TryInteger()
	if err != nil {
		panic(err)
	}
	return uint32(v.Uint64())
}

func toBigInt(item stackitem.Item) *big.Int {
	v, err := item.TryInteger()
	if err != nil {
		panic(err)
	}
	return v
}

func toUint160(item stackitem.Item) util.Uint160 {
	b, err := item.TryBytes()
	if err != nil {
		panic(err)
	}
	h, err := util.Uint160DecodeBytesLE(b)
	if err != nil {
		panic(err)
	}
	return h
}

func toBytes(item stackitem.Item) []byte {
	b, err := item.TryBytes()
	if err != nil {
		panic(err)
	}
	return b
}
