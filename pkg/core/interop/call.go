package interop

import (
	"errors"

	"github.com/n3ledger/n3core/pkg/core/interop/interopnames"
	"github.com/n3ledger/n3core/pkg/smartcontract/callflag"
	"github.com/n3ledger/n3core/pkg/util"
	"github.com/n3ledger/n3core/pkg/vm"
	"github.com/n3ledger/n3core/pkg/vm/stackitem"
)

var errNativeOnly = errors.New("interop: cross-contract calls are only supported against native contracts")

// contractFunctions holds System.Contract.* interops. Dispatch is routed
// through Context.CallNative rather than a general cross-contract VM
// call: this engine exercises native-contract interaction (NEO/GAS/
// Policy/Oracle/...), which is what System.Contract.Call is used for
// throughout this codebase, and doesn't implement the NEF method-token /
// argument-marshalling convention a deployed-contract-to-deployed-
// contract call would need.
var contractFunctions = []Function{
	{
		Name:          interopnames.SystemContractCall,
		Price:         1 << 15,
		RequiredFlags: callflag.ReadStates | callflag.AllowCall,
		Func:          callContract,
	},
	{
		Name:  interopnames.SystemContractCallNative,
		Price: 0,
		Func: func(ic *Context, v *vm.VM) error {
			// Version byte pushed ahead of a native call; this engine has
			// no per-hardfork native ABI versions to branch on.
			v.Estack().PopBigInt()
			return nil
		},
	},
	{
		Name:  interopnames.SystemContractGetCallFlags,
		Price: 1 << 10,
		Func: func(ic *Context, v *vm.VM) error {
			return v.Estack().PushVal(int64(v.Context().CallFlags()))
		},
	},
}

func callContract(ic *Context, v *vm.VM) error {
	_ = callflag.CallFlag(v.Estack().PopBigInt().Int64())
	argsItem := v.Estack().Pop()
	args, ok := argsItem.(*stackitem.Array)
	if !ok {
		return errInvalidArgument
	}
	method := string(v.Estack().PopBytes())
	hashBytes := v.Estack().PopBytes()
	h, err := util.Uint160DecodeBytesLE(hashBytes)
	if err != nil {
		return err
	}
	if ic.CallNative == nil {
		return errNativeOnly
	}
	res, err := ic.CallNative(h, method, args.Value().([]stackitem.Item))
	if err != nil {
		return err
	}
	return v.Estack().Push(res)
}
