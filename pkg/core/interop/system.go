package interop

import (
	"encoding/binary"
	"errors"

	"github.com/n3ledger/n3core/pkg/core/interop/interopnames"
	"github.com/n3ledger/n3core/pkg/core/state"
	"github.com/n3ledger/n3core/pkg/core/storage"
	"github.com/n3ledger/n3core/pkg/crypto/keys"
	"github.com/n3ledger/n3core/pkg/smartcontract/callflag"
	"github.com/n3ledger/n3core/pkg/util"
	"github.com/n3ledger/n3core/pkg/vm"
	"github.com/n3ledger/n3core/pkg/vm/stackitem"
	"github.com/twmb/murmur3"
)

var errInvalidArgument = errors.New("interop: invalid argument")

// storageContext is the host-side value wrapped by an InteropInterface
// item returned from System.Storage.GetContext, bounding subsequent
// Get/Put/Delete calls to one contract's storage cells.
type storageContext struct {
	id       int32
	readOnly bool
}

// iterator is the host-side value backing System.Iterator.Next/Value,
// walking a buffered slice of (key, value) pairs gathered eagerly by
// System.Storage.Find (a real streaming cursor is unnecessary at this
// scale).
type iterator struct {
	pairs []storage.KeyValue
	pos   int
}

func (it *iterator) next() bool {
	it.pos++
	return it.pos < len(it.pairs)
}

func (it *iterator) value() stackitem.Item {
	if it.pos < 0 || it.pos >= len(it.pairs) {
		return stackitem.Null{}
	}
	kv := it.pairs[it.pos]
	return stackitem.NewArray([]stackitem.Item{
		stackitem.Make(kv.Key),
		stackitem.Make(kv.Value),
	})
}

func currentScriptHash(v *vm.VM) util.Uint160 {
	h := v.Context().ScriptHash()
	u, _ := util.Uint160DecodeBytesLE(h[:])
	return u
}

var systemFunctions = []Function{
	{
		Name:  interopnames.SystemRuntimeGetTrigger,
		Price: 1 << 8,
		Func: func(ic *Context, v *vm.VM) error {
			return v.Estack().PushVal(int64(ic.Trigger))
		},
	},
	{
		Name:  interopnames.SystemRuntimeGetTime,
		Price: 1 << 8,
		Func: func(ic *Context, v *vm.VM) error {
			if ic.Block == nil {
				return v.Estack().PushVal(int64(0))
			}
			return v.Estack().PushVal(int64(ic.Block.Header.TimestampMS))
		},
	},
	{
		Name:  interopnames.SystemRuntimeGetNetwork,
		Price: 1 << 8,
		Func: func(ic *Context, v *vm.VM) error {
			return v.Estack().PushVal(int64(ic.Chain.Network()))
		},
	},
	{
		Name:  interopnames.SystemRuntimeGasLeft,
		Price: 1 << 4,
		Func: func(ic *Context, v *vm.VM) error {
			if v.GasLimit() < 0 {
				return v.Estack().PushVal(int64(-1))
			}
			return v.Estack().PushVal(v.GasLimit() - v.GasConsumed())
		},
	},
	{
		Name:  interopnames.SystemRuntimeGetExecutingScriptHash,
		Price: 1 << 4,
		Func: func(ic *Context, v *vm.VM) error {
			return v.Estack().PushVal(currentScriptHash(v).BytesLE())
		},
	},
	{
		Name:  interopnames.SystemRuntimePlatform,
		Price: 1 << 3,
		Func: func(ic *Context, v *vm.VM) error {
			return v.Estack().PushVal([]byte("NEO"))
		},
	},
	{
		Name:  interopnames.SystemRuntimeLog,
		Price: 1 << 15,
		Func: func(ic *Context, v *vm.VM) error {
			msg := v.Estack().PopBytes()
			if len(msg) > 1024 {
				return errInvalidArgument
			}
			return nil
		},
	},
	{
		Name:  interopnames.SystemRuntimeNotify,
		Price: 1 << 15,
		Func: func(ic *Context, v *vm.VM) error {
			args := v.Estack().Pop()
			name := v.Estack().PopBytes()
			arr, ok := args.(*stackitem.Array)
			if !ok {
				return errInvalidArgument
			}
			ic.Notify(currentScriptHash(v), string(name), arr)
			return nil
		},
	},
	{
		Name:          interopnames.SystemRuntimeBurnGas,
		Price:         1 << 4,
		RequiredFlags: callflag.None,
		Func: func(ic *Context, v *vm.VM) error {
			n := v.Estack().PopBigInt()
			if n.Sign() < 0 {
				return errInvalidArgument
			}
			return v.AddGas(n.Int64())
		},
	},
	{
		Name:          interopnames.SystemRuntimeCheckWitness,
		Price:         1 << 10,
		RequiredFlags: callflag.None,
		Func: func(ic *Context, v *vm.VM) error {
			hashOrKey := v.Estack().PopBytes()
			ok, err := checkWitness(ic, hashOrKey)
			if err != nil {
				return err
			}
			return v.Estack().PushVal(ok)
		},
	},
	{
		Name:          interopnames.SystemCryptoCheckSig,
		Price:         1 << 15,
		RequiredFlags: callflag.None,
		Func: func(ic *Context, v *vm.VM) error {
			sig := v.Estack().PopBytes()
			pub := v.Estack().PopBytes()
			ok, err := checkSig(ic, pub, sig)
			if err != nil {
				return err
			}
			return v.Estack().PushVal(ok)
		},
	},
	{
		Name:          interopnames.SystemCryptoCheckMultisig,
		Price:         1 << 19,
		RequiredFlags: callflag.None,
		Func: func(ic *Context, v *vm.VM) error {
			sigs, err := popByteArrays(v)
			if err != nil {
				return err
			}
			pubs, err := popByteArrays(v)
			if err != nil {
				return err
			}
			ok, err := checkMultisig(ic, pubs, sigs)
			if err != nil {
				return err
			}
			return v.Estack().PushVal(ok)
		},
	},
	{
		Name:          interopnames.SystemCryptoMurmur32,
		Price:         1 << 13,
		RequiredFlags: callflag.None,
		Func: func(ic *Context, v *vm.VM) error {
			seed := v.Estack().PopBigInt()
			data := v.Estack().PopBytes()
			if !seed.IsUint64() || seed.Uint64() > uint64(^uint32(0)) {
				return errInvalidArgument
			}
			h := murmur3.New32WithSeed(uint32(seed.Uint64()))
			h.Write(data)
			out := make([]byte, 4)
			binary.LittleEndian.PutUint32(out, h.Sum32())
			return v.Estack().PushVal(out)
		},
	},
	{
		Name:          interopnames.SystemStorageGetContext,
		Price:         1 << 4,
		RequiredFlags: callflag.ReadStates,
		Func: func(ic *Context, v *vm.VM) error {
			c, err := ic.currentContractID(v)
			if err != nil {
				return err
			}
			return v.Estack().Push(stackitem.NewInterop(&storageContext{id: c}))
		},
	},
	{
		Name:          interopnames.SystemStorageGetReadOnlyContext,
		Price:         1 << 4,
		RequiredFlags: callflag.ReadStates,
		Func: func(ic *Context, v *vm.VM) error {
			c, err := ic.currentContractID(v)
			if err != nil {
				return err
			}
			return v.Estack().Push(stackitem.NewInterop(&storageContext{id: c, readOnly: true}))
		},
	},
	{
		Name:          interopnames.SystemStorageGet,
		Price:         1 << 15,
		RequiredFlags: callflag.ReadStates,
		Func: func(ic *Context, v *vm.VM) error {
			sc, key, err := popStorageContextAndKey(v)
			if err != nil {
				return err
			}
			item, err := ic.DAO.GetStorageItem(sc.id, key)
			if err != nil {
				return v.Estack().Push(stackitem.Null{})
			}
			return v.Estack().PushVal([]byte(item))
		},
	},
	{
		Name:          interopnames.SystemStoragePut,
		Price:         1 << 15,
		RequiredFlags: callflag.WriteStates,
		Func: func(ic *Context, v *vm.VM) error {
			value := v.Estack().PopBytes()
			sc, key, err := popStorageContextAndKey(v)
			if err != nil {
				return err
			}
			if sc.readOnly {
				return errInvalidArgument
			}
			if len(key) > 64 || len(value) > 65535 {
				return errInvalidArgument
			}
			return ic.DAO.PutStorageItem(sc.id, key, state.StorageItem(value))
		},
	},
	{
		Name:          interopnames.SystemStorageDelete,
		Price:         1 << 15,
		RequiredFlags: callflag.WriteStates,
		Func: func(ic *Context, v *vm.VM) error {
			sc, key, err := popStorageContextAndKey(v)
			if err != nil {
				return err
			}
			if sc.readOnly {
				return errInvalidArgument
			}
			return ic.DAO.DeleteStorageItem(sc.id, key)
		},
	},
	{
		Name:          interopnames.SystemStorageFind,
		Price:         1 << 15,
		RequiredFlags: callflag.ReadStates,
		Func: func(ic *Context, v *vm.VM) error {
			prefix := v.Estack().PopBytes()
			scItem := v.Estack().Pop()
			interop, ok := scItem.(*stackitem.Interop)
			if !ok {
				return errInvalidArgument
			}
			sc, ok := interop.Value().(*storageContext)
			if !ok {
				return errInvalidArgument
			}
			it := &iterator{pos: -1}
			err := ic.DAO.SeekStorage(sc.id, prefix, func(k, val []byte) bool {
				kc := make([]byte, len(k))
				copy(kc, k)
				vc := make([]byte, len(val))
				copy(vc, val)
				it.pairs = append(it.pairs, storage.KeyValue{Key: kc, Value: vc})
				return true
			})
			if err != nil {
				return err
			}
			return v.Estack().Push(stackitem.NewInterop(it))
		},
	},
	{
		Name:  interopnames.SystemIteratorNext,
		Price: 1 << 15,
		Func: func(ic *Context, v *vm.VM) error {
			item := v.Estack().Pop()
			interop, ok := item.(*stackitem.Interop)
			if !ok {
				return errInvalidArgument
			}
			it, ok := interop.Value().(*iterator)
			if !ok {
				return errInvalidArgument
			}
			return v.Estack().PushVal(it.next())
		},
	},
	{
		Name:  interopnames.SystemIteratorValue,
		Price: 1 << 4,
		Func: func(ic *Context, v *vm.VM) error {
			item := v.Estack().Pop()
			interop, ok := item.(*stackitem.Interop)
			if !ok {
				return errInvalidArgument
			}
			it, ok := interop.Value().(*iterator)
			if !ok {
				return errInvalidArgument
			}
			return v.Estack().Push(it.value())
		},
	},
}

func popStorageContextAndKey(v *vm.VM) (*storageContext, []byte, error) {
	key := v.Estack().PopBytes()
	item := v.Estack().Pop()
	interop, ok := item.(*stackitem.Interop)
	if !ok {
		return nil, nil, errInvalidArgument
	}
	sc, ok := interop.Value().(*storageContext)
	if !ok {
		return nil, nil, errInvalidArgument
	}
	return sc, key, nil
}

// currentContractID resolves the executing script's deployed contract
// ID, required to scope storage access.
func (ic *Context) currentContractID(v *vm.VM) (int32, error) {
	c, err := ic.DAO.GetContract(currentScriptHash(v))
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

// signedHash returns the hash a witness's verification script must
// authenticate: the transaction hash for a transaction witness, or the
// block header hash when verifying a header witness (no transaction in
// context, e.g. the consensus committee's block signature).
func signedHash(ic *Context) (util.Uint256, bool) {
	if ic.Tx != nil {
		return ic.Tx.Hash(), true
	}
	if ic.Block != nil {
		return ic.Block.Header.Hash(), true
	}
	return util.Uint256{}, false
}

// popByteArrays pops a compound Array off v's stack and converts each
// element to bytes, the shape System.Crypto.CheckMultisig receives its
// public key and signature lists in.
func popByteArrays(v *vm.VM) ([][]byte, error) {
	arr, ok := v.Estack().Pop().(*stackitem.Array)
	if !ok {
		return nil, errInvalidArgument
	}
	items := arr.Value().([]stackitem.Item)
	out := make([][]byte, len(items))
	for i, it := range items {
		b, err := it.TryBytes()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// checkMultisig reports whether every one of the given signatures
// verifies against the container's signed hash, each against a distinct
// one of pubs in order (the standard m-of-n multisig rule: sigs must
// appear in the same relative order as the pubkeys they match). More
// signatures than keys, or none at all, is an error.
func checkMultisig(ic *Context, pubs, sigs [][]byte) (bool, error) {
	msg, ok := signedHash(ic)
	if !ok {
		return false, nil
	}
	if len(sigs) == 0 || len(sigs) > len(pubs) {
		return false, errInvalidArgument
	}
	si := 0
	for pi := 0; si < len(sigs) && pi < len(pubs); pi++ {
		key, err := keys.DecodeBytes(pubs[pi], keys.Secp256r1)
		if err != nil {
			return false, err
		}
		if key.Verify(msg.BytesLE(), sigs[si]) {
			si++
		}
	}
	return si == len(sigs), nil
}

// checkWitness reports whether hashOrKey (a Uint160 script hash or a
// 33-byte compressed public key) is one of the transaction's signer
// accounts. Signer scopes are not evaluated: a matching signer passes
// whatever its scope, and without a transaction the result is false.
func checkWitness(ic *Context, hashOrKey []byte) (bool, error) {
	var account util.Uint160
	switch len(hashOrKey) {
	case 20:
		var err error
		account, err = util.Uint160DecodeBytesLE(hashOrKey)
		if err != nil {
			return false, err
		}
	case 33:
		pub, err := keys.DecodeBytes(hashOrKey, keys.Secp256r1)
		if err != nil {
			return false, err
		}
		account = pub.ScriptHash()
	default:
		return false, errInvalidArgument
	}
	if ic.Tx == nil {
		return false, nil
	}
	for _, signer := range ic.Tx.Signers {
		if signer.Account.Equals(account) {
			return true, nil
		}
	}
	return false, nil
}

// checkSig verifies a single secp256r1 signature over the current
// container's signed data.
func checkSig(ic *Context, pub, sig []byte) (bool, error) {
	key, err := keys.DecodeBytes(pub, keys.Secp256r1)
	if err != nil {
		return false, nil
	}
	msg, ok := signedHash(ic)
	if !ok {
		return false, nil
	}
	return key.Verify(msg.BytesLE(), sig), nil
}
