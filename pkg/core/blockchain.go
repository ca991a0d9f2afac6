// Package core implements the ledger: block/transaction validation, the
// OnPersist/Application/PostPersist persistence pipeline that drives the
// native contracts and the NeoVM application engine, and the durable
// chain state every other subsystem (mempool, consensus, P2P, RPC)
// observes through (spec §4.4 "Ledger & Persistence").
package core

import (
	"errors"
	"math/big"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/n3ledger/n3core/pkg/core/block"
	"github.com/n3ledger/n3core/pkg/core/dao"
	"github.com/n3ledger/n3core/pkg/core/interop"
	"github.com/n3ledger/n3core/pkg/core/native"
	"github.com/n3ledger/n3core/pkg/core/state"
	"github.com/n3ledger/n3core/pkg/core/storage"
	"github.com/n3ledger/n3core/pkg/core/transaction"
	"github.com/n3ledger/n3core/pkg/crypto/keys"
	"github.com/n3ledger/n3core/pkg/smartcontract/trigger"
	"github.com/n3ledger/n3core/pkg/util"
	"github.com/n3ledger/n3core/pkg/vm"
	"github.com/n3ledger/n3core/pkg/vm/stackitem"
)

// execLogCapacity bounds the in-memory application-log cache (spec §4.2
// "Notifications", §7 "structured results carrying {state, gas_consumed,
// stack, exception, notifications}"): recent enough for a CLI/RPC
// collector to look a just-relayed transaction's outcome up, without
// growing unbounded the way a full on-disk ApplicationLog index would.
const execLogCapacity = 10000

// Sentinel validation errors, checked with errors.Is by callers (tests,
// P2P block-relay handling).
var (
	ErrHdrHashMismatch      = errors.New("core: header hash does not match its own prev-hash linkage")
	ErrHdrIndexMismatch     = errors.New("core: header index is not one past the current tip")
	ErrHdrInvalidTimestamp  = errors.New("core: header timestamp does not exceed its predecessor's")
	ErrWitnessInvalid       = errors.New("core: witness verification script did not return true")
	ErrWitnessCountMismatch = errors.New("core: transaction witness count does not match signer count")
	ErrAlreadyExists        = errors.New("core: block already present")
)

// maxVerificationGas bounds how much gas a single witness's
// invocation+verification script pair may burn, matching the reference
// protocol's free verification allowance (0.2 GAS, in 10^-8 units).
const maxVerificationGas = 20_000_000

// Blockchain is the concrete Blockchainer: single-writer, guarded by
// lock, backed by a dao.Simple typed view over a storage.Store.
type Blockchain struct {
	lock sync.RWMutex

	dao      *dao.Simple
	store    storage.Store
	natives  *native.Set
	registry *interop.Registry

	network              uint32
	maxTraceableBlocks   uint32
	millisecondsPerBlock uint32
	p2pSigExtensions     bool

	// blockHeight/currentBlockHash track the committed tip. They're guarded
	// by tipMtx rather than lock: lock only serializes AddBlock callers
	// (the single-logical-writer invariant), while native-contract
	// methods invoked mid-persist (e.g. LedgerContract.currentIndex) still
	// need to read the tip without self-deadlocking against the writer
	// that is, at that moment, in the middle of updating it.
	tipMtx           sync.RWMutex
	blockHeight      uint32
	currentBlockHash util.Uint256

	subsMtx     sync.RWMutex
	subscribers map[chan<- *block.Block]struct{}

	execLog *lru.Cache // util.Uint256 (tx hash) -> *state.AppExecResult
}

// Config carries the chain-wide tuning parameters a Blockchain is
// constructed with (spec §4.4/§6, the subset SPEC_FULL's ambient
// "config" component doesn't need a whole file of its own for).
type Config struct {
	Network              uint32
	MaxTraceableBlocks   uint32
	MillisecondsPerBlock uint32
	P2PSigExtensions     bool

	// StandbyCommittee, CommitteeSize, and ValidatorsCount seed
	// native.NEO before genesis persists (spec §4.3 NeoToken committee
	// election; zero CommitteeSize/ValidatorsCount keep NEO's own
	// defaults). InitialGASSupply seeds native.GAS (spec §4.3 GasToken,
	// scenario S1 "Genesis").
	StandbyCommittee keys.PublicKeys
	CommitteeSize    int
	ValidatorsCount  int
	InitialGASSupply int64
}

// NewBlockchain wraps store, running genesis persistence the first time
// it sees an empty store (no PrefixCurrentBlock entry yet).
func NewBlockchain(store storage.Store, cfg Config) (*Blockchain, error) {
	execLog, _ := lru.New(execLogCapacity)
	bc := &Blockchain{
		dao:                  dao.NewSimple(store),
		store:                store,
		natives:              native.NewSet(),
		registry:             interop.NewRegistry(),
		network:              cfg.Network,
		maxTraceableBlocks:   cfg.MaxTraceableBlocks,
		millisecondsPerBlock: cfg.MillisecondsPerBlock,
		p2pSigExtensions:     cfg.P2PSigExtensions,
		subscribers:          make(map[chan<- *block.Block]struct{}),
		execLog:              execLog,
	}

	if cfg.CommitteeSize > 0 {
		bc.natives.NEO.CommitteeSize = cfg.CommitteeSize
	}
	if cfg.ValidatorsCount > 0 {
		bc.natives.NEO.ValidatorsCount = cfg.ValidatorsCount
	}
	bc.natives.NEO.StandbyKeys = cfg.StandbyCommittee
	if cfg.InitialGASSupply > 0 {
		bc.natives.GAS.InitialSupply = big.NewInt(cfg.InitialGASSupply)
	}

	if h, err := bc.dao.GetCurrentBlockHash(); err == nil {
		bc.currentBlockHash = h
		b, err := bc.dao.GetBlock(h)
		if err != nil {
			return nil, err
		}
		bc.blockHeight = b.Index()
		return bc, nil
	}

	genesis := &block.Block{Header: block.Header{Index: 0}}
	if err := bc.persist(genesis, true); err != nil {
		return nil, err
	}
	return bc, nil
}

// BlockHeight implements interop.Ledger/chaindump.Ledger/mempool.Feer.
func (bc *Blockchain) BlockHeight() uint32 {
	bc.tipMtx.RLock()
	defer bc.tipMtx.RUnlock()
	return bc.blockHeight
}

// HeaderHeight always equals BlockHeight: this engine never tracks
// headers ahead of the blocks they belong to (no AddHeaders/header-first
// sync), so the two heights can't diverge.
func (bc *Blockchain) HeaderHeight() uint32 { return bc.BlockHeight() }

// CurrentBlockHash implements interop.Ledger.
func (bc *Blockchain) CurrentBlockHash() util.Uint256 {
	bc.tipMtx.RLock()
	defer bc.tipMtx.RUnlock()
	return bc.currentBlockHash
}

// CurrentHeaderHash mirrors CurrentBlockHash for the same reason
// HeaderHeight mirrors BlockHeight.
func (bc *Blockchain) CurrentHeaderHash() util.Uint256 { return bc.CurrentBlockHash() }

// GetHeaderHash implements interop.Ledger: index->hash, or the zero hash
// if index is out of range.
func (bc *Blockchain) GetHeaderHash(index uint32) util.Uint256 {
	h, err := bc.dao.GetHeaderHash(index)
	if err != nil {
		return util.Uint256{}
	}
	return h
}

// MaxTraceableBlocks implements interop.Ledger.
func (bc *Blockchain) MaxTraceableBlocks() uint32 { return bc.maxTraceableBlocks }

// Network implements interop.Ledger.
func (bc *Blockchain) Network() uint32 { return bc.network }

// P2PSigExtensionsEnabled implements mempool.Feer.
func (bc *Blockchain) P2PSigExtensionsEnabled() bool { return bc.p2pSigExtensions }

// FeePerByte implements mempool.Feer, delegating to PolicyContract.
func (bc *Blockchain) FeePerByte() int64 { return bc.natives.Policy.FeePerByte(bc.dao) }

// GetBaseExecFee implements mempool.Feer, delegating to PolicyContract.
func (bc *Blockchain) GetBaseExecFee() int64 { return bc.natives.Policy.ExecFeeFactor(bc.dao) }

// GetUtilityTokenBalance implements mempool.Feer, delegating to GAS.
func (bc *Blockchain) GetUtilityTokenBalance(account util.Uint160) *big.Int {
	ic := interop.NewContext(trigger.Verification, bc, bc.dao, bc.natives.Contracts(), nil, nil)
	return bc.natives.GAS.GetBalance(ic, account)
}

// GetGoverningTokenBalance returns account's NEO balance, the "get_balance"
// CLI-facing operation's NEO half (spec §6).
func (bc *Blockchain) GetGoverningTokenBalance(account util.Uint160) *big.Int {
	ic := interop.NewContext(trigger.Verification, bc, bc.dao, bc.natives.Contracts(), nil, nil)
	return bc.natives.NEO.GetBalance(ic, account)
}

// GetValidators returns the public keys due to sign the next block and
// the m-of-n threshold their committee multisig account requires,
// delegating to NEOToken. The consensus service calls this once per
// view change to know who the current primary/backups are.
func (bc *Blockchain) GetValidators() (keys.PublicKeys, int) {
	return bc.natives.NEO.GetNextBlockValidators(bc.dao)
}

// GetBlock resolves a block by index, implementing chaindump.Ledger.
func (bc *Blockchain) GetBlock(index uint32) (*block.Block, error) {
	h, err := bc.dao.GetHeaderHash(index)
	if err != nil {
		return nil, err
	}
	return bc.dao.GetBlock(h)
}

// GetBlockByHash resolves a block by its hash, the lookup P2P inventory
// and RPC need.
func (bc *Blockchain) GetBlockByHash(h util.Uint256) (*block.Block, error) {
	return bc.dao.GetBlock(h)
}

// HasBlock reports whether h is already a committed block.
func (bc *Blockchain) HasBlock(h util.Uint256) bool {
	_, err := bc.dao.GetBlock(h)
	return err == nil
}

// HasTransaction reports whether h is already a committed transaction.
func (bc *Blockchain) HasTransaction(h util.Uint256) bool {
	_, _, err := bc.dao.GetTransaction(h)
	return err == nil
}

// GetTransaction resolves a committed transaction by hash along with the
// index of the block that carries it, the "show_transaction" CLI-facing
// operation of spec §6.
func (bc *Blockchain) GetTransaction(h util.Uint256) (*transaction.Transaction, uint32, error) {
	tx, blockHash, err := bc.dao.GetTransaction(h)
	if err != nil {
		return nil, 0, err
	}
	b, err := bc.dao.GetBlock(blockHash)
	if err != nil {
		return tx, 0, nil
	}
	return tx, b.Index(), nil
}

// Subscribe registers ch to receive every block this Blockchain commits,
// mirroring mempool's subscription fan-out style (spec expansion:
// downstream consumers — RPC notifications, consensus's own ledger
// watcher — need to react to new blocks without polling).
func (bc *Blockchain) Subscribe(ch chan<- *block.Block) {
	bc.subsMtx.Lock()
	defer bc.subsMtx.Unlock()
	bc.subscribers[ch] = struct{}{}
}

// Unsubscribe removes ch from the subscriber set.
func (bc *Blockchain) Unsubscribe(ch chan<- *block.Block) {
	bc.subsMtx.Lock()
	defer bc.subsMtx.Unlock()
	delete(bc.subscribers, ch)
}

func (bc *Blockchain) notifyBlock(b *block.Block) {
	bc.subsMtx.RLock()
	defer bc.subsMtx.RUnlock()
	for ch := range bc.subscribers {
		ch <- b
	}
}

// AddBlock validates and persists b as the new chain tip. It is the
// entry point for both P2P-relayed blocks and chaindump.Restore.
func (bc *Blockchain) AddBlock(b *block.Block) error {
	bc.lock.Lock()
	defer bc.lock.Unlock()

	if bc.HasBlock(b.Hash()) {
		return ErrAlreadyExists
	}
	if b.Index() != 0 {
		prev, err := bc.dao.GetBlock(bc.CurrentBlockHash())
		if err != nil {
			return err
		}
		if err := verifyHeader(&b.Header, &prev.Header); err != nil {
			return err
		}
		if err := bc.verifyBlockWitness(b, &prev.Header); err != nil {
			return err
		}
	}
	if err := b.VerifyMerkleRoot(); err != nil {
		return err
	}
	for _, tx := range b.Transactions {
		if len(tx.Witnesses) != len(tx.Signers) {
			return ErrWitnessCountMismatch
		}
		if err := bc.verifyTransactionWitnesses(tx, b); err != nil {
			return err
		}
	}

	if err := bc.persist(b, false); err != nil {
		return err
	}
	bc.notifyBlock(b)
	return nil
}

// verifyHeader checks hdr's linkage to prev: matching PrevHash, a index
// exactly one past prev's, and a strictly later timestamp.
func verifyHeader(hdr, prev *block.Header) error {
	if hdr.PrevHash != prev.Hash() {
		return ErrHdrHashMismatch
	}
	if hdr.Index != prev.Index+1 {
		return ErrHdrIndexMismatch
	}
	if hdr.TimestampMS <= prev.TimestampMS {
		return ErrHdrInvalidTimestamp
	}
	return nil
}

// verifyBlockWitness checks the header's single witness against the
// script hash the previous block's consensus committee published
// (prev.NextConsensus), the real protocol's header-authentication rule.
func (bc *Blockchain) verifyBlockWitness(b *block.Block, prev *block.Header) error {
	ic := interop.NewContext(trigger.Verification, bc, bc.dao, bc.natives.Contracts(), b, nil)
	ok, err := bc.runWitness(ic, &b.Header.Witness)
	if err != nil {
		return err
	}
	if !ok || b.Header.Witness.ScriptHash() != prev.NextConsensus {
		return ErrWitnessInvalid
	}
	return nil
}

// verifyTransactionWitnesses checks every signer/witness pair of tx.
func (bc *Blockchain) verifyTransactionWitnesses(tx *transaction.Transaction, b *block.Block) error {
	ic := interop.NewContext(trigger.Verification, bc, bc.dao, bc.natives.Contracts(), b, tx)
	ic.Container = tx
	for i, signer := range tx.Signers {
		w := &tx.Witnesses[i]
		if len(w.VerificationScript) > 0 && w.ScriptHash() != signer.Account {
			return ErrWitnessInvalid
		}
		ok, err := bc.runWitness(ic, w)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWitnessInvalid
		}
	}
	return nil
}

// runWitness executes invocation then verification script in one VM (so
// items the invocation script pushes are visible to the verification
// script that consumes them), returning the top boolean the
// verification script leaves behind. A witness with no verification
// script (a contract-based signer whose account IS a deployed contract)
// is out of scope here and always fails closed.
func (bc *Blockchain) runWitness(ic *interop.Context, w *transaction.Witness) (bool, error) {
	if len(w.VerificationScript) == 0 {
		return false, nil
	}
	v := vm.New()
	v.SetGasLimit(maxVerificationGas)
	v.SyscallHandler = bc.syscallHandler(ic)
	ic.VM = v

	scriptHash := [20]byte(w.ScriptHash())
	if err := v.LoadWithHash(w.VerificationScript, scriptHash); err != nil {
		return false, err
	}
	if len(w.InvocationScript) > 0 {
		if err := v.LoadWithHash(w.InvocationScript, scriptHash); err != nil {
			return false, err
		}
	}
	if err := v.Run(); err != nil {
		return false, nil
	}
	if v.Estack().Len() == 0 {
		return false, nil
	}
	return v.Estack().Pop().Bool(), nil
}

func (bc *Blockchain) syscallHandler(ic *interop.Context) vm.SyscallHandler {
	return func(vv *vm.VM, id uint32) error {
		fn := bc.registry.Lookup(id)
		if fn == nil {
			return vm.ErrUnknownSyscall
		}
		if err := vv.AddGas(fn.Price); err != nil {
			return err
		}
		return fn.Func(ic, vv)
	}
}

// persist runs the OnPersist/Application/PostPersist pipeline for b and
// commits it as the new tip. genesis skips fee collection and script
// execution (the genesis block carries no transactions) and additionally
// runs every native contract's one-time Initialize.
func (bc *Blockchain) persist(b *block.Block, genesis bool) error {
	onPersistIC := interop.NewContext(trigger.OnPersist, bc, bc.dao, bc.natives.Contracts(), b, nil)
	onPersistIC.CallNative = bc.callNative(onPersistIC)
	if genesis {
		if err := bc.natives.InitializeAll(onPersistIC); err != nil {
			return err
		}
	}
	if err := bc.natives.OnPersistAll(onPersistIC); err != nil {
		return err
	}

	if err := bc.dao.PutBlock(b); err != nil {
		return err
	}
	if err := bc.dao.PutHeaderHash(b.Index(), b.Hash()); err != nil {
		return err
	}

	for _, tx := range b.Transactions {
		if err := bc.applyTransaction(tx, b); err != nil {
			return err
		}
	}

	postPersistIC := interop.NewContext(trigger.PostPersist, bc, bc.dao, bc.natives.Contracts(), b, nil)
	postPersistIC.CallNative = bc.callNative(postPersistIC)
	if err := bc.natives.PostPersistAll(postPersistIC); err != nil {
		return err
	}

	if err := bc.dao.PutCurrentBlockHash(b.Hash()); err != nil {
		return err
	}
	if err := bc.dao.Persist(); err != nil {
		return err
	}

	bc.tipMtx.Lock()
	bc.blockHeight = b.Index()
	bc.currentBlockHash = b.Hash()
	bc.tipMtx.Unlock()
	return nil
}

// applyTransaction collects tx's declared fee and runs its entry script
// under the Application trigger. A script Fault does not roll back the
// fee already collected nor abort the block — only the tx's own state
// changes made after the point of failure are lost, matching the
// reference engine's "fees are always spent" rule.
func (bc *Blockchain) applyTransaction(tx *transaction.Transaction, b *block.Block) error {
	ic := interop.NewContext(trigger.Application, bc, bc.dao, bc.natives.Contracts(), b, tx)
	ic.Container = tx
	ic.CallNative = bc.callNative(ic)

	total := big.NewInt(tx.SystemFee + tx.NetworkFee)
	if err := bc.natives.GAS.Burn(ic, tx.Sender(), total); err != nil {
		return err
	}

	ic.VM = vm.New()
	ic.VM.SetGasLimit(tx.SystemFee)
	ic.VM.SyscallHandler = bc.syscallHandler(ic)
	if err := ic.VM.LoadWithHash(tx.Script, [20]byte(tx.Sender())); err != nil {
		return err
	}
	_ = ic.VM.Run() // a faulted script still keeps its collected fee

	bc.recordExecResult(tx.Hash(), ic)
	return nil
}

// recordExecResult caches ic's outcome (spec §4.2 "Notifications", §7
// structured results) under containerHash, the value ShowTransaction and
// any RPC collector read back through GetAppExecResult.
func (bc *Blockchain) recordExecResult(containerHash util.Uint256, ic *interop.Context) {
	if bc.execLog == nil {
		return
	}
	result := &state.AppExecResult{
		TxHash:        containerHash,
		Trigger:       ic.Trigger,
		VMState:       ic.VM.State().String(),
		GasConsumed:   ic.VM.GasConsumed(),
		Notifications: ic.Notifications,
	}
	if ic.VM.HasHalted() {
		result.Stack = ic.VM.Estack().Items()
	}
	if exc := ic.VM.UncaughtException(); exc != nil {
		result.FaultException = exc.String()
	}
	bc.execLog.Add(containerHash, result)
}

// GetAppExecResult returns the cached Application-trigger outcome of the
// transaction identified by h, if still held in the in-memory log.
func (bc *Blockchain) GetAppExecResult(h util.Uint256) (*state.AppExecResult, bool) {
	if bc.execLog == nil {
		return nil, false
	}
	v, ok := bc.execLog.Get(h)
	if !ok {
		return nil, false
	}
	return v.(*state.AppExecResult), true
}

// callNative binds ic.CallNative to this chain's native contract set.
func (bc *Blockchain) callNative(ic *interop.Context) func(util.Uint160, string, []stackitem.Item) (stackitem.Item, error) {
	return func(h util.Uint160, method string, args []stackitem.Item) (stackitem.Item, error) {
		return bc.natives.Call(ic, h, method, args)
	}
}
