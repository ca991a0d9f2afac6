package native

import (
	"errors"
	"math/big"

	"github.com/n3ledger/n3core/pkg/core/interop"
	"github.com/n3ledger/n3core/pkg/core/native/nativenames"
	"github.com/n3ledger/n3core/pkg/core/state"
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/smartcontract/callflag"
	"github.com/n3ledger/n3core/pkg/util"
	"github.com/n3ledger/n3core/pkg/vm/stackitem"
)

const gasContractID = -6

var errInsufficientGasBalance = errors.New("gas: insufficient balance")

// GasDecimals matches the reference engine's GAS precision: balances
// are denominated in units of 10^-8 GAS.
const GasDecimals = 8

// GAS is the NeoToken native's companion: GAS units are minted at
// genesis, as per-block fee rewards, by NEO's holder GAS distribution and
// by Notary withdrawals, and destroyed by Burn (spec §4.3 invariant: "sum
// of GAS balances equals minted minus burned").
type GAS struct {
	interop.ContractMD
	NEO *NEO

	// InitialSupply, if set, is minted to the committee's multisig
	// account at genesis ("initial_gas_distribution").
	InitialSupply *big.Int
}

var _ interop.Contract = (*GAS)(nil)

func newGAS() *GAS {
	g := &GAS{ContractMD: *interop.NewContractMD(nativenames.Gas, gasContractID)}

	g.AddMethod(newMethodAndPrice(g.symbol, 1<<10, callflag.None),
		newDescriptor("symbol", "String"))
	g.AddMethod(newMethodAndPrice(g.decimals, 1<<10, callflag.None),
		newDescriptor("decimals", "Integer"))
	g.AddMethod(newMethodAndPrice(g.totalSupply, 1<<15, callflag.ReadStates),
		newDescriptor("totalSupply", "Integer"))
	g.AddMethod(newMethodAndPrice(g.balanceOf, 1<<15, callflag.ReadStates),
		newDescriptor("balanceOf", "Integer", newParam("account", "Hash160")))
	g.AddMethod(newMethodAndPrice(g.transfer, 1<<17, callflag.States|callflag.AllowNotify),
		newDescriptor("transfer", "Boolean",
			newParam("from", "Hash160"), newParam("to", "Hash160"), newParam("amount", "Integer"), newParam("data", "Any")))
	g.AddEvent("Transfer", newParam("from", "Hash160"), newParam("to", "Hash160"), newParam("amount", "Integer"))

	return g
}

// Metadata implements interop.Contract.
func (g *GAS) Metadata() *interop.ContractMD { return &g.ContractMD }

// Initialize implements interop.Contract: GAS starts with zero supply
// except for InitialSupply, minted to the committee multisig account at
// genesis (spec §4.3 GasToken, scenario S1); later units are minted by
// OnPersist's block rewards, NEO's GAS distribution and Notary withdrawals.
func (g *GAS) Initialize(ic *interop.Context) error {
	if g.InitialSupply == nil || g.InitialSupply.Sign() <= 0 {
		return nil
	}
	if g.NEO == nil {
		return nil
	}
	g.mint(ic, g.NEO.committeeAddress(ic), g.InitialSupply)
	return nil
}

// OnPersist mints the block's accumulated system and network fees to
// the primary validator, the GAS-side half of every transaction's fee
// burn handled in the mempool/blockchain fee-accounting pipeline.
func (g *GAS) OnPersist(ic *interop.Context) error {
	if ic.Block == nil {
		return nil
	}
	var total int64
	for _, tx := range ic.Block.Transactions {
		total += tx.SystemFee + tx.NetworkFee
	}
	if total <= 0 {
		return nil
	}
	primary := g.primaryAccount(ic)
	g.mint(ic, primary, big.NewInt(total))
	return nil
}

// primaryAccount resolves the single-sig account of the validator that
// proposed ic.Block, falling back to NextConsensus (the committee
// multisig) when the validator set or PrimaryIndex can't be resolved,
// e.g. for a synthetic block built outside the validator election flow.
func (g *GAS) primaryAccount(ic *interop.Context) util.Uint160 {
	if g.NEO != nil {
		validators, _ := g.NEO.GetNextBlockValidators(ic.DAO)
		idx := int(ic.Block.Header.PrimaryIndex)
		if idx >= 0 && idx < len(validators) {
			return util.Uint160(validators[idx].ScriptHash())
		}
	}
	return ic.Block.Header.NextConsensus
}

// PostPersist implements interop.Contract.
func (g *GAS) PostPersist(*interop.Context) error { return nil }

func (g *GAS) symbol(*interop.Context, []stackitem.Item) stackitem.Item { return stackitem.Make("GAS") }
func (g *GAS) decimals(*interop.Context, []stackitem.Item) stackitem.Item {
	return stackitem.Make(int64(GasDecimals))
}

func (g *GAS) totalSupply(ic *interop.Context, _ []stackitem.Item) stackitem.Item {
	item, err := ic.DAO.GetStorageItem(g.ContractID, totalSupplyKey)
	if err != nil {
		return stackitem.Make(big.NewInt(0))
	}
	return stackitem.Make(new(big.Int).SetBytes(item))
}

func (g *GAS) balanceOf(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	acct := toUint160(args[0])
	bal, err := g.getBalance(ic, acct)
	if err != nil {
		return stackitem.Make(big.NewInt(0))
	}
	return stackitem.Make(&bal.Balance)
}

func (g *GAS) transfer(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	from := toUint160(args[0])
	to := toUint160(args[1])
	amount := toBigInt(args[2])
	if amount.Sign() < 0 {
		panic(errors.New("gas: negative amount"))
	}
	if !checkWitnessAccount(ic, from) {
		return stackitem.Make(false)
	}
	fromBal, err := g.getBalance(ic, from)
	if err != nil || fromBal.Balance.Cmp(amount) < 0 {
		return stackitem.Make(false)
	}
	toBal, err := g.getBalance(ic, to)
	if err != nil {
		toBal = &state.GASBalance{}
	}
	if amount.Sign() > 0 {
		fromBal.Balance.Sub(&fromBal.Balance, amount)
		toBal.Balance.Add(&toBal.Balance, amount)
	}
	if err := g.putBalance(ic, from, fromBal); err != nil {
		panic(err)
	}
	if err := g.putBalance(ic, to, toBal); err != nil {
		panic(err)
	}
	ic.Notify(g.Hash, "Transfer", stackitem.NewArray([]stackitem.Item{
		stackitem.Make(from.BytesLE()), stackitem.Make(to.BytesLE()), stackitem.Make(amount),
	}))
	return stackitem.Make(true)
}

// mint credits account with amount, growing total supply. Used by
// OnPersist's block reward, NeoToken's per-transfer GAS payout and
// Notary's withdraw.
func (g *GAS) mint(ic *interop.Context, account util.Uint160, amount *big.Int) {
	if amount.Sign() <= 0 {
		return
	}
	bal, err := g.getBalance(ic, account)
	if err != nil {
		bal = &state.GASBalance{}
	}
	bal.Balance.Add(&bal.Balance, amount)
	if err := g.putBalance(ic, account, bal); err != nil {
		panic(err)
	}

	supply := new(big.Int)
	if item, err := ic.DAO.GetStorageItem(g.ContractID, totalSupplyKey); err == nil {
		supply.SetBytes(item)
	}
	supply.Add(supply, amount)
	_ = ic.DAO.PutStorageItem(g.ContractID, totalSupplyKey, state.StorageItem(supply.Bytes()))

	ic.Notify(g.Hash, "Transfer", stackitem.NewArray([]stackitem.Item{
		stackitem.Null{}, stackitem.Make(account.BytesLE()), stackitem.Make(amount),
	}))
}

// Burn debits account by amount, used by the blockchain's persistence
// pipeline to collect a transaction's SystemFee+NetworkFee ahead of
// running its script. Returns an error if the account's balance is
// insufficient, leaving state untouched.
func (g *GAS) Burn(ic *interop.Context, account util.Uint160, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return nil
	}
	bal, err := g.getBalance(ic, account)
	if err != nil {
		return errInsufficientGasBalance
	}
	if bal.Balance.Cmp(amount) < 0 {
		return errInsufficientGasBalance
	}
	bal.Balance.Sub(&bal.Balance, amount)
	if err := g.putBalance(ic, account, bal); err != nil {
		return err
	}

	supply := new(big.Int)
	if item, err := ic.DAO.GetStorageItem(g.ContractID, totalSupplyKey); err == nil {
		supply.SetBytes(item)
	}
	supply.Sub(supply, amount)
	if supply.Sign() < 0 {
		supply.SetInt64(0)
	}
	_ = ic.DAO.PutStorageItem(g.ContractID, totalSupplyKey, state.StorageItem(supply.Bytes()))

	ic.Notify(g.Hash, "Transfer", stackitem.NewArray([]stackitem.Item{
		stackitem.Make(account.BytesLE()), stackitem.Null{}, stackitem.Make(amount),
	}))
	return nil
}

// GetBalance exposes an account's GAS balance to callers outside the
// package (the blockchain's Feer implementation, mempool verification).
func (g *GAS) GetBalance(ic *interop.Context, account util.Uint160) *big.Int {
	bal, err := g.getBalance(ic, account)
	if err != nil {
		return big.NewInt(0)
	}
	return &bal.Balance
}

func (g *GAS) getBalance(ic *interop.Context, account util.Uint160) (*state.GASBalance, error) {
	item, err := ic.DAO.GetStorageItem(g.ContractID, account.BytesLE())
	if err != nil {
		return nil, err
	}
	b := &state.GASBalance{}
	r := io.NewBinReaderFromBuf(item)
	b.DecodeBinary(r)
	if r.Err != nil {
		return nil, r.Err
	}
	return b, nil
}

func (g *GAS) putBalance(ic *interop.Context, account util.Uint160, b *state.GASBalance) error {
	w := io.NewBufBinWriter()
	b.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		return w.Err
	}
	return ic.DAO.PutStorageItem(g.ContractID, account.BytesLE(), state.StorageItem(w.Bytes()))
}

var totalSupplyKey = []byte{11}
