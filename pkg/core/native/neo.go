package native

import (
	"errors"
	"math/big"
	"sort"

	"github.com/n3ledger/n3core/pkg/core/dao"
	"github.com/n3ledger/n3core/pkg/core/interop"
	"github.com/n3ledger/n3core/pkg/core/native/nativenames"
	"github.com/n3ledger/n3core/pkg/core/state"
	"github.com/n3ledger/n3core/pkg/crypto/keys"
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/smartcontract/callflag"
	"github.com/n3ledger/n3core/pkg/util"
	"github.com/n3ledger/n3core/pkg/vm/stackitem"
)

const neoContractID = -5

// TotalNEOSupply is fixed for the lifetime of the network (spec §4.3
// invariant: "total NEO supply constant").
const TotalNEOSupply = 100_000_000

const (
	defaultCommitteeSize  = 21
	defaultValidatorsCount = 7
)

var (
	candidatePrefix  = byte(33)
	committeeKey     = []byte{14}
	gasPerBlockKey   = []byte{29}
)

// NEO is the NeoToken native: a NEP-17 token with decimals=0 whose
// balances double as committee voting weight.
type NEO struct {
	interop.ContractMD
	GAS *GAS

	CommitteeSize   int
	ValidatorsCount int

	// StandbyKeys seeds the committee before any candidate has ever
	// registered (genesis) and pads out the elected committee whenever
	// registered candidates fall short of CommitteeSize, the same
	// fallback the reference engine's StandbyCommittee provides.
	StandbyKeys keys.PublicKeys
}

var _ interop.Contract = (*NEO)(nil)

func newNEO() *NEO {
	n := &NEO{
		ContractMD:      *interop.NewContractMD(nativenames.Neo, neoContractID),
		CommitteeSize:   defaultCommitteeSize,
		ValidatorsCount: defaultValidatorsCount,
	}

	n.AddMethod(newMethodAndPrice(n.symbol, 1<<10, callflag.None),
		newDescriptor("symbol", "String"))
	n.AddMethod(newMethodAndPrice(n.decimals, 1<<10, callflag.None),
		newDescriptor("decimals", "Integer"))
	n.AddMethod(newMethodAndPrice(n.totalSupply, 1<<15, callflag.ReadStates),
		newDescriptor("totalSupply", "Integer"))
	n.AddMethod(newMethodAndPrice(n.balanceOf, 1<<15, callflag.ReadStates),
		newDescriptor("balanceOf", "Integer", newParam("account", "Hash160")))
	n.AddMethod(newMethodAndPrice(n.transfer, 1<<17, callflag.States|callflag.AllowNotify),
		newDescriptor("transfer", "Boolean",
			newParam("from", "Hash160"), newParam("to", "Hash160"), newParam("amount", "Integer"), newParam("data", "Any")))
	n.AddMethod(newMethodAndPrice(n.vote, 1<<16, callflag.States),
		newDescriptor("vote", "Boolean", newParam("account", "Hash160"), newParam("candidate", "PublicKey")))
	n.AddMethod(newMethodAndPrice(n.registerCandidate, 1<<17, callflag.States),
		newDescriptor("registerCandidate", "Boolean", newParam("pubkey", "PublicKey")))
	n.AddMethod(newMethodAndPrice(n.unregisterCandidate, 1<<17, callflag.States),
		newDescriptor("unregisterCandidate", "Boolean", newParam("pubkey", "PublicKey")))
	n.AddMethod(newMethodAndPrice(n.getCommittee, 1<<16, callflag.ReadStates),
		newDescriptor("getCommittee", "Array"))
	n.AddMethod(newMethodAndPrice(n.getCandidates, 1<<16, callflag.ReadStates),
		newDescriptor("getCandidates", "Array"))
	n.AddMethod(newMethodAndPrice(n.unclaimedGas, 1<<17, callflag.ReadStates),
		newDescriptor("unclaimedGas", "Integer", newParam("account", "Hash160"), newParam("end", "Integer")))
	n.AddEvent("Transfer", newParam("from", "Hash160"), newParam("to", "Hash160"), newParam("amount", "Integer"))

	return n
}

// Metadata implements interop.Contract.
func (n *NEO) Metadata() *interop.ContractMD { return &n.ContractMD }

// Initialize mints the entire fixed supply to the committee's shared
// multisig account at genesis. No candidate has ever registered at this
// point, so the committee is seeded directly from StandbyKeys before its
// address is derived.
func (n *NEO) Initialize(ic *interop.Context) error {
	if len(n.currentCommittee(ic.DAO)) == 0 && len(n.StandbyKeys) > 0 {
		standby := make([]*state.Validator, len(n.StandbyKeys))
		for i, pub := range n.StandbyKeys {
			standby[i] = &state.Validator{PublicKey: pub.Bytes()}
		}
		if err := n.storeCommittee(ic.DAO, standby); err != nil {
			return err
		}
	}
	committeeAcct := n.committeeAddress(ic)
	bal := &state.NEOBalance{Balance: *big.NewInt(TotalNEOSupply)}
	if err := ic.DAO.PutNEOBalance(n.ContractID, committeeAcct, bal); err != nil {
		return err
	}
	setIntWithKey(n.ContractID, ic.DAO, gasPerBlockKey, 5_00000000)
	return nil
}

// OnPersist implements interop.Contract: no per-block NEO-side work.
func (n *NEO) OnPersist(*interop.Context) error { return nil }

// PostPersist re-elects the committee from the current candidate votes
// at every block, matching the reference engine's per-epoch election
// (simplified here to run every block rather than gated by a
// committee-size-aligned epoch boundary).
func (n *NEO) PostPersist(ic *interop.Context) error {
	committee := n.computeCommittee(ic.DAO)
	return n.storeCommittee(ic.DAO, committee)
}

func (n *NEO) symbol(*interop.Context, []stackitem.Item) stackitem.Item { return stackitem.Make("NEO") }
func (n *NEO) decimals(*interop.Context, []stackitem.Item) stackitem.Item {
	return stackitem.Make(int64(0))
}
func (n *NEO) totalSupply(*interop.Context, []stackitem.Item) stackitem.Item {
	return stackitem.Make(big.NewInt(TotalNEOSupply))
}

func (n *NEO) balanceOf(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	acct := toUint160(args[0])
	bal, err := ic.DAO.GetNEOBalance(n.ContractID, acct)
	if err != nil {
		return stackitem.Make(big.NewInt(0))
	}
	return stackitem.Make(&bal.Balance)
}

// GetBalance exposes an account's NEO balance to callers outside the
// package (the "get_balance" CLI-facing operation of spec §6).
func (n *NEO) GetBalance(ic *interop.Context, account util.Uint160) *big.Int {
	bal, err := ic.DAO.GetNEOBalance(n.ContractID, account)
	if err != nil {
		return big.NewInt(0)
	}
	return &bal.Balance
}

func (n *NEO) transfer(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	from := toUint160(args[0])
	to := toUint160(args[1])
	amount := toBigInt(args[2])
	if amount.Sign() < 0 {
		panic(errors.New("neo: negative amount"))
	}
	if !checkWitnessAccount(ic, from) {
		return stackitem.Make(false)
	}
	fromBal, err := ic.DAO.GetNEOBalance(n.ContractID, from)
	if err != nil {
		fromBal = &state.NEOBalance{}
	}
	if fromBal.Balance.Cmp(amount) < 0 {
		return stackitem.Make(false)
	}
	n.distributeGas(ic, from, fromBal)
	toBal, err := ic.DAO.GetNEOBalance(n.ContractID, to)
	if err != nil {
		toBal = &state.NEOBalance{}
	}
	n.distributeGas(ic, to, toBal)

	if amount.Sign() > 0 {
		fromBal.Balance.Sub(&fromBal.Balance, amount)
		toBal.Balance.Add(&toBal.Balance, amount)
	}
	fromBal.BalanceHeight = ic.BlockHeight()
	toBal.BalanceHeight = ic.BlockHeight()
	if err := ic.DAO.PutNEOBalance(n.ContractID, from, fromBal); err != nil {
		panic(err)
	}
	if err := ic.DAO.PutNEOBalance(n.ContractID, to, toBal); err != nil {
		panic(err)
	}
	ic.Notify(n.Hash, "Transfer", stackitem.NewArray([]stackitem.Item{
		stackitem.Make(from.BytesLE()), stackitem.Make(to.BytesLE()), stackitem.Make(amount),
	}))
	return stackitem.Make(true)
}

// distributeGas credits bal's account with GAS accrued since its last
// balance change before the balance itself is touched, per spec §4.3
// ("vote changes credit outstanding GAS before altering balance").
func (n *NEO) distributeGas(ic *interop.Context, account util.Uint160, bal *state.NEOBalance) {
	if bal.Balance.Sign() == 0 {
		return
	}
	gas := n.calculateBonus(ic.DAO, bal, ic.BlockHeight())
	if gas.Sign() <= 0 {
		return
	}
	n.GAS.mint(ic, account, gas)
}

func (n *NEO) calculateBonus(d *dao.Simple, bal *state.NEOBalance, end uint32) *big.Int {
	if end <= bal.BalanceHeight {
		return big.NewInt(0)
	}
	perBlock := getIntWithKey(n.ContractID, d, gasPerBlockKey)
	blocks := big.NewInt(int64(end - bal.BalanceHeight))
	reward := new(big.Int).Mul(blocks, big.NewInt(perBlock))
	reward.Mul(reward, &bal.Balance)
	reward.Div(reward, big.NewInt(TotalNEOSupply))
	return reward
}

func (n *NEO) unclaimedGas(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	acct := toUint160(args[0])
	end := uint32(toBigInt(args[1]).Uint64())
	bal, err := ic.DAO.GetNEOBalance(n.ContractID, acct)
	if err != nil {
		return stackitem.Make(big.NewInt(0))
	}
	return stackitem.Make(n.calculateBonus(ic.DAO, bal, end))
}

func (n *NEO) registerCandidate(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	pub := parsePublicKey(args[0])
	if !checkWitnessAccount(ic, util.Uint160(pub.ScriptHash())) {
		return stackitem.Make(false)
	}
	key := candidateKey(pub)
	v, err := getValidator(ic.DAO, n.ContractID, key)
	if err != nil {
		v = &state.Validator{PublicKey: pub.Bytes()}
	}
	v.Registered = true
	putValidator(ic.DAO, n.ContractID, key, v)
	return stackitem.Make(true)
}

func (n *NEO) unregisterCandidate(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	pub := parsePublicKey(args[0])
	if !checkWitnessAccount(ic, util.Uint160(pub.ScriptHash())) {
		return stackitem.Make(false)
	}
	key := candidateKey(pub)
	v, err := getValidator(ic.DAO, n.ContractID, key)
	if err != nil {
		return stackitem.Make(true)
	}
	if v.Votes.Sign() == 0 {
		_ = ic.DAO.DeleteStorageItem(n.ContractID, key)
	} else {
		v.Registered = false
		putValidator(ic.DAO, n.ContractID, key, v)
	}
	return stackitem.Make(true)
}

func (n *NEO) vote(ic *interop.Context, args []stackitem.Item) stackitem.Item {
	acct := toUint160(args[0])
	if !checkWitnessAccount(ic, acct) {
		return stackitem.Make(false)
	}
	bal, err := ic.DAO.GetNEOBalance(n.ContractID, acct)
	if err != nil || bal.Balance.Sign() == 0 {
		return stackitem.Make(false)
	}
	n.distributeGas(ic, acct, bal)

	if bal.VoteTo != nil {
		oldKey := candidateKeyHash(*bal.VoteTo)
		if old, err := getValidator(ic.DAO, n.ContractID, oldKey); err == nil {
			old.Votes.Sub(&old.Votes, &bal.Balance)
			putValidator(ic.DAO, n.ContractID, oldKey, old)
		}
	}

	if _, ok := args[1].(stackitem.Null); ok {
		bal.VoteTo = nil
	} else {
		pub := parsePublicKey(args[1])
		key := candidateKey(pub)
		v, err := getValidator(ic.DAO, n.ContractID, key)
		if err != nil {
			return stackitem.Make(false)
		}
		v.Votes.Add(&v.Votes, &bal.Balance)
		putValidator(ic.DAO, n.ContractID, key, v)
		h := util.Uint160(pub.ScriptHash())
		bal.VoteTo = &h
	}
	bal.BalanceHeight = ic.BlockHeight()
	if err := ic.DAO.PutNEOBalance(n.ContractID, acct, bal); err != nil {
		panic(err)
	}
	return stackitem.Make(true)
}

func (n *NEO) getCandidates(ic *interop.Context, _ []stackitem.Item) stackitem.Item {
	cands := n.listCandidates(ic.DAO)
	items := make([]stackitem.Item, len(cands))
	for i, c := range cands {
		items[i] = stackitem.NewArray([]stackitem.Item{
			stackitem.Make(c.PublicKey),
			stackitem.Make(&c.Votes),
		})
	}
	return stackitem.NewArray(items)
}

func (n *NEO) listCandidates(d *dao.Simple) []*state.Validator {
	var out []*state.Validator
	prefix := []byte{candidatePrefix}
	_ = d.SeekStorage(n.ContractID, prefix, func(_, v []byte) bool {
		val := &state.Validator{}
		r := io.NewBinReaderFromBuf(v)
		val.DecodeBinary(r)
		if r.Err != nil {
			return true
		}
		if val.Registered {
			out = append(out, val)
		}
		return true
	})
	return out
}

func (n *NEO) computeCommittee(d *dao.Simple) []*state.Validator {
	cands := n.listCandidates(d)
	sort.Slice(cands, func(i, j int) bool {
		c := cands[i].Votes.Cmp(&cands[j].Votes)
		if c != 0 {
			return c > 0
		}
		return compareBytes(cands[i].PublicKey, cands[j].PublicKey) < 0
	})
	if len(cands) > n.CommitteeSize {
		cands = cands[:n.CommitteeSize]
	}
	if len(cands) < n.CommitteeSize && len(n.StandbyKeys) > 0 {
		seen := make(map[string]bool, len(cands))
		for _, c := range cands {
			seen[string(c.PublicKey)] = true
		}
		for _, pub := range n.StandbyKeys {
			if len(cands) >= n.CommitteeSize {
				break
			}
			b := pub.Bytes()
			if seen[string(b)] {
				continue
			}
			cands = append(cands, &state.Validator{PublicKey: b})
			seen[string(b)] = true
		}
	}
	return cands
}

func (n *NEO) storeCommittee(d *dao.Simple, committee []*state.Validator) error {
	var buf []byte
	for _, c := range committee {
		buf = append(buf, byte(len(c.PublicKey)))
		buf = append(buf, c.PublicKey...)
	}
	return d.PutStorageItem(n.ContractID, committeeKey, state.StorageItem(buf))
}

func (n *NEO) getCommittee(ic *interop.Context, _ []stackitem.Item) stackitem.Item {
	committee := n.currentCommittee(ic.DAO)
	items := make([]stackitem.Item, len(committee))
	for i, pub := range committee {
		items[i] = stackitem.Make(pub)
	}
	return stackitem.NewArray(items)
}

func (n *NEO) currentCommittee(d *dao.Simple) [][]byte {
	item, err := d.GetStorageItem(n.ContractID, committeeKey)
	if err != nil {
		return nil
	}
	var out [][]byte
	buf := []byte(item)
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

// currentValidators returns the first ValidatorsCount committee members
// in fixed election order, the set that signs blocks this epoch.
func (n *NEO) currentValidators(d *dao.Simple) [][]byte {
	committee := n.currentCommittee(d)
	if len(committee) > n.ValidatorsCount {
		committee = committee[:n.ValidatorsCount]
	}
	return committee
}

// GetNextBlockValidators returns the sorted public keys of the
// validators due to sign the next block, plus the m-of-n signature
// threshold their multisig account requires. Exported for the consensus
// service, which needs the actual key set (not just its script hash) to
// assemble a block's NextConsensus account and verify committed payloads.
func (n *NEO) GetNextBlockValidators(d *dao.Simple) (keys.PublicKeys, int) {
	raw := n.currentValidators(d)
	pubs := make(keys.PublicKeys, 0, len(raw))
	for _, b := range raw {
		pub, err := keys.DecodeBytes(b, keys.Secp256r1)
		if err == nil {
			pubs = append(pubs, pub)
		}
	}
	sort.Sort(pubs)
	return pubs, len(pubs)*2/3 + 1
}

// committeeAddress derives the multisig script hash for the current
// committee, used as the genesis NEO holder and for committee-witness
// checks.
func (n *NEO) committeeAddress(ic *interop.Context) util.Uint160 {
	committee := n.currentCommittee(ic.DAO)
	if len(committee) == 0 {
		return util.Uint160{}
	}
	pubs := make(keys.PublicKeys, 0, len(committee))
	for _, b := range committee {
		pub, err := keys.DecodeBytes(b, keys.Secp256r1)
		if err == nil {
			pubs = append(pubs, pub)
		}
	}
	sort.Sort(pubs)
	m := len(pubs)*2/3 + 1
	return util.Uint160(pubs.ScriptHash(m))
}

// checkCommittee reports whether the invoking transaction is witnessed
// by the current committee's multisig account.
func (n *NEO) checkCommittee(ic *interop.Context) bool {
	h := n.committeeAddress(ic)
	return checkWitnessAccount(ic, h)
}

func candidateKey(pub *keys.PublicKey) []byte {
	return append([]byte{candidatePrefix}, pub.Bytes()...)
}

func candidateKeyHash(h util.Uint160) []byte {
	return append([]byte{candidatePrefix}, h.BytesLE()...)
}

func parsePublicKey(item stackitem.Item) *keys.PublicKey {
	b := toBytes(item)
	pub, err := keys.DecodeBytes(b, keys.Secp256r1)
	if err != nil {
		panic(err)
	}
	return pub
}

func getValidator(d *dao.Simple, id int32, key []byte) (*state.Validator, error) {
	item, err := d.GetStorageItem(id, key)
	if err != nil {
		return nil, err
	}
	v := &state.Validator{}
	r := io.NewBinReaderFromBuf(item)
	v.DecodeBinary(r)
	if r.Err != nil {
		return nil, r.Err
	}
	return v, nil
}

func putValidator(d *dao.Simple, id int32, key []byte, v *state.Validator) {
	w := io.NewBufBinWriter()
	v.EncodeBinary(w.BinWriter)
	_ = d.PutStorageItem(id, key, state.StorageItem(w.Bytes()))
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return len(a) - len(b)
}

// checkWitnessAccount is the native-contract-internal equivalent of
// System.Runtime.CheckWitness, used by methods that aren't themselves
// invoked through the syscall layer.
func checkWitnessAccount(ic *interop.Context, account util.Uint160) bool {
	if ic.Tx == nil {
		return false
	}
	for _, s := range ic.Tx.Signers {
		if s.Account.Equals(account) {
			return true
		}
	}
	return false
}
