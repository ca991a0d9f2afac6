package transaction

import (
	"errors"

	"github.com/n3ledger/n3core/pkg/crypto/keys"
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/util"
)

// WitnessScope bounds where a signer's witness is considered valid within a
// transaction's call tree (spec §3 "Signer").
type WitnessScope byte

const (
	None            WitnessScope = 0
	CalledByEntry   WitnessScope = 0x01
	CustomContracts WitnessScope = 0x10
	CustomGroups    WitnessScope = 0x20
	WitnessRules    WitnessScope = 0x40
	Global          WitnessScope = 0x80
)

// Has reports whether s includes scope.
func (s WitnessScope) Has(scope WitnessScope) bool { return s&scope == scope }

var (
	ErrGlobalExclusive      = errors.New("transaction: Global scope cannot combine with other scopes")
	ErrEmptyCustomContracts = errors.New("transaction: CustomContracts scope requires a non-empty contract list")
)

// WitnessConditionType tags a WitnessCondition node's variant.
type WitnessConditionType byte

const (
	CondBoolean WitnessConditionType = iota
	CondNot
	CondAnd
	CondOr
	CondScriptHash
	CondGroup
	CondCalledByEntry
	CondCalledByContract
	CondCalledByGroup
)

// WitnessCondition is a boolean-expression tree node evaluated against the
// current execution context for the WitnessRules scope.
type WitnessCondition struct {
	Type       WitnessConditionType
	Boolean    bool
	Expr       *WitnessCondition
	Exprs      []*WitnessCondition
	ScriptHash util.Uint160
	Group      *keys.PublicKey
}

// EvalContext is the minimal execution-tree information a condition needs.
type EvalContext struct {
	CurrentScriptHash util.Uint160
	CallingScriptHash util.Uint160
	EntryScriptHash   util.Uint160
	IsCalledByEntry   bool
}

// Eval evaluates the condition tree against ctx.
func (c *WitnessCondition) Eval(ctx EvalContext) bool {
	switch c.Type {
	case CondBoolean:
		return c.Boolean
	case CondNot:
		return !c.Expr.Eval(ctx)
	case CondAnd:
		for _, e := range c.Exprs {
			if !e.Eval(ctx) {
				return false
			}
		}
		return true
	case CondOr:
		for _, e := range c.Exprs {
			if e.Eval(ctx) {
				return true
			}
		}
		return false
	case CondScriptHash, CondCalledByContract:
		return ctx.CurrentScriptHash.Equals(c.ScriptHash)
	case CondCalledByEntry:
		return ctx.IsCalledByEntry
	case CondGroup, CondCalledByGroup:
		// Group membership resolution requires the contract manifest of
		// the current/calling contract; left to the interop layer which
		// has snapshot access, this node only marks intent here.
		return false
	default:
		return false
	}
}

// WitnessRule pairs a condition with Allow/Deny.
type WitnessRule struct {
	Deny      bool
	Condition *WitnessCondition
}

// Allows reports whether this rule permits the action for ctx.
func (r *WitnessRule) Allows(ctx EvalContext) (matched, allow bool) {
	if !r.Condition.Eval(ctx) {
		return false, false
	}
	return true, !r.Deny
}

// Signer declares one account's authorisation scope for a transaction.
type Signer struct {
	Account          util.Uint160
	Scopes           WitnessScope
	AllowedContracts []util.Uint160
	AllowedGroups    []*keys.PublicKey
	Rules            []WitnessRule
}

// Validate enforces the scope invariants from spec §3.
func (s *Signer) Validate() error {
	if s.Scopes.Has(Global) && s.Scopes != Global {
		return ErrGlobalExclusive
	}
	if s.Scopes.Has(CustomContracts) && len(s.AllowedContracts) == 0 {
		return ErrEmptyCustomContracts
	}
	return nil
}

// AllowsTarget reports whether this signer's scope permits witnessing an
// action against the given evaluation context, honouring rule order
// (evaluated top-to-bottom, first match wins).
func (s *Signer) AllowsTarget(ctx EvalContext) bool {
	if s.Scopes.Has(Global) {
		return true
	}
	if s.Scopes.Has(CalledByEntry) && ctx.IsCalledByEntry {
		return true
	}
	if s.Scopes.Has(CustomContracts) {
		for _, c := range s.AllowedContracts {
			if c.Equals(ctx.CurrentScriptHash) {
				return true
			}
		}
	}
	if s.Scopes.Has(WitnessRules) {
		for i := range s.Rules {
			if matched, allow := s.Rules[i].Allows(ctx); matched {
				return allow
			}
		}
	}
	return false
}

// EncodeBinary implements io.Serializable.
func (s *Signer) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(s.Account.BytesLE())
	w.WriteB(byte(s.Scopes))
	if s.Scopes.Has(CustomContracts) {
		w.WriteVarUint(uint64(len(s.AllowedContracts)))
		for _, c := range s.AllowedContracts {
			w.WriteBytes(c.BytesLE())
		}
	}
	if s.Scopes.Has(CustomGroups) {
		w.WriteVarUint(uint64(len(s.AllowedGroups)))
		for _, g := range s.AllowedGroups {
			w.WriteBytes(g.Bytes())
		}
	}
	if s.Scopes.Has(WitnessRules) {
		w.WriteVarUint(uint64(len(s.Rules)))
		for i := range s.Rules {
			w.WriteBool(s.Rules[i].Deny)
			encodeCondition(w, s.Rules[i].Condition)
		}
	}
}

func encodeCondition(w *io.BinWriter, c *WitnessCondition) {
	w.WriteB(byte(c.Type))
	switch c.Type {
	case CondBoolean:
		w.WriteBool(c.Boolean)
	case CondNot:
		encodeCondition(w, c.Expr)
	case CondAnd, CondOr:
		w.WriteVarUint(uint64(len(c.Exprs)))
		for _, e := range c.Exprs {
			encodeCondition(w, e)
		}
	case CondScriptHash, CondCalledByContract:
		w.WriteBytes(c.ScriptHash.BytesLE())
	case CondGroup, CondCalledByGroup:
		w.WriteBytes(c.Group.Bytes())
	}
}

// DecodeBinary implements io.Serializable.
func (s *Signer) DecodeBinary(r *io.BinReader) {
	s.Account, _ = util.Uint160DecodeBytesLE(r.ReadBytes(20))
	s.Scopes = WitnessScope(r.ReadB())
	if s.Scopes.Has(CustomContracts) {
		n := r.ReadVarUint()
		s.AllowedContracts = make([]util.Uint160, n)
		for i := range s.AllowedContracts {
			s.AllowedContracts[i], _ = util.Uint160DecodeBytesLE(r.ReadBytes(20))
		}
	}
	if s.Scopes.Has(CustomGroups) {
		n := r.ReadVarUint()
		s.AllowedGroups = make([]*keys.PublicKey, n)
		for i := range s.AllowedGroups {
			pk, err := keys.DecodeBytes(r.ReadBytes(33), keys.Secp256r1)
			if err != nil {
				r.Err = err
				return
			}
			s.AllowedGroups[i] = pk
		}
	}
	if s.Scopes.Has(WitnessRules) {
		n := r.ReadVarUint()
		s.Rules = make([]WitnessRule, n)
		for i := range s.Rules {
			s.Rules[i].Deny = r.ReadBool()
			s.Rules[i].Condition = decodeCondition(r)
		}
	}
}

func decodeCondition(r *io.BinReader) *WitnessCondition {
	c := &WitnessCondition{Type: WitnessConditionType(r.ReadB())}
	switch c.Type {
	case CondBoolean:
		c.Boolean = r.ReadBool()
	case CondNot:
		c.Expr = decodeCondition(r)
	case CondAnd, CondOr:
		n := r.ReadVarUint()
		c.Exprs = make([]*WitnessCondition, n)
		for i := range c.Exprs {
			c.Exprs[i] = decodeCondition(r)
		}
	case CondScriptHash, CondCalledByContract:
		c.ScriptHash, _ = util.Uint160DecodeBytesLE(r.ReadBytes(20))
	case CondGroup, CondCalledByGroup:
		pk, err := keys.DecodeBytes(r.ReadBytes(33), keys.Secp256r1)
		if err != nil {
			r.Err = err
			return c
		}
		c.Group = pk
	}
	return c
}
