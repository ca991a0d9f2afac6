package transaction

import (
	"errors"

	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/util"
)

// AttrType tags an attribute's variant (spec §3 "Transaction").
type AttrType byte

const (
	AttrHighPriority    AttrType = 0x01
	AttrOracleResponse  AttrType = 0x11
	AttrNotValidBefore  AttrType = 0x20
	AttrConflicts       AttrType = 0x21
)

var ErrUnknownAttrType = errors.New("transaction: unknown attribute type")

// OracleResponseCode mirrors the oracle service's result classification.
type OracleResponseCode byte

const (
	OracleSuccess        OracleResponseCode = 0x00
	OracleProtocolError  OracleResponseCode = 0x10
	OracleConsensusUnreachable OracleResponseCode = 0x12
	OracleNotFound       OracleResponseCode = 0x14
	OracleTimeout        OracleResponseCode = 0x15
	OracleForbidden      OracleResponseCode = 0x16
	OracleResponseTooLarge OracleResponseCode = 0x17
	OracleInsufficientFunds OracleResponseCode = 0x18
	OracleError          OracleResponseCode = 0xFF
)

// Attribute is one transaction attribute; only one field set applies,
// selected by Type.
type Attribute struct {
	Type AttrType

	// NotValidBefore
	Height uint32

	// Conflicts
	Hash util.Uint256

	// OracleResponse
	OracleID   uint64
	OracleCode OracleResponseCode
	OracleData []byte
}

// AllowMultiple reports whether more than one attribute of t may appear in
// a single transaction (only Conflicts may repeat, per spec §3).
func AllowMultiple(t AttrType) bool { return t == AttrConflicts }

// EncodeBinary implements io.Serializable.
func (a *Attribute) EncodeBinary(w *io.BinWriter) {
	w.WriteB(byte(a.Type))
	switch a.Type {
	case AttrHighPriority:
	case AttrNotValidBefore:
		w.WriteU32LE(a.Height)
	case AttrConflicts:
		w.WriteBytes(a.Hash.BytesLE())
	case AttrOracleResponse:
		w.WriteU64LE(a.OracleID)
		w.WriteB(byte(a.OracleCode))
		w.WriteVarBytes(a.OracleData)
	}
}

// DecodeBinary implements io.Serializable.
func (a *Attribute) DecodeBinary(r *io.BinReader) {
	a.Type = AttrType(r.ReadB())
	switch a.Type {
	case AttrHighPriority:
	case AttrNotValidBefore:
		a.Height = r.ReadU32LE()
	case AttrConflicts:
		a.Hash, _ = util.Uint256DecodeBytesLE(r.ReadBytes(32))
	case AttrOracleResponse:
		a.OracleID = r.ReadU64LE()
		a.OracleCode = OracleResponseCode(r.ReadB())
		a.OracleData = r.ReadVarBytes(0xFFFF)
	default:
		r.Err = ErrUnknownAttrType
	}
}
