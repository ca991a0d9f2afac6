package state

import (
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/smartcontract/manifest"
	"github.com/n3ledger/n3core/pkg/smartcontract/nef"
	"github.com/n3ledger/n3core/pkg/util"
)

// Contract is the on-chain record of a deployed smart contract: its
// immutable identity (Hash/ID), its executable NEF, and its manifest.
type Contract struct {
	ID         int32
	UpdateCntr uint16
	Hash       util.Uint160
	NEF        nef.File
	Manifest   manifest.Manifest
}

// EncodeBinary implements io.Serializable.
func (c *Contract) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(uint32(c.ID))
	w.WriteU16LE(c.UpdateCntr)
	w.WriteBytes(c.Hash.BytesLE())
	c.NEF.EncodeBinary(w)
	if w.Err != nil {
		return
	}
	mb, err := c.Manifest.Bytes()
	if err != nil {
		w.Err = err
		return
	}
	w.WriteVarBytes(mb)
}

// DecodeBinary implements io.Serializable.
func (c *Contract) DecodeBinary(r *io.BinReader) {
	c.ID = int32(r.ReadU32LE())
	c.UpdateCntr = r.ReadU16LE()
	c.Hash, _ = util.Uint160DecodeBytesLE(r.ReadBytes(20))
	c.NEF.DecodeBinary(r)
	mb := r.ReadVarBytes(manifest.MaxManifestSize)
	if r.Err != nil {
		return
	}
	if err := c.Manifest.UnmarshalJSON(mb); err != nil {
		r.Err = err
	}
}

// CanCall reports whether this contract's manifest permits it to invoke
// method on target.
func (c *Contract) CanCall(target *Contract, method string) bool {
	return c.Manifest.CanCall(target.Hash, method)
}
