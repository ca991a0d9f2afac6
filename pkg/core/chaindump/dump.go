// Package chaindump implements bulk block archive import/export: a way to
// seed a new node from a trusted file instead of downloading the whole
// chain header-by-header over P2P (spec expansion of §4.4 Ledger &
// Persistence). It reuses the same Ledger.AddBlock validation path P2P
// blocks go through, so a dump never bypasses consensus/witness checks —
// it only saves the network round trips.
package chaindump

import (
	"errors"

	"github.com/n3ledger/n3core/pkg/core/block"
	"github.com/n3ledger/n3core/pkg/io"
)

// Ledger is the subset of the blockchain a dump/restore operation needs.
type Ledger interface {
	GetBlock(index uint32) (*block.Block, error)
	BlockHeight() uint32
	AddBlock(b *block.Block) error
}

// ErrStartTooHigh is returned when start exceeds the chain's current
// height, so there is nothing to dump.
var ErrStartTooHigh = errors.New("chaindump: start index exceeds chain height")

// Dump writes count consecutive blocks starting at start to w, in the
// wire format VarUint(block-count) ‖ (VarUint(len) ‖ block-bytes)*.
func Dump(bc Ledger, w *io.BinWriter, start, count uint32) error {
	if start > bc.BlockHeight() {
		return ErrStartTooHigh
	}
	w.WriteVarUint(uint64(count))
	for i := start; i < start+count && w.Err == nil; i++ {
		b, err := bc.GetBlock(i)
		if err != nil {
			return err
		}
		raw := io.ToSerializable(b)
		w.WriteVarBytes(raw)
	}
	return w.Err
}

// Restore reads a dump produced by Dump, skipping the first skip blocks
// and applying up to count of the remainder via bc.AddBlock. onBlock, if
// non-nil, is called after each block is applied and can abort the
// restore early by returning a non-nil error.
func Restore(bc Ledger, r *io.BinReader, skip, count uint32, onBlock func(*block.Block) error) error {
	total := r.ReadVarUint()
	if r.Err != nil {
		return r.Err
	}
	if uint64(skip) > total {
		return errors.New("chaindump: skip exceeds dump size")
	}

	var i uint32
	for ; i < skip; i++ {
		raw := r.ReadVarBytes()
		if r.Err != nil {
			return r.Err
		}
		_ = raw
	}

	applied := uint32(0)
	for ; uint64(i) < total && applied < count; i++ {
		raw := r.ReadVarBytes()
		if r.Err != nil {
			return r.Err
		}
		b := &block.Block{}
		if err := io.FromSerializable(b, raw); err != nil {
			return err
		}
		if err := bc.AddBlock(b); err != nil {
			return err
		}
		applied++
		if onBlock != nil {
			if err := onBlock(b); err != nil {
				return err
			}
		}
	}
	return nil
}
