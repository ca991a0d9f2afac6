package chaindump

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3ledger/n3core/pkg/core/block"
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/util"
)

type fakeLedger struct {
	blocks []*block.Block
}

func (f *fakeLedger) GetBlock(index uint32) (*block.Block, error) {
	if index >= uint32(len(f.blocks)) {
		return nil, errors.New("fakeLedger: no such block")
	}
	return f.blocks[index], nil
}

func (f *fakeLedger) BlockHeight() uint32 {
	return uint32(len(f.blocks)) - 1
}

func (f *fakeLedger) AddBlock(b *block.Block) error {
	if b.Index() != uint32(len(f.blocks)) {
		return errors.New("fakeLedger: out of order block")
	}
	f.blocks = append(f.blocks, b)
	return nil
}

func newChain(n int) *fakeLedger {
	f := &fakeLedger{}
	prev := util.Uint256{}
	for i := 0; i < n; i++ {
		b := &block.Block{Header: block.Header{Index: uint32(i), PrevHash: prev}}
		f.blocks = append(f.blocks, b)
		prev = b.Hash()
	}
	return f
}

func TestDumpAndRestore(t *testing.T) {
	src := newChain(5)

	w := io.NewBufBinWriter()
	require.NoError(t, Dump(src, w.BinWriter, 0, src.BlockHeight()+1))
	require.NoError(t, w.Err)
	buf := w.Bytes()

	t.Run("skip exceeds dump size", func(t *testing.T) {
		dst := &fakeLedger{}
		r := io.NewBinReaderFromBuf(buf)
		require.Error(t, Restore(dst, r, 10, 1, nil))
	})

	t.Run("good", func(t *testing.T) {
		dst := &fakeLedger{}

		r := io.NewBinReaderFromBuf(buf)
		require.NoError(t, Restore(dst, r, 0, 2, nil))
		require.Equal(t, uint32(1), dst.BlockHeight())

		r = io.NewBinReaderFromBuf(buf)
		require.NoError(t, Restore(dst, r, 2, 1, nil))
		require.Equal(t, uint32(2), dst.BlockHeight())

		t.Run("check handler", func(t *testing.T) {
			var lastIndex uint32
			errStopped := errors.New("stopped")
			f := func(b *block.Block) error {
				lastIndex = b.Index()
				if b.Index() >= src.BlockHeight() {
					return errStopped
				}
				return nil
			}
			r = io.NewBinReaderFromBuf(buf)
			err := Restore(dst, r, 3, src.BlockHeight()-dst.BlockHeight(), f)
			require.True(t, errors.Is(err, errStopped))
			require.Equal(t, src.BlockHeight(), lastIndex)
		})
	})
}

func TestDumpInvalidStart(t *testing.T) {
	src := newChain(2)
	w := io.NewBufBinWriter()
	require.ErrorIs(t, Dump(src, w.BinWriter, 10, 1), ErrStartTooHigh)
}

func TestDumpRestoreCompressed(t *testing.T) {
	src := newChain(4)

	var buf bytes.Buffer
	require.NoError(t, DumpCompressed(src, &buf, 0, src.BlockHeight()+1))

	dst := &fakeLedger{}
	require.NoError(t, RestoreCompressed(dst, &buf, 0, src.BlockHeight()+1, nil))
	require.Equal(t, src.BlockHeight(), dst.BlockHeight())
}
