package chaindump

import (
	stdio "io"

	"github.com/pierrec/lz4"

	"github.com/n3ledger/n3core/pkg/core/block"
	"github.com/n3ledger/n3core/pkg/io"
)

// DumpCompressed is Dump, but the block stream is wrapped in an lz4 frame
// before being written to w — useful for distributing an archive file
// where every byte saved matters, at the cost of the caller no longer
// being able to seek within it.
func DumpCompressed(bc Ledger, w stdio.Writer, start, count uint32) error {
	lzw := lz4.NewWriter(w)
	bw := io.NewBinWriterFromIO(lzw)
	if err := Dump(bc, bw, start, count); err != nil {
		return err
	}
	return lzw.Close()
}

// RestoreCompressed is Restore reading from an lz4-framed archive
// produced by DumpCompressed.
func RestoreCompressed(bc Ledger, r stdio.Reader, skip, count uint32, onBlock func(*block.Block) error) error {
	lzr := lz4.NewReader(r)
	br := io.NewBinReaderFromIO(lzr)
	return Restore(bc, br, skip, count, onBlock)
}
