package payload

import "github.com/n3ledger/n3core/pkg/io"

// Empty is the payload body for commands that carry no data beyond the
// frame header (Verack, GetAddr, Mempool).
type Empty struct{}

// EncodeBinary implements io.Serializable.
func (e *Empty) EncodeBinary(w *io.BinWriter) {}

// DecodeBinary implements io.Serializable.
func (e *Empty) DecodeBinary(r *io.BinReader) {}
