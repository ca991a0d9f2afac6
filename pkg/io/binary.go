// Package io implements the binary wire/storage codec shared by every
// serialisable type in the core: fixed-width little-endian integers plus
// Bitcoin-style VarInt/VarString/VarBytes framing.
package io

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// Serializable is implemented by every wire/storage type in the core.
type Serializable interface {
	EncodeBinary(w *BinWriter)
	DecodeBinary(r *BinReader)
}

// ErrTooLarge is returned when a VarInt-prefixed length exceeds a sane bound.
var ErrTooLarge = errors.New("io: length prefix too large")

// maxArraySize bounds VarUint-prefixed collections against a single
// malicious length field forcing an oversized allocation.
const maxArraySize = 0x1000000

// BinReader wraps io.Reader with little-endian fixed-width reads and the
// VarInt family, sticking on the first error so call sites can chain reads
// and check Err once at the end.
type BinReader struct {
	r   io.Reader
	Err error
}

// NewBinReaderFromBuf creates a BinReader over an in-memory buffer.
func NewBinReaderFromBuf(b []byte) *BinReader {
	return &BinReader{r: bytes.NewReader(b)}
}

// NewBinReaderFromIO creates a BinReader over an arbitrary io.Reader.
func NewBinReaderFromIO(r io.Reader) *BinReader {
	return &BinReader{r: r}
}

func (r *BinReader) readBytes(n int) []byte {
	if r.Err != nil {
		return nil
	}
	buf := make([]byte, n)
	_, err := io.ReadFull(r.r, buf)
	if err != nil {
		r.Err = err
		return nil
	}
	return buf
}

// ReadB reads a single byte.
func (r *BinReader) ReadB() byte {
	b := r.readBytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// ReadBool reads a boolean as a single byte.
func (r *BinReader) ReadBool() bool {
	return r.ReadB() != 0
}

// ReadU16LE reads a little-endian uint16.
func (r *BinReader) ReadU16LE() uint16 {
	b := r.readBytes(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// ReadU32LE reads a little-endian uint32.
func (r *BinReader) ReadU32LE() uint32 {
	b := r.readBytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// ReadU64LE reads a little-endian uint64.
func (r *BinReader) ReadU64LE() uint64 {
	b := r.readBytes(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// ReadI64LE reads a little-endian int64.
func (r *BinReader) ReadI64LE() int64 {
	return int64(r.ReadU64LE())
}

// ReadBytes reads exactly n bytes.
func (r *BinReader) ReadBytes(n int) []byte {
	return r.readBytes(n)
}

// ReadVarUint reads a Bitcoin-style VarInt: values below 0xFD are encoded
// directly, 0xFD prefixes a uint16, 0xFE a uint32, 0xFF a uint64.
func (r *BinReader) ReadVarUint() uint64 {
	b := r.ReadB()
	switch b {
	case 0xFD:
		return uint64(r.ReadU16LE())
	case 0xFE:
		return uint64(r.ReadU32LE())
	case 0xFF:
		return r.ReadU64LE()
	default:
		return uint64(b)
	}
}

// ReadVarBytes reads a VarInt-prefixed byte slice.
func (r *BinReader) ReadVarBytes(maxSize ...int) []byte {
	n := r.ReadVarUint()
	limit := uint64(maxArraySize)
	if len(maxSize) > 0 {
		limit = uint64(maxSize[0])
	}
	if n > limit {
		r.Err = ErrTooLarge
		return nil
	}
	return r.readBytes(int(n))
}

// ReadVarString reads a VarInt-prefixed UTF-8 string.
func (r *BinReader) ReadVarString(maxSize ...int) string {
	return string(r.ReadVarBytes(maxSize...))
}

// ReadArray decodes n Serializable items via the provided factory.
func ReadArray[T Serializable](r *BinReader, newItem func() T, maxSize ...int) []T {
	n := r.ReadVarUint()
	limit := uint64(maxArraySize)
	if len(maxSize) > 0 {
		limit = uint64(maxSize[0])
	}
	if n > limit {
		r.Err = ErrTooLarge
		return nil
	}
	out := make([]T, 0, n)
	for i := uint64(0); i < n && r.Err == nil; i++ {
		item := newItem()
		item.DecodeBinary(r)
		out = append(out, item)
	}
	return out
}

// BinWriter wraps io.Writer with little-endian fixed-width writes and the
// VarInt family, sticking on the first error.
type BinWriter struct {
	w   io.Writer
	Err error
}

// NewBinWriterFromIO creates a BinWriter over an arbitrary io.Writer.
func NewBinWriterFromIO(w io.Writer) *BinWriter {
	return &BinWriter{w: w}
}

func (w *BinWriter) writeBytes(b []byte) {
	if w.Err != nil {
		return
	}
	_, w.Err = w.w.Write(b)
}

// WriteB writes a single byte.
func (w *BinWriter) WriteB(b byte) {
	w.writeBytes([]byte{b})
}

// WriteBool writes a boolean as a single byte.
func (w *BinWriter) WriteBool(b bool) {
	if b {
		w.WriteB(1)
	} else {
		w.WriteB(0)
	}
}

// WriteU16LE writes a little-endian uint16.
func (w *BinWriter) WriteU16LE(v uint16) {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	w.writeBytes(b)
}

// WriteU32LE writes a little-endian uint32.
func (w *BinWriter) WriteU32LE(v uint32) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	w.writeBytes(b)
}

// WriteU64LE writes a little-endian uint64.
func (w *BinWriter) WriteU64LE(v uint64) {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	w.writeBytes(b)
}

// WriteI64LE writes a little-endian int64.
func (w *BinWriter) WriteI64LE(v int64) {
	w.WriteU64LE(uint64(v))
}

// WriteBytes writes a raw byte slice with no length prefix.
func (w *BinWriter) WriteBytes(b []byte) {
	w.writeBytes(b)
}

// WriteVarUint writes v using the VarInt encoding.
func (w *BinWriter) WriteVarUint(v uint64) {
	switch {
	case v < 0xFD:
		w.WriteB(byte(v))
	case v <= 0xFFFF:
		w.WriteB(0xFD)
		w.WriteU16LE(uint16(v))
	case v <= 0xFFFFFFFF:
		w.WriteB(0xFE)
		w.WriteU32LE(uint32(v))
	default:
		w.WriteB(0xFF)
		w.WriteU64LE(v)
	}
}

// WriteVarBytes writes a VarInt-prefixed byte slice.
func (w *BinWriter) WriteVarBytes(b []byte) {
	w.WriteVarUint(uint64(len(b)))
	w.writeBytes(b)
}

// WriteVarString writes a VarInt-prefixed UTF-8 string.
func (w *BinWriter) WriteVarString(s string) {
	w.WriteVarBytes([]byte(s))
}

// WriteArray encodes a slice of Serializable items, VarInt-prefixed.
func WriteArray[T Serializable](w *BinWriter, items []T) {
	w.WriteVarUint(uint64(len(items)))
	for _, item := range items {
		item.EncodeBinary(w)
	}
}

// BufBinWriter combines a BinWriter with its own growable backing buffer,
// convenient for one-shot serialisation (`io.NewBufBinWriter().Bytes()`).
type BufBinWriter struct {
	*BinWriter
	buf *bytes.Buffer
}

// NewBufBinWriter creates a BufBinWriter backed by a fresh buffer.
func NewBufBinWriter() *BufBinWriter {
	buf := new(bytes.Buffer)
	return &BufBinWriter{BinWriter: NewBinWriterFromIO(buf), buf: buf}
}

// Len returns the number of bytes written so far.
func (w *BufBinWriter) Len() int {
	return w.buf.Len()
}

// Bytes returns the accumulated bytes.
func (w *BufBinWriter) Bytes() []byte {
	return w.buf.Bytes()
}

// Reset clears the buffer and any sticky error so the writer can be reused.
func (w *BufBinWriter) Reset() {
	w.buf.Reset()
	w.BinWriter.Err = nil
}

// ToSerializable serialises any Serializable into a fresh byte slice.
func ToSerializable(s Serializable) []byte {
	w := NewBufBinWriter()
	s.EncodeBinary(w.BinWriter)
	return w.Bytes()
}

// FromSerializable deserialises b into s, returning the first decode error.
func FromSerializable(s Serializable, b []byte) error {
	r := NewBinReaderFromBuf(b)
	s.DecodeBinary(r)
	return r.Err
}
