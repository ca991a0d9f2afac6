// Package nef implements the NEF (Neo Executable Format) container that
// wraps a compiled contract script together with its compiler identity,
// source pointer, and the method tokens it references (spec §4.2).
package nef

import (
	"bytes"
	"errors"

	"github.com/n3ledger/n3core/pkg/crypto/hash"
	"github.com/n3ledger/n3core/pkg/io"
	"github.com/n3ledger/n3core/pkg/util"
)

// Magic is the fixed 4-byte NEF file signature ("NEF3").
const Magic uint32 = 0x3346454E

const (
	maxCompilerLen = 64
	maxSourceLen   = 256
	maxScriptLen   = 1024 * 1024
)

var (
	ErrInvalidMagic    = errors.New("nef: invalid magic")
	ErrInvalidChecksum = errors.New("nef: checksum mismatch")
	ErrFieldTooLong    = errors.New("nef: field exceeds maximum length")
)

// MethodToken references an external contract method a script may CALLT
// into, resolved by the loader at load time rather than hard-coded by
// script hash.
type MethodToken struct {
	Hash       util.Uint160
	Method     string
	ParamCount uint16
	HasReturn  bool
	CallFlag   byte
}

// EncodeBinary implements io.Serializable.
func (t *MethodToken) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(t.Hash.BytesLE())
	w.WriteVarString(t.Method)
	w.WriteU16LE(t.ParamCount)
	w.WriteBool(t.HasReturn)
	w.WriteB(t.CallFlag)
}

// DecodeBinary implements io.Serializable.
func (t *MethodToken) DecodeBinary(r *io.BinReader) {
	b := r.ReadBytes(20)
	t.Hash, _ = util.Uint160DecodeBytesLE(b)
	t.Method = r.ReadVarString()
	t.ParamCount = r.ReadU16LE()
	t.HasReturn = r.ReadBool()
	t.CallFlag = r.ReadB()
}

// File is a parsed NEF container.
type File struct {
	Compiler string
	Source   string
	Tokens   []MethodToken
	Script   []byte
	Checksum uint32
}

// NewFile builds a File and computes its checksum, ready for storage.
func NewFile(compiler, source string, tokens []MethodToken, script []byte) (*File, error) {
	if len(compiler) > maxCompilerLen || len(source) > maxSourceLen || len(script) > maxScriptLen {
		return nil, ErrFieldTooLong
	}
	f := &File{Compiler: compiler, Source: source, Tokens: tokens, Script: script}
	f.Checksum = f.computeChecksum()
	return f, nil
}

// computeChecksum hashes every field but the checksum itself.
func (f *File) computeChecksum() uint32 {
	w := io.NewBufBinWriter()
	f.encodeWithoutChecksum(w.BinWriter)
	return hash.Checksum(w.Bytes())
}

func (f *File) encodeWithoutChecksum(w *io.BinWriter) {
	w.WriteU32LE(Magic)
	w.WriteBytes(padString(f.Compiler, maxCompilerLen))
	w.WriteBytes(padString(f.Source, maxSourceLen))
	w.WriteB(0) // reserved
	io.WriteArray(w, tokenPtrs(f.Tokens))
	w.WriteU16LE(0) // reserved
	w.WriteVarBytes(f.Script)
}

func tokenPtrs(tokens []MethodToken) []*MethodToken {
	out := make([]*MethodToken, len(tokens))
	for i := range tokens {
		out[i] = &tokens[i]
	}
	return out
}

func padString(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

// EncodeBinary implements io.Serializable.
func (f *File) EncodeBinary(w *io.BinWriter) {
	f.encodeWithoutChecksum(w)
	w.WriteU32LE(f.Checksum)
}

// DecodeBinary implements io.Serializable, validating the magic and
// checksum before accepting the file.
func (f *File) DecodeBinary(r *io.BinReader) {
	magic := r.ReadU32LE()
	if magic != Magic {
		r.Err = ErrInvalidMagic
		return
	}
	compiler := r.ReadBytes(maxCompilerLen)
	source := r.ReadBytes(maxSourceLen)
	r.ReadB() // reserved
	tokens := io.ReadArray(r, func() *MethodToken { return &MethodToken{} })
	r.ReadU16LE() // reserved
	script := r.ReadVarBytes(maxScriptLen)
	checksum := r.ReadU32LE()
	if r.Err != nil {
		return
	}
	f.Compiler = string(bytes.TrimRight(compiler, "\x00"))
	f.Source = string(bytes.TrimRight(source, "\x00"))
	f.Tokens = make([]MethodToken, len(tokens))
	for i, t := range tokens {
		f.Tokens[i] = *t
	}
	f.Script = script
	f.Checksum = checksum
	if f.computeChecksum() != checksum {
		r.Err = ErrInvalidChecksum
	}
}
