package vm

import (
	"math/big"

	"github.com/n3ledger/n3core/pkg/vm/stackitem"
)

// Stack is a LIFO sequence of stack items backed by a shared RefCounter so
// the VM can enforce spec §4.1's total-item limit on the one evaluation
// stack every frame shares; slot contents are not counted.
type Stack struct {
	elems []stackitem.Item
	refs  *stackitem.RefCounter
}

// NewStack creates an empty stack tracked by refs.
func NewStack(refs *stackitem.RefCounter) *Stack {
	return &Stack{refs: refs}
}

// Len returns the number of items currently on the stack.
func (s *Stack) Len() int { return len(s.elems) }

// Push adds an item to the top, enforcing the reference-counter limit.
func (s *Stack) Push(i stackitem.Item) error {
	if !s.refs.Add(i) {
		return ErrRefCounterLimit
	}
	s.elems = append(s.elems, i)
	return nil
}

// PushVal is a convenience wrapper around Push(stackitem.Make(v)).
func (s *Stack) PushVal(v interface{}) error {
	return s.Push(stackitem.Make(v))
}

// Pop removes and returns the top item.
func (s *Stack) Pop() stackitem.Item {
	if len(s.elems) == 0 {
		panic(ErrStackUnderflow)
	}
	i := s.elems[len(s.elems)-1]
	s.elems = s.elems[:len(s.elems)-1]
	s.refs.Remove(i)
	return i
}

// Peek returns the item n positions from the top without removing it (n=0
// is the top element).
func (s *Stack) Peek(n int) stackitem.Item {
	idx := len(s.elems) - 1 - n
	if idx < 0 || idx >= len(s.elems) {
		panic(ErrStackUnderflow)
	}
	return s.elems[idx]
}

// RemoveAt removes and returns the item n positions from the top.
func (s *Stack) RemoveAt(n int) stackitem.Item {
	idx := len(s.elems) - 1 - n
	if idx < 0 || idx >= len(s.elems) {
		panic(ErrStackUnderflow)
	}
	i := s.elems[idx]
	s.elems = append(s.elems[:idx], s.elems[idx+1:]...)
	s.refs.Remove(i)
	return i
}

// InsertAt inserts i so that it ends up n positions from the top.
func (s *Stack) InsertAt(i stackitem.Item, n int) error {
	if !s.refs.Add(i) {
		return ErrRefCounterLimit
	}
	idx := len(s.elems) - n
	if idx < 0 || idx > len(s.elems) {
		return ErrStackUnderflow
	}
	s.elems = append(s.elems, nil)
	copy(s.elems[idx+1:], s.elems[idx:])
	s.elems[idx] = i
	return nil
}

// Clear empties the stack, releasing every tracked item.
func (s *Stack) Clear() {
	for _, i := range s.elems {
		s.refs.Remove(i)
	}
	s.elems = nil
}

// PopBigInt pops and converts the top item to a big.Int.
func (s *Stack) PopBigInt() *big.Int {
	v, err := s.Pop().TryInteger()
	if err != nil {
		panic(err)
	}
	return v
}

// PopBool pops and converts the top item to a bool.
func (s *Stack) PopBool() bool {
	return s.Pop().Bool()
}

// PopBytes pops and converts the top item to bytes.
func (s *Stack) PopBytes() []byte {
	b, err := s.Pop().TryBytes()
	if err != nil {
		panic(err)
	}
	return b
}

// Swap exchanges the top item with the item n positions from the top.
func (s *Stack) Swap(n int) {
	i := len(s.elems) - 1
	j := i - n
	if j < 0 {
		panic(ErrStackUnderflow)
	}
	s.elems[i], s.elems[j] = s.elems[j], s.elems[i]
}

// Roll moves the item n positions from the top to the top, shifting the
// items above it down by one.
func (s *Stack) Roll(n int) {
	if n == 0 {
		return
	}
	idx := len(s.elems) - 1 - n
	if idx < 0 {
		panic(ErrStackUnderflow)
	}
	item := s.elems[idx]
	s.elems = append(s.elems[:idx], s.elems[idx+1:]...)
	s.elems = append(s.elems, item)
}

// ReverseTop reverses the order of the top n items in place.
func (s *Stack) ReverseTop(n int) {
	if n < 2 {
		return
	}
	if n > len(s.elems) {
		panic(ErrStackUnderflow)
	}
	start := len(s.elems) - n
	for i, j := start, len(s.elems)-1; i < j; i, j = i+1, j-1 {
		s.elems[i], s.elems[j] = s.elems[j], s.elems[i]
	}
}

// Items returns the stack contents top-first, for serialisation to RPC
// results or debugging.
func (s *Stack) Items() []stackitem.Item {
	out := make([]stackitem.Item, len(s.elems))
	for i := range s.elems {
		out[i] = s.elems[len(s.elems)-1-i]
	}
	return out
}
