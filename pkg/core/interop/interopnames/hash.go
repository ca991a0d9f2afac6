package interopnames

import "github.com/n3ledger/n3core/pkg/crypto/hash"

// idFromName hashes name to a syscall id using the first four bytes of
// Hash256, the same binding the VM's SYSCALL operand encodes.
func idFromName(name string) uint32 {
	h := hash.Hash256([]byte(name))
	return uint32(h[0]) | uint32(h[1])<<8 | uint32(h[2])<<16 | uint32(h[3])<<24
}
