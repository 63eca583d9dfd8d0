// Package gc implements the managed heap of a Self-like, prototype-based
// language runtime: a generational, semi-space copying collector with a
// tenured old generation, precise root scanning via an activation stack and
// external handles, and a write barrier driven by per-space remembered
// sets.
//
// The object model, value representation, bytecode interpreter, and parser
// are external collaborators. This package only requires three small
// capabilities from them, described by the ObjectModel, ValueModel, and
// ActivationStack interfaces below.
package gc

import "fmt"

// wordSize is the machine word used for all alignment and scanning.
const wordSize = 8

// Address is a location in the heap's flat logical address space. It spans
// all four spaces; which space owns a given address is determined by range
// containment, not by any tag in the address itself.
type Address uint64

// NullAddress is never a valid object or byte-array address.
const NullAddress Address = 0

// Memory lets collaborators (and the collector itself) read and write heap
// words by address, without needing to know which space currently owns that
// address.
type Memory interface {
	ReadWord(addr Address) uint64
	WriteWord(addr Address, word uint64)
}

// ObjectModel is the header capability the collector requires from the
// external object model: given an object's starting address, report its
// total size in bytes, test whether its header holds a forwarding
// reference, read and write that forwarding address, and run its
// finalizer. Byte arrays share this capability for sizing, but have their
// own entry point (ByteArraySizeBytes) since their header is a raw byte
// count rather than a tagged object header — IsForwarding and
// SetForwardingAddress are never called for a byte-array address, because
// byte arrays carry no forwarding header at all.
type ObjectModel interface {
	SizeBytes(mem Memory, addr Address) int
	ByteArraySizeBytes(mem Memory, addr Address) int
	IsForwarding(mem Memory, addr Address) bool
	ForwardingAddress(mem Memory, addr Address) Address
	SetForwardingAddress(mem Memory, addr Address, to Address)
	Finalize(mem Memory, addr Address)
}

// ValueModel is the value-tag capability: test whether a word encodes a
// heap reference, extract its address, and rebuild a word from a new
// address.
type ValueModel interface {
	IsReference(word uint64) bool
	Address(word uint64) Address
	FromAddress(addr Address) uint64
}

// ActivationStack is the root enumeration capability: an activation stack
// exposing, per activation, a single root reference that the collector may
// read and overwrite.
type ActivationStack interface {
	Len() int
	Root(i int) uint64
	SetRoot(i int, word uint64)
}

func alignedSize(size int) error {
	if size <= 0 || size%wordSize != 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return nil
}
