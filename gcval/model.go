// Package gcval is a minimal, self-contained object model and value
// representation used to exercise gc.Heap independently of any real
// bytecode interpreter or parser. It is deliberately tiny: a tagged word
// for values, and a one-word header for objects.
//
// Word layout:
//
//	value word:  bit 0 set   -> reference; remaining bits are an Address
//	             bit 0 clear -> literal; remaining bits are the payload
//
//	object header (first word of an object): bit 0 set   -> forwarding;
//	             remaining bits are the forwarding Address
//	                                          bit 0 clear -> remaining bits
//	             are the object's total size in words, header included
//
//	byte-array header (first word of the array): the total size in bytes,
//	             untagged — byte arrays have no forwarding header at all
package gcval

import "github.com/tusharsadhwani/goself/gc"

const wordSize = 8

// Model implements gc.ObjectModel and gc.ValueModel over the word layout
// described above.
type Model struct {
	finalizers map[gc.Address]func()
}

// NewModel returns a ready-to-use object/value model.
func NewModel() *Model {
	return &Model{finalizers: make(map[gc.Address]func())}
}

// --- gc.ValueModel ---

func (m *Model) IsReference(word uint64) bool {
	return word&1 == 1
}

func (m *Model) Address(word uint64) gc.Address {
	return gc.Address(word >> 1)
}

func (m *Model) FromAddress(addr gc.Address) uint64 {
	return (uint64(addr) << 1) | 1
}

// FromLiteral packs an ordinary integer payload as a non-reference value
// word.
func (m *Model) FromLiteral(v uint64) uint64 {
	return v << 1
}

// Literal unpacks a non-reference value word back into its payload.
func (m *Model) Literal(word uint64) uint64 {
	return word >> 1
}

// --- gc.ObjectModel ---

func (m *Model) SizeBytes(mem gc.Memory, addr gc.Address) int {
	header := mem.ReadWord(addr)
	if header&1 == 1 {
		panic("gcval: SizeBytes called on a forwarded object")
	}
	return int(header>>1) * wordSize
}

// ByteArraySizeBytes reads a byte array's header, which (unlike an
// object's) stores its total size in bytes directly and untagged — see
// the package doc.
func (m *Model) ByteArraySizeBytes(mem gc.Memory, addr gc.Address) int {
	return int(mem.ReadWord(addr))
}

func (m *Model) IsForwarding(mem gc.Memory, addr gc.Address) bool {
	return mem.ReadWord(addr)&1 == 1
}

func (m *Model) ForwardingAddress(mem gc.Memory, addr gc.Address) gc.Address {
	header := mem.ReadWord(addr)
	if header&1 != 1 {
		panic("gcval: ForwardingAddress called on a non-forwarded object")
	}
	return gc.Address(header >> 1)
}

func (m *Model) SetForwardingAddress(mem gc.Memory, addr gc.Address, to gc.Address) {
	mem.WriteWord(addr, (uint64(to)<<1)|1)
	if fn, ok := m.finalizers[addr]; ok {
		delete(m.finalizers, addr)
		m.finalizers[to] = fn
	}
}

func (m *Model) Finalize(mem gc.Memory, addr gc.Address) {
	if fn, ok := m.finalizers[addr]; ok {
		fn()
		delete(m.finalizers, addr)
	}
}

// SetFinalizer registers fn to run (via gc.ObjectModel.Finalize) if the
// object at addr is not evacuated by the next collection, or at heap
// teardown. Tests use this to observe finalizer-exactly-once behavior.
// gc.Heap has no equivalent registration method because real finalizer
// registration is the object model's job, not the heap's — the heap only
// calls Finalize.
func (m *Model) SetFinalizer(addr gc.Address, fn func()) {
	m.finalizers[addr] = fn
}

// --- object construction helpers, used by tests in place of a real
// bytecode interpreter ---

// NewObject allocates an object with the given number of pointer-sized
// slots (in addition to the header word) and zeroes them. It returns the
// object's address.
func NewObject(h *gc.Heap, numSlots int) (gc.Address, error) {
	totalWords := 1 + numSlots
	addr, err := h.AllocateObject(totalWords * wordSize)
	if err != nil {
		return gc.NullAddress, err
	}
	h.WriteWord(addr, uint64(totalWords)<<1)
	for i := 0; i < numSlots; i++ {
		h.WriteWord(addr+gc.Address((1+i)*wordSize), 0)
	}
	return addr, nil
}

// Slot reads object slot i (0-indexed, after the header word).
func Slot(h *gc.Heap, addr gc.Address, i int) uint64 {
	return h.ReadWord(addr + gc.Address((1+i)*wordSize))
}

// SetSlot writes object slot i (0-indexed, after the header word).
func SetSlot(h *gc.Heap, addr gc.Address, i int, word uint64) {
	h.WriteWord(addr+gc.Address((1+i)*wordSize), word)
}

// NewByteArray allocates a byte array holding data, prefixed with its own
// one-word length header.
func NewByteArray(h *gc.Heap, data []byte) (gc.Address, error) {
	total := wordSize + len(data)
	// round up to a word multiple
	if total%wordSize != 0 {
		total += wordSize - total%wordSize
	}
	addr, err := h.AllocateBytes(total)
	if err != nil {
		return gc.NullAddress, err
	}
	h.WriteWord(addr, uint64(total))
	for i, b := range data {
		writeByte(h, addr+gc.Address(wordSize+i), b)
	}
	return addr, nil
}

// Bytes reads back the payload written by NewByteArray.
func Bytes(h *gc.Heap, addr gc.Address, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = readByte(h, addr+gc.Address(wordSize+i))
	}
	return out
}

func readByte(h *gc.Heap, addr gc.Address) byte {
	wordAddr := addr - (addr % wordSize)
	shift := uint((addr % wordSize) * 8)
	return byte(h.ReadWord(wordAddr) >> shift)
}

func writeByte(h *gc.Heap, addr gc.Address, b byte) {
	wordAddr := addr - (addr % wordSize)
	shift := uint((addr % wordSize) * 8)
	word := h.ReadWord(wordAddr)
	mask := uint64(0xFF) << shift
	word = (word &^ mask) | (uint64(b) << shift)
	h.WriteWord(wordAddr, word)
}
