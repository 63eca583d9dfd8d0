package gc

import (
	"encoding/binary"
	"fmt"
)

// scrubByte fills freshly allocated memory in debug builds so that
// uninitialized reads are easy to spot.
const scrubByte = 0xAB

// collector is implemented by Heap. A Space calls back into it to run a
// collection when it cannot satisfy an allocation on its own; the
// collection algorithm needs the full graph of spaces (scavenge/tenure
// targets, newer-generation links), which only Heap has.
type collector interface {
	collectGarbage(s *Space, required int) error
}

// Space is a contiguous byte region of fixed capacity with two bump
// pointers growing toward each other: an object segment from the low end,
// a byte-array segment from the high end. It owns its remembered set,
// finalization set, and tracked set, and knows its scavenge and tenure
// targets, if any.
type Space struct {
	name string
	gc   collector

	base Address
	buf  []byte

	objectCursor    Address // first free word of the object segment; grows up
	byteArrayCursor Address // first used word of the byte-array segment; grows down

	remembered   map[Address]int
	finalization map[Address]struct{}
	tracked      map[*handleCell]struct{}

	scavengeTarget *Space
	tenureTarget   *Space

	scribble bool
}

func newSpace(name string, base Address, capacity int, scribble bool) *Space {
	s := &Space{
		name:     name,
		base:     base,
		buf:      make([]byte, capacity),
		scribble: scribble,
	}
	s.resetLocked()
	return s
}

// resetLocked restores a space to empty: cursors at their start positions,
// auxiliary sets cleared. Named "Locked" only by convention with the
// teacher's internal helpers; this package has no concurrent access of its
// own to protect against.
func (s *Space) resetLocked() {
	s.objectCursor = s.base
	s.byteArrayCursor = s.base + Address(len(s.buf))
	s.remembered = make(map[Address]int)
	s.finalization = make(map[Address]struct{})
	s.tracked = make(map[*handleCell]struct{})
}

// Name reports the space's human-readable identity (e.g. "eden"). Identity
// follows the Space value, not the memory it currently owns (see swap).
func (s *Space) Name() string { return s.name }

// Capacity is the space's fixed total size in bytes.
func (s *Space) Capacity() int { return len(s.buf) }

// end is the address one past the last byte of the buffer.
func (s *Space) end() Address { return s.base + Address(len(s.buf)) }

// inRange reports whether addr falls anywhere within this space's buffer,
// free gap included. Used to find the owning space of an address, not to
// test liveness.
func (s *Space) inRange(addr Address) bool {
	return addr >= s.base && addr < s.end()
}

// ObjectSegmentContains reports whether p lies in the live object segment:
// buffer.start <= p < object_cursor.
func (s *Space) ObjectSegmentContains(p Address) bool {
	return p >= s.base && p < s.objectCursor
}

// ByteArraySegmentContains reports whether p lies in the live byte-array
// segment: byte_array_cursor <= p < buffer.end.
func (s *Space) ByteArraySegmentContains(p Address) bool {
	return p >= s.byteArrayCursor && p < s.end()
}

// freeObject is the free space, in bytes, available to the object segment
// (and, symmetrically, to the byte-array segment — the two share one free
// gap).
func (s *Space) freeObject() int {
	return int(s.byteArrayCursor - s.objectCursor)
}

// UsedObject is the number of bytes currently occupied by the object
// segment.
func (s *Space) UsedObject() int {
	return int(s.objectCursor - s.base)
}

// UsedByteArray is the number of bytes currently occupied by the
// byte-array segment.
func (s *Space) UsedByteArray() int {
	return int(s.end() - s.byteArrayCursor)
}

// Used is the total live bytes in the space, both segments combined. This
// is the "live set size" the evacuator compares against a target's free
// space.
func (s *Space) Used() int {
	return s.UsedObject() + s.UsedByteArray()
}

// Free is the space's combined free capacity (both segments draw from the
// same gap).
func (s *Space) Free() int {
	return s.freeObject()
}

func (s *Space) offsetOf(addr Address) int {
	return int(addr - s.base)
}

func (s *Space) readWord(addr Address) uint64 {
	off := s.offsetOf(addr)
	return binary.LittleEndian.Uint64(s.buf[off : off+wordSize])
}

func (s *Space) writeWord(addr Address, word uint64) {
	off := s.offsetOf(addr)
	binary.LittleEndian.PutUint64(s.buf[off:off+wordSize], word)
}

func (s *Space) scrubFill(addr Address, size int) {
	if !s.scribble {
		return
	}
	off := s.offsetOf(addr)
	for i := 0; i < size; i++ {
		s.buf[off+i] = scrubByte
	}
}

// AllocateObject bump-allocates size bytes in the object segment, running a
// collection first if there is not enough free space. size must be a
// positive multiple of the machine word.
func (s *Space) AllocateObject(size int) (Address, error) {
	if err := alignedSize(size); err != nil {
		return NullAddress, err
	}
	if s.freeObject() < size {
		if err := s.gc.collectGarbage(s, size); err != nil {
			return NullAddress, err
		}
	}
	if s.freeObject() < size {
		return NullAddress, fmt.Errorf("%w: %s needs %d bytes, has %d free", ErrObjectTooLarge, s.name, size, s.freeObject())
	}
	addr := s.objectCursor
	s.scrubFill(addr, size)
	s.objectCursor += Address(size)
	return addr, nil
}

// AllocateBytes bump-allocates size bytes in the byte-array segment, in the
// same manner as AllocateObject but growing the opposite segment.
func (s *Space) AllocateBytes(size int) (Address, error) {
	if err := alignedSize(size); err != nil {
		return NullAddress, err
	}
	if s.freeObject() < size {
		if err := s.gc.collectGarbage(s, size); err != nil {
			return NullAddress, err
		}
	}
	if s.freeObject() < size {
		return NullAddress, fmt.Errorf("%w: %s needs %d bytes, has %d free", ErrObjectTooLarge, s.name, size, s.freeObject())
	}
	addr := s.byteArrayCursor - Address(size)
	s.scrubFill(addr, size)
	s.byteArrayCursor = addr
	return addr, nil
}

// allocateObjectRaw bump-allocates without ever triggering a collection.
// It is used internally by the evacuator, which has already established
// that the destination has enough room for the whole source live set.
func (s *Space) allocateObjectRaw(size int) (Address, error) {
	if s.freeObject() < size {
		return NullAddress, fmt.Errorf("%w: %s", ErrSpaceExhausted, s.name)
	}
	addr := s.objectCursor
	s.objectCursor += Address(size)
	return addr, nil
}

// allocateBytesRaw is allocateObjectRaw's byte-array-segment counterpart.
func (s *Space) allocateBytesRaw(size int) (Address, error) {
	if s.freeObject() < size {
		return NullAddress, fmt.Errorf("%w: %s", ErrSpaceExhausted, s.name)
	}
	addr := s.byteArrayCursor - Address(size)
	s.byteArrayCursor = addr
	return addr, nil
}

// RememberReference inserts (addr, size) into the remembered set.
func (s *Space) RememberReference(addr Address, size int) {
	s.remembered[addr] = size
}

// ForgetReference removes addr from the remembered set. It is an error —
// a programming bug in the caller — to remove an address that was never
// remembered.
func (s *Space) ForgetReference(addr Address) error {
	if _, ok := s.remembered[addr]; !ok {
		return fmt.Errorf("%w: %v in %s remembered set", ErrNotInSet, addr, s.name)
	}
	delete(s.remembered, addr)
	return nil
}

// MarkFinalizable inserts addr into the finalization set.
func (s *Space) MarkFinalizable(addr Address) {
	s.finalization[addr] = struct{}{}
}

// UnmarkFinalizable removes addr from the finalization set.
func (s *Space) UnmarkFinalizable(addr Address) error {
	if _, ok := s.finalization[addr]; !ok {
		return fmt.Errorf("%w: %v in %s finalization set", ErrNotInSet, addr, s.name)
	}
	delete(s.finalization, addr)
	return nil
}

// trackCell inserts a handle cell into the tracked set.
func (s *Space) trackCell(c *handleCell) {
	s.tracked[c] = struct{}{}
}

// untrackCell removes a handle cell from the tracked set.
func (s *Space) untrackCell(c *handleCell) error {
	if _, ok := s.tracked[c]; !ok {
		return fmt.Errorf("%w: handle in %s tracked set", ErrNotInSet, s.name)
	}
	delete(s.tracked, c)
	return nil
}

// swap exchanges all identifying state (buffer, both cursors, and the three
// auxiliary sets) between s and other. Names and target pointers stay put:
// the identity "this is eden" follows the Space value, not the memory it
// currently owns.
func (s *Space) swap(other *Space) {
	s.buf, other.buf = other.buf, s.buf
	s.base, other.base = other.base, s.base
	s.objectCursor, other.objectCursor = other.objectCursor, s.objectCursor
	s.byteArrayCursor, other.byteArrayCursor = other.byteArrayCursor, s.byteArrayCursor
	s.remembered, other.remembered = other.remembered, s.remembered
	s.finalization, other.finalization = other.finalization, s.finalization
	s.tracked, other.tracked = other.tracked, s.tracked
}

// SpaceStats is a point-in-time snapshot of a space's occupancy, exposed
// for an embedding interpreter's introspection primitives.
type SpaceStats struct {
	Name          string
	Capacity      int
	ObjectUsed    int
	ObjectFree    int
	ByteArrayUsed int
}

// Stats snapshots the space's current occupancy.
func (s *Space) Stats() SpaceStats {
	return SpaceStats{
		Name:          s.name,
		Capacity:      s.Capacity(),
		ObjectUsed:    s.UsedObject(),
		ObjectFree:    s.freeObject(),
		ByteArrayUsed: s.UsedByteArray(),
	}
}

// Validate checks the invariants that can be verified without running a
// collection: cursor ordering and alignment, and that every auxiliary-set
// address lies within the expected segment. It is used only by tests.
func (s *Space) Validate() error {
	if s.base > s.objectCursor || s.objectCursor > s.byteArrayCursor || s.byteArrayCursor > s.end() {
		return fmt.Errorf("gc: %s cursors out of order: base=%v object=%v bytearray=%v end=%v",
			s.name, s.base, s.objectCursor, s.byteArrayCursor, s.end())
	}
	if (s.objectCursor-s.base)%wordSize != 0 {
		return fmt.Errorf("gc: %s object cursor misaligned", s.name)
	}
	if (s.end()-s.byteArrayCursor)%wordSize != 0 {
		return fmt.Errorf("gc: %s byte-array cursor misaligned", s.name)
	}
	for addr := range s.remembered {
		if !s.ObjectSegmentContains(addr) {
			return fmt.Errorf("gc: %s remembered-set address %v outside object segment", s.name, addr)
		}
	}
	for addr := range s.finalization {
		if !s.ObjectSegmentContains(addr) {
			return fmt.Errorf("gc: %s finalization-set address %v outside object segment", s.name, addr)
		}
	}
	for c := range s.tracked {
		if !s.ObjectSegmentContains(c.addr) && !s.ByteArraySegmentContains(c.addr) {
			return fmt.Errorf("gc: %s tracked handle at %v outside both segments", s.name, c.addr)
		}
	}
	return nil
}
