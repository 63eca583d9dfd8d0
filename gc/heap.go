package gc

import "fmt"

// Heap is the top-level composition of eden, from-space, to-space,
// old-space, and the handle table. It chooses which space to allocate
// into, wires the scavenge/tenure target graph, and services mutator
// requests.
type Heap struct {
	old  *Space
	from *Space
	to   *Space
	eden *Space

	handles []*handleCell // append-only arena; never shrinks

	activationStack ActivationStack
	objects         ObjectModel
	values          ValueModel

	config HeapConfig
}

// NewHeap constructs a heap with the given configuration and object-model
// capabilities. Spaces are created in fixed order — old, from, to, eden —
// and wired into the canonical three-space generation shape: eden tenures
// into from-space; from-space scavenges into to-space and tenures into
// old-space; old-space and to-space have no targets of their own.
func NewHeap(cfg HeapConfig, objects ObjectModel, values ValueModel) (*Heap, error) {
	if cfg.EdenSize <= 0 || cfg.SemiSpaceSize <= 0 || cfg.OldSpaceSize <= 0 {
		return nil, fmt.Errorf("%w: all heap sizes must be positive", ErrInvalidSize)
	}

	h := &Heap{objects: objects, values: values, config: cfg}

	base := Address(wordSize) // keep NullAddress (0) out of every space's range
	h.old = newSpace("old", base, cfg.OldSpaceSize, cfg.DebugScribble)
	base += Address(cfg.OldSpaceSize)
	h.from = newSpace("from", base, cfg.SemiSpaceSize, cfg.DebugScribble)
	base += Address(cfg.SemiSpaceSize)
	h.to = newSpace("to", base, cfg.SemiSpaceSize, cfg.DebugScribble)
	base += Address(cfg.SemiSpaceSize)
	h.eden = newSpace("eden", base, cfg.EdenSize, cfg.DebugScribble)

	for _, s := range []*Space{h.old, h.from, h.to, h.eden} {
		s.gc = h
	}

	h.eden.tenureTarget = h.from
	h.from.scavengeTarget = h.to
	h.from.tenureTarget = h.old

	return h, nil
}

// spaces returns the four spaces in eden, from, to, old order; used for
// iteration (address lookup, stats).
func (h *Heap) spaces() [4]*Space {
	return [4]*Space{h.eden, h.from, h.to, h.old}
}

func (h *Heap) spaceContaining(addr Address) (*Space, error) {
	for _, s := range h.spaces() {
		if s.inRange(addr) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownSpace, addr)
}

// ReadWord and WriteWord implement Memory by dispatching to whichever
// space's buffer currently owns addr. The object model and value model use
// these (via the Memory argument they're called with) to read and write
// headers and slots without needing to know about spaces at all.
func (h *Heap) ReadWord(addr Address) uint64 {
	s, err := h.spaceContaining(addr)
	if err != nil {
		panic(err)
	}
	return s.readWord(addr)
}

func (h *Heap) WriteWord(addr Address, word uint64) {
	s, err := h.spaceContaining(addr)
	if err != nil {
		panic(err)
	}
	s.writeWord(addr, word)
}

// AllocateObject allocates size_bytes in eden's object segment, triggering
// a collection if eden cannot satisfy the request. size must be a positive
// multiple of the word size.
func (h *Heap) AllocateObject(sizeBytes int) (Address, error) {
	return h.eden.AllocateObject(sizeBytes)
}

// AllocateBytes allocates size_bytes in eden's byte-array segment, under
// the same contract as AllocateObject.
func (h *Heap) AllocateBytes(sizeBytes int) (Address, error) {
	return h.eden.AllocateBytes(sizeBytes)
}

// EnsureSpaceInEden forces a collection if eden cannot satisfy sizeBytes,
// so that a subsequent composite allocation sequence is guaranteed not to
// collect mid-sequence.
func (h *Heap) EnsureSpaceInEden(sizeBytes int) error {
	if h.eden.freeObject() >= sizeBytes {
		return nil
	}
	return h.collectGarbage(h.eden, sizeBytes)
}

// MarkNeedsFinalization inserts addr into eden's finalization set. Its
// precondition is that addr is in eden's object segment — it must be
// called immediately after allocation, while the address is still in
// eden.
func (h *Heap) MarkNeedsFinalization(addr Address) {
	if !h.eden.ObjectSegmentContains(addr) {
		panic(fmt.Errorf("gc: MarkNeedsFinalization: %v is not in eden's object segment", addr))
	}
	h.eden.MarkFinalizable(addr)
}

// SetActivationStack installs (or, with nil, removes) the activation stack
// the root phase reads from during a collection.
func (h *Heap) SetActivationStack(stack ActivationStack) {
	h.activationStack = stack
}

// Track returns a Tracked handle for value. Non-reference literals are
// stored inline; references allocate a new handle cell in the arena,
// register it with the space that currently contains the referent, and
// return a Tracked that refers to the cell.
func (h *Heap) Track(value uint64) (Tracked, error) {
	if !h.values.IsReference(value) {
		return Tracked{isRef: false, value: value}, nil
	}
	addr := h.values.Address(value)
	owner, err := h.spaceOfLiveAddress(addr)
	if err != nil {
		return Tracked{}, err
	}
	cell := &handleCell{addr: addr}
	owner.trackCell(cell)
	h.handles = append(h.handles, cell)
	return Tracked{isRef: true, cell: cell}, nil
}

// Untrack releases t. It is a no-op for literals; for references, it finds
// the cell's current owning space and removes it from that space's tracked
// set.
func (h *Heap) Untrack(t Tracked) error {
	if !t.isRef {
		return nil
	}
	owner, err := h.spaceOfLiveAddress(t.cell.addr)
	if err != nil {
		return err
	}
	if err := owner.untrackCell(t.cell); err != nil {
		panic(err)
	}
	return nil
}

// Get dereferences t: for references, it reads the cell's current address
// through the value model; for literals, it returns the stored value
// unchanged.
func (h *Heap) Get(t Tracked) uint64 {
	if !t.isRef {
		return t.value
	}
	return h.values.FromAddress(t.cell.addr)
}

// spaceOfLiveAddress searches eden, from, to, old (in that order) for the
// space whose live object or byte-array segment currently contains addr.
func (h *Heap) spaceOfLiveAddress(addr Address) (*Space, error) {
	for _, s := range h.spaces() {
		if s.ObjectSegmentContains(addr) || s.ByteArraySegmentContains(addr) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownSpace, addr)
}

// collectGarbage implements the collector interface Space calls back into,
// and is also used directly by EnsureSpaceInEden.
func (h *Heap) collectGarbage(s *Space, required int) error {
	return h.collectGarbageWithLink(s, required, nil)
}

// collectGarbageWithLink implements the collection policy for space s:
// scavenge first if s has a scavenge target, then tenure if that still
// isn't enough, threading a newer-generation link through any recursive
// collection of s's targets.
func (h *Heap) collectGarbageWithLink(s *Space, required int, newer *genLink) error {
	if s.freeObject() >= required {
		return nil
	}
	if s.scavengeTarget != nil {
		if err := h.evacuate(s, s.scavengeTarget, newer); err != nil {
			return err
		}
		s.swap(s.scavengeTarget)
		if s.freeObject() >= required {
			return nil
		}
	}
	if s.tenureTarget != nil {
		return h.evacuate(s, s.tenureTarget, newer)
	}
	return fmt.Errorf("%w: %s", ErrSpaceExhausted, s.name)
}

// Stats snapshots every space's current occupancy.
func (h *Heap) Stats() map[string]SpaceStats {
	out := make(map[string]SpaceStats, 4)
	for _, s := range h.spaces() {
		out[s.name] = s.Stats()
	}
	return out
}

// Close tears the heap down: spaces are destroyed in reverse construction
// order (eden, to, from, old), running every finalizer still outstanding
// in each space's finalization set.
func (h *Heap) Close() {
	for _, s := range []*Space{h.eden, h.to, h.from, h.old} {
		for addr := range s.finalization {
			h.objects.Finalize(h, addr)
		}
		s.finalization = make(map[Address]struct{})
	}
}
