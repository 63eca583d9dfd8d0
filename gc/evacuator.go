package gc

import "fmt"

// genLink is a stack-allocated cons list of newer-generation (younger)
// spaces, threaded through a recursive collection so that references from
// a younger space into the space currently being evacuated stay consistent.
type genLink struct {
	space *Space
	next  *genLink
}

// evacuate moves src's live set into dst. Before starting, it verifies
// that src's live set fits in dst's free space; if not, it recursively
// collects dst, passing src as a newer-generation link. Every evacuation
// below refers to the same dst across the whole collection, so forwarding
// addresses installed early (root phase) are still valid when later phases
// (remembered set, newer-generation, Cheney scan) encounter the same
// source object again — this is what gives forwarding-address idempotence.
func (h *Heap) evacuate(src, dst *Space, newer *genLink) error {
	if src.Used() > dst.Free() {
		if err := h.collectGarbageWithLink(dst, src.Used(), &genLink{space: src, next: newer}); err != nil {
			return err
		}
		if src.Used() > dst.Free() {
			return fmt.Errorf("%w: %s cannot hold live set of %s (%d bytes needed, %d free)",
				ErrUnsatisfiableTenure, dst.name, src.name, src.Used(), dst.Free())
		}
	}

	ec := &evacContext{heap: h, src: src, dst: dst}

	// Scan cursor for phase 5 starts where T's allocation cursor stands
	// right now, before any root is copied in. Root and handle phases below
	// advance T's allocation cursor past this point; the Cheney loop then
	// walks from here up to wherever the allocation cursor ends up,
	// discovering every object those phases copied in along with anything
	// reachable from them.
	scanStart := dst.objectCursor

	// 1. Root phase: activation stack.
	if h.activationStack != nil {
		for i := 0; i < h.activationStack.Len(); i++ {
			word := h.activationStack.Root(i)
			if !h.values.IsReference(word) {
				continue
			}
			addr := h.values.Address(word)
			switch {
			case src.ObjectSegmentContains(addr):
				newAddr := ec.evacuateObject(addr)
				h.activationStack.SetRoot(i, h.values.FromAddress(newAddr))
			case src.ByteArraySegmentContains(addr):
				size := h.objects.ByteArraySizeBytes(h, addr)
				newAddr := ec.evacuateBytes(addr, size)
				h.activationStack.SetRoot(i, h.values.FromAddress(newAddr))
			}
		}
	}

	// 2. Root phase: tracked handles.
	cells := make([]*handleCell, 0, len(src.tracked))
	for c := range src.tracked {
		cells = append(cells, c)
	}
	for _, c := range cells {
		var newAddr Address
		switch {
		case src.ObjectSegmentContains(c.addr):
			newAddr = ec.evacuateObject(c.addr)
		case src.ByteArraySegmentContains(c.addr):
			size := h.objects.ByteArraySizeBytes(h, c.addr)
			newAddr = ec.evacuateBytes(c.addr, size)
		default:
			panic(fmt.Errorf("gc: tracked handle at %v is outside %s's live segments", c.addr, src.name))
		}
		c.addr = newAddr
		delete(src.tracked, c)
		dst.tracked[c] = struct{}{}
	}

	// 3. Remembered-set phase: fix up objects in other spaces that
	// reference into S.
	for addr, size := range src.remembered {
		found := ec.scanRange(addr, Address(size))
		if !found {
			panic(fmt.Errorf("%w: referrer %v (%d bytes) recorded against %s", ErrStaleRememberedSet, addr, size, src.name))
		}
		dst.remembered[addr] = size
	}

	// 4. Newer-generation phase: fix up references from younger spaces
	// that are not themselves being collected right now.
	for l := newer; l != nil; l = l.next {
		ns := l.space
		ec.scanRange(ns.base, ns.objectCursor-ns.base)
	}

	// 5. Cheney scan loop over T's newly copied objects.
	scan := scanStart
	for scan < dst.objectCursor {
		word := h.ReadWord(scan)
		if h.values.IsReference(word) {
			refAddr := h.values.Address(word)
			switch {
			case src.ObjectSegmentContains(refAddr):
				newAddr := ec.evacuateObject(refAddr)
				h.WriteWord(scan, h.values.FromAddress(newAddr))
			case src.ByteArraySegmentContains(refAddr):
				size := h.objects.ByteArraySizeBytes(h, refAddr)
				newAddr := ec.evacuateBytes(refAddr, size)
				h.WriteWord(scan, h.values.FromAddress(newAddr))
			}
		}
		scan += wordSize
	}

	// 6. Finalization phase: anything still in S's finalization set did
	// not survive (survivors were moved to T's set in evacuateObject).
	for addr := range src.finalization {
		h.objects.Finalize(h, addr)
	}

	// 7. Remembered-set fixup in newer generations.
	for l := newer; l != nil; l = l.next {
		ns := l.space
		snapshot := make(map[Address]int, len(ns.remembered))
		for a, n := range ns.remembered {
			snapshot[a] = n
		}
		for a, n := range snapshot {
			if !src.ObjectSegmentContains(a) {
				continue
			}
			if h.objects.IsForwarding(h, a) {
				newAddr := h.objects.ForwardingAddress(h, a)
				delete(ns.remembered, a)
				ns.remembered[newAddr] = n
			} else {
				delete(ns.remembered, a)
			}
		}
	}

	// 8. Reset: S is now empty.
	src.resetLocked()
	return nil
}

// evacContext carries the (src, dst) pair through one evacuation so the
// scanning helpers below don't need to thread them as parameters.
type evacContext struct {
	heap     *Heap
	src, dst *Space
}

// scanRange scans [addr, addr+size) word by word, evacuating any reference
// into ec.src and rewriting the word in place. It reports whether at least
// one such reference was found, which callers use to catch stale
// remembered-set entries.
func (ec *evacContext) scanRange(addr, size Address) bool {
	h := ec.heap
	found := false
	for w := addr; w < addr+size; w += wordSize {
		word := h.ReadWord(w)
		if !h.values.IsReference(word) {
			continue
		}
		refAddr := h.values.Address(word)
		switch {
		case ec.src.ObjectSegmentContains(refAddr):
			newAddr := ec.evacuateObject(refAddr)
			h.WriteWord(w, h.values.FromAddress(newAddr))
			found = true
		case ec.src.ByteArraySegmentContains(refAddr):
			sz := h.objects.ByteArraySizeBytes(h, refAddr)
			newAddr := ec.evacuateBytes(refAddr, sz)
			h.WriteWord(w, h.values.FromAddress(newAddr))
			found = true
		}
	}
	return found
}

// evacuateObject evacuates an address in the object segment. If
// the header already encodes a forwarding reference, the earlier
// destination is returned unchanged — this is what makes evacuating the
// same address twice in one collection idempotent. Otherwise the object is
// copied, its header is overwritten with a forwarding reference, and a
// pending finalizer entry (if any) follows it to the destination.
func (ec *evacContext) evacuateObject(addr Address) Address {
	h := ec.heap
	if h.objects.IsForwarding(h, addr) {
		return h.objects.ForwardingAddress(h, addr)
	}
	size := h.objects.SizeBytes(h, addr)
	newAddr, err := ec.dst.allocateObjectRaw(size)
	if err != nil {
		panic(fmt.Errorf("gc: evacuation into %s: %w", ec.dst.name, err))
	}
	copyWords(h, addr, newAddr, size)
	h.objects.SetForwardingAddress(h, addr, newAddr)
	if _, ok := ec.src.finalization[addr]; ok {
		delete(ec.src.finalization, addr)
		ec.dst.finalization[newAddr] = struct{}{}
	}
	return newAddr
}

// evacuateBytes is evacuateObject's byte-array counterpart: no forwarding
// header, no finalization, opposite segment. Each call bump-allocates a
// fresh copy; unlike objects, re-evacuating the same byte-array address
// within one collection produces a second copy rather than sharing the
// first, since byte arrays have no forwarding header to check.
func (ec *evacContext) evacuateBytes(addr Address, size int) Address {
	h := ec.heap
	newAddr, err := ec.dst.allocateBytesRaw(size)
	if err != nil {
		panic(fmt.Errorf("gc: evacuation into %s: %w", ec.dst.name, err))
	}
	copyWords(h, addr, newAddr, size)
	return newAddr
}

func copyWords(h *Heap, src, dst Address, size int) {
	for i := 0; i < size; i += wordSize {
		h.WriteWord(dst+Address(i), h.ReadWord(src+Address(i)))
	}
}
