package gc

// generation orders the three spaces a reference can permanently rest in,
// youngest first. to-space is never a stable resting place for a mutator
// reference (it only exists mid-collection), so it has no place here.
type generation int

const (
	genEden generation = iota
	genFrom
	genOld
)

func (h *Heap) generationOf(addr Address) (generation, bool) {
	switch {
	case h.eden.ObjectSegmentContains(addr) || h.eden.ByteArraySegmentContains(addr):
		return genEden, true
	case h.from.ObjectSegmentContains(addr) || h.from.ByteArraySegmentContains(addr):
		return genFrom, true
	case h.old.ObjectSegmentContains(addr) || h.old.ByteArraySegmentContains(addr):
		return genOld, true
	default:
		return 0, false
	}
}

func (h *Heap) spaceOfGeneration(g generation) *Space {
	switch g {
	case genEden:
		return h.eden
	case genFrom:
		return h.from
	default:
		return h.old
	}
}

// RememberObjectReference is the write barrier. It must be called whenever
// a heap reference is stored into an existing object's slot. The invariant
// it enforces: for every reference from a strictly older generation into a
// strictly younger one, the target's space holds an entry
// (referrer_address, referrer_size) in its remembered set, so a collection
// of the younger space alone can still find referrers living in the older
// one. Old-to-old references need no entry, since old-space is never the
// source of a collection; younger-to-older references need no barrier
// either, since the younger space's own collection already visits
// everything it points to.
func (h *Heap) RememberObjectReference(referrer, target uint64) {
	if !h.values.IsReference(target) {
		return
	}
	if !h.values.IsReference(referrer) {
		panic("gc: write barrier precondition violated: referrer is not a reference")
	}

	referrerAddr := h.values.Address(referrer)
	referrerGen, ok := h.generationOf(referrerAddr)
	if !ok {
		panic("gc: write barrier precondition violated: referrer is not in any known space")
	}

	targetAddr := h.values.Address(target)
	targetGen, ok := h.generationOf(targetAddr)
	if !ok {
		panic("gc: write barrier precondition violated: target is not in any known space")
	}

	if referrerGen <= targetGen {
		return
	}

	targetSpace := h.spaceOfGeneration(targetGen)
	size := h.objects.SizeBytes(h, referrerAddr)
	targetSpace.RememberReference(referrerAddr, size)
}
