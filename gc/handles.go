package gc

// handleCell is a single word holding the current address of a tracked
// heap object. Cells live in an append-only arena for the lifetime of the
// Heap; once created, a cell is never freed, only updated in place
// whenever its referent moves (see evacuator.go).
type handleCell struct {
	addr Address
}

// Tracked is a sum of {heap reference -> handle cell, non-reference literal
// -> inline value copy}. Literals require no tracking because they encode
// no address.
type Tracked struct {
	isRef bool
	cell  *handleCell
	value uint64
}
