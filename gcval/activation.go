package gcval

// ActivationStack is a growable stack of single-word roots implementing
// gc.ActivationStack. A real interpreter's activation stack would expose
// one root per call frame; this fixture is a flat slice, which is enough
// to drive root-phase collection tests.
type ActivationStack struct {
	roots []uint64
}

// NewActivationStack returns an activation stack with n empty (zero) root
// slots.
func NewActivationStack(n int) *ActivationStack {
	return &ActivationStack{roots: make([]uint64, n)}
}

func (a *ActivationStack) Len() int { return len(a.roots) }

func (a *ActivationStack) Root(i int) uint64 { return a.roots[i] }

func (a *ActivationStack) SetRoot(i int, word uint64) { a.roots[i] = word }

// Push appends a new activation with the given root word and returns its
// index.
func (a *ActivationStack) Push(word uint64) int {
	a.roots = append(a.roots, word)
	return len(a.roots) - 1
}
