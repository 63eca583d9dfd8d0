package gc

// HeapConfig holds the heap's tunable sizes. An embedding program
// constructs one directly; there is no flag or environment parsing here —
// a CLI or test harness that wants that is an external collaborator, out
// of scope for this package.
type HeapConfig struct {
	EdenSize      int
	SemiSpaceSize int // applied to both from-space and to-space
	OldSpaceSize  int

	// DebugScribble fills newly allocated memory with a fixed scrub byte
	// (0xAB) so that uninitialized reads are detectable in debug builds.
	DebugScribble bool
}

// DefaultHeapConfig returns a reasonable starting configuration: 1 MiB
// eden, 4 MiB from-space, 4 MiB to-space, 16 MiB old-space.
func DefaultHeapConfig() HeapConfig {
	const mib = 1 << 20
	return HeapConfig{
		EdenSize:      1 * mib,
		SemiSpaceSize: 4 * mib,
		OldSpaceSize:  16 * mib,
	}
}
