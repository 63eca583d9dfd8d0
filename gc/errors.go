package gc

import "errors"

// Errors returned by allocation and collection. These are the recoverable
// half of the picture: a host embedding this package can choose to log and
// abort, retry with a larger configuration, or propagate further. The
// other half are programming bugs: stale remembered-set entries and
// write-barrier precondition violations panic directly (see evacuator.go
// and barrier.go), and a missing auxiliary-set key is reported as
// ErrNotInSet by the Space removal methods, on which Heap.Untrack panics,
// since no caller could meaningfully recover from a corrupted heap
// invariant.
var (
	// ErrInvalidSize is returned when an allocation size is not a positive
	// multiple of the machine word.
	ErrInvalidSize = errors.New("gc: size must be a positive multiple of the word size")

	// ErrObjectTooLarge is returned when a single allocation cannot fit
	// even in a completely empty target space. This package has no
	// large-object space of its own; a request that large always fails
	// rather than looping through collections forever.
	ErrObjectTooLarge = errors.New("gc: allocation exceeds space capacity")

	// ErrUnsatisfiableTenure is returned when a target space cannot accept
	// the live set being evacuated into it, even after the target ran its
	// own collection. This is a fatal condition: there is nowhere else for
	// the live set to go.
	ErrUnsatisfiableTenure = errors.New("gc: target space cannot hold evacuated live set")

	// ErrSpaceExhausted is returned when a space with neither a scavenge
	// nor a tenure target (old-space in the canonical configuration) needs
	// more free memory than it has. This package does not grow spaces at
	// runtime.
	ErrSpaceExhausted = errors.New("gc: space has no collection target and cannot grow")

	// ErrNotInSet is returned by auxiliary-set removal when the requested
	// address or handle is not present. Callers that expect presence treat
	// this as a programming bug.
	ErrNotInSet = errors.New("gc: address not present in set")

	// ErrUnknownSpace is returned when an address does not fall within any
	// of the heap's four spaces.
	ErrUnknownSpace = errors.New("gc: address not owned by any known space")

	// ErrStaleRememberedSet marks a remembered-set entry whose referrer no
	// longer contains any reference into the space being evacuated. This
	// indicates a write-barrier bug, not a recoverable condition, and is
	// always panicked rather than returned.
	ErrStaleRememberedSet = errors.New("gc: stale remembered-set entry")
)
