package quadtree

const (
	// The location is outside the tree geometry.
	ErrTypeOutOfBounds = "quadtree-out-of-bounds"

	// The location belongs to a part of the world this tree has no
	// authority on.
	ErrTypeRemoteLocation = "quadtree-remote-location"

	// The tree and its elements disagree. The operation is aborted and the
	// caller is expected to resync the element.
	ErrTypeInvariantViolation = "quadtree-invariant-violation"
)
