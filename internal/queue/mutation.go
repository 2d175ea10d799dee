package queue

// MutationCommand is a single schema-less transformation within a mutation
// (spec §3). The command's own semantics (what column, what expression) are
// out of scope for this package; it is carried opaquely so
// GetMutationCommands can hand the right ordered subset back to a mutation
// executor collaborator.
type MutationCommand struct {
	Kind string // e.g. "UPDATE", "DELETE", "DROP_COLUMN" — opaque to the queue
	Text string // collaborator-defined payload
}

// MutationEntry describes one queued mutation (spec §3). Mutations are
// never executed individually by this package; they only change how
// canMutatePart/getMutationCommands reason about parts.
type MutationEntry struct {
	ZnodeName string // monotonically increasing, assigned by the coordination service

	// BlockNumbers maps partition ID to the per-partition boundary: this
	// mutation applies to parts with max_block <= this number.
	BlockNumbers map[string]int64

	Commands []MutationCommand
}
