package queue

// PartView selects which on-disk visibility a storage lookup should use
// (spec §6: "getPartIfExists(name, {PreCommitted, Committed, Outdated})").
type PartView uint8

const (
	PreCommitted PartView = iota
	Committed
	Outdated
)

// PartStat is the subset of on-disk part metadata the eligibility engine
// and merge oracle need from the storage collaborator.
type PartStat struct {
	BytesOnDisk uint64
}

// Storage is the collaborator contract spec §6 names for the storage
// engine: "getPartIfExists(name, view) -> part?" with bytes_on_disk. The
// real on-disk part layout and read path are out of scope for this
// package (see SPEC_FULL.md §3); internal/storagecollab implements this
// interface over the adapted teacher part format.
type Storage interface {
	GetPartIfExists(name string, view PartView) (PartStat, bool)
}

// NodeRemover is the minimal coordination-service capability the queue's
// mutators need: best-effort deletion of this replica's queue/mutation
// znodes (spec §4.3's remove(), §7's "logged, not propagated" transient
// class). internal/zkclient.Client satisfies this.
type NodeRemover interface {
	TryRemove(path string) error
}

// Merger is the collaborator contract spec §6 names for the merge
// implementation: a cancellation flag and the size budget used by
// shouldExecuteLogEntry's merge-size check.
type Merger interface {
	// IsMergesCancelled reports the merges_blocker.isCancelled() flag: when
	// true, no new merge/mutate may start (existing ones run to
	// completion).
	IsMergesCancelled() bool
	// MaxPartsSizeForMerge returns the oracle-reported max-allowed merge
	// size for the current pool occupancy (0 means "no limit": the pool is
	// fully idle and any merge, including explicit OPTIMIZE, is allowed).
	MaxPartsSizeForMerge() uint64
	// MaxBytesToMergeAtMaxSpace is the configured ceiling
	// (settings.max_bytes_to_merge_at_max_space_in_pool) used as the
	// default maximum spec §4.4 compares MaxPartsSizeForMerge against.
	MaxBytesToMergeAtMaxSpace() uint64
}
