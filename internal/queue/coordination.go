package queue

import "context"

// Stat is the subset of a coordination-service node's metadata the
// puller and mutation tracker need (spec §6).
type Stat struct {
	Version int32
}

// CreatedNode holds a created node's server-assigned path (for a
// sequential node, the caller's path with the sequence suffix appended).
// Client has no Create method; Multi reports created paths as MultiResult.
type CreatedNode struct {
	Path string
}

// AsyncGetResult is the outcome of a background Get, delivered on the
// channel AsyncGet returns (spec §6: "asyncGet futures awaited outside
// the queue lock").
type AsyncGetResult struct {
	Path string
	Data []byte
	Err  error
}

// AsyncChildrenResult is the outcome of a background GetChildren.
type AsyncChildrenResult struct {
	Path     string
	Children []string
	Err      error
}

// Op is one operation inside a Multi batch (spec §4.1 step 4: "one
// multi-write... a persistent-sequential create... a set of log_pointer
// ... and a set of min_unprocessed_insert_time").
type Op struct {
	Kind     OpKind
	Path     string
	Data     []byte
	Sequence bool // Kind == OpCreate only: create as PersistentSequential
}

type OpKind uint8

const (
	OpCreate OpKind = iota
	OpSet
)

// MultiResult is the per-op outcome of a successful Multi call, in the
// same order as the submitted Ops. Only OpCreate results carry a path.
type MultiResult struct {
	Path string
}

// Client is the narrow coordination-service contract §6 names
// (ZooKeeper's API shape: getChildren, get, set, tryRemove, tryGet,
// asyncGet, multi, CreateMode::PersistentSequential, watch events).
// internal/zkclient.Client implements this over github.com/go-zookeeper/zk;
// queue.LogPuller and queue.MutationTracker depend only on this
// interface.
type Client interface {
	// Get reads a node's body and stat, or returns an error implementing
	// ErrNoNode() bool if the node does not exist.
	Get(ctx context.Context, path string) ([]byte, Stat, error)
	// Set writes a node's body unconditionally.
	Set(ctx context.Context, path string, data []byte) error
	// GetChildren lists a node's children and, if watch is non-nil,
	// arranges for a single value to be sent on watch the next time the
	// child list changes.
	GetChildren(ctx context.Context, path string, watch chan<- struct{}) ([]string, error)
	// TryGet is Get but returns (nil, Stat{}, false, nil) instead of an
	// error when the node is absent.
	TryGet(ctx context.Context, path string) (data []byte, stat Stat, ok bool, err error)
	// TryRemove deletes a node, tolerating its absence.
	TryRemove(path string) error
	// Multi submits every op atomically; either all succeed or none do.
	Multi(ctx context.Context, ops []Op) ([]MultiResult, error)
	// AsyncGet starts a background read and returns a channel with exactly
	// one value.
	AsyncGet(ctx context.Context, path string) <-chan AsyncGetResult
	// AsyncGetChildren starts a background children listing.
	AsyncGetChildren(ctx context.Context, path string) <-chan AsyncChildrenResult
}
