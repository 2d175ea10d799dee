package queue

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// fakeCoordinationClient is an in-memory stand-in for the coordination
// service, enough to drive LogPuller and MutationTracker in tests
// without a real ZooKeeper ensemble.
type fakeCoordinationClient struct {
	mu       sync.Mutex
	nodes    map[string][]byte
	children map[string]map[string]bool
	seqCounters map[string]int
}

func newFakeCoordinationClient() *fakeCoordinationClient {
	return &fakeCoordinationClient{
		nodes:       make(map[string][]byte),
		children:    make(map[string]map[string]bool),
		seqCounters: make(map[string]int),
	}
}

func (f *fakeCoordinationClient) put(path string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putLocked(path, data)
}

func (f *fakeCoordinationClient) putLocked(path string, data []byte) {
	f.nodes[path] = data
	parent, name := splitPath(path)
	if f.children[parent] == nil {
		f.children[parent] = make(map[string]bool)
	}
	f.children[parent][name] = true
}

func splitPath(path string) (parent, name string) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

func (f *fakeCoordinationClient) Get(ctx context.Context, path string) ([]byte, Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.nodes[path]
	if !ok {
		return nil, Stat{}, fakeNoNodeErr{path: path}
	}
	return data, Stat{}, nil
}

func (f *fakeCoordinationClient) Set(ctx context.Context, path string, data []byte) error {
	f.put(path, data)
	return nil
}

func (f *fakeCoordinationClient) GetChildren(ctx context.Context, path string, watch chan<- struct{}) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for name := range f.children[path] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeCoordinationClient) TryGet(ctx context.Context, path string) ([]byte, Stat, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.nodes[path]
	if !ok {
		return nil, Stat{}, false, nil
	}
	return data, Stat{}, true, nil
}

func (f *fakeCoordinationClient) TryRemove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.nodes, path)
	parent, name := splitPath(path)
	delete(f.children[parent], name)
	return nil
}

func (f *fakeCoordinationClient) Multi(ctx context.Context, ops []Op) ([]MultiResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	results := make([]MultiResult, len(ops))
	for i, op := range ops {
		switch op.Kind {
		case OpSet:
			f.putLocked(op.Path, op.Data)
		case OpCreate:
			path := op.Path
			if op.Sequence {
				f.seqCounters[op.Path]++
				path = fmt.Sprintf("%s%010d", op.Path, f.seqCounters[op.Path]-1)
			}
			f.putLocked(path, op.Data)
			results[i] = MultiResult{Path: path}
		}
	}
	return results, nil
}

func (f *fakeCoordinationClient) AsyncGet(ctx context.Context, path string) <-chan AsyncGetResult {
	ch := make(chan AsyncGetResult, 1)
	data, _, err := f.Get(ctx, path)
	ch <- AsyncGetResult{Path: path, Data: data, Err: err}
	return ch
}

func (f *fakeCoordinationClient) AsyncGetChildren(ctx context.Context, path string) <-chan AsyncChildrenResult {
	ch := make(chan AsyncChildrenResult, 1)
	children, err := f.GetChildren(ctx, path, nil)
	ch <- AsyncChildrenResult{Path: path, Children: children, Err: err}
	return ch
}

type fakeNoNodeErr struct{ path string }

func (e fakeNoNodeErr) Error() string { return fmt.Sprintf("no node: %s", e.path) }
func (e fakeNoNodeErr) ErrNoNode() bool { return true }
