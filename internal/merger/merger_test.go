package merger_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harshithgowdakt/mtqueue/internal/column"
	"github.com/harshithgowdakt/mtqueue/internal/compression"
	"github.com/harshithgowdakt/mtqueue/internal/merger"
	"github.com/harshithgowdakt/mtqueue/internal/queue"
	"github.com/harshithgowdakt/mtqueue/internal/storagecollab"
	"github.com/harshithgowdakt/mtqueue/internal/types"
)

// fakeClient is a minimal in-memory coordination-service stand-in, enough
// to drive a real queue.LogPuller across package boundaries without a
// ZooKeeper ensemble. queue's own fakeCoordinationClient (internal test
// file) isn't visible from this external test package, hence the
// duplication.
type fakeClient struct {
	mu       sync.Mutex
	nodes    map[string][]byte
	children map[string]map[string]bool
	seq      map[string]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		nodes:    make(map[string][]byte),
		children: make(map[string]map[string]bool),
		seq:      make(map[string]int),
	}
}

func (f *fakeClient) put(path string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putLocked(path, data)
}

func (f *fakeClient) putLocked(path string, data []byte) {
	f.nodes[path] = data
	i := strings.LastIndexByte(path, '/')
	parent, name := path[:i], path[i+1:]
	if f.children[parent] == nil {
		f.children[parent] = make(map[string]bool)
	}
	f.children[parent][name] = true
}

func (f *fakeClient) Get(ctx context.Context, path string) ([]byte, queue.Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.nodes[path]
	if !ok {
		return nil, queue.Stat{}, fmt.Errorf("no node: %s", path)
	}
	return data, queue.Stat{}, nil
}

func (f *fakeClient) Set(ctx context.Context, path string, data []byte) error {
	f.put(path, data)
	return nil
}

func (f *fakeClient) GetChildren(ctx context.Context, path string, watch chan<- struct{}) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for name := range f.children[path] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeClient) TryGet(ctx context.Context, path string) ([]byte, queue.Stat, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.nodes[path]
	if !ok {
		return nil, queue.Stat{}, false, nil
	}
	return data, queue.Stat{}, true, nil
}

func (f *fakeClient) TryRemove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.nodes, path)
	return nil
}

func (f *fakeClient) Multi(ctx context.Context, ops []queue.Op) ([]queue.MultiResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	results := make([]queue.MultiResult, len(ops))
	for i, op := range ops {
		switch op.Kind {
		case queue.OpSet:
			f.putLocked(op.Path, op.Data)
		case queue.OpCreate:
			path := op.Path
			if op.Sequence {
				f.seq[op.Path]++
				path = fmt.Sprintf("%s%010d", op.Path, f.seq[op.Path]-1)
			}
			f.putLocked(path, op.Data)
			results[i] = queue.MultiResult{Path: path}
		}
	}
	return results, nil
}

func (f *fakeClient) AsyncGet(ctx context.Context, path string) <-chan queue.AsyncGetResult {
	ch := make(chan queue.AsyncGetResult, 1)
	data, _, err := f.Get(ctx, path)
	ch <- queue.AsyncGetResult{Path: path, Data: data, Err: err}
	return ch
}

func (f *fakeClient) AsyncGetChildren(ctx context.Context, path string) <-chan queue.AsyncChildrenResult {
	ch := make(chan queue.AsyncChildrenResult, 1)
	children, err := f.GetChildren(ctx, path, nil)
	ch <- queue.AsyncChildrenResult{Path: path, Children: children, Err: err}
	return ch
}

func putWireLogEntry(t *testing.T, client *fakeClient, seq int, newPartName string) {
	t.Helper()
	body, err := json.Marshal(struct {
		Type        string    `json:"type"`
		NewPartName string    `json:"new_part_name"`
		CreateTime  time.Time `json:"create_time"`
	}{Type: "GET_PART", NewPartName: newPartName, CreateTime: time.Now()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	client.put(fmt.Sprintf("/tables/t/log/log-%010d", seq), body)
}

func TestMergeExecution(t *testing.T) {
	dir, err := os.MkdirTemp("", "mtqueue-merge-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	schema := &storagecollab.TableSchema{
		Columns: []storagecollab.ColumnDef{
			{Name: "id", DataType: types.TypeUInt64},
			{Name: "value", DataType: types.TypeInt64},
		},
		OrderBy: []string{"id"},
	}

	codec := &compression.LZ4Codec{}
	writer := storagecollab.NewPartWriter(schema, dir, codec)

	var parts []*storagecollab.Part
	var infos []queue.PartInfo
	for i := 0; i < 3; i++ {
		idCol := &column.UInt64Column{Data: []uint64{uint64(i*3 + 1), uint64(i*3 + 2), uint64(i*3 + 3)}}
		valCol := &column.Int64Column{Data: []int64{int64((i + 1) * 100), int64((i + 1) * 200), int64((i + 1) * 300)}}
		block := column.NewBlock([]string{"id", "value"}, []column.Column{idCol, valCol})

		info := queue.PartInfo{
			PartitionID: "all",
			MinBlock:    int64(i + 1),
			MaxBlock:    int64(i + 1),
			Level:       0,
		}

		part, err := writer.WritePart(block, info)
		if err != nil {
			t.Fatal(err)
		}
		parts = append(parts, part)
		infos = append(infos, info)
	}

	newInfo := merger.NewMergedPartInfo(infos)
	executor := merger.NewMergeExecutor(schema, codec)
	merged, err := executor.Merge(dir, parts, newInfo)
	if err != nil {
		t.Fatal(err)
	}

	if merged.NumRows != 9 {
		t.Fatalf("expected 9 merged rows, got %d", merged.NumRows)
	}
	if merged.Info.Level != 1 {
		t.Fatalf("expected level 1, got %d", merged.Info.Level)
	}

	reader := storagecollab.NewPartReader(merged, schema)
	block, err := reader.ReadAll([]string{"id", "value"})
	if err != nil {
		t.Fatal(err)
	}
	if block.NumRows() != 9 {
		t.Fatalf("expected 9 rows from merged part, got %d", block.NumRows())
	}

	idCol, _ := block.GetColumn("id")
	for i := 1; i < idCol.Len(); i++ {
		prev := idCol.Value(i - 1).(uint64)
		curr := idCol.Value(i).(uint64)
		if prev > curr {
			t.Fatalf("rows not sorted: id[%d]=%d > id[%d]=%d", i-1, prev, i, curr)
		}
	}
}

func TestExternalMergeSelectorRequiresMinimumParts(t *testing.T) {
	selector := merger.NewExternalMergeSelector()
	q := queue.New("t", "r1", nil)

	parts := []*storagecollab.Part{
		{Info: queue.PartInfo{PartitionID: "all", MinBlock: 1, MaxBlock: 1, Level: 0}, State: storagecollab.PartActive, NumRows: 100},
		{Info: queue.PartInfo{PartitionID: "all", MinBlock: 2, MaxBlock: 2, Level: 0}, State: storagecollab.PartActive, NumRows: 100},
	}
	if _, ok := selector.SelectMergeCandidate(q, parts, nil); ok {
		t.Fatal("should not select a merge with only 2 parts when MinPartsToMerge is 3")
	}
}

func TestExternalMergeSelectorConsultsOracle(t *testing.T) {
	selector := merger.NewExternalMergeSelector()
	client := newFakeClient()
	q := queue.New("t", "r1", client)
	tracker := queue.NewMutationTracker(client, q, "/tables/t")
	puller := queue.NewLogPuller(client, q, tracker, "/tables/t", "/tables/t/replicas/r1")

	infos := []queue.PartInfo{
		{PartitionID: "all", MinBlock: 1, MaxBlock: 1, Level: 0},
		{PartitionID: "all", MinBlock: 2, MaxBlock: 2, Level: 0},
		{PartitionID: "all", MinBlock: 3, MaxBlock: 3, Level: 0},
		{PartitionID: "all", MinBlock: 4, MaxBlock: 4, Level: 0},
	}
	for i, info := range infos {
		putWireLogEntry(t, client, i, info.Name())
	}
	if _, err := puller.PullLogsToQueue(context.Background(), nil); err != nil {
		t.Fatalf("PullLogsToQueue: %v", err)
	}

	var parts []*storagecollab.Part
	for _, info := range infos {
		parts = append(parts, &storagecollab.Part{Info: info, State: storagecollab.PartActive, NumRows: 100})
	}

	entry, ok := selector.SelectMergeCandidate(q, parts, nil)
	if !ok {
		t.Fatal("expected a merge candidate across 4 adjacent parts")
	}
	if entry.Type != queue.MergeParts {
		t.Fatalf("expected MERGE_PARTS, got %v", entry.Type)
	}
	if len(entry.PartsToMerge) < 3 {
		t.Fatalf("expected at least 3 source parts, got %d", len(entry.PartsToMerge))
	}
}

func TestAggregatingMergeTreeCollapse(t *testing.T) {
	dir, err := os.MkdirTemp("", "mtqueue-agg-merge-test-*")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	schema := &storagecollab.TableSchema{
		Engine: "AggregatingMergeTree",
		Columns: []storagecollab.ColumnDef{
			{Name: "k", DataType: types.TypeUInt64},
			{Name: "v", DataType: types.TypeInt64},
		},
		OrderBy: []string{"k"},
	}

	codec := &compression.LZ4Codec{}
	writer := storagecollab.NewPartWriter(schema, dir, codec)

	info1 := queue.PartInfo{PartitionID: "all", MinBlock: 1, MaxBlock: 1, Level: 0}
	part1, err := writer.WritePart(
		column.NewBlock(
			[]string{"k", "v"},
			[]column.Column{
				&column.UInt64Column{Data: []uint64{1, 2}},
				&column.Int64Column{Data: []int64{10, 20}},
			},
		),
		info1,
	)
	if err != nil {
		t.Fatal(err)
	}
	info2 := queue.PartInfo{PartitionID: "all", MinBlock: 2, MaxBlock: 2, Level: 0}
	part2, err := writer.WritePart(
		column.NewBlock(
			[]string{"k", "v"},
			[]column.Column{
				&column.UInt64Column{Data: []uint64{1, 2}},
				&column.Int64Column{Data: []int64{5, 7}},
			},
		),
		info2,
	)
	if err != nil {
		t.Fatal(err)
	}

	newInfo := merger.NewMergedPartInfo([]queue.PartInfo{info1, info2})
	executor := merger.NewMergeExecutor(schema, codec)
	merged, err := executor.Merge(dir, []*storagecollab.Part{part1, part2}, newInfo)
	if err != nil {
		t.Fatal(err)
	}

	reader := storagecollab.NewPartReader(merged, schema)
	block, err := reader.ReadAll([]string{"k", "v"})
	if err != nil {
		t.Fatal(err)
	}

	if block.NumRows() != 2 {
		t.Fatalf("expected 2 rows after aggregating collapse, got %d", block.NumRows())
	}
	vCol, _ := block.GetColumn("v")
	if got := vCol.Value(0).(int64); got != 15 {
		t.Fatalf("expected first aggregated value 15, got %d", got)
	}
	if got := vCol.Value(1).(int64); got != 27 {
		t.Fatalf("expected second aggregated value 27, got %d", got)
	}
}
