package merger

import (
	"fmt"

	"github.com/harshithgowdakt/mtqueue/internal/column"
	"github.com/harshithgowdakt/mtqueue/internal/compression"
	"github.com/harshithgowdakt/mtqueue/internal/queue"
	"github.com/harshithgowdakt/mtqueue/internal/storagecollab"
	"github.com/harshithgowdakt/mtqueue/internal/types"
)

// MergeExecutor performs the actual merge of multiple source parts into one.
// It is the concrete action behind a queued MERGE_PARTS entry: the queue
// only ever reasons about part names, never bytes.
type MergeExecutor struct {
	schema *storagecollab.TableSchema
	codec  compression.Codec
}

// NewMergeExecutor creates a new merge executor.
func NewMergeExecutor(schema *storagecollab.TableSchema, codec compression.Codec) *MergeExecutor {
	return &MergeExecutor{schema: schema, codec: codec}
}

// Merge reads all source parts, merge-sorts them, and writes a new merged part
// whose name is the one the log entry already committed to.
func (me *MergeExecutor) Merge(baseDir string, sourceParts []*storagecollab.Part, newInfo queue.PartInfo) (*storagecollab.Part, error) {
	if len(sourceParts) == 0 {
		return nil, fmt.Errorf("no parts to merge")
	}

	colNames := me.schema.ColumnNames()

	var blocks []*column.Block
	for _, src := range sourceParts {
		reader := storagecollab.NewPartReader(src, me.schema)
		block, err := reader.ReadAll(colNames)
		if err != nil {
			return nil, fmt.Errorf("reading part %s: %w", src.DirName(), err)
		}
		blocks = append(blocks, block)
	}

	merged := kWayMerge(blocks, me.schema.OrderBy, me.schema)
	if merged == nil || merged.NumRows() == 0 {
		return nil, fmt.Errorf("merged result is empty")
	}

	writer := storagecollab.NewPartWriter(me.schema, baseDir, me.codec)
	return writer.WritePart(merged, newInfo)
}

// NewMergedPartInfo computes the PartInfo a merge of sourceParts produces:
// the envelope of their block ranges, one level above the highest source
// level. Callers pass its Name() to queue.NewLogEntry before any bytes are
// touched.
func NewMergedPartInfo(sourceParts []queue.PartInfo) queue.PartInfo {
	out := sourceParts[0]
	for _, p := range sourceParts[1:] {
		if p.MinBlock < out.MinBlock {
			out.MinBlock = p.MinBlock
		}
		if p.MaxBlock > out.MaxBlock {
			out.MaxBlock = p.MaxBlock
		}
		if p.Level > out.Level {
			out.Level = p.Level
		}
	}
	out.Level++
	return out
}

// kWayMerge merges multiple already-sorted blocks into one sorted block.
func kWayMerge(blocks []*column.Block, orderBy []string, schema *storagecollab.TableSchema) *column.Block {
	if len(blocks) == 0 {
		return nil
	}
	if len(blocks) == 1 {
		return blocks[0]
	}

	type sortKey struct {
		name string
		dt   types.DataType
	}
	keys := make([]sortKey, len(orderBy))
	for i, name := range orderBy {
		colDef, _ := schema.GetColumnDef(name)
		keys[i] = sortKey{name: name, dt: colDef.DataType}
	}

	colNames := schema.ColumnNames()

	// Simple approach: concatenate all blocks, then sort. A production
	// system would want a proper k-way merge with cursors.
	result := blocks[0]
	for _, b := range blocks[1:] {
		newCols := make([]column.Column, len(colNames))
		for i, name := range colNames {
			col1, _ := result.GetColumn(name)
			col2, _ := b.GetColumn(name)
			merged := col1.Clone()
			column.AppendColumn(merged, col2)
			newCols[i] = merged
		}
		result = column.NewBlock(colNames, newCols)
	}

	result.SortByColumns(orderBy)
	return result
}
