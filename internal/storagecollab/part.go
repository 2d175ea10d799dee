package storagecollab

import (
	"fmt"
	"time"

	"github.com/harshithgowdakt/mtqueue/internal/queue"
)

// PartState represents the lifecycle state of a data part.
type PartState uint8

const (
	PartTemporary PartState = iota // tmp_ prefix, being written
	PartActive                     // visible to queries
	PartOutdated                   // replaced by merge, pending deletion
	PartDeleting                   // being deleted
)

// Part represents a single data part on disk. Identity (PartitionID,
// MinBlock, MaxBlock, Level) is the same queue.PartInfo the replication
// queue reasons about; this package only adds the on-disk bookkeeping the
// queue has no business knowing.
type Part struct {
	Info      queue.PartInfo
	State     PartState
	NumRows   uint64
	SizeBytes uint64
	CreatedAt time.Time
	BasePath  string // absolute path to the part directory

	// Cached metadata (loaded lazily)
	NumGranules int
}

// DirName returns the on-disk directory name for this part.
func (p *Part) DirName() string { return p.Info.Name() }

// TmpDirName returns the temporary directory name used while a part is
// still being written.
func (p *Part) TmpDirName() string { return "tmp_" + p.Info.Name() }

func (p *Part) String() string {
	return fmt.Sprintf("Part{%s, rows=%d, state=%d}", p.Info.Name(), p.NumRows, p.State)
}
