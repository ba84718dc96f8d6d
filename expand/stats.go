package expand

import (
	"fmt"
	"sync/atomic"
)

// Stats records the outcome of one expansion run. The counters are owned by
// the run, incremented concurrently by pool workers, and stable once Expand
// returns.
type Stats struct {
	ArchivesFound     atomic.Int64
	ArchivesExtracted atomic.Int64
	FilesExtracted    atomic.Int64
	Errors            atomic.Int64
}

func (s *Stats) String() string {
	return fmt.Sprintf("archives found: %d, extracted: %d, files: %d, errors: %d",
		s.ArchivesFound.Load(), s.ArchivesExtracted.Load(),
		s.FilesExtracted.Load(), s.Errors.Load())
}
