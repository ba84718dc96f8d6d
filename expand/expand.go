package expand

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Options configure one expansion run.
type Options struct {
	// MaxDepth bounds archive nesting. An archive discovered below this
	// depth is skipped with a warning rather than extracted; the limit is
	// a safety valve against malformed or adversarial archives, not an
	// error condition.
	MaxDepth int
	// DeleteArchives removes each archive file after it and all of its
	// descendants have finished extracting.
	DeleteArchives bool
	// Workers sizes the pool used for outermost sibling archives. Values
	// below 1 default to the CPU count; 1 keeps extraction sequential.
	Workers int
}

// task is one archive queued for extraction into parent at the given depth.
type task struct {
	archive string
	parent  string
	depth   int
}

type expander struct {
	opts  Options
	stats *Stats

	// claims maps extraction directories to the archive that claimed them,
	// so colliding sibling stems within one run get disambiguated instead
	// of silently sharing a directory.
	mu     sync.Mutex
	claims map[string]string
}

// Expand unpacks src into outputRoot, recursing into nested archives. src is
// either a single archive file or a directory whose top-level archives are
// processed independently as depth-0 siblings.
//
// The returned Stats are complete: every submitted task has finished or
// individually failed before Expand returns.
func Expand(src, outputRoot string, opts Options) (*Stats, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", src, err)
	}
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return nil, fmt.Errorf("output root %s: %w", outputRoot, err)
	}

	e := &expander{
		opts:   opts,
		stats:  &Stats{},
		claims: make(map[string]string),
	}

	if !info.IsDir() {
		if !IsArchive(src) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedArchive, src)
		}
		e.expandArchive(src, outputRoot, 0)
		return e.stats, nil
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", src, err)
	}
	var tasks []task
	for _, entry := range entries {
		if !entry.IsDir() && IsArchive(entry.Name()) {
			tasks = append(tasks, task{
				archive: filepath.Join(src, entry.Name()),
				parent:  outputRoot,
				depth:   0,
			})
		}
	}
	e.run(tasks)
	return e.stats, nil
}

// run extracts the given sibling archives, fanning out across the worker
// pool when there is more than one and the pool is enabled.
func (e *expander) run(tasks []task) {
	if len(tasks) > 1 && e.opts.Workers > 1 {
		e.runPool(tasks)
		return
	}
	for _, t := range tasks {
		e.expandArchive(t.archive, t.parent, t.depth)
	}
}

func (e *expander) runPool(tasks []task) {
	jobs := make(chan task)
	var wg sync.WaitGroup

	workers := min(e.opts.Workers, len(tasks))
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for t := range jobs {
				e.expandArchive(t.archive, t.parent, t.depth)
			}
		}()
	}
	for _, t := range tasks {
		jobs <- t
	}
	close(jobs)
	wg.Wait()
}

// expandArchive extracts one archive into parent and recurses into whatever
// nested archives the extraction materialized. Failures are counted and
// logged but never propagate; a failed node's nested archives are simply
// never discovered.
func (e *expander) expandArchive(archive, parent string, depth int) {
	if depth > e.opts.MaxDepth {
		log.WithFields(log.Fields{"archive": archive, "depth": depth}).
			Warn("max nesting depth exceeded, not extracting")
		return
	}
	target := e.claimTarget(parent, archive)

	e.stats.ArchivesFound.Add(1)
	if err := os.MkdirAll(target, 0o755); err != nil {
		e.fail(archive, depth, err)
		return
	}
	if err := extract(archive, target); err != nil {
		e.fail(archive, depth, err)
		return
	}
	e.stats.ArchivesExtracted.Add(1)
	log.WithFields(log.Fields{"archive": archive, "target": target}).Debug("extracted")

	nested := e.scanExtracted(target, depth)

	// Parallelism is restricted to the outermost level: survey deliveries
	// fan out broadly at the top and nest narrowly below, and deeper pools
	// would oversubscribe the one sized by Options.Workers.
	if depth == 0 {
		e.run(nested)
	} else {
		for _, t := range nested {
			e.expandArchive(t.archive, t.parent, t.depth)
		}
	}

	if e.opts.DeleteArchives {
		if err := os.Remove(archive); err != nil {
			log.WithField("archive", archive).WithError(err).
				Warn("failed to delete archive after extraction")
			e.stats.Errors.Add(1)
		}
	}
}

// scanExtracted partitions the newly materialized entries under target into
// nested archives, returned as tasks one depth level down, and plain data
// files, which are counted.
func (e *expander) scanExtracted(target string, depth int) []task {
	var nested []task
	err := filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if IsArchive(path) {
			nested = append(nested, task{
				archive: path,
				parent:  filepath.Dir(path),
				depth:   depth + 1,
			})
			return nil
		}
		e.stats.FilesExtracted.Add(1)
		return nil
	})
	if err != nil {
		e.fail(target, depth, err)
	}
	return nested
}

// claimTarget reserves an extraction directory for archive under parent.
// The first sibling to claim a stem gets the plain name; later colliding
// siblings get a numeric suffix.
func (e *expander) claimTarget(parent, archive string) string {
	base := filepath.Join(parent, Stem(archive))

	e.mu.Lock()
	defer e.mu.Unlock()
	target := base
	for i := 2; ; i++ {
		owner, taken := e.claims[target]
		if !taken || owner == archive {
			e.claims[target] = archive
			return target
		}
		target = fmt.Sprintf("%s-%d", base, i)
	}
}

func (e *expander) fail(path string, depth int, err error) {
	log.WithFields(log.Fields{"path": path, "depth": depth}).
		WithError(err).Error("extraction failed")
	e.stats.Errors.Add(1)
}
