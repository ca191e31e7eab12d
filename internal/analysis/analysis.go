// Package analysis builds type and dependency tables for a set of source
// files. Every call starts from empty tables; nothing is shared between
// requests.
package analysis

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/phobologic/reponav/internal/logging"
	"github.com/phobologic/reponav/internal/model"
)

// Result holds the tables produced for one analysis request.
type Result struct {
	// Files lists the successfully extracted files in input order.
	Files    []string
	Types    model.TypeTable
	Deps     *model.DependencyTable
	Failures []model.Failure
}

// Analyzer runs the two-pass type/dependency analysis.
type Analyzer struct {
	extractor Extractor
	workers   int
	log       *slog.Logger
}

// New returns an Analyzer that extracts tags with extractor. A nil logger
// discards output.
func New(extractor Extractor, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		extractor: extractor,
		workers:   runtime.GOMAXPROCS(0),
		log:       logging.OrDiscard(logger),
	}
}

// Analyze extracts every file in files (absolute paths, duplicates ignored)
// and builds the type and dependency tables. A file that cannot be
// extracted is recorded in Result.Failures and left out of both tables.
// The only error returned is the context's.
func (a *Analyzer) Analyze(ctx context.Context, files []string) (*Result, error) {
	start := time.Now()
	files = dedupe(files)

	fileInfos, failures := a.extractAll(ctx, files)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Files:    make([]string, 0, len(fileInfos)),
		Failures: failures,
	}
	for i := range fileInfos {
		res.Files = append(res.Files, fileInfos[i].Path)
	}
	res.Types = BuildTypeTable(fileInfos)
	res.Deps = BuildDependencyTable(fileInfos, res.Types)

	for _, f := range failures {
		a.log.Warn("analysis skipped file", "file", f.File, "reason", f.Reason)
	}
	a.log.Info("analysis complete",
		"files", len(files),
		"failed", len(failures),
		"types", len(res.Types),
		"elapsed", time.Since(start),
	)
	return res, nil
}

func (a *Analyzer) extractAll(ctx context.Context, files []string) ([]model.FileInfo, []model.Failure) {
	type result struct {
		index int
		info  model.FileInfo
		err   error
	}

	if len(files) == 0 {
		return nil, nil
	}

	numWorkers := a.workers
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make(chan result, len(files))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				if err := ctx.Err(); err != nil {
					results <- result{index: idx, err: err}
					continue
				}
				info, err := a.extractor.Extract(ctx, files[idx])
				results <- result{index: idx, info: info, err: err}
			}
		}()
	}

	for i := range files {
		work <- i
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results in original order
	indexed := make([]result, len(files))
	for r := range results {
		indexed[r.index] = r
	}

	var fileInfos []model.FileInfo
	var failures []model.Failure
	for i, r := range indexed {
		if r.err != nil {
			failures = append(failures, model.Failure{File: files[i], Reason: r.err.Error()})
			continue
		}
		r.info.Path = files[i]
		fileInfos = append(fileInfos, r.info)
	}
	return fileInfos, failures
}

func dedupe(files []string) []string {
	seen := make(map[string]struct{}, len(files))
	out := make([]string, 0, len(files))
	for _, f := range files {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
