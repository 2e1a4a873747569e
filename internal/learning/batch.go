package learning

import (
	"context"

	"github.com/shivavenkatesh/voodoo/internal/host"
	"github.com/shivavenkatesh/voodoo/pkg/types"

	"golang.org/x/sync/errgroup"
)

// Job is one plugin instance to analyze. Each job must own its host;
// a host is never probed from two workers.
type Job struct {
	Info types.PluginInfo
	Host host.Host
}

// BatchResult is the outcome of one job
type BatchResult struct {
	Plugin string
	Result *types.AnalysisResult
	Err    error
}

// RunBatch analyzes jobs with at most workers running at once. A failed job
// does not stop the others. Results are returned in job order; the error is
// non-nil only when ctx ended before every job ran.
func RunBatch(ctx context.Context, svc Service, jobs []Job, workers int) ([]BatchResult, error) {
	if workers < 1 {
		workers = 1
	}
	results := make([]BatchResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, job := range jobs {
		i, job := i, job
		results[i].Plugin = job.Info.Name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Result, results[i].Err = svc.Analyze(gctx, job.Host, job.Info)
			return nil
		})
	}

	_ = g.Wait()
	return results, ctx.Err()
}

// Failed counts the results that carry an error
func Failed(results []BatchResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
