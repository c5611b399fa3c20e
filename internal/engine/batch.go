package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchResult pairs one request with its outcome
type BatchResult struct {
	Symbol     string      `json:"symbol"`
	Timeframe  string      `json:"timeframe"`
	Evaluation *Evaluation `json:"evaluation,omitempty"`
	Err        error       `json:"-"`
	Error      string      `json:"error,omitempty"`
}

// EvaluateBatch evaluates independent windows in parallel, at most
// cfg.Workers at a time. Per-request failures are reported in the result
// slice; only cancellation of ctx aborts the batch. Results keep request order.
func (e *Engine) EvaluateBatch(ctx context.Context, reqs []Request) ([]BatchResult, error) {
	results := make([]BatchResult, len(reqs))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	for i := range reqs {
		i := i
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ev, err := e.Evaluate(gctx, reqs[i])
			res := BatchResult{Symbol: reqs[i].Symbol, Timeframe: reqs[i].Timeframe, Evaluation: ev, Err: err}
			if err != nil {
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	e.logger.Info("batch evaluation complete",
		"requests", len(reqs),
		"workers", e.cfg.Workers,
		"duration", time.Since(start).String(),
	)
	return results, nil
}
