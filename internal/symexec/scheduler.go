package symexec

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/havenlang/havenchk/internal/build"
	"github.com/havenlang/havenchk/internal/diagnostics"
	"github.com/havenlang/havenchk/internal/mir"
)

// FunctionResult is one function's analysis outcome.
type FunctionResult struct {
	Function string
	Findings []diagnostics.Diagnostic
}

// RunModule analyzes every function in mod concurrently. Functions are
// independent build targets with no inter-dependencies, so the
// build.Plan here is a flat fan-out: it exists to reuse the same
// worker-pool executor the rest of this module uses for every other
// concurrent task, rather than hand-rolling a second pool just for this
// one caller.
func RunModule(ctx context.Context, mod *mir.Module, newEngine func() *Engine, workers int) ([]FunctionResult, error) {
	if mod == nil {
		return nil, nil
	}

	var (
		mu      sync.Mutex
		results = make(map[string]FunctionResult, len(mod.Functions))
	)

	plan := build.NewPlan()

	for _, fn := range mod.Functions {
		fn := fn

		id := build.TargetID("fn:" + fn.Name)

		action := func(actionCtx build.Context, target build.Target) error {
			engine := newEngine()
			_, findings := engine.Run(fn)

			mu.Lock()
			results[fn.Name] = FunctionResult{Function: fn.Name, Findings: findings}
			mu.Unlock()

			return nil
		}

		if err := plan.AddTarget(build.Target{ID: id, Action: action}); err != nil {
			return nil, fmt.Errorf("symexec: schedule %s: %w", fn.Name, err)
		}
	}

	executor := build.NewExecutor(workers)
	if _, _, err := executor.Execute(ctx, plan, nil); err != nil {
		return nil, err
	}

	out := make([]FunctionResult, 0, len(mod.Functions))
	for _, fn := range mod.Functions {
		out = append(out, results[fn.Name])
	}

	return out, nil
}

// RunModuleGroup is the errgroup-based equivalent of RunModule, used by
// callers (the HTTP/3 service) that want a plain cancellable group
// instead of a build.Plan's bookkeeping.
func RunModuleGroup(ctx context.Context, mod *mir.Module, newEngine func() *Engine) ([]FunctionResult, error) {
	if mod == nil {
		return nil, nil
	}

	results := make([]FunctionResult, len(mod.Functions))

	g, gctx := errgroup.WithContext(ctx)

	for i, fn := range mod.Functions {
		i, fn := i, fn

		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			engine := newEngine()
			_, findings := engine.Run(fn)
			results[i] = FunctionResult{Function: fn.Name, Findings: findings}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
