package checker

import (
	"context"
	"errors"
	"fmt"

	"github.com/nickromney-org/runtime-eol-checker/internal/config"
	"golang.org/x/sync/errgroup"
)

// Run evaluates every tool concurrently and waits for all of them. A failing
// tool never cancels the others; the returned error joins every failure.
func (c *Checker) Run(ctx context.Context, tools []config.Tool) ([]Outcome, error) {
	outcomes := make([]Outcome, len(tools))

	var g errgroup.Group
	for i, tool := range tools {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = Outcome{Tool: tool.Name, State: StateFailed, Err: fmt.Errorf("%s: panic: %v", tool.Name, r)}
					err = outcomes[i].Err
				}
			}()
			outcomes[i] = c.Evaluate(ctx, tool)
			return outcomes[i].Err
		})
	}
	// Wait reports only the first failure; all of them are joined below.
	_ = g.Wait()

	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	if len(errs) > 0 {
		c.logger.Error("run finished with failures", "failed", len(errs), "total", len(tools))
	} else {
		c.logger.Info("run finished", "total", len(tools))
	}
	return outcomes, errors.Join(errs...)
}
