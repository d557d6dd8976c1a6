package checker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// CheckAll runs every checker with at most limit checks in flight and returns
// their outcomes in input order. A failing site never stops the others.
func CheckAll(ctx context.Context, checkers []*Checker, limit int) []*Outcome {
	outcomes := make([]*Outcome, len(checkers))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, c := range checkers {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					c.log.Error("sitemap check panicked", "site", c.name, "panic", r)
					outcomes[i] = &Outcome{Site: c.name, Err: ErrCheckPanicked}
				}
			}()

			outcomes[i], _ = c.Check(ctx)

			return nil
		})
	}

	_ = g.Wait()

	return outcomes
}

// Failed counts outcomes that did not pass.
func Failed(outcomes []*Outcome) int {
	n := 0

	for _, o := range outcomes {
		if o == nil || !o.OK() {
			n++
		}
	}

	return n
}
