package cmpfetch

import (
	"context"
	"strconv"

	"golang.org/x/sync/singleflight"
)

// coalescer deduplicates in-flight executions of the same declared
// callback: while one execution is outstanding, further triggers wait on
// its outcome instead of invoking the callback again. The flight entry is
// dropped as soon as the execution settles, success or failure, so a later
// trigger starts a fresh execution.
type coalescer struct {
	group singleflight.Group
}

// run invokes the entry through its shared flight. Panics from the author
// callback are recovered and normalized so they surface as fetch errors
// rather than tearing down the run.
func (c *coalescer) run(ctx context.Context, e *fetchEntry, inst *Instance) error {
	key := strconv.FormatUint(e.id, 10)
	_, err, _ := c.group.Do(key, func() (_ any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = Normalize(r)
			}
		}()
		return nil, e.fn(ctx, inst)
	})
	return err
}
