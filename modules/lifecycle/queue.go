package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/example/incident-desk/domain/casework"
	"golang.org/x/sync/singleflight"
)

// Queue is the read-only FIFO view of claimable tasks. Its pages may be stale
// by the time a mediator acts on them; claims re-check state in their own
// transaction.
type Queue struct {
	store   casework.Store
	timeout time.Duration
	sfGroup singleflight.Group // coalesces identical concurrent page reads
}

// NewQueue creates a Queue over store. Each shared page read gets timeout.
func NewQueue(store casework.Store, timeout time.Duration) *Queue {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &Queue{store: store, timeout: timeout}
}

// List returns Open tasks ordered by ascending id.
//
// Identical concurrent reads share one store call. That call does not inherit
// any single caller's cancellation, and each caller stops waiting when its
// own ctx is done.
func (q *Queue) List(ctx context.Context, limit, offset int) ([]*casework.Task, error) {
	page, err := casework.NormalizePage(limit, offset)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("open:%d:%d", page.Limit, page.Offset)
	ch := q.sfGroup.DoChan(key, func() (any, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.timeout)
		defer cancel()
		return q.store.ListTasksByState(readCtx, casework.StateOpen, page)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, casework.StoreFailure("list open tasks", ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	shared := res.Val.([]*casework.Task)
	tasks := make([]*casework.Task, len(shared))
	for i, t := range shared {
		tasks[i] = t.Clone()
	}
	return tasks, nil
}
