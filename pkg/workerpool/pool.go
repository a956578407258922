package workerpool

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of blocking calls in flight across all callers.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

func New(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

func (p *Pool) Size() int {
	return p.size
}

// Do runs fn once a slot is free. It returns ctx.Err() if the context ends first.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn(ctx)
}

// Each runs fn for every item through the pool and waits for all of them.
// A failing item does not cancel the others; the returned slice holds one
// error per item, nil for the ones that succeeded.
func Each[T any](ctx context.Context, p *Pool, items []T, fn func(ctx context.Context, item T) error) []error {
	errs := make([]error, len(items))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(p.size)
	for i, item := range items {
		g.Go(func() error {
			err := p.Do(ctx, func(ctx context.Context) error {
				return fn(ctx, item)
			})
			mu.Lock()
			errs[i] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return errs
}
