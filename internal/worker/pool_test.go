package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countJob struct {
	n   *atomic.Int64
	err error
}

type countResult struct{ err error }

func (r *countResult) GetError() error { return r.err }

func (j *countJob) Execute(ctx context.Context) Result {
	j.n.Add(1)
	return &countResult{err: j.err}
}

func TestPool_RunsAllJobs(t *testing.T) {
	var n atomic.Int64
	pool := NewPool(4)
	pool.Start()

	for i := 0; i < 20; i++ {
		pool.Submit(&countJob{n: &n})
	}
	results := pool.Wait()

	if got := n.Load(); got != 20 {
		t.Errorf("executed %d jobs, want 20", got)
	}
	if len(results) != 20 {
		t.Errorf("collected %d results, want 20", len(results))
	}
}

func TestPool_PropagatesJobErrors(t *testing.T) {
	var n atomic.Int64
	wantErr := errors.New("boom")
	pool := NewPool(2)
	pool.Start()

	pool.Submit(&countJob{n: &n})
	pool.Submit(&countJob{n: &n, err: wantErr})
	results := pool.Wait()

	failed := 0
	for _, r := range results {
		if r.GetError() != nil {
			failed++
		}
	}
	if failed != 1 {
		t.Errorf("failed results = %d, want 1", failed)
	}
}

func TestPool_ZeroWorkersStillRuns(t *testing.T) {
	var n atomic.Int64
	pool := NewPool(0)
	pool.Start()
	pool.Submit(&countJob{n: &n})
	if results := pool.Wait(); len(results) != 1 {
		t.Errorf("results = %d, want 1", len(results))
	}
}

type blockJob struct{ started chan struct{} }

type blockResult struct{}

func (blockResult) GetError() error { return nil }

func (j *blockJob) Execute(ctx context.Context) Result {
	select {
	case j.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return blockResult{}
}

func TestPool_Shutdown(t *testing.T) {
	pool := NewPool(1)
	pool.Start()

	started := make(chan struct{}, 1)
	pool.Submit(&blockJob{started: started})
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never started")
	}

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown did not return")
	}
}
