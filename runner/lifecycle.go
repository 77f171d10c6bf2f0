package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/flowgraph-go/node"
)

// Start transitions the graph idle->running: every node is started in
// parallel and the call awaits all of them before returning. Starting an
// already-running graph is a no-op. Start must follow a successful
// Initialize.
func (r *Runner) Start(ctx context.Context) error {
	r.initMu.Lock()
	initialized := r.initialized
	r.initMu.Unlock()
	if !initialized {
		return fmt.Errorf("runner: Initialize must succeed before Start")
	}

	r.lifecycleMu.Lock()
	if State(r.state.Load()) == StateRunning {
		r.lifecycleMu.Unlock()
		return nil
	}
	if !r.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		cur := State(r.state.Load())
		r.lifecycleMu.Unlock()
		return fmt.Errorf("runner: cannot start from state %s", cur)
	}
	r.runCtx, r.runCancel = context.WithCancel(ctx)
	r.tickersStop = make(chan struct{})
	r.lifecycleMu.Unlock()

	if err := r.fanOut(func(rt node.Runtime) error { return rt.Start(r.runCtx) }); err != nil {
		return err
	}

	r.startMetricsTicker()
	if r.def.Config.EnableCheckpointing && r.persist != nil {
		r.startCheckpointTicker()
	}

	r.emitEvent(EventGraphStarted, "", nil)
	return nil
}

// Pause transitions running->paused, fanning out to every node in parallel.
// A no-op in any other state.
func (r *Runner) Pause(_ context.Context) error {
	if !r.state.CompareAndSwap(int32(StateRunning), int32(StatePaused)) {
		return nil
	}
	return r.fanOut(func(rt node.Runtime) error { return rt.Pause() })
}

// Resume transitions paused->running, fanning out to every node in
// parallel. A no-op in any other state.
func (r *Runner) Resume(_ context.Context) error {
	if !r.state.CompareAndSwap(int32(StatePaused), int32(StateRunning)) {
		return nil
	}
	return r.fanOut(func(rt node.Runtime) error { return rt.Resume() })
}

// Stop transitions any state to stopped, tearing down timers and fanning
// out to every node in parallel before they return. Calling Stop more than
// once is a no-op.
func (r *Runner) Stop(ctx context.Context) error {
	r.lifecycleMu.Lock()
	prev := State(r.state.Swap(int32(StateStopped)))
	if prev == StateStopped {
		r.lifecycleMu.Unlock()
		return nil
	}
	stop := r.tickersStop
	cancel := r.runCancel
	r.lifecycleMu.Unlock()

	if stop != nil {
		close(stop)
	}
	r.tickersWG.Wait()

	err := r.fanOut(func(rt node.Runtime) error { return rt.Stop() })
	if cancel != nil {
		cancel()
	}
	r.recomputeMetrics()

	if r.def.Config.EnableCheckpointing && r.persist != nil {
		_ = r.SaveState(ctx)
	}

	r.emitEvent(EventGraphStopped, "", nil)
	return err
}

// fanOut runs fn against every node concurrently and waits for all of them,
// returning the first error encountered (if any).
func (r *Runner) fanOut(fn func(node.Runtime) error) error {
	r.initMu.Lock()
	nodes := make(map[string]node.Runtime, len(r.nodes))
	for id, rt := range r.nodes {
		nodes[id] = rt
	}
	r.initMu.Unlock()

	var wg sync.WaitGroup
	errCh := make(chan error, len(nodes))
	for id, rt := range nodes {
		wg.Add(1)
		go func(id string, rt node.Runtime) {
			defer wg.Done()
			if err := fn(rt); err != nil {
				errCh <- fmt.Errorf("node %s: %w", id, err)
			}
		}(id, rt)
	}
	wg.Wait()
	close(errCh)

	var first error
	for err := range errCh {
		if first == nil {
			first = err
		}
	}
	return first
}

func (r *Runner) startMetricsTicker() {
	r.tickersWG.Add(1)
	stop := r.tickersStop
	go func() {
		defer r.tickersWG.Done()
		ticker := time.NewTicker(r.metricsTick)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				r.recomputeMetrics()
			}
		}
	}()
}

func (r *Runner) startCheckpointTicker() {
	r.tickersWG.Add(1)
	stop := r.tickersStop
	go func() {
		defer r.tickersWG.Done()
		ticker := time.NewTicker(r.checkpointInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = r.SaveState(context.Background())
			}
		}
	}()
}
