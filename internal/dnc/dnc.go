// Package dnc implements the Divide-and-Conquer Manager (C10): it takes
// the subqueries it is given (it does not divide a query itself),
// dispatches them across a shared worker pool, and races SAT against
// exhaustive UNSAT across every subquery.
//
// Dispatch runs on internal/parallel's WorkerPool: every Subquery carries
// its uuid into Submit, so a stalled subquery surfaces through the pool's
// DeadlockDetector and a runaway fan-out is throttled by its
// BackpressureController before memory grows unbounded.
package dnc

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gitrdm/marabou-go/internal/engine"
	"github.com/gitrdm/marabou-go/internal/parallel"
)

// Outcome is the per-subquery result.
type Outcome int

const (
	SubqueryUnknown Outcome = iota
	SubquerySAT
	SubqueryUNSAT
	SubqueryTimedOut
)

// Subquery is one unit of work dispatched to a worker: a set of extra
// tightenings layered on top of the shared root query, carried by an
// engine.Engine clone (share-nothing: each subquery gets its own deep
// clone of the constraint lists).
type Subquery struct {
	ID uuid.UUID
	Engine *engine.Engine
	Timeout time.Duration
	Depth int
}

// SubqueryResult is what a worker reports back after running a Subquery.
type SubqueryResult struct {
	ID uuid.UUID
	Outcome Outcome
	Model map[int]float64
}

// Manager coordinates N worker engines over a shared subquery queue, the
// unsolved_count/should_quit atomics, and an aggregation rule where any
// SAT result immediately wins.
type Manager struct {
	pool *parallel.WorkerPool

	mu sync.Mutex
	pending []*Subquery

	unsolvedCount int64
	shouldQuit int32

	results chan SubqueryResult
	done chan struct{}

	// OnlineDivides and TimeoutFactor are carried from Options; neither
	// Run nor runOne reads them, so a timed-out subquery is not re-divided.
	OnlineDivides int
	TimeoutFactor float64
}

// New builds a Manager over numWorkers goroutines.
func New(numWorkers int) *Manager {
	return &Manager{
		pool: parallel.NewWorkerPool(numWorkers),
		results: make(chan SubqueryResult, 64),
		done: make(chan struct{}),
		OnlineDivides: 2,
		TimeoutFactor: 1.5,
	}
}

// Enqueue adds subqueries to the shared pending list and sets the initial
// unsolved_count.
func (m *Manager) Enqueue(subqueries []*Subquery) {
	m.mu.Lock()
	m.pending = append(m.pending, subqueries...)
	m.mu.Unlock()
	atomic.AddInt64(&m.unsolvedCount, int64(len(subqueries)))
}

// pop removes and returns the next pending subquery, or nil if none
// remain. Implemented here as a mutex-guarded slice since Go's
// GOMAXPROCS-scale worker counts make a true lock-free MPMC queue
// unnecessary overhead for this workload.
func (m *Manager) pop() *Subquery {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return nil
	}
	sq := m.pending[0]
	m.pending = m.pending[1:]
	return sq
}

func (m *Manager) requestQuit() { atomic.StoreInt32(&m.shouldQuit, 1) }
func (m *Manager) quitRequested() bool { return atomic.LoadInt32(&m.shouldQuit) == 1 }

// Run dispatches every pending subquery across the worker pool and blocks
// until either a SAT result arrives (racing ahead of the rest), every
// subquery has reported, or ctx is cancelled. Once every subquery has
// reported without a SAT, the outcome is UNSAT only if all of them
// reported UNSAT; otherwise it is the last non-UNSAT outcome reported.
func (m *Manager) Run(ctx context.Context) (Outcome, map[int]float64, error) {
	var wg sync.WaitGroup
	unresolved := SubqueryUNSAT

	drain := func() {
		defer wg.Done()
		for {
			sq := m.pop()
			if sq == nil {
				return
			}
			if m.quitRequested() {
				atomic.AddInt64(&m.unsolvedCount, -1)
				continue
			}
			wg.Add(1)
			sq := sq
			err := m.pool.Submit(ctx, sq.ID.String(), func() {
					defer wg.Done()
					m.runOne(ctx, sq)
			})
			if err != nil {
				wg.Done()
				return
			}
		}
	}

	wg.Add(1)
	go drain()

	go func() {
		wg.Wait()
		close(m.done)
	}()

	for {
		select {
			case res := <-m.results:
				if res.Outcome == SubquerySAT {
					m.requestQuit()
					log.Printf("[dnc] subquery %s reported SAT, cancelling remaining work", res.ID)
					return SubquerySAT, res.Model, nil
				}
				if res.Outcome != SubqueryUNSAT {
					unresolved = res.Outcome
				}
				if atomic.AddInt64(&m.unsolvedCount, -1) <= 0 {
					return unresolved, nil, nil
				}
			case <-m.done:
				if len(m.results) > 0 {
					continue
				}
				if atomic.LoadInt64(&m.unsolvedCount) <= 0 {
					return unresolved, nil, nil
				}
				return SubqueryUnknown, nil, ctx.Err()
			case <-ctx.Done():
				m.requestQuit()
				return SubqueryTimedOut, nil, ctx.Err()
		}
	}
}

// runOne runs a single subquery's engine to completion (or timeout) and
// reports a SubqueryResult. A subquery that times out is reported as
// SubqueryTimedOut; it is not divided or re-enqueued.
func (m *Manager) runOne(parentCtx context.Context, sq *Subquery) {
	ctx := parentCtx
	var cancel context.CancelFunc
	if sq.Timeout > 0 {
		ctx, cancel = context.WithTimeout(parentCtx, sq.Timeout)
		defer cancel()
	}

	code, model := sq.Engine.Solve(ctx)
	switch code {
		case engine.SAT:
			m.results <- SubqueryResult{ID: sq.ID, Outcome: SubquerySAT, Model: model}
		case engine.UNSAT:
			m.results <- SubqueryResult{ID: sq.ID, Outcome: SubqueryUNSAT}
		case engine.TimedOut:
			log.Printf("[dnc] subquery %s timed out at depth %d", sq.ID, sq.Depth)
			m.results <- SubqueryResult{ID: sq.ID, Outcome: SubqueryTimedOut}
		default:
			m.results <- SubqueryResult{ID: sq.ID, Outcome: SubqueryUnknown}
	}
}

// NewSubquery wraps an engine clone into a uuid-identified unit of work,
// using google/uuid to correlate concurrent work across goroutines.
func NewSubquery(e *engine.Engine, timeout time.Duration, depth int) *Subquery {
	return &Subquery{ID: uuid.New(), Engine: e, Timeout: timeout, Depth: depth}
}

// Shutdown releases the underlying worker pool.
func (m *Manager) Shutdown() { m.pool.Shutdown() }

// Stats exposes the underlying pool's ExecutionStats for reporting.
func (m *Manager) Stats() *parallel.ExecutionStats { return m.pool.GetStats() }
