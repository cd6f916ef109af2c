package reactant

import (
	"sync"
	"sync/atomic"
	"time"
)

// defaultEffectBudget is the default per-pass effect-execution budget.
const defaultEffectBudget = 1000

// scheduler drains pending effects in FIFO-by-schedule-time order,
// reconciling each effect's sources at dequeue time and skipping the run
// when nothing actually changed (the "maybe-dirty but actually clean"
// skip). A single shared queue and a "draining" flag make sure only
// one goroutine actively pops and runs effects at a time: a write from a
// second goroutine while a drain is already in progress simply enqueues
// its effects into the same queue and returns, trusting the active drain
// loop to pick them up before it exits (after clearing the draining flag
// under sched.mu, the loop looks at the queue once more in that same
// critical section and drains again if an effect arrived after it last
// found the queue empty).
//
// The effect budget is tracked per *drain session* rather than per
// mathematically-precise single pass: if two unrelated writes on different
// goroutines overlap, their drains are conservatively counted together.
// This can only make RunawayPropagation trip more eagerly than a perfectly
// isolated per-pass counter would, never less — a reasonable resolution
// for the "what is a pass across concurrent writers" ambiguity the source
// spec leaves unaddressed.
type scheduler struct {
	rt *Runtime

	mu       sync.Mutex
	queue    []*Effect
	queued   map[NodeID]bool
	draining bool
	budget   int

	runTotal  atomic.Int64
	skipTotal atomic.Int64
}

func newScheduler(rt *Runtime, budget int) *scheduler {
	return &scheduler{
		rt:     rt,
		queued: make(map[NodeID]bool),
		budget: budget,
	}
}

func (s *scheduler) enqueue(e *Effect) {
	s.mu.Lock()
	if s.queued[e.id] {
		s.mu.Unlock()
		return
	}
	s.queued[e.id] = true
	s.queue = append(s.queue, e)
	s.mu.Unlock()
}

func (s *scheduler) dequeue() (*Effect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}
	e := s.queue[0]
	s.queue = s.queue[1:]
	delete(s.queued, e.id)
	return e, true
}

func (s *scheduler) effectsRunTotal() int    { return int(s.runTotal.Load()) }
func (s *scheduler) effectsSkippedTotal() int { return int(s.skipTotal.Load()) }

// drain pops the pending queue until empty, reconciling and running (or
// skipping) each effect. It is a no-op if a drain is already in progress
// on this scheduler, per the re-entrancy note above.
func (s *scheduler) drain() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	if s.rt.observer != nil {
		s.rt.observer.PassStarted()
	}
	if s.rt.debug.LogPropagation {
		s.rt.logger.Debug("reactant: propagation pass start")
	}
	passStart := time.Now()
	var passRun, passSkip int
	aborted := false

	defer func() {
		s.mu.Lock()
		s.draining = false
		// After a runaway abort the leftover queue waits for the next pass.
		missed := !aborted && len(s.queue) > 0
		s.mu.Unlock()
		if s.rt.observer != nil {
			s.rt.observer.PassEnded(PassStats{
				EffectsRun:     passRun,
				EffectsSkipped: passSkip,
				Duration:       time.Since(passStart),
			})
		}
		if missed {
			s.drain()
		}
	}()

	iterations := 0
	for {
		e, ok := s.dequeue()
		if !ok {
			return
		}

		iterations++
		if iterations > s.budget {
			aborted = true
			e.abortRunaway()
			if s.rt.observer != nil {
				s.rt.observer.BudgetExceeded(e.id)
			}
			if s.rt.debug.LogPropagation {
				s.rt.logger.Warn("reactant: runaway propagation, aborting pass", "node", e.id)
			}
			return
		}

		// A freshly-constructed or explicitly-invalidated effect is Dirty
		// and always runs. An effect reached via Mark from a changed
		// source is Check, so its sources are reconciled first; if none
		// actually changed (the "maybe-dirty but actually clean" case),
		// the run is skipped and the effect falls back to Clean.
		if e.getState() == stateCheck && !reconcileSources(&e.nodeBase) {
			e.setState(stateClean)
			s.skipTotal.Add(1)
			passSkip++
			if s.rt.debug.LogEffectSkips {
				s.rt.logger.Debug("reactant: effect skip", "node", e.id)
			}
			if s.rt.observer != nil {
				s.rt.observer.EffectSkipped(e.id)
			}
			continue
		}

		start := time.Now()
		err := e.run()
		dur := time.Since(start)
		s.runTotal.Add(1)
		passRun++
		if s.rt.debug.LogEffectRuns {
			s.rt.logger.Debug("reactant: effect run", "node", e.id, "duration", dur)
		}
		if s.rt.observer != nil {
			s.rt.observer.EffectRan(e.id, dur, err)
		}
		if err != nil {
			s.rt.logger.Warn("reactant: effect run_fn failed", "node", e.id, "error", err)
		}
	}
}

// reconcileSources walks n's recorded sources, forcing lazy re-evaluation
// of any that are Memos, and reports whether any source's version now
// differs from what was recorded at n's last evaluation. This is the same
// Check-walk a Memo in state Check runs itself, reused here for Effects
// at dequeue time.
func reconcileSources(n *nodeBase) bool {
	changed := false
	for _, src := range n.sourcesSnapshot() {
		if src.reconcileFn != nil {
			src.reconcileFn()
		}
		recorded, ok := n.recordedVersionOf(src.id)
		if !ok || src.getVersion() != recorded {
			changed = true
		}
	}
	return changed
}
