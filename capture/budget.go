package capture

import "time"

// The selector wait is an explicit state machine rather than nested retry
// handling: probe, settle, final, then one of done / timed-out / not-found.
// Budget arithmetic (remaining = total minus elapsed) lives here so it can
// be tested without a browser.

type waitStage int

const (
	// stageProbe is the quick first visibility probe.
	stageProbe waitStage = iota
	// stageSettle waits for the network to settle before retrying.
	stageSettle
	// stageFinal retries the visibility wait with whatever budget is left.
	stageFinal
	// stageDone means the selector became visible.
	stageDone
	// stageTimedOut means the budget ran out before the final wait could run.
	stageTimedOut
	// stageNotFound means the final wait ran and the selector never showed.
	stageNotFound
)

func (s waitStage) String() string {
	switch s {
	case stageProbe:
		return "probe"
	case stageSettle:
		return "settle"
	case stageFinal:
		return "final"
	case stageDone:
		return "done"
	case stageTimedOut:
		return "timed-out"
	case stageNotFound:
		return "not-found"
	}
	return "unknown"
}

// budget tracks elapsed time against a fixed total allowance.
type budget struct {
	total time.Duration
	start time.Time
	now   func() time.Time
}

func newBudget(total time.Duration, now func() time.Time) *budget {
	if now == nil {
		now = time.Now
	}
	return &budget{total: total, start: now(), now: now}
}

func (b *budget) elapsed() time.Duration {
	return b.now().Sub(b.start)
}

// remaining is total − elapsed, clamped at zero.
func (b *budget) remaining() time.Duration {
	r := b.total - b.elapsed()
	if r < 0 {
		return 0
	}
	return r
}

// window caps a stage timeout to the remaining budget.
func (b *budget) window(d time.Duration) time.Duration {
	if r := b.remaining(); d > r {
		return r
	}
	return d
}

// waitPlan drives the stage transitions for one selector wait.
type waitPlan struct {
	budget *budget
	probe  time.Duration
	settle time.Duration
	stage  waitStage
}

func newWaitPlan(total, probe, settle time.Duration, now func() time.Time) *waitPlan {
	return &waitPlan{
		budget: newBudget(total, now),
		probe:  probe,
		settle: settle,
		stage:  stageProbe,
	}
}

// Stage returns the current stage.
func (p *waitPlan) Stage() waitStage {
	return p.stage
}

// StageTimeout is the time allowance for the current stage, never exceeding
// the remaining budget. For the final stage it is exactly the remainder.
func (p *waitPlan) StageTimeout() time.Duration {
	switch p.stage {
	case stageProbe:
		return p.budget.window(p.probe)
	case stageSettle:
		return p.budget.window(p.settle)
	case stageFinal:
		return p.budget.remaining()
	}
	return 0
}

// Advance transitions to the next stage given the outcome of the current
// one. The settle stage is best-effort: its outcome does not matter, only
// whether any budget is left for the final wait.
func (p *waitPlan) Advance(ok bool) waitStage {
	switch p.stage {
	case stageProbe:
		if ok {
			p.stage = stageDone
		} else if p.budget.remaining() == 0 {
			p.stage = stageTimedOut
		} else {
			p.stage = stageSettle
		}
	case stageSettle:
		if p.budget.remaining() == 0 {
			p.stage = stageTimedOut
		} else {
			p.stage = stageFinal
		}
	case stageFinal:
		if ok {
			p.stage = stageDone
		} else {
			p.stage = stageNotFound
		}
	}
	return p.stage
}
