package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/trapped/pkg/logger"
)

// SignalReaction turns a signal into targeted actions
type SignalReaction func(sig Signal, v View) []TargetedAction

// StepReaction inspects the world after a productive signal batch
type StepReaction func(v View) []TargetedAction

// LoopState describes what the loop is doing between ticks
type LoopState uint8

const (
	Idle LoopState = iota
	DrainingSignalBatch
	DrainingStepBatch
	Blocked
)

func (s LoopState) String() string {
	switch s {
	case Idle:
		return "idle"
	case DrainingSignalBatch:
		return "draining_signal_batch"
	case DrainingStepBatch:
		return "draining_step_batch"
	case Blocked:
		return "blocked"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

type batchKind uint8

const (
	batchNone batchKind = iota
	batchSignal
	batchStep
)

func (b batchKind) String() string {
	switch b {
	case batchSignal:
		return "signal"
	case batchStep:
		return "step"
	}
	return "none"
}

// Frame records one applied action for observers
type Frame struct {
	Seq      int           `json:"seq"`
	Batch    string        `json:"batch"`
	Action   string        `json:"action"`
	Target   string        `json:"target"`
	Outcome  string        `json:"outcome"`
	Duration time.Duration `json:"duration"`
	Reason   string        `json:"reason,omitempty"`
}

// Loop is the single-threaded signal, reaction and action scheduler.
// It must only be ticked from one goroutine; other goroutines feed it
// through Inbox.
type Loop struct {
	world   *World
	signals SignalQueue
	inbox   chan Signal
	queue   ActionQueue
	timer   ExecutionTimer
	batch   batchKind

	signalReactions []SignalReaction
	stepReactions   []StepReaction

	seq      int
	observer func(Frame)
	log      *logrus.Entry
}

// NewLoop creates a loop driving w
func NewLoop(w *World) *Loop {
	return &Loop{
		world: w,
		inbox: make(chan Signal, SignalInboxSize),
		log:   logger.Log.WithField("component", "loop"),
	}
}

// Attach points the loop at another world and flushes all pending work
func (l *Loop) Attach(w *World) {
	l.Flush()
	l.world = w
}

// OnSignal registers a signal reaction
func (l *Loop) OnSignal(r SignalReaction) {
	l.signalReactions = append(l.signalReactions, r)
}

// OnStep registers a step reaction
func (l *Loop) OnStep(r StepReaction) {
	l.stepReactions = append(l.stepReactions, r)
}

// Observe sets a callback invoked for every applied action
func (l *Loop) Observe(fn func(Frame)) {
	l.observer = fn
}

// Inbox returns the channel external producers send signals on
func (l *Loop) Inbox() chan<- Signal {
	return l.inbox
}

// Send queues a signal directly
func (l *Loop) Send(sig Signal) {
	l.signals.Push(sig)
}

// Timer exposes the execution timer
func (l *Loop) Timer() *ExecutionTimer {
	return &l.timer
}

// State reports what the loop would do next
func (l *Loop) State() LoopState {
	if l.timer.Executing() {
		return Blocked
	}
	if l.queue.Len() > 0 || l.queue.Mode() == Make {
		if l.batch == batchStep {
			return DrainingStepBatch
		}
		return DrainingSignalBatch
	}
	if l.signals.Len() > 0 || len(l.inbox) > 0 {
		return DrainingSignalBatch
	}
	return Idle
}

// Flush drops the queue, pending signals and the timer in one step
func (l *Loop) Flush() {
	l.queue.Reset(DontMake)
	l.signals.Clear()
	for len(l.inbox) > 0 {
		<-l.inbox
	}
	l.timer.Clear()
	l.batch = batchNone
	if l.world != nil {
		l.world.ClearPerforming()
	}
}

func (l *Loop) drainInbox() {
	for {
		select {
		case sig := <-l.inbox:
			l.signals.Push(sig)
		default:
			return
		}
	}
}

// Tick advances the timer by delta and, once unblocked, drains queued
// actions until one starts the timer or there is nothing left to do.
func (l *Loop) Tick(delta time.Duration) {
	l.drainInbox()

	if l.timer.Executing() {
		if !l.timer.Tick(delta) {
			return
		}
		l.world.ClearPerforming()
	}

	for !l.timer.Executing() {
		if ta, ok := l.queue.Pop(); ok {
			l.apply(ta)
			continue
		}
		if l.queue.Mode() == Make {
			l.runStep()
			continue
		}
		sig, ok := l.signals.Pop()
		if !ok {
			l.batch = batchNone
			return
		}
		l.runSignal(sig)
	}
}

func (l *Loop) apply(ta TargetedAction) {
	status := ta.Apply(l.world)
	switch status.Outcome {
	case OutcomeMade:
		l.timer.Start(status.Duration)
		l.queue.Extend(status.FollowUps...)
		l.queue.markProgress()
	case OutcomeInstantlyMade:
		l.queue.markProgress()
	}

	l.seq++
	if l.observer != nil {
		f := Frame{
			Seq:      l.seq,
			Batch:    l.batch.String(),
			Action:   ta.Action.Name(),
			Target:   ta.Target.String(),
			Outcome:  status.Outcome.String(),
			Duration: status.Duration,
		}
		if status.Outcome == OutcomeFailed {
			f.Reason = status.Reason.Kind.String()
		}
		l.observer(f)
	}
}

// runSignal starts a signal batch. Every reaction sees the world as it is
// before any of the batch's actions is applied.
func (l *Loop) runSignal(sig Signal) {
	l.world.undo.MarkBatch()
	l.queue.Reset(DontMake)
	l.batch = batchSignal

	var produced []TargetedAction
	for _, r := range l.signalReactions {
		produced = append(produced, r(sig, l.world)...)
	}
	l.queue.Extend(produced...)

	l.log.WithFields(logrus.Fields{
		"signal":  sig.String(),
		"actions": len(produced),
	}).Debug("signal batch")
}

func (l *Loop) runStep() {
	l.queue.Reset(ProcessingStep)
	l.batch = batchStep

	var produced []TargetedAction
	for _, r := range l.stepReactions {
		produced = append(produced, r(l.world)...)
	}
	l.queue.Extend(produced...)

	l.log.WithField("actions", len(produced)).Debug("step batch")
}

// Settle ticks until the loop is idle, jumping the timer straight to its end
// on every tick. It fails when the loop is still busy after maxTicks.
func (l *Loop) Settle(maxTicks int) error {
	for i := 0; i < maxTicks; i++ {
		l.Tick(l.timer.Remaining())
		if l.State() == Idle {
			return nil
		}
	}
	return fmt.Errorf("%w after %d ticks", ErrNotSettled, maxTicks)
}

// Run ticks the loop in real time until ctx is done
func (l *Loop) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			l.Tick(now.Sub(last))
			last = now
		}
	}
}
