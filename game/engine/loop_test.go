package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

// scripted is an action that records its name and returns a fixed status
type scripted struct {
	name   string
	log    *[]string
	status ActionStatus
}

func (s scripted) Name() string { return s.name }

func (s scripted) Apply(w *World, target Target) (ActionStatus, *Applied) {
	*s.log = append(*s.log, s.name)
	if s.status.Outcome == OutcomeFailed {
		return s.status, nil
	}
	return s.status, &Applied{Duration: s.status.Duration}
}

func (s scripted) Undo(w *World, applied *Applied) {}

func act(a Action) TargetedAction {
	return TargetedAction{Target: ExactTargets(), Action: a}
}

func TestLoop_TimerGatesActions(t *testing.T) {
	w, red := row(100 * time.Millisecond)
	l := NewLoop(w)
	l.OnSignal(ControlReaction([]Color{Red}, ControlWalk))

	l.Send(MoveSignal(Right))
	l.Send(MoveSignal(Right))

	l.Tick(0)
	if got := positionOf(t, w, red); got != pos(1, 0) {
		t.Fatalf("Expected first move applied, got %v", got)
	}
	if l.State() != Blocked {
		t.Fatalf("Expected blocked, got %v", l.State())
	}

	l.Tick(50 * time.Millisecond)
	if got := positionOf(t, w, red); got != pos(1, 0) {
		t.Errorf("Second move must wait for the timer, got %v", got)
	}
	if l.Timer().Remaining() != 50*time.Millisecond {
		t.Errorf("Expected 50ms remaining, got %v", l.Timer().Remaining())
	}

	l.Tick(50 * time.Millisecond)
	if got := positionOf(t, w, red); got != pos(2, 0) {
		t.Errorf("Expected second move once the timer elapsed, got %v", got)
	}
	if p, ok := w.PerformingOf(red); !ok || p.Action.Name() != "willing_move(right)" {
		t.Errorf("Expected a fresh stamp for the second move, got %+v", p)
	}

	if err := l.Settle(10); err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if l.State() != Idle {
		t.Errorf("Expected idle, got %v", l.State())
	}
	if _, ok := w.PerformingOf(red); ok {
		t.Error("Stamps are cleared once the timer elapses")
	}
}

func TestLoop_FollowUpsRunFIFO(t *testing.T) {
	var log []string
	a1 := scripted{name: "a1", log: &log, status: InstantlyMade()}
	a2 := scripted{name: "a2", log: &log, status: InstantlyMade()}
	b1 := scripted{name: "b1", log: &log, status: InstantlyMade()}
	a := scripted{name: "a", log: &log, status: Made(0, act(a1), act(a2))}
	b := scripted{name: "b", log: &log, status: Made(0, act(b1))}

	l := NewLoop(NewWorld())
	l.OnSignal(func(Signal, View) []TargetedAction {
		return []TargetedAction{act(a), act(b)}
	})
	l.Send(MoveSignal(Up))
	if err := l.Settle(10); err != nil {
		t.Fatal(err)
	}

	want := []string{"a", "b", "a1", "a2", "b1"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("Expected %v, got %v", want, log)
	}
}

func TestLoop_InstantlyMadeAddsNothing(t *testing.T) {
	var log []string
	stray := scripted{name: "stray", log: &log, status: InstantlyMade()}
	instant := ActionStatus{Outcome: OutcomeInstantlyMade, FollowUps: []TargetedAction{act(stray)}}
	head := scripted{name: "head", log: &log, status: instant}

	l := NewLoop(NewWorld())
	l.OnSignal(func(Signal, View) []TargetedAction {
		return []TargetedAction{act(head)}
	})
	l.Send(MoveSignal(Up))
	if err := l.Settle(10); err != nil {
		t.Fatal(err)
	}

	want := []string{"head"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("Expected %v, got %v", want, log)
	}
}

func TestLoop_ReactionsSeeWorldBeforeBatch(t *testing.T) {
	w, red := row(0)
	l := NewLoop(w)
	l.OnSignal(ControlReaction([]Color{Red}, ControlWalk))

	var seen []Position
	l.OnSignal(func(_ Signal, v View) []TargetedAction {
		e, _ := v.Entity(red)
		seen = append(seen, e.Pos)
		return nil
	})

	l.Send(MoveSignal(Right))
	l.Send(MoveSignal(Right))
	if err := l.Settle(10); err != nil {
		t.Fatal(err)
	}

	want := []Position{pos(0, 0), pos(1, 0)}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("Expected %v, got %v", want, seen)
	}
}

func TestLoop_FailedActionIsSkipped(t *testing.T) {
	var log []string
	fail := scripted{name: "fail", log: &log, status: Failed(CanMoveResult{Kind: CanMoveNoFloor})}
	ok := scripted{name: "ok", log: &log, status: InstantlyMade()}

	l := NewLoop(NewWorld())
	var frames []Frame
	l.Observe(func(f Frame) { frames = append(frames, f) })
	l.OnSignal(func(Signal, View) []TargetedAction {
		return []TargetedAction{act(fail), act(ok)}
	})
	l.Send(MoveSignal(Up))
	if err := l.Settle(10); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(log, []string{"fail", "ok"}) {
		t.Errorf("Expected both actions attempted, got %v", log)
	}
	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(frames))
	}
	if frames[0].Outcome != "failed" || frames[0].Reason != "no_floor" {
		t.Errorf("Unexpected first frame %+v", frames[0])
	}
	if frames[1].Outcome != "instantly_made" || frames[1].Seq != 2 {
		t.Errorf("Unexpected second frame %+v", frames[1])
	}
}

func TestLoop_StepBatchAfterProgressOnly(t *testing.T) {
	tests := []struct {
		name      string
		status    ActionStatus
		wantSteps int
	}{
		{"failed batch", Failed(CanMoveResult{Kind: CanMoveBumpedInto}), 0},
		{"instant batch", InstantlyMade(), 1},
		{"made batch", Made(20 * time.Millisecond), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var log []string
			l := NewLoop(NewWorld())
			l.OnSignal(func(Signal, View) []TargetedAction {
				return []TargetedAction{act(scripted{name: "s", log: &log, status: tt.status})}
			})
			steps := 0
			l.OnStep(func(View) []TargetedAction {
				steps++
				// a productive step batch does not trigger another one
				return []TargetedAction{act(scripted{name: "step", log: &log, status: InstantlyMade()})}
			})

			l.Send(MoveSignal(Up))
			if err := l.Settle(10); err != nil {
				t.Fatal(err)
			}
			if steps != tt.wantSteps {
				t.Errorf("Expected %d step batches, got %d", tt.wantSteps, steps)
			}
		})
	}
}

func TestLoop_CollectsInStepBatch(t *testing.T) {
	w, _ := row(100 * time.Millisecond)
	w.create(EntitySpec{Kind: KindCollectible, Pos: pos(1, 0)})

	l := NewLoop(w)
	l.OnSignal(ControlReaction([]Color{Red}, ControlWalk))
	l.OnStep(CollectReaction([]Color{Red}))
	var frames []Frame
	l.Observe(func(f Frame) { frames = append(frames, f) })

	l.Send(MoveSignal(Right))
	l.Tick(0)
	if _, ok := w.Collectible(pos(1, 0)); !ok {
		t.Fatal("Collectible must survive while the move is in flight")
	}
	l.Tick(100 * time.Millisecond)
	if _, ok := w.Collectible(pos(1, 0)); ok {
		t.Fatal("Expected the collectible to be picked up")
	}

	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames, got %+v", frames)
	}
	if frames[0].Batch != "signal" || frames[1].Batch != "step" || frames[1].Action != "collect" {
		t.Errorf("Unexpected frames %+v", frames)
	}
}

func TestLoop_InstantPushLeavesCollectingToSteps(t *testing.T) {
	tests := []struct {
		name    string
		collect bool
		frames  []string
	}{
		{"no step reaction", false, []string{"signal push(right)"}},
		{"step reaction", true, []string{"signal push(right)", "step collect"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := row(0)
			w.create(EntitySpec{Kind: KindCollectible, Pos: pos(1, 0)})

			l := NewLoop(w)
			l.OnSignal(ControlReaction([]Color{Red}, ControlPush))
			if tt.collect {
				l.OnStep(CollectReaction([]Color{Red}))
			}
			var frames []string
			l.Observe(func(f Frame) { frames = append(frames, f.Batch+" "+f.Action) })

			l.Send(MoveSignal(Right))
			if err := l.Settle(10); err != nil {
				t.Fatal(err)
			}

			if !reflect.DeepEqual(frames, tt.frames) {
				t.Errorf("Expected frames %v, got %v", tt.frames, frames)
			}
			if _, ok := w.Collectible(pos(1, 0)); ok == tt.collect {
				t.Errorf("Expected collectible present=%v", !tt.collect)
			}
		})
	}
}

func TestLoop_MarksBatchesOnUndoStack(t *testing.T) {
	w, _ := row(0)
	l := NewLoop(w)
	l.OnSignal(ControlReaction([]Color{Red}, ControlPush))

	l.Send(MoveSignal(Right))
	l.Send(MoveSignal(Up)) // blocked, empty batch
	l.Send(MoveSignal(Right))
	if err := l.Settle(10); err != nil {
		t.Fatal(err)
	}

	want := []string{"push(right)", "next_batch", "push(right)"}
	if got := w.UndoStack().Describe(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestLoop_Flush(t *testing.T) {
	w, red := row(100 * time.Millisecond)
	l := NewLoop(w)
	l.OnSignal(ControlReaction([]Color{Red}, ControlWalk))

	l.Send(MoveSignal(Right))
	l.Send(MoveSignal(Right))
	l.Inbox() <- MoveSignal(Right)
	l.Tick(0)
	if l.State() != Blocked {
		t.Fatalf("Expected blocked, got %v", l.State())
	}

	l.Flush()
	if l.State() != Idle {
		t.Errorf("Expected idle after flush, got %v", l.State())
	}
	if l.Timer().Executing() {
		t.Error("Expected the timer to be cleared")
	}
	if _, ok := w.PerformingOf(red); ok {
		t.Error("Expected stamps to be cleared")
	}
	if err := l.Settle(10); err != nil {
		t.Fatal(err)
	}
	if got := positionOf(t, w, red); got != pos(1, 0) {
		t.Errorf("Flushed signals must not run, red at %v", got)
	}
}

func TestLoop_Inbox(t *testing.T) {
	w, red := row(0)
	l := NewLoop(w)
	l.OnSignal(ControlReaction([]Color{Red}, ControlWalk))

	l.Inbox() <- MoveSignal(Right)
	if l.State() != DrainingSignalBatch {
		t.Errorf("Expected pending inbox to count as work, got %v", l.State())
	}
	l.Tick(0)
	if got := positionOf(t, w, red); got != pos(1, 0) {
		t.Errorf("Expected inbox signal applied, got %v", got)
	}
}

func TestLoop_SettleLimit(t *testing.T) {
	l := NewLoop(NewWorld())
	var log []string
	// a follow-up chain deeper than the tick budget
	chain := InstantlyMade()
	for i := 0; i < 20; i++ {
		chain = Made(time.Millisecond, act(scripted{name: "loop", log: &log, status: chain}))
	}
	l.OnSignal(func(Signal, View) []TargetedAction {
		return []TargetedAction{act(scripted{name: "head", log: &log, status: chain})}
	})
	l.Send(MoveSignal(Up))

	if err := l.Settle(5); !errors.Is(err, ErrNotSettled) {
		t.Errorf("Expected ErrNotSettled, got %v", err)
	}
}

func TestLoop_RunStopsWithContext(t *testing.T) {
	l := NewLoop(NewWorld())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Run(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
