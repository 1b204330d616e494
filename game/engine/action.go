package engine

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wricardo/trapped/pkg/logger"
)

// Outcome is the terminal result of applying an action
type Outcome uint8

const (
	OutcomeFailed Outcome = iota
	OutcomeInstantlyMade
	OutcomeMade
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMade:
		return "made"
	case OutcomeInstantlyMade:
		return "instantly_made"
	}
	return "failed"
}

// ActionStatus is what a single apply produced
type ActionStatus struct {
	Outcome   Outcome
	Duration  time.Duration
	FollowUps []TargetedAction
	// Reason holds the feasibility verdict of a failed move
	Reason CanMoveResult
}

// Made reports a committed action that stays in motion for d
func Made(d time.Duration, followUps ...TargetedAction) ActionStatus {
	return ActionStatus{Outcome: OutcomeMade, Duration: d, FollowUps: followUps}
}

// InstantlyMade reports a committed action with no duration. It carries
// no follow-ups.
func InstantlyMade() ActionStatus {
	return ActionStatus{Outcome: OutcomeInstantlyMade}
}

// Failed reports an action that changed nothing
func Failed(reason CanMoveResult) ActionStatus {
	return ActionStatus{Outcome: OutcomeFailed, Reason: reason}
}

// Action is an effect on a target with an exact inverse.
// Apply must not mutate anything when it fails. Undo is only valid with the
// world in precisely the state Apply left it in.
type Action interface {
	Name() string
	Apply(w *World, target Target) (ActionStatus, *Applied)
	Undo(w *World, applied *Applied)
}

// Applied records what an apply touched so it can be reversed without
// resolving the target again.
type Applied struct {
	Action   Action
	Target   Target
	Entities []EntityID
	Duration time.Duration
	// Changes are nested state changes, reverted last to first
	Changes []UndoEntry
}

func (a *Applied) revert(w *World) time.Duration {
	a.Action.Undo(w, a)
	return a.Duration
}

// Describe names the entry for history views
func (a *Applied) Describe() string {
	return a.Action.Name()
}

// TargetedAction pairs an action with the target it applies to
type TargetedAction struct {
	Target Target
	Action Action
}

// Apply runs the action and, unless it failed, commits its record to the
// world's undo stack.
func (ta TargetedAction) Apply(w *World) ActionStatus {
	status, applied := ta.Action.Apply(w, ta.Target)
	if status.Outcome == OutcomeFailed {
		logger.Log.WithFields(logrus.Fields{
			"component": "engine",
			"action":    ta.Action.Name(),
			"target":    ta.Target.String(),
			"reason":    status.Reason.Kind.String(),
		}).Debug("action failed")
		return status
	}
	if applied != nil {
		applied.Action = ta.Action
		applied.Target = ta.Target
		w.undo.Push(applied)
	}
	return status
}

func (ta TargetedAction) String() string {
	return ta.Action.Name() + ta.Target.String()
}

// finishMove builds the status and record of a committed move. The duration
// is the longest movement duration of the moved entities. Follow-ups only
// ride on a move that takes time.
func finishMove(w *World, action Action, moved []EntityID, followUps []TargetedAction) (ActionStatus, *Applied) {
	var d time.Duration
	for _, id := range moved {
		d = max(d, w.Movement(id))
	}
	applied := &Applied{Action: action, Entities: moved, Duration: d}
	if d == 0 {
		return InstantlyMade(), applied
	}
	w.stamp(moved, action, PhaseApplying)
	return Made(d, followUps...), applied
}

func undoMove(w *World, applied *Applied, dir Direction) {
	w.MoveEntities(applied.Entities, dir.Opposite())
	if applied.Duration > 0 {
		w.stamp(applied.Entities, applied.Action, PhaseUndoing)
	}
}
