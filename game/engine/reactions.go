package engine

// ControlMode selects the action a move signal turns into
type ControlMode uint8

const (
	// ControlWalk moves the controlled objects as a unit without pushing
	ControlWalk ControlMode = iota
	// ControlPush moves them as a unit and shoves pushable objects ahead
	ControlPush
	// ControlIndependent moves each controlled object on its own
	ControlIndependent
)

func (m ControlMode) String() string {
	switch m {
	case ControlPush:
		return "push"
	case ControlIndependent:
		return "independent"
	}
	return "walk"
}

// Action returns the action a move in dir runs
func (m ControlMode) Action(dir Direction) Action {
	switch m {
	case ControlPush:
		return Push{Dir: dir}
	case ControlIndependent:
		return MoveWithoutPush{Dir: dir}
	}
	return WillingMove{Dir: dir}
}

// ControlReaction moves the controlled colors on every move signal
func ControlReaction(colors []Color, mode ControlMode) SignalReaction {
	return func(sig Signal, v View) []TargetedAction {
		if sig.Kind != SignalMove || len(colors) == 0 {
			return nil
		}
		return []TargetedAction{{Target: ColorTarget(colors...), Action: mode.Action(sig.Dir)}}
	}
}

// CollectReaction picks up every collectible that shares a cell with an
// object of one of the colors.
func CollectReaction(colors []Color) StepReaction {
	return func(v View) []TargetedAction {
		var out []TargetedAction
		for _, id := range v.Live(KindCollectible) {
			e, _ := v.Entity(id)
			obj, ok := v.Object(e.Pos)
			if !ok {
				continue
			}
			g := v.GroupOf(obj)
			for _, c := range colors {
				if g.Color == c {
					out = append(out, TargetedAction{
						Target: ExactTargets(ExactCollectible(e.Pos)),
						Action: Collect{},
					})
					break
				}
			}
		}
		return out
	}
}
