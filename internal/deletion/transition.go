package deletion

import "fmt"

// transitions is the allowed state graph for a deletion attempt. Note the
// absence of Executing → Idle: an in-flight delete cannot be dismissed.
var transitions = map[State][]State{
	StateIdle:        {StateChecking},
	StateChecking:    {StateChecking, StateBlocked, StateConfirmable},
	StateBlocked:     {StateChecking, StateIdle},
	StateConfirmable: {StateArmed, StateChecking, StateIdle},
	StateArmed:       {StateConfirmable, StateExecuting, StateChecking, StateIdle},
	StateExecuting:   {StateDone, StateFailed},
	StateDone:        {StateIdle},
	StateFailed:      {StateArmed, StateChecking, StateIdle},
}

// validateTransition checks whether moving from current to target is
// allowed. It returns nil if the transition is valid, or a descriptive
// error otherwise.
func validateTransition(current, target State) error {
	allowed, ok := transitions[current]
	if !ok {
		return fmt.Errorf("unknown current state: %s", current)
	}
	for _, s := range allowed {
		if s == target {
			return nil
		}
	}
	return fmt.Errorf("transition from %q to %q is not allowed", current, target)
}
