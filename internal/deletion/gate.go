// Package deletion implements the confirmation gate in front of
// destructive deletes. One Gate tracks one deletion attempt as an explicit
// state machine, so retry and confirmation-preservation behavior is a
// testable transition rather than dialog-local flags.
package deletion

import (
	"errors"

	"github.com/terrasense/agriops/internal/dependency"
	"github.com/terrasense/agriops/internal/types"
)

// ConfirmationPhrase is the literal text the user must type before a
// deletion can be armed. Case-sensitive exact match.
const ConfirmationPhrase = "DELETE"

// State of a deletion attempt.
type State string

const (
	StateIdle        State = "idle"
	StateChecking    State = "checking"
	StateBlocked     State = "blocked"
	StateConfirmable State = "confirmable"
	StateArmed       State = "armed"
	StateExecuting   State = "executing"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Errors returned by gate guards.
var (
	ErrNotArmed     = errors.New("deletion is not armed")
	ErrNotRetryable = errors.New("no failed execution to retry")
)

// Gate is the per-attempt state machine. It owns no I/O: callers run the
// dependency check and the delete themselves and feed results back in.
type Gate struct {
	state        State
	checkToken   uint64
	checkErr     error
	deps         []types.Dependency
	checked      bool // a definitive check result has arrived
	confirmation string
	execErr      error
}

// NewGate creates a gate in the idle state.
func NewGate() *Gate {
	return &Gate{state: StateIdle}
}

// State returns the current state.
func (g *Gate) State() State { return g.state }

// Dependencies returns the blocking records from the last definitive
// check, so callers can show the exact entity/type/count triples.
func (g *Gate) Dependencies() []types.Dependency { return g.deps }

// Confirmation returns the confirmation text as last typed. Preserved
// across failed executions so the user can retry without re-typing.
func (g *Gate) Confirmation() string { return g.confirmation }

// CheckErr returns the error from the last failed dependency check, if
// the gate is still waiting on a definitive result.
func (g *Gate) CheckErr() error { return g.checkErr }

// ExecErr returns the error from the last failed execution.
func (g *Gate) ExecErr() error { return g.execErr }

// BeginCheck moves the gate into Checking and returns the token the
// eventual result must carry. A newer BeginCheck invalidates older
// in-flight checks: their late results are ignored.
func (g *Gate) BeginCheck() (uint64, error) {
	if err := validateTransition(g.state, StateChecking); err != nil {
		return 0, err
	}
	g.checkToken++
	g.checked = false
	g.checkErr = nil
	g.state = StateChecking
	return g.checkToken, nil
}

// CompleteCheck records a definitive dependency-check result. Results
// carrying a stale token are dropped — the dialog they belong to is gone.
func (g *Gate) CompleteCheck(token uint64, deps []types.Dependency) {
	if token != g.checkToken || g.state != StateChecking {
		return
	}
	g.checked = true
	g.checkErr = nil
	g.deps = deps
	if dependency.ShouldBlockDeletion(deps) {
		g.state = StateBlocked
		return
	}
	g.state = StateConfirmable
	g.resolve()
}

// FailCheck records a failed dependency check. The dependency state is
// unknown, so the gate stays in Checking — neither blocked nor
// confirmable — until a definitive result arrives. Fail closed.
func (g *Gate) FailCheck(token uint64, err error) {
	if token != g.checkToken || g.state != StateChecking {
		return
	}
	g.checked = false
	g.checkErr = err
}

// SetConfirmation updates the typed confirmation text. Ignored while a
// delete is executing. Arming and disarming follow from the text: an
// exact match in Confirmable arms the gate, anything else disarms it.
func (g *Gate) SetConfirmation(text string) {
	if g.state == StateExecuting {
		return
	}
	g.confirmation = text
	g.resolve()
}

// resolve moves between Confirmable and Armed based on the current
// confirmation text. Blocked and Checking states never arm.
func (g *Gate) resolve() {
	switch g.state {
	case StateConfirmable:
		if g.confirmation == ConfirmationPhrase {
			g.state = StateArmed
		}
	case StateArmed:
		if g.confirmation != ConfirmationPhrase {
			g.state = StateConfirmable
		}
	}
}

// BeginExecute moves an armed gate into Executing. The guard re-checks
// every arming condition rather than trusting the state alone.
func (g *Gate) BeginExecute() error {
	if g.state != StateArmed || !g.checked || g.confirmation != ConfirmationPhrase {
		return ErrNotArmed
	}
	if dependency.ShouldBlockDeletion(g.deps) {
		return ErrNotArmed
	}
	g.state = StateExecuting
	return nil
}

// CompleteExecute records the execution outcome. On failure the gate
// becomes retryable with the confirmation text intact.
func (g *Gate) CompleteExecute(err error) {
	if g.state != StateExecuting {
		return
	}
	if err != nil {
		g.execErr = err
		g.state = StateFailed
		return
	}
	g.execErr = nil
	g.state = StateDone
}

// Retry re-arms a failed attempt without re-typing the confirmation.
func (g *Gate) Retry() error {
	if g.state != StateFailed {
		return ErrNotRetryable
	}
	if g.confirmation != ConfirmationPhrase || !g.checked {
		return ErrNotArmed
	}
	g.state = StateArmed
	return nil
}

// CanClose reports whether the dialog may be dismissed. Closing is
// suppressed while a delete is in flight so it is never silently
// abandoned from the UI's perspective.
func (g *Gate) CanClose() bool {
	return g.state != StateExecuting
}

// Close resets the gate to Idle if dismissal is allowed.
func (g *Gate) Close() bool {
	if !g.CanClose() {
		return false
	}
	*g = Gate{state: StateIdle, checkToken: g.checkToken}
	return true
}
