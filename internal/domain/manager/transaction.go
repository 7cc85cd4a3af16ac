package manager

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Phase is the state of a lifecycle transaction.
type Phase string

// Machine state ids.
const (
	statePending    = "pending"
	stateValidated  = "validated"
	stateStaged     = "staged"
	stateCommitted  = "committed"
	stateFailed     = "failed"
	stateRolledBack = "rolled_back"
)

const (
	// PhasePending is the initial phase before any checks ran.
	PhasePending Phase = statePending
	// PhaseValidated means all preconditions hold; nothing has been touched yet.
	PhaseValidated Phase = stateValidated
	// PhaseStaged means the plugins directory changed but the registry did not.
	PhaseStaged Phase = stateStaged
	// PhaseCommitted means the registry was saved.
	PhaseCommitted Phase = stateCommitted
	// PhaseFailed means the operation stopped before touching anything.
	PhaseFailed Phase = stateFailed
	// PhaseRolledBack means staged changes were undone.
	PhaseRolledBack Phase = stateRolledBack
)

// Transaction events.
const (
	EventValidate = "VALIDATE"
	EventStage    = "STAGE"
	EventCommit   = "COMMIT"
	EventFail     = "FAIL"
	EventRollback = "ROLLBACK"
)

// txContext is the statekit context of a transaction.
type txContext struct {
	Op     Op
	Plugin string
	Err    error
}

// transaction drives one install, update or uninstall through its phases.
// Compensating actions registered while staging run in reverse order on
// rollback.
type transaction struct {
	op     Op
	name   string
	state  *txContext
	interp *statekit.Interpreter[txContext]
	undo   []func() error
}

func newTransaction(op Op, name string) (*transaction, error) {
	state := &txContext{Op: op, Plugin: name}

	machine, err := statekit.NewMachine[txContext]("plugin-transaction").
		WithInitial(statePending).
		WithContext(*state).
		WithAction("recordError", func(_ *txContext, event statekit.Event) {
			if err, ok := event.Payload.(error); ok {
				state.Err = err
			}
		}).
		State(statePending).
		On(EventValidate).Target(stateValidated).
		On(EventFail).Target(stateFailed).Done().
		State(stateValidated).
		On(EventStage).Target(stateStaged).
		On(EventFail).Target(stateFailed).Done().
		State(stateStaged).
		On(EventCommit).Target(stateCommitted).
		On(EventRollback).Target(stateRolledBack).Done().
		State(stateCommitted).Done().
		State(stateFailed).
		OnEntry("recordError").Done().
		State(stateRolledBack).
		OnEntry("recordError").Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s transaction: %w", op, err)
	}

	interp := statekit.NewInterpreter(machine)
	interp.Start()

	return &transaction{op: op, name: name, state: state, interp: interp}, nil
}

// Phase returns the current phase.
func (tx *transaction) Phase() Phase {
	return Phase(tx.interp.State().Value)
}

func (tx *transaction) validated() {
	tx.interp.Send(statekit.Event{Type: EventValidate})
}

// staged records the compensation for the change just made.
func (tx *transaction) staged(undo func() error) {
	if undo != nil {
		tx.undo = append(tx.undo, undo)
	}
	if tx.Phase() != PhaseStaged {
		tx.interp.Send(statekit.Event{Type: EventStage})
	}
}

func (tx *transaction) commit() {
	tx.interp.Send(statekit.Event{Type: EventCommit})
	tx.interp.Stop()
}

// fail moves the transaction to failed, or to rolled_back after running the
// compensations when something was staged. The returned error wraps err.
func (tx *transaction) fail(err error) error {
	opErr := &OperationError{Op: tx.op, Name: tx.name, Err: err}

	if tx.Phase() == PhaseStaged {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			if undoErr := tx.undo[i](); undoErr != nil {
				opErr.RollbackErrs = append(opErr.RollbackErrs, undoErr)
			}
		}
		tx.interp.Send(statekit.Event{Type: EventRollback, Payload: err})
	} else {
		tx.interp.Send(statekit.Event{Type: EventFail, Payload: err})
	}
	opErr.Phase = tx.Phase()
	tx.interp.Stop()
	return opErr
}
