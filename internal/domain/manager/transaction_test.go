package manager

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_Commit(t *testing.T) {
	t.Parallel()

	tx, err := newTransaction(OpInstall, "greet")
	require.NoError(t, err)
	assert.Equal(t, PhasePending, tx.Phase())

	tx.validated()
	assert.Equal(t, PhaseValidated, tx.Phase())

	tx.staged(nil)
	assert.Equal(t, PhaseStaged, tx.Phase())

	tx.commit()
	assert.Equal(t, PhaseCommitted, tx.Phase())
}

func TestTransaction_FailBeforeStaging(t *testing.T) {
	t.Parallel()

	tx, err := newTransaction(OpUpdate, "greet")
	require.NoError(t, err)
	tx.validated()

	cause := errors.New("boom")
	err = tx.fail(cause)

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, PhaseFailed, opErr.Phase)
	assert.Equal(t, OpUpdate, opErr.Op)
	assert.Equal(t, "update plugin greet: boom", err.Error())
	assert.Equal(t, cause, tx.state.Err)
}

func TestTransaction_RollbackRunsUndoInReverse(t *testing.T) {
	t.Parallel()

	tx, err := newTransaction(OpUninstall, "greet")
	require.NoError(t, err)
	tx.validated()

	var order []int
	tx.staged(func() error { order = append(order, 1); return nil })
	tx.staged(func() error { order = append(order, 2); return errors.New("restore failed") })

	err = tx.fail(errors.New("save failed"))

	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, PhaseRolledBack, opErr.Phase)
	assert.Equal(t, []int{2, 1}, order)
	require.Len(t, opErr.RollbackErrs, 1)
	assert.Contains(t, err.Error(), "rollback incomplete: restore failed")
	assert.True(t, IsOperationError(err))
}
