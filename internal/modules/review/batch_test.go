package review

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyBatchIsolatesFailures(t *testing.T) {
	result := applyBatch([]string{"a", "b", "c", "d"}, func(id string) error {
		switch id {
		case "b":
			return fmt.Errorf("%w: %s", ErrContentNotFound, id)
		case "d":
			return fmt.Errorf("%w: approve from rejected", ErrInvalidState)
		}
		return nil
	})

	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 2, result.FailCount)
	assert.Equal(t, 4, result.SuccessCount+result.FailCount)

	require.Len(t, result.Failures, 2)
	assert.Equal(t, "b", result.Failures[0].ID)
	assert.Equal(t, "not found", result.Failures[0].Reason)
	assert.Equal(t, "d", result.Failures[1].ID)
	assert.Contains(t, result.Failures[1].Reason, "invalid state transition")
}

func TestApplyBatchAllSucceed(t *testing.T) {
	result := applyBatch([]string{"a", "b"}, func(string) error { return nil })

	assert.Equal(t, 2, result.SuccessCount)
	assert.Zero(t, result.FailCount)
	assert.NotNil(t, result.Failures)
	assert.Empty(t, result.Failures)
}

func TestApplyBatchEmptyInput(t *testing.T) {
	called := false
	result := applyBatch(nil, func(string) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.Zero(t, result.SuccessCount)
	assert.Zero(t, result.FailCount)
	assert.NotNil(t, result.Failures)
}

func TestFailureReasonPassthrough(t *testing.T) {
	assert.Equal(t, "not found", failureReason(ErrContentNotFound))
	assert.Equal(t, "boom", failureReason(errors.New("boom")))
}
