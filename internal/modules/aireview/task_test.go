package aireview

import (
	"errors"
	"fmt"
	"testing"

	"github.com/openkb/review-core/internal/modules/modelpool"
	"github.com/openkb/review-core/internal/modules/review"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestClassifyRetryDecision(t *testing.T) {
	r := &TaskRunner{log: zap.NewNop()}

	assert.NoError(t, r.classify(nil, "id"), "success completes the task")

	// Permanent conditions finish without retry.
	assert.NoError(t, r.classify(fmt.Errorf("%w: id", review.ErrContentNotFound), "id"))
	assert.NoError(t, r.classify(fmt.Errorf("%w: %q", review.ErrUnknownContentType, "x"), "id"))

	// Transient conditions propagate so the worker reschedules.
	assert.Error(t, r.classify(modelpool.ErrNoModelAvailable, "id"))
	assert.Error(t, r.classify(errors.New("provider error (500): upstream"), "id"))
}
