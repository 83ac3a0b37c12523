package review

import (
	"testing"

	"github.com/openkb/review-core/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestResolveTransition(t *testing.T) {
	cases := []struct {
		name   string
		status models.ContentStatus
		action Action
		want   transitionOutcome
	}{
		{"approve pending", models.StatusPending, ActionApprove, outcomeApply},
		{"approve approved is idempotent", models.StatusApproved, ActionApprove, outcomeNoop},
		{"approve rejected is invalid", models.StatusRejected, ActionApprove, outcomeInvalid},

		{"reject pending", models.StatusPending, ActionReject, outcomeApply},
		{"reject rejected is idempotent", models.StatusRejected, ActionReject, outcomeNoop},
		{"reject approved is invalid", models.StatusApproved, ActionReject, outcomeInvalid},

		{"return pending to draft", models.StatusPending, ActionReturnDraft, outcomeApply},
		{"return approved is invalid", models.StatusApproved, ActionReturnDraft, outcomeInvalid},
		{"return rejected is invalid", models.StatusRejected, ActionReturnDraft, outcomeInvalid},

		{"unknown action is invalid", models.StatusPending, Action("publish"), outcomeInvalid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, resolveTransition(tc.status, tc.action))
		})
	}
}

func TestTableFor(t *testing.T) {
	tbl, err := tableFor(models.ContentTypeKnowledge)
	assert.NoError(t, err)
	assert.Equal(t, "knowledge_bases", tbl)

	tbl, err = tableFor(models.ContentTypePersona)
	assert.NoError(t, err)
	assert.Equal(t, "persona_cards", tbl)

	_, err = tableFor(models.ContentType("comment"))
	assert.ErrorIs(t, err, ErrUnknownContentType)
}
