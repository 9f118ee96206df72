package completion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/models"
)

func TestCustomRules(t *testing.T) {
	tracker := newFakeTracker()
	tracker.completed[courseKey{100, 3}] = true
	rules := CustomRules{
		Evaluator: NewEvaluator(tracker),
		Subcourse: &models.Subcourse{ID: 1, RefCourse: refCourse(3)},
	}
	ctx := context.Background()

	assert.Equal(t, []string{"completionrefcourse"}, rules.ListRules())
	assert.Equal(t, []string{"completionview", "completionusegrade", "completionpassgrade", "completionrefcourse"}, rules.SortOrder())

	desc, err := rules.Describe(RuleRefCourse, "pt_br")
	require.NoError(t, err)
	assert.Equal(t, "Requer a conclusão do curso", desc)

	state, err := rules.Evaluate(ctx, RuleRefCourse, 100)
	require.NoError(t, err)
	assert.Equal(t, models.CompletionComplete, state)

	state, err = rules.Evaluate(ctx, RuleRefCourse, 101)
	require.NoError(t, err)
	assert.Equal(t, models.CompletionIncomplete, state)

	_, err = rules.Describe("completionentries", "en")
	assert.ErrorIs(t, err, ErrUnknownRule)

	_, err = rules.Evaluate(ctx, "completionentries", 100)
	assert.ErrorIs(t, err, ErrUnknownRule)
}
