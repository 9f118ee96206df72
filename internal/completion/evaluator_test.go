package completion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/models"
)

type courseKey struct {
	user, course int64
}

type fakeTracker struct {
	completed map[courseKey]bool
	modules   map[courseKey]models.ModuleCompletion
	writes    int
	err       error
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		completed: map[courseKey]bool{},
		modules:   map[courseKey]models.ModuleCompletion{},
	}
}

func (f *fakeTracker) IsCourseComplete(ctx context.Context, userID, courseID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.completed[courseKey{userID, courseID}], nil
}

func (f *fakeTracker) GetModuleCompletion(ctx context.Context, cmID, userID int64) (*models.ModuleCompletion, error) {
	mc, ok := f.modules[courseKey{userID, cmID}]
	if !ok {
		return nil, nil
	}
	return &mc, nil
}

func (f *fakeTracker) SetModuleCompletion(ctx context.Context, mc models.ModuleCompletion) error {
	f.writes++
	f.modules[courseKey{mc.UserID, mc.CourseModuleID}] = mc
	return nil
}

func refCourse(id int64) *int64 {
	return &id
}

func TestEvaluate(t *testing.T) {
	tracker := newFakeTracker()
	tracker.completed[courseKey{100, 3}] = true
	e := NewEvaluator(tracker)
	ctx := context.Background()

	state, err := e.Evaluate(ctx, 100, 3)
	require.NoError(t, err)
	assert.Equal(t, models.CompletionComplete, state)

	state, err = e.Evaluate(ctx, 101, 3)
	require.NoError(t, err)
	assert.Equal(t, models.CompletionIncomplete, state, "not started")

	state, err = e.Evaluate(ctx, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, models.CompletionIncomplete, state, "no referenced course")

	tracker.err = errors.New("db down")
	_, err = e.Evaluate(ctx, 100, 3)
	assert.Error(t, err)
}

func TestMarkViewed(t *testing.T) {
	ctx := context.Background()

	t.Run("view rule only", func(t *testing.T) {
		tracker := newFakeTracker()
		e := NewEvaluator(tracker)
		cm := &models.CourseModule{ID: 20, Completion: models.CompletionTrackingAutomatic, CompletionView: true}
		sc := &models.Subcourse{ID: 1, RefCourse: refCourse(3)}

		state, err := e.MarkViewed(ctx, cm, sc, 100, 1000)
		require.NoError(t, err)
		assert.Equal(t, models.CompletionComplete, state)
		assert.True(t, tracker.modules[courseKey{100, 20}].Viewed)

		_, err = e.MarkViewed(ctx, cm, sc, 100, 2000)
		require.NoError(t, err)
		assert.Equal(t, 1, tracker.writes, "unchanged state is not rewritten")
	})

	t.Run("view and course rules", func(t *testing.T) {
		tracker := newFakeTracker()
		e := NewEvaluator(tracker)
		cm := &models.CourseModule{ID: 20, Completion: models.CompletionTrackingAutomatic, CompletionView: true}
		sc := &models.Subcourse{ID: 1, RefCourse: refCourse(3), CompletionCourse: true}

		state, err := e.MarkViewed(ctx, cm, sc, 100, 1000)
		require.NoError(t, err)
		assert.Equal(t, models.CompletionIncomplete, state)

		tracker.completed[courseKey{100, 3}] = true
		state, err = e.Refresh(ctx, cm, sc, 100, 2000)
		require.NoError(t, err)
		assert.Equal(t, models.CompletionComplete, state)
		assert.Equal(t, int64(2000), tracker.modules[courseKey{100, 20}].TimeModified)
	})

	t.Run("refresh does not count as a view", func(t *testing.T) {
		tracker := newFakeTracker()
		tracker.completed[courseKey{100, 3}] = true
		e := NewEvaluator(tracker)
		cm := &models.CourseModule{ID: 20, Completion: models.CompletionTrackingAutomatic, CompletionView: true}
		sc := &models.Subcourse{ID: 1, RefCourse: refCourse(3), CompletionCourse: true}

		state, err := e.Refresh(ctx, cm, sc, 100, 1000)
		require.NoError(t, err)
		assert.Equal(t, models.CompletionIncomplete, state)
	})

	t.Run("tracking disabled", func(t *testing.T) {
		tracker := newFakeTracker()
		e := NewEvaluator(tracker)
		cm := &models.CourseModule{ID: 20, Completion: models.CompletionTrackingNone, CompletionView: true}

		state, err := e.MarkViewed(ctx, cm, &models.Subcourse{}, 100, 1000)
		require.NoError(t, err)
		assert.Equal(t, models.CompletionIncomplete, state)
		assert.Equal(t, 0, tracker.writes)
	})

	t.Run("manual tracking keeps state", func(t *testing.T) {
		tracker := newFakeTracker()
		tracker.modules[courseKey{100, 20}] = models.ModuleCompletion{
			CourseModuleID: 20, UserID: 100, CompletionState: models.CompletionComplete,
		}
		e := NewEvaluator(tracker)
		cm := &models.CourseModule{ID: 20, Completion: models.CompletionTrackingManual, CompletionView: true}

		state, err := e.MarkViewed(ctx, cm, &models.Subcourse{}, 100, 1000)
		require.NoError(t, err)
		assert.Equal(t, models.CompletionComplete, state)
		assert.True(t, tracker.modules[courseKey{100, 20}].Viewed)
	})
}

func TestActiveRuleDescriptions(t *testing.T) {
	rules := map[string]bool{RuleRefCourse: true}

	assert.Empty(t, ActiveRuleDescriptions(models.CompletionTrackingManual, rules, "en"))
	assert.Empty(t, ActiveRuleDescriptions(models.CompletionTrackingAutomatic, nil, "en"))
	assert.Empty(t, ActiveRuleDescriptions(models.CompletionTrackingAutomatic, map[string]bool{RuleRefCourse: false}, "en"))
	assert.Equal(t,
		[]string{"Os estudantes devem concluir o curso referenciado para concluir esta atividade."},
		ActiveRuleDescriptions(models.CompletionTrackingAutomatic, rules, "pt_br"))
}
