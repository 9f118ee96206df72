package completion

import (
	"context"
	"errors"
	"fmt"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/lang"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/models"
)

const (
	RuleView      = "completionview"
	RuleUseGrade  = "completionusegrade"
	RulePassGrade = "completionpassgrade"
	RuleRefCourse = "completionrefcourse"
)

var ErrUnknownRule = errors.New("unknown completion rule")

// Tracker is the host completion tracking: course completion is read,
// activity completion is read and written.
type Tracker interface {
	IsCourseComplete(ctx context.Context, userID, courseID int64) (bool, error)
	GetModuleCompletion(ctx context.Context, cmID, userID int64) (*models.ModuleCompletion, error)
	SetModuleCompletion(ctx context.Context, mc models.ModuleCompletion) error
}

type Evaluator struct {
	tracker Tracker
}

func NewEvaluator(tracker Tracker) *Evaluator {
	return &Evaluator{tracker: tracker}
}

// Evaluate is COMPLETE only when the referenced course is marked complete
// for the user. Nothing is cached.
func (e *Evaluator) Evaluate(ctx context.Context, userID, refCourseID int64) (models.CompletionState, error) {
	if refCourseID <= 0 {
		return models.CompletionIncomplete, nil
	}
	done, err := e.tracker.IsCourseComplete(ctx, userID, refCourseID)
	if err != nil {
		return models.CompletionIncomplete, fmt.Errorf("failed to evaluate completion of course %d: %w", refCourseID, err)
	}
	if done {
		return models.CompletionComplete, nil
	}
	return models.CompletionIncomplete, nil
}

// MarkViewed records a view of the activity and re-evaluates automatic
// completion with it.
func (e *Evaluator) MarkViewed(ctx context.Context, cm *models.CourseModule, sc *models.Subcourse, userID, now int64) (models.CompletionState, error) {
	return e.update(ctx, cm, sc, userID, now, true)
}

// Refresh re-evaluates automatic completion keeping the stored viewed flag.
func (e *Evaluator) Refresh(ctx context.Context, cm *models.CourseModule, sc *models.Subcourse, userID, now int64) (models.CompletionState, error) {
	return e.update(ctx, cm, sc, userID, now, false)
}

func (e *Evaluator) update(ctx context.Context, cm *models.CourseModule, sc *models.Subcourse, userID, now int64, viewed bool) (models.CompletionState, error) {
	if cm.Completion == models.CompletionTrackingNone {
		return models.CompletionIncomplete, nil
	}

	current, err := e.tracker.GetModuleCompletion(ctx, cm.ID, userID)
	if err != nil {
		return models.CompletionIncomplete, err
	}
	if current == nil {
		current = &models.ModuleCompletion{CourseModuleID: cm.ID, UserID: userID}
	}

	next := *current
	if viewed && cm.CompletionView {
		next.Viewed = true
	}

	if cm.Completion == models.CompletionTrackingAutomatic {
		state, err := e.automaticState(ctx, cm, sc, userID, next.Viewed)
		if err != nil {
			return current.CompletionState, err
		}
		next.CompletionState = state
	}

	if next == *current {
		return current.CompletionState, nil
	}

	next.TimeModified = now
	if err := e.tracker.SetModuleCompletion(ctx, next); err != nil {
		return current.CompletionState, err
	}
	return next.CompletionState, nil
}

// automaticState requires every enabled condition. An activity with no
// conditions never completes automatically.
func (e *Evaluator) automaticState(ctx context.Context, cm *models.CourseModule, sc *models.Subcourse, userID int64, viewed bool) (models.CompletionState, error) {
	if !cm.CompletionView && !sc.CompletionCourse {
		return models.CompletionIncomplete, nil
	}
	if cm.CompletionView && !viewed {
		return models.CompletionIncomplete, nil
	}
	if sc.CompletionCourse {
		return e.Evaluate(ctx, userID, sc.RefCourseID())
	}
	return models.CompletionComplete, nil
}

// ActiveRuleDescriptions lists the human-readable custom rules of a course
// module, only when completion is automatic.
func ActiveRuleDescriptions(completion int, rules map[string]bool, code string) []string {
	descriptions := []string{}
	if completion != models.CompletionTrackingAutomatic || len(rules) == 0 {
		return descriptions
	}
	if rules[RuleRefCourse] {
		descriptions = append(descriptions, lang.Get(code, "completionrefcourse_text"))
	}
	return descriptions
}
