package completion

import (
	"context"
	"fmt"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/lang"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/models"
)

// CustomRules exposes the activity's own completion rule for one instance.
type CustomRules struct {
	Evaluator *Evaluator
	Subcourse *models.Subcourse
}

func (c CustomRules) ListRules() []string {
	return []string{RuleRefCourse}
}

func (c CustomRules) Describe(rule, code string) (string, error) {
	if err := validateRule(rule); err != nil {
		return "", err
	}
	return lang.Get(code, rule), nil
}

func (c CustomRules) Evaluate(ctx context.Context, rule string, userID int64) (models.CompletionState, error) {
	if err := validateRule(rule); err != nil {
		return models.CompletionIncomplete, err
	}
	return c.Evaluator.Evaluate(ctx, userID, c.Subcourse.RefCourseID())
}

// SortOrder places the reference course rule after the core rules.
func (c CustomRules) SortOrder() []string {
	return []string{RuleView, RuleUseGrade, RulePassGrade, RuleRefCourse}
}

func validateRule(rule string) error {
	if rule != RuleRefCourse {
		return fmt.Errorf("%w: %s", ErrUnknownRule, rule)
	}
	return nil
}
