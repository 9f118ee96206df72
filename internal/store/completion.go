package store

import (
	"context"
	"fmt"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/models"
)

func (s *BaseStore) IsCourseComplete(ctx context.Context, userID, courseID int64) (bool, error) {
	var completed *int64
	err := s.DB.GetContext(ctx, &completed, s.q(`
		SELECT timecompleted FROM course_completions WHERE userid = ? AND course = ?
	`), userID, courseID)
	if noRows(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get course completion: %w", err)
	}
	return completed != nil && *completed > 0, nil
}

func (s *BaseStore) ListCompletedUsers(ctx context.Context, courseID int64) ([]int64, error) {
	var users []int64
	err := s.DB.SelectContext(ctx, &users, s.q(`
		SELECT userid FROM course_completions
		WHERE course = ? AND timecompleted IS NOT NULL AND timecompleted > 0
		ORDER BY userid
	`), courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completions for course %d: %w", courseID, err)
	}
	return users, nil
}

type progressRow struct {
	Total int64 `db:"total"`
	Done  int64 `db:"done"`
}

// CourseProgress returns the share of completion-tracked activities the user
// finished, or nil when the course does not track completion.
func (s *BaseStore) CourseProgress(ctx context.Context, userID, courseID int64) (*float64, error) {
	course, err := s.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course == nil || !course.EnableCompletion {
		return nil, nil
	}

	var row progressRow
	err = s.DB.GetContext(ctx, &row, s.q(`
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN c.completionstate IN (?, ?) THEN 1 ELSE 0 END), 0) AS done
		FROM course_modules cm
		LEFT JOIN course_modules_completion c
			ON c.coursemoduleid = cm.id AND c.userid = ?
		WHERE cm.course = ? AND cm.completion > 0 AND cm.visible = TRUE
	`), models.CompletionComplete, models.CompletionCompletePass, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute progress: %w", err)
	}
	if row.Total == 0 {
		return nil, nil
	}

	pct := float64(row.Done) / float64(row.Total) * 100
	return &pct, nil
}

func (s *BaseStore) GetModuleCompletion(ctx context.Context, cmID, userID int64) (*models.ModuleCompletion, error) {
	var mc models.ModuleCompletion
	err := s.DB.GetContext(ctx, &mc, s.q(`
		SELECT coursemoduleid, userid, completionstate, viewed, timemodified
		FROM course_modules_completion
		WHERE coursemoduleid = ? AND userid = ?
	`), cmID, userID)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get module completion: %w", err)
	}
	return &mc, nil
}

func (s *BaseStore) SetModuleCompletion(ctx context.Context, mc models.ModuleCompletion) error {
	_, err := s.DB.NamedExecContext(ctx, `
		INSERT INTO course_modules_completion (coursemoduleid, userid, completionstate, viewed, timemodified)
		VALUES (:coursemoduleid, :userid, :completionstate, :viewed, :timemodified)
		ON CONFLICT (coursemoduleid, userid) DO UPDATE SET
		completionstate = excluded.completionstate,
		viewed = excluded.viewed,
		timemodified = excluded.timemodified
	`, mc)
	if err != nil {
		return fmt.Errorf("failed to set module completion: %w", err)
	}
	return nil
}
