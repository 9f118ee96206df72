package store

import (
	"context"
	"fmt"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/models"
)

const manualEnrol = "manual"

func (s *BaseStore) GetManualEnrolment(ctx context.Context, courseID, userID int64) (*models.UserEnrolment, error) {
	var ue models.UserEnrolment
	err := s.DB.GetContext(ctx, &ue, s.q(`
		SELECT ue.enrolid, ue.userid, ue.timestart, ue.timeend
		FROM user_enrolments ue
		JOIN enrol e ON e.id = ue.enrolid
		WHERE e.courseid = ? AND e.enrol = ? AND ue.userid = ?
	`), courseID, manualEnrol, userID)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get manual enrolment: %w", err)
	}
	return &ue, nil
}

func (s *BaseStore) RolesInCourse(ctx context.Context, courseID, userID int64) ([]int64, error) {
	var roles []int64
	err := s.DB.SelectContext(ctx, &roles, s.q(`
		SELECT roleid FROM role_assignments
		WHERE courseid = ? AND userid = ?
		ORDER BY roleid
	`), courseID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roles: %w", err)
	}
	return roles, nil
}

func (s *BaseStore) IsEnrolled(ctx context.Context, courseID, userID, now int64) (bool, error) {
	var list []models.UserEnrolment
	err := s.DB.SelectContext(ctx, &list, s.q(`
		SELECT ue.enrolid, ue.userid, ue.timestart, ue.timeend
		FROM user_enrolments ue
		JOIN enrol e ON e.id = ue.enrolid
		WHERE e.courseid = ? AND ue.userid = ?
	`), courseID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check enrolment: %w", err)
	}
	for _, ue := range list {
		if ue.Active(now) {
			return true, nil
		}
	}
	return false, nil
}

// Enrol puts the user into the course through its manual enrolment instance
// and assigns the role, creating the instance when the course has none.
func (s *BaseStore) Enrol(ctx context.Context, courseID, userID, timeStart, timeEnd, roleID int64) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin enrolment: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO enrol (courseid, enrol) VALUES (?, ?)
		ON CONFLICT (courseid, enrol) DO NOTHING
	`), courseID, manualEnrol); err != nil {
		return fmt.Errorf("failed to create enrol instance: %w", err)
	}

	var enrolID int64
	if err := tx.GetContext(ctx, &enrolID, s.q(`SELECT id FROM enrol WHERE courseid = ? AND enrol = ?`), courseID, manualEnrol); err != nil {
		return fmt.Errorf("failed to get enrol instance: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO user_enrolments (enrolid, userid, timestart, timeend)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (enrolid, userid) DO UPDATE SET
		timestart = excluded.timestart,
		timeend = excluded.timeend
	`), enrolID, userID, timeStart, timeEnd); err != nil {
		return fmt.Errorf("failed to enrol user %d: %w", userID, err)
	}

	if _, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO role_assignments (roleid, courseid, userid) VALUES (?, ?, ?)
		ON CONFLICT (roleid, courseid, userid) DO NOTHING
	`), roleID, courseID, userID); err != nil {
		return fmt.Errorf("failed to assign role %d: %w", roleID, err)
	}

	return tx.Commit()
}
