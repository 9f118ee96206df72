package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/models"
)

const gradeItemColumns = `
	id, courseid, itemtype, itemmodule, iteminstance, itemname,
	gradetype, grademax, grademin, scaleid`

// UpdateGradeItem applies one grade line update inside a single transaction,
// so either every value lands or none does.
func (s *BaseStore) UpdateGradeItem(ctx context.Context, upd models.GradeItemUpdate) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin grade update: %w", err)
	}
	defer tx.Rollback()

	item, err := s.activityGradeItem(ctx, tx, upd.InstanceID)
	if err != nil {
		return err
	}

	if upd.Deleted {
		if item != nil {
			if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM grade_grades WHERE itemid = ?`), item.ID); err != nil {
				return fmt.Errorf("failed to delete grades: %w", err)
			}
			if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM grade_items WHERE id = ?`), item.ID); err != nil {
				return fmt.Errorf("failed to delete grade item: %w", err)
			}
		}
		return tx.Commit()
	}

	gradeMax := upd.GradeMax
	if gradeMax <= 0 {
		gradeMax = 100
	}

	var itemID int64
	if item == nil {
		err = tx.GetContext(ctx, &itemID, s.q(`
			INSERT INTO grade_items (courseid, itemtype, itemmodule, iteminstance, itemname, gradetype, grademax, grademin)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0)
			RETURNING id
		`), upd.CourseID, models.ItemTypeMod, models.ModuleName, upd.InstanceID, upd.ItemName, models.GradeTypeValue, gradeMax)
		if err != nil {
			return fmt.Errorf("failed to create grade item: %w", err)
		}
	} else {
		itemID = item.ID
		if upd.ItemName != "" && upd.ItemName != item.ItemName {
			if _, err := tx.ExecContext(ctx, s.q(`UPDATE grade_items SET itemname = ? WHERE id = ?`), upd.ItemName, itemID); err != nil {
				return fmt.Errorf("failed to rename grade item: %w", err)
			}
		}
	}

	now := time.Now().Unix()
	switch {
	case upd.ItemOnly:
	case upd.Reset:
		query := `UPDATE grade_grades SET finalgrade = NULL, timemodified = ? WHERE itemid = ?`
		args := []interface{}{now, itemID}
		if upd.UserID != 0 {
			query += ` AND userid = ?`
			args = append(args, upd.UserID)
		}
		if _, err := tx.ExecContext(ctx, s.q(query), args...); err != nil {
			return fmt.Errorf("failed to reset grades: %w", err)
		}
	default:
		upsert := s.q(`
			INSERT INTO grade_grades (itemid, userid, finalgrade, timemodified)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (itemid, userid) DO UPDATE SET
			finalgrade = excluded.finalgrade,
			timemodified = excluded.timemodified
		`)
		for userID, value := range upd.Values {
			if _, err := tx.ExecContext(ctx, upsert, itemID, userID, value, now); err != nil {
				return fmt.Errorf("failed to write grade for user %d: %w", userID, err)
			}
		}
	}

	return tx.Commit()
}

func (s *BaseStore) activityGradeItem(ctx context.Context, tx *sqlx.Tx, instance int64) (*models.GradeItem, error) {
	var item models.GradeItem
	err := tx.GetContext(ctx, &item, s.q(`
		SELECT `+gradeItemColumns+`
		FROM grade_items
		WHERE itemtype = ? AND itemmodule = ? AND iteminstance = ?
	`), models.ItemTypeMod, models.ModuleName, instance)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get grade item for instance %d: %w", instance, err)
	}
	return &item, nil
}

func (s *BaseStore) GetActivityGrade(ctx context.Context, instance, userID int64) (*float64, error) {
	var grade *float64
	err := s.DB.GetContext(ctx, &grade, s.q(`
		SELECT g.finalgrade
		FROM grade_grades g
		JOIN grade_items i ON i.id = g.itemid
		WHERE i.itemtype = ? AND i.itemmodule = ? AND i.iteminstance = ? AND g.userid = ?
	`), models.ItemTypeMod, models.ModuleName, instance, userID)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity grade: %w", err)
	}
	return grade, nil
}

// FetchRefGrades reads the course total of the referenced course. userID 0
// means every graded user.
func (s *BaseStore) FetchRefGrades(ctx context.Context, courseID, userID int64) (*models.RefGrades, error) {
	result := &models.RefGrades{Grades: map[int64]float64{}}

	var item models.GradeItem
	err := s.DB.GetContext(ctx, &item, s.q(`
		SELECT `+gradeItemColumns+`
		FROM grade_items
		WHERE courseid = ? AND itemtype = ?
	`), courseID, models.ItemTypeCourse)
	if noRows(err) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course grade item for %d: %w", courseID, err)
	}

	if item.GradeType == models.GradeTypeScale && item.ScaleID != nil {
		var scale models.Scale
		err := s.DB.GetContext(ctx, &scale, s.q(`SELECT id, courseid, name, scale FROM scales WHERE id = ?`), *item.ScaleID)
		if err != nil && !noRows(err) {
			return nil, fmt.Errorf("failed to get scale %d: %w", *item.ScaleID, err)
		}
		if err == nil && scale.Local() {
			result.LocalRemoteScale = true
		}
	}

	query := `SELECT itemid, userid, finalgrade, timemodified FROM grade_grades WHERE itemid = ? AND finalgrade IS NOT NULL`
	args := []interface{}{item.ID}
	if userID != 0 {
		query += ` AND userid = ?`
		args = append(args, userID)
	}

	var grades []models.Grade
	if err := s.DB.SelectContext(ctx, &grades, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("failed to fetch grades for course %d: %w", courseID, err)
	}
	for _, g := range grades {
		result.Grades[g.UserID] = *g.FinalGrade
	}

	return result, nil
}
