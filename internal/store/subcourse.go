package store

import (
	"context"
	"fmt"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/models"
)

const subcourseColumns = `
	id, course, name, intro, refcourse, fetchpercentage, timefetched,
	instantredirect, blankwindow, coursepageprintprogress, coursepageprintgrade,
	completioncourse, timecreated, timemodified`

func (s *BaseStore) GetSubcourse(ctx context.Context, id int64) (*models.Subcourse, error) {
	var sc models.Subcourse
	err := s.DB.GetContext(ctx, &sc, s.q(`SELECT `+subcourseColumns+` FROM subcourse WHERE id = ?`), id)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subcourse %d: %w", id, err)
	}
	return &sc, nil
}

func (s *BaseStore) InsertSubcourse(ctx context.Context, sc *models.Subcourse) (int64, error) {
	stmt, err := s.DB.PrepareNamedContext(ctx, `
		INSERT INTO subcourse (
			course, name, intro, refcourse, fetchpercentage, timefetched,
			instantredirect, blankwindow, coursepageprintprogress, coursepageprintgrade,
			completioncourse, timecreated, timemodified
		) VALUES (
			:course, :name, :intro, :refcourse, :fetchpercentage, :timefetched,
			:instantredirect, :blankwindow, :coursepageprintprogress, :coursepageprintgrade,
			:completioncourse, :timecreated, :timemodified
		) RETURNING id
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare subcourse insert: %w", err)
	}
	defer stmt.Close()

	var id int64
	if err := stmt.GetContext(ctx, &id, sc); err != nil {
		return 0, fmt.Errorf("failed to insert subcourse: %w", err)
	}
	return id, nil
}

func (s *BaseStore) UpdateSubcourse(ctx context.Context, sc *models.Subcourse) error {
	_, err := s.DB.NamedExecContext(ctx, `
		UPDATE subcourse SET
			course = :course,
			name = :name,
			intro = :intro,
			refcourse = :refcourse,
			fetchpercentage = :fetchpercentage,
			instantredirect = :instantredirect,
			blankwindow = :blankwindow,
			coursepageprintprogress = :coursepageprintprogress,
			coursepageprintgrade = :coursepageprintgrade,
			completioncourse = :completioncourse,
			timemodified = :timemodified
		WHERE id = :id
	`, sc)
	if err != nil {
		return fmt.Errorf("failed to update subcourse %d: %w", sc.ID, err)
	}
	return nil
}

func (s *BaseStore) DeleteSubcourse(ctx context.Context, id int64) error {
	if _, err := s.DB.ExecContext(ctx, s.q(`DELETE FROM subcourse WHERE id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete subcourse %d: %w", id, err)
	}
	return nil
}

func (s *BaseStore) ListConfiguredSubcourses(ctx context.Context) ([]models.Subcourse, error) {
	var list []models.Subcourse
	err := s.DB.SelectContext(ctx, &list, `
		SELECT `+subcourseColumns+`
		FROM subcourse
		WHERE refcourse IS NOT NULL AND refcourse > 0
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list subcourses: %w", err)
	}
	return list, nil
}

func (s *BaseStore) UpdateTimeFetched(ctx context.Context, id, timeFetched int64) error {
	_, err := s.DB.ExecContext(ctx, s.q(`UPDATE subcourse SET timefetched = ? WHERE id = ?`), timeFetched, id)
	if err != nil {
		return fmt.Errorf("failed to update timefetched for %d: %w", id, err)
	}
	return nil
}

func (s *BaseStore) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	var c models.Course
	err := s.DB.GetContext(ctx, &c, s.q(`
		SELECT id, fullname, shortname, visible, showgrades, enablecompletion
		FROM courses
		WHERE id = ?
	`), id)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course %d: %w", id, err)
	}
	return &c, nil
}

func (s *BaseStore) SetCourseVisible(ctx context.Context, id int64, visible bool) error {
	_, err := s.DB.ExecContext(ctx, s.q(`UPDATE courses SET visible = ? WHERE id = ?`), visible, id)
	if err != nil {
		return fmt.Errorf("failed to update course %d visibility: %w", id, err)
	}
	return nil
}

const courseModuleColumns = `
	id, course, module, instance, visible, showdescription,
	completion, completionview, completionexpected`

func (s *BaseStore) GetCourseModule(ctx context.Context, id int64) (*models.CourseModule, error) {
	var cm models.CourseModule
	err := s.DB.GetContext(ctx, &cm, s.q(`
		SELECT `+courseModuleColumns+`
		FROM course_modules
		WHERE id = ? AND module = ?
	`), id, models.ModuleName)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course module %d: %w", id, err)
	}
	return &cm, nil
}

func (s *BaseStore) GetCourseModuleByInstance(ctx context.Context, instance int64) (*models.CourseModule, error) {
	var cm models.CourseModule
	err := s.DB.GetContext(ctx, &cm, s.q(`
		SELECT `+courseModuleColumns+`
		FROM course_modules
		WHERE module = ? AND instance = ?
	`), models.ModuleName, instance)
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course module for instance %d: %w", instance, err)
	}
	return &cm, nil
}

func (s *BaseStore) AttachCourseModule(ctx context.Context, cmID, instance int64) error {
	_, err := s.DB.ExecContext(ctx, s.q(`UPDATE course_modules SET instance = ? WHERE id = ? AND module = ?`),
		instance, cmID, models.ModuleName)
	if err != nil {
		return fmt.Errorf("failed to attach course module %d: %w", cmID, err)
	}
	return nil
}
