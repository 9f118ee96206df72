package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/models"
)

type SubcourseStore interface {
	Close() error
	ApplyMigrations(dir string) error

	GetSubcourse(ctx context.Context, id int64) (*models.Subcourse, error)
	InsertSubcourse(ctx context.Context, s *models.Subcourse) (int64, error)
	UpdateSubcourse(ctx context.Context, s *models.Subcourse) error
	DeleteSubcourse(ctx context.Context, id int64) error
	ListConfiguredSubcourses(ctx context.Context) ([]models.Subcourse, error)
	UpdateTimeFetched(ctx context.Context, id, timeFetched int64) error

	GetCourse(ctx context.Context, id int64) (*models.Course, error)
	SetCourseVisible(ctx context.Context, id int64, visible bool) error

	GetCourseModule(ctx context.Context, id int64) (*models.CourseModule, error)
	GetCourseModuleByInstance(ctx context.Context, instance int64) (*models.CourseModule, error)
	AttachCourseModule(ctx context.Context, cmID, instance int64) error

	UpdateGradeItem(ctx context.Context, upd models.GradeItemUpdate) error
	GetActivityGrade(ctx context.Context, instance, userID int64) (*float64, error)
	FetchRefGrades(ctx context.Context, courseID, userID int64) (*models.RefGrades, error)

	IsCourseComplete(ctx context.Context, userID, courseID int64) (bool, error)
	ListCompletedUsers(ctx context.Context, courseID int64) ([]int64, error)
	CourseProgress(ctx context.Context, userID, courseID int64) (*float64, error)
	GetModuleCompletion(ctx context.Context, cmID, userID int64) (*models.ModuleCompletion, error)
	SetModuleCompletion(ctx context.Context, mc models.ModuleCompletion) error

	GetManualEnrolment(ctx context.Context, courseID, userID int64) (*models.UserEnrolment, error)
	RolesInCourse(ctx context.Context, courseID, userID int64) ([]int64, error)
	IsEnrolled(ctx context.Context, courseID, userID, now int64) (bool, error)
	Enrol(ctx context.Context, courseID, userID, timeStart, timeEnd, roleID int64) error

	SetUserPreference(ctx context.Context, userID int64, name, value string) error
	LogEvent(ctx context.Context, ev models.LogEvent) error
	GetCalendarEvent(ctx context.Context, id int64) (*models.CalendarEvent, error)
	UpsertCalendarEvent(ctx context.Context, ev models.CalendarEvent) error
	DeleteCalendarEvent(ctx context.Context, moduleName string, instance int64, eventType string) error
}

// BaseStore provides common functionality for different DB implementations
type BaseStore struct {
	DB        *sqlx.DB
	Converter func(string) string
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// ApplyMigrations applies SQL migrations from a directory in name order,
// translating dialect if needed
func (s *BaseStore) ApplyMigrations(dir string, translateSQL func(string) string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		if strings.HasSuffix(file.Name(), ".sql") {
			names = append(names, file.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		sql := string(content)
		if translateSQL != nil {
			sql = translateSQL(sql)
		}

		logger.Debug.Printf("Applying migration: %s", name)
		if _, err := s.DB.Exec(sql); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *BaseStore) q(query string) string {
	if s.Converter == nil {
		return query
	}
	return s.Converter(query)
}

func noRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
