// internal/scoring/synchronizer.go
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/metrics"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/models"
)

// MaxGrade is the grade line maximum; every computed value is capped here.
const MaxGrade = 100.0

type Result int

const (
	ResultOK Result = iota
	ResultFailed
	ResultIncompatibleScale
	ResultNothingToDo
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultFailed:
		return "failed"
	case ResultIncompatibleScale:
		return "incompatible_scale"
	case ResultNothingToDo:
		return "nothing_to_do"
	default:
		return "unknown"
	}
}

var (
	ErrIncompatibleScale = errors.New("referenced course grades on a local scale")
	ErrFetchFailed       = errors.New("grade synchronization failed")
)

// GradeSource reads course-total grades of a referenced course. userID 0
// means every graded user.
type GradeSource interface {
	FetchRefGrades(ctx context.Context, courseID, userID int64) (*models.RefGrades, error)
}

// Gradebook is the host side of a sync: the activity grade line and the
// course records a reference resolves against.
type Gradebook interface {
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
	UpdateGradeItem(ctx context.Context, upd models.GradeItemUpdate) error
}

// Options narrow a sync. UserID limits both fetching and Reset to one user.
type Options struct {
	GradeItemOnly bool
	Reset         bool
	UserID        int64
}

type SyncRequest struct {
	SubcourseID int64
	CourseID    int64
	RefCourseID int64
	Name        string
	Percentage  float64
	Options     Options
}

type Synchronizer struct {
	source    GradeSource
	gradebook Gradebook
}

func NewSynchronizer(source GradeSource, gradebook Gradebook) *Synchronizer {
	return &Synchronizer{source: source, gradebook: gradebook}
}

// ComputeFinalGrade scales a raw referenced-course grade by the percentage
// and caps the result at MaxGrade.
func ComputeFinalGrade(raw, percentage float64) float64 {
	return math.Min(MaxGrade, raw*percentage/100)
}

// FormatGrade renders a stored grade with two decimals, nil when the user
// has no grade yet.
func FormatGrade(grade *float64) *string {
	if grade == nil {
		return nil
	}
	s := fmt.Sprintf("%.2f", *grade)
	return &s
}

// Sync brings the activity grade line in line with the referenced course.
// Values are computed for the whole batch before anything is written, and
// the write itself is a single gradebook call.
func (s *Synchronizer) Sync(ctx context.Context, req SyncRequest) (Result, error) {
	result, err := s.sync(ctx, req)
	metrics.GradeSyncTotal.WithLabelValues(result.String()).Inc()
	return result, err
}

func (s *Synchronizer) sync(ctx context.Context, req SyncRequest) (Result, error) {
	if req.RefCourseID <= 0 {
		logger.Debug.Printf("Subcourse %d has no referenced course, nothing to sync", req.SubcourseID)
		return ResultNothingToDo, nil
	}

	ref, err := s.gradebook.GetCourse(ctx, req.RefCourseID)
	if err != nil {
		return ResultFailed, fmt.Errorf("%w: looking up course %d: %v", ErrFetchFailed, req.RefCourseID, err)
	}
	if ref == nil {
		logger.Info.Printf("Subcourse %d references missing course %d, nothing to sync", req.SubcourseID, req.RefCourseID)
		return ResultNothingToDo, nil
	}

	upd := models.GradeItemUpdate{
		CourseID:   req.CourseID,
		InstanceID: req.SubcourseID,
		ItemName:   req.Name,
		GradeMax:   MaxGrade,
	}

	switch {
	case req.Options.GradeItemOnly:
		upd.ItemOnly = true
	case req.Options.Reset:
		upd.Reset = true
		upd.UserID = req.Options.UserID
	default:
		grades, err := s.source.FetchRefGrades(ctx, req.RefCourseID, req.Options.UserID)
		if err != nil {
			return ResultFailed, fmt.Errorf("%w: fetching grades of course %d: %v", ErrFetchFailed, req.RefCourseID, err)
		}
		if grades.LocalRemoteScale {
			logger.Info.Printf("Course %d uses a local scale, grades of subcourse %d left untouched", req.RefCourseID, req.SubcourseID)
			return ResultIncompatibleScale, ErrIncompatibleScale
		}

		upd.Values = make(map[int64]float64, len(grades.Grades))
		for userID, raw := range grades.Grades {
			upd.Values[userID] = ComputeFinalGrade(raw, req.Percentage)
		}
		if len(upd.Values) == 0 {
			upd.ItemOnly = true
		}
	}

	if err := s.gradebook.UpdateGradeItem(ctx, upd); err != nil {
		return ResultFailed, fmt.Errorf("%w: writing grades of subcourse %d: %v", ErrFetchFailed, req.SubcourseID, err)
	}

	logger.Debug.Printf("Synced %d grades for subcourse %d from course %d", len(upd.Values), req.SubcourseID, req.RefCourseID)
	return ResultOK, nil
}
