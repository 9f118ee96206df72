package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/completion"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/metrics"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/models"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/scoring"
)

const (
	JobFetchGrades              = "fetch_grades"
	JobCheckCompletedRefcourses = "check_completed_refcourses"
)

type Store interface {
	ListConfiguredSubcourses(ctx context.Context) ([]models.Subcourse, error)
	UpdateTimeFetched(ctx context.Context, id, timeFetched int64) error
	GetCourseModuleByInstance(ctx context.Context, instance int64) (*models.CourseModule, error)
	ListCompletedUsers(ctx context.Context, courseID int64) ([]int64, error)
}

type GradeSyncer interface {
	Sync(ctx context.Context, req scoring.SyncRequest) (scoring.Result, error)
}

// Report sums up one sweep. Failed items are logged and skipped.
type Report struct {
	Processed int
	Succeeded int
	Failed    int
	Skipped   int
}

type Runner struct {
	store      Store
	sync       GradeSyncer
	completion *completion.Evaluator
	now        func() time.Time
}

func NewRunner(store Store, sync GradeSyncer, evaluator *completion.Evaluator) *Runner {
	return &Runner{store: store, sync: sync, completion: evaluator, now: time.Now}
}

// Run executes the named job.
func (r *Runner) Run(ctx context.Context, name string) (Report, error) {
	switch name {
	case JobFetchGrades:
		return r.FetchGrades(ctx)
	case JobCheckCompletedRefcourses:
		return r.CheckCompletedRefcourses(ctx)
	default:
		return Report{}, fmt.Errorf("unknown job %q", name)
	}
}

// FetchGrades re-synchronizes every activity that has a referenced course.
func (r *Runner) FetchGrades(ctx context.Context) (Report, error) {
	start := time.Now()
	defer func() {
		metrics.JobDuration.WithLabelValues(JobFetchGrades).Observe(time.Since(start).Seconds())
	}()

	var report Report
	list, err := r.store.ListConfiguredSubcourses(ctx)
	if err != nil {
		return report, err
	}

	for _, sc := range list {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Processed++

		result, err := r.sync.Sync(ctx, scoring.SyncRequest{
			SubcourseID: sc.ID,
			CourseID:    sc.Course,
			RefCourseID: sc.RefCourseID(),
			Name:        sc.Name,
			Percentage:  sc.FetchPercentage,
		})
		if result == scoring.ResultNothingToDo {
			report.Skipped++
			metrics.JobRunsTotal.WithLabelValues(JobFetchGrades, result.String()).Inc()
			logger.Info.Printf("Subcourse %d points at missing course %d, skipped", sc.ID, sc.RefCourseID())
			continue
		}
		if result != scoring.ResultOK {
			report.Failed++
			metrics.JobRunsTotal.WithLabelValues(JobFetchGrades, result.String()).Inc()
			logger.Error.Printf("Fetching grades for subcourse %d from course %d: %s (%v)",
				sc.ID, sc.RefCourseID(), result, err)
			continue
		}

		if err := r.store.UpdateTimeFetched(ctx, sc.ID, r.now().Unix()); err != nil {
			report.Failed++
			metrics.JobRunsTotal.WithLabelValues(JobFetchGrades, "error").Inc()
			logger.Error.Printf("Storing fetch time of subcourse %d: %v", sc.ID, err)
			continue
		}
		report.Succeeded++
		metrics.JobRunsTotal.WithLabelValues(JobFetchGrades, "ok").Inc()
	}

	logger.Info.Printf("Fetched grades: %d activities, %d ok, %d failed, %d skipped",
		report.Processed, report.Succeeded, report.Failed, report.Skipped)
	return report, nil
}

// CheckCompletedRefcourses brings activity completion up to date for users
// who completed a referenced course since the last run.
func (r *Runner) CheckCompletedRefcourses(ctx context.Context) (Report, error) {
	start := time.Now()
	defer func() {
		metrics.JobDuration.WithLabelValues(JobCheckCompletedRefcourses).Observe(time.Since(start).Seconds())
	}()

	var report Report
	list, err := r.store.ListConfiguredSubcourses(ctx)
	if err != nil {
		return report, err
	}

	for i := range list {
		sc := &list[i]
		if !sc.CompletionCourse {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		cm, err := r.store.GetCourseModuleByInstance(ctx, sc.ID)
		if err != nil {
			report.Failed++
			logger.Error.Printf("Loading course module of subcourse %d: %v", sc.ID, err)
			continue
		}
		if cm == nil || cm.Completion != models.CompletionTrackingAutomatic {
			report.Skipped++
			continue
		}

		users, err := r.store.ListCompletedUsers(ctx, sc.RefCourseID())
		if err != nil {
			report.Failed++
			logger.Error.Printf("Listing completions of course %d: %v", sc.RefCourseID(), err)
			continue
		}

		now := r.now().Unix()
		for _, userID := range users {
			report.Processed++
			state, err := r.completion.Refresh(ctx, cm, sc, userID, now)
			if err != nil {
				report.Failed++
				metrics.JobRunsTotal.WithLabelValues(JobCheckCompletedRefcourses, "error").Inc()
				logger.Error.Printf("Updating completion of cm %d for user %d: %v", cm.ID, userID, err)
				continue
			}
			report.Succeeded++
			metrics.JobRunsTotal.WithLabelValues(JobCheckCompletedRefcourses, state.String()).Inc()
		}
	}

	logger.Info.Printf("Checked completed referenced courses: %d users, %d failed",
		report.Processed, report.Failed)
	return report, nil
}
