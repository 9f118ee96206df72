package subcourse

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/lang"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/metrics"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/models"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/render"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/scoring"
)

// Sessions holds per-user request state that outlives one request.
type Sessions interface {
	SessKey(ctx context.Context, userID int64) (string, error)
	SaveBreadcrumbs(ctx context.Context, userID int64, b models.Breadcrumbs) error
}

type ViewRequest struct {
	CMID            int64
	FetchNow        bool
	InstantRedirect bool
	IsBlankWindow   bool
	SessKey         string
}

// ViewResponse is either a redirect or a rendered page, never both.
type ViewResponse struct {
	Redirect string
	HTML     string
}

type Controller struct {
	*Module
	sessions Sessions
	renderer *render.Renderer
}

func NewController(module *Module, sessions Sessions, renderer *render.Renderer) *Controller {
	return &Controller{Module: module, sessions: sessions, renderer: renderer}
}

// viewState is what Handle and Mobile both load before branching.
type viewState struct {
	cm        *models.CourseModule
	course    *models.Course
	subcourse *models.Subcourse
	refcourse *models.Course
}

// load authorizes the viewer on the owning course before touching the
// instance. A deleted referenced course reads as unconfigured.
func (c *Controller) load(ctx context.Context, viewer *models.Viewer, cmID int64) (*viewState, error) {
	cm, err := c.store.GetCourseModule(ctx, cmID)
	if err != nil {
		return nil, err
	}
	if cm == nil {
		return nil, fmt.Errorf("course module %d: %w", cmID, ErrNotFound)
	}

	if err := c.Authorize(ctx, viewer, cm.Course, CapView); err != nil {
		return nil, err
	}

	course, err := c.store.GetCourse(ctx, cm.Course)
	if err != nil {
		return nil, err
	}
	if course == nil {
		return nil, fmt.Errorf("course %d: %w", cm.Course, ErrNotFound)
	}

	sc, err := c.store.GetSubcourse(ctx, cm.Instance)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, fmt.Errorf("subcourse %d: %w", cm.Instance, ErrNotFound)
	}

	state := &viewState{cm: cm, course: course, subcourse: sc}
	if sc.Configured() {
		state.refcourse, err = c.store.GetCourse(ctx, sc.RefCourseID())
		if err != nil {
			return nil, err
		}
	}
	return state, nil
}

// Handle drives one view request through the unconfigured, fetch-now,
// redirect and normal states.
func (c *Controller) Handle(ctx context.Context, viewer *models.Viewer, req ViewRequest) (*ViewResponse, error) {
	st, err := c.load(ctx, viewer, req.CMID)
	if err != nil {
		return nil, err
	}
	sc, ref := st.subcourse, st.refcourse

	if ref != nil && !ref.Visible && c.config.AutoUnhide {
		if err := c.store.SetCourseVisible(ctx, ref.ID, true); err != nil {
			return nil, err
		}
		ref.Visible = true
		logger.Info.Printf("Unhid referenced course %d of subcourse %d", ref.ID, sc.ID)
	}

	if req.FetchNow && ref != nil {
		return c.fetchNow(ctx, viewer, st, req)
	}

	if err := c.View(ctx, viewer, sc, st.cm); err != nil {
		return nil, err
	}

	if ref == nil {
		metrics.ViewsTotal.WithLabelValues("unconfigured").Inc()
		return c.renderUnconfigured(ctx, viewer, st)
	}

	if err := c.ensureAccess(ctx, viewer, st.course, ref); err != nil {
		return nil, err
	}

	if sc.InstantRedirect || req.InstantRedirect {
		if err := c.sessions.SaveBreadcrumbs(ctx, viewer.UserID, models.Breadcrumbs{
			ReturnCourseID:   st.course.ID,
			ReturnCourseName: st.course.FullName,
			RefCourseID:      ref.ID,
		}); err != nil {
			return nil, err
		}
		metrics.ViewsTotal.WithLabelValues("redirect").Inc()
		return &ViewResponse{Redirect: c.courseURL("/course/view.php", ref.ID)}, nil
	}

	metrics.ViewsTotal.WithLabelValues("normal").Inc()
	return c.renderNormal(ctx, viewer, st, req)
}

func (c *Controller) fetchNow(ctx context.Context, viewer *models.Viewer, st *viewState, req ViewRequest) (*ViewResponse, error) {
	expected, err := c.sessions.SessKey(ctx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	if req.SessKey == "" || req.SessKey != expected {
		return nil, ErrInvalidSessKey
	}

	if err := c.Authorize(ctx, viewer, st.cm.Course, CapFetchGrades); err != nil {
		return nil, err
	}

	if err := c.logGradesFetched(ctx, viewer, st.subcourse); err != nil {
		return nil, err
	}

	result, err := c.sync.Sync(ctx, scoring.SyncRequest{
		SubcourseID: st.subcourse.ID,
		CourseID:    st.subcourse.Course,
		RefCourseID: st.subcourse.RefCourseID(),
		Name:        st.subcourse.Name,
		Percentage:  st.subcourse.FetchPercentage,
	})
	if result != scoring.ResultOK {
		if err == nil {
			err = scoring.ErrFetchFailed
		}
		metrics.ViewsTotal.WithLabelValues("fetch_failed").Inc()
		return nil, &FetchError{CMID: st.cm.ID, Result: result, Err: err}
	}

	if err := c.store.UpdateTimeFetched(ctx, st.subcourse.ID, c.now().Unix()); err != nil {
		return nil, err
	}

	metrics.ViewsTotal.WithLabelValues("fetched").Inc()
	return &ViewResponse{Redirect: c.viewURL(st.cm.ID, nil)}, nil
}

// ensureAccess enrols the viewer into the referenced course when they
// cannot already get in and auto enrolment is on.
func (c *Controller) ensureAccess(ctx context.Context, viewer *models.Viewer, course, ref *models.Course) error {
	canView, err := c.caps.Has(ctx, viewer, ref.ID, CapCourseView)
	if err != nil {
		return err
	}
	if canView {
		return nil
	}

	now := c.now().Unix()
	enrolled, err := c.store.IsEnrolled(ctx, ref.ID, viewer.UserID, now)
	if err != nil {
		return err
	}
	if enrolled || !c.config.AutoEnrol {
		return nil
	}

	roleID := c.config.FallbackRoleID
	roles, err := c.store.RolesInCourse(ctx, course.ID, viewer.UserID)
	if err != nil {
		return err
	}
	if len(roles) > 0 {
		roleID = roles[0]
	}

	var timeStart, timeEnd int64
	ue, err := c.store.GetManualEnrolment(ctx, course.ID, viewer.UserID)
	if err != nil {
		return err
	}
	if ue != nil {
		timeStart, timeEnd = ue.TimeStart, ue.TimeEnd
	}

	if err := c.store.Enrol(ctx, ref.ID, viewer.UserID, timeStart, timeEnd, roleID); err != nil {
		return err
	}
	metrics.EnrolmentsTotal.Inc()
	logger.Info.Printf("Enrolled user %d into course %d with role %d", viewer.UserID, ref.ID, roleID)

	if c.config.HideEnrolled {
		name := fmt.Sprintf("block_myoverview_hidden_course_%d", ref.ID)
		if err := c.store.SetUserPreference(ctx, viewer.UserID, name, "1"); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) renderUnconfigured(ctx context.Context, viewer *models.Viewer, st *viewState) (*ViewResponse, error) {
	page := render.ViewPage{
		Lang:    viewer.Lang,
		Title:   st.subcourse.Name,
		Heading: st.course.FullName,
	}

	privileged, err := c.caps.Has(ctx, viewer, st.cm.Course, CapFetchGrades)
	if err != nil {
		return nil, err
	}
	if privileged {
		page.Notice = lang.Get(viewer.Lang, "refcoursenull")
	}

	html, err := c.renderer.ViewPage(page)
	if err != nil {
		return nil, err
	}
	return &ViewResponse{HTML: html}, nil
}

// progressAndGrade reads the viewer's progress in the referenced course and
// their last stored grade on this activity.
func (c *Controller) progressAndGrade(ctx context.Context, viewer *models.Viewer, st *viewState) (*int, *string, error) {
	var progress *int
	pct, err := c.store.CourseProgress(ctx, viewer.UserID, st.refcourse.ID)
	if err != nil {
		return nil, nil, err
	}
	if pct != nil {
		p := int(math.Floor(*pct))
		progress = &p
		metrics.ProgressHistogram.Observe(*pct)
	}

	grade, err := c.store.GetActivityGrade(ctx, st.subcourse.ID, viewer.UserID)
	if err != nil {
		return nil, nil, err
	}
	return progress, scoring.FormatGrade(grade), nil
}

func (c *Controller) renderNormal(ctx context.Context, viewer *models.Viewer, st *viewState, req ViewRequest) (*ViewResponse, error) {
	sc, ref := st.subcourse, st.refcourse
	code := viewer.Lang

	progress, grade, err := c.progressAndGrade(ctx, viewer, st)
	if err != nil {
		return nil, err
	}

	info := &render.SubcourseInfo{}
	if progress != nil {
		info.HasPercentage = true
		info.Percentage = *progress
		info.ProgressLabel = lang.Get(code, "currentprogress", *progress)
	}
	if grade != nil {
		info.HasStrGrade = true
		info.StrGrade = *grade
		info.GradeLabel = lang.Get(code, "currentgrade", *grade)
	}

	target := ""
	if sc.BlankWindow && !req.IsBlankWindow {
		target = "_blank"
	}

	page := render.ViewPage{
		Lang:    code,
		Title:   sc.Name,
		Heading: st.course.FullName,
		Info:    info,
		Buttons: []render.Link{{
			URL:    c.viewURL(st.cm.ID, url.Values{"instantredirect": {"1"}}),
			Label:  lang.Get(code, "gotorefcourse", ref.FullName),
			Class:  "btn btn-primary",
			Target: target,
		}},
	}

	grader, err := c.caps.HasAll(ctx, viewer, ref.ID, CapGraderReport, CapGradeViewAll)
	if err != nil {
		return nil, err
	}
	if grader {
		page.Buttons = append(page.Buttons, render.Link{
			URL:   c.courseURL("/grade/report/grader/index.php", ref.ID),
			Label: lang.Get(code, "gotorefcoursegrader", ref.FullName),
			Class: "btn btn-secondary",
		})
	}

	ownGrades, err := c.caps.HasAll(ctx, viewer, ref.ID, CapUserReport, CapGradeView)
	if err != nil {
		return nil, err
	}
	if ownGrades && ref.ShowGrades && grade != nil {
		page.Buttons = append(page.Buttons, render.Link{
			URL:   c.courseURL("/grade/report/user/index.php", ref.ID),
			Label: lang.Get(code, "gotorefcoursemygrades", ref.FullName),
			Class: "btn btn-secondary",
		})
	}

	fetcher, err := c.caps.Has(ctx, viewer, st.cm.Course, CapFetchGrades)
	if err != nil {
		return nil, err
	}
	if fetcher {
		sesskey, err := c.sessions.SessKey(ctx, viewer.UserID)
		if err != nil {
			return nil, err
		}
		page.Buttons = append(page.Buttons, render.Link{
			URL:   c.viewURL(st.cm.ID, url.Values{"sesskey": {sesskey}, "fetchnow": {"1"}}),
			Label: lang.Get(code, "fetchnow"),
			Class: "btn btn-link",
		})
		if sc.TimeFetched == nil || *sc.TimeFetched == 0 {
			page.FetchInfo = lang.Get(code, "lastfetchnever")
		} else {
			when := time.Unix(*sc.TimeFetched, 0).Format(c.config.TimestampFormat)
			page.FetchInfo = lang.Get(code, "lastfetchtime", when)
		}
	}

	html, err := c.renderer.ViewPage(page)
	if err != nil {
		return nil, err
	}
	return &ViewResponse{HTML: html}, nil
}

type MobileArgs struct {
	CMID     int64 `json:"cmid"`
	CourseID int64 `json:"courseid"`
}

type MobileTemplate struct {
	ID   string `json:"id"`
	HTML string `json:"html"`
}

type MobileResponse struct {
	Templates  []MobileTemplate `json:"templates"`
	JavaScript string           `json:"javascript"`
	OtherData  string           `json:"otherdata"`
	Files      []string         `json:"files"`
}

// Mobile renders the activity for the mobile app. It enrols like the web
// view but never redirects.
func (c *Controller) Mobile(ctx context.Context, viewer *models.Viewer, args MobileArgs) (*MobileResponse, error) {
	st, err := c.load(ctx, viewer, args.CMID)
	if err != nil {
		return nil, err
	}
	if args.CourseID != 0 && args.CourseID != st.cm.Course {
		return nil, fmt.Errorf("course module %d in course %d: %w", args.CMID, args.CourseID, ErrNotFound)
	}
	code := viewer.Lang

	view := render.MobileView{
		CMID:  st.cm.ID,
		Name:  st.subcourse.Name,
		Intro: st.subcourse.Intro,
	}

	if st.refcourse == nil {
		privileged, err := c.caps.Has(ctx, viewer, st.cm.Course, CapFetchGrades)
		if err != nil {
			return nil, err
		}
		if privileged {
			view.Warning = lang.Get(code, "refcoursenull")
		}
	} else {
		if err := c.ensureAccess(ctx, viewer, st.course, st.refcourse); err != nil {
			return nil, err
		}
		view.RefCourse = &render.MobileRefCourse{
			ID:       st.refcourse.ID,
			FullName: st.refcourse.FullName,
			URL:      c.courseURL("/course/view.php", st.refcourse.ID),
		}
	}

	if st.refcourse != nil {
		progress, _, err := c.progressAndGrade(ctx, viewer, st)
		if err != nil {
			return nil, err
		}
		if progress != nil {
			view.HasProgress = true
			view.Progress = *progress
			view.ProgressLabel = lang.Get(code, "currentprogress", *progress)
		}
	}

	grade, err := c.store.GetActivityGrade(ctx, st.subcourse.ID, viewer.UserID)
	if err != nil {
		return nil, err
	}
	if s := scoring.FormatGrade(grade); s != nil {
		view.HasGrade = true
		view.CurrentGrade = *s
		view.GradeLabel = lang.Get(code, "currentgrade", *s)
	}

	html, err := c.renderer.MobileView(view)
	if err != nil {
		return nil, err
	}

	return &MobileResponse{
		Templates:  []MobileTemplate{{ID: "main", HTML: html}},
		JavaScript: "",
		OtherData:  "",
		Files:      []string{},
	}, nil
}

// ErrorMessage turns a controller error into the text shown to the user.
func ErrorMessage(err error, code string) string {
	var fe *FetchError
	switch {
	case errors.As(err, &fe) && fe.Result == scoring.ResultIncompatibleScale:
		return lang.Get(code, "errlocalremotescale")
	case errors.As(err, &fe):
		return lang.Get(code, "errfetch", fe.Result.String())
	case errors.Is(err, ErrNotConfigured):
		return lang.Get(code, "refcoursenull")
	case errors.Is(err, ErrNotFound):
		return lang.Get(code, "errnotfound")
	case errors.Is(err, ErrForbidden):
		return lang.Get(code, "errforbidden")
	case errors.Is(err, ErrInvalidSessKey):
		return lang.Get(code, "errsesskey")
	default:
		return lang.Get(code, "errfetch", "internal")
	}
}
