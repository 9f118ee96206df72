package subcourse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/completion"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/lang"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/models"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/scoring"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/store"
)

type Config struct {
	WWWRoot         string
	AutoEnrol       bool
	HideEnrolled    bool
	AutoUnhide      bool
	FallbackRoleID  int64
	TimestampFormat string
}

// Module implements the callbacks the host calls on the activity.
type Module struct {
	store      store.SubcourseStore
	sync       *scoring.Synchronizer
	caps       *Capabilities
	completion *completion.Evaluator
	config     Config
	now        func() time.Time
}

func NewModule(st store.SubcourseStore, sync *scoring.Synchronizer, caps *Capabilities, config Config) *Module {
	if config.FallbackRoleID == 0 {
		config.FallbackRoleID = models.DefaultStudentRoleID
	}
	if config.TimestampFormat == "" {
		config.TimestampFormat = "2006-01-02 15:04"
	}
	return &Module{
		store:      st,
		sync:       sync,
		caps:       caps,
		completion: completion.NewEvaluator(st),
		config:     config,
		now:        time.Now,
	}
}

func (m *Module) Store() store.SubcourseStore {
	return m.store
}

func (m *Module) Completion() *completion.Evaluator {
	return m.completion
}

func (m *Module) Synchronizer() *scoring.Synchronizer {
	return m.sync
}

// AddInstance stores a new activity. A configured one gets its grade line
// right away but no values, users are fetched on the first update or run.
func (m *Module) AddInstance(ctx context.Context, form *models.InstanceForm) (int64, error) {
	sc := form.Subcourse
	sc.ID = 0
	sc.TimeCreated = m.now().Unix()
	sc.TimeFetched = nil
	if err := sc.Validate(); err != nil {
		return 0, fmt.Errorf("invalid subcourse: %w", err)
	}

	id, err := m.store.InsertSubcourse(ctx, &sc)
	if err != nil {
		return 0, err
	}

	if err := m.setupInstance(ctx, form, &sc, id); err != nil {
		if derr := m.store.DeleteSubcourse(ctx, id); derr != nil {
			logger.Error.Printf("Failed to remove half-created subcourse %d: %v", id, derr)
		}
		return 0, err
	}

	logger.Info.Printf("Created subcourse %d in course %d", id, sc.Course)
	return id, nil
}

// setupInstance does everything after the insert. Grade line and calendar
// writes are idempotent, so a failed add can be undone by dropping the row.
func (m *Module) setupInstance(ctx context.Context, form *models.InstanceForm, sc *models.Subcourse, id int64) error {
	if form.CourseModule != 0 {
		if err := m.store.AttachCourseModule(ctx, form.CourseModule, id); err != nil {
			return err
		}
	}

	if sc.Configured() {
		_, err := m.sync.Sync(ctx, scoring.SyncRequest{
			SubcourseID: id,
			CourseID:    sc.Course,
			RefCourseID: sc.RefCourseID(),
			Name:        sc.Name,
			Options:     scoring.Options{GradeItemOnly: true},
		})
		if err != nil {
			return err
		}
	}

	if form.CompletionExpected != 0 {
		return m.store.UpsertCalendarEvent(ctx, completionEvent(sc.Course, id, form.CompletionExpected))
	}
	return nil
}

// UpdateInstance saves the settings form. Editors allowed to fetch grades
// trigger a full fetch on save.
func (m *Module) UpdateInstance(ctx context.Context, viewer *models.Viewer, form *models.InstanceForm) error {
	existing, err := m.store.GetSubcourse(ctx, form.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("subcourse %d: %w", form.ID, ErrNotFound)
	}

	sc := form.Subcourse
	if form.RefCourseCurrent {
		sc.RefCourse = existing.RefCourse
	}
	sc.TimeCreated = existing.TimeCreated
	sc.TimeFetched = existing.TimeFetched
	sc.TimeModified = m.now().Unix()
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("invalid subcourse: %w", err)
	}

	if err := m.store.UpdateSubcourse(ctx, &sc); err != nil {
		return err
	}

	if sc.Configured() {
		allowed, err := m.caps.Has(ctx, viewer, sc.Course, CapFetchGrades)
		if err != nil {
			return err
		}
		if allowed {
			m.fetchAll(ctx, &sc)
		}
	}

	if form.CompletionExpected != 0 {
		return m.store.UpsertCalendarEvent(ctx, completionEvent(sc.Course, sc.ID, form.CompletionExpected))
	}
	return m.store.DeleteCalendarEvent(ctx, models.ModuleName, sc.ID, models.EventTypeExpectCompletionOn)
}

// fetchAll runs a full sync and stamps timefetched on success. Failures are
// logged, the caller carries on.
func (m *Module) fetchAll(ctx context.Context, sc *models.Subcourse) scoring.Result {
	result, err := m.sync.Sync(ctx, scoring.SyncRequest{
		SubcourseID: sc.ID,
		CourseID:    sc.Course,
		RefCourseID: sc.RefCourseID(),
		Name:        sc.Name,
		Percentage:  sc.FetchPercentage,
	})
	if err != nil {
		logger.Error.Printf("Failed to fetch grades for subcourse %d: %v", sc.ID, err)
		return result
	}
	if result == scoring.ResultOK {
		if err := m.store.UpdateTimeFetched(ctx, sc.ID, m.now().Unix()); err != nil {
			logger.Error.Printf("Failed to stamp timefetched for subcourse %d: %v", sc.ID, err)
			return scoring.ResultFailed
		}
	}
	return result
}

// Authorize fails with ErrForbidden unless the viewer holds the capability
// in the course.
func (m *Module) Authorize(ctx context.Context, viewer *models.Viewer, courseID int64, capability string) error {
	allowed, err := m.caps.Has(ctx, viewer, courseID, capability)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%s on course %d: %w", capability, courseID, ErrForbidden)
	}
	return nil
}

// FetchGrades fetches every user's grade for one instance on request.
func (m *Module) FetchGrades(ctx context.Context, viewer *models.Viewer, id int64) (scoring.Result, error) {
	sc, err := m.store.GetSubcourse(ctx, id)
	if err != nil {
		return scoring.ResultFailed, err
	}
	if sc == nil {
		return scoring.ResultFailed, fmt.Errorf("subcourse %d: %w", id, ErrNotFound)
	}
	if err := m.Authorize(ctx, viewer, sc.Course, CapFetchGrades); err != nil {
		return scoring.ResultFailed, err
	}
	if !sc.Configured() {
		return scoring.ResultNothingToDo, fmt.Errorf("subcourse %d: %w", id, ErrNotConfigured)
	}

	if err := m.logGradesFetched(ctx, viewer, sc); err != nil {
		return scoring.ResultFailed, err
	}
	result := m.fetchAll(ctx, sc)
	if result == scoring.ResultNothingToDo {
		return result, fmt.Errorf("subcourse %d: course %d is gone: %w", id, sc.RefCourseID(), ErrNotConfigured)
	}
	if result != scoring.ResultOK {
		return result, &FetchError{Result: result, Err: scoring.ErrFetchFailed}
	}
	return result, nil
}

// DeleteInstance removes the activity and its grade line. A missing
// instance reports false. The instance row goes last so a failed delete
// can be retried.
func (m *Module) DeleteInstance(ctx context.Context, id int64) (bool, error) {
	sc, err := m.store.GetSubcourse(ctx, id)
	if err != nil {
		return false, err
	}
	if sc == nil {
		return false, nil
	}

	if err := m.store.UpdateGradeItem(ctx, models.GradeItemUpdate{
		CourseID:   sc.Course,
		InstanceID: sc.ID,
		Deleted:    true,
	}); err != nil {
		return false, err
	}
	if err := m.store.DeleteCalendarEvent(ctx, models.ModuleName, sc.ID, models.EventTypeExpectCompletionOn); err != nil {
		return false, err
	}
	if err := m.store.DeleteSubcourse(ctx, sc.ID); err != nil {
		return false, err
	}

	logger.Info.Printf("Deleted subcourse %d from course %d", sc.ID, sc.Course)
	return true, nil
}

// View logs the viewed event and feeds the completion-on-view rule.
func (m *Module) View(ctx context.Context, viewer *models.Viewer, sc *models.Subcourse, cm *models.CourseModule) error {
	now := m.now().Unix()
	if err := m.store.LogEvent(ctx, models.LogEvent{
		EventName:   models.EventCourseModuleViewed,
		ObjectID:    sc.ID,
		CourseID:    cm.Course,
		UserID:      viewer.UserID,
		TimeCreated: now,
	}); err != nil {
		return err
	}
	_, err := m.completion.MarkViewed(ctx, cm, sc, viewer.UserID, now)
	return err
}

type CustomData struct {
	CoursePagePrintGrade    bool            `json:"coursepageprintgrade"`
	CoursePagePrintProgress bool            `json:"coursepageprintprogress"`
	CustomCompletionRules   map[string]bool `json:"customcompletionrules,omitempty"`
}

// CMInfo is what the course page needs to list the activity.
type CMInfo struct {
	Name       string     `json:"name"`
	CustomData CustomData `json:"customdata"`
	OnClick    string     `json:"onclick,omitempty"`
	Content    string     `json:"content,omitempty"`
}

// CourseModuleInfo returns nil when the instance behind the module is gone.
func (m *Module) CourseModuleInfo(ctx context.Context, cmID int64) (*CMInfo, error) {
	cm, err := m.store.GetCourseModule(ctx, cmID)
	if err != nil {
		return nil, err
	}
	if cm == nil {
		return nil, fmt.Errorf("course module %d: %w", cmID, ErrNotFound)
	}

	sc, err := m.store.GetSubcourse(ctx, cm.Instance)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, nil
	}

	info := &CMInfo{
		Name: sc.Name,
		CustomData: CustomData{
			CoursePagePrintGrade:    sc.CoursePagePrintGrade,
			CoursePagePrintProgress: sc.CoursePagePrintProgress,
		},
	}

	if sc.InstantRedirect && sc.BlankWindow {
		target := m.viewURL(cm.ID, url.Values{"isblankwindow": {"1"}})
		info.OnClick = "window.open('" + target + "'); return false;"
	}

	if cm.ShowDescription {
		info.Content = sc.Intro
	}

	if cm.Completion == models.CompletionTrackingAutomatic {
		info.CustomData.CustomCompletionRules = map[string]bool{
			completion.RuleRefCourse: sc.CompletionCourse,
		}
	}

	return info, nil
}

// ActiveRuleDescriptions describes the custom completion rules in force for
// the course module.
func (m *Module) ActiveRuleDescriptions(ctx context.Context, cmID int64, code string) ([]string, error) {
	cm, err := m.store.GetCourseModule(ctx, cmID)
	if err != nil {
		return nil, err
	}
	if cm == nil {
		return nil, fmt.Errorf("course module %d: %w", cmID, ErrNotFound)
	}
	info, err := m.CourseModuleInfo(ctx, cmID)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return []string{}, nil
	}
	return completion.ActiveRuleDescriptions(cm.Completion, info.CustomData.CustomCompletionRules, code), nil
}

type RuleStatus struct {
	Rule        string `json:"rule"`
	Description string `json:"description"`
	State       string `json:"state"`
}

type RulesReport struct {
	Rules     []RuleStatus `json:"rules"`
	SortOrder []string     `json:"sortorder"`
	Active    []string     `json:"active"`
}

// CompletionRules reports the custom rules of one activity and their state
// for the viewer.
func (m *Module) CompletionRules(ctx context.Context, viewer *models.Viewer, cmID int64) (*RulesReport, error) {
	cm, err := m.store.GetCourseModule(ctx, cmID)
	if err != nil {
		return nil, err
	}
	if cm == nil {
		return nil, fmt.Errorf("course module %d: %w", cmID, ErrNotFound)
	}
	if err := m.Authorize(ctx, viewer, cm.Course, CapView); err != nil {
		return nil, err
	}

	sc, err := m.store.GetSubcourse(ctx, cm.Instance)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, fmt.Errorf("subcourse %d: %w", cm.Instance, ErrNotFound)
	}

	rules := completion.CustomRules{Evaluator: m.completion, Subcourse: sc}
	report := &RulesReport{SortOrder: rules.SortOrder()}
	for _, rule := range rules.ListRules() {
		desc, err := rules.Describe(rule, viewer.Lang)
		if err != nil {
			return nil, err
		}
		state, err := rules.Evaluate(ctx, rule, viewer.UserID)
		if err != nil {
			return nil, err
		}
		report.Rules = append(report.Rules, RuleStatus{Rule: rule, Description: desc, State: state.String()})
	}

	report.Active, err = m.ActiveRuleDescriptions(ctx, cmID, viewer.Lang)
	if err != nil {
		return nil, err
	}
	return report, nil
}

type EventAction struct {
	Name       string `json:"name"`
	URL        string `json:"url"`
	ItemCount  int    `json:"itemcount"`
	Actionable bool   `json:"actionable"`
}

// CalendarEventAction maps an activity calendar event to its "View" action.
func (m *Module) CalendarEventAction(ctx context.Context, eventID int64, code string) (*EventAction, error) {
	ev, err := m.store.GetCalendarEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil || ev.ModuleName != models.ModuleName {
		return nil, fmt.Errorf("calendar event %d: %w", eventID, ErrNotFound)
	}

	cm, err := m.store.GetCourseModuleByInstance(ctx, ev.Instance)
	if err != nil {
		return nil, err
	}
	if cm == nil {
		return nil, fmt.Errorf("course module for subcourse %d: %w", ev.Instance, ErrNotFound)
	}

	return &EventAction{
		Name:       lang.Get(code, "view"),
		URL:        m.viewURL(cm.ID, nil),
		ItemCount:  1,
		Actionable: true,
	}, nil
}

func (m *Module) logGradesFetched(ctx context.Context, viewer *models.Viewer, sc *models.Subcourse) error {
	other, err := json.Marshal(map[string]int64{"refcourse": sc.RefCourseID()})
	if err != nil {
		return err
	}
	return m.store.LogEvent(ctx, models.LogEvent{
		EventName:   models.EventGradesFetched,
		ObjectID:    sc.ID,
		CourseID:    sc.Course,
		UserID:      viewer.UserID,
		Other:       string(other),
		TimeCreated: m.now().Unix(),
	})
}

func (m *Module) viewURL(cmID int64, extra url.Values) string {
	params := url.Values{"id": {strconv.FormatInt(cmID, 10)}}
	for k, v := range extra {
		params[k] = v
	}
	return m.config.WWWRoot + "/mod/subcourse/view.php?" + params.Encode()
}

func (m *Module) courseURL(path string, courseID int64) string {
	return m.config.WWWRoot + path + "?id=" + strconv.FormatInt(courseID, 10)
}

func completionEvent(courseID, instance, timeStart int64) models.CalendarEvent {
	return models.CalendarEvent{
		CourseID:   courseID,
		ModuleName: models.ModuleName,
		Instance:   instance,
		EventType:  models.EventTypeExpectCompletionOn,
		TimeStart:  timeStart,
	}
}
