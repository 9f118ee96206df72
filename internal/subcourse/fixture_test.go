package subcourse

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/models"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/render"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/scoring"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/store"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/store/sqlite"
)

const (
	hostCourse   = int64(2)
	refCourseID  = int64(3)
	configuredCM = int64(50)
	emptyCM      = int64(51)
	studentID    = int64(100)
	teacherID    = int64(200)
	strangerID   = int64(300)
)

type memSessions struct {
	keys   map[int64]string
	crumbs map[int64]models.Breadcrumbs
}

func (m *memSessions) SessKey(ctx context.Context, userID int64) (string, error) {
	key, ok := m.keys[userID]
	if !ok {
		key = fmt.Sprintf("sess-%d", userID)
		m.keys[userID] = key
	}
	return key, nil
}

func (m *memSessions) SaveBreadcrumbs(ctx context.Context, userID int64, b models.Breadcrumbs) error {
	m.crumbs[userID] = b
	return nil
}

type fixture struct {
	ctx      context.Context
	now      time.Time
	store    *sqlite.SQLiteStore
	module   *Module
	ctl      *Controller
	sessions *memSessions
}

var (
	student  = &models.Viewer{UserID: studentID, Lang: "en"}
	teacher  = &models.Viewer{UserID: teacherID, Lang: "en"}
	stranger = &models.Viewer{UserID: strangerID, Lang: "en"}
	admin    = &models.Viewer{UserID: 1, Lang: "en", SiteAdmin: true}
)

func newFixture(t *testing.T, config Config) *fixture {
	st, err := sqlite.NewSQLiteStore(&store.DBConfig{
		DSN:           ":memory:",
		Type:          store.DBTypeSQLite,
		MigrationsDir: "../../migrations",
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	seed := []string{
		`INSERT INTO courses (id, fullname, shortname, visible, showgrades, enablecompletion) VALUES
			(2, 'Host course', 'HOST', TRUE, TRUE, TRUE),
			(3, 'Referenced course', 'REF', FALSE, TRUE, TRUE)`,
		`INSERT INTO subcourse (id, course, name, intro, refcourse, fetchpercentage, completioncourse) VALUES
			(1, 2, 'Linked', '<p>Intro</p>', 3, 50, TRUE),
			(2, 2, 'Not yet linked', '', NULL, 100, FALSE)`,
		`INSERT INTO course_modules (id, course, module, instance, completion, completionview) VALUES
			(50, 2, 'subcourse', 1, 2, TRUE),
			(51, 2, 'subcourse', 2, 0, FALSE),
			(60, 3, 'page', 1, 2, FALSE),
			(61, 3, 'quiz', 1, 2, FALSE)`,
		`INSERT INTO course_modules_completion (coursemoduleid, userid, completionstate) VALUES (60, 100, 1)`,
		`INSERT INTO role_assignments (roleid, courseid, userid) VALUES (5, 2, 100), (3, 2, 200)`,
		`INSERT INTO enrol (id, courseid, enrol) VALUES (1, 2, 'manual')`,
		`INSERT INTO user_enrolments (enrolid, userid, timestart, timeend) VALUES (1, 100, 1000, 0), (1, 200, 0, 0)`,
		`INSERT INTO grade_items (id, courseid, itemtype, itemname) VALUES (10, 3, 'course', '')`,
		`INSERT INTO grade_grades (itemid, userid, finalgrade) VALUES (10, 100, 80)`,
	}
	for _, q := range seed {
		_, err := st.DB.Exec(q)
		require.NoError(t, err, q)
	}

	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	caps := NewCapabilities(st, nil)
	module := NewModule(st, scoring.NewSynchronizer(st, st), caps, config)
	module.now = func() time.Time { return now }

	renderer, err := render.New()
	require.NoError(t, err)

	sessions := &memSessions{keys: map[int64]string{}, crumbs: map[int64]models.Breadcrumbs{}}

	return &fixture{
		ctx:      context.Background(),
		now:      now,
		store:    st,
		module:   module,
		ctl:      NewController(module, sessions, renderer),
		sessions: sessions,
	}
}

func (f *fixture) count(t *testing.T, query string, args ...interface{}) int {
	var n int
	require.NoError(t, f.store.DB.Get(&n, query, args...))
	return n
}

// brokenGradebook fails every grade line write of the wrapped store.
type brokenGradebook struct {
	store.SubcourseStore
}

func (b *brokenGradebook) UpdateGradeItem(ctx context.Context, upd models.GradeItemUpdate) error {
	return errors.New("grade_items is locked")
}

func (f *fixture) brokenModule() *Module {
	st := &brokenGradebook{SubcourseStore: f.store}
	module := NewModule(st, scoring.NewSynchronizer(st, st), NewCapabilities(st, nil), Config{})
	module.now = f.module.now
	return module
}
