package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/app"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/render"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/store"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/store/sqlite"
)

const testConfig = `
[server]
port = ":0"

[auth]
redis_url = "redis://127.0.0.1:1/0"
site_admins = [1]

[api]
user_id_header = "X-Moodle-User-Id"

[[api.required_headers]]
name = "X-Moodle-Plugin"
value = "mod_subcourse"

[database]
dsn = ":memory:"

[enrol]
auto_enrol = true
`

type testServer struct {
	store  *sqlite.SQLiteStore
	router http.Handler
}

func setupServer(t *testing.T) *testServer {
	config, err := app.ParseConfig("test.toml", []byte(testConfig))
	require.NoError(t, err)

	st, err := sqlite.NewSQLiteStore(&store.DBConfig{
		DSN:           ":memory:",
		Type:          store.DBTypeSQLite,
		MigrationsDir: "../../migrations",
	})
	require.NoError(t, err)

	seed := []string{
		`INSERT INTO courses (id, fullname, shortname) VALUES (2, 'Host course', 'HOST'), (3, 'Referenced course', 'REF')`,
		`INSERT INTO subcourse (id, course, name, refcourse, fetchpercentage) VALUES (1, 2, 'Linked', 3, 100)`,
		`INSERT INTO course_modules (id, course, module, instance, completion) VALUES (50, 2, 'subcourse', 1, 2)`,
		`INSERT INTO role_assignments (roleid, courseid, userid) VALUES (5, 2, 100), (3, 2, 200)`,
		`INSERT INTO calendar_events (id, courseid, modulename, instance, eventtype, timestart) VALUES (7, 2, 'subcourse', 1, 'expectcompletionon', 1)`,
	}
	for _, q := range seed {
		_, err := st.DB.Exec(q)
		require.NoError(t, err, q)
	}

	renderer, err := render.New()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	service := app.NewServiceWith(config, st, client, renderer)
	t.Cleanup(func() { service.Close() })

	return &testServer{store: st, router: NewRouter(service)}
}

func (s *testServer) do(t *testing.T, method, target string, userID string, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r.Header.Set("X-Moodle-Plugin", "mod_subcourse")
	if userID != "" {
		r.Header.Set("X-Moodle-User-Id", userID)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	return w
}

func TestHandleView(t *testing.T) {
	s := setupServer(t)

	t.Run("student page", func(t *testing.T) {
		w := s.do(t, "GET", "/mod/subcourse/view.php?id=50", "100", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), "Go to Referenced course")
	})

	t.Run("stranger", func(t *testing.T) {
		w := s.do(t, "GET", "/mod/subcourse/view.php?id=50", "300", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "not allowed")
	})

	t.Run("missing module", func(t *testing.T) {
		w := s.do(t, "GET", "/mod/subcourse/view.php?id=999", "100", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		w := s.do(t, "GET", "/mod/subcourse/view.php?id=abc", "100", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("no user", func(t *testing.T) {
		w := s.do(t, "GET", "/mod/subcourse/view.php?id=50", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing required header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/mod/subcourse/view.php?id=50", nil)
		r.Header.Set("X-Moodle-User-Id", "100")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, r)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestHandleMobile(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, "GET", "/mod/subcourse/mobile?cmid=50&courseid=2", "100", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Templates []struct {
			ID   string `json:"id"`
			HTML string `json:"html"`
		} `json:"templates"`
		Files []string `json:"files"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Templates, 1)
	assert.Equal(t, "main", resp.Templates[0].ID)
	assert.NotNil(t, resp.Files)
}

func TestInstanceLifecycle(t *testing.T) {
	s := setupServer(t)

	t.Run("student cannot add", func(t *testing.T) {
		w := s.do(t, "POST", "/api/v1/instances", "100", `{"course": 2, "name": "Nope", "fetchpercentage": 100}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("invalid form", func(t *testing.T) {
		w := s.do(t, "POST", "/api/v1/instances", "200", `{"course": 2, "name": "Too much", "fetchpercentage": 300}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	w := s.do(t, "POST", "/api/v1/instances", "200", `{"course": 2, "name": "New", "refcourse": 3, "fetchpercentage": 100}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created["id"]
	require.NotZero(t, id)

	w = s.do(t, "PUT", "/api/v1/instances/"+itoa(id), "200", `{"course": 2, "name": "Renamed", "fetchpercentage": 50, "refcoursecurrent": true}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	sc, err := s.store.GetSubcourse(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", sc.Name)
	assert.Equal(t, int64(3), sc.RefCourseID())

	w = s.do(t, "POST", "/api/v1/instances/"+itoa(id)+"/fetch", "200", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"result": "ok"}`, w.Body.String())

	w = s.do(t, "DELETE", "/api/v1/instances/"+itoa(id), "1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted": true}`, w.Body.String())

	w = s.do(t, "DELETE", "/api/v1/instances/"+itoa(id), "1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHostCallbacks(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, "GET", "/api/v1/cm/50/info", "100", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Linked"`)

	w = s.do(t, "GET", "/api/v1/cm/50/rules", "100", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "completionrefcourse")

	w = s.do(t, "GET", "/api/v1/events/7/action", "100", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name": "View", "url": "/mod/subcourse/view.php?id=50", "itemcount": 1, "actionable": true}`, w.Body.String())

	w = s.do(t, "GET", "/api/v1/features/mod_intro", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"feature": "mod_intro", "value": true}`, w.Body.String())

	w = s.do(t, "POST", "/api/v1/tokens/100", "100", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, statusFor(app.ErrUnauthorized))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
