package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/app"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/metrics"
)

// instrument records request duration under the matched route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.APIRequestDuration.WithLabelValues(
			path,
			r.Method,
			strconv.Itoa(status),
		).Observe(time.Since(start).Seconds())
	})
}

func NewRouter(service *app.Service) http.Handler {
	h := NewSubcourseHandler(service)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(instrument)

	r.Get("/mod/subcourse/view.php", h.HandleView)
	r.Get("/mod/subcourse/mobile", h.HandleMobile)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/instances", h.HandleAddInstance)
		r.Put("/instances/{id}", h.HandleUpdateInstance)
		r.Delete("/instances/{id}", h.HandleDeleteInstance)
		r.Post("/instances/{id}/fetch", h.HandleFetchGrades)
		r.Get("/cm/{cmid}/info", h.HandleModuleInfo)
		r.Get("/cm/{cmid}/rules", h.HandleCompletionRules)
		r.Get("/events/{id}/action", h.HandleEventAction)
		r.Get("/features/{feature}", h.HandleFeature)
		r.Get("/session/breadcrumbs", h.HandleBreadcrumbs)
		r.Post("/tokens/{user}", h.HandleIssueToken)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
