package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/app"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/models"
	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/subcourse"
)

type SubcourseHandler struct {
	service *app.Service
}

func NewSubcourseHandler(service *app.Service) *SubcourseHandler {
	return &SubcourseHandler{
		service: service,
	}
}

func statusFor(err error) int {
	var fe *subcourse.FetchError
	var ve validator.ValidationErrors
	switch {
	case errors.Is(err, app.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, subcourse.ErrForbidden), errors.Is(err, subcourse.ErrInvalidSessKey):
		return http.StatusForbidden
	case errors.Is(err, subcourse.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, subcourse.ErrNotConfigured):
		return http.StatusConflict
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &fe):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *SubcourseHandler) fail(w http.ResponseWriter, viewer *models.Viewer, err error) {
	code := h.service.Config.Display.DefaultLang
	if viewer != nil {
		code = viewer.Lang
	}
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error.Printf("ERROR: %v", err)
	} else {
		logger.Debug.Printf("Request failed with %d: %v", status, err)
	}
	http.Error(w, subcourse.ErrorMessage(err, code), status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug.Printf("Error encoding response: %v", err)
	}
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func queryID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	return id, err == nil && id > 0
}

func flag(r *http.Request, name string) bool {
	v := r.URL.Query().Get(name)
	return v != "" && v != "0" && v != "false"
}

// authenticate resolves the viewer or writes the error response.
func (h *SubcourseHandler) authenticate(w http.ResponseWriter, r *http.Request) (*models.Viewer, bool) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusForbidden)
		return nil, false
	}
	viewer, err := h.service.Viewer(r)
	if err != nil {
		h.fail(w, nil, err)
		return nil, false
	}
	return viewer, true
}

func (h *SubcourseHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	cmID, ok := queryID(r, "id")
	if !ok {
		http.Error(w, "Invalid course module id", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Controller.Handle(r.Context(), viewer, subcourse.ViewRequest{
		CMID:            cmID,
		FetchNow:        flag(r, "fetchnow"),
		InstantRedirect: flag(r, "instantredirect"),
		IsBlankWindow:   flag(r, "isblankwindow"),
		SessKey:         r.URL.Query().Get("sesskey"),
	})
	if err != nil {
		h.fail(w, viewer, err)
		return
	}

	if resp.Redirect != "" {
		http.Redirect(w, r, resp.Redirect, http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(resp.HTML))
}

func (h *SubcourseHandler) HandleMobile(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	cmID, ok := queryID(r, "cmid")
	if !ok {
		http.Error(w, "Invalid course module id", http.StatusBadRequest)
		return
	}
	courseID, _ := queryID(r, "courseid")

	resp, err := h.service.Controller.Mobile(r.Context(), viewer, subcourse.MobileArgs{CMID: cmID, CourseID: courseID})
	if err != nil {
		h.fail(w, viewer, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SubcourseHandler) decodeForm(w http.ResponseWriter, r *http.Request) (*models.InstanceForm, bool) {
	var form models.InstanceForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	return &form, true
}

func (h *SubcourseHandler) HandleAddInstance(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}

	module := h.service.Module
	if err := module.Authorize(r.Context(), viewer, form.Course, subcourse.CapAddInstance); err != nil {
		h.fail(w, viewer, err)
		return
	}

	id, err := module.AddInstance(r.Context(), form)
	if err != nil {
		h.fail(w, viewer, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// instanceCourse authorizes the viewer on the course owning an instance.
func (h *SubcourseHandler) instanceCourse(w http.ResponseWriter, r *http.Request, viewer *models.Viewer) (int64, bool) {
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "Invalid instance id", http.StatusBadRequest)
		return 0, false
	}

	sc, err := h.service.Store.GetSubcourse(r.Context(), id)
	if err != nil {
		h.fail(w, viewer, err)
		return 0, false
	}
	if sc == nil {
		h.fail(w, viewer, subcourse.ErrNotFound)
		return 0, false
	}
	if err := h.service.Module.Authorize(r.Context(), viewer, sc.Course, subcourse.CapAddInstance); err != nil {
		h.fail(w, viewer, err)
		return 0, false
	}
	return id, true
}

func (h *SubcourseHandler) HandleUpdateInstance(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	id, ok := h.instanceCourse(w, r, viewer)
	if !ok {
		return
	}
	form, ok := h.decodeForm(w, r)
	if !ok {
		return
	}
	form.ID = id

	if err := h.service.Module.UpdateInstance(r.Context(), viewer, form); err != nil {
		h.fail(w, viewer, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SubcourseHandler) HandleDeleteInstance(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	id, ok := h.instanceCourse(w, r, viewer)
	if !ok {
		return
	}

	deleted, err := h.service.Module.DeleteInstance(r.Context(), id)
	if err != nil {
		h.fail(w, viewer, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (h *SubcourseHandler) HandleFetchGrades(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "Invalid instance id", http.StatusBadRequest)
		return
	}

	result, err := h.service.Module.FetchGrades(r.Context(), viewer, id)
	if err != nil {
		h.fail(w, viewer, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": result.String()})
}

func (h *SubcourseHandler) HandleModuleInfo(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	cmID, ok := idParam(r, "cmid")
	if !ok {
		http.Error(w, "Invalid course module id", http.StatusBadRequest)
		return
	}

	info, err := h.service.Module.CourseModuleInfo(r.Context(), cmID)
	if err != nil {
		h.fail(w, viewer, err)
		return
	}
	if info == nil {
		h.fail(w, viewer, subcourse.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *SubcourseHandler) HandleCompletionRules(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	cmID, ok := idParam(r, "cmid")
	if !ok {
		http.Error(w, "Invalid course module id", http.StatusBadRequest)
		return
	}

	report, err := h.service.Module.CompletionRules(r.Context(), viewer, cmID)
	if err != nil {
		h.fail(w, viewer, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *SubcourseHandler) HandleEventAction(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	eventID, ok := idParam(r, "id")
	if !ok {
		http.Error(w, "Invalid event id", http.StatusBadRequest)
		return
	}

	action, err := h.service.Module.CalendarEventAction(r.Context(), eventID, viewer.Lang)
	if err != nil {
		h.fail(w, viewer, err)
		return
	}
	writeJSON(w, http.StatusOK, action)
}

func (h *SubcourseHandler) HandleFeature(w http.ResponseWriter, r *http.Request) {
	feature := chi.URLParam(r, "feature")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"feature": feature,
		"value":   subcourse.Supports(feature),
	})
}

func (h *SubcourseHandler) HandleBreadcrumbs(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	crumbs, err := h.service.Tokens.Breadcrumbs(r.Context(), viewer.UserID)
	if err != nil {
		h.fail(w, viewer, err)
		return
	}
	if crumbs == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, crumbs)
}

// HandleIssueToken hands out API tokens. Site admins only.
func (h *SubcourseHandler) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	if !viewer.SiteAdmin {
		h.fail(w, viewer, subcourse.ErrForbidden)
		return
	}
	userID, ok := idParam(r, "user")
	if !ok {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	info, created, err := h.service.Tokens.FetchOrCreateUserToken(r.Context(), userID)
	if err != nil {
		h.fail(w, viewer, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, info)
}
