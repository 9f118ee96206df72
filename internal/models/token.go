package models

import (
	"time"
)

type TokenInfo struct {
	Token           string    `json:"token"`
	RequestCount    int       `json:"request_count"`
	LastRequestTime time.Time `json:"last_request_dttm_utc"`
	CreatedTime     time.Time `json:"created_dttm_utc"`
}

// Viewer is the authenticated user behind one request.
type Viewer struct {
	UserID    int64
	Lang      string
	SiteAdmin bool
}

// Breadcrumbs remember where an instant redirect came from so the theme can
// offer a way back.
type Breadcrumbs struct {
	ReturnCourseID   int64  `json:"return_course_id"`
	ReturnCourseName string `json:"return_course_name"`
	RefCourseID      int64  `json:"refcourse_course_id"`
}
