package models

import (
	"github.com/go-playground/validator/v10"
)

type Subcourse struct {
	ID                      int64   `db:"id" json:"id"`
	Course                  int64   `db:"course" json:"course" validate:"required,gt=0"`
	Name                    string  `db:"name" json:"name" validate:"required,max=255"`
	Intro                   string  `db:"intro" json:"intro"`
	RefCourse               *int64  `db:"refcourse" json:"refcourse,omitempty" validate:"omitempty,gt=0"`
	FetchPercentage         float64 `db:"fetchpercentage" json:"fetchpercentage" validate:"gte=0,lte=100"`
	TimeFetched             *int64  `db:"timefetched" json:"timefetched,omitempty"`
	InstantRedirect         bool    `db:"instantredirect" json:"instantredirect"`
	BlankWindow             bool    `db:"blankwindow" json:"blankwindow"`
	CoursePagePrintProgress bool    `db:"coursepageprintprogress" json:"coursepageprintprogress"`
	CoursePagePrintGrade    bool    `db:"coursepageprintgrade" json:"coursepageprintgrade"`
	CompletionCourse        bool    `db:"completioncourse" json:"completioncourse"`
	TimeCreated             int64   `db:"timecreated" json:"timecreated"`
	TimeModified            int64   `db:"timemodified" json:"timemodified"`
}

// Configured reports whether a referenced course has been chosen.
func (s *Subcourse) Configured() bool {
	return s.RefCourse != nil && *s.RefCourse > 0
}

func (s *Subcourse) RefCourseID() int64 {
	if s.RefCourse == nil {
		return 0
	}
	return *s.RefCourse
}

func (s *Subcourse) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}

// InstanceForm is what the settings form submits for add/update.
type InstanceForm struct {
	Subcourse
	CourseModule       int64 `json:"coursemodule"`
	RefCourseCurrent   bool  `json:"refcoursecurrent"`
	CompletionExpected int64 `json:"completionexpected"`
}

// ModuleName is the plugin's module identifier in the host tables.
const ModuleName = "subcourse"
