package models

const (
	GradeTypeNone  = 0
	GradeTypeValue = 1
	GradeTypeScale = 2
	GradeTypeText  = 3
)

const (
	ItemTypeCourse = "course"
	ItemTypeMod    = "mod"
)

type GradeItem struct {
	ID           int64   `db:"id" json:"id"`
	CourseID     int64   `db:"courseid" json:"courseid"`
	ItemType     string  `db:"itemtype" json:"itemtype"`
	ItemModule   *string `db:"itemmodule" json:"itemmodule,omitempty"`
	ItemInstance *int64  `db:"iteminstance" json:"iteminstance,omitempty"`
	ItemName     string  `db:"itemname" json:"itemname"`
	GradeType    int     `db:"gradetype" json:"gradetype"`
	GradeMax     float64 `db:"grademax" json:"grademax"`
	GradeMin     float64 `db:"grademin" json:"grademin"`
	ScaleID      *int64  `db:"scaleid" json:"scaleid,omitempty"`
}

type Grade struct {
	ItemID       int64    `db:"itemid" json:"itemid"`
	UserID       int64    `db:"userid" json:"userid"`
	FinalGrade   *float64 `db:"finalgrade" json:"finalgrade"`
	TimeModified int64    `db:"timemodified" json:"timemodified"`
}

type Scale struct {
	ID       int64  `db:"id" json:"id"`
	CourseID int64  `db:"courseid" json:"courseid"`
	Name     string `db:"name" json:"name"`
	Scale    string `db:"scale" json:"scale"`
}

// Local reports whether the scale belongs to one course rather than the site.
func (s *Scale) Local() bool {
	return s.CourseID != 0
}

// RefGrades is what a grade source returns for a referenced course.
type RefGrades struct {
	Grades           map[int64]float64
	LocalRemoteScale bool
}

// GradeItemUpdate describes one write to an activity grade line. Exactly one
// of ItemOnly, Reset and Values applies. A non-zero UserID scopes Reset to
// that user.
type GradeItemUpdate struct {
	CourseID   int64
	InstanceID int64
	ItemName   string
	GradeMax   float64
	ItemOnly   bool
	Reset      bool
	Deleted    bool
	UserID     int64
	Values     map[int64]float64
}
