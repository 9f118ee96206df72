package models

// DefaultStudentRoleID is used when the viewer has no role in the owning course.
const DefaultStudentRoleID int64 = 5

type EnrolInstance struct {
	ID       int64  `db:"id" json:"id"`
	CourseID int64  `db:"courseid" json:"courseid"`
	Enrol    string `db:"enrol" json:"enrol"`
}

type UserEnrolment struct {
	EnrolID   int64 `db:"enrolid" json:"enrolid"`
	UserID    int64 `db:"userid" json:"userid"`
	TimeStart int64 `db:"timestart" json:"timestart"`
	TimeEnd   int64 `db:"timeend" json:"timeend"`
}

// Active reports whether the enrolment window covers now. Zero bounds are open.
func (u *UserEnrolment) Active(now int64) bool {
	if u.TimeStart != 0 && now < u.TimeStart {
		return false
	}
	if u.TimeEnd != 0 && now > u.TimeEnd {
		return false
	}
	return true
}

type RoleAssignment struct {
	RoleID   int64 `db:"roleid" json:"roleid"`
	CourseID int64 `db:"courseid" json:"courseid"`
	UserID   int64 `db:"userid" json:"userid"`
}
