package models

const (
	EventCourseModuleViewed = `\mod_subcourse\event\course_module_viewed`
	EventGradesFetched      = `\mod_subcourse\event\subcourse_grades_fetched`
)

type LogEvent struct {
	ID          int64  `db:"id" json:"id"`
	EventName   string `db:"eventname" json:"eventname"`
	ObjectID    int64  `db:"objectid" json:"objectid"`
	CourseID    int64  `db:"courseid" json:"courseid"`
	UserID      int64  `db:"userid" json:"userid"`
	Other       string `db:"other" json:"other"`
	TimeCreated int64  `db:"timecreated" json:"timecreated"`
}

const EventTypeExpectCompletionOn = "expectcompletionon"

type CalendarEvent struct {
	ID         int64  `db:"id" json:"id"`
	CourseID   int64  `db:"courseid" json:"courseid"`
	ModuleName string `db:"modulename" json:"modulename"`
	Instance   int64  `db:"instance" json:"instance"`
	EventType  string `db:"eventtype" json:"eventtype"`
	TimeStart  int64  `db:"timestart" json:"timestart"`
}
