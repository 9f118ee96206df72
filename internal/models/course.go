package models

type Course struct {
	ID               int64  `db:"id" json:"id"`
	FullName         string `db:"fullname" json:"fullname"`
	ShortName        string `db:"shortname" json:"shortname"`
	Visible          bool   `db:"visible" json:"visible"`
	ShowGrades       bool   `db:"showgrades" json:"showgrades"`
	EnableCompletion bool   `db:"enablecompletion" json:"enablecompletion"`
}

const (
	CompletionTrackingNone      = 0
	CompletionTrackingManual    = 1
	CompletionTrackingAutomatic = 2
)

type CourseModule struct {
	ID                 int64  `db:"id" json:"id"`
	Course             int64  `db:"course" json:"course"`
	Module             string `db:"module" json:"module"`
	Instance           int64  `db:"instance" json:"instance"`
	Visible            bool   `db:"visible" json:"visible"`
	ShowDescription    bool   `db:"showdescription" json:"showdescription"`
	Completion         int    `db:"completion" json:"completion"`
	CompletionView     bool   `db:"completionview" json:"completionview"`
	CompletionExpected int64  `db:"completionexpected" json:"completionexpected"`
}
