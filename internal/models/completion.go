package models

type CompletionState int

const (
	CompletionIncomplete   CompletionState = 0
	CompletionComplete     CompletionState = 1
	CompletionCompletePass CompletionState = 2
	CompletionCompleteFail CompletionState = 3
)

func (c CompletionState) String() string {
	switch c {
	case CompletionComplete:
		return "complete"
	case CompletionCompletePass:
		return "complete_pass"
	case CompletionCompleteFail:
		return "complete_fail"
	default:
		return "incomplete"
	}
}

type ModuleCompletion struct {
	CourseModuleID  int64           `db:"coursemoduleid" json:"coursemoduleid"`
	UserID          int64           `db:"userid" json:"userid"`
	CompletionState CompletionState `db:"completionstate" json:"completionstate"`
	Viewed          bool            `db:"viewed" json:"viewed"`
	TimeModified    int64           `db:"timemodified" json:"timemodified"`
}

type CourseCompletion struct {
	UserID        int64  `db:"userid" json:"userid"`
	Course        int64  `db:"course" json:"course"`
	TimeCompleted *int64 `db:"timecompleted" json:"timecompleted,omitempty"`
}
