package subcourse

import (
	"errors"
	"fmt"

	"github.com/EduardoKrausME/moodle-mod-subcourse/internal/scoring"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("missing capability")
	ErrInvalidSessKey = errors.New("invalid session key")
	ErrNotConfigured  = errors.New("no referenced course configured")
)

// FetchError is a fetch-now run that did not end in OK. It is shown to the
// requester with a link back to the activity.
type FetchError struct {
	CMID   int64
	Result scoring.Result
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch for course module %d ended with %s: %v", e.CMID, e.Result, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
