package pst

import (
	"time"

	"github.com/joshuapare/pstkit/internal/format"
	"github.com/joshuapare/pstkit/pkg/types"
)

// Activity is the typed view over an IPM.Activity (journal) item. Its
// fields are named properties under PSETID_Log.
type Activity struct {
	*Message
}

// Kind implements Entity.
func (a *Activity) Kind() Kind { return KindActivity }

// LogType returns the journal entry type.
func (a *Activity) LogType() (string, error) {
	return a.namedString(format.PSETIDLog, types.NamedLogType)
}

// LogStart returns the journal entry start instant.
func (a *Activity) LogStart() (time.Time, error) {
	return a.namedTime(format.PSETIDLog, types.NamedLogStart)
}
