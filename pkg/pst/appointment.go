package pst

import (
	"time"

	"github.com/joshuapare/pstkit/internal/format"
	"github.com/joshuapare/pstkit/pkg/types"
)

// Appointment is the typed view over an IPM.Appointment or meeting item.
// Its scheduling fields are named properties under PSETID_Appointment.
type Appointment struct {
	*Message
}

// Kind implements Entity.
func (a *Appointment) Kind() Kind { return KindAppointment }

// Location returns the appointment location.
func (a *Appointment) Location() (string, error) {
	return a.namedString(format.PSETIDAppointment, types.NamedAppointmentLocation)
}

// StartTime returns the appointment start instant.
func (a *Appointment) StartTime() (time.Time, error) {
	return a.namedTime(format.PSETIDAppointment, types.NamedAppointmentStart)
}

// EndTime returns the appointment end instant.
func (a *Appointment) EndTime() (time.Time, error) {
	return a.namedTime(format.PSETIDAppointment, types.NamedAppointmentEnd)
}
