package pst

import (
	"strings"

	"github.com/joshuapare/pstkit/pkg/types"
)

// Kind tags the entity variants produced by message-class dispatch.
type Kind int

const (
	KindMessage Kind = iota
	KindAppointment
	KindContact
	KindTask
	KindActivity
)

func (k Kind) String() string {
	switch k {
	case KindAppointment:
		return "appointment"
	case KindContact:
		return "contact"
	case KindTask:
		return "task"
	case KindActivity:
		return "activity"
	default:
		return "message"
	}
}

// Entity is the common surface of every typed view returned by the factory.
// Callers type-switch on the concrete type (or branch on Kind) to reach the
// class-specific accessors.
type Entity interface {
	Kind() Kind
	Class() string
	NID() types.NID
}

// classify maps a message class onto an entity kind. Unknown classes fall
// back to the generic message, never an error; known reports whether the
// class was recognized at all.
func classify(class string) (kind Kind, known bool) {
	switch {
	case strings.HasPrefix(class, "IPM.Contact"):
		return KindContact, true
	case strings.HasPrefix(class, "IPM.Appointment"),
		strings.HasPrefix(class, "IPM.Schedule.Meeting"):
		return KindAppointment, true
	case strings.HasPrefix(class, "IPM.TaskRequest"),
		strings.HasPrefix(class, "IPM.Task"):
		return KindTask, true
	case strings.HasPrefix(class, "IPM.Activity"):
		return KindActivity, true
	case strings.HasPrefix(class, "IPM.Note"),
		strings.HasPrefix(class, "REPORT.IPM.Note"),
		strings.HasPrefix(class, "IPM.StickyNote"),
		strings.HasPrefix(class, "IPM.DistList"),
		strings.HasPrefix(class, "IPM.Post"):
		return KindMessage, true
	default:
		return KindMessage, false
	}
}

// EntityByNID opens a message node and dispatches on its message class.
func (f *File) EntityByNID(nid types.NID) (Entity, error) {
	e, err := f.r.FindNode(nid)
	if err != nil {
		return nil, err
	}
	pc, err := f.r.OpenPC(e)
	if err != nil {
		return nil, err
	}
	class, _, err := pc.GetString(types.PropMessageClass)
	if err != nil {
		return nil, err
	}
	msg := &Message{f: f, nid: nid, class: class, pc: pc}
	kind, known := classify(class)
	if !known {
		f.r.NoteDiagnostic(types.Diagnostic{NID: nid, Msg: "unknown message class " + class})
	}
	switch kind {
	case KindContact:
		return &Contact{Message: msg}, nil
	case KindAppointment:
		return &Appointment{Message: msg}, nil
	case KindTask:
		return &Task{Message: msg}, nil
	case KindActivity:
		return &Activity{Message: msg}, nil
	default:
		return msg, nil
	}
}
