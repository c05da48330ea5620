package notification

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendance/core"
)

type (
	Status string
	Type   string
	Method string
)

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"

	TypeLate    Type = "late"
	TypeAbsent  Type = "absent"
	TypeExcused Type = "excused"

	MethodEmail    Method = "email"
	MethodSMS      Method = "sms"
	MethodWhatsApp Method = "whatsapp"
)

var (
	AllStatuses = []Status{StatusPending, StatusSent, StatusFailed}
	AllTypes    = []Type{TypeLate, TypeAbsent, TypeExcused}
	AllMethods  = []Method{MethodEmail, MethodSMS, MethodWhatsApp}

	// transition errors
	ErrNotPending = core.NewTransitionError("only pending notifications can be marked as sent")
	ErrNotFailed  = core.NewTransitionError("only failed notifications can be retried")
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed:
		return true
	}
	return false
}

func (t Type) Valid() bool {
	switch t {
	case TypeLate, TypeAbsent, TypeExcused:
		return true
	}
	return false
}

func (m Method) Valid() bool {
	switch m {
	case MethodEmail, MethodSMS, MethodWhatsApp:
		return true
	}
	return false
}

// Notification tracks the delivery of one attendance notice to one guardian.
// SentAt is set if and only if Status is StatusSent.
type Notification struct {
	ID            string      `json:"id"`
	AttendanceID  string      `json:"attendance_id"`
	StudentID     string      `json:"student_id"`
	GuardianID    string      `json:"guardian_id"`
	Type          Type        `json:"type"`
	Method        Method      `json:"method"`
	Status        Status      `json:"status"`
	Recipient     string      `json:"recipient"` // email address or E.164 number, depending on Method
	RecipientName string      `json:"recipient_name"`
	Subject       string      `json:"subject"`
	Message       string      `json:"message"`
	SentAt        null.Time   `json:"sent_at"` // UTC
	FailureReason null.String `json:"failure_reason"`
	Attempts      int         `json:"attempts"`
	ScheduledAt   time.Time   `json:"scheduled_at"` // UTC
	CreatedAt     time.Time   `json:"created_at"`   // UTC
	UpdatedAt     time.Time   `json:"updated_at"`   // UTC
}

// New returns a pending notification.
func New(typ Type, method Method) Notification {
	return Notification{
		Type:   typ,
		Method: method,
		Status: StatusPending,
	}
}

// MarkSent records a successful delivery at `at`. Only pending notifications can be marked as sent.
func (n *Notification) MarkSent(at time.Time) error {
	if n.Status != StatusPending {
		return ErrNotPending
	}
	n.Status = StatusSent
	n.SentAt = null.TimeFrom(at.UTC())
	n.FailureReason = null.String{}
	return nil
}

// MarkFailed records a failed delivery, whatever the current status.
func (n *Notification) MarkFailed(reason string) {
	n.Status = StatusFailed
	n.SentAt = null.Time{}
	n.FailureReason = null.NewString(reason, reason != "")
}

// Retry puts a failed notification back in the pending state.
func (n *Notification) Retry() error {
	if n.Status != StatusFailed {
		return ErrNotFailed
	}
	n.Status = StatusPending
	n.SentAt = null.Time{}
	n.FailureReason = null.String{}
	return nil
}

// IsDue reports whether a pending notification should be delivered at `now`.
func (n Notification) IsDue(now time.Time) bool {
	return n.Status == StatusPending && !n.ScheduledAt.After(now)
}

type QueryFilter struct {
	Status       Status    `query:"status"`
	Type         Type      `query:"type"`
	Method       Method    `query:"method"`
	StudentID    string    `query:"student_id"`
	GuardianID   string    `query:"guardian_id"`
	AttendanceID string    `query:"attendance_id"`
	DueBefore    time.Time `query:"-"` // ScheduledAt <= DueBefore
}

// Clean normalises the filter and drops unknown enum values.
func (f *QueryFilter) Clean() {
	f.Status = Status(core.CleanString(string(f.Status), true /* lower */))
	if !f.Status.Valid() {
		f.Status = ""
	}
	f.Type = Type(core.CleanString(string(f.Type), true /* lower */))
	if !f.Type.Valid() {
		f.Type = ""
	}
	f.Method = Method(core.CleanString(string(f.Method), true /* lower */))
	if !f.Method.Valid() {
		f.Method = ""
	}
	f.StudentID = core.CleanString(f.StudentID, true /* lower */)
	f.GuardianID = core.CleanString(f.GuardianID, true /* lower */)
	f.AttendanceID = core.CleanString(f.AttendanceID, true /* lower */)
}

// Match reports whether `n` satisfies every set field of the filter.
func (f QueryFilter) Match(n Notification) bool {
	switch {
	case f.Status != "" && n.Status != f.Status,
		f.Type != "" && n.Type != f.Type,
		f.Method != "" && n.Method != f.Method,
		f.StudentID != "" && n.StudentID != f.StudentID,
		f.GuardianID != "" && n.GuardianID != f.GuardianID,
		f.AttendanceID != "" && n.AttendanceID != f.AttendanceID,
		!f.DueBefore.IsZero() && n.ScheduledAt.After(f.DueBefore):
		return false
	}
	return true
}

type FailRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

func (fr *FailRequest) Validate(validate *validator.Validate) error {
	fr.Reason = core.CleanString(fr.Reason)
	return validate.Struct(fr)
}
