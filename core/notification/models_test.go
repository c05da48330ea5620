package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendance/core/guardian"
)

var now = time.Date(2026, time.October, 14, 8, 30, 0, 0, time.UTC)

func TestNotification_MarkSent(t *testing.T) {
	tests := []struct {
		name    string
		status  Status
		wantErr error
	}{
		{name: "pending", status: StatusPending},
		{name: "sent", status: StatusSent, wantErr: ErrNotPending},
		{name: "failed", status: StatusFailed, wantErr: ErrNotPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(TypeLate, MethodEmail)
			n.Status = tt.status
			n.FailureReason = null.StringFrom("boom")

			err := n.MarkSent(now.In(time.FixedZone("WAT", 3600)))
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				assert.Equal(t, tt.status, n.Status)
				assert.False(t, n.SentAt.Valid)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, StatusSent, n.Status)
			assert.Equal(t, null.TimeFrom(now), n.SentAt)
			assert.Equal(t, time.UTC, n.SentAt.Time.Location())
			assert.False(t, n.FailureReason.Valid)
		})
	}
}

func TestNotification_MarkFailed(t *testing.T) {
	for _, status := range AllStatuses {
		t.Run(string(status), func(t *testing.T) {
			n := New(TypeAbsent, MethodSMS)
			n.Status = status
			if status == StatusSent {
				n.SentAt = null.TimeFrom(now)
			}

			n.MarkFailed("provider down")
			assert.Equal(t, StatusFailed, n.Status)
			assert.False(t, n.SentAt.Valid)
			assert.Equal(t, null.StringFrom("provider down"), n.FailureReason)
		})
	}

	t.Run("no reason", func(t *testing.T) {
		n := New(TypeAbsent, MethodSMS)
		n.MarkFailed("")
		assert.Equal(t, StatusFailed, n.Status)
		assert.False(t, n.FailureReason.Valid)
	})
}

func TestNotification_Retry(t *testing.T) {
	n := New(TypeAbsent, MethodWhatsApp)
	assert.Equal(t, ErrNotFailed, n.Retry())

	n.MarkFailed("provider down")
	assert.NoError(t, n.Retry())
	assert.Equal(t, StatusPending, n.Status)
	assert.False(t, n.FailureReason.Valid)

	assert.NoError(t, n.MarkSent(now))
	assert.Equal(t, ErrNotFailed, n.Retry())
	assert.Equal(t, StatusSent, n.Status)
}

func TestNotification_IsDue(t *testing.T) {
	tests := []struct {
		name        string
		status      Status
		scheduledAt time.Time
		want        bool
	}{
		{name: "pending, in the past", status: StatusPending, scheduledAt: now.Add(-time.Minute), want: true},
		{name: "pending, now", status: StatusPending, scheduledAt: now, want: true},
		{name: "pending, in the future", status: StatusPending, scheduledAt: now.Add(time.Second)},
		{name: "failed", status: StatusFailed, scheduledAt: now.Add(-time.Hour)},
		{name: "sent", status: StatusSent, scheduledAt: now.Add(-time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Notification{Status: tt.status, ScheduledAt: tt.scheduledAt}
			assert.Equal(t, tt.want, n.IsDue(now))
		})
	}
}

func TestQueryFilter_Clean(t *testing.T) {
	f := QueryFilter{
		Status:     " SENT ",
		Type:       "lol",
		Method:     "WhatsApp",
		StudentID:  " ABC ",
		GuardianID: "Def",
	}
	f.Clean()
	assert.Equal(t, QueryFilter{Status: StatusSent, Method: MethodWhatsApp, StudentID: "abc", GuardianID: "def"}, f)
}

func TestQueryFilter_Match(t *testing.T) {
	n := Notification{
		AttendanceID: "att", StudentID: "stu", GuardianID: "gua",
		Type: TypeLate, Method: MethodSMS, Status: StatusPending, ScheduledAt: now,
	}
	tests := []struct {
		name   string
		filter QueryFilter
		want   bool
	}{
		{name: "empty", want: true},
		{name: "all fields", filter: QueryFilter{Status: StatusPending, Type: TypeLate, Method: MethodSMS, StudentID: "stu", GuardianID: "gua", AttendanceID: "att", DueBefore: now}, want: true},
		{name: "status", filter: QueryFilter{Status: StatusSent}},
		{name: "type", filter: QueryFilter{Type: TypeAbsent}},
		{name: "method", filter: QueryFilter{Method: MethodEmail}},
		{name: "student", filter: QueryFilter{StudentID: "lol"}},
		{name: "guardian", filter: QueryFilter{GuardianID: "lol"}},
		{name: "attendance", filter: QueryFilter{AttendanceID: "lol"}},
		{name: "not due yet", filter: QueryFilter{DueBefore: now.Add(-time.Second)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(n))
		})
	}
}

func TestSelectMethod(t *testing.T) {
	tests := []struct {
		name       string
		g          guardian.Guardian
		wantMethod Method
		wantTo     string
	}{
		{name: "email only", g: guardian.Guardian{Email: "mum@test.cd"}, wantMethod: MethodEmail, wantTo: "mum@test.cd"},
		{
			name: "phone", g: guardian.Guardian{Email: "mum@test.cd", Phone: null.StringFrom("+243811111111")},
			wantMethod: MethodSMS, wantTo: "+243811111111",
		},
		{
			name:       "whatsapp over phone",
			g:          guardian.Guardian{Email: "mum@test.cd", Phone: null.StringFrom("+243811111111"), WhatsApp: null.StringFrom("+243822222222")},
			wantMethod: MethodWhatsApp, wantTo: "+243822222222",
		},
		{name: "blank phone", g: guardian.Guardian{Email: "mum@test.cd", Phone: null.StringFrom("")}, wantMethod: MethodEmail, wantTo: "mum@test.cd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := SelectMethod(tt.g)
			assert.Equal(t, tt.wantMethod, method)
			assert.Equal(t, tt.wantTo, RecipientFor(tt.g, method))
		})
	}
}

func TestTypeFor(t *testing.T) {
	tests := []struct {
		status string
		want   Type
		wantOk bool
	}{
		{status: "late", want: TypeLate, wantOk: true},
		{status: "absent", want: TypeAbsent, wantOk: true},
		{status: "excused", want: TypeExcused, wantOk: true},
		{status: "present"},
		{status: ""},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got, ok := TypeFor(tt.status)
			assert.Equal(t, tt.wantOk, ok)
			if tt.wantOk {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSenders_Send(t *testing.T) {
	var got []Message
	senders := Senders{
		MethodEmail: SenderFunc(func(_ context.Context, msg Message) error {
			got = append(got, msg)
			return nil
		}),
		MethodSMS: nil,
	}

	assert.NoError(t, senders.Send(context.Background(), Message{Method: MethodEmail, To: "mum@test.cd"}))
	assert.Equal(t, []Message{{Method: MethodEmail, To: "mum@test.cd"}}, got)
	assert.Equal(t, ErrNoSender, senders.Send(context.Background(), Message{Method: MethodSMS}))
	assert.Equal(t, ErrNoSender, senders.Send(context.Background(), Message{Method: MethodWhatsApp}))
}
