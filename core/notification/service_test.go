package notification_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/guardian"
	"github.com/trezcool/attendance/core/notification"
	"github.com/trezcool/attendance/core/setting"
	testutil "github.com/trezcool/attendance/tests"
)

var wednesdayMorning = time.Date(2026, time.October, 14, 8, 30, 0, 0, time.UTC)

func trigger(t *testing.T, svcs *testutil.Services, status string, guardians ...[]string) notification.Trigger {
	hero := testutil.CreateStudent(t, svcs.Guardians, "Hero")
	for _, g := range guardians {
		testutil.CreateGuardian(t, svcs.Guardians, g[0], g[1], g[2], g[3], hero.ID)
	}
	return notification.Trigger{
		AttendanceID: "attendance-1",
		StudentID:    hero.ID,
		StudentName:  hero.Name,
		SectionName:  "MATH101 lecture",
		Date:         "2026-10-14",
		Status:       status,
	}
}

func Test_service_CreateForAttendance(t *testing.T) {
	mum := []string{"Mum", "mum@test.cd", "", ""}
	dad := []string{"Dad", "dad@test.cd", "+243812345678", ""}

	t.Run("One per guardian", func(t *testing.T) {
		svcs := testutil.NewServices(t)
		testutil.MockNow(t, wednesdayMorning)
		trg := trigger(t, svcs, "absent", mum, dad)

		settings := setting.Defaults()
		settings.NotificationDelayMinutes = 15
		ns, err := svcs.Notifications.CreateForAttendance(context.Background(), trg, settings)
		require.NoError(t, err)
		require.Len(t, ns, 2)

		byMethod := make(map[notification.Method]notification.Notification)
		for _, n := range ns {
			byMethod[n.Method] = n
			assert.NotEmpty(t, n.ID)
			assert.Equal(t, notification.TypeAbsent, n.Type)
			assert.Equal(t, notification.StatusPending, n.Status)
			assert.Equal(t, trg.AttendanceID, n.AttendanceID)
			assert.Equal(t, trg.StudentID, n.StudentID)
			assert.Equal(t, "Hero was absent", n.Subject)
			assert.Equal(t, wednesdayMorning.Add(15*time.Minute), n.ScheduledAt)
			assert.Equal(t, wednesdayMorning, n.CreatedAt)
			assert.False(t, n.SentAt.Valid)
			assert.Zero(t, n.Attempts)
		}
		assert.Equal(t, "mum@test.cd", byMethod[notification.MethodEmail].Recipient)
		assert.Equal(t, "Dear Mum,\n\nHero was absent from MATH101 lecture on Wednesday 14 October 2026.", byMethod[notification.MethodEmail].Message)
		assert.Equal(t, "+243812345678", byMethod[notification.MethodSMS].Recipient)
		assert.Equal(t, "Dad", byMethod[notification.MethodSMS].RecipientName)
	})

	tests := []struct {
		name          string
		status        string
		notifyExcused bool
		guardians     [][]string
		wantLen       int
	}{
		{name: "present", status: "present", guardians: [][]string{mum}},
		{name: "no guardians", status: "late"},
		{name: "late", status: "late", guardians: [][]string{mum}, wantLen: 1},
		{name: "excused", status: "excused", notifyExcused: true, guardians: [][]string{mum}, wantLen: 1},
		{name: "excused, not notified", status: "excused", guardians: [][]string{mum}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svcs := testutil.NewServices(t)
			trg := trigger(t, svcs, tt.status, tt.guardians...)

			settings := setting.Defaults()
			settings.NotifyExcused = tt.notifyExcused
			ns, err := svcs.Notifications.CreateForAttendance(context.Background(), trg, settings)
			require.NoError(t, err)
			assert.NotNil(t, ns)
			assert.Len(t, ns, tt.wantLen)
		})
	}

	t.Run("Unknown student", func(t *testing.T) {
		svcs := testutil.NewServices(t)
		_, err := svcs.Notifications.CreateForAttendance(context.Background(), notification.Trigger{StudentID: "lol", Status: "late"}, setting.Defaults())
		assert.Equal(t, guardian.ErrStudentNotFound, errors.Cause(err))
	})
}

func createOne(t *testing.T, svcs *testutil.Services, g []string) notification.Notification {
	ns, err := svcs.Notifications.CreateForAttendance(context.Background(), trigger(t, svcs, "late", g), setting.Defaults())
	require.NoError(t, err)
	require.Len(t, ns, 1)
	return ns[0]
}

func Test_service_transitions(t *testing.T) {
	mum := []string{"Mum", "mum@test.cd", "", ""}
	ctx := context.Background()

	t.Run("Unknown", func(t *testing.T) {
		svcs := testutil.NewServices(t)
		_, err := svcs.Notifications.MarkSent(ctx, "lol")
		assert.Equal(t, notification.ErrNotFound, errors.Cause(err))
	})

	t.Run("Fail, retry, send", func(t *testing.T) {
		svcs := testutil.NewServices(t)
		testutil.MockNow(t, wednesdayMorning)
		n := createOne(t, svcs, mum)

		n, err := svcs.Notifications.MarkFailed(ctx, n.ID, "  bounced  ")
		require.NoError(t, err)
		assert.Equal(t, notification.StatusFailed, n.Status)
		assert.Equal(t, "bounced", n.FailureReason.String)

		n, err = svcs.Notifications.Retry(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusPending, n.Status)
		assert.False(t, n.FailureReason.Valid)

		n, err = svcs.Notifications.MarkSent(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusSent, n.Status)
		assert.Equal(t, wednesdayMorning, n.SentAt.Time)

		_, err = svcs.Notifications.MarkSent(ctx, n.ID)
		assert.Equal(t, notification.ErrNotPending, err)
		_, err = svcs.Notifications.Retry(ctx, n.ID)
		assert.Equal(t, notification.ErrNotFailed, err)
		assert.True(t, core.IsTransitionError(err))

		got, err := svcs.Notifications.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, n, got)
	})
}

func Test_service_Deliver(t *testing.T) {
	mum := []string{"Mum", "mum@test.cd", "", ""}
	ctx := context.Background()

	t.Run("Sent", func(t *testing.T) {
		svcs := testutil.NewServices(t)
		testutil.MockNow(t, wednesdayMorning)
		n := createOne(t, svcs, mum)

		n, err := svcs.Notifications.Deliver(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusSent, n.Status)
		assert.Equal(t, 1, n.Attempts)

		mails := svcs.Mails.SentMessages()
		require.Len(t, mails, 1)
		assert.Equal(t, "mum@test.cd", mails[0].To[0].Address)

		_, err = svcs.Notifications.Deliver(ctx, n.ID)
		assert.Equal(t, notification.ErrNotDeliverable, err)
	})

	t.Run("Failed", func(t *testing.T) {
		svcs := testutil.NewServices(t, notification.Senders{})
		n := createOne(t, svcs, mum)

		n, err := svcs.Notifications.Deliver(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusFailed, n.Status)
		assert.Equal(t, notification.ErrNoSender.Error(), n.FailureReason.String)
		assert.Equal(t, 1, n.Attempts)

		_, err = svcs.Notifications.Deliver(ctx, n.ID)
		assert.Equal(t, notification.ErrNotDeliverable, err)
	})

	t.Run("Concurrent", func(t *testing.T) {
		var (
			mu    sync.Mutex
			sends int
		)
		release := make(chan struct{})
		blocking := notification.SenderFunc(func(context.Context, notification.Message) error {
			mu.Lock()
			sends++
			mu.Unlock()
			<-release
			return nil
		})
		svcs := testutil.NewServices(t, notification.Senders{notification.MethodEmail: blocking})
		n := createOne(t, svcs, mum)

		const workers = 5
		errs := make(chan error, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svcs.Notifications.Deliver(ctx, n.ID)
				errs <- err
			}()
		}
		// let the losers fail before the winner finishes sending
		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()
		close(errs)

		var ok int
		for err := range errs {
			if err == nil {
				ok++
				continue
			}
			cause := errors.Cause(err)
			assert.True(t, cause == notification.ErrConflict || cause == notification.ErrNotDeliverable, "unexpected error: %v", err)
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, 1, sends)

		got, err := svcs.Notifications.Get(ctx, n.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusSent, got.Status)
		assert.Equal(t, 1, got.Attempts)
	})
}

func Test_service_DeliverDue(t *testing.T) {
	ctx := context.Background()
	svcs := testutil.NewServices(t)
	testutil.MockNow(t, wednesdayMorning)

	trg := trigger(t, svcs, "absent", []string{"Mum", "mum@test.cd", "", ""})
	_, err := svcs.Notifications.CreateForAttendance(ctx, trg, setting.Defaults())
	require.NoError(t, err)

	delayed := setting.Defaults()
	delayed.NotificationDelayMinutes = 30
	trg = trigger(t, svcs, "late", []string{"Dad", "dad@test.cd", "", "+243812345678"})
	later, err := svcs.Notifications.CreateForAttendance(ctx, trg, delayed)
	require.NoError(t, err)

	report, err := svcs.Notifications.DeliverDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, notification.DeliveryReport{Sent: 1}, report)
	assert.Empty(t, svcs.Messages.SentMessages())

	testutil.MockNow(t, wednesdayMorning.Add(30*time.Minute))
	report, err = svcs.Notifications.DeliverDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, notification.DeliveryReport{Sent: 1}, report)

	msgs := svcs.Messages.SentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, later[0].ID, msgs[0].NotificationID)

	t.Run("Cancelled", func(t *testing.T) {
		svcs := testutil.NewServices(t)
		createOne(t, svcs, []string{"Mum", "mum@test.cd", "", ""})

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := svcs.Notifications.DeliverDue(cctx)
		assert.Equal(t, context.Canceled, err)
		assert.Empty(t, svcs.Mails.SentMessages())
	})
}
