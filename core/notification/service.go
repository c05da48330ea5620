package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/guardian"
	"github.com/trezcool/attendance/core/setting"
)

var (
	ErrNotFound = errors.New("notification not found")
	// ErrConflict is returned when a notification changed between read and write.
	ErrConflict = errors.New("notification was modified concurrently")

	ErrNotDeliverable = core.NewTransitionError("only pending notifications can be delivered")

	subjects = map[Type]string{
		TypeLate:    "%s arrived late",
		TypeAbsent:  "%s was absent",
		TypeExcused: "%s was excused",
	}
	bodies = map[Type]string{
		TypeLate:    "Dear %s,\n\n%s arrived late to %s on %s.",
		TypeAbsent:  "Dear %s,\n\n%s was absent from %s on %s.",
		TypeExcused: "Dear %s,\n\n%s was excused from %s on %s.",
	}
)

const dateDisplayLayout = "Monday 2 January 2006"

type (
	Repository interface {
		CreateNotifications(ctx context.Context, ns []Notification, exec ...core.DBExecutor) ([]Notification, error)
		GetNotification(ctx context.Context, id string, exec ...core.DBExecutor) (Notification, error)
		QueryNotifications(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Notification, error)
		// UpdateNotification saves `n` only if the stored row still has prev's Status and Attempts,
		// and returns ErrConflict otherwise.
		UpdateNotification(ctx context.Context, n Notification, prev Notification, exec ...core.DBExecutor) (Notification, error)
	}

	// Trigger describes the attendance event notifications are created for.
	Trigger struct {
		AttendanceID string
		StudentID    string
		StudentName  string
		SectionName  string
		Date         string // YYYY-MM-DD
		Status       string // attendance status
	}

	DeliveryReport struct {
		Sent    int `json:"sent"`
		Failed  int `json:"failed"`
		Skipped int `json:"skipped"` // changed by someone else while delivering
	}

	Service interface {
		// CreateForAttendance creates one pending notification per guardian of the student.
		// No notification is created for statuses that do not notify guardians.
		CreateForAttendance(ctx context.Context, trg Trigger, settings setting.Settings, exec ...core.DBExecutor) ([]Notification, error)
		Get(ctx context.Context, id string) (Notification, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Notification, error)
		MarkSent(ctx context.Context, id string) (Notification, error)
		MarkFailed(ctx context.Context, id, reason string) (Notification, error)
		Retry(ctx context.Context, id string) (Notification, error)
		// Deliver makes one delivery attempt. A send error is not returned: it is recorded on the failed notification.
		Deliver(ctx context.Context, id string) (Notification, error)
		// DeliverDue delivers, one after the other, every pending notification scheduled before now.
		DeliverDue(ctx context.Context) (DeliveryReport, error)
	}

	service struct {
		repo      Repository
		guardians guardian.Service
		senders   Senders
		logger    core.Logger

		mu       sync.Mutex
		inflight map[string]bool // notification IDs being delivered by this process
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, guardians guardian.Service, senders Senders, logger core.Logger) Service {
	return &service{
		repo:      repo,
		guardians: guardians,
		senders:   senders,
		logger:    logger,
		inflight:  make(map[string]bool),
	}
}

func (svc *service) CreateForAttendance(ctx context.Context, trg Trigger, settings setting.Settings, exec ...core.DBExecutor) ([]Notification, error) {
	typ, ok := TypeFor(trg.Status)
	if !ok || (typ == TypeExcused && !settings.NotifyExcused) {
		return []Notification{}, nil
	}

	guardians, err := svc.guardians.QueryByStudent(ctx, trg.StudentID, exec...)
	if err != nil {
		return nil, errors.Wrap(err, "querying guardians")
	}
	if len(guardians) == 0 {
		return []Notification{}, nil
	}

	now := core.NowFunc().UTC()
	subject, date := renderSubject(typ, trg), displayDate(trg.Date)
	ns := make([]Notification, 0, len(guardians))
	for _, g := range guardians {
		n := New(typ, SelectMethod(g))
		n.AttendanceID = trg.AttendanceID
		n.StudentID = trg.StudentID
		n.GuardianID = g.ID
		n.Recipient = RecipientFor(g, n.Method)
		n.RecipientName = g.Name
		n.Subject = subject
		n.Message = fmt.Sprintf(bodies[typ], g.Name, trg.StudentName, trg.SectionName, date)
		n.ScheduledAt = now.Add(settings.NotificationDelay())
		n.CreatedAt = now
		n.UpdatedAt = now
		ns = append(ns, n)
	}

	ns, err = svc.repo.CreateNotifications(ctx, ns, exec...)
	if err != nil {
		return nil, errors.Wrap(err, "creating notifications")
	}
	return ns, nil
}

func renderSubject(typ Type, trg Trigger) string {
	return fmt.Sprintf(subjects[typ], trg.StudentName)
}

func displayDate(date string) string {
	if d, err := time.Parse(core.DateLayout, date); err == nil {
		return d.Format(dateDisplayLayout)
	}
	return date
}

func (svc *service) Get(ctx context.Context, id string) (Notification, error) {
	return svc.repo.GetNotification(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, filter, ordering)
}

// transition applies `fn` to the notification and saves it if the stored status did not change meanwhile.
func (svc *service) transition(ctx context.Context, id string, fn func(n *Notification) error) (Notification, error) {
	prev, err := svc.repo.GetNotification(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	n := prev
	if err = fn(&n); err != nil {
		return prev, err
	}
	n.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateNotification(ctx, n, prev)
}

func (svc *service) MarkSent(ctx context.Context, id string) (Notification, error) {
	return svc.transition(ctx, id, func(n *Notification) error {
		return n.MarkSent(core.NowFunc())
	})
}

func (svc *service) MarkFailed(ctx context.Context, id, reason string) (Notification, error) {
	return svc.transition(ctx, id, func(n *Notification) error {
		n.MarkFailed(core.CleanString(reason))
		return nil
	})
}

func (svc *service) Retry(ctx context.Context, id string) (Notification, error) {
	return svc.transition(ctx, id, func(n *Notification) error {
		return n.Retry()
	})
}

func (svc *service) Deliver(ctx context.Context, id string) (Notification, error) {
	n, err := svc.repo.GetNotification(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	return svc.deliver(ctx, n)
}

func (svc *service) deliver(ctx context.Context, n Notification) (Notification, error) {
	if n.Status != StatusPending {
		return n, ErrNotDeliverable
	}
	if !svc.acquire(n.ID) {
		return n, ErrConflict
	}
	defer svc.release(n.ID)

	// claim the attempt first: a concurrent delivery of the same notification gets ErrConflict
	claimed := n
	claimed.Attempts++
	claimed.UpdatedAt = core.NowFunc().UTC()
	claimed, err := svc.repo.UpdateNotification(ctx, claimed, n)
	if err != nil {
		return n, err
	}

	prev := claimed
	if sendErr := svc.senders.Send(ctx, claimed.message()); sendErr != nil {
		svc.logger.Warn(
			fmt.Sprintf("delivering notification %s by %s: %v", claimed.ID, claimed.Method, sendErr),
			errors.WithStack(sendErr),
		)
		claimed.MarkFailed(sendErr.Error())
	} else if err = claimed.MarkSent(core.NowFunc()); err != nil {
		return prev, err
	}
	claimed.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateNotification(ctx, claimed, prev)
}

func (svc *service) DeliverDue(ctx context.Context) (DeliveryReport, error) {
	var report DeliveryReport

	due, err := svc.repo.QueryNotifications(
		ctx,
		&QueryFilter{Status: StatusPending, DueBefore: core.NowFunc().UTC()},
		[]core.DBOrdering{{Field: "scheduled_at", Ascending: true}},
	)
	if err != nil {
		return report, errors.Wrap(err, "querying due notifications")
	}

	for _, n := range due {
		if err = ctx.Err(); err != nil {
			return report, err
		}

		n, err = svc.deliver(ctx, n)
		switch {
		case err == nil && n.Status == StatusSent:
			report.Sent++
		case err == nil:
			report.Failed++
		case errors.Cause(err) == ErrConflict || errors.Cause(err) == ErrNotDeliverable:
			report.Skipped++
		default:
			return report, errors.Wrapf(err, "delivering notification %s", n.ID)
		}
	}
	return report, nil
}

func (svc *service) acquire(id string) bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.inflight[id] {
		return false
	}
	svc.inflight[id] = true
	return true
}

func (svc *service) release(id string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	delete(svc.inflight, id)
}
