package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/notification"
)

const notificationColumns = "id, attendance_id, student_id, guardian_id, type, method, status, recipient, recipient_name, " +
	"subject, message, sent_at, failure_reason, attempts, scheduled_at, created_at, updated_at"

var notificationOrderings = []string{"status", "type", "method", "attempts", "scheduled_at", "sent_at", "created_at", "updated_at"}

type notificationRow struct {
	ID            string      `db:"id"`
	AttendanceID  string      `db:"attendance_id"`
	StudentID     string      `db:"student_id"`
	GuardianID    string      `db:"guardian_id"`
	Type          string      `db:"type"`
	Method        string      `db:"method"`
	Status        string      `db:"status"`
	Recipient     string      `db:"recipient"`
	RecipientName string      `db:"recipient_name"`
	Subject       string      `db:"subject"`
	Message       string      `db:"message"`
	SentAt        null.Time   `db:"sent_at"`
	FailureReason null.String `db:"failure_reason"`
	Attempts      int         `db:"attempts"`
	ScheduledAt   time.Time   `db:"scheduled_at"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`

	// compare-and-swap guards, only used by updates
	PrevStatus   string `db:"prev_status"`
	PrevAttempts int    `db:"prev_attempts"`
}

func packNotification(n notification.Notification) notificationRow {
	sentAt := n.SentAt
	if sentAt.Valid {
		sentAt.Time = sentAt.Time.UTC()
	}
	return notificationRow{
		ID:            n.ID,
		AttendanceID:  n.AttendanceID,
		StudentID:     n.StudentID,
		GuardianID:    n.GuardianID,
		Type:          string(n.Type),
		Method:        string(n.Method),
		Status:        string(n.Status),
		Recipient:     n.Recipient,
		RecipientName: n.RecipientName,
		Subject:       n.Subject,
		Message:       n.Message,
		SentAt:        sentAt,
		FailureReason: n.FailureReason,
		Attempts:      n.Attempts,
		ScheduledAt:   n.ScheduledAt.UTC(),
		CreatedAt:     n.CreatedAt.UTC(),
		UpdatedAt:     n.UpdatedAt.UTC(),
	}
}

func (row notificationRow) unpack() notification.Notification {
	sentAt := row.SentAt
	if sentAt.Valid {
		sentAt.Time = sentAt.Time.UTC()
	}
	return notification.Notification{
		ID:            row.ID,
		AttendanceID:  row.AttendanceID,
		StudentID:     row.StudentID,
		GuardianID:    row.GuardianID,
		Type:          notification.Type(row.Type),
		Method:        notification.Method(row.Method),
		Status:        notification.Status(row.Status),
		Recipient:     row.Recipient,
		RecipientName: row.RecipientName,
		Subject:       row.Subject,
		Message:       row.Message,
		SentAt:        sentAt,
		FailureReason: row.FailureReason,
		Attempts:      row.Attempts,
		ScheduledAt:   row.ScheduledAt.UTC(),
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
}

type notificationRepository struct {
	baseRepository
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(exec core.DBExecutor) *notificationRepository {
	return &notificationRepository{baseRepository{exec: exec}}
}

func (repo notificationRepository) CreateNotifications(ctx context.Context, ns []notification.Notification, exec ...core.DBExecutor) ([]notification.Notification, error) {
	exe := repo.getExec(exec)
	q := `INSERT INTO notification (` + notificationColumns + `) VALUES (
		:id, :attendance_id, :student_id, :guardian_id, :type, :method, :status, :recipient, :recipient_name,
		:subject, :message, :sent_at, :failure_reason, :attempts, :scheduled_at, :created_at, :updated_at)`

	created := make([]notification.Notification, 0, len(ns))
	for _, n := range ns {
		n.ID = uuid.New().String()
		if _, err := sqlx.NamedExecContext(ctx, exe, q, packNotification(n)); err != nil {
			return nil, errors.Wrap(err, "inserting notification")
		}
		created = append(created, n)
	}
	return created, nil
}

func (repo notificationRepository) GetNotification(ctx context.Context, id string, exec ...core.DBExecutor) (notification.Notification, error) {
	if !validID(id) {
		return notification.Notification{}, notification.ErrNotFound
	}
	var row notificationRow
	if err := repo.getExec(exec).GetContext(ctx, &row, "SELECT "+notificationColumns+" FROM notification WHERE id = $1", id); err != nil {
		return notification.Notification{}, trapNoRowsErr(err, notification.ErrNotFound, "finding notification by ID")
	}
	return row.unpack(), nil
}

func (repo notificationRepository) QueryNotifications(ctx context.Context, filter *notification.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]notification.Notification, error) {
	var conds conditions
	if filter != nil {
		if filter.Status != "" {
			conds.add("status = ?", string(filter.Status))
		}
		if filter.Type != "" {
			conds.add("type = ?", string(filter.Type))
		}
		if filter.Method != "" {
			conds.add("method = ?", string(filter.Method))
		}
		for col, id := range map[string]string{
			"student_id":    filter.StudentID,
			"guardian_id":   filter.GuardianID,
			"attendance_id": filter.AttendanceID,
		} {
			if id == "" {
				continue
			}
			if !validID(id) {
				return []notification.Notification{}, nil
			}
			conds.add(col+" = ?", id)
		}
		if !filter.DueBefore.IsZero() {
			conds.add("scheduled_at <= ?", filter.DueBefore.UTC())
		}
	}

	q := "SELECT " + notificationColumns + " FROM notification" + conds.where() +
		orderBy(ordering, "created_at DESC", notificationOrderings...)

	var rows []notificationRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, q, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	ns := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		ns = append(ns, row.unpack())
	}
	return ns, nil
}

func (repo notificationRepository) UpdateNotification(ctx context.Context, n notification.Notification, prev notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	exe := repo.getExec(exec)
	q := `UPDATE notification SET
			status = :status, sent_at = :sent_at, failure_reason = :failure_reason, attempts = :attempts, updated_at = :updated_at
		WHERE id = :id AND status = :prev_status AND attempts = :prev_attempts`

	row := packNotification(n)
	row.PrevStatus, row.PrevAttempts = string(prev.Status), prev.Attempts
	res, err := sqlx.NamedExecContext(ctx, exe, q, row)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "updating notification")
	}
	if cnt, err := res.RowsAffected(); err != nil {
		return notification.Notification{}, errors.Wrap(err, "updating notification")
	} else if cnt == 0 {
		if _, err = repo.GetNotification(ctx, n.ID, exe); err != nil {
			return notification.Notification{}, err
		}
		return notification.Notification{}, notification.ErrConflict
	}
	return n, nil
}
