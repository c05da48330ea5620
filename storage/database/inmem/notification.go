package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/notification"
)

var notificationFallbackOrdering = []core.DBOrdering{{Field: "created_at"}}
var notificationOrderings = []string{"status", "type", "method", "attempts", "scheduled_at", "sent_at", "created_at", "updated_at"}

type notificationRepository struct {
	db *notificationTable
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db.notification}
}

func (repo *notificationRepository) CreateNotifications(_ context.Context, ns []notification.Notification, _ ...core.DBExecutor) ([]notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	created := make([]notification.Notification, 0, len(ns))
	for _, n := range ns {
		n.ID = uuid.New().String()
		stored := n
		repo.db.table[n.ID] = &stored
		created = append(created, n)
	}
	return created, nil
}

func (repo *notificationRepository) GetNotification(_ context.Context, id string, _ ...core.DBExecutor) (notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if n, ok := repo.db.table[id]; ok {
		return *n, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, filter *notification.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ns := make([]notification.Notification, 0, len(repo.db.table))
	for _, n := range repo.db.table {
		if filter == nil || filter.Match(*n) {
			ns = append(ns, *n)
		}
	}

	sortSlice(ns, ordering, notificationFallbackOrdering, notificationOrderings, func(i, j int, field string) int {
		a, b := ns[i], ns[j]
		switch field {
		case "status":
			return cmpStrings(string(a.Status), string(b.Status))
		case "type":
			return cmpStrings(string(a.Type), string(b.Type))
		case "method":
			return cmpStrings(string(a.Method), string(b.Method))
		case "attempts":
			return cmpInts(a.Attempts, b.Attempts)
		case "scheduled_at":
			return cmpTimes(a.ScheduledAt, b.ScheduledAt)
		case "sent_at":
			return cmpTimes(a.SentAt.Time, b.SentAt.Time)
		case "created_at":
			return cmpTimes(a.CreatedAt, b.CreatedAt)
		case "updated_at":
			return cmpTimes(a.UpdatedAt, b.UpdatedAt)
		}
		return 0
	})
	return ns, nil
}

func (repo *notificationRepository) UpdateNotification(_ context.Context, n notification.Notification, prev notification.Notification, _ ...core.DBExecutor) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[n.ID]
	if !ok {
		return notification.Notification{}, notification.ErrNotFound
	}
	if orig.Status != prev.Status || orig.Attempts != prev.Attempts {
		return notification.Notification{}, notification.ErrConflict
	}
	orig.Status = n.Status
	orig.SentAt = n.SentAt
	orig.FailureReason = n.FailureReason
	orig.Attempts = n.Attempts
	orig.UpdatedAt = n.UpdatedAt
	return *orig, nil
}
