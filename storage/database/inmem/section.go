package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/section"
)

var sectionFallbackOrdering = []core.DBOrdering{{Field: "course_code", Ascending: true}, {Field: "name", Ascending: true}}
var sectionOrderings = []string{"course_code", "name", "teacher_name", "room", "capacity", "start_time", "created_at", "updated_at"}

type sectionRepository struct {
	db *sectionTable
}

var _ section.Repository = (*sectionRepository)(nil) // interface compliance check

func NewSectionRepository(db *DB) *sectionRepository {
	return &sectionRepository{db: db.section}
}

func (repo *sectionRepository) CreateSection(_ context.Context, sec section.Section, _ ...core.DBExecutor) (section.Section, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sec.ID = uuid.New().String()
	repo.db.table[sec.ID] = &sec
	return sec, nil
}

func (repo *sectionRepository) GetSection(_ context.Context, id string, _ ...core.DBExecutor) (section.Section, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sec, ok := repo.db.table[id]; ok {
		return *sec, nil
	}
	return section.Section{}, section.ErrNotFound
}

func (repo *sectionRepository) QuerySections(_ context.Context, filter *section.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]section.Section, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	secs := make([]section.Section, 0, len(repo.db.table))
	for _, sec := range repo.db.table {
		if filter == nil || filter.Match(*sec) {
			secs = append(secs, *sec)
		}
	}

	sortSlice(secs, ordering, sectionFallbackOrdering, sectionOrderings, func(i, j int, field string) int {
		a, b := secs[i], secs[j]
		switch field {
		case "course_code":
			return cmpStrings(a.CourseCode, b.CourseCode)
		case "name":
			return cmpStrings(a.Name, b.Name)
		case "teacher_name":
			return cmpStrings(a.TeacherName, b.TeacherName)
		case "room":
			return cmpStrings(a.Room, b.Room)
		case "capacity":
			return cmpInts(a.Capacity, b.Capacity)
		case "start_time":
			return cmpInts(int(a.Schedule.Start()), int(b.Schedule.Start()))
		case "created_at":
			return cmpTimes(a.CreatedAt, b.CreatedAt)
		case "updated_at":
			return cmpTimes(a.UpdatedAt, b.UpdatedAt)
		}
		return 0
	})
	return secs, nil
}

func (repo *sectionRepository) UpdateSection(_ context.Context, sec section.Section, _ ...core.DBExecutor) (section.Section, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[sec.ID]
	if !ok {
		return section.Section{}, section.ErrNotFound
	}
	if orig.Version != sec.Version {
		return section.Section{}, section.ErrConflict
	}
	sec.CreatedAt = orig.CreatedAt
	sec.Version++
	repo.db.table[sec.ID] = &sec
	return sec, nil
}

func (repo *sectionRepository) DeleteSection(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return section.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
