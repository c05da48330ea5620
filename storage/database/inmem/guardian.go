package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/guardian"
)

type guardianRepository struct {
	db *guardianTable
}

var _ guardian.Repository = (*guardianRepository)(nil) // interface compliance check

func NewGuardianRepository(db *DB) *guardianRepository {
	return &guardianRepository{db: db.guardian}
}

func (repo *guardianRepository) CreateStudent(_ context.Context, std guardian.Student, _ ...core.DBExecutor) (guardian.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	std.ID = uuid.New().String()
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *guardianRepository) GetStudent(_ context.Context, id string, _ ...core.DBExecutor) (guardian.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if std, ok := repo.db.students[id]; ok {
		return *std, nil
	}
	return guardian.Student{}, guardian.ErrStudentNotFound
}

func (repo *guardianRepository) QueryStudents(_ context.Context, _ ...core.DBExecutor) ([]guardian.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]guardian.Student, 0, len(repo.db.students))
	for _, std := range repo.db.students {
		students = append(students, *std)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	return students, nil
}

// copyGuardian returns `g` with its own copy of StudentIDs.
func copyGuardian(g guardian.Guardian) guardian.Guardian {
	ids := make([]string, len(g.StudentIDs))
	copy(ids, g.StudentIDs)
	g.StudentIDs = ids
	return g
}

func (repo *guardianRepository) CreateGuardian(_ context.Context, g guardian.Guardian, _ ...core.DBExecutor) (guardian.Guardian, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	g.ID = uuid.New().String()
	seen := make(map[string]bool, len(g.StudentIDs))
	ids := make([]string, 0, len(g.StudentIDs))
	for _, stdID := range g.StudentIDs {
		if _, ok := repo.db.students[stdID]; !ok || seen[stdID] {
			continue
		}
		seen[stdID] = true
		ids = append(ids, stdID)
		if repo.db.links[stdID] == nil {
			repo.db.links[stdID] = make(map[string]bool)
		}
		repo.db.links[stdID][g.ID] = true
	}
	sort.Strings(ids)
	g.StudentIDs = ids

	stored := copyGuardian(g)
	repo.db.guardians[g.ID] = &stored
	return g, nil
}

func (repo *guardianRepository) GetGuardian(_ context.Context, id string, _ ...core.DBExecutor) (guardian.Guardian, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if g, ok := repo.db.guardians[id]; ok {
		return copyGuardian(*g), nil
	}
	return guardian.Guardian{}, guardian.ErrNotFound
}

func (repo *guardianRepository) QueryGuardiansByStudent(_ context.Context, studentID string, _ ...core.DBExecutor) ([]guardian.Guardian, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	guardians := make([]guardian.Guardian, 0, len(repo.db.links[studentID]))
	for gID := range repo.db.links[studentID] {
		if g, ok := repo.db.guardians[gID]; ok {
			guardians = append(guardians, copyGuardian(*g))
		}
	}
	sort.Slice(guardians, func(i, j int) bool {
		if guardians[i].Name != guardians[j].Name {
			return guardians[i].Name < guardians[j].Name
		}
		return guardians[i].ID < guardians[j].ID
	})
	return guardians, nil
}
