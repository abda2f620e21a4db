package dummydb

import (
	"context"
	"sort"
	"strings"

	"classtrack/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) query() []student.Student {
	stds := make([]student.Student, 0, len(repo.db.students))
	for _, std := range repo.db.students {
		stds = append(stds, *std)
	}
	sort.Slice(stds, func(i, j int) bool { return stds[i].RollNo < stds[j].RollNo })
	return stds
}

func (repo *studentRepository) CheckRollNoUniqueness(_ context.Context, rollNo string) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if _, ok := repo.db.students[rollNo]; ok {
		return student.ErrRollNoExists
	}
	return nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[std.RollNo]; ok {
		return student.Student{}, student.ErrRollNoExists
	}
	repo.db.students[std.RollNo] = &std
	return std, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, rollNo string) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if std, ok := repo.db.students[rollNo]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) SearchStudents(_ context.Context, keyword string) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	keyword = strings.ToLower(keyword)
	results := make([]student.Student, 0)
	for _, std := range repo.query() {
		if strings.Contains(strings.ToLower(std.RollNo), keyword) ||
			strings.Contains(strings.ToLower(std.Name), keyword) {
			results = append(results, std)
		}
	}
	return results, nil
}

func (repo *studentRepository) QueryStudentsByClass(_ context.Context, className string) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	results := make([]student.Student, 0)
	for _, std := range repo.query() {
		if std.ClassName == className {
			results = append(results, std)
		}
	}
	return results, nil
}

func (repo *studentRepository) QueryAllStudents(_ context.Context) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.query(), nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[std.RollNo]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	repo.db.students[std.RollNo] = &std
	return std, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, rollNo string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[rollNo]; !ok {
		return student.ErrNotFound
	}
	delete(repo.db.students, rollNo)
	repo.db.cascadeDelete(rollNo)
	return nil
}

func (repo *studentRepository) StudentExists(_ context.Context, rollNo string) (bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	_, ok := repo.db.students[rollNo]
	return ok, nil
}
