package student

import (
	"context"
	"errors"

	"classtrack/core"
)

var (
	// errors
	ErrNotFound     = errors.New("student not found")
	ErrRollNoExists = errors.New("a student with this roll number already exists")
)

type (
	Repository interface {
		CheckRollNoUniqueness(ctx context.Context, rollNo string) error
		CreateStudent(ctx context.Context, std Student) (Student, error)
		GetStudent(ctx context.Context, rollNo string) (Student, error)
		// SearchStudents does a partial match on roll number or name.
		SearchStudents(ctx context.Context, keyword string) ([]Student, error)
		// QueryStudentsByClass returns a section's roster ordered by roll number.
		QueryStudentsByClass(ctx context.Context, className string) ([]Student, error)
		QueryAllStudents(ctx context.Context) ([]Student, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		// DeleteStudent removes the student; attendance rows cascade at the storage layer.
		DeleteStudent(ctx context.Context, rollNo string) error
		StudentExists(ctx context.Context, rollNo string) (bool, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(rollNo string) error {
	if err := svc.repo.CheckRollNoUniqueness(context.Background(), rollNo); err != nil {
		if errors.Is(err, ErrRollNoExists) {
			return core.NewValidationError(err, core.FieldError{Field: "roll_no", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	std := Student{
		RollNo:     ns.RollNo,
		Name:       ns.Name,
		ClassName:  ns.ClassName,
		Department: ns.Department,
	}
	return svc.repo.CreateStudent(ctx, std)
}

func (svc *Service) Get(ctx context.Context, rollNo string) (Student, error) {
	return svc.repo.GetStudent(ctx, core.CleanString(rollNo))
}

func (svc *Service) Search(ctx context.Context, keyword string) ([]Student, error) {
	return svc.repo.SearchStudents(ctx, core.CleanString(keyword))
}

func (svc *Service) QueryByClass(ctx context.Context, className string) ([]Student, error) {
	return svc.repo.QueryStudentsByClass(ctx, core.CleanString(className))
}

func (svc *Service) QueryAll(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryAllStudents(ctx)
}

func (svc *Service) Update(ctx context.Context, rollNo string, us UpdateStudent) (Student, error) {
	std := Student{
		RollNo:     rollNo,
		Name:       us.Name,
		ClassName:  us.ClassName,
		Department: us.Department,
	}
	return svc.repo.UpdateStudent(ctx, std)
}

func (svc *Service) Delete(ctx context.Context, rollNo string) error {
	return svc.repo.DeleteStudent(ctx, core.CleanString(rollNo))
}

func (svc *Service) Exists(ctx context.Context, rollNo string) (bool, error) {
	return svc.repo.StudentExists(ctx, core.CleanString(rollNo))
}

// Roster returns the roll numbers of a section, in roster order.
func (svc *Service) Roster(ctx context.Context, className string) ([]string, error) {
	stds, err := svc.QueryByClass(ctx, className)
	if err != nil {
		return nil, err
	}
	rollNos := make([]string, 0, len(stds))
	for _, std := range stds {
		rollNos = append(rollNos, std.RollNo)
	}
	return rollNos, nil
}
