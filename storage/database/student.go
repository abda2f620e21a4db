package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"classtrack/core"
	"classtrack/core/student"
)

// rosters are always served in roll number order
var rollNoAsc = core.DBOrdering{Field: "roll_no", Ascending: true}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

type studentRow struct {
	RollNo     string `db:"roll_no"`
	Name       string `db:"name"`
	ClassName  string `db:"class_name"`
	Department string `db:"department"`
}

func (r studentRow) student() student.Student {
	return student.Student(r)
}

func (repo *studentRepository) students(rows []studentRow) []student.Student {
	out := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.student())
	}
	return out
}

func (repo *studentRepository) CheckRollNoUniqueness(ctx context.Context, rollNo string) error {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM students WHERE roll_no = $1)`, rollNo)
	if err != nil {
		return errors.Wrap(err, "checking roll number uniqueness")
	}
	if exists {
		return student.ErrRollNoExists
	}
	return nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO students (roll_no, name, class_name, department)
		 VALUES ($1, $2, $3, $4)`,
		std.RollNo, std.Name, std.ClassName, std.Department)
	if err != nil {
		if isPQError(err, pqUniqueViolation) {
			return student.Student{}, student.ErrRollNoExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, rollNo string) (student.Student, error) {
	var row studentRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT roll_no, name, class_name, department FROM students WHERE roll_no = $1`, rollNo)
	if err == sql.ErrNoRows {
		return student.Student{}, student.ErrNotFound
	}
	if err != nil {
		return student.Student{}, errors.Wrap(err, "getting student")
	}
	return row.student(), nil
}

func (repo *studentRepository) SearchStudents(ctx context.Context, keyword string) ([]student.Student, error) {
	var rows []studentRow
	val := "%" + keyword + "%"
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT roll_no, name, class_name, department
		 FROM students
		 WHERE roll_no ILIKE $1 OR name ILIKE $1
		 ORDER BY `+rollNoAsc.String(), val)
	if err != nil {
		return nil, errors.Wrap(err, "searching students")
	}
	return repo.students(rows), nil
}

func (repo *studentRepository) QueryStudentsByClass(ctx context.Context, className string) ([]student.Student, error) {
	var rows []studentRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT roll_no, name, class_name, department
		 FROM students
		 WHERE class_name = $1
		 ORDER BY `+rollNoAsc.String(), className)
	if err != nil {
		return nil, errors.Wrap(err, "querying class students")
	}
	return repo.students(rows), nil
}

func (repo *studentRepository) QueryAllStudents(ctx context.Context) ([]student.Student, error) {
	var rows []studentRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT roll_no, name, class_name, department FROM students ORDER BY `+rollNoAsc.String())
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return repo.students(rows), nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE students SET name = $1, class_name = $2, department = $3 WHERE roll_no = $4`,
		std.Name, std.ClassName, std.Department, std.RollNo)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if count, err := res.RowsAffected(); err == nil && count == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return std, nil
}

// DeleteStudent removes the student row; ledger and summary rows go with it
// via the cascading foreign keys.
func (repo *studentRepository) DeleteStudent(ctx context.Context, rollNo string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM students WHERE roll_no = $1`, rollNo)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if count, err := res.RowsAffected(); err == nil && count == 0 {
		return student.ErrNotFound
	}
	return nil
}

func (repo *studentRepository) StudentExists(ctx context.Context, rollNo string) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM students WHERE roll_no = $1)`, rollNo)
	if err != nil {
		return false, errors.Wrap(err, "checking student existence")
	}
	return exists, nil
}
