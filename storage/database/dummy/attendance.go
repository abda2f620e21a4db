package dummydb

import (
	"context"
	"sort"

	"classtrack/core/attendance"
	"classtrack/core/student"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

// insertEntry mirrors the transactional write path: one ledger row plus its
// summary increment, or ErrDuplicateEntry with nothing written. Caller must
// hold the write lock.
func (repo *attendanceRepository) insertEntry(entry attendance.Entry) (attendance.Entry, error) {
	if _, ok := repo.db.students[entry.RollNo]; !ok {
		return attendance.Entry{}, attendance.ErrNotFound
	}
	if repo.db.hasEntry(entry.RollNo, entry.Date, entry.Period) {
		return attendance.Entry{}, attendance.ErrDuplicateEntry
	}
	return repo.apply(entry), nil
}

// apply commits one vetted entry: ledger append plus summary increment.
// Caller must hold the write lock.
func (repo *attendanceRepository) apply(entry attendance.Entry) attendance.Entry {
	repo.db.entryPK++
	entry.ID = repo.db.entryPK
	repo.db.entries = append(repo.db.entries, &entry)

	sum, ok := repo.db.summaries[entry.RollNo]
	if !ok {
		sum = &attendance.Summary{RollNo: entry.RollNo}
		repo.db.summaries[entry.RollNo] = sum
	}
	sum.TotalPeriods++
	if entry.Status == attendance.Present {
		sum.PresentPeriods++
	}
	return entry
}

func stagedHas(staged []attendance.Entry, e attendance.Entry) bool {
	for _, s := range staged {
		if s.RollNo == e.RollNo && s.Date.Equal(e.Date) && s.Period == e.Period {
			return true
		}
	}
	return false
}

func (repo *attendanceRepository) CreateEntry(_ context.Context, entry attendance.Entry) (attendance.Entry, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()
	return repo.insertEntry(entry)
}

func (repo *attendanceRepository) CreateEntries(_ context.Context, entries []attendance.Entry) (int, []string, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	// vet the whole batch before writing anything: a hard failure must leave
	// no rows behind, mirroring the sql backend's transaction rollback
	staged := make([]attendance.Entry, 0, len(entries))
	skipped := make([]string, 0)
	for _, entry := range entries {
		if _, ok := repo.db.students[entry.RollNo]; !ok {
			return 0, nil, attendance.ErrNotFound
		}
		if repo.db.hasEntry(entry.RollNo, entry.Date, entry.Period) || stagedHas(staged, entry) {
			skipped = append(skipped, entry.RollNo)
			continue
		}
		staged = append(staged, entry)
	}

	for _, entry := range staged {
		repo.apply(entry)
	}
	return len(staged), skipped, nil
}

func (repo *attendanceRepository) summaryFor(std student.Student) attendance.StudentSummary {
	out := attendance.StudentSummary{Student: std}
	if sum, ok := repo.db.summaries[std.RollNo]; ok {
		out.TotalPeriods = sum.TotalPeriods
		out.PresentPeriods = sum.PresentPeriods
	}
	return out
}

func (repo *attendanceRepository) GetStudentSummary(_ context.Context, rollNo string) (attendance.StudentSummary, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	std, ok := repo.db.students[rollNo]
	if !ok {
		return attendance.StudentSummary{}, attendance.ErrNotFound
	}
	return repo.summaryFor(*std), nil
}

func (repo *attendanceRepository) QueryEntries(_ context.Context, rollNo string) ([]attendance.Entry, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	entries := make([]attendance.Entry, 0)
	for _, e := range repo.db.entries {
		if e.RollNo == rollNo {
			entries = append(entries, *e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].Period < entries[j].Period
	})
	return entries, nil
}

func (repo *attendanceRepository) QueryEntriesByDate(_ context.Context, rollNo string, date attendance.Date) ([]attendance.Entry, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	entries := make([]attendance.Entry, 0)
	for _, e := range repo.db.entries {
		if e.RollNo == rollNo && e.Date.Equal(date) {
			entries = append(entries, *e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Period < entries[j].Period })
	return entries, nil
}

func (repo *attendanceRepository) QuerySectionDay(_ context.Context, className string, date attendance.Date) ([]attendance.SectionDayRow, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	rows := make([]attendance.SectionDayRow, 0)
	for _, std := range repo.db.students {
		if std.ClassName != className {
			continue
		}
		var present, absent int
		for _, e := range repo.db.entries {
			if e.RollNo != std.RollNo || !e.Date.Equal(date) {
				continue
			}
			if e.Status == attendance.Present {
				present++
			} else {
				absent++
			}
		}
		// inner-join semantics: students with no entry that day are omitted
		if present+absent == 0 {
			continue
		}
		rows = append(rows, attendance.SectionDayRow{
			RollNo:    std.RollNo,
			Name:      std.Name,
			ClassName: std.ClassName,
			Present:   present,
			Absent:    absent,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].RollNo < rows[j].RollNo })
	return rows, nil
}

func (repo *attendanceRepository) QuerySectionOverall(_ context.Context, className string) ([]attendance.StudentSummary, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	out := make([]attendance.StudentSummary, 0)
	for _, std := range repo.db.students {
		if std.ClassName == className {
			out = append(out, repo.summaryFor(*std))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Student.RollNo < out[j].Student.RollNo })
	return out, nil
}

func (repo *attendanceRepository) QueryDefaulters(_ context.Context) ([]attendance.StudentSummary, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	out := make([]attendance.StudentSummary, 0)
	for _, std := range repo.db.students {
		sum := repo.summaryFor(*std)
		if sum.IsDefaulter() {
			out = append(out, sum)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Percentage() < out[j].Percentage() })
	return out, nil
}
