package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"classtrack/core"
)

var (
	// errors
	ErrDuplicateEntry = errors.New("attendance already marked for this student/period on this date")
	ErrInvalidDate    = errors.New("invalid date; use YYYY-MM-DD")
	ErrInvalidStatus  = errors.New("invalid attendance status")
	ErrNotFound       = errors.New("no matching student found")

	errInvalidPeriod = errors.New("period must be a positive integer")
	errEmptyClass    = errors.New("section cannot be empty")
	errUnknownMode   = errors.New("unknown section report mode")
)

// DefaultSubject is recorded when the caller does not name one.
const DefaultSubject = "General"

type (
	// Repository persists the ledger and its summary projection. The two
	// write methods are transactional: the ledger insert and the additive
	// summary upsert either both apply or neither does.
	Repository interface {
		// CreateEntry inserts one ledger row and increments the summary.
		// Returns ErrDuplicateEntry if (roll_no, date, period) exists;
		// no summary mutation happens in that case.
		CreateEntry(ctx context.Context, entry Entry) (Entry, error)
		// CreateEntries writes a batch in a single transaction. Duplicate
		// rows are skipped (returned in skipped, roster order) without
		// aborting the batch; any other failure rolls back everything.
		CreateEntries(ctx context.Context, entries []Entry) (succeeded int, skipped []string, err error)

		GetStudentSummary(ctx context.Context, rollNo string) (StudentSummary, error)
		// QueryEntries returns a student's full ledger, date then period ascending.
		QueryEntries(ctx context.Context, rollNo string) ([]Entry, error)
		// QueryEntriesByDate returns a student's ledger for one date, period ascending.
		QueryEntriesByDate(ctx context.Context, rollNo string, date Date) ([]Entry, error)
		// QuerySectionDay aggregates a section's present/absent counts for
		// one date, roll number ascending.
		QuerySectionDay(ctx context.Context, className string, date Date) ([]SectionDayRow, error)
		// QuerySectionOverall returns every student of a section with their
		// summary counters, roll number ascending.
		QuerySectionOverall(ctx context.Context, className string) ([]StudentSummary, error)
		// QueryDefaulters returns students with records below the threshold,
		// worst percentage first.
		QueryDefaulters(ctx context.Context) ([]StudentSummary, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (svc *Service) validateMark(dateStr string, period int, subject string, status Status) (Date, string, error) {
	date, err := ParseDate(core.CleanString(dateStr))
	if err != nil {
		return Date{}, "", err
	}
	if period < 1 {
		return Date{}, "", core.NewValidationError(errInvalidPeriod,
			core.FieldError{Field: "period", Error: errInvalidPeriod.Error()})
	}
	if !status.Valid() {
		return Date{}, "", ErrInvalidStatus
	}
	subject = core.CleanString(subject)
	if subject == "" {
		subject = DefaultSubject
	}
	return date, subject, nil
}

// MarkSingle records one student's status for one period. The ledger insert
// and the summary increment happen in one transaction; a duplicate
// (roll_no, date, period) yields ErrDuplicateEntry and writes nothing.
func (svc *Service) MarkSingle(ctx context.Context, rollNo, dateStr string, period int, subject string, status Status) (Entry, error) {
	date, subject, err := svc.validateMark(dateStr, period, subject, status)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{
		RollNo:  core.CleanString(rollNo),
		Date:    date,
		Period:  period,
		Subject: subject,
		Status:  status,
	}
	entry, err = svc.repo.CreateEntry(ctx, entry)
	if err != nil {
		return Entry{}, err
	}

	svc.logger.Info(fmt.Sprintf(
		"attendance marked for %s | %s | period %d | %s", entry.RollNo, entry.Subject, entry.Period, entry.Status.Label()))
	return entry, nil
}

// MarkBatch marks a whole section for one period: every roster member not in
// absentees is Present, every absentee on the roster is Absent. Roll numbers
// in absentees but not on the roster are ignored. Already-marked students
// are skipped without aborting the batch; the rest still commit together.
func (svc *Service) MarkBatch(ctx context.Context, className, dateStr string, period int, subject string, roster, absentees []string) (BatchResult, error) {
	className = core.CleanString(className)
	if className == "" {
		return BatchResult{}, core.NewValidationError(errEmptyClass,
			core.FieldError{Field: "class_name", Error: errEmptyClass.Error()})
	}
	date, subject, err := svc.validateMark(dateStr, period, subject, Present)
	if err != nil {
		return BatchResult{}, err
	}

	absent := make(map[string]bool, len(absentees))
	for _, rollNo := range absentees {
		absent[core.CleanString(rollNo)] = true
	}

	entries := make([]Entry, 0, len(roster))
	for _, rollNo := range roster {
		rollNo = core.CleanString(rollNo)
		status := Present
		if absent[rollNo] {
			status = Absent
		}
		entries = append(entries, Entry{
			RollNo:  rollNo,
			Date:    date,
			Period:  period,
			Subject: subject,
			Status:  status,
		})
	}

	res := BatchResult{
		BatchID:   uuid.New().String(),
		ClassName: className,
		Date:      date,
		Period:    period,
		Subject:   subject,
		Skipped:   []string{},
	}
	succeeded, skipped, err := svc.repo.CreateEntries(ctx, entries)
	if err != nil {
		return BatchResult{}, err
	}
	res.Succeeded = succeeded
	if skipped != nil {
		res.Skipped = skipped
	}

	svc.logger.Info(fmt.Sprintf(
		"batch %s: attendance marked for %d students in %s | subject: %s | period: %d (%d skipped)",
		res.BatchID, res.Succeeded, className, subject, period, len(res.Skipped)))
	return res, nil
}

// OverallSummary reports a student's semester aggregate. A student with no
// ledger history reports zero counters, not an error.
func (svc *Service) OverallSummary(ctx context.Context, rollNo string) (StudentSummary, error) {
	return svc.repo.GetStudentSummary(ctx, core.CleanString(rollNo))
}

// DateWiseBreakdown returns a student's full ledger ordered by date then
// period. An empty slice means no records, not an error.
func (svc *Service) DateWiseBreakdown(ctx context.Context, rollNo string) ([]Entry, error) {
	return svc.repo.QueryEntries(ctx, core.CleanString(rollNo))
}

// DayBreakdown returns a student's periods for one date, period ascending.
// An empty dateStr means today.
func (svc *Service) DayBreakdown(ctx context.Context, rollNo, dateStr string) ([]Entry, error) {
	date := Today()
	if dateStr = core.CleanString(dateStr); dateStr != "" {
		var err error
		if date, err = ParseDate(dateStr); err != nil {
			return nil, err
		}
	}
	return svc.repo.QueryEntriesByDate(ctx, core.CleanString(rollNo), date)
}

// Report produces a section report. Mode SectionByDate requires dateStr;
// SectionToday ignores it.
func (svc *Service) Report(ctx context.Context, className string, mode SectionMode, dateStr string) (SectionReport, error) {
	className = core.CleanString(className)
	if className == "" {
		return SectionReport{}, core.NewValidationError(errEmptyClass,
			core.FieldError{Field: "class_name", Error: errEmptyClass.Error()})
	}
	if !mode.Valid() {
		return SectionReport{}, core.NewValidationError(errUnknownMode,
			core.FieldError{Field: "mode", Error: errUnknownMode.Error()})
	}

	report := SectionReport{ClassName: className, Mode: mode}
	switch mode {
	case SectionOverall:
		rows, err := svc.repo.QuerySectionOverall(ctx, className)
		if err != nil {
			return SectionReport{}, err
		}
		report.Overall = rows
	default:
		date := Today()
		if mode == SectionByDate {
			var err error
			if date, err = ParseDate(core.CleanString(dateStr)); err != nil {
				return SectionReport{}, err
			}
		}
		rows, err := svc.repo.QuerySectionDay(ctx, className, date)
		if err != nil {
			return SectionReport{}, err
		}
		report.Date = &date
		report.Rows = rows
	}
	return report, nil
}

// Defaulters lists all students below the threshold with at least one
// recorded period, worst percentage first.
func (svc *Service) Defaulters(ctx context.Context) ([]StudentSummary, error) {
	return svc.repo.QueryDefaulters(ctx)
}
