package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"classtrack/core"
	"classtrack/core/attendance"
	"classtrack/core/student"
)

const (
	pqUniqueViolation     = pq.ErrorCode("23505")
	pqForeignKeyViolation = pq.ErrorCode("23503")
)

func isPQError(err error, code pq.ErrorCode) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == code
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

const (
	// ON CONFLICT DO NOTHING keeps the transaction alive on a duplicate
	// (roll_no, date, period): RETURNING yields no row, which we read as the
	// duplicate signal instead of aborting the whole transaction.
	insertEntrySQL = `
		INSERT INTO attendance_log (roll_no, date, period, status, subject)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (roll_no, date, period) DO NOTHING
		RETURNING log_id`

	// additive fold: one new ledger row bumps total by 1 and present by 0|1
	upsertSummarySQL = `
		INSERT INTO attendance (roll_no, total_periods, present_periods)
		VALUES ($1, 1, $2)
		ON CONFLICT (roll_no) DO UPDATE
		SET total_periods = attendance.total_periods + 1,
		    present_periods = attendance.present_periods + $2`

	selectSummarySQL = `
		SELECT s.roll_no, s.name, s.class_name, s.department,
		       COALESCE(a.total_periods, 0) AS total_periods,
		       COALESCE(a.present_periods, 0) AS present_periods
		FROM students s
		LEFT JOIN attendance a ON s.roll_no = a.roll_no`
)

type (
	entryRow struct {
		ID      int               `db:"id"`
		RollNo  string            `db:"roll_no"`
		Date    attendance.Date   `db:"date"`
		Period  int               `db:"period"`
		Subject string            `db:"subject"`
		Status  attendance.Status `db:"status"`
	}

	summaryRow struct {
		RollNo         string `db:"roll_no"`
		Name           string `db:"name"`
		ClassName      string `db:"class_name"`
		Department     string `db:"department"`
		TotalPeriods   int    `db:"total_periods"`
		PresentPeriods int    `db:"present_periods"`
	}

	sectionDayRow struct {
		RollNo    string `db:"roll_no"`
		Name      string `db:"name"`
		ClassName string `db:"class_name"`
		Present   int    `db:"present"`
		Absent    int    `db:"absent"`
	}
)

func (r entryRow) entry() attendance.Entry {
	return attendance.Entry{
		ID:      r.ID,
		RollNo:  r.RollNo,
		Date:    r.Date,
		Period:  r.Period,
		Subject: r.Subject,
		Status:  r.Status,
	}
}

func (r summaryRow) summary() attendance.StudentSummary {
	return attendance.StudentSummary{
		Student: student.Student{
			RollNo:     r.RollNo,
			Name:       r.Name,
			ClassName:  r.ClassName,
			Department: r.Department,
		},
		TotalPeriods:   r.TotalPeriods,
		PresentPeriods: r.PresentPeriods,
	}
}

func presentIncrement(status attendance.Status) int {
	if status == attendance.Present {
		return 1
	}
	return 0
}

// insertEntry writes one ledger row plus its summary increment on tx.
// A duplicate returns attendance.ErrDuplicateEntry and leaves the summary
// untouched; the transaction remains usable.
func (repo *attendanceRepository) insertEntry(ctx context.Context, tx core.DBExecutor, entry attendance.Entry) (int, error) {
	var id int
	err := tx.QueryRowContext(ctx, insertEntrySQL,
		entry.RollNo, entry.Date, entry.Period, entry.Status, entry.Subject).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, attendance.ErrDuplicateEntry
	}
	if err != nil {
		if isPQError(err, pqForeignKeyViolation) {
			return 0, attendance.ErrNotFound
		}
		return 0, errors.Wrap(err, "inserting ledger entry")
	}

	if _, err = tx.ExecContext(ctx, upsertSummarySQL, entry.RollNo, presentIncrement(entry.Status)); err != nil {
		return 0, errors.Wrap(err, "upserting summary")
	}
	return id, nil
}

func (repo *attendanceRepository) CreateEntry(ctx context.Context, entry attendance.Entry) (attendance.Entry, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return attendance.Entry{}, errors.Wrap(err, "beginning transaction")
	}

	id, err := repo.insertEntry(ctx, tx, entry)
	if err != nil {
		_ = tx.Rollback()
		return attendance.Entry{}, err
	}
	if err = tx.Commit(); err != nil {
		return attendance.Entry{}, errors.Wrap(err, "committing mark")
	}

	entry.ID = id
	return entry, nil
}

func (repo *attendanceRepository) CreateEntries(ctx context.Context, entries []attendance.Entry) (int, []string, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, nil, errors.Wrap(err, "beginning transaction")
	}

	var succeeded int
	skipped := make([]string, 0)
	for _, entry := range entries {
		if _, err = repo.insertEntry(ctx, tx, entry); err != nil {
			// duplicates are skipped, the batch carries on; anything else
			// rolls back every row written so far
			if errors.Is(err, attendance.ErrDuplicateEntry) {
				skipped = append(skipped, entry.RollNo)
				continue
			}
			_ = tx.Rollback()
			return 0, nil, err
		}
		succeeded++
	}

	if err = tx.Commit(); err != nil {
		return 0, nil, errors.Wrap(err, "committing batch")
	}
	return succeeded, skipped, nil
}

func (repo *attendanceRepository) GetStudentSummary(ctx context.Context, rollNo string) (attendance.StudentSummary, error) {
	var row summaryRow
	err := repo.db.GetContext(ctx, &row, selectSummarySQL+` WHERE s.roll_no = $1`, rollNo)
	if err == sql.ErrNoRows {
		return attendance.StudentSummary{}, attendance.ErrNotFound
	}
	if err != nil {
		return attendance.StudentSummary{}, errors.Wrap(err, "getting student summary")
	}
	return row.summary(), nil
}

func (repo *attendanceRepository) QueryEntries(ctx context.Context, rollNo string) ([]attendance.Entry, error) {
	var rows []entryRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT log_id AS id, roll_no, date, period,
		        COALESCE(subject, 'General') AS subject, status
		 FROM attendance_log
		 WHERE roll_no = $1
		 ORDER BY date ASC, period ASC`, rollNo)
	if err != nil {
		return nil, errors.Wrap(err, "querying ledger entries")
	}

	entries := make([]attendance.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.entry())
	}
	return entries, nil
}

func (repo *attendanceRepository) QueryEntriesByDate(ctx context.Context, rollNo string, date attendance.Date) ([]attendance.Entry, error) {
	var rows []entryRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT log_id AS id, roll_no, date, period,
		        COALESCE(subject, 'General') AS subject, status
		 FROM attendance_log
		 WHERE roll_no = $1 AND date = $2
		 ORDER BY period ASC`, rollNo, date)
	if err != nil {
		return nil, errors.Wrap(err, "querying ledger entries by date")
	}

	entries := make([]attendance.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.entry())
	}
	return entries, nil
}

func (repo *attendanceRepository) QuerySectionDay(ctx context.Context, className string, date attendance.Date) ([]attendance.SectionDayRow, error) {
	var rows []sectionDayRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT s.roll_no, s.name, s.class_name,
		        SUM(CASE WHEN al.status = 'P' THEN 1 ELSE 0 END)::int AS present,
		        SUM(CASE WHEN al.status = 'A' THEN 1 ELSE 0 END)::int AS absent
		 FROM attendance_log al
		 JOIN students s ON al.roll_no = s.roll_no
		 WHERE al.date = $1 AND s.class_name = $2
		 GROUP BY s.roll_no, s.name, s.class_name
		 ORDER BY s.roll_no ASC`, date, className)
	if err != nil {
		return nil, errors.Wrap(err, "querying section attendance")
	}

	out := make([]attendance.SectionDayRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, attendance.SectionDayRow(row))
	}
	return out, nil
}

func (repo *attendanceRepository) QuerySectionOverall(ctx context.Context, className string) ([]attendance.StudentSummary, error) {
	var rows []summaryRow
	err := repo.db.SelectContext(ctx, &rows,
		selectSummarySQL+` WHERE s.class_name = $1 ORDER BY s.roll_no ASC`, className)
	if err != nil {
		return nil, errors.Wrap(err, "querying section summaries")
	}

	out := make([]attendance.StudentSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.summary())
	}
	return out, nil
}

func (repo *attendanceRepository) QueryDefaulters(ctx context.Context) ([]attendance.StudentSummary, error) {
	var rows []summaryRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT s.roll_no, s.name, s.class_name, s.department,
		        a.total_periods, a.present_periods
		 FROM students s
		 JOIN attendance a ON s.roll_no = a.roll_no
		 WHERE (a.present_periods * 100.0 / NULLIF(a.total_periods, 0)) < $1
		 ORDER BY (a.present_periods * 100.0 / NULLIF(a.total_periods, 0)) ASC`,
		attendance.DefaulterThreshold)
	if err != nil {
		return nil, errors.Wrap(err, "querying defaulters")
	}

	out := make([]attendance.StudentSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.summary())
	}
	return out, nil
}
