package attendance

import (
	"database/sql/driver"
	"fmt"
	"time"

	"classtrack/core"
	"classtrack/core/student"
)

// DefaulterThreshold is the attendance percentage below which a student is
// flagged as a defaulter. Policy constant, not configurable.
const DefaulterThreshold = 75.0

// Status is the per-period attendance outcome. The single-character codes
// are the persisted wire encoding.
type Status string

const (
	Present Status = "P"
	Absent  Status = "A"
)

func (s Status) Valid() bool {
	return s == Present || s == Absent
}

// Label returns the human-readable form of the status.
func (s Status) Label() string {
	if s == Present {
		return "Present"
	}
	return "Absent"
}

// Date is a calendar date without a time component, marshalled as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO YYYY-MM-DD string; a malformed or impossible
// calendar date yields ErrInvalidDate.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(core.ISODateFormat, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{t}, nil
}

// Today returns the current calendar date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

func (d Date) String() string {
	return d.Format(core.ISODateFormat)
}

func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case time.Time:
		*d = NewDate(v.Year(), v.Month(), v.Day())
		return nil
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	return fmt.Errorf("cannot scan %T into Date", value)
}

// Entry is one row of the append-only attendance ledger: a single student's
// status for a single period on a single date. (roll_no, date, period) is
// unique; entries are never updated, only cascade-deleted with the student.
type Entry struct {
	ID      int    `json:"id"`
	RollNo  string `json:"roll_no"`
	Date    Date   `json:"date"`
	Period  int    `json:"period"`
	Subject string `json:"subject"`
	Status  Status `json:"status"`
}

// Summary is the per-student aggregate kept in lockstep with the ledger:
// total_periods counts all ledger rows for the roll number, present_periods
// those with status Present. It is additively maintained, never recomputed.
type Summary struct {
	RollNo         string `json:"roll_no"`
	TotalPeriods   int    `json:"total_periods"`
	PresentPeriods int    `json:"present_periods"`
}

// StudentSummary joins directory info with the summary aggregate. A student
// with no ledger history still has a StudentSummary (zero counters).
type StudentSummary struct {
	Student        student.Student `json:"student"`
	TotalPeriods   int             `json:"total_periods"`
	PresentPeriods int             `json:"present_periods"`
}

func (s StudentSummary) HasRecords() bool {
	return s.TotalPeriods > 0
}

func (s StudentSummary) Percentage() float64 {
	if s.TotalPeriods == 0 {
		return 0
	}
	return float64(s.PresentPeriods) * 100 / float64(s.TotalPeriods)
}

func (s StudentSummary) IsDefaulter() bool {
	return s.HasRecords() && s.Percentage() < DefaulterThreshold
}

// SectionDayRow is one student's present/absent period counts for a section
// on a single date.
type SectionDayRow struct {
	RollNo    string `json:"roll_no"`
	Name      string `json:"name"`
	ClassName string `json:"class_name"`
	Present   int    `json:"present"`
	Absent    int    `json:"absent"`
}

// BatchResult reports the outcome of a batch mark: how many roster members
// were written and which were skipped as duplicates. A non-empty Skipped
// list does not mean failure; the batch still committed.
type BatchResult struct {
	BatchID   string   `json:"batch_id"`
	ClassName string   `json:"class_name"`
	Date      Date     `json:"date"`
	Period    int      `json:"period"`
	Subject   string   `json:"subject"`
	Succeeded int      `json:"succeeded"`
	Skipped   []string `json:"skipped"`
}

// SectionMode selects the shape of a section report.
type SectionMode string

const (
	SectionToday   SectionMode = "today"
	SectionOverall SectionMode = "overall"
	SectionByDate  SectionMode = "date"
)

func (m SectionMode) Valid() bool {
	switch m {
	case SectionToday, SectionOverall, SectionByDate:
		return true
	}
	return false
}

// SectionReport groups a section's attendance either per-day (Rows) or over
// the whole semester (Overall), depending on Mode.
type SectionReport struct {
	ClassName string           `json:"class_name"`
	Mode      SectionMode      `json:"mode"`
	Date      *Date            `json:"date,omitempty"`
	Rows      []SectionDayRow  `json:"rows,omitempty"`
	Overall   []StudentSummary `json:"overall,omitempty"`
}
