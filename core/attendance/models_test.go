package attendance

import (
	"encoding/json"
	"testing"
	"time"

	"classtrack/core/student"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Date
		wantErr bool
	}{
		{name: "valid", in: "2025-03-01", want: NewDate(2025, time.March, 1)},
		{name: "wrong layout", in: "01-03-2025", wantErr: true},
		{name: "not a date", in: "lol", wantErr: true},
		{name: "impossible calendar date", in: "2025-02-30", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				if err != ErrInvalidDate {
					t.Errorf("ParseDate(%q) error = %v, want ErrInvalidDate", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) unexpected error: %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDate_JSON(t *testing.T) {
	d := NewDate(2025, time.September, 5)

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	if string(data) != `"2025-09-05"` {
		t.Errorf("Marshal() = %s, want %q", data, "2025-09-05")
	}

	var parsed Date
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if !parsed.Equal(d) {
		t.Errorf("Unmarshal() = %v, want %v", parsed, d)
	}

	if err := json.Unmarshal([]byte(`"2025-13-40"`), &parsed); err != ErrInvalidDate {
		t.Errorf("Unmarshal() error = %v, want ErrInvalidDate", err)
	}
}

func TestStatus(t *testing.T) {
	if !Present.Valid() || !Absent.Valid() {
		t.Error("P and A must be valid statuses")
	}
	if Status("X").Valid() || Status("").Valid() {
		t.Error("only P and A are valid statuses")
	}
	if Present.Label() != "Present" || Absent.Label() != "Absent" {
		t.Errorf("unexpected labels: %q, %q", Present.Label(), Absent.Label())
	}
}

func TestStudentSummary(t *testing.T) {
	std := student.Student{RollNo: "CS-01"}
	tests := []struct {
		name          string
		total         int
		present       int
		wantPct       float64
		wantRecords   bool
		wantDefaulter bool
	}{
		{name: "no records", total: 0, present: 0, wantPct: 0, wantRecords: false, wantDefaulter: false},
		{name: "below threshold", total: 10, present: 5, wantPct: 50, wantRecords: true, wantDefaulter: true},
		{name: "just below threshold", total: 4, present: 2, wantPct: 50, wantRecords: true, wantDefaulter: true},
		{name: "exactly at threshold", total: 4, present: 3, wantPct: 75, wantRecords: true, wantDefaulter: false},
		{name: "above threshold", total: 10, present: 9, wantPct: 90, wantRecords: true, wantDefaulter: false},
		{name: "perfect", total: 8, present: 8, wantPct: 100, wantRecords: true, wantDefaulter: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := StudentSummary{Student: std, TotalPeriods: tt.total, PresentPeriods: tt.present}
			if got := s.Percentage(); got != tt.wantPct {
				t.Errorf("Percentage() = %v, want %v", got, tt.wantPct)
			}
			if got := s.HasRecords(); got != tt.wantRecords {
				t.Errorf("HasRecords() = %v, want %v", got, tt.wantRecords)
			}
			if got := s.IsDefaulter(); got != tt.wantDefaulter {
				t.Errorf("IsDefaulter() = %v, want %v", got, tt.wantDefaulter)
			}
		})
	}
}
