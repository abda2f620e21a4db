package dummydb

import (
	"sync"

	"classtrack/core/attendance"
	"classtrack/core/student"
	"classtrack/core/user"
)

// DB is an in-memory stand-in for postgres with the same semantics the sqlx
// repositories rely on: ledger uniqueness, additive summaries, cascade
// deletes. Used by service and handler tests.
type (
	DB struct {
		mu sync.RWMutex

		students  map[string]*student.Student
		entries   []*attendance.Entry
		summaries map[string]*attendance.Summary
		users     map[int]*user.User

		entryPK int
		userPK  int
	}
)

func Open() (*DB, error) {
	db := &DB{
		students:  make(map[string]*student.Student),
		summaries: make(map[string]*attendance.Summary),
		users:     make(map[int]*user.User),
	}
	return db, nil
}

// hasEntry mirrors the UNIQUE(roll_no, date, period) ledger constraint.
func (db *DB) hasEntry(rollNo string, date attendance.Date, period int) bool {
	for _, e := range db.entries {
		if e.RollNo == rollNo && e.Date.Equal(date) && e.Period == period {
			return true
		}
	}
	return false
}

// cascadeDelete removes a student's ledger and summary rows, mirroring the
// ON DELETE CASCADE foreign keys.
func (db *DB) cascadeDelete(rollNo string) {
	kept := db.entries[:0]
	for _, e := range db.entries {
		if e.RollNo != rollNo {
			kept = append(kept, e)
		}
	}
	db.entries = kept
	delete(db.summaries, rollNo)
	for id, usr := range db.users {
		if usr.RollNo == rollNo {
			db.users[id].RollNo = "" // ON DELETE SET NULL
		}
	}
}
