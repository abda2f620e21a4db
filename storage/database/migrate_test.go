package database

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"classtrack/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{})        {}
func (nopLogger) Info(string, ...interface{})         {}
func (nopLogger) Warning(string, ...interface{})      {}
func (nopLogger) Error(string, error, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{})        {}

// prepareDB connects to a scratch database and wipes its tables so every test
// starts from a blank deployment. Skips when postgres is not reachable.
func prepareDB(t *testing.T) (*sqlx.DB, *core.Config) {
	t.Helper()
	conf := core.NewConfig()
	conf.Database.Name += "_test"

	// fast reachability check before the retrying Open
	conn, err := open("postgres", true, conf)
	if err == nil {
		err = conn.Ping()
		_ = conn.Close()
	}
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}

	if err := CreateIfNotExist(conf); err != nil {
		t.Fatalf("CreateIfNotExist() failed: %v", err)
	}
	db, err := Open(conf)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`DROP TABLE IF EXISTS attendance_log, attendance, users, students CASCADE`)
	if err != nil {
		t.Fatalf("resetting schema failed: %v", err)
	}
	return db, conf
}

// seedLegacyDeployment recreates the pre-pipeline table shapes with the data
// defects the pipeline exists to repair: a role-less admin account and
// duplicate summary rows for one student.
func seedLegacyDeployment(t *testing.T, db *sqlx.DB) {
	t.Helper()
	stmts := []string{
		`CREATE TABLE students (
			roll_no varchar(20) PRIMARY KEY,
			name varchar(100) NOT NULL,
			class_name varchar(50) NOT NULL,
			department varchar(50) NOT NULL
		)`,
		`CREATE TABLE users (
			user_id serial PRIMARY KEY,
			username varchar(50) NOT NULL UNIQUE,
			password varchar(100) NOT NULL
		)`,
		`CREATE TABLE attendance (
			roll_no varchar(20) NOT NULL REFERENCES students (roll_no) ON DELETE CASCADE,
			total_periods integer NOT NULL DEFAULT 0 CHECK (total_periods >= 0),
			present_periods integer NOT NULL DEFAULT 0
				CHECK (present_periods >= 0 AND present_periods <= total_periods)
		)`,
		`INSERT INTO students VALUES ('CS-01', 'Asha Verma', 'CSE-1', 'CSE')`,
		`INSERT INTO students VALUES ('CS-02', 'Ravi Iyer', 'CSE-1', 'CSE')`,
		`INSERT INTO users (username, password) VALUES ('admin', 'admin123')`,
		`INSERT INTO attendance VALUES ('CS-01', 4, 3)`,
		`INSERT INTO attendance VALUES ('CS-01', 6, 3)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seeding legacy deployment failed: %v", err)
		}
	}
}

func countRows(t *testing.T, db *sqlx.DB, query string, args ...interface{}) int {
	t.Helper()
	var count int
	if err := db.Get(&count, query, args...); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	return count
}

func TestMigrate_idempotent(t *testing.T) {
	db, conf := prepareDB(t)
	seedLegacyDeployment(t, db)
	ctx := context.Background()

	if err := Migrate(ctx, db, conf, nopLogger{}); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}

	checkState := func(t *testing.T) {
		t.Helper()

		// duplicate summary rows were summed into one
		if got := countRows(t, db, `SELECT COUNT(*) FROM attendance`); got != 1 {
			t.Errorf("attendance has %d rows, want 1", got)
		}
		var sum struct {
			Total   int `db:"total_periods"`
			Present int `db:"present_periods"`
		}
		if err := db.Get(&sum, `SELECT total_periods, present_periods FROM attendance WHERE roll_no = 'CS-01'`); err != nil {
			t.Fatalf("reading consolidated summary failed: %v", err)
		}
		if sum.Total != 10 || sum.Present != 6 {
			t.Errorf("consolidated summary = %d/%d, want 6/10", sum.Present, sum.Total)
		}

		// schema probes hold, so a re-run skips every conditional step
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			t.Fatalf("BeginTxx() failed: %v", err)
		}
		defer func() { _ = tx.Rollback() }()
		m := &migrator{conf: conf, logger: nopLogger{}}
		for _, col := range []struct{ table, column string }{
			{"users", "role"}, {"users", "roll_no"}, {"attendance_log", "subject"},
		} {
			ok, err := m.columnExists(ctx, tx, col.table, col.column)
			if err != nil {
				t.Fatalf("columnExists(%s.%s) failed: %v", col.table, col.column, err)
			}
			if !ok {
				t.Errorf("column %s.%s is missing", col.table, col.column)
			}
		}
		if ok, err := m.uniqueIndexExists(ctx, tx, "attendance", "roll_no"); err != nil || !ok {
			t.Errorf("unique index on attendance.roll_no: exists=%v, err=%v", ok, err)
		}
		var hasLowerIdx bool
		err = db.Get(&hasLowerIdx,
			`SELECT EXISTS (SELECT 1 FROM pg_indexes
			 WHERE tablename = 'users' AND indexname = 'uq_users_username_lower')`)
		if err != nil || !hasLowerIdx {
			t.Errorf("case-insensitive username index: exists=%v, err=%v", hasLowerIdx, err)
		}

		// legacy admin promoted, default accounts and student logins in place
		var role string
		if err := db.Get(&role, `SELECT role FROM users WHERE username = 'admin'`); err != nil || role != "HOD" {
			t.Errorf("admin role = %q (err=%v), want HOD", role, err)
		}
		for _, username := range []string{"hod", "faculty1", "faculty2"} {
			if got := countRows(t, db, `SELECT COUNT(*) FROM users WHERE username = $1`, username); got != 1 {
				t.Errorf("account %q: %d rows, want 1", username, got)
			}
		}
		var login struct {
			Role   string `db:"role"`
			RollNo string `db:"roll_no"`
		}
		if err := db.Get(&login, `SELECT role, roll_no FROM users WHERE username = 'CS-01'`); err != nil {
			t.Fatalf("reading backfilled login failed: %v", err)
		}
		if login.Role != "STUDENT" || login.RollNo != "CS-01" {
			t.Errorf("backfilled login = %+v", login)
		}

		// admin + 3 defaults + 2 backfilled students, nothing duplicated
		if got := countRows(t, db, `SELECT COUNT(*) FROM users`); got != 6 {
			t.Errorf("users has %d rows, want 6", got)
		}
	}
	checkState(t)

	// the pipeline runs on every startup; a second pass must change nothing
	if err := Migrate(ctx, db, conf, nopLogger{}); err != nil {
		t.Fatalf("second Migrate() failed: %v", err)
	}
	checkState(t)
}

func TestMigrate_backfillSkipsCaseVariantRollNo(t *testing.T) {
	db, conf := prepareDB(t)
	seedLegacyDeployment(t, db)
	ctx := context.Background()

	if err := Migrate(ctx, db, conf, nopLogger{}); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}

	// roll numbers are case-sensitive keys, logins are not: a case-variant
	// student must not get a second account the login lookup could collide on
	if _, err := db.Exec(`INSERT INTO students VALUES ('cs-01', 'Asha V.', 'CSE-1', 'CSE')`); err != nil {
		t.Fatalf("inserting case-variant student failed: %v", err)
	}
	before := countRows(t, db, `SELECT COUNT(*) FROM users`)
	if err := Migrate(ctx, db, conf, nopLogger{}); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if got := countRows(t, db, `SELECT COUNT(*) FROM users`); got != before {
		t.Errorf("users grew from %d to %d rows, want no new accounts", before, got)
	}
	if got := countRows(t, db, `SELECT COUNT(*) FROM users WHERE LOWER(username) = 'cs-01'`); got != 1 {
		t.Errorf("logins matching cs-01: %d, want 1", got)
	}
}

func Test_attendanceRepository_queryDefaulters(t *testing.T) {
	db, conf := prepareDB(t)
	ctx := context.Background()

	if err := Migrate(ctx, db, conf, nopLogger{}); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	stmts := []string{
		`INSERT INTO students VALUES ('CS-01', 'Asha Verma', 'CSE-1', 'CSE')`,
		`INSERT INTO students VALUES ('CS-02', 'Ravi Iyer', 'CSE-1', 'CSE')`,
		// zero-total summary rows predate the engine's upsert path; they must
		// be ignored, not divide by zero
		`INSERT INTO attendance VALUES ('CS-01', 0, 0)`,
		`INSERT INTO attendance VALUES ('CS-02', 4, 1)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("seeding summaries failed: %v", err)
		}
	}

	repo := NewAttendanceRepository(db)
	out, err := repo.QueryDefaulters(ctx)
	if err != nil {
		t.Fatalf("QueryDefaulters() failed: %v", err)
	}
	if len(out) != 1 || out[0].Student.RollNo != "CS-02" {
		t.Fatalf("QueryDefaulters() = %+v, want only CS-02", out)
	}
	if pct := out[0].Percentage(); pct != 25.0 {
		t.Errorf("Percentage() = %.1f, want 25.0", pct)
	}
}
