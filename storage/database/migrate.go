package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"classtrack/core"
	"classtrack/core/user"
)

// Migrate brings the schema up to date. There is no migration-version table:
// every step probes the live schema (or data) for its own precondition and
// is safe to re-run, so the whole pipeline executes on every startup. Order
// matters: the summary consolidation must run before any engine write relies
// on the upsert-by-unique-key path, and the login backfill needs the role and
// roll_no columns plus the case-insensitive username index from the steps
// before it.
func Migrate(ctx context.Context, db *sqlx.DB, conf *core.Config, logger core.Logger) error {
	m := &migrator{conf: conf, logger: logger}

	steps := []struct {
		name string
		run  func(context.Context, *sqlx.Tx) error
	}{
		{"create base tables", m.createBaseTables},
		{"add role column to users", m.addRoleColumn},
		{"add roll_no column to users", m.addRollNoColumn},
		{"promote legacy admin account", m.promoteLegacyAdmin},
		{"insert default accounts", m.insertDefaultAccounts},
		{"create attendance_log table", m.createAttendanceLog},
		{"consolidate duplicate attendance summaries", m.consolidateSummaries},
		{"add subject column to attendance_log", m.addSubjectColumn},
		{"enforce case-insensitive usernames", m.addUsernameLowerIndex},
		{"backfill student logins", m.backfillStudentLogins},
	}

	for _, step := range steps {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return errors.Wrap(err, "beginning migration transaction")
		}
		if err = step.run(ctx, tx); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "migration %q", step.name)
		}
		if err = tx.Commit(); err != nil {
			return errors.Wrapf(err, "committing migration %q", step.name)
		}
	}

	m.logger.Info("database is up to date")
	return nil
}

type migrator struct {
	conf   *core.Config
	logger core.Logger
}

// schema probes

func (m *migrator) columnExists(ctx context.Context, tx *sqlx.Tx, table, column string) (bool, error) {
	var count int
	err := tx.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM information_schema.columns
		 WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2`,
		table, column)
	return count > 0, err
}

func (m *migrator) uniqueIndexExists(ctx context.Context, tx *sqlx.Tx, table, column string) (bool, error) {
	var count int
	err := tx.GetContext(ctx, &count,
		`SELECT COUNT(*)
		 FROM pg_index ix
		 JOIN pg_class t ON t.oid = ix.indrelid
		 JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		 WHERE t.relname = $1 AND a.attname = $2 AND ix.indisunique AND NOT ix.indisprimary`,
		table, column)
	return count > 0, err
}

func (m *migrator) userExists(ctx context.Context, tx *sqlx.Tx, username string) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))`, username)
	return exists, err
}

// steps

// createBaseTables bootstraps a fresh deployment with the legacy table
// shapes; later steps evolve them the same way they evolve a pre-existing
// database.
func (m *migrator) createBaseTables(ctx context.Context, tx *sqlx.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS students (
			roll_no varchar(20) PRIMARY KEY,
			name varchar(100) NOT NULL,
			class_name varchar(50) NOT NULL,
			department varchar(50) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			user_id serial PRIMARY KEY,
			username varchar(50) NOT NULL UNIQUE,
			password varchar(100) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS attendance (
			roll_no varchar(20) NOT NULL REFERENCES students (roll_no) ON DELETE CASCADE,
			total_periods integer NOT NULL DEFAULT 0 CHECK (total_periods >= 0),
			present_periods integer NOT NULL DEFAULT 0
				CHECK (present_periods >= 0 AND present_periods <= total_periods)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (m *migrator) addRoleColumn(ctx context.Context, tx *sqlx.Tx) error {
	exists, err := m.columnExists(ctx, tx, "users", "role")
	if err != nil || exists {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`ALTER TABLE users ADD COLUMN role varchar(10) NOT NULL DEFAULT 'HOD'
		 CHECK (role IN ('HOD', 'FACULTY', 'STUDENT'))`)
	if err == nil {
		m.logger.Info("added 'role' column to users table")
	}
	return err
}

func (m *migrator) addRollNoColumn(ctx context.Context, tx *sqlx.Tx) error {
	exists, err := m.columnExists(ctx, tx, "users", "roll_no")
	if err != nil || exists {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`ALTER TABLE users ADD COLUMN roll_no varchar(20) NULL
		 REFERENCES students (roll_no) ON DELETE SET NULL`)
	if err == nil {
		m.logger.Info("added 'roll_no' column to users table")
	}
	return err
}

// promoteLegacyAdmin grants the pre-role-column bootstrap account full
// privileges. A no-op when no such account exists.
func (m *migrator) promoteLegacyAdmin(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET role = $1 WHERE username = 'admin'`, user.RoleHOD)
	return err
}

func (m *migrator) insertDefaultAccounts(ctx context.Context, tx *sqlx.Tx) error {
	accounts := []struct {
		username, password, role string
	}{
		{"hod", m.conf.DefaultHODPassword, user.RoleHOD},
		{"faculty1", m.conf.DefaultFacultyPassword, user.RoleFaculty},
		{"faculty2", m.conf.DefaultFacultyPassword, user.RoleFaculty},
	}
	for _, acc := range accounts {
		exists, err := m.userExists(ctx, tx, acc.username)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (username, password, role) VALUES ($1, $2, $3)`,
			acc.username, acc.password, acc.role)
		if err != nil {
			return err
		}
		m.logger.Info(fmt.Sprintf("created account: %s (%s)", acc.username, acc.role))
	}
	return nil
}

func (m *migrator) createAttendanceLog(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS attendance_log (
			log_id serial PRIMARY KEY,
			roll_no varchar(20) NOT NULL REFERENCES students (roll_no) ON DELETE CASCADE,
			date date NOT NULL,
			period integer NOT NULL CHECK (period > 0),
			status varchar(1) NOT NULL CHECK (status IN ('P', 'A')),
			UNIQUE (roll_no, date, period)
		)`)
	return err
}

// consolidateSummaries is the one-time data repair: before the attendance
// table had a unique key on roll_no, concurrent-era writes could leave
// several summary rows per student. Their counters are additive, so the
// rows are summed into one before the unique constraint is installed. The
// engine's upsert path cannot be trusted until this has run.
func (m *migrator) consolidateSummaries(ctx context.Context, tx *sqlx.Tx) error {
	exists, err := m.uniqueIndexExists(ctx, tx, "attendance", "roll_no")
	if err != nil || exists {
		return err
	}

	stmts := []string{
		`CREATE TEMPORARY TABLE att_temp ON COMMIT DROP AS
		 SELECT roll_no,
		        SUM(total_periods)::int AS total_periods,
		        SUM(present_periods)::int AS present_periods
		 FROM attendance GROUP BY roll_no`,
		`DELETE FROM attendance`,
		`INSERT INTO attendance (roll_no, total_periods, present_periods)
		 SELECT roll_no, total_periods, present_periods FROM att_temp`,
		`ALTER TABLE attendance ADD CONSTRAINT uq_attendance_roll_no UNIQUE (roll_no)`,
	}
	for _, stmt := range stmts {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	m.logger.Info("consolidated duplicate attendance rows and added unique constraint")
	return nil
}

func (m *migrator) addSubjectColumn(ctx context.Context, tx *sqlx.Tx) error {
	exists, err := m.columnExists(ctx, tx, "attendance_log", "subject")
	if err != nil || exists {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`ALTER TABLE attendance_log ADD COLUMN subject varchar(50) DEFAULT 'General'`)
	if err == nil {
		m.logger.Info("added 'subject' column to attendance_log table")
	}
	return err
}

// addUsernameLowerIndex backs the case-insensitive login resolution: without
// it, case-variant roll numbers could each get their own student login and
// lookups would pick an arbitrary row.
func (m *migrator) addUsernameLowerIndex(ctx context.Context, tx *sqlx.Tx) error {
	_, err := tx.ExecContext(ctx,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_users_username_lower ON users (LOWER(username))`)
	return err
}

func (m *migrator) backfillStudentLogins(ctx context.Context, tx *sqlx.Tx) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (username, password, role, roll_no)
		 SELECT s.roll_no, $1, $2, s.roll_no
		 FROM students s
		 WHERE NOT EXISTS (
		 	SELECT 1 FROM users u WHERE LOWER(u.username) = LOWER(s.roll_no)
		 )`,
		m.conf.DefaultStudentPassword, user.RoleStudent)
	if err != nil {
		return err
	}
	if count, err := res.RowsAffected(); err == nil && count > 0 {
		m.logger.Info(fmt.Sprintf("created %d missing student login account(s)", count))
	}
	return nil
}
