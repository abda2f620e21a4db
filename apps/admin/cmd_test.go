package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"classtrack/core"
	"classtrack/core/attendance"
	"classtrack/core/student"
	"classtrack/core/user"
	"classtrack/services/email"
	"classtrack/storage/database/dummy"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{})        {}
func (nopLogger) Info(string, ...interface{})         {}
func (nopLogger) Warning(string, ...interface{})      {}
func (nopLogger) Error(string, error, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{})        {}

func setup(t *testing.T) (*commandLine, *dummydb.DB, *bytes.Buffer) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	conf := &core.Config{
		TestMode:               true,
		AppName:                "ClassTrack",
		ReportRecipientAddr:    "hod@localhost",
		FromEmailAddr:          "noreply@localhost",
		DefaultStudentPassword: "student123",
	}

	out := new(bytes.Buffer)
	cli := &commandLine{
		conf:          conf,
		logger:        nopLogger{},
		userSvc:       user.NewService(dummydb.NewUserRepository(db), conf),
		attendanceSvc: attendance.NewService(dummydb.NewAttendanceRepository(db), nopLogger{}),
		mailSvc:       emailsvc.NewConsoleService(conf),
		out:           out,
	}
	return cli, db, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, out := setup(t)

	var calls int
	migrateRunFunc = func(_ context.Context, _ *sqlx.DB, _ *core.Config, _ core.Logger) error {
		calls++
		return nil
	}

	if err := cli.run([]string{"admin", "migrate"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	if calls != 1 {
		t.Errorf("migrate ran %d times, want 1", calls)
	}
	if !strings.Contains(out.String(), "up to date") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _, _ := setup(t)

	usr, err := cli.userSvc.Create(context.Background(),
		user.NewUser{Username: "faculty1", Password: "faculty123", Role: user.RoleFaculty})
	if err != nil {
		t.Fatalf("creating user failed: %v", err)
	}

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "n3w"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshed, err := cli.userSvc.GetByUsername(context.Background(), usr.Username)
				if err != nil {
					t.Fatalf("GetByUsername() failed: %v", err)
				}
				if !refreshed.CheckPassword("n3w") {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_createUser(t *testing.T) {
	cli, _, out := setup(t)

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("s3cret"), nil }

	tests := []cliTest{
		{name: "no username", args: []string{"createuser"}, wantErr: errHelp},
		{name: "bad role", args: []string{"createuser", "-username", "x", "-role", "JANITOR"}, wantErrStr: "validation error"},
		{name: "creates faculty by default", args: []string{"createuser", "-username", "faculty9"}},
		{name: "duplicate username", args: []string{"createuser", "-username", "faculty9"}, wantErrStr: "duplicate"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			case tt.wantErrStr != "":
				if err == nil {
					t.Error("cli.run() expected an error")
				}
			default:
				if err != nil {
					t.Fatalf("cli.run() unexpected error = %v", err)
				}
				usr, err := cli.userSvc.GetByUsername(context.Background(), "faculty9")
				if err != nil {
					t.Fatalf("GetByUsername() failed: %v", err)
				}
				if !usr.IsFaculty() || !usr.CheckPassword("s3cret") {
					t.Errorf("created user = %+v", usr)
				}
				if !strings.Contains(out.String(), "faculty9") {
					t.Errorf("unexpected output %q", out.String())
				}
			}
		})
	}
}

func Test_commandLine_defaulters(t *testing.T) {
	cli, db, out := setup(t)
	ctx := context.Background()

	if err := cli.run([]string{"admin", "defaulters"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	if !strings.Contains(out.String(), "no defaulters") {
		t.Errorf("unexpected output %q", out.String())
	}

	studentSvc := student.NewService(dummydb.NewStudentRepository(db))
	if _, err := studentSvc.Create(ctx, student.NewStudent{
		RollNo: "CS-01", Name: "Asha Verma", ClassName: "CSE-1", Department: "CSE",
	}); err != nil {
		t.Fatalf("creating student failed: %v", err)
	}
	// 1/4 = 25%, well below the threshold
	for period := 1; period <= 4; period++ {
		status := attendance.Absent
		if period == 1 {
			status = attendance.Present
		}
		if _, err := cli.attendanceSvc.MarkSingle(ctx, "CS-01", "2025-09-01", period, "", status); err != nil {
			t.Fatalf("MarkSingle() failed: %v", err)
		}
	}

	out.Reset()
	if err := cli.run([]string{"admin", "defaulters"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	if !strings.Contains(out.String(), "CS-01") || !strings.Contains(out.String(), "25.0%") {
		t.Errorf("unexpected output %q", out.String())
	}

	out.Reset()
	if err := cli.run([]string{"admin", "defaulters", "-email"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	if !strings.Contains(out.String(), "digest sent to hod@localhost") {
		t.Errorf("unexpected output %q", out.String())
	}
}
