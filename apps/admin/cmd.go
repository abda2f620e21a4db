package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"classtrack/core"
	"classtrack/core/attendance"
	"classtrack/core/user"
	"classtrack/storage/database"
)

// swapped out in tests
var (
	migrateRunFunc   = database.Migrate
	readPasswordFunc = term.ReadPassword
)

var errHelp = errors.New(`Usage:
  migrate                                  - evolve the database schema (safe to re-run)
  createuser -username NAME -role ROLE     - create a login account (HOD | FACULTY | STUDENT)
  resetpassword -username NAME             - set a new password for an account
  defaulters [-email]                      - list students below the attendance threshold`)

type commandLine struct {
	db            *sqlx.DB
	conf          *core.Config
	logger        core.Logger
	userSvc       *user.Service
	attendanceSvc *attendance.Service
	mailSvc       core.EmailService
	out           io.Writer
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		return errHelp
	}

	createUserCmd := flag.NewFlagSet("createuser", flag.ContinueOnError)
	createUsername := createUserCmd.String("username", "", "login username")
	createRole := createUserCmd.String("role", user.RoleFaculty, "account role")
	createRollNo := createUserCmd.String("rollno", "", "student roll number (STUDENT role only)")

	resetPwdCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetUsername := resetPwdCmd.String("username", "", "login username")

	defaultersCmd := flag.NewFlagSet("defaulters", flag.ContinueOnError)
	emailDigest := defaultersCmd.Bool("email", false, "email the digest to the report recipient")

	switch args[1] {
	case "migrate":
		return cli.migrate()
	case "createuser":
		if err := createUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.createUser(*createUsername, *createRole, *createRollNo)
	case "resetpassword":
		if err := resetPwdCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.resetPassword(*resetUsername)
	case "defaulters":
		if err := defaultersCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.defaulters(*emailDigest)
	}
	return errHelp
}

func (cli *commandLine) migrate() error {
	if err := migrateRunFunc(context.Background(), cli.db, cli.conf, cli.logger); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "schema is up to date")
	return nil
}

func (cli *commandLine) createUser(username, role, rollNo string) error {
	if username == "" {
		return errHelp
	}
	password, err := cli.promptPassword("Password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return errHelp
	}

	nu := user.NewUser{
		Username: username,
		Password: password,
		Role:     role,
		RollNo:   rollNo,
	}
	if err := nu.Validate(cli.userSvc); err != nil {
		return err
	}
	usr, err := cli.userSvc.Create(context.Background(), nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created %s account %q (id=%d)\n", usr.Role, usr.Username, usr.ID)
	return nil
}

func (cli *commandLine) resetPassword(username string) error {
	if username == "" {
		return errHelp
	}
	password, err := cli.promptPassword("New password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return errHelp
	}
	if err := cli.userSvc.ResetPassword(context.Background(), username, password); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "password updated for %q\n", username)
	return nil
}

func (cli *commandLine) defaulters(emailDigest bool) error {
	defaulters, err := cli.attendanceSvc.Defaulters(context.Background())
	if err != nil {
		return err
	}
	if len(defaulters) == 0 {
		fmt.Fprintln(cli.out, "no defaulters; everyone is at or above the threshold")
		return nil
	}

	fmt.Fprintf(cli.out, "%-12s %-24s %-10s %8s %s\n", "ROLL NO", "NAME", "CLASS", "PCT", "PRESENT/TOTAL")
	for _, s := range defaulters {
		fmt.Fprintf(cli.out, "%-12s %-24s %-10s %7.1f%% %d/%d\n",
			s.Student.RollNo, s.Student.Name, s.Student.ClassName,
			s.Percentage(), s.PresentPeriods, s.TotalPeriods)
	}

	if emailDigest {
		if msg := attendance.DefaulterDigest(defaulters, cli.conf.ReportRecipient()); msg != nil {
			cli.mailSvc.SendMessages(msg)
			fmt.Fprintf(cli.out, "digest sent to %s\n", cli.conf.ReportRecipientAddr)
		}
	}
	return nil
}

func (cli *commandLine) promptPassword(prompt string) (string, error) {
	fmt.Fprint(cli.out, prompt)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
