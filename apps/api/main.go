package main

import (
	"context"
	_ "expvar" // register /debug/vars
	"log"
	"net/http"
	_ "net/http/pprof" // register /debug/pprof
	"os"

	"classtrack/apps/api/echo"
	"classtrack/core"
	"classtrack/core/attendance"
	"classtrack/core/student"
	"classtrack/core/user"
	"classtrack/services/email"
	"classtrack/services/logger"
	"classtrack/storage/database"
)

func main() {
	conf := core.NewConfig()
	std := log.New(os.Stdout, conf.AppName+" : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	appLogger := logsvc.NewRollbarLogger(std, conf)
	appLogger.Enable(!(conf.Debug || conf.TestMode))

	if err := run(conf, appLogger); err != nil {
		appLogger.Fatal("application error", err)
	}
}

func run(conf *core.Config, appLogger core.Logger) error {
	// ------------------------- set up database

	if err := database.CreateIfNotExist(conf); err != nil {
		return err
	}
	db, err := database.Open(conf)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(context.Background(), db, conf, appLogger); err != nil {
		return err
	}

	// ------------------------- set up services

	var mailSvc core.EmailService
	if conf.Debug || conf.TestMode {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, appLogger)
	}

	studentSvc := student.NewService(database.NewStudentRepository(db))
	attendanceSvc := attendance.NewService(database.NewAttendanceRepository(db), appLogger)
	userSvc := user.NewService(database.NewUserRepository(db), conf)

	// ------------------------- start debug server

	go func() {
		appLogger.Info("debug server listening on " + conf.Server.DebugAddr)
		err := http.ListenAndServe(conf.Server.DebugAddr, http.DefaultServeMux)
		appLogger.Error("debug server closed", err)
	}()

	// ------------------------- start API server

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        appLogger,
		StudentSvc:    studentSvc,
		AttendanceSvc: attendanceSvc,
		UserSvc:       userSvc,
		MailSvc:       mailSvc,
	})
	appLogger.Info("api server listening on " + conf.Server.Addr)
	server.Start()

	// ------------------------- shutdown

	select {
	case err := <-server.Errors():
		return err
	case sig := <-server.ShutdownSignal():
		appLogger.Info("shutdown started", sig)
		defer appLogger.Info("shutdown complete", sig)

		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			appLogger.Error("could not stop server gracefully", err)
			return err
		}
	}
	return nil
}
