package main

import (
	"fmt"
	"log"
	"os"

	"classtrack/core"
	"classtrack/core/attendance"
	"classtrack/core/user"
	"classtrack/services/email"
	"classtrack/services/logger"
	"classtrack/storage/database"
)

func main() {
	conf := core.NewConfig()
	std := log.New(os.Stdout, conf.AppName+" admin : ", log.LstdFlags|log.Lshortfile)

	appLogger := logsvc.NewRollbarLogger(std, conf)
	appLogger.Enable(!(conf.Debug || conf.TestMode))

	if err := database.CreateIfNotExist(conf); err != nil {
		appLogger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		appLogger.Fatal("opening database", err)
	}
	defer db.Close()

	var mailSvc core.EmailService
	if conf.Debug || conf.TestMode {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, appLogger)
	}

	cli := &commandLine{
		db:            db,
		conf:          conf,
		logger:        appLogger,
		userSvc:       user.NewService(database.NewUserRepository(db), conf),
		attendanceSvc: attendance.NewService(database.NewAttendanceRepository(db), appLogger),
		mailSvc:       mailSvc,
		out:           os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err == errHelp {
			fmt.Println(err)
			os.Exit(2)
		}
		appLogger.Fatal("command failed", err)
	}
}
