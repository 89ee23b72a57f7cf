package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/muddyapp/muddy/apps/api/echo"
	"github.com/muddyapp/muddy/core"
	"github.com/muddyapp/muddy/core/course"
	"github.com/muddyapp/muddy/core/session"
	"github.com/muddyapp/muddy/core/story"
	"github.com/muddyapp/muddy/core/submission"
	emailsvc "github.com/muddyapp/muddy/services/email"
	logsvc "github.com/muddyapp/muddy/services/logger"
	"github.com/muddyapp/muddy/storage/database"
	sqlxrepos "github.com/muddyapp/muddy/storage/database/sqlx"
)

const shutdownTimeout = 20 * time.Second

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	if err != nil {
		std.Fatal(err)
	}

	var logger core.Logger
	if conf.Debug || conf.RollbarToken == "" {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}
	logger.Enable(!conf.TestMode)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		std.Fatal(err)
	}
	db, err := database.Open(conf)
	if err != nil {
		std.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	if err := database.Migrate(db); err != nil {
		std.Fatal(err)
	}
	dbx := sqlx.NewDb(db, conf.Database.Engine)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(std)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	courseSvc := course.NewService(sqlxrepos.NewCourseRepository(dbx))
	sessionSvc := session.NewService(sqlxrepos.NewSessionRepository(dbx), mailSvc, conf)
	submissionSvc := submission.NewService(
		sqlxrepos.NewSubmissionRepository(dbx),
		sessionSvc,
		submission.NewIdentityHasher(conf.SecretKey),
	)
	storySvc := story.NewService(sqlxrepos.NewStoryRepository(dbx))

	// start API server
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(
		conf.Server.Host+":"+conf.Server.Port,
		shutdown,
		&echoapi.Deps{
			Conf:          conf,
			Logger:        logger,
			CourseSvc:     courseSvc,
			SessionSvc:    sessionSvc,
			SubmissionSvc: submissionSvc,
			StorySvc:      storySvc,
		},
	)
	go app.Start()

	sig := <-shutdown
	std.Printf("shutting down: %v", sig)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		std.Fatalf("graceful shutdown failed: %v", err)
	}
}
