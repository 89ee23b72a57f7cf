package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/muddyapp/muddy/core"
	"github.com/muddyapp/muddy/core/session"
	emailsvc "github.com/muddyapp/muddy/services/email"
	"github.com/muddyapp/muddy/storage/database"
	sqlxrepos "github.com/muddyapp/muddy/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()
	errAndDie(db.Ping())

	dbx := sqlx.NewDb(db, conf.Database.Engine)
	sessSvc := session.NewService(sqlxrepos.NewSessionRepository(dbx), emailsvc.NewConsoleService(logger), conf)

	// start CLI
	cli := commandLine{
		db:      db,
		conf:    conf,
		sessSvc: sessSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
