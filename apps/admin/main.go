package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/statbureau/datahub/apps/di"
	"github.com/statbureau/datahub/core"
	logsvc "github.com/statbureau/datahub/services/logger"
	"github.com/statbureau/datahub/storage/database"
)

func main() {
	conf := core.NewConfig()

	local, err := logsvc.NewLocal(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(local.Named("admin"), conf)

	// set up DB
	db, err := database.Open(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	c := di.New(conf, logger, db)

	// start CLI
	cli := commandLine{
		conf:       conf,
		db:         db,
		validate:   c.Validate,
		translator: c.Translator,
		usrSvc:     c.UserSvc,
		refdataSvc: c.RefdataSvc,
		schedSvc:   c.ScheduleSvc,
		mailSvc:    c.Mail,
		out:        os.Stdout,
	}
	err = cli.run(os.Args)

	_ = db.Close()
	logger.Close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
