package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"

	"github.com/trezcool/chuo/apps/shared"
	"github.com/trezcool/chuo/core"
	emailsvc "github.com/trezcool/chuo/services/email"
	logsvc "github.com/trezcool/chuo/services/logger"
	"github.com/trezcool/chuo/storage/database"
	"github.com/trezcool/chuo/storage/database/gormrepo"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(conf)

	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf, logger.Std())
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	cli := commandLine{
		db:       db,
		usrRepo:  gormrepo.NewUserRepository(database.NewStore(db)),
		svcs:     shared.NewServices(db, emailsvc.NewConsoleService(conf, logger), conf, nil),
		gooseRun: goose.Run,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if !errors.Is(err, errHelp) {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
