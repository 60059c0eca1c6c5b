package main

import "github.com/trezcool/chuo/storage/database"

func (cli *commandLine) migrate(args []string) error {
	return database.RunMigrations(cli.db, cli.gooseRun, args[0], args[1:]...)
}
