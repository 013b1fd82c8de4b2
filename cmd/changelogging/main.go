package main

import (
	"os"

	logger "github.com/sirupsen/logrus"

	"github.com/git-pkgs/changelogging/cmd"
)

func main() {
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
	os.Exit(cmd.Execute())
}
