package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"laptudirm.com/x/tabula/internal/tabula/cmd"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		PadLevelText:     true,
	})
	logrus.SetLevel(logrus.InfoLevel)

	// A .env file in the working directory may set TABULA_* variables.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Fatal(err)
	}

	if err := tabula(); err != nil {
		logrus.Fatal(err)
	}
}

func tabula() error {
	root := cmd.Root()
	root.SetArgs(os.Args[1:])
	return root.Execute()
}
