package main

import (
	"os"

	"pharmacy-backend/cmd/bootstrap"

	"github.com/sirupsen/logrus"
)

func main() {
	app, err := bootstrap.New()
	if err != nil {
		logrus.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.Run(); err != nil {
		logrus.Errorf("Server stopped with error: %v", err)
		os.Exit(1)
	}
}
