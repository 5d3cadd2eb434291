package main

import (
	"flag"

	"github.com/sirupsen/logrus"

	"tiktok-monitor-go/internal/app"
)

func main() {
	serve := flag.Bool("serve", false, "run as a long-lived service with an internal scheduler and HTTP API")
	flag.Parse()

	if err := app.Run(*serve); err != nil {
		logrus.Fatalf("application error: %v", err)
	}
}
