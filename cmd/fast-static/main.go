package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/searchktools/fast-static/app"
	"github.com/searchktools/fast-static/config"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, config.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatalf("Configuration error: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Server setup failed: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
