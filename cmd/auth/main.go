package main

import (
	"fmt"
	"log"
	"os"

	"github.com/aussiebroadwan/learnhub/internal/auth/app"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML config file (env: AUTH_CONFIG_FILE)")
	showVersion := pflag.Bool("version", false, "print the build version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Fprintln(os.Stdout, app.BuildVersion)
		return
	}

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
