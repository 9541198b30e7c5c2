package main

import (
	"flag"
	"log"
	"os"
)

// Version is set at build time via -ldflags, matching the teacher's
// convention (main.go).
var Version = "dev"

var (
	configFile = flag.String("config", "config.yaml", "Path to job configuration file")
	cachePath  = flag.String("cache", "", "Override the alignment cache path from config")
	reportDir  = flag.String("report-dir", "", "Override the report output directory from config")
	chartFlag  = flag.Bool("chart", false, "Render a convergence chart for every job (overrides per-job config)")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	log.SetPrefix("[icpalign] ")
	log.SetFlags(log.LstdFlags)

	if *showVer {
		log.Printf("icp3d %s", Version)
		return
	}

	cfg, err := LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *cachePath != "" {
		cfg.CachePath = *cachePath
	}
	if *reportDir != "" {
		cfg.ReportDir = *reportDir
	}
	if *chartFlag {
		for i := range cfg.Jobs {
			cfg.Jobs[i].Chart = true
		}
	}

	app, err := NewApp(cfg)
	if err != nil {
		log.Fatalf("initializing app: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("one or more jobs failed: %v", err)
		os.Exit(1)
	}
}
