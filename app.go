package main

import (
	"fmt"
	"log"

	"github.com/kwv/icp3d/telemetry"
)

// App wires a loaded Config to its runtime collaborators (the alignment
// cache and, optionally, an MQTT telemetry publisher), mirroring the
// teacher's app.go's role of holding the process's long-lived state
// between main's flag parsing and the per-job/per-request handlers.
type App struct {
	Config *Config
	Cache  *AlignmentCache
	Pub    *telemetry.Publisher
}

// NewApp loads the alignment cache from cfg.CachePath and, if cfg.MQTT is
// set, connects a telemetry publisher. A telemetry connection failure is
// logged and treated as "telemetry disabled" rather than fatal, matching
// mesh/mqtt.go's "MQTT disabled" tolerance for a missing/unreachable
// broker.
func NewApp(cfg *Config) (*App, error) {
	cache, err := LoadCache(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("loading alignment cache: %w", err)
	}

	app := &App{Config: cfg, Cache: cache}

	if cfg.MQTT != nil {
		client, err := telemetry.Connect(*cfg.MQTT, 3)
		if err != nil {
			log.Printf("[icpalign] telemetry disabled: %v", err)
		} else {
			app.Pub = telemetry.NewPublisher(client)
		}
	}

	return app, nil
}

// Run executes every configured job in order, continuing past individual
// job failures (logged, not fatal) so one bad point cloud doesn't abort an
// entire batch run, and persists the cache once at the end.
func (a *App) Run() error {
	var firstErr error
	for _, job := range a.Config.Jobs {
		if err := runJob(job, a.Cache, a.Pub, a.Config.ReportDir); err != nil {
			log.Printf("[icpalign] %v", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
	}

	if err := a.Cache.Save(a.Config.CachePath); err != nil {
		return fmt.Errorf("saving alignment cache: %w", err)
	}
	return firstErr
}
