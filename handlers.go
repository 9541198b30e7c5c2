package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/geo/r3"

	"github.com/kwv/icp3d/icp"
	"github.com/kwv/icp3d/linalg"
	"github.com/kwv/icp3d/pointset"
	"github.com/kwv/icp3d/report"
	"github.com/kwv/icp3d/telemetry"
)

// iterationReporter builds an icp.Config.OnIteration hook that always
// records a report.IterationSample per iteration (for the optional
// convergence chart) and, when pub is non-nil, also streams the same
// diagnostics to MQTT via PublishIteration — the production call site the
// telemetry package's publisher otherwise lacks.
func iterationReporter(jobID string, pub *telemetry.Publisher, samples *[]report.IterationSample) func(icp.IterationEvent) {
	return func(ev icp.IterationEvent) {
		*samples = append(*samples, report.IterationSample{
			Iteration:        ev.Iteration,
			RMS:              ev.RMS,
			MaxDistance:      ev.MaxDistance,
			NormDotThreshold: ev.NormDotThreshold,
		})
		if pub == nil {
			return
		}
		if err := pub.PublishIteration(telemetry.IterationUpdate{
			JobID:            jobID,
			Iteration:        ev.Iteration,
			PairCount:        ev.PairCount,
			MaxDistance:      ev.MaxDistance,
			NormDotThreshold: ev.NormDotThreshold,
			RMS:              ev.RMS,
		}); err != nil {
			log.Printf("[icpalign] job %s: publishing iteration %d telemetry: %v", jobID, ev.Iteration, err)
		}
	}
}

// transformedPositions applies xf to every vertex of c, used to project an
// aligned point set into its reference frame before footprint export.
func transformedPositions(c *pointset.Cloud, xf linalg.Transform) []r3.Vector {
	out := make([]r3.Vector, c.Len())
	for i := 0; i < c.Len(); i++ {
		out[i] = xf.Apply(c.Position(i))
	}
	return out
}

// loadPointCloud dispatches on file extension between the .xyzn text format
// and the JSON CloudFile schema, mirroring mesh/decoder.go's format
// sniffing but keyed on extension rather than payload magic bytes since
// on-disk point clouds don't carry the PNG/zTXt ambiguity vacuum maps do.
func loadPointCloud(path string) (*pointset.Cloud, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return pointset.ParseCloudFile(path)
	default:
		return pointset.LoadXYZN(path)
	}
}

// runJob executes one alignment job: load both clouds, run the ICP core,
// record the result in the cache, and (if configured) emit a report and
// telemetry.
func runJob(j AlignJobConfig, cache *AlignmentCache, pub *telemetry.Publisher, reportDir string) error {
	source, err := loadPointCloud(j.SourcePath)
	if err != nil {
		return fmt.Errorf("job %s: loading source: %w", j.ID, err)
	}
	target, err := loadPointCloud(j.TargetPath)
	if err != nil {
		return fmt.Errorf("job %s: loading target: %w", j.ID, err)
	}

	sourceID, targetID := j.ID+"-source", j.ID+"-target"
	xf := linalg.Identity()
	if cached, ok := cache.Get(sourceID, targetID); ok {
		xf = cached.Transform
	}

	cfg := buildJobConfig(j)
	xformType := resolveXformType(j.XformType)

	var samples []report.IterationSample
	cfg.OnIteration = iterationReporter(j.ID, pub, &samples)

	log.Printf("[icpalign] job %s: aligning %d source vertices to %d target vertices (%s)",
		j.ID, source.Len(), target.Len(), j.XformType)

	rms := icp.AlignAuto(target, source, linalg.Identity(), &xf, j.MaxDistance, cfg, xformType)
	if rms == icp.FailureSentinel {
		if pub != nil {
			_ = pub.PublishResult(telemetry.JobResult{JobID: j.ID, Failed: true})
		}
		return fmt.Errorf("job %s: alignment failed (insufficient overlap or correspondences)", j.ID)
	}

	log.Printf("[icpalign] job %s: converged with rms=%.6g", j.ID, rms)
	cache.Put(sourceID, targetID, xf, rms)

	if pub != nil {
		_ = pub.PublishResult(telemetry.JobResult{JobID: j.ID, RMS: rms})
	}

	if reportDir != "" {
		if err := writeJobReport(reportDir, j.ID, source, xf, samples, j.Chart); err != nil {
			log.Printf("[icpalign] job %s: report generation failed: %v", j.ID, err)
		}
	}
	return nil
}

// writeJobReport renders a GeoJSON footprint of the aligned source cloud
// (in the target's frame) alongside the job ID, generalizing the teacher's
// "render composite map, write to disk" CLI step (mesh/renderer.go via
// main.go's --render mode) to a single-job footprint export. When chart is
// true it additionally renders a PNG convergence chart from the iteration
// samples collected by iterationReporter.
func writeJobReport(dir, jobID string, source *pointset.Cloud, xf linalg.Transform, samples []report.IterationSample, chart bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	xyz := transformedPositions(source, xf)
	fc := report.FootprintFeatureCollection(jobID, xyz, nil)
	data, err := report.MarshalFootprint(fc)
	if err != nil {
		return fmt.Errorf("marshaling footprint: %w", err)
	}

	path := filepath.Join(dir, jobID+"-footprint.geojson")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing footprint: %w", err)
	}
	log.Printf("[icpalign] job %s: wrote footprint to %s", jobID, path)

	if chart {
		if err := writeConvergenceChart(dir, jobID, samples); err != nil {
			log.Printf("[icpalign] job %s: chart generation failed: %v", jobID, err)
		}
	}
	return nil
}

// writeConvergenceChart renders samples as a PNG convergence chart to
// <dir>/<jobID>-convergence.png.
func writeConvergenceChart(dir, jobID string, samples []report.IterationSample) error {
	path := filepath.Join(dir, jobID+"-convergence.png")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart file: %w", err)
	}
	defer f.Close()

	if err := report.NewConvergenceChart(samples).RenderToPNG(f); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	log.Printf("[icpalign] job %s: wrote convergence chart to %s", jobID, path)
	return nil
}
