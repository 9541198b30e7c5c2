package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kwv/icp3d/linalg"
)

// DefaultCachePath is the default path for the alignment cache file.
const DefaultCachePath = ".icp3d-cache.json"

// CachedAlignment is one entry of an AlignmentCache: the last-computed
// transform between a source and target set, its RMS error, and when it
// was computed.
type CachedAlignment struct {
	Transform   linalg.Transform `json:"transform"`
	RMS         float64          `json:"rms"`
	LastUpdated int64            `json:"lastUpdated"`
}

// AlignmentCache maps (sourceID, targetID) pairs to their last-computed
// alignment, generalizing the teacher's CalibrationData
// (mesh/calibration.go) from a fixed reference vacuum to arbitrary set
// pairs.
type AlignmentCache struct {
	Entries map[string]CachedAlignment `json:"entries"`
}

func pairKey(sourceID, targetID string) string {
	return sourceID + "->" + targetID
}

// LoadCache loads an AlignmentCache from a JSON file. A missing file is not
// an error; it returns an empty cache.
func LoadCache(path string) (*AlignmentCache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &AlignmentCache{Entries: make(map[string]CachedAlignment)}, nil
		}
		return nil, fmt.Errorf("reading alignment cache: %w", err)
	}

	var cache AlignmentCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("parsing alignment cache: %w", err)
	}
	if cache.Entries == nil {
		cache.Entries = make(map[string]CachedAlignment)
	}
	return &cache, nil
}

// Save writes the cache to path as indented JSON, creating parent
// directories as needed.
func (c *AlignmentCache) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating alignment cache directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling alignment cache: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing alignment cache: %w", err)
	}
	return nil
}

// Put records the outcome of an alignment call, stamping the current time.
func (c *AlignmentCache) Put(sourceID, targetID string, xf linalg.Transform, rms float64) {
	if c.Entries == nil {
		c.Entries = make(map[string]CachedAlignment)
	}
	c.Entries[pairKey(sourceID, targetID)] = CachedAlignment{
		Transform:   xf,
		RMS:         rms,
		LastUpdated: time.Now().Unix(),
	}
}

// Get retrieves the cached alignment for a pair, if present.
func (c *AlignmentCache) Get(sourceID, targetID string) (CachedAlignment, bool) {
	if c == nil || c.Entries == nil {
		return CachedAlignment{}, false
	}
	entry, ok := c.Entries[pairKey(sourceID, targetID)]
	return entry, ok
}

// NeedsRealign reports whether the cached alignment for a pair is missing
// or older than maxAge, generalizing mesh.CalibrationData.NeedsRecalibration
// from a single global timestamp to a per-pair one.
func (c *AlignmentCache) NeedsRealign(sourceID, targetID string, maxAge time.Duration) bool {
	entry, ok := c.Get(sourceID, targetID)
	if !ok || entry.LastUpdated == 0 {
		return true
	}
	return time.Since(time.Unix(entry.LastUpdated, 0)) > maxAge
}
