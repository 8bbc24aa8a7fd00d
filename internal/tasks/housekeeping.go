// Package tasks runs the periodic housekeeping loops: reaction count
// recompute and the orphan upload sweep.
package tasks

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ReactionRecomputer recomputes the aggregate like/dislike counters on
// movies from the reaction rows.
type ReactionRecomputer interface {
	RecomputeReactionCounts(ctx context.Context) error
}

// StartReactionRecompute periodically refreshes movies.like_count and
// movies.dislike_count. The toggle endpoint never touches the
// aggregates, so this loop is the only writer and the counters may lag
// by up to the interval.
func StartReactionRecompute(ctx context.Context, movies ReactionRecomputer, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := movies.RecomputeReactionCounts(runCtx); err != nil {
			logger.Warn("reaction recompute failed", zap.Error(err))
		} else {
			logger.Debug("reaction counts recomputed")
		}
		cancel()
	}
}

// orphanAge is how long a staged upload may sit in the temp directory
// before the sweep removes it.
const orphanAge = 24 * time.Hour

// StartTempSweep periodically deletes staged uploads that were never
// attached to a movie. Upload names embed their creation time as
// <uuid>_<unix>.mp4; files with unparsable names are left alone.
func StartTempSweep(ctx context.Context, tempDir string, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if n, err := sweepOnce(tempDir, time.Now()); err != nil {
			logger.Warn("temp sweep failed", zap.Error(err))
		} else if n > 0 {
			logger.Info("temp sweep removed orphaned uploads", zap.Int("count", n))
		}
	}
}

func sweepOnce(tempDir string, now time.Time) (int, error) {
	entries, err := os.ReadDir(tempDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ts, ok := uploadTimestamp(e.Name())
		if !ok {
			continue
		}
		if now.Sub(time.Unix(ts, 0)) < orphanAge {
			continue
		}
		if err := os.Remove(filepath.Join(tempDir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// uploadTimestamp extracts the unix timestamp from an upload file name
// of the form <uuid>_<unix>.mp4.
func uploadTimestamp(name string) (int64, bool) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	idx := strings.LastIndexByte(base, '_')
	if idx < 0 {
		return 0, false
	}
	ts, err := strconv.ParseInt(base[idx+1:], 10, 64)
	if err != nil || ts <= 0 {
		return 0, false
	}
	return ts, true
}
