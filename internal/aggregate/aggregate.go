package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/pfrederiksen/district-ratings/internal/district"
	"github.com/pfrederiksen/district-ratings/internal/logger"
	"github.com/pfrederiksen/district-ratings/internal/scraper"
	"github.com/pfrederiksen/district-ratings/internal/storage"
)

// DefaultCheckpointEvery is the number of records between checkpoint writes.
const DefaultCheckpointEvery = 10

const metricProcessed = "districts.processed"

// ProgressFunc is called after each record, once its checkpoint (if any) is written.
type ProgressFunc func(done, total int, rec *district.Record)

// Options configures an Aggregator.
type Options struct {
	State           scraper.State
	OutputPath      string
	CheckpointEvery int
	Clock           func() time.Time
	Metrics         *logger.Metrics
	OnProgress      ProgressFunc
}

// Aggregator merges the output of several sources into one record per district.
type Aggregator struct {
	sources         []scraper.Source
	state           scraper.State
	output          string
	checkpoint      string
	checkpointEvery int
	now             func() time.Time
	metrics         *logger.Metrics
	onProgress      ProgressFunc
}

// New creates an Aggregator. Zero-valued options fall back to Pennsylvania,
// a checkpoint every ten records, the wall clock and the default metrics.
func New(sources []scraper.Source, opts Options) *Aggregator {
	if opts.State == (scraper.State{}) {
		opts.State = scraper.Pennsylvania
	}
	if opts.CheckpointEvery < 1 {
		opts.CheckpointEvery = DefaultCheckpointEvery
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = logger.DefaultMetrics()
	}

	return &Aggregator{
		sources:         sources,
		state:           opts.State,
		output:          opts.OutputPath,
		checkpoint:      storage.CheckpointPath(opts.OutputPath),
		checkpointEvery: opts.CheckpointEvery,
		now:             opts.Clock,
		metrics:         opts.Metrics,
		onProgress:      opts.OnProgress,
	}
}

// CheckpointPath returns the file checkpoints are written to.
func (a *Aggregator) CheckpointPath() string {
	return a.checkpoint
}

// Run looks up every district and writes the final table. Blank names are
// skipped. If ctx is cancelled between districts, the records collected so
// far are written to the checkpoint file and returned with ctx.Err().
// Only a failure to write the final table is returned as an error.
func (a *Aggregator) Run(ctx context.Context, names []string) ([]*district.Record, error) {
	total := len(names)
	records := make([]*district.Record, 0, total)

	logger.Info("Starting collection", logger.Fields{
		"districts": total,
		"sources":   len(a.sources),
		"output":    a.output,
	})
	start := time.Now()

	for i, name := range names {
		if err := ctx.Err(); err != nil {
			logger.Warn("Collection interrupted", logger.Fields{
				"done":  len(records),
				"total": total,
			})
			a.writeCheckpoint(records)
			return records, err
		}

		logger.Info("Processing district", logger.Fields{
			"district": name,
			"index":    fmt.Sprintf("%d/%d", i+1, total),
		})

		rec, err := a.Lookup(ctx, name)
		if err != nil {
			logger.Warn("Skipping district", logger.Fields{
				"index":  i + 1,
				"reason": err.Error(),
			})
			continue
		}

		records = append(records, rec)
		a.metrics.IncrCounter(metricProcessed)

		if len(records)%a.checkpointEvery == 0 {
			a.writeCheckpoint(records)
		}

		if a.onProgress != nil {
			a.onProgress(len(records), total, rec)
		}
	}

	if err := storage.WriteRecords(a.output, records); err != nil {
		return records, fmt.Errorf("writing output: %w", err)
	}

	logger.Info("Collection complete", logger.Fields{
		"records":  len(records),
		"output":   a.output,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	})

	return records, nil
}

// Lookup builds the record for a single district by asking every source in
// turn. A source that cannot locate the district leaves its columns absent.
// The only error is district.ErrEmptyName.
func (a *Aggregator) Lookup(ctx context.Context, name string) (*district.Record, error) {
	rec, err := district.NewRecord(name, a.now())
	if err != nil {
		return nil, err
	}

	for _, src := range a.sources {
		pageURL, ok := src.Locate(ctx, rec.DistrictName, a.state)
		if !ok {
			a.metrics.IncrCounter("source." + src.Name() + ".missed")
			logger.Debug("District not found", logger.Fields{
				"source":   src.Name(),
				"district": rec.DistrictName,
			})
			continue
		}

		a.metrics.IncrCounter("source." + src.Name() + ".located")
		rec.Merge(src.Extract(ctx, pageURL), src.Columns())
	}

	logger.Debug("District record built", logger.Fields{
		"district": rec.DistrictName,
		"found":    rec.Found(),
	})

	return rec, nil
}

func (a *Aggregator) writeCheckpoint(records []*district.Record) {
	if err := storage.WriteRecords(a.checkpoint, records); err != nil {
		logger.Error("Checkpoint write failed", logger.Fields{"path": a.checkpoint}, err)
		return
	}

	logger.Info("Checkpoint saved", logger.Fields{
		"records": len(records),
		"path":    a.checkpoint,
	})
}
