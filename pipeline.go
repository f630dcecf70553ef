package nkdvprep

import (
	"context"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Pipeline prepares aggregated observations for network kernel density estimation:
// canonicalizes edges, snaps points to the nearest edges and groups offsets per edge
type Pipeline struct {
	direction    DirectionTest
	workers      int
	indexSpacing float64
	logger       zerolog.Logger
}

func (pipeline *Pipeline) String() string {
	return fmt.Sprintf(`
Pipeline parameters:
	direction_test: %T %+v
	workers: %d
	index_spacing: %f
	`,
		pipeline.direction, pipeline.direction,
		pipeline.workers,
		pipeline.indexSpacing,
	)
}

// NewPipeline returns pipeline with default X-coordinate direction test, worker per CPU and automatic index spacing
func NewPipeline(options ...func(*Pipeline)) *Pipeline {
	pipeline := &Pipeline{
		direction:    XTolerance{Tolerance: DEFAULT_DIRECTION_TOLERANCE},
		workers:      0,
		indexSpacing: 0,
		logger:       zerolog.Nop(),
	}
	for _, option := range options {
		option(pipeline)
	}
	return pipeline
}

// WithDirectionTest sets test deciding whether edge geometry has to be reversed
func WithDirectionTest(direction DirectionTest) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.direction = direction
	}
}

// WithWorkers sets number of locating goroutines. Non-positive value means number of CPUs
func WithWorkers(workers int) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.workers = workers
	}
}

// WithIndexSpacing sets maximum distance between spatial index samples. Non-positive value means mean chord length
func WithIndexSpacing(indexSpacing float64) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.indexSpacing = indexSpacing
	}
}

// WithLogger sets logger for progress messages
func WithLogger(logger zerolog.Logger) func(*Pipeline) {
	return func(pipeline *Pipeline) {
		pipeline.logger = logger
	}
}

// Result is outcome of a single pipeline run
type Result struct {
	NodesNum    int
	EdgesNum    int
	Records     []EdgeRecord
	Projections []Projection
	Canonical   CanonicalizeReport
}

// Run canonicalizes graph edges (in place), projects points onto them and aggregates projections.
// Points must be in planar reference system of the graph: a batch lying completely outside of the network extent fails with ErrMalformedInput
func (pipeline *Pipeline) Run(ctx context.Context, g *Graph, pts []orb.Point) (*Result, error) {
	result := &Result{
		NodesNum: g.NodesNum(),
		EdgesNum: g.EdgesNum(),
	}

	st := time.Now()
	report, err := Canonicalize(g, pipeline.direction)
	if err != nil {
		return nil, errors.Wrap(err, "Can't canonicalize edges")
	}
	result.Canonical = report
	for _, key := range report.Mismatched {
		pipeline.logger.Warn().Stringer("edge", key).Msg("geometry matches none of edge endpoints, kept as is")
	}
	pipeline.logger.Info().Dur("elapsed", time.Since(st)).Int("reversed", report.Reversed).Int("mismatched", len(report.Mismatched)).Msg("edges canonicalized")

	result.Projections = make([]Projection, 0)
	if g.EdgesNum() != 0 || len(pts) != 0 {
		st = time.Now()
		locator, err := NewLocator(g.Edges(), WithSampleSpacing(pipeline.indexSpacing))
		if err != nil {
			return nil, errors.Wrap(err, "Can't build spatial index")
		}
		pipeline.logger.Info().Dur("elapsed", time.Since(st)).Float64("spacing", locator.spacing).Msg("spatial index built")

		if len(pts) != 0 {
			pointsBound := orb.MultiPoint(pts).Bound()
			if !locator.Bound().Intersects(pointsBound) {
				return nil, errors.Wrapf(ErrMalformedInput, "points extent %v does not intersect network extent %v, check CRS of network and points", pointsBound, locator.Bound())
			}
		}

		st = time.Now()
		result.Projections, err = locator.LocateAll(ctx, pts, pipeline.workers)
		if err != nil {
			return nil, errors.Wrap(err, "Can't locate points")
		}
		pipeline.logger.Info().Dur("elapsed", time.Since(st)).Int("points", len(pts)).Msg("points projected")
	}

	st = time.Now()
	result.Records, err = Aggregate(g.Edges(), result.Projections)
	if err != nil {
		return nil, errors.Wrap(err, "Can't aggregate observations")
	}
	pipeline.logger.Info().Dur("elapsed", time.Since(st)).Int("records", len(result.Records)).Msg("observations aggregated")
	return result, nil
}

// WriteFile writes records of the result to the file atomically
func (result *Result) WriteFile(fname string, precision int) error {
	return WriteRecordsFile(fname, result.NodesNum, result.EdgesNum, result.Records, precision)
}

// ResultStats is summary of a run
type ResultStats struct {
	Points        int
	EdgesObserved int
	MaxCount      int
	MeanDistance  float64
	MaxDistance   float64
}

// Stats returns summary of the result
func (result *Result) Stats() ResultStats {
	stats := ResultStats{
		Points: len(result.Projections),
	}
	for _, record := range result.Records {
		if record.Count() > 0 {
			stats.EdgesObserved++
		}
		if record.Count() > stats.MaxCount {
			stats.MaxCount = record.Count()
		}
	}
	for _, projection := range result.Projections {
		stats.MeanDistance += projection.Distance
		if projection.Distance > stats.MaxDistance {
			stats.MaxDistance = projection.Distance
		}
	}
	if len(result.Projections) != 0 {
		stats.MeanDistance /= float64(len(result.Projections))
	}
	return stats
}
