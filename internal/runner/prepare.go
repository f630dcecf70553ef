package runner

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/LdDl/nkdvprep"
	"github.com/LdDl/nkdvprep/internal/config"
)

// PrepareReport is summary of prepare run
type PrepareReport struct {
	RunID   string
	Result  *nkdvprep.Result
	Points  *nkdvprep.PointsData
	Elapsed time.Duration
}

// LoadGraph builds graph from the network source described by configuration
func LoadGraph(cfg *config.NetworkConfig, logger zerolog.Logger) (*nkdvprep.Graph, error) {
	crs, err := nkdvprep.ParseCRS(cfg.CRS)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(cfg.Format) {
	case config.NetworkFormatCSV:
		return nkdvprep.ImportFromCSV(cfg.Nodes, cfg.Edges, crs)
	case config.NetworkFormatGeoJSON:
		return nkdvprep.ImportFromGeoJSON(cfg.File, crs)
	case config.NetworkFormatOSM:
		osmCfg := nkdvprep.DefaultOsmConfiguration()
		if len(cfg.HighwayTags) != 0 {
			osmCfg.Tags = cfg.HighwayTags
		}
		return nkdvprep.ImportFromOSMFile(cfg.File, osmCfg, logger)
	default:
		return nil, fmt.Errorf("unknown network format '%s'", cfg.Format)
	}
}

// RunPrepare loads network and points, runs pipeline and writes output file(s)
func RunPrepare(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*PrepareReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "Bad configuration")
	}
	report := &PrepareReport{
		RunID: uuid.NewString(),
	}
	logger = logger.With().Str("run_id", report.RunID).Logger()
	st := time.Now()

	g, err := LoadGraph(&cfg.Network, logger)
	if err != nil {
		return nil, errors.Wrap(err, "Can't load network")
	}
	logger.Info().Int("nodes", g.NodesNum()).Int("edges", g.EdgesNum()).Msg("network loaded")

	pointsCRS, err := nkdvprep.ParseCRS(cfg.Points.CRS)
	if err != nil {
		return nil, err
	}
	report.Points, err = nkdvprep.ReadPointsFile(cfg.Points.File, pointsCRS, cfg.Points.MaxSkipRatio)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read points")
	}
	if report.Points.Skipped > 0 {
		logger.Warn().Int("skipped", report.Points.Skipped).Ints("first_lines", report.Points.SkippedLines).Msg("malformed point rows skipped")
	}
	logger.Info().Int("points", len(report.Points.Points)).Msg("points loaded")

	pipeline := nkdvprep.NewPipeline(
		nkdvprep.WithDirectionTest(cfg.Engine.DirectionTest()),
		nkdvprep.WithWorkers(cfg.Engine.Workers),
		nkdvprep.WithIndexSpacing(cfg.Engine.IndexSpacing),
		nkdvprep.WithLogger(logger),
	)
	logger.Debug().Msg(pipeline.String())
	report.Result, err = pipeline.Run(ctx, g, report.Points.Points)
	if err != nil {
		return nil, err
	}

	if err := report.Result.WriteFile(cfg.Output.File, cfg.Output.Precision); err != nil {
		return nil, errors.Wrap(err, "Can't write output")
	}
	logger.Info().Str("file", cfg.Output.File).Msg("output written")
	if cfg.Output.EdgesCSV != "" {
		if err := nkdvprep.ExportEdgesCSV(cfg.Output.EdgesCSV, g.Edges()); err != nil {
			return nil, errors.Wrap(err, "Can't write edges")
		}
		logger.Info().Str("file", cfg.Output.EdgesCSV).Msg("canonical edges written")
	}
	report.Elapsed = time.Since(st)
	return report, nil
}

// Render prints report as table
func (report *PrepareReport) Render(w io.Writer) {
	stats := report.Result.Stats()
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"parameter", "value"})
	table.AppendBulk([][]string{
		{"run id", report.RunID},
		{"nodes", fmt.Sprintf("%d", report.Result.NodesNum)},
		{"edges", fmt.Sprintf("%d", report.Result.EdgesNum)},
		{"points", fmt.Sprintf("%d", stats.Points)},
		{"skipped rows", fmt.Sprintf("%d", report.Points.Skipped)},
		{"reversed geometries", fmt.Sprintf("%d", report.Result.Canonical.Reversed)},
		{"mismatched geometries", fmt.Sprintf("%d", len(report.Result.Canonical.Mismatched))},
		{"edges with observations", fmt.Sprintf("%d", stats.EdgesObserved)},
		{"max observations per edge", fmt.Sprintf("%d", stats.MaxCount)},
		{"mean snap distance", fmt.Sprintf("%f", stats.MeanDistance)},
		{"max snap distance", fmt.Sprintf("%f", stats.MaxDistance)},
		{"elapsed", report.Elapsed.String()},
	})
	table.Render()
}
