package prepare

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LdDl/nkdvprep/internal/config"
	"github.com/LdDl/nkdvprep/internal/logger"
	"github.com/LdDl/nkdvprep/internal/runner"
)

var (
	Cmd = &cobra.Command{
		Use:   "prepare",
		Short: "snap point observations onto road network and write per-edge offsets",
		Run: func(cmd *cobra.Command, args []string) {
			if err := logger.SetLogLevel(Config.Log.Level, Config.Log.Format); err != nil {
				log.Fatal().Err(err).Msg("")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			report, err := runner.RunPrepare(ctx, Config, log.Logger)
			if err != nil {
				log.Fatal().Err(err).Msg("cannot prepare observations")
			}
			if !quiet {
				report.Render(os.Stdout)
			}
		},
	}
	Config = config.NewConfig()
	quiet  bool
)

func init() {
	defaults := config.Default()

	Cmd.Flags().StringP("network-format", "", defaults.Network.Format, "network source format [csv|geojson|osm]")
	Cmd.Flags().StringP("nodes", "", "", "nodes CSV file (csv network format)")
	Cmd.Flags().StringP("edges", "", "", "edges CSV file (csv network format)")
	Cmd.Flags().StringP("network", "", "", "network file (geojson and osm network formats)")
	Cmd.Flags().StringP("network-crs", "", defaults.Network.CRS, "network coordinates [planar|wgs84]")
	Cmd.Flags().StringSliceP("highway-tags", "", []string{}, "OSM highway tags to keep (osm network format)")

	Cmd.Flags().StringP("points", "p", "", "points file: 'x y' per line, optionally gzipped")
	Cmd.Flags().StringP("points-crs", "", defaults.Points.CRS, "points coordinates [planar|wgs84]")
	Cmd.Flags().Float64P("max-skip-ratio", "", defaults.Points.MaxSkipRatio, "maximum share of malformed point rows")

	Cmd.Flags().StringP("direction", "", defaults.Engine.Direction, "geometry direction test [x-tolerance|endpoint-distance]")
	Cmd.Flags().Float64P("tolerance", "", defaults.Engine.Tolerance, "tolerance of x-tolerance direction test")
	Cmd.Flags().IntP("jobs", "j", defaults.Engine.Workers, "number of locating workers (0 means number of CPUs)")
	Cmd.Flags().Float64P("index-spacing", "", defaults.Engine.IndexSpacing, "maximum distance between index samples (0 means mean chord length)")

	Cmd.Flags().StringP("out", "o", "", "output file")
	Cmd.Flags().IntP("precision", "", defaults.Output.Precision, "digits after decimal point in offsets (negative means shortest exact)")
	Cmd.Flags().StringP("edges-csv", "", "", "optional file for canonicalized edges")

	Cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not print summary table")

	for flagName, key := range map[string]string{
		"network-format": "network.format",
		"nodes":          "network.nodes",
		"edges":          "network.edges",
		"network":        "network.file",
		"network-crs":    "network.crs",
		"highway-tags":   "network.highway_tags",
		"points":         "points.file",
		"points-crs":     "points.crs",
		"max-skip-ratio": "points.max_skip_ratio",
		"direction":      "engine.direction",
		"tolerance":      "engine.tolerance",
		"jobs":           "engine.workers",
		"index-spacing":  "engine.index_spacing",
		"out":            "output.file",
		"precision":      "output.precision",
		"edges-csv":      "output.edges_csv",
	} {
		flag := Cmd.Flags().Lookup(flagName)
		if err := viper.BindPFlag(key, flag); err != nil {
			log.Fatal().Err(err).Msg("")
		}
	}
}
