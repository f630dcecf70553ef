package cmd

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LdDl/nkdvprep/cmd/nkdvprep/cmd/inspect"
	"github.com/LdDl/nkdvprep/cmd/nkdvprep/cmd/prepare"
	"github.com/LdDl/nkdvprep/internal/config"
)

var (
	Version    string
	Commit     string
	CommitDate string

	RootCmd = &cobra.Command{
		Use:   "nkdvprep",
		Short: "nkdvprep prepares point observations on a road network for network kernel density visualization",
		Long: "Reads road network (CSV, GeoJSON or OSM) and a file of point observations, " +
			"snaps every point onto the nearest edge and writes per-edge sorted offsets " +
			"in the plain text format consumed by NKDV solvers",
	}
	cfgFile string
	Config  = config.NewConfig()
)

// envKeys are configuration keys which could be overridden by NKDVPREP_* environment variables
var envKeys = []string{
	"log.level", "log.format",
	"network.format", "network.nodes", "network.edges", "network.file", "network.crs", "network.highway_tags",
	"points.file", "points.crs", "points.max_skip_ratio",
	"engine.direction", "engine.tolerance", "engine.workers", "engine.index_spacing",
	"output.file", "output.precision", "output.edges_csv",
}

func Execute() error {
	return RootCmd.Execute()
}

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				Commit = setting.Value
			}
			if setting.Key == "vcs.time" {
				CommitDate = setting.Value
			}
		}
	}
	if Version != "" {
		RootCmd.Version = fmt.Sprintf("%s %s %s", Version, Commit, CommitDate)
	} else {
		RootCmd.Version = fmt.Sprintf("%s %s", Commit, CommitDate)
	}

	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	RootCmd.PersistentFlags().StringP("log-format", "", config.LogFormatTextValue, "logging format [text|json]")
	RootCmd.PersistentFlags().StringP("log-level", "", zerolog.LevelInfoValue,
		fmt.Sprintf(
			"logging level %s|%s|%s",
			zerolog.LevelDebugValue,
			zerolog.LevelInfoValue,
			zerolog.LevelWarnValue,
		),
	)

	RootCmd.AddCommand(prepare.Cmd)
	RootCmd.AddCommand(inspect.Cmd)

	if err := viper.BindPFlag("log.format", RootCmd.PersistentFlags().Lookup("log-format")); err != nil {
		log.Fatal().Err(err).Msg("")
	}
	if err := viper.BindPFlag("log.level", RootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		log.Fatal().Err(err).Msg("")
	}

	RootCmd.InitDefaultCompletionCmd()
	RootCmd.InitDefaultHelpCmd()
	RootCmd.InitDefaultVersionFlag()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			log.Fatal().Err(err).Msg("error reading from config file")
		}
	}

	viper.SetEnvPrefix("NKDVPREP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := viper.BindEnv(key); err != nil {
			log.Fatal().Err(err).Msg("")
		}
	}

	if err := viper.Unmarshal(Config); err != nil {
		log.Fatal().Err(err).Msg("")
	}
}
