package inspect

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/LdDl/nkdvprep/internal/config"
	"github.com/LdDl/nkdvprep/internal/logger"
	"github.com/LdDl/nkdvprep/internal/runner"
)

var (
	Cmd = &cobra.Command{
		Use:   "inspect [flags] file",
		Short: "validate prepared file and print its summary",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := logger.SetLogLevel(Config.Log.Level, Config.Log.Format); err != nil {
				log.Fatal().Err(err).Msg("")
			}
			if err := runner.RunInspect(args[0], top, os.Stdout); err != nil {
				log.Fatal().Err(err).Msg("cannot inspect file")
			}
		},
	}
	Config = config.NewConfig()
	top    int
)

func init() {
	Cmd.Flags().IntVarP(&top, "top", "n", 10, "number of the most observed edges to print")
}
