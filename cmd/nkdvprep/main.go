package main

import (
	"github.com/rs/zerolog/log"

	"github.com/LdDl/nkdvprep/cmd/nkdvprep/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("")
	}
}
