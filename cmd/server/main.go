package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"crmgate/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		log.Error().Err(err).Msg("crmgate failed")
		os.Exit(1)
	}
}
