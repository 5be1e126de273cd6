package main

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/habedi/hrdesk/cmd"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// main sets up logging from DEBUG_HRDESK, cancels the running command on the
// first interrupt and exits on the second.
func main() {
	configureLogLevelFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopChan := setupInterruptListener()
	go handleInterrupt(stopChan, cancel, func(msg string) { log.Error().Msg(msg) }, os.Exit)

	code := cmd.Execute(ctx)
	cancel()
	os.Exit(code)
}

// configureLogLevelFromEnv enables debug logging to stderr unless DEBUG_HRDESK
// is empty, "0" or "false".
func configureLogLevelFromEnv() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEBUG_HRDESK"))) {
	case "", "0", "false":
		zerolog.SetGlobalLevel(zerolog.Disabled)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func setupInterruptListener() chan os.Signal {
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt)
	return stopChan
}

// handleInterrupt cancels the command on the first signal. A second signal
// exits immediately.
func handleInterrupt(stopChan chan os.Signal, cancel context.CancelFunc, fatalLog func(string), exit func(int)) {
	<-stopChan
	log.Warn().Msg("Interrupt signal received, cancelling...")
	cancel()
	<-stopChan
	fatalLog("Interrupt signal received. Exiting...")
	exit(1)
}
