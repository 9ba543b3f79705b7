// The passenger binary runs a single passenger of one airlift as its own OS
// process, attached to the run's SysV shared memory and semaphore set by key.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/richinsley/airlift"
)

func main() {
	var (
		configPath = flag.String("config", "", "optional TOML run configuration")
		key        = flag.Int("key", 0, "IPC key of the shared segment and semaphore set")
		logPath    = flag.String("log", "", "append-only transition log path")
		errPath    = flag.String("errlog", "error_PG", "diagnostic stream path")
		id         = flag.Int("id", -1, "passenger identifier in [0, N)")
	)
	flag.Parse()

	logger, err := airlift.NewDiagnosticLogger(*errPath, fmt.Sprintf("passenger-%d", *id))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg := airlift.DefaultConfig()
	if *configPath != "" {
		cfg, err = airlift.LoadConfig(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("bad run configuration")
		}
	}
	if *key != 0 {
		cfg.Key = *key
	}
	if *logPath != "" {
		cfg.LogPath = *logPath
	}
	if *id < 0 || *id >= cfg.N {
		logger.Fatal().Int("id", *id).Int("passengers", cfg.N).Msg("passenger identifier out of range")
	}

	ipc, err := airlift.ConnectIPC(cfg.Key)
	if err != nil {
		logger.Fatal().Err(err).Int("key", cfg.Key).Msg("cannot attach to run")
	}

	evlog, err := airlift.OpenEventLog(cfg.LogPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot open transition log")
	}
	defer evlog.Close()

	passenger := airlift.NewPassenger(*id, cfg, ipc.State, ipc.Signals, evlog)

	if err := passenger.Run(); err != nil {
		logger.Fatal().Err(err).Msg("passenger terminated")
	}

	if err := ipc.Detach(); err != nil {
		logger.Fatal().Err(err).Msg("detach failed")
	}
	logger.Info().Msg("arrived at destination")
}
