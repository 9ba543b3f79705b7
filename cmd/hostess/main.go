// The hostess binary runs the boarding agent of one airlift as its own OS
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
		errPath    = flag.String("errlog", "error_HT", "diagnostic stream path")
	)
	flag.Parse()

	logger, err := airlift.NewDiagnosticLogger(*errPath, "hostess")
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

	ipc, err := airlift.ConnectIPC(cfg.Key)
	if err != nil {
		logger.Fatal().Err(err).Int("key", cfg.Key).Msg("cannot attach to run")
	}

	evlog, err := airlift.OpenEventLog(cfg.LogPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot open transition log")
	}
	defer evlog.Close()

	hostess := airlift.NewHostess(cfg, ipc.State, ipc.Signals, evlog)
	logger.Info().Int("passengers", cfg.N).Msg("hostess on duty")

	// Single fatal-mapping point: any protocol error terminates the process
	// immediately, leaving shared state as-is for the post-mortem.
	if err := hostess.Run(); err != nil {
		logger.Fatal().Err(err).Msg("hostess terminated")
	}

	if err := ipc.Detach(); err != nil {
		logger.Fatal().Err(err).Msg("detach failed")
	}
	logger.Info().Msg("airlift complete")
}
