// The airlift binary launches a complete simulation run. By default it
// creates the run's SysV shared memory segment and semaphore set, spawns one
// OS process per actor (hostess, pilot, and N passengers), waits for all of
// them, and tears the IPC resources down. With -local every actor runs as a
// goroutine in this process instead, which works on any platform. With -dump
// it replays a transition log as text.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/richinsley/airlift"
	"github.com/rs/zerolog"
)

func main() {
	var (
		configPath = flag.String("config", "", "optional TOML run configuration")
		local      = flag.Bool("local", false, "run all actors in this process")
		dumpPath   = flag.String("dump", "", "replay a transition log and exit")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Str("actor", "launcher").Logger()

	if *dumpPath != "" {
		if err := dump(*dumpPath); err != nil {
			logger.Fatal().Err(err).Msg("cannot replay transition log")
		}
		return
	}

	cfg := airlift.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = airlift.LoadConfig(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("bad run configuration")
		}
	}

	var err error
	if *local {
		err = runLocal(cfg, logger)
	} else {
		err = runProcesses(cfg, *configPath, logger)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("airlift failed")
	}
	logger.Info().Msg("airlift complete")
}

// runLocal runs every actor as a goroutine of this process.
func runLocal(cfg airlift.Config, logger zerolog.Logger) error {
	evlog, err := airlift.OpenEventLog(cfg.LogPath)
	if err != nil {
		return err
	}
	defer evlog.Close()

	sim, err := airlift.NewSimulation(cfg, evlog)
	if err != nil {
		return err
	}
	logger.Info().Int("passengers", cfg.N).
		Int("min_capacity", cfg.MinFC).Int("max_capacity", cfg.MaxFC).
		Msg("starting in-process run")
	return sim.Run()
}

// runProcesses creates the run's IPC resources and spawns one OS process per
// actor, all attached by the configured key. Actor binaries are expected next
// to the launcher.
func runProcesses(cfg airlift.Config, configPath string, logger zerolog.Logger) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("error locating launcher: %v", err)
	}
	binDir := filepath.Dir(self)

	ipc, err := airlift.CreateIPC(cfg.Key)
	if err != nil {
		return err
	}
	defer func() {
		if err := ipc.Remove(); err != nil {
			logger.Error().Err(err).Msg("IPC teardown failed")
		}
	}()

	logger.Info().Int("key", cfg.Key).Int("passengers", cfg.N).
		Msg("run resources created, spawning actors")

	spawn := func(binary string, args ...string) (*exec.Cmd, error) {
		if configPath != "" {
			args = append(args, "-config", configPath)
		}
		args = append(args,
			"-key", strconv.Itoa(cfg.Key),
			"-log", cfg.LogPath,
		)
		cmd := exec.Command(filepath.Join(binDir, binary), args...)
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("error spawning %s: %v", binary, err)
		}
		return cmd, nil
	}

	var procs []*exec.Cmd
	pilot, err := spawn("pilot",
		"-errlog", filepath.Join(cfg.ErrorDir, "error_PT"))
	if err != nil {
		return err
	}
	procs = append(procs, pilot)

	hostess, err := spawn("hostess",
		"-errlog", filepath.Join(cfg.ErrorDir, "error_HT"))
	if err != nil {
		return err
	}
	procs = append(procs, hostess)

	for id := 0; id < cfg.N; id++ {
		passenger, err := spawn("passenger",
			"-id", strconv.Itoa(id),
			"-errlog", filepath.Join(cfg.ErrorDir, fmt.Sprintf("error_PG_%02d", id)))
		if err != nil {
			return err
		}
		procs = append(procs, passenger)
	}

	var firstErr error
	for _, cmd := range procs {
		if err := cmd.Wait(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("actor %s failed: %v", filepath.Base(cmd.Path), err)
		}
	}
	return firstErr
}

// dump replays a transition log as human-readable lines.
func dump(path string) error {
	events, err := airlift.ReadEvents(path)
	if err != nil {
		return err
	}
	for _, ev := range events {
		switch ev.Kind {
		case airlift.EventPassengerChecked:
			fmt.Printf("%d %-14s checked in passenger %d (queue=%d flight=%d boarded=%d)\n",
				ev.Time, ev.Actor, ev.Passenger, ev.NPassInQueue, ev.NPassInFlight, ev.TotalPassBoarded)
		case airlift.EventFlightDeparted:
			fmt.Printf("%d %-14s flight %d departed with %d aboard\n",
				ev.Time, ev.Actor, ev.NFlight, ev.Passenger)
		default:
			fmt.Printf("%d %-14s %s queue=%d flight=%d boarded=%d hostess=%s\n",
				ev.Time, ev.Actor, ev.Kind, ev.NPassInQueue, ev.NPassInFlight,
				ev.TotalPassBoarded, airlift.HostessStatus(ev.HostessStat))
		}
	}
	return nil
}
