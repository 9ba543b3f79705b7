package airlift

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the constants of a single simulation run. They are fixed for
// the run's lifetime and every attached process must use identical values.
type Config struct {
	// N is the total number of passengers the airlift must move.
	N int

	// MinFC and MaxFC bound the number of passengers a flight may depart with.
	MinFC int
	MaxFC int

	// MaxTravel bounds the random delay a passenger spends traveling to the
	// airport. Zero disables the delay entirely.
	MaxTravel time.Duration

	// MaxFlightTime bounds the pilot's simulated flight duration.
	MaxFlightTime time.Duration

	// Key identifies the SysV shared memory segment and semaphore set when
	// running one actor per OS process.
	Key int

	// LogPath is the shared append-only transition log.
	LogPath string

	// ErrorDir is the directory per-actor diagnostic streams are written to.
	ErrorDir string
}

// fileConfig maps airlift.toml keys onto Config fields.
type fileConfig struct {
	Passengers  int    `toml:"passengers"`
	MinCapacity int    `toml:"min_flight_capacity"`
	MaxCapacity int    `toml:"max_flight_capacity"`
	MaxTravelMs int    `toml:"max_travel_ms"`
	MaxFlightMs int    `toml:"max_flight_ms"`
	Key         int    `toml:"ipc_key"`
	LogPath     string `toml:"log_path"`
	ErrorDir    string `toml:"error_dir"`
}

// DefaultConfig returns the run parameters used when no config file is given.
func DefaultConfig() Config {
	return Config{
		N:             10,
		MinFC:         3,
		MaxFC:         5,
		MaxTravel:     100 * time.Millisecond,
		MaxFlightTime: 50 * time.Millisecond,
		Key:           0x414c, // "AL"
		LogPath:       "airlift.log",
		ErrorDir:      ".",
	}
}

// LoadConfig reads a TOML run configuration, overlaying any defined keys on
// top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("error loading airlift config: %v", err)
	}

	if meta.IsDefined("passengers") {
		cfg.N = raw.Passengers
	}
	if meta.IsDefined("min_flight_capacity") {
		cfg.MinFC = raw.MinCapacity
	}
	if meta.IsDefined("max_flight_capacity") {
		cfg.MaxFC = raw.MaxCapacity
	}
	if meta.IsDefined("max_travel_ms") {
		cfg.MaxTravel = time.Duration(raw.MaxTravelMs) * time.Millisecond
	}
	if meta.IsDefined("max_flight_ms") {
		cfg.MaxFlightTime = time.Duration(raw.MaxFlightMs) * time.Millisecond
	}
	if meta.IsDefined("ipc_key") {
		cfg.Key = raw.Key
	}
	if meta.IsDefined("log_path") {
		cfg.LogPath = strings.TrimSpace(raw.LogPath)
	}
	if meta.IsDefined("error_dir") {
		cfg.ErrorDir = strings.TrimSpace(raw.ErrorDir)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the run parameters describe a simulation that can
// actually terminate.
func (c Config) Validate() error {
	if c.N < 1 || c.N > MaxPassengers {
		return fmt.Errorf("passengers must be in [1, %d], got %d", MaxPassengers, c.N)
	}
	if c.MinFC < 1 {
		return fmt.Errorf("min flight capacity must be at least 1, got %d", c.MinFC)
	}
	if c.MaxFC < c.MinFC {
		return fmt.Errorf("max flight capacity %d is below min flight capacity %d", c.MaxFC, c.MinFC)
	}
	if c.MaxFC > MaxPassengers {
		return fmt.Errorf("max flight capacity must not exceed %d, got %d", MaxPassengers, c.MaxFC)
	}
	if c.MaxTravel < 0 || c.MaxFlightTime < 0 {
		return fmt.Errorf("travel and flight durations must not be negative")
	}
	return nil
}
