package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultStateFile is used when no state path is configured.
const DefaultStateFile = "svcspy_state.json"

// Configuration carries every knob the monitor needs. It is built once at
// startup and passed into the components explicitly; nothing reads the
// environment after this point.
type Configuration struct {
	// StateFilePath locates the persisted inventory JSON.
	StateFilePath string

	// TargetNames restricts the capture to the named services. Empty means
	// every service visible to the enumeration API.
	TargetNames []string

	// Verbose enables debug logging.
	Verbose bool

	// HistoryDSN, when set, enables the Postgres run-history store.
	HistoryDSN string
}

// LoadEnvConfig reads configuration from an optional env file plus the
// process environment. A missing env file is not an error; explicit flags are
// applied on top by the caller.
func LoadEnvConfig(configName string) (Configuration, error) {
	if configName != "" {
		if err := godotenv.Load(configName); err != nil && !os.IsNotExist(err) {
			return Configuration{}, fmt.Errorf("loading env file %s: %w", configName, err)
		}
	}

	cfg := Configuration{
		StateFilePath: DefaultStateFile,
	}

	if v := os.Getenv("SVCSPY_STATE_FILE"); v != "" {
		cfg.StateFilePath = v
	}
	if v := os.Getenv("SVCSPY_TARGETS"); v != "" {
		cfg.TargetNames = splitTargets(v)
	}
	if v := os.Getenv("SVCSPY_VERBOSE"); v != "" {
		verbose, err := strconv.ParseBool(v)
		if err != nil {
			return Configuration{}, fmt.Errorf("failed to parse SVCSPY_VERBOSE: %w", err)
		}
		cfg.Verbose = verbose
	}
	cfg.HistoryDSN = os.Getenv("SVCSPY_HISTORY_DSN")

	return cfg, nil
}

func splitTargets(value string) []string {
	parts := strings.Split(value, ",")
	targets := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			targets = append(targets, trimmed)
		}
	}
	return targets
}
