package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	OntologySource  string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	ShowVersion     bool
	Validate        bool

	Command string
	Args    []string
}

// parseFlags parses args (without the program name). The first positional
// argument selects the command; serve is the default.
func parseFlags(args []string, stderr io.Writer) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	// Define flags with environment variable fallback
	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("SONTO_CONFIG", ""),
		"Path to configuration file, JSON or YAML (env: SONTO_CONFIG)")

	fs.StringVar(&cfg.OntologySource, "ontology",
		getEnv("SONTO_ONTOLOGY", ""),
		"Ontology source: .obo, .obo.gz or .zip path, or "+bundledName+" (env: SONTO_ONTOLOGY)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("SONTO_LOG_LEVEL", ""),
		"Log level: debug, info, warn, error (env: SONTO_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("SONTO_LOG_FORMAT", ""),
		"Log format: json, text (env: SONTO_LOG_FORMAT)")

	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("SONTO_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout (env: SONTO_SHUTDOWN_TIMEOUT)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = func() {
		printDetailedHelp(fs, stderr)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Command = commandServe
	if rest := fs.Args(); len(rest) > 0 {
		cfg.Command = rest[0]
		cfg.Args = rest[1:]
	}

	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	if cfg.LogLevel != "" && !contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	if cfg.LogFormat != "" && !contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %v", cfg.ShutdownTimeout)
	}

	switch cfg.Command {
	case commandServe, commandTerms:
		if len(cfg.Args) != 0 {
			return fmt.Errorf("%s takes no arguments", cfg.Command)
		}
	case commandIsA:
		if len(cfg.Args) != 2 {
			return fmt.Errorf("usage: %s isa CHILD PARENT", appName)
		}
	default:
		return fmt.Errorf("unknown command: %s", cfg.Command)
	}

	return nil
}

func printDetailedHelp(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintf(w, `%s - Sequence Ontology reachability

Usage: %s [options] [command]

Commands:
  serve               Load the ontology and answer queries over NATS (default)
  isa CHILD PARENT    Exit 0 if CHILD is PARENT or one of its descendants, 1 if not
  terms               Print term and edge counts of the loaded ontology

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Examples:
  # One-shot query against the bundled ontology
  %s isa mRNA transcript

  # Query a downloaded release
  %s --ontology=so.obo.gz isa SO:0001583 sequence_variant

  # Serve with a config file
  export SONTO_CONFIG=/etc/sonto/config.yaml
  %s serve

  # Validate configuration only
  %s --validate

Version: %s
Build: %s
`, appName, appName, appName, appName, Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
