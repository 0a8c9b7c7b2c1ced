// Package main implements the sonto command: one-shot Sequence Ontology
// is-a queries and a long-running NATS query service.
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/c360/sonto/config"
	"github.com/c360/sonto/ontology"
	"github.com/c360/sonto/ontology/obo"
)

// Build information constants
const (
	Version     = "0.1.0"
	BuildTime   = "dev"
	appName     = "sonto"
	bundledName = obo.Bundled
)

const (
	commandServe = "serve"
	commandIsA   = "isa"
	commandTerms = "terms"
)

// Exit codes follow grep: match, no match, trouble.
const (
	exitOK      = 0
	exitNoMatch = 1
	exitError   = 2
	exitPanic   = 3
)

// errNoMatch ends an isa query whose answer is false
var errNoMatch = stderrors.New("not a descendant")

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(exitPanic)
		}
	}()

	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and maps the outcome to an exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	err := execute(ctx, args, stdout, stderr)
	switch {
	case err == nil, stderrors.Is(err, flag.ErrHelp):
		return exitOK
	case stderrors.Is(err, errNoMatch):
		return exitNoMatch
	default:
		_, _ = fmt.Fprintf(stderr, "%s: %v\n", appName, err)
		return exitError
	}
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if err := validateFlags(cli); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cli.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s (build %s)\n", appName, Version, BuildTime)
		return nil
	}

	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	logger := setupLogger(stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	if cli.Validate {
		logger.Info("Configuration is valid", "config_path", cli.ConfigPath)
		return nil
	}

	switch cli.Command {
	case commandIsA:
		return runIsA(ctx, cfg, cli.Args[0], cli.Args[1], stdout, logger)
	case commandTerms:
		return runTerms(ctx, cfg, stdout, logger)
	default:
		logger.Info("Starting sonto",
			"version", Version,
			"build_time", BuildTime,
			"config_path", cli.ConfigPath)
		return runServe(ctx, cfg, cli.ShutdownTimeout, logger)
	}
}

// loadConfig layers defaults, the config file, SONTO_* variables and the
// command-line overrides, then validates the result.
func loadConfig(cli *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cli.ConfigPath != "" {
		loader.AddLayer(cli.ConfigPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cli.OntologySource != "" {
		cfg.Ontology.Source = cli.OntologySource
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.Logging.Format = cli.LogFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadEngine reads the configured ontology and builds a query engine
func loadEngine(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	opts ...ontology.Option,
) (*ontology.Engine, error) {
	graph, err := obo.Load(ctx, cfg.Ontology.Source,
		obo.WithLogger(logger),
		obo.WithArchiveEntry(cfg.Ontology.ArchiveEntry))
	if err != nil {
		return nil, fmt.Errorf("load ontology: %w", err)
	}

	engine, err := ontology.New(graph, append([]ontology.Option{ontology.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	return engine, nil
}

func runIsA(ctx context.Context, cfg *config.Config, child, parent string, stdout io.Writer, logger *slog.Logger) error {
	engine, err := loadEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}

	result := engine.IsA(child, parent)
	for _, id := range engine.NotFoundTerms() {
		logger.Warn("Term not found in ontology", "term", id)
	}

	_, _ = fmt.Fprintln(stdout, result)
	if !result {
		return errNoMatch
	}
	return nil
}

func runTerms(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *slog.Logger) error {
	engine, err := loadEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}

	obsolete := 0
	for _, t := range engine.Graph().Terms() {
		if t.Obsolete {
			obsolete++
		}
	}

	stats := engine.Stats()
	_, _ = fmt.Fprintf(stdout, "source:         %s\n", cfg.Ontology.Source)
	_, _ = fmt.Fprintf(stdout, "terms:          %d\n", stats.Terms)
	_, _ = fmt.Fprintf(stdout, "obsolete:       %d\n", obsolete)
	_, _ = fmt.Fprintf(stdout, "edges:          %d\n", stats.Edges)
	_, _ = fmt.Fprintf(stdout, "dangling_edges: %d\n", stats.DanglingEdges)
	return nil
}
