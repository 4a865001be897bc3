package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	crdberrors "github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/cbtkit/internal/config"
	"github.com/joshuapare/cbtkit/internal/logging"
	"github.com/joshuapare/cbtkit/internal/metrics"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	quiet   bool
	jsonOut bool

	// Populated by the root pre-run hook.
	settings   config.Settings
	logger     = zap.NewNop()
	mtx        *metrics.Metrics
	logCleanup = func() {}

	v = config.New()
	p = message.NewPrinter(language.English)
)

var rootCmd = &cobra.Command{
	Use:   "cbtctl",
	Short: "Incrementally replicate virtual disks using changed block tracking",
	Long: `cbtctl copies only the changed regions of a virtual disk from a source image
to a target image. Changed areas come from a changed-areas document or directly
from vCenter, are coalesced into larger regions, and are copied in fixed-size
chunks. The sync command carries the change token from one cycle to the next.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (yaml, toml or json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text or json)")
	rootCmd.PersistentFlags().String("log-file", "", "Write logs to this file instead of stderr")
	rootCmd.PersistentFlags().String("metrics-textfile", "", "Write Prometheus metrics to this file on exit")
}

// setup loads settings and builds the logger and metrics for the command
// about to run.
func setup(cmd *cobra.Command, _ []string) error {
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	s, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	settings = s

	level := s.LogLevel
	if verbose && !cmd.Flags().Changed("log-level") {
		level = "debug"
	}
	l, cleanup, err := logging.NewLogger(logging.Config{Format: s.LogFormat, Level: level, File: s.LogFile})
	if err != nil {
		return err
	}
	logger, logCleanup = l, cleanup
	mtx = metrics.New()
	return nil
}

func execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if werr := mtx.WriteTextfile(settings.MetricsTextfile); werr != nil && err == nil {
		err = werr
	}
	_ = logger.Sync()
	logCleanup()

	if err != nil {
		printError("%v\n", err)
		for _, hint := range crdberrors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		return 1
	}
	return 0
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		p.Fprintf(os.Stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		p.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
