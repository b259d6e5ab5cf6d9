// Package cmd provides CLI commands for billed.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pigeonworks-llc/billed/pkg/config"
	"github.com/pigeonworks-llc/billed/pkg/db"
	"github.com/pigeonworks-llc/billed/pkg/store"
)

var (
	cfgFile   string
	debug     bool
	logFormat string
	useMock   bool
)

// logFormatAnnotation lets a command pick its default log format.
const logFormatAnnotation = "log-format"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "billed",
	Short: "Employee expense reports",
	Long: `billed lets employees list their expense reports and submit new ones
with a receipt image.

It provides:
- A browser front end (serve)
- A local emulator of the bills backend (emulator)
- Command line access to the same workflow (bills list, bills new)
- Submission journal statistics (stats)

Example:
  billed emulator --seed
  billed serve
  billed bills list --email employee@test.tld`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		format := logFormat
		if format == "" {
			format = cmd.Annotations[logFormatAnnotation]
		}
		slog.SetDefault(newLogger(os.Stderr, format, debug))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text, json or pretty")
	rootCmd.PersistentFlags().BoolVar(&useMock, "mock", false, "use the in-memory fixtures store")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(emulatorCmd)
	rootCmd.AddCommand(billsCmd)
	rootCmd.AddCommand(statsCmd)
}

func newLogger(w io.Writer, format string, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	case "pretty":
		handler := log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			Prefix:          "billed",
		})
		if debug {
			handler.SetLevel(log.DebugLevel)
		}
		return slog.New(handler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Helper function to load the configuration, honouring --debug.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	exitOnError(err, "failed to load configuration")
	if debug {
		cfg.Debug = true
	}
	return cfg
}

// newStore returns the fixtures store with --mock or BILLED_MOCK_STORE,
// the HTTP client otherwise.
func newStore(cfg *config.Config) store.Store {
	if useMock || cfg.Web.MockStore {
		slog.Info("Using in-memory fixtures store")
		return store.NewMock(store.DefaultFixtures())
	}

	return store.NewClient(store.ClientConfig{
		APIURL:       cfg.Store.APIURL,
		ClientID:     cfg.Store.ClientID,
		ClientSecret: cfg.Store.ClientSecret,
		Timeout:      cfg.Store.Timeout,
	})
}

func openJournal(cfg *config.Config) (*db.Connection, *db.Journal) {
	slog.Debug("Opening journal", "path", cfg.History.DBPath)
	conn, err := db.Open(cfg.History.DBPath)
	exitOnError(err, "failed to open journal")
	return conn, db.NewJournal(conn)
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
