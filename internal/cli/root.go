// Package cli implements the ubjson command line tool.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/eigerco/ubjson/pkg/config"
	"github.com/eigerco/ubjson/pkg/log"
	"github.com/eigerco/ubjson/pkg/serialization/codec/ubjson"
)

// app is the state shared by every command of one invocation.
type app struct {
	// Global flags
	cfgFile        string
	logLevel       string
	logFormat      string
	storePath      string
	redundantClose bool

	// Set during PersistentPreRunE
	cfg *config.Config
}

// NewRootCmd builds the ubjson command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "ubjson",
		Short: "Encode, decode and inspect UBJSON documents",
		Long: `ubjson converts between JSON, CBOR and the marker-tagged UBJSON binary
format, prints annotated listings of UBJSON input and keeps documents in a
local checksummed store.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ~/.ubjson/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: console, json")
	rootCmd.PersistentFlags().StringVar(&a.storePath, "store", "", "document store directory")
	rootCmd.PersistentFlags().BoolVar(&a.redundantClose, "redundant-close", false, "accept an end marker after counted containers")

	rootCmd.AddCommand(
		a.encodeCmd(),
		a.decodeCmd(),
		a.dumpCmd(),
		a.convertCmd(),
		a.storeCmd(),
		a.serveCmd(),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	path := a.cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with flags
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}
	if flags.Changed("store") {
		cfg.StorePath = a.storePath
	}
	if flags.Changed("redundant-close") {
		cfg.RedundantClose = a.redundantClose
	}

	level, err := log.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	format, err := log.ParseLoggerType(cfg.LogFormat)
	if err != nil {
		return err
	}
	log.Init(log.Options{LogLevel: level, Type: format, Out: cmd.ErrOrStderr()})
	log.CLI.Debug().Str("config", path).Str("command", cmd.CommandPath()).Msg("starting")

	a.cfg = cfg
	return nil
}

func (a *app) decoderOptions() []ubjson.DecoderOption {
	if a.cfg != nil && a.cfg.RedundantClose {
		return []ubjson.DecoderOption{ubjson.WithRedundantClose()}
	}
	return nil
}

// readInput reads the file named by the first argument, or standard input when
// there is none or it is "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
