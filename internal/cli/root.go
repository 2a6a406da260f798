package cli

import (
	"context"
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edp1096/spicelib/internal/config"
	"github.com/edp1096/spicelib/internal/logging"
	"github.com/edp1096/spicelib/pkg/assembler"
	"github.com/edp1096/spicelib/pkg/library"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
)

// app carries what every subcommand needs after flags are parsed.
type app struct {
	configFile string
	format     string
	noColor    bool

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCommand creates the spice command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "spice",
		Short: "Netlist import and subcircuit library tooling",
		Long: color.CyanString(`spice - netlist import and subcircuit library tooling

Imports SPICE netlists into circuits, resolving subcircuit instances
against an indexed library, and writes circuits back out as netlists.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "Config file (default ./spice.yaml or ~/.config/spice/spice.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.format, "format", "text", "Output format: text, json or yaml")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newImportCommand(a))
	rootCmd.AddCommand(newExportCommand(a))
	rootCmd.AddCommand(newCheckCommand(a))
	rootCmd.AddCommand(newLibCommand(a))

	return rootCmd
}

func (a *app) setup() error {
	if a.noColor {
		color.NoColor = true
	}
	switch a.format {
	case formatText, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown output format %q, want text, json or yaml", a.format)
	}

	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// catalog indexes the configured roots. It returns nil when no library is
// configured.
func (a *app) catalog(ctx context.Context) (*library.Catalog, error) {
	if !a.cfg.HasLibrary() {
		return nil, nil
	}
	return library.Index(ctx, a.cfg.Library.Roots,
		library.WithLogger(a.logger.Named("library")),
		library.WithExtensions(a.cfg.Library.Extensions))
}

func (a *app) assembler(ctx context.Context) (*assembler.Assembler, error) {
	cat, err := a.catalog(ctx)
	if err != nil {
		return nil, err
	}

	var lib assembler.Library
	if cat != nil {
		lib = cat
	}
	return assembler.New(lib, assembler.WithLogger(a.logger.Named("assembler"))), nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			titleColor := color.New(color.FgCyan, color.Bold)
			out := cmd.OutOrStdout()

			titleColor.Fprint(out, "spice version: ")
			fmt.Fprintln(out, Version)
			titleColor.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)
			titleColor.Fprint(out, "Go version: ")
			fmt.Fprintln(out, runtime.Version())
		},
	}
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
