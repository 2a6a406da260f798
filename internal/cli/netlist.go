package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/edp1096/spicelib/pkg/circuit"
	"github.com/edp1096/spicelib/pkg/export"
	"github.com/edp1096/spicelib/pkg/importer"
	"github.com/edp1096/spicelib/pkg/netlist"
)

type importFlags struct {
	strictTitle bool
	name        string
}

func (f *importFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.strictTitle, "strict-title", false, "Always treat the first line as the title")
	cmd.Flags().StringVar(&f.name, "name", "", "Circuit name (default: file name)")
}

// loaded is an imported circuit held in a registry.
type loaded struct {
	registry *circuit.Registry
	id       string
	report   *importer.Report
}

// load reads path ("-" for stdin) and imports it into a fresh circuit.
func (a *app) load(cmd *cobra.Command, path string, flags *importFlags) (*loaded, error) {
	ctx := commandContext(cmd)

	text, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}

	asm, err := a.assembler(ctx)
	if err != nil {
		return nil, err
	}

	var parserOpts []netlist.Option
	if flags.strictTitle {
		parserOpts = append(parserOpts, netlist.WithTitleMode(netlist.TitleFirstLine))
	}
	im := importer.New(asm,
		importer.WithLogger(a.logger.Named("importer")),
		importer.WithParserOptions(parserOpts...))

	name := flags.name
	if name == "" {
		name = circuitName(path)
	}

	reg := circuit.NewRegistry()
	id := reg.Create(name)
	l := &loaded{registry: reg, id: id}
	err = reg.Do(id, func(c *circuit.Circuit) error {
		l.report = im.Import(ctx, c, text)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading netlist: %w", err)
	}
	return string(data), nil
}

func circuitName(path string) string {
	if path == "-" {
		return "stdin"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func newImportCommand(a *app) *cobra.Command {
	flags := &importFlags{}
	cmd := &cobra.Command{
		Use:   "import <netlist>",
		Short: "Import a netlist and report what was added",
		Example: `  # Import and print the report
  spice import amp.cir

  # Machine-readable report
  spice import amp.cir --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.load(cmd, args[0], flags)
			if err != nil {
				return err
			}
			if err := a.render(cmd.OutOrStdout(), l.report, func(w io.Writer) { writeReport(w, l.report) }); err != nil {
				return err
			}
			if l.report.Status == importer.StatusFailed {
				return fmt.Errorf("import failed: %w", l.report.Err())
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newExportCommand(a *app) *cobra.Command {
	var (
		flags       = &importFlags{}
		units       bool
		subcircuits bool
		output      string
	)
	cmd := &cobra.Command{
		Use:   "export <netlist>",
		Short: "Import a netlist and write the assembled circuit back out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.load(cmd, args[0], flags)
			if err != nil {
				return err
			}
			if l.report.Status == importer.StatusFailed {
				writeReport(cmd.ErrOrStderr(), l.report)
				return fmt.Errorf("import failed: %w", l.report.Err())
			}
			if l.report.Status == importer.StatusPartialSuccess {
				a.logger.Warn("exporting a partial import",
					zap.Int("failed", len(l.report.FailedComponents)+len(l.report.FailedModels)))
			}

			var opts []export.Option
			if units || (!cmd.Flags().Changed("units") && a.cfg.Export.Units) {
				opts = append(opts, export.WithUnits())
			}
			if subcircuits || (!cmd.Flags().Changed("subcircuits") && a.cfg.Export.Subcircuits) {
				opts = append(opts, export.WithSubcircuits())
			}

			write := func(w io.Writer) error {
				return l.registry.Do(l.id, func(c *circuit.Circuit) error {
					return export.Write(w, c, opts...)
				})
			}
			if output == "" {
				return write(cmd.OutOrStdout())
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output: %w", err)
			}
			err = write(f)
			if cerr := f.Close(); cerr != nil {
				err = multierr.Append(err, fmt.Errorf("closing output: %w", cerr))
			}
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&units, "units", false, "Write values with engineering suffixes")
	cmd.Flags().BoolVar(&subcircuits, "subcircuits", false, "Append the used .subckt definitions")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func newCheckCommand(a *app) *cobra.Command {
	flags := &importFlags{}
	cmd := &cobra.Command{
		Use:   "check <netlist>",
		Short: "Import a netlist and verify every node reaches ground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := a.load(cmd, args[0], flags)
			if err != nil {
				return err
			}
			if l.report.Status == importer.StatusFailed {
				writeReport(cmd.ErrOrStderr(), l.report)
				return fmt.Errorf("import failed: %w", l.report.Err())
			}

			return l.registry.Do(l.id, func(c *circuit.Circuit) error {
				if err := c.CheckConnectivity(); err != nil {
					return err
				}
				color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ %s: %d nodes, %d entities, connected\n",
					c.Name(), len(c.Nodes()), len(c.Entities()))
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}
