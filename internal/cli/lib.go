package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edp1096/spicelib/pkg/assembler"
	"github.com/edp1096/spicelib/pkg/attrstore"
	"github.com/edp1096/spicelib/pkg/library"
	"github.com/edp1096/spicelib/pkg/netlist"
	"github.com/edp1096/spicelib/pkg/util"
)

var errNoStore = errors.New("no attribute store is configured; set store.path")

func newLibCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lib",
		Short: "Index and query the subcircuit library",
		Example: `  # Index the configured roots and report duplicates
  spice lib index

  # Find definitions by name or metadata
  spice lib search tweeter

  # Range query over derived parameters
  spice lib query fs=20:40 qts=:0.5`,
	}

	cmd.AddCommand(newLibIndexCommand(a))
	cmd.AddCommand(newLibSearchCommand(a))
	cmd.AddCommand(newLibLookupCommand(a))
	cmd.AddCommand(newLibQueryCommand(a))
	return cmd
}

// requireCatalog is catalog for commands that are meaningless without one.
func (a *app) requireCatalog(ctx context.Context) (*library.Catalog, error) {
	cat, err := a.catalog(ctx)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, assembler.ErrLibraryUnavailable
	}
	return cat, nil
}

type indexSummary struct {
	Generation  uint64              `json:"generation" yaml:"generation"`
	Roots       []string            `json:"roots" yaml:"roots"`
	Definitions int                 `json:"definitions" yaml:"definitions"`
	Duplicates  []library.Duplicate `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	Problems    []string            `json:"problems,omitempty" yaml:"problems,omitempty"`
	Synced      bool                `json:"synced" yaml:"synced"`
}

func newLibIndexCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Index the library roots and sync the attribute store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			cat, err := a.requireCatalog(ctx)
			if err != nil {
				return err
			}
			snap := cat.Snapshot()

			summary := indexSummary{
				Generation:  snap.Generation,
				Roots:       snap.Roots,
				Definitions: snap.Len(),
				Duplicates:  snap.Duplicates,
			}
			for _, p := range snap.Problems {
				summary.Problems = append(summary.Problems, p.String())
			}

			if a.cfg.Store.Path != "" {
				if err := a.syncStore(ctx, snap, func(*attrstore.Store) error { return nil }); err != nil {
					return err
				}
				summary.Synced = true
			}

			return a.render(cmd.OutOrStdout(), summary, func(w io.Writer) {
				color.New(color.FgGreen, color.Bold).Fprintf(w, "indexed %d definitions", summary.Definitions)
				fmt.Fprintf(w, " (generation %d)\n", summary.Generation)
				yellow := color.New(color.FgYellow)
				for _, d := range summary.Duplicates {
					yellow.Fprintf(w, "  duplicate %s: %s replaces %s\n", d.Name, d.Kept, d.Replaced)
				}
				for _, p := range summary.Problems {
					yellow.Fprintf(w, "  skipped: %s\n", p)
				}
				if summary.Synced {
					fmt.Fprintf(w, "  attribute store synced: %s\n", a.cfg.Store.Path)
				}
			})
		},
	}
}

func newLibSearchCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search definitions by name and metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.requireCatalog(commandContext(cmd))
			if err != nil {
				return err
			}

			found := cat.Search(args[0], limit)
			views := make([]definitionView, 0, len(found))
			for _, def := range found {
				views = append(views, newDefinitionView(def))
			}

			return a.render(cmd.OutOrStdout(), views, func(w io.Writer) {
				if len(views) == 0 {
					fmt.Fprintf(w, "no definitions match %q\n", args[0])
					return
				}
				for _, def := range found {
					color.New(color.FgCyan).Fprint(w, def.Name)
					fmt.Fprintf(w, "  %s  %s:%d\n", strings.Join(def.Ports, " "), def.Source, def.Line)
				}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum results, 0 for all")
	return cmd
}

type definitionView struct {
	Name     string             `json:"name" yaml:"name"`
	Ports    []string           `json:"ports" yaml:"ports"`
	Defaults map[string]string  `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Metadata map[string]string  `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Derived  map[string]float64 `json:"derived,omitempty" yaml:"derived,omitempty"`
	Source   string             `json:"source" yaml:"source"`
	Line     int                `json:"line" yaml:"line"`
}

func newDefinitionView(def *library.Definition) definitionView {
	v := definitionView{
		Name:     def.Name,
		Ports:    def.Ports,
		Metadata: def.Metadata,
		Derived:  def.Derived,
		Source:   def.Source,
		Line:     def.Line,
	}
	for _, p := range def.Defaults {
		if v.Defaults == nil {
			v.Defaults = make(map[string]string)
		}
		v.Defaults[p.Key] = p.Value
	}
	return v
}

func newLibLookupCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <name>",
		Short: "Show one definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.requireCatalog(commandContext(cmd))
			if err != nil {
				return err
			}
			def, ok := cat.Lookup(args[0])
			if !ok {
				return &assembler.SubcircuitNotFoundError{Name: args[0]}
			}

			return a.render(cmd.OutOrStdout(), newDefinitionView(def), func(w io.Writer) {
				writeDefinition(w, def)
			})
		},
	}
}

func writeDefinition(w io.Writer, def *library.Definition) {
	title := color.New(color.FgCyan, color.Bold)
	title.Fprintln(w, def.Name)
	fmt.Fprintf(w, "  ports:  %s\n", strings.Join(def.Ports, " "))
	fmt.Fprintf(w, "  source: %s:%d\n", def.Source, def.Line)
	for _, p := range def.Defaults {
		fmt.Fprintf(w, "  param:  %s=%s\n", p.Key, p.Value)
	}

	keys := make([]string, 0, len(def.Derived))
	for key := range def.Derived {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(w, "  %-6s  %s\n", key+":", util.FormatDerived(key, def.Derived[key]))
	}
}

func newLibQueryCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "query <key=min:max>...",
		Short: "Find definitions by derived parameter ranges",
		Long: `Find definitions whose derived parameters fall in every given range.

Bounds accept engineering suffixes and either side may be left open:
fs=20:40, qts=:0.4, re=6:, znom=8.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Store.Path == "" {
				return errNoStore
			}

			ranges := make([]attrstore.Range, 0, len(args))
			for _, arg := range args {
				r, err := attrstore.ParseRange(arg, netlist.ParseValue)
				if err != nil {
					return err
				}
				ranges = append(ranges, r)
			}

			ctx := commandContext(cmd)
			cat, err := a.requireCatalog(ctx)
			if err != nil {
				return err
			}

			var names []string
			err = a.syncStore(ctx, cat.Snapshot(), func(store *attrstore.Store) error {
				var err error
				names, err = store.Query(ctx, ranges, limit)
				return err
			})
			if err != nil {
				return err
			}

			return a.render(cmd.OutOrStdout(), names, func(w io.Writer) {
				if len(names) == 0 {
					fmt.Fprintln(w, "no definitions match")
					return
				}
				for _, name := range names {
					fmt.Fprintln(w, name)
				}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum results, 0 for all")
	return cmd
}

// syncStore rewrites the attribute store from snap and runs fn against it.
// Each run indexes afresh and starts again at generation 1, so a matching
// generation says nothing about the files on disk.
func (a *app) syncStore(ctx context.Context, snap *library.Snapshot, fn func(*attrstore.Store) error) error {
	store, err := attrstore.Open(a.cfg.Store.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	stale, err := store.Stale(ctx, snap)
	if err != nil {
		return err
	}
	if err := store.Sync(ctx, snap); err != nil {
		return err
	}
	a.logger.Debug("attribute store synced",
		zap.String("path", a.cfg.Store.Path),
		zap.Uint64("generation", snap.Generation),
		zap.Bool("was_stale", stale))

	return fn(store)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
