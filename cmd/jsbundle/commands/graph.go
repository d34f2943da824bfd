package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/jsbundle/pkg/bundler"
	"github.com/Sumatoshi-tech/jsbundle/pkg/observability"
)

// Graph output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatDot   = "dot"
)

// ErrUnknownFormat is returned for an unsupported --format value.
var ErrUnknownFormat = errors.New("unknown format")

// NewGraphCommand creates the graph subcommand.
func NewGraphCommand() *cobra.Command {
	var (
		entry    string
		manifest string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "graph [dir]",
		Short: "Show the module graph reachable from an entry",
		Long: `Graph resolves the imports of the entry module and prints every reachable
module in emission order with its imports, importers and exports.

Formats: table, json, yaml, dot (Graphviz).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) > 0 {
				dir = args[0]
			}

			return runGraph(cmd, dir, entry, manifest, format)
		},
	}

	cmd.Flags().StringVarP(&entry, "entry", "e", "", "entry module key (default from config, main.js)")
	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", `read entry and files from a JSON manifest ("-" for stdin)`)
	cmd.Flags().StringVarP(&format, "format", "f", FormatTable, "output format: table, json, yaml or dot")

	return cmd
}

func runGraph(cmd *cobra.Command, dir, entry, manifest, format string) error {
	switch format {
	case FormatTable, FormatJSON, FormatYAML, FormatDot:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	providers, err := initObservability(cfg, observability.ModeCLI)
	if err != nil {
		return err
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	entry, files, err := inputs(cfg, dir, manifest, entry, cmd.InOrStdin())
	if err != nil {
		return err
	}

	b, err := newBundler(cfg, providers, entry, files, false)
	if err != nil {
		return err
	}

	res, err := b.Build(cmd.Context())
	if err != nil {
		reportError(cmd.ErrOrStderr(), err)

		return ErrBundleFailed
	}

	return writeGraph(cmd.OutOrStdout(), res, format)
}

func writeGraph(w io.Writer, res *bundler.Result, format string) error {
	switch format {
	case FormatDot:
		_, err := fmt.Fprintln(w, bundler.Dot(res))
		if err != nil {
			return fmt.Errorf("write graph: %w", err)
		}

		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		err := enc.Encode(bundler.NewGraphReport(res))
		if err != nil {
			return fmt.Errorf("encode graph: %w", err)
		}

		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		err := enc.Encode(bundler.NewGraphReport(res))
		if err != nil {
			return fmt.Errorf("encode graph: %w", err)
		}

		err = enc.Close()
		if err != nil {
			return fmt.Errorf("encode graph: %w", err)
		}

		return nil
	default:
		_, err := fmt.Fprintln(w, graphTable(bundler.NewGraphReport(res)))
		if err != nil {
			return fmt.Errorf("write graph: %w", err)
		}

		return nil
	}
}

func graphTable(rep bundler.GraphReport) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Format.Footer = text.FormatDefault

	tbl.AppendHeader(table.Row{"#", "Module", "Imports", "Importers", "Exports"})

	for i, m := range rep.Modules {
		tbl.AppendRow(table.Row{
			i,
			m.Path,
			strings.Join(m.Imports, ", "),
			strings.Join(m.Importers, ", "),
			strings.Join(m.Exports, ", "),
		})
	}

	footer := fmt.Sprintf("%d modules, %d imports", len(rep.Modules), rep.Edges)
	if len(rep.Cycles) > 0 {
		footer += fmt.Sprintf(", %d cycle edges", len(rep.Cycles))
	}

	tbl.AppendFooter(table.Row{"", footer})

	var sb strings.Builder

	sb.WriteString(tbl.Render())

	for _, c := range rep.Cycles {
		fmt.Fprintf(&sb, "\ncycle: %s", strings.Join(c.Path, " -> "))
	}

	return sb.String()
}
