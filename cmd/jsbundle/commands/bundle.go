package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/jsbundle/pkg/bundler"
	"github.com/Sumatoshi-tech/jsbundle/pkg/observability"
	"github.com/Sumatoshi-tech/jsbundle/pkg/safeconv"
	"github.com/Sumatoshi-tech/jsbundle/pkg/textutil"
)

// ErrOutputMismatch is returned by --against when the bundle differs from
// the reference file.
var ErrOutputMismatch = errors.New("bundle differs from reference")

const outputFilePerm = 0o644

type bundleFlags struct {
	entry    string
	manifest string
	output   string
	against  string
	strict   bool
	stats    bool
}

// NewBundleCommand creates the bundle subcommand.
func NewBundleCommand() *cobra.Command {
	var flags bundleFlags

	cmd := &cobra.Command{
		Use:   "bundle [dir]",
		Short: "Bundle the modules reachable from an entry into one script",
		Long: `Bundle reads every JavaScript file under dir (default ".") or the files of a
JSON manifest, follows the imports of the entry module and prints one script
with all import and export syntax removed.

Exit status is non-zero when a module fails to parse, an import cannot be
resolved or an imported name is not exported.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) > 0 {
				dir = args[0]
			}

			return runBundle(cmd, dir, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.entry, "entry", "e", "", "entry module key (default from config, main.js)")
	cmd.Flags().StringVarP(&flags.manifest, "manifest", "m", "", `read entry and files from a JSON manifest ("-" for stdin)`)
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write the bundle to a file instead of stdout")
	cmd.Flags().StringVar(&flags.against, "against", "", "compare with a reference bundle and print a diff instead of writing")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "also check every module with the tree-sitter JavaScript grammar")
	cmd.Flags().BoolVar(&flags.stats, "stats", false, "print module count, size and duration to stderr")

	return cmd
}

func runBundle(cmd *cobra.Command, dir string, flags bundleFlags) error {
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

	entry, files, err := inputs(cfg, dir, flags.manifest, flags.entry, cmd.InOrStdin())
	if err != nil {
		return err
	}

	b, err := newBundler(cfg, providers, entry, files, flags.strict)
	if err != nil {
		return err
	}

	start := time.Now()

	res, err := b.Build(cmd.Context())
	if err != nil {
		reportError(cmd.ErrOrStderr(), err)

		return ErrBundleFailed
	}

	for _, c := range res.Cycles {
		reportWarning(cmd.ErrOrStderr(), "import cycle: %s imports %s, which is already being bundled (%s)",
			c.From, c.To, strings.Join(bundler.CyclePath(res, c), " -> "))
	}

	if flags.stats {
		fmt.Fprintf(cmd.ErrOrStderr(), "bundled %d modules, %d lines, %s in %s\n",
			len(res.Order), textutil.CountLines([]byte(res.Code)),
			humanize.IBytes(safeconv.IntToUint64(len(res.Code))), time.Since(start).Round(time.Microsecond))
	}

	if flags.against != "" {
		return compareBundle(cmd.OutOrStdout(), flags.against, res.Code)
	}

	if flags.output != "" {
		err = os.WriteFile(flags.output, []byte(res.Code+"\n"), outputFilePerm)
		if err != nil {
			return fmt.Errorf("write bundle: %w", err)
		}

		return nil
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Code)
	if err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}

	return nil
}

// compareBundle prints a line diff between the reference file and code.
func compareBundle(w io.Writer, refPath, code string) error {
	data, err := os.ReadFile(refPath)
	if err != nil {
		return fmt.Errorf("read reference: %w", err)
	}

	want := strings.TrimRight(string(data), "\n")
	if want == code {
		return nil
	}

	writeLineDiff(w, want, code)

	return fmt.Errorf("%w: %s", ErrOutputMismatch, refPath)
}

// writeLineDiff prints a line-level diff with -/+ markers.
func writeLineDiff(w io.Writer, before, after string) {
	dmp := diffmatchpatch.New()

	a, b, lines := dmp.DiffLinesToChars(before+"\n", after+"\n")
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)

	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}

			line = strings.TrimSuffix(line, "\n")

			switch d.Type {
			case diffmatchpatch.DiffDelete:
				removed.Fprintf(w, "-%s\n", line)
			case diffmatchpatch.DiffInsert:
				added.Fprintf(w, "+%s\n", line)
			case diffmatchpatch.DiffEqual:
				fmt.Fprintf(w, " %s\n", line)
			}
		}
	}
}
