package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wesm/mailextract/internal/extract"
)

var (
	listJob   jobFlags
	listStats bool
	listJSON  bool
	listCSV   string
	listJobs  int
)

var listCmd = &cobra.Command{
	Use:   "list <source>...",
	Short: "Count the folders and elements of mail stores",
	Long: `Walk mail stores without writing the archival tree and report what they
hold.

Without --stats, elements are only counted. With --stats every element is
analyzed: date ranges are computed, attached stores are opened and counted,
and with --csv the element lists are written to the given directory.

Several sources are listed side by side, at most --jobs at a time. Their
CSV lists then go to numbered subdirectories of the --csv directory, in
argument order.

Examples:
  mailextract list ~/Mail/archive.pst
  mailextract list imaps://jane@mail.example.com/ --folder INBOX --stats
  mailextract list export.mbox --stats --csv ./lists
  mailextract list 2019.pst 2020.pst 2021.pst --stats --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if listJobs < 1 {
			return fmt.Errorf("--jobs must be at least 1")
		}
		opts := cfg.Extract
		opts.ExtractElementsList = listCSV != ""
		withStats := listStats || listCSV != ""

		// Stores are opened one after the other so password prompts do not
		// interleave.
		extractors := make([]*extract.Extractor, len(args))
		defer func() {
			for _, x := range extractors {
				if x != nil {
					_ = x.Close()
				}
			}
		}()
		for i, source := range args {
			x, err := openExtractor(cmd.Context(), source, listDest(i, len(args)), listJob, opts)
			if err != nil {
				return err
			}
			extractors[i] = x
		}

		sums, err := listAll(cmd.Context(), extractors, withStats, listJobs)
		if err != nil {
			return err
		}
		for i, x := range extractors {
			extractors[i] = nil
			if err := x.Close(); err != nil {
				return fmt.Errorf("close %s: %w", args[i], err)
			}
		}

		if len(args) == 1 {
			return printSummary(cmd.OutOrStdout(), sums[0], listJSON)
		}
		return printSummaries(cmd.OutOrStdout(), args, sums, listJSON)
	},
}

// listDest is the CSV directory of the i-th of n sources.
func listDest(i, n int) string {
	switch {
	case listCSV == "":
		return os.TempDir()
	case n == 1:
		return listCSV
	default:
		return filepath.Join(listCSV, strconv.Itoa(i+1))
	}
}

// listAll runs ListAll on every extractor, at most jobs at a time. Each job
// walks its own store; the first failure cancels the rest.
func listAll(ctx context.Context, extractors []*extract.Extractor, withStats bool, jobs int) ([]*extract.Summary, error) {
	sums := make([]*extract.Summary, len(extractors))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, x := range extractors {
		g.Go(func() error {
			sum, err := x.ListAll(ctx, withStats)
			if err != nil {
				return fmt.Errorf("list %s: %w", x.Descriptor().Target(), err)
			}
			sums[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sums, nil
}

func printSummaries(w io.Writer, sources []string, sums []*extract.Summary, asJSON bool) error {
	if asJSON {
		out := make([]map[string]any, len(sums))
		for i, sum := range sums {
			out[i] = summaryFields(sum)
			out[i]["source"] = sources[i]
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	for i, sum := range sums {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s\n", sources[i])
		if err := printSummary(w, sum, false); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listJob.folder, "folder", "", "start at this /-separated folder path")
	listCmd.Flags().BoolVar(&listStats, "stats", false, "analyze every element")
	listCmd.Flags().StringVar(&listCSV, "csv", "", "write CSV element lists to this directory (implies --stats)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print the summary as JSON")
	listCmd.Flags().IntVarP(&listJobs, "jobs", "j", 4, "sources listed at the same time")
}
