package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wesm/mailextract/internal/extract"
)

var (
	extractOutput      string
	extractJSON        bool
	extractJob         jobFlags
	extractList        bool
	extractNoContent   bool
	extractModel       int
	extractNamesLength int
	extractCharset     string
	extractTextFiles   bool
	extractAttText     bool
	extractWarn        bool
	extractDropEmpty   bool
	extractKinds       []string
)

var extractCmd = &cobra.Command{
	Use:   "extract <source>",
	Short: "Extract a mail store into an archival tree",
	Long: `Extract every folder and element of a mail store into an archival node
tree below the output directory. With --list, one CSV line per message,
contact and appointment is also written.

Settings not given on the command line come from the [extract] section of
the config file.

Examples:
  mailextract extract ~/Mail/archive.pst -o /srv/out
  mailextract extract ~/Library/Mail/V10 --folder Work/Projects
  mailextract extract imaps://jane@mail.example.com/ --list --no-content
  mailextract extract contacts.vcf --only contacts`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := extractOptions(cmd.Flags(), cfg.Extract)
		if err != nil {
			return err
		}
		dest := extractOutput
		if dest == "" {
			dest = cfg.Output.Dir
		}
		if dest, err = filepath.Abs(dest); err != nil {
			return err
		}

		x, err := openExtractor(cmd.Context(), args[0], dest, extractJob, opts)
		if err != nil {
			return err
		}
		defer x.Close()

		progress := interactive(os.Stderr) && !verbose && !extractJSON
		if progress {
			fmt.Fprintf(cmd.ErrOrStderr(), "Extracting %s into %s...\n", x.Descriptor().Target(), dest)
		}
		sum, err := x.ExtractAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("extract: %w", err)
		}
		if err := x.Close(); err != nil {
			return fmt.Errorf("close store: %w", err)
		}
		return printSummary(cmd.OutOrStdout(), sum, extractJSON)
	},
}

// extractOptions applies command-line overrides to the configured options.
// Only flags the user set take effect.
func extractOptions(flags *pflag.FlagSet, opts extract.Options) (extract.Options, error) {
	if flags.Changed("list") {
		opts.ExtractElementsList = extractList
	}
	if flags.Changed("no-content") {
		opts.ExtractElementsContent = !extractNoContent
	}
	if flags.Changed("model") {
		opts.OutputModelVersion = extractModel
	}
	if flags.Changed("names-length") {
		opts.NamesLength = extractNamesLength
	}
	if flags.Changed("charset") {
		opts.DefaultCharset = extractCharset
	}
	if flags.Changed("text-files") {
		opts.ExtractMessageTextAsFile = extractTextFiles
	}
	if flags.Changed("attachment-text") {
		opts.ExtractAttachmentTextAsMetadata = extractAttText
	}
	if flags.Changed("warn") {
		opts.WarnOnMessageProblem = extractWarn
	}
	if flags.Changed("drop-empty") {
		opts.DropEmptyFolders = extractDropEmpty
	}
	if flags.Changed("only") {
		opts.ExtractMessages, opts.ExtractContacts, opts.ExtractAppointments = false, false, false
		for _, k := range extractKinds {
			switch k {
			case "messages":
				opts.ExtractMessages = true
			case "contacts":
				opts.ExtractContacts = true
			case "appointments":
				opts.ExtractAppointments = true
			default:
				return opts, fmt.Errorf("--only: unknown element kind %q (want messages, contacts or appointments)", k)
			}
		}
	}
	if !opts.ExtractElementsContent && !opts.ExtractElementsList {
		return opts, fmt.Errorf("nothing to write: --no-content needs --list")
	}
	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}

func init() {
	rootCmd.AddCommand(extractCmd)
	f := extractCmd.Flags()
	f.StringVarP(&extractOutput, "output", "o", "", "output directory (default: [output] dir, or the current directory)")
	f.StringVar(&extractJob.folder, "folder", "", "start at this /-separated folder path")
	f.BoolVar(&extractJSON, "json", false, "print the summary as JSON")
	f.BoolVar(&extractList, "list", false, "write CSV element lists")
	f.BoolVar(&extractNoContent, "no-content", false, "do not write the archival tree")
	f.IntVar(&extractModel, "model", extract.ModelV2, "output model version (1 or 2)")
	f.IntVar(&extractNamesLength, "names-length", 12, "maximum node name length")
	f.StringVar(&extractCharset, "charset", "windows-1252", "charset for undeclared 8-bit text")
	f.BoolVar(&extractTextFiles, "text-files", false, "also write message text as a file object")
	f.BoolVar(&extractAttText, "attachment-text", false, "store extracted attachment text as metadata")
	f.BoolVar(&extractWarn, "warn", false, "log per-element problems as warnings")
	f.BoolVar(&extractDropEmpty, "drop-empty", false, "drop folders without elements")
	f.StringSliceVar(&extractKinds, "only", nil, "element kinds to extract: messages, contacts, appointments")
}
