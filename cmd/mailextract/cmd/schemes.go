package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wesm/mailextract/internal/format"
)

var schemesCmd = &cobra.Command{
	Use:   "schemes",
	Short: "List the supported store schemes",
	Long: `List every registered scheme, whether stores of that scheme are
containers (may hold folders and be found inside attachments), and the
content types mapped to it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := format.Registry(cfg.IMAPSettings())

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SCHEME\tCONTAINER\tMIME TYPES")
		fmt.Fprintln(w, "──────\t─────────\t──────────")
		for _, s := range reg.Schemes() {
			types := strings.Join(s.MIMETypes, ", ")
			if types == "" {
				types = "-"
			}
			fmt.Fprintf(w, "%s\t%t\t%s\n", s.Name, s.Container, types)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(schemesCmd)
}
