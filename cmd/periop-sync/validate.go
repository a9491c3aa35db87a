package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/periop-sync/internal/identity"
)

func validateIDCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate-id <raw>...",
		Short: "Validate and normalize national identifiers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]identity.Result, len(args))
			for i, raw := range args {
				results[i] = identity.Validate(raw)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RAW\tSTATUS\tNORMALIZED\tDISPLAY\tREASON")
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					r.RawID, r.Status, dash(r.NormalizedID), dash(r.CorrectedDisplay), dash(r.Reason))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
