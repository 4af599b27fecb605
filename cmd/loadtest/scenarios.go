package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newScenariosCmd(root *rootOptions) *cobra.Command {
	var (
		file       string
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "Print the scenario catalog and selection probabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(file, cfg.Catalog)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(catalog.Scenarios())
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SCENARIO\tWEIGHT\tSHARE\tREQUESTS")
			for _, sc := range catalog.Scenarios() {
				for i, r := range sc.Requests {
					if i == 0 {
						fmt.Fprintf(tw, "%s\t%g\t%.1f%%\t%s %s\n",
							sc.Name, sc.Weight, catalog.Probability(sc.Name)*100, r.Method, r.Path)
						continue
					}
					fmt.Fprintf(tw, "\t\t\t%s %s\n", r.Method, r.Path)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&file, "scenarios", "s", "", "YAML scenario catalog (default built-in)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the catalog as JSON")
	return cmd
}
