package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/cbtkit/cbt/areas"
)

var (
	coalesceAreasJSON string
	coalesceAreasFile string
)

func init() {
	cmd := newCoalesceCmd()
	cmd.Flags().StringVar(&coalesceAreasJSON, "areas-json", "", "Areas document as inline JSON")
	cmd.Flags().StringVar(&coalesceAreasFile, "areas-file", "", "Areas document file (- for stdin)")
	cmd.Flags().Uint64("coalesce-gap", 1<<20, "Merge regions separated by at most this many bytes")
	rootCmd.AddCommand(cmd)
}

func newCoalesceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coalesce",
		Short: "Print the regions a changed-areas document coalesces into",
		Long: `The coalesce command sorts and merges the areas of a changed-areas document
without copying anything.

Example:
  cbtctl coalesce --areas-file areas.json
  cbtctl coalesce --areas-json '{"areas":[{"offset":0,"length":100},{"offset":150,"length":50}]}' --coalesce-gap 49`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCoalesce()
		},
	}
	return cmd
}

func runCoalesce() error {
	doc, err := readDocument(coalesceAreasJSON, coalesceAreasFile)
	if err != nil {
		return err
	}
	regions := areas.Coalesce(doc.Areas, settings.CoalesceGap)

	if jsonOut {
		return printJSON(newRegionsOutput(regions))
	}
	// Rows stay ungrouped so scripts can parse them.
	if !quiet {
		for _, r := range regions {
			fmt.Fprintf(os.Stdout, "%d\t%d\n", r.Offset, r.Length)
		}
	}
	printVerbose("%d areas -> %d regions, %d bytes\n", len(doc.Areas), len(regions), areas.TotalBytes(regions))
	return nil
}
