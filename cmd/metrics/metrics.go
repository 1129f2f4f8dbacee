package metrics

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seatkit/paracousti/internal/paracousti"
)

// Command lists the weightings and metrics offered by a scenario file.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics [scenario.nc]",
		Short: "List the metrics available in a scenario file",
		Long: `Inspect a ParAcousti NetCDF file and list the weightings, the unweighted
metric variables and the weighted metric names that can be passed to run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := paracousti.DiscoverMetrics(args[0])
			if err != nil {
				return err
			}
			return printMetrics(cmd.OutOrStdout(), m)
		},
	}
}

func printMetrics(w io.Writer, m paracousti.Metrics) error {
	_, err := fmt.Fprintf(w, "Weightings:         %s\nUnweighted metrics: %s\nWeighted metrics:   %s\n",
		list(m.Weightings), list(m.Unweighted), list(m.Weighted))
	return err
}

func list(v []string) string {
	if len(v) == 0 {
		return "-"
	}
	return strings.Join(v, ", ")
}
