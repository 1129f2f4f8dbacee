package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seatkit/paracousti/internal/buildinfo"
)

// Command prints the build version.
func Command(build buildinfo.BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "paracousti %s (built %s)\n", build.Version(), build.BuildDate())
			return err
		},
	}
}
