// Package cli holds the hotelbook command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/hotel-room-booking/internal/config"
)

var (
	Version   = "dev"
	CommitSHA = "none"
)

// NewRootCmd builds the command tree.  Every subcommand reads .env first
// through the persistent --env-file flag.
func NewRootCmd() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:          "hotelbook",
		Short:        "Hotel room-night booking service",
		SilenceUsage: true,
		Version:      Version + " (" + CommitSHA + ")",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadDotEnv(envFiles...)
		},
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files to load before reading the environment")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newSweepCmd())
	root.AddCommand(newConsumeCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newLedgerCmd())

	return root
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
