// Command ledgerctl runs maintenance tasks against the ledger: schema
// migrations, dev sign-in tokens, summaries and spreadsheet backfills.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gigledger/internal/cli"
	"gigledger/internal/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(ctx).Execute(); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd(ctx context.Context) *cobra.Command {
	root := &cobra.Command{
		Use:          "ledgerctl",
		Short:        "GigLedger maintenance commands",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.LoadEnvFile()
		},
	}
	root.AddCommand(migrateCmd())
	root.AddCommand(tokenCmd())
	root.AddCommand(summaryCmd(ctx))
	root.AddCommand(backfillCmd(ctx))
	return root
}

func cmdLogger() *log.Logger {
	return cli.SetupLogger("ledgerctl")
}
