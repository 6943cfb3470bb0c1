package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"gigledger/internal/auth"
	"gigledger/internal/cli"
	"gigledger/internal/core"
	"gigledger/internal/log"
	"gigledger/internal/services"
	gsheet "gigledger/internal/sheets/google"
	"gigledger/internal/storage"
	"gigledger/internal/store"
	"gigledger/internal/worker"
)

func migrateCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQLite migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = cli.LoadAndValidateConfig(cmdLogger()).SQLiteDBPath
			}
			if err := storage.RunMigrations(dbPath); err != nil {
				return err
			}
			v, dirty, err := storage.MigrationVersion(dbPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t) at %s\n", v, dirty, dbPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default SQLITE_DB_PATH)")
	return cmd
}

// tokenCmd mints a session token signed with AUTH_JWT_SECRET, for signing
// in locally without the identity provider.
func tokenCmd() *cobra.Command {
	var uid, email string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development sign-in token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cli.LoadAndValidateConfig(cmdLogger())
			if ttl <= 0 {
				ttl = cfg.SessionTTL
			}
			token, err := auth.NewVerifier(cfg.AuthJWTSecret, cfg.AuthIssuer, ttl).Mint(uid, email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&uid, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default SESSION_TTL)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func summaryCmd(ctx context.Context) *cobra.Command {
	var uid string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print a user's ledger summary as of now",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cmdLogger()
			cfg := cli.LoadAndValidateConfig(logger)
			loc := cli.Location(logger, cfg)
			be := cli.InitBackend(ctx, logger, cfg)
			if be.Cleanup != nil {
				defer be.Cleanup()
			}

			profile, err := be.Store.GetProfile(ctx, uid)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("get profile: %w", err)
			}
			entries, err := be.Store.ListEntries(ctx, uid)
			if err != nil {
				return fmt.Errorf("list entries: %w", err)
			}
			printSummary(cmd.OutOrStdout(), services.Summarize(profile, entries, time.Now().In(loc)))
			return nil
		},
	}
	cmd.Flags().StringVar(&uid, "user", "", "user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func printSummary(out io.Writer, sum services.LedgerSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Date\t%s\n", sum.Date)
	fmt.Fprintf(w, "Spent today\t%s\n", sum.TodaySpend)
	fmt.Fprintf(w, "Month income\t%s\n", sum.Month.Income)
	fmt.Fprintf(w, "Month expenses\t%s\n", sum.Month.Expenses)
	fmt.Fprintf(w, "Month net\t%s\n", sum.Month.Net())
	fmt.Fprintf(w, "Days logged\t%d\n", sum.Month.DaysLogged)
	fmt.Fprintf(w, "Week profit\t%s\n", sum.Week.NetProfit)
	fmt.Fprintf(w, "Week hours\t%s\n", sum.Week.TotalHours)
	fmt.Fprintf(w, "Per hour\t%s\n", sum.Week.EfficiencyPerHour)
	if sum.Week.BestDay != "" {
		fmt.Fprintf(w, "Best day\t%s (%s)\n", sum.Week.BestDay, sum.Week.BestDayIncome)
	}
	fmt.Fprintf(w, "Cashflow score\t%d\n", sum.Cashflow.Score)
	if len(sum.Categories) > 0 {
		parts := make([]string, 0, len(sum.Categories))
		for _, c := range sum.Categories {
			parts = append(parts, c.Name+" "+c.Amount.String())
		}
		fmt.Fprintf(w, "Categories\t%s\n", strings.Join(parts, ", "))
	}
	_ = w.Flush()
}

// backfillCmd re-exports a range of days to the spreadsheet, for days
// logged before the export existed or after a long outage.
func backfillCmd(ctx context.Context) *cobra.Command {
	var uid, from, to string
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Export a user's ledger days to the spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cmdLogger()
			cfg := cli.LoadAndValidateConfig(logger)
			if cfg.GoogleSpreadsheetID == "" {
				return errors.New("GOOGLE_SPREADSHEET_ID is not set")
			}
			loc := cli.Location(logger, cfg)
			if to == "" {
				to = string(core.NewDateKey(time.Now().In(loc)))
			}
			be := cli.InitBackend(ctx, logger, cfg)
			if be.Cleanup != nil {
				defer be.Cleanup()
			}
			exporter, err := gsheet.New(ctx, gsheet.Config{
				SpreadsheetID:   cfg.GoogleSpreadsheetID,
				Sheet:           cfg.GoogleLedgerSheet,
				CredentialsFile: cfg.GoogleCredentialsFile,
			})
			if err != nil {
				return err
			}

			w := worker.NewExportWorker(be.Store, be.Tracker, exporter, cfg.SyncBatchSize,
				logger.WithComponent(log.ComponentWorker).Logger)
			n, err := w.Backfill(ctx, uid, core.DateKey(from), core.DateKey(to))
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d day(s) for %s\n", n, uid)
			return err
		},
	}
	cmd.Flags().StringVar(&uid, "user", "", "user id")
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
