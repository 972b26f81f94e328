package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fabriziosalmi/newsportal/internal/auth"
	"github.com/fabriziosalmi/newsportal/internal/backend"
	"github.com/fabriziosalmi/newsportal/internal/queue"
	"github.com/fabriziosalmi/newsportal/internal/retention"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func cleanupCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete summaries older than the retention period, in-process",
		Long: `Runs one retention cleanup across every user and prints the run
summary as JSON. Without --retention-days the default period applies.
Exits non-zero only when the run as a whole failed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			ctx := cmd.Context()

			store, err := backend.Open(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			cleaner, err := backend.NewCleaner(ctx, cfg, store, log)
			if err != nil {
				return err
			}

			var sum retention.RunSummary
			if cmd.Flags().Changed("retention-days") {
				sum = cleaner.RunWithResolution(ctx, retention.FromDays(days))
			} else {
				sum = cleaner.Run(ctx, nil)
			}

			if err := printJSON(sum); err != nil {
				return err
			}
			if sum.Status == retention.StatusError {
				return fmt.Errorf("cleanup failed: %v", sum.Err)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&days, "retention-days", "d", retention.DefaultRetentionDays,
		fmt.Sprintf("Retention period in days (%d-%d)", retention.MinRetentionDays, retention.MaxRetentionDays))
	return cmd
}

func normalizeCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Rewrite legacy created_at values into the canonical encoding",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			ctx := cmd.Context()

			store, err := backend.Open(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			report := retention.NewNormalizer(store, dryRun, log.Named("normalize")).Run(ctx)
			if report.Err != nil {
				return fmt.Errorf("normalize: %w", report.Err)
			}

			verb := "Rewritten"
			if dryRun {
				verb = "Would rewrite"
			}
			fmt.Printf("Users:      %d\n", report.TenantsProcessed)
			fmt.Printf("Scanned:    %d\n", report.Scanned)
			fmt.Printf("%s: %d\n", verb, report.Rewritten)
			fmt.Printf("Invalid:    %d\n", report.Invalid)
			if len(report.FailedTenants) > 0 {
				fmt.Printf("Failed:     %v\n", report.FailedTenants)
				return fmt.Errorf("normalize: %d users failed", len(report.FailedTenants))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without writing")
	return cmd
}

func enqueueCleanupCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "enqueue-cleanup",
		Short: "Queue a cleanup run for the worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			var retentionDays *int
			if cmd.Flags().Changed("retention-days") {
				retentionDays = &days
			}
			task, err := queue.NewCleanupTask(retentionDays)
			if err != nil {
				return err
			}

			client := asynq.NewClient(queue.RedisOpt(cfg.Redis))
			defer client.Close()

			info, err := client.EnqueueContext(cmd.Context(), task)
			if err != nil {
				return fmt.Errorf("enqueue cleanup: %w", err)
			}
			log.Info("cleanup enqueued", zap.String("task_id", info.ID))
			fmt.Printf("Enqueued %s (queue %s)\n", info.ID, info.Queue)
			return nil
		},
	}
	// Out-of-range values are passed through; the worker falls back to the default.
	cmd.Flags().IntVarP(&days, "retention-days", "d", 0, "Retention period in days carried in the trigger")
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		tenantID string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return fmt.Errorf("jwt secret is not configured")
			}
			if ttl == 0 {
				ttl = cfg.JWT.Expiration
			}
			tok, err := auth.IssueJWT(cfg.JWT.Secret, tenantID, ttl)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().StringVarP(&tenantID, "tenant", "t", "", "User id the token is scoped to")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to jwt.expiration)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect archived summaries",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get [key]",
		Short: "Fetch, verify and print one archived batch as NDJSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			arch, err := backend.OpenArchiver(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			if arch == nil {
				return fmt.Errorf("archiving is disabled (archive.backend is empty)")
			}
			summaries, err := arch.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			for _, s := range summaries {
				if err := enc.Encode(s); err != nil {
					return err
				}
			}
			fmt.Fprintf(os.Stderr, "%d summaries, digest ok\n", len(summaries))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "purge [key]",
		Short: "Delete one archived batch from every archive backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			arch, err := backend.OpenArchiver(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			if arch == nil {
				return fmt.Errorf("archiving is disabled (archive.backend is empty)")
			}
			return arch.Purge(cmd.Context(), args[0])
		},
	})
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
