package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hirepipe/internal/config"
	"github.com/kiranshivaraju/hirepipe/internal/store"
	"github.com/kiranshivaraju/hirepipe/internal/worker"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Database.Driver != "postgres" {
				return errors.New("migrate requires STORE_DRIVER=postgres")
			}
			if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			return nil
		},
	}
}

func newBackfillCmd() *cobra.Command {
	var candidate, job string

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Compute every missing compatibility score for one candidate or one job",
		Long: "Runs one bulk fan-out in the foreground and prints its counters. " +
			"Pairs that already have a score are skipped.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			subject, err := parseSubject(candidate, job)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a, err := newApplication(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.shutdown(cmd.Context())

			var res worker.Result
			if candidate != "" {
				res, err = a.scores.BackfillCandidate(cmd.Context(), subject)
			} else {
				res, err = a.scores.BackfillJob(cmd.Context(), subject)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "total=%d succeeded=%d duplicates=%d failed=%d\n",
				res.Total, res.Succeeded, res.Duplicates, res.Failed)
			if res.Failed > 0 {
				return fmt.Errorf("%d of %d scores failed", res.Failed, res.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&candidate, "candidate", "", "candidate ID to score against every open job")
	cmd.Flags().StringVar(&job, "job", "", "job ID to score against every candidate")
	cmd.MarkFlagsMutuallyExclusive("candidate", "job")
	cmd.MarkFlagsOneRequired("candidate", "job")
	return cmd
}

func parseSubject(candidate, job string) (uuid.UUID, error) {
	raw, flag := candidate, "--candidate"
	if raw == "" {
		raw, flag = job, "--job"
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s must be a valid UUID: %w", flag, err)
	}
	return id, nil
}
