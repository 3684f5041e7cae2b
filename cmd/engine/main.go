// Command engine is the notification engine admin CLI.
//
// Usage:
//
//	notification-engine retention run
//	notification-engine retention delete-user --user u123
//	notification-engine experiments aggregate
//	notification-engine experiments aggregate --name tone-test-q3
//	notification-engine experiments status --name tone-test-q3 --status completed
//	notification-engine analyze --user u123 --missed-alarms 2 --streak 5
//	notification-engine dispatch once
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/risewell/notification-engine/internal/config"
	"github.com/risewell/notification-engine/internal/db"
	"github.com/risewell/notification-engine/internal/domain"
	"github.com/risewell/notification-engine/internal/engine"
	"github.com/risewell/notification-engine/internal/events"
	"github.com/risewell/notification-engine/internal/learner"
	"github.com/risewell/notification-engine/internal/push"
	"github.com/risewell/notification-engine/internal/retention"
	"github.com/risewell/notification-engine/internal/scheduler"
	"github.com/risewell/notification-engine/internal/store"
	"github.com/risewell/notification-engine/internal/store/postgres"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "notification-engine",
		Short: "Risewell notification engine admin CLI",
	}

	root.AddCommand(retentionCmd())
	root.AddCommand(experimentsCmd())
	root.AddCommand(analyzeCmd())
	root.AddCommand(dispatchCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// retention command
// --------------------------------------------------------------------------

func retentionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retention",
		Short: "Data retention and anonymization",
	}
	cmd.AddCommand(retentionRunCmd())
	cmd.AddCommand(retentionDeleteUserCmd())
	return cmd
}

func retentionRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one retention pass (purge aged states and terminal entries)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, s *stack) error {
				start := time.Now()
				if err := s.enforcer.Run(ctx); err != nil {
					return err
				}
				logger.Info("Retention pass finished", "duration", time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
}

func retentionDeleteUserCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "delete-user",
		Short: "Process an account deletion (delete states and profile, anonymize the rest)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			return run(func(ctx context.Context, cfg *config.Config, s *stack) error {
				return s.enforcer.DeleteUser(ctx, userID)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID to delete")
	return cmd
}

// --------------------------------------------------------------------------
// experiments command
// --------------------------------------------------------------------------

func experimentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "experiments",
		Short: "A/B experiment administration",
	}
	cmd.AddCommand(experimentsAggregateCmd())
	cmd.AddCommand(experimentsStatusCmd())
	return cmd
}

func experimentsStatusCmd() *cobra.Command {
	var (
		name   string
		status string
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Move an experiment along its lifecycle (draft, active, paused, completed, archived)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || status == "" {
				return fmt.Errorf("--name and --status are required")
			}
			return run(func(ctx context.Context, cfg *config.Config, s *stack) error {
				exp, err := s.eng.UpdateExperimentStatus(ctx, name, domain.ExperimentStatus(status))
				if err != nil {
					return err
				}
				logger.Info("Experiment status updated", "experiment", exp.Name, "status", exp.Status)
				if exp.Results != nil {
					out, err := json.MarshalIndent(exp.Results, "", "  ")
					if err != nil {
						return err
					}
					fmt.Println(string(out))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Experiment name")
	cmd.Flags().StringVar(&status, "status", "", "Target status")
	return cmd
}

func experimentsAggregateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Recompute experiment results (all active, or one by name)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, s *stack) error {
				if name == "" {
					return s.eng.Aggregator().Run(ctx)
				}
				exp, err := s.eng.GetExperimentResults(ctx, name)
				if err != nil {
					return err
				}
				out, err := json.MarshalIndent(exp.Results, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Experiment name (empty = all active)")
	return cmd
}

// --------------------------------------------------------------------------
// analyze command
// --------------------------------------------------------------------------

func analyzeCmd() *cobra.Command {
	var (
		userID        string
		displayName   string
		missedAlarms  int
		brokenStreaks int
		streak        int
		daysSinceUse  int
		engagement    float64
		milestone     bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Classify a user's activity snapshot into an emotional state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			return run(func(ctx context.Context, cfg *config.Config, s *stack) error {
				state, err := s.eng.AnalyzeUser(ctx, userID, domain.ActivitySnapshot{
					DisplayName:      displayName,
					MissedAlarms:     missedAlarms,
					BrokenStreaks:    brokenStreaks,
					CurrentStreak:    streak,
					DaysSinceLastUse: daysSinceUse,
					RecentEngagement: engagement,
					MilestoneCrossed: milestone,
					ObservedAt:       time.Now().UTC(),
				})
				if err != nil {
					return err
				}
				out, err := json.MarshalIndent(state, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User ID")
	cmd.Flags().StringVar(&displayName, "name", "", "Display name for message personalization")
	cmd.Flags().IntVar(&missedAlarms, "missed-alarms", 0, "Recently missed alarms")
	cmd.Flags().IntVar(&brokenStreaks, "broken-streaks", 0, "Recently broken streaks")
	cmd.Flags().IntVar(&streak, "streak", 0, "Current streak length in days")
	cmd.Flags().IntVar(&daysSinceUse, "days-since-use", 0, "Days since last app use")
	cmd.Flags().Float64Var(&engagement, "engagement", 1.0, "Recent engagement ratio 0..1")
	cmd.Flags().BoolVar(&milestone, "milestone", false, "Milestone crossed")
	return cmd
}

// --------------------------------------------------------------------------
// dispatch command
// --------------------------------------------------------------------------

func dispatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Delivery dispatch",
	}
	cmd.AddCommand(dispatchOnceCmd())
	return cmd
}

func dispatchOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Claim and process one batch of due schedule entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, s *stack) error {
				transport := push.NewFCMTransport(cfg.FCMCredentialsFile, logger)
				if transport == nil {
					return fmt.Errorf("FIREBASE_CREDENTIALS_FILE is required for dispatch")
				}
				worker := scheduler.NewWorker(s.stores.Schedules, s.stores.Logs, s.bus, s.trail, transport, scheduler.Config{
					BatchSize:       cfg.DispatchBatchSize,
					Workers:         cfg.DispatchWorkers,
					DeliveryTimeout: cfg.DeliveryTimeout,
					RetryBackoff:    cfg.RetryBackoff,
				}, logger)

				res, err := worker.RunOnce(ctx, time.Now().UTC())
				if err != nil {
					return err
				}
				logger.Info("Dispatch batch finished",
					"claimed", res.Claimed, "sent", res.Sent,
					"retried", res.Retried, "failed", res.Failed)
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// stack bundles the wired engine components for one CLI invocation.
type stack struct {
	stores   *store.Stores
	bus      *events.Bus
	trail    *events.Trail
	eng      *engine.Engine
	enforcer *retention.Enforcer
}

// run handles config loading, DB connection, engine wiring, and context
// cancellation.
func run(fn func(ctx context.Context, cfg *config.Config, s *stack) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	stores := postgres.NewStores(pool.Pool)
	catalog := postgres.NewCatalog(pool.Pool)
	bus := events.NewBus()
	trail := events.NewTrail(stores.Audit, logger)

	eng := engine.New(stores, catalog, bus, trail, engine.Config{
		MaxAttempts:     cfg.MaxAttempts,
		QuietStartHour:  cfg.QuietStartHour,
		QuietEndHour:    cfg.QuietEndHour,
		EscalationDays:  cfg.EscalationDays,
		StateRetention:  cfg.StateRetention,
		ProudStreakDays: cfg.ProudStreakDays,
	}, logger)
	bus.Subscribe(learner.New(stores.Logs, stores.Profiles, catalog, logger))

	enforcer := retention.NewEnforcer(stores, trail, retention.Config{
		StateRetention:          cfg.StateRetention,
		FailedEntryRetention:    cfg.FailedEntryRetention,
		DeliveredEntryRetention: cfg.DeliveredEntryRetention,
	}, logger)

	return fn(ctx, cfg, &stack{
		stores:   stores,
		bus:      bus,
		trail:    trail,
		eng:      eng,
		enforcer: enforcer,
	})
}
