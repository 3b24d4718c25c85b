package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"task-notify/internal/config"
	"task-notify/internal/jobs"
	"task-notify/internal/middleware"
	"task-notify/internal/pkg/logger"
	"task-notify/internal/pkg/worker"
	"task-notify/internal/repository"
	"task-notify/internal/service"
)

// env holds what a command needs; close releases it.
type env struct {
	services *service.Services
	close    func()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := config.NewPostgresDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	redisClient, err := config.NewRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	pool, err := worker.New(ctx, "notifyctl", 4)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		db.Close()
		return nil, err
	}

	repos := repository.NewRepositories(db)
	services, err := service.NewServices(repos, redisClient, pool, cfg)
	if err != nil {
		pool.Shutdown(time.Second)
		if redisClient != nil {
			_ = redisClient.Close()
		}
		db.Close()
		return nil, err
	}

	return &env{
		services: services,
		close: func() {
			pool.Shutdown(cfg.Server.ShutdownTimeout)
			if redisClient != nil {
				_ = redisClient.Close()
			}
			_ = db.Close()
			_ = logger.Sync()
		},
	}, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "notifyctl",
		Short:         "Maintenance commands for the notification engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(),
		newSweepCmd(),
		newScheduleCmd(),
		newCancelCmd(),
		newTokenCmd(),
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	var withJobs bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := config.NewPostgresDB(cfg)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer db.Close()

			applied, err := repository.Migrate(ctx, db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)

			if withJobs {
				pool, err := config.NewJobPool(ctx, cfg)
				if err != nil {
					return err
				}
				defer pool.Close()
				return jobs.Migrate(ctx, pool)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withJobs, "jobs", true, "also migrate the job queue tables")
	return cmd
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Send every reminder that is due now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			sent, err := e.services.Reminder.SweepDue(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}
			logger.Info("sweep finished", zap.Int("sent", sent))
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d reminder(s)\n", sent)
			return nil
		},
	}
}

func newScheduleCmd() *cobra.Command {
	var userFlag string
	cmd := &cobra.Command{
		Use:   "schedule <task-id>",
		Short: "Recompute deadline reminders of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid task id %q", args[0])
			}
			var userID *uuid.UUID
			if userFlag != "" {
				id, err := uuid.Parse(userFlag)
				if err != nil {
					return fmt.Errorf("invalid user id %q", userFlag)
				}
				userID = &id
			}

			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			reminders, err := e.services.Reminder.ScheduleTask(cmd.Context(), taskID, userID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scheduled %d reminder(s)\n", len(reminders))
			for _, r := range reminders {
				fmt.Fprintf(out, "  %-12s %s\n", r.Type, r.ScheduledFor.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&userFlag, "user", "", "recipient (defaults to the task assignee)")
	return cmd
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <task-id>",
		Short: "Delete unsent reminders of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid task id %q", args[0])
			}

			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()

			deleted, err := e.services.Reminder.CancelForTask(cmd.Context(), taskID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d reminder(s)\n", deleted)
			return nil
		},
	}
}

func newTokenCmd() *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an API token, e.g. for an event-producing service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tok, err := middleware.IssueToken(cfg.JWT.Secret, userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "service", "role claim: member, service or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime")
	return cmd
}
