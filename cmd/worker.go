package main

import (
	"context"
	"os/signal"
	"slices"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/sells-group/catalogue-cli/internal/config"
	"github.com/sells-group/catalogue-cli/internal/model"
	"github.com/sells-group/catalogue-cli/internal/schedule"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal worker that executes scheduled refreshes",
	Long:  "Connects to Temporal, registers the refresh workflow, ensures the cron schedule exists when temporal.cron is set, and runs pipeline activities until interrupted.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := zap.L().With(zap.String("component", "worker"))

		c, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			return eris.Wrap(err, "worker: dial temporal")
		}
		defer c.Close()

		created, err := schedule.EnsureSchedule(ctx, c.ScheduleClient(), cfg.Temporal.Cron, cfg.Temporal.TaskQueue, schedule.RefreshInput{})
		if err != nil {
			return err
		}
		if created {
			log.Info("refresh schedule created", zap.String("cron", cfg.Temporal.Cron))
		}

		w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
		schedule.Register(w, schedule.NewActivities(scheduledRun(cfg)))
		if err := w.Start(); err != nil {
			return eris.Wrap(err, "worker: start")
		}
		log.Info("worker started", zap.String("task_queue", cfg.Temporal.TaskQueue))

		<-ctx.Done()
		w.Stop()
		log.Info("worker stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

// scheduledRun adapts runPipeline for the activity. Requests naming sources
// that are not enabled can never succeed, so they are not retried.
func scheduledRun(c *config.Config) schedule.RunFunc {
	return func(ctx context.Context, sources []string, dryRun bool) (*model.Batch, error) {
		if err := checkSources(c, sources); err != nil {
			return nil, schedule.Permanent(err)
		}
		return runPipeline(ctx, c, sources, dryRun)
	}
}

func checkSources(c *config.Config, names []string) error {
	enabled := make([]string, 0, len(c.Sources))
	for _, s := range c.EnabledSources() {
		enabled = append(enabled, s.Name)
	}
	for _, n := range names {
		if !slices.Contains(enabled, n) {
			return eris.Errorf("worker: source %q is not enabled", n)
		}
	}
	return nil
}
