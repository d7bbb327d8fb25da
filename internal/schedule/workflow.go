// Package schedule runs the pipeline as a Temporal activity so that catalogue
// refreshes can be scheduled, retried, and observed outside the CLI.
package schedule

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/sells-group/catalogue-cli/internal/model"
)

const (
	RefreshWorkflowName     = "catalogueRefreshWorkflow"
	RunPipelineActivityName = "RunPipeline"
	ScheduleID              = "catalogue-refresh"

	permanentErrorType = "permanent"
)

var refreshActivityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: 2 * time.Hour,
	RetryPolicy: &temporal.RetryPolicy{
		InitialInterval:        time.Minute,
		BackoffCoefficient:     2.0,
		MaximumInterval:        15 * time.Minute,
		MaximumAttempts:        3,
		NonRetryableErrorTypes: []string{permanentErrorType},
	},
}

// RefreshInput selects what a scheduled run does.
type RefreshInput struct {
	Sources []string `json:"sources,omitempty"`
	DryRun  bool     `json:"dryRun,omitempty"`
}

// RefreshResult summarizes a finished run.
type RefreshResult struct {
	RunID         string      `json:"runId"`
	Phase         model.Phase `json:"phase"`
	Entities      int         `json:"entities"`
	Merged        int         `json:"merged"`
	Flagged       int         `json:"flagged"`
	Errors        int         `json:"errors"`
	SourcesFailed int         `json:"sourcesFailed"`
}

// RunFunc executes one pipeline run end to end, sinks included.
type RunFunc func(ctx context.Context, sources []string, dryRun bool) (*model.Batch, error)

// Activities holds the activity implementations.
type Activities struct {
	run RunFunc
}

// NewActivities creates Activities around a run function.
func NewActivities(run RunFunc) *Activities {
	return &Activities{run: run}
}

// RunPipeline executes one run.
func (a *Activities) RunPipeline(ctx context.Context, in RefreshInput) (*RefreshResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("catalogue refresh starting", "sources", in.Sources, "dryRun", in.DryRun)

	b, err := a.run(ctx, in.Sources, in.DryRun)
	if err != nil {
		logger.Error("catalogue refresh failed", "error", err)
		return nil, err
	}
	res := summarize(b)
	logger.Info("catalogue refresh finished", "runId", res.RunID, "entities", res.Entities, "errors", res.Errors)
	return res, nil
}

// RefreshWorkflow runs the pipeline activity once with retries.
func RefreshWorkflow(ctx workflow.Context, in RefreshInput) (*RefreshResult, error) {
	ctx = workflow.WithActivityOptions(ctx, refreshActivityOptions)

	var res RefreshResult
	if err := workflow.ExecuteActivity(ctx, RunPipelineActivityName, in).Get(ctx, &res); err != nil {
		return nil, err
	}
	workflow.GetLogger(ctx).Info("refresh complete", "runId", res.RunID, "entities", res.Entities)
	return &res, nil
}

// Permanent marks err so that the workflow does not retry it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), permanentErrorType, err)
}

// EnsureSchedule registers the cron schedule that starts RefreshWorkflow.
// An existing schedule with the same ID is left as is.
func EnsureSchedule(ctx context.Context, sc client.ScheduleClient, cron, taskQueue string, in RefreshInput) (bool, error) {
	if cron == "" {
		return false, nil
	}
	_, err := sc.Create(ctx, client.ScheduleOptions{
		ID: ScheduleID,
		Spec: client.ScheduleSpec{
			CronExpressions: []string{cron},
		},
		Action: &client.ScheduleWorkflowAction{
			ID:        ScheduleID + "-run",
			Workflow:  RefreshWorkflowName,
			TaskQueue: taskQueue,
			Args:      []any{in},
		},
	})
	if eris.Is(err, temporal.ErrScheduleAlreadyRunning) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "schedule: create")
	}
	return true, nil
}

func summarize(b *model.Batch) *RefreshResult {
	return &RefreshResult{
		RunID:         b.RunID,
		Phase:         b.Stats.Phase,
		Entities:      len(b.Entities),
		Merged:        b.Stats.DuplicatesMerged,
		Flagged:       b.Stats.FlaggedForReview,
		Errors:        b.Stats.Errors,
		SourcesFailed: b.Stats.SourcesFailed,
	}
}
