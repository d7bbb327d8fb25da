package schedule

import (
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// Registrar is the registration surface shared by worker.Worker and the
// Temporal test environments.
type Registrar interface {
	RegisterWorkflowWithOptions(w any, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a any, options activity.RegisterOptions)
}

var _ Registrar = worker.Worker(nil)

// Register adds the refresh workflow and its activity under their stable names.
func Register(r Registrar, acts *Activities) {
	r.RegisterWorkflowWithOptions(RefreshWorkflow, workflow.RegisterOptions{Name: RefreshWorkflowName})
	r.RegisterActivityWithOptions(acts.RunPipeline, activity.RegisterOptions{Name: RunPipelineActivityName})
}
