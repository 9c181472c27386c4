package tasks

import (
	"context"

	"github-analytics-retriever/internal/model"
)

// Task is one selectable unit of work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Catalog returns the tasks offered by the interactive menu, in menu order.
// The load task is only offered when a database is configured.
func (r *Runner) Catalog() []Task {
	tasks := []Task{
		r.pipelineTask("Retrieve all repositories Commits", model.Commits),
		r.pipelineTask("Retrieve all repositories Dependabot Alerts", model.DependabotAlerts),
		r.pipelineTask("Retrieve all repositories Pull Requests", model.PullRequests),
		r.pipelineTask("Retrieve all repositories Review Comments", model.ReviewComments),
		r.pipelineTask("Retrieve all data from all repositories", model.AllResources...),
		{
			Name: "Retrieve raw data only (all resources)",
			Run: func(ctx context.Context) error {
				return r.Retrieve(ctx, model.AllResources)
			},
		},
		{
			Name: "Flatten all raw snapshots into CSV tables",
			Run: func(ctx context.Context) error {
				return r.Flatten(ctx, model.AllResources)
			},
		},
		{
			Name: "Merge all repository tables",
			Run: func(ctx context.Context) error {
				return r.Merge(ctx, model.AllResources)
			},
		},
	}
	if r.HasLoader() {
		tasks = append(tasks, Task{
			Name: "Load merged tables into PostgreSQL",
			Run: func(ctx context.Context) error {
				return r.Load(ctx, model.AllResources)
			},
		})
	}
	return tasks
}

func (r *Runner) pipelineTask(name string, resources ...model.Resource) Task {
	return Task{
		Name: name,
		Run: func(ctx context.Context) error {
			return r.Pipeline(ctx, resources)
		},
	}
}
