package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dramakit/drama/common/bootstrap"
	"github.com/dramakit/drama/common/queue"
	"github.com/dramakit/drama/common/registry"
	"github.com/dramakit/drama/common/worker"

	// Built-in component catalog.
	_ "github.com/dramakit/drama/components/load"
	_ "github.com/dramakit/drama/components/read"
	_ "github.com/dramakit/drama/components/utils"
)

func newWorkerCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a task worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), concurrency)
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "number of concurrent task executions")
	return cmd
}

func runWorker(ctx context.Context, concurrency int) error {
	components, err := bootstrap.Setup(ctx, "drama-worker")
	if err != nil {
		return fmt.Errorf("failed to bootstrap worker: %w", err)
	}
	defer components.Shutdown(ctx)

	actor := &worker.Actor{
		Tasks:      components.Tasks,
		Workflows:  components.Workflows,
		Queue:      components.Queue,
		Bus:        components.Bus,
		NewStorage: components.NewStorage,
		Registry:   registry.Default,
		SecretsKey: components.Config.Secrets.PrivateKey,
		Log:        components.Logger,
		Metrics:    components.Metrics,
	}

	runner := queue.NewRunner(
		components.Redis,
		components.Config.Actor,
		concurrency,
		actor.Handle,
		queue.Callbacks{OnSuccess: actor.OnSuccess, OnFailure: actor.OnFailure},
		components.Logger,
	)

	components.Logger.Info("worker connected to queue",
		"queue", components.Config.Actor.QueueName,
		"components", registry.Default.List(),
	)
	return runner.Start(ctx)
}
