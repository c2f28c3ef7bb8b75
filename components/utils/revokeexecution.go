// Package utils holds the built-in control components.
package utils

import (
	"context"

	"github.com/dramakit/drama/common/models"
	"github.com/dramakit/drama/common/process"
	"github.com/dramakit/drama/common/registry"
)

func init() {
	registry.Default.MustRegister(&registry.Component{
		Name:        "core.utils.RevokeExecution",
		Description: "Sends a global interruption signal to every task of the workflow",
		Execute:     revokeExecution,
	})
}

// revokeExecution broadcasts INTERRUPTION keyed by the workflow id, so every
// task polling the topic accepts it and aborts.
func revokeExecution(ctx context.Context, pcs *process.Process, params map[string]any) (*models.TaskResult, error) {
	if err := pcs.Broadcast(ctx, pcs.Parent, models.SignalInterruption); err != nil {
		return nil, err
	}
	return &models.TaskResult{Message: "workflow revoked"}, nil
}
