package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/dramakit/drama/common/datatype"
	"github.com/dramakit/drama/common/models"
	"github.com/dramakit/drama/common/process"
	"github.com/dramakit/drama/common/registry"
	"github.com/dramakit/drama/components/model"
)

// ErrDynamicParamTimeout reports that no value arrived on the task's own
// topic before the timeout.
var ErrDynamicParamTimeout = fmt.Errorf("no value received on dynamic parameter topic")

const defaultWait = 600 * time.Second

func init() {
	registry.Default.MustRegister(&registry.Component{
		Name:        "core.utils.DynamicParameter",
		Description: "Waits for a value published on the task's own topic and forwards it downstream",
		Outputs:     []string{model.DynamicParameter.Name()},
		Params:      map[string]string{"timeout_seconds": "600"},
		Execute:     dynamicParameter,
	})
}

// dynamicParameter polls the "<workflow>-<task>" topic for one raw value.
func dynamicParameter(ctx context.Context, pcs *process.Process, params map[string]any) (*models.TaskResult, error) {
	wait := defaultWait
	if v, ok := params["timeout_seconds"].(float64); ok && v > 0 {
		wait = time.Duration(v) * time.Second
	}

	topic := pcs.Parent + "-" + pcs.Name
	value, err := pcs.PollTopic(ctx, topic, wait)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, fmt.Errorf("%w: %s after %s", ErrDynamicParamTimeout, topic, wait)
	}

	out := model.DynamicParameter.New(datatype.Values{"value": string(value)})
	if _, err := pcs.ToDownstream(ctx, out); err != nil {
		return nil, err
	}

	return &models.TaskResult{Message: string(value)}, nil
}
