package models

import (
	"encoding/json"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// TaskStatus is the lifecycle state of a single task.
type TaskStatus string

const (
	TaskStatusUnknown TaskStatus = "UNKNOWN"
	TaskStatusPending TaskStatus = "PENDING"
	TaskStatusRunning TaskStatus = "RUNNING"
	TaskStatusFailed  TaskStatus = "FAILED"
	TaskStatusDone    TaskStatus = "DONE"
)

// Terminal reports whether the status can no longer change.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusDone || s == TaskStatusFailed
}

// TaskOptions tune failure handling and queue placement for one task.
type TaskOptions struct {
	OnFailForceInterruption bool   `json:"on_fail_force_interruption" bson:"on_fail_force_interruption"`
	OnFailRemoveLocalDir    bool   `json:"on_fail_remove_local_dir" bson:"on_fail_remove_local_dir"`
	QueueName               string `json:"queue_name,omitempty" bson:"queue_name,omitempty"`
}

// DefaultTaskOptions returns the documented defaults.
func DefaultTaskOptions() TaskOptions {
	return TaskOptions{
		OnFailForceInterruption: true,
		OnFailRemoveLocalDir:    true,
	}
}

// TaskSecret is a sealed token/ciphertext pair. The ciphertext is a base64
// NaCl sealed box that the worker unseals with the process-wide private key.
type TaskSecret struct {
	Token  string `json:"token" bson:"token"`
	Secret string `json:"secret" bson:"secret"`
}

// ResultFile is one entry of a result's file list: a single artifact or a
// named group of artifacts. It marshals as whichever shape it holds.
type ResultFile struct {
	Resource *Resource
	Group    map[string]Resource
}

// NewResultFile wraps a single artifact.
func NewResultFile(r Resource) ResultFile { return ResultFile{Resource: &r} }

// NewResultFileGroup wraps a named group of artifacts.
func NewResultFileGroup(group map[string]Resource) ResultFile { return ResultFile{Group: group} }

func (f ResultFile) MarshalJSON() ([]byte, error) {
	if f.Resource != nil {
		return json.Marshal(f.Resource)
	}
	return json.Marshal(f.Group)
}

func (f *ResultFile) UnmarshalJSON(data []byte) error {
	// A bare resource carries a string "resource" field; in a group every
	// value is itself a resource document.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if raw, ok := probe["resource"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			f.Group = nil
			f.Resource = &Resource{}
			return json.Unmarshal(data, f.Resource)
		}
	}
	f.Resource = nil
	return json.Unmarshal(data, &f.Group)
}

func (f ResultFile) MarshalBSON() ([]byte, error) {
	if f.Resource != nil {
		return bson.Marshal(f.Resource)
	}
	return bson.Marshal(f.Group)
}

func (f *ResultFile) UnmarshalBSON(data []byte) error {
	if v, err := bson.Raw(data).LookupErr("resource"); err == nil {
		if _, ok := v.StringValueOK(); ok {
			f.Group = nil
			f.Resource = &Resource{}
			return bson.Unmarshal(data, f.Resource)
		}
	}
	f.Resource = nil
	return bson.Unmarshal(data, &f.Group)
}

// TaskResult is what a component returns.
type TaskResult struct {
	Message any          `json:"message,omitempty" bson:"message,omitempty"`
	Files   []ResultFile `json:"files,omitempty" bson:"files,omitempty"`
	Log     *Resource    `json:"log,omitempty" bson:"log,omitempty"`
}

// Task is one node of a workflow: a component invocation with params and inputs.
type Task struct {
	ID        string            `json:"id,omitempty" bson:"id,omitempty"`
	Name      string            `json:"name" bson:"name"`
	Module    string            `json:"module" bson:"module"`
	Parent    string            `json:"parent,omitempty" bson:"parent,omitempty"`
	Params    map[string]any    `json:"params,omitempty" bson:"params,omitempty"`
	Inputs    map[string]string `json:"inputs,omitempty" bson:"inputs,omitempty"`
	Labels    []string          `json:"labels,omitempty" bson:"labels,omitempty"`
	Secrets   []TaskSecret      `json:"secrets,omitempty" bson:"secrets,omitempty"`
	Options   TaskOptions       `json:"options" bson:"options"`
	Metadata  map[string]any    `json:"metadata,omitempty" bson:"metadata,omitempty"`
	Result    *TaskResult       `json:"result,omitempty" bson:"result,omitempty"`
	Status    TaskStatus        `json:"status,omitempty" bson:"status,omitempty"`
	CreatedAt *time.Time        `json:"created_at,omitempty" bson:"created_at,omitempty"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

// UpstreamTasks returns the distinct upstream task names referenced by Inputs,
// in no particular order.
func (t *Task) UpstreamTasks() []string {
	seen := make(map[string]struct{}, len(t.Inputs))
	var names []string
	for _, ref := range t.Inputs {
		name, _, found := strings.Cut(ref, ".")
		if !found {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// Validate enforces the task naming and input-reference rules.
func (t *Task) Validate() error {
	if t.Name == "" {
		return &ValidationError{Msg: "task name must not be empty"}
	}
	if strings.Contains(t.Name, " ") {
		return &ValidationError{Msg: "task name must not contain spaces: " + t.Name}
	}
	if strings.Contains(t.Name, ".") {
		return &ValidationError{Msg: "task name must not contain dots: " + t.Name}
	}
	if t.Module == "" {
		return &ValidationError{Msg: "task module must not be empty: " + t.Name}
	}
	for local, ref := range t.Inputs {
		name, output, found := strings.Cut(ref, ".")
		if !found || name == "" || output == "" || strings.Contains(output, ".") {
			return &ValidationError{
				Msg: "task " + t.Name + " input " + local + " must reference <task>.<output>, got " + ref,
			}
		}
	}
	return nil
}
