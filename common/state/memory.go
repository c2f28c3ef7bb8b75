package state

import (
	"context"
	"sync"
	"time"

	"github.com/dramakit/drama/common/models"
)

// MemoryTaskStore is an in-memory TaskStore for tests and single-node runs.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*models.Task
}

func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[string]*models.Task)}
}

func (s *MemoryTaskStore) Find(ctx context.Context, parent string) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Task
	for _, t := range s.tasks {
		if t.Parent == parent {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *MemoryTaskStore) FindOne(ctx context.Context, id string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryTaskStore) FindByName(ctx context.Context, parent, name string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.Parent == parent && t.Name == name {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryTaskStore) CreateOrUpdateFromID(ctx context.Context, id string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		t = &models.Task{ID: id}
		s.tasks[id] = t
	}
	for k, v := range fields {
		applyTaskField(t, k, v)
	}
	return nil
}

func applyTaskField(t *models.Task, key string, value any) {
	switch key {
	case "name":
		t.Name, _ = value.(string)
	case "module":
		t.Module, _ = value.(string)
	case "parent":
		t.Parent, _ = value.(string)
	case "params":
		t.Params, _ = value.(map[string]any)
	case "inputs":
		t.Inputs, _ = value.(map[string]string)
	case "labels":
		t.Labels, _ = value.([]string)
	case "secrets":
		t.Secrets, _ = value.([]models.TaskSecret)
	case "options":
		if opts, ok := value.(models.TaskOptions); ok {
			t.Options = opts
		}
	case "metadata":
		t.Metadata, _ = value.(map[string]any)
	case "result":
		switch r := value.(type) {
		case *models.TaskResult:
			t.Result = r
		case models.TaskResult:
			t.Result = &r
		}
	case "status":
		if st, ok := value.(models.TaskStatus); ok {
			t.Status = st
		} else if st, ok := value.(string); ok {
			t.Status = models.TaskStatus(st)
		}
	case "created_at":
		if ts, ok := value.(time.Time); ok {
			t.CreatedAt = &ts
		}
	case "updated_at":
		if ts, ok := value.(time.Time); ok {
			t.UpdatedAt = &ts
		}
	}
}

// MemoryWorkflowStore is an in-memory WorkflowStore for tests.
type MemoryWorkflowStore struct {
	mu        sync.RWMutex
	workflows map[string]*models.Workflow
}

func NewMemoryWorkflowStore() *MemoryWorkflowStore {
	return &MemoryWorkflowStore{workflows: make(map[string]*models.Workflow)}
}

func (s *MemoryWorkflowStore) FindOne(ctx context.Context, id string) (*models.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[id]
	if !ok {
		return nil, nil
	}
	cp := *wf
	return &cp, nil
}

func (s *MemoryWorkflowStore) CreateOrUpdateFromID(ctx context.Context, id string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.workflows[id]
	if !ok {
		wf = &models.Workflow{ID: id}
		s.workflows[id] = wf
	}
	for k, v := range fields {
		applyWorkflowField(wf, k, v)
	}
	return nil
}

func applyWorkflowField(w *models.Workflow, key string, value any) {
	switch key {
	case "tasks":
		w.Tasks, _ = value.([]models.Task)
	case "labels":
		w.Labels, _ = value.([]string)
	case "metadata":
		w.Metadata, _ = value.(map[string]any)
	case "status":
		if st, ok := value.(models.WorkflowStatus); ok {
			w.Status = st
		} else if st, ok := value.(string); ok {
			w.Status = models.WorkflowStatus(st)
		}
	case "is_revoked":
		if b, ok := value.(bool); ok {
			w.IsRevoked = b
		}
	case "created_at":
		if ts, ok := value.(time.Time); ok {
			w.CreatedAt = &ts
		}
	case "updated_at":
		if ts, ok := value.(time.Time); ok {
			w.UpdatedAt = &ts
		}
	}
}
