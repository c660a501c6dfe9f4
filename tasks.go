package mcphost

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// TaskManager tracks the long-running tasks one server has spawned. Its cache
// is fed from three directions: tool call results that reference a task,
// notifications/tasks/status pushes, and explicit ListTasks/GetTask refreshes.
// Tasks keep their first-seen order; a task that reached a terminal state
// never transitions again, no matter what arrives later.
type TaskManager struct {
	conn *Conn

	mu    sync.RWMutex
	order []string
	tasks map[string]Task
}

func newTaskManager(c *Conn) *TaskManager {
	return &TaskManager{
		conn:  c,
		tasks: make(map[string]Task),
	}
}

// track records a task first seen in a tool call result.
func (m *TaskManager) track(t Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apply(t)
}

// applyStatus ingests a notifications/tasks/status push.
func (m *TaskManager) applyStatus(params json.RawMessage) error {
	var t Task
	if err := json.Unmarshal(params, &t); err != nil {
		return fmt.Errorf("failed to unmarshal task status: %w", err)
	}
	if t.ID == "" {
		return fmt.Errorf("task status without taskId")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.apply(t)
	return nil
}

// apply merges one server-reported task into the cache. Must be called with
// m.mu held.
// applyProgress folds a progress notification into the cache when its token
// names a tracked task. Tokens for untracked operations are left to the
// connection's progress listener.
func (m *TaskManager) applyProgress(p ProgressParams) {
	id := string(p.ProgressToken)
	if id == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.State.Terminal() {
		return
	}
	if p.Total > 0 {
		t.Progress = p.Progress / p.Total
	} else {
		t.Progress = p.Progress
	}
	if p.Message != "" {
		t.ProgressMessage = p.Message
	}
	t.UpdatedAt = time.Now()
	m.tasks[id] = t
}

func (m *TaskManager) apply(t Task) {
	existing, known := m.tasks[t.ID]
	if known && existing.State.Terminal() {
		return
	}
	if !known {
		m.order = append(m.order, t.ID)
	} else {
		if t.CreatedAt.IsZero() {
			t.CreatedAt = existing.CreatedAt
		}
		if t.Method == "" {
			t.Method = existing.Method
		}
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now()
	}
	m.tasks[t.ID] = t
}

// ListTasks refreshes the cache from tasks/list, walking every pagination
// page, and returns the merged view. When the refresh fails the cached view is
// still returned alongside the error, so a caller can keep showing stale but
// ordered data.
func (m *TaskManager) ListTasks(ctx context.Context) ([]Task, error) {
	if err := m.conn.tasksAvailable(); err != nil {
		return m.Tasks(), err
	}

	var fetched []Task
	var cursor string
	for {
		res, err := m.conn.call(ctx, MethodTasksList, ListTasksParams{Cursor: cursor})
		if err != nil {
			return m.Tasks(), err
		}
		if res.Error != nil {
			return m.Tasks(), fmt.Errorf("result error: %w", res.Error)
		}
		var result ListTasksResult
		if err := json.Unmarshal(res.Result, &result); err != nil {
			return m.Tasks(), fmt.Errorf("failed to unmarshal result: %w", err)
		}
		fetched = append(fetched, result.Tasks...)
		if result.NextCursor == "" {
			break
		}
		cursor = result.NextCursor
	}

	m.mu.Lock()
	for _, t := range fetched {
		if t.ID == "" {
			continue
		}
		m.apply(t)
	}
	m.mu.Unlock()

	return m.Tasks(), nil
}

// GetTask fetches one task by id from the server and merges it into the cache.
func (m *TaskManager) GetTask(ctx context.Context, taskID string) (Task, error) {
	if err := m.conn.tasksAvailable(); err != nil {
		return Task{}, err
	}

	res, err := m.conn.call(ctx, MethodTasksGet, GetTaskParams{TaskID: taskID})
	if err != nil {
		return Task{}, err
	}
	if res.Error != nil {
		return Task{}, fmt.Errorf("result error: %w", res.Error)
	}

	var t Task
	if err := json.Unmarshal(res.Result, &t); err != nil {
		return Task{}, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	if t.ID == "" {
		t.ID = taskID
	}

	m.mu.Lock()
	m.apply(t)
	merged := m.tasks[t.ID]
	m.mu.Unlock()
	return merged, nil
}

// CancelTask asks the server to cancel a task. Cancellation is advisory: the
// cache only moves once the server confirms the new state in its response or
// in a later status push. Cancelling a task already known to be terminal is a
// no-op.
func (m *TaskManager) CancelTask(ctx context.Context, taskID string) error {
	m.mu.RLock()
	cached, known := m.tasks[taskID]
	m.mu.RUnlock()
	if known && cached.State.Terminal() {
		return nil
	}

	if err := m.conn.tasksAvailable(); err != nil {
		return err
	}

	res, err := m.conn.call(ctx, MethodTasksCancel, CancelTaskParams{
		TaskID: taskID,
		Reason: userCancelledReason,
	})
	if err != nil {
		return err
	}
	if res.Error != nil {
		return fmt.Errorf("result error: %w", res.Error)
	}

	var t Task
	if err := json.Unmarshal(res.Result, &t); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	if t.ID == "" {
		t.ID = taskID
	}

	m.mu.Lock()
	m.apply(t)
	m.mu.Unlock()
	return nil
}

// Tasks returns every cached task in first-seen order.
func (m *TaskManager) Tasks() []Task {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tasks := make([]Task, 0, len(m.order))
	for _, id := range m.order {
		tasks = append(tasks, m.tasks[id])
	}
	return tasks
}

// ActiveTasks returns the cached tasks not yet in a terminal state, in
// first-seen order.
func (m *TaskManager) ActiveTasks() []Task {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var tasks []Task
	for _, id := range m.order {
		if t := m.tasks[id]; !t.State.Terminal() {
			tasks = append(tasks, t)
		}
	}
	return tasks
}

// CompletedTasks returns the cached tasks that finished successfully, in
// first-seen order. Failed and cancelled tasks are neither active nor
// completed; they only appear in the full Tasks view.
func (m *TaskManager) CompletedTasks() []Task {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var tasks []Task
	for _, id := range m.order {
		if t := m.tasks[id]; t.State == TaskStateCompleted {
			tasks = append(tasks, t)
		}
	}
	return tasks
}
