package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sanonone/kektorgraph/pkg/pipeline"
)

// TaskStatus defines the possible states of a task.
type TaskStatus string

const (
	TaskStatusStarted   TaskStatus = "started"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task represents an asynchronous clustering job.
type Task struct {
	ID              string
	Status          TaskStatus
	ProgressMessage string
	Error           string
	Report          *pipeline.Report
	CreatedAt       time.Time
	UpdatedAt       time.Time
	mu              sync.RWMutex
}

type taskJSON struct {
	ID              string           `json:"id"`
	Status          TaskStatus       `json:"status"`
	ProgressMessage string           `json:"progress_message,omitempty"`
	Error           string           `json:"error,omitempty"`
	Report          *pipeline.Report `json:"report,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// MarshalJSON encodes a consistent snapshot of the task.
func (t *Task) MarshalJSON() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return json.Marshal(taskJSON{
		ID:              t.ID,
		Status:          t.Status,
		ProgressMessage: t.ProgressMessage,
		Error:           t.Error,
		Report:          t.Report,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	})
}

// TaskManager tracks all asynchronous tasks.
type TaskManager struct {
	tasks map[string]*Task
	mu    sync.RWMutex
	now   func() time.Time
}

// NewTaskManager creates a new task manager.
func NewTaskManager() *TaskManager {
	return &TaskManager{
		tasks: make(map[string]*Task),
		now:   time.Now,
	}
}

// NewTask creates a new task, registers it, and returns it.
func (tm *TaskManager) NewTask() *Task {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	now := tm.now()
	task := &Task{
		ID:        uuid.New().String(),
		Status:    TaskStatusStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tm.tasks[task.ID] = task
	return task
}

// GetTask safely retrieves a task by its ID.
func (tm *TaskManager) GetTask(id string) (*Task, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	task, found := tm.tasks[id]
	return task, found
}

// Len returns the number of tracked tasks.
func (tm *TaskManager) Len() int {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return len(tm.tasks)
}

// Prune forgets finished tasks last updated more than ttl ago and returns
// how many were removed. Running tasks are kept.
func (tm *TaskManager) Prune(ttl time.Duration) int {
	cutoff := tm.now().Add(-ttl)
	tm.mu.Lock()
	defer tm.mu.Unlock()

	removed := 0
	for id, task := range tm.tasks {
		task.mu.RLock()
		expired := task.finished() && task.UpdatedAt.Before(cutoff)
		task.mu.RUnlock()
		if expired {
			delete(tm.tasks, id)
			removed++
		}
	}
	return removed
}

// --- Methods for updating a Task ---

func (t *Task) finished() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// SetStatus updates the status of the task.
func (t *Task) SetStatus(status TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = status
	t.UpdatedAt = time.Now()
}

// SetError marks the task as failed and records the error message.
func (t *Task) SetError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = TaskStatusFailed
	t.Error = err.Error()
	t.UpdatedAt = time.Now()
}

// SetProgress updates the progress message for the task.
func (t *Task) SetProgress(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ProgressMessage = message
	t.UpdatedAt = time.Now()
}

// Complete stores the report and marks the task as completed.
func (t *Task) Complete(report *pipeline.Report) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = TaskStatusCompleted
	t.Report = report
	t.UpdatedAt = time.Now()
}

// State returns the current status and error message.
func (t *Task) State() (TaskStatus, string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status, t.Error
}
