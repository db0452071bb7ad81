package tasks

import (
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	ErrEmptySubject  = errors.New("tasks: subject is required")
	ErrTaskNotFound  = errors.New("tasks: task not found")
	ErrInvalidStatus = errors.New("tasks: invalid task status")
)

// TaskUpdate carries optional field changes; nil fields are left untouched.
type TaskUpdate struct {
	Subject     *string
	Description *string
	Status      *Status
}

// Store is an in-memory task registry. Ids are assigned in creation order
// starting at 1 and are never reused; deletion is a status transition so ids
// stay stable for later reference. The store owns its own counter and
// collection, so independent sessions get fully isolated stores.
type Store struct {
	mu     sync.RWMutex
	nextID int
	tasks  map[int]*Task
	order  []int
}

// NewStore creates an empty task store.
func NewStore() *Store {
	return &Store{nextID: 1, tasks: map[int]*Task{}}
}

// Create registers a new task and returns its assigned id. An empty status
// defaults to pending.
func (s *Store) Create(subject, description string, status Status) (*Task, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, ErrEmptySubject
	}
	if status == "" {
		status = StatusPending
	}
	if !validStatus(status) {
		return nil, ErrInvalidStatus
	}

	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	task := &Task{
		ID:          s.nextID,
		Subject:     subject,
		Description: strings.TrimSpace(description),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.nextID++
	s.tasks[task.ID] = task
	s.order = append(s.order, task.ID)

	return cloneTask(task), nil
}

// Get returns the task with the given id, deleted ones included.
func (s *Store) Get(id int) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task := s.tasks[id]
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return cloneTask(task), nil
}

// Update applies the non-nil fields of updates to the task with the given id.
// Deleted tasks remain updatable; restoring one is a plain status change.
func (s *Store) Update(id int, updates TaskUpdate) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := s.tasks[id]
	if task == nil {
		return nil, ErrTaskNotFound
	}

	if updates.Subject != nil {
		subject := strings.TrimSpace(*updates.Subject)
		if subject == "" {
			return nil, ErrEmptySubject
		}
		task.Subject = subject
	}
	if updates.Description != nil {
		task.Description = strings.TrimSpace(*updates.Description)
	}
	if updates.Status != nil {
		if !validStatus(*updates.Status) {
			return nil, ErrInvalidStatus
		}
		task.Status = *updates.Status
	}
	task.UpdatedAt = time.Now()

	return cloneTask(task), nil
}

// Delete soft-deletes the task: it disappears from List but keeps its id.
func (s *Store) Delete(id int) error {
	status := StatusDeleted
	_, err := s.Update(id, TaskUpdate{Status: &status})
	return err
}

// List returns all non-deleted tasks in creation order.
func (s *Store) List() []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*Task, 0, len(s.order))
	for _, id := range s.order {
		task := s.tasks[id]
		if task == nil || task.Status == StatusDeleted {
			continue
		}
		list = append(list, cloneTask(task))
	}
	return list
}

// Clear resets the store, id counter included. Test and reset use only.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = 1
	s.tasks = map[int]*Task{}
	s.order = nil
}

func cloneTask(task *Task) *Task {
	if task == nil {
		return nil
	}
	dup := *task
	return &dup
}

func validStatus(status Status) bool {
	switch status {
	case StatusPending, StatusInProgress, StatusCompleted, StatusDeleted:
		return true
	default:
		return false
	}
}
