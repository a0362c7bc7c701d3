package taskdeck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/colonyops/taskdeck/internal/core/eventbus"
	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/colonyops/taskdeck/pkg/randid"
	"github.com/rs/zerolog"
)

const tempIDLength = 12

// OnlineChecker reports the current connectivity state at mutation time.
type OnlineChecker interface {
	Online() bool
}

// TaskService is the task store client: it stamps sync metadata on every
// mutation and owns the create/update/delete semantics around connectivity.
//
// Error tolerance is deliberately asymmetric: Create masks remote
// unreachability behind a temporary local record so creation always feels
// instantaneous, while Update and Delete surface failures to the caller.
type TaskService struct {
	store         task.Store
	online        OnlineChecker
	bus           *eventbus.EventBus
	log           zerolog.Logger
	createTimeout time.Duration
}

// NewTaskService creates a task service over the given store.
func NewTaskService(store task.Store, online OnlineChecker, bus *eventbus.EventBus, log zerolog.Logger, createTimeout time.Duration) *TaskService {
	if createTimeout <= 0 {
		createTimeout = 2 * time.Second
	}
	return &TaskService{
		store:         store,
		online:        online,
		bus:           bus,
		log:           log.With().Str("component", "task-service").Logger(),
		createTimeout: createTimeout,
	}
}

type insertResult struct {
	id  string
	err error
}

// Create constructs and persists a new task for the user. The remote write
// races a short timeout: if it does not complete in time, or fails for any
// reason, the returned task carries a temporary id and renders immediately.
// The write itself is never cancelled; on timeout it keeps running in the
// background and the authoritative record arrives through the feed,
// superseding the temporary one. Only invalid drafts produce an error.
func (s *TaskService) Create(ctx context.Context, userID string, draft task.Draft) (task.Task, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return task.Task{}, task.ErrEmptyTitle
	}

	now := time.Now()
	t := task.Task{
		UserID:          userID,
		Title:           draft.Title,
		Due:             draft.Due,
		Subtasks:        draft.Subtasks,
		SyncStatus:      s.stampStatus(),
		ClientCreatedAt: now,
		LastModified:    now,
	}

	res := make(chan insertResult, 1)
	go func(t task.Task) {
		id, err := s.store.Insert(ctx, t)
		res <- insertResult{id: id, err: err}
	}(t)

	timer := time.NewTimer(s.createTimeout)
	defer timer.Stop()

	select {
	case r := <-res:
		if r.err != nil {
			if errors.Is(r.err, task.ErrEmptyTitle) {
				return task.Task{}, r.err
			}
			r.id = task.TempIDPrefix + randid.Generate(tempIDLength)
			s.log.Warn().
				Err(r.err).
				Str("temp_id", r.id).
				Msg("remote create unconfirmed, returning temporary task")
		}
		t.ID = r.id
	case <-timer.C:
		t.ID = task.TempIDPrefix + randid.Generate(tempIDLength)
		s.log.Warn().
			Str("temp_id", t.ID).
			Msg("remote create slow, returning temporary task")
		go func() {
			if r := <-res; r.err != nil {
				s.log.Warn().Err(r.err).Msg("deferred create failed")
			}
		}()
	}

	if s.bus != nil {
		s.bus.PublishTaskCreated(eventbus.TaskCreatedPayload{Task: &t})
	}

	return t, nil
}

// Update merges the patch into the task, re-stamping the sync status from
// current connectivity. Unlike Create, failures propagate to the caller.
// Returns the patch as actually written, including the stamped status.
func (s *TaskService) Update(ctx context.Context, id string, p task.Patch) (task.Patch, error) {
	status := s.stampStatus()
	p.SyncStatus = &status

	if err := s.store.UpdateFields(ctx, id, p); err != nil {
		return task.Patch{}, fmt.Errorf("update task: %w", err)
	}
	return p, nil
}

// UpdateFields adapts Update to the reorder outbox's patcher shape: order
// writes go through the same stamping path as any other edit.
func (s *TaskService) UpdateFields(ctx context.Context, id string, p task.Patch) error {
	_, err := s.Update(ctx, id, p)
	return err
}

// Delete removes the task. While offline the delete is downgraded to a
// pending-deletion mark: the task disappears from the active view at once
// and the physical delete is deferred to the next reconciliation.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	if !s.online.Online() {
		status := task.StatusPendingDeletion
		if err := s.store.UpdateFields(ctx, id, task.Patch{SyncStatus: &status}); err != nil {
			return fmt.Errorf("mark task for deletion: %w", err)
		}
		if s.bus != nil {
			s.bus.PublishTaskDeleted(eventbus.TaskDeletedPayload{TaskID: id, Deferred: true})
		}
		return nil
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if s.bus != nil {
		s.bus.PublishTaskDeleted(eventbus.TaskDeletedPayload{TaskID: id})
	}
	return nil
}

// SetCompleted flips the completion flag. Subtask completion is untouched;
// the two are independent by contract.
func (s *TaskService) SetCompleted(ctx context.Context, id string, completed bool) error {
	_, err := s.Update(ctx, id, task.Patch{Completed: &completed})
	return err
}

// Rename changes the task title.
func (s *TaskService) Rename(ctx context.Context, id, title string) error {
	if strings.TrimSpace(title) == "" {
		return task.ErrEmptyTitle
	}
	_, err := s.Update(ctx, id, task.Patch{Title: &title})
	return err
}

// SetDue changes or clears the due date.
func (s *TaskService) SetDue(ctx context.Context, id string, due *time.Time) error {
	p := task.Patch{Due: due}
	if due == nil {
		p.ClearDue = true
	}
	_, err := s.Update(ctx, id, p)
	return err
}

// AddSubtask appends a subtask with a locally generated id.
func (s *TaskService) AddSubtask(ctx context.Context, id, text string) (task.Subtask, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return task.Subtask{}, fmt.Errorf("load task: %w", err)
	}

	sub := task.Subtask{ID: randid.Generate(10), Text: text}
	subtasks := append(t.Subtasks, sub)
	if _, err := s.Update(ctx, id, task.Patch{Subtasks: &subtasks}); err != nil {
		return task.Subtask{}, err
	}
	return sub, nil
}

// ToggleSubtask flips a subtask's completion flag in place.
func (s *TaskService) ToggleSubtask(ctx context.Context, id, subtaskID string) error {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}

	found := false
	subtasks := make([]task.Subtask, len(t.Subtasks))
	copy(subtasks, t.Subtasks)
	for i := range subtasks {
		if subtasks[i].ID == subtaskID {
			subtasks[i].Completed = !subtasks[i].Completed
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("subtask %s: %w", subtaskID, task.ErrNotFound)
	}

	_, err = s.Update(ctx, id, task.Patch{Subtasks: &subtasks})
	return err
}

// RemoveSubtask deletes a subtask from the parent.
func (s *TaskService) RemoveSubtask(ctx context.Context, id, subtaskID string) error {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}

	subtasks := make([]task.Subtask, 0, len(t.Subtasks))
	for _, sub := range t.Subtasks {
		if sub.ID != subtaskID {
			subtasks = append(subtasks, sub)
		}
	}
	if len(subtasks) == len(t.Subtasks) {
		return fmt.Errorf("subtask %s: %w", subtaskID, task.ErrNotFound)
	}

	_, err = s.Update(ctx, id, task.Patch{Subtasks: &subtasks})
	return err
}

func (s *TaskService) stampStatus() task.SyncStatus {
	if s.online.Online() {
		return task.StatusSynced
	}
	return task.StatusPending
}
