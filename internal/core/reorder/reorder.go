// Package reorder computes new task order values after a drag-and-drop
// move and persists them through a retrying outbox.
package reorder

import "github.com/colonyops/taskdeck/internal/core/task"

// Move relocates the task with activeID to the position currently held by
// overID (a single-element move, not a swap) and renumbers every order
// value to a dense 0..n-1 sequence. The returned map holds the new order
// for each task whose value changed; it is empty when activeID equals
// overID or either id is not present.
func Move(tasks []task.Task, activeID, overID string) ([]task.Task, map[string]int) {
	if activeID == overID {
		return tasks, nil
	}

	oldIndex, newIndex := -1, -1
	for i, t := range tasks {
		switch t.ID {
		case activeID:
			oldIndex = i
		case overID:
			newIndex = i
		}
	}
	if oldIndex < 0 || newIndex < 0 {
		return tasks, nil
	}

	moved := arrayMove(tasks, oldIndex, newIndex)

	changes := make(map[string]int)
	for i := range moved {
		if moved[i].Order != i {
			moved[i].Order = i
			changes[moved[i].ID] = i
		}
	}

	return moved, changes
}

// arrayMove removes the element at from and reinserts it at to, preserving
// the relative order of everything else.
func arrayMove(tasks []task.Task, from, to int) []task.Task {
	out := make([]task.Task, 0, len(tasks))
	out = append(out, tasks[:from]...)
	out = append(out, tasks[from+1:]...)

	out = append(out, task.Task{})
	copy(out[to+1:], out[to:])
	out[to] = tasks[from]

	return out
}
