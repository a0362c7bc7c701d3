package commands

import (
	"context"
	"fmt"

	"github.com/colonyops/taskdeck/internal/core/feed"
	"github.com/colonyops/taskdeck/internal/core/reorder"
	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

// MvCmd implements the taskdeck mv command, the CLI analogue of a
// drag-and-drop move.
type MvCmd struct {
	flags *Flags
}

// NewMvCmd creates a new mv command.
func NewMvCmd(flags *Flags) *MvCmd {
	return &MvCmd{flags: flags}
}

// Register adds the mv command to the application.
func (cmd *MvCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "mv",
		Aliases:   []string{"move"},
		Usage:     "Move a task to another task's position",
		UsageText: "taskdeck mv <id> <target-id>",
		Description: `Relocates a task to the position currently held by the target task and
renumbers order values to a dense 0..n-1 sequence. Moving a task onto
itself changes nothing.

Examples:
  taskdeck mv abc123 def456`,
		Action: cmd.runMv,
	})

	return app
}

func (cmd *MvCmd) runMv(ctx context.Context, c *cli.Command) error {
	user, err := cmd.flags.RequireUser(ctx)
	if err != nil {
		return err
	}

	activeID := c.Args().Get(0)
	overID := c.Args().Get(1)
	if activeID == "" || overID == "" {
		return fmt.Errorf("usage: taskdeck mv <id> <target-id>")
	}
	if activeID == overID {
		return nil
	}

	all, err := cmd.flags.App.Store.ListByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	active := make([]task.Task, 0, len(all))
	for _, t := range all {
		if t.SyncStatus != task.StatusPendingDeletion {
			active = append(active, t)
		}
	}
	feed.Sort(active)

	_, changes := reorder.Move(active, activeID, overID)
	if len(changes) == 0 {
		return fmt.Errorf("task %s or %s not found", activeID, overID)
	}

	// Order writes are independent per task: one failing write is logged
	// and skipped, the rest still land.
	failed := 0
	for id, order := range changes {
		o := order
		if _, err := cmd.flags.App.Tasks.Update(ctx, id, task.Patch{Order: &o}); err != nil {
			log.Warn().Err(err).Str("task_id", id).Msg("order update failed")
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d order updates failed", failed, len(changes))
	}
	return nil
}
