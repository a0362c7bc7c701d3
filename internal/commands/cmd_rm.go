package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// RmCmd implements the taskdeck rm command.
type RmCmd struct {
	flags *Flags
}

// NewRmCmd creates a new rm command.
func NewRmCmd(flags *Flags) *RmCmd {
	return &RmCmd{flags: flags}
}

// Register adds the rm command to the application.
func (cmd *RmCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "rm",
		Aliases:   []string{"delete"},
		Usage:     "Delete a task",
		UsageText: "taskdeck rm <id>",
		Description: `Deletes a task.

While offline the task is only marked for deletion: it disappears from
lists immediately and is physically removed on the next sync.`,
		Action: cmd.runRm,
	})

	return app
}

func (cmd *RmCmd) runRm(ctx context.Context, c *cli.Command) error {
	if _, err := cmd.flags.RequireUser(ctx); err != nil {
		return err
	}

	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("task id is required")
	}

	if err := cmd.flags.App.Tasks.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
