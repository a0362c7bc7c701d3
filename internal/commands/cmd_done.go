package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// DoneCmd implements the taskdeck done command.
type DoneCmd struct {
	flags *Flags

	undo bool
}

// NewDoneCmd creates a new done command.
func NewDoneCmd(flags *Flags) *DoneCmd {
	return &DoneCmd{flags: flags}
}

// Register adds the done command to the application.
func (cmd *DoneCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "done",
		Usage:     "Mark a task completed",
		UsageText: "taskdeck done <id> [--undo]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "undo",
				Aliases:     []string{"u"},
				Usage:       "mark the task as not completed",
				Destination: &cmd.undo,
			},
		},
		Action: cmd.runDone,
	})

	return app
}

func (cmd *DoneCmd) runDone(ctx context.Context, c *cli.Command) error {
	if _, err := cmd.flags.RequireUser(ctx); err != nil {
		return err
	}

	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("task id is required")
	}

	if err := cmd.flags.App.Tasks.SetCompleted(ctx, id, !cmd.undo); err != nil {
		return fmt.Errorf("update completion: %w", err)
	}
	return nil
}
