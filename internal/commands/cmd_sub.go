package commands

import (
	"context"
	"fmt"

	"github.com/colonyops/taskdeck/pkg/iojson"
	"github.com/urfave/cli/v3"
)

// SubCmd implements the taskdeck sub command group for subtasks.
type SubCmd struct {
	flags *Flags

	addText string
}

// NewSubCmd creates a new sub command.
func NewSubCmd(flags *Flags) *SubCmd {
	return &SubCmd{flags: flags}
}

// Register adds the sub command to the application.
func (cmd *SubCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "sub",
		Usage: "Manage subtasks",
		Description: `Subtask commands. Subtasks live inside their parent task and are
persisted with it.

Examples:
  taskdeck sub add abc123 --text "buy stamps"
  taskdeck sub toggle abc123 k3jf9s02mm
  taskdeck sub rm abc123 k3jf9s02mm
  taskdeck sub ls abc123`,
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a subtask to a task",
				UsageText: "taskdeck sub add <task-id> --text <text>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "text",
						Aliases:     []string{"t"},
						Usage:       "subtask text",
						Required:    true,
						Destination: &cmd.addText,
					},
				},
				Action: cmd.runAdd,
			},
			{
				Name:      "toggle",
				Usage:     "Toggle a subtask's completion",
				UsageText: "taskdeck sub toggle <task-id> <subtask-id>",
				Action:    cmd.runToggle,
			},
			{
				Name:      "rm",
				Usage:     "Remove a subtask",
				UsageText: "taskdeck sub rm <task-id> <subtask-id>",
				Action:    cmd.runRm,
			},
			{
				Name:      "ls",
				Usage:     "List a task's subtasks",
				UsageText: "taskdeck sub ls <task-id>",
				Action:    cmd.runLs,
			},
		},
	})

	return app
}

func (cmd *SubCmd) runAdd(ctx context.Context, c *cli.Command) error {
	if _, err := cmd.flags.RequireUser(ctx); err != nil {
		return err
	}

	taskID := c.Args().First()
	if taskID == "" {
		return fmt.Errorf("task id is required")
	}

	sub, err := cmd.flags.App.Tasks.AddSubtask(ctx, taskID, cmd.addText)
	if err != nil {
		return fmt.Errorf("add subtask: %w", err)
	}
	return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, sub)
}

func (cmd *SubCmd) runToggle(ctx context.Context, c *cli.Command) error {
	if _, err := cmd.flags.RequireUser(ctx); err != nil {
		return err
	}

	taskID, subID := c.Args().Get(0), c.Args().Get(1)
	if taskID == "" || subID == "" {
		return fmt.Errorf("usage: taskdeck sub toggle <task-id> <subtask-id>")
	}

	if err := cmd.flags.App.Tasks.ToggleSubtask(ctx, taskID, subID); err != nil {
		return fmt.Errorf("toggle subtask: %w", err)
	}
	return nil
}

func (cmd *SubCmd) runRm(ctx context.Context, c *cli.Command) error {
	if _, err := cmd.flags.RequireUser(ctx); err != nil {
		return err
	}

	taskID, subID := c.Args().Get(0), c.Args().Get(1)
	if taskID == "" || subID == "" {
		return fmt.Errorf("usage: taskdeck sub rm <task-id> <subtask-id>")
	}

	if err := cmd.flags.App.Tasks.RemoveSubtask(ctx, taskID, subID); err != nil {
		return fmt.Errorf("remove subtask: %w", err)
	}
	return nil
}

func (cmd *SubCmd) runLs(ctx context.Context, c *cli.Command) error {
	if _, err := cmd.flags.RequireUser(ctx); err != nil {
		return err
	}

	taskID := c.Args().First()
	if taskID == "" {
		return fmt.Errorf("task id is required")
	}

	t, err := cmd.flags.App.Store.Get(ctx, taskID)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}

	for _, sub := range t.Subtasks {
		if err := iojson.WriteLine(c.Root().Writer, sub); err != nil {
			return err
		}
	}
	return nil
}
