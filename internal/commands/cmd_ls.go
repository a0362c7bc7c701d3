package commands

import (
	"context"
	"fmt"

	"github.com/colonyops/taskdeck/internal/core/feed"
	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/colonyops/taskdeck/pkg/iojson"
	"github.com/urfave/cli/v3"
)

// LsCmd implements the taskdeck ls command.
type LsCmd struct {
	flags *Flags

	status string
	all    bool
}

// NewLsCmd creates a new ls command.
func NewLsCmd(flags *Flags) *LsCmd {
	return &LsCmd{flags: flags}
}

// Register adds the ls command to the application.
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "ls",
		Aliases:   []string{"list"},
		Usage:     "List tasks",
		UsageText: "taskdeck ls [--status <status>] [--all]",
		Description: `Lists the current user's tasks as JSON lines, sorted by order.

Tasks awaiting confirmed deletion are hidden unless --all is given.

Examples:
  taskdeck ls
  taskdeck ls --status pending
  taskdeck ls --all`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "status",
				Aliases:     []string{"s"},
				Usage:       "filter by sync status (synced, pending, pending-deletion)",
				Destination: &cmd.status,
			},
			&cli.BoolFlag{
				Name:        "all",
				Aliases:     []string{"a"},
				Usage:       "include tasks awaiting deletion",
				Destination: &cmd.all,
			},
		},
		Action: cmd.runList,
	})

	return app
}

func (cmd *LsCmd) runList(ctx context.Context, c *cli.Command) error {
	user, err := cmd.flags.RequireUser(ctx)
	if err != nil {
		return err
	}

	var tasks []task.Task
	if cmd.status != "" {
		status := task.SyncStatus(cmd.status)
		switch status {
		case task.StatusSynced, task.StatusPending, task.StatusPendingDeletion:
		default:
			return fmt.Errorf("invalid status %q: must be one of synced, pending, pending-deletion", cmd.status)
		}
		tasks, err = cmd.flags.App.Store.ListByUserAndStatus(ctx, user.ID, status)
	} else {
		tasks, err = cmd.flags.App.Store.ListByUser(ctx, user.ID)
	}
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	feed.Sort(tasks)

	for _, t := range tasks {
		if !cmd.all && cmd.status == "" && t.SyncStatus == task.StatusPendingDeletion {
			continue
		}
		if err := iojson.WriteLine(c.Root().Writer, t); err != nil {
			return err
		}
	}

	return nil
}
