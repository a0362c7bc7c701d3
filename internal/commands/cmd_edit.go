package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// EditCmd implements the taskdeck edit command.
type EditCmd struct {
	flags *Flags

	title    string
	date     string
	clock    string
	clearDue bool
}

// NewEditCmd creates a new edit command.
func NewEditCmd(flags *Flags) *EditCmd {
	return &EditCmd{flags: flags}
}

// Register adds the edit command to the application.
func (cmd *EditCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "edit",
		Usage:     "Edit a task's title or due date",
		UsageText: "taskdeck edit <id> [--title <title>] [--date <YYYY-MM-DD>] [--time <HH:MM>] [--clear-due]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "title",
				Aliases:     []string{"t"},
				Usage:       "new title",
				Destination: &cmd.title,
			},
			&cli.StringFlag{
				Name:        "date",
				Aliases:     []string{"d"},
				Usage:       "new due date (YYYY-MM-DD)",
				Destination: &cmd.date,
			},
			&cli.StringFlag{
				Name:        "time",
				Usage:       "new due time of day (HH:MM), requires --date",
				Destination: &cmd.clock,
			},
			&cli.BoolFlag{
				Name:        "clear-due",
				Usage:       "remove the due date",
				Destination: &cmd.clearDue,
			},
		},
		Action: cmd.runEdit,
	})

	return app
}

func (cmd *EditCmd) runEdit(ctx context.Context, c *cli.Command) error {
	if _, err := cmd.flags.RequireUser(ctx); err != nil {
		return err
	}

	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("task id is required")
	}

	changed := false

	if cmd.title != "" {
		if err := cmd.flags.App.Tasks.Rename(ctx, id, cmd.title); err != nil {
			return fmt.Errorf("rename task: %w", err)
		}
		changed = true
	}

	switch {
	case cmd.clearDue:
		if err := cmd.flags.App.Tasks.SetDue(ctx, id, nil); err != nil {
			return fmt.Errorf("clear due date: %w", err)
		}
		changed = true
	case cmd.date != "":
		due, err := parseDue(cmd.date, cmd.clock)
		if err != nil {
			return err
		}
		if err := cmd.flags.App.Tasks.SetDue(ctx, id, due); err != nil {
			return fmt.Errorf("set due date: %w", err)
		}
		changed = true
	}

	if !changed {
		return fmt.Errorf("nothing to change: pass --title, --date, or --clear-due")
	}
	return nil
}
