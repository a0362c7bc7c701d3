package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/colonyops/taskdeck/pkg/iojson"
	"github.com/urfave/cli/v3"
)

// AddCmd implements the taskdeck add command.
type AddCmd struct {
	flags *Flags

	title       string
	date        string
	clock       string
	subtasks    []string
	interactive bool
	fromJSON    bool
	reader      iojson.FileReader[task.Draft]
}

// NewAddCmd creates a new add command.
func NewAddCmd(flags *Flags) *AddCmd {
	return &AddCmd{flags: flags}
}

// Register adds the add command to the application.
func (cmd *AddCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "add",
		Usage:     "Create a task",
		UsageText: "taskdeck add <title> [--date <YYYY-MM-DD>] [--time <HH:MM>] [--subtask <text>]...",
		Description: `Creates a task for the current user.

Creation is optimistic: if the store cannot confirm the write within the
configured timeout the task is still created locally with a temporary id
and synchronized later.

Examples:
  taskdeck add "Buy milk"
  taskdeck add "Call Alice" --date 2026-09-02 --time 14:30
  taskdeck add "Pack" --subtask "passport" --subtask "charger"
  taskdeck add -i
  echo '{"Title":"Imported"}' | taskdeck add --json`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "date",
				Aliases:     []string{"d"},
				Usage:       "due date (YYYY-MM-DD)",
				Destination: &cmd.date,
			},
			&cli.StringFlag{
				Name:        "time",
				Aliases:     []string{"t"},
				Usage:       "due time of day (HH:MM), requires --date",
				Destination: &cmd.clock,
			},
			&cli.StringSliceFlag{
				Name:        "subtask",
				Aliases:     []string{"s"},
				Usage:       "subtask text (repeatable)",
				Destination: &cmd.subtasks,
			},
			&cli.BoolFlag{
				Name:        "interactive",
				Aliases:     []string{"i"},
				Usage:       "fill in the task via an interactive form",
				Destination: &cmd.interactive,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "read a task draft as JSON from stdin or --file",
				Destination: &cmd.fromJSON,
			},
			cmd.reader.Flag(),
		},
		Action: cmd.runAdd,
	})

	return app
}

func (cmd *AddCmd) runAdd(ctx context.Context, c *cli.Command) error {
	user, err := cmd.flags.RequireUser(ctx)
	if err != nil {
		return err
	}

	draft, err := cmd.buildDraft(c)
	if err != nil {
		return err
	}

	created, err := cmd.flags.App.Tasks.Create(ctx, user.ID, draft)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, created)
}

func (cmd *AddCmd) buildDraft(c *cli.Command) (task.Draft, error) {
	switch {
	case cmd.fromJSON:
		return cmd.reader.Read()
	case cmd.interactive:
		return cmd.promptDraft()
	}

	title := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	cmd.title = title

	due, err := parseDue(cmd.date, cmd.clock)
	if err != nil {
		return task.Draft{}, err
	}

	draft := task.Draft{Title: title, Due: due}
	for _, text := range cmd.subtasks {
		draft.Subtasks = append(draft.Subtasks, task.Subtask{Text: text})
	}
	return draft, nil
}

// promptDraft collects the draft through a form, the interactive analogue
// of the add-task dialog.
func (cmd *AddCmd) promptDraft() (task.Draft, error) {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Task").
				Value(&cmd.title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("title must not be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Due date").
				Placeholder("YYYY-MM-DD (optional)").
				Value(&cmd.date),
			huh.NewInput().
				Title("Due time").
				Placeholder("HH:MM (optional)").
				Value(&cmd.clock),
		),
	)
	if err := form.Run(); err != nil {
		return task.Draft{}, fmt.Errorf("add form: %w", err)
	}

	due, err := parseDue(cmd.date, cmd.clock)
	if err != nil {
		return task.Draft{}, err
	}
	return task.Draft{Title: cmd.title, Due: due}, nil
}

// parseDue combines a date and optional time of day into a due timestamp.
// Both empty means no due date.
func parseDue(date, clock string) (*time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)

	if date == "" {
		if clock != "" {
			return nil, fmt.Errorf("--time requires --date")
		}
		return nil, nil
	}

	layout := "2006-01-02"
	value := date
	if clock != "" {
		layout = "2006-01-02 15:04"
		value = date + " " + clock
	}

	due, err := time.ParseInLocation(layout, value, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q: %w", value, err)
	}
	return &due, nil
}
