package commands

import (
	"context"
	"fmt"

	"github.com/colonyops/taskdeck/pkg/iojson"
	"github.com/urfave/cli/v3"
)

// SyncCmd implements the taskdeck sync command.
type SyncCmd struct {
	flags *Flags
}

// NewSyncCmd creates a new sync command.
func NewSyncCmd(flags *Flags) *SyncCmd {
	return &SyncCmd{flags: flags}
}

// Register adds the sync command to the application.
func (cmd *SyncCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "sync",
		Usage: "Reconcile pending tasks",
		Description: `Runs a reconciliation sweep: tasks still pending are marked synced and
tasks marked for deletion are removed. The sweep is idempotent and safe
to run repeatedly. Does nothing while offline.`,
		Action: cmd.runSync,
	})

	return app
}

func (cmd *SyncCmd) runSync(ctx context.Context, c *cli.Command) error {
	user, err := cmd.flags.RequireUser(ctx)
	if err != nil {
		return err
	}

	result, err := cmd.flags.App.Syncer.Sync(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	if err := iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, result); err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d tasks failed to reconcile", result.Failed)
	}
	return nil
}
