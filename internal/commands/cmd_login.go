package commands

import (
	"context"
	"fmt"

	"github.com/colonyops/taskdeck/internal/core/identity"
	"github.com/colonyops/taskdeck/pkg/iojson"
	"github.com/urfave/cli/v3"
)

// sessionManager is the extra surface of providers that can establish and
// tear down sessions. The local provider implements it.
type sessionManager interface {
	Login(ctx context.Context, name, email string) (identity.User, error)
	Logout(ctx context.Context) error
}

// AuthCmd implements the taskdeck login/logout/whoami commands.
type AuthCmd struct {
	flags *Flags

	loginName  string
	loginEmail string
}

// NewAuthCmd creates the auth command group.
func NewAuthCmd(flags *Flags) *AuthCmd {
	return &AuthCmd{flags: flags}
}

// Register adds the auth commands to the application.
func (cmd *AuthCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "login",
			Usage:     "Start a session",
			UsageText: "taskdeck login --email <email> [--name <name>]",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:        "email",
					Aliases:     []string{"e"},
					Usage:       "email identifying the user",
					Required:    true,
					Destination: &cmd.loginEmail,
				},
				&cli.StringFlag{
					Name:        "name",
					Aliases:     []string{"n"},
					Usage:       "display name",
					Destination: &cmd.loginName,
				},
			},
			Action: cmd.runLogin,
		},
		&cli.Command{
			Name:   "logout",
			Usage:  "End the current session",
			Action: cmd.runLogout,
		},
		&cli.Command{
			Name:   "whoami",
			Usage:  "Show the current user",
			Action: cmd.runWhoami,
		},
	)

	return app
}

func (cmd *AuthCmd) runLogin(ctx context.Context, c *cli.Command) error {
	mgr, ok := cmd.flags.App.Auth.(sessionManager)
	if !ok {
		return fmt.Errorf("the configured auth provider does not support login")
	}

	user, err := mgr.Login(ctx, cmd.loginName, cmd.loginEmail)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, user)
}

func (cmd *AuthCmd) runLogout(ctx context.Context, _ *cli.Command) error {
	mgr, ok := cmd.flags.App.Auth.(sessionManager)
	if !ok {
		return fmt.Errorf("the configured auth provider does not support logout")
	}
	return mgr.Logout(ctx)
}

func (cmd *AuthCmd) runWhoami(ctx context.Context, c *cli.Command) error {
	user, err := cmd.flags.RequireUser(ctx)
	if err != nil {
		return err
	}
	return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, user)
}
