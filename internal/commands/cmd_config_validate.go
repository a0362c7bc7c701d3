package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "taskdeck config validate [options]",
				Description: "Validates the configuration file, checking the store backend, connection settings, and file paths.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

func (cmd *ConfigValidateCmd) run(_ context.Context, c *cli.Command) error {
	err := cmd.flags.Config.ValidateDeep(cmd.flags.ConfigPath)

	if cmd.format == "json" {
		return cmd.outputJSON(c, err)
	}

	return cmd.outputText(c, err)
}

func (cmd *ConfigValidateCmd) outputJSON(c *cli.Command, result error) error {
	out := struct {
		Valid  bool                `json:"valid"`
		Errors []map[string]string `json:"errors,omitempty"`
	}{Valid: result == nil}

	for _, fe := range fieldErrors(result) {
		out.Errors = append(out.Errors, map[string]string{
			"field": fe.Field,
			"error": fe.Err.Error(),
		})
	}

	enc := json.NewEncoder(c.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (cmd *ConfigValidateCmd) outputText(c *cli.Command, result error) error {
	if result == nil {
		fmt.Fprintln(c.Root().Writer, "Configuration is valid")
		return nil
	}

	fes := fieldErrors(result)
	for _, fe := range fes {
		fmt.Fprintf(c.Root().ErrWriter, "%s: %s\n", fe.Field, fe.Err)
	}
	return cli.Exit(fmt.Sprintf("%d error(s) found", len(fes)), 1)
}

type fieldError struct {
	Field string
	Err   error
}

// fieldErrors flattens a validation error into per-field entries so both
// output formats can render them uniformly.
func fieldErrors(err error) []fieldError {
	if err == nil {
		return nil
	}

	var fes criterio.FieldErrors
	if errors.As(err, &fes) {
		out := make([]fieldError, 0, len(fes))
		for _, fe := range fes {
			out = append(out, fieldError{Field: fe.Field, Err: fe.Err})
		}
		return out
	}

	return []fieldError{{Field: "config", Err: err}}
}
