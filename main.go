package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskdeck/internal/commands"
	"github.com/colonyops/taskdeck/internal/core/config"
	"github.com/colonyops/taskdeck/internal/core/connectivity"
	"github.com/colonyops/taskdeck/internal/core/eventbus"
	"github.com/colonyops/taskdeck/internal/core/identity"
	"github.com/colonyops/taskdeck/internal/core/logging"
	"github.com/colonyops/taskdeck/internal/core/task"
	"github.com/colonyops/taskdeck/internal/data/db"
	"github.com/colonyops/taskdeck/internal/data/mongostore"
	"github.com/colonyops/taskdeck/internal/data/stores"
	"github.com/colonyops/taskdeck/internal/taskdeck"
	"github.com/colonyops/taskdeck/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, build() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser  func()
		database   *db.DB
		mongoStore *mongostore.TaskStore
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "taskdeck",
		Usage:     "Offline-tolerant task list",
		UsageText: "taskdeck [global options] command [command options]",
		Description: `Taskdeck keeps a personal task list that stays usable without a network
connection. Edits made offline are tracked and reconciled automatically
when connectivity returns.

Run 'taskdeck' with no arguments to open the interactive task list.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("TASKDECK_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to the platform log directory)",
				Sources:     cli.EnvVars("TASKDECK_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("TASKDECK_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("TASKDECK_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.BoolFlag{
				Name:        "offline",
				Usage:       "force offline mode, skipping the connectivity probe",
				Sources:     cli.EnvVars("TASKDECK_OFFLINE"),
				Destination: &flags.Offline,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// Always log to a file; TUI and JSON output share stdout/stderr.
			logFile := flags.LogFile
			if logFile == "" {
				logFile = commands.DefaultLogFile()
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger.Hook(logging.ContextHook{})
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			secret, err := identity.LoadOrCreateSecret(cfg.DataDir, cfg.Auth.Secret)
			if err != nil {
				return ctx, fmt.Errorf("load auth secret: %w", err)
			}
			auth := identity.NewLocalProvider(cfg.DataDir, secret)

			var store task.Store
			switch cfg.Store.Backend {
			case config.BackendMongo:
				mongoStore, err = mongostore.New(ctx, cfg.Store.MongoURI, cfg.Store.Database, cfg.Store.Collection, log.Logger)
				if err != nil {
					return ctx, fmt.Errorf("connect to mongo: %w", err)
				}
				store = mongoStore
			default:
				database, err = db.Open(cfg.DataDir)
				if err != nil {
					return ctx, fmt.Errorf("open database: %w", err)
				}
				store = stores.NewTaskStore(database, log.Logger)
			}

			var signal connectivity.Signal
			if flags.Offline {
				signal = connectivity.NewManual(false)
			} else {
				signal = connectivity.NewHTTPProbe(cfg.Sync.ProbeURL, cfg.Sync.ProbeInterval)
			}

			bus := eventbus.New(64)
			eventbus.RegisterDebugLogger(bus, log.Logger)
			eventbus.NewNotificationRouter(bus).Register()

			flags.App = taskdeck.NewApp(cfg, store, auth, signal, bus)

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if mongoStore != nil {
				if err := mongoStore.Close(ctx); err != nil {
					log.Error().Err(err).Msg("failed to close mongo connection")
				}
			}

			if database != nil {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	tuiCmd := commands.NewTuiCmd(flags)

	app = commands.NewAuthCmd(flags).Register(app)
	app = commands.NewAddCmd(flags).Register(app)
	app = commands.NewLsCmd(flags).Register(app)
	app = commands.NewDoneCmd(flags).Register(app)
	app = commands.NewEditCmd(flags).Register(app)
	app = commands.NewRmCmd(flags).Register(app)
	app = commands.NewMvCmd(flags).Register(app)
	app = commands.NewSubCmd(flags).Register(app)
	app = commands.NewSyncCmd(flags).Register(app)
	app = commands.NewConfigValidateCmd(flags).Register(app)
	app = tuiCmd.Register(app)

	// Open the TUI when no subcommand is provided.
	app.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'taskdeck --help' for usage", c.Args().First())
		}
		return tuiCmd.Run(ctx, c)
	}

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Println()
		fmt.Println(runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
