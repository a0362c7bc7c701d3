// Package taskdeck wires the application services together. Commands and
// the TUI consume App instead of cherry-picking raw dependencies.
package taskdeck

import (
	"context"

	"github.com/colonyops/taskdeck/internal/core/config"
	"github.com/colonyops/taskdeck/internal/core/connectivity"
	"github.com/colonyops/taskdeck/internal/core/eventbus"
	"github.com/colonyops/taskdeck/internal/core/feed"
	"github.com/colonyops/taskdeck/internal/core/identity"
	"github.com/colonyops/taskdeck/internal/core/logging"
	"github.com/colonyops/taskdeck/internal/core/reorder"
	"github.com/colonyops/taskdeck/internal/core/syncer"
	"github.com/colonyops/taskdeck/internal/core/task"
)

// App is the central entry point for all taskdeck operations.
type App struct {
	Tasks   *TaskService
	Feed    *feed.Feed
	Syncer  *syncer.Syncer
	Reorder *reorder.Engine
	Outbox  *reorder.Outbox

	Monitor *connectivity.Monitor
	Auth    identity.Provider
	Bus     *eventbus.EventBus
	Config  *config.Config
	Store   task.Store
}

// NewApp constructs an App from explicit dependencies and connects the
// connectivity monitor to the reconciler.
func NewApp(
	cfg *config.Config,
	store task.Store,
	auth identity.Provider,
	signal connectivity.Signal,
	bus *eventbus.EventBus,
) *App {
	monitor := connectivity.NewMonitor(signal, bus, logging.Component("connectivity"))
	taskFeed := feed.New(store, bus, logging.Component("feed"))
	tasks := NewTaskService(store, monitor, bus, logging.Component("tasks"), cfg.Sync.CreateTimeout)

	// Order writes ride the same update path as user edits so they pick
	// up sync-status stamping like any other mutation.
	outbox := reorder.NewOutbox(tasks, taskFeed, bus, logging.Component("reorder"))

	app := &App{
		Tasks:   tasks,
		Feed:    taskFeed,
		Syncer:  syncer.New(store, monitor, bus, logging.Component("syncer")),
		Reorder: reorder.NewEngine(taskFeed, outbox, logging.Component("reorder")),
		Outbox:  outbox,
		Monitor: monitor,
		Auth:    auth,
		Bus:     bus,
		Config:  cfg,
		Store:   store,
	}

	// Transition to online triggers a reconciliation sweep for the
	// current user. Sweeps are idempotent, so flapping is harmless.
	monitor.OnOnline(func(ctx context.Context) {
		user, err := auth.CurrentUser(ctx)
		if err != nil {
			return
		}
		_, _ = app.Syncer.Sync(ctx, user.ID)
	})

	return app
}

// Start launches the background workers: the event bus, the connectivity
// monitor, the order outbox, and the live feed for the current user (when
// authenticated). Everything winds down when ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	go a.Bus.Start(ctx)
	go a.Monitor.Run(ctx)
	go a.Outbox.Run(ctx)

	if user, err := a.Auth.CurrentUser(ctx); err == nil {
		go func() { _ = a.Feed.Run(ctx, user.ID) }()
	}
}
