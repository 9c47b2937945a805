package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fum1er/KOM-Hunters/internal/config"
	"github.com/fum1er/KOM-Hunters/internal/scheduler"
	"github.com/fum1er/KOM-Hunters/internal/server"
)

// Cadence of session maintenance: expired-session sweeps and proactive token
// refreshes.
const maintenanceInterval = time.Minute

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig func() config.Config
	notify     func(chan<- os.Signal, ...os.Signal)
	run        func(context.Context, config.Config, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig: config.Load,
		notify:     signal.Notify,
		run:        Run,
	}
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, signals, nil); err != nil {
		log.Printf("server exited with error: %v", err)
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and the maintenance scheduler, then waits for
// termination signals.
func Run(ctx context.Context, cfg config.Config, signals <-chan os.Signal, listen ListenFunc) error {
	srv := server.NewServer(cfg)

	sched := scheduler.New(srv.Sessions, maintenanceInterval)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return shutdownFn(srv.App, shutdownCtx)
}
