package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/amiprep/logger"
)

const defaultGracefulTimeout = 15 * time.Second

// App carries a typed config through the lifecycle of one task.
type App[C Config] struct {
	Name    string
	Version string
	Cfg     C
	Logger  *logger.Logger

	gracefulTimeout time.Duration
	onStart         []Hook
	onStop          []Hook
	signals         []os.Signal
}

// NewApp applies defaults to cfg, validates it and initialises the logger.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	base := cfg.GetServiceConfig()

	o := &appOptions{gracefulTimeout: defaultGracefulTimeout}
	for _, opt := range opts {
		opt(o)
	}

	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Logger:          o.logger,
		gracefulTimeout: o.gracefulTimeout,
		signals:         []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
	if app.Logger == nil {
		logger.Init(&base.Logging)
		app.Logger = logger.GetGlobalLogger()
	}
	return app, nil
}

// RunTask runs the start hooks, then task, then the stop hooks. The task's
// context is cancelled on SIGINT or SIGTERM. The task error takes
// precedence over stop hook errors.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	a.Logger.Info("starting", logger.Fields("name", a.Name, "version", a.Version))

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, a.signals...)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Warn("received signal, cancelling", logger.Fields("signal", sig.String()))
			cancel()
		case <-taskCtx.Done():
		}
	}()

	var taskErr error
	if err := runHooks(taskCtx, a.onStart); err != nil {
		taskErr = fmt.Errorf("start: %w", err)
	} else {
		start := time.Now()
		taskErr = task(taskCtx)
		fields := logger.DurationFields("task", time.Since(start))
		if taskErr != nil {
			a.Logger.Error("task failed", logger.MergeWithError(fields, taskErr))
		} else {
			a.Logger.Info("task finished", fields)
		}
	}

	stopErr := a.stop()
	if taskErr != nil {
		return taskErr
	}
	return stopErr
}

// stop runs the stop hooks within the graceful timeout. All hooks run even
// if one fails.
func (a *App[C]) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var errs []error
	for i := len(a.onStop) - 1; i >= 0; i-- {
		if err := a.onStop[i](ctx); err != nil {
			a.Logger.Error("stop hook failed", logger.Fields(logger.FieldError, err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
