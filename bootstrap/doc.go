// Package bootstrap runs a finite task inside the usual process lifecycle:
// validated config, initialised logger, start hooks, SIGINT/SIGTERM
// cancellation and stop hooks bounded by a graceful timeout.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.OnStart(func(ctx context.Context) error { ... })
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    _, err := runner.Run(ctx)
//	    return err
//	})
package bootstrap
