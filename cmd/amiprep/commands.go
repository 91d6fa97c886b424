package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/amiprep/bootstrap"
	"github.com/kbukum/amiprep/config"
	"github.com/kbukum/amiprep/logger"
	"github.com/kbukum/amiprep/observability"
	"github.com/kbukum/amiprep/prepare"
	"github.com/kbukum/amiprep/storage"
	"github.com/kbukum/amiprep/version"
)

const serviceName = "amiprep"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Prepare the AMI meeting corpus for speaker diarization training",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newRunCmd(), newVersionCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Merge annotations, slice utterances and build the dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configFile)
		},
	}
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to config.yml (searched for when empty)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetVersionInfo().String())
		},
	}
}

func run(ctx context.Context, configFile string) error {
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	var cfg prepare.Config
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return err
	}
	if cfg.Version == "" {
		cfg.Version = version.GetShortVersion()
	}

	app, err := bootstrap.NewApp(&cfg)
	if err != nil {
		return err
	}
	logger.RegisterDefaults("annotation", "slicer", "features", "dataset", "prepare", "storage")

	store, err := storage.New(cfg.Storage, logger.Get("storage"))
	if err != nil {
		return err
	}

	shutdown := func(context.Context) error { return nil }
	app.OnStart(func(ctx context.Context) error {
		s, err := observability.Setup(ctx, cfg.Observability, cfg.Name, cfg.Version, cfg.Environment)
		if err != nil {
			return err
		}
		shutdown = s
		return nil
	})
	app.OnStop(func(ctx context.Context) error { return shutdown(ctx) })

	return app.RunTask(ctx, func(ctx context.Context) error {
		metrics, err := observability.NewMetrics(observability.Meter(serviceName))
		if err != nil {
			return err
		}
		runner := prepare.NewRunner(&cfg, store,
			prepare.WithMetrics(metrics),
			prepare.WithLogger(logger.Get("prepare")),
		)
		report, err := runner.Run(ctx)
		if report != nil {
			app.Logger.Info("run summary", logger.Fields(
				logger.FieldRunID, report.RunID,
				"ran", report.Ran,
				"skipped", report.Skipped,
				"meetings", report.Meetings,
				"streams", report.Streams,
				"groups", report.Groups,
			))
		}
		return err
	})
}
