package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/heyvito/pofswitch"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.DisableCaller = true
	if !debug {
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return config.Build()
}

func newRootCommand() *cobra.Command {
	var (
		configPath  string
		controllers []string
		stateAddr   string
		debug       bool
	)

	cmd := &cobra.Command{
		Use:          "pofswitch",
		Short:        "POF switch control plane",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(debug)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if len(controllers) > 0 {
				cfg.Controllers = controllers
			}
			if stateAddr != "" {
				cfg.StateAddress = stateAddr
			}

			opts, closer, err := cfg.options()
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()
			opts.LogHandler = logger

			sw, err := pofswitch.New(opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err = sw.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			logger.Info("Shutting down")
			return sw.Shutdown()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML configuration file")
	cmd.Flags().StringSliceVar(&controllers, "controller", nil, "controller address (host:port); may be repeated")
	cmd.Flags().StringVar(&stateAddr, "state", "", "address for the state endpoint")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
