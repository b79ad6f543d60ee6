package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/chnghia/atomic-inference-boilerplate/internal/config"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "atomic",
		Short:         "template driven structured inference",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (json, yaml or toml)")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		logger.Init(
			cfg.LogConfig.File,
			cfg.LogConfig.Level,
			int(cfg.LogConfig.FileCount),
			int(cfg.LogConfig.FileSize),
			int(cfg.LogConfig.KeepDays),
			cfg.LogConfig.Console,
		)
		logutil.GetLogger(context.Background()).Debug("config loaded", zap.String("config", configPath))
		return cfg, nil
	}
	withApp := func(fn func(ctx context.Context, a *app, args []string) error) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return fn(ctx, a, args)
		}
	}

	rootCmd.AddCommand(
		newRunCmd(withApp),
		newPreviewCmd(withApp),
		newInferCmd(withApp),
		newLoadCmd(withApp),
		newExtractCmd(withApp),
		newBatchCmd(withApp),
		newMemoryCmd(withApp),
		newAgentCmd(withApp),
		newHashKeyCmd(),
		newTokenCmd(load),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logutil.GetLogger(context.Background()).Error("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type appRunner func(fn func(ctx context.Context, a *app, args []string) error) func(cmd *cobra.Command, args []string) error

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
