package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"upload-ai/internal/engine"
	"upload-ai/internal/logging"
)

func newEngineCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Inspect or bootstrap the ffmpeg engine",
	}
	cmd.AddCommand(newEngineLocateCommand(ctx))
	cmd.AddCommand(newEngineFetchCommand(ctx))
	return cmd
}

func newEngineLoader(ctx *commandContext) (*engine.Loader, error) {
	settings, err := ctx.ensureSettings()
	if err != nil {
		return nil, err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return nil, err
	}
	return engine.NewLoader(engine.LoaderOptions{
		FFmpegPath: settings.FFmpegPath,
		BaseURL:    settings.EngineBaseURL,
		CacheDir:   settings.EngineDir,
		Logger:     logging.Component(logger, "loader"),
	}), nil
}

func newEngineLocateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "locate",
		Short: "Show where ffmpeg would be loaded from",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := newEngineLoader(ctx)
			if err != nil {
				return err
			}
			src, err := loader.Locate()
			if err != nil {
				return err
			}
			if src.Kind == engine.SourceBootstrap {
				fmt.Fprintf(cmd.OutOrStdout(), "ffmpeg not found; it will be downloaded to %s\n", src.Path)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", src.Path, src.Kind)
			return nil
		},
	}
}

func newEngineFetchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download the pinned ffmpeg build into the engine cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := newEngineLoader(ctx)
			if err != nil {
				return err
			}
			path, err := loader.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ffmpeg ready at %s\n", path)
			return nil
		},
	}
}
