package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"upload-ai/internal/domain"
	"upload-ai/internal/jobs"
	"upload-ai/internal/labels"
	"upload-ai/internal/services"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "submit <video>",
		Short: "Convert a video to MP3, upload it and request its transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			out := cmd.OutOrStdout()
			var uploaded string
			svc, err := buildServices(settings, logger, services.Hooks{
				OnEvent: func(event jobs.Event) {
					if event.Type != jobs.EventTypeStatus {
						return
					}
					fmt.Fprintln(out, labels.Status(settings.Language, domain.Submission{
						Status: event.Status,
						Reason: event.Message,
					}))
				},
				OnVideoUploaded: func(id string) {
					uploaded = id
				},
			})
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := svc.Close(); closeErr != nil {
					logger.Warn("release services", zap.Error(closeErr))
				}
			}()

			if err := svc.Form.SelectFiles([]string{args[0]}); err != nil {
				return err
			}
			if err := svc.Form.Submit(cmd.Context(), prompt); err != nil {
				return err
			}

			fmt.Fprintf(out, "Video ID: %s\n", uploaded)
			return nil
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Keywords mentioned in the video, separated by commas")
	return cmd
}
