package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"recap/internal/config"
	"recap/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <video-file>",
		Short: "Register a meeting recording for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve source path: %w", err)
			}
			info, err := os.Stat(source)
			if err != nil {
				return fmt.Errorf("source file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("source %s is a directory", source)
			}
			if info.Size() == 0 {
				return fmt.Errorf("source file %s is empty", source)
			}

			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				job, err := store.NewJob(cmd.Context(), filepath.Base(source), source)
				if err != nil {
					return fmt.Errorf("create job: %w", err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Submitted %s\n", job.FileName)
				fmt.Fprintf(out, "Job ID: %s\n", job.JobID)
				fmt.Fprintln(out, "The daemon will pick it up on its next poll; run `recap queue list` to follow progress.")
				return nil
			})
		},
	}
}
