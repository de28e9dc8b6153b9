package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"recap/internal/config"
	"recap/internal/meeting"
	"recap/internal/queue"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show the details and final report for one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				job, err := store.GetByID(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(job)
				}
				printJob(cmd.OutOrStdout(), job)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the raw job record as JSON")
	return cmd
}

func printJob(out io.Writer, job *queue.Job) {
	fmt.Fprintf(out, "Job:      %s\n", job.JobID)
	fmt.Fprintf(out, "File:     %s\n", job.FileName)
	fmt.Fprintf(out, "Status:   %s\n", job.Status)
	if job.DurationSeconds > 0 {
		fmt.Fprintf(out, "Duration: %s\n", meeting.FormatTimestamp(job.DurationSeconds))
	}
	if job.ChunkCount > 0 {
		fmt.Fprintf(out, "Chunks:   %d\n", job.ChunkCount)
	}
	fmt.Fprintf(out, "Created:  %s\n", job.CreatedAt.Local().Format(time.DateTime))
	if job.CompletedAt != nil {
		fmt.Fprintf(out, "Finished: %s\n", job.CompletedAt.Local().Format(time.DateTime))
	}

	if job.Status == queue.StatusFailed {
		fmt.Fprintf(out, "\nFailed at: %s\n", job.ErrorStage)
		if job.ErrorMessage != "" {
			fmt.Fprintf(out, "Error:     %s\n", job.ErrorMessage)
		}
		return
	}

	if job.FinalSummary != "" {
		fmt.Fprintf(out, "\nSummary\n-------\n%s\n", job.FinalSummary)
	}

	if items := decodeActionItems(job.ActionItemsJSON); len(items) > 0 {
		fmt.Fprintf(out, "\nAction Items\n------------\n")
		for i, item := range items {
			fmt.Fprintf(out, "%d. %s\n", i+1, item.Action)
			fmt.Fprintf(out, "   Owner: %s | Due: %s\n", item.Owner, item.DueDate)
			if item.MentionedAt != "" {
				fmt.Fprintf(out, "   Mentioned: %s\n", item.MentionedAt)
			}
		}
	}

	if job.TotalCost > 0 {
		fmt.Fprintf(out, "\nTotal cost: $%.4f\n", job.TotalCost)
	}
}

func decodeActionItems(raw string) []meeting.ActionItem {
	if raw == "" {
		return nil
	}
	var items []meeting.ActionItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	return items
}
