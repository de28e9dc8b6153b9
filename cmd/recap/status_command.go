package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"recap/internal/config"
	"recap/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show a queue health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Pending", strconv.Itoa(health.Pending)},
					{"Processing", strconv.Itoa(health.Processing)},
					{"Completed", strconv.Itoa(health.Completed)},
					{"Failed", strconv.Itoa(health.Failed)},
					{"Total", strconv.Itoa(health.Total)},
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable([]string{"State", "Jobs"}, rows, rightAligned{1: true}))
				fmt.Fprintf(out, "Queue database: %s\n", store.Path())
				return nil
			})
		},
	}
}
