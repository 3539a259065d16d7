package main

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-quote/jobs"
)

func newWarmupCmd() *cobra.Command {
	var (
		redisAddr string
		payload   jobs.RatesWarmupPayload
	)
	cmd := &cobra.Command{
		Use:   "warmup",
		Short: "Queue an immediate refresh of cached market rates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
			if err != nil {
				return err
			}
			defer client.Close()
			info, err := client.EnqueueRatesWarmup(cmd.Context(), payload)
			if err != nil {
				return fmt.Errorf("enqueue warmup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s on %s\n", info.ID, info.Queue)
			return nil
		},
	}
	cmd.Flags().StringVar(&redisAddr, "redis", "127.0.0.1:6379", "Redis address of the job queue")
	cmd.Flags().StringSliceVar(&payload.Locations, "location", nil, "restrict to these cities")
	cmd.Flags().IntSliceVar(&payload.Stars, "stars", nil, "restrict to these star ratings")
	return cmd
}
