package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rzbill/kcvlog/pkg/log"
)

func newInfoCmd(logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the effective configuration and sender identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			cfg := rt.Config()
			fmt.Printf("sender-id:           %s\n", rt.Manager().SenderID())
			fmt.Printf("partition-bit-width: %d\n", cfg.PartitionBitWidth)
			fmt.Printf("default-partition:   %d\n", cfg.DefaultPartition)
			fmt.Printf("read-partitions:     %v\n", cfg.ReadPartitions)
			fmt.Printf("num-buckets:         %d\n", cfg.Log.NumBuckets)
			fmt.Printf("send-batch-size:     %d\n", cfg.Log.SendBatchSize)
			fmt.Printf("send-delay:          %dms\n", cfg.Log.SendDelayMs)
			fmt.Printf("read-interval:       %dms\n", cfg.Log.ReadIntervalMs)
			return nil
		},
	}
}
