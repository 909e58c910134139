package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rzbill/kcvlog/internal/msglog"
	"github.com/rzbill/kcvlog/pkg/log"
)

func newProduceCmd(logger log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "produce <log>",
		Short: "Append a message to a log and wait for delivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payloadStr, _ := cmd.Flags().GetString("payload")
			payloadHex, _ := cmd.Flags().GetString("payload-hex")
			routingKey, _ := cmd.Flags().GetString("key")
			waitMs, _ := cmd.Flags().GetInt("wait-ms")

			var payload []byte
			switch {
			case payloadHex != "":
				b, err := hex.DecodeString(payloadHex)
				if err != nil {
					return fmt.Errorf("invalid --payload-hex: %w", err)
				}
				payload = b
			case payloadStr != "":
				payload = []byte(payloadStr)
			default:
				return fmt.Errorf("one of --payload or --payload-hex is required")
			}

			rt, err := openRuntime(cmd, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			l, err := rt.OpenLog(args[0], msglog.ReadMarker{})
			if err != nil {
				return err
			}

			var fut *msglog.DeliveryFuture
			if routingKey != "" {
				fut, err = l.ProduceWithKey(payload, []byte(routingKey))
			} else {
				fut, err = l.Produce(payload)
			}
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(waitMs)*time.Millisecond)
			defer cancel()
			msg, err := fut.Wait(ctx)
			if err != nil {
				return fmt.Errorf("delivery failed: %w", err)
			}
			fmt.Printf("delivered %d bytes at %d\n", len(msg.Payload), msg.TimestampMicros)
			return nil
		},
	}
	cmd.Flags().String("payload", "", "Message payload as a string")
	cmd.Flags().String("payload-hex", "", "Message payload as hex")
	cmd.Flags().String("key", "", "Routing key selecting the partition")
	cmd.Flags().Int("wait-ms", 30000, "How long to wait for delivery")
	return cmd
}
