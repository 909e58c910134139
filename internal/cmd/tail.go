package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rzbill/kcvlog/internal/msglog"
	"github.com/rzbill/kcvlog/pkg/log"
)

func newTailCmd(logger log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail <log>",
		Short: "Follow a log, printing messages until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identifier, _ := cmd.Flags().GetString("cursor")
			fromMs, _ := cmd.Flags().GetInt64("from-ms")
			filterExpr, _ := cmd.Flags().GetString("filter")

			rt, err := openRuntime(cmd, logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			// Without an explicit start, begin at "now"; an identifier still
			// resumes from its persisted cursor when one exists.
			marker := msglog.MarkerFromNow(identifier)
			if fromMs > 0 {
				marker.StartTimeMicros = fromMs * 1000
			}

			l, err := rt.OpenLog(args[0], marker)
			if err != nil {
				return err
			}

			var reader msglog.MessageReader = msglog.ReaderFunc(func(m msglog.Message) error {
				ts := time.UnixMicro(m.TimestampMicros).UTC().Format(time.RFC3339Nano)
				fmt.Printf("%s %s %q\n", ts, m.SenderID, m.Payload)
				return nil
			})
			if filterExpr != "" {
				reader, err = msglog.NewFilteredReader(filterExpr, reader)
				if err != nil {
					return fmt.Errorf("invalid --filter: %w", err)
				}
			}
			if err := l.RegisterReader(reader); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop
			return nil
		},
	}
	cmd.Flags().String("cursor", "", "Cursor identifier; resumes from the persisted position")
	cmd.Flags().Int64("from-ms", 0, "Start reading at this wallclock time (ms since epoch)")
	cmd.Flags().String("filter", "", "CEL expression selecting messages (e.g. 'size > 10')")
	return cmd
}
