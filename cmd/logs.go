package cmd

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"time"

	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"

	"github.com/grovetools/cctv/pkg/paths"
)

func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print today's agent log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			follow, _ := cmd.Flags().GetBool("follow")
			path := paths.LogFilePath("cctv", time.Now())
			out := cmd.OutOrStdout()

			if !follow {
				f, err := os.Open(path)
				if err != nil {
					if os.IsNotExist(err) {
						return fmt.Errorf("no log for today at %s", path)
					}
					return err
				}
				defer f.Close()
				_, err = io.Copy(out, f)
				return err
			}

			t, err := tail.TailFile(path, tail.Config{
				Follow:    true,
				ReOpen:    true,
				MustExist: false,
				Logger:    stdlog.New(io.Discard, "", 0),
			})
			if err != nil {
				return fmt.Errorf("failed to tail %s: %w", path, err)
			}
			defer t.Cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			for {
				select {
				case <-ctx.Done():
					return t.Stop()
				case line, ok := <-t.Lines:
					if !ok {
						return t.Err()
					}
					if line.Err != nil {
						return line.Err
					}
					fmt.Fprintln(out, line.Text)
				}
			}
		},
	}
	cmd.Flags().BoolP("follow", "f", false, "Keep printing lines as they are logged")
	return cmd
}
