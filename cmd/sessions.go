package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/grovetools/cctv/cli"
	"github.com/grovetools/cctv/internal/session"
)

func NewSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions and archives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			entries, err := session.List(sessionsRoot(cfg))
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				data, err := json.MarshalIndent(entries, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, cli.Muted("No sessions recorded yet."))
				return nil
			}

			t := cli.NewStyledTable(3).Headers("SESSION", "STATE", "FRAMES", "SIZE")
			for _, e := range entries {
				state := cli.Success("live")
				if e.Archived {
					state = "archived"
				}
				t.Row(e.Name, state, strconv.Itoa(e.Frames), humanize.Bytes(uint64(e.Bytes)))
			}
			fmt.Fprintln(out, t)
			return nil
		},
	}
}
