package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/cctv/cli"
	"github.com/grovetools/cctv/errors"
	"github.com/grovetools/cctv/internal/archive"
	"github.com/grovetools/cctv/internal/pidfile"
	"github.com/grovetools/cctv/pkg/paths"
)

func NewRotateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate",
		Short: "Archive every session directory left behind",
		Long: `Compresses each session directory into a zip archive next to it and
removes the directory. This is what the agent does at startup; it refuses to
run while an agent holds the lock, since the live session is still growing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			running, pid, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return err
			}
			if running {
				return errors.AlreadyRunning(pid)
			}

			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			log := cli.GetLogger(cmd, "cctv")
			n := archive.New(nil, log).Sweep(sessionsRoot(cfg), "")
			fmt.Fprintf(cmd.OutOrStdout(), "Archived %d session(s)\n", n)
			return nil
		},
	}
}
