package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/grovetools/cctv/cli"
	"github.com/grovetools/cctv/internal/session"
	"github.com/grovetools/cctv/pkg/watch"
)

func NewFramesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frames",
		Short: "List the frames of the newest live session",
		Long: `Lists the frame files of the newest session directory that has not been
archived yet. With --follow, keeps printing frames as the agent writes them,
including frames of sessions started later.`,
		Args: cobra.NoArgs,
		RunE: runFrames,
	}
	cmd.Flags().BoolP("follow", "f", false, "Print new frames as they are written")
	return cmd
}

func runFrames(cmd *cobra.Command, args []string) error {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return err
	}
	root := sessionsRoot(cfg)
	out := cmd.OutOrStdout()
	follow, _ := cmd.Flags().GetBool("follow")

	if latest, ok := session.Latest(root); ok {
		frames, err := session.Frames(latest.Path)
		if err != nil {
			return fmt.Errorf("failed to read session: %w", err)
		}
		for _, f := range frames {
			fmt.Fprintln(out, f)
		}
	} else if !follow {
		fmt.Fprintln(out, cli.Muted("No live session."))
		return nil
	}

	if !follow {
		return nil
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}
	w, err := watch.New(root, session.FrameExt, cli.GetLogger(cmd, "cctv"))
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return w.Run(ctx, func(path string) {
		fmt.Fprintln(out, path)
	})
}
