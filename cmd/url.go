package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/cctv/errors"
	"github.com/grovetools/cctv/pkg/paths"
	"github.com/grovetools/cctv/state"
)

func NewURLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "url",
		Short: "Show or change the page the agent captures",
		Args:  cobra.NoArgs,
		RunE:  runURLGet,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the persisted URL, restoring the default if it is unusable",
		Args:  cobra.NoArgs,
		RunE:  runURLGet,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <url>",
		Short: "Persist a new absolute URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := state.SetURL(state.Open(paths.SettingsPath()), args[0]); err != nil {
				return errors.Wrap(err, errors.ErrCodeInvalidInput, "url not saved")
			}
			fmt.Fprintln(cmd.OutOrStdout(), args[0])
			return nil
		},
	})
	return cmd
}

func runURLGet(cmd *cobra.Command, args []string) error {
	url, err := state.ResolveURL(state.Open(paths.SettingsPath()))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), url)
	return nil
}
