package cmd

import (
	"github.com/spf13/cobra"

	"github.com/grovetools/cctv/cli"
)

func NewVersionCmd() *cobra.Command {
	return cli.NewVersionCommand("cctv")
}
