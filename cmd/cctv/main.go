package main

import (
	"os"

	"github.com/grovetools/cctv/cli"
	"github.com/grovetools/cctv/cmd"
)

func main() {
	root := cli.NewStandardCommand("cctv", "Unattended screen capture of a kiosk page")
	root.Long = `cctv keeps a browser window on one page and records it as a JPEG
every few seconds. Each run writes a session directory that is compressed
into a zip archive when the window closes.`

	root.AddCommand(
		cmd.NewRunCmd(),
		cmd.NewURLCmd(),
		cmd.NewSessionsCmd(),
		cmd.NewFramesCmd(),
		cmd.NewLogsCmd(),
		cmd.NewRotateCmd(),
		cmd.NewConfigCmd(),
		cmd.NewPathsCmd(),
		cmd.NewVersionCmd(),
	)
	cli.SetVersionTemplate(root)

	os.Exit(cli.Execute(root))
}
