package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/cctv/pkg/paths"
)

// PathsOutput lists the locations the agent reads and writes.
type PathsOutput struct {
	ConfigDir   string `json:"config_dir"`
	SessionsDir string `json:"sessions_dir"`
	LogDir      string `json:"log_dir"`
	Settings    string `json:"settings"`
	PidFile     string `json:"pid_file"`
	LastError   string `json:"last_error"`
}

func NewPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the paths used by cctv",
		Long: `Print the paths used by cctv as JSON.

The paths follow the XDG Base Directory Specification; CCTV_HOME moves
all of them under one directory.
- config_dir: cctv.yml or cctv.toml
- sessions_dir: session directories and their zip archives
- log_dir: daily log files
- settings: persisted URL
- pid_file: single-instance lock
- last_error: report appended on every fatal error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := PathsOutput{
				ConfigDir:   paths.ConfigDir(),
				SessionsDir: paths.SessionsDir(),
				LogDir:      paths.LogDir(),
				Settings:    paths.SettingsPath(),
				PidFile:     paths.PidFilePath(),
				LastError:   paths.LastErrorPath(),
			}

			jsonData, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal paths to JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
			return nil
		},
	}
}
