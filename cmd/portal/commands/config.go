package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := map[string]any{
			"apiUrl":           cfg.APIURL,
			"stateDir":         cfg.StateDir,
			"logLevel":         cfg.LogLevel,
			"pollInterval":     cfg.PollInterval.String(),
			"progressInterval": cfg.ProgressInterval.String(),
			"submitTimeout":    cfg.SubmitTimeout.String(),
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}
