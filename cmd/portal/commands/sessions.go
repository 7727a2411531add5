package commands

import (
	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions known to the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cfg)
		defer a.Close()

		if err := a.orch.RefreshSessions(cmd.Context()); err != nil {
			return err
		}
		last := a.orch.LastSessionID()
		for _, s := range a.orch.Sessions() {
			a.renderer.SessionLine(s.SessionID, s.Display, s.Project, s.SessionID == last)
		}
		return nil
	},
}
