package commands

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentportal/portal/internal/api"
	"github.com/agentportal/portal/internal/event"
	"github.com/agentportal/portal/internal/history"
)

var sendSessionID string

var sendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "Submit one message and print the reply",
	Long: `Send submits a single message to the given session (or a brand-new one),
waits for the task to complete, and prints the assistant's reply. The exit
status is nonzero when the agent reported an error result.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cfg)
		defer a.Close()

		unsub := a.bus.Subscribe(event.TaskProgress, func(e event.Event) {
			if data, ok := e.Data.(event.TaskProgressData); ok {
				a.renderer.Notice(data.Notice)
			}
		})
		defer unsub()
		unsubFinished := a.bus.Subscribe(event.TaskFinished, func(e event.Event) {
			a.renderer.ClearNotice()
		})
		defer unsubFinished()

		sessionID := sendSessionID
		if sessionID == "" {
			sessionID = api.NewSessionID
		}
		a.orch.SelectSession(sessionID)

		if err := a.orch.Send(cmd.Context(), strings.Join(args, " ")); err != nil {
			return err
		}

		msgs := a.orch.Messages()
		last := msgs[len(msgs)-1]
		a.renderer.Message(last)
		if last.Role == history.RoleError {
			return errors.New("agent reported an error")
		}
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVarP(&sendSessionID, "session", "s", "", "Session to send to (default: a brand-new session)")
}
