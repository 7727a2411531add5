package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentportal/portal/internal/api"
	"github.com/agentportal/portal/internal/event"
	"github.com/agentportal/portal/internal/session"
)

const helpText = `Commands:
  /help                 Show this message
  /sessions             List known sessions (refreshes from the backend)
  /select <session-id>  Switch to a session
  /new                  Start a brand-new session on next send
  /reset                Clear session, stats, and cached transcript
  /exit                 Quit`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive conversation with the agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(cfg)
		defer a.Close()
		return runChat(cmd.Context(), a)
	},
}

func runChat(ctx context.Context, a *app) error {
	// Live status notices while a task is in flight. task.finished is
	// guaranteed to arrive after the last progress notice, so the cleared
	// line stays cleared.
	unsubProgress := a.bus.Subscribe(event.TaskProgress, func(e event.Event) {
		if data, ok := e.Data.(event.TaskProgressData); ok {
			a.renderer.Notice(data.Notice)
		}
	})
	defer unsubProgress()
	unsubFinished := a.bus.Subscribe(event.TaskFinished, func(e event.Event) {
		a.renderer.ClearNotice()
	})
	defer unsubFinished()

	a.renderer.Banner(a.cfg.APIURL, buildPrompt(ctx, a))

	// Replay the cached transcript so a restart shows the conversation.
	for _, msg := range a.orch.Messages() {
		a.renderer.Message(msg)
	}
	if last := a.orch.LastSessionID(); last != "" {
		a.renderer.Help(fmt.Sprintf("Last session: %s (use /select %s to resume)", last, last))
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "/") {
			quit, err := runSlashCommand(ctx, a, trimmed)
			if err != nil {
				a.renderer.Error(err)
			}
			if quit {
				return nil
			}
			continue
		}

		if err := a.orch.Send(ctx, trimmed); err != nil {
			switch {
			case errors.Is(err, session.ErrNoSession):
				a.renderer.Help("Select a session first: /sessions then /select <id>, or /new")
			case errors.Is(err, session.ErrSuperseded):
				// Result discarded on purpose; nothing to render.
			default:
				a.renderer.Error(err)
			}
			continue
		}

		// Render whatever the send appended (assistant reply or inline error).
		msgs := a.orch.Messages()
		if len(msgs) > 0 {
			a.renderer.Message(msgs[len(msgs)-1])
		}
		cur := a.orch.CurrentSession()
		a.renderer.Stats(cur.TurnCount, cur.AccumulatedCost)
	}
}

func runSlashCommand(ctx context.Context, a *app, input string) (quit bool, err error) {
	parts := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(parts) == 0 {
		a.renderer.Help(helpText)
		return false, nil
	}

	switch parts[0] {
	case "exit", "quit":
		return true, nil
	case "help":
		a.renderer.Help(helpText)
	case "sessions":
		if err := a.orch.RefreshSessions(ctx); err != nil {
			return false, err
		}
		active := a.orch.CurrentSession().ID
		for _, s := range a.orch.Sessions() {
			a.renderer.SessionLine(s.SessionID, s.Display, s.Project, s.SessionID == active)
		}
	case "select":
		if len(parts) < 2 {
			return false, errors.New("usage: /select <session-id>")
		}
		a.orch.SelectSession(parts[1])
		a.renderer.Help(fmt.Sprintf("Switched to session %s", parts[1]))
	case "new":
		a.orch.SelectSession(api.NewSessionID)
		a.renderer.Help("Next message starts a brand-new session")
	case "reset":
		a.orch.ResetToNewSession()
		a.renderer.Help("Session, stats, and cached transcript cleared")
	default:
		a.renderer.Help(fmt.Sprintf("Unknown command: %s\n%s", input, helpText))
	}
	return false, nil
}

// buildPrompt fetches the backend project path for the banner; failure just
// means a plain banner.
func buildPrompt(ctx context.Context, a *app) string {
	pc, err := a.client.GetConfig(ctx)
	if err != nil || pc.ProjectPath == "" {
		return ""
	}
	return fmt.Sprintf("%s@agenthost:%s$", a.auth.Username(), pc.ProjectPath)
}
