package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/fatih/color"

	"github.com/agentportal/portal/internal/config"
	"github.com/agentportal/portal/internal/history"
)

// Renderer prints the conversation and the ephemeral status notice.
type Renderer struct {
	opts rendererOptions

	mu          sync.Mutex
	noticeShown bool
}

type rendererOptions struct {
	NoColor bool
	Quiet   bool
	JSON    bool
}

func NewRenderer(cfg *config.Config) *Renderer {
	color.NoColor = cfg.NoColor
	return &Renderer{
		opts: rendererOptions{
			NoColor: cfg.NoColor,
			Quiet:   cfg.Quiet,
			JSON:    cfg.JSON,
		},
	}
}

func (r *Renderer) Banner(url, prompt string) {
	if r.opts.Quiet || r.opts.JSON {
		return
	}
	fmt.Fprintln(os.Stderr, color.New(color.FgHiBlack).Sprintf("Connected to %s", url))
	if prompt != "" {
		fmt.Fprintln(os.Stderr, color.New(color.FgHiBlack).Sprint(prompt))
	}
}

func (r *Renderer) Help(text string) {
	if r.opts.Quiet {
		return
	}
	fmt.Println(text)
}

// Message renders one transcript message by role.
func (r *Renderer) Message(msg history.Message) {
	r.clearNotice()
	if r.opts.JSON {
		b, _ := json.Marshal(map[string]string{"type": string(msg.Role), "text": msg.Content})
		fmt.Println(string(b))
		return
	}
	switch msg.Role {
	case history.RoleUser:
		fmt.Printf("%s %s\n", color.New(color.FgCyan, color.Bold).Sprint("you ›"), msg.Content)
	case history.RoleAssistant:
		fmt.Printf("%s %s\n", color.New(color.FgGreen, color.Bold).Sprint("assistant ›"), msg.Content)
	case history.RoleError:
		fmt.Printf("%s %s\n", color.New(color.FgRed, color.Bold).Sprint("error ›"), msg.Content)
	}
}

// Notice overdraws the in-place status line. It is ephemeral and never part
// of the transcript.
func (r *Renderer) Notice(text string) {
	if r.opts.JSON {
		b, _ := json.Marshal(map[string]string{"type": "status", "text": text})
		fmt.Println(string(b))
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Printf("\r\033[K%s", color.New(color.FgHiBlack).Sprint(text))
	r.noticeShown = true
}

// ClearNotice removes the status line without trace.
func (r *Renderer) ClearNotice() {
	r.clearNotice()
}

func (r *Renderer) clearNotice() {
	if r.opts.JSON {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.noticeShown {
		fmt.Print("\r\033[K")
		r.noticeShown = false
	}
}

func (r *Renderer) Error(err error) {
	if r.opts.JSON {
		b, _ := json.Marshal(map[string]string{"type": "error", "text": err.Error()})
		fmt.Println(string(b))
		return
	}
	fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprintf("error: %v", err))
}

// SessionLine renders one registry entry for the session picker.
func (r *Renderer) SessionLine(id, display, project string, active bool) {
	if r.opts.JSON {
		b, _ := json.Marshal(map[string]any{"type": "session", "id": id, "display": display, "project": project, "active": active})
		fmt.Println(string(b))
		return
	}
	preview := sessionPreview(display)
	marker := "  "
	if active {
		marker = color.New(color.FgGreen).Sprint("* ")
	}
	fmt.Printf("%s%s - %s\n", marker, id, preview)
}

// sessionPreview truncates a session's display text to a 40-character
// preview for the picker.
func sessionPreview(display string) string {
	if display == "" {
		return "No description"
	}
	runes := []rune(display)
	if len(runes) > 40 {
		return string(runes[:40]) + "..."
	}
	return display
}

// Stats renders the running turn/cost counters.
func (r *Renderer) Stats(turns int, costUSD float64) {
	if r.opts.Quiet || r.opts.JSON {
		return
	}
	fmt.Fprintln(os.Stderr, color.New(color.FgHiBlack).Sprintf("turns: %d  cost: $%.4f", turns, costUSD))
}
