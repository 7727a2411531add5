package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/agentportal/portal/internal/auth"
)

// terminalPrompter asks for credentials on the controlling terminal.
// Password input is not echoed when stdin is a terminal.
type terminalPrompter struct {
	reader *bufio.Reader
}

func newTerminalPrompter() *terminalPrompter {
	return &terminalPrompter{reader: bufio.NewReader(os.Stdin)}
}

func (p *terminalPrompter) Prompt() (auth.Credentials, bool) {
	fmt.Fprint(os.Stderr, "Username: ")
	username, err := p.reader.ReadString('\n')
	if err != nil {
		return auth.Credentials{}, false
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return auth.Credentials{}, false
	}

	fmt.Fprint(os.Stderr, "Password: ")
	password, ok := p.readPassword()
	if !ok || password == "" {
		return auth.Credentials{}, false
	}

	return auth.Credentials{Username: username, Password: password}, true
}

func (p *terminalPrompter) readPassword() (string, bool) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		data, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", false
		}
		return string(data), true
	}
	// Piped input (tests, scripts): read a line.
	line, err := p.reader.ReadString('\n')
	if err != nil {
		return "", false
	}
	return strings.TrimRight(line, "\r\n"), true
}
