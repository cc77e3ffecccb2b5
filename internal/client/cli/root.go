package cli

import (
	"bufio"
	"context"
	"fmt"
)

func (a *App) getStatus() string {
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	if m := a.Mode(); m != "" {
		s = s + string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root greets the user, starts the connectivity watcher and runs the REPL
// on stdin.
func (a *App) Root(ctx context.Context) {
	a.println("Welcome to manokeeper CLI (type 'help' for commands)")

	a.checkOnline(ctx)
	if a.Mode() == ModeOnline {
		if u, err := a.api.Me(ctx); err == nil {
			a.userName = u.Name
		}
	}

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(wctx, onlineCheckInterval)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}
