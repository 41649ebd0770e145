package cli

import (
	"context"
	"fmt"
)

func (a *App) getStatus() string {
	s := ""
	if snap := a.authService.Session(); snap.LoggedIn {
		s = snap.User.Email + " "
	}
	if m := a.mode(); m != "" {
		s = s + string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s) ", s)
	}
	return s
}

// Root restores the saved session, starts the connectivity watcher and runs
// the REPL until the user exits.
func (a *App) Root(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(a.out, "Welcome to LearnQuest CLI (type 'help' for commands)")

	snap, done, err := a.authService.Restore(ctx)
	if err != nil {
		a.logger.Error(ctx, "failed to restore session", "error", err)
	} else if snap.LoggedIn {
		fmt.Fprintf(a.out, "Signed in as %s\n", snap.User.Email)
	}

	if done != nil {
		go func() {
			if err := <-done; err != nil {
				a.logger.Warn(ctx, "session check failed", "error", err)
			}
		}()
	}

	a.checkOnline(ctx)
	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}
