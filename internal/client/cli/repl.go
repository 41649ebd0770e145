package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/learnquest/internal/client/client"
	"github.com/dmitrijs2005/learnquest/internal/client/session"
	"github.com/dmitrijs2005/learnquest/internal/common"
)

// printlnFn and printFn are test seams for user-facing output.
var (
	printlnFn = fmt.Println
	printFn   = fmt.Print
)

// execIface is the command surface the REPL drives. *App implements it.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) error
	Update(ctx context.Context) error
	Avatar(ctx context.Context, path string) error
	Status(ctx context.Context) error
}

// runREPL reads one command per line from reader until EOF or "exit".
//
//	Signed out:  help, register, login, status, exit | quit
//	Signed in:   help, me, update, avatar [path], logout, status, exit | quit
//
// Command errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printFn(fmt.Sprintf("lq %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: me, update, avatar [path], logout, status, exit")
			} else {
				printlnFn("Available commands: register, login, status, exit")
			}

		case "register", "signup":
			cmdErr = a.Register(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "status":
			cmdErr = a.Status(ctx)

		case "me", "update", "avatar", "logout":
			if !a.isLoggedIn() {
				printlnFn("Please log in first")
				continue
			}
			switch cmd {
			case "me":
				cmdErr = a.Me(ctx)
			case "update":
				cmdErr = a.Update(ctx)
			case "avatar":
				path := ""
				if len(args) > 0 {
					path = args[0]
				}
				cmdErr = a.Avatar(ctx, path)
			case "logout":
				cmdErr = a.Logout(ctx)
			}

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", describeError(cmdErr))
		}
	}
}

// describeError turns client and session errors into a short message.
func describeError(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		return "Not authorized, please log in again"
	case errors.As(err, &apiErr) && apiErr.Msg != "":
		return apiErr.Msg
	case errors.Is(err, client.ErrUnavailable):
		return "Server unavailable, try again later"
	case errors.Is(err, session.ErrNoSession):
		return "Please log in first"
	case errors.Is(err, session.ErrSessionChanged):
		return "Your session changed while the request was running, please retry"
	case errors.Is(err, common.ErrFileTooLarge):
		return "File too large (max 5MB)"
	default:
		return err.Error()
	}
}
