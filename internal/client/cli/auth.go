package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/learnquest/internal/common"
)

// getSimpleText and getPassword point at the interactive input helpers and
// can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for name, email and password and creates an account.
// On success the user is signed in.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.authService.Signup(ctx, name, email, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Welcome, %s! You are signed in.\n", u.Name)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.authService.Login(ctx, email, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Login successful. Hello, %s!\n", u.Name)
	return nil
}

// Logout always signs out locally, even when the server cannot be reached.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Status(ctx context.Context) error {
	snap := a.authService.Session()
	if snap.LoggedIn {
		fmt.Fprintf(a.out, "Signed in as %s (%s)\n", snap.User.Email, snap.User.Name)
	} else {
		fmt.Fprintln(a.out, "Not signed in")
	}
	if m := a.mode(); m != "" {
		fmt.Fprintf(a.out, "Server: %s\n", m)
	}
	return nil
}
