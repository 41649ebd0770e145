package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/learnquest/internal/client/models"
)

var getMultiline = GetMultiline

func (a *App) printUser(u models.User) {
	fmt.Fprintf(a.out, "Name:     %s\n", u.Name)
	fmt.Fprintf(a.out, "Email:    %s\n", u.Email)
	if u.Location != "" {
		fmt.Fprintf(a.out, "Location: %s\n", u.Location)
	}
	if u.Avatar != "" {
		fmt.Fprintf(a.out, "Avatar:   %s\n", u.Avatar)
	}
	if u.Bio != "" {
		fmt.Fprintf(a.out, "Bio:\n%s\n", u.Bio)
	}
}

// Me fetches the profile from the server and prints it.
func (a *App) Me(ctx context.Context) error {
	u, err := a.authService.Profile(ctx)
	if err != nil {
		return err
	}
	a.printUser(u)
	return nil
}

// Update asks for each editable field. An empty answer leaves the field
// unchanged; "-" clears bio or location.
func (a *App) Update(ctx context.Context) error {
	var upd models.ProfileUpdate

	ask := func(prompt string, clearable bool) (*string, error) {
		v, err := getSimpleText(a.reader, prompt+" (Enter to keep)", a.out)
		if err != nil || v == "" {
			return nil, err
		}
		if clearable && v == "-" {
			v = ""
		}
		return &v, nil
	}

	var err error
	if upd.Name, err = ask("Name", false); err != nil {
		return err
	}
	if upd.Email, err = ask("Email", false); err != nil {
		return err
	}
	if upd.Location, err = ask("Location, '-' to clear", true); err != nil {
		return err
	}

	bio, err := getMultiline(a.reader, "Bio, '-' to clear, nothing to keep", a.out)
	if err != nil {
		return err
	}
	switch bio {
	case "":
	case "-":
		empty := ""
		upd.Bio = &empty
	default:
		upd.Bio = &bio
	}

	if upd == (models.ProfileUpdate{}) {
		fmt.Fprintln(a.out, "Nothing to update")
		return nil
	}

	u, err := a.authService.UpdateProfile(ctx, upd)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Profile updated")
	a.printUser(u)
	return nil
}

// Avatar uploads the image at path, prompting for it when path is empty.
func (a *App) Avatar(ctx context.Context, path string) error {
	if path == "" {
		var err error
		if path, err = getSimpleText(a.reader, "Path to image file", a.out); err != nil {
			return err
		}
	}
	if path == "" {
		return fmt.Errorf("no file given")
	}

	url, err := a.authService.UploadAvatar(ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Avatar uploaded successfully: %s\n", url)
	return nil
}
