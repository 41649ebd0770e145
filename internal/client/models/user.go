// Package models defines client-side data models used by the LearnQuest CLI.
package models

// User is the client's cached copy of the signed-in identity.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Location string `json:"location,omitempty"`
}

// Merge returns u with every non-empty field of incoming copied over it.
// An ID that is already set is kept.
func (u User) Merge(incoming User) User {
	if u.ID == "" {
		u.ID = incoming.ID
	}
	if incoming.Name != "" {
		u.Name = incoming.Name
	}
	if incoming.Email != "" {
		u.Email = incoming.Email
	}
	if incoming.Avatar != "" {
		u.Avatar = incoming.Avatar
	}
	if incoming.Bio != "" {
		u.Bio = incoming.Bio
	}
	if incoming.Location != "" {
		u.Location = incoming.Location
	}
	return u
}

// ProfileUpdate is a partial profile change sent to the server. Nil fields
// are omitted from the request body.
type ProfileUpdate struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Location *string `json:"location,omitempty"`
}

// Snapshot is a point-in-time view of the client session.
type Snapshot struct {
	Token    string
	User     User
	LoggedIn bool
}
