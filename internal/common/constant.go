// Package common contains shared constants and sentinel errors used across
// LearnQuest components.
package common

const (
	// TokenCookieName is the cookie that carries the identity token.
	TokenCookieName = "token"

	// AuthorizationScheme is the Authorization header scheme for the identity token.
	AuthorizationScheme = "Bearer"

	// HealthServiceName is the gRPC health service reported by the server.
	HealthServiceName = "learnquest.identity.v1"

	// MaxAvatarSize is the largest accepted avatar upload, in bytes.
	MaxAvatarSize = 5 * 1024 * 1024
)
