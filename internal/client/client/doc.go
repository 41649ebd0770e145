// Package client talks to the LearnQuest identity server.
//
// HTTPClient is the request gateway for the JSON API. It attaches the
// session token to every request, keeps the server's session cookie in a
// cookie jar, and turns every 401 reply into exactly one events.ForceLogout
// so the session store can sign the user out. HealthProbe checks the
// server's gRPC health endpoint for the online/offline indicator.
//
// # Error Handling
//
// Failures are reported through sentinel errors that callers can match with
// errors.Is:
//
//   - ErrUnavailable: the request never got an HTTP reply.
//   - ErrUnauthorized: the server answered 401 (wrapped in *APIError).
//   - ErrServer: the server answered 5xx (wrapped in *APIError).
//
// Other 4xx replies come back as *APIError carrying the server's message.
//
// InitDatabase and RunMigrations open the local SQLite database used for
// session persistence.
package client
