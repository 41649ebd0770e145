// Package cli provides the interactive LearnQuest command-line client.
//
// It wires configuration, the local session database, the HTTP request
// gateway and the auth service into a small REPL. At startup the saved
// session is restored immediately and checked with the server in the
// background; a background watcher probes the server's health endpoint and
// switches the prompt between online and offline.
//
// When the server rejects the session token on any request the session is
// cleared and the user is told to log in again.
package cli
