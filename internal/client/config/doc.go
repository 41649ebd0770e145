// Package config loads runtime configuration for the LearnQuest CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the identity API (http://host:port/api)
//	-g string   host:port of the gRPC health endpoint
//	-i int      online status check interval (seconds)
//	-t int      per-request timeout (seconds)
//	-s string   session database file
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds. Missing keys keep their defaults:
//
//	{
//	  "server_endpoint_addr": "http://127.0.0.1:5002/api",
//	  "health_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "request_timeout": "10s",
//	  "session_dsn": "session.db"
//	}
package config
