package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/learnquest/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
//	-a string     HTTP bind address (e.g. ":5002")
//	-g string     gRPC health bind address
//	-d string     PostgreSQL DSN
//	-m string     storage backend: postgres or memory
//	-s string     token signing secret
//	-t duration   token lifetime (e.g. "24h")
//	-o string     allowed CORS origin
//	-i string     image store: s3 or local
//	-prod         production mode (secure cookies)
//	-verify       check identity existence on every authenticated request
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:],
		[]string{"-a", "-g", "-d", "-m", "-s", "-t", "-o", "-i", "-prod", "-verify"},
		"-prod", "-verify")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run the HTTP API")
	fs.StringVar(&config.GRPCHealthAddr, "g", config.GRPCHealthAddr, "address and port of the gRPC health endpoint")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.StorageBackend, "m", config.StorageBackend, "storage backend (postgres|memory)")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "token signing secret")
	fs.DurationVar(&config.TokenTTL, "t", config.TokenTTL, "token lifetime")
	fs.StringVar(&config.ClientOrigin, "o", config.ClientOrigin, "allowed client origin")
	fs.StringVar(&config.ImageStore, "i", config.ImageStore, "image store (s3|local)")
	fs.BoolVar(&config.Production, "prod", config.Production, "production mode")
	fs.BoolVar(&config.VerifyIdentityOnRequest, "verify", config.VerifyIdentityOnRequest, "verify identity existence per request")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
