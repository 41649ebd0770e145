package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/learnquest/internal/flagx"
	"github.com/dmitrijs2005/learnquest/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations use timex.Duration so
// both "24h" and integer nanoseconds are accepted. Fields absent from the
// file keep their current values.
type JsonConfig struct {
	HTTPAddr                string          `json:"http_addr"`
	GRPCHealthAddr          string          `json:"grpc_health_addr"`
	DatabaseDSN             string          `json:"database_dsn"`
	StorageBackend          string          `json:"storage_backend"`
	SecretKey               string          `json:"secret_key"`
	TokenTTL                *timex.Duration `json:"token_ttl"`
	PasswordHasher          string          `json:"password_hasher"`
	VerifyIdentityOnRequest *bool           `json:"verify_identity_on_request"`
	ClientOrigin            string          `json:"client_origin"`
	Production              *bool           `json:"production"`
	ShutdownTimeout         *timex.Duration `json:"shutdown_timeout"`
	ImageStore              string          `json:"image_store"`
	AvatarDir               string          `json:"avatar_dir"`
	PublicBaseURL           string          `json:"public_base_url"`
	S3AccessKey             string          `json:"s3_access_key"`
	S3SecretKey             string          `json:"s3_secret_key"`
	S3Bucket                string          `json:"s3_bucket"`
	S3Region                string          `json:"s3_region"`
	S3BaseEndpoint          string          `json:"s3_base_endpoint"`
	S3PublicURL             string          `json:"s3_public_url"`
}

// parseJson loads the file named by -c/-config into config. Nothing happens
// when neither flag is set; an unreadable or malformed file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCHealthAddr, c.GRPCHealthAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.PasswordHasher, c.PasswordHasher)
	setString(&config.ClientOrigin, c.ClientOrigin)
	setString(&config.ImageStore, c.ImageStore)
	setString(&config.AvatarDir, c.AvatarDir)
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicURL, c.S3PublicURL)

	if c.TokenTTL != nil {
		config.TokenTTL = time.Duration(c.TokenTTL.Duration)
	}
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = time.Duration(c.ShutdownTimeout.Duration)
	}
	if c.VerifyIdentityOnRequest != nil {
		config.VerifyIdentityOnRequest = *c.VerifyIdentityOnRequest
	}
	if c.Production != nil {
		config.Production = *c.Production
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
