package config

import (
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	ErrMissingSecret = ErrConfig("auth.secret_key is required")
	ErrUnknownDriver = ErrConfig("db.driver must be sqlite or postgres")
	ErrMissingDSN    = ErrConfig("db.dsn is required")
)

// ErrMissingPublicURL guards verification links, they are never built from
// the request Host header.
const ErrMissingPublicURL = ErrConfig("server.public_url must be an absolute URL when smtp.enabled is set")

// Load reads .env (if present), then the optional YAML file at path, then
// the environment. Env keys replace "." with "_", e.g. AUTH_SECRET_KEY.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	v.SetDefault("app.name", "contacts-auth")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.debug", false)

	v.SetDefault("server.http_addr", ":8000")
	v.SetDefault("server.public_url", "")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "5s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_timeout", "15s")
	v.SetDefault("server.metrics_path", "/metrics")

	v.SetDefault("db.driver", DriverSQLite)
	v.SetDefault("db.dsn", "file:contacts.db?cache=shared")
	v.SetDefault("db.debug", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("auth.secret_key", "")
	v.SetDefault("auth.signing_method", "HS256")
	v.SetDefault("auth.access_ttl", "16m")
	v.SetDefault("auth.refresh_ttl", "168h")
	v.SetDefault("auth.email_ttl", "48h")
	v.SetDefault("auth.clock_leeway", "0s")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.password_hasher", "bcrypt")
	v.SetDefault("auth.bcrypt_cost", 14)
	v.SetDefault("auth.use_hashid", false)
	v.SetDefault("auth.context_key", "user")
	v.SetDefault("auth.token_lookup", "header:Authorization")
	v.SetDefault("auth.auth_scheme", "Bearer")

	v.SetDefault("smtp.enabled", false)
	v.SetDefault("smtp.host", "localhost")
	v.SetDefault("smtp.port", 1025)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "no-reply@localhost")
	v.SetDefault("smtp.from_name", "Contacts")

	v.SetDefault("rate_limit.max", 10)
	v.SetDefault("rate_limit.window", "60s")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports configuration that must stop the process at startup
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.SecretKey) == "" {
		return ErrMissingSecret
	}

	switch c.DB.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return ErrUnknownDriver
	}

	if c.DB.DSN == "" {
		return ErrMissingDSN
	}

	if c.SMTP.Enabled && !isAbsoluteURL(c.Server.PublicURL) {
		return ErrMissingPublicURL
	}

	return nil
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
