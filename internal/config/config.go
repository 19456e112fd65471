package config

import (
	"time"

	auth "github.com/goliatone/go-contacts-auth"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
	Debug   bool   `mapstructure:"debug"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	PublicURL       string        `mapstructure:"public_url"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	MetricsPath     string        `mapstructure:"metrics_path"`
}

type DB struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Debug  bool   `mapstructure:"debug"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Auth struct {
	SecretKey      string        `mapstructure:"secret_key"`
	SigningMethod  string        `mapstructure:"signing_method"`
	AccessTTL      time.Duration `mapstructure:"access_ttl"`
	RefreshTTL     time.Duration `mapstructure:"refresh_ttl"`
	EmailTTL       time.Duration `mapstructure:"email_ttl"`
	ClockLeeway    time.Duration `mapstructure:"clock_leeway"`
	Issuer         string        `mapstructure:"issuer"`
	PasswordHasher string        `mapstructure:"password_hasher"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	UseHashid      bool          `mapstructure:"use_hashid"`
	ContextKey     string        `mapstructure:"context_key"`
	TokenLookup    string        `mapstructure:"token_lookup"`
	AuthScheme     string        `mapstructure:"auth_scheme"`
}

type SMTP struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
	Enabled  bool   `mapstructure:"enabled"`
}

type RateLimit struct {
	Max    int           `mapstructure:"max"`
	Window time.Duration `mapstructure:"window"`
}

type Config struct {
	App       App       `mapstructure:"app"`
	Server    Server    `mapstructure:"server"`
	DB        DB        `mapstructure:"db"`
	Log       Log       `mapstructure:"log"`
	Auth      Auth      `mapstructure:"auth"`
	SMTP      SMTP      `mapstructure:"smtp"`
	RateLimit RateLimit `mapstructure:"rate_limit"`
}

var _ auth.Config = Auth{}

func (a Auth) GetSigningKey() string { return a.SecretKey }
func (a Auth) GetSigningMethod() string { return a.SigningMethod }
func (a Auth) GetContextKey() string { return a.ContextKey }
func (a Auth) GetTokenLookup() string { return a.TokenLookup }
func (a Auth) GetAuthScheme() string { return a.AuthScheme }
func (a Auth) GetIssuer() string { return a.Issuer }
func (a Auth) GetAccessTokenTTL() time.Duration { return a.AccessTTL }
func (a Auth) GetRefreshTokenTTL() time.Duration { return a.RefreshTTL }
func (a Auth) GetEmailTokenTTL() time.Duration { return a.EmailTTL }
func (a Auth) GetClockLeeway() time.Duration { return a.ClockLeeway }

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	out := c
	if out.Auth.SecretKey != "" {
		out.Auth.SecretKey = "***"
	}
	if out.SMTP.Password != "" {
		out.SMTP.Password = "***"
	}
	if out.DB.DSN != "" && out.DB.Driver != DriverSQLite {
		out.DB.DSN = "***"
	}
	return out
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
