package config

import (
	"fmt"
	"os"

	"github.com/faawibowo/pakta/backend/access"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Minio     MinioConfig     `yaml:"minio"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Access    AccessConfig    `yaml:"access"`
	Users     []User          `yaml:"users"`
}

type ServerConfig struct {
	Port            int `yaml:"port"`
	RateLimit       int `yaml:"rate_limit"` // requests per minute per client
	MaxUploadMB     int `yaml:"max_upload_mb"`
	ShutdownSeconds int `yaml:"shutdown_seconds"`

	// AllowedOrigins may make credentialed cross-origin requests. Empty
	// means same-origin only.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

type AnalyzerConfig struct {
	APIURL            string   `yaml:"api_url"`
	APIToken          string   `yaml:"api_token"`
	Model             string   `yaml:"model"`
	CallbackURL       string   `yaml:"callback_url"`
	Seed              string   `yaml:"seed"`
	TimeoutSeconds    int      `yaml:"timeout_seconds"`
	MandatoryElements []string `yaml:"mandatory_elements"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
	CookieName       string `yaml:"cookie_name"`
	SecureCookie     bool   `yaml:"secure_cookie"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StoreConfig struct {
	MaxContracts int `yaml:"max_contracts"`
}

// DatabaseConfig selects the persistent store. An empty DSN keeps contracts
// in memory.
type DatabaseConfig struct {
	DSN             string `yaml:"dsn"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_seconds"`
	AutoMigrate     bool   `yaml:"auto_migrate"`
}

// RedisConfig backs the session revocation list. An empty Addr keeps it in
// memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
	ServiceName  string `yaml:"service_name"`
}

// AccessConfig is the route table. When Routes is empty the standard table
// is used.
type AccessConfig struct {
	PublicPaths    []string           `yaml:"public_paths"`
	PublicPrefixes []string           `yaml:"public_prefixes"`
	Routes         []access.RouteSpec `yaml:"routes"`
	DefaultPolicy  string             `yaml:"default_policy"`
}

type User struct {
	ID           string      `yaml:"id"`
	Username     string      `yaml:"username"`
	PasswordHash string      `yaml:"password_hash"` // bcrypt
	Role         access.Role `yaml:"role"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 100
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 20
	}
	if c.Server.ShutdownSeconds == 0 {
		c.Server.ShutdownSeconds = 5
	}
	if c.Minio.ExpireDays == 0 {
		c.Minio.ExpireDays = 7
	}
	if c.Analyzer.TimeoutSeconds == 0 {
		c.Analyzer.TimeoutSeconds = 60
	}
	if len(c.Analyzer.MandatoryElements) == 0 {
		c.Analyzer.MandatoryElements = []string{
			"parties",
			"subject_matter",
			"term",
			"consideration",
			"governing_law",
			"dispute_resolution",
			"signatures",
		}
	}
	if c.Auth.TokenExpireHours == 0 {
		c.Auth.TokenExpireHours = 24
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "pakta_session"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 1800
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "pakta:revoked:"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "pakta"
	}
	if c.Access.DefaultPolicy == "" {
		c.Access.DefaultPolicy = string(access.DefaultAllow)
	}
	for i := range c.Users {
		if c.Users[i].ID == "" {
			c.Users[i].ID = c.Users[i].Username
		}
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Analyzer.APIURL != "" && c.Analyzer.Seed == "" {
		return fmt.Errorf("analyzer.seed is required when analyzer.api_url is set")
	}
	seen := make(map[string]struct{}, len(c.Users))
	for i, u := range c.Users {
		if u.Username == "" || u.PasswordHash == "" {
			return fmt.Errorf("users[%d]: username and password_hash are required", i)
		}
		if !u.Role.Valid() {
			return fmt.Errorf("users[%d]: role is required", i)
		}
		if _, dup := seen[u.Username]; dup {
			return fmt.Errorf("users[%d]: duplicate username %q", i, u.Username)
		}
		seen[u.Username] = struct{}{}
	}
	return nil
}

// AccessPolicy converts the access section into a gate policy, falling back
// to the standard route table when no routes are configured.
func (c *Config) AccessPolicy() access.Policy {
	p := access.StandardPolicy()
	if len(c.Access.Routes) > 0 {
		p.Routes = c.Access.Routes
	}
	if len(c.Access.PublicPaths) > 0 {
		p.PublicPaths = c.Access.PublicPaths
	}
	if len(c.Access.PublicPrefixes) > 0 {
		p.PublicPrefixes = c.Access.PublicPrefixes
	}
	p.Default = access.DefaultPolicy(c.Access.DefaultPolicy)
	return p
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
