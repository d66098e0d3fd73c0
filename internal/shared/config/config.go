package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderGitHub = "github"
	ProviderGoogle = "google"
)

// DashboardPath is the session-gated page.
const DashboardPath = "/dashboard"

// ReservedPaths are served by the router itself and cannot be reused for the
// sign-in or error page.
var ReservedPaths = []string{"/", DashboardPath, "/api"}

// KnownProviders lists the identity providers the server can register.
var KnownProviders = []string{ProviderGitHub, ProviderGoogle}

type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	OAuth     OAuthConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	Frontend  FrontendConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port            string
	URL             string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// AuthConfig is the session policy: how sessions are signed and where
// unauthenticated visitors are sent.
type AuthConfig struct {
	SessionSecret  string
	SessionMaxAge  time.Duration
	CookieSecure   bool
	CookieSameSite string
	SignInPath     string
	ErrorPath      string
	Providers      []string
}

type OAuthConfig struct {
	GitHub ProviderConfig
	Google ProviderConfig
}

type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	// IssuerURL and JWKSURL are only used by OpenID Connect providers.
	IssuerURL string
	JWKSURL   string
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type FrontendConfig struct {
	URL       string
	CORSDebug bool
}

type LoggingConfig struct {
	Level      string
	JSONFormat bool
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	TrustProxy        bool
}

// Load reads the configuration from the environment, after applying a .env
// file when one is present. Credentials are taken as-is: a provider with
// empty credentials is still registered and fails at code exchange.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using system environment variables")
	}

	cfg := load()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func load() *Config {
	server := loadServerConfig()

	cfg := &Config{
		Server:    server,
		Auth:      loadAuthConfig(),
		OAuth:     loadOAuthConfig(server.URL),
		Redis:     loadRedisConfig(),
		Database:  loadDatabaseConfig(),
		Frontend:  loadFrontendConfig(),
		Logging:   loadLoggingConfig(),
		RateLimit: loadRateLimitConfig(),
	}

	cfg.Auth.CookieSecure = cfg.IsProduction()
	cfg.Logging.JSONFormat = cfg.IsProduction()

	return cfg
}

func loadServerConfig() ServerConfig {
	readTimeout, _ := strconv.Atoi(GetEnv("SERVER_READ_TIMEOUT_SECONDS", "15"))
	writeTimeout, _ := strconv.Atoi(GetEnv("SERVER_WRITE_TIMEOUT_SECONDS", "15"))
	idleTimeout, _ := strconv.Atoi(GetEnv("SERVER_IDLE_TIMEOUT_SECONDS", "60"))
	shutdownTimeout, _ := strconv.Atoi(GetEnv("SERVER_SHUTDOWN_TIMEOUT_SECONDS", "10"))

	return ServerConfig{
		Port:            GetEnv("SERVER_PORT", "8080"),
		URL:             strings.TrimRight(GetEnv("SERVER_URL", "http://localhost:8080"), "/"),
		Environment:     GetEnv("ENVIRONMENT", "development"),
		ReadTimeout:     time.Duration(readTimeout) * time.Second,
		WriteTimeout:    time.Duration(writeTimeout) * time.Second,
		IdleTimeout:     time.Duration(idleTimeout) * time.Second,
		ShutdownTimeout: time.Duration(shutdownTimeout) * time.Second,
	}
}

func loadAuthConfig() AuthConfig {
	maxAgeHours, _ := strconv.Atoi(GetEnv("SESSION_MAX_AGE_HOURS", "720"))

	return AuthConfig{
		SessionSecret:  GetEnv("SESSION_SECRET", ""),
		SessionMaxAge:  time.Duration(maxAgeHours) * time.Hour,
		CookieSameSite: GetEnv("COOKIE_SAME_SITE", "lax"),
		SignInPath:     GetEnv("AUTH_SIGN_IN_PATH", "/login"),
		ErrorPath:      GetEnv("AUTH_ERROR_PATH", "/auth/error"),
		Providers:      splitList(GetEnv("AUTH_PROVIDERS", "github,google")),
	}
}

func loadOAuthConfig(serverURL string) OAuthConfig {
	return OAuthConfig{
		GitHub: ProviderConfig{
			ClientID:     GetEnv("GITHUB_ID", ""),
			ClientSecret: GetEnv("GITHUB_SECRET", ""),
			RedirectURL:  serverURL + "/api/auth/callback/github",
			Scopes:       []string{"read:user", "user:email"},
		},
		Google: ProviderConfig{
			ClientID:     GetEnv("GOOGLE_ID", ""),
			ClientSecret: GetEnv("GOOGLE_SECRET", ""),
			RedirectURL:  serverURL + "/api/auth/callback/google",
			Scopes:       []string{"openid", "profile", "email"},
			IssuerURL:    GetEnv("GOOGLE_ISSUER_URL", "https://accounts.google.com"),
			JWKSURL:      GetEnv("GOOGLE_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs"),
		},
	}
}

func loadRedisConfig() RedisConfig {
	db, _ := strconv.Atoi(GetEnv("REDIS_DB", "0"))

	return RedisConfig{
		Enabled:  GetEnv("REDIS_ENABLED", "false") == "true",
		URL:      GetEnv("REDIS_URL", ""),
		Host:     GetEnv("REDIS_HOST", "localhost"),
		Port:     GetEnv("REDIS_PORT", "6379"),
		Password: GetEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func loadDatabaseConfig() DatabaseConfig {
	maxOpenConns, _ := strconv.Atoi(GetEnv("DB_MAX_OPEN_CONNS", "10"))
	maxIdleConns, _ := strconv.Atoi(GetEnv("DB_MAX_IDLE_CONNS", "2"))
	connMaxLifetime, _ := strconv.Atoi(GetEnv("DB_CONN_MAX_LIFETIME_MINUTES", "5"))

	return DatabaseConfig{
		Enabled:         GetEnv("DB_ENABLED", "false") == "true",
		Host:            GetEnv("DB_HOST", "localhost"),
		Port:            GetEnv("DB_PORT", "5432"),
		User:            GetEnv("DB_USER", "postgres"),
		Password:        GetEnv("DB_PASSWORD", "postgres"),
		Name:            GetEnv("DB_NAME", "dashboard"),
		SSLMode:         GetEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: time.Duration(connMaxLifetime) * time.Minute,
	}
}

func loadFrontendConfig() FrontendConfig {
	return FrontendConfig{
		URL:       GetEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSDebug: GetEnv("CORS_DEBUG", "") == "true",
	}
}

func loadLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level: GetEnv("LOG_LEVEL", "debug"),
	}
}

func loadRateLimitConfig() RateLimitConfig {
	requestsPerSecond, _ := strconv.ParseFloat(GetEnv("RATE_LIMIT_REQUESTS_PER_SECOND", "10"), 64)
	burstSize, _ := strconv.Atoi(GetEnv("RATE_LIMIT_BURST_SIZE", "20"))

	return RateLimitConfig{
		Enabled:           GetEnv("RATE_LIMIT_ENABLED", "true") == "true",
		RequestsPerSecond: requestsPerSecond,
		BurstSize:         burstSize,
		TrustProxy:        GetEnv("RATE_LIMIT_TRUST_PROXY", "false") == "true",
	}
}

func (c *Config) validate() error {
	if c.Auth.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}

	if len(c.Auth.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters long")
	}

	if c.Auth.SessionMaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE_HOURS must be positive")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Server.URL == "" {
		return fmt.Errorf("SERVER_URL is required")
	}

	if err := validatePagePath("AUTH_SIGN_IN_PATH", c.Auth.SignInPath); err != nil {
		return err
	}

	if err := validatePagePath("AUTH_ERROR_PATH", c.Auth.ErrorPath); err != nil {
		return err
	}

	if c.Auth.SignInPath == c.Auth.ErrorPath {
		return fmt.Errorf("AUTH_SIGN_IN_PATH and AUTH_ERROR_PATH must differ")
	}

	if len(c.Auth.Providers) == 0 {
		return fmt.Errorf("AUTH_PROVIDERS must name at least one provider")
	}

	for _, id := range c.Auth.Providers {
		if !slices.Contains(KnownProviders, id) {
			return fmt.Errorf("AUTH_PROVIDERS contains unknown provider %q", id)
		}
	}

	if c.Database.Enabled && c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required when DB_ENABLED is true")
	}

	return nil
}

// Provider returns the credentials block for a provider ID.
func (c *Config) Provider(id string) (ProviderConfig, bool) {
	switch id {
	case ProviderGitHub:
		return c.OAuth.GitHub, true
	case ProviderGoogle:
		return c.OAuth.Google, true
	default:
		return ProviderConfig{}, false
	}
}

func (c *Config) ProviderConfigured(id string) bool {
	p, ok := c.Provider(id)
	return ok && p.ClientID != "" && p.ClientSecret != ""
}

// validatePagePath rejects page paths the router could not register next to
// its fixed routes.
func validatePagePath(name, path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("%s must start with /", name)
	}

	if strings.ContainsAny(path, "{}?# \t") || strings.Contains(path, "//") {
		return fmt.Errorf("%s must be a plain path, got %q", name, path)
	}

	if slices.Contains(ReservedPaths, path) || strings.HasPrefix(path, "/api/") {
		return fmt.Errorf("%s %q collides with a built-in route", name, path)
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" && !slices.Contains(out, part) {
			out = append(out, part)
		}
	}
	return out
}
