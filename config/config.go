package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type RatesConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	TTL     time.Duration `mapstructure:"ttl"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type EmailConfig struct {
	Provider     string `mapstructure:"provider"` // resend, smtp or log
	From         string `mapstructure:"from"`
	ResendAPIKey string `mapstructure:"resend_api_key"`
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUsername string `mapstructure:"smtp_username"`
	SMTPPassword string `mapstructure:"smtp_password"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type FirebaseConfig struct {
	ProjectID         string `mapstructure:"project_id"`
	CredentialsJSON   string `mapstructure:"credentials_json"`
	CredentialsBase64 string `mapstructure:"credentials_base64"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Rates    RatesConfig    `mapstructure:"rates"`
	Email    EmailConfig    `mapstructure:"email"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Firebase FirebaseConfig `mapstructure:"firebase"`
	App      AppConfig      `mapstructure:"app"`
}

// IsDevelopment reports whether the app runs outside production
func (c *Config) IsDevelopment() bool {
	return c.App.Env != "production"
}

var (
	appConfig *Config
	once      sync.Once
)

// Load reads configuration once for the process. See New for the lookup rules.
func Load(path string) (*Config, error) {
	var err error
	once.Do(func() {
		appConfig, err = New(path)
	})

	if err != nil {
		return nil, err
	}
	return appConfig, nil
}

// New builds a Config from defaults, an optional YAML file and the
// environment. If path is empty, config.yaml in the working directory is used
// when present. Environment variables use the OPS_ prefix with dots replaced
// by underscores, e.g. OPS_SERVER_PORT=9000.
func New(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("OPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// OPS_CORS_ALLOWED_ORIGINS arrives as one comma separated string
	if len(c.CORS.AllowedOrigins) == 1 && strings.Contains(c.CORS.AllowedOrigins[0], ",") {
		c.CORS.AllowedOrigins = strings.Split(c.CORS.AllowedOrigins[0], ",")
	}
	for i, origin := range c.CORS.AllowedOrigins {
		c.CORS.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)

	v.SetDefault("database.path", "./ops.db")

	v.SetDefault("rates.base_url", "https://cdn.jsdelivr.net/npm/@fawazahmed0/currency-api@latest/v1/currencies")
	v.SetDefault("rates.ttl", 12*time.Hour)
	v.SetDefault("rates.timeout", 10*time.Second)

	v.SetDefault("email.provider", "log")
	v.SetDefault("email.from", "no-reply@localhost")
	v.SetDefault("email.resend_api_key", "")
	v.SetDefault("email.smtp_host", "")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.smtp_username", "")
	v.SetDefault("email.smtp_password", "")

	v.SetDefault("cors.allowed_origins", []string{
		"http://localhost:5173",
		"http://localhost:3000",
		"http://localhost:8080",
	})

	v.SetDefault("firebase.project_id", "")
	v.SetDefault("firebase.credentials_json", "")
	v.SetDefault("firebase.credentials_base64", "")

	v.SetDefault("app.env", "development")
}
