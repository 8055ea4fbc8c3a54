package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	EnvPrefix       = "MATHBOT_"
	DefaultLaTeXURL = "https://latex.codecogs.com/png.latex?%5Cdpi%7B300%7D%20%5Chuge%20"
)

type Config struct {
	Port string `koanf:"port"`

	TelegramToken string `koanf:"telegram_token"`
	WebhookURL    string `koanf:"webhook_url"`

	DatabaseURL string `koanf:"database_url"`

	LaTeXURL string `koanf:"latex_url"`

	GeminiAPIKey string `koanf:"gemini_api_key"`
	GeminiModel  string `koanf:"gemini_model"`

	Cooldown     time.Duration `koanf:"cooldown"`
	SessionTTL   time.Duration `koanf:"session_ttl"`
	HistoryLimit int           `koanf:"history_limit"`

	Verbose bool `koanf:"verbose"`
}

func defaults() map[string]any {
	return map[string]any{
		"port":          "8080",
		"latex_url":     DefaultLaTeXURL,
		"gemini_model":  "gemini-2.5-flash",
		"cooldown":      "10s",
		"session_ttl":   "5m",
		"history_limit": 10,
		"verbose":       false,
	}
}

// Load собирает конфиг по слоям: defaults < yaml-файл < PORT/DATABASE_URL < MATHBOT_* env < флаги.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// платформенные переменные (PORT, DATABASE_URL / POSTGRES_*) ниже своих MATHBOT_*
	platform := map[string]any{}
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		platform["port"] = p
	}
	if dsn := resolveDSN(); dsn != "" {
		platform["database_url"] = dsn
	}
	if err := k.Load(confmap.Provider(platform, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load platform env: %w", err)
	}

	// MATHBOT_TELEGRAM_TOKEN -> telegram_token
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate проверяет то, без чего бот не стартует.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TelegramToken) == "" {
		return fmt.Errorf("telegram token is empty: set %sTELEGRAM_TOKEN or telegram_token", EnvPrefix)
	}
	if c.Cooldown < 0 || c.SessionTTL <= 0 {
		return fmt.Errorf("cooldown must be >= 0 and session_ttl > 0")
	}
	return nil
}

func resolveDSN() string {
	// Prefer DATABASE_URL if provided
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		return v
	}
	// без POSTGRES_PASSWORD считаем, что база не настроена: история выключена
	pass := os.Getenv("POSTGRES_PASSWORD")
	if pass == "" {
		return ""
	}
	user := getenvDefault("POSTGRES_USER", "mathbot")
	host := getenvDefault("PGHOST", "db")
	port := getenvDefault("PGPORT", "5432")
	db := getenvDefault("POSTGRES_DB", "mathbot")

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + db,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// SafeDSNSummary печатает DSN без пароля, для логов.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
