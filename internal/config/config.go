package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Store       StoreConfig
	Plaid       PlaidConfig
}

type ServerConfig struct {
	Port int
}

type StoreConfig struct {
	Driver string
	Path   string
}

type PlaidConfig struct {
	ClientID     string
	Secret       string
	Environment  string
	Products     []string
	CountryCodes []string
	WebhookURL   string
}

const (
	StoreDriverFile   = "file"
	StoreDriverSQLite = "sqlite"
)

func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("quickstart_env", "")
	v.SetDefault("app_env", "")
	v.SetDefault("quickstart_port", 8000)
	v.SetDefault("quickstart_store_driver", StoreDriverFile)
	v.SetDefault("quickstart_store_path", "data/user_record.json")
	v.SetDefault("plaid_client_id", "")
	v.SetDefault("plaid_secret", "")
	v.SetDefault("plaid_env", "sandbox")
	v.SetDefault("plaid_products", "transactions")
	v.SetDefault("plaid_country_codes", "US")
	v.SetDefault("plaid_webhook_url", "")

	env := strings.ToLower(strings.TrimSpace(v.GetString("quickstart_env")))
	if env == "" {
		env = strings.ToLower(strings.TrimSpace(v.GetString("app_env")))
	}

	port := v.GetInt("quickstart_port")
	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid QUICKSTART_PORT: %d", port)
	}

	driver := strings.ToLower(strings.TrimSpace(v.GetString("quickstart_store_driver")))
	switch driver {
	case StoreDriverFile, StoreDriverSQLite:
	default:
		return Config{}, fmt.Errorf("invalid QUICKSTART_STORE_DRIVER: %q (want file or sqlite)", driver)
	}

	cfg := Config{
		Environment: env,
		Server:      ServerConfig{Port: port},
		Store: StoreConfig{
			Driver: driver,
			Path:   strings.TrimSpace(v.GetString("quickstart_store_path")),
		},
		Plaid: PlaidConfig{
			ClientID:     strings.TrimSpace(v.GetString("plaid_client_id")),
			Secret:       strings.TrimSpace(v.GetString("plaid_secret")),
			Environment:  strings.ToLower(strings.TrimSpace(v.GetString("plaid_env"))),
			Products:     splitList(v.GetString("plaid_products")),
			CountryCodes: splitList(v.GetString("plaid_country_codes")),
			WebhookURL:   strings.TrimSpace(v.GetString("plaid_webhook_url")),
		},
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = "data/user_record.json"
	}
	if !cfg.IsLocalDevelopment() && (cfg.Plaid.ClientID == "" || cfg.Plaid.Secret == "") {
		return Config{}, fmt.Errorf("PLAID_CLIENT_ID and PLAID_SECRET are required outside local/dev environments")
	}

	return cfg, nil
}

func splitList(raw string) []string {
	out := make([]string, 0, 2)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (c Config) IsLocalDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "", "local", "dev", "development", "test":
		return true
	default:
		return false
	}
}
