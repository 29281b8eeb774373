package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/tabcounter/schema"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TABCOUNTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("provider", cfg.Provider)
	v.SetDefault("labels.radius", cfg.Labels.Radius)
	v.SetDefault("labels.scope", cfg.Labels.Scope)
	v.SetDefault("render.concurrency", cfg.Render.Concurrency)
	v.SetDefault("refresh.timeout_seconds", cfg.Refresh.TimeoutSeconds)
	v.SetDefault("tst.extension_id", cfg.TST.ExtensionID)
	v.SetDefault("tst.name", cfg.TST.Name)
	v.SetDefault("tst.register", cfg.TST.Register)
	v.SetDefault("tst.style", cfg.TST.Style)
	v.SetDefault("host.name", cfg.Host.Name)
	v.SetDefault("host.description", cfg.Host.Description)
	v.SetDefault("host.allowed_extensions", cfg.Host.AllowedExtensions)
	v.SetDefault("cdp.url", cfg.CDP.URL)
	v.SetDefault("cdp.headless", cfg.CDP.Headless)
	v.SetDefault("cdp.poll_interval_ms", cfg.CDP.PollIntervalMS)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values viper cannot type-check.
func Validate(cfg Config) error {
	switch cfg.Provider {
	case ProviderTST, ProviderCDP:
	default:
		return fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
	if cfg.Labels.Radius < 0 {
		return fmt.Errorf("labels.radius must not be negative")
	}
	if cfg.Labels.Radius > schema.MaxWindowRadius {
		return fmt.Errorf("labels.radius must be at most %d", schema.MaxWindowRadius)
	}
	if err := schema.ValidateScope(schema.Scope(cfg.Labels.Scope)); err != nil {
		return fmt.Errorf("labels.scope: %w", err)
	}
	if cfg.Render.Concurrency < 0 {
		return fmt.Errorf("render.concurrency must not be negative")
	}
	if cfg.Refresh.TimeoutSeconds < 0 {
		return fmt.Errorf("refresh.timeout_seconds must not be negative")
	}
	if cfg.Provider == ProviderTST && strings.TrimSpace(cfg.TST.ExtensionID) == "" {
		return fmt.Errorf("tst.extension_id is required for provider %q", ProviderTST)
	}
	if cfg.Provider == ProviderTST && cfg.TST.Register && strings.TrimSpace(cfg.TST.Name) == "" {
		return fmt.Errorf("tst.name is required when tst.register is enabled")
	}
	if url := strings.TrimSpace(cfg.CDP.URL); url != "" && !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") && !strings.HasPrefix(url, "http://") {
		return fmt.Errorf("cdp.url must be a ws://, wss:// or http:// DevTools endpoint")
	}
	return nil
}

// LabelerConfig converts the config to the core labeler settings.
func (c Config) LabelerConfig() schema.LabelerConfig {
	return schema.LabelerConfig{
		Radius:            c.Labels.Radius,
		Scope:             schema.Scope(c.Labels.Scope),
		RenderConcurrency: c.Render.Concurrency,
		RefreshTimeout:    time.Duration(c.Refresh.TimeoutSeconds) * time.Second,
	}
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.CDP.URL = expandEnv(cfg.CDP.URL)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

// Marshal renders the config as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	data, err := Marshal(DefaultConfig())
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
