package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/tabcounter/internal/treeprovider"
	"pkt.systems/tabcounter/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int           `mapstructure:"config_version" yaml:"config_version"`
	Provider      string        `mapstructure:"provider" yaml:"provider"`
	Labels        LabelsConfig  `mapstructure:"labels" yaml:"labels"`
	Render        RenderConfig  `mapstructure:"render" yaml:"render"`
	Refresh       RefreshConfig `mapstructure:"refresh" yaml:"refresh"`
	TST           TSTConfig     `mapstructure:"tst" yaml:"tst"`
	Host          HostConfig    `mapstructure:"host" yaml:"host"`
	CDP           CDPConfig     `mapstructure:"cdp" yaml:"cdp"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

const (
	// ProviderTST labels tabs through Tree Style Tab via the native-messaging relay.
	ProviderTST = "tst"
	// ProviderCDP labels Chrome tabs over the DevTools protocol.
	ProviderCDP = "cdp"
)

// LabelsConfig controls which tabs are labeled.
type LabelsConfig struct {
	Radius int    `mapstructure:"radius" yaml:"radius"`
	Scope  string `mapstructure:"scope" yaml:"scope"`
}

// RenderConfig controls how label updates are sent.
type RenderConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// RefreshConfig controls refresh execution.
type RefreshConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// TSTConfig configures the Tree Style Tab provider.
type TSTConfig struct {
	ExtensionID string `mapstructure:"extension_id" yaml:"extension_id"`
	Name        string `mapstructure:"name" yaml:"name"`
	Register    bool   `mapstructure:"register" yaml:"register"`
	Style       string `mapstructure:"style" yaml:"style"`
}

// HostConfig configures the native-messaging host manifest.
type HostConfig struct {
	Name              string   `mapstructure:"name" yaml:"name"`
	Description       string   `mapstructure:"description" yaml:"description"`
	AllowedExtensions []string `mapstructure:"allowed_extensions" yaml:"allowed_extensions"`
}

// CDPConfig configures the DevTools provider.
type CDPConfig struct {
	URL            string `mapstructure:"url" yaml:"url"`
	Headless       bool   `mapstructure:"headless" yaml:"headless"`
	PollIntervalMS int    `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Provider:      ProviderTST,
		Labels: LabelsConfig{
			Radius: schema.DefaultWindowRadius,
			Scope:  string(schema.ScopeAll),
		},
		Render: RenderConfig{
			Concurrency: 1,
		},
		Refresh: RefreshConfig{
			TimeoutSeconds: 0,
		},
		TST: TSTConfig{
			ExtensionID: treeprovider.DefaultExtensionID,
			Name:        "Relative Tab Labeler",
			Register:    true,
			Style:       treeprovider.BadgeStyle,
		},
		Host: HostConfig{
			Name:              "systems.pkt.tabcounter",
			Description:       "Relative tab labels for Tree Style Tab",
			AllowedExtensions: []string{"tabcounter@pkt.systems"},
		},
		CDP: CDPConfig{
			URL:            "",
			Headless:       false,
			PollIntervalMS: 1000,
		},
	}
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tabcounter", "config.yaml"), nil
}
