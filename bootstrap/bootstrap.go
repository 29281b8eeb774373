// Package bootstrap renders the files a browser needs to run tabcounter as a
// native-messaging host: the relay extension, the host manifest and a config.
package bootstrap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/tabcounter/internal/appconfig"
	"pkt.systems/tabcounter/internal/nativemsg"
	"pkt.systems/tabcounter/internal/version"
	"pkt.systems/tabcounter/schema"
)

// Files represents generated bootstrap artifacts.
type Files struct {
	ConfigYAML      []byte
	HostManifest    []byte
	ExtManifest     []byte
	ExtBackgroundJS []byte
}

// Options controls bootstrap rendering.
type Options struct {
	// Config supplies host and tree settings. Zero value means defaults.
	Config *appconfig.Config
	// BinPath is the absolute host binary path written into the host manifest.
	BinPath string
}

// Paths reports where bootstrap wrote its outputs.
type Paths struct {
	ConfigPath       string
	HostManifestPath string
	ExtensionDir     string
}

const (
	configName        = "config.yaml"
	extensionDir      = "extension"
	extManifestName   = "manifest.json"
	extBackgroundName = "background.js"
	// DefaultBinPath is used for repo codegen where the install path is unknown.
	DefaultBinPath = "/usr/local/bin/tabcounter"
)

type templateData struct {
	HostName       string
	TSTExtensionID string
	ListeningTypes []schema.NotificationType
}

type extensionManifest struct {
	ManifestVersion int                 `json:"manifest_version"`
	Name            string              `json:"name"`
	Version         string              `json:"version"`
	Description     string              `json:"description"`
	Settings        extensionSettings   `json:"browser_specific_settings"`
	Permissions     []string            `json:"permissions"`
	Background      extensionBackground `json:"background"`
}

type extensionSettings struct {
	Gecko struct {
		ID string `json:"id"`
	} `json:"gecko"`
}

type extensionBackground struct {
	Scripts []string `json:"scripts"`
}

// DefaultFiles renders the bundle for the default config.
func DefaultFiles() (Files, error) {
	return RenderFiles(Options{BinPath: DefaultBinPath})
}

// RenderFiles renders the bundle for opts.
func RenderFiles(opts Options) (Files, error) {
	cfg := appconfig.DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	if err := appconfig.Validate(cfg); err != nil {
		return Files{}, err
	}
	if len(cfg.Host.AllowedExtensions) == 0 {
		return Files{}, fmt.Errorf("host.allowed_extensions is required")
	}
	binPath := opts.BinPath
	if binPath == "" {
		binPath = DefaultBinPath
	}

	configYAML, err := appconfig.Marshal(cfg)
	if err != nil {
		return Files{}, err
	}
	manifest, err := nativemsg.NewManifest(cfg.Host.Name, cfg.Host.Description, binPath, cfg.Host.AllowedExtensions)
	if err != nil {
		return Files{}, err
	}
	hostManifest, err := manifest.Marshal()
	if err != nil {
		return Files{}, err
	}
	extManifest, err := renderExtensionManifest(cfg)
	if err != nil {
		return Files{}, err
	}
	script, err := renderBackground(templateData{
		HostName:       cfg.Host.Name,
		TSTExtensionID: cfg.TST.ExtensionID,
		ListeningTypes: schema.TreeNotificationTypes,
	})
	if err != nil {
		return Files{}, err
	}
	return Files{
		ConfigYAML:      configYAML,
		HostManifest:    hostManifest,
		ExtManifest:     extManifest,
		ExtBackgroundJS: script,
	}, nil
}

// WriteFiles writes the bundle into outputDir. The host manifest is named
// after the host so it can be copied into the browser's manifest directory.
func WriteFiles(outputDir, hostName string, files Files, overwrite bool) (Paths, error) {
	if strings.TrimSpace(outputDir) == "" {
		return Paths{}, fmt.Errorf("output directory is required")
	}
	if strings.TrimSpace(hostName) == "" {
		return Paths{}, fmt.Errorf("host name is required")
	}
	paths := Paths{
		ConfigPath:       filepath.Join(outputDir, configName),
		HostManifestPath: filepath.Join(outputDir, hostName+".json"),
		ExtensionDir:     filepath.Join(outputDir, extensionDir),
	}
	outputs := []struct {
		path string
		data []byte
	}{
		{paths.ConfigPath, files.ConfigYAML},
		{paths.HostManifestPath, files.HostManifest},
		{filepath.Join(paths.ExtensionDir, extManifestName), files.ExtManifest},
		{filepath.Join(paths.ExtensionDir, extBackgroundName), files.ExtBackgroundJS},
	}
	if !overwrite {
		for _, out := range outputs {
			if _, err := os.Stat(out.path); err == nil {
				return Paths{}, fmt.Errorf("file already exists: %s", out.path)
			}
		}
	}
	if err := os.MkdirAll(paths.ExtensionDir, 0o755); err != nil {
		return Paths{}, err
	}
	for _, out := range outputs {
		if len(out.data) == 0 {
			return Paths{}, fmt.Errorf("empty bootstrap output for %s", out.path)
		}
		if err := os.WriteFile(out.path, out.data, 0o644); err != nil {
			return Paths{}, err
		}
	}
	return paths, nil
}

func renderExtensionManifest(cfg appconfig.Config) ([]byte, error) {
	m := extensionManifest{
		ManifestVersion: 2,
		Name:            cfg.TST.Name,
		Version:         ExtensionVersion(version.Current()),
		Description:     cfg.Host.Description,
		Permissions:     []string{"nativeMessaging", "tabs"},
		Background:      extensionBackground{Scripts: []string{extBackgroundName}},
	}
	// The relay's gecko id is the first Firefox-style id the host accepts.
	for _, id := range cfg.Host.AllowedExtensions {
		if !strings.HasPrefix(id, "chrome-extension://") {
			m.Settings.Gecko.ID = id
			break
		}
	}
	if m.Settings.Gecko.ID == "" {
		return nil, fmt.Errorf("host.allowed_extensions needs a Firefox extension id for the relay")
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func renderBackground(data templateData) ([]byte, error) {
	tpl, err := templates()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "background.js.tmpl", data); err != nil {
		return nil, fmt.Errorf("render background template: %w", err)
	}
	return buf.Bytes(), nil
}

// ExtensionVersion converts a module version to the dotted form browsers
// accept: "v1.2.3-rc.1+dirty" becomes "1.2.3", anything unparsable "0.0.0".
func ExtensionVersion(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if idx := strings.IndexAny(v, "-+"); idx >= 0 {
		v = v[:idx]
	}
	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return "0.0.0"
	}
	for _, part := range parts {
		if part == "" || strings.Trim(part, "0123456789") != "" {
			return "0.0.0"
		}
	}
	return v
}
