package nativemsg

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
)

// Manifest is the native-messaging host manifest a browser reads to spawn
// the host.
type Manifest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Path              string   `json:"path"`
	Type              string   `json:"type"`
	AllowedExtensions []string `json:"allowed_extensions,omitempty"`
	AllowedOrigins    []string `json:"allowed_origins,omitempty"`
}

// NewManifest builds a stdio manifest. Firefox extension ids go to
// allowed_extensions; chrome-extension:// origins go to allowed_origins.
func NewManifest(name, description, path string, extensions []string) (Manifest, error) {
	if name == "" {
		return Manifest{}, errors.New("manifest name is required")
	}
	if !filepath.IsAbs(path) {
		return Manifest{}, errors.New("manifest path must be absolute")
	}
	m := Manifest{
		Name:        name,
		Description: description,
		Path:        path,
		Type:        "stdio",
	}
	for _, ext := range extensions {
		if strings.HasPrefix(ext, "chrome-extension://") {
			m.AllowedOrigins = append(m.AllowedOrigins, ext)
			continue
		}
		m.AllowedExtensions = append(m.AllowedExtensions, ext)
	}
	return m, nil
}

// Marshal returns the indented manifest JSON.
func (m Manifest) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
