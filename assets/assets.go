// Package assets embeds the static assets shipped with the wallet core,
// currently the in-page provider script injected into dapp pages.
package assets

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed js
var assetFS embed.FS

// Load returns an embedded asset as text.
func Load(path string) (string, error) {
	raw, err := assetFS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("load asset %q: %w", path, err)
	}
	return string(raw), nil
}

// LoadWithReplacements returns an embedded asset with every occurrence of
// each placeholder replaced.
func LoadWithReplacements(path string, replacements map[string]string) (string, error) {
	text, err := Load(path)
	if err != nil {
		return "", err
	}
	for placeholder, value := range replacements {
		text = strings.ReplaceAll(text, placeholder, value)
	}
	return text, nil
}
