// ABOUTME: TOML profile for mythic-admin
// ABOUTME: Node address, signing key file and the node's program settings

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/2389/mythic-metadata/internal/address"
)

// Profile is the admin CLI's persisted settings.
type Profile struct {
	Node       string `toml:"node"`
	KeyFile    string `toml:"key_file"`
	ProgramID  string `toml:"program_id"`
	Addressing string `toml:"addressing"`
}

func defaultProfile() *Profile {
	return &Profile{
		Node:       "localhost:50051",
		KeyFile:    filepath.Join(configDir(), "id_ed25519"),
		ProgramID:  address.DefaultProgramID,
		Addressing: string(address.SchemeCounter),
	}
}

func configDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		dir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(dir, "mythic")
}

// profilePath returns the profile location.
// Priority: MYTHIC_ADMIN_PROFILE env var > XDG_CONFIG_HOME/mythic/admin.toml > ~/.config/mythic/admin.toml
func profilePath() string {
	if p := os.Getenv("MYTHIC_ADMIN_PROFILE"); p != "" {
		return p
	}
	return filepath.Join(configDir(), "admin.toml")
}

// loadProfile reads path, falling back to defaults when it does not exist.
// MYTHIC_NODE and MYTHIC_KEY override the file.
func loadProfile(path string) (*Profile, error) {
	p := defaultProfile()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if _, err := toml.Decode(expandEnvVars(string(data)), p); err != nil {
			return nil, fmt.Errorf("parsing profile: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	if v := os.Getenv("MYTHIC_NODE"); v != "" {
		p.Node = v
	}
	if v := os.Getenv("MYTHIC_KEY"); v != "" {
		p.KeyFile = v
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validating profile: %w", err)
	}
	return p, nil
}

// Validate checks the profile's program settings.
func (p *Profile) Validate() error {
	if p.Node == "" {
		return fmt.Errorf("node is required")
	}
	if _, err := address.Parse(p.ProgramID); err != nil {
		return fmt.Errorf("program_id: %w", err)
	}
	if _, err := address.ParseScheme(p.Addressing); err != nil {
		return fmt.Errorf("addressing: %w", err)
	}
	return nil
}

func (p *Profile) save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(p); err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating profile directory: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}"))
	})
}
