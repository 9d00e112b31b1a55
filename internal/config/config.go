// Package config loads den's startup configuration file with
// github.com/spf13/viper, merging environment overrides over the first
// file found in the search order.
package config

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds everything the startup file may set.
type Config struct {
	PS1         string            `mapstructure:"ps1"`
	PS2         string            `mapstructure:"ps2"`
	PS4         string            `mapstructure:"ps4"`
	HistorySize int               `mapstructure:"history_size"`
	Theme       string            `mapstructure:"theme"`
	Aliases     map[string]string `mapstructure:"aliases"`
	Env         map[string]string `mapstructure:"env"`
	KeyBindings map[string]string `mapstructure:"key_bindings"`
}

// Default returns the configuration den starts with when no config file
// is found anywhere in the search order.
func Default() *Config {
	return &Config{
		PS1:         `\u@\h \W \$ `,
		PS2:         "> ",
		PS4:         "+ ",
		HistorySize: 1000,
		Theme:       "default",
		Aliases:     map[string]string{},
		Env:         map[string]string{},
		KeyBindings: map[string]string{},
	}
}

// SearchPaths returns the candidate config file locations in search
// order: $DEN_CONFIG, ./.den.json, ~/.config/den/config.json,
// ~/.denrc.json. First match wins.
func SearchPaths() []string {
	var paths []string
	if p := os.Getenv("DEN_CONFIG"); p != "" {
		paths = append(paths, p)
	}
	paths = append(paths, ".den.json")
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "den", "config.json"))
		paths = append(paths, filepath.Join(home, ".denrc.json"))
	}
	return paths
}

// Resolve returns the first existing path in SearchPaths, or "" if none
// exist (a missing config file is not an error — Default applies).
func Resolve() string {
	for _, p := range SearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Load resolves the startup file (if any) and merges it over Default.
// It returns the path actually used (empty if none was found) alongside
// the Config, so the caller can hand the path to Watch.
func Load() (*Config, string, error) {
	path := Resolve()
	cfg := Default()
	if path == "" {
		return cfg, "", nil
	}
	if err := load(path, cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// load reads path and unmarshals it over cfg in place.
func load(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	stripped := stripLineComments(raw)

	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(stripped)); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	v.SetEnvPrefix("DEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return nil
}

// stripLineComments removes `//`-prefixed line comments from a JSON
// document outside of string literals, since viper's JSON reader rejects
// them outright.
func stripLineComments(raw []byte) []byte {
	var out bytes.Buffer
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		out.WriteString(stripLineComment(sc.Text()))
		out.WriteByte('\n')
	}
	return out.Bytes()
}

func stripLineComment(line string) string {
	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '/' && i+1 < len(line) && line[i+1] == '/':
			return line[:i]
		}
	}
	return line
}
