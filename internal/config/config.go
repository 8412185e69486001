// Package config loads the optional --logConfig file: a handful of flat
// "key: value" lines controlling the zerolog level/output knobs. A
// deliberate, minimal line-based parser rather than a YAML/TOML
// dependency for a file this small.
package config

import (
	"bufio"
	"os"
	"strings"
)

// LogConfig is the subset of --logConfig knobs this repo understands.
type LogConfig struct {
	Level  string // "debug" switches dbsync to debug level; any other value leaves it at info
	Pretty bool
}

// Load reads path if it exists; a missing file is not an error — it means
// "use defaults". --logConfig is a best-effort optional file, not a hard
// requirement.
func Load(path string) (LogConfig, error) {
	cfg := LogConfig{Level: "info"}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "level":
			cfg.Level = value
		case "pretty":
			cfg.Pretty = value == "true"
		}
	}
	return cfg, scanner.Err()
}
