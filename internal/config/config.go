// Package config loads the TOML configuration file that carries the
// settings spec.md §6 lists outside the CLI surface: log level, control
// port bind address, and the embedded map's static-file directory.
package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

// File mirrors the TOML document's top-level keys. Every field is
// optional; a missing file or missing key leaves the caller's defaults
// in place.
type File struct {
	LogLevel     string `toml:"log_level"`
	CtrlPortBind string `toml:"ctrlport_bind"`
	FrontendPath string `toml:"frontend_path"`
}

// Load reads and parses path. A missing path is not an error: it
// returns a zero File so callers can treat "no config file" the same as
// "config file with nothing set".
func Load(path string) (File, error) {
	var f File
	if path == "" {
		return f, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return f, err
	}

	if err := toml.Unmarshal(data, &f); err != nil {
		return f, err
	}
	return f, nil
}
