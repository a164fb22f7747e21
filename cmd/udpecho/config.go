//go:build linux || darwin

package main

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/Zereker/framed"
)

// Codec names accepted in the config file and on the command line.
const (
	codecLines  = "lines"
	codecLength = "length"
	codecRaw    = "raw"
)

// Config is the resolved udpecho configuration.
type Config struct {
	Listen     string
	Mode       string
	Codec      string
	LogLevel   string
	BufferSize int
}

type fileConfig struct {
	Listen     string `toml:"listen"`
	Mode       string `toml:"mode"`
	Codec      string `toml:"codec"`
	LogLevel   string `toml:"log_level"`
	BufferSize int    `toml:"buffer_size"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Listen:     "127.0.0.1:9000",
		Mode:       "repeat",
		Codec:      codecLines,
		LogLevel:   "info",
		BufferSize: 64,
	}
}

// loadConfig reads a TOML file over the defaults. Keys missing from the
// file keep their default value. An empty path returns the defaults.
func loadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, errors.Wrapf(err, "load udpecho config %s", path)
	}

	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}

	if meta.IsDefined("mode") {
		cfg.Mode = strings.TrimSpace(raw.Mode)
	}

	if meta.IsDefined("codec") {
		cfg.Codec = strings.ToLower(strings.TrimSpace(raw.Codec))
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if meta.IsDefined("buffer_size") {
		cfg.BufferSize = raw.BufferSize
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}

	return cfg, nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address is empty")
	}

	if _, err := framed.ParseDecodeMode(c.Mode); err != nil {
		return err
	}

	switch c.Codec {
	case codecLines, codecLength, codecRaw:
	default:
		return errors.Errorf("unknown codec %q (want lines, length or raw)", c.Codec)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log_level")
	}

	if c.BufferSize <= 0 {
		return errors.Errorf("buffer_size must be positive, got %d", c.BufferSize)
	}

	return nil
}

// DecodeMode returns the parsed mode. Call Validate first.
func (c Config) DecodeMode() framed.DecodeMode {
	mode, _ := framed.ParseDecodeMode(c.Mode)
	return mode
}
