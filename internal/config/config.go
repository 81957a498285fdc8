// Package config handles gpioctl paths and the optional YAML config file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/d2verb/gpioctl/internal/client"
	"github.com/d2verb/gpioctl/internal/dispatch"
	"github.com/d2verb/gpioctl/internal/protocol"
)

// Defaults for the daemon endpoint and client behavior. Everything but the
// host is owned by the package that applies it.
const (
	DefaultHost      = "localhost"
	DefaultPort      = protocol.DefaultPort
	DefaultTimeout   = client.DefaultTimeout
	DefaultStepDelay = dispatch.DefaultStepDelay
)

// Paths holds common paths used by gpioctl.
type Paths struct {
	Home    string
	Config  string
	Logs    string
	LogFile string
}

// GetPaths returns the paths for the current user.
func GetPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	gpioctlHome := filepath.Join(home, ".gpioctl")
	logsDir := filepath.Join(gpioctlHome, "logs")
	return &Paths{
		Home:    gpioctlHome,
		Config:  filepath.Join(gpioctlHome, "config.yaml"),
		Logs:    logsDir,
		LogFile: filepath.Join(logsDir, "gpioctl.log"),
	}, nil
}

// EnsureDirectories creates the required directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.Home, p.Logs} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// File is the on-disk configuration. Unset keys leave the built-in default
// (or the command-line flag) in effect.
type File struct {
	Host      *string        `yaml:"host"`
	Port      *int           `yaml:"port"`
	Timeout   *time.Duration `yaml:"timeout"`
	StepDelay *time.Duration `yaml:"step_delay"`
	LogFile   *string        `yaml:"log_file"`
}

// ParseError indicates a config file could not be decoded.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse config: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse decodes a YAML config. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil // empty file
		}
		return nil, &ParseError{Err: err}
	}
	if err := f.Validate(); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &f, nil
}

// Validate checks value ranges.
func (f *File) Validate() error {
	if f.Host != nil && *f.Host == "" {
		return errors.New("host must not be empty")
	}
	if f.Port != nil {
		if err := ValidatePort(*f.Port); err != nil {
			return err
		}
	}
	if f.Timeout != nil && *f.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", *f.Timeout)
	}
	if f.StepDelay != nil && *f.StepDelay < 0 {
		return fmt.Errorf("step_delay must not be negative, got %s", *f.StepDelay)
	}
	return nil
}

// ValidatePort checks that port is a usable TCP port.
func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// Lookup returns the configured value for a command-line flag name in its
// string form, or false if the file leaves it unset.
func (f *File) Lookup(flag string) (string, bool) {
	switch flag {
	case "host":
		if f.Host != nil {
			return *f.Host, true
		}
	case "port":
		if f.Port != nil {
			return strconv.Itoa(*f.Port), true
		}
	case "timeout":
		if f.Timeout != nil {
			return f.Timeout.String(), true
		}
	case "delay":
		if f.StepDelay != nil {
			return f.StepDelay.String(), true
		}
	case "log-file":
		if f.LogFile != nil {
			return *f.LogFile, true
		}
	}
	return "", false
}
