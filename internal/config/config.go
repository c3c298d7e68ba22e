package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/philipparndt/gflabels/internal/models"
	"github.com/philipparndt/gflabels/internal/renderer"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultScadFile is the label model rendered for every export
	DefaultScadFile = "labels.scad"
	// DefaultFontsDir is added to the OpenSCAD font path when it exists
	DefaultFontsDir = "fonts"
	// MaxFilamentSlot is the highest slot of four chained AMS units
	MaxFilamentSlot = 16
)

// Loader handles loading and validating label configuration files.
// JSON documents are read through the YAML decoder, so both formats work.
type Loader struct{}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses a configuration file
func (l *Loader) Load(configPath string) (*models.Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config models.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := l.Validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := requireTextKeys(data, config.Labels); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Relative paths are relative to the config file
	absConfigDir, err := filepath.Abs(filepath.Dir(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path of config directory: %w", err)
	}
	l.applyDefaults(&config.Settings)
	config.Settings.OutputDir = resolvePath(absConfigDir, config.Settings.OutputDir)
	config.Settings.ScadFile = resolvePath(absConfigDir, config.Settings.ScadFile)
	config.Settings.FontsDir = resolvePath(absConfigDir, config.Settings.FontsDir)

	return &config, nil
}

// Validate checks if the configuration is valid
func (l *Loader) Validate(config *models.Config) error {
	settings := config.Settings
	if settings.OpenSCADPath == "" {
		return fmt.Errorf("settings.openscad_path must be specified")
	}
	if settings.OutputDir == "" {
		return fmt.Errorf("settings.output_dir must be specified")
	}
	if err := ValidateFilaments(settings.Filaments); err != nil {
		return err
	}
	if settings.TimeoutSeconds < 0 {
		return fmt.Errorf("settings.timeout_seconds must not be negative")
	}

	if len(config.Labels) == 0 {
		return fmt.Errorf("at least one label must be defined")
	}

	seen := make(map[string]int, len(config.Labels))
	for i, label := range config.Labels {
		if label.Name == "" {
			return fmt.Errorf("label %d: name is required", i+1)
		}
		if prev, ok := seen[label.Name]; ok {
			return fmt.Errorf("label %s: duplicate name (also label %d)", label.Name, prev+1)
		}
		seen[label.Name] = i
	}

	return nil
}

// Timeout returns the per-export timeout configured in settings
func Timeout(settings models.Settings) time.Duration {
	if settings.TimeoutSeconds <= 0 {
		return renderer.DefaultTimeout
	}
	return time.Duration(settings.TimeoutSeconds) * time.Second
}

func (l *Loader) applyDefaults(settings *models.Settings) {
	if settings.ScadFile == "" {
		settings.ScadFile = DefaultScadFile
	}
	if settings.FontsDir == "" {
		settings.FontsDir = DefaultFontsDir
	}
}

// ValidateFilaments checks both AMS slots are in range
func ValidateFilaments(filaments models.Filaments) error {
	if err := validateSlot("base", filaments.Base); err != nil {
		return err
	}
	return validateSlot("text", filaments.Text)
}

// Select picks the labels of a run: the named label, only the first one in
// test mode, or all of them
func Select(labels []models.LabelSpec, name string, firstOnly bool) ([]models.LabelSpec, error) {
	switch {
	case name != "":
		for _, label := range labels {
			if label.Name == name {
				return []models.LabelSpec{label}, nil
			}
		}
		return nil, fmt.Errorf("label '%s' not found in config", name)
	case firstOnly:
		if len(labels) == 0 {
			return nil, fmt.Errorf("no labels defined in config")
		}
		return labels[:1], nil
	}
	return labels, nil
}

// requireTextKeys checks every label carries a text key. The value may be
// empty for icon-only labels.
func requireTextKeys(data []byte, labels []models.LabelSpec) error {
	var raw struct {
		Labels []map[string]any `yaml:"labels"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	for i, keys := range raw.Labels {
		if _, ok := keys["text"]; !ok {
			return fmt.Errorf("label %s: text is required (use \"\" for an icon-only label)", labels[i].Name)
		}
	}
	return nil
}

func validateSlot(name string, slot int) error {
	if slot < 1 || slot > MaxFilamentSlot {
		return fmt.Errorf("settings.filaments.%s must be 1-%d, got %d", name, MaxFilamentSlot, slot)
	}
	return nil
}

func resolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
