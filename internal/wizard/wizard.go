package wizard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/philipparndt/gflabels/internal/config"
	"github.com/philipparndt/gflabels/internal/models"
	"gopkg.in/yaml.v3"
)

// Choices offered by the label library
var (
	FastenerHeads   = []string{"pan", "countersunk", "button", "hex"}
	FastenerShafts  = []string{"machine", "wood", "self-tapping"}
	FastenerThreads = []string{"full", "partial"}
	FastenerDrivers = []string{"phillips", "hex", "slot", "torx"}
	HardwareTypes   = []string{"none", "nut"}
	Orientations    = []string{"landscape", "portrait"}
)

const (
	defaultConfigName = "my_labels"
	defaultFont       = "Open Sans"
	defaultFontStyle  = "ExtraBold"
	defaultFontSize   = 4.5

	keepDefault = "(keep default)"
)

// DefaultOpenSCADPath is the suggested exporter location for this platform
func DefaultOpenSCADPath() string {
	if runtime.GOOS == "darwin" {
		return "/Applications/OpenSCAD.app/Contents/MacOS/OpenSCAD"
	}
	return "openscad"
}

// Wizard interactively builds a label configuration
type Wizard struct {
	prompter Prompter
	stat     func(name string) (os.FileInfo, error)
}

// New creates a wizard asking through prompter
func New(prompter Prompter) *Wizard {
	return &Wizard{prompter: prompter, stat: os.Stat}
}

// Result is a finished wizard run
type Result struct {
	Path   string
	Config *models.Config
}

// Run asks for settings, defaults and labels. When output is empty the
// config name is asked for; the file extension picks JSON or YAML.
// It returns ErrAborted when the user declines to overwrite an existing file.
func (w *Wizard) Run(ctx context.Context, output string) (*Result, error) {
	if output == "" {
		name, err := w.prompter.Input(ctx, InputConfig{
			Message: "Config name (without .json)",
			Default: defaultConfigName,
		})
		if err != nil {
			return nil, err
		}
		output = name
	}
	path := ConfigPath(output)
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	if _, err := w.stat(path); err == nil {
		overwrite, err := w.prompter.Confirm(ctx, ConfirmConfig{
			Message: fmt.Sprintf("%s already exists. Overwrite?", path),
			Default: false,
		})
		if err != nil {
			return nil, err
		}
		if !overwrite {
			return nil, ErrAborted
		}
	}

	settings, err := w.askSettings(ctx, name)
	if err != nil {
		return nil, err
	}
	defaults, err := w.askDefaults(ctx)
	if err != nil {
		return nil, err
	}
	labels, err := w.askLabels(ctx)
	if err != nil {
		return nil, err
	}

	return &Result{
		Path: path,
		Config: &models.Config{
			Settings: settings,
			Defaults: defaults,
			Labels:   labels,
		},
	}, nil
}

func (w *Wizard) askSettings(ctx context.Context, name string) (models.Settings, error) {
	var settings models.Settings
	var err error

	if settings.OpenSCADPath, err = w.prompter.Input(ctx, InputConfig{
		Message: "OpenSCAD path",
		Default: DefaultOpenSCADPath(),
	}); err != nil {
		return settings, err
	}
	if settings.OutputDir, err = w.prompter.Input(ctx, InputConfig{
		Message: "Output directory",
		Default: "exports/" + name,
	}); err != nil {
		return settings, err
	}
	if settings.Filaments.Base, err = w.askSlot(ctx, "Filament slot for label body", 1); err != nil {
		return settings, err
	}
	if settings.Filaments.Text, err = w.askSlot(ctx, "Filament slot for text/icon", 2); err != nil {
		return settings, err
	}

	return settings, nil
}

func (w *Wizard) askDefaults(ctx context.Context) (models.DefaultParameters, error) {
	if err := w.prompter.Info(ctx, "Label defaults (apply to all labels unless overridden per label)"); err != nil {
		return models.DefaultParameters{}, err
	}

	scale := 1.0
	defaults := models.DefaultParameters{
		FastenerScale: &scale,
		Font:          defaultFont,
		FontStyle:     defaultFontStyle,
	}

	choices := []struct {
		target  *string
		message string
		options []string
	}{
		{&defaults.FastenerHead, "Fastener head type", FastenerHeads},
		{&defaults.FastenerShaft, "Shaft type", FastenerShafts},
		{&defaults.FastenerThreads, "Thread coverage", FastenerThreads},
		{&defaults.FastenerDriver, "Driver type", FastenerDrivers},
		{&defaults.FastenerOrientation, "Icon orientation", Orientations},
	}
	for _, choice := range choices {
		value, err := w.prompter.Select(ctx, SelectConfig{
			Message: choice.message,
			Options: choice.options,
			Default: choice.options[0],
		})
		if err != nil {
			return defaults, err
		}
		*choice.target = value
	}

	raw, err := w.prompter.Input(ctx, InputConfig{
		Message:   "Font size (mm)",
		Default:   strconv.FormatFloat(defaultFontSize, 'f', -1, 64),
		Validator: validateFloat,
	})
	if err != nil {
		return defaults, err
	}
	if defaults.FontSize, err = strconv.ParseFloat(strings.TrimSpace(raw), 64); err != nil {
		return defaults, err
	}

	return defaults, nil
}

func (w *Wizard) askLabels(ctx context.Context) ([]models.LabelSpec, error) {
	if err := w.prompter.Info(ctx, "Enter labels one at a time. Leave the name blank to finish.\n"+
		"  Name: used for the output filename (e.g. M3x10)\n"+
		"  Text: printed on the label (e.g. M3×10, use × not x)"); err != nil {
		return nil, err
	}

	var labels []models.LabelSpec
	seen := make(map[string]bool)
	for {
		name, err := w.prompter.Input(ctx, InputConfig{Message: "Label name (or blank to finish)"})
		if err != nil {
			return nil, err
		}
		name = strings.TrimSpace(name)

		if name == "" {
			if len(labels) == 0 {
				if err := w.prompter.Info(ctx, "At least one label is required."); err != nil {
					return nil, err
				}
				continue
			}
			return labels, nil
		}
		if seen[name] {
			if err := w.prompter.Info(ctx, fmt.Sprintf("Label %s already exists.", name)); err != nil {
				return nil, err
			}
			continue
		}

		text, err := w.prompter.Input(ctx, InputConfig{
			Message: "Display text for " + name,
			Default: SuggestText(name),
		})
		if err != nil {
			return nil, err
		}

		label := models.LabelSpec{Name: name, Text: text}

		override, err := w.prompter.Confirm(ctx, ConfirmConfig{
			Message: fmt.Sprintf("Override any defaults for %s?", name),
			Default: false,
		})
		if err != nil {
			return nil, err
		}
		if override {
			if label.Overrides, err = w.askOverrides(ctx); err != nil {
				return nil, err
			}
		}

		labels = append(labels, label)
		seen[name] = true
		if err := w.prompter.Info(ctx, "Added "+name); err != nil {
			return nil, err
		}
	}
}

func (w *Wizard) askOverrides(ctx context.Context) (models.Overrides, error) {
	var overrides models.Overrides
	var err error

	if overrides.FastenerHead, err = w.askOptionalChoice(ctx, "Fastener head override", FastenerHeads); err != nil {
		return overrides, err
	}
	if overrides.FastenerDriver, err = w.askOptionalChoice(ctx, "Driver type override", FastenerDrivers); err != nil {
		return overrides, err
	}
	if overrides.FastenerScale, err = w.askOptionalFloat(ctx, "Fastener scale 0.1-1.0 (blank to skip)"); err != nil {
		return overrides, err
	}
	if overrides.FastenerOrientation, err = w.askOptionalChoice(ctx, "Orientation override", Orientations); err != nil {
		return overrides, err
	}

	show, err := w.prompter.Select(ctx, SelectConfig{
		Message: "Fastener icon",
		Options: []string{keepDefault, "show", "hide"},
		Default: keepDefault,
	})
	if err != nil {
		return overrides, err
	}
	if show == "hide" {
		hidden := false
		overrides.ShowFastener = &hidden
		if overrides.Hardware, err = w.askOptionalChoice(ctx, "Hardware type", HardwareTypes); err != nil {
			return overrides, err
		}
	}

	if overrides.FontSize, err = w.askOptionalFloat(ctx, "Font size in mm (blank to skip)"); err != nil {
		return overrides, err
	}

	return overrides, nil
}

func (w *Wizard) askSlot(ctx context.Context, message string, def int) (int, error) {
	raw, err := w.prompter.Input(ctx, InputConfig{
		Message:   message,
		Default:   strconv.Itoa(def),
		Validator: validateSlot,
	})
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(raw))
}

func (w *Wizard) askOptionalChoice(ctx context.Context, message string, options []string) (*string, error) {
	value, err := w.prompter.Select(ctx, SelectConfig{
		Message: message,
		Options: append([]string{keepDefault}, options...),
		Default: keepDefault,
	})
	if err != nil || value == keepDefault {
		return nil, err
	}
	return &value, nil
}

func (w *Wizard) askOptionalFloat(ctx context.Context, message string) (*float64, error) {
	raw, err := w.prompter.Input(ctx, InputConfig{
		Message: message,
		Validator: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return nil
			}
			return validateFloat(s)
		},
	})
	if err != nil {
		return nil, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func validateFloat(s string) error {
	if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
		return errors.New("enter a number (e.g. 4.5)")
	}
	return nil
}

func validateSlot(s string) error {
	slot, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return errors.New("enter a whole number (e.g. 1)")
	}
	if slot < 1 || slot > config.MaxFilamentSlot {
		return fmt.Errorf("slot must be between 1 and %d", config.MaxFilamentSlot)
	}
	return nil
}

// SuggestText proposes the printed text for a label name: an "x" between
// dimensions becomes a multiplication sign
func SuggestText(name string) string {
	return strings.ReplaceAll(name, "x", "×")
}

// ConfigPath adds the .json extension unless the name already carries a
// supported one
func ConfigPath(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return name
	}
	return name + ".json"
}

// Save writes the configuration, as YAML for .yaml/.yml files and as JSON
// otherwise. Non-ASCII text such as "×" is written unescaped.
func Save(path string, cfg *models.Config) error {
	var data []byte
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		data = buf.Bytes()
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		data = buf.Bytes()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
