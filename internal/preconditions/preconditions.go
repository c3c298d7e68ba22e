package preconditions

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/philipparndt/gflabels/internal/models"
)

// Check verifies everything a generation run needs before any job starts
func Check(settings models.Settings) error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"OpenSCAD", func() error { return CheckExporter(settings.OpenSCADPath) }},
		{"Label library", func() error { return ValidateScadFile(settings.ScadFile) }},
	}

	for _, check := range checks {
		if err := check.fn(); err != nil {
			return fmt.Errorf("%s: %w", check.name, err)
		}
	}

	return nil
}

// CheckExporter verifies the OpenSCAD binary exists. Bare command names are
// looked up in PATH.
func CheckExporter(path string) error {
	if !strings.ContainsRune(path, filepath.Separator) && !strings.ContainsRune(path, '/') {
		if _, err := exec.LookPath(path); err != nil {
			return fmt.Errorf("%s not found in PATH. Please install OpenSCAD from https://openscad.org/", path)
		}
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("not found at %s", path)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not an executable", path)
	}
	return nil
}

// ValidateScadFile checks that the label library exists and is readable
func ValidateScadFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access file %s: %w", path, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	if filepath.Ext(path) != ".scad" {
		return fmt.Errorf("%s is not a SCAD file (must end in .scad)", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot read file %s: %w", path, err)
	}
	file.Close()

	return nil
}

// PrepareOutputDir creates dir if needed and checks that it is writable
func PrepareOutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".gflabels-*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	return nil
}
