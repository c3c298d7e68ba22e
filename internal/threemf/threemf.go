package threemf

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/philipparndt/gflabels/internal/models"
)

// Well-known entries of a 3MF package
const (
	ModelPath         = "3D/3dmodel.model"
	ModelSettingsPath = "Metadata/model_settings.config"
	PlatePath         = "Metadata/plate_1.config"
)

// Entry is one file of a 3MF archive held in memory
type Entry struct {
	Name string
	Data []byte
}

// Package is an opened 3MF archive. Label exports are small, so the whole
// archive is read into memory and the source file is closed immediately.
type Package struct {
	Path    string
	Entries []Entry
}

// Reader reads 3MF files
type Reader struct{}

// Open reads every file entry of a 3MF archive. Directory entries are skipped.
func (r *Reader) Open(filename string) (*Package, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, ioFailure(filename, "error opening ZIP", err)
	}
	defer zr.Close()

	pkg := &Package{Path: filename}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, ioFailure(filename, "error opening "+f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, ioFailure(filename, "error reading "+f.Name, err)
		}

		pkg.Entries = append(pkg.Entries, Entry{Name: f.Name, Data: data})
	}

	return pkg, nil
}

// Read reads and parses the model document of a 3MF file
func (r *Reader) Read(filename string) (*models.Model, error) {
	pkg, err := r.Open(filename)
	if err != nil {
		return nil, err
	}
	return pkg.Model()
}

// File returns the content of the named entry
func (p *Package) File(name string) ([]byte, bool) {
	for _, entry := range p.Entries {
		if entry.Name == name {
			return entry.Data, true
		}
	}
	return nil, false
}

// Model parses the package's 3D model document
func (p *Package) Model() (*models.Model, error) {
	data, ok := p.File(ModelPath)
	if !ok {
		return nil, malformed(p.Path, "%s not found in archive", ModelPath)
	}

	var model models.Model
	if err := xml.Unmarshal(data, &model); err != nil {
		return nil, malformed(p.Path, "error parsing XML: %v", err)
	}

	return &model, nil
}

// Settings parses the Bambu Studio model settings, if present
func (p *Package) Settings() (*models.ModelSettings, error) {
	data, ok := p.File(ModelSettingsPath)
	if !ok {
		return nil, nil
	}

	var settings models.ModelSettings
	if err := xml.Unmarshal(data, &settings); err != nil {
		return nil, malformed(p.Path, "error parsing %s: %v", ModelSettingsPath, err)
	}
	return &settings, nil
}

// Plate parses the first plate document, if present
func (p *Package) Plate() (*models.Plate, error) {
	data, ok := p.File(PlatePath)
	if !ok {
		return nil, nil
	}

	var plate models.Plate
	if err := xml.Unmarshal(data, &plate); err != nil {
		return nil, malformed(p.Path, "error parsing %s: %v", PlatePath, err)
	}
	return &plate, nil
}

// Writer writes 3MF files
type Writer struct{}

// Write stores the entries as a deflate-compressed archive at outputFile.
// The archive is written next to the target and renamed into place, so the
// target is either fully replaced or left untouched.
func (w *Writer) Write(outputFile string, entries []Entry) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(outputFile), "."+filepath.Base(outputFile)+".*.tmp")
	if err != nil {
		return ioFailure(outputFile, "error creating output file", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	outZip := zip.NewWriter(tmp)
	for _, entry := range entries {
		dst, err := outZip.CreateHeader(&zip.FileHeader{
			Name:   entry.Name,
			Method: zip.Deflate,
		})
		if err != nil {
			return ioFailure(outputFile, "error creating ZIP entry "+entry.Name, err)
		}
		if _, err := io.Copy(dst, bytes.NewReader(entry.Data)); err != nil {
			return ioFailure(outputFile, "error writing "+entry.Name, err)
		}
	}

	if err := outZip.Close(); err != nil {
		return ioFailure(outputFile, "error finishing ZIP", err)
	}
	if err := tmp.Close(); err != nil {
		return ioFailure(outputFile, "error closing output file", err)
	}
	if err := os.Rename(tmpName, outputFile); err != nil {
		return ioFailure(outputFile, "error moving output into place", err)
	}

	return nil
}

// marshalDocument renders an XML document with declaration and indentation
func marshalDocument(v any, indent string) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", indent)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(body)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
