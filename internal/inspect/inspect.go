package inspect

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/philipparndt/gflabels/internal/geometry"
	"github.com/philipparndt/gflabels/internal/models"
	"github.com/philipparndt/gflabels/internal/threemf"
	"github.com/philipparndt/gflabels/internal/ui"
)

// Report is everything inspect shows about a 3MF package
type Report struct {
	Path      string
	Size      int64
	Entries   []EntryInfo
	Unit      string
	Metadata  []models.Metadata
	Materials []models.Base
	Objects   []ObjectInfo
	Items     []ItemInfo
	Plate     []string
	Bounds    *geometry.BoundingBox

	model    *models.Model
	settings *models.ModelSettings
}

// EntryInfo is one file inside the archive
type EntryInfo struct {
	Name string
	Size int
}

// ObjectInfo describes one resource object
type ObjectInfo struct {
	ID       string
	Name     string
	Material string
	Filament string
	HasMesh  bool
	Bounds   *geometry.BoundingBox
}

// ItemInfo is one build plate item
type ItemInfo struct {
	ObjectID  string
	Name      string
	Printable bool
}

// Inspector provides functionality to inspect 3MF files
type Inspector struct {
	reader *threemf.Reader
}

// NewInspector creates a new Inspector
func NewInspector() *Inspector {
	return &Inspector{reader: &threemf.Reader{}}
}

// Analyze reads a package and collects the report without printing it
func (i *Inspector) Analyze(filename string) (*Report, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", filename)
	}

	pkg, err := i.reader.Open(filename)
	if err != nil {
		return nil, err
	}
	model, err := pkg.Model()
	if err != nil {
		return nil, err
	}
	settings, err := pkg.Settings()
	if err != nil {
		return nil, err
	}
	plate, err := pkg.Plate()
	if err != nil {
		return nil, err
	}

	report := &Report{
		Path:     filename,
		Size:     info.Size(),
		Metadata: model.Metadata,
		model:    model,
		settings: settings,
	}

	for _, entry := range pkg.Entries {
		report.Entries = append(report.Entries, EntryInfo{Name: entry.Name, Size: len(entry.Data)})
	}
	for _, attr := range model.Attrs {
		if attr.Name.Space == "" && attr.Name.Local == "unit" {
			report.Unit = attr.Value
		}
	}

	assignments := threemf.ExtruderAssignments(settings)
	if model.Resources != nil {
		if model.Resources.BaseMaterials != nil {
			report.Materials = model.Resources.BaseMaterials.Bases
		}
		for _, obj := range model.Resources.Objects {
			objInfo := ObjectInfo{
				ID:       obj.ID,
				Name:     obj.Name,
				Material: materialName(model.Resources.BaseMaterials, obj),
				HasMesh:  obj.Mesh != nil,
			}
			if slot, ok := assignments[obj.ID]; ok {
				objInfo.Filament = fmt.Sprint(slot)
			}
			if obj.Mesh != nil {
				if bbox, err := geometry.MeshBounds(obj.Mesh); err == nil {
					objInfo.Bounds = bbox
				}
			}
			report.Objects = append(report.Objects, objInfo)
		}
	}

	if model.Build != nil {
		for _, item := range model.Build.Items {
			report.Items = append(report.Items, ItemInfo{
				ObjectID:  item.ObjectID,
				Name:      objectName(model, item.ObjectID),
				Printable: item.Printable != "0",
			})
		}
		if bbox, err := geometry.BuildBounds(model); err == nil {
			report.Bounds = bbox
		}
	}

	if plate != nil {
		for _, instance := range plate.ModelInstances {
			report.Plate = append(report.Plate, instance.Meta("object_id"))
		}
	}

	return report, nil
}

// Inspect reads and displays the contents of a 3MF file
func (i *Inspector) Inspect(filename string) error {
	report, err := i.Analyze(filename)
	if err != nil {
		return fmt.Errorf("error reading 3MF file: %w", err)
	}

	NewModelPrinter().Print(report)
	return nil
}

// Highlight writes the model document of a package with syntax highlighting.
// Colors are only used when w is a terminal.
func (i *Inspector) Highlight(w io.Writer, filename string) error {
	pkg, err := i.reader.Open(filename)
	if err != nil {
		return err
	}
	data, ok := pkg.File(threemf.ModelPath)
	if !ok {
		return fmt.Errorf("%s not found in archive", threemf.ModelPath)
	}

	formatter := "noop"
	if ui.IsTerminal(w) {
		formatter = "terminal256"
	}
	return quick.Highlight(w, string(data), "xml", formatter, "monokai")
}

// objectName returns the name of an object by ID
func objectName(model *models.Model, objectID string) string {
	if model.Resources == nil {
		return "(not found)"
	}
	for _, obj := range model.Resources.Objects {
		if obj.ID == objectID {
			if obj.Name != "" {
				return obj.Name
			}
			return "(unnamed)"
		}
	}
	return "(not found)"
}

func materialName(materials *models.BaseMaterials, obj models.Object) string {
	if materials == nil || obj.PID != materials.ID {
		return ""
	}
	var index int
	if _, err := fmt.Sscan(obj.PIndex, &index); err != nil {
		return ""
	}
	if index < 0 || index >= len(materials.Bases) {
		return ""
	}
	return materials.Bases[index].Name
}
