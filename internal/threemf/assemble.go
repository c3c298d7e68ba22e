package threemf

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/philipparndt/gflabels/internal/models"
)

// Values written into the model header so Bambu Studio opens the package
// without the "file from another application" import dialog
const (
	ToolApplication        = "BambuStudio"
	ToolApplicationVersion = "01.09.00.00"
)

// Fixed layout of an assembled label. Sidecar documents refer to the object
// ids directly, so they never change.
const (
	MaterialGroupID = "1"
	BaseObjectID    = "2"
	TextObjectID    = "3"

	BaseName = "Base"
	TextName = "Text"

	// Fallback colors, used only when the slicer ignores filament colors
	BaseColor = "#C0C0C0FF"
	TextColor = "#333333FF"
)

var uuidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/philipparndt/gflabels"))

// part is one object of an assembled label
type part struct {
	id       string
	name     string
	color    string
	filament int
	mesh     *models.Mesh
}

// Assembler merges a base export and a text export into one multi-material package
type Assembler struct {
	reader *Reader
	writer *Writer
}

// NewAssembler creates a new Assembler
func NewAssembler() *Assembler {
	return &Assembler{
		reader: &Reader{},
		writer: &Writer{},
	}
}

// Assemble combines the label body from basePath and the text/icon from
// textPath into outputFile. The base archive provides the header and all
// auxiliary files; the text archive contributes its mesh only. Filament slots
// end up as per-object extruder assignments in the Bambu sidecar files.
func (a *Assembler) Assemble(basePath, textPath, outputFile string, filaments models.Filaments) error {
	basePkg, err := a.reader.Open(basePath)
	if err != nil {
		return err
	}
	baseModel, err := basePkg.Model()
	if err != nil {
		return err
	}
	if baseModel.Resources == nil {
		return malformed(basePath, "no <resources> section")
	}
	if baseModel.Build == nil {
		return malformed(basePath, "no <build> section")
	}
	baseMesh, err := findMesh(basePath, baseModel)
	if err != nil {
		return err
	}

	textModel, err := a.reader.Read(textPath)
	if err != nil {
		return err
	}
	textMesh, err := findMesh(textPath, textModel)
	if err != nil {
		return err
	}

	parts := []part{
		{id: BaseObjectID, name: BaseName, color: BaseColor, filament: filaments.Base, mesh: baseMesh},
		{id: TextObjectID, name: TextName, color: TextColor, filament: filaments.Text, mesh: textMesh},
	}

	modelXML, err := marshalDocument(assembleModel(baseModel, parts), "\t")
	if err != nil {
		return &ContainerError{Container: basePath, Err: fmt.Errorf("error marshaling XML: %w", err)}
	}
	settingsXML, err := marshalDocument(modelSettings(parts), "  ")
	if err != nil {
		return &ContainerError{Container: outputFile, Err: fmt.Errorf("error marshaling settings XML: %w", err)}
	}
	plateXML, err := marshalDocument(plateSettings(parts), "  ")
	if err != nil {
		return &ContainerError{Container: outputFile, Err: fmt.Errorf("error marshaling plate XML: %w", err)}
	}

	entries := repackage(basePkg.Entries, map[string][]byte{
		ModelPath:         modelXML,
		ModelSettingsPath: settingsXML,
		PlatePath:         plateXML,
	})

	return a.writer.Write(outputFile, entries)
}

// findMesh returns the mesh of the first mesh-bearing object
func findMesh(container string, model *models.Model) (*models.Mesh, error) {
	if model.Resources == nil {
		return nil, malformed(container, "no <resources> section")
	}
	for _, obj := range model.Resources.Objects {
		if obj.Mesh != nil {
			return obj.Mesh, nil
		}
	}
	return nil, malformed(container, "no <object> with a <mesh> found")
}

// assembleModel builds the output document from scratch. Only the root
// attributes, the metadata and the attributes of <build> are taken from the
// base document; resources and build items are generated from parts.
func assembleModel(base *models.Model, parts []part) *models.Model {
	scope := newNamespaceScope(base.Attrs)

	model := &models.Model{
		Attrs:    rootAttrs(base.Attrs),
		Metadata: withToolMetadata(base.Metadata),
		Resources: &models.Resources{
			BaseMaterials: &models.BaseMaterials{ID: MaterialGroupID},
		},
		Build: &models.Build{
			Attrs: elementAttrs(base.Build.Attrs, scope),
		},
	}

	for i, p := range parts {
		objectUUID := uuid.NewSHA1(uuidNamespace, []byte("object/"+p.id+"/"+p.mesh.RawContent))

		model.Resources.BaseMaterials.Bases = append(model.Resources.BaseMaterials.Bases, models.Base{
			Name:         p.name,
			DisplayColor: p.color,
		})
		model.Resources.Objects = append(model.Resources.Objects, models.Object{
			ID:     p.id,
			Name:   p.name,
			Type:   "model",
			UUID:   objectUUID.String(),
			PID:    MaterialGroupID,
			PIndex: strconv.Itoa(i),
			Mesh:   &models.Mesh{RawContent: p.mesh.RawContent},
		})
		model.Build.Items = append(model.Build.Items, models.Item{
			ObjectID: p.id,
			UUID:     uuid.NewSHA1(objectUUID, []byte("item")).String(),
		})
	}

	if requiresExtension(model.Attrs, "p") && !hasAttr(model.Build.Attrs, "p:UUID") {
		model.Build.Attrs = append(model.Build.Attrs, xml.Attr{
			Name:  xml.Name{Local: "p:UUID"},
			Value: uuid.NewSHA1(uuidNamespace, []byte("build/"+parts[0].mesh.RawContent)).String(),
		})
	}

	return model
}

// withToolMetadata sets the application metadata, prepending entries the
// source document does not have
func withToolMetadata(metadata []models.Metadata) []models.Metadata {
	out := append([]models.Metadata(nil), metadata...)

	var missing []models.Metadata
	for _, tool := range []models.Metadata{
		{Name: "Application", Value: ToolApplication},
		{Name: "ApplicationVersion", Value: ToolApplicationVersion},
	} {
		found := false
		for i := range out {
			if out[i].Name == tool.Name {
				out[i].Value = tool.Value
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, tool)
		}
	}

	return append(missing, out...)
}

// repackage replaces entries by name and appends replacements that did not exist
func repackage(entries []Entry, replacements map[string][]byte) []Entry {
	pending := make(map[string][]byte, len(replacements))
	for name, data := range replacements {
		pending[name] = data
	}

	out := make([]Entry, 0, len(entries)+len(replacements))
	for _, entry := range entries {
		if data, ok := pending[entry.Name]; ok {
			out = append(out, Entry{Name: entry.Name, Data: data})
			delete(pending, entry.Name)
			continue
		}
		out = append(out, entry)
	}

	for _, name := range []string{ModelPath, ModelSettingsPath, PlatePath} {
		if data, ok := pending[name]; ok {
			out = append(out, Entry{Name: name, Data: data})
		}
	}

	return out
}

func hasAttr(attrs []xml.Attr, local string) bool {
	for _, attr := range attrs {
		if attr.Name.Space == "" && attr.Name.Local == local {
			return true
		}
	}
	return false
}
