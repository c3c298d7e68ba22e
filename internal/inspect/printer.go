package inspect

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/philipparndt/gflabels/internal/geometry"
	"github.com/philipparndt/gflabels/internal/models"
	"github.com/philipparndt/gflabels/internal/ui"
)

// ModelPrinter handles printing model hierarchy and details
type ModelPrinter struct{}

// NewModelPrinter creates a new ModelPrinter
func NewModelPrinter() *ModelPrinter {
	return &ModelPrinter{}
}

// Print writes the full report to the terminal
func (p *ModelPrinter) Print(report *Report) {
	ui.PrintHeader(fmt.Sprintf("Inspecting: %s", report.Path))
	ui.PrintKeyValue("Size", humanize.Bytes(uint64(report.Size)))
	if report.Unit != "" {
		ui.PrintKeyValue("Unit", report.Unit)
	}
	if report.Bounds != nil {
		ui.PrintKeyValue("Dimensions", report.Bounds.String())
	}

	if len(report.Metadata) > 0 {
		ui.PrintHeader("Metadata:")
		for _, meta := range report.Metadata {
			ui.PrintItem(fmt.Sprintf("%s: %s", meta.Name, meta.Value))
		}
	}

	ui.PrintHeader("Archive Entries:")
	for _, entry := range report.Entries {
		ui.PrintItem(fmt.Sprintf("%s (%s)", entry.Name, humanize.Bytes(uint64(entry.Size))))
	}

	if len(report.Materials) > 0 {
		ui.PrintHeader("Materials:")
		for idx, base := range report.Materials {
			ui.PrintItem(fmt.Sprintf("%d. %s %s", idx, base.Name, base.DisplayColor))
		}
	}

	ui.PrintHeader("Build Plate Items:")
	if len(report.Items) == 0 {
		ui.PrintStep("No items on build plate")
	} else {
		for idx, item := range report.Items {
			printable := "yes"
			if !item.Printable {
				printable = "no"
			}
			ui.PrintStep(fmt.Sprintf("%d. Object ID %s: %s (printable: %s)", idx+1, item.ObjectID, item.Name, printable))
		}
	}

	ui.PrintHeader("Objects in Model:")
	p.PrintObjectHierarchy(report)

	if len(report.Plate) > 0 {
		ui.PrintHeader("Plate 1:")
		ui.PrintStep(fmt.Sprintf("Instances: %s", strings.Join(report.Plate, ", ")))
	}
}

// PrintObjectHierarchy prints the object hierarchy with components and filaments
func (p *ModelPrinter) PrintObjectHierarchy(report *Report) {
	if report.model == nil || report.model.Resources == nil {
		ui.PrintStep("No objects found")
		return
	}
	model := report.model

	infos := make(map[string]ObjectInfo)
	for _, info := range report.Objects {
		infos[info.ID] = info
	}

	partsMap := make(map[string]*models.Part)
	if report.settings != nil {
		for idx := range report.settings.Objects {
			obj := &report.settings.Objects[idx]
			for pidx := range obj.Parts {
				part := &obj.Parts[pidx]
				partsMap[part.ID] = part
			}
		}
	}

	// Track which objects are components (not top-level)
	componentIDs := make(map[string]bool)
	for _, obj := range model.Resources.Objects {
		if obj.Components != nil {
			for _, comp := range obj.Components.Component {
				componentIDs[comp.ObjectID] = true
			}
		}
	}

	objectCount := 0
	for _, obj := range model.Resources.Objects {
		// Skip objects that are only used as components
		if obj.Components == nil && componentIDs[obj.ID] {
			continue
		}

		objectCount++
		p.printObject(model, &obj, infos[obj.ID], partsMap)
	}

	if objectCount == 0 {
		ui.PrintStep("No objects found")
	}
}

func (p *ModelPrinter) printObject(model *models.Model, obj *models.Object, info ObjectInfo, partsMap map[string]*models.Part) {
	name := obj.Name
	if name == "" {
		name = "(unnamed)"
	}

	var details []string
	if info.Material != "" {
		details = append(details, "material: "+info.Material)
	}
	if info.Filament != "" {
		details = append(details, "filament: "+info.Filament)
	}
	if info.Bounds != nil {
		details = append(details, info.Bounds.String())
	}
	detailInfo := ""
	if len(details) > 0 {
		detailInfo = " (" + strings.Join(details, ", ") + ")"
	}

	if obj.Components != nil && len(obj.Components.Component) > 0 {
		ui.PrintStep(fmt.Sprintf("• %s (ID: %s) - %d part(s)%s", name, obj.ID, len(obj.Components.Component), detailInfo))

		for _, comp := range obj.Components.Component {
			for _, compObj := range model.Resources.Objects {
				if compObj.ID == comp.ObjectID {
					p.printComponent(&compObj, comp, partsMap)
					break
				}
			}
		}
		return
	}

	meshInfo := ""
	if info.HasMesh {
		meshInfo = " [has mesh]"
	}
	ui.PrintStep(fmt.Sprintf("• %s (ID: %s)%s%s", name, obj.ID, detailInfo, meshInfo))
}

// printComponent prints a component with its filament information
func (p *ModelPrinter) printComponent(obj *models.Object, comp models.Component, partsMap map[string]*models.Part) {
	name := obj.Name
	if name == "" {
		name = "(unnamed)"
	}

	filamentInfo := ""
	if part, ok := partsMap[obj.ID]; ok {
		if value := metaValue(part.Metadata, "name"); value != "" {
			name = value
		}
		if value := metaValue(part.Metadata, "extruder"); value != "" {
			filamentInfo = fmt.Sprintf(" (filament: %s)", value)
		}
	}

	offsetInfo := ""
	if x, y, z, ok := geometry.Translation(comp.Transform); ok && (x != 0 || y != 0 || z != 0) {
		offsetInfo = fmt.Sprintf(" [offset: %.2f, %.2f, %.2f]", x, y, z)
	}

	ui.PrintStep(fmt.Sprintf("  - %s (ID: %s)%s%s", name, obj.ID, filamentInfo, offsetInfo))
}

func metaValue(metadata []models.SettingsMetadata, key string) string {
	for _, meta := range metadata {
		if meta.Key == key {
			return meta.Value
		}
	}
	return ""
}
