package threemf

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/philipparndt/gflabels/internal/models"
)

// ErrInvalidAssembly is returned by Verify when a package does not have the
// two-object label layout
var ErrInvalidAssembly = errors.New("invalid assembly")

var (
	assembledIDs       = []string{BaseObjectID, TextObjectID}
	assembledMaterials = []string{BaseName, TextName}
)

// Verify re-reads an assembled package and checks that materials, objects,
// build items, extruder assignments and plate instances all describe exactly
// the Base and Text objects.
func Verify(filename string) error {
	pkg, err := (&Reader{}).Open(filename)
	if err != nil {
		return err
	}
	model, err := pkg.Model()
	if err != nil {
		return err
	}
	settings, err := pkg.Settings()
	if err != nil {
		return err
	}
	plate, err := pkg.Plate()
	if err != nil {
		return err
	}

	problems := verifyModel(model)
	problems = append(problems, verifySidecars(settings, plate)...)
	if len(problems) > 0 {
		return &ContainerError{
			Container: filename,
			Err:       fmt.Errorf("%w: %w", ErrInvalidAssembly, errors.Join(problems...)),
		}
	}
	return nil
}

func verifyModel(model *models.Model) []error {
	var problems []error

	if model.Resources == nil {
		return []error{errors.New("no <resources> section")}
	}

	materials := model.Resources.BaseMaterials
	var materialNames []string
	if materials == nil {
		problems = append(problems, errors.New("no <basematerials> group"))
	} else {
		for _, base := range materials.Bases {
			materialNames = append(materialNames, base.Name)
		}
		if !slices.Equal(materialNames, assembledMaterials) {
			problems = append(problems, fmt.Errorf("materials are %v, want %v", materialNames, assembledMaterials))
		}
	}

	var objectIDs []string
	for _, obj := range model.Resources.Objects {
		objectIDs = append(objectIDs, obj.ID)
		if obj.Mesh == nil {
			problems = append(problems, fmt.Errorf("object %s has no mesh", obj.ID))
		}
		if materials == nil || obj.PID != materials.ID {
			problems = append(problems, fmt.Errorf("object %s references material group %q", obj.ID, obj.PID))
			continue
		}
		index, err := strconv.Atoi(obj.PIndex)
		if err != nil || index < 0 || index >= len(materials.Bases) {
			problems = append(problems, fmt.Errorf("object %s references missing material index %q", obj.ID, obj.PIndex))
		}
	}
	if !slices.Equal(objectIDs, assembledIDs) {
		problems = append(problems, fmt.Errorf("objects are %v, want %v", objectIDs, assembledIDs))
	}

	if model.Build == nil {
		return append(problems, errors.New("no <build> section"))
	}
	var itemIDs []string
	for _, item := range model.Build.Items {
		itemIDs = append(itemIDs, item.ObjectID)
	}
	if !slices.Equal(itemIDs, objectIDs) {
		problems = append(problems, fmt.Errorf("build items %v do not match objects %v", itemIDs, objectIDs))
	}

	return problems
}

func verifySidecars(settings *models.ModelSettings, plate *models.Plate) []error {
	var problems []error

	if settings == nil {
		problems = append(problems, fmt.Errorf("%s missing", ModelSettingsPath))
	} else {
		assignments := ExtruderAssignments(settings)
		var ids []string
		for _, obj := range settings.Objects {
			ids = append(ids, obj.ID)
			if slot, ok := assignments[obj.ID]; !ok || slot < 1 {
				problems = append(problems, fmt.Errorf("object %s has no extruder assignment", obj.ID))
			}
		}
		if !slices.Equal(ids, assembledIDs) {
			problems = append(problems, fmt.Errorf("extruder assignments cover %v, want %v", ids, assembledIDs))
		}
	}

	if plate == nil {
		problems = append(problems, fmt.Errorf("%s missing", PlatePath))
	} else {
		var ids []string
		for _, instance := range plate.ModelInstances {
			ids = append(ids, instance.Meta("object_id"))
		}
		if !slices.Equal(ids, assembledIDs) {
			problems = append(problems, fmt.Errorf("plate instances %v, want %v", ids, assembledIDs))
		}
	}

	return problems
}
