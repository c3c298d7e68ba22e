package threemf

import (
	"strconv"

	"github.com/philipparndt/gflabels/internal/models"
)

// modelSettings builds the Bambu Studio model_settings.config document with
// one extruder assignment per object
func modelSettings(parts []part) models.ModelSettings {
	var settings models.ModelSettings
	for _, p := range parts {
		settings.Objects = append(settings.Objects, models.SettingsObject{
			ID: p.id,
			Metadata: []models.SettingsMetadata{
				{Key: "name", Value: p.name},
				{Key: "extruder", Value: strconv.Itoa(p.filament)},
			},
		})
	}
	return settings
}

// plateSettings builds plate_1.config placing one instance of every object
// on the first build plate
func plateSettings(parts []part) models.Plate {
	plate := models.Plate{
		Metadata: []models.SettingsMetadata{
			{Key: "plater_id", Value: "1"},
			{Key: "locked", Value: "false"},
		},
	}
	for _, p := range parts {
		plate.ModelInstances = append(plate.ModelInstances, models.ModelInstance{
			Metadata: []models.SettingsMetadata{
				{Key: "object_id", Value: p.id},
				{Key: "instance_id", Value: "0"},
			},
		})
	}
	return plate
}

// ExtruderAssignments maps object ids to the extruder slots found in the
// model settings. Objects without a numeric extruder entry are left out.
func ExtruderAssignments(settings *models.ModelSettings) map[string]int {
	assignments := make(map[string]int)
	if settings == nil {
		return assignments
	}
	for _, obj := range settings.Objects {
		slot, err := strconv.Atoi(obj.Meta("extruder"))
		if err != nil {
			continue
		}
		assignments[obj.ID] = slot
	}
	return assignments
}
