package config

import "github.com/philipparndt/gflabels/internal/models"

// Fallbacks for defaults that older config files may not carry
const (
	DefaultOrientation = "landscape"
	DefaultHardware    = "none"
	DefaultScale       = 1.0
)

// Resolve overlays the label's overrides onto the shared defaults.
//
// text2 resolves label -> defaults -> empty. Every other field takes the
// label override when present, the default otherwise, and the fallback
// constants above when the default is missing as well. Override values are
// passed through unchecked.
func Resolve(defaults models.DefaultParameters, label models.LabelSpec) models.EffectiveParameters {
	params := models.EffectiveParameters{
		Text:                label.Text,
		Text2:               defaults.Text2,
		FastenerHead:        defaults.FastenerHead,
		FastenerShaft:       defaults.FastenerShaft,
		FastenerThreads:     defaults.FastenerThreads,
		FastenerDriver:      defaults.FastenerDriver,
		FastenerOrientation: stringOr(defaults.FastenerOrientation, DefaultOrientation),
		FastenerScale:       floatOr(defaults.FastenerScale, DefaultScale),
		ShowFastener:        boolOr(defaults.ShowFastener, true),
		Hardware:            stringOr(defaults.Hardware, DefaultHardware),
		HardwareScale:       floatOr(defaults.HardwareScale, DefaultScale),
		Font:                defaults.Font,
		FontStyle:           defaults.FontStyle,
		FontSize:            defaults.FontSize,
	}

	if label.Text2 != nil {
		params.Text2 = *label.Text2
	}

	o := label.Overrides
	override(&params.FastenerHead, o.FastenerHead)
	override(&params.FastenerShaft, o.FastenerShaft)
	override(&params.FastenerThreads, o.FastenerThreads)
	override(&params.FastenerDriver, o.FastenerDriver)
	override(&params.FastenerOrientation, o.FastenerOrientation)
	override(&params.FastenerScale, o.FastenerScale)
	override(&params.FontSize, o.FontSize)
	override(&params.ShowFastener, o.ShowFastener)
	override(&params.Hardware, o.Hardware)
	override(&params.HardwareScale, o.HardwareScale)

	return params
}

func override[T any](dst *T, value *T) {
	if value != nil {
		*dst = *value
	}
}

func stringOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func floatOr(value *float64, fallback float64) float64 {
	if value == nil {
		return fallback
	}
	return *value
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}
