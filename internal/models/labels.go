package models

// Config is the label configuration document: generator settings, shared
// defaults and the ordered list of labels.
type Config struct {
	Settings Settings          `yaml:"settings" json:"settings"`
	Defaults DefaultParameters `yaml:"defaults" json:"defaults"`
	Labels   []LabelSpec       `yaml:"labels" json:"labels"`
}

type Settings struct {
	OpenSCADPath   string    `yaml:"openscad_path" json:"openscad_path"`
	OutputDir      string    `yaml:"output_dir" json:"output_dir"`
	Filaments      Filaments `yaml:"filaments" json:"filaments"`
	ScadFile       string    `yaml:"scad_file,omitempty" json:"scad_file,omitempty"`
	FontsDir       string    `yaml:"fonts_dir,omitempty" json:"fonts_dir,omitempty"`
	TimeoutSeconds int       `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
}

// Filaments holds the AMS slots used for the label body and the text/icon
type Filaments struct {
	Base int `yaml:"base" json:"base"`
	Text int `yaml:"text" json:"text"`
}

// DefaultParameters apply to every label unless overridden per label
type DefaultParameters struct {
	FastenerHead        string   `yaml:"fastener_head" json:"fastener_head"`
	FastenerShaft       string   `yaml:"fastener_shaft" json:"fastener_shaft"`
	FastenerThreads     string   `yaml:"fastener_threads" json:"fastener_threads"`
	FastenerDriver      string   `yaml:"fastener_driver" json:"fastener_driver"`
	FastenerOrientation string   `yaml:"fastener_orientation,omitempty" json:"fastener_orientation,omitempty"`
	FastenerScale       *float64 `yaml:"fastener_scale,omitempty" json:"fastener_scale,omitempty"`
	Font                string   `yaml:"font" json:"font"`
	FontStyle           string   `yaml:"font_style" json:"font_style"`
	FontSize            float64  `yaml:"font_size" json:"font_size"`
	Text2               string   `yaml:"text2,omitempty" json:"text2,omitempty"`
	ShowFastener        *bool    `yaml:"show_fastener,omitempty" json:"show_fastener,omitempty"`
	Hardware            string   `yaml:"hardware,omitempty" json:"hardware,omitempty"`
	HardwareScale       *float64 `yaml:"hardware_scale,omitempty" json:"hardware_scale,omitempty"`
}

// LabelSpec is one label entry. Keys outside the override whitelist are
// ignored when the document is decoded.
type LabelSpec struct {
	Name      string  `yaml:"name" json:"name"`
	Text      string  `yaml:"text" json:"text"`
	Text2     *string `yaml:"text2,omitempty" json:"text2,omitempty"`
	Overrides `yaml:",inline"`
}

// Overrides are the per-label fields that may replace a default
type Overrides struct {
	FastenerHead        *string  `yaml:"fastener_head,omitempty" json:"fastener_head,omitempty"`
	FastenerShaft       *string  `yaml:"fastener_shaft,omitempty" json:"fastener_shaft,omitempty"`
	FastenerThreads     *string  `yaml:"fastener_threads,omitempty" json:"fastener_threads,omitempty"`
	FastenerDriver      *string  `yaml:"fastener_driver,omitempty" json:"fastener_driver,omitempty"`
	FastenerOrientation *string  `yaml:"fastener_orientation,omitempty" json:"fastener_orientation,omitempty"`
	FastenerScale       *float64 `yaml:"fastener_scale,omitempty" json:"fastener_scale,omitempty"`
	FontSize            *float64 `yaml:"font_size,omitempty" json:"font_size,omitempty"`
	ShowFastener        *bool    `yaml:"show_fastener,omitempty" json:"show_fastener,omitempty"`
	Hardware            *string  `yaml:"hardware,omitempty" json:"hardware,omitempty"`
	HardwareScale       *float64 `yaml:"hardware_scale,omitempty" json:"hardware_scale,omitempty"`
}

// EffectiveParameters is the fully resolved parameter set for one label
type EffectiveParameters struct {
	Text                string
	Text2               string
	FastenerHead        string
	FastenerShaft       string
	FastenerThreads     string
	FastenerDriver      string
	FastenerOrientation string
	FastenerScale       float64
	ShowFastener        bool
	Hardware            string
	HardwareScale       float64
	Font                string
	FontStyle           string
	FontSize            float64
}
