package models

import "encoding/xml"

// Model represents a 3MF model document. Root attributes (unit, language,
// namespace declarations, required extensions) are kept as raw attributes so
// they can be carried over to a rebuilt document.
type Model struct {
	XMLName   xml.Name   `xml:"model"`
	Attrs     []xml.Attr `xml:",any,attr"`
	Metadata  []Metadata `xml:"metadata"`
	Resources *Resources `xml:"resources"`
	Build     *Build     `xml:"build"`
}

type Metadata struct {
	Name     string `xml:"name,attr"`
	Preserve string `xml:"preserve,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type Resources struct {
	BaseMaterials *BaseMaterials `xml:"basematerials"`
	Objects       []Object       `xml:"object"`
}

type BaseMaterials struct {
	ID    string `xml:"id,attr"`
	Bases []Base `xml:"base"`
}

type Base struct {
	Name         string `xml:"name,attr"`
	DisplayColor string `xml:"displaycolor,attr"`
}

type Object struct {
	ID         string      `xml:"id,attr"`
	Name       string      `xml:"name,attr,omitempty"`
	Type       string      `xml:"type,attr,omitempty"`
	UUID       string      `xml:"p:UUID,attr,omitempty"`
	PID        string      `xml:"pid,attr,omitempty"`
	PIndex     string      `xml:"pindex,attr,omitempty"`
	Mesh       *Mesh       `xml:"mesh"`
	Components *Components `xml:"components"`
}

// Mesh keeps the vertex and triangle markup verbatim. Geometry is never
// decoded on the assembly path.
type Mesh struct {
	RawContent string `xml:",innerxml"`
}

type Components struct {
	Component []Component `xml:"component"`
}

type Component struct {
	ObjectID  string `xml:"objectid,attr"`
	Transform string `xml:"transform,attr,omitempty"`
}

type Build struct {
	Attrs []xml.Attr `xml:",any,attr"`
	Items []Item     `xml:"item"`
}

type Item struct {
	ObjectID  string `xml:"objectid,attr"`
	UUID      string `xml:"p:UUID,attr,omitempty"`
	Transform string `xml:"transform,attr,omitempty"`
	Printable string `xml:"printable,attr,omitempty"`
}

// ModelSettings is the Bambu Studio Metadata/model_settings.config document
type ModelSettings struct {
	XMLName xml.Name         `xml:"config"`
	Objects []SettingsObject `xml:"object"`
	Plates  []Plate          `xml:"plate"`
}

type SettingsObject struct {
	ID       string             `xml:"id,attr"`
	Metadata []SettingsMetadata `xml:"metadata"`
	Parts    []Part             `xml:"part"`
}

// Meta returns the value of the metadata entry with the given key
func (o SettingsObject) Meta(key string) string {
	return metaValue(o.Metadata, key)
}

type Part struct {
	ID       string             `xml:"id,attr"`
	Subtype  string             `xml:"subtype,attr,omitempty"`
	Metadata []SettingsMetadata `xml:"metadata"`
}

type SettingsMetadata struct {
	Key   string `xml:"key,attr"`
	Value string `xml:"value,attr"`
}

// Plate is a Bambu Studio plate document (Metadata/plate_N.config) or a
// plate section embedded in model_settings.config
type Plate struct {
	XMLName        xml.Name           `xml:"plate"`
	Metadata       []SettingsMetadata `xml:"metadata"`
	ModelInstances []ModelInstance    `xml:"model_instance"`
}

// Meta returns the value of the metadata entry with the given key
func (p Plate) Meta(key string) string {
	return metaValue(p.Metadata, key)
}

type ModelInstance struct {
	Metadata []SettingsMetadata `xml:"metadata"`
}

// Meta returns the value of the metadata entry with the given key
func (m ModelInstance) Meta(key string) string {
	return metaValue(m.Metadata, key)
}

func metaValue(metadata []SettingsMetadata, key string) string {
	for _, meta := range metadata {
		if meta.Key == key {
			return meta.Value
		}
	}
	return ""
}
