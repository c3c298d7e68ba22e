package threemf

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="model" ContentType="application/vnd.ms-package.3dmanufacturing-3dmodel+xml"/></Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Target="/3D/3dmodel.model" Id="rel0" Type="http://schemas.microsoft.com/3dmanufacturing/2013/01/3dmodel"/></Relationships>`

const baseMeshXML = `
    <vertices>
     <vertex x="0" y="0" z="0"/>
     <vertex x="36.000" y="0" z="0"/>
     <vertex x="36.000" y="11.000" z="0"/>
     <vertex x="0" y="11.000" z="1.200"/>
    </vertices>
    <triangles>
     <triangle v1="0" v2="1" v3="2"/>
     <triangle v1="0" v2="2" v3="3"/>
    </triangles>
   `

const textMeshXML = `
    <vertices>
     <vertex x="4.125" y="3.5" z="1.2"/>
     <vertex x="8.25" y="3.5" z="1.2"/>
     <vertex x="8.25" y="7.75" z="1.6"/>
    </vertices>
    <triangles>
     <triangle v1="0" v2="1" v3="2"/>
    </triangles>
   `

// openscadModel renders a model document shaped like OpenSCAD's 3MF export
func openscadModel(mesh string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<model unit="millimeter" xml:lang="en-US" xmlns="http://schemas.microsoft.com/3dmanufacturing/core/2015/02" xmlns:m="http://schemas.microsoft.com/3dmanufacturing/material/2015/02" xmlns:p="http://schemas.microsoft.com/3dmanufacturing/production/2015/06" requiredextensions="p">
 <metadata name="Application">OpenSCAD 2025.01.14</metadata>
 <metadata name="Title">labels</metadata>
 <resources>
  <basematerials id="1">
   <base name="Default" displaycolor="#F9D72CFF"/>
  </basematerials>
  <object id="1" name="OpenSCAD Model" type="model" p:UUID="3a1d4f6e-0d5c-4c7e-9b7a-2f4d6c8e0a11" pid="1" pindex="0">
   <mesh>` + mesh + `</mesh>
  </object>
 </resources>
 <build p:UUID="9c4b2f0e-7d1a-4e3b-8f6c-5a2d1e0b9c33">
  <item objectid="1" p:UUID="5e8f1a2b-3c4d-4e5f-8a9b-0c1d2e3f4a55"/>
 </build>
</model>
`
}

type fixtureEntry struct {
	name string
	data string
}

// writeContainer writes a 3MF archive with the standard package parts plus extra entries
func writeContainer(t *testing.T, path, model string, extra ...fixtureEntry) string {
	t.Helper()

	entries := []fixtureEntry{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
	}
	if model != "" {
		entries = append(entries, fixtureEntry{ModelPath, model})
	}
	entries = append(entries, extra...)

	writeZip(t, path, entries)
	return path
}

func writeZip(t *testing.T, path string, entries []fixtureEntry) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, entry := range entries {
		w, err := zw.Create(entry.name)
		if err != nil {
			t.Fatalf("failed to create entry %s: %v", entry.name, err)
		}
		if _, err := w.Write([]byte(entry.data)); err != nil {
			t.Fatalf("failed to write entry %s: %v", entry.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
}

// labelFixture writes a base and a text export into a fresh directory
func labelFixture(t *testing.T) (dir, basePath, textPath string) {
	t.Helper()
	dir = t.TempDir()
	basePath = writeContainer(t, filepath.Join(dir, "M3x10_base.3mf"), openscadModel(baseMeshXML))
	textPath = writeContainer(t, filepath.Join(dir, "M3x10_text.3mf"), openscadModel(textMeshXML))
	return dir, basePath, textPath
}

func readEntry(t *testing.T, path, name string) string {
	t.Helper()
	pkg, err := (&Reader{}).Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	data, ok := pkg.File(name)
	if !ok {
		t.Fatalf("%s not found in %s", name, path)
	}
	return string(data)
}

func withoutSection(model, section string) string {
	start := strings.Index(model, "<"+section)
	end := strings.Index(model, "</"+section+">")
	if start < 0 || end < 0 {
		return model
	}
	return model[:start] + model[end+len("</"+section+">"):]
}
