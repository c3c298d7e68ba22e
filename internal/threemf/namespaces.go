package threemf

import (
	"encoding/xml"
	"strings"
)

// XML namespaces used in 3MF
const (
	NamespaceCore       = "http://schemas.microsoft.com/3dmanufacturing/core/2015/02"
	NamespaceMaterial   = "http://schemas.microsoft.com/3dmanufacturing/material/2015/02"
	NamespaceProduction = "http://schemas.microsoft.com/3dmanufacturing/production/2015/06"

	xmlnsPrefix = "xmlns"
	xmlURL      = "http://www.w3.org/XML/1998/namespace"
)

// canonicalPrefixes are the prefixes slicers expect for the three 3MF
// namespaces. The core namespace is the default namespace.
var canonicalPrefixes = map[string]string{
	NamespaceCore:       "",
	NamespaceMaterial:   "m",
	NamespaceProduction: "p",
}

// namespaceScope maps namespace URLs to the prefixes declared on a root element
type namespaceScope map[string]string

func newNamespaceScope(attrs []xml.Attr) namespaceScope {
	scope := namespaceScope{}
	for _, attr := range attrs {
		if attr.Name.Space == xmlnsPrefix {
			scope[attr.Value] = attr.Name.Local
		}
	}
	for url, prefix := range canonicalPrefixes {
		scope[url] = prefix
	}
	return scope
}

// qualify turns a decoded attribute name back into its literal prefixed form
func (s namespaceScope) qualify(name xml.Name) (xml.Name, bool) {
	switch name.Space {
	case "", xmlURL:
		return name, true
	}
	prefix, ok := s[name.Space]
	if !ok {
		return xml.Name{}, false
	}
	if prefix == "" {
		return xml.Name{Local: name.Local}, true
	}
	return xml.Name{Local: prefix + ":" + name.Local}, true
}

// rootAttrs rebuilds the attributes of a <model> element. The decoder hands
// namespace declarations back as {Space: "xmlns"}, which the encoder would
// re-emit under a synthetic alias; they are written out literally instead,
// with the three 3MF namespaces pinned to their canonical prefixes.
func rootAttrs(attrs []xml.Attr) []xml.Attr {
	scope := newNamespaceScope(attrs)

	out := []xml.Attr{
		{Name: xml.Name{Local: xmlnsPrefix}, Value: NamespaceCore},
		{Name: xml.Name{Local: xmlnsPrefix + ":m"}, Value: NamespaceMaterial},
		{Name: xml.Name{Local: xmlnsPrefix + ":p"}, Value: NamespaceProduction},
	}

	for _, attr := range attrs {
		switch {
		case attr.Name.Space == "" && attr.Name.Local == xmlnsPrefix:
			continue
		case attr.Name.Space == xmlnsPrefix:
			if _, known := canonicalPrefixes[attr.Value]; known {
				continue
			}
			if attr.Name.Local == "m" || attr.Name.Local == "p" {
				continue
			}
			out = append(out, xml.Attr{Name: xml.Name{Local: xmlnsPrefix + ":" + attr.Name.Local}, Value: attr.Value})
		case attr.Name.Space == "" && attr.Name.Local == "requiredextensions":
			out = append(out, xml.Attr{Name: attr.Name, Value: canonicalExtensions(attrs, attr.Value)})
		default:
			if name, ok := scope.qualify(attr.Name); ok {
				out = append(out, xml.Attr{Name: name, Value: attr.Value})
			}
		}
	}

	return out
}

// canonicalExtensions renames the prefixes listed in requiredextensions to
// the prefixes they are declared under in the output
func canonicalExtensions(attrs []xml.Attr, value string) string {
	declared := map[string]string{}
	for _, attr := range attrs {
		if attr.Name.Space == xmlnsPrefix {
			declared[attr.Name.Local] = attr.Value
		}
	}

	extensions := strings.Fields(value)
	for i, ext := range extensions {
		if canonical, ok := canonicalPrefixes[declared[ext]]; ok && canonical != "" {
			extensions[i] = canonical
		}
	}
	return strings.Join(extensions, " ")
}

// elementAttrs rewrites the attributes of a non-root element for re-encoding
func elementAttrs(attrs []xml.Attr, scope namespaceScope) []xml.Attr {
	var out []xml.Attr
	for _, attr := range attrs {
		if attr.Name.Space == xmlnsPrefix || (attr.Name.Space == "" && attr.Name.Local == xmlnsPrefix) {
			continue
		}
		if name, ok := scope.qualify(attr.Name); ok {
			out = append(out, xml.Attr{Name: name, Value: attr.Value})
		}
	}
	return out
}

// requiresExtension reports whether the model lists prefix in requiredextensions
func requiresExtension(attrs []xml.Attr, prefix string) bool {
	for _, attr := range attrs {
		if attr.Name.Space == "" && attr.Name.Local == "requiredextensions" {
			for _, ext := range strings.Fields(attr.Value) {
				if ext == prefix {
					return true
				}
			}
		}
	}
	return false
}
