package geometry

import (
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/philipparndt/gflabels/internal/models"
)

// ErrNoVertices is returned for meshes without any parseable vertex
var ErrNoVertices = errors.New("mesh has no vertices")

// BoundingBox represents a 3D bounding box
type BoundingBox struct {
	MinX, MinY, MinZ float64
	MaxX, MaxY, MaxZ float64
}

// Width returns the width (X dimension) of the bounding box
func (b *BoundingBox) Width() float64 {
	return b.MaxX - b.MinX
}

// Height returns the height (Y dimension) of the bounding box
func (b *BoundingBox) Height() float64 {
	return b.MaxY - b.MinY
}

// Depth returns the depth (Z dimension) of the bounding box
func (b *BoundingBox) Depth() float64 {
	return b.MaxZ - b.MinZ
}

// String formats the box dimensions as W x H x D in millimeters
func (b *BoundingBox) String() string {
	return fmt.Sprintf("%.2f x %.2f x %.2f mm", b.Width(), b.Height(), b.Depth())
}

// Union grows b to include other
func (b *BoundingBox) Union(other *BoundingBox) {
	b.MinX = math.Min(b.MinX, other.MinX)
	b.MinY = math.Min(b.MinY, other.MinY)
	b.MinZ = math.Min(b.MinZ, other.MinZ)
	b.MaxX = math.Max(b.MaxX, other.MaxX)
	b.MaxY = math.Max(b.MaxY, other.MaxY)
	b.MaxZ = math.Max(b.MaxZ, other.MaxZ)
}

// Translated returns a copy of b moved by the offset
func (b *BoundingBox) Translated(dx, dy, dz float64) *BoundingBox {
	return &BoundingBox{
		MinX: b.MinX + dx, MinY: b.MinY + dy, MinZ: b.MinZ + dz,
		MaxX: b.MaxX + dx, MaxY: b.MaxY + dy, MaxZ: b.MaxZ + dz,
	}
}

type vertex struct {
	X string `xml:"x,attr"`
	Y string `xml:"y,attr"`
	Z string `xml:"z,attr"`
}

type mesh struct {
	Vertices []vertex `xml:"vertices>vertex"`
}

// MeshBounds calculates the bounding box of a verbatim mesh. Vertices with
// unparseable coordinates are skipped.
func MeshBounds(m *models.Mesh) (*BoundingBox, error) {
	if m == nil {
		return nil, fmt.Errorf("object has no mesh")
	}

	var parsed mesh
	if err := xml.Unmarshal([]byte("<mesh>"+m.RawContent+"</mesh>"), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse mesh vertices: %w", err)
	}

	var bbox *BoundingBox
	for _, v := range parsed.Vertices {
		x, errX := strconv.ParseFloat(v.X, 64)
		y, errY := strconv.ParseFloat(v.Y, 64)
		z, errZ := strconv.ParseFloat(v.Z, 64)
		if errX != nil || errY != nil || errZ != nil {
			continue
		}

		point := &BoundingBox{MinX: x, MinY: y, MinZ: z, MaxX: x, MaxY: y, MaxZ: z}
		if bbox == nil {
			bbox = point
			continue
		}
		bbox.Union(point)
	}

	if bbox == nil {
		return nil, ErrNoVertices
	}
	return bbox, nil
}

// BuildBounds calculates the bounding box of all build items, applying the
// translation part of each item transform. Items referring to objects
// without a mesh are skipped.
func BuildBounds(model *models.Model) (*BoundingBox, error) {
	if model.Resources == nil || model.Build == nil {
		return nil, fmt.Errorf("model has no resources or build")
	}

	meshes := make(map[string]*models.Mesh)
	for i := range model.Resources.Objects {
		obj := &model.Resources.Objects[i]
		if obj.Mesh != nil {
			meshes[obj.ID] = obj.Mesh
		}
	}

	var combined *BoundingBox
	for _, item := range model.Build.Items {
		m, ok := meshes[item.ObjectID]
		if !ok {
			continue
		}
		bbox, err := MeshBounds(m)
		if err != nil {
			continue
		}

		dx, dy, dz, _ := Translation(item.Transform)
		moved := bbox.Translated(dx, dy, dz)
		if combined == nil {
			combined = moved
			continue
		}
		combined.Union(moved)
	}

	if combined == nil {
		return nil, fmt.Errorf("no valid objects found")
	}
	return combined, nil
}

// Translation extracts the offset from a 3MF transform matrix
// "m11 m12 m13 m21 m22 m23 m31 m32 m33 tx ty tz"
func Translation(transform string) (dx, dy, dz float64, ok bool) {
	parts := strings.Fields(transform)
	if len(parts) != 12 {
		return 0, 0, 0, false
	}

	x, errX := strconv.ParseFloat(parts[9], 64)
	y, errY := strconv.ParseFloat(parts[10], 64)
	z, errZ := strconv.ParseFloat(parts[11], 64)
	if errX != nil || errY != nil || errZ != nil {
		return 0, 0, 0, false
	}

	return x, y, z, true
}
