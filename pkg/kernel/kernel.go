// Package kernel defines the geometry kernel used for module proxies.
// Modules are drawn and collision-checked as spheres of the prototype's
// average radius placed at the module's frame; joint and bridge scaffolding
// is drawn with boxes. The sdfx subpackage provides the implementation.
package kernel

import "github.com/chazu/elfin/pkg/frame"

// Solid is an opaque handle to a geometry kernel solid.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel builds, places and tessellates proxy solids.
type Kernel interface {
	// Primitives, centred on the origin.
	Sphere(radius float64) Solid
	Box(x, y, z float64) Solid

	Union(a, b Solid) Solid

	// Place moves a solid from local coordinates into t's parent space.
	Place(s Solid, t frame.Transform) Solid

	ToMesh(s Solid) (*Mesh, error)
}

// BoxesIntersect reports whether the bounding boxes of a and b overlap.
// Touching boxes count as overlapping.
func BoxesIntersect(a, b Solid) bool {
	amin, amax := a.BoundingBox()
	bmin, bmax := b.BoundingBox()
	for i := 0; i < 3; i++ {
		if amax[i] < bmin[i] || bmax[i] < amin[i] {
			return false
		}
	}
	return true
}
