// Package tessellate turns a scene into triangle meshes using a geometry
// kernel. Each visible module is drawn as a sphere of its prototype's
// average radius, placed at the module's frame. Joints are drawn as cubes
// and bridges as a bar between their two joints.
package tessellate

import (
	"fmt"
	"math"

	"github.com/chazu/elfin/pkg/assembly"
	"github.com/chazu/elfin/pkg/frame"
	"github.com/chazu/elfin/pkg/kernel"
	"github.com/chazu/elfin/pkg/xdb"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Scaffolding sizes in scene units.
const (
	JointSize   = 0.6
	BridgeWidth = 0.5
)

// Proxy returns the placed proxy solid of m. Radii are stored in database
// units and scaled like relation translations.
func Proxy(k kernel.Kernel, db *xdb.DB, m *assembly.Module) kernel.Solid {
	return k.Place(k.Sphere(ProxyRadius(db, m)), m.Transform())
}

// ProxyRadius returns the scene-unit radius of m's proxy sphere.
func ProxyRadius(db *xdb.DB, m *assembly.Module) float64 {
	return db.Radius(m.Prototype) / frame.UnitConversion
}

// JointProxy returns the placed cube drawn for j.
func JointProxy(k kernel.Kernel, j *assembly.Joint) kernel.Solid {
	return k.Place(k.Box(JointSize, JointSize, JointSize), j.Transform())
}

// BridgeProxy returns the solid drawn for b: an axis-aligned bar spanning
// its joints' origins with a plate at each end. A bridge without two
// joints has no proxy.
func BridgeProxy(k kernel.Kernel, b *assembly.Bridge) (kernel.Solid, bool) {
	joints := b.Joints()
	if len(joints) != 2 {
		return nil, false
	}
	pa, pb := joints[0].Transform().Tran, joints[1].Transform().Tran
	span := func(a, b float64) float64 { return math.Max(math.Abs(b-a), BridgeWidth) }
	bar := k.Box(span(pa.X, pb.X), span(pa.Y, pb.Y), span(pa.Z, pb.Z))
	mid := v3.Vec{X: (pa.X + pb.X) / 2, Y: (pa.Y + pb.Y) / 2, Z: (pa.Z + pb.Z) / 2}

	plate := 2 * BridgeWidth
	out := k.Place(bar, frame.Translation(mid))
	for _, p := range []v3.Vec{pa, pb} {
		out = k.Union(out, k.Place(k.Box(plate, plate, plate), frame.Translation(p)))
	}
	return out, true
}

// Tessellate produces one mesh per visible module, joint and bridge, in
// scene order. The tessellator is read-only and never mutates the scene.
func Tessellate(s *assembly.Scene, k kernel.Kernel) ([]*kernel.Mesh, error) {
	if s == nil {
		return nil, nil
	}

	var meshes []*kernel.Mesh
	for _, obj := range s.Objects() {
		var (
			solid kernel.Solid
			color string
		)
		switch o := obj.(type) {
		case *assembly.Module:
			if o.Hidden {
				continue
			}
			solid, color = Proxy(k, s.DB(), o), o.Color.Hex()
		case *assembly.Joint:
			solid = JointProxy(k, o)
		case *assembly.Bridge:
			var ok bool
			if solid, ok = BridgeProxy(k, o); !ok {
				continue
			}
		default:
			continue
		}
		mesh, err := k.ToMesh(solid)
		if err != nil {
			return nil, fmt.Errorf("tessellate: ToMesh failed for %s %s: %w", obj.Kind(), obj.Name(), err)
		}
		mesh.Name = obj.Name()
		mesh.Color = color
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}
