package assembly

import (
	"fmt"

	"github.com/chazu/elfin/pkg/frame"
	"github.com/chazu/elfin/pkg/xdb"
	"github.com/google/uuid"
)

// ObjectID uniquely identifies a scene object.
type ObjectID string

// NewObjectID returns a fresh random identifier.
func NewObjectID() ObjectID {
	return ObjectID(uuid.NewString())
}

// Short returns the first 8 characters of the id, for log and error
// messages.
func (id ObjectID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

// ObjectKind enumerates the variants of scene objects.
type ObjectKind int

const (
	KindPlain  ObjectKind = iota // no structural role
	KindModule                   // placed prototype instance
	KindJoint                    // scaffolding connection point
	KindBridge                   // scaffolding span between two joints
)

func (k ObjectKind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindModule:
		return "module"
	case KindJoint:
		return "joint"
	case KindBridge:
		return "bridge"
	default:
		return "unknown"
	}
}

// Object is implemented by every scene object. The unexported cleanup
// method restricts implementations to this package and carries each
// variant's part of the destruction cascade.
type Object interface {
	ID() ObjectID
	Name() string
	Kind() ObjectKind
	Transform() frame.Transform
	SetTransform(frame.Transform)

	cleanup(s *Scene) // unwind references before removal
}

// object holds the fields shared by all variants.
type object struct {
	id        ObjectID
	name      string
	transform frame.Transform
}

func (o *object) ID() ObjectID                   { return o.id }
func (o *object) Name() string                   { return o.name }
func (o *object) Transform() frame.Transform     { return o.transform }
func (o *object) SetTransform(t frame.Transform) { o.transform = t }

// ---------------------------------------------------------------------------
// Module
// ---------------------------------------------------------------------------

// Module is a placed instance of a prototype.
type Module struct {
	object
	Prototype string
	Type      xdb.PrototypeKind
	Color     Color
	Hidden    bool

	nLinks  []*Link
	cLinks  []*Link
	mirrors []*Module // the whole mirror group, including the module itself
}

func (m *Module) Kind() ObjectKind { return KindModule }

func (m *Module) String() string {
	return fmt.Sprintf("%s(%s)", m.name, m.Prototype)
}

// IsHub reports whether the module's prototype is a hub.
func (m *Module) IsHub() bool { return m.Type == xdb.KindHub }

// Mirrors returns a copy of the module's mirror group. The group includes
// the module itself; it is empty when the module has no mirrors.
func (m *Module) Mirrors() []*Module {
	out := make([]*Module, len(m.mirrors))
	copy(out, m.mirrors)
	return out
}

// Peers returns the mirror group without the module itself.
func (m *Module) Peers() []*Module {
	var out []*Module
	for _, p := range m.mirrors {
		if p != m {
			out = append(out, p)
		}
	}
	return out
}

// HasMirrors reports whether the mirror group is non-empty.
func (m *Module) HasMirrors() bool { return len(m.mirrors) > 0 }

// SetMirrors replaces the module's mirror group with a copy of group.
func (m *Module) SetMirrors(group []*Module) {
	m.mirrors = make([]*Module, len(group))
	copy(m.mirrors, group)
}

// ClearMirrors empties the module's own mirror group. Peers are untouched.
func (m *Module) ClearMirrors() { m.mirrors = nil }

// ---------------------------------------------------------------------------
// Joint / Bridge / Plain
// ---------------------------------------------------------------------------

// Joint is a scaffolding connection point with any number of bridges.
type Joint struct {
	object
	bridges []*Bridge
}

func (j *Joint) Kind() ObjectKind { return KindJoint }

// Bridges returns a copy of the joint's neighbour bridges.
func (j *Joint) Bridges() []*Bridge {
	out := make([]*Bridge, len(j.bridges))
	copy(out, j.bridges)
	return out
}

// Bridge spans exactly two joints.
type Bridge struct {
	object
	joints []*Joint
}

func (b *Bridge) Kind() ObjectKind { return KindBridge }

// Joints returns a copy of the bridge's neighbour joints.
func (b *Bridge) Joints() []*Joint {
	out := make([]*Joint, len(b.joints))
	copy(out, b.joints)
	return out
}

// Plain is a scene object with no structural role (imported meshes,
// annotations). Destroying it only removes it.
type Plain struct {
	object
}

func (p *Plain) Kind() ObjectKind { return KindPlain }

func (p *Plain) cleanup(*Scene) {}
