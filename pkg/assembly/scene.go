package assembly

import (
	"fmt"

	"github.com/chazu/elfin/pkg/frame"
	"github.com/chazu/elfin/pkg/xdb"
	"go.uber.org/zap"
)

// Scene is the object repository: every object lives here until it is
// destroyed. It also tracks the current selection, in selection order.
type Scene struct {
	db  *xdb.DB
	log *zap.Logger

	objects  map[ObjectID]Object
	order    []ObjectID
	names    map[string]ObjectID
	selected []ObjectID
}

// Option configures a Scene.
type Option func(*Scene)

// WithLogger sets the scene's logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scene) { s.log = l }
}

// New creates an empty scene backed by db.
func New(db *xdb.DB, opts ...Option) *Scene {
	s := &Scene{
		db:      db,
		log:     zap.NewNop(),
		objects: make(map[ObjectID]Object),
		names:   make(map[string]ObjectID),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// DB returns the compatibility database the scene was created with.
func (s *Scene) DB() *xdb.DB { return s.db }

// Logger returns the scene's logger.
func (s *Scene) Logger() *zap.Logger { return s.log }

// Add registers obj with the scene. Adding an object whose id or name is
// already taken fails.
func (s *Scene) Add(obj Object) error {
	if _, ok := s.objects[obj.ID()]; ok {
		return fmt.Errorf("assembly: object %s already in scene", obj.ID().Short())
	}
	if _, ok := s.names[obj.Name()]; ok {
		return fmt.Errorf("assembly: object name %q already in use", obj.Name())
	}
	s.objects[obj.ID()] = obj
	s.names[obj.Name()] = obj.ID()
	s.order = append(s.order, obj.ID())
	return nil
}

// Get returns the object with the given id, or nil.
func (s *Scene) Get(id ObjectID) Object {
	return s.objects[id]
}

// Lookup returns the object with the given name, or nil.
func (s *Scene) Lookup(name string) Object {
	id, ok := s.names[name]
	if !ok {
		return nil
	}
	return s.objects[id]
}

// Module returns the named module, or an error if the name is unknown or
// refers to a non-module object.
func (s *Scene) Module(name string) (*Module, error) {
	obj := s.Lookup(name)
	if obj == nil {
		return nil, fmt.Errorf("assembly: no object named %q", name)
	}
	m, ok := obj.(*Module)
	if !ok {
		return nil, fmt.Errorf("assembly: %q is a %s, not a module", name, obj.Kind())
	}
	return m, nil
}

// Contains reports whether obj is still in the scene.
func (s *Scene) Contains(obj Object) bool {
	if obj == nil {
		return false
	}
	cur, ok := s.objects[obj.ID()]
	return ok && cur == obj
}

// Objects returns every object in insertion order.
func (s *Scene) Objects() []Object {
	out := make([]Object, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.objects[id])
	}
	return out
}

// Modules returns every module in insertion order.
func (s *Scene) Modules() []*Module {
	var out []*Module
	for _, id := range s.order {
		if m, ok := s.objects[id].(*Module); ok {
			out = append(out, m)
		}
	}
	return out
}

// Len returns the number of objects in the scene.
func (s *Scene) Len() int { return len(s.objects) }

// Remove deletes obj from the scene without any structural cleanup. Use
// Destroy to unwind references first.
func (s *Scene) Remove(obj Object) {
	id := obj.ID()
	if _, ok := s.objects[id]; !ok {
		return
	}
	delete(s.objects, id)
	delete(s.names, obj.Name())
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.Deselect(obj)
}

// uniqueName returns base if free, else base.001, base.002, ...
func (s *Scene) uniqueName(base string) string {
	if _, taken := s.names[base]; !taken {
		return base
	}
	for i := 1; ; i++ {
		n := fmt.Sprintf("%s.%03d", base, i)
		if _, taken := s.names[n]; !taken {
			return n
		}
	}
}

// LinkModule instantiates prototype as a new hidden module at the identity
// transform.
func (s *Scene) LinkModule(prototype string) (*Module, error) {
	kind, err := s.db.Kind(prototype)
	if err != nil {
		return nil, err
	}
	m := &Module{
		object: object{
			id:        NewObjectID(),
			name:      s.uniqueName(prototype),
			transform: frame.Identity(),
		},
		Prototype: prototype,
		Type:      kind,
		Hidden:    true,
	}
	if err := s.Add(m); err != nil {
		return nil, err
	}
	return m, nil
}

// NewJoint adds a joint named after name (made unique).
func (s *Scene) NewJoint(name string) *Joint {
	j := &Joint{object: object{id: NewObjectID(), name: s.uniqueName(name), transform: frame.Identity()}}
	s.mustAdd(j)
	return j
}

// NewPlain adds a plain object named after name (made unique).
func (s *Scene) NewPlain(name string) *Plain {
	p := &Plain{object: object{id: NewObjectID(), name: s.uniqueName(name), transform: frame.Identity()}}
	s.mustAdd(p)
	return p
}

func (s *Scene) mustAdd(obj Object) {
	if err := s.Add(obj); err != nil {
		panic(err)
	}
}

// ---------------------------------------------------------------------------
// Selection
// ---------------------------------------------------------------------------

// Select adds objects to the selection, keeping selection order.
func (s *Scene) Select(objs ...Object) {
	for _, obj := range objs {
		if !s.Contains(obj) || s.IsSelected(obj) {
			continue
		}
		s.selected = append(s.selected, obj.ID())
	}
}

// Deselect removes obj from the selection.
func (s *Scene) Deselect(obj Object) {
	for i, id := range s.selected {
		if id == obj.ID() {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
			return
		}
	}
}

// ClearSelection deselects everything.
func (s *Scene) ClearSelection() { s.selected = nil }

// IsSelected reports whether obj is selected.
func (s *Scene) IsSelected(obj Object) bool {
	for _, id := range s.selected {
		if id == obj.ID() {
			return true
		}
	}
	return false
}

// Selected returns the selected objects in selection order.
func (s *Scene) Selected() []Object {
	out := make([]Object, 0, len(s.selected))
	for _, id := range s.selected {
		out = append(out, s.objects[id])
	}
	return out
}

// SelectedModules returns the selected modules in selection order.
func (s *Scene) SelectedModules() []*Module {
	var out []*Module
	for _, obj := range s.Selected() {
		if m, ok := obj.(*Module); ok {
			out = append(out, m)
		}
	}
	return out
}

// SelectionLen returns the number of selected objects.
func (s *Scene) SelectionLen() int { return len(s.selected) }
