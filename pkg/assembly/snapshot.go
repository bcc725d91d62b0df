package assembly

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/chazu/elfin/pkg/frame"
	"github.com/chazu/elfin/pkg/xdb"
	"go.uber.org/zap"
)

// Snapshot is the serialisable form of a scene. References between objects
// are stored by id. Mirror references to objects that have left the scene
// are not recorded.
type Snapshot struct {
	Objects  []ObjectRecord `json:"objects"`
	Selected []ObjectID     `json:"selected,omitempty"`
}

// ObjectRecord is one object in a Snapshot.
type ObjectRecord struct {
	ID        ObjectID        `json:"id"`
	Name      string          `json:"name"`
	Kind      string          `json:"kind"`
	Transform frame.Transform `json:"transform"`

	Prototype string       `json:"prototype,omitempty"`
	Color     *Color       `json:"color,omitempty"`
	Hidden    bool         `json:"hidden,omitempty"`
	Links     []LinkRecord `json:"links,omitempty"`
	Mirrors   []ObjectID   `json:"mirrors,omitempty"`

	Joints []ObjectID `json:"joints,omitempty"` // bridges only
}

// LinkRecord is one link owned by a module.
type LinkRecord struct {
	Terminus    Terminus `json:"terminus"`
	SourceChain string   `json:"source_chain"`
	Target      ObjectID `json:"target"`
	TargetChain string   `json:"target_chain"`
}

// Snapshot captures the scene's current state.
func (s *Scene) Snapshot() Snapshot {
	var snap Snapshot
	for _, obj := range s.Objects() {
		rec := ObjectRecord{
			ID:        obj.ID(),
			Name:      obj.Name(),
			Kind:      obj.Kind().String(),
			Transform: obj.Transform(),
		}
		switch o := obj.(type) {
		case *Module:
			c := o.Color
			rec.Prototype = o.Prototype
			rec.Color = &c
			rec.Hidden = o.Hidden
			for _, t := range []Terminus{TermN, TermC} {
				for _, l := range o.Links(t) {
					if l.Target == nil {
						continue
					}
					rec.Links = append(rec.Links, LinkRecord{
						Terminus:    t,
						SourceChain: l.SourceChain,
						Target:      l.Target.ID(),
						TargetChain: l.TargetChain,
					})
				}
			}
			for _, p := range o.mirrors {
				if s.Contains(p) {
					rec.Mirrors = append(rec.Mirrors, p.ID())
				}
			}
		case *Bridge:
			for _, j := range o.joints {
				rec.Joints = append(rec.Joints, j.ID())
			}
		}
		snap.Objects = append(snap.Objects, rec)
	}
	for _, obj := range s.Selected() {
		snap.Selected = append(snap.Selected, obj.ID())
	}
	return snap
}

// Encode writes the snapshot as JSON.
func (snap Snapshot) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// DecodeSnapshot reads a JSON snapshot.
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("assembly: decode snapshot: %w", err)
	}
	return snap, nil
}

// Restore rebuilds a scene from snap. Links are restored exactly as
// recorded; a snapshot taken from a consistent scene yields a consistent
// scene. Mirror references to unknown ids are dropped.
func Restore(db *xdb.DB, snap Snapshot, opts ...Option) (*Scene, error) {
	s := New(db, opts...)
	for _, rec := range snap.Objects {
		if rec.ID == "" {
			return nil, fmt.Errorf("assembly: restore %s: missing id", rec.Name)
		}
		base := object{id: rec.ID, name: rec.Name, transform: rec.Transform}
		var obj Object
		switch rec.Kind {
		case KindModule.String():
			kind, err := db.Kind(rec.Prototype)
			if err != nil {
				return nil, fmt.Errorf("assembly: restore %s: %w", rec.Name, err)
			}
			m := &Module{object: base, Prototype: rec.Prototype, Type: kind, Hidden: rec.Hidden}
			if rec.Color != nil {
				m.Color = *rec.Color
			}
			obj = m
		case KindJoint.String():
			obj = &Joint{object: base}
		case KindBridge.String():
			obj = &Bridge{object: base}
		case KindPlain.String():
			obj = &Plain{object: base}
		default:
			return nil, fmt.Errorf("assembly: restore %s: unknown kind %q", rec.Name, rec.Kind)
		}
		if err := s.Add(obj); err != nil {
			return nil, err
		}
	}

	for _, rec := range snap.Objects {
		switch o := s.Get(rec.ID).(type) {
		case *Module:
			for _, lr := range rec.Links {
				target, ok := s.Get(lr.Target).(*Module)
				if !ok {
					return nil, fmt.Errorf("assembly: restore link of %s: no module with id %s", rec.Name, lr.Target)
				}
				if !lr.Terminus.Valid() {
					return nil, fmt.Errorf("assembly: restore link of %s: bad terminus %q", rec.Name, lr.Terminus)
				}
				AddLink(o, lr.Terminus, lr.SourceChain, target, lr.TargetChain)
			}
			var group []*Module
			for _, id := range rec.Mirrors {
				obj := s.Get(id)
				if obj == nil {
					s.log.Warn("dropping unknown mirror reference",
						zap.String("module", rec.Name),
						zap.String("id", string(id)),
					)
					continue
				}
				p, ok := obj.(*Module)
				if !ok {
					return nil, fmt.Errorf("assembly: restore mirrors of %s: %s is a %s, not a module", rec.Name, obj.Name(), obj.Kind())
				}
				group = append(group, p)
			}
			o.mirrors = group
		case *Bridge:
			for _, id := range rec.Joints {
				j, ok := s.Get(id).(*Joint)
				if !ok {
					return nil, fmt.Errorf("assembly: restore bridge %s: no joint with id %s", rec.Name, id)
				}
				o.joints = append(o.joints, j)
				j.bridges = append(j.bridges, o)
			}
		}
	}

	for _, id := range snap.Selected {
		if obj := s.Get(id); obj != nil {
			s.Select(obj)
		}
	}
	return s, nil
}
