// Package extrude grows an assembly by attaching new modules to the free
// termini of existing ones.
//
// Each extrusion resolves the relation between the selected and the new
// prototype from the compatibility database, places the new module, links
// the pair and colors it. A failed attempt destroys whatever it created and
// restores the selection. When the selected module has mirrors the same
// extrusion is repeated on each of them.
package extrude

import (
	"fmt"

	"github.com/chazu/elfin/pkg/assembly"
	"github.com/chazu/elfin/pkg/frame"
	"github.com/chazu/elfin/pkg/xdb"
	"go.uber.org/zap"
)

// Relations is the part of the compatibility database extrusion reads.
// *xdb.DB implements it.
type Relations interface {
	Kind(name string) (xdb.PrototypeKind, error)
	Double(a, b string) (xdb.Relation, error)
	Hub(name string) (xdb.HubData, error)
	Component(hub, chain string) (xdb.ChainData, error)
}

// Extruder runs placements and extrusions against a scene.
type Extruder struct {
	scene *assembly.Scene
	rel   Relations
	log   *zap.Logger
	wheel *assembly.ColorWheel
}

// Option configures an Extruder.
type Option func(*Extruder)

// WithLogger sets the extruder's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extruder) { e.log = l }
}

// WithRelations overrides the relation source, which defaults to the
// scene's database.
func WithRelations(r Relations) Option {
	return func(e *Extruder) { e.rel = r }
}

// WithColorWheel sets the wheel NextColor draws from.
func WithColorWheel(w *assembly.ColorWheel) Option {
	return func(e *Extruder) { e.wheel = w }
}

// New returns an extruder for scene.
func New(scene *assembly.Scene, opts ...Option) *Extruder {
	e := &Extruder{
		scene: scene,
		rel:   scene.DB(),
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.wheel == nil {
		// The default palette always parses.
		e.wheel, _ = assembly.NewColorWheel()
	}
	return e
}

// Scene returns the scene the extruder mutates.
func (e *Extruder) Scene() *assembly.Scene { return e.scene }

// NextColor returns the next color of the extruder's wheel.
func (e *Extruder) NextColor() assembly.Color { return e.wheel.Next() }

// ---------------------------------------------------------------------------
// Placement
// ---------------------------------------------------------------------------

// Place adds a first module of prototype at the origin. Nothing may be
// selected; the new module becomes the selection.
func (e *Extruder) Place(prototype string, color assembly.Color) (*assembly.Module, error) {
	return e.PlaceAt(prototype, color, frame.Identity())
}

// PlaceAt is Place with an explicit world transform.
func (e *Extruder) PlaceAt(prototype string, color assembly.Color, t frame.Transform) (*assembly.Module, error) {
	if e.scene.SelectionLen() > 0 {
		return nil, assembly.ValidationError{
			Message:  "placement requires an empty selection",
			Severity: assembly.SeverityError,
		}
	}
	m, err := e.scene.LinkModule(prototype)
	if err != nil {
		return nil, fmt.Errorf("extrude: place %s: %w", prototype, err)
	}
	m.SetTransform(t)
	m.Give(color)
	e.scene.Select(m)
	e.log.Info("placed module", zap.String("module", m.Name()), zap.String("prototype", prototype))
	return m, nil
}

// ---------------------------------------------------------------------------
// Extrusion
// ---------------------------------------------------------------------------

// Suitable reports whether the current selection can be extruded: at
// least one object, all of them modules of one prototype.
func Suitable(scene *assembly.Scene) bool {
	return assembly.CanLink(scene.Selected())
}

// ExtrudeSelection extrudes selector from terminus t of every selected
// module. Modules already covered by a selected mirror are deselected
// first, since extruding their mirror extrudes them too. It stops at the
// first failure and returns the primaries created so far.
func (e *Extruder) ExtrudeSelection(t xdb.Terminus, selector string, color assembly.Color) ([]*assembly.Module, error) {
	if !Suitable(e.scene) {
		return nil, assembly.ValidationError{
			Message:  "selection must be one or more modules of a single prototype",
			Severity: assembly.SeverityError,
		}
	}
	s, err := ParseSelector(t, selector)
	if err != nil {
		return nil, err
	}
	var out []*assembly.Module
	for _, sel := range e.filterMirrorSelection() {
		m, err := e.Extrude(sel, t, s, color)
		if err != nil {
			return out, err
		}
		if m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

// filterMirrorSelection keeps the first selected module of every mirror
// group and deselects the rest.
func (e *Extruder) filterMirrorSelection() []*assembly.Module {
	var kept []*assembly.Module
	represented := make(map[*assembly.Module]bool)
	for _, m := range e.scene.SelectedModules() {
		if represented[m] {
			e.scene.Deselect(m)
			continue
		}
		kept = append(kept, m)
		for _, p := range m.Peers() {
			represented[p] = true
		}
	}
	return kept
}

// Extrude attaches a new module described by s to terminus t of sel and
// returns it. Extruding a single onto a symmetric hub fills every free
// chain at once; the results form one mirror set and the returned module
// is nil.
//
// The attempt on sel itself is all-or-nothing. If sel has mirrors, the
// extrusion is then repeated on each of them. When a mirror fails, the
// modules created on sel are destroyed and sel is selected again; mirrors
// extruded before the failure keep their results, unbound.
func (e *Extruder) Extrude(sel *assembly.Module, t xdb.Terminus, s Selector, color assembly.Color) (*assembly.Module, error) {
	e.log.Info("extruding module",
		zap.String("selector", s.Format(t)),
		zap.String("terminus", string(t)),
		zap.String("from", sel.Name()),
		zap.String("chain", s.From),
	)
	e.scene.Deselect(sel)
	primary, group, created, err := e.extrudeOne(sel, t, s, color)
	if err != nil {
		e.scene.Select(sel)
		return nil, err
	}
	if sel.HasMirrors() {
		err := e.CreateModuleMirrors(sel, group, s.Prototype, func(mirror *assembly.Module) (*assembly.Module, error) {
			p, _, _, err := e.extrudeOne(mirror, t, s, color)
			return p, err
		})
		if err != nil {
			for _, m := range created {
				e.scene.Destroy(m)
			}
			e.scene.Select(sel)
			e.log.Warn("extrusion rolled back after mirror failure",
				zap.String("from", sel.Name()),
				zap.String("selector", s.Format(t)),
				zap.Error(err),
			)
			return nil, err
		}
	}
	return primary, nil
}

// extrudeOne performs a single extrusion from sel with no mirror fan-out.
// It returns the primary module (nil for a symmetric hub), the modules to
// bind with the mirrors' results and every module it created. Everything
// created is destroyed on failure.
func (e *Extruder) extrudeOne(sel *assembly.Module, t xdb.Terminus, s Selector, color assembly.Color) (*assembly.Module, []*assembly.Module, []*assembly.Module, error) {
	if !t.Valid() {
		return nil, nil, nil, fmt.Errorf("extrude: bad terminus %q", t)
	}
	kind, err := e.rel.Kind(s.Prototype)
	if err != nil {
		return nil, nil, nil, err
	}
	if sel.Type == xdb.KindHub && kind == xdb.KindHub {
		return nil, nil, nil, assembly.ValidationError{
			ObjectID: sel.ID(),
			Message:  fmt.Sprintf("cannot extrude hub %s from hub %s", s.Prototype, sel.Prototype),
			Severity: assembly.SeverityError,
		}
	}
	if sel.Occupied(t, s.From) {
		return nil, nil, nil, assembly.ValidationError{
			ObjectID: sel.ID(),
			Message:  fmt.Sprintf("%s terminus chain %s of %s is occupied", t, s.From, sel.Name()),
			Severity: assembly.SeverityError,
		}
	}

	var created []*assembly.Module
	fail := func(err error) (*assembly.Module, []*assembly.Module, []*assembly.Module, error) {
		for _, m := range created {
			e.scene.Destroy(m)
		}
		e.log.Warn("extrusion rolled back",
			zap.String("from", sel.Name()),
			zap.String("selector", s.Format(t)),
			zap.Error(err),
		)
		return nil, nil, nil, err
	}
	attach := func(chain string) (*assembly.Module, error) {
		nm, err := e.scene.LinkModule(s.Prototype)
		if err != nil {
			return nil, err
		}
		created = append(created, nm)
		if err := e.position(sel, nm, t, chain, s.Into); err != nil {
			return nil, err
		}
		assembly.Connect(sel, t, chain, nm, s.Into)
		nm.Give(color)
		e.scene.Select(nm)
		return nm, nil
	}

	nm, err := attach(s.From)
	if err != nil {
		return fail(err)
	}
	if sel.Type != xdb.KindHub {
		return nm, []*assembly.Module{nm}, created, nil
	}

	hub, err := e.rel.Hub(sel.Prototype)
	if err != nil {
		return fail(err)
	}
	if !hub.Symmetric {
		return nm, []*assembly.Module{nm}, created, nil
	}
	occupied := sel.OccupiedChains(t)
	for _, chain := range hub.ChainIDs() {
		if occupied[chain] {
			continue
		}
		e.log.Debug("extruding symmetric sibling", zap.String("hub", sel.Name()), zap.String("chain", chain))
		if _, err := attach(chain); err != nil {
			return fail(err)
		}
	}
	if err := assembly.LinkMirrors(created); err != nil {
		return fail(err)
	}
	return nil, nil, created, nil
}

// position moves nm into place against sel. selChain is the chain of sel
// being extruded from and into the chain of nm receiving the link.
func (e *Extruder) position(sel, nm *assembly.Module, t xdb.Terminus, selChain, into string) error {
	switch {
	case sel.Type == xdb.KindSingle && nm.Type == xdb.KindSingle:
		if t == xdb.TermN {
			rel, err := e.rel.Double(nm.Prototype, sel.Prototype)
			if err != nil {
				return err
			}
			frame.Drop(nm, rel, sel)
			return nil
		}
		rel, err := e.rel.Double(sel.Prototype, nm.Prototype)
		if err != nil {
			return err
		}
		frame.Raise(nm, rel, sel)
		return nil

	case sel.Type == xdb.KindSingle && nm.Type == xdb.KindHub:
		comp, err := e.rel.Component(nm.Prototype, into)
		if err != nil {
			return err
		}
		if t == xdb.TermN {
			// Drop to the hub component frame, then to the double's frame.
			rel, err := comp.CRelation(sel.Prototype)
			if err != nil {
				return err
			}
			frame.Drop(nm, rel, nil)
			rel, err = e.rel.Double(comp.SingleName, sel.Prototype)
			if err != nil {
				return err
			}
			frame.Drop(nm, rel, sel)
			return nil
		}
		rel, err := comp.NRelation(sel.Prototype)
		if err != nil {
			return err
		}
		frame.Drop(nm, rel, sel)
		return nil

	case sel.Type == xdb.KindHub && nm.Type == xdb.KindSingle:
		comp, err := e.rel.Component(sel.Prototype, selChain)
		if err != nil {
			return err
		}
		if t == xdb.TermN {
			rel, err := comp.NRelation(nm.Prototype)
			if err != nil {
				return err
			}
			frame.Raise(nm, rel, sel)
			return nil
		}
		// Raise to the double's frame, then to the hub component frame.
		rel, err := e.rel.Double(comp.SingleName, nm.Prototype)
		if err != nil {
			return err
		}
		frame.Raise(nm, rel, nil)
		rel, err = comp.CRelation(nm.Prototype)
		if err != nil {
			return err
		}
		frame.Raise(nm, rel, sel)
		return nil
	}
	return fmt.Errorf("extrude: unsupported pair %s/%s", sel.Type, nm.Type)
}
