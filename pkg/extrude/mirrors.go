package extrude

import (
	"fmt"

	"github.com/chazu/elfin/pkg/assembly"
	"go.uber.org/zap"
)

// MirrorFunc repeats an extrusion on one mirror of the base module and
// returns the module it produced, or nil if it bound its own results.
type MirrorFunc func(mirror *assembly.Module) (*assembly.Module, error)

// CreateModuleMirrors runs fn on every mirror of base other than base
// itself, then binds newMods and the produced modules into one mirror set.
// Mirrors that have left the scene are skipped. The first failure stops
// the fan-out and is returned; modules produced before it stay in place
// and the set is not bound.
func (e *Extruder) CreateModuleMirrors(base *assembly.Module, newMods []*assembly.Module, prototype string, fn MirrorFunc) error {
	group := append([]*assembly.Module(nil), newMods...)
	for _, m := range base.Peers() {
		if !e.scene.Contains(m) {
			continue
		}
		e.log.Debug("extruding mirror",
			zap.String("mirror", m.Name()),
			zap.String("base", base.Name()),
			zap.String("prototype", prototype),
		)
		res, err := fn(m)
		if err != nil {
			return fmt.Errorf("extrude: mirror %s of %s: %w", m.Name(), base.Name(), err)
		}
		if res != nil {
			group = append(group, res)
		}
	}
	if len(group) == 0 {
		return nil
	}
	return assembly.LinkMirrors(group)
}
