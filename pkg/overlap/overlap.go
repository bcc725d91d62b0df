// Package overlap detects modules whose proxy solids collide with the rest
// of the scene and removes them.
package overlap

import (
	"fmt"

	"github.com/chazu/elfin/pkg/assembly"
	"github.com/chazu/elfin/pkg/kernel"
	"github.com/chazu/elfin/pkg/tessellate"
	"go.uber.org/zap"
)

// CollisionMessage is shown when CheckAndDelete destroyed anything.
const CollisionMessage = "Collision was detected and modules were deleted."

// Checker runs collision checks against a scene.
type Checker struct {
	scene  *assembly.Scene
	kernel kernel.Kernel
	log    *zap.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the checker's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Checker) { c.log = l }
}

// New returns a checker for scene using k to build proxies.
func New(scene *assembly.Scene, k kernel.Kernel, opts ...Option) *Checker {
	c := &Checker{scene: scene, kernel: k, log: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Overlaps returns the modules colliding with m, in scene order. Two
// modules collide when their proxy bounding boxes intersect and their
// centres are closer than the sum of their radii. Modules linked directly
// to m always touch it and are not reported.
func (c *Checker) Overlaps(m *assembly.Module) []*assembly.Module {
	db := c.scene.DB()
	linked := make(map[*assembly.Module]bool)
	for _, t := range []assembly.Terminus{assembly.TermN, assembly.TermC} {
		for _, l := range m.Links(t) {
			if l.Target != nil {
				linked[l.Target] = true
			}
		}
	}

	proxy := tessellate.Proxy(c.kernel, db, m)
	r := tessellate.ProxyRadius(db, m)
	centre := m.Transform().Tran

	var out []*assembly.Module
	for _, other := range c.scene.Modules() {
		if other == m || linked[other] {
			continue
		}
		if !kernel.BoxesIntersect(proxy, tessellate.Proxy(c.kernel, db, other)) {
			continue
		}
		d := other.Transform().Tran.Sub(centre).Length()
		if d < r+tessellate.ProxyRadius(db, other) {
			out = append(out, other)
		}
	}
	return out
}

// DeleteIfOverlap destroys m if it collides with anything and reports
// whether it did.
func (c *Checker) DeleteIfOverlap(m *assembly.Module) (bool, error) {
	if !c.scene.Contains(m) {
		return false, fmt.Errorf("overlap: module %s is not in the scene", m.Name())
	}
	hits := c.Overlaps(m)
	if len(hits) == 0 {
		c.log.Debug("no overlap", zap.String("module", m.Name()))
		return false, nil
	}
	c.log.Info("overlap found, deleting module",
		zap.String("module", m.Name()),
		zap.String("first_hit", hits[0].Name()),
		zap.Int("hits", len(hits)),
	)
	c.scene.Destroy(m)
	return true, nil
}

// CheckAndDelete runs DeleteIfOverlap on the named modules, or on the
// selected modules when no name is given. Non-module objects are skipped.
// If anything was deleted, p (which may be nil) is told so. It returns the
// names of the deleted modules.
func (c *Checker) CheckAndDelete(p assembly.Prompt, names ...string) ([]string, error) {
	var mods []*assembly.Module
	if len(names) == 0 {
		mods = c.scene.SelectedModules()
	} else {
		for _, n := range names {
			m, err := c.scene.Module(n)
			if err != nil {
				return nil, err
			}
			mods = append(mods, m)
		}
	}

	var deleted []string
	for _, m := range mods {
		// An earlier deletion may have cascaded to m through its mirrors.
		if !c.scene.Contains(m) {
			continue
		}
		ok, err := c.DeleteIfOverlap(m)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted = append(deleted, m.Name())
		}
	}
	if len(deleted) > 0 && p != nil {
		p.Message("Elfin Message", CollisionMessage)
	}
	return deleted, nil
}
