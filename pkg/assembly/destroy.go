package assembly

import "go.uber.org/zap"

// Destroy deletes obj and everything that must die with it. Objects no
// longer in the scene are ignored, so stale references left behind by a
// non-recursive mirror unlink are harmless here.
func (s *Scene) Destroy(obj Object) {
	if !s.Contains(obj) {
		return
	}
	obj.cleanup(s)
	s.Remove(obj)
}

// cleanup severs every link and destroys all other mirrors. Each peer's
// mirror group is cleared before it is destroyed so the cascade does not
// come back to m.
func (m *Module) cleanup(s *Scene) {
	m.SeverLinks()
	for _, p := range m.Mirrors() {
		if p == m {
			continue
		}
		p.ClearMirrors()
		s.Destroy(p)
	}
	s.log.Debug("module cleaned up", zap.String("module", m.name))
}

// cleanup destroys every neighbouring bridge.
func (j *Joint) cleanup(s *Scene) {
	for len(j.bridges) > 0 {
		b := j.bridges[0]
		if !s.Contains(b) {
			// A bridge removed without going through Destroy would loop
			// forever here; drop the dangling entry instead.
			j.bridges = j.bridges[1:]
			continue
		}
		s.Destroy(b)
	}
}

// cleanup removes the bridge from both joints' neighbour lists.
func (b *Bridge) cleanup(*Scene) {
	for _, j := range b.joints {
		if j == nil {
			continue
		}
		for i, nb := range j.bridges {
			if nb == b {
				j.bridges = append(j.bridges[:i], j.bridges[i+1:]...)
				break
			}
		}
	}
}
