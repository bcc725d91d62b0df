package assembly

import (
	"fmt"

	"github.com/chazu/elfin/pkg/xdb"
)

// ValidationSeverity indicates whether a finding means the scene is broken
// or merely untidy.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // structural invariant violated
	SeverityWarning                           // tolerated, but probably unintended
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding. It doubles as the
// error returned by operations rejected for a user-facing reason.
type ValidationError struct {
	ObjectID ObjectID           // offending object (empty if scene-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.ObjectID == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] object %s: %s", e.Severity, e.ObjectID.Short(), e.Message)
}

// Validate checks the scene's structural invariants and returns every
// finding. It never mutates the scene.
func Validate(s *Scene) []ValidationError {
	var errs []ValidationError
	for _, m := range s.Modules() {
		errs = append(errs, validateLinks(s, m)...)
		errs = append(errs, validateMirrors(s, m)...)
	}
	for _, obj := range s.Objects() {
		if b, ok := obj.(*Bridge); ok {
			errs = append(errs, validateBridge(s, b)...)
		}
	}
	return errs
}

func validateLinks(s *Scene, m *Module) []ValidationError {
	var errs []ValidationError
	bad := func(format string, args ...any) {
		errs = append(errs, ValidationError{
			ObjectID: m.ID(),
			Message:  fmt.Sprintf(format, args...),
			Severity: SeverityError,
		})
	}

	for _, t := range []Terminus{TermN, TermC} {
		links := m.Links(t)
		if m.Type == xdb.KindSingle && len(links) > 1 {
			bad("single module has %d links on terminus %s", len(links), t)
		}
		seen := make(map[string]bool)
		for _, l := range links {
			if seen[l.SourceChain] {
				bad("chain %s is linked twice on terminus %s", l.SourceChain, t)
			}
			seen[l.SourceChain] = true

			if l.owner != m {
				bad("link on %s chain %s has the wrong owner", t, l.SourceChain)
			}
			if l.Target == nil {
				bad("severed link still attached on %s chain %s", t, l.SourceChain)
				continue
			}
			if !s.Contains(l.Target) {
				bad("%s link at chain %s targets %s, which is not in the scene", t, l.SourceChain, l.Target.Name())
				continue
			}
			back := l.Target.Link(t.Opposite(), l.TargetChain)
			if back == nil || back.Target != m || back.TargetChain != l.SourceChain {
				bad("%s link at chain %s to %s has no reciprocal", t, l.SourceChain, l.Target.Name())
			}
		}
	}

	if m.IsHub() && s.db != nil {
		if hub, err := s.db.Hub(m.Prototype); err == nil {
			for _, t := range []Terminus{TermN, TermC} {
				for _, l := range m.Links(t) {
					if _, ok := hub.ComponentData[l.SourceChain]; !ok {
						bad("hub has no chain %s", l.SourceChain)
					}
				}
			}
		}
	}
	return errs
}

func validateMirrors(s *Scene, m *Module) []ValidationError {
	if !m.HasMirrors() {
		return nil
	}
	var errs []ValidationError
	warn := func(format string, args ...any) {
		errs = append(errs, ValidationError{
			ObjectID: m.ID(),
			Message:  fmt.Sprintf(format, args...),
			Severity: SeverityWarning,
		})
	}

	self := false
	for _, p := range m.mirrors {
		if p == m {
			self = true
			continue
		}
		if !s.Contains(p) {
			warn("mirror %s is no longer in the scene", p.Name())
			continue
		}
		if p.Prototype != m.Prototype {
			errs = append(errs, ValidationError{
				ObjectID: m.ID(),
				Message:  fmt.Sprintf("mirror %s has prototype %s, want %s", p.Name(), p.Prototype, m.Prototype),
				Severity: SeverityError,
			})
		}
		if !containsModule(p.mirrors, m) {
			warn("mirror %s does not list %s back", p.Name(), m.Name())
		}
	}
	if !self {
		warn("mirror group does not include the module itself")
	}
	return errs
}

func validateBridge(s *Scene, b *Bridge) []ValidationError {
	var errs []ValidationError
	if len(b.joints) != 2 {
		errs = append(errs, ValidationError{
			ObjectID: b.ID(),
			Message:  fmt.Sprintf("bridge has %d joints, want 2", len(b.joints)),
			Severity: SeverityError,
		})
	}
	for _, j := range b.joints {
		if !s.Contains(j) {
			errs = append(errs, ValidationError{
				ObjectID: b.ID(),
				Message:  "bridge spans a joint that is not in the scene",
				Severity: SeverityError,
			})
			continue
		}
		listed := false
		for _, nb := range j.bridges {
			if nb == b {
				listed = true
				break
			}
		}
		if !listed {
			errs = append(errs, ValidationError{
				ObjectID: b.ID(),
				Message:  fmt.Sprintf("joint %s does not list the bridge", j.Name()),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

func containsModule(ms []*Module, m *Module) bool {
	for _, x := range ms {
		if x == m {
			return true
		}
	}
	return false
}
