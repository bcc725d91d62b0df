package extrude

import (
	"fmt"
	"strings"

	"github.com/chazu/elfin/pkg/xdb"
)

// Selector names what to extrude: the prototype to attach, the chain of
// the selected module it attaches to (From) and the chain of the new module
// that receives the link (Into).
type Selector struct {
	From      string
	Prototype string
	Into      string
}

// Format renders the selector as "left.name.right", where left is the
// chain nearer the N end of the assembly: into.name.from for an N
// extrusion, from.name.into for a C extrusion.
func (s Selector) Format(t xdb.Terminus) string {
	if t == xdb.TermN {
		return s.Into + "." + s.Prototype + "." + s.From
	}
	return s.From + "." + s.Prototype + "." + s.Into
}

// ParseSelector is the inverse of Format.
func ParseSelector(t xdb.Terminus, s string) (Selector, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 || parts[1] == "" {
		return Selector{}, fmt.Errorf("extrude: selector %q: want left.name.right", s)
	}
	if t == xdb.TermN {
		return Selector{Into: parts[0], Prototype: parts[1], From: parts[2]}, nil
	}
	return Selector{From: parts[0], Prototype: parts[1], Into: parts[2]}, nil
}
