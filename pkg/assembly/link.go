package assembly

import (
	"fmt"

	"github.com/chazu/elfin/pkg/xdb"
)

// Terminus is one end of a chain: N or C.
type Terminus = xdb.Terminus

const (
	TermN = xdb.TermN
	TermC = xdb.TermC
)

// Link is one side of a chain connection, owned by the module whose
// terminus it sits on. Every live link has a reciprocal on Target's
// opposite terminus pointing back at the owner with the chain ids swapped.
type Link struct {
	Terminus    Terminus
	SourceChain string
	Target      *Module // non-owning; nil once severed
	TargetChain string

	owner *Module
}

// Owner returns the module holding this link.
func (l *Link) Owner() *Module { return l.owner }

func (l *Link) String() string {
	return fmt.Sprintf("Link => (Src CID=%s, Tgt=%v, Tgt CID=%s)", l.SourceChain, l.Target, l.TargetChain)
}

func (m *Module) links(t Terminus) *[]*Link {
	if t == TermN {
		return &m.nLinks
	}
	return &m.cLinks
}

// Links returns a copy of the module's links on terminus t.
func (m *Module) Links(t Terminus) []*Link {
	ls := *m.links(t)
	out := make([]*Link, len(ls))
	copy(out, ls)
	return out
}

// Link returns the link on terminus t for chain, or nil.
func (m *Module) Link(t Terminus, chain string) *Link {
	for _, l := range *m.links(t) {
		if l.SourceChain == chain {
			return l
		}
	}
	return nil
}

// Occupied reports whether chain already has a link on terminus t.
func (m *Module) Occupied(t Terminus, chain string) bool {
	return m.Link(t, chain) != nil
}

// LinkCount returns the number of links on terminus t.
func (m *Module) LinkCount(t Terminus) int {
	return len(*m.links(t))
}

// OccupiedChains returns the chain ids with a link on terminus t.
func (m *Module) OccupiedChains(t Terminus) map[string]bool {
	out := make(map[string]bool)
	for _, l := range *m.links(t) {
		out[l.SourceChain] = true
	}
	return out
}

// AddLink appends a link to owner's terminus t. It does not create the
// reciprocal; see Connect.
func AddLink(owner *Module, t Terminus, sourceChain string, target *Module, targetChain string) *Link {
	l := &Link{
		Terminus:    t,
		SourceChain: sourceChain,
		Target:      target,
		TargetChain: targetChain,
		owner:       owner,
	}
	ls := owner.links(t)
	*ls = append(*ls, l)
	return l
}

// NewNLink adds a link on the module's N terminus.
func (m *Module) NewNLink(sourceChain string, target *Module, targetChain string) *Link {
	return AddLink(m, TermN, sourceChain, target, targetChain)
}

// NewCLink adds a link on the module's C terminus.
func (m *Module) NewCLink(sourceChain string, target *Module, targetChain string) *Link {
	return AddLink(m, TermC, sourceChain, target, targetChain)
}

// Connect creates a matched link pair: a's terminus t at aChain to b, and
// b's opposite terminus at bChain back to a.
func Connect(a *Module, t Terminus, aChain string, b *Module, bChain string) (*Link, *Link) {
	fwd := AddLink(a, t, aChain, b, bChain)
	back := AddLink(b, t.Opposite(), bChain, a, aChain)
	return fwd, back
}

// Sever removes the link and its reciprocal. Severing a link that has
// already been severed, from either side, does nothing.
func (l *Link) Sever() {
	if l.Target == nil {
		return
	}
	target := l.Target
	back := target.links(l.Terminus.Opposite())
	for i, r := range *back {
		if r.SourceChain == l.TargetChain && r.Target == l.owner {
			r.Target = nil
			*back = append((*back)[:i], (*back)[i+1:]...)
			break
		}
	}
	l.Target = nil
	if l.owner != nil {
		l.owner.removeLink(l)
	}
}

func (m *Module) removeLink(l *Link) {
	ls := m.links(l.Terminus)
	for i, x := range *ls {
		if x == l {
			*ls = append((*ls)[:i], (*ls)[i+1:]...)
			return
		}
	}
}

// SeverAll severs every N and C link of m.
func SeverAll(m *Module) {
	for _, l := range m.Links(TermC) {
		l.Sever()
	}
	for _, l := range m.Links(TermN) {
		l.Sever()
	}
}

// SeverLinks is SeverAll as a method.
func (m *Module) SeverLinks() { SeverAll(m) }

// LinkSummary renders the module's links one per line, C terminus first.
func (m *Module) LinkSummary() []string {
	lines := []string{fmt.Sprintf("Links of %s", m.name), "C links:"}
	for _, l := range m.cLinks {
		lines = append(lines, l.String())
	}
	lines = append(lines, "N links:")
	for _, l := range m.nLinks {
		lines = append(lines, l.String())
	}
	return lines
}
