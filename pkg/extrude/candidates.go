package extrude

import (
	"fmt"

	"github.com/chazu/elfin/pkg/assembly"
	"github.com/chazu/elfin/pkg/xdb"
)

// Candidates lists every selector that may be extruded from sel at
// terminus t. Occupied chains are never offered. A symmetric hub offers
// only its first free chain, since the other chains are filled as
// mirrors. Symmetric hubs are never offered as targets from a single.
func Candidates(db *xdb.DB, sel *assembly.Module, t xdb.Terminus) ([]Selector, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("extrude: bad terminus %q", t)
	}
	var out []Selector
	switch sel.Type {
	case xdb.KindHub:
		hub, err := db.Hub(sel.Prototype)
		if err != nil {
			return nil, err
		}
		occupied := sel.OccupiedChains(t)
		for _, chain := range hub.ChainIDs() {
			if occupied[chain] {
				continue
			}
			for _, name := range xdb.ConnectionNames(hub.ComponentData[chain].Connections(t)) {
				out = append(out, Selector{From: chain, Prototype: name, Into: "A"})
			}
			if hub.Symmetric {
				break
			}
		}

	case xdb.KindSingle:
		if sel.LinkCount(t) > 0 {
			return nil, nil
		}
		if t == xdb.TermN {
			for _, a := range db.Singles() {
				if db.HasDouble(a, sel.Prototype) {
					out = append(out, Selector{From: "A", Prototype: a, Into: "A"})
				}
			}
		} else {
			for _, b := range xdb.ConnectionNames(db.DoubleData[sel.Prototype]) {
				out = append(out, Selector{From: "A", Prototype: b, Into: "A"})
			}
		}
		// A hub extruded from a single attaches by the opposite terminus
		// of one of its chains.
		for _, name := range db.Hubs() {
			if db.HubData[name].Symmetric {
				continue
			}
			for _, chain := range db.CompatibleHubComponents(name, t.Opposite(), sel.Prototype) {
				out = append(out, Selector{From: "A", Prototype: name, Into: chain})
			}
		}

	default:
		return nil, fmt.Errorf("extrude: unknown module type %v", sel.Type)
	}
	return out, nil
}
