// Package xdbtest provides a small compatibility database for tests.
package xdbtest

import (
	"math"

	"github.com/chazu/elfin/pkg/xdb"
)

// Prototype names in the fixture.
const (
	D14 = "D14"
	D79 = "D79"
	D4  = "D4"

	// SymHub is a symmetric three-chain hub (chains A, B, C) built on D14.
	SymHub = "D14_j3_sym"
	// AsymHub is a non-symmetric two-chain hub (chains A, B) built on D79.
	AsymHub = "D79_j2_asym"
)

// Rel returns a relation rotating deg degrees about Z then translating by
// (x, y, z) database units.
func Rel(deg, x, y, z float64) xdb.Relation {
	a := deg * math.Pi / 180
	c, s := math.Cos(a), math.Sin(a)
	return xdb.Relation{
		Rot:  [][]float64{{c, -s, 0}, {s, c, 0}, {0, 0, 1}},
		Tran: []float64{x, y, z},
	}
}

// DB returns a fresh fixture database. Callers may mutate the result.
func DB() *xdb.DB {
	db := xdb.New()
	db.SingleData[D14] = xdb.SingleData{Radii: xdb.Radii{AverageAll: 12, MaxCA: 15, MaxHeavy: 17}}
	db.SingleData[D79] = xdb.SingleData{Radii: xdb.Radii{AverageAll: 10, MaxCA: 13, MaxHeavy: 14}}
	db.SingleData[D4] = xdb.SingleData{Radii: xdb.Radii{AverageAll: 8, MaxCA: 9, MaxHeavy: 11}}
	// A double module; never offered for placement.
	db.SingleData["D14-D79"] = xdb.SingleData{}

	db.DoubleData[D14] = map[string]xdb.Relation{
		D14: Rel(30, 300, 0, 0),
		D79: Rel(-45, 280, 40, 0),
	}
	db.DoubleData[D79] = map[string]xdb.Relation{
		D14: Rel(60, 250, -30, 10),
		D79: Rel(15, 260, 0, 0),
	}
	db.DoubleData[D4] = map[string]xdb.Relation{
		D14: Rel(90, 200, 0, 0),
	}

	sym := xdb.HubData{
		Symmetric:     true,
		ComponentData: make(map[string]xdb.ChainData),
		Radii:         xdb.Radii{AverageAll: 25},
	}
	for i, chain := range []string{"A", "B", "C"} {
		deg := float64(i) * 120
		a := deg * math.Pi / 180
		x, y := 350*math.Cos(a), 350*math.Sin(a)
		sym.ComponentData[chain] = xdb.ChainData{
			SingleName:   D14,
			NConnections: map[string]xdb.Relation{D14: Rel(deg, x, y, 0)},
			CConnections: map[string]xdb.Relation{
				D14: Rel(deg+180, -x, -y, 0),
				D79: Rel(deg+170, -x, -y, 20),
			},
		}
	}
	db.HubData[SymHub] = sym

	db.HubData[AsymHub] = xdb.HubData{
		ComponentData: map[string]xdb.ChainData{
			"A": {
				SingleName:   D79,
				NConnections: map[string]xdb.Relation{D79: Rel(10, 30, 300, 0)},
				CConnections: map[string]xdb.Relation{D14: Rel(-20, 10, -310, 0)},
			},
			"B": {
				SingleName:   D79,
				NConnections: map[string]xdb.Relation{D14: Rel(200, -40, 290, 5)},
				CConnections: map[string]xdb.Relation{D79: Rel(170, 0, -300, 0)},
			},
		},
		Radii: xdb.Radii{AverageAll: 20},
	}
	return db
}
