// Package xdb holds the module compatibility database: which prototypes may
// be joined to which, and the rigid transform that relates their frames.
//
// The database is read-only once loaded and may be shared freely.
package xdb

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultRadius is used for prototypes whose radii are not recorded.
const DefaultRadius = 1.0

// Terminus names one of the two connection ends of a chain.
type Terminus string

const (
	TermN Terminus = "N"
	TermC Terminus = "C"
)

// Opposite returns the other terminus.
func (t Terminus) Opposite() Terminus {
	if t == TermN {
		return TermC
	}
	return TermN
}

// Valid reports whether t is N or C.
func (t Terminus) Valid() bool {
	return t == TermN || t == TermC
}

// ParseTerminus accepts "n", "N", "c" or "C".
func ParseTerminus(s string) (Terminus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "N":
		return TermN, nil
	case "C":
		return TermC, nil
	}
	return "", fmt.Errorf("xdb: invalid terminus %q, expected N or C", s)
}

// PrototypeKind distinguishes single modules from multi-chain hubs.
type PrototypeKind int

const (
	KindSingle PrototypeKind = iota // one chain, two termini
	KindHub                         // several named component chains
)

func (k PrototypeKind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindHub:
		return "hub"
	default:
		return fmt.Sprintf("PrototypeKind(%d)", int(k))
	}
}

// Relation is a stored rigid transform. Rot is a row-major 3x3 rotation and
// Tran a translation in database units. Shapes are checked on load and on
// every lookup.
type Relation struct {
	Rot  [][]float64 `yaml:"rot" json:"rot"`
	Tran []float64   `yaml:"tran" json:"tran"`
}

// Radii records the characteristic sizes of a prototype.
type Radii struct {
	AverageAll float64 `yaml:"average_all" json:"average_all"`
	MaxCA      float64 `yaml:"max_ca_dist" json:"max_ca_dist"`
	MaxHeavy   float64 `yaml:"max_heavy_dist" json:"max_heavy_dist"`
}

// SingleData describes a single prototype.
type SingleData struct {
	Radii Radii `yaml:"radii" json:"radii"`
}

// ChainData describes one component chain of a hub. SingleName is the
// single prototype whose frame the component is defined against.
type ChainData struct {
	SingleName   string              `yaml:"single_name" json:"single_name"`
	NConnections map[string]Relation `yaml:"n_connections" json:"n_connections"`
	CConnections map[string]Relation `yaml:"c_connections" json:"c_connections"`
}

// HubData describes a hub prototype.
type HubData struct {
	Symmetric     bool                 `yaml:"symmetric" json:"symmetric"`
	ComponentData map[string]ChainData `yaml:"component_data" json:"component_data"`
	Radii         Radii                `yaml:"radii" json:"radii"`
}

// DB is the complete compatibility database.
type DB struct {
	SingleData map[string]SingleData          `yaml:"single_data" json:"single_data"`
	DoubleData map[string]map[string]Relation `yaml:"double_data" json:"double_data"`
	HubData    map[string]HubData             `yaml:"hub_data" json:"hub_data"`
}

// New returns an empty database.
func New() *DB {
	return &DB{
		SingleData: make(map[string]SingleData),
		DoubleData: make(map[string]map[string]Relation),
		HubData:    make(map[string]HubData),
	}
}

// Double returns the single-to-single relation placing b relative to a,
// where b is attached to a's C terminus.
func (db *DB) Double(a, b string) (Relation, error) {
	row, ok := db.DoubleData[a]
	if !ok {
		return Relation{}, &LookupError{Table: "double_data", Keys: []string{a}}
	}
	rel, ok := row[b]
	if !ok {
		return Relation{}, &LookupError{Table: "double_data", Keys: []string{a, b}}
	}
	if err := rel.Validate(); err != nil {
		return Relation{}, fmt.Errorf("xdb: double_data[%s][%s]: %w", a, b, err)
	}
	return rel, nil
}

// HasDouble reports whether a single-to-single relation a->b exists.
func (db *DB) HasDouble(a, b string) bool {
	_, err := db.Double(a, b)
	return err == nil
}

// Hub returns the hub entry for name.
func (db *DB) Hub(name string) (HubData, error) {
	h, ok := db.HubData[name]
	if !ok {
		return HubData{}, &LookupError{Table: "hub_data", Keys: []string{name}}
	}
	return h, nil
}

// Component returns the component data for a chain of a hub.
func (db *DB) Component(hub, chain string) (ChainData, error) {
	h, err := db.Hub(hub)
	if err != nil {
		return ChainData{}, err
	}
	c, ok := h.ComponentData[chain]
	if !ok {
		return ChainData{}, &LookupError{Table: "hub_data", Keys: []string{hub, "component_data", chain}}
	}
	return c, nil
}

// NRelation returns the relation for a single attached at this chain's
// N terminus.
func (c ChainData) NRelation(single string) (Relation, error) {
	rel, ok := c.NConnections[single]
	if !ok {
		return Relation{}, &LookupError{Table: "n_connections", Keys: []string{c.SingleName, single}}
	}
	if err := rel.Validate(); err != nil {
		return Relation{}, fmt.Errorf("xdb: n_connections[%s][%s]: %w", c.SingleName, single, err)
	}
	return rel, nil
}

// CRelation returns the relation for a single attached at this chain's
// C terminus.
func (c ChainData) CRelation(single string) (Relation, error) {
	rel, ok := c.CConnections[single]
	if !ok {
		return Relation{}, &LookupError{Table: "c_connections", Keys: []string{c.SingleName, single}}
	}
	if err := rel.Validate(); err != nil {
		return Relation{}, fmt.Errorf("xdb: c_connections[%s][%s]: %w", c.SingleName, single, err)
	}
	return rel, nil
}

// Connections returns the connection table of the chain for terminus t.
func (c ChainData) Connections(t Terminus) map[string]Relation {
	if t == TermN {
		return c.NConnections
	}
	return c.CConnections
}

// Kind classifies a prototype name.
func (db *DB) Kind(name string) (PrototypeKind, error) {
	if _, ok := db.HubData[name]; ok {
		return KindHub, nil
	}
	if _, ok := db.SingleData[name]; ok {
		return KindSingle, nil
	}
	return 0, &LookupError{Table: "prototypes", Keys: []string{name}}
}

// Prototypes returns every placeable prototype, sorted. Double modules
// (names containing "-") are never placeable.
func (db *DB) Prototypes() []string {
	names := make([]string, 0, len(db.SingleData)+len(db.HubData))
	for n := range db.SingleData {
		if !strings.Contains(n, "-") {
			names = append(names, n)
		}
	}
	for n := range db.HubData {
		if !strings.Contains(n, "-") {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Singles returns the single prototype names, sorted.
func (db *DB) Singles() []string {
	return sortedKeys(db.SingleData)
}

// Hubs returns the hub prototype names, sorted.
func (db *DB) Hubs() []string {
	return sortedKeys(db.HubData)
}

// ChainIDs returns the component chain ids of hub in sorted order.
func (h HubData) ChainIDs() []string {
	return sortedKeys(h.ComponentData)
}

// ConnectionNames returns the prototype names in a connection table, sorted.
func ConnectionNames(conns map[string]Relation) []string {
	return sortedKeys(conns)
}

// CompatibleHubComponents returns the chains of hub whose t-terminus
// connection list contains single.
func (db *DB) CompatibleHubComponents(hub string, t Terminus, single string) []string {
	h, ok := db.HubData[hub]
	if !ok {
		return nil
	}
	var chains []string
	for _, id := range h.ChainIDs() {
		if _, ok := h.ComponentData[id].Connections(t)[single]; ok {
			chains = append(chains, id)
		}
	}
	return chains
}

// Radius returns the average radius of a prototype.
func (db *DB) Radius(name string) float64 {
	if s, ok := db.SingleData[name]; ok && s.Radii.AverageAll > 0 {
		return s.Radii.AverageAll
	}
	if h, ok := db.HubData[name]; ok && h.Radii.AverageAll > 0 {
		return h.Radii.AverageAll
	}
	return DefaultRadius
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
