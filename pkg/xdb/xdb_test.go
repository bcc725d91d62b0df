package xdb_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/elfin/pkg/xdb"
	"github.com/chazu/elfin/pkg/xdb/xdbtest"
	"github.com/google/go-cmp/cmp"
)

func TestLoadJSON(t *testing.T) {
	db, err := xdb.Load("testdata/small.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := db.Prototypes(); !cmp.Equal(got, []string{"D14", "D14_j2", "D79"}) {
		t.Errorf("Prototypes() = %v", got)
	}
	rel, err := db.Double("D14", "D79")
	if err != nil {
		t.Fatalf("Double: %v", err)
	}
	if diff := cmp.Diff([]float64{300, 0, 0}, rel.Tran); diff != "" {
		t.Errorf("tran mismatch (-want +got):\n%s", diff)
	}
	if r := db.Radius("D14"); r != 12.5 {
		t.Errorf("Radius(D14) = %v, want 12.5", r)
	}
	k, err := db.Kind("D14_j2")
	if err != nil || k != xdb.KindHub {
		t.Errorf("Kind(D14_j2) = %v, %v; want hub", k, err)
	}
}

func TestLoadRejectsInconsistentData(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"testdata/bad_single.yaml", "unknown single_name"},
		{"testdata/bad_rot.yaml", "rows"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			_, err := xdb.Load(tt.file)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load(%s) error = %v, want containing %q", tt.file, err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := xdb.Load("testdata/nope.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLookupErrors(t *testing.T) {
	db := xdbtest.DB()

	_, err := db.Double(xdbtest.D4, xdbtest.D79)
	var le *xdb.LookupError
	if !errors.As(err, &le) {
		t.Fatalf("Double(D4, D79) error = %v, want *LookupError", err)
	}
	if le.Table != "double_data" {
		t.Errorf("table = %q, want double_data", le.Table)
	}

	if _, err := db.Component(xdbtest.SymHub, "Z"); !xdb.IsLookup(err) {
		t.Errorf("Component(sym, Z) error = %v, want lookup error", err)
	}
	if _, err := db.Kind("nope"); !xdb.IsLookup(err) {
		t.Errorf("Kind(nope) error = %v, want lookup error", err)
	}
	c, err := db.Component(xdbtest.SymHub, "A")
	if err != nil {
		t.Fatalf("Component: %v", err)
	}
	if _, err := c.NRelation(xdbtest.D4); !xdb.IsLookup(err) {
		t.Errorf("NRelation(D4) error = %v, want lookup error", err)
	}
}

func TestLookupRejectsMalformedRelation(t *testing.T) {
	db := xdbtest.DB()
	db.DoubleData[xdbtest.D14][xdbtest.D79] = xdb.Relation{Rot: [][]float64{{1, 0, 0}}, Tran: []float64{1, 2, 3}}
	_, err := db.Double(xdbtest.D14, xdbtest.D79)
	if err == nil || !strings.Contains(err.Error(), "rows") {
		t.Fatalf("Double with 1-row rot error = %v, want shape error", err)
	}
	if db.HasDouble(xdbtest.D14, xdbtest.D79) {
		t.Error("a malformed relation is not usable")
	}

	c := xdb.ChainData{
		SingleName:   xdbtest.D14,
		CConnections: map[string]xdb.Relation{xdbtest.D79: {}},
	}
	if _, err := c.CRelation(xdbtest.D79); err == nil {
		t.Error("CRelation with empty relation should fail")
	}
}

func TestPrototypesSkipDoubles(t *testing.T) {
	for _, name := range xdbtest.DB().Prototypes() {
		if strings.Contains(name, "-") {
			t.Errorf("double module %q offered as a prototype", name)
		}
	}
}

func TestCompatibleHubComponents(t *testing.T) {
	db := xdbtest.DB()
	tests := []struct {
		hub    string
		term   xdb.Terminus
		single string
		want   []string
	}{
		{xdbtest.SymHub, xdb.TermC, xdbtest.D79, []string{"A", "B", "C"}},
		{xdbtest.SymHub, xdb.TermN, xdbtest.D79, nil},
		{xdbtest.AsymHub, xdb.TermC, xdbtest.D14, []string{"A"}},
		{xdbtest.AsymHub, xdb.TermN, xdbtest.D14, []string{"B"}},
		{"missing", xdb.TermN, xdbtest.D14, nil},
	}
	for _, tt := range tests {
		got := db.CompatibleHubComponents(tt.hub, tt.term, tt.single)
		if !cmp.Equal(got, tt.want) {
			t.Errorf("CompatibleHubComponents(%s, %s, %s) = %v, want %v", tt.hub, tt.term, tt.single, got, tt.want)
		}
	}
}

func TestRadiusDefault(t *testing.T) {
	db := xdbtest.DB()
	if r := db.Radius("D14-D79"); r != xdb.DefaultRadius {
		t.Errorf("Radius of unrecorded prototype = %v, want %v", r, xdb.DefaultRadius)
	}
	if r := db.Radius(xdbtest.SymHub); r != 25 {
		t.Errorf("Radius(sym hub) = %v, want 25", r)
	}
}

func TestParseTerminus(t *testing.T) {
	for in, want := range map[string]xdb.Terminus{"n": xdb.TermN, "N": xdb.TermN, " c ": xdb.TermC} {
		got, err := xdb.ParseTerminus(in)
		if err != nil || got != want {
			t.Errorf("ParseTerminus(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := xdb.ParseTerminus("x"); err == nil {
		t.Error("ParseTerminus(x) should fail")
	}
	if xdb.TermN.Opposite() != xdb.TermC || xdb.TermC.Opposite() != xdb.TermN {
		t.Error("Opposite is not an involution")
	}
}
