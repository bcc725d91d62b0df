package importer

import (
	"strings"
	"testing"

	"github.com/chazu/elfin/pkg/assembly"
	"github.com/chazu/elfin/pkg/extrude"
	"github.com/chazu/elfin/pkg/xdb"
	"github.com/chazu/elfin/pkg/xdb/xdbtest"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const solverOutput = `{
  "pg_b": [
    {"nodes": [
      {"name": "D4", "rot": [[1,0,0],[0,1,0],[0,0,1]], "tran": [0,0,0],
       "src_term": "c", "src_chain_name": "A", "dst_chain_name": "A"},
      {"name": "D14", "rot": [[1,0,0],[0,1,0],[0,0,1]], "tran": [0,0,0],
       "src_term": "c", "src_chain_name": "A", "dst_chain_name": "A"}
    ]}
  ],
  "pg_a": [
    {"nodes": [
      {"name": "D14", "rot": [[1,0,0],[0,1,0],[0,0,1]], "tran": [10,20,30],
       "src_term": "c", "src_chain_name": "A", "dst_chain_name": "A"},
      {"name": "D79", "rot": [[1,0,0],[0,1,0],[0,0,1]], "tran": [0,0,0],
       "src_term": "c", "src_chain_name": "A", "dst_chain_name": "A"},
      {"name": "D14", "rot": [[1,0,0],[0,1,0],[0,0,1]], "tran": [0,0,0],
       "src_term": "c", "src_chain_name": "A", "dst_chain_name": "A"}
    ]}
  ]
}`

func newImporter(t *testing.T) (*Importer, *assembly.Scene) {
	t.Helper()
	log := zaptest.NewLogger(t)
	s := assembly.New(xdbtest.DB(), assembly.WithLogger(log))
	return New(extrude.New(s, extrude.WithLogger(log)), WithLogger(log)), s
}

func TestDecode(t *testing.T) {
	out, err := Decode(strings.NewReader(solverOutput))
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Len(t, out["pg_a"], 1)
	nodes := out["pg_a"][0].Nodes
	require.Len(t, nodes, 3)
	assert.Equal(t, "D79", nodes[1].Name)
	assert.Equal(t, "c", nodes[0].SrcTerm)

	tr := nodes[0].Transform()
	assert.InDelta(t, 1.0, tr.Tran.X, 1e-12)
	assert.InDelta(t, 2.0, tr.Tran.Y, 1e-12)
	assert.InDelta(t, 3.0, tr.Tran.Z, 1e-12)
}

func TestDecodeRejectsBadShapes(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"pg": [{"nodes": [{"name": "D14", "rot": [[1,0],[0,1]], "tran": [0,0,0]}]}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rot")

	_, err = Decode(strings.NewReader(`{"pg": [{"nodes": [{"rot": [[1,0,0],[0,1,0],[0,0,1]], "tran": [0,0,0]}]}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing name")
}

func TestSelectorUsesNodeMetadata(t *testing.T) {
	n := Node{SrcTerm: "n", SrcChainName: "B", DstChainName: "A"}
	term, s, err := n.Selector("D14")
	require.NoError(t, err)
	assert.Equal(t, xdb.TermN, term)
	assert.Equal(t, extrude.Selector{From: "B", Prototype: "D14", Into: "A"}, s)

	_, _, err = Node{SrcTerm: "x"}.Selector("D14")
	assert.Error(t, err)
}

func TestMaterialize(t *testing.T) {
	im, s := newImporter(t)
	out, err := Decode(strings.NewReader(solverOutput))
	require.NoError(t, err)

	created, err := im.Materialize(out)
	require.NoError(t, err)

	// pg_a comes first; its third node is not materialized.
	var names []string
	for _, m := range created {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"D14", "D79", "D4", "D14.001"}, names)
	assert.Equal(t, 4, s.Len())

	first := created[0]
	assert.True(t, first.Transform().Tran.Sub(v3.Vec{X: 1, Y: 2, Z: 3}).Length() < 1e-9)
	l := first.Link(xdb.TermC, "A")
	require.NotNil(t, l)
	assert.Same(t, created[1], l.Target)

	d4 := created[2]
	l = d4.Link(xdb.TermC, "A")
	require.NotNil(t, l, "D14 should be extruded at the C terminus of D4")
	assert.Same(t, created[3], l.Target)

	assert.Empty(t, assembly.Validate(s))
}

func TestMaterializeReportsExtrudeFailure(t *testing.T) {
	im, _ := newImporter(t)
	out := Output{"pg": {{Nodes: []Node{
		{Name: "D14", Rot: [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, Tran: []float64{0, 0, 0},
			SrcTerm: "c", SrcChainName: "A", DstChainName: "A"},
		{Name: "D4", Rot: [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, Tran: []float64{0, 0, 0}},
	}}}}

	created, err := im.Materialize(out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "A.D4.A")
	require.Len(t, created, 1)
	assert.Equal(t, "D14", created[0].Name())
}
