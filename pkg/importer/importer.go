// Package importer materializes solver output into a scene.
//
// Solver output maps a pathguide network name to a list of solutions. Each
// solution is a chain of nodes carrying the prototype name, the node's
// world frame and the terminus and chains through which the next node
// attaches.
package importer

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/chazu/elfin/pkg/assembly"
	"github.com/chazu/elfin/pkg/extrude"
	"github.com/chazu/elfin/pkg/frame"
	"github.com/chazu/elfin/pkg/xdb"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Node is one module of a solution.
type Node struct {
	Name         string      `yaml:"name"`
	Rot          [][]float64 `yaml:"rot"`
	Tran         []float64   `yaml:"tran"`
	SrcTerm      string      `yaml:"src_term"`
	SrcChainName string      `yaml:"src_chain_name"`
	DstChainName string      `yaml:"dst_chain_name"`
}

// Solution is one solver result for a network.
type Solution struct {
	Nodes []Node `yaml:"nodes"`
}

// Output is the complete solver output keyed by network name.
type Output map[string][]Solution

// Decode reads solver output. The solver writes JSON, which the YAML
// decoder accepts as is.
func Decode(r io.Reader) (Output, error) {
	var out Output
	if err := yaml.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("importer: decode: %w", err)
	}
	for name, sols := range out {
		for i, sol := range sols {
			for j, n := range sol.Nodes {
				if err := n.check(); err != nil {
					return nil, fmt.Errorf("importer: %s solution %d node %d: %w", name, i, j, err)
				}
			}
		}
	}
	return out, nil
}

// Load reads solver output from path.
func Load(path string) (Output, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("importer: open: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func (n Node) check() error {
	if n.Name == "" {
		return fmt.Errorf("missing name")
	}
	if len(n.Rot) != 3 {
		return fmt.Errorf("%s: rot has %d rows, want 3", n.Name, len(n.Rot))
	}
	for i, row := range n.Rot {
		if len(row) != 3 {
			return fmt.Errorf("%s: rot row %d has %d columns, want 3", n.Name, i, len(row))
		}
	}
	if len(n.Tran) != 3 {
		return fmt.Errorf("%s: tran has %d components, want 3", n.Name, len(n.Tran))
	}
	return nil
}

// Transform returns the node's world frame in scene units.
func (n Node) Transform() frame.Transform {
	var rot [3][3]float64
	for i := range rot {
		copy(rot[i][:], n.Rot[i])
	}
	tran := v3.Vec{X: n.Tran[0], Y: n.Tran[1], Z: n.Tran[2]}.DivScalar(frame.UnitConversion)
	return frame.FromRotTran(rot, tran)
}

// Selector returns the selector extruding next from n, and the terminus
// it extrudes at.
func (n Node) Selector(next string) (xdb.Terminus, extrude.Selector, error) {
	t, err := xdb.ParseTerminus(n.SrcTerm)
	if err != nil {
		return "", extrude.Selector{}, err
	}
	return t, extrude.Selector{From: n.SrcChainName, Prototype: next, Into: n.DstChainName}, nil
}

// Importer places solver output through an extruder.
type Importer struct {
	ext *extrude.Extruder
	log *zap.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the importer's logger.
func WithLogger(l *zap.Logger) Option {
	return func(im *Importer) { im.log = l }
}

// New returns an importer that materializes into ext's scene.
func New(ext *extrude.Extruder, opts ...Option) *Importer {
	im := &Importer{ext: ext, log: zap.NewNop()}
	for _, o := range opts {
		o(im)
	}
	return im
}

// Materialize projects out into the scene, visiting networks in name
// order. For each solution the first node is placed at its frame and the
// second is extruded from it; later nodes are not materialized. It returns
// the modules created. The selection is cleared before each placement.
func (im *Importer) Materialize(out Output) ([]*assembly.Module, error) {
	names := make([]string, 0, len(out))
	for name := range out {
		names = append(names, name)
	}
	sort.Strings(names)

	var created []*assembly.Module
	scene := im.ext.Scene()
	for _, name := range names {
		for i, sol := range out[name] {
			var prev *Node
			var base *assembly.Module
			for j := range sol.Nodes {
				node := &sol.Nodes[j]
				im.log.Debug("materializing node",
					zap.String("network", name),
					zap.Int("solution", i),
					zap.String("node", node.Name),
				)
				if prev == nil {
					scene.ClearSelection()
					m, err := im.ext.PlaceAt(node.Name, im.ext.NextColor(), node.Transform())
					if err != nil {
						return created, fmt.Errorf("importer: %s solution %d: %w", name, i, err)
					}
					created = append(created, m)
					base = m
					prev = node
					continue
				}

				t, s, err := prev.Selector(node.Name)
				if err != nil {
					return created, fmt.Errorf("importer: %s solution %d: %w", name, i, err)
				}
				before := scene.Len()
				m, err := im.ext.Extrude(base, t, s, im.ext.NextColor())
				if err != nil {
					return created, fmt.Errorf("importer: %s solution %d: extrude %s: %w", name, i, s.Format(t), err)
				}
				if m != nil {
					created = append(created, m)
				} else if scene.Len() > before {
					created = append(created, scene.SelectedModules()...)
				}
				break
			}
		}
	}
	im.log.Info("materialized solver output", zap.Int("networks", len(names)), zap.Int("modules", len(created)))
	return created, nil
}
