package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/elfin/pkg/assembly"
	"github.com/chazu/elfin/pkg/extrude"
	"github.com/chazu/elfin/pkg/xdb"
	zygo "github.com/glycerine/zygomys/zygo"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing scene objects through the zygomys environment
// ---------------------------------------------------------------------------

// sexpModule wraps a module so builtins can hand it to each other.
type sexpModule struct {
	m *assembly.Module
}

func (s *sexpModule) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(module %q)", s.m.Name())
}
func (s *sexpModule) Type() *zygo.RegisteredType { return nil }

type sexpJoint struct {
	j *assembly.Joint
}

func (s *sexpJoint) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(joint %q)", s.j.Name())
}
func (s *sexpJoint) Type() *zygo.RegisteredType { return nil }

type sexpBridge struct {
	b *assembly.Bridge
}

func (s *sexpBridge) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(bridge %q)", s.b.Name())
}
func (s *sexpBridge) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW reports whether s is a preprocessed keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments. A
// keyword directly followed by another keyword, or ending the list, is a
// flag with a null value.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			if _, next := isKW(args[i+1]); !next {
				result.kw[name] = args[i+1]
				i++
				continue
			}
		}
		result.kw[name] = zygo.SexpNull
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_c) and plain strings ("c").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

// toBool treats a null flag value as true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

func toTerminus(s zygo.Sexp) (xdb.Terminus, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return "", fmt.Errorf("expected terminus keyword (:n, :c): %w", err)
	}
	return xdb.ParseTerminus(name)
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func stringList(ss []string) zygo.Sexp {
	items := make([]zygo.Sexp, len(ss))
	for i, s := range ss {
		items[i] = &zygo.SexpStr{S: s}
	}
	return zygo.MakeList(items)
}

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

// session is the state one evaluation's builtins share.
type session struct {
	ext     *extrude.Extruder
	scene   *assembly.Scene
	log     *zap.Logger
	created []*assembly.Module
}

// track records the modules fn adds to the scene and returns them.
func (s *session) track(fn func() error) ([]*assembly.Module, error) {
	before := make(map[*assembly.Module]bool)
	for _, m := range s.scene.Modules() {
		before[m] = true
	}
	err := fn()
	var added []*assembly.Module
	for _, m := range s.scene.Modules() {
		if !before[m] {
			added = append(added, m)
		}
	}
	s.created = append(s.created, added...)
	return added, err
}

// createdNames lists the tracked modules that are still in the scene.
func (s *session) createdNames() []string {
	var out []string
	for _, m := range s.created {
		if s.scene.Contains(m) {
			out = append(out, m.Name())
		}
	}
	return out
}

// toObject resolves a wrapped object or an object name.
func (s *session) toObject(v zygo.Sexp) (assembly.Object, error) {
	switch o := v.(type) {
	case *sexpModule:
		return o.m, nil
	case *sexpJoint:
		return o.j, nil
	case *sexpBridge:
		return o.b, nil
	case *zygo.SexpStr:
		if obj := s.scene.Lookup(o.S); obj != nil {
			return obj, nil
		}
		return nil, fmt.Errorf("no object named %q", o.S)
	}
	return nil, fmt.Errorf("expected object or name, got %T (%s)", v, v.SexpString(nil))
}

func (s *session) toModule(v zygo.Sexp) (*assembly.Module, error) {
	if str, ok := v.(*zygo.SexpStr); ok {
		return s.scene.Module(str.S)
	}
	if m, ok := v.(*sexpModule); ok {
		return m.m, nil
	}
	return nil, fmt.Errorf("expected module, got %T (%s)", v, v.SexpString(nil))
}

func (s *session) toJoint(v zygo.Sexp) (*assembly.Joint, error) {
	obj, err := s.toObject(v)
	if err != nil {
		return nil, err
	}
	j, ok := obj.(*assembly.Joint)
	if !ok {
		return nil, fmt.Errorf("%s is a %s, not a joint", obj.Name(), obj.Kind())
	}
	return j, nil
}

// toModules resolves every argument to a module. Lists, such as the
// result of a symmetric hub extrusion, are flattened.
func (s *session) toModules(args []zygo.Sexp) ([]*assembly.Module, error) {
	var out []*assembly.Module
	for i, a := range args {
		switch a.(type) {
		case *zygo.SexpPair, *zygo.SexpArray:
			items, err := sexpListToSlice(a)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i+1, err)
			}
			ms, err := s.toModules(items)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i+1, err)
			}
			out = append(out, ms...)
			continue
		}
		m, err := s.toModule(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// color returns the :color keyword's value or the next wheel color.
func (s *session) color(pa kwArgs) (assembly.Color, error) {
	v, ok := pa.kw["color"]
	if !ok {
		return s.ext.NextColor(), nil
	}
	hex, err := toString(v)
	if err != nil {
		return assembly.Color{}, err
	}
	return assembly.ParseColor(hex)
}

func wrapModules(ms []*assembly.Module) zygo.Sexp {
	items := make([]zygo.Sexp, len(ms))
	for i, m := range ms {
		items[i] = &sexpModule{m: m}
	}
	return zygo.MakeList(items)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the livebuild builtins into env, bound to ses.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens and kebab-case names are in the form registered here.
func registerBuiltins(env *zygo.Zlisp, ses *session) {

	// -----------------------------------------------------------------------
	// (place "D14" :color "#4A90D9")
	// -----------------------------------------------------------------------
	env.AddFunction("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("place requires a prototype name")
		}
		proto, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: prototype: %w", err)
		}
		c, err := ses.color(pa)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: color: %w", err)
		}
		var m *assembly.Module
		if _, err := ses.track(func() error {
			m, err = ses.ext.Place(proto, c)
			return err
		}); err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}
		return &sexpModule{m: m}, nil
	})

	// -----------------------------------------------------------------------
	// (extrude-n m "A.D14.A" :color "#E67E22")
	// (extrude-c m "A.D14.A")
	//
	// Returns the new module, or for a symmetric hub the list of modules
	// filling its chains.
	// -----------------------------------------------------------------------
	extrudeFn := func(t xdb.Terminus) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
		label := "extrude-" + strings.ToLower(string(t))
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			if len(pa.positional) != 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires a module and a selector", label)
			}
			sel, err := ses.toModule(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: module: %w", label, err)
			}
			str, err := toString(pa.positional[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: selector: %w", label, err)
			}
			s, err := extrude.ParseSelector(t, str)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", label, err)
			}
			c, err := ses.color(pa)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: color: %w", label, err)
			}
			var primary *assembly.Module
			added, err := ses.track(func() error {
				primary, err = ses.ext.Extrude(sel, t, s, c)
				return err
			})
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", label, err)
			}
			if primary != nil {
				return &sexpModule{m: primary}, nil
			}
			return wrapModules(added), nil
		}
	}
	env.AddFunction("extrude_n", extrudeFn(xdb.TermN))
	env.AddFunction("extrude_c", extrudeFn(xdb.TermC))

	// -----------------------------------------------------------------------
	// (module "D14.001")
	// -----------------------------------------------------------------------
	env.AddFunction("module", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("module requires a name argument")
		}
		m, err := ses.toModule(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("module: %w", err)
		}
		return &sexpModule{m: m}, nil
	})

	// -----------------------------------------------------------------------
	// (select m1 m2 ...)
	// (deselect-all)
	// -----------------------------------------------------------------------
	env.AddFunction("select", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		for i, a := range args {
			obj, err := ses.toObject(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("select: argument %d: %w", i+1, err)
			}
			ses.scene.Select(obj)
		}
		return &zygo.SexpInt{Val: int64(ses.scene.SelectionLen())}, nil
	})

	env.AddFunction("deselect_all", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		ses.scene.ClearSelection()
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (link-mirrors m1 m2 ...)
	// (unlink-mirrors :recursive true m1 ...)
	// (mirrors m)
	// -----------------------------------------------------------------------
	env.AddFunction("link_mirrors", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		mods, err := ses.toModules(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("link-mirrors: %w", err)
		}
		if err := assembly.LinkMirrors(mods); err != nil {
			return zygo.SexpNull, fmt.Errorf("link-mirrors: %w", err)
		}
		return wrapModules(mods), nil
	})

	env.AddFunction("unlink_mirrors", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		recursive := false
		if v, ok := pa.kw["recursive"]; ok {
			b, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("unlink-mirrors: recursive: %w", err)
			}
			recursive = b
		}
		mods, err := ses.toModules(pa.positional)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("unlink-mirrors: %w", err)
		}
		assembly.UnlinkMirrors(mods, recursive)
		return zygo.SexpNull, nil
	})

	env.AddFunction("mirrors", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("mirrors requires a module")
		}
		m, err := ses.toModule(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("mirrors: %w", err)
		}
		return wrapModules(m.Mirrors()), nil
	})

	// -----------------------------------------------------------------------
	// (links m)
	// -----------------------------------------------------------------------
	env.AddFunction("links", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("links requires a module")
		}
		m, err := ses.toModule(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("links: %w", err)
		}
		return stringList(m.LinkSummary()), nil
	})

	// -----------------------------------------------------------------------
	// (destroy m ...)
	// -----------------------------------------------------------------------
	env.AddFunction("destroy", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		for i, a := range args {
			obj, err := ses.toObject(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("destroy: argument %d: %w", i+1, err)
			}
			ses.log.Debug("destroying from script", zap.String("object", obj.Name()))
			ses.scene.Destroy(obj)
		}
		return &zygo.SexpInt{Val: int64(ses.scene.Len())}, nil
	})

	// -----------------------------------------------------------------------
	// (joint "j1")
	// (bridge j1 j2)
	// -----------------------------------------------------------------------
	env.AddFunction("joint", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("joint requires a name argument")
		}
		jn, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("joint: name: %w", err)
		}
		return &sexpJoint{j: ses.scene.NewJoint(jn)}, nil
	})

	env.AddFunction("bridge", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("bridge requires two joints, got %d arguments", len(args))
		}
		a, err := ses.toJoint(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("bridge: first joint: %w", err)
		}
		b, err := ses.toJoint(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("bridge: second joint: %w", err)
		}
		br, err := ses.scene.CreateBridge(a, b)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("bridge: %w", err)
		}
		return &sexpBridge{b: br}, nil
	})

	// -----------------------------------------------------------------------
	// (candidates m :c)
	// -----------------------------------------------------------------------
	env.AddFunction("candidates", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("candidates requires a module and a terminus")
		}
		m, err := ses.toModule(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("candidates: %w", err)
		}
		t, err := toTerminus(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("candidates: %w", err)
		}
		sels, err := extrude.Candidates(ses.scene.DB(), m, t)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("candidates: %w", err)
		}
		out := make([]string, len(sels))
		for i, s := range sels {
			out[i] = s.Format(t)
		}
		return stringList(out), nil
	})
}
