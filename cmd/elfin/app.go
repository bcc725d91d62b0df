package main

import (
	"fmt"
	"io"

	"github.com/chazu/elfin/pkg/assembly"
	"github.com/chazu/elfin/pkg/config"
	"github.com/chazu/elfin/pkg/extrude"
	"github.com/chazu/elfin/pkg/store"
	"github.com/chazu/elfin/pkg/xdb"
	"go.uber.org/zap"
)

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	xdbPath    string
	statePath  string
	sceneName  string
	verbose    bool
	assumeYes  bool
}

// app is the state a command works on: the configured database and the
// working scene loaded from the state file.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	db     *xdb.DB
	st     *store.Store
	scene  *assembly.Scene
	ext    *extrude.Extruder
	prompt assembly.Prompt
	out    io.Writer
}

// openApp loads configuration, the compatibility database and the working
// scene. Flags override configuration values.
func openApp(opts *options, in io.Reader, out io.Writer) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.xdbPath != "" {
		cfg.XDB = opts.xdbPath
	}
	if opts.statePath != "" {
		cfg.State = opts.statePath
	}
	if opts.sceneName != "" {
		cfg.Scene = opts.sceneName
	}

	log, err := cfg.Logger(opts.verbose)
	if err != nil {
		return nil, err
	}
	db, err := xdb.Load(cfg.XDB)
	if err != nil {
		return nil, err
	}
	wheel, err := cfg.ColorWheel()
	if err != nil {
		return nil, fmt.Errorf("config: palette: %w", err)
	}
	st, err := store.Open(cfg.State, store.WithLogger(log))
	if err != nil {
		return nil, err
	}
	scene, err := st.LoadOrNew(cfg.Scene, db, assembly.WithLogger(log))
	if err != nil {
		st.Close()
		return nil, err
	}
	a := &app{
		cfg:    cfg,
		log:    log,
		db:     db,
		st:     st,
		scene:  scene,
		ext:    extrude.New(scene, extrude.WithLogger(log), extrude.WithColorWheel(wheel)),
		prompt: newTermPrompt(in, out, opts.assumeYes),
		out:    out,
	}
	log.Debug("opened scene", zap.String("scene", cfg.Scene), zap.Int("objects", scene.Len()))
	return a, nil
}

// commit refuses to save a scene with error findings; warnings are
// printed and the scene is saved.
func (a *app) commit() error {
	var errs int
	for _, f := range assembly.Validate(a.scene) {
		if f.Severity == assembly.SeverityError {
			errs++
		}
		fmt.Fprintln(a.out, f.Error())
	}
	if errs > 0 {
		return fmt.Errorf("scene %s has %d validation errors; not saved", a.cfg.Scene, errs)
	}
	return a.st.Save(a.cfg.Scene, a.scene)
}

func (a *app) close() {
	a.st.Close()
	_ = a.log.Sync()
}

// objects resolves names to scene objects, or returns the selection when
// names is empty.
func (a *app) objects(names []string) ([]assembly.Object, error) {
	if len(names) == 0 {
		return a.scene.Selected(), nil
	}
	out := make([]assembly.Object, 0, len(names))
	for _, n := range names {
		obj := a.scene.Lookup(n)
		if obj == nil {
			return nil, fmt.Errorf("no object named %q", n)
		}
		out = append(out, obj)
	}
	return out, nil
}

// modules is objects restricted to modules.
func (a *app) modules(names []string) ([]*assembly.Module, error) {
	objs, err := a.objects(names)
	if err != nil {
		return nil, err
	}
	out := make([]*assembly.Module, 0, len(objs))
	for _, obj := range objs {
		m, ok := obj.(*assembly.Module)
		if !ok {
			return nil, fmt.Errorf("%s is a %s, not a module", obj.Name(), obj.Kind())
		}
		out = append(out, m)
	}
	return out, nil
}
