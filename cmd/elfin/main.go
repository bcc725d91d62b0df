// Command elfin builds protein module assemblies from a compatibility
// database. Every command loads the working scene from the state file,
// applies one change and saves it again.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chazu/elfin/pkg/assembly"
	"github.com/chazu/elfin/pkg/config"
	"github.com/chazu/elfin/pkg/engine"
	"github.com/chazu/elfin/pkg/extrude"
	"github.com/chazu/elfin/pkg/importer"
	"github.com/chazu/elfin/pkg/kernel/sdfx"
	"github.com/chazu/elfin/pkg/overlap"
	"github.com/chazu/elfin/pkg/tessellate"
	"github.com/chazu/elfin/pkg/xdb"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "elfin",
		Short: "Assemble protein modules from a compatibility database",
		Long: `elfin places and extrudes protein modules against a compatibility
database, keeping the link graph, mirror sets and selection of a working
scene in a local state file.`,
		SilenceUsage: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(out)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", config.Path(), "configuration file")
	pf.StringVar(&opts.xdbPath, "xdb", "", "compatibility database (overrides config)")
	pf.StringVar(&opts.statePath, "state", "", "state file (overrides config)")
	pf.StringVar(&opts.sceneName, "scene", "", "working scene name (overrides config)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVarP(&opts.assumeYes, "yes", "y", false, "answer yes to every confirmation")

	// run opens the app, calls fn and saves the scene when save is set.
	run := func(save bool, fn func(a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.close()
			if err := fn(a, args); err != nil {
				return err
			}
			if save {
				return a.commit()
			}
			return nil
		}
	}

	root.AddCommand(
		prototypesCmd(run),
		placeCmd(run),
		extrudeCmd(run),
		candidatesCmd(run),
		selectCmd(run),
		linksCmd(run),
		mirrorsCmd(run),
		destroyCmd(run),
		jointCmd(run),
		bridgeCmd(run),
		collideCmd(run),
		importCmd(run),
		runCmd(run),
		meshCmd(run),
		validateCmd(run),
		scenesCmd(run),
	)
	return root
}

type runner func(save bool, fn func(a *app, args []string) error) func(*cobra.Command, []string) error

// ---------------------------------------------------------------------------
// Database
// ---------------------------------------------------------------------------

func prototypesCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "prototypes",
		Short: "List the prototypes of the compatibility database",
		Args:  cobra.NoArgs,
		RunE: run(false, func(a *app, _ []string) error {
			for _, name := range a.db.Prototypes() {
				kind, err := a.db.Kind(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%-20s %s\n", name, kind)
			}
			return nil
		}),
	}
}

// ---------------------------------------------------------------------------
// Building
// ---------------------------------------------------------------------------

func colorFlag(a *app, hex string) (assembly.Color, error) {
	if hex == "" {
		return a.ext.NextColor(), nil
	}
	return assembly.ParseColor(hex)
}

func placeCmd(run runner) *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "place <prototype>",
		Short: "Place a first module at the origin (requires an empty selection)",
		Args:  cobra.ExactArgs(1),
		RunE: run(true, func(a *app, args []string) error {
			c, err := colorFlag(a, color)
			if err != nil {
				return err
			}
			m, err := a.ext.Place(args[0], c)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, m.Name())
			return nil
		}),
	}
	cmd.Flags().StringVar(&color, "color", "", "display color as #rrggbb")
	return cmd
}

func extrudeCmd(run runner) *cobra.Command {
	var color string
	var collide bool
	cmd := &cobra.Command{
		Use:   "extrude <n|c> <selector>",
		Short: "Extrude from every selected module",
		Long: `Extrude attaches a new module at the N or C terminus of every selected
module. The selector reads left.prototype.right, the left chain being the
one nearer the N end of the assembly. Mirrors of the selection are
extruded as well.`,
		Args: cobra.ExactArgs(2),
		RunE: run(true, func(a *app, args []string) error {
			t, err := xdb.ParseTerminus(args[0])
			if err != nil {
				return err
			}
			c, err := colorFlag(a, color)
			if err != nil {
				return err
			}
			before := a.scene.Modules()
			mods, err := a.ext.ExtrudeSelection(t, args[1], c)
			for _, m := range mods {
				fmt.Fprintln(a.out, m.Name())
			}
			if err != nil {
				return err
			}
			if collide {
				var added []string
				seen := make(map[*assembly.Module]bool, len(before))
				for _, m := range before {
					seen[m] = true
				}
				for _, m := range a.scene.Modules() {
					if !seen[m] {
						added = append(added, m.Name())
					}
				}
				chk := overlap.New(a.scene, sdfx.New(sdfx.WithMeshCells(a.cfg.MeshCells)), overlap.WithLogger(a.log))
				if _, err := chk.CheckAndDelete(a.prompt, added...); err != nil {
					return err
				}
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&color, "color", "", "display color as #rrggbb")
	cmd.Flags().BoolVar(&collide, "collide", false, "delete new modules that collide with the scene")
	return cmd
}

func candidatesCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "candidates <module> <n|c>",
		Short: "List the selectors that can be extruded from a module",
		Args:  cobra.ExactArgs(2),
		RunE: run(false, func(a *app, args []string) error {
			m, err := a.scene.Module(args[0])
			if err != nil {
				return err
			}
			t, err := xdb.ParseTerminus(args[1])
			if err != nil {
				return err
			}
			sels, err := extrude.Candidates(a.db, m, t)
			if err != nil {
				return err
			}
			for _, s := range sels {
				fmt.Fprintln(a.out, s.Format(t))
			}
			return nil
		}),
	}
}

func selectCmd(run runner) *cobra.Command {
	var add bool
	cmd := &cobra.Command{
		Use:   "select [object...]",
		Short: "Replace the selection with the named objects; no names clears it",
		RunE: run(true, func(a *app, args []string) error {
			var objs []assembly.Object
			if len(args) > 0 {
				var err error
				if objs, err = a.objects(args); err != nil {
					return err
				}
			}
			if !add {
				a.scene.ClearSelection()
			}
			a.scene.Select(objs...)
			for _, obj := range a.scene.Selected() {
				fmt.Fprintln(a.out, obj.Name())
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&add, "add", false, "add to the selection instead of replacing it")
	return cmd
}

func linksCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "links [module...]",
		Short: "Show the links of modules (default: the selection)",
		RunE: run(false, func(a *app, args []string) error {
			mods, err := a.modules(args)
			if err != nil {
				return err
			}
			for _, m := range mods {
				fmt.Fprintln(a.out, strings.Join(m.LinkSummary(), "\n"))
			}
			return nil
		}),
	}
}

func mirrorsCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirrors",
		Short: "Link, unlink or list mirror sets",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "link [module...]",
			Short: "Bind modules of one prototype into a mirror set (default: the selection)",
			RunE: run(true, func(a *app, args []string) error {
				objs, err := a.objects(args)
				if err != nil {
					return err
				}
				return assembly.LinkByMirror(objs, a.prompt)
			}),
		},
		&cobra.Command{
			Use:   "unlink [module...]",
			Short: "Clear the mirror sets of modules (default: the selection)",
			RunE: run(true, func(a *app, args []string) error {
				mods, err := a.modules(args)
				if err != nil {
					return err
				}
				assembly.UnlinkMirrorsPrompt(mods, a.prompt)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "list <module>",
			Short: "List the mirror set of a module",
			Args:  cobra.ExactArgs(1),
			RunE: run(false, func(a *app, args []string) error {
				m, err := a.scene.Module(args[0])
				if err != nil {
					return err
				}
				for _, line := range assembly.ListMirrors(m) {
					fmt.Fprintln(a.out, line)
				}
				return nil
			}),
		},
	)
	return cmd
}

func destroyCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "destroy [object...]",
		Short: "Destroy objects and their mirrors (default: the selection)",
		RunE: run(true, func(a *app, args []string) error {
			objs, err := a.objects(args)
			if err != nil {
				return err
			}
			before := a.scene.Len()
			for _, obj := range objs {
				a.scene.Destroy(obj)
			}
			fmt.Fprintf(a.out, "destroyed %d objects\n", before-a.scene.Len())
			return nil
		}),
	}
}

func jointCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "joint <name>",
		Short: "Add a joint",
		Args:  cobra.ExactArgs(1),
		RunE: run(true, func(a *app, args []string) error {
			fmt.Fprintln(a.out, a.scene.NewJoint(args[0]).Name())
			return nil
		}),
	}
}

func bridgeCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "bridge <joint> <joint>",
		Short: "Span two joints with a bridge",
		Args:  cobra.ExactArgs(2),
		RunE: run(true, func(a *app, args []string) error {
			var joints [2]*assembly.Joint
			for i, name := range args {
				obj := a.scene.Lookup(name)
				j, ok := obj.(*assembly.Joint)
				if !ok {
					return fmt.Errorf("%q is not a joint", name)
				}
				joints[i] = j
			}
			b, err := a.scene.CreateBridge(joints[0], joints[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, b.Name())
			return nil
		}),
	}
}

func collideCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "collide [module...]",
		Short: "Delete modules that collide with the rest of the scene (default: the selection)",
		RunE: run(true, func(a *app, args []string) error {
			chk := overlap.New(a.scene, sdfx.New(sdfx.WithMeshCells(a.cfg.MeshCells)), overlap.WithLogger(a.log))
			deleted, err := chk.CheckAndDelete(a.prompt, args...)
			for _, name := range deleted {
				fmt.Fprintln(a.out, name)
			}
			return err
		}),
	}
}

func importCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "import <solver-output.json>",
		Short: "Materialize solver output into the scene",
		Args:  cobra.ExactArgs(1),
		RunE: run(true, func(a *app, args []string) error {
			out, err := importer.Load(args[0])
			if err != nil {
				return err
			}
			mods, err := importer.New(a.ext, importer.WithLogger(a.log)).Materialize(out)
			for _, m := range mods {
				fmt.Fprintln(a.out, m.Name())
			}
			return err
		}),
	}
}

func runCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "run <script>",
		Short: "Evaluate a livebuild script against the scene",
		Args:  cobra.ExactArgs(1),
		RunE: run(true, func(a *app, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			eng := engine.NewEngine(a.ext, engine.WithLogger(a.log), engine.WithTimeout(a.cfg.GetScriptTimeout()))
			res, evalErrs, err := eng.Evaluate(string(src))
			if err != nil {
				return err
			}
			if len(evalErrs) > 0 {
				for _, e := range evalErrs {
					fmt.Fprintf(a.out, "%s: %s\n", args[0], e.Error())
				}
				a.log.Warn("script failed", zap.String("script", args[0]), zap.Int("errors", len(evalErrs)))
				return fmt.Errorf("%s: %d evaluation errors", args[0], len(evalErrs))
			}
			for _, name := range res.Created {
				fmt.Fprintln(a.out, name)
			}
			if res.Value != "" {
				fmt.Fprintf(a.out, "=> %s\n", res.Value)
			}
			return nil
		}),
	}
}

func meshCmd(run runner) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "mesh",
		Short: "Tessellate proxy geometry for visible modules, joints and bridges as JSON",
		Args:  cobra.NoArgs,
		RunE: run(false, func(a *app, _ []string) error {
			meshes, err := tessellate.Tessellate(a.scene, sdfx.New(sdfx.WithMeshCells(a.cfg.MeshCells)))
			if err != nil {
				return err
			}
			w := a.out
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(meshes)
		}),
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write meshes to a file instead of stdout")
	return cmd
}

func validateCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the scene's link graph, mirror sets and bridges",
		Args:  cobra.NoArgs,
		RunE: run(false, func(a *app, _ []string) error {
			var errs int
			for _, f := range assembly.Validate(a.scene) {
				if f.Severity == assembly.SeverityError {
					errs++
				}
				fmt.Fprintln(a.out, f.Error())
			}
			if errs > 0 {
				return fmt.Errorf("%d validation errors", errs)
			}
			fmt.Fprintf(a.out, "scene %s: %d objects, ok\n", a.cfg.Scene, a.scene.Len())
			return nil
		}),
	}
}

func scenesCmd(run runner) *cobra.Command {
	var del string
	cmd := &cobra.Command{
		Use:   "scenes",
		Short: "List the scenes in the state file",
		Args:  cobra.NoArgs,
		RunE: run(false, func(a *app, _ []string) error {
			if del != "" {
				return a.st.Delete(del)
			}
			names, err := a.st.Names()
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(a.out, n)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&del, "delete", "", "delete the named scene")
	return cmd
}
