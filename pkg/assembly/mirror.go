package assembly

import (
	"fmt"
)

// CanLink reports whether objs can form a mirror set: non-empty, all
// modules, all of one prototype.
func CanLink(objs []Object) bool {
	_, err := homogeneousModules(objs)
	return err == nil
}

func homogeneousModules(objs []Object) ([]*Module, error) {
	if len(objs) == 0 {
		return nil, ValidationError{Message: "no modules to link", Severity: SeverityError}
	}
	mods := make([]*Module, 0, len(objs))
	var proto string
	for i, obj := range objs {
		m, ok := obj.(*Module)
		if !ok {
			return nil, ValidationError{
				ObjectID: obj.ID(),
				Message:  fmt.Sprintf("%s is a %s, not a module", obj.Name(), obj.Kind()),
				Severity: SeverityError,
			}
		}
		if i == 0 {
			proto = m.Prototype
		} else if m.Prototype != proto {
			return nil, ValidationError{
				ObjectID: m.ID(),
				Message:  "selection is not homogenous: some selected modules have a different prototype",
				Severity: SeverityError,
			}
		}
		mods = append(mods, m)
	}
	return mods, nil
}

// LinkMirrors makes mods one mirror set: every member's group becomes the
// whole of mods. Existing groups are replaced without asking.
func LinkMirrors(mods []*Module) error {
	objs := make([]Object, len(mods))
	for i, m := range mods {
		objs[i] = m
	}
	if _, err := homogeneousModules(objs); err != nil {
		return err
	}
	for _, m := range mods {
		m.SetMirrors(mods)
	}
	return nil
}

// LinkByMirror links objs by mirror. If any member already belongs to a
// mirror set, the prompt decides whether to replace it.
func LinkByMirror(objs []Object, p Prompt) error {
	mods, err := homogeneousModules(objs)
	if err != nil {
		return err
	}
	link := func() {
		for _, m := range mods {
			m.SetMirrors(mods)
		}
		p.Message("Link by Mirror", "Operation successful")
	}
	for _, m := range mods {
		if m.HasMirrors() {
			p.YesNo(fmt.Sprintf("%s already has mirrors. Replace?", m.Name()), "Yes, replace.", link, nil)
			return nil
		}
	}
	link()
	return nil
}

// UnlinkMirrors clears the mirror sets of mods. With recursive set every
// peer's set is cleared as well; without it peers keep listing the
// unlinked modules.
func UnlinkMirrors(mods []*Module, recursive bool) {
	for _, m := range mods {
		if recursive {
			for _, p := range m.Mirrors() {
				if p != m {
					p.ClearMirrors()
				}
			}
		}
		m.ClearMirrors()
	}
}

// UnlinkMirrorsPrompt asks whether to unlink recursively, then unlinks.
func UnlinkMirrorsPrompt(mods []*Module, p Prompt) {
	done := func(recursive bool) func() {
		return func() {
			UnlinkMirrors(mods, recursive)
			p.Message("Unlink Mirrors", "Operation successful")
		}
	}
	p.YesNo("Unlink recursively?", "Yes", done(true), done(false))
}

// ListMirrors renders a module's mirror group as "[i] name" lines.
func ListMirrors(m *Module) []string {
	lines := make([]string, 0, len(m.mirrors))
	for i, p := range m.mirrors {
		lines = append(lines, fmt.Sprintf("[%d] %s", i, p.Name()))
	}
	return lines
}
