package assembly

import (
	"bytes"
	"strings"
	"testing"

	"github.com/chazu/elfin/pkg/frame"
	"github.com/chazu/elfin/pkg/xdb/xdbtest"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/go-cmp/cmp"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newScene(t *testing.T) *Scene {
	t.Helper()
	return New(xdbtest.DB())
}

func mustModule(t *testing.T, s *Scene, proto string) *Module {
	t.Helper()
	m, err := s.LinkModule(proto)
	if err != nil {
		t.Fatalf("LinkModule(%q): %v", proto, err)
	}
	return m
}

func names(ms []*Module) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.Name()
	}
	return out
}

func requireValid(t *testing.T, s *Scene) {
	t.Helper()
	for _, e := range Validate(s) {
		t.Errorf("unexpected finding: %v", e)
	}
}

// ---------------------------------------------------------------------------
// Scene
// ---------------------------------------------------------------------------

func TestLinkModuleUniqueNames(t *testing.T) {
	s := newScene(t)
	a := mustModule(t, s, xdbtest.D14)
	b := mustModule(t, s, xdbtest.D14)
	c := mustModule(t, s, xdbtest.D14)

	got := []string{a.Name(), b.Name(), c.Name()}
	want := []string{"D14", "D14.001", "D14.002"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if !a.Hidden {
		t.Error("new module should start hidden")
	}
	if a.IsHub() {
		t.Error("D14 is a single")
	}
	if !mustModule(t, s, xdbtest.SymHub).IsHub() {
		t.Error("sym hub should be a hub")
	}
}

func TestLinkModuleUnknownPrototype(t *testing.T) {
	s := newScene(t)
	if _, err := s.LinkModule("nope"); err == nil {
		t.Fatal("expected error for unknown prototype")
	}
	if s.Len() != 0 {
		t.Errorf("scene len = %d, want 0", s.Len())
	}
}

func TestModuleLookupErrors(t *testing.T) {
	s := newScene(t)
	j := s.NewJoint("j")
	if _, err := s.Module("missing"); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := s.Module(j.Name()); err == nil || !strings.Contains(err.Error(), "not a module") {
		t.Errorf("expected not-a-module error, got %v", err)
	}
}

func TestSelectionOrderAndRemoval(t *testing.T) {
	s := newScene(t)
	a := mustModule(t, s, xdbtest.D14)
	b := mustModule(t, s, xdbtest.D79)
	s.Select(b, a, b)

	if diff := cmp.Diff([]string{b.Name(), a.Name()}, names(s.SelectedModules())); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}
	s.Destroy(b)
	if s.IsSelected(b) {
		t.Error("destroyed module should be deselected")
	}
	if s.SelectionLen() != 1 {
		t.Errorf("selection len = %d, want 1", s.SelectionLen())
	}
}

// ---------------------------------------------------------------------------
// Links
// ---------------------------------------------------------------------------

func TestConnectCreatesReciprocal(t *testing.T) {
	s := newScene(t)
	a := mustModule(t, s, xdbtest.D14)
	b := mustModule(t, s, xdbtest.D14)

	fwd, back := Connect(a, TermC, "A", b, "A")
	if fwd.Owner() != a || back.Owner() != b {
		t.Fatal("links have wrong owners")
	}
	if back.Terminus != TermN {
		t.Errorf("reciprocal terminus = %s, want N", back.Terminus)
	}
	if !a.Occupied(TermC, "A") || !b.Occupied(TermN, "A") {
		t.Error("both termini should be occupied")
	}
	requireValid(t, s)
}

func TestSeverIsSymmetricAndIdempotent(t *testing.T) {
	s := newScene(t)
	a := mustModule(t, s, xdbtest.D14)
	b := mustModule(t, s, xdbtest.D14)
	fwd, back := Connect(a, TermC, "A", b, "A")

	back.Sever()
	if fwd.Target != nil || back.Target != nil {
		t.Error("both sides should be severed")
	}
	if a.LinkCount(TermC) != 0 || b.LinkCount(TermN) != 0 {
		t.Errorf("link counts = %d/%d, want 0/0", a.LinkCount(TermC), b.LinkCount(TermN))
	}
	fwd.Sever()
	back.Sever()
	requireValid(t, s)
}

func TestSeverAllHub(t *testing.T) {
	s := newScene(t)
	hub := mustModule(t, s, xdbtest.SymHub)
	var singles []*Module
	for _, chain := range []string{"A", "B", "C"} {
		m := mustModule(t, s, xdbtest.D14)
		Connect(hub, TermC, chain, m, "A")
		singles = append(singles, m)
	}
	n := mustModule(t, s, xdbtest.D14)
	Connect(hub, TermN, "A", n, "A")

	hub.SeverLinks()
	if hub.LinkCount(TermC)+hub.LinkCount(TermN) != 0 {
		t.Error("hub should have no links")
	}
	for _, m := range append(singles, n) {
		if m.LinkCount(TermN)+m.LinkCount(TermC) != 0 {
			t.Errorf("%s still linked", m.Name())
		}
	}
}

func TestLinkSummary(t *testing.T) {
	s := newScene(t)
	a := mustModule(t, s, xdbtest.D14)
	b := mustModule(t, s, xdbtest.D79)
	Connect(a, TermC, "A", b, "A")

	got := a.LinkSummary()
	if len(got) != 4 || got[1] != "C links:" || got[3] != "N links:" {
		t.Fatalf("summary = %q", got)
	}
	if !strings.Contains(got[2], "Tgt=D79(D79)") {
		t.Errorf("summary line = %q", got[2])
	}
}

// ---------------------------------------------------------------------------
// Mirrors
// ---------------------------------------------------------------------------

func TestLinkMirrorsIncludesSelf(t *testing.T) {
	s := newScene(t)
	a := mustModule(t, s, xdbtest.D14)
	b := mustModule(t, s, xdbtest.D14)
	c := mustModule(t, s, xdbtest.D14)

	if err := LinkMirrors([]*Module{a, b, c}); err != nil {
		t.Fatal(err)
	}
	for _, m := range []*Module{a, b, c} {
		if diff := cmp.Diff([]string{"D14", "D14.001", "D14.002"}, names(m.Mirrors())); diff != "" {
			t.Errorf("%s mirrors mismatch (-want +got):\n%s", m.Name(), diff)
		}
		if len(m.Peers()) != 2 {
			t.Errorf("%s peers = %d, want 2", m.Name(), len(m.Peers()))
		}
	}
	// Each member owns its own copy.
	a.ClearMirrors()
	if len(b.Mirrors()) != 3 {
		t.Error("clearing a's group must not touch b's")
	}
}

func TestLinkMirrorsRejectsMixedPrototypes(t *testing.T) {
	s := newScene(t)
	a := mustModule(t, s, xdbtest.D14)
	b := mustModule(t, s, xdbtest.D79)

	err := LinkMirrors([]*Module{a, b})
	ve, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T %v", err, err)
	}
	if !strings.Contains(ve.Message, "not homogenous") {
		t.Errorf("message = %q", ve.Message)
	}
	if a.HasMirrors() || b.HasMirrors() {
		t.Error("rejected link must not set mirrors")
	}
	if CanLink(nil) {
		t.Error("empty selection cannot be linked")
	}
	if CanLink([]Object{a, s.NewJoint("j")}) {
		t.Error("joint cannot be linked by mirror")
	}
}

func TestLinkByMirrorPrompts(t *testing.T) {
	s := newScene(t)
	a := mustModule(t, s, xdbtest.D14)
	b := mustModule(t, s, xdbtest.D14)
	c := mustModule(t, s, xdbtest.D14)
	if err := LinkMirrors([]*Module{a, b}); err != nil {
		t.Fatal(err)
	}

	no := &AutoPrompt{Answer: false}
	if err := LinkByMirror([]Object{a, c}, no); err != nil {
		t.Fatal(err)
	}
	if len(no.Questions) != 1 || no.Questions[0] != "D14 already has mirrors. Replace?" {
		t.Errorf("questions = %q", no.Questions)
	}
	if c.HasMirrors() {
		t.Error("declined replace must leave c alone")
	}

	yes := &AutoPrompt{Answer: true}
	if err := LinkByMirror([]Object{a, c}, yes); err != nil {
		t.Fatal(err)
	}
	if len(c.Mirrors()) != 2 || len(a.Mirrors()) != 2 {
		t.Error("accepted replace should regroup a and c")
	}
	if len(yes.Messages) != 1 || yes.Messages[0] != "Link by Mirror: Operation successful" {
		t.Errorf("messages = %q", yes.Messages)
	}
}

func TestUnlinkMirrorsRecursive(t *testing.T) {
	s := newScene(t)
	a := mustModule(t, s, xdbtest.D14)
	b := mustModule(t, s, xdbtest.D14)
	c := mustModule(t, s, xdbtest.D14)
	if err := LinkMirrors([]*Module{a, b, c}); err != nil {
		t.Fatal(err)
	}

	UnlinkMirrors([]*Module{a}, true)
	for _, m := range []*Module{a, b, c} {
		if m.HasMirrors() {
			t.Errorf("%s should have no mirrors", m.Name())
		}
	}
}

// A non-recursive unlink leaves peers listing the unlinked module. This
// asymmetry is kept on purpose; Validate reports it as a warning.
func TestUnlinkMirrorsNonRecursiveLeavesPeersStale(t *testing.T) {
	s := newScene(t)
	a := mustModule(t, s, xdbtest.D14)
	b := mustModule(t, s, xdbtest.D14)
	if err := LinkMirrors([]*Module{a, b}); err != nil {
		t.Fatal(err)
	}

	p := &AutoPrompt{Answer: false}
	UnlinkMirrorsPrompt([]*Module{a}, p)
	if a.HasMirrors() {
		t.Error("a should be unlinked")
	}
	if diff := cmp.Diff([]string{"D14", "D14.001"}, names(b.Mirrors())); diff != "" {
		t.Errorf("b mirrors mismatch (-want +got):\n%s", diff)
	}
	if len(p.Messages) != 1 || p.Messages[0] != "Unlink Mirrors: Operation successful" {
		t.Errorf("messages = %q", p.Messages)
	}

	var warned bool
	for _, e := range Validate(s) {
		if e.Severity == SeverityWarning && strings.Contains(e.Message, "does not list") {
			warned = true
		}
		if e.Severity == SeverityError {
			t.Errorf("unexpected error: %v", e)
		}
	}
	if !warned {
		t.Error("expected a stale-mirror warning")
	}
}

func TestListMirrors(t *testing.T) {
	s := newScene(t)
	a := mustModule(t, s, xdbtest.D14)
	b := mustModule(t, s, xdbtest.D14)
	if err := LinkMirrors([]*Module{a, b}); err != nil {
		t.Fatal(err)
	}
	want := []string{"[0] D14", "[1] D14.001"}
	if diff := cmp.Diff(want, ListMirrors(b)); diff != "" {
		t.Errorf("ListMirrors mismatch (-want +got):\n%s", diff)
	}
}

// ---------------------------------------------------------------------------
// Destroy
// ---------------------------------------------------------------------------

func TestDestroyCascadesThroughMirrors(t *testing.T) {
	s := newScene(t)
	hub := mustModule(t, s, xdbtest.SymHub)
	var arms []*Module
	for _, chain := range []string{"A", "B", "C"} {
		m := mustModule(t, s, xdbtest.D14)
		Connect(hub, TermC, chain, m, "A")
		arms = append(arms, m)
	}
	if err := LinkMirrors(arms); err != nil {
		t.Fatal(err)
	}

	s.Destroy(arms[1])
	for _, m := range arms {
		if s.Contains(m) {
			t.Errorf("%s should be destroyed", m.Name())
		}
	}
	if !s.Contains(hub) {
		t.Fatal("hub must survive")
	}
	if hub.LinkCount(TermC) != 0 {
		t.Errorf("hub C links = %d, want 0", hub.LinkCount(TermC))
	}
	requireValid(t, s)
}

func TestDestroyIgnoresForeignAndStale(t *testing.T) {
	s := newScene(t)
	a := mustModule(t, s, xdbtest.D14)
	other := New(xdbtest.DB())
	foreign := mustModule(t, other, xdbtest.D14)

	s.Destroy(foreign)
	if !other.Contains(foreign) || s.Len() != 1 {
		t.Error("destroying a foreign object must do nothing")
	}
	s.Destroy(a)
	s.Destroy(a)
	if s.Len() != 0 {
		t.Errorf("scene len = %d, want 0", s.Len())
	}
}

func TestDestroyStaleMirrorReference(t *testing.T) {
	s := newScene(t)
	a := mustModule(t, s, xdbtest.D14)
	b := mustModule(t, s, xdbtest.D14)
	if err := LinkMirrors([]*Module{a, b}); err != nil {
		t.Fatal(err)
	}
	UnlinkMirrors([]*Module{a}, false)
	s.Destroy(a)
	// b still lists a; destroying b must not trip over it.
	s.Destroy(b)
	if s.Len() != 0 {
		t.Errorf("scene len = %d, want 0", s.Len())
	}
}

// ---------------------------------------------------------------------------
// Joints and bridges
// ---------------------------------------------------------------------------

func TestBridgeLifecycle(t *testing.T) {
	s := newScene(t)
	j1 := s.NewJoint("joint")
	j2 := s.NewJoint("joint")
	j1.SetTransform(frame.Translation(v3.Vec{X: 5}))

	br, err := s.CreateBridge(j1, j2)
	if err != nil {
		t.Fatal(err)
	}
	if br.Name() != "bridge_joint_joint.001" {
		t.Errorf("bridge name = %q", br.Name())
	}
	if !br.Transform().ApproxEqual(j1.Transform(), frame.Tolerance) {
		t.Error("bridge should take joint A's frame")
	}
	if len(j1.Bridges()) != 1 || len(j2.Bridges()) != 1 {
		t.Fatal("both joints should list the bridge")
	}
	requireValid(t, s)

	s.Destroy(j1)
	if s.Contains(br) {
		t.Error("destroying a joint must destroy its bridges")
	}
	if len(j2.Bridges()) != 0 {
		t.Error("surviving joint should have no bridges")
	}
	if !s.Contains(j2) {
		t.Error("other joint must survive")
	}
}

func TestBridgeRejectsSameJoint(t *testing.T) {
	s := newScene(t)
	j := s.NewJoint("joint")
	if _, err := s.CreateBridge(j, j); err == nil {
		t.Fatal("expected error")
	}
}

func TestDestroyBridgeOnly(t *testing.T) {
	s := newScene(t)
	j1, j2 := s.NewJoint("a"), s.NewJoint("b")
	br, err := s.CreateBridge(j1, j2)
	if err != nil {
		t.Fatal(err)
	}
	s.Destroy(br)
	if !s.Contains(j1) || !s.Contains(j2) {
		t.Error("joints must survive bridge destruction")
	}
	if len(j1.Bridges())+len(j2.Bridges()) != 0 {
		t.Error("joints should forget the bridge")
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func TestValidateDetectsMissingReciprocal(t *testing.T) {
	s := newScene(t)
	a := mustModule(t, s, xdbtest.D14)
	b := mustModule(t, s, xdbtest.D14)
	a.NewCLink("A", b, "A")

	errs := Validate(s)
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "no reciprocal") {
		t.Fatalf("findings = %v", errs)
	}
	if errs[0].ObjectID != a.ID() {
		t.Error("finding should name the link owner")
	}
}

func TestValidateDetectsDoubleLinkedSingle(t *testing.T) {
	s := newScene(t)
	a := mustModule(t, s, xdbtest.D14)
	b := mustModule(t, s, xdbtest.D14)
	c := mustModule(t, s, xdbtest.D14)
	Connect(a, TermC, "A", b, "A")
	Connect(a, TermC, "B", c, "A")

	var found bool
	for _, e := range Validate(s) {
		if strings.Contains(e.Message, "2 links on terminus C") {
			found = true
		}
	}
	if !found {
		t.Error("expected double-link finding")
	}
}

func TestValidateUnknownHubChain(t *testing.T) {
	s := newScene(t)
	hub := mustModule(t, s, xdbtest.SymHub)
	m := mustModule(t, s, xdbtest.D14)
	Connect(hub, TermC, "Z", m, "A")

	var found bool
	for _, e := range Validate(s) {
		if e.Message == "hub has no chain Z" {
			found = true
		}
	}
	if !found {
		t.Error("expected unknown chain finding")
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Message: "boom", Severity: SeverityWarning}
	if e.Error() != "[warning] boom" {
		t.Errorf("Error() = %q", e.Error())
	}
	e.ObjectID = "0123456789"
	if e.Error() != "[warning] object 01234567: boom" {
		t.Errorf("Error() = %q", e.Error())
	}
}

// ---------------------------------------------------------------------------
// Colors
// ---------------------------------------------------------------------------

func TestColorRoundTrip(t *testing.T) {
	c, err := ParseColor("#4a90d9")
	if err != nil {
		t.Fatal(err)
	}
	if c.Hex() != "#4a90d9" {
		t.Errorf("Hex() = %q", c.Hex())
	}
	if _, err := ParseColor("blue"); err == nil {
		t.Error("expected parse error")
	}
}

func TestColorWheelCycles(t *testing.T) {
	w, err := NewColorWheel("#ff0000", "#00ff00")
	if err != nil {
		t.Fatal(err)
	}
	got := []string{w.Next().Hex(), w.Next().Hex(), w.Next().Hex()}
	want := []string{"#ff0000", "#00ff00", "#ff0000"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("wheel mismatch (-want +got):\n%s", diff)
	}
	def, err := NewColorWheel()
	if err != nil {
		t.Fatal(err)
	}
	if def.Next().Hex() != strings.ToLower(DefaultPalette[0]) {
		t.Error("default wheel should start at the first palette color")
	}
}

// ---------------------------------------------------------------------------
// Snapshot
// ---------------------------------------------------------------------------

func TestSnapshotRestore(t *testing.T) {
	s := newScene(t)
	hub := mustModule(t, s, xdbtest.SymHub)
	var arms []*Module
	for _, chain := range []string{"A", "B"} {
		m := mustModule(t, s, xdbtest.D14)
		m.Give(Color{R: 1})
		m.SetTransform(frame.Translation(v3.Vec{X: 3, Y: 4}))
		Connect(hub, TermC, chain, m, "A")
		arms = append(arms, m)
	}
	if err := LinkMirrors(arms); err != nil {
		t.Fatal(err)
	}
	j1, j2 := s.NewJoint("j"), s.NewJoint("j")
	if _, err := s.CreateBridge(j1, j2); err != nil {
		t.Fatal(err)
	}
	s.Select(arms[0])

	var buf bytes.Buffer
	if err := s.Snapshot().Encode(&buf); err != nil {
		t.Fatal(err)
	}
	snap, err := DecodeSnapshot(&buf)
	if err != nil {
		t.Fatal(err)
	}
	r, err := Restore(xdbtest.DB(), snap)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(s.Snapshot(), r.Snapshot()); diff != "" {
		t.Errorf("restored snapshot mismatch (-want +got):\n%s", diff)
	}
	requireValid(t, r)

	arm, err := r.Module("D14")
	if err != nil {
		t.Fatal(err)
	}
	if arm.Hidden || arm.Color.Hex() != "#ff0000" {
		t.Errorf("arm display state not restored: hidden=%v color=%s", arm.Hidden, arm.Color)
	}
	if len(arm.Mirrors()) != 2 {
		t.Errorf("arm mirrors = %d, want 2", len(arm.Mirrors()))
	}
	if !r.IsSelected(arm) {
		t.Error("selection not restored")
	}
}

func TestRestoreRejectsUnknownPrototype(t *testing.T) {
	snap := Snapshot{Objects: []ObjectRecord{{ID: NewObjectID(), Name: "x", Kind: "module", Prototype: "nope"}}}
	if _, err := Restore(xdbtest.DB(), snap); err == nil {
		t.Fatal("expected error")
	}
}

func TestRestoreRejectsMissingID(t *testing.T) {
	snap := Snapshot{Objects: []ObjectRecord{{Name: "x", Kind: "joint"}}}
	if _, err := Restore(xdbtest.DB(), snap); err == nil {
		t.Fatal("expected error")
	}
}

func TestRestoreAfterStaleMirrorDestroyed(t *testing.T) {
	s := newScene(t)
	a := mustModule(t, s, xdbtest.D14)
	b := mustModule(t, s, xdbtest.D14)
	if err := LinkMirrors([]*Module{a, b}); err != nil {
		t.Fatal(err)
	}
	UnlinkMirrors([]*Module{a}, false)
	s.Destroy(a)
	// The freed name goes to an unrelated module.
	c := mustModule(t, s, xdbtest.D14)
	if c.Name() != "D14" {
		t.Fatalf("reused name = %q, want D14", c.Name())
	}

	r, err := Restore(xdbtest.DB(), s.Snapshot())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	rb, err := r.Module("D14.001")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"D14.001"}, names(rb.Mirrors())); diff != "" {
		t.Errorf("restored mirrors mismatch (-want +got):\n%s", diff)
	}
	rc, err := r.Module("D14")
	if err != nil {
		t.Fatal(err)
	}
	if rc.HasMirrors() {
		t.Error("unrelated module must not inherit the stale mirror reference")
	}
	for _, f := range Validate(r) {
		if f.Severity == SeverityError {
			t.Errorf("unexpected error finding: %v", f)
		}
	}
}
