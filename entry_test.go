package ciskema_test

import (
	"runtime"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	ciskema "github.com/reoring/ciskema"
)

// testRegistry covers every shape: a strict root with scalars, lists, a
// key/value map, a strict nested composite and a collection with hidden
// members.
func testRegistry(t *testing.T) *ciskema.Registry {
	t.Helper()
	b := ciskema.NewBuilder()
	name := b.Scalar("name", ciskema.ScalarString)
	flag := b.Scalar("flag", ciskema.ScalarBool)
	lines := b.StringList("lines", ciskema.JoinNewline)
	tags := b.StringList("tags", ciskema.JoinNone).Default(ciskema.Strings("a", "b"))
	refs := b.StringOrRegexList("refs")
	env := b.KeyValueMap("env")
	inner := b.Composite("inner").
		Child("name", name, "Inner name").
		Child("flag", flag, "Inner flag").
		Strict()
	member := b.Composite("member").
		Child("lines", lines, "Lines").
		Child("refs", refs, "Refs")
	hidden := b.Composite("hidden")
	items := b.Collection("items", ".", member, hidden)
	root := b.Composite("root").
		Describe("Test document").
		Child("name", name, "Name").
		Child("tags", tags, "Tags").
		Child("env", env, "Env").
		Child("inner", inner, "Inner").
		Child("items", items, "Items").
		Strict()
	reg, err := b.Build(root)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return reg
}

type issueLite struct{ Key, Path, Code string }

func lite(iss ciskema.Issues) []issueLite {
	out := make([]issueLite, 0, len(iss))
	for _, it := range iss {
		out = append(out, issueLite{it.Key, it.Path, it.Code})
	}
	return out
}

func TestValidate_ErrorOrderIsPreOrder(t *testing.T) {
	reg := testRegistry(t)
	v := ciskema.NewMap().
		Set("inner", ciskema.NewMap().Set("name", ciskema.Int(1)).Set("bogus", ciskema.Bool(true)).Value()).
		Set("name", ciskema.Int(5)).
		Value()

	res := ciskema.Validate(reg, v)
	if res.Valid() {
		t.Fatalf("expected invalid result")
	}
	want := []issueLite{
		{"name", "/name", ciskema.CodeInvalidType},
		{"inner", "/inner", ciskema.CodeUnknownKey},
		{"name", "/inner/name", ciskema.CodeInvalidType},
	}
	if d := cmp.Diff(want, lite(res.Issues())); d != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", d)
	}
	wantText := []string{
		"Name config should be a string",
		"Inner config contains unknown keys: bogus",
		"Name config should be a string",
	}
	if d := cmp.Diff(wantText, res.Errors()); d != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", d)
	}
}

func TestValidate_UnknownKeyInvalidatesEvenWithValidChildren(t *testing.T) {
	reg := testRegistry(t)
	v := ciskema.MustFromAny(map[string]any{
		"inner": map[string]any{"name": "ok", "flag": true, "x": 1, "y": 2},
	})
	res := ciskema.Validate(reg, v)
	if res.Valid() {
		t.Fatalf("expected invalid result")
	}
	iss := res.Entry("inner").LocalIssues()
	if len(iss) != 1 || iss[0].Code != ciskema.CodeUnknownKey {
		t.Fatalf("expected one unknown_key issue, got %v", iss)
	}
	if got := iss[0].Params["keys"]; got != "x, y" {
		t.Fatalf("unexpected keys param %v", got)
	}
	if iss[0].Category() != ciskema.CategoryUnknownKey {
		t.Fatalf("unexpected category %v", iss[0].Category())
	}
}

func TestValidate_NonMapCompositeSkipsChildren(t *testing.T) {
	reg := testRegistry(t)
	res := ciskema.Validate(reg, ciskema.MustFromAny(map[string]any{"inner": "oops"}))

	inner := res.Entry("inner")
	if len(inner.ChildKeys()) != 0 {
		t.Fatalf("expected no children, got %v", inner.ChildKeys())
	}
	want := []string{"Inner config should be a hash"}
	if d := cmp.Diff(want, res.Errors()); d != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", d)
	}
	if !inner.Specified() {
		t.Fatalf("a present but invalid value is still specified")
	}
}

func TestValidate_RootNotAMap(t *testing.T) {
	reg := testRegistry(t)
	res := ciskema.Validate(reg, ciskema.Str("hello"))
	want := []string{"Root config should be a hash"}
	if d := cmp.Diff(want, res.Errors()); d != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", d)
	}
	if got := res.Issues()[0].Path; got != "/" {
		t.Fatalf("root issue path = %q", got)
	}
}

func TestStringList_ValidIffStringOrStrings(t *testing.T) {
	reg := testRegistry(t)
	cases := []struct {
		name  string
		tags  ciskema.Value
		valid bool
	}{
		{"lone string", ciskema.Str("x"), true},
		{"strings", ciskema.Strings("x", "y"), true},
		{"empty sequence", ciskema.Seq(), true},
		{"mixed", ciskema.Seq(ciskema.Str("x"), ciskema.Int(1)), false},
		{"nested", ciskema.Seq(ciskema.Strings("x")), false},
		{"number", ciskema.Int(3), false},
		{"bool", ciskema.Bool(false), false},
		{"map", ciskema.NewMap().Set("a", ciskema.Str("b")).Value(), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ciskema.Validate(reg, ciskema.NewMap().Set("tags", tc.tags).Value())
			if got := res.Entry("tags").Valid(); got != tc.valid {
				t.Fatalf("valid = %v, want %v (issues %v)", got, tc.valid, res.Issues())
			}
		})
	}

	res := ciskema.Validate(reg, ciskema.NewMap().Set("tags", ciskema.Str("solo")).Value())
	got, ok := res.SemanticValue("tags")
	if !ok {
		t.Fatalf("tags not found")
	}
	if d := cmp.Diff([]string{"solo"}, got); d != "" {
		t.Fatalf("lone string should wrap (-want +got):\n%s", d)
	}
}

func TestStringList_NewlineJoinTrimsLines(t *testing.T) {
	reg := testRegistry(t)
	v := ciskema.MustFromAny(map[string]any{
		"items": map[string]any{"build": map[string]any{"lines": []any{"  make  ", "make test\n"}}},
	})
	res := ciskema.Validate(reg, v)
	got, _ := res.SemanticValue("items", "build", "lines")
	if got != "make\nmake test" {
		t.Fatalf("joined script = %q", got)
	}
}

func TestStringOrRegexList_StripsDelimiters(t *testing.T) {
	reg := testRegistry(t)
	v := ciskema.MustFromAny(map[string]any{
		"items": map[string]any{"build": map[string]any{"refs": []any{"main", "/^release-.*$/", "/"}}},
	})
	res := ciskema.Validate(reg, v)
	if !res.Valid() {
		t.Fatalf("unexpected issues: %v", res.Errors())
	}
	got, _ := res.SemanticValue("items", "build", "refs")
	if d := cmp.Diff([]string{"main", "^release-.*$", "/"}, got); d != "" {
		t.Fatalf("refs mismatch (-want +got):\n%s", d)
	}

	bad := ciskema.MustFromAny(map[string]any{
		"items": map[string]any{"build": map[string]any{"refs": []any{"/(/"}}},
	})
	iss := ciskema.Validate(reg, bad).Issues()
	if len(iss) != 1 || iss[0].Code != ciskema.CodeInvalidFormat || iss[0].Key != "refs" {
		t.Fatalf("expected one invalid_format on refs, got %v", iss)
	}
}

func TestDefaulting_SpecifiedFlag(t *testing.T) {
	reg := testRegistry(t)

	absent := ciskema.Validate(reg, ciskema.NewMap().Value())
	got, _ := absent.SemanticValue("tags")
	if d := cmp.Diff([]string{"a", "b"}, got); d != "" {
		t.Fatalf("default mismatch (-want +got):\n%s", d)
	}
	if absent.Specified("tags") {
		t.Fatalf("defaulted value must not be specified")
	}

	explicit := ciskema.Validate(reg, ciskema.NewMap().Set("tags", ciskema.Strings("a", "b")).Value())
	got, _ = explicit.SemanticValue("tags")
	if d := cmp.Diff([]string{"a", "b"}, got); d != "" {
		t.Fatalf("explicit mismatch (-want +got):\n%s", d)
	}
	if !explicit.Specified("tags") {
		t.Fatalf("explicit value must be specified")
	}

	env, ok := absent.SemanticValue("env")
	if !ok {
		t.Fatalf("key/value map should default")
	}
	if d := cmp.Diff(map[string]string{}, env); d != "" {
		t.Fatalf("env default mismatch (-want +got):\n%s", d)
	}
}

func TestCollection_HiddenMembers(t *testing.T) {
	reg := testRegistry(t)
	v := ciskema.NewMap().Set("items", ciskema.NewMap().
		Set("build", ciskema.MustFromAny(map[string]any{"lines": "make"})).
		Set(".tpl", ciskema.MustFromAny(map[string]any{"lines": 1, "anything": true})).
		Set("skip", ciskema.Absent()).
		Value()).Value()
	res := ciskema.Validate(reg, v)
	if !res.Valid() {
		t.Fatalf("unexpected issues: %v", res.Errors())
	}

	items := res.Entry("items")
	if d := cmp.Diff([]string{"build", ".tpl", "skip"}, items.ChildKeys()); d != "" {
		t.Fatalf("member order mismatch (-want +got):\n%s", d)
	}
	if !items.Child("build").Relevant() {
		t.Fatalf("build should be relevant")
	}
	tpl := items.Child(".tpl")
	if tpl.Relevant() || !tpl.Hidden() {
		t.Fatalf(".tpl should be hidden and not relevant")
	}
	if skip := items.Child("skip"); skip.Relevant() || skip.Type() != ciskema.SentinelType() {
		t.Fatalf("null member should be an irrelevant sentinel")
	}
	if d := cmp.Diff([]string{"build"}, items.RelevantKeys()); d != "" {
		t.Fatalf("relevant keys mismatch (-want +got):\n%s", d)
	}
	got, _ := res.SemanticValue("items")
	want := map[string]any{"build": map[string]any{"lines": "make"}}
	if d := cmp.Diff(want, got); d != "" {
		t.Fatalf("collection value mismatch (-want +got):\n%s", d)
	}
}

func TestCollection_HiddenMemberStillValidated(t *testing.T) {
	reg := testRegistry(t)
	v := ciskema.MustFromAny(map[string]any{"items": map[string]any{".tpl": "not a map"}})
	res := ciskema.Validate(reg, v)
	want := []issueLite{{".tpl", "/items/.tpl", ciskema.CodeInvalidType}}
	if d := cmp.Diff(want, lite(res.Issues())); d != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", d)
	}
	if res.Entry("items", ".tpl").Relevant() {
		t.Fatalf("hidden member must stay irrelevant")
	}
}

func TestFabricate_PlacementIsBranchIndependent(t *testing.T) {
	reg := testRegistry(t)
	res := ciskema.Validate(reg, ciskema.NewMap().Value())
	parent := res.Root()
	tags, _ := reg.Type("tags")
	name, _ := reg.Type("name")

	cases := []struct {
		name      string
		entry     *ciskema.Entry
		specified bool
		sentinel  bool
	}{
		{"concrete", ciskema.Fabricate(name, ciskema.Str("x"), "k", parent, "desc"), true, false},
		{"default", ciskema.Fabricate(tags, ciskema.Absent(), "k", parent, "desc"), false, false},
		{"sentinel", ciskema.Fabricate(name, ciskema.Absent(), "k", parent, "desc"), false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := tc.entry
			if e.Key() != "k" || e.Description() != "desc" || e.Pointer() != "/k" || e.Parent() != parent {
				t.Fatalf("placement differs: key=%q desc=%q ptr=%q", e.Key(), e.Description(), e.Pointer())
			}
			if e.Specified() != tc.specified {
				t.Fatalf("specified = %v", e.Specified())
			}
			if (e.Type() == ciskema.SentinelType()) != tc.sentinel {
				t.Fatalf("sentinel = %v", e.Type() == ciskema.SentinelType())
			}
		})
	}
	runtime.KeepAlive(res)
}

func TestEntry_MissingChildIsSentinel(t *testing.T) {
	reg := testRegistry(t)
	res := ciskema.Validate(reg, ciskema.NewMap().Value())

	e := res.Entry("nope", "deeper")
	if e.Type() != ciskema.SentinelType() || e.Relevant() || e.Specified() || !e.Valid() {
		t.Fatalf("expected an inert sentinel")
	}
	if e.Value() != nil {
		t.Fatalf("sentinel value = %#v", e.Value())
	}
	if _, ok := res.SemanticValue("nope"); ok {
		t.Fatalf("missing key should not resolve")
	}
	if e.Pointer() != "/nope/deeper" {
		t.Fatalf("pointer = %q", e.Pointer())
	}
}

func TestEntry_ParentLinks(t *testing.T) {
	reg := testRegistry(t)
	res := ciskema.Validate(reg, ciskema.MustFromAny(map[string]any{"inner": map[string]any{"name": "n"}}))
	name := res.Entry("inner", "name")
	if name.Parent() != res.Entry("inner") || name.Parent().Parent() != res.Root() {
		t.Fatalf("parent chain broken")
	}
	if res.Root().Parent() != nil {
		t.Fatalf("root has no parent")
	}
	runtime.KeepAlive(res)
}

func TestValidate_Idempotent(t *testing.T) {
	reg := testRegistry(t)
	v := ciskema.MustFromAny(map[string]any{
		"name":  1,
		"inner": map[string]any{"bogus": 1, "flag": "yes"},
		"items": map[string]any{"a": map[string]any{"lines": map[string]any{}}, ".b": 1},
	})
	first := ciskema.Validate(reg, v)

	var wg sync.WaitGroup
	results := make([]*ciskema.Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = ciskema.Validate(reg, v)
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		if d := cmp.Diff(first.Errors(), r.Errors()); d != "" {
			t.Fatalf("errors differ between runs:\n%s", d)
		}
		if r.Valid() != first.Valid() {
			t.Fatalf("validity differs between runs")
		}
	}
}

func TestResult_Presence(t *testing.T) {
	reg := testRegistry(t)
	res := ciskema.Validate(reg, ciskema.MustFromAny(map[string]any{
		"name":  "n",
		"items": map[string]any{".tpl": map[string]any{}, "a": map[string]any{}},
	}))
	pm := res.Presence()
	if !pm.Has("/name", ciskema.PresenceSeen) {
		t.Fatalf("/name should be seen: %v", pm)
	}
	if !pm.Has("/tags", ciskema.PresenceDefaultApplied) {
		t.Fatalf("/tags should be defaulted: %v", pm)
	}
	if !pm.Has("/items/.tpl", ciskema.PresenceSeen|ciskema.PresenceHidden) {
		t.Fatalf("/items/.tpl should be seen and hidden: %v", pm)
	}
	if _, ok := pm["/inner"]; ok {
		t.Fatalf("sentinels are not reported: %v", pm)
	}
	only := pm.Filter(ciskema.PresenceOpt{Include: []string{"/items"}, Exclude: []string{"/items/."}})
	if d := cmp.Diff(ciskema.PresenceMap{"/items": ciskema.PresenceSeen, "/items/a": ciskema.PresenceSeen}, only); d != "" {
		t.Fatalf("filtered presence mismatch (-want +got):\n%s", d)
	}
}
