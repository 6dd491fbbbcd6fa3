package mapping

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	monument "github.com/Fallen-Breath/monument"
)

func buildSampleTree(t *testing.T) *MappingTree {
	t.Helper()
	tree := New("official", "intermediary", "named")
	a := newClassMapping([]string{"a", "", "Apple"})
	a.Fields[MemberDescriptor{Name: "b", Descriptor: "I"}] = &FieldMapping{
		Names:      []string{"b", "", ""},
		Descriptor: "I",
	}
	if err := tree.AddClass(a); err != nil {
		t.Fatalf("AddClass: %v", err)
	}
	return tree
}

func TestMapType(t *testing.T) {
	tree := buildSampleTree(t)
	got, err := tree.MapType("a", 2)
	if err != nil || got != "Apple" {
		t.Fatalf("MapType(a, 2) = %q, %v, want Apple", got, err)
	}
	got, err = tree.MapType("unknown/Class", 2)
	if err != nil || got != "unknown/Class" {
		t.Fatalf("MapType(unknown) = %q, %v, want unchanged", got, err)
	}
}

func TestInvertInvolution(t *testing.T) {
	tree := buildSampleTree(t)
	inverted, err := tree.Invert("named")
	if err != nil {
		t.Fatalf("Invert: %v", err)
	}
	back, err := inverted.Invert("official")
	if err != nil {
		t.Fatalf("Invert back: %v", err)
	}

	origClass, _ := tree.GetClass("a")
	backClass, _ := back.GetClass("a")
	if backClass == nil {
		t.Fatalf("class %q missing after round-trip invert", "a")
	}
	for i := range origClass.Names {
		if effectiveName(origClass.Names, i) != effectiveName(backClass.Names, i) {
			t.Fatalf("namespace %d: %q != %q", i, effectiveName(origClass.Names, i), effectiveName(backClass.Names, i))
		}
	}
	origField := origClass.Fields[MemberDescriptor{Name: "b", Descriptor: "I"}]
	backField, ok := backClass.Fields[MemberDescriptor{Name: "b", Descriptor: "I"}]
	if !ok {
		t.Fatalf("field b missing after round-trip invert")
	}
	for i := range origField.Names {
		if effectiveName(origField.Names, i) != effectiveName(backField.Names, i) {
			t.Fatalf("field namespace %d mismatch", i)
		}
	}
}

func TestInvertUnknownNamespace(t *testing.T) {
	tree := buildSampleTree(t)
	if _, err := tree.Invert("nope"); monument.KindOf(err) != monument.KindUnsupported {
		t.Fatalf("Invert(nope) kind = %v, want Unsupported", monument.KindOf(err))
	}
}

func TestMergeDisjointCommutes(t *testing.T) {
	left := New("official", "named")
	if err := left.AddClass(newClassMapping([]string{"a", "Apple"})); err != nil {
		t.Fatal(err)
	}
	right := New("official", "named")
	if err := right.AddClass(newClassMapping([]string{"b", "Banana"})); err != nil {
		t.Fatal(err)
	}

	ab, err := left.Merge(right)
	if err != nil {
		t.Fatalf("Merge(left, right): %v", err)
	}
	ba, err := right.Merge(left)
	if err != nil {
		t.Fatalf("Merge(right, left): %v", err)
	}

	abClasses := ab.Classes()
	baClasses := ba.Classes()
	if len(abClasses) != 2 || len(baClasses) != 2 {
		t.Fatalf("expected 2 classes each way, got %d and %d", len(abClasses), len(baClasses))
	}
	for _, name := range []string{"a", "b"} {
		c1, ok1 := ab.GetClass(name)
		c2, ok2 := ba.GetClass(name)
		if !ok1 || !ok2 {
			t.Fatalf("class %q missing from one merge direction", name)
		}
		if diff := cmp.Diff(c1.Names, c2.Names); diff != "" {
			t.Fatalf("class %q names differ by merge order (-ab +ba):\n%s", name, diff)
		}
	}
}

func TestMergeConflictingNamesFails(t *testing.T) {
	left := New("official", "named")
	if err := left.AddClass(newClassMapping([]string{"a", "Apple"})); err != nil {
		t.Fatal(err)
	}
	right := New("official", "named")
	if err := right.AddClass(newClassMapping([]string{"a", "Avocado"})); err != nil {
		t.Fatal(err)
	}
	if _, err := left.Merge(right); monument.KindOf(err) != monument.KindInconsistentMappings {
		t.Fatalf("Merge conflict kind = %v, want InconsistentMappings", monument.KindOf(err))
	}
}

func TestCombinedMappingTreeUnsupportedOps(t *testing.T) {
	combined := NewCombinedMappingTree(New("a", "b"), New("b", "c"))
	if _, err := combined.Invert("a"); monument.KindOf(err) != monument.KindUnsupported {
		t.Fatalf("Invert kind = %v", monument.KindOf(err))
	}
	if _, err := combined.Merge(New("a", "b")); monument.KindOf(err) != monument.KindUnsupported {
		t.Fatalf("Merge kind = %v", monument.KindOf(err))
	}
	if _, err := combined.MapType("x", 0); monument.KindOf(err) != monument.KindUnsupported {
		t.Fatalf("MapType kind = %v", monument.KindOf(err))
	}
}

func TestParseTinyV1(t *testing.T) {
	text := "v1\tofficial\tnamed\n" +
		"CLASS\ta\tApple\n" +
		"FIELD\ta\tI\tb\tcount\n"
	tree, err := ParseTiny(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseTiny: %v", err)
	}
	cm, ok := tree.GetClass("a")
	if !ok {
		t.Fatalf("class a not found")
	}
	if got, _ := tree.MapType("a", 1); got != "Apple" {
		t.Fatalf("MapType = %q", got)
	}
	field, ok := cm.Fields[MemberDescriptor{Name: "b", Descriptor: "I"}]
	if !ok || effectiveName(field.Names, 1) != "count" {
		t.Fatalf("field b not mapped to count: %+v ok=%v", field, ok)
	}
}

func TestParseTinyV2WithCommentsAndParams(t *testing.T) {
	text := strings.Join([]string{
		"tiny\t2\t0\tofficial\tnamed",
		"CLASS\ta\tApple",
		"\tFIELD\tI\tb\tcount",
		"\tMETHOD\t(I)V\tm\tsetCount",
		"\t\tp\t1\tnewValue",
		"\t\tc\tsets the count",
		"\tc\tclass comment",
		"",
	}, "\n")
	tree, err := ParseTiny(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseTiny: %v", err)
	}
	cm, ok := tree.GetClass("a")
	if !ok {
		t.Fatalf("class a not found")
	}
	if cm.Comment != "class comment" {
		t.Fatalf("class comment = %q", cm.Comment)
	}
	method, ok := cm.Methods[MemberDescriptor{Name: "m", Descriptor: "(I)V"}]
	if !ok {
		t.Fatalf("method m not found")
	}
	if method.Comment != "sets the count" {
		t.Fatalf("method comment = %q", method.Comment)
	}
	param, ok := method.Parameters[1]
	if !ok || effectiveName(param.Names, 1) != "newValue" {
		t.Fatalf("parameter 1 = %+v, ok=%v", param, ok)
	}
}

func TestParseTinyV2EscapedNames(t *testing.T) {
	text := strings.Join([]string{
		"tiny\t2\t0\tofficial\tnamed",
		"PROPERTY\tescaped-names",
		"CLASS\ta\tLine\\nBreak",
		"\tFIELD\tI\tb\ttab\\tchar",
		"\tMETHOD\t(I)V\tm\tback\\\\slash",
		"\t\tc\tcomment with a \\ttab",
		"",
	}, "\n")
	tree, err := ParseTiny(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseTiny: %v", err)
	}
	if !tree.HasProperty("escaped-names") {
		t.Fatalf("escaped-names property not set")
	}
	cm, ok := tree.GetClass("a")
	if !ok {
		t.Fatalf("class a not found")
	}
	if got := effectiveName(cm.Names, 1); got != "Line\nBreak" {
		t.Fatalf("class name = %q, want unescaped Line\\nBreak", got)
	}
	field, ok := cm.Fields[MemberDescriptor{Name: "b", Descriptor: "I"}]
	if !ok || effectiveName(field.Names, 1) != "tab\tchar" {
		t.Fatalf("field name = %+v, ok=%v, want unescaped tab\\tchar", field, ok)
	}
	method, ok := cm.Methods[MemberDescriptor{Name: "m", Descriptor: "(I)V"}]
	if !ok || effectiveName(method.Names, 1) != "back\\slash" {
		t.Fatalf("method name = %+v, ok=%v, want unescaped back\\\\slash", method, ok)
	}
	if method.Comment != "comment with a \ttab" {
		t.Fatalf("method comment = %q, want unescaped", method.Comment)
	}
}

func TestParseTinyV2UnsupportedMinor(t *testing.T) {
	text := "tiny\t2\t99\tofficial\tnamed\n"
	_, err := ParseTiny(strings.NewReader(text))
	if monument.KindOf(err) != monument.KindUnsupported {
		t.Fatalf("kind = %v, want Unsupported", monument.KindOf(err))
	}
}

func TestParseTinyBadFormat(t *testing.T) {
	text := "v1\tofficial\tnamed\nGARBAGE\tx\n"
	_, err := ParseTiny(strings.NewReader(text))
	if monument.KindOf(err) != monument.KindBadFormat {
		t.Fatalf("kind = %v, want BadFormat", monument.KindOf(err))
	}
}

func TestParseProguard(t *testing.T) {
	text := strings.Join([]string{
		"some.pkg.Original -> a:",
		"    int field -> b",
		"    1234:1245:int compute(int,java.lang.String) -> c",
		"",
	}, "\n")
	tree, err := ParseProguard(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseProguard: %v", err)
	}
	// namespace 0 is "obfuscated" (the jar's actual current names), so
	// GetClass/member tables must key off the obfuscated side, not the
	// file's human-readable left-hand column.
	cm, ok := tree.GetClass("a")
	if !ok {
		t.Fatalf("class not found")
	}
	if effectiveName(cm.Names, 1) != "some/pkg/Original" {
		t.Fatalf("named class name = %q", effectiveName(cm.Names, 1))
	}
	field, ok := cm.Fields[MemberDescriptor{Name: "b", Descriptor: "I"}]
	if !ok || effectiveName(field.Names, 1) != "field" {
		t.Fatalf("field mapping missing or wrong: %+v ok=%v", field, ok)
	}
	method, ok := cm.Methods[MemberDescriptor{Name: "c", Descriptor: "(ILjava/lang/String;)I"}]
	if !ok || effectiveName(method.Names, 1) != "compute" {
		t.Fatalf("method mapping missing or wrong: %+v ok=%v", method, ok)
	}
	if got, _ := tree.MapType("a", 1); got != "some/pkg/Original" {
		t.Fatalf("MapType(a, 1) = %q, want some/pkg/Original", got)
	}
}
