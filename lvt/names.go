package lvt

import (
	"strconv"
	"strings"
)

// keywords are the Java language keywords a synthesized name must
// never collide with (spec §4.H) — generalized from utils/names.go's
// DNS-1035-label validity check to this package's "valid Java
// identifier, not a keyword" rule.
var keywords = map[string]bool{
	"abstract": true, "assert": true, "boolean": true, "break": true, "byte": true,
	"case": true, "catch": true, "char": true, "class": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extends": true, "final": true, "finally": true, "float": true,
	"for": true, "goto": true, "if": true, "implements": true, "import": true,
	"instanceof": true, "int": true, "interface": true, "long": true, "native": true,
	"new": true, "package": true, "private": true, "protected": true, "public": true,
	"return": true, "short": true, "static": true, "strictfp": true, "super": true,
	"switch": true, "synchronized": true, "this": true, "throw": true, "throws": true,
	"transient": true, "try": true, "void": true, "volatile": true, "while": true,
	"true": true, "false": true, "null": true, "var": true, "yield": true, "record": true,
}

// isKeyword reports whether s is a reserved word a synthesized name
// must avoid.
func isKeyword(s string) bool {
	return keywords[s]
}

// isValidIdentifier reports whether s is non-empty, starts with a
// letter or underscore, and otherwise consists of letters, digits or
// underscores — a plain Java identifier, not a keyword.
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	if !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return !isKeyword(s)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// scalarBase maps a primitive descriptor's leading char to its base
// name and whether uniquing should letter-increment rather than
// counter-suffix (spec §4.H table).
var scalarBase = map[byte]struct {
	name            string
	letterIncrement bool
}{
	'B': {"b", true},
	'C': {"c", true},
	'D': {"d", true},
	'F': {"f", true},
	'I': {"i", true},
	'J': {"l", true},
	'S': {"s", true},
	'Z': {"bl", false},
}

// classSegment extracts the last '/'-separated, then last
// '$'-separated segment of an internal class name, lowercasing its
// first rune — "com/example/Widget$Builder" -> "builder".
func classSegment(internalName string) string {
	seg := internalName
	if i := strings.LastIndexByte(seg, '/'); i >= 0 {
		seg = seg[i+1:]
	}
	if i := strings.LastIndexByte(seg, '$'); i >= 0 {
		seg = seg[i+1:]
	}
	if seg == "" {
		return ""
	}
	return strings.ToLower(seg[:1]) + seg[1:]
}

// stripLeadingDigits removes leading ASCII digits, the digit-stripping
// fallback Open Question (a) mandates for purely-numeric anonymous
// class segments like "Style$1" -> "1" -> "".
func stripLeadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[i:]
}

// baseNameForClass derives a candidate base name for an L...; type
// descriptor's internal class name, applying the digit-stripping retry
// from Open Question (a). It does not walk supertypes; callers that
// have a hierarchy should retry with each supertype (skipping
// java/lang/Object) on failure, per spec §4.H.
func baseNameForClass(internalName string) (string, bool) {
	name := classSegment(internalName)
	if isValidIdentifier(name) {
		return name, true
	}
	stripped := stripLeadingDigits(name)
	if isValidIdentifier(stripped) {
		return stripped, true
	}
	return "", false
}

// supertypeChain is the minimal interface lvt needs from a hierarchy
// index for the class-descriptor retry fallback: the transitive
// supertypes of a class name, in spec §4.G's walk order.
type supertypeChain interface {
	TransitiveSupertypes(name string) []string
}

// baseNameForDescriptor derives the base name and letter-increment
// mode for a field descriptor, per spec §4.H's table. hier supports
// the L...; "retry on supertype" fallback; hier may be nil
// (no retry attempted) for standalone synthesis.
func baseNameForDescriptor(desc string, hier supertypeChain) (base string, letterIncrement bool, ok bool) {
	if desc == "" {
		return "", false, false
	}
	if desc[0] == '[' {
		dims := 0
		for dims < len(desc) && desc[dims] == '[' {
			dims++
		}
		elemBase, inc, ok := baseNameForDescriptor(desc[dims:], hier)
		if !ok {
			return "", false, false
		}
		plural := elemBase + "s"
		if isKeyword(plural) {
			plural = elemBase
		}
		return plural, inc, true
	}

	if sb, ok := scalarBase[desc[0]]; ok {
		return sb.name, sb.letterIncrement, true
	}

	if desc[0] != 'L' || !strings.HasSuffix(desc, ";") {
		return "", false, false
	}
	internalName := desc[1 : len(desc)-1]
	if name, ok := baseNameForClass(internalName); ok {
		return name, false, true
	}
	if hier == nil {
		return "", false, false
	}
	for _, super := range hier.TransitiveSupertypes(internalName) {
		if super == "java/lang/Object" {
			continue
		}
		if name, ok := baseNameForClass(super); ok {
			return name, false, true
		}
	}
	return "", false, false
}

// namer assigns fresh, non-colliding, non-keyword names from base
// candidates, tracking per-base letter-increment cursors and counter
// cursors (spec §4.H "Name uniquing").
type namer struct {
	taken           map[string]bool
	letterCursor    map[string]int // base -> next base-26 index to try
	counterCursor   map[string]int // base -> next counter suffix to try
}

func newNamer(taken map[string]bool) *namer {
	if taken == nil {
		taken = make(map[string]bool)
	}
	return &namer{
		taken:         taken,
		letterCursor:  make(map[string]int),
		counterCursor: make(map[string]int),
	}
}

// reserve marks name as taken without going through synthesis, for
// names that already came from a parameter mapping or an existing,
// non-regenerated local-variable name.
func (n *namer) reserve(name string) {
	n.taken[name] = true
}

// assign synthesizes the next available name for base, using
// letter-increment or counter uniquing as directed, and reserves it.
func (n *namer) assign(base string, letterIncrement bool) string {
	var name string
	if letterIncrement {
		name = n.nextLetterIncrement(base)
	} else {
		name = n.nextCounter(base)
	}
	n.taken[name] = true
	return name
}

// nextLetterIncrement walks the alphabet starting at base's own letter
// (so the first "i" synthesized is "i" itself, not "a") and onward
// through z, aa, ab, ... (base-26 little-endian beyond 'z') until a
// non-taken, non-keyword candidate is found — spec §4.H's
// "letter-increment" uniquing.
func (n *namer) nextLetterIncrement(base string) string {
	if _, seen := n.letterCursor[base]; !seen {
		n.letterCursor[base] = int(base[0] - 'a')
	}
	for {
		idx := n.letterCursor[base]
		n.letterCursor[base] = idx + 1
		candidate := letterIndex(idx)
		if !n.taken[candidate] && !isKeyword(candidate) {
			return candidate
		}
	}
}

// letterIndex renders idx (0-based) as a base-26 little-endian letter
// string: 0->"a", 25->"z", 26->"aa", 27->"ab", ...
func letterIndex(idx int) string {
	var digits []byte
	for {
		digits = append(digits, byte('a'+idx%26))
		idx = idx/26 - 1
		if idx < 0 {
			break
		}
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}

// nextCounter emits base, base2, base3, ... (keyword bases get a
// trailing underscore first) until a non-taken candidate is found.
func (n *namer) nextCounter(base string) string {
	if isKeyword(base) {
		base = base + "_"
	}
	cursor := n.counterCursor[base]
	for {
		var candidate string
		if cursor == 0 {
			candidate = base
		} else {
			candidate = base + strconv.Itoa(cursor+1)
		}
		cursor++
		if !n.taken[candidate] {
			n.counterCursor[base] = cursor
			return candidate
		}
	}
}
