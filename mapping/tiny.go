package mapping

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/coreos/go-semver/semver"

	monument "github.com/Fallen-Breath/monument"
)

// minSupportedTinyV2, maxSupportedTinyV2 bound the tiny-v2 minor
// versions this parser understands, gated with go-semver the same way
// function_migrations.go gates its own versioned steps by SpecVersion
// (spec §[ADDED] 4.D/E): minor 0 is the only minor that ever shipped
// against major 2, so the range is a single point, but comparing via
// semver rather than a literal "!= 0" check keeps the gate extensible
// the same way the teacher's migration table is.
var (
	minSupportedTinyV2 = semver.Version{Major: 2, Minor: 0}
	maxSupportedTinyV2 = semver.Version{Major: 2, Minor: 0}
)

// ParseTiny reads either a tiny v1 or tiny v2 mapping file from r,
// dispatching on the first line (spec §4.D, §6).
func ParseTiny(r io.Reader) (*MappingTree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	if !scanner.Scan() {
		return nil, monument.NewError(monument.KindBadFormat, "mapping.ParseTiny", fmt.Errorf("empty input"))
	}
	header := strings.Split(scanner.Text(), "\t")
	switch {
	case len(header) > 0 && header[0] == "v1":
		return parseTinyV1(header, scanner)
	case len(header) > 0 && header[0] == "tiny":
		return parseTinyV2(header, scanner)
	default:
		return nil, monument.NewError(monument.KindBadFormat, "mapping.ParseTiny",
			fmt.Errorf("unrecognized header %q", scanner.Text()))
	}
}

func parseTinyV1(header []string, scanner *bufio.Scanner) (*MappingTree, error) {
	namespaces := header[1:]
	if len(namespaces) == 0 {
		return nil, monument.NewError(monument.KindBadFormat, "mapping.parseTinyV1", fmt.Errorf("v1 header carries no namespaces"))
	}
	tree := New(namespaces...)
	n := len(namespaces)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		switch cols[0] {
		case "CLASS":
			names, err := padNames(cols[1:], n)
			if err != nil {
				return nil, monument.NewError(monument.KindBadFormat, "mapping.parseTinyV1", err)
			}
			if err := tree.AddClass(newClassMapping(names)); err != nil {
				return nil, err
			}
		case "FIELD", "METHOD":
			if len(cols) < 3 {
				return nil, monument.NewError(monument.KindBadFormat, "mapping.parseTinyV1",
					fmt.Errorf("malformed %s line: %q", cols[0], line))
			}
			owner, descriptor := cols[1], cols[2]
			names, err := padNames(cols[3:], n)
			if err != nil {
				return nil, monument.NewError(monument.KindBadFormat, "mapping.parseTinyV1", err)
			}
			if err := addMember(tree, owner, cols[0], descriptor, names, ""); err != nil {
				return nil, err
			}
		default:
			return nil, monument.NewError(monument.KindBadFormat, "mapping.parseTinyV1",
				fmt.Errorf("unknown line prefix %q", cols[0]))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, monument.NewError(monument.KindIO, "mapping.parseTinyV1", err)
	}
	return tree, nil
}

// tinyV2Line is one physical line split into (indent depth, columns).
type tinyV2Line struct {
	depth int
	cols  []string
}

func parseTinyV2(header []string, scanner *bufio.Scanner) (*MappingTree, error) {
	if len(header) < 4 {
		return nil, monument.NewError(monument.KindBadFormat, "mapping.parseTinyV2", fmt.Errorf("malformed tiny v2 header"))
	}
	major, err1 := strconv.Atoi(header[1])
	minor, err2 := strconv.Atoi(header[2])
	if err1 != nil || err2 != nil {
		return nil, monument.NewError(monument.KindBadFormat, "mapping.parseTinyV2", fmt.Errorf("non-numeric tiny v2 version in header"))
	}
	version := semver.Version{Major: int64(major), Minor: int64(minor)}
	if version.LessThan(minSupportedTinyV2) || maxSupportedTinyV2.LessThan(version) {
		return nil, monument.NewError(monument.KindUnsupported, "mapping.parseTinyV2",
			fmt.Errorf("tiny v2 minor version %d.%d is not supported", major, minor))
	}

	namespaces := header[3:]
	tree := New(namespaces...)
	n := len(namespaces)

	var lines []tinyV2Line
	for scanner.Scan() {
		raw := scanner.Text()
		if raw == "" {
			continue
		}
		depth := 0
		for depth < len(raw) && raw[depth] == '\t' {
			depth++
		}
		lines = append(lines, tinyV2Line{depth: depth, cols: strings.Split(raw[depth:], "\t")})
	}
	if err := scanner.Err(); err != nil {
		return nil, monument.NewError(monument.KindIO, "mapping.parseTinyV2", err)
	}

	escaped := false
	i := 0
	for i < len(lines) {
		line := lines[i]
		if line.depth != 0 {
			return nil, monument.NewError(monument.KindBadFormat, "mapping.parseTinyV2",
				fmt.Errorf("unexpected indent at top level: %v", line.cols))
		}
		switch line.cols[0] {
		case "c":
			i++ // tree-level comment, discarded: not addressable without an owning class
			continue
		case "PROPERTY":
			if len(line.cols) >= 2 && line.cols[1] == "escaped-names" {
				escaped = true
			}
			i++
			continue
		case "CLASS":
		default:
			return nil, monument.NewError(monument.KindBadFormat, "mapping.parseTinyV2",
				fmt.Errorf("unknown top-level prefix %q", line.cols[0]))
		}
		names, err := padNames(maybeUnescape(line.cols[1:], escaped), n)
		if err != nil {
			return nil, monument.NewError(monument.KindBadFormat, "mapping.parseTinyV2", err)
		}
		cm := newClassMapping(names)
		i++
		i, err = parseTinyV2ClassBody(lines, i, cm, n, escaped)
		if err != nil {
			return nil, err
		}
		if err := tree.AddClass(cm); err != nil {
			return nil, err
		}
	}
	if escaped {
		tree.SetProperty("escaped-names", "true")
	}
	return tree, nil
}

func parseTinyV2ClassBody(lines []tinyV2Line, i int, cm *ClassMapping, n int, escaped bool) (int, error) {
	for i < len(lines) && lines[i].depth == 1 {
		line := lines[i]
		switch line.cols[0] {
		case "c":
			if len(line.cols) > 1 {
				cm.Comment = unescapeIf(line.cols[1], escaped)
			}
			i++
		case "FIELD", "METHOD":
			if len(line.cols) < 2 {
				return 0, monument.NewError(monument.KindBadFormat, "mapping.parseTinyV2",
					fmt.Errorf("malformed %s line", line.cols[0]))
			}
			descriptor := line.cols[1]
			names, err := padNames(maybeUnescape(line.cols[2:], escaped), n)
			if err != nil {
				return 0, monument.NewError(monument.KindBadFormat, "mapping.parseTinyV2", err)
			}
			key := MemberDescriptor{Name: names[0], Descriptor: descriptor}
			i++
			if line.cols[0] == "FIELD" {
				cm.Fields[key] = &FieldMapping{Names: names, Descriptor: descriptor}
				var err error
				i, err = skipMemberBody(lines, i)
				if err != nil {
					return 0, err
				}
			} else {
				method := &MethodMapping{Names: names, Descriptor: descriptor, Parameters: make(map[int]*ParameterMapping)}
				var err error
				i, err = parseTinyV2MethodBody(lines, i, method, n, escaped)
				if err != nil {
					return 0, err
				}
				cm.Methods[key] = method
			}
		default:
			return 0, monument.NewError(monument.KindBadFormat, "mapping.parseTinyV2",
				fmt.Errorf("unknown class-level prefix %q", line.cols[0]))
		}
	}
	return i, nil
}

func parseTinyV2MethodBody(lines []tinyV2Line, i int, m *MethodMapping, n int, escaped bool) (int, error) {
	for i < len(lines) && lines[i].depth == 2 {
		line := lines[i]
		switch line.cols[0] {
		case "c":
			if len(line.cols) > 1 {
				m.Comment = unescapeIf(line.cols[1], escaped)
			}
		case "p":
			if len(line.cols) < 2 {
				return 0, monument.NewError(monument.KindBadFormat, "mapping.parseTinyV2", fmt.Errorf("malformed p line"))
			}
			slot, err := strconv.Atoi(line.cols[1])
			if err != nil {
				return 0, monument.NewError(monument.KindBadFormat, "mapping.parseTinyV2", fmt.Errorf("non-numeric parameter slot: %v", err))
			}
			names, err := padNames(maybeUnescape(line.cols[2:], escaped), n)
			if err != nil {
				return 0, monument.NewError(monument.KindBadFormat, "mapping.parseTinyV2", err)
			}
			m.Parameters[slot] = &ParameterMapping{Index: slot, Names: names}
		default:
			return 0, monument.NewError(monument.KindBadFormat, "mapping.parseTinyV2",
				fmt.Errorf("unknown method-level prefix %q", line.cols[0]))
		}
		i++
	}
	return i, nil
}

func skipMemberBody(lines []tinyV2Line, i int) (int, error) {
	for i < len(lines) && lines[i].depth == 2 {
		i++
	}
	return i, nil
}

func padNames(cols []string, n int) ([]string, error) {
	if len(cols) > n {
		return nil, fmt.Errorf("too many names: got %d, want at most %d", len(cols), n)
	}
	out := make([]string, n)
	copy(out, cols)
	if out[0] == "" && len(cols) > 0 {
		out[0] = cols[0]
	}
	return out, nil
}

func maybeUnescape(cols []string, escaped bool) []string {
	if !escaped {
		return cols
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = unescapeName(c)
	}
	return out
}

func unescapeIf(s string, escaped bool) string {
	if !escaped {
		return s
	}
	return unescapeName(s)
}

// unescapeName decodes the tiny-v2 escape sequences \\ \n \r \t \0
// (spec §4.D, honored when the tree's "escaped-names" property is
// set).
func unescapeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '0':
			b.WriteByte(0)
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func addMember(tree *MappingTree, owner, kind, descriptor string, names []string, comment string) error {
	cm, ok := tree.GetClass(owner)
	if !ok {
		cm = newClassMapping(padOwnerNames(owner, tree.NamespaceCount()))
		if err := tree.AddClass(cm); err != nil {
			return err
		}
	}
	key := MemberDescriptor{Name: names[0], Descriptor: descriptor}
	if kind == "FIELD" {
		cm.Fields[key] = &FieldMapping{Names: names, Descriptor: descriptor, Comment: comment}
	} else {
		cm.Methods[key] = &MethodMapping{Names: names, Descriptor: descriptor, Comment: comment, Parameters: make(map[int]*ParameterMapping)}
	}
	return nil
}

func padOwnerNames(owner string, n int) []string {
	names := make([]string, n)
	names[0] = owner
	return names
}
